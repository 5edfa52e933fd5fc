package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/assignhub/assignment-ai/internal/fallback"
	"github.com/assignhub/assignment-ai/internal/llm"
)

func promptGateway(examples ExampleSource) *Gateway {
	return NewGateway(GatewayConfig{Configured: true, PrimaryModel: "m"}, &stubGenerator{}, llm.NewBreaker(llm.DefaultBreakerConfig), examples)
}

func TestBuildPromptInjectsContextForAssignmentQuestions(t *testing.T) {
	g := promptGateway(nil)
	actx := &fallback.AssignmentContext{
		Title:       "Photosynthesis Report",
		Description: "Write a lab report on photosynthesis",
		DueDate:     "2026-09-15",
		MaxMarks:    40,
	}

	prompt := g.buildPrompt(context.Background(), &Request{
		Message:    "What are the requirements?",
		Assignment: actx,
	})

	if !strings.Contains(prompt, "Assignment Context:") {
		t.Error("assignment question should include context block")
	}
	if !strings.Contains(prompt, "Photosynthesis Report") {
		t.Error("context block should carry the title")
	}
	if !strings.Contains(prompt, "Due Date: 2026-09-15") {
		t.Error("context block should carry the due date")
	}
	if !strings.Contains(prompt, "Max Marks: 40") {
		t.Error("context block should carry the marks")
	}
}

func TestBuildPromptSkipsContextForUnrelatedQuestions(t *testing.T) {
	g := promptGateway(nil)
	actx := &fallback.AssignmentContext{Title: "History Essay", Description: "The French Revolution"}

	prompt := g.buildPrompt(context.Background(), &Request{
		Message:    "what time is it in Tokyo",
		Assignment: actx,
	})

	if strings.Contains(prompt, "Assignment Context:") {
		t.Error("unrelated question must not be skewed by assignment context")
	}
}

func TestBuildPromptTitleWordTriggersContext(t *testing.T) {
	g := promptGateway(nil)
	actx := &fallback.AssignmentContext{Title: "Photosynthesis Report", Description: "desc"}

	prompt := g.buildPrompt(context.Background(), &Request{
		Message:    "tell me about photosynthesis",
		Assignment: actx,
	})

	if !strings.Contains(prompt, "Assignment Context:") {
		t.Error("title word in the message should pull in context")
	}
}

func TestBuildPromptCreativePreamble(t *testing.T) {
	g := promptGateway(nil)
	actx := &fallback.AssignmentContext{
		Title:       "Poem Assignment",
		Description: "Write a poem about autumn",
	}

	prompt := g.buildPrompt(context.Background(), &Request{
		Message:    "please write the poem for my assignment",
		Assignment: actx,
	})

	if !strings.Contains(prompt, "Return ONLY the finished piece") {
		t.Error("creative assignment should switch to the creative preamble")
	}
	if strings.Contains(prompt, "AI Study Assistant") {
		t.Error("creative prompt should not carry the default preamble")
	}
}

func TestBuildPromptTruncatesHistory(t *testing.T) {
	g := promptGateway(nil)

	history := make([]Turn, 0, 10)
	for i := 0; i < 10; i++ {
		history = append(history, Turn{Sender: "student", Text: "turn-" + string(rune('a'+i))})
	}

	prompt := g.buildPrompt(context.Background(), &Request{Message: "hello", History: history})

	if strings.Contains(prompt, "turn-a") {
		t.Error("oldest turns should be dropped")
	}
	if !strings.Contains(prompt, "turn-j") {
		t.Error("newest turn should survive truncation")
	}
	if got := strings.Count(prompt, "turn-"); got != maxHistoryTurns {
		t.Errorf("prompt carries %d turns, expected %d", got, maxHistoryTurns)
	}
}

func TestBuildPromptIncludesExamples(t *testing.T) {
	source := &recordingExamples{examples: []Example{
		{Question: "What is a rubric?", Answer: "A marking guide."},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
		{Question: "q4", Answer: "a4"},
	}}
	g := promptGateway(source)

	prompt := g.buildPrompt(context.Background(), &Request{Message: "explain rubrics"})

	if !strings.Contains(prompt, "Similar past questions:") {
		t.Error("examples block missing")
	}
	if !strings.Contains(prompt, "A marking guide.") {
		t.Error("example answer missing")
	}
	if strings.Contains(prompt, "q4") {
		t.Errorf("examples should be capped at %d", maxPromptExamples)
	}
}

func TestBuildPromptSkipsExamplesForCreativeTasks(t *testing.T) {
	source := &recordingExamples{examples: []Example{{Question: "q", Answer: "a"}}}
	g := promptGateway(source)
	actx := &fallback.AssignmentContext{Title: "Poem Assignment", Description: "Write a poem"}

	prompt := g.buildPrompt(context.Background(), &Request{
		Message:    "write the poem for this assignment",
		Assignment: actx,
	})

	if strings.Contains(prompt, "Similar past questions:") {
		t.Error("creative tasks should not be steered by past Q&A examples")
	}
}

func TestBuildPromptEndsWithMessage(t *testing.T) {
	g := promptGateway(nil)

	prompt := g.buildPrompt(context.Background(), &Request{Message: "final question"})

	if !strings.HasSuffix(prompt, "Student: final question\n\nAssistant:") {
		t.Errorf("prompt should end with the student message and assistant cue, got tail %q", prompt[len(prompt)-60:])
	}
}
