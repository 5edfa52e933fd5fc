package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/assignhub/assignment-ai/internal/fallback"
)

const (
	// maxHistoryTurns bounds how much conversation is replayed into the prompt
	maxHistoryTurns = 6

	// maxPromptExamples bounds how many similar past exchanges are included
	maxPromptExamples = 3

	systemPreamble = "You are a helpful AI Study Assistant for students. Be encouraging, clear, and practical."

	creativePreamble = "You are completing a creative writing task for a student. " +
		"Return ONLY the finished piece requested by the assignment. " +
		"Do not include meta-commentary, explanations, or suggestions."
)

// assignmentKeywords mark a message as being about the assignment itself;
// context is only injected when one of them (or a title word) appears, so an
// unrelated question is not skewed by assignment details.
var assignmentKeywords = []string{
	"assignment", "requirement", "rubric", "marks", "deadline", "due", "submit",
	"task", "question", "help", "start", "begin", "explain",
}

// creativeKeywords flag assignments whose deliverable is a finished piece of
// writing rather than guidance about one
var creativeKeywords = []string{
	"poem", "essay", "story", "paragraph", "speech", "letter",
}

// buildPrompt assembles the generation prompt: preamble, optional assignment
// context, similar past exchanges, truncated history, then the message
func (g *Gateway) buildPrompt(ctx context.Context, req *Request) string {
	var b strings.Builder

	relevant := req.Assignment != nil && isAssignmentRelated(req.Message, req.Assignment)
	creative := relevant && isCreativeTask(req.Assignment)

	if creative {
		b.WriteString(creativePreamble)
	} else {
		b.WriteString(systemPreamble)
	}

	if relevant {
		b.WriteString("\n\nAssignment Context:")
		b.WriteString(fmt.Sprintf("\nTitle: %s", req.Assignment.Title))
		b.WriteString(fmt.Sprintf("\nDescription: %s", req.Assignment.Description))
		if req.Assignment.DueDate != "" {
			b.WriteString(fmt.Sprintf("\nDue Date: %s", req.Assignment.DueDate))
		}
		if req.Assignment.MaxMarks > 0 {
			b.WriteString(fmt.Sprintf("\nMax Marks: %d", req.Assignment.MaxMarks))
		}
	}

	if g.examples != nil && !creative {
		if examples, err := g.examples.Examples(ctx, req.Message); err == nil && len(examples) > 0 {
			if len(examples) > maxPromptExamples {
				examples = examples[:maxPromptExamples]
			}
			b.WriteString("\n\nSimilar past questions:")
			for _, ex := range examples {
				b.WriteString(fmt.Sprintf("\nQ: %s\nA: %s", ex.Question, ex.Answer))
			}
		}
	}

	if len(req.History) > 0 {
		history := req.History
		if len(history) > maxHistoryTurns {
			history = history[len(history)-maxHistoryTurns:]
		}
		b.WriteString("\n\nConversation:")
		for _, turn := range history {
			b.WriteString(fmt.Sprintf("\n%s: %s", turn.Sender, turn.Text))
		}
	}

	b.WriteString(fmt.Sprintf("\n\nStudent: %s\n\nAssistant:", req.Message))

	return b.String()
}

// isAssignmentRelated reports whether the message mentions the assignment by
// topic keyword or by a word of its title
func isAssignmentRelated(message string, actx *fallback.AssignmentContext) bool {
	lower := strings.ToLower(message)

	for _, kw := range assignmentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	for _, word := range strings.Fields(strings.ToLower(actx.Title)) {
		// Short title words ("a", "of") would match everything.
		if len(word) >= 4 && strings.Contains(lower, word) {
			return true
		}
	}

	return false
}

// isCreativeTask reports whether the assignment asks for a finished piece of
// creative writing
func isCreativeTask(actx *fallback.AssignmentContext) bool {
	haystack := strings.ToLower(actx.Title + " " + actx.Description)
	for _, kw := range creativeKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
