// Package fallback provides the deterministic rule-based responder used when
// the generative upstream is unavailable, unconfigured, or returned nothing
// usable. It performs no I/O; identical inputs always yield identical output.
package fallback

import (
	"fmt"
	"strings"

	"github.com/assignhub/assignment-ai/internal/llm"
)

// Reason describes why the fallback path was taken
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonCircuitOpen Reason = "circuit_open"
)

// AssignmentContext carries the assignment fields the templates interpolate
type AssignmentContext struct {
	Title       string
	Description string
	DueDate     string
	MaxMarks    int
}

// rule pairs a keyword predicate with a template. Rules are evaluated
// top-to-bottom; the first match wins.
type rule struct {
	match  func(lower string) bool
	render func(lower string, actx *AssignmentContext) string
}

// Responder produces canned answers keyed on message topics
type Responder struct {
	rules []rule
}

// NewResponder creates the responder with its fixed rule table
func NewResponder() *Responder {
	return &Responder{
		rules: []rule{
			{match: containsAny("hi", "hello", "hey"), render: renderGreeting},
			{match: containsAny("start", "begin", "how do i"), render: renderHowToStart},
			{match: containsAny("requirement", "explain", "what is"), render: renderRequirements},
			{match: containsAny("key point", "important", "focus"), render: renderKeyPoints},
			{match: containsAny("resource", "learn", "study"), render: renderResources},
			{match: containsAny("code", "python", "javascript", "program"), render: renderCodingTips},
		},
	}
}

// Respond returns a canned answer for the message. When reason is
// ReasonCircuitOpen the answer discloses the approximate cooldown from the
// supplied breaker status.
func (r *Responder) Respond(message string, actx *AssignmentContext, reason Reason, status *llm.BreakerStatus) string {
	lower := strings.ToLower(message)

	if reason == ReasonCircuitOpen {
		cooldown := 0
		if status != nil {
			cooldown = status.CooldownRemaining
		}
		return fmt.Sprintf("⚠️ AI service is temporarily unavailable (cooling down for ~%ds). Here's what I can help with:\n\n%s",
			cooldown, contextualHelp(actx))
	}

	for _, rule := range r.rules {
		if rule.match(lower) {
			return rule.render(lower, actx)
		}
	}
	return contextualHelp(actx)
}

// containsAny builds a predicate matching any of the given keywords
func containsAny(keywords ...string) func(string) bool {
	return func(lower string) bool {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	}
}

func renderGreeting(lower string, actx *AssignmentContext) string {
	return "👋 Hello! I'm your AI Study Assistant. I can help you with assignments, code, or concepts. What are you working on today?"
}

func renderHowToStart(lower string, actx *AssignmentContext) string {
	if actx != nil {
		description := actx.Description
		if description == "" {
			description = "Review the assignment description carefully"
		}
		return fmt.Sprintf("To start **\"%s\"**:\n\n"+
			"1. **Understand the requirements**: %s\n"+
			"2. **Plan your approach**: Break down the task into smaller steps\n"+
			"3. **Start with basics**: Build incrementally and test as you go\n"+
			"4. **Ask specific questions**: I'm here if you get stuck!\n\n"+
			"💡 Tip: Focus on one section at a time.", actx.Title, description)
	}
	return "To start any assignment:\n" +
		"1. Read requirements carefully\n" +
		"2. Break it into smaller tasks\n" +
		"3. Plan before coding/writing\n" +
		"4. Test frequently\n\n" +
		"What specific assignment are you working on?"
}

func renderRequirements(lower string, actx *AssignmentContext) string {
	if actx != nil {
		description := actx.Description
		if description == "" {
			description = "Check your assignment details for specific requirements."
		}
		dueDate := actx.DueDate
		if dueDate == "" {
			dueDate = "Check your dashboard"
		}
		maxMarks := "N/A"
		if actx.MaxMarks > 0 {
			maxMarks = fmt.Sprintf("%d", actx.MaxMarks)
		}
		return fmt.Sprintf("📋 **%s** Requirements:\n\n%s\n\n"+
			"**Due Date**: %s\n**Max Marks**: %s\n\n"+
			"Need help with a specific part?", actx.Title, description, dueDate, maxMarks)
	}
	return "I can explain assignment requirements! Please select an assignment or ask a specific question."
}

func renderKeyPoints(lower string, actx *AssignmentContext) string {
	return "🎯 Key Points for Success:\n\n" +
		"✅ Understand requirements fully\n" +
		"✅ Follow instructions precisely\n" +
		"✅ Test your work thoroughly\n" +
		"✅ Submit before deadline\n" +
		"✅ Ask questions when stuck\n\n" +
		"What specific area do you need help with?"
}

func renderResources(lower string, actx *AssignmentContext) string {
	return "📚 Learning Resources:\n\n" +
		"• **Documentation**: Official docs for your tech stack\n" +
		"• **Practice**: Coding platforms (LeetCode, HackerRank)\n" +
		"• **Videos**: YouTube tutorials\n" +
		"• **Communities**: Stack Overflow, Reddit\n\n" +
		"What topic do you want to learn more about?"
}

func renderCodingTips(lower string, actx *AssignmentContext) string {
	return "💻 Coding Tips:\n\n" +
		"1. **Start simple**: Write pseudocode first\n" +
		"2. **Test frequently**: Run your code often\n" +
		"3. **Debug systematically**: Use print statements\n" +
		"4. **Read errors carefully**: They tell you what's wrong\n" +
		"5. **Search wisely**: Google error messages\n\n" +
		"What specific coding issue are you facing?"
}

// contextualHelp is the catch-all answer when no keyword rule matched
func contextualHelp(actx *AssignmentContext) string {
	if actx != nil {
		return fmt.Sprintf("I'm here to help with **\"%s\"**!\n\n"+
			"I can assist with:\n"+
			"• Understanding requirements\n"+
			"• Breaking down tasks\n"+
			"• Coding help\n"+
			"• Study strategies\n"+
			"• Finding resources\n\n"+
			"What specific part are you working on?", actx.Title)
	}
	return "I'm your AI Study Assistant! 🎓\n\n" +
		"I can help you with:\n" +
		"• Assignment guidance\n" +
		"• Coding problems\n" +
		"• Concept explanations\n" +
		"• Study tips\n" +
		"• Resource suggestions\n\n" +
		"What would you like help with?"
}
