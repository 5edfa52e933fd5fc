package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/assignhub/assignment-ai/internal/fallback"
	"github.com/assignhub/assignment-ai/internal/llm"
)

// stubGenerator scripts the retry controller's outcome
type stubGenerator struct {
	result *llm.CallResult
	err    error
	calls  int
	prompt string
}

func (s *stubGenerator) CallWithRetry(ctx context.Context, prompt, primary, secondary string) (*llm.CallResult, error) {
	s.calls++
	s.prompt = prompt
	return s.result, s.err
}

func textResult(text string, attempts int) *llm.CallResult {
	return &llm.CallResult{
		Response: &llm.GenerateResponse{Text: text},
		Attempts: attempts,
	}
}

func newTestGateway(configured bool, gen Generator) *Gateway {
	return NewGateway(GatewayConfig{
		Configured:   configured,
		PrimaryModel: "primary-model",
	}, gen, llm.NewBreaker(llm.DefaultBreakerConfig), nil)
}

func TestChatEmptyMessage(t *testing.T) {
	gen := &stubGenerator{}
	g := newTestGateway(true, gen)

	resp := g.Chat(context.Background(), &Request{Message: "   "})
	if resp.Success {
		t.Error("empty message should yield Success=false")
	}
	if gen.calls != 0 {
		t.Errorf("upstream invoked %d times for empty message, expected 0", gen.calls)
	}
	if g.Breaker().Failures() != 0 {
		t.Error("empty message should not touch the breaker")
	}
}

// Scenario: no credential configured
func TestChatNoCredential(t *testing.T) {
	gen := &stubGenerator{}
	g := newTestGateway(false, gen)

	resp := g.Chat(context.Background(), &Request{Message: "hello"})
	if !resp.Success {
		t.Fatal("expected Success=true")
	}
	if resp.Mode != ModeFallbackNoKey {
		t.Errorf("Mode = %s, expected %s", resp.Mode, ModeFallbackNoKey)
	}
	if gen.calls != 0 {
		t.Errorf("upstream invoked %d times without a credential, expected 0", gen.calls)
	}
}

// Scenario: upstream persistently failing
func TestChatUpstreamFailure(t *testing.T) {
	gen := &stubGenerator{err: &llm.CallError{Attempts: 4, Err: &llm.APIError{StatusCode: 503}}}
	g := newTestGateway(true, gen)

	resp := g.Chat(context.Background(), &Request{Message: "help me"})
	if !resp.Success {
		t.Fatal("failure must degrade to a successful envelope")
	}
	if resp.Mode != ModeFallbackError {
		t.Errorf("Mode = %s, expected %s", resp.Mode, ModeFallbackError)
	}
	if resp.Attempts != 4 {
		t.Errorf("Attempts = %d, expected 4", resp.Attempts)
	}
	if resp.Error == "" {
		t.Error("envelope should embed the upstream error")
	}
	if g.Breaker().Failures() != 1 {
		t.Errorf("breaker failures = %d, expected 1", g.Breaker().Failures())
	}
	if resp.CircuitState == nil {
		t.Error("envelope should include circuit status")
	}
}

// Scenario: circuit already open blocks without touching the upstream
func TestChatCircuitOpen(t *testing.T) {
	gen := &stubGenerator{result: textResult("should not be used", 1)}
	g := newTestGateway(true, gen)

	for i := 0; i < 3; i++ {
		g.Breaker().RecordFailure()
	}

	resp := g.Chat(context.Background(), &Request{Message: "hi"})
	if resp.Mode != ModeFallbackCircuitOpen {
		t.Errorf("Mode = %s, expected %s", resp.Mode, ModeFallbackCircuitOpen)
	}
	if gen.calls != 0 {
		t.Errorf("upstream invoked %d times with open circuit, expected 0", gen.calls)
	}
	if resp.CircuitState == nil || resp.CircuitState.State != llm.StateOpen {
		t.Errorf("CircuitState = %+v, expected OPEN", resp.CircuitState)
	}
	if !strings.Contains(resp.Text, "temporarily unavailable") {
		t.Errorf("fallback text should disclose unavailability: %q", resp.Text)
	}
}

func TestChatGenerativeSuccess(t *testing.T) {
	gen := &stubGenerator{result: textResult("Here is your answer.", 2)}
	g := newTestGateway(true, gen)

	g.Breaker().RecordFailure()

	resp := g.Chat(context.Background(), &Request{Message: "explain recursion"})
	if resp.Mode != ModeGenerative {
		t.Errorf("Mode = %s, expected %s", resp.Mode, ModeGenerative)
	}
	if resp.Text != "Here is your answer." {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.Attempts != 2 {
		t.Errorf("Attempts = %d, expected 2", resp.Attempts)
	}
	if g.Breaker().Failures() != 0 {
		t.Error("success should fully reset the breaker")
	}
}

func TestChatNoUsableText(t *testing.T) {
	gen := &stubGenerator{result: &llm.CallResult{Response: &llm.GenerateResponse{}, Attempts: 1}}
	g := newTestGateway(true, gen)

	resp := g.Chat(context.Background(), &Request{Message: "hello"})
	if resp.Mode != ModeFallbackNoText {
		t.Errorf("Mode = %s, expected %s", resp.Mode, ModeFallbackNoText)
	}
	if !resp.Success {
		t.Error("no-text should still be a successful envelope")
	}
	// The call itself succeeded; the breaker must be reset, not tripped.
	if g.Breaker().Failures() != 0 {
		t.Errorf("breaker failures = %d, expected 0", g.Breaker().Failures())
	}
}

// Scenario: keyword fallback template verbatim when forced into fallback mode
func TestChatHowToStartTemplate(t *testing.T) {
	g := newTestGateway(false, &stubGenerator{})

	resp := g.Chat(context.Background(), &Request{Message: "Can you help me start?"})
	expected := fallback.NewResponder().Respond("Can you help me start?", nil, fallback.ReasonNone, nil)
	if resp.Text != expected {
		t.Errorf("fallback text mismatch:\ngot:  %q\nwant: %q", resp.Text, expected)
	}
	if !strings.Contains(resp.Text, "To start any assignment") {
		t.Errorf("unexpected template: %q", resp.Text)
	}
}

// Probe bookkeeping: a call while recovering consumes a half-open slot even
// though the circuit is closed.
func TestChatConsumesProbeWhileRecovering(t *testing.T) {
	gen := &stubGenerator{err: &llm.CallError{Attempts: 1, Err: &llm.APIError{StatusCode: 502}}}
	breaker := llm.NewBreaker(llm.BreakerConfig{Threshold: 3, Cooldown: time.Hour, MaxHalfOpenProbes: 1})
	g := NewGateway(GatewayConfig{Configured: true, PrimaryModel: "m"}, gen, breaker, nil)

	// First call: failures == 0, no probe consumed, failure recorded.
	g.Chat(context.Background(), &Request{Message: "q1"})
	// Second call: failures > 0 triggers AttemptHalfOpen before the request.
	g.Chat(context.Background(), &Request{Message: "q2"})

	if breaker.Failures() != 2 {
		t.Errorf("breaker failures = %d, expected 2", breaker.Failures())
	}
	if gen.calls != 2 {
		t.Errorf("upstream invoked %d times, expected 2", gen.calls)
	}
}

// recordingExamples captures exchanges passed to Record
type recordingExamples struct {
	recorded [][2]string
	examples []Example
}

func (r *recordingExamples) Examples(ctx context.Context, message string) ([]Example, error) {
	return r.examples, nil
}

func (r *recordingExamples) Record(ctx context.Context, question, answer string) error {
	r.recorded = append(r.recorded, [2]string{question, answer})
	return nil
}

func TestChatRecordsGenerativeExchanges(t *testing.T) {
	gen := &stubGenerator{result: textResult("an answer", 1)}
	examples := &recordingExamples{}
	g := NewGateway(GatewayConfig{Configured: true, PrimaryModel: "m"}, gen, llm.NewBreaker(llm.DefaultBreakerConfig), examples)

	g.Chat(context.Background(), &Request{Message: "a question"})

	if len(examples.recorded) != 1 {
		t.Fatalf("recorded %d exchanges, expected 1", len(examples.recorded))
	}
	if examples.recorded[0][0] != "a question" || examples.recorded[0][1] != "an answer" {
		t.Errorf("recorded = %v", examples.recorded[0])
	}
}

func TestChatDoesNotRecordFallbackAnswers(t *testing.T) {
	examples := &recordingExamples{}
	g := NewGateway(GatewayConfig{Configured: false}, &stubGenerator{}, llm.NewBreaker(llm.DefaultBreakerConfig), examples)

	g.Chat(context.Background(), &Request{Message: "hello"})

	if len(examples.recorded) != 0 {
		t.Errorf("recorded %d exchanges for fallback answer, expected 0", len(examples.recorded))
	}
}
