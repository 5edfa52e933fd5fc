package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/assignhub/assignment-ai/internal/fallback"
	"github.com/assignhub/assignment-ai/internal/llm"
	"github.com/assignhub/assignment-ai/internal/observability"
)

// Mode identifies which path produced the response text
type Mode string

const (
	ModeGenerative          Mode = "generative"
	ModeFallbackNoKey       Mode = "fallback_no_key"
	ModeFallbackCircuitOpen Mode = "fallback_circuit_open"
	ModeFallbackNoText      Mode = "fallback_no_text"
	ModeFallbackError       Mode = "fallback_error"
)

// Turn is one prior exchange in the conversation
type Turn struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Request is a single chat invocation
type Request struct {
	Message    string
	Assignment *fallback.AssignmentContext
	History    []Turn
}

// Response is the uniform envelope every chat call produces. Upstream
// failures never surface as errors; they degrade to a fallback mode.
type Response struct {
	Success       bool
	Text          string
	Mode          Mode
	Timestamp     time.Time
	Attempts      int
	UsedSecondary bool
	Error         string
	CircuitState  *llm.BreakerStatus
}

// Generator abstracts the retry controller for testing
type Generator interface {
	CallWithRetry(ctx context.Context, prompt, primary, secondary string) (*llm.CallResult, error)
}

// Example is a prior question/answer pair fed into the prompt
type Example struct {
	Question string
	Answer   string
}

// ExampleSource supplies similar past exchanges and records new ones.
// Implementations must tolerate being skipped; the gateway treats every
// failure here as non-fatal.
type ExampleSource interface {
	Examples(ctx context.Context, message string) ([]Example, error)
	Record(ctx context.Context, question, answer string) error
}

// GatewayConfig holds the gateway's model selection
type GatewayConfig struct {
	Configured     bool // Whether an upstream credential is present
	PrimaryModel   string
	SecondaryModel string
}

// Gateway orchestrates a chat call: validation, circuit breaker, retry
// controller, fallback responder, envelope assembly.
type Gateway struct {
	config    GatewayConfig
	generator Generator
	breaker   *llm.Breaker
	responder *fallback.Responder
	examples  ExampleSource
	logger    *observability.Logger
}

// NewGateway creates a chat gateway. examples may be nil.
func NewGateway(config GatewayConfig, generator Generator, breaker *llm.Breaker, examples ExampleSource) *Gateway {
	if config.PrimaryModel == "" {
		config.PrimaryModel = llm.DefaultModel
	}

	return &Gateway{
		config:    config,
		generator: generator,
		breaker:   breaker,
		responder: fallback.NewResponder(),
		examples:  examples,
		logger:    observability.NewLogger("chat-gateway"),
	}
}

// Breaker exposes the circuit breaker for status and admin reset
func (g *Gateway) Breaker() *llm.Breaker {
	return g.breaker
}

// Configured reports whether the upstream credential is present
func (g *Gateway) Configured() bool {
	return g.config.Configured
}

// Chat processes one message. The returned envelope is always usable; only
// an empty message yields Success=false.
func (g *Gateway) Chat(ctx context.Context, req *Request) *Response {
	start := time.Now()

	if strings.TrimSpace(req.Message) == "" {
		return &Response{Success: false, Error: "empty message", Timestamp: time.Now()}
	}

	// Breaker check comes before anything touches the network.
	if g.breaker.IsOpen() {
		status := g.breaker.Status()
		g.logger.Warn(ctx, "Circuit breaker open, serving fallback", map[string]interface{}{
			"cooldown_remaining": status.CooldownRemaining,
			"failures":           status.Failures,
		})
		text := g.responder.Respond(req.Message, req.Assignment, fallback.ReasonCircuitOpen, &status)
		return g.finish(ctx, start, &Response{
			Success:      true,
			Text:         text,
			Mode:         ModeFallbackCircuitOpen,
			Timestamp:    time.Now(),
			CircuitState: &status,
		})
	}

	// No credential: skip the network and breaker entirely.
	if !g.config.Configured {
		text := g.responder.Respond(req.Message, req.Assignment, fallback.ReasonNone, nil)
		return g.finish(ctx, start, &Response{
			Success:   true,
			Text:      text,
			Mode:      ModeFallbackNoKey,
			Timestamp: time.Now(),
		})
	}

	prompt := g.buildPrompt(ctx, req)

	// Consume a probe slot whenever the breaker is recovering from past
	// failures, even if it is not currently blocking.
	if g.breaker.Failures() > 0 {
		g.breaker.AttemptHalfOpen()
	}

	result, err := g.generator.CallWithRetry(ctx, prompt, g.config.PrimaryModel, g.config.SecondaryModel)
	if err != nil {
		g.breaker.RecordFailure()
		status := g.breaker.Status()
		observability.RecordBreakerState(status.Failures, status.State == llm.StateOpen)
		g.logger.Error(ctx, "Generate call failed", err, map[string]interface{}{
			"failures": status.Failures,
		})

		resp := &Response{
			Success:      true,
			Text:         g.responder.Respond(req.Message, req.Assignment, fallback.ReasonNone, nil),
			Mode:         ModeFallbackError,
			Timestamp:    time.Now(),
			Error:        err.Error(),
			CircuitState: &status,
		}
		var callErr *llm.CallError
		if errors.As(err, &callErr) {
			resp.Attempts = callErr.Attempts
			resp.UsedSecondary = callErr.UsedSecondary
		}
		return g.finish(ctx, start, resp)
	}

	g.breaker.RecordSuccess()
	observability.RecordBreakerState(0, false)

	text, ok := llm.ExtractText(result.Response)
	if !ok {
		// The upstream answered but produced nothing usable.
		return g.finish(ctx, start, &Response{
			Success:       true,
			Text:          g.responder.Respond(req.Message, req.Assignment, fallback.ReasonNone, nil),
			Mode:          ModeFallbackNoText,
			Timestamp:     time.Now(),
			Attempts:      result.Attempts,
			UsedSecondary: result.UsedSecondary,
			Error:         "no usable text in upstream response",
		})
	}

	g.recordExchange(ctx, req.Message, text)

	return g.finish(ctx, start, &Response{
		Success:       true,
		Text:          text,
		Mode:          ModeGenerative,
		Timestamp:     time.Now(),
		Attempts:      result.Attempts,
		UsedSecondary: result.UsedSecondary,
	})
}

// finish records metrics and logs the outcome
func (g *Gateway) finish(ctx context.Context, start time.Time, resp *Response) *Response {
	duration := time.Since(start)
	observability.RecordChatMetrics(duration, string(resp.Mode), resp.Attempts)

	g.logger.Info(ctx, "Chat processed", map[string]interface{}{
		"mode":        string(resp.Mode),
		"attempts":    resp.Attempts,
		"duration_ms": duration.Milliseconds(),
	})
	return resp
}

// recordExchange saves a successful generative exchange for future
// similar-question examples; failures are logged and dropped
func (g *Gateway) recordExchange(ctx context.Context, question, answer string) {
	if g.examples == nil {
		return
	}
	if err := g.examples.Record(ctx, question, answer); err != nil {
		g.logger.Warn(ctx, "Failed to record chat exchange", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
