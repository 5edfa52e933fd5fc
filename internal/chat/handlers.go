package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/assignhub/assignment-ai/internal/errors"
	"github.com/assignhub/assignment-ai/internal/fallback"
	"github.com/assignhub/assignment-ai/internal/observability"
	"github.com/assignhub/assignment-ai/internal/ratelimit"
)

// AssignmentSource looks up assignment context for a chat message
type AssignmentSource interface {
	AssignmentContext(ctx context.Context, id string) (*fallback.AssignmentContext, error)
}

// HistoryStore persists per-user conversation history
type HistoryStore interface {
	Recent(ctx context.Context, userID string, n int) ([]Turn, error)
	Append(ctx context.Context, userID string, turns ...Turn) error
}

// Handlers exposes the chat gateway over HTTP
type Handlers struct {
	gateway     *Gateway
	limiter     *ratelimit.Limiter
	assignments AssignmentSource
	history     HistoryStore
	logger      *observability.Logger
}

// NewHandlers creates the HTTP handlers. assignments and history may be nil;
// chat then runs without assignment context or stored history.
func NewHandlers(gateway *Gateway, limiter *ratelimit.Limiter, assignments AssignmentSource, history HistoryStore) *Handlers {
	return &Handlers{
		gateway:     gateway,
		limiter:     limiter,
		assignments: assignments,
		history:     history,
		logger:      observability.NewLogger("chat-handlers"),
	}
}

// SetupRoutes registers the chat endpoints. requireAdmin guards the breaker
// reset endpoint.
func (h *Handlers) SetupRoutes(rg *gin.RouterGroup, requireAdmin gin.HandlerFunc) {
	chat := rg.Group("/chat")
	{
		chat.POST("/message", h.handleMessage)
		chat.GET("/status", h.handleStatus)
		chat.POST("/test", h.handleTest)
		chat.POST("/resources", h.handleResources)
		if requireAdmin != nil {
			chat.POST("/reset", requireAdmin, h.handleReset)
		} else {
			chat.POST("/reset", h.handleReset)
		}
	}
}

// chatRequest is the inbound message payload
type chatRequest struct {
	Message             string `json:"message"`
	AssignmentID        string `json:"assignmentId,omitempty"`
	ConversationHistory []Turn `json:"conversationHistory,omitempty"`
}

// handleMessage is the main chat endpoint. Order matters: the rate limiter
// runs before anything touches the gateway, breaker, or upstream.
func (h *Handlers) handleMessage(c *gin.Context) {
	identity := callerIdentity(c)

	limit := h.limiter.Check(identity)
	if !limit.Allowed {
		observability.RecordRateLimitRejection()
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success":    false,
			"message":    fmt.Sprintf("Too many requests. Please wait %d seconds.", limit.RetryAfter),
			"retryAfter": limit.RetryAfter,
		})
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		enhancedErr := errors.NewInvalidInputError("request body", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": enhancedErr.Message, "error": enhancedErr.Code})
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Message is required"})
		return
	}

	ctx := c.Request.Context()

	// Assignment context is best-effort; a failing store degrades to
	// context-free chat.
	var actx *fallback.AssignmentContext
	if req.AssignmentID != "" && h.assignments != nil {
		var err error
		actx, err = h.assignments.AssignmentContext(ctx, req.AssignmentID)
		if err != nil {
			h.logger.Warn(ctx, "Failed to fetch assignment context", map[string]interface{}{
				"assignment_id": req.AssignmentID,
				"error":         err.Error(),
			})
			actx = nil
		}
	}

	history := req.ConversationHistory
	if len(history) == 0 && h.history != nil {
		if stored, err := h.history.Recent(ctx, identity, maxHistoryTurns); err == nil {
			history = stored
		}
	}

	result := h.gateway.Chat(ctx, &Request{
		Message:    req.Message,
		Assignment: actx,
		History:    history,
	})

	if !result.Success {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": result.Error,
		})
		return
	}

	if h.history != nil {
		if err := h.history.Append(ctx, identity,
			Turn{Sender: "student", Text: req.Message},
			Turn{Sender: "assistant", Text: result.Text},
		); err != nil {
			h.logger.Warn(ctx, "Failed to append chat history", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"response":  result.Text,
		"mode":      result.Mode,
		"timestamp": result.Timestamp,
		"metadata": gin.H{
			"attempts":     result.Attempts,
			"usedFallback": result.UsedSecondary,
			"circuitState": result.CircuitState,
			"rateLimit": gin.H{
				"remaining": limit.Remaining,
				"limit":     h.limiter.Limit(),
			},
		},
	})
}

// handleStatus reports breaker state and whether the upstream is configured
func (h *Handlers) handleStatus(c *gin.Context) {
	status := h.gateway.Breaker().Status()
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"circuit":       status,
		"apiConfigured": h.gateway.Configured(),
		"rateLimit":     h.limiter.Stats(),
	})
}

// handleReset manually closes the circuit breaker. Idempotent.
func (h *Handlers) handleReset(c *gin.Context) {
	h.gateway.Breaker().Reset()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Circuit breaker reset",
	})
}

// handleTest sends a canned probe through the full gateway path
func (h *Handlers) handleTest(c *gin.Context) {
	result := h.gateway.Chat(c.Request.Context(), &Request{
		Message: `Say "Hello! API key is working."`,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":      result.Success,
		"response":     result.Text,
		"mode":         result.Mode,
		"attempts":     result.Attempts,
		"usedFallback": result.UsedSecondary,
		"circuitState": result.CircuitState,
	})
}

// resourcesRequest asks for learning material on a topic
type resourcesRequest struct {
	Topic string `json:"topic"`
}

// handleResources turns a topic into a resource-suggestion chat
func (h *Handlers) handleResources(c *gin.Context) {
	var req resourcesRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Topic is required"})
		return
	}

	result := h.gateway.Chat(c.Request.Context(), &Request{
		Message: "Suggest learning resources for: " + req.Topic,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"response": result.Text,
		"mode":     result.Mode,
	})
}

// callerIdentity resolves the rate-limit key: authenticated user ID when
// present, client address otherwise
func callerIdentity(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if id, ok := userID.(string); ok && id != "" {
			return id
		}
	}
	return "anon:" + c.ClientIP()
}
