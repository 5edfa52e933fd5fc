package store

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/assignhub/assignment-ai/internal/auth"
	"github.com/assignhub/assignment-ai/internal/errors"
)

// Handlers exposes assignment CRUD over HTTP
type Handlers struct {
	store *CircuitBreakerStore
}

// NewHandlers creates assignment handlers
func NewHandlers(store *CircuitBreakerStore) *Handlers {
	return &Handlers{store: store}
}

// SetupRoutes registers the assignment endpoints. Creation is restricted to
// teachers and admins.
func (h *Handlers) SetupRoutes(rg *gin.RouterGroup, requireTeacher gin.HandlerFunc) {
	assignments := rg.Group("/assignments")
	{
		assignments.GET("", h.handleList)
		assignments.GET("/:id", h.handleGet)
		assignments.POST("", requireTeacher, h.handleCreate)
	}
}

func (h *Handlers) handleList(c *gin.Context) {
	assignments, err := h.store.ListAssignments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": errors.NewDatabaseQueryError(err, "list_assignments").Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "assignments": assignments})
}

func (h *Handlers) handleGet(c *gin.Context) {
	id := c.Param("id")

	assignment, err := h.store.GetAssignment(c.Request.Context(), id)
	if err != nil {
		enhancedErr := errors.NewAssignmentNotFoundError(id)
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": enhancedErr.Code, "message": enhancedErr.Message})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "assignment": assignment})
}

// createAssignmentRequest is the inbound assignment payload
type createAssignmentRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate"` // RFC 3339 or YYYY-MM-DD
	MaxMarks    int    `json:"maxMarks"`
}

func (h *Handlers) handleCreate(c *gin.Context) {
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		enhancedErr := errors.NewInvalidInputError("request body", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": enhancedErr.Code, "message": enhancedErr.Message})
		return
	}

	assignment := &Assignment{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		MaxMarks:    req.MaxMarks,
	}

	if req.DueDate != "" {
		due, err := parseDueDate(req.DueDate)
		if err != nil {
			enhancedErr := errors.NewInvalidInputError("dueDate", "expected RFC 3339 timestamp or YYYY-MM-DD")
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": enhancedErr.Code, "message": enhancedErr.Message})
			return
		}
		assignment.DueDate = &due
	}

	if userID, ok := auth.GetCurrentUserID(c); ok {
		assignment.CreatedBy = userID
	}

	created, err := h.store.CreateAssignment(c.Request.Context(), assignment)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": errors.NewDatabaseQueryError(err, "create_assignment").Message})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "assignment": created})
}

func parseDueDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
