// Package store provides PostgreSQL persistence for assignments.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/assignhub/assignment-ai/internal/fallback"
	"github.com/assignhub/assignment-ai/internal/observability"
)

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

// Assignment is a stored assignment record
type Assignment struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	MaxMarks    int        `json:"max_marks"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Store implements assignment persistence on PostgreSQL
type Store struct {
	db *sql.DB
}

// NewStore opens a PostgreSQL-backed assignment store
func NewStore(config PostgresConfig) (*Store, error) {
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing database handle, used by tests
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Ping tests the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DB exposes the underlying handle so other components can share the pool
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateAssignment inserts a new assignment
func (s *Store) CreateAssignment(ctx context.Context, a *Assignment) (*Assignment, error) {
	start := time.Now()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO assignments (id, title, description, due_date, max_marks, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.Title, a.Description, a.DueDate, a.MaxMarks, a.CreatedBy, a.CreatedAt, a.UpdatedAt)
	observability.RecordDBMetrics("create_assignment", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to insert assignment: %w", err)
	}

	return a, nil
}

// GetAssignment retrieves an assignment by ID
func (s *Store) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	start := time.Now()

	query := `
		SELECT id, title, description, due_date, max_marks, created_by, created_at, updated_at
		FROM assignments
		WHERE id = $1
	`

	var a Assignment
	var dueDate sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Title, &a.Description, &dueDate, &a.MaxMarks, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	observability.RecordDBMetrics("get_assignment", time.Since(start), err)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assignment not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query assignment: %w", err)
	}

	if dueDate.Valid {
		a.DueDate = &dueDate.Time
	}
	return &a, nil
}

// ListAssignments retrieves all assignments, newest first
func (s *Store) ListAssignments(ctx context.Context) ([]Assignment, error) {
	start := time.Now()

	query := `
		SELECT id, title, description, due_date, max_marks, created_by, created_at, updated_at
		FROM assignments
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	observability.RecordDBMetrics("list_assignments", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		var dueDate sql.NullTime
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &dueDate, &a.MaxMarks, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assignment row: %w", err)
		}
		if dueDate.Valid {
			a.DueDate = &dueDate.Time
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// AssignmentContext returns the chat context for an assignment
func (s *Store) AssignmentContext(ctx context.Context, id string) (*fallback.AssignmentContext, error) {
	a, err := s.GetAssignment(ctx, id)
	if err != nil {
		return nil, err
	}

	actx := &fallback.AssignmentContext{
		Title:       a.Title,
		Description: a.Description,
		MaxMarks:    a.MaxMarks,
	}
	if a.DueDate != nil {
		actx.DueDate = a.DueDate.Format("2006-01-02")
	}
	return actx, nil
}
