// Package semantic stores past chat exchanges with vector embeddings so
// similar questions can be recalled as prompt examples.
package semantic

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/assignhub/assignment-ai/internal/chat"
	"github.com/assignhub/assignment-ai/internal/observability"
)

const (
	// similarityThreshold filters out weak matches
	similarityThreshold = 0.8

	// maxExamples bounds how many exchanges one lookup returns
	maxExamples = 5
)

// ExchangeStore persists question/answer exchanges in PostgreSQL with a
// pgvector embedding column. It implements the chat gateway's example source.
type ExchangeStore struct {
	db *sql.DB
}

// NewExchangeStore wraps an existing database handle
func NewExchangeStore(db *sql.DB) *ExchangeStore {
	return &ExchangeStore{db: db}
}

// Examples finds past exchanges whose question is similar to the message,
// best match first
func (es *ExchangeStore) Examples(ctx context.Context, message string) ([]chat.Example, error) {
	start := time.Now()
	vector := pgvector.NewVector(Embed(message))

	query := `
		SELECT question, answer,
		       1 - (embedding <=> $1) as similarity
		FROM chat_exchanges
		WHERE 1 - (embedding <=> $1) > $2
		ORDER BY similarity DESC
		LIMIT $3
	`

	rows, err := es.db.QueryContext(ctx, query, vector, similarityThreshold, maxExamples)
	observability.RecordDBMetrics("find_similar_exchanges", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar exchanges: %w", err)
	}
	defer rows.Close()

	var examples []chat.Example
	for rows.Next() {
		var ex chat.Example
		var similarity float64
		if err := rows.Scan(&ex.Question, &ex.Answer, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan exchange row: %w", err)
		}
		examples = append(examples, ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exchange rows: %w", err)
	}

	return examples, nil
}

// Record stores a successful exchange for future recall. Repeated questions
// overwrite the stored answer.
func (es *ExchangeStore) Record(ctx context.Context, question, answer string) error {
	start := time.Now()
	vector := pgvector.NewVector(Embed(question))

	query := `
		INSERT INTO chat_exchanges (id, question, answer, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (question) DO UPDATE SET
			answer = $3,
			embedding = $4,
			updated_at = $5
	`

	id := uuid.New().String()
	now := time.Now()

	_, err := es.db.ExecContext(ctx, query, id, question, answer, vector, now)
	observability.RecordDBMetrics("store_exchange", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to store exchange: %w", err)
	}

	return nil
}
