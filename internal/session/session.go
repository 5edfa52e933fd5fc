// Package session stores logged-in user sessions in Redis. A session carries
// the user's identity and roles so the auth middleware can resolve a cookie
// without re-verifying the JWT on every request.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	keyPrefix = "assignhub:session:"
	idBytes   = 32
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Session is the stored login state for one user
type Session struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Manager reads and writes sessions against Redis with a sliding expiry
type Manager struct {
	redis  *redis.Client
	expiry time.Duration
}

// NewManager creates a session manager. expiry bounds both the Redis TTL and
// the embedded ExpiresAt check.
func NewManager(redisClient *redis.Client, expiry time.Duration) *Manager {
	return &Manager{
		redis:  redisClient,
		expiry: expiry,
	}
}

// Create stores a new session and returns its opaque ID
func (m *Manager) Create(ctx context.Context, userID, username, token string, roles []string) (string, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return "", fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	data, err := json.Marshal(Session{
		UserID:    userID,
		Username:  username,
		Roles:     roles,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(m.expiry),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := m.redis.Set(ctx, keyPrefix+sessionID, data, m.expiry).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return sessionID, nil
}

// Get loads a session. An expired record is deleted on read and reported as
// ErrExpired even when the Redis TTL has not fired yet.
func (m *Manager) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := m.redis.Get(ctx, keyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if time.Now().After(sess.ExpiresAt) {
		m.Delete(ctx, sessionID)
		return nil, ErrExpired
	}
	return &sess, nil
}

// Delete removes a session. Missing sessions are not an error.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.redis.Del(ctx, keyPrefix+sessionID).Err()
}

// Refresh pushes the Redis TTL out by the full expiry window
func (m *Manager) Refresh(ctx context.Context, sessionID string) error {
	return m.redis.Expire(ctx, keyPrefix+sessionID, m.expiry).Err()
}

func newSessionID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
