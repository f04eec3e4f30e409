package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"welfareBot/domain"

	"github.com/redis/go-redis/v9"
)

const (
	fieldIssued   = "issued"
	fieldIssuedAt = "issued_at"
)

// SessionRepository keeps the per browser session "recommendation issued"
// flag. Writes are last-write-wins.
type SessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionRepository(client *redis.Client, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionRepository{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(sessionID string) string {
	// key format: "session:{session_id}:recommendation"
	return fmt.Sprintf("session:%s:recommendation", sessionID)
}

// Read returns the zero state for an unknown or expired session.
func (r *SessionRepository) Read(ctx context.Context, sessionID string) (domain.SessionState, error) {
	if err := ctx.Err(); err != nil {
		return domain.SessionState{}, fmt.Errorf("context error: %w", err)
	}
	if sessionID == "" {
		return domain.SessionState{}, errors.New("session id is required")
	}

	vals, err := r.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return domain.SessionState{}, nil
		}
		return domain.SessionState{}, fmt.Errorf("failed to read session from Redis: %w", err)
	}

	return parseSessionState(vals), nil
}

func (r *SessionRepository) MarkIssued(ctx context.Context, sessionID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if sessionID == "" {
		return errors.New("session id is required")
	}

	key := sessionKey(sessionID)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			fieldIssued, "1",
			fieldIssuedAt, strconv.FormatInt(at.UnixMilli(), 10),
		)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session in Redis: %w", err)
	}

	return nil
}

// Reset clears the issued flag of a session.
func (r *SessionRepository) Reset(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}

	return nil
}

func parseSessionState(vals map[string]string) domain.SessionState {
	state := domain.SessionState{}
	if vals[fieldIssued] != "1" {
		return state
	}
	state.Issued = true

	if ms, err := strconv.ParseInt(vals[fieldIssuedAt], 10, 64); err == nil {
		at := time.UnixMilli(ms).UTC()
		state.IssuedAt = &at
	}
	return state
}
