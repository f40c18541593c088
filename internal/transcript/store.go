// Package transcript persists chat-session transcripts in redis for the life
// of a session plus a short retention window.
package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	keyPrefix  = "chat_transcript:"
	defaultTTL = 24 * time.Hour
)

// Message is one transcript entry. Insertion order is display order.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"` // "member" or "agent"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is a redis-backed transcript store.
type Store struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
	ttl         time.Duration
}

// NewStore creates a transcript store. A nil redis client yields a nil store,
// which is safe to use and drops transcripts.
func NewStore(redisClient *redis.Client, maxMessages int64) *Store {
	if redisClient == nil {
		return nil
	}
	if maxMessages <= 0 {
		maxMessages = 250
	}
	return &Store{
		redis:       redisClient,
		tracer:      otel.Tracer("memberchat.internal.transcript"),
		maxMessages: maxMessages,
		ttl:         defaultTTL,
	}
}

func transcriptKey(sessionID string) string {
	return keyPrefix + sessionID
}

// Append adds one message to a session transcript, trimming to the retention
// cap and refreshing the TTL.
func (s *Store) Append(ctx context.Context, sessionID string, msg Message) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionID == "" {
		return errors.New("transcript: sessionID required")
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("transcript: marshal message: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "transcript.append")
	defer span.End()

	key := transcriptKey(sessionID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	pipe.LTrim(ctx, key, -s.maxMessages, -1)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("transcript: append message: %w", err)
	}
	return nil
}

// List returns up to limit messages in insertion order. A non-positive limit
// returns the full retained transcript.
func (s *Store) List(ctx context.Context, sessionID string, limit int64) ([]Message, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionID == "" {
		return nil, errors.New("transcript: sessionID required")
	}

	ctx, span := s.tracer.Start(ctx, "transcript.list")
	defer span.End()

	stop := int64(-1)
	if limit > 0 {
		stop = limit - 1
	}
	raw, err := s.redis.LRange(ctx, transcriptKey(sessionID), 0, stop).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("transcript: list messages: %w", err)
	}

	messages := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Clear removes a session transcript. Used when a session is destroyed.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if s == nil || s.redis == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.redis.Del(ctx, transcriptKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("transcript: clear transcript: %w", err)
	}
	return nil
}
