package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/redis/go-redis/v9"
)

// DefaultStream is the stream audit events are appended to
const DefaultStream = "settlement:audit"

// RedisStreamSink appends audit events to a Redis stream with XADD.
// The stream is trimmed approximately to MaxLen entries.
type RedisStreamSink struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisStreamSink creates a stream sink. maxLen <= 0 disables trimming.
func NewRedisStreamSink(client redis.Cmdable, stream string, maxLen int64) *RedisStreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStreamSink{client: client, stream: stream, maxLen: maxLen}
}

// Emit appends the batch in one pipeline
func (s *RedisStreamSink) Emit(ctx context.Context, events []appsettlement.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for i := range events {
		values, err := streamValues(&events[i])
		if err != nil {
			return err
		}
		args := &redis.XAddArgs{Stream: s.stream, Values: values}
		if s.maxLen > 0 {
			args.MaxLen = s.maxLen
			args.Approx = true
		}
		pipe.XAdd(ctx, args)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append %d audit events to %s: %w", len(events), s.stream, err)
	}
	return nil
}

// streamValues flattens an event into stream fields; snapshots travel as JSON
func streamValues(e *appsettlement.AuditEvent) (map[string]any, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit event %s: %w", e.ID, err)
	}
	values := map[string]any{
		"id":          e.ID.String(),
		"company_id":  e.CompanyID.String(),
		"entity_type": string(e.EntityType),
		"entity_id":   e.EntityID.String(),
		"action":      string(e.Action),
		"occurred_at": e.OccurredAt.UTC().Format(time.RFC3339Nano),
		"payload":     string(payload),
	}
	if e.ActorID != nil {
		values["actor_id"] = e.ActorID.String()
	}
	return values, nil
}

var _ appsettlement.AuditSink = (*RedisStreamSink)(nil)
