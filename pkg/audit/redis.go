package audit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultStream is the Redis stream audit events are appended to.
const DefaultStream = "vaultflow:audit"

// streamMaxLen caps the stream; XADD trims approximately.
const streamMaxLen = 100_000

type redisRecorder struct {
	cli    *redis.Client
	stream string
}

// NewRedisRecorder appends events to a Redis stream.
func NewRedisRecorder(cli *redis.Client, stream string) Recorder {
	if stream == "" {
		stream = DefaultStream
	}
	return &redisRecorder{cli: cli, stream: stream}
}

func (r *redisRecorder) Record(ctx context.Context, ev Event) error {
	return r.cli.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"id":         ev.ID,
			"operation":  ev.Operation,
			"role":       ev.Role,
			"outcome":    ev.Outcome,
			"code":       ev.Code,
			"request_id": ev.RequestID,
			"at":         ev.At.Format(time.RFC3339Nano),
		},
	}).Err()
}
