package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// StreamPublisher appends JSON events to a Redis stream.
type StreamPublisher struct {
	c      *redis.Client
	stream string
	maxLen int64
	now    func() time.Time
}

// NewStreamPublisher publishes to stream, trimming it to roughly maxLen entries (0 = unbounded).
func NewStreamPublisher(c *redis.Client, stream string, maxLen int64) *StreamPublisher {
	return &StreamPublisher{c: c, stream: stream, maxLen: maxLen, now: time.Now}
}

func (p *StreamPublisher) Stream() string { return p.stream }

// PublishJSON XADDs {"data": <json>, "timestamp": <unix>} and returns the entry id.
func (p *StreamPublisher) PublishJSON(ctx context.Context, data any) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal stream event: %w", err)
	}
	return PublishToStream(ctx, p.c, p.stream, p.maxLen, map[string]any{
		"data":      string(b),
		"timestamp": p.now().Unix(),
	})
}

// PublishToStream XADDs values after converting each one to its string form.
func PublishToStream(ctx context.Context, c *redis.Client, stream string, maxLen int64, values map[string]any) (string, error) {
	streamValues := make(map[string]any, len(values))
	for k, v := range values {
		s, err := streamValue(v)
		if err != nil {
			return "", err
		}
		streamValues[k] = s
	}

	args := &redis.XAddArgs{Stream: stream, Values: streamValues}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return c.XAdd(ctx, args).Result()
}

func streamValue(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case []byte:
		return string(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
