package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// StreamAdder is the subset of *redis.Client used for publishing.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// EncodeStreamValues flattens values into the string fields XADD stores.
// Scalars are formatted directly, everything else is JSON encoded.
func EncodeStreamValues(values map[string]interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case []byte:
			s = string(val)
		case int:
			s = strconv.Itoa(val)
		case int32:
			s = strconv.FormatInt(int64(val), 10)
		case int64:
			s = strconv.FormatInt(val, 10)
		case float32:
			s = strconv.FormatFloat(float64(val), 'f', -1, 32)
		case float64:
			s = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(val)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("encode stream field %s: %w", k, err)
			}
			s = string(b)
		}
		out[k] = s
	}
	return out, nil
}

// PublishToStream appends one entry to stream. maxLen > 0 caps the stream
// length approximately.
func PublishToStream(ctx context.Context, client StreamAdder, stream string, maxLen int64, values map[string]interface{}) (string, error) {
	fields, err := EncodeStreamValues(values)
	if err != nil {
		return "", err
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: fields,
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}

	return client.XAdd(ctx, args).Result()
}

// PublishJSONToStream stores data as a JSON "data" field next to extra
// metadata fields and a unix "timestamp".
func PublishJSONToStream(ctx context.Context, client StreamAdder, stream string, maxLen int64, data interface{}, extra map[string]interface{}) (string, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	values := map[string]interface{}{
		"data":      string(jsonBytes),
		"timestamp": time.Now().Unix(),
	}
	for k, v := range extra {
		values[k] = v
	}
	return PublishToStream(ctx, client, stream, maxLen, values)
}
