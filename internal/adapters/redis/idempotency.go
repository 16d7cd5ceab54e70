package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempKeyspace = "idemp:"

// Idempotency remembers the response a request key already produced, so
// a replayed confirmation or swap returns the first outcome instead of
// acting twice.
type Idempotency struct {
	client *redis.Client
}

func NewIdempotency(client *redis.Client) *Idempotency {
	return &Idempotency{client: client}
}

type IdempResponse struct {
	Status int
	Result []byte
}

// Get returns the recorded response, or nil when the key is unseen.
func (i *Idempotency) Get(ctx context.Context, key string) (*IdempResponse, error) {
	fields, err := i.client.HGetAll(ctx, idempKeyspace+key).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	status, err := strconv.Atoi(fields["status"])
	if err != nil {
		return nil, fmt.Errorf("corrupt idempotency entry for key %q: %w", key, err)
	}
	return &IdempResponse{Status: status, Result: []byte(fields["body"])}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp IdempResponse, ttl time.Duration) error {
	k := idempKeyspace + key
	pipe := i.client.TxPipeline()
	pipe.HSet(ctx, k, "status", resp.Status, "body", resp.Result)
	pipe.Expire(ctx, k, ttl)
	_, err := pipe.Exec(ctx)
	return err
}
