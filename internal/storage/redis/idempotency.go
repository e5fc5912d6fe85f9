// Package redis stores order idempotency keys in Redis.
package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xenking/tastetrack/internal/domain/order"
)

const (
	keyPrefix    = "tastetrack:idempotency:"
	pendingValue = "pending"
)

var _ order.IdempotencyStore = (*IdempotencyStore)(nil)

// IdempotencyStore implements order.IdempotencyStore. A key holds
// "pending" while the first attempt runs and the order ID afterwards.
type IdempotencyStore struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

// NewIdempotencyStore returns a store whose keys expire after ttl.
func NewIdempotencyStore(rdb goredis.Cmdable, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{rdb: rdb, ttl: ttl}
}

func (s *IdempotencyStore) Claim(ctx context.Context, key string) (int64, bool, error) {
	k := keyPrefix + key
	ok, err := s.rdb.SetNX(ctx, k, pendingValue, s.ttl).Result()
	if err != nil {
		return 0, false, errors.Wrap(err, "setnx")
	}
	if ok {
		return 0, true, nil
	}

	v, err := s.rdb.Get(ctx, k).Result()
	switch {
	case errors.Is(err, goredis.Nil):
		// Expired between SETNX and GET.
		return s.Claim(ctx, key)
	case err != nil:
		return 0, false, errors.Wrap(err, "get")
	case v == pendingValue:
		return 0, false, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, errors.Wrapf(err, "parse stored order id %q", v)
	}
	return id, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, orderID int64) error {
	if err := s.rdb.Set(ctx, keyPrefix+key, strconv.FormatInt(orderID, 10), s.ttl).Err(); err != nil {
		return errors.Wrap(err, "set")
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return errors.Wrap(err, "del")
	}
	return nil
}
