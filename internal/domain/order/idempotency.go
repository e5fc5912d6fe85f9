package order

import (
	"context"
	"strconv"
)

// IdempotencyStore records which order a client-supplied key produced.
type IdempotencyStore interface {
	// Claim reserves key. If the key was already used it returns the order
	// ID stored for it, or zero while the first attempt is still running.
	Claim(ctx context.Context, key string) (orderID int64, claimed bool, err error)
	// Complete binds a claimed key to the created order.
	Complete(ctx context.Context, key string, orderID int64) error
	// Release frees a claimed key after a failed attempt.
	Release(ctx context.Context, key string) error
}

func idempotencyKey(userID int64, key string) string {
	return "order:" + itoa(userID) + ":" + key
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
