// Package txn declares the unit-of-work port used by the domain services.
package txn

import "context"

// Transactor runs fn so that every repository call made with the context it
// receives takes part in one atomic unit of work. A non-nil error from fn
// discards all writes. Nested calls join the outer unit.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
