// Package event defines the domain notification hook. Publishing happens
// after the originating transaction commits and never fails the operation.
package event

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Type names the kind of domain fact.
type Type string

// Event types.
const (
	OrderPlaced          Type = "order.placed"
	OrderStatusChanged   Type = "order.status_changed"
	ApplicationSubmitted Type = "application.submitted"
	ApplicationApproved  Type = "application.approved"
	ApplicationRejected  Type = "application.rejected"
)

// Event is a committed domain fact.
type Event struct {
	Type       Type
	Key        string
	OccurredAt time.Time
	Attributes map[string]string
}

// Publisher delivers events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Emit publishes ev and logs a failure instead of returning it.
func Emit(ctx context.Context, p Publisher, ev Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		zctx.From(ctx).Warn("Publish event",
			zap.String("type", string(ev.Type)),
			zap.String("key", ev.Key),
			zap.Error(err),
		)
	}
}
