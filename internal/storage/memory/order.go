package memory

import (
	"cmp"
	"context"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository.
type OrderRepository struct{ s *Store }

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	defer r.s.lock(ctx)()
	if _, ok := r.byNumber(o.Number); ok {
		return apperr.New(apperr.Conflict, "order number %s is taken", o.Number)
	}
	d := r.s.data
	o.ID = d.nextID()
	for i := range o.Items {
		o.Items[i].ID = d.nextID()
	}
	o.Payment.ID = d.nextID()
	o.Delivery.ID = d.nextID()
	d.orders[o.ID] = copyOrder(*o)
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	defer r.s.lock(ctx)()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o = copyOrder(o)
	return &o, nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	defer r.s.lock(ctx)()
	o, ok := r.byNumber(number)
	if !ok {
		return nil, order.ErrNotFound
	}
	o = copyOrder(o)
	return &o, nil
}

func (r *OrderRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	defer r.s.lock(ctx)()
	_, ok := r.byNumber(number)
	return ok, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	return r.filter(ctx, func(o order.Order) bool { return o.UserID == userID }), nil
}

func (r *OrderRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]order.Order, error) {
	return r.filter(ctx, func(o order.Order) bool { return o.RestaurantID == restaurantID }), nil
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status order.Status) ([]order.Order, error) {
	return r.filter(ctx, func(o order.Order) bool { return o.Status == status }), nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, c order.StatusChange) error {
	defer r.s.lock(ctx)()
	o, ok := r.s.data.orders[c.OrderID]
	if !ok {
		return order.ErrNotFound
	}
	if o.Status != c.From {
		return order.ErrStaleStatus
	}
	o = copyOrder(o)
	o.Status = c.To
	o.UpdatedAt = c.At
	o.Delivery.Status = c.Delivery
	if c.DeliveredAt != nil {
		t := *c.DeliveredAt
		o.Delivery.DeliveredAt = &t
	}
	if c.RefundPayment && o.Payment.Status == order.PaymentCompleted {
		o.Payment.Status = order.PaymentRefunded
	}
	r.s.data.orders[o.ID] = o
	return nil
}

func (r *OrderRepository) byNumber(number string) (order.Order, bool) {
	for _, o := range r.s.data.orders {
		if o.Number == number {
			return o, true
		}
	}
	return order.Order{}, false
}

// filter returns matching orders, newest first.
func (r *OrderRepository) filter(ctx context.Context, keep func(order.Order) bool) []order.Order {
	defer r.s.lock(ctx)()
	newest := func(a, b order.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	}
	var out []order.Order
	for _, o := range sortedValues(r.s.data.orders, newest) {
		if keep(o) {
			out = append(out, copyOrder(o))
		}
	}
	return out
}
