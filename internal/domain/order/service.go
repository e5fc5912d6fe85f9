package order

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/auth"
	"github.com/xenking/tastetrack/internal/domain/catalog"
	"github.com/xenking/tastetrack/internal/domain/event"
	"github.com/xenking/tastetrack/internal/domain/txn"
	"github.com/xenking/tastetrack/internal/domain/user"
)

const (
	// EstimatedDeliveryLead is added to the placement time.
	EstimatedDeliveryLead = 45 * time.Minute

	// MaxQuantity caps a single order line.
	MaxQuantity = 1000

	maxNumberAttempts = 5
)

// maxTotal is the largest amount a NUMERIC(10,2) column holds.
var maxTotal = decimal.RequireFromString("99999999.99")

// UserLookup resolves the account placing an order.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// RestaurantLookup resolves restaurants by ID.
type RestaurantLookup interface {
	GetByID(ctx context.Context, id int64) (*catalog.Restaurant, error)
}

// MenuLookup resolves menu items in bulk.
type MenuLookup interface {
	GetByIDs(ctx context.Context, ids []int64) ([]catalog.MenuItem, error)
}

// VendorScope restricts vendors to their own restaurant.
type VendorScope interface {
	Restaurant(ctx context.Context, caller auth.Identity) (*catalog.Restaurant, error)
	Authorize(ctx context.Context, caller auth.Identity, restaurantID int64) (*catalog.Restaurant, error)
}

// LineItem is one requested line of a new order.
type LineItem struct {
	MenuItemID int64
	Quantity   int
}

// DeliveryDetails is the delivery snapshot supplied by the customer.
type DeliveryDetails struct {
	CustomerName  string
	CustomerPhone string
	Address       string
	City          string
	State         string
	Zip           string
	Instructions  string
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	RestaurantID  int64
	Items         []LineItem
	Delivery      DeliveryDetails
	PaymentMethod PaymentMethod
	// IdempotencyKey makes retries of the same submission return the order
	// created by the first attempt. Optional.
	IdempotencyKey string
}

func (r PlaceOrderRequest) validate() error {
	if r.RestaurantID <= 0 {
		return apperr.New(apperr.Validation, "restaurant is required")
	}
	if len(r.Items) == 0 {
		return apperr.New(apperr.Validation, "order must contain at least one item")
	}
	for _, it := range r.Items {
		if it.Quantity < 1 {
			return apperr.New(apperr.Validation, "quantity must be at least 1 for menu item %d", it.MenuItemID)
		}
		if it.Quantity > MaxQuantity {
			return apperr.New(apperr.Validation, "quantity must be at most %d for menu item %d", MaxQuantity, it.MenuItemID)
		}
	}
	d := r.Delivery
	for _, f := range []struct{ name, value string }{
		{"customer name", d.CustomerName},
		{"customer phone", d.CustomerPhone},
		{"delivery address", d.Address},
		{"delivery city", d.City},
		{"delivery state", d.State},
		{"delivery zip", d.Zip},
	} {
		if strings.TrimSpace(f.value) == "" {
			return apperr.New(apperr.Validation, "%s is required", f.name)
		}
	}
	if !r.PaymentMethod.Valid() {
		return apperr.New(apperr.Validation, "unsupported payment method %q", r.PaymentMethod)
	}
	return nil
}

// Options tunes a Service. The zero value is usable.
type Options struct {
	// AllowForeignItems accepts menu items of other restaurants in an order.
	AllowForeignItems bool
	Idempotency       IdempotencyStore
	Events            event.Publisher
	TracerProvider    trace.TracerProvider
	MeterProvider     metric.MeterProvider

	Now              func() time.Time
	NewNumber        func() string
	NewTransactionID func() string
}

// Service implements the order workflow engine.
type Service struct {
	orders      Repository
	users       UserLookup
	restaurants RestaurantLookup
	menu        MenuLookup
	scope       VendorScope
	tx          txn.Transactor

	allowForeignItems bool
	idempotency       IdempotencyStore
	events            event.Publisher
	now               func() time.Time
	newNumber         func() string
	newTransactionID  func() string

	tracer        trace.Tracer
	placed        metric.Int64Counter
	statusChanges metric.Int64Counter
}

// NewService creates an order Service.
func NewService(
	orders Repository,
	users UserLookup,
	restaurants RestaurantLookup,
	menu MenuLookup,
	scope VendorScope,
	tx txn.Transactor,
	opts Options,
) (*Service, error) {
	s := &Service{
		orders:            orders,
		users:             users,
		restaurants:       restaurants,
		menu:              menu,
		scope:             scope,
		tx:                tx,
		allowForeignItems: opts.AllowForeignItems,
		idempotency:       opts.Idempotency,
		events:            opts.Events,
		now:               opts.Now,
		newNumber:         opts.NewNumber,
		newTransactionID:  opts.NewTransactionID,
	}
	if s.events == nil {
		s.events = event.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newNumber == nil {
		s.newNumber = NewNumber
	}
	if s.newTransactionID == nil {
		s.newTransactionID = uuid.NewString
	}

	tp := opts.TracerProvider
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	mp := opts.MeterProvider
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	s.tracer = tp.Tracer("tastetrack/order")
	meter := mp.Meter("tastetrack/order")

	var err error
	if s.placed, err = meter.Int64Counter("tastetrack.orders.placed",
		metric.WithDescription("Orders placed"),
	); err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}
	if s.statusChanges, err = meter.Int64Counter("tastetrack.orders.status_changes",
		metric.WithDescription("Order status transitions"),
	); err != nil {
		return nil, errors.Wrap(err, "status changes counter")
	}
	return s, nil
}

// PlaceOrder validates req, prices it from the current menu and persists the
// order with a completed payment and a pending delivery in one transaction.
func (s *Service) PlaceOrder(ctx context.Context, caller auth.Identity, req PlaceOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder")
	defer func() { endSpan(span, rerr) }()

	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.IdempotencyKey == "" || s.idempotency == nil {
		return s.place(ctx, caller, req)
	}

	key := idempotencyKey(caller.UserID, req.IdempotencyKey)
	existing, claimed, err := s.idempotency.Claim(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "claim idempotency key")
	}
	if !claimed {
		if existing == 0 {
			return nil, apperr.New(apperr.Conflict, "an order with this idempotency key is still being placed")
		}
		zctx.From(ctx).Info("Replaying idempotent order", zap.Int64("order_id", existing))
		return s.orders.GetByID(ctx, existing)
	}

	o, err := s.place(ctx, caller, req)
	if err != nil {
		if relErr := s.idempotency.Release(ctx, key); relErr != nil {
			zctx.From(ctx).Warn("Release idempotency key", zap.Error(relErr))
		}
		return nil, err
	}
	if err := s.idempotency.Complete(ctx, key, o.ID); err != nil {
		zctx.From(ctx).Warn("Complete idempotency key", zap.Error(err))
	}
	return o, nil
}

func (s *Service) place(ctx context.Context, caller auth.Identity, req PlaceOrderRequest) (*Order, error) {
	now := s.now()
	o := &Order{
		UserID:            caller.UserID,
		RestaurantID:      req.RestaurantID,
		Status:            StatusPending,
		EstimatedDelivery: now.Add(EstimatedDeliveryLead),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.users.GetByID(ctx, caller.UserID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.New(apperr.NotFound, "user %d not found", caller.UserID)
			}
			return errors.Wrap(err, "get user")
		}
		if _, err := s.restaurants.GetByID(ctx, req.RestaurantID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.New(apperr.NotFound, "restaurant %d not found", req.RestaurantID)
			}
			return errors.Wrap(err, "get restaurant")
		}

		items, err := s.priceItems(ctx, req)
		if err != nil {
			return err
		}
		number, err := s.allocateNumber(ctx)
		if err != nil {
			return err
		}

		total := decimal.Zero
		for _, it := range items {
			total = total.Add(it.Subtotal())
		}
		if total.GreaterThan(maxTotal) {
			return apperr.New(apperr.Validation, "order total %s exceeds %s", total.StringFixed(2), maxTotal.StringFixed(2))
		}

		o.Number = number
		o.Items = items
		o.Total = total
		o.Payment = Payment{
			Method:        req.PaymentMethod,
			Status:        PaymentCompleted,
			Amount:        total,
			TransactionID: s.newTransactionID(),
			PaidAt:        now,
		}
		d := req.Delivery
		o.Delivery = Delivery{
			CustomerName:  strings.TrimSpace(d.CustomerName),
			CustomerPhone: strings.TrimSpace(d.CustomerPhone),
			Address:       strings.TrimSpace(d.Address),
			City:          strings.TrimSpace(d.City),
			State:         strings.TrimSpace(d.State),
			Zip:           strings.TrimSpace(d.Zip),
			Instructions:  strings.TrimSpace(d.Instructions),
			Status:        DeliveryPending,
		}
		if err := s.orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Order placed",
		zap.String("order_number", o.Number),
		zap.Int64("user_id", o.UserID),
		zap.Int64("restaurant_id", o.RestaurantID),
		zap.Stringer("total", o.Total),
	)
	s.placed.Add(ctx, 1, metric.WithAttributes(
		attribute.String("payment_method", string(o.Payment.Method)),
	))
	event.Emit(ctx, s.events, event.Event{
		Type:       event.OrderPlaced,
		Key:        o.Number,
		OccurredAt: now,
		Attributes: map[string]string{
			"restaurant_id": itoa(o.RestaurantID),
			"user_id":       itoa(o.UserID),
			"total":         o.Total.StringFixed(2),
		},
	})
	return o, nil
}

// priceItems snapshots the current menu price and name for every line.
func (s *Service) priceItems(ctx context.Context, req PlaceOrderRequest) ([]Item, error) {
	ids := make([]int64, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.MenuItemID)
	}
	found, err := s.menu.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get menu items")
	}
	byID := make(map[int64]catalog.MenuItem, len(found))
	for _, m := range found {
		byID[m.ID] = m
	}

	items := make([]Item, 0, len(req.Items))
	for _, it := range req.Items {
		m, ok := byID[it.MenuItemID]
		if !ok {
			return nil, apperr.New(apperr.NotFound, "menu item %d not found", it.MenuItemID)
		}
		if !s.allowForeignItems && m.RestaurantID != req.RestaurantID {
			return nil, apperr.New(apperr.Validation,
				"menu item %d does not belong to restaurant %d", m.ID, req.RestaurantID)
		}
		items = append(items, Item{
			MenuItemID: m.ID,
			Name:       m.Name,
			Quantity:   it.Quantity,
			Price:      m.Price,
		})
	}
	return items, nil
}

func (s *Service) allocateNumber(ctx context.Context) (string, error) {
	for range maxNumberAttempts {
		n := s.newNumber()
		exists, err := s.orders.NumberExists(ctx, n)
		if err != nil {
			return "", errors.Wrap(err, "check order number")
		}
		if !exists {
			return n, nil
		}
	}
	return "", errors.Errorf("no free order number after %d attempts", maxNumberAttempts)
}

// UpdateStatus moves an order to status. Admins may update any order,
// vendors only orders of their own restaurant, customers none.
func (s *Service) UpdateStatus(ctx context.Context, caller auth.Identity, orderID int64, status Status) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.UpdateStatus")
	defer func() { endSpan(span, rerr) }()

	if !status.Valid() {
		return nil, apperr.New(apperr.Validation, "unknown order status %q", status)
	}
	if caller.Role != user.RoleAdmin && caller.Role != user.RoleVendor {
		return nil, apperr.New(apperr.Forbidden, "only admins and vendors can update order status")
	}
	return s.transition(ctx, caller, orderID, status, s.authorizeFulfilment)
}

// Cancel cancels an order that is neither delivered nor already cancelled.
// The customer who placed it, the restaurant's vendor and admins may cancel.
func (s *Service) Cancel(ctx context.Context, caller auth.Identity, orderID int64) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Cancel")
	defer func() { endSpan(span, rerr) }()

	return s.transition(ctx, caller, orderID, StatusCancelled, s.authorizeAccess)
}

type authorizeFunc func(ctx context.Context, caller auth.Identity, o *Order) error

func (s *Service) transition(
	ctx context.Context,
	caller auth.Identity,
	orderID int64,
	to Status,
	authorize authorizeFunc,
) (*Order, error) {
	var (
		out    *Order
		change *StatusChange
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(ctx, caller, o); err != nil {
			return err
		}

		switch {
		case o.Status == to && to != StatusCancelled:
			out = o
			return nil
		case to == StatusCancelled && !o.Status.Cancellable():
			return apperr.New(apperr.InvalidState, "order %s cannot be cancelled in status %s", o.Number, o.Status)
		case !CanTransition(o.Status, to):
			return apperr.New(apperr.InvalidState, "order %s cannot move from %s to %s", o.Number, o.Status, to)
		}

		c := s.statusChange(o, to)
		if err := s.orders.UpdateStatus(ctx, c); err != nil {
			return err
		}
		c.apply(o)
		out, change = o, &c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if change != nil {
		zctx.From(ctx).Info("Order status changed",
			zap.String("order_number", out.Number),
			zap.String("from", string(change.From)),
			zap.String("to", string(change.To)),
			zap.Int64("by", caller.UserID),
		)
		s.statusChanges.Add(ctx, 1, metric.WithAttributes(
			attribute.String("to", string(change.To)),
		))
		event.Emit(ctx, s.events, event.Event{
			Type:       event.OrderStatusChanged,
			Key:        out.Number,
			OccurredAt: change.At,
			Attributes: map[string]string{
				"from": string(change.From),
				"to":   string(change.To),
			},
		})
	}
	return out, nil
}

func (s *Service) statusChange(o *Order, to Status) StatusChange {
	now := s.now()
	c := StatusChange{
		OrderID:  o.ID,
		From:     o.Status,
		To:       to,
		At:       now,
		Delivery: deliveryStatusFor(to),
	}
	if to == StatusDelivered {
		c.DeliveredAt = &now
	}
	if to == StatusCancelled && o.Payment.Status == PaymentCompleted {
		c.RefundPayment = true
	}
	return c
}

func (c StatusChange) apply(o *Order) {
	o.Status = c.To
	o.UpdatedAt = c.At
	o.Delivery.Status = c.Delivery
	if c.DeliveredAt != nil {
		o.Delivery.DeliveredAt = c.DeliveredAt
	}
	if c.RefundPayment {
		o.Payment.Status = PaymentRefunded
	}
}

// authorizeFulfilment lets admins through and scopes vendors.
func (s *Service) authorizeFulfilment(ctx context.Context, caller auth.Identity, o *Order) error {
	if caller.IsAdmin() {
		return nil
	}
	_, err := s.scope.Authorize(ctx, caller, o.RestaurantID)
	return err
}

// authorizeAccess additionally lets the ordering customer through.
func (s *Service) authorizeAccess(ctx context.Context, caller auth.Identity, o *Order) error {
	if caller.IsAdmin() || o.UserID == caller.UserID {
		return nil
	}
	if caller.Role == user.RoleVendor {
		_, err := s.scope.Authorize(ctx, caller, o.RestaurantID)
		return err
	}
	return apperr.New(apperr.Forbidden, "order does not belong to you")
}

// Get returns an order visible to caller.
func (s *Service) Get(ctx context.Context, caller auth.Identity, id int64) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeAccess(ctx, caller, o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByNumber returns an order visible to caller by its order number.
func (s *Service) GetByNumber(ctx context.Context, caller auth.Identity, number string) (*Order, error) {
	o, err := s.orders.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return nil, err
	}
	if err := s.authorizeAccess(ctx, caller, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListMine returns the caller's own orders, newest first.
func (s *Service) ListMine(ctx context.Context, caller auth.Identity) ([]Order, error) {
	return s.orders.ListByUser(ctx, caller.UserID)
}

// ListForVendor returns the orders of the caller's restaurant, newest first.
func (s *Service) ListForVendor(ctx context.Context, caller auth.Identity) ([]Order, error) {
	r, err := s.scope.Restaurant(ctx, caller)
	if err != nil {
		return nil, err
	}
	return s.orders.ListByRestaurant(ctx, r.ID)
}

// ListByStatus returns all orders in status. Admin only.
func (s *Service) ListByStatus(ctx context.Context, caller auth.Identity, status Status) ([]Order, error) {
	if !caller.IsAdmin() {
		return nil, apperr.New(apperr.Forbidden, "admin role required")
	}
	if !status.Valid() {
		return nil, apperr.New(apperr.Validation, "unknown order status %q", status)
	}
	return s.orders.ListByStatus(ctx, status)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if apperr.KindOf(err) == apperr.Internal {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
