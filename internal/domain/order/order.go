// Package order implements order placement and the order status workflow.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/tastetrack/internal/domain/apperr"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusConfirmed      Status = "CONFIRMED"
	StatusPreparing      Status = "PREPARING"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

// PaymentMethod is how the customer chose to pay.
type PaymentMethod string

const (
	PaymentCard           PaymentMethod = "CARD"
	PaymentWallet         PaymentMethod = "WALLET"
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

// Valid reports whether m is a supported payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentWallet, PaymentCashOnDelivery:
		return true
	}
	return false
}

// PaymentStatus is the state of an order's payment record.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// DeliveryStatus is the state of an order's delivery record.
type DeliveryStatus string

const (
	DeliveryPending        DeliveryStatus = "PENDING"
	DeliveryConfirmed      DeliveryStatus = "CONFIRMED"
	DeliveryOutForDelivery DeliveryStatus = "OUT_FOR_DELIVERY"
	DeliveryDelivered      DeliveryStatus = "DELIVERED"
	DeliveryCancelled      DeliveryStatus = "CANCELLED"
)

// Sentinel errors returned by repositories.
var (
	ErrNotFound = apperr.New(apperr.NotFound, "order not found")
	// ErrStaleStatus reports that the order's status changed between read
	// and write.
	ErrStaleStatus = apperr.New(apperr.InvalidState, "order status changed concurrently")
)

// Order is a placed order with its line items, payment and delivery records.
type Order struct {
	ID                int64
	Number            string
	UserID            int64
	RestaurantID      int64
	Items             []Item
	Total             decimal.Decimal
	Status            Status
	EstimatedDelivery time.Time
	Payment           Payment
	Delivery          Delivery
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Item is an order line. Name and Price are snapshots taken at placement.
type Item struct {
	ID         int64
	MenuItemID int64
	Name       string
	Quantity   int
	Price      decimal.Decimal
}

// Subtotal returns Price * Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Payment is the simulated payment of an order.
type Payment struct {
	ID            int64
	Method        PaymentMethod
	Status        PaymentStatus
	Amount        decimal.Decimal
	TransactionID string
	PaidAt        time.Time
}

// Delivery is the delivery record of an order, copied from the request.
type Delivery struct {
	ID            int64
	CustomerName  string
	CustomerPhone string
	Address       string
	City          string
	State         string
	Zip           string
	Instructions  string
	Status        DeliveryStatus
	DeliveredAt   *time.Time
}

// StatusChange describes one compare-and-swap status write together with its
// delivery and payment side effects.
type StatusChange struct {
	OrderID int64
	From    Status
	To      Status
	At      time.Time

	Delivery    DeliveryStatus
	DeliveredAt *time.Time
	// RefundPayment marks a COMPLETED payment as REFUNDED.
	RefundPayment bool
}

// Repository defines persistence operations for orders. List methods return
// newest orders first.
type Repository interface {
	// Create writes the order, its items, payment and delivery, assigning IDs.
	// A duplicate order number yields an apperr.Conflict.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	ListByRestaurant(ctx context.Context, restaurantID int64) ([]Order, error)
	ListByStatus(ctx context.Context, status Status) ([]Order, error)
	// UpdateStatus applies c only while the order is still in c.From and
	// returns ErrStaleStatus otherwise.
	UpdateStatus(ctx context.Context, c StatusChange) error
}
