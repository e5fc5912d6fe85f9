package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(order_number, user_id, restaurant_id, total, status, estimated_delivery, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	createOrderItemSQL = `INSERT INTO order_items (order_id, menu_item_id, name, quantity, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	createPaymentSQL = `INSERT INTO payments (order_id, method, status, amount, transaction_id, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	createDeliverySQL = `INSERT INTO deliveries
		(order_id, customer_name, customer_phone, address, city, state, zip, instructions, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	selectOrderSQL = `SELECT o.id, o.order_number, o.user_id, o.restaurant_id, o.total, o.status,
		       o.estimated_delivery, o.created_at, o.updated_at,
		       p.id, p.method, p.status, p.amount, p.transaction_id, p.paid_at,
		       d.id, d.customer_name, d.customer_phone, d.address, d.city, d.state, d.zip,
		       d.instructions, d.status, d.delivered_at
		FROM orders o
		JOIN payments p ON p.order_id = o.id
		JOIN deliveries d ON d.order_id = o.id`

	getOrderByIDSQL       = selectOrderSQL + ` WHERE o.id = $1`
	getOrderByNumberSQL   = selectOrderSQL + ` WHERE o.order_number = $1`
	listOrdersByUserSQL   = selectOrderSQL + ` WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC`
	listOrdersByRestSQL   = selectOrderSQL + ` WHERE o.restaurant_id = $1 ORDER BY o.created_at DESC, o.id DESC`
	listOrdersByStatusSQL = selectOrderSQL + ` WHERE o.status = $1 ORDER BY o.created_at DESC, o.id DESC`

	orderNumberExistsSQL = `SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`

	listOrderItemsSQL = `SELECT order_id, id, menu_item_id, name, quantity, price
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`

	updateOrderStatusSQL = `UPDATE orders SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2`

	updateDeliveryStatusSQL = `UPDATE deliveries SET status = $2, delivered_at = COALESCE($3, delivered_at)
		WHERE order_id = $1`

	refundPaymentSQL = `UPDATE payments SET status = 'REFUNDED'
		WHERE order_id = $1 AND status = 'COMPLETED'`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. An order
// spans the orders, order_items, payments and deliveries tables.
type OrderRepository struct {
	conn
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{conn{pool: pool}}
}

// Create persists o with its items, payment and delivery atomically.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return r.atomic(ctx, func(q querier) error {
		err := q.QueryRow(ctx, createOrderSQL,
			o.Number, o.UserID, o.RestaurantID, o.Total, string(o.Status),
			o.EstimatedDelivery, o.CreatedAt, o.UpdatedAt,
		).Scan(&o.ID)
		if err != nil {
			if _, ok := constraintViolation(err, codeUniqueViolation); ok {
				return apperr.Wrap(err, apperr.Conflict, fmt.Sprintf("order number %s is taken", o.Number))
			}
			return errors.Wrapf(err, "create order %s", o.Number)
		}

		for i := range o.Items {
			it := &o.Items[i]
			if err := q.QueryRow(ctx, createOrderItemSQL,
				o.ID, it.MenuItemID, it.Name, it.Quantity, it.Price,
			).Scan(&it.ID); err != nil {
				return errors.Wrapf(err, "create item for menu item %d", it.MenuItemID)
			}
		}

		p := &o.Payment
		if err := q.QueryRow(ctx, createPaymentSQL,
			o.ID, string(p.Method), string(p.Status), p.Amount, p.TransactionID, p.PaidAt,
		).Scan(&p.ID); err != nil {
			return errors.Wrap(err, "create payment")
		}

		d := &o.Delivery
		if err := q.QueryRow(ctx, createDeliverySQL,
			o.ID, d.CustomerName, d.CustomerPhone, d.Address, d.City, d.State, d.Zip,
			d.Instructions, string(d.Status),
		).Scan(&d.ID); err != nil {
			return errors.Wrap(err, "create delivery")
		}
		return nil
	})
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	return r.getOne(ctx, getOrderByIDSQL, id)
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByNumberSQL, number)
}

func (r *OrderRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	if err := r.q(ctx).QueryRow(ctx, orderNumberExistsSQL, number).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "check order number")
	}
	return exists, nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	return r.list(ctx, listOrdersByUserSQL, userID)
}

func (r *OrderRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]order.Order, error) {
	return r.list(ctx, listOrdersByRestSQL, restaurantID)
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status order.Status) ([]order.Order, error) {
	return r.list(ctx, listOrdersByStatusSQL, string(status))
}

// UpdateStatus writes c as a compare-and-swap on the order status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, c order.StatusChange) error {
	return r.atomic(ctx, func(q querier) error {
		tag, err := q.Exec(ctx, updateOrderStatusSQL, c.OrderID, string(c.From), string(c.To), c.At)
		if err != nil {
			return errors.Wrapf(err, "update order %d status", c.OrderID)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrStaleStatus
		}
		if _, err := q.Exec(ctx, updateDeliveryStatusSQL, c.OrderID, string(c.Delivery), c.DeliveredAt); err != nil {
			return errors.Wrapf(err, "update order %d delivery", c.OrderID)
		}
		if c.RefundPayment {
			if _, err := q.Exec(ctx, refundPaymentSQL, c.OrderID); err != nil {
				return errors.Wrapf(err, "refund order %d payment", c.OrderID)
			}
		}
		return nil
	})
}

func (r *OrderRepository) getOne(ctx context.Context, sql string, arg any) (*order.Order, error) {
	rows, err := r.q(ctx).Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) list(ctx context.Context, sql string, arg any) ([]order.Order, error) {
	rows, err := r.q(ctx).Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// attachItems loads the items of all orders with one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.q(ctx).Query(ctx, listOrderItemsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "list order items")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID int64
			it      order.Item
		)
		if err := rows.Scan(&orderID, &it.ID, &it.MenuItemID, &it.Name, &it.Quantity, &it.Price); err != nil {
			return errors.Wrap(err, "scan order item")
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "list order items")
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                                        order.Order
		status, method, paymentStatus, delStatus string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &o.RestaurantID, &o.Total, &status,
		&o.EstimatedDelivery, &o.CreatedAt, &o.UpdatedAt,
		&o.Payment.ID, &method, &paymentStatus, &o.Payment.Amount, &o.Payment.TransactionID, &o.Payment.PaidAt,
		&o.Delivery.ID, &o.Delivery.CustomerName, &o.Delivery.CustomerPhone, &o.Delivery.Address,
		&o.Delivery.City, &o.Delivery.State, &o.Delivery.Zip, &o.Delivery.Instructions,
		&delStatus, &o.Delivery.DeliveredAt,
	)
	o.Status = order.Status(status)
	o.Payment.Method = order.PaymentMethod(method)
	o.Payment.Status = order.PaymentStatus(paymentStatus)
	o.Delivery.Status = order.DeliveryStatus(delStatus)
	return o, err
}
