package postgres

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/tastetrack/internal/domain/order"
)

// itemRow mirrors the column order of listOrderItemsSQL.
type itemRow struct {
	orderID, itemID, menuItemID int64
	name                        string
	quantity                    int
	price                       decimal.Decimal
}

type fakeRows struct {
	pgx.Rows
	rows []itemRow
	pos  int
	err  error
}

func (r *fakeRows) Close() {}

func (r *fakeRows) Err() error { return r.err }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	*dest[0].(*int64) = row.orderID
	*dest[1].(*int64) = row.itemID
	*dest[2].(*int64) = row.menuItemID
	*dest[3].(*string) = row.name
	*dest[4].(*int) = row.quantity
	*dest[5].(*decimal.Decimal) = row.price
	return nil
}

type fakeTx struct {
	pgx.Tx
	rows *fakeRows
}

func (tx fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return tx.rows, nil
}

func withFakeTx(rows *fakeRows) context.Context {
	return context.WithValue(context.Background(), txKey{}, pgx.Tx(fakeTx{rows: rows}))
}

func TestAttachItems(t *testing.T) {
	r := NewOrderRepository(nil)

	t.Run("NoItems", func(t *testing.T) {
		orders := []order.Order{{ID: 1}}
		require.NoError(t, r.attachItems(withFakeTx(&fakeRows{}), orders))
		assert.Empty(t, orders[0].Items)
	})

	t.Run("GroupsByOrder", func(t *testing.T) {
		orders := []order.Order{{ID: 1}, {ID: 2}}
		rows := &fakeRows{rows: []itemRow{
			{orderID: 2, itemID: 10, menuItemID: 5, name: "Dosa", quantity: 2, price: decimal.RequireFromString("4.50")},
			{orderID: 1, itemID: 11, menuItemID: 6, name: "Idli", quantity: 1, price: decimal.RequireFromString("3.00")},
			{orderID: 2, itemID: 12, menuItemID: 7, name: "Vada", quantity: 3, price: decimal.RequireFromString("2.25")},
		}}
		require.NoError(t, r.attachItems(withFakeTx(rows), orders))
		require.Len(t, orders[0].Items, 1)
		assert.Equal(t, "Idli", orders[0].Items[0].Name)
		require.Len(t, orders[1].Items, 2)
		assert.Equal(t, 3, orders[1].Items[1].Quantity)
	})

	t.Run("RowsError", func(t *testing.T) {
		boom := errors.New("conn reset")
		err := r.attachItems(withFakeTx(&fakeRows{err: boom}), []order.Order{{ID: 1}})
		require.ErrorIs(t, err, boom)
	})

	t.Run("Empty", func(t *testing.T) {
		require.NoError(t, r.attachItems(context.Background(), nil))
	})
}
