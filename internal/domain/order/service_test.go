package order_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/auth"
	"github.com/xenking/tastetrack/internal/domain/catalog"
	"github.com/xenking/tastetrack/internal/domain/event"
	"github.com/xenking/tastetrack/internal/domain/order"
	"github.com/xenking/tastetrack/internal/domain/user"
	"github.com/xenking/tastetrack/internal/domain/vendor"
	"github.com/xenking/tastetrack/internal/storage/memory"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(_ context.Context, ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Type, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// fixture is a store with two vendors, each owning one restaurant with two
// menu items, and one customer.
type fixture struct {
	store    *memory.Store
	svc      *order.Service
	events   *recorder
	customer auth.Identity
	vendorA  auth.Identity
	vendorB  auth.Identity
	admin    auth.Identity
	restA    int64
	restB    int64
	menuA    []catalog.MenuItem
	menuB    []catalog.MenuItem
}

func newFixture(t *testing.T, opts order.Options) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	mkUser := func(email string, role user.Role) auth.Identity {
		u := &user.User{Email: email, Role: role, Enabled: true}
		require.NoError(t, store.Users().Create(ctx, u))
		return auth.Identity{UserID: u.ID, Email: u.Email, Role: role}
	}
	mkRestaurant := func(name string, owner int64, prices ...string) (int64, []catalog.MenuItem) {
		r := &catalog.Restaurant{Name: name, IsOpen: true, OwnerID: owner}
		require.NoError(t, store.Restaurants().Create(ctx, r))
		var items []catalog.MenuItem
		for _, p := range prices {
			m := catalog.MenuItem{RestaurantID: r.ID, Name: name + " " + p, Price: decimal.RequireFromString(p)}
			require.NoError(t, store.Menu().Create(ctx, &m))
			items = append(items, m)
		}
		return r.ID, items
	}

	f := &fixture{store: store, events: &recorder{}}
	f.customer = mkUser("cust@example.com", user.RoleCustomer)
	f.vendorA = mkUser("a@vendor.test", user.RoleVendor)
	f.vendorB = mkUser("b@vendor.test", user.RoleVendor)
	f.admin = mkUser("admin@example.com", user.RoleAdmin)
	f.restA, f.menuA = mkRestaurant("A", f.vendorA.UserID, "12.50", "3.25")
	f.restB, f.menuB = mkRestaurant("B", f.vendorB.UserID, "9.99")

	if opts.Events == nil {
		opts.Events = f.events
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	svc, err := order.NewService(store.Orders(), store.Users(), store.Restaurants(), store.Menu(),
		vendor.NewGuard(store.Restaurants()), store, opts)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) request(restaurantID int64, lines ...order.LineItem) order.PlaceOrderRequest {
	return order.PlaceOrderRequest{
		RestaurantID: restaurantID,
		Items:        lines,
		Delivery: order.DeliveryDetails{
			CustomerName:  "Ann",
			CustomerPhone: "555-0100",
			Address:       "1 Main St",
			City:          "Springfield",
			State:         "IL",
			Zip:           "62701",
			Instructions:  "  ring twice ",
		},
		PaymentMethod: order.PaymentCard,
	}
}

func (f *fixture) place(t *testing.T) *order.Order {
	t.Helper()
	o, err := f.svc.PlaceOrder(context.Background(), f.customer,
		f.request(f.restA, order.LineItem{MenuItemID: f.menuA[0].ID, Quantity: 1}))
	require.NoError(t, err)
	return o
}

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.Options{})

	o, err := f.svc.PlaceOrder(ctx, f.customer, f.request(f.restA,
		order.LineItem{MenuItemID: f.menuA[0].ID, Quantity: 2},
		order.LineItem{MenuItemID: f.menuA[1].ID, Quantity: 3},
	))
	require.NoError(t, err)

	// 2 x 12.50 + 3 x 3.25
	assert.Equal(t, "34.75", o.Total.StringFixed(2))
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, f.customer.UserID, o.UserID)
	assert.Equal(t, fixedNow.Add(order.EstimatedDeliveryLead), o.EstimatedDelivery)
	assert.Regexp(t, `^ORD[A-Z0-9]{8}$`, o.Number)

	assert.Equal(t, order.PaymentCompleted, o.Payment.Status)
	assert.True(t, o.Payment.Amount.Equal(o.Total))
	assert.NotEmpty(t, o.Payment.TransactionID)
	assert.Equal(t, order.DeliveryPending, o.Delivery.Status)
	assert.Equal(t, "ring twice", o.Delivery.Instructions)

	require.Len(t, o.Items, 2)
	assert.Equal(t, f.menuA[0].Name, o.Items[0].Name)

	stored, err := f.svc.Get(ctx, f.customer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Number, stored.Number)
	assert.Equal(t, []event.Type{event.OrderPlaced}, f.events.types())
}

func TestPlaceOrder_PriceSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.Options{})
	o := f.place(t)

	m := f.menuA[0]
	m.Price = decimal.NewFromInt(99)
	require.NoError(t, f.store.Menu().Update(ctx, &m))

	stored, err := f.svc.Get(ctx, f.customer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.50", stored.Total.StringFixed(2))
	assert.Equal(t, "12.50", stored.Items[0].Price.StringFixed(2))
}

func TestPlaceOrder_Validation(t *testing.T) {
	f := newFixture(t, order.Options{})
	item := order.LineItem{MenuItemID: f.menuA[0].ID, Quantity: 1}

	tests := []struct {
		name   string
		mutate func(r *order.PlaceOrderRequest)
		kind   apperr.Kind
	}{
		{"no items", func(r *order.PlaceOrderRequest) { r.Items = nil }, apperr.Validation},
		{"zero quantity", func(r *order.PlaceOrderRequest) { r.Items[0].Quantity = 0 }, apperr.Validation},
		{"negative quantity", func(r *order.PlaceOrderRequest) { r.Items[0].Quantity = -1 }, apperr.Validation},
		{"quantity over cap", func(r *order.PlaceOrderRequest) { r.Items[0].Quantity = order.MaxQuantity + 1 }, apperr.Validation},
		{"huge quantity", func(r *order.PlaceOrderRequest) { r.Items[0].Quantity = 1_000_000_000 }, apperr.Validation},
		{"missing zip", func(r *order.PlaceOrderRequest) { r.Delivery.Zip = " " }, apperr.Validation},
		{"missing name", func(r *order.PlaceOrderRequest) { r.Delivery.CustomerName = "" }, apperr.Validation},
		{"bad payment", func(r *order.PlaceOrderRequest) { r.PaymentMethod = "BITCOIN" }, apperr.Validation},
		{"unknown restaurant", func(r *order.PlaceOrderRequest) { r.RestaurantID = 9999 }, apperr.NotFound},
		{"unknown item", func(r *order.PlaceOrderRequest) { r.Items[0].MenuItemID = 9999 }, apperr.NotFound},
		{"foreign item", func(r *order.PlaceOrderRequest) { r.Items[0].MenuItemID = f.menuB[0].ID }, apperr.Validation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request(f.restA, item)
			tt.mutate(&req)

			_, err := f.svc.PlaceOrder(context.Background(), f.customer, req)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err), err)
		})
	}

	orders, err := f.svc.ListMine(context.Background(), f.customer)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.events.types())
}

func TestPlaceOrder_MaxQuantity(t *testing.T) {
	f := newFixture(t, order.Options{})

	o, err := f.svc.PlaceOrder(context.Background(), f.customer,
		f.request(f.restA, order.LineItem{MenuItemID: f.menuA[1].ID, Quantity: order.MaxQuantity}))
	require.NoError(t, err)
	assert.Equal(t, "3250.00", o.Total.StringFixed(2))
}

func TestPlaceOrder_TotalOverflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.Options{})
	pricey := catalog.MenuItem{RestaurantID: f.restA, Name: "Caviar", Price: decimal.RequireFromString("99999999.99")}
	require.NoError(t, f.store.Menu().Create(ctx, &pricey))

	_, err := f.svc.PlaceOrder(ctx, f.customer,
		f.request(f.restA, order.LineItem{MenuItemID: pricey.ID, Quantity: 2}))
	require.ErrorIs(t, err, apperr.ErrValidation)

	orders, err := f.svc.ListMine(ctx, f.customer)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.events.types())
}

func TestPlaceOrder_UnknownCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.Options{})
	ghost := auth.Identity{UserID: 9999, Email: "ghost@example.com", Role: user.RoleCustomer}

	_, err := f.svc.PlaceOrder(ctx, ghost,
		f.request(f.restA, order.LineItem{MenuItemID: f.menuA[0].ID, Quantity: 1}))
	require.ErrorIs(t, err, apperr.ErrNotFound)

	orders, err := f.svc.ListMine(ctx, ghost)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.events.types())
}

func TestPlaceOrder_ForeignItemsAllowed(t *testing.T) {
	f := newFixture(t, order.Options{AllowForeignItems: true})

	o, err := f.svc.PlaceOrder(context.Background(), f.customer,
		f.request(f.restA, order.LineItem{MenuItemID: f.menuB[0].ID, Quantity: 1}))
	require.NoError(t, err)
	assert.Equal(t, f.restA, o.RestaurantID)
	assert.Equal(t, "9.99", o.Total.StringFixed(2))
}

func TestPlaceOrder_NumberExhaustedRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.Options{NewNumber: func() string { return "ORDFIXED01" }})
	f.place(t)

	_, err := f.svc.PlaceOrder(ctx, f.customer,
		f.request(f.restA, order.LineItem{MenuItemID: f.menuA[0].ID, Quantity: 1}))
	require.Error(t, err)
	assert.Equal(t, apperr.Internal, apperr.KindOf(err))

	orders, err := f.svc.ListMine(ctx, f.customer)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

type memIdempotency struct {
	mu       sync.Mutex
	keys     map[string]int64
	released []string
}

func (m *memIdempotency) Claim(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.keys[key]; ok {
		return id, false, nil
	}
	m.keys[key] = 0
	return 0, true, nil
}

func (m *memIdempotency) Complete(_ context.Context, key string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[key] = id
	return nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	m.released = append(m.released, key)
	return nil
}

func TestPlaceOrder_Idempotency(t *testing.T) {
	ctx := context.Background()
	store := &memIdempotency{keys: map[string]int64{}}
	f := newFixture(t, order.Options{Idempotency: store})

	req := f.request(f.restA, order.LineItem{MenuItemID: f.menuA[0].ID, Quantity: 1})
	req.IdempotencyKey = "checkout-1"

	first, err := f.svc.PlaceOrder(ctx, f.customer, req)
	require.NoError(t, err)
	second, err := f.svc.PlaceOrder(ctx, f.customer, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	orders, err := f.svc.ListMine(ctx, f.customer)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	// A failed attempt frees its key for the retry.
	bad := req
	bad.IdempotencyKey = "checkout-2"
	bad.Items = []order.LineItem{{MenuItemID: 9999, Quantity: 1}}
	_, err = f.svc.PlaceOrder(ctx, f.customer, bad)
	require.Error(t, err)
	assert.Len(t, store.released, 1)

	bad.Items = req.Items
	_, err = f.svc.PlaceOrder(ctx, f.customer, bad)
	require.NoError(t, err)
}

func TestPlaceOrder_IdempotencyInFlight(t *testing.T) {
	store := &memIdempotency{keys: map[string]int64{}}
	f := newFixture(t, order.Options{Idempotency: store})
	store.keys["order:"+strconv.FormatInt(f.customer.UserID, 10)+":k"] = 0

	req := f.request(f.restA, order.LineItem{MenuItemID: f.menuA[0].ID, Quantity: 1})
	req.IdempotencyKey = "k"
	_, err := f.svc.PlaceOrder(context.Background(), f.customer, req)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.Options{})
	o := f.place(t)

	_, err := f.svc.UpdateStatus(ctx, f.customer, o.ID, order.StatusConfirmed)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, f.vendorB, o.ID, order.StatusConfirmed)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.UpdateStatus(ctx, f.admin, o.ID, order.Status("LOST"))
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := f.svc.UpdateStatus(ctx, f.vendorA, o.ID, order.StatusOutForDelivery)
	require.NoError(t, err)
	assert.Equal(t, order.StatusOutForDelivery, got.Status)
	assert.Equal(t, order.DeliveryOutForDelivery, got.Delivery.Status)

	got, err = f.svc.UpdateStatus(ctx, f.admin, o.ID, order.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, order.DeliveryDelivered, got.Delivery.Status)
	require.NotNil(t, got.Delivery.DeliveredAt)

	// Setting an arbitrary status back is allowed; only cancel is guarded.
	got, err = f.svc.UpdateStatus(ctx, f.admin, o.ID, order.StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPreparing, got.Status)

	// Same status is a no-op without an event.
	before := len(f.events.types())
	_, err = f.svc.UpdateStatus(ctx, f.admin, o.ID, order.StatusPreparing)
	require.NoError(t, err)
	assert.Len(t, f.events.types(), before)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	for _, from := range []order.Status{
		order.StatusPending, order.StatusConfirmed, order.StatusPreparing, order.StatusOutForDelivery,
	} {
		t.Run(string(from), func(t *testing.T) {
			f := newFixture(t, order.Options{})
			o := f.place(t)
			if from != order.StatusPending {
				_, err := f.svc.UpdateStatus(ctx, f.admin, o.ID, from)
				require.NoError(t, err)
			}

			got, err := f.svc.Cancel(ctx, f.customer, o.ID)
			require.NoError(t, err)
			assert.Equal(t, order.StatusCancelled, got.Status)
			assert.Equal(t, order.PaymentRefunded, got.Payment.Status)
			assert.Equal(t, order.DeliveryCancelled, got.Delivery.Status)
		})
	}

	for _, from := range []order.Status{order.StatusDelivered, order.StatusCancelled} {
		t.Run("from "+string(from), func(t *testing.T) {
			f := newFixture(t, order.Options{})
			o := f.place(t)
			_, err := f.svc.UpdateStatus(ctx, f.admin, o.ID, from)
			require.NoError(t, err)

			_, err = f.svc.Cancel(ctx, f.customer, o.ID)
			assert.ErrorIs(t, err, apperr.ErrInvalidState)
		})
	}
}

func TestCancel_Access(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.Options{})
	o := f.place(t)

	stranger := auth.Identity{UserID: 4242, Role: user.RoleCustomer}
	_, err := f.svc.Cancel(ctx, stranger, o.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Cancel(ctx, f.vendorB, o.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.Cancel(ctx, f.customer, 9999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Cancel(ctx, f.vendorA, o.ID)
	require.NoError(t, err)
}

func TestCancel_ConcurrentOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.Options{})
	o := f.place(t)

	const n = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Cancel(ctx, f.customer, o.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperr.ErrInvalidState):
				losses++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, losses)
}

func TestListing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, order.Options{})
	o := f.place(t)

	list, err := f.svc.ListForVendor(ctx, f.vendorA)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, o.ID, list[0].ID)

	list, err = f.svc.ListForVendor(ctx, f.vendorB)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.ListByStatus(ctx, f.vendorA, order.StatusPending)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	list, err = f.svc.ListByStatus(ctx, f.admin, order.StatusPending)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	got, err := f.svc.GetByNumber(ctx, f.customer, " "+o.Number+" ")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
}

