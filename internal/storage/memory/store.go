// Package memory provides in-process implementations of every storage port.
//
// A Store serializes units of work: WithinTx holds the store lock for the
// whole callback and restores a snapshot when the callback fails, which gives
// the same all-or-nothing behaviour as the PostgreSQL backend.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/xenking/tastetrack/internal/domain/application"
	"github.com/xenking/tastetrack/internal/domain/catalog"
	"github.com/xenking/tastetrack/internal/domain/order"
	"github.com/xenking/tastetrack/internal/domain/txn"
	"github.com/xenking/tastetrack/internal/domain/user"
)

var _ txn.Transactor = (*Store)(nil)

type dataset struct {
	seq          int64
	users        map[int64]user.User
	restaurants  map[int64]catalog.Restaurant
	menu         map[int64]catalog.MenuItem
	orders       map[int64]order.Order
	applications map[int64]application.Application
}

func newDataset() *dataset {
	return &dataset{
		users:        make(map[int64]user.User),
		restaurants:  make(map[int64]catalog.Restaurant),
		menu:         make(map[int64]catalog.MenuItem),
		orders:       make(map[int64]order.Order),
		applications: make(map[int64]application.Application),
	}
}

func (d *dataset) clone() *dataset {
	c := &dataset{
		seq:          d.seq,
		users:        maps.Clone(d.users),
		restaurants:  maps.Clone(d.restaurants),
		menu:         maps.Clone(d.menu),
		orders:       make(map[int64]order.Order, len(d.orders)),
		applications: make(map[int64]application.Application, len(d.applications)),
	}
	for id, o := range d.orders {
		c.orders[id] = copyOrder(o)
	}
	for id, a := range d.applications {
		c.applications[id] = copyApplication(a)
	}
	return c
}

func (d *dataset) nextID() int64 {
	d.seq++
	return d.seq
}

// Store holds all entities in memory.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: newDataset()}
}

type txKey struct{ s *Store }

// WithinTx implements txn.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{s}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{s}, true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// lock acquires the store lock unless ctx already runs inside WithinTx.
func (s *Store) lock(ctx context.Context) func() {
	if ctx.Value(txKey{s}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Users returns the user.Repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Restaurants returns the catalog.RestaurantRepository view of the store.
func (s *Store) Restaurants() *RestaurantRepository { return &RestaurantRepository{s: s} }

// Menu returns the catalog.MenuRepository view of the store.
func (s *Store) Menu() *MenuRepository { return &MenuRepository{s: s} }

// Orders returns the order.Repository view of the store.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

// Applications returns the application.Repository view of the store.
func (s *Store) Applications() *ApplicationRepository { return &ApplicationRepository{s: s} }

func copyOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	if o.Delivery.DeliveredAt != nil {
		t := *o.Delivery.DeliveredAt
		o.Delivery.DeliveredAt = &t
	}
	return o
}

func copyApplication(a application.Application) application.Application {
	if a.ProcessedAt != nil {
		t := *a.ProcessedAt
		a.ProcessedAt = &t
	}
	return a
}

// sortedValues returns m's values ordered by less.
func sortedValues[K comparable, V any](m map[K]V, less func(a, b V) int) []V {
	out := slices.Collect(maps.Values(m))
	slices.SortFunc(out, less)
	return out
}
