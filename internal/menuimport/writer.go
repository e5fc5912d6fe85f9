package menuimport

import (
	"context"
	"strconv"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"

	"github.com/xenking/tastetrack/internal/domain/catalog"
)

// RestaurantLister lists every restaurant.
type RestaurantLister interface {
	List(ctx context.Context) ([]catalog.Restaurant, error)
}

// MenuStore reads and inserts menu items.
type MenuStore interface {
	ListByRestaurant(ctx context.Context, restaurantID int64) ([]catalog.MenuItem, error)
	Create(ctx context.Context, m *catalog.MenuItem) error
}

// Stats counts the outcome of Write calls.
type Stats struct {
	Inserted   int
	Duplicates int
	// Orphans are items whose restaurant does not exist.
	Orphans int
}

// Writer inserts parsed items, skipping ones whose restaurant already lists
// an item with the same name, ignoring case. The bloom filter answers most
// lookups; a hit is confirmed against the restaurant's full menu, fetched once.
type Writer struct {
	restaurants RestaurantLister
	menu        MenuStore
	filter      *bloom.BloomFilter
	exact       map[int64]map[string]struct{}
	stats       Stats
}

// NewWriter returns a Writer sized for about capacity items at false
// positive rate fpr.
func NewWriter(restaurants RestaurantLister, menu MenuStore, capacity uint, fpr float64) *Writer {
	return &Writer{
		restaurants: restaurants,
		menu:        menu,
		filter:      bloom.NewWithEstimates(capacity, fpr),
		exact:       make(map[int64]map[string]struct{}),
	}
}

func itemKey(restaurantID int64, name string) string {
	return strconv.FormatInt(restaurantID, 10) + "|" + strings.ToLower(name)
}

// Preload seeds the filter with every stored item and returns how many
// restaurants and items it saw.
func (w *Writer) Preload(ctx context.Context) (restaurants, items int, _ error) {
	list, err := w.restaurants.List(ctx)
	if err != nil {
		return 0, 0, errors.Wrap(err, "list restaurants")
	}
	for _, r := range list {
		menu, err := w.menu.ListByRestaurant(ctx, r.ID)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "list menu of restaurant %d", r.ID)
		}
		for _, m := range menu {
			w.filter.AddString(itemKey(r.ID, m.Name))
			items++
		}
	}
	return len(list), items, nil
}

func (w *Writer) exists(ctx context.Context, m catalog.MenuItem) (bool, error) {
	if !w.filter.TestString(itemKey(m.RestaurantID, m.Name)) {
		return false, nil
	}

	names, ok := w.exact[m.RestaurantID]
	if !ok {
		items, err := w.menu.ListByRestaurant(ctx, m.RestaurantID)
		if err != nil {
			return false, errors.Wrapf(err, "list menu of restaurant %d", m.RestaurantID)
		}
		names = make(map[string]struct{}, len(items))
		for _, it := range items {
			names[strings.ToLower(it.Name)] = struct{}{}
		}
		w.exact[m.RestaurantID] = names
	}

	_, found := names[strings.ToLower(m.Name)]
	return found, nil
}

// Write inserts items in order and updates the running Stats.
func (w *Writer) Write(ctx context.Context, items []catalog.MenuItem) error {
	for i := range items {
		m := items[i]

		dup, err := w.exists(ctx, m)
		if err != nil {
			return err
		}
		if dup {
			w.stats.Duplicates++
			continue
		}

		if err := w.menu.Create(ctx, &m); err != nil {
			if errors.Is(err, catalog.ErrRestaurantNotFound) {
				w.stats.Orphans++
				continue
			}
			return errors.Wrapf(err, "insert %q", m.Name)
		}

		w.filter.AddString(itemKey(m.RestaurantID, m.Name))
		if names, ok := w.exact[m.RestaurantID]; ok {
			names[strings.ToLower(m.Name)] = struct{}{}
		}
		w.stats.Inserted++
	}
	return nil
}

// Stats returns the counts accumulated so far.
func (w *Writer) Stats() Stats { return w.stats }
