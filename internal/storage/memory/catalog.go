package memory

import (
	"cmp"
	"context"
	"strings"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/catalog"
)

var (
	_ catalog.RestaurantRepository = (*RestaurantRepository)(nil)
	_ catalog.MenuRepository       = (*MenuRepository)(nil)
)

// RestaurantRepository implements catalog.RestaurantRepository.
type RestaurantRepository struct{ s *Store }

func (r *RestaurantRepository) List(ctx context.Context) ([]catalog.Restaurant, error) {
	return r.filter(ctx, func(catalog.Restaurant) bool { return true }), nil
}

func (r *RestaurantRepository) ListOpen(ctx context.Context) ([]catalog.Restaurant, error) {
	return r.filter(ctx, func(x catalog.Restaurant) bool { return x.IsOpen }), nil
}

func (r *RestaurantRepository) Search(ctx context.Context, q string) ([]catalog.Restaurant, error) {
	q = strings.ToLower(q)
	return r.filter(ctx, func(x catalog.Restaurant) bool {
		return strings.Contains(strings.ToLower(x.Name), q) ||
			strings.Contains(strings.ToLower(x.Cuisine), q)
	}), nil
}

func (r *RestaurantRepository) GetByID(ctx context.Context, id int64) (*catalog.Restaurant, error) {
	defer r.s.lock(ctx)()
	x, ok := r.s.data.restaurants[id]
	if !ok {
		return nil, catalog.ErrRestaurantNotFound
	}
	return &x, nil
}

func (r *RestaurantRepository) GetByOwner(ctx context.Context, ownerID int64) (*catalog.Restaurant, error) {
	defer r.s.lock(ctx)()
	if x, ok := r.byOwner(ownerID); ok {
		return &x, nil
	}
	return nil, catalog.ErrRestaurantNotFound
}

func (r *RestaurantRepository) Create(ctx context.Context, x *catalog.Restaurant) error {
	defer r.s.lock(ctx)()
	if x.OwnerID != 0 {
		if _, ok := r.byOwner(x.OwnerID); ok {
			return apperr.New(apperr.Conflict, "owner %d already has a restaurant", x.OwnerID)
		}
	}
	x.ID = r.s.data.nextID()
	r.s.data.restaurants[x.ID] = *x
	return nil
}

func (r *RestaurantRepository) Update(ctx context.Context, x *catalog.Restaurant) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.data.restaurants[x.ID]; !ok {
		return catalog.ErrRestaurantNotFound
	}
	r.s.data.restaurants[x.ID] = *x
	return nil
}

func (r *RestaurantRepository) byOwner(ownerID int64) (catalog.Restaurant, bool) {
	for _, x := range r.s.data.restaurants {
		if x.OwnerID == ownerID {
			return x, true
		}
	}
	return catalog.Restaurant{}, false
}

func (r *RestaurantRepository) filter(ctx context.Context, keep func(catalog.Restaurant) bool) []catalog.Restaurant {
	defer r.s.lock(ctx)()
	var out []catalog.Restaurant
	for _, x := range sortedValues(r.s.data.restaurants, byRestaurantID) {
		if keep(x) {
			out = append(out, x)
		}
	}
	return out
}

func byRestaurantID(a, b catalog.Restaurant) int { return cmp.Compare(a.ID, b.ID) }

// MenuRepository implements catalog.MenuRepository.
type MenuRepository struct{ s *Store }

func (r *MenuRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]catalog.MenuItem, error) {
	return r.filter(ctx, func(m catalog.MenuItem) bool { return m.RestaurantID == restaurantID }), nil
}

func (r *MenuRepository) ListByCategory(ctx context.Context, restaurantID int64, category string) ([]catalog.MenuItem, error) {
	return r.filter(ctx, func(m catalog.MenuItem) bool {
		return m.RestaurantID == restaurantID && strings.EqualFold(m.Category, category)
	}), nil
}

func (r *MenuRepository) GetByID(ctx context.Context, id int64) (*catalog.MenuItem, error) {
	defer r.s.lock(ctx)()
	m, ok := r.s.data.menu[id]
	if !ok {
		return nil, catalog.ErrMenuItemNotFound
	}
	return &m, nil
}

func (r *MenuRepository) GetByIDs(ctx context.Context, ids []int64) ([]catalog.MenuItem, error) {
	defer r.s.lock(ctx)()
	out := make([]catalog.MenuItem, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if m, ok := r.s.data.menu[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *MenuRepository) Create(ctx context.Context, m *catalog.MenuItem) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.data.restaurants[m.RestaurantID]; !ok {
		return catalog.ErrRestaurantNotFound
	}
	m.ID = r.s.data.nextID()
	r.s.data.menu[m.ID] = *m
	return nil
}

func (r *MenuRepository) Update(ctx context.Context, m *catalog.MenuItem) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.data.menu[m.ID]; !ok {
		return catalog.ErrMenuItemNotFound
	}
	r.s.data.menu[m.ID] = *m
	return nil
}

func (r *MenuRepository) Delete(ctx context.Context, id int64) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.data.menu[id]; !ok {
		return catalog.ErrMenuItemNotFound
	}
	for _, o := range r.s.data.orders {
		for _, it := range o.Items {
			if it.MenuItemID == id {
				return apperr.New(apperr.Conflict, "menu item %d is referenced by orders", id)
			}
		}
	}
	delete(r.s.data.menu, id)
	return nil
}

func (r *MenuRepository) filter(ctx context.Context, keep func(catalog.MenuItem) bool) []catalog.MenuItem {
	defer r.s.lock(ctx)()
	var out []catalog.MenuItem
	for _, m := range sortedValues(r.s.data.menu, func(a, b catalog.MenuItem) int { return cmp.Compare(a.ID, b.ID) }) {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
