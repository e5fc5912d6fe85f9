package catalog

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
)

// Service exposes the public, read-only catalog.
type Service struct {
	restaurants RestaurantRepository
	menu        MenuRepository
}

// NewService creates a catalog Service.
func NewService(restaurants RestaurantRepository, menu MenuRepository) *Service {
	return &Service{restaurants: restaurants, menu: menu}
}

func (s *Service) Restaurants(ctx context.Context) ([]Restaurant, error) {
	return s.restaurants.List(ctx)
}

func (s *Service) OpenRestaurants(ctx context.Context) ([]Restaurant, error) {
	return s.restaurants.ListOpen(ctx)
}

// SearchRestaurants returns every restaurant for a blank query.
func (s *Service) SearchRestaurants(ctx context.Context, q string) ([]Restaurant, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return s.restaurants.List(ctx)
	}
	return s.restaurants.Search(ctx, q)
}

func (s *Service) Restaurant(ctx context.Context, id int64) (*Restaurant, error) {
	return s.restaurants.GetByID(ctx, id)
}

// Menu lists a restaurant's items. Unknown restaurants yield NotFound rather
// than an empty menu.
func (s *Service) Menu(ctx context.Context, restaurantID int64) ([]MenuItem, error) {
	if _, err := s.restaurants.GetByID(ctx, restaurantID); err != nil {
		return nil, err
	}
	items, err := s.menu.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, errors.Wrap(err, "list menu")
	}
	return items, nil
}

func (s *Service) MenuByCategory(ctx context.Context, restaurantID int64, category string) ([]MenuItem, error) {
	if _, err := s.restaurants.GetByID(ctx, restaurantID); err != nil {
		return nil, err
	}
	items, err := s.menu.ListByCategory(ctx, restaurantID, category)
	if err != nil {
		return nil, errors.Wrap(err, "list menu by category")
	}
	return items, nil
}

func (s *Service) MenuItem(ctx context.Context, id int64) (*MenuItem, error) {
	return s.menu.GetByID(ctx, id)
}
