// Package catalog holds restaurants and their menus.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xenking/tastetrack/internal/domain/apperr"
)

// Defaults applied to a restaurant created from an approved application.
const (
	DefaultCuisine      = "Multi-Cuisine"
	DefaultDeliveryTime = "30-45 mins"
)

// Sentinel errors returned by repositories.
var (
	ErrRestaurantNotFound = apperr.New(apperr.NotFound, "restaurant not found")
	ErrMenuItemNotFound   = apperr.New(apperr.NotFound, "menu item not found")
)

// Restaurant is a storefront. OwnerID is zero for restaurants without a vendor.
type Restaurant struct {
	ID           int64
	Name         string
	Cuisine      string
	Rating       float64
	DeliveryTime string
	MinOrder     decimal.Decimal
	Image        string
	Address      string
	IsOpen       bool
	OwnerID      int64
}

// MenuItem is a priced dish offered by one restaurant.
type MenuItem struct {
	ID           int64
	RestaurantID int64
	Name         string
	Description  string
	Price        decimal.Decimal
	Image        string
	Category     string
	IsVeg        bool
	Rating       float64
}

// RestaurantRepository defines persistence operations for restaurants.
type RestaurantRepository interface {
	List(ctx context.Context) ([]Restaurant, error)
	ListOpen(ctx context.Context) ([]Restaurant, error)
	// Search matches q as a case-insensitive substring of name or cuisine.
	Search(ctx context.Context, q string) ([]Restaurant, error)
	GetByID(ctx context.Context, id int64) (*Restaurant, error)
	GetByOwner(ctx context.Context, ownerID int64) (*Restaurant, error)
	// Create assigns ID. A second restaurant for the same owner yields an
	// apperr.Conflict.
	Create(ctx context.Context, r *Restaurant) error
	Update(ctx context.Context, r *Restaurant) error
}

// MenuRepository defines persistence operations for menu items.
type MenuRepository interface {
	ListByRestaurant(ctx context.Context, restaurantID int64) ([]MenuItem, error)
	ListByCategory(ctx context.Context, restaurantID int64, category string) ([]MenuItem, error)
	GetByID(ctx context.Context, id int64) (*MenuItem, error)
	// GetByIDs returns the items that exist; missing IDs are silently skipped.
	GetByIDs(ctx context.Context, ids []int64) ([]MenuItem, error)
	Create(ctx context.Context, m *MenuItem) error
	Update(ctx context.Context, m *MenuItem) error
	// Delete fails with apperr.Conflict while orders still reference the item.
	Delete(ctx context.Context, id int64) error
}
