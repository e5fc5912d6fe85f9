package catalog_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/catalog"
	"github.com/xenking/tastetrack/internal/storage/memory"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := catalog.NewService(store.Restaurants(), store.Menu())

	open := &catalog.Restaurant{Name: "Sushi Go", Cuisine: "Japanese", IsOpen: true}
	closed := &catalog.Restaurant{Name: "Curry House", Cuisine: "Indian"}
	require.NoError(t, store.Restaurants().Create(ctx, open))
	require.NoError(t, store.Restaurants().Create(ctx, closed))
	for _, m := range []catalog.MenuItem{
		{RestaurantID: open.ID, Name: "Maki", Category: "Rolls", Price: decimal.NewFromInt(6)},
		{RestaurantID: open.ID, Name: "Miso", Category: "Soups", Price: decimal.NewFromInt(3)},
	} {
		require.NoError(t, store.Menu().Create(ctx, &m))
	}

	all, err := svc.Restaurants(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	openList, err := svc.OpenRestaurants(ctx)
	require.NoError(t, err)
	require.Len(t, openList, 1)
	assert.Equal(t, "Sushi Go", openList[0].Name)

	found, err := svc.SearchRestaurants(ctx, "indian")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, closed.ID, found[0].ID)

	found, err = svc.SearchRestaurants(ctx, "  ")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	menu, err := svc.Menu(ctx, open.ID)
	require.NoError(t, err)
	assert.Len(t, menu, 2)

	soups, err := svc.MenuByCategory(ctx, open.ID, "Soups")
	require.NoError(t, err)
	require.Len(t, soups, 1)
	assert.Equal(t, "Miso", soups[0].Name)

	_, err = svc.Menu(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Restaurant(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.MenuItem(ctx, 999)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
