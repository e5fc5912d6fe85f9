package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/catalog"
)

const (
	menuColumns = `id, restaurant_id, name, description, price, image, category, is_veg, rating`

	listMenuSQL           = `SELECT ` + menuColumns + ` FROM menu_items WHERE restaurant_id = $1 ORDER BY id`
	listMenuByCategorySQL = `SELECT ` + menuColumns + ` FROM menu_items
		WHERE restaurant_id = $1 AND lower(category) = lower($2) ORDER BY id`
	getMenuItemSQL   = `SELECT ` + menuColumns + ` FROM menu_items WHERE id = $1`
	getMenuItemsSQL  = `SELECT ` + menuColumns + ` FROM menu_items WHERE id = ANY($1)`
	createMenuSQL    = `INSERT INTO menu_items (restaurant_id, name, description, price, image, category, is_veg, rating)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	updateMenuSQL = `UPDATE menu_items
		SET name = $2, description = $3, price = $4, image = $5, category = $6, is_veg = $7, rating = $8
		WHERE id = $1`
	deleteMenuSQL = `DELETE FROM menu_items WHERE id = $1`
)

var _ catalog.MenuRepository = (*MenuRepository)(nil)

// MenuRepository implements catalog.MenuRepository backed by PostgreSQL.
type MenuRepository struct {
	conn
}

// NewMenuRepository returns a MenuRepository that uses the given pool.
func NewMenuRepository(pool *pgxpool.Pool) *MenuRepository {
	return &MenuRepository{conn{pool: pool}}
}

func (r *MenuRepository) ListByRestaurant(ctx context.Context, restaurantID int64) ([]catalog.MenuItem, error) {
	return r.list(ctx, listMenuSQL, restaurantID)
}

func (r *MenuRepository) ListByCategory(ctx context.Context, restaurantID int64, category string) ([]catalog.MenuItem, error) {
	return r.list(ctx, listMenuByCategorySQL, restaurantID, category)
}

func (r *MenuRepository) GetByID(ctx context.Context, id int64) (*catalog.MenuItem, error) {
	rows, err := r.q(ctx).Query(ctx, getMenuItemSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get menu item %d", id)
	}
	m, err := pgx.CollectExactlyOneRow(rows, scanMenuItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrMenuItemNotFound
		}
		return nil, errors.Wrapf(err, "get menu item %d", id)
	}
	return &m, nil
}

func (r *MenuRepository) GetByIDs(ctx context.Context, ids []int64) ([]catalog.MenuItem, error) {
	return r.list(ctx, getMenuItemsSQL, ids)
}

func (r *MenuRepository) Create(ctx context.Context, m *catalog.MenuItem) error {
	err := r.q(ctx).QueryRow(ctx, createMenuSQL,
		m.RestaurantID, m.Name, m.Description, m.Price, m.Image, m.Category, m.IsVeg, m.Rating,
	).Scan(&m.ID)
	if err != nil {
		if _, ok := constraintViolation(err, codeForeignKeyViolation); ok {
			return catalog.ErrRestaurantNotFound
		}
		return errors.Wrapf(err, "create menu item %q", m.Name)
	}
	return nil
}

func (r *MenuRepository) Update(ctx context.Context, m *catalog.MenuItem) error {
	tag, err := r.q(ctx).Exec(ctx, updateMenuSQL,
		m.ID, m.Name, m.Description, m.Price, m.Image, m.Category, m.IsVeg, m.Rating,
	)
	if err != nil {
		return errors.Wrapf(err, "update menu item %d", m.ID)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrMenuItemNotFound
	}
	return nil
}

func (r *MenuRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q(ctx).Exec(ctx, deleteMenuSQL, id)
	if err != nil {
		if _, ok := constraintViolation(err, codeForeignKeyViolation); ok {
			return apperr.Wrap(err, apperr.Conflict, fmt.Sprintf("menu item %d is referenced by orders", id))
		}
		return errors.Wrapf(err, "delete menu item %d", id)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrMenuItemNotFound
	}
	return nil
}

func (r *MenuRepository) list(ctx context.Context, sql string, args ...any) ([]catalog.MenuItem, error) {
	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list menu items")
	}
	return pgx.CollectRows(rows, scanMenuItem)
}

func scanMenuItem(row pgx.CollectableRow) (catalog.MenuItem, error) {
	var m catalog.MenuItem
	err := row.Scan(
		&m.ID, &m.RestaurantID, &m.Name, &m.Description, &m.Price,
		&m.Image, &m.Category, &m.IsVeg, &m.Rating,
	)
	return m, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
