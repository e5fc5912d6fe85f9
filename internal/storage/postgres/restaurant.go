package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/catalog"
)

const (
	restaurantColumns = `id, name, cuisine, rating, delivery_time, min_order, image, address, is_open, owner_id`

	listRestaurantsSQL     = `SELECT ` + restaurantColumns + ` FROM restaurants ORDER BY id`
	listOpenRestaurantsSQL = `SELECT ` + restaurantColumns + ` FROM restaurants WHERE is_open ORDER BY id`
	searchRestaurantsSQL   = `SELECT ` + restaurantColumns + ` FROM restaurants
		WHERE name ILIKE $1 OR cuisine ILIKE $1 ORDER BY id`
	getRestaurantByIDSQL    = `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id = $1`
	getRestaurantByOwnerSQL = `SELECT ` + restaurantColumns + ` FROM restaurants WHERE owner_id = $1`

	createRestaurantSQL = `INSERT INTO restaurants
		(name, cuisine, rating, delivery_time, min_order, image, address, is_open, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	updateRestaurantSQL = `UPDATE restaurants
		SET name = $2, cuisine = $3, rating = $4, delivery_time = $5, min_order = $6,
		    image = $7, address = $8, is_open = $9
		WHERE id = $1`
)

var _ catalog.RestaurantRepository = (*RestaurantRepository)(nil)

// RestaurantRepository implements catalog.RestaurantRepository backed by
// PostgreSQL.
type RestaurantRepository struct {
	conn
}

// NewRestaurantRepository returns a RestaurantRepository that uses the given pool.
func NewRestaurantRepository(pool *pgxpool.Pool) *RestaurantRepository {
	return &RestaurantRepository{conn{pool: pool}}
}

func (r *RestaurantRepository) List(ctx context.Context) ([]catalog.Restaurant, error) {
	return r.list(ctx, listRestaurantsSQL)
}

func (r *RestaurantRepository) ListOpen(ctx context.Context) ([]catalog.Restaurant, error) {
	return r.list(ctx, listOpenRestaurantsSQL)
}

func (r *RestaurantRepository) Search(ctx context.Context, q string) ([]catalog.Restaurant, error) {
	return r.list(ctx, searchRestaurantsSQL, "%"+escapeLike(q)+"%")
}

func (r *RestaurantRepository) GetByID(ctx context.Context, id int64) (*catalog.Restaurant, error) {
	return r.getOne(ctx, getRestaurantByIDSQL, id)
}

func (r *RestaurantRepository) GetByOwner(ctx context.Context, ownerID int64) (*catalog.Restaurant, error) {
	return r.getOne(ctx, getRestaurantByOwnerSQL, ownerID)
}

func (r *RestaurantRepository) Create(ctx context.Context, x *catalog.Restaurant) error {
	err := r.q(ctx).QueryRow(ctx, createRestaurantSQL,
		x.Name, x.Cuisine, x.Rating, x.DeliveryTime, x.MinOrder, x.Image, x.Address, x.IsOpen, nullID(x.OwnerID),
	).Scan(&x.ID)
	if err != nil {
		if _, ok := constraintViolation(err, codeUniqueViolation); ok {
			return apperr.Wrap(err, apperr.Conflict, fmt.Sprintf("owner %d already has a restaurant", x.OwnerID))
		}
		return errors.Wrapf(err, "create restaurant %q", x.Name)
	}
	return nil
}

func (r *RestaurantRepository) Update(ctx context.Context, x *catalog.Restaurant) error {
	tag, err := r.q(ctx).Exec(ctx, updateRestaurantSQL,
		x.ID, x.Name, x.Cuisine, x.Rating, x.DeliveryTime, x.MinOrder, x.Image, x.Address, x.IsOpen,
	)
	if err != nil {
		return errors.Wrapf(err, "update restaurant %d", x.ID)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrRestaurantNotFound
	}
	return nil
}

func (r *RestaurantRepository) list(ctx context.Context, sql string, args ...any) ([]catalog.Restaurant, error) {
	rows, err := r.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list restaurants")
	}
	return pgx.CollectRows(rows, scanRestaurant)
}

func (r *RestaurantRepository) getOne(ctx context.Context, sql string, arg any) (*catalog.Restaurant, error) {
	rows, err := r.q(ctx).Query(ctx, sql, arg)
	if err != nil {
		return nil, errors.Wrap(err, "get restaurant")
	}
	x, err := pgx.CollectExactlyOneRow(rows, scanRestaurant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrRestaurantNotFound
		}
		return nil, errors.Wrap(err, "get restaurant")
	}
	return &x, nil
}

func scanRestaurant(row pgx.CollectableRow) (catalog.Restaurant, error) {
	var (
		x       catalog.Restaurant
		ownerID *int64
	)
	err := row.Scan(
		&x.ID, &x.Name, &x.Cuisine, &x.Rating, &x.DeliveryTime,
		&x.MinOrder, &x.Image, &x.Address, &x.IsOpen, &ownerID,
	)
	if ownerID != nil {
		x.OwnerID = *ownerID
	}
	return x, err
}

func nullID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
