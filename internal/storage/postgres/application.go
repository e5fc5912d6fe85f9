package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/application"
)

const (
	applicationColumns = `id, name, email, phone, address, description, password_hash, status,
		submitted_at, processed_at, processed_by, rejection_reason`

	createApplicationSQL = `INSERT INTO restaurant_applications
		(name, email, phone, address, description, password_hash, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	getApplicationSQL          = `SELECT ` + applicationColumns + ` FROM restaurant_applications WHERE id = $1`
	getApplicationForUpdateSQL = getApplicationSQL + ` FOR UPDATE`
	applicationExistsSQL       = `SELECT EXISTS (SELECT 1 FROM restaurant_applications WHERE lower(email) = lower($1))`

	listApplicationsSQL = `SELECT ` + applicationColumns + ` FROM restaurant_applications
		WHERE $1 = '' OR status = $1
		ORDER BY submitted_at DESC, id DESC`

	decideApplicationSQL = `UPDATE restaurant_applications
		SET status = $2, processed_at = $3, processed_by = $4, rejection_reason = $5
		WHERE id = $1 AND status = 'PENDING'`
)

var _ application.Repository = (*ApplicationRepository)(nil)

// ApplicationRepository implements application.Repository backed by
// PostgreSQL.
type ApplicationRepository struct {
	conn
}

// NewApplicationRepository returns an ApplicationRepository that uses the
// given pool.
func NewApplicationRepository(pool *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{conn{pool: pool}}
}

func (r *ApplicationRepository) Create(ctx context.Context, a *application.Application) error {
	err := r.q(ctx).QueryRow(ctx, createApplicationSQL,
		a.Name, a.Email, a.Phone, a.Address, a.Description, a.PasswordHash, string(a.Status), a.SubmittedAt,
	).Scan(&a.ID)
	if err != nil {
		if _, ok := constraintViolation(err, codeUniqueViolation); ok {
			return apperr.Wrap(err, apperr.Conflict, "an application for "+a.Email+" already exists")
		}
		return errors.Wrapf(err, "create application %q", a.Email)
	}
	return nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*application.Application, error) {
	return r.getOne(ctx, getApplicationSQL, id)
}

// GetForUpdate takes a row lock; it must run inside a transaction to hold it.
func (r *ApplicationRepository) GetForUpdate(ctx context.Context, id int64) (*application.Application, error) {
	return r.getOne(ctx, getApplicationForUpdateSQL, id)
}

func (r *ApplicationRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	if err := r.q(ctx).QueryRow(ctx, applicationExistsSQL, email).Scan(&exists); err != nil {
		return false, errors.Wrap(err, "check application email")
	}
	return exists, nil
}

func (r *ApplicationRepository) List(ctx context.Context, status application.Status) ([]application.Application, error) {
	rows, err := r.q(ctx).Query(ctx, listApplicationsSQL, string(status))
	if err != nil {
		return nil, errors.Wrap(err, "list applications")
	}
	return pgx.CollectRows(rows, scanApplication)
}

// Decide is conditional on the PENDING status so concurrent reviewers cannot
// both succeed.
func (r *ApplicationRepository) Decide(ctx context.Context, d application.Decision) error {
	tag, err := r.q(ctx).Exec(ctx, decideApplicationSQL,
		d.ID, string(d.Status), d.ProcessedAt, d.ProcessedBy, d.RejectionReason,
	)
	if err != nil {
		return errors.Wrapf(err, "decide application %d", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return application.ErrAlreadyProcessed
	}
	return nil
}

func (r *ApplicationRepository) getOne(ctx context.Context, sql string, id int64) (*application.Application, error) {
	rows, err := r.q(ctx).Query(ctx, sql, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get application %d", id)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanApplication)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, application.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get application %d", id)
	}
	return &a, nil
}

func scanApplication(row pgx.CollectableRow) (application.Application, error) {
	var (
		a      application.Application
		status string
	)
	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.Phone, &a.Address, &a.Description, &a.PasswordHash, &status,
		&a.SubmittedAt, &a.ProcessedAt, &a.ProcessedBy, &a.RejectionReason,
	)
	a.Status = application.Status(status)
	return a, err
}
