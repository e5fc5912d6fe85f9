package memory

import (
	"context"
	"time"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/user"
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository.
type UserRepository struct{ s *Store }

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	defer r.s.lock(ctx)()
	u, ok := r.s.data.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	defer r.s.lock(ctx)()
	if u, ok := r.byEmail(email); ok {
		return &u, nil
	}
	return nil, user.ErrNotFound
}

func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	defer r.s.lock(ctx)()
	_, ok := r.byEmail(email)
	return ok, nil
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	defer r.s.lock(ctx)()
	if _, ok := r.byEmail(u.Email); ok {
		return apperr.New(apperr.Conflict, "email %s is already registered", u.Email)
	}
	u.ID = r.s.data.nextID()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	r.s.data.users[u.ID] = *u
	return nil
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.data.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	r.s.data.users[u.ID] = *u
	return nil
}

func (r *UserRepository) byEmail(email string) (user.User, bool) {
	email = user.NormalizeEmail(email)
	for _, u := range r.s.data.users {
		if user.NormalizeEmail(u.Email) == email {
			return u, true
		}
	}
	return user.User{}, false
}
