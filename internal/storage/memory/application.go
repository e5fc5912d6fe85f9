package memory

import (
	"cmp"
	"context"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/application"
	"github.com/xenking/tastetrack/internal/domain/user"
)

var _ application.Repository = (*ApplicationRepository)(nil)

// ApplicationRepository implements application.Repository.
type ApplicationRepository struct{ s *Store }

func (r *ApplicationRepository) Create(ctx context.Context, a *application.Application) error {
	defer r.s.lock(ctx)()
	if _, ok := r.byEmail(a.Email); ok {
		return apperr.New(apperr.Conflict, "an application for %s already exists", a.Email)
	}
	a.ID = r.s.data.nextID()
	r.s.data.applications[a.ID] = copyApplication(*a)
	return nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (*application.Application, error) {
	defer r.s.lock(ctx)()
	a, ok := r.s.data.applications[id]
	if !ok {
		return nil, application.ErrNotFound
	}
	a = copyApplication(a)
	return &a, nil
}

// GetForUpdate relies on WithinTx holding the store lock.
func (r *ApplicationRepository) GetForUpdate(ctx context.Context, id int64) (*application.Application, error) {
	return r.GetByID(ctx, id)
}

func (r *ApplicationRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	defer r.s.lock(ctx)()
	_, ok := r.byEmail(email)
	return ok, nil
}

func (r *ApplicationRepository) List(ctx context.Context, status application.Status) ([]application.Application, error) {
	defer r.s.lock(ctx)()
	newest := func(a, b application.Application) int {
		if c := b.SubmittedAt.Compare(a.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	}
	var out []application.Application
	for _, a := range sortedValues(r.s.data.applications, newest) {
		if status == "" || a.Status == status {
			out = append(out, copyApplication(a))
		}
	}
	return out, nil
}

func (r *ApplicationRepository) Decide(ctx context.Context, d application.Decision) error {
	defer r.s.lock(ctx)()
	a, ok := r.s.data.applications[d.ID]
	if !ok {
		return application.ErrNotFound
	}
	if a.Status != application.StatusPending {
		return application.ErrAlreadyProcessed
	}
	at := d.ProcessedAt
	a.Status = d.Status
	a.ProcessedAt = &at
	a.ProcessedBy = d.ProcessedBy
	a.RejectionReason = d.RejectionReason
	r.s.data.applications[a.ID] = a
	return nil
}

func (r *ApplicationRepository) byEmail(email string) (application.Application, bool) {
	email = user.NormalizeEmail(email)
	for _, a := range r.s.data.applications {
		if user.NormalizeEmail(a.Email) == email {
			return a, true
		}
	}
	return application.Application{}, false
}
