package application

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/auth"
	"github.com/xenking/tastetrack/internal/domain/catalog"
	"github.com/xenking/tastetrack/internal/domain/event"
	"github.com/xenking/tastetrack/internal/domain/txn"
	"github.com/xenking/tastetrack/internal/domain/user"
)

// defaultLastName is used when the restaurant name is a single word.
const defaultLastName = "Restaurant"

// SubmitRequest holds a restaurant's application profile.
type SubmitRequest struct {
	Name        string
	Email       string
	Phone       string
	Address     string
	Description string
	Password    string
}

func (r SubmitRequest) validate(email string) error {
	for _, f := range []struct{ name, value string }{
		{"name", r.Name},
		{"address", r.Address},
	} {
		if strings.TrimSpace(f.value) == "" {
			return apperr.New(apperr.Validation, "%s is required", f.name)
		}
	}
	if !auth.ValidEmail(email) {
		return apperr.New(apperr.Validation, "a valid email is required")
	}
	if len(r.Password) < auth.MinPasswordLength {
		return apperr.New(apperr.Validation, "password must be at least %d characters", auth.MinPasswordLength)
	}
	return nil
}

// Approval is the result of approving an application.
type Approval struct {
	Application *Application
	Vendor      *user.User
	Restaurant  *catalog.Restaurant
	// Merged is true when an existing account was promoted to vendor.
	Merged bool
}

// RestaurantStore is the part of the catalog the approval workflow writes.
type RestaurantStore interface {
	GetByOwner(ctx context.Context, ownerID int64) (*catalog.Restaurant, error)
	Create(ctx context.Context, r *catalog.Restaurant) error
}

// Options tunes a Service. The zero value is usable.
type Options struct {
	Events         event.Publisher
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Now            func() time.Time
}

// Service implements the application approval engine.
type Service struct {
	apps        Repository
	users       user.Repository
	restaurants RestaurantStore
	hasher      auth.Hasher
	tx          txn.Transactor

	events    event.Publisher
	now       func() time.Time
	tracer    trace.Tracer
	processed metric.Int64Counter
}

// NewService creates an application Service.
func NewService(
	apps Repository,
	users user.Repository,
	restaurants RestaurantStore,
	hasher auth.Hasher,
	tx txn.Transactor,
	opts Options,
) (*Service, error) {
	s := &Service{
		apps:        apps,
		users:       users,
		restaurants: restaurants,
		hasher:      hasher,
		tx:          tx,
		events:      opts.Events,
		now:         opts.Now,
	}
	if s.events == nil {
		s.events = event.Nop{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	mp := opts.MeterProvider
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	s.tracer = tp.Tracer("tastetrack/application")

	var err error
	if s.processed, err = mp.Meter("tastetrack/application").Int64Counter(
		"tastetrack.applications.processed",
		metric.WithDescription("Restaurant applications approved or rejected"),
	); err != nil {
		return nil, errors.Wrap(err, "applications processed counter")
	}
	return s, nil
}

// Submit records a new PENDING application. The password is hashed here and
// only the hash is stored.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (_ *Application, rerr error) {
	ctx, span := s.tracer.Start(ctx, "application.Submit")
	defer func() { endSpan(span, rerr) }()

	email := user.NormalizeEmail(req.Email)
	if err := req.validate(email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	a := &Application{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		Address:      strings.TrimSpace(req.Address),
		Description:  strings.TrimSpace(req.Description),
		PasswordHash: hash,
		Status:       StatusPending,
		SubmittedAt:  s.now(),
	}

	// The unique index covers applications only. A user signing up with the
	// same email after this check is promoted by Approve.
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		taken, err := s.apps.ExistsByEmail(ctx, email)
		if err != nil {
			return errors.Wrap(err, "check application email")
		}
		if !taken {
			if taken, err = s.users.ExistsByEmail(ctx, email); err != nil {
				return errors.Wrap(err, "check user email")
			}
		}
		if taken {
			return apperr.New(apperr.Conflict, "email %s is already registered or pending review", email)
		}
		if err := s.apps.Create(ctx, a); err != nil {
			return errors.Wrap(err, "create application")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Application submitted", zap.Int64("application_id", a.ID))
	event.Emit(ctx, s.events, event.Event{
		Type:       event.ApplicationSubmitted,
		Key:        a.Email,
		OccurredAt: a.SubmittedAt,
		Attributes: map[string]string{"name": a.Name},
	})
	return a, nil
}

// Approve converts a PENDING application into a vendor account and its
// restaurant. An existing account with the same email is promoted to VENDOR
// and takes the application's phone and password.
func (s *Service) Approve(ctx context.Context, id int64, admin string) (_ *Approval, rerr error) {
	ctx, span := s.tracer.Start(ctx, "application.Approve")
	defer func() { endSpan(span, rerr) }()

	var res Approval
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.pending(ctx, id)
		if err != nil {
			return err
		}

		vendor, merged, err := s.vendorAccount(ctx, a)
		if err != nil {
			return err
		}

		r := &catalog.Restaurant{
			Name:         a.Name,
			Cuisine:      catalog.DefaultCuisine,
			Rating:       0,
			DeliveryTime: catalog.DefaultDeliveryTime,
			MinOrder:     decimal.Zero,
			Address:      a.Address,
			IsOpen:       true,
			OwnerID:      vendor.ID,
		}
		if err := s.restaurants.Create(ctx, r); err != nil {
			return errors.Wrap(err, "create restaurant")
		}

		now := s.now()
		if err := s.apps.Decide(ctx, Decision{
			ID:          a.ID,
			Status:      StatusApproved,
			ProcessedAt: now,
			ProcessedBy: admin,
		}); err != nil {
			return err
		}
		a.Status = StatusApproved
		a.ProcessedAt = &now
		a.ProcessedBy = admin

		res = Approval{Application: a, Vendor: vendor, Restaurant: r, Merged: merged}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Application approved",
		zap.Int64("application_id", id),
		zap.Int64("vendor_id", res.Vendor.ID),
		zap.Int64("restaurant_id", res.Restaurant.ID),
		zap.Bool("merged", res.Merged),
		zap.String("by", admin),
	)
	s.processed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(StatusApproved))))
	event.Emit(ctx, s.events, event.Event{
		Type:       event.ApplicationApproved,
		Key:        res.Application.Email,
		OccurredAt: *res.Application.ProcessedAt,
		Attributes: map[string]string{
			"restaurant_id": itoa(res.Restaurant.ID),
			"vendor_id":     itoa(res.Vendor.ID),
		},
	})
	return &res, nil
}

// vendorAccount merges the applicant into an existing account or creates a
// new VENDOR account.
func (s *Service) vendorAccount(ctx context.Context, a *Application) (*user.User, bool, error) {
	existing, err := s.users.GetByEmail(ctx, a.Email)
	switch {
	case err == nil:
		if _, err := s.restaurants.GetByOwner(ctx, existing.ID); err == nil {
			return nil, false, apperr.New(apperr.Conflict, "account %s already owns a restaurant", a.Email)
		} else if !errors.Is(err, apperr.ErrNotFound) {
			return nil, false, errors.Wrap(err, "get owned restaurant")
		}
		if existing.Role != user.RoleVendor {
			zctx.From(ctx).Warn("Promoting existing account to vendor",
				zap.Int64("user_id", existing.ID),
				zap.String("previous_role", string(existing.Role)),
			)
		}
		existing.Role = user.RoleVendor
		existing.Phone = a.Phone
		existing.PasswordHash = a.PasswordHash
		if err := s.users.Update(ctx, existing); err != nil {
			return nil, false, errors.Wrap(err, "update user")
		}
		return existing, true, nil
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return nil, false, errors.Wrap(err, "get user")
	}

	first, last := user.SplitName(a.Name, defaultLastName)
	u := &user.User{
		FirstName:    first,
		LastName:     last,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Phone:        a.Phone,
		Role:         user.RoleVendor,
		Enabled:      true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, false, errors.Wrap(err, "create vendor")
	}
	return u, false, nil
}

// Reject marks a PENDING application as REJECTED. No accounts or
// restaurants are touched.
func (s *Service) Reject(ctx context.Context, id int64, admin, reason string) (_ *Application, rerr error) {
	ctx, span := s.tracer.Start(ctx, "application.Reject")
	defer func() { endSpan(span, rerr) }()

	var out *Application
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.pending(ctx, id)
		if err != nil {
			return err
		}
		now := s.now()
		reason = strings.TrimSpace(reason)
		if err := s.apps.Decide(ctx, Decision{
			ID:              a.ID,
			Status:          StatusRejected,
			ProcessedAt:     now,
			ProcessedBy:     admin,
			RejectionReason: reason,
		}); err != nil {
			return err
		}
		a.Status = StatusRejected
		a.ProcessedAt = &now
		a.ProcessedBy = admin
		a.RejectionReason = reason
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Application rejected",
		zap.Int64("application_id", id),
		zap.String("by", admin),
	)
	s.processed.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(StatusRejected))))
	event.Emit(ctx, s.events, event.Event{
		Type:       event.ApplicationRejected,
		Key:        out.Email,
		OccurredAt: *out.ProcessedAt,
		Attributes: map[string]string{"reason": out.RejectionReason},
	})
	return out, nil
}

// pending locks the application and checks it is still PENDING.
func (s *Service) pending(ctx context.Context, id int64) (*Application, error) {
	a, err := s.apps.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusPending {
		return nil, apperr.New(apperr.InvalidState, "application %d has already been processed", id)
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Application, error) {
	return s.apps.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Application, error) {
	return s.apps.List(ctx, "")
}

func (s *Service) ListPending(ctx context.Context) ([]Application, error) {
	return s.apps.List(ctx, StatusPending)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if apperr.KindOf(err) == apperr.Internal {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
