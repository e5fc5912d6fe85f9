// Package application implements the restaurant application approval
// workflow that converts applicants into vendors.
package application

import (
	"context"
	"time"

	"github.com/xenking/tastetrack/internal/domain/apperr"
)

// Status is the review state of an application.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Sentinel errors returned by repositories.
var (
	ErrNotFound = apperr.New(apperr.NotFound, "application not found")
	// ErrAlreadyProcessed is returned when a decision targets an application
	// that is no longer pending.
	ErrAlreadyProcessed = apperr.New(apperr.InvalidState, "application has already been processed")
)

// Application is a request to join the platform as a restaurant.
// PasswordHash is the bcrypt hash taken at submission.
type Application struct {
	ID              int64
	Name            string
	Email           string
	Phone           string
	Address         string
	Description     string
	PasswordHash    string
	Status          Status
	SubmittedAt     time.Time
	ProcessedAt     *time.Time
	ProcessedBy     string
	RejectionReason string
}

// Decision records the outcome of a review.
type Decision struct {
	ID              int64
	Status          Status
	ProcessedAt     time.Time
	ProcessedBy     string
	RejectionReason string
}

// Repository defines persistence operations for applications.
type Repository interface {
	// Create assigns ID. A duplicate email yields an apperr.Conflict.
	Create(ctx context.Context, a *Application) error
	GetByID(ctx context.Context, id int64) (*Application, error)
	// GetForUpdate reads the application and locks it until the surrounding
	// transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Application, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// List returns applications newest first; an empty status means all.
	List(ctx context.Context, status Status) ([]Application, error)
	// Decide applies d only while the application is PENDING and returns
	// ErrAlreadyProcessed otherwise.
	Decide(ctx context.Context, d Decision) error
}
