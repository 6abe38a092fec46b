// Package services – LeadService
//
// LeadService owns the lead lifecycle: creation (always PENDING), listing in
// insertion order, lookup by id, and state replacement. Inputs are validated
// before any persistence; predictable failures are reported as the sentinel
// errors in errors.go so handlers can map them consistently.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// are named after the method and carry the lead id when one is known.
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-leads-backend/internal/domain"
	"github.com/tbourn/go-leads-backend/internal/repo"
)

// LeadRepo defines the repository contract required by LeadService.
type LeadRepo interface {
	// CreateLead inserts lead and writes the assigned id back into it.
	CreateLead(ctx context.Context, db *gorm.DB, lead *domain.Lead) error

	// ListLeads returns every lead in id order.
	ListLeads(ctx context.Context, db *gorm.DB) ([]domain.Lead, error)

	// GetLead fetches a lead by id.
	GetLead(ctx context.Context, db *gorm.DB, id uint) (*domain.Lead, error)

	// UpdateLeadState replaces state and updated_at.
	UpdateLeadState(ctx context.Context, db *gorm.DB, id uint, state domain.LeadState, updatedAt time.Time) error
}

// LeadService provides the lead lifecycle operations.
type LeadService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the lead repository used by this service.
	Repo LeadRepo
	// Now returns the current time; defaults to time.Now in UTC.
	Now func() time.Time
}

// NewLeadService constructs a LeadService with a UTC wall clock.
func NewLeadService(db *gorm.DB, r LeadRepo) *LeadService {
	return &LeadService{DB: db, Repo: r, Now: func() time.Time { return time.Now().UTC() }}
}

// now is truncated to microseconds, the finest precision every supported
// store keeps, so a returned lead matches what a later read yields.
func (s *LeadService) now() time.Time {
	t := time.Now()
	if s.Now != nil {
		t = s.Now()
	}
	return t.UTC().Truncate(time.Microsecond)
}

// Create validates in and stores a new PENDING lead. created_at and
// updated_at share a single timestamp. A stored lead with the same email
// yields ErrDuplicateEmail.
func (s *LeadService) Create(ctx context.Context, in CreateLeadInput) (*domain.Lead, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "Create")
	defer span.End()

	in, err := ValidateCreation(in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	lead := &domain.Lead{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Resume:    in.Resume,
		State:     domain.LeadStatePending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.CreateLead(ctx, s.DB, lead); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int64("lead.id", int64(lead.ID)))
	return lead, nil
}

// List returns all leads in insertion order; never nil on success.
func (s *LeadService) List(ctx context.Context) ([]domain.Lead, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "List")
	defer span.End()

	items, err := s.Repo.ListLeads(ctx, s.DB)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if items == nil {
		items = []domain.Lead{}
	}
	span.SetAttributes(attribute.Int("lead.count", len(items)))
	return items, nil
}

// Get returns the lead with id or ErrLeadNotFound.
func (s *LeadService) Get(ctx context.Context, id uint) (*domain.Lead, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.Int64("lead.id", int64(id))),
	)
	defer span.End()

	l, err := s.Repo.GetLead(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return l, nil
}

// UpdateState validates state and replaces the lead's state inside a
// transaction. updated_at becomes max(now, previous updated_at) so it never
// moves backwards. Repeating the same state is permitted.
func (s *LeadService) UpdateState(ctx context.Context, id uint, state string) (*domain.Lead, error) {
	tr := otel.Tracer("services/LeadService")
	ctx, span := tr.Start(ctx, "UpdateState",
		trace.WithAttributes(
			attribute.Int64("lead.id", int64(id)),
			attribute.String("lead.state", state),
		),
	)
	defer span.End()

	next, err := ValidateStateUpdate(state)
	if err != nil {
		return nil, err
	}

	var out *domain.Lead
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		l, err := s.Repo.GetLead(ctx, tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLeadNotFound
			}
			return err
		}

		at := s.now()
		if at.Before(l.UpdatedAt) {
			at = l.UpdatedAt
		}
		if err := s.Repo.UpdateLeadState(ctx, tx, id, next, at); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLeadNotFound
			}
			return err
		}
		l.State = next
		l.UpdatedAt = at
		out = l
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrLeadNotFound) {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	return out, nil
}
