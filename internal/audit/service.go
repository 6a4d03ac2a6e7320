package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit entries.
//
// It MUST be append-only. No Update/Delete methods exist by design.
// List returns entries newest first.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context) ([]Entry, error)
}

var ErrInvalidEntry = errors.New("audit: invalid entry")

// Service is the only writer of audit entries.
//
// Mutating callers should use Record, which is best-effort: a failed audit
// write is logged as a warning and swallowed so it can never fail, roll
// back, or delay the primary operation. The system promises that an audit
// write is attempted for every mutation, not that it succeeds.
type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log, clock: time.Now}
}

// Append writes one entry, returning any failure to the caller.
func (s *Service) Append(ctx context.Context, e Entry) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if !e.Operation.Valid() {
		return ErrInvalidEntry
	}
	if e.CreatedBy == "" {
		return ErrInvalidEntry
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Record appends an entry for one operation on one vehicle, best-effort.
func (s *Service) Record(ctx context.Context, actor string, op Operation, description string, ref VehicleRef) {
	err := s.Append(ctx, Entry{
		CreatedBy:          actor,
		VehicleID:          ref.VehicleID,
		RegistrationNumber: ref.RegistrationNumber,
		VIN:                ref.VIN,
		CertificateNumber:  ref.CertificateNumber,
		Operation:          op,
		Description:        description,
	})
	if err != nil {
		s.log.Warn("audit write failed",
			"operation", string(op),
			"vehicle_id", ref.VehicleID,
			"err", err,
		)
	}
}

// List returns all entries, most recent first.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	if s.repo == nil {
		return nil, errors.New("audit: repository not configured")
	}
	return s.repo.List(ctx)
}
