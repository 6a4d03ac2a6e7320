package vehicle

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/max-belichenko/vehicle-manager/internal/audit"
	"github.com/max-belichenko/vehicle-manager/internal/tabular"

	"golang.org/x/text/encoding/charmap"
)

func encodeReader(t *testing.T, s string) io.Reader {
	t.Helper()
	out, err := charmap.Windows1251.NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatalf("encode cp1251: %v", err)
	}
	return bytes.NewReader(out)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *MemoryRepo, *audit.MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	auditRepo := audit.NewMemoryRepo()
	s := NewService(repo, audit.NewService(auditRepo, discardLogger()))
	s.clock = func() time.Time { return validationNow }
	return s, repo, auditRepo
}

func TestCreate_StoresAndAudits(t *testing.T) {
	ctx := context.Background()
	s, _, auditRepo := newTestService(t)

	stored, err := s.Create(ctx, "alice", validVehicle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if stored.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if stored.CreatedBy != "alice" || stored.UpdatedBy != "alice" {
		t.Fatalf("unexpected attribution: %q / %q", stored.CreatedBy, stored.UpdatedBy)
	}

	entries := auditRepo.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Operation != audit.OpAdd {
		t.Fatalf("unexpected operation: %q", e.Operation)
	}
	if e.CreatedBy != "alice" || e.VehicleID != stored.ID || e.VIN != stored.VIN {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestCreate_InvalidVehicleWritesNothing(t *testing.T) {
	ctx := context.Background()
	s, repo, auditRepo := newTestService(t)

	v := validVehicle()
	v.VIN = "SHORT"
	if _, err := s.Create(ctx, "alice", v); err == nil {
		t.Fatalf("expected validation failure")
	}

	stored, _ := repo.List(ctx, nil)
	if len(stored) != 0 {
		t.Fatalf("expected no vehicles stored, got %d", len(stored))
	}
	if len(auditRepo.Entries()) != 0 {
		t.Fatalf("expected no audit entries")
	}
}

func TestCreate_DuplicateUniqueFieldConflicts(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	if _, err := s.Create(ctx, "alice", validVehicle()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := s.Create(ctx, "alice", validVehicle())
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdate_AuditsModify(t *testing.T) {
	ctx := context.Background()
	s, _, auditRepo := newTestService(t)

	stored, err := s.Create(ctx, "alice", validVehicle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stored.Color = "Red"
	updated, err := s.Update(ctx, "bob", stored)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Color != "Red" {
		t.Fatalf("unexpected color: %q", updated.Color)
	}
	if updated.UpdatedBy != "bob" || updated.CreatedBy != "alice" {
		t.Fatalf("unexpected attribution: %q / %q", updated.CreatedBy, updated.UpdatedBy)
	}

	entries := auditRepo.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	if entries[1].Operation != audit.OpModify || entries[1].CreatedBy != "bob" {
		t.Fatalf("unexpected entry: %+v", entries[1])
	}
}

func TestUpdate_MissingVehicle(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	v := validVehicle()
	v.ID = 42
	if _, err := s.Update(ctx, "alice", v); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_AuditsRemovedSnapshot(t *testing.T) {
	ctx := context.Background()
	s, repo, auditRepo := newTestService(t)

	stored, err := s.Create(ctx, "alice", validVehicle())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, "bob", stored.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := repo.Get(ctx, stored.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected vehicle gone, got %v", err)
	}

	entries := auditRepo.Entries()
	last := entries[len(entries)-1]
	if last.Operation != audit.OpRemove {
		t.Fatalf("unexpected operation: %q", last.Operation)
	}
	// The entry must keep identifying the record after the hard delete.
	if last.VehicleID != stored.ID || last.VIN != stored.VIN || last.RegistrationNumber != stored.RegistrationNumber {
		t.Fatalf("snapshot lost on delete: %+v", last)
	}
}

func TestDelete_MissingVehicle(t *testing.T) {
	ctx := context.Background()
	s, _, auditRepo := newTestService(t)

	if err := s.Delete(ctx, "alice", 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(auditRepo.Entries()) != 0 {
		t.Fatalf("expected no audit entry for failed delete")
	}
}

type failingAuditRepo struct{}

func (failingAuditRepo) Append(ctx context.Context, e audit.Entry) error {
	return errors.New("audit store down")
}

func (failingAuditRepo) List(ctx context.Context) ([]audit.Entry, error) {
	return nil, errors.New("audit store down")
}

func TestCreate_AuditFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()
	s := NewService(repo, audit.NewService(failingAuditRepo{}, discardLogger()))
	s.clock = func() time.Time { return validationNow }

	stored, err := s.Create(ctx, "alice", validVehicle())
	if err != nil {
		t.Fatalf("create should succeed despite audit failure: %v", err)
	}
	if _, err := repo.Get(ctx, stored.ID); err != nil {
		t.Fatalf("vehicle should be stored: %v", err)
	}
}

func importCSV(t *testing.T, rows [][]string) io.Reader {
	t.Helper()
	export, err := tabular.Write(tabular.FileTypeCSV, rows)
	if err != nil {
		t.Fatalf("build csv: %v", err)
	}
	return bytes.NewReader(export.Data)
}

func TestImport_StoresAndAuditsEveryRow(t *testing.T) {
	ctx := context.Background()
	s, repo, auditRepo := newTestService(t)

	src := importCSV(t, [][]string{
		{"Toyota", "Camry", "Black", "А123ВС77", "2020", "JT123456789012345", "1000000001", "2020-01-01"},
		{"Honda", "Civic", "Blue", "В456ЕК99", "2018", "HN123456789012345", "1000000002", "15.06.2018"},
	})

	n, err := s.Import(ctx, "alice", tabular.FileTypeCSV, src)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 stored, got %d", n)
	}

	stored, _ := repo.List(ctx, nil)
	if len(stored) != 2 {
		t.Fatalf("expected 2 vehicles, got %d", len(stored))
	}

	entries := auditRepo.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Operation != audit.OpImport {
			t.Fatalf("unexpected operation: %q", e.Operation)
		}
	}
}

func TestImport_MissingColumnStoresNothing(t *testing.T) {
	ctx := context.Background()
	s, repo, auditRepo := newTestService(t)

	// Header lacks the VIN column entirely.
	src := "Марка;Модель\nToyota;Camry\n"
	_, err := s.Import(ctx, "alice", tabular.FileTypeCSV, encodeReader(t, src))

	var missing *tabular.MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingColumnError, got %v", err)
	}
	if stored, _ := repo.List(ctx, nil); len(stored) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(stored))
	}
	if len(auditRepo.Entries()) != 0 {
		t.Fatalf("expected no audit entries")
	}
}

func TestImport_InvalidRowAbortsRemainder(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newTestService(t)

	src := importCSV(t, [][]string{
		{"Toyota", "Camry", "Black", "А123ВС77", "2020", "JT123456789012345", "1000000001", "2020-01-01"},
		{"Honda", "Civic", "Blue", "В456ЕК99", "2018", "SHORT", "1000000002", "2018-06-15"},
		{"Lada", "Vesta", "White", "С789МН50", "2021", "LD123456789012345", "1000000003", "2021-02-01"},
	})

	n, err := s.Import(ctx, "alice", tabular.FileTypeCSV, src)
	var imp *ImportError
	if !errors.As(err, &imp) {
		t.Fatalf("expected ImportError, got %v", err)
	}
	if imp.Row != 2 {
		t.Fatalf("expected failure at row 2, got %d", imp.Row)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected wrapped ValidationError, got %v", imp.Err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row stored before abort, got %d", n)
	}
	if stored, _ := repo.List(ctx, nil); len(stored) != 1 {
		t.Fatalf("rows before the failure stay stored, got %d", len(stored))
	}
}

func TestImport_DuplicateRowConflicts(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	row := []string{"Toyota", "Camry", "Black", "А123ВС77", "2020", "JT123456789012345", "1000000001", "2020-01-01"}
	src := importCSV(t, [][]string{row, row})

	_, err := s.Import(ctx, "alice", tabular.FileTypeCSV, src)
	var imp *ImportError
	if !errors.As(err, &imp) {
		t.Fatalf("expected ImportError, got %v", err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected wrapped ErrConflict, got %v", err)
	}
	if imp.Row != 2 {
		t.Fatalf("expected failure at row 2, got %d", imp.Row)
	}
}

func TestExport_RejectsXLS(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	_, err := s.Export(ctx, tabular.FileTypeXLS, nil)
	if !errors.Is(err, tabular.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)

	if _, err := s.Create(ctx, "alice", validVehicle()); err != nil {
		t.Fatalf("create: %v", err)
	}

	export, err := s.Export(ctx, tabular.FileTypeCSV, nil)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	other, otherRepo, _ := newTestService(t)
	n, err := other.Import(ctx, "bob", tabular.FileTypeCSV, bytes.NewReader(export.Data))
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 record re-imported, got %d", n)
	}

	stored, _ := otherRepo.List(ctx, nil)
	want := validVehicle()
	got := stored[0]
	if got.Make != want.Make || got.VIN != want.VIN || got.YearOfManufacture != want.YearOfManufacture {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if got.CertificateDate.String() != want.CertificateDate.String() {
		t.Fatalf("date mismatch: %q != %q", got.CertificateDate, want.CertificateDate)
	}
}
