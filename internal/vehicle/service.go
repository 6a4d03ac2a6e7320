package vehicle

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/max-belichenko/vehicle-manager/internal/audit"
	"github.com/max-belichenko/vehicle-manager/internal/tabular"
)

// Service implements the vehicle operations: CRUD, filtered listing, bulk
// import and export. Every mutation attempts exactly one audit entry per
// affected record; audit failures never affect the primary operation.
type Service struct {
	repo  Repository
	audit *audit.Service
	// clock is injectable for deterministic year-bound tests.
	clock func() time.Time
}

func NewService(repo Repository, auditSvc *audit.Service) *Service {
	return &Service{repo: repo, audit: auditSvc, clock: time.Now}
}

// ImportError wraps a per-record import failure with the 1-based data row
// it occurred on. The reference behavior is strict: the failing row aborts
// the remainder of the import; rows stored before it stay stored.
type ImportError struct {
	Row int
	Err error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import failed at data row %d: %v", e.Row, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

func (s *Service) Create(ctx context.Context, actor string, v Vehicle) (Vehicle, error) {
	if err := v.Validate(s.clock()); err != nil {
		return Vehicle{}, err
	}
	v.CreatedBy = actor
	v.UpdatedBy = actor

	stored, err := s.repo.Create(ctx, v)
	if err != nil {
		return Vehicle{}, err
	}
	s.audit.Record(ctx, actor, audit.OpAdd, "vehicle record created", snapshot(stored))
	return stored, nil
}

func (s *Service) Get(ctx context.Context, id int64) (Vehicle, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, actor string, v Vehicle) (Vehicle, error) {
	if err := v.Validate(s.clock()); err != nil {
		return Vehicle{}, err
	}
	v.UpdatedBy = actor

	stored, err := s.repo.Update(ctx, v)
	if err != nil {
		return Vehicle{}, err
	}
	s.audit.Record(ctx, actor, audit.OpModify, "vehicle record updated", snapshot(stored))
	return stored, nil
}

func (s *Service) Delete(ctx context.Context, actor string, id int64) error {
	removed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.audit.Record(ctx, actor, audit.OpRemove, "vehicle record deleted", snapshot(removed))
	return nil
}

func (s *Service) List(ctx context.Context, filters []Filter) ([]Vehicle, error) {
	return s.repo.List(ctx, filters)
}

// Import runs the whole pipeline for an uploaded file: read, parse,
// normalize, then validate-store-audit per record. Any failure before the
// per-record stage aborts with nothing written. Returns how many records
// were stored.
func (s *Service) Import(ctx context.Context, actor string, fileType tabular.FileType, r io.Reader) (int, error) {
	rows, err := tabular.Read(fileType, r)
	if err != nil {
		return 0, err
	}
	records, err := tabular.ParseVehicles(rows)
	if err != nil {
		return 0, err
	}
	records = tabular.Normalize(records)

	for i, fields := range records {
		v, err := FromFields(fields)
		if err != nil {
			return i, &ImportError{Row: i + 1, Err: err}
		}
		if err := v.Validate(s.clock()); err != nil {
			return i, &ImportError{Row: i + 1, Err: err}
		}
		v.CreatedBy = actor
		v.UpdatedBy = actor

		stored, err := s.repo.Create(ctx, v)
		if err != nil {
			return i, &ImportError{Row: i + 1, Err: err}
		}
		s.audit.Record(ctx, actor, audit.OpImport, "vehicle record imported", snapshot(stored))
	}
	return len(records), nil
}

// Export serializes the filtered record set into the requested file type.
// xls is recognized but rejected as an export target.
func (s *Service) Export(ctx context.Context, fileType tabular.FileType, filters []Filter) (tabular.Export, error) {
	if fileType != tabular.FileTypeCSV && fileType != tabular.FileTypeXLSX {
		return tabular.Export{}, tabular.ErrUnsupportedFormat
	}

	vehicles, err := s.repo.List(ctx, filters)
	if err != nil {
		return tabular.Export{}, err
	}

	rows := make([][]string, 0, len(vehicles))
	for _, v := range vehicles {
		rows = append(rows, exportRow(v))
	}
	return tabular.Write(fileType, rows)
}

// exportRow renders one record in column order, driven by the same fixed
// mapping the import path uses.
func exportRow(v Vehicle) []string {
	row := make([]string, len(tabular.Columns))
	for i, col := range tabular.Columns {
		switch col.Field {
		case tabular.FieldMake:
			row[i] = v.Make
		case tabular.FieldModel:
			row[i] = v.Model
		case tabular.FieldColor:
			row[i] = v.Color
		case tabular.FieldRegistrationNumber:
			row[i] = v.RegistrationNumber
		case tabular.FieldYearOfManufacture:
			row[i] = strconv.Itoa(v.YearOfManufacture)
		case tabular.FieldVIN:
			row[i] = v.VIN
		case tabular.FieldCertificateNumber:
			row[i] = v.CertificateNumber
		case tabular.FieldCertificateDate:
			row[i] = v.CertificateDate.String()
		}
	}
	return row
}

func snapshot(v Vehicle) audit.VehicleRef {
	return audit.VehicleRef{
		VehicleID:          v.ID,
		RegistrationNumber: v.RegistrationNumber,
		VIN:                v.VIN,
		CertificateNumber:  v.CertificateNumber,
	}
}
