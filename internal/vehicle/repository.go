package vehicle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/max-belichenko/vehicle-manager/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// Repository is the record-store contract for vehicles.
//
// The store owns uniqueness enforcement for registration_number, vin and
// vehicle_certificate_number; a violated constraint surfaces as ErrConflict.
// Single-record writes are atomic.
type Repository interface {
	Create(ctx context.Context, v Vehicle) (Vehicle, error)
	Get(ctx context.Context, id int64) (Vehicle, error)
	Update(ctx context.Context, v Vehicle) (Vehicle, error)
	Delete(ctx context.Context, id int64) (Vehicle, error)
	List(ctx context.Context, filters []Filter) ([]Vehicle, error)
}

// PostgresRepo stores vehicles in Postgres via database/sql.
//
// NOTE: This repository assumes a vehicles table with a bigserial primary
// key and UNIQUE constraints on registration_number, vin and
// vehicle_certificate_number.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const vehicleColumns = `id, created_at, created_by, updated_at, updated_by,
       make, model, color, registration_number, year_of_manufacture,
       vin, vehicle_certificate_number, vehicle_certificate_date`

func (r *PostgresRepo) Create(ctx context.Context, v Vehicle) (Vehicle, error) {
	const q = `
INSERT INTO vehicles (
  created_at, created_by, updated_at, updated_by,
  make, model, color, registration_number, year_of_manufacture,
  vin, vehicle_certificate_number, vehicle_certificate_date
) VALUES (
  now(), $1, now(), $2, $3, $4, $5, $6, $7, $8, $9, $10
)
RETURNING ` + vehicleColumns

	row := r.db.QueryRowContext(ctx, q,
		v.CreatedBy,
		v.UpdatedBy,
		v.Make,
		v.Model,
		v.Color,
		v.RegistrationNumber,
		v.YearOfManufacture,
		v.VIN,
		v.CertificateNumber,
		v.CertificateDate,
	)
	out, err := scanVehicle(row)
	if err != nil {
		return Vehicle{}, mapStoreError(err)
	}
	return out, nil
}

func (r *PostgresRepo) Get(ctx context.Context, id int64) (Vehicle, error) {
	q := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	out, err := scanVehicle(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return Vehicle{}, mapStoreError(err)
	}
	return out, nil
}

func (r *PostgresRepo) Update(ctx context.Context, v Vehicle) (Vehicle, error) {
	const q = `
UPDATE vehicles SET
  updated_at = now(),
  updated_by = $2,
  make = $3,
  model = $4,
  color = $5,
  registration_number = $6,
  year_of_manufacture = $7,
  vin = $8,
  vehicle_certificate_number = $9,
  vehicle_certificate_date = $10
WHERE id = $1
RETURNING ` + vehicleColumns

	row := r.db.QueryRowContext(ctx, q,
		v.ID,
		v.UpdatedBy,
		v.Make,
		v.Model,
		v.Color,
		v.RegistrationNumber,
		v.YearOfManufacture,
		v.VIN,
		v.CertificateNumber,
		v.CertificateDate,
	)
	out, err := scanVehicle(row)
	if err != nil {
		return Vehicle{}, mapStoreError(err)
	}
	return out, nil
}

// Delete removes the record and returns its final state so the caller can
// snapshot it for the audit log. The read and the delete share a
// transaction so the snapshot cannot drift from what was removed.
func (r *PostgresRepo) Delete(ctx context.Context, id int64) (Vehicle, error) {
	var out Vehicle
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		q := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1 FOR UPDATE`
		v, err := scanVehicle(tx.QueryRowContext(ctx, q, id))
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return Vehicle{}, mapStoreError(err)
	}
	return out, nil
}

func (r *PostgresRepo) List(ctx context.Context, filters []Filter) ([]Vehicle, error) {
	q := `SELECT ` + vehicleColumns + ` FROM vehicles`

	where := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for _, f := range filters {
		args = append(args, f.Value)
		n := len(args)
		// Field names come from FilterSpecs, never from the request.
		switch f.Mode {
		case MatchContainsFold:
			where = append(where, fmt.Sprintf("%s ILIKE '%%' || $%d || '%%'", f.Field, n))
		case MatchExactFold:
			where = append(where, fmt.Sprintf("LOWER(%s) = LOWER($%d)", f.Field, n))
		default:
			where = append(where, fmt.Sprintf("%s::text = $%d", f.Field, n))
		}
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY make, model, id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapStoreError(err)
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, mapStoreError(err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (Vehicle, error) {
	var v Vehicle
	err := row.Scan(
		&v.ID,
		&v.CreatedAt,
		&v.CreatedBy,
		&v.UpdatedAt,
		&v.UpdatedBy,
		&v.Make,
		&v.Model,
		&v.Color,
		&v.RegistrationNumber,
		&v.YearOfManufacture,
		&v.VIN,
		&v.CertificateNumber,
		&v.CertificateDate,
	)
	return v, err
}

// mapStoreError translates driver-level failures into the repository's
// error contract: no rows -> ErrNotFound, unique violation -> ErrConflict.
func mapStoreError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}
