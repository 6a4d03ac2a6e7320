package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo stores audit entries in Postgres.
//
// NOTE: This repository assumes an audit_entries table with an INSERT-only
// policy. Optional: a trigger preventing UPDATE/DELETE, and time-based
// partitioning for retention.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO audit_entries (
  id, created_at, created_by, vehicle_id,
  registration_number, vin, vehicle_certificate_number,
  operation, description
) VALUES (
  $1, $2, $3, $4, $5, $6, $7, $8, $9
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.CreatedAt,
		e.CreatedBy,
		e.VehicleID,
		e.RegistrationNumber,
		e.VIN,
		e.CertificateNumber,
		e.Operation,
		e.Description,
	)
	return err
}

func (r *PostgresRepo) List(ctx context.Context) ([]Entry, error) {
	const q = `
SELECT id, created_at, created_by, vehicle_id,
       registration_number, vin, vehicle_certificate_number,
       operation, description
FROM audit_entries
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.ID,
			&e.CreatedAt,
			&e.CreatedBy,
			&e.VehicleID,
			&e.RegistrationNumber,
			&e.VIN,
			&e.CertificateNumber,
			&e.Operation,
			&e.Description,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
