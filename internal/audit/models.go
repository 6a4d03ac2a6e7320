package audit

import "time"

// Operation tags the kind of action recorded against a vehicle.
type Operation string

const (
	OpImport Operation = "import"
	OpExport Operation = "export"
	OpAdd    Operation = "add"
	OpModify Operation = "modify"
	OpRemove Operation = "remove"
	OpGet    Operation = "get"
)

// Valid reports whether op is one of the defined operation tags.
func (op Operation) Valid() bool {
	switch op {
	case OpImport, OpExport, OpAdd, OpModify, OpRemove, OpGet:
		return true
	default:
		return false
	}
}

// Entry is an immutable, append-only record of one action on one vehicle.
//
// The vehicle fields are a denormalized snapshot taken as of the triggering
// operation, not a live reference: the entry stays meaningful after the
// record is changed or deleted. Entries are never updated or deleted.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`

	VehicleID          int64  `json:"vehicle_id"`
	RegistrationNumber string `json:"registration_number"`
	VIN                string `json:"vin"`
	CertificateNumber  string `json:"vehicle_certificate_number"`

	Operation   Operation `json:"operation"`
	Description string    `json:"description"`
}

// VehicleRef is the snapshot of a vehicle an audit entry is recorded against.
type VehicleRef struct {
	VehicleID          int64
	RegistrationNumber string
	VIN                string
	CertificateNumber  string
}
