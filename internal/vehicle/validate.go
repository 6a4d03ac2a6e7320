package vehicle

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/max-belichenko/vehicle-manager/internal/tabular"
)

var (
	// ErrNotFound is returned when no record exists for the given identity.
	ErrNotFound = errors.New("vehicle not found")

	// ErrConflict is returned when the store rejects a write because a
	// unique field (registration number, VIN, certificate number) already
	// exists on another record. Uniqueness is only provable by the store,
	// so there is no pre-check.
	ErrConflict = errors.New("vehicle with the same unique field already exists")
)

// FieldError names one field that failed validation and why.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError reports schema violations caught before any write.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return "invalid vehicle data: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Validate checks every store-independent invariant. The year upper bound is
// taken from now rather than cached, so it shifts as real time passes.
func (v Vehicle) Validate(now time.Time) error {
	verr := &ValidationError{}

	required := []struct {
		field string
		value string
	}{
		{tabular.FieldMake, v.Make},
		{tabular.FieldModel, v.Model},
		{tabular.FieldColor, v.Color},
		{tabular.FieldRegistrationNumber, v.RegistrationNumber},
		{tabular.FieldVIN, v.VIN},
		{tabular.FieldCertificateNumber, v.CertificateNumber},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			verr.add(r.field, "required")
		}
	}

	currentYear := now.Year()
	if v.YearOfManufacture < FirstManufactureYear || v.YearOfManufacture > currentYear {
		verr.add(tabular.FieldYearOfManufacture,
			"must be between "+strconv.Itoa(FirstManufactureYear)+" and "+strconv.Itoa(currentYear))
	}

	if v.VIN != "" && utf8.RuneCountInString(v.VIN) != VINLength {
		verr.add(tabular.FieldVIN, "must be exactly "+strconv.Itoa(VINLength)+" characters")
	}

	if v.CertificateDate.IsZero() {
		verr.add(tabular.FieldCertificateDate, "required")
	}

	return verr.orNil()
}

// FromFields coerces one parsed record into a Vehicle. Coercion failures
// (unreadable year or date) are reported as validation errors naming the
// offending field; store invariants are checked separately via Validate.
func FromFields(fields tabular.Fields) (Vehicle, error) {
	var v Vehicle
	verr := &ValidationError{}

	for _, col := range tabular.Columns {
		raw := strings.TrimSpace(fields[col.Field])

		switch col.Field {
		case tabular.FieldMake:
			v.Make = raw
		case tabular.FieldModel:
			v.Model = raw
		case tabular.FieldColor:
			v.Color = raw
		case tabular.FieldRegistrationNumber:
			v.RegistrationNumber = raw
		case tabular.FieldVIN:
			v.VIN = raw
		case tabular.FieldCertificateNumber:
			v.CertificateNumber = raw
		case tabular.FieldYearOfManufacture:
			year, err := parseYear(raw)
			if err != nil {
				verr.add(col.Field, "must be an integer year")
				continue
			}
			v.YearOfManufacture = year
		case tabular.FieldCertificateDate:
			if raw == "" {
				continue
			}
			date, err := ParseDate(raw)
			if err != nil {
				verr.add(col.Field, "must be a calendar date")
				continue
			}
			v.CertificateDate = date
		}
	}

	if err := verr.orNil(); err != nil {
		return Vehicle{}, err
	}
	return v, nil
}

// parseYear accepts plain integers and the float renditions some
// spreadsheet tools emit for numeric cells ("2020.0").
func parseYear(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	n := int(f)
	if float64(n) != f {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
