package vehicle

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const (
	// FirstManufactureYear is the lower bound for year_of_manufacture.
	// The upper bound is the current calendar year, evaluated at write time.
	FirstManufactureYear = 1886

	// VINLength is the exact required length of a VIN.
	VINLength = 17
)

// Vehicle is the managed fleet record.
//
// Invariants:
// - registration_number, vin and vehicle_certificate_number are each unique
//   across all records (enforced by the store).
// - year_of_manufacture lies in [1886, current calendar year].
// - vin is exactly 17 characters.
// Records are mutated in place and hard-deleted on removal.
type Vehicle struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy string    `json:"created_by"`
	UpdatedAt time.Time `json:"updated_at"`
	UpdatedBy string    `json:"updated_by"`

	Make               string `json:"make"`
	Model              string `json:"model"`
	Color              string `json:"color"`
	RegistrationNumber string `json:"registration_number"`
	YearOfManufacture  int    `json:"year_of_manufacture"`
	VIN                string `json:"vin"`
	CertificateNumber  string `json:"vehicle_certificate_number"`
	CertificateDate    Date   `json:"vehicle_certificate_date"`
}

// Date is a calendar date without a time component.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// dateLayouts are the accepted textual date forms: the canonical ISO form
// and the regional day-first forms seen in source spreadsheets.
var dateLayouts = []string{
	dateLayout,
	"02.01.2006",
	"02/01/2006",
}

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a textual calendar date.
func ParseDate(s string) (Date, error) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer for DATE columns.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan implements sql.Scanner for DATE columns.
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case nil:
		*d = Date{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}
