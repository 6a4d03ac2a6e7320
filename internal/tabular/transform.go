package tabular

import "time"

// DateLayout is the canonical calendar-date form produced by normalization.
const DateLayout = "2006-01-02"

// timestampLayouts are the timestamp shapes spreadsheet date cells tend to
// materialize as when a workbook stores a date with a time-of-day component.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"01-02-06 15:04",
	"2006/01/02 15:04:05",
}

// Normalize applies the post-parse transformation pass: certificate-date
// cells that carry a time-of-day component are truncated to a calendar date.
// Every other value passes through unchanged. Normalize never fails; values
// it cannot interpret are left for validation to judge.
func Normalize(records []Fields) []Fields {
	for _, fields := range records {
		value, ok := fields[FieldCertificateDate]
		if !ok || value == "" {
			continue
		}
		for _, layout := range timestampLayouts {
			ts, err := time.Parse(layout, value)
			if err != nil {
				continue
			}
			fields[FieldCertificateDate] = ts.Format(DateLayout)
			break
		}
	}
	return records
}
