package tabular

// Fields is one vehicle record as raw cell values keyed by internal field name.
type Fields map[string]string

// ParseVehicles reshapes reader rows into per-record field mappings using
// the fixed column mapping, preserving source order.
//
// Parsing is all-or-nothing: the first row that lacks a mapped column label
// fails the whole operation, and nothing is returned.
func ParseVehicles(rows []Row) ([]Fields, error) {
	records := make([]Fields, 0, len(rows))
	for _, row := range rows {
		fields := make(Fields, len(Columns))
		for _, col := range Columns {
			value, ok := row[col.Label]
			if !ok {
				return nil, &MissingColumnError{Label: col.Label}
			}
			fields[col.Field] = value
		}
		records = append(records, fields)
	}
	return records, nil
}
