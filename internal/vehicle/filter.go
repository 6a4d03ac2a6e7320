package vehicle

import (
	"net/url"

	"github.com/max-belichenko/vehicle-manager/internal/tabular"
)

// MatchMode is the comparison semantic of one field filter.
type MatchMode int

const (
	// MatchContainsFold matches case-insensitive substrings.
	MatchContainsFold MatchMode = iota
	// MatchExactFold matches whole values case-insensitively.
	MatchExactFold
	// MatchExact matches whole values exactly.
	MatchExact
)

// FilterSpec declares one optional query-parameter filter: which field it
// targets and how it compares. The list below is the entire filter surface;
// parameters map 1:1 to record fields.
type FilterSpec struct {
	Field string
	Mode  MatchMode
}

var FilterSpecs = []FilterSpec{
	{Field: tabular.FieldMake, Mode: MatchContainsFold},
	{Field: tabular.FieldModel, Mode: MatchContainsFold},
	{Field: tabular.FieldColor, Mode: MatchContainsFold},
	{Field: tabular.FieldRegistrationNumber, Mode: MatchExactFold},
	{Field: tabular.FieldYearOfManufacture, Mode: MatchExact},
	{Field: tabular.FieldVIN, Mode: MatchExactFold},
	{Field: tabular.FieldCertificateNumber, Mode: MatchExactFold},
	{Field: tabular.FieldCertificateDate, Mode: MatchExact},
}

// Filter is one bound filter: a spec plus the value supplied by the caller.
type Filter struct {
	Field string
	Mode  MatchMode
	Value string
}

// FiltersFromValues evaluates every spec against the request query.
// Absent parameters impose no filter; zero present parameters mean the
// unfiltered set.
func FiltersFromValues(q url.Values) []Filter {
	filters := make([]Filter, 0, len(FilterSpecs))
	for _, spec := range FilterSpecs {
		if _, ok := q[spec.Field]; !ok {
			continue
		}
		filters = append(filters, Filter{
			Field: spec.Field,
			Mode:  spec.Mode,
			Value: q.Get(spec.Field),
		})
	}
	return filters
}
