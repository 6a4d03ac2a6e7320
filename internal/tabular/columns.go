package tabular

// FileType identifies a supported tabular file format.
type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeXLS  FileType = "xls"
	FileTypeXLSX FileType = "xlsx"
)

// contentTypes is the fixed request-header-to-file-type table.
// Unrecognized content types must be rejected before any parsing.
var contentTypes = map[string]FileType{
	"text/csv":                 FileTypeCSV,
	"application/vnd.ms-excel": FileTypeXLS,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": FileTypeXLSX,
}

// FileTypeFromContentType resolves a declared content type to a file type.
func FileTypeFromContentType(contentType string) (FileType, bool) {
	ft, ok := contentTypes[contentType]
	return ft, ok
}

// ContentType returns the media type announced for payloads of this file type.
func (t FileType) ContentType() string {
	for ct, ft := range contentTypes {
		if ft == t {
			return ct
		}
	}
	return "application/octet-stream"
}

// ExportFilename returns the suggested attachment name for an export payload.
func (t FileType) ExportFilename() string {
	return "vehicles." + string(t)
}

// Internal vehicle field names. These are the keys of the Fields mapping
// produced by the parser and consumed by the persistence layer.
const (
	FieldMake               = "make"
	FieldModel              = "model"
	FieldColor              = "color"
	FieldRegistrationNumber = "registration_number"
	FieldYearOfManufacture  = "year_of_manufacture"
	FieldVIN                = "vin"
	FieldCertificateNumber  = "vehicle_certificate_number"
	FieldCertificateDate    = "vehicle_certificate_date"
)

// Kind is the semantic type of a column, used by coercion and normalization.
type Kind int

const (
	KindText Kind = iota
	KindYear
	KindDate
)

// Column binds an external spreadsheet header to an internal field name.
type Column struct {
	Label string
	Field string
	Kind  Kind
}

// Columns is the fixed, ordered import/export mapping. The same list drives
// both directions, so an export re-imports with identical labels.
// The labels match the regional spreadsheet convention of the source files
// and are a format contract, not a localization choice.
var Columns = []Column{
	{Label: "Марка", Field: FieldMake, Kind: KindText},
	{Label: "Модель", Field: FieldModel, Kind: KindText},
	{Label: "Цвет", Field: FieldColor, Kind: KindText},
	{Label: "Регистрационный номер", Field: FieldRegistrationNumber, Kind: KindText},
	{Label: "Год выпуска", Field: FieldYearOfManufacture, Kind: KindYear},
	{Label: "VIN", Field: FieldVIN, Kind: KindText},
	{Label: "Номер СТС", Field: FieldCertificateNumber, Kind: KindText},
	{Label: "Дата выдачи СТС", Field: FieldCertificateDate, Kind: KindDate},
}
