package types

import "strings"

// SourceType is the transport used to fetch a data source.
type SourceType string

const (
	SourceURL      SourceType = "URL"
	SourceFile     SourceType = "FILE"
	SourcePagePile SourceType = "PAGEPILE"
)

// ParseSourceType parses a stored or user supplied source type.
func ParseSourceType(s string) (SourceType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "URL":
		return SourceURL, true
	case "FILE":
		return SourceFile, true
	case "PAGEPILE":
		return SourcePagePile, true
	}
	return "", false
}

// SourceFormat is the payload format of a data source.
type SourceFormat string

const (
	FormatCSV      SourceFormat = "CSV"
	FormatTSV      SourceFormat = "TSV"
	FormatJSONL    SourceFormat = "JSONL"
	FormatPagePile SourceFormat = "PAGEPILE"
	// FormatExcel is persisted as "XLS".
	FormatExcel SourceFormat = "XLS"
)

// ParseSourceFormat parses a stored or user supplied source format.
func ParseSourceFormat(s string) (SourceFormat, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CSV":
		return FormatCSV, true
	case "TSV":
		return FormatTSV, true
	case "JSONL":
		return FormatJSONL, true
	case "PAGEPILE":
		return FormatPagePile, true
	case "XLS", "EXCEL":
		return FormatExcel, true
	}
	return "", false
}

// DataSource describes an external origin rows can be (re-)imported from.
// For FILE sources Location holds the id of an uploaded file record,
// for URL sources a URL and for PAGEPILE sources a numeric PagePile id.
type DataSource struct {
	ID           int64        `json:"id"`
	ListID       int64        `json:"list_id"`
	SourceType   SourceType   `json:"source_type"`
	SourceFormat SourceFormat `json:"source_format"`
	Location     string       `json:"location"`
	UserID       int64        `json:"user_id"`
}
