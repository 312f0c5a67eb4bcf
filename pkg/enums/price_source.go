package enums

import "fmt"

// PriceSource records where a price row came from.
type PriceSource string

const (
	PriceSourceManual       PriceSource = "manual"
	PriceSourceCSVImport    PriceSource = "csv_import"
	PriceSourceGoogleSheets PriceSource = "google_sheets"
	PriceSourceFIOExchange  PriceSource = "fio_exchange"
)

var validPriceSources = []PriceSource{
	PriceSourceManual,
	PriceSourceCSVImport,
	PriceSourceGoogleSheets,
	PriceSourceFIOExchange,
}

// String implements fmt.Stringer.
func (s PriceSource) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PriceSource.
func (s PriceSource) IsValid() bool {
	for _, candidate := range validPriceSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePriceSource converts raw input into a PriceSource.
func ParsePriceSource(value string) (PriceSource, error) {
	for _, candidate := range validPriceSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price source %q", value)
}
