package models

import "strings"

// Dimension is a sortable measure of a property.
type Dimension string

const (
	DimensionPrice        Dimension = "Price"
	DimensionRentToPrice  Dimension = "Rent/Price Ratio"
	DimensionValueToPrice Dimension = "Value/Price Ratio"
	DimensionPricePerArea Dimension = "Price/SqFt"
	DimensionCommute      Dimension = "Commute"
)

// Dimensions lists every supported sort dimension.
var Dimensions = []Dimension{
	DimensionPrice,
	DimensionRentToPrice,
	DimensionValueToPrice,
	DimensionPricePerArea,
	DimensionCommute,
}

// SortOrder is one entry of a prioritized comparator chain. Higher priority
// keys dominate the final order; lower priority keys break ties.
type SortOrder struct {
	Dimension Dimension `json:"dimension"`
	Ascending bool      `json:"ascending"`
	Priority  int       `json:"priority"`
}

// RatioBand is an inclusive [min%, max%] rent-to-price band.
type RatioBand struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FilterSettings are the local, no-refetch-required filter controls.
type FilterSettings struct {
	// RentOnly keeps only properties with a positive rent estimate.
	RentOnly bool `json:"rentOnly"`
	// NewConstruction keeps only new-construction listings.
	NewConstruction bool `json:"newConstruction"`
	// IncludeLand, when false, requires both beds and baths to be present.
	IncludeLand bool `json:"includeLand"`
	// HomeTypes holds the selected display-form home types. Nil or empty
	// defaults to all types observed in the unfiltered dataset, preferring
	// a singleton {"Single Family"} when that type is present.
	HomeTypes []string `json:"homeTypes,omitempty"`
	// MeetsRule is the rent-to-price ratio band. Nil disables the ratio
	// filter entirely.
	MeetsRule *RatioBand `json:"meetsRule,omitempty"`

	SortOrder []SortOrder `json:"sortOrder,omitempty"`
}

// DefaultFilterSettings mirrors the filter form defaults: ratio band [0, 2]
// and commute-ascending sort.
func DefaultFilterSettings() FilterSettings {
	return FilterSettings{
		MeetsRule: &RatioBand{Min: 0, Max: 2},
		SortOrder: []SortOrder{{Dimension: DimensionCommute, Ascending: true, Priority: 0}},
	}
}

// DisplayHomeType converts a provider marker such as "SINGLE_FAMILY" to its
// display form "Single Family". Empty input yields "".
func DisplayHomeType(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "_")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
	}
	return strings.Join(parts, " ")
}
