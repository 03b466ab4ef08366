package models

// FetchRequest carries the server-affecting search parameters. Changing any
// field invalidates the current result set and triggers a new enrichment run.
type FetchRequest struct {
	// GeoLocation is a free-text location ("Austin, TX", a zip code, ...).
	GeoLocation string `json:"geoLocation"`
	// CommuteLocation, when non-empty, requests commute-time enrichment
	// against this destination.
	CommuteLocation string `json:"commuteLocation,omitempty"`
	// Radius is the search half-width in miles around the resolved location.
	Radius float64 `json:"radius"`

	PriceFrom int `json:"priceFrom"`
	PriceMost int `json:"priceMost"`

	IncludeForSale      bool `json:"includeForSale"`
	IncludeRecentlySold bool `json:"includeRecentlySold"`
	// SoldInLast restricts sold inventory to listings sold within this many
	// days. Zero means no restriction.
	SoldInLast int `json:"soldInLast,omitempty"`
}

// DefaultFetchRequest mirrors the search form defaults.
func DefaultFetchRequest() FetchRequest {
	return FetchRequest{
		Radius:         3.5,
		PriceFrom:      0,
		PriceMost:      1500000,
		IncludeForSale: true,
	}
}
