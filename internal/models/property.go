package models

// HomeType values as reported by the listings provider. The provider uses
// upper-snake markers (e.g. "SINGLE_FAMILY"); DisplayHomeType converts them to
// the human names used by filter settings.
const (
	HomeTypeSingleFamily = "SINGLE_FAMILY"
	HomeTypeLot          = "LOT"
	HomeTypeManufactured = "MANUFACTURED"
	HomeTypeTownhouse    = "TOWNHOUSE"
	HomeTypeMultiFamily  = "MULTI_FAMILY"
)

// Listing status markers.
const (
	StatusTypeForSale = "FOR_SALE"
	StatusTypeSold    = "SOLD"

	ListingTypeNewConstruction = "NEW_CONSTRUCTION"
)

// Property is one normalized real-estate listing.
//
// A property without an ID cannot be cached or enriched and is dropped before
// the enrichment stage. Address fields parsed from the detail-page path are
// best effort; multi-word city names may mis-parse (see listings.ParseDetailPath).
type Property struct {
	ID        int64  `json:"id"`
	DetailURL string `json:"detailUrl,omitempty"`
	ImgSrc    string `json:"imgSrc,omitempty"`

	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode int    `json:"zipCode,omitempty"`

	// Price may be zero for sold-with-unknown-price or sparse provider records.
	Price int `json:"price,omitempty"`
	// RentEstimate is a monthly figure attached by the Rent Estimator.
	RentEstimate int `json:"rentEstimate,omitempty"`
	// MarketValueEstimate is a provider-furnished valuation distinct from the
	// asking price.
	MarketValueEstimate int `json:"marketValueEstimate,omitempty"`

	Beds       float64 `json:"beds,omitempty"`
	Baths      float64 `json:"baths,omitempty"`
	LivingArea float64 `json:"livingArea,omitempty"`
	LotArea    float64 `json:"lotArea,omitempty"`

	HomeType    string `json:"homeType,omitempty"`
	ListingType string `json:"listingType,omitempty"`
	StatusType  string `json:"statusType,omitempty"`
	StatusText  string `json:"statusText,omitempty"`
	LastSold    string `json:"lastSoldDate,omitempty"`

	// TravelTimeSeconds is the driving-time estimate to the request's commute
	// destination. Nil means no estimate; the value is scoped to one
	// destination, not global to the property.
	TravelTimeSeconds *int `json:"travelTimeSeconds,omitempty"`
}

// Identifiable reports whether the property can participate in caching and
// enrichment.
func (p *Property) Identifiable() bool {
	return p.ID != 0
}

// HasFullAddress reports whether the property carries all four address parts
// needed to build a commute origin.
func (p *Property) HasFullAddress() bool {
	return p.Address != "" && p.City != "" && p.State != "" && p.ZipCode != 0
}

// PriceBasis returns the price used for ratio math: the asking price when
// present, otherwise the market-value estimate. Zero means no usable basis.
func (p *Property) PriceBasis() int {
	if p.Price > 0 {
		return p.Price
	}
	return p.MarketValueEstimate
}
