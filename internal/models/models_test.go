package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayHomeType(t *testing.T) {
	assert.Equal(t, "Single Family", DisplayHomeType("SINGLE_FAMILY"))
	assert.Equal(t, "Multi Family", DisplayHomeType("MULTI_FAMILY"))
	assert.Equal(t, "Lot", DisplayHomeType("LOT"))
	assert.Equal(t, "", DisplayHomeType(""))
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "29381", RentalKey(29381))
	assert.Equal(t, "29381|downtown", CommuteKey(29381, "downtown"))
	// Keyspaces never collide: commute keys always carry the separator.
	assert.NotEqual(t, RentalKey(29381), CommuteKey(29381, ""))
}

func TestDatabaseMerge(t *testing.T) {
	db := Database{"1": {RentEstimate: 1000}}
	db.Merge(Database{"1": {RentEstimate: 2000}, "2": {RentEstimate: 1500}})

	assert.Equal(t, 2000, db["1"].RentEstimate)
	assert.Equal(t, 1500, db["2"].RentEstimate)
}

func TestPriceBasis(t *testing.T) {
	assert.Equal(t, 300000, (&Property{Price: 300000, MarketValueEstimate: 310000}).PriceBasis())
	assert.Equal(t, 310000, (&Property{MarketValueEstimate: 310000}).PriceBasis())
	assert.Equal(t, 0, (&Property{}).PriceBasis())
}

func TestHasFullAddress(t *testing.T) {
	full := Property{Address: "1 Main St", City: "Austin", State: "TX", ZipCode: 78701}
	assert.True(t, full.HasFullAddress())

	missingZip := full
	missingZip.ZipCode = 0
	assert.False(t, missingZip.HasFullAddress())
}

func TestDefaultFetchRequest(t *testing.T) {
	req := DefaultFetchRequest()
	assert.Equal(t, 3.5, req.Radius)
	assert.Equal(t, 1500000, req.PriceMost)
	assert.True(t, req.IncludeForSale)
	assert.False(t, req.IncludeRecentlySold)
}

func TestDefaultFilterSettings(t *testing.T) {
	settings := DefaultFilterSettings()
	assert.NotNil(t, settings.MeetsRule)
	assert.Equal(t, float64(2), settings.MeetsRule.Max)
	assert.Len(t, settings.SortOrder, 1)
	assert.Equal(t, DimensionCommute, settings.SortOrder[0].Dimension)
	assert.True(t, settings.SortOrder[0].Ascending)
}
