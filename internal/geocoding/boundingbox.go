package geocoding

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const metersPerMile = 1.60934 * 1000

// BoundingBox is a rectangular lat/lng region approximating a circular search
// radius.
type BoundingBox struct {
	North float64 `json:"north"`
	East  float64 `json:"east"`
	South float64 `json:"south"`
	West  float64 `json:"west"`
}

// NewBoundingBox computes a box of half-width sideMiles around the center by
// offsetting great-circle destination points at bearings 0, 90, 180 and 270
// degrees. Valid for side lengths small relative to Earth's radius; degrades
// near the poles.
func NewBoundingBox(lat, lng, sideMiles float64) BoundingBox {
	sideMeters := sideMiles * metersPerMile
	center := orb.Point{lng, lat}
	return BoundingBox{
		North: geo.PointAtBearingAndDistance(center, 0, sideMeters).Lat(),
		East:  geo.PointAtBearingAndDistance(center, 90, sideMeters).Lon(),
		South: geo.PointAtBearingAndDistance(center, 180, sideMeters).Lat(),
		West:  geo.PointAtBearingAndDistance(center, 270, sideMeters).Lon(),
	}
}
