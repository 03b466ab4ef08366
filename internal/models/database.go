package models

import (
	"fmt"
	"strconv"
)

// CacheEntry is one record of the persistent enrichment store. Rental entries
// populate the estimate fields; commute entries populate TravelTimeSeconds.
// Entries are written once and never refreshed by this system.
type CacheEntry struct {
	RentEstimate        int  `json:"rentEstimate,omitempty"`
	MarketValueEstimate int  `json:"marketValueEstimate,omitempty"`
	TravelTimeSeconds   *int `json:"travelTimeSeconds,omitempty"`
}

// Database is the whole persistent store blob, keyed by RentalKey or
// CommuteKey. The external store only supports fetching and overwriting the
// blob as a unit; concurrent writers are last-write-wins at blob granularity.
type Database map[string]CacheEntry

// RentalKey keys a rental cache entry by property id.
func RentalKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// CommuteKey keys a commute cache entry by (property id, destination) pair.
func CommuteKey(id int64, destination string) string {
	return fmt.Sprintf("%d|%s", id, destination)
}

// Merge overlays other onto db, returning db. Existing keys are overwritten;
// callers that must preserve first-write-wins semantics filter beforehand.
func (db Database) Merge(other Database) Database {
	for k, v := range other {
		db[k] = v
	}
	return db
}
