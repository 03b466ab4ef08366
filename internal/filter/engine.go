// Package filter applies the local, no-refetch filter predicates and the
// prioritized multi-key sort over a merged property list. Apply is a pure
// function of its inputs and is re-run on every settings change.
package filter

import (
	"math"
	"sort"
	"strings"

	"homescout/server/internal/models"
)

// Apply sorts and filters properties by settings. The input slice is not
// modified.
func Apply(properties []models.Property, settings models.FilterSettings) []models.Property {
	result := make([]models.Property, len(properties))
	copy(result, properties)

	sortProperties(result, settings.SortOrder)

	homeTypes := selectedHomeTypes(properties, settings.HomeTypes)

	filtered := result[:0]
	for _, prop := range result {
		if !matches(prop, settings, homeTypes) {
			continue
		}
		filtered = append(filtered, prop)
	}
	out := make([]models.Property, len(filtered))
	copy(out, filtered)
	return out
}

// matches evaluates the AND-composed filter predicates.
func matches(prop models.Property, settings models.FilterSettings, homeTypes map[string]bool) bool {
	if settings.RentOnly && prop.RentEstimate <= 0 {
		return false
	}
	if settings.NewConstruction && prop.ListingType != models.ListingTypeNewConstruction {
		return false
	}
	if !settings.IncludeLand && (prop.Beds <= 0 || prop.Baths <= 0) {
		return false
	}
	if homeTypes != nil && !homeTypes[normalizeHomeType(prop.HomeType)] {
		return false
	}
	if settings.MeetsRule != nil {
		if prop.RentEstimate <= 0 || prop.PriceBasis() <= 0 {
			// The ratio filter only excludes properties it can evaluate;
			// undecidable cases defer to the rent-availability flag.
			return !settings.RentOnly
		}
		ratio := 100 * float64(prop.RentEstimate) / float64(prop.PriceBasis())
		if ratio < settings.MeetsRule.Min || ratio > settings.MeetsRule.Max {
			return false
		}
	}
	return true
}

// selectedHomeTypes resolves the home-type predicate set, keyed by the
// provider's raw marker form. Nil selection defaults to every type observed in
// the full unfiltered dataset, preferring a singleton {Single Family} when
// that type is present. Returns nil when no filtering applies.
func selectedHomeTypes(all []models.Property, selected []string) map[string]bool {
	if len(selected) == 0 {
		observed := make(map[string]bool)
		for _, prop := range all {
			if prop.HomeType != "" {
				observed[prop.HomeType] = true
			}
		}
		if len(observed) == 0 {
			return nil
		}
		if observed[models.HomeTypeSingleFamily] {
			return map[string]bool{models.HomeTypeSingleFamily: true}
		}
		return observed
	}

	set := make(map[string]bool, len(selected))
	for _, name := range selected {
		set[normalizeHomeType(name)] = true
	}
	return set
}

// normalizeHomeType maps either form ("Single Family" or "SINGLE_FAMILY") to
// the raw marker form.
func normalizeHomeType(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, " ", "_"))
}

// sortProperties applies the comparator chain: keys sorted by ascending
// priority, each applied as a stable re-sort, so the highest-priority key
// dominates the final order and lower-priority keys break its ties.
func sortProperties(properties []models.Property, order []models.SortOrder) {
	if len(order) == 0 {
		return
	}
	keys := make([]models.SortOrder, len(order))
	copy(keys, order)
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Priority < keys[j].Priority })

	for _, key := range keys {
		cmp := comparator(key)
		sort.SliceStable(properties, func(i, j int) bool {
			return cmp(&properties[i], &properties[j]) < 0
		})
	}
}

// Dimension accessors. Missing prices sort as +Inf so unpriced records land at
// the expensive end.
func priceOf(p *models.Property) float64 {
	if basis := p.PriceBasis(); basis > 0 {
		return float64(basis)
	}
	return math.Inf(1)
}

func rentToPrice(p *models.Property) float64 {
	return 100 * float64(p.RentEstimate) / priceOf(p)
}

func valueToPrice(p *models.Property) float64 {
	value := float64(p.MarketValueEstimate)
	if value == 0 {
		value = float64(p.Price)
	}
	return 100 * value / priceOf(p)
}

func pricePerArea(p *models.Property) float64 {
	area := p.LivingArea
	if area == 0 {
		area = 1
	}
	return float64(p.PriceBasis()) / area
}

func comparator(key models.SortOrder) func(a, b *models.Property) int {
	if key.Dimension == models.DimensionCommute {
		return commuteComparator(key.Ascending)
	}

	var accessor func(*models.Property) float64
	switch key.Dimension {
	case models.DimensionPrice:
		accessor = priceOf
	case models.DimensionRentToPrice:
		accessor = rentToPrice
	case models.DimensionValueToPrice:
		accessor = valueToPrice
	case models.DimensionPricePerArea:
		accessor = pricePerArea
	default:
		return func(a, b *models.Property) int { return 0 }
	}

	multiplier := 1.0
	if !key.Ascending {
		multiplier = -1
	}
	return func(a, b *models.Property) int {
		diff := multiplier * (accessor(a) - accessor(b))
		switch {
		case diff < 0:
			return -1
		case diff > 0:
			return 1
		default:
			return 0
		}
	}
}

// commuteComparator orders by travel time with an explicit missing-value rule:
// a property with no commute estimate sorts after one that has it regardless
// of direction, and two missing values are equal.
func commuteComparator(ascending bool) func(a, b *models.Property) int {
	multiplier := 1
	if !ascending {
		multiplier = -1
	}
	return func(a, b *models.Property) int {
		switch {
		case a.TravelTimeSeconds == nil && b.TravelTimeSeconds == nil:
			return 0
		case a.TravelTimeSeconds == nil:
			return 1
		case b.TravelTimeSeconds == nil:
			return -1
		default:
			return multiplier * (*a.TravelTimeSeconds - *b.TravelTimeSeconds)
		}
	}
}
