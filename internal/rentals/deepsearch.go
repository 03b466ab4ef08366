package rentals

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"homescout/server/internal/models"
	"homescout/server/internal/remote"
)

// deepSearchConcurrency bounds in-flight deep-search requests.
const deepSearchConcurrency = 20

// deepSearchPriceCeiling: the legacy API wastes quota on listings unlikely to
// cash-flow, so properties above this price are never deep-searched.
const deepSearchPriceCeiling = 400000

// DeepSearch is the legacy per-property XML estimation source. It resolves a
// direct rent estimate (and market valuation) for a single address instead of
// a zip-level median, at the cost of one quota-limited request per property.
type DeepSearch struct {
	logger  *logrus.Logger
	gateway *remote.Gateway
	baseURL string
	apiKey  string
}

func NewDeepSearch(logger *logrus.Logger, gateway *remote.Gateway, baseURL, apiKey string) *DeepSearch {
	if logger == nil {
		logger = logrus.New()
	}
	return &DeepSearch{logger: logger, gateway: gateway, baseURL: baseURL, apiKey: apiKey}
}

// Estimate fetches deep-search results for each eligible property and returns
// the discovered cache entries. Per-property failures are skipped silently.
func (d *DeepSearch) Estimate(ctx context.Context, properties []models.Property) models.Database {
	estimates := models.Database{}
	if len(properties) == 0 {
		return estimates
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(deepSearchConcurrency)

	for _, prop := range properties {
		if !prop.Identifiable() || prop.Address == "" || prop.ZipCode == 0 {
			continue
		}
		if prop.Price > deepSearchPriceCeiling {
			continue
		}
		prop := prop
		g.Go(func() error {
			id, entry, err := d.lookup(gctx, prop)
			if err != nil {
				d.logger.WithError(err).WithField("property_id", prop.ID).Debug("Deep search lookup failed")
				return nil
			}
			mu.Lock()
			estimates[models.RentalKey(id)] = entry
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return estimates
}

func (d *DeepSearch) lookup(ctx context.Context, prop models.Property) (int64, models.CacheEntry, error) {
	searchURL := fmt.Sprintf("%s/GetDeepSearchResults.htm?zws-id=%s&address=%s&citystatezip=%d&rentzestimate=true",
		d.baseURL, url.QueryEscape(d.apiKey), url.QueryEscape(prop.Address), prop.ZipCode)

	var payload any
	if err := d.gateway.FetchJSON(ctx, searchURL, remote.Options{Format: remote.FormatXML, Proxied: true}, &payload); err != nil {
		return 0, models.CacheEntry{}, err
	}

	// The payload is one result or a list of results depending on how many
	// matches the address produced.
	for _, result := range asSlice(payload) {
		rent := numberAt(result, "rentzestimate", "amount", "#text")
		if rent == 0 {
			continue
		}
		id := int64(numberAt(result, "zpid"))
		if id == 0 {
			continue
		}
		entry := models.CacheEntry{
			RentEstimate:        int(rent),
			MarketValueEstimate: int(numberAt(result, "zestimate", "amount", "#text")),
		}
		return id, entry, nil
	}
	return 0, models.CacheEntry{}, fmt.Errorf("no rent estimate in deep search results for %q", prop.Address)
}

// asSlice normalizes a decoded payload to a slice of results.
func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	if v == nil {
		return nil
	}
	return []any{v}
}

// numberAt walks a decoded XML-as-JSON tree along path, unwrapping
// single-element arrays, and coerces the leaf to a number. Returns 0 when the
// path is absent or non-numeric.
func numberAt(v any, path ...string) float64 {
	for _, key := range path {
		for {
			if s, ok := v.([]any); ok && len(s) > 0 {
				v = s[0]
				continue
			}
			break
		}
		m, ok := v.(map[string]any)
		if !ok {
			return 0
		}
		v = m[key]
	}
	for {
		if s, ok := v.([]any); ok && len(s) > 0 {
			v = s[0]
			continue
		}
		break
	}
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
