package rentals

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"homescout/server/internal/geocoding"
	"homescout/server/internal/models"
	"homescout/server/internal/remote"
)

// Comparable lookups are throttled to at most 5 requests per 3-second window.
// Spacing requests evenly at one per 600ms satisfies the window limit for any
// alignment of the window.
const (
	compsRequestsPerWindow = 5
	compsWindowSeconds     = 3
)

// Resolver resolves a free-text location to coordinates.
type Resolver interface {
	Resolve(ctx context.Context, location string) (*geocoding.Location, error)
}

// Store is the persistent enrichment database the estimator reads through and
// writes back to.
type Store interface {
	Fetch(ctx context.Context) (models.Database, error)
	UpdateAsync(db models.Database) <-chan struct{}
}

type compsResponse struct {
	Data []struct {
		Price string `json:"price"`
	} `json:"data"`
}

// Estimator resolves rental-income estimates for properties that lack one.
// Estimates are per-area, not per-unit: properties needing an estimate are
// grouped by zip code and each zip is estimated once from the median asking
// price of comparable rentals within a 1-mile box around the zip's centroid.
type Estimator struct {
	logger   *logrus.Logger
	gateway  *remote.Gateway
	resolver Resolver
	store    Store
	baseURL  string
	limiter  *rate.Limiter

	// deep, when non-nil, estimates properties the comparable lookup could
	// not cover through the legacy per-property deep-search API.
	deep *DeepSearch
}

func NewEstimator(logger *logrus.Logger, gateway *remote.Gateway, resolver Resolver, store Store, baseURL string) *Estimator {
	if logger == nil {
		logger = logrus.New()
	}
	interval := compsWindowSeconds * time.Second / compsRequestsPerWindow
	return &Estimator{
		logger:   logger,
		gateway:  gateway,
		resolver: resolver,
		store:    store,
		baseURL:  baseURL,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

// SetDeepSearch enables the legacy deep-search fallback source.
func (e *Estimator) SetDeepSearch(d *DeepSearch) {
	e.deep = d
}

// Estimate merges rent and valuation estimates onto every input property.
//
// Cached entries always win: a property whose id already has a cache entry
// keeps the cached value, and this system never refreshes an estimate once
// set. Newly discovered estimates are written back to the store as a detached
// best-effort side effect. progress, when non-nil, is called after each zip
// lookup completes (successfully or not).
func (e *Estimator) Estimate(ctx context.Context, properties []models.Property, progress func(done, total int)) ([]models.Property, error) {
	db, err := e.store.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read rental cache: %w", err)
	}

	// Provider-supplied estimates are persisted on sight so future runs skip
	// those properties entirely.
	for _, prop := range properties {
		if prop.Identifiable() && prop.RentEstimate > 0 {
			entry := db[models.RentalKey(prop.ID)]
			entry.RentEstimate = prop.RentEstimate
			db[models.RentalKey(prop.ID)] = entry
		}
	}

	need := e.partition(properties, db)
	if len(need) > 0 {
		estimates := e.estimateByZip(ctx, need, progress)
		db.Merge(estimates)
	} else if progress != nil {
		progress(0, 0)
	}

	// Fire-and-forget write-back: a failed persist never fails the estimate.
	e.store.UpdateAsync(db)

	merged := make([]models.Property, len(properties))
	for i, prop := range properties {
		merged[i] = prop
		if !prop.Identifiable() {
			continue
		}
		if entry, ok := db[models.RentalKey(prop.ID)]; ok {
			if entry.RentEstimate > 0 {
				merged[i].RentEstimate = entry.RentEstimate
			}
			if entry.MarketValueEstimate > 0 {
				merged[i].MarketValueEstimate = entry.MarketValueEstimate
			}
		}
	}
	return merged, nil
}

// partition returns the properties that need a fresh estimate: identifiable,
// addressable, priced, not already estimated, and not in the cache.
func (e *Estimator) partition(properties []models.Property, db models.Database) []models.Property {
	var need []models.Property
	for _, prop := range properties {
		if !prop.Identifiable() || prop.Address == "" || prop.ZipCode == 0 || prop.Price == 0 {
			continue
		}
		if prop.RentEstimate > 0 {
			continue
		}
		if _, ok := db[models.RentalKey(prop.ID)]; ok {
			continue
		}
		need = append(need, prop)
	}
	return need
}

// estimateByZip resolves one estimate per unique zip code and fans it out to
// every property in that zip. A zip whose geocoding or comparable lookup fails
// contributes no entries and is not retried within the run.
func (e *Estimator) estimateByZip(ctx context.Context, need []models.Property, progress func(done, total int)) models.Database {
	zips := make([]int, 0)
	seen := make(map[int]bool)
	for _, prop := range need {
		if !seen[prop.ZipCode] {
			seen[prop.ZipCode] = true
			zips = append(zips, prop.ZipCode)
		}
	}

	var (
		mu    sync.Mutex
		rents = make(map[int]int)
		done  = 0
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, zip := range zips {
		zip := zip
		g.Go(func() error {
			rent, err := e.estimateZip(gctx, zip)

			mu.Lock()
			done++
			finished := done
			if err != nil {
				e.logger.WithError(err).WithField("zip", zip).Warn("Skipping zip with failed rent estimate")
			} else {
				rents[zip] = rent
			}
			mu.Unlock()

			if progress != nil {
				progress(finished, len(zips))
			}
			return nil
		})
	}
	g.Wait()

	estimates := models.Database{}
	for _, prop := range need {
		if rent, ok := rents[prop.ZipCode]; ok {
			estimates[models.RentalKey(prop.ID)] = models.CacheEntry{RentEstimate: rent}
		}
	}

	if e.deep != nil {
		var uncovered []models.Property
		for _, prop := range need {
			if _, ok := estimates[models.RentalKey(prop.ID)]; !ok {
				uncovered = append(uncovered, prop)
			}
		}
		estimates.Merge(e.deep.Estimate(ctx, uncovered))
	}
	return estimates
}

// estimateZip resolves one zip code to the median asking price of comparable
// rentals inside a 1-mile bounding box around the zip's centroid.
func (e *Estimator) estimateZip(ctx context.Context, zip int) (int, error) {
	loc, err := e.resolver.Resolve(ctx, strconv.Itoa(zip))
	if err != nil {
		return 0, err
	}
	if loc == nil {
		return 0, fmt.Errorf("zip %d could not be geocoded", zip)
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	box := geocoding.NewBoundingBox(loc.Lat, loc.Lng, 1)
	compsURL := fmt.Sprintf("%s?bounds=%f,%f,%f,%f", e.baseURL, box.South, box.North, box.West, box.East)

	var resp compsResponse
	if err := e.gateway.FetchJSON(ctx, compsURL, remote.Options{Format: remote.FormatJSON, Proxied: true}, &resp); err != nil {
		return 0, err
	}

	prices := make([]float64, 0, len(resp.Data))
	for _, comp := range resp.Data {
		if price := parseCompPrice(comp.Price); price > 0 {
			prices = append(prices, price)
		}
	}
	mid, ok := median(prices)
	if !ok {
		return 0, fmt.Errorf("no comparables found for zip %d", zip)
	}
	return int(mid), nil
}

// parseCompPrice strips separator punctuation and currency symbols from a
// comparable's price string. The comparables provider mixes "1,500", "1.500"
// and "$1500" formats; separators are dropped wholesale.
func parseCompPrice(price string) float64 {
	cleaned := strings.NewReplacer(".", "", ",", "").Replace(price)
	var b strings.Builder
	for _, r := range cleaned {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	f, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return f
}
