package enrichment

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"homescout/server/internal/geocoding"
	"homescout/server/internal/listings"
	"homescout/server/internal/models"
)

// Progress phase boundaries. Progress is monotonically non-decreasing within
// a run and terminates at 1.0 on success; the boundaries themselves are a
// design choice, not a contract.
const (
	progressGeocoded    = 0.05
	progressListings    = 0.30
	progressRentStart   = 0.40
	progressRentDone    = 0.70
	progressCacheWrite  = 0.75
	progressCommuteDone = 0.98
	progressComplete    = 1.0
)

// Resolver resolves a request's free-text location.
type Resolver interface {
	Resolve(ctx context.Context, location string) (*geocoding.Location, error)
}

// ListingSource fetches raw inventory for a bounding box and price band.
type ListingSource interface {
	Search(ctx context.Context, q listings.Query) ([]models.Property, error)
}

// RentEstimator merges rental estimates onto properties.
type RentEstimator interface {
	Estimate(ctx context.Context, properties []models.Property, progress func(done, total int)) ([]models.Property, error)
}

// CommuteEstimator resolves driving times to a destination.
type CommuteEstimator interface {
	Estimate(ctx context.Context, properties []models.Property, destination string) map[int64]int
}

// Store is the persistent enrichment database, used here for the commute
// cache (composite keys in the same blob as rental entries).
type Store interface {
	Fetch(ctx context.Context) (models.Database, error)
	UpdateAsync(db models.Database) <-chan struct{}
}

// State is the observable pipeline state consumed by the presentation layer.
// The UI always receives either a (possibly empty) property list or a loading
// progress signal, never an error, for recoverable failures.
type State struct {
	Seq        uint64              `json:"seq"`
	Loading    bool                `json:"loading"`
	Progress   float64             `json:"progress"`
	Request    models.FetchRequest `json:"request"`
	Properties []models.Property   `json:"properties"`
}

// Orchestrator sequences one enrichment pipeline at a time:
// geocode -> fetch listings -> rent estimation (cache read/estimate/write) ->
// commute estimation -> merged result. A newer submission supersedes an older
// one; only the result matching the latest sequence number is committed.
type Orchestrator struct {
	logger   *logrus.Logger
	geocoder Resolver
	source   ListingSource
	rents    RentEstimator
	commute  CommuteEstimator
	store    Store
	queue    *RequestQueue

	seq   atomic.Uint64
	mu    sync.RWMutex
	state State
}

func NewOrchestrator(
	logger *logrus.Logger,
	geocoder Resolver,
	source ListingSource,
	rents RentEstimator,
	commute CommuteEstimator,
	store Store,
) *Orchestrator {
	if logger == nil {
		logger = logrus.New()
	}
	o := &Orchestrator{
		logger:   logger,
		geocoder: geocoder,
		source:   source,
		rents:    rents,
		commute:  commute,
		store:    store,
		queue:    NewRequestQueue(16, logger),
	}
	o.queue.Subscribe(o.handle)
	return o
}

// Start begins processing submitted requests.
func (o *Orchestrator) Start() {
	o.queue.Start()
}

// Stop shuts the orchestrator down. In-flight work winds down at the next
// supersession check.
func (o *Orchestrator) Stop() {
	o.queue.Close()
	o.seq.Add(1)
}

// Submit queues a fetch request and returns its supersession token. Rapid
// successive submissions coalesce to the last one; the returned token can be
// compared against Snapshot().Seq to learn whether this request's result is
// the one on display.
func (o *Orchestrator) Submit(req models.FetchRequest) uint64 {
	seq := o.seq.Add(1)

	o.mu.Lock()
	prev := o.state
	o.state.Seq = seq
	o.state.Loading = true
	o.state.Progress = 0
	o.state.Request = req
	o.mu.Unlock()

	if err := o.queue.Push(submission{seq: seq, req: req}); err != nil {
		o.logger.WithError(err).Warn("Fetch request rejected")
		// No run will ever commit this seq, so restore the state it clobbered.
		o.mu.Lock()
		if o.state.Seq == seq {
			o.state = prev
		}
		o.mu.Unlock()
	}
	return seq
}

// Snapshot returns the current observable state.
func (o *Orchestrator) Snapshot() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// superseded reports whether a newer request has been submitted since seq.
func (o *Orchestrator) superseded(seq uint64) bool {
	return o.seq.Load() != seq
}

// setProgress advances the progress fraction for seq, never backwards.
func (o *Orchestrator) setProgress(seq uint64, progress float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Seq != seq {
		return
	}
	if progress > o.state.Progress {
		o.state.Progress = progress
	}
}

// commit publishes a run's result unless the run has been superseded.
func (o *Orchestrator) commit(seq uint64, properties []models.Property) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Seq != seq {
		o.logger.WithField("seq", seq).Debug("Discarding superseded result")
		return
	}
	o.state.Loading = false
	o.state.Progress = progressComplete
	o.state.Properties = properties
}

func (o *Orchestrator) handle(s submission) {
	ctx := context.Background()
	properties := o.run(ctx, s.seq, s.req)
	o.commit(s.seq, properties)
}

// run executes the pipeline stages. Every stage degrades to "no enrichment
// from this stage" rather than aborting the pipeline; only an unresolvable
// location short-circuits, and it short-circuits to an empty result, not an
// error.
func (o *Orchestrator) run(ctx context.Context, seq uint64, req models.FetchRequest) []models.Property {
	logger := o.logger.WithFields(logrus.Fields{"seq": seq, "location": req.GeoLocation})

	loc, err := o.geocoder.Resolve(ctx, req.GeoLocation)
	if err != nil {
		logger.WithError(err).Error("Geocoding failed")
		return []models.Property{}
	}
	if loc == nil {
		logger.Warn("Location could not be resolved")
		return []models.Property{}
	}
	o.setProgress(seq, progressGeocoded)
	if o.superseded(seq) {
		return nil
	}

	includeActive := req.IncludeForSale || !req.IncludeRecentlySold
	properties, err := o.source.Search(ctx, listings.Query{
		Box:           geocoding.NewBoundingBox(loc.Lat, loc.Lng, req.Radius*2),
		PriceFloor:    req.PriceFrom,
		PriceCeil:     req.PriceMost,
		IncludeActive: includeActive,
		IncludeSold:   req.IncludeRecentlySold,
		SoldInLast:    req.SoldInLast,
	})
	if err != nil {
		// Degrade to zero results for this stage; cached enrichment data is
		// untouched.
		logger.WithError(err).Error("Listing fetch failed")
		return []models.Property{}
	}
	o.setProgress(seq, progressListings)
	if o.superseded(seq) {
		return nil
	}

	merged, err := o.rents.Estimate(ctx, properties, func(done, total int) {
		if total <= 0 {
			o.setProgress(seq, progressRentDone)
			return
		}
		span := progressRentDone - progressRentStart
		o.setProgress(seq, progressRentStart+span*float64(done)/float64(total))
	})
	if err != nil {
		logger.WithError(err).Error("Rent estimation failed; continuing without rent data")
		merged = properties
	}
	o.setProgress(seq, progressCacheWrite)
	if o.superseded(seq) {
		return nil
	}

	if req.CommuteLocation != "" && o.commute != nil {
		merged = o.attachCommuteTimes(ctx, logger, merged, req.CommuteLocation)
		o.setProgress(seq, progressCommuteDone)
	}
	return merged
}

// attachCommuteTimes merges cached and freshly estimated driving times onto
// the properties. Commute entries live in the same persistent blob as rental
// entries, under (property id, destination) composite keys.
func (o *Orchestrator) attachCommuteTimes(ctx context.Context, logger *logrus.Entry, properties []models.Property, destination string) []models.Property {
	db, err := o.store.Fetch(ctx)
	if err != nil {
		logger.WithError(err).Warn("Commute cache unavailable; estimating all origins")
		db = models.Database{}
	}

	// The rent stage persists through a detached write, so the blob fetched
	// here may predate it. Carry this run's estimates forward; otherwise the
	// commute write-back would overwrite the store without them.
	for _, prop := range properties {
		if !prop.Identifiable() || (prop.RentEstimate == 0 && prop.MarketValueEstimate == 0) {
			continue
		}
		entry := db[models.RentalKey(prop.ID)]
		if prop.RentEstimate > 0 {
			entry.RentEstimate = prop.RentEstimate
		}
		if prop.MarketValueEstimate > 0 {
			entry.MarketValueEstimate = prop.MarketValueEstimate
		}
		db[models.RentalKey(prop.ID)] = entry
	}

	merged := make([]models.Property, len(properties))
	for i, prop := range properties {
		merged[i] = prop
		if entry, ok := db[models.CommuteKey(prop.ID, destination)]; ok && entry.TravelTimeSeconds != nil {
			seconds := *entry.TravelTimeSeconds
			merged[i].TravelTimeSeconds = &seconds
		}
	}

	times := o.commute.Estimate(ctx, merged, destination)
	if len(times) == 0 {
		return merged
	}

	for i := range merged {
		if seconds, ok := times[merged[i].ID]; ok {
			value := seconds
			merged[i].TravelTimeSeconds = &value
			db[models.CommuteKey(merged[i].ID, destination)] = models.CacheEntry{TravelTimeSeconds: &value}
		}
	}
	o.store.UpdateAsync(db)
	return merged
}
