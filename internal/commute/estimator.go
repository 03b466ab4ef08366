package commute

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"googlemaps.github.io/maps"

	"homescout/server/internal/models"
)

// The matrix API accepts at most 25 origins per request; batches are issued
// one at a time under a 1 request / 2 second throttle.
const (
	maxOriginsPerBatch = 25
	batchInterval      = 2 * time.Second
)

// MatrixAPI is the distance-matrix SDK surface the estimator consumes.
// *maps.Client satisfies it.
type MatrixAPI interface {
	DistanceMatrix(ctx context.Context, r *maps.DistanceMatrixRequest) (*maps.DistanceMatrixResponse, error)
}

// Estimator resolves driving-time estimates from properties to a caller
// supplied destination.
type Estimator struct {
	logger  *logrus.Logger
	api     MatrixAPI
	limiter *rate.Limiter

	// now is swappable in tests for deterministic departure times.
	now func() time.Time
}

func NewEstimator(logger *logrus.Logger, api MatrixAPI) *Estimator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Estimator{
		logger:  logger,
		api:     api,
		limiter: rate.NewLimiter(rate.Every(batchInterval), 1),
		now:     time.Now,
	}
}

// Estimate returns a partial map from property id to driving time in seconds.
//
// Only properties lacking a travel time are considered, and a property missing
// any of address, city, state or zip cannot form an origin and is excluded
// permanently. A batch rejected outright contributes no entries for any
// property in it; within a successful batch, per-element failures skip only
// that property.
func (e *Estimator) Estimate(ctx context.Context, properties []models.Property, destination string) map[int64]int {
	type origin struct {
		id   int64
		text string
	}
	var origins []origin
	for _, prop := range properties {
		if prop.TravelTimeSeconds != nil {
			continue
		}
		if !prop.Identifiable() || !prop.HasFullAddress() {
			continue
		}
		origins = append(origins, origin{
			id:   prop.ID,
			text: fmt.Sprintf("%s %s, %s %d", prop.Address, prop.City, prop.State, prop.ZipCode),
		})
	}

	times := make(map[int64]int)
	if len(origins) == 0 {
		return times
	}

	// Representative weekday-morning departure: next Tuesday 8:10 local time.
	departure := nextTuesdayDeparture(e.now())

	for start := 0; start < len(origins); start += maxOriginsPerBatch {
		end := start + maxOriginsPerBatch
		if end > len(origins) {
			end = len(origins)
		}
		batch := origins[start:end]

		if err := e.limiter.Wait(ctx); err != nil {
			return times
		}

		texts := make([]string, len(batch))
		for i, o := range batch {
			texts[i] = o.text
		}
		resp, err := e.api.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
			Origins:       texts,
			Destinations:  []string{destination},
			Mode:          maps.TravelModeDriving,
			Units:         maps.UnitsImperial,
			DepartureTime: strconv.FormatInt(departure.Unix(), 10),
			TrafficModel:  maps.TrafficModelBestGuess,
		})
		if err != nil {
			// Rejected batch: no entries for any property in it.
			e.logger.WithError(err).WithField("batch_size", len(batch)).Warn("Distance matrix batch rejected")
			continue
		}

		for i, o := range batch {
			if i >= len(resp.Rows) || len(resp.Rows[i].Elements) == 0 {
				continue
			}
			element := resp.Rows[i].Elements[0]
			if element.Status != "OK" {
				continue
			}
			duration := element.DurationInTraffic
			if duration == 0 {
				duration = element.Duration
			}
			times[o.id] = int(duration / time.Second)
		}
	}

	e.logger.WithFields(logrus.Fields{
		"requested": len(origins),
		"estimated": len(times),
	}).Info("Estimated commute times")
	return times
}

// nextTuesdayDeparture returns the next Tuesday 8:10 AM in now's location,
// moving to the following week when now is already past Tuesday 8:10.
func nextTuesdayDeparture(now time.Time) time.Time {
	departure := now
	pastDeparture := now.Hour() > 8 || (now.Hour() == 8 && now.Minute() > 10)
	if now.Weekday() != time.Tuesday || pastDeparture {
		departure = departure.AddDate(0, 0, 1)
		for departure.Weekday() != time.Tuesday {
			departure = departure.AddDate(0, 0, 1)
		}
	}
	return time.Date(departure.Year(), departure.Month(), departure.Day(), 8, 10, 0, 0, departure.Location())
}
