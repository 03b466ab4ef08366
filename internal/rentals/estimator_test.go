package rentals

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"homescout/server/internal/geocoding"
	"homescout/server/internal/models"
	"homescout/server/internal/remote"
)

type fakeResolver struct {
	loc   *geocoding.Location
	err   error
	calls atomic.Int32
}

func (f *fakeResolver) Resolve(ctx context.Context, location string) (*geocoding.Location, error) {
	f.calls.Add(1)
	return f.loc, f.err
}

type fakeStore struct {
	db       models.Database
	fetchErr error
	updated  models.Database
}

func (f *fakeStore) Fetch(ctx context.Context) (models.Database, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.db == nil {
		return models.Database{}, nil
	}
	return f.db, nil
}

func (f *fakeStore) UpdateAsync(db models.Database) <-chan struct{} {
	f.updated = db
	ch := make(chan struct{})
	close(ch)
	return ch
}

func compsServer(t *testing.T, requests *atomic.Int64, prices ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[`))
		for i, p := range prices {
			if i > 0 {
				w.Write([]byte(","))
			}
			w.Write([]byte(`{"price":"` + p + `"}`))
		}
		w.Write([]byte(`]}`))
	}))
}

func newTestEstimator(t *testing.T, baseURL string, resolver Resolver, store Store) *Estimator {
	t.Helper()
	logger := logrus.New()
	gateway := remote.NewGateway(logger, nil, "", "")
	return NewEstimator(logger, gateway, resolver, store, baseURL)
}

func TestEstimate_FreshZipUsesMedianOfComparables(t *testing.T) {
	var requests atomic.Int64
	server := compsServer(t, &requests, "1,500", "2,500", "2,000")
	defer server.Close()

	resolver := &fakeResolver{loc: &geocoding.Location{Lat: 30.27, Lng: -97.74}}
	store := &fakeStore{}
	e := newTestEstimator(t, server.URL, resolver, store)

	properties := []models.Property{
		{ID: 42, Address: "100 Main St", ZipCode: 78701, Price: 300000},
	}

	merged, err := e.Estimate(context.Background(), properties, nil)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, 2000, merged[0].RentEstimate)
	assert.Equal(t, int64(1), requests.Load())

	// The write-back carries the new entry keyed by property id.
	require.NotNil(t, store.updated)
	entry, ok := store.updated[models.RentalKey(42)]
	require.True(t, ok)
	assert.Equal(t, 2000, entry.RentEstimate)
}

func TestEstimate_CachedEntrySkipsRemoteLookup(t *testing.T) {
	var requests atomic.Int64
	server := compsServer(t, &requests, "9,999")
	defer server.Close()

	resolver := &fakeResolver{loc: &geocoding.Location{Lat: 30.27, Lng: -97.74}}
	store := &fakeStore{db: models.Database{
		models.RentalKey(42): {RentEstimate: 1700},
	}}
	e := newTestEstimator(t, server.URL, resolver, store)

	properties := []models.Property{
		{ID: 42, Address: "100 Main St", ZipCode: 78701, Price: 300000},
	}

	merged, err := e.Estimate(context.Background(), properties, nil)
	require.NoError(t, err)
	assert.Equal(t, 1700, merged[0].RentEstimate)
	assert.Equal(t, int64(0), requests.Load())
	assert.Equal(t, int32(0), resolver.calls.Load())
}

func TestEstimate_SharedZipEstimatedOnce(t *testing.T) {
	var requests atomic.Int64
	server := compsServer(t, &requests, "1,800")
	defer server.Close()

	resolver := &fakeResolver{loc: &geocoding.Location{Lat: 30.27, Lng: -97.74}}
	store := &fakeStore{}
	e := newTestEstimator(t, server.URL, resolver, store)

	properties := []models.Property{
		{ID: 1, Address: "100 Main St", ZipCode: 78701, Price: 300000},
		{ID: 2, Address: "200 Main St", ZipCode: 78701, Price: 250000},
	}

	merged, err := e.Estimate(context.Background(), properties, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), requests.Load())
	assert.Equal(t, 1800, merged[0].RentEstimate)
	assert.Equal(t, 1800, merged[1].RentEstimate)
}

func TestEstimate_ComparableLookupsThrottled(t *testing.T) {
	var mu sync.Mutex
	var hits []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits = append(hits, time.Now())
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"price":"1,500"}]}`))
	}))
	defer server.Close()

	resolver := &fakeResolver{loc: &geocoding.Location{Lat: 30.27, Lng: -97.74}}
	e := newTestEstimator(t, server.URL, resolver, &fakeStore{})

	// Five lookups per three seconds, spaced evenly with no burst headroom.
	assert.Equal(t, rate.Every(600*time.Millisecond), e.limiter.Limit())
	assert.Equal(t, 1, e.limiter.Burst())

	var properties []models.Property
	for i := 1; i <= 6; i++ {
		properties = append(properties, models.Property{
			ID:      int64(i),
			Address: fmt.Sprintf("%d Main St", i),
			ZipCode: 78700 + i,
			Price:   300000,
		})
	}

	_, err := e.Estimate(context.Background(), properties, nil)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, hits, 6)
	sort.Slice(hits, func(i, j int) bool { return hits[i].Before(hits[j]) })
	// The sixth lookup may leave only once the first has aged out of the
	// window, so the span of any six consecutive lookups covers it.
	assert.GreaterOrEqual(t, hits[5].Sub(hits[0]), 3*time.Second-100*time.Millisecond)
}

func TestEstimate_FailedZipSkippedOthersProceed(t *testing.T) {
	server := compsServer(t, nil, "1,800")
	defer server.Close()

	// Geocoding fails for every zip lookup.
	resolver := &fakeResolver{loc: nil}
	store := &fakeStore{}
	e := newTestEstimator(t, server.URL, resolver, store)

	properties := []models.Property{
		{ID: 1, Address: "100 Main St", ZipCode: 78701, Price: 300000},
	}

	merged, err := e.Estimate(context.Background(), properties, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, merged[0].RentEstimate)
}

func TestEstimate_ProviderEstimatePersistedOnSight(t *testing.T) {
	server := compsServer(t, nil)
	defer server.Close()

	store := &fakeStore{}
	e := newTestEstimator(t, server.URL, &fakeResolver{}, store)

	properties := []models.Property{
		{ID: 7, Address: "100 Main St", ZipCode: 78701, Price: 300000, RentEstimate: 2100},
	}

	_, err := e.Estimate(context.Background(), properties, nil)
	require.NoError(t, err)
	require.NotNil(t, store.updated)
	entry, ok := store.updated[models.RentalKey(7)]
	require.True(t, ok)
	assert.Equal(t, 2100, entry.RentEstimate)
}

func TestEstimate_ProgressReported(t *testing.T) {
	server := compsServer(t, nil, "1,500")
	defer server.Close()

	resolver := &fakeResolver{loc: &geocoding.Location{Lat: 30.27, Lng: -97.74}}
	e := newTestEstimator(t, server.URL, resolver, &fakeStore{})

	properties := []models.Property{
		{ID: 1, Address: "100 Main St", ZipCode: 78701, Price: 300000},
	}

	var calls [][2]int
	_, err := e.Estimate(context.Background(), properties, func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 1}}, calls)
}

func TestEstimate_StoreFetchErrorIsFatal(t *testing.T) {
	e := newTestEstimator(t, "", &fakeResolver{}, &fakeStore{fetchErr: assert.AnError})

	_, err := e.Estimate(context.Background(), []models.Property{{ID: 1}}, nil)
	assert.Error(t, err)
}

func TestPartition(t *testing.T) {
	e := newTestEstimator(t, "", &fakeResolver{}, &fakeStore{})
	db := models.Database{models.RentalKey(5): {RentEstimate: 1000}}

	properties := []models.Property{
		{ID: 0, Address: "A", ZipCode: 1, Price: 100},                    // no id
		{ID: 1, ZipCode: 1, Price: 100},                                  // no address
		{ID: 2, Address: "A", Price: 100},                                // no zip
		{ID: 3, Address: "A", ZipCode: 1},                                // no price
		{ID: 4, Address: "A", ZipCode: 1, Price: 100, RentEstimate: 900}, // already estimated
		{ID: 5, Address: "A", ZipCode: 1, Price: 100},                    // cached
		{ID: 6, Address: "A", ZipCode: 1, Price: 100},                    // needs estimate
	}

	need := e.partition(properties, db)
	assert.Len(t, need, 1)
	assert.Equal(t, int64(6), need[0].ID)
}
