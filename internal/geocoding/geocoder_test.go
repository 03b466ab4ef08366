package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescout/server/internal/remote"
)

func geocodeServer(t *testing.T, body string, capture *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if capture != nil {
			*capture = r.URL.RawQuery
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func newTestGeocoder(server *httptest.Server) *Geocoder {
	logger := logrus.New()
	gateway := remote.NewGateway(logger, nil, "", "")
	return NewGeocoder(logger, gateway, server.URL, "test-key")
}

func TestResolve_Success(t *testing.T) {
	var query string
	server := geocodeServer(t, `{
		"info": {"statusCode": 0},
		"results": [{"locations": [{"latLng": {"lat": 30.2672, "lng": -97.7431}}]}]
	}`, &query)
	defer server.Close()

	loc, err := newTestGeocoder(server).Resolve(context.Background(), "Austin, TX")
	require.NoError(t, err)
	require.NotNil(t, loc)
	assert.Equal(t, 30.2672, loc.Lat)
	assert.Equal(t, -97.7431, loc.Lng)

	// The query is lowercased before it reaches the provider.
	assert.Contains(t, query, "location=austin%2C+tx")
	assert.Contains(t, query, "key=test-key")
}

func TestResolve_FailureStatusYieldsNil(t *testing.T) {
	server := geocodeServer(t, `{"info": {"statusCode": 400}, "results": []}`, nil)
	defer server.Close()

	loc, err := newTestGeocoder(server).Resolve(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestResolve_NoLocationsYieldsNil(t *testing.T) {
	server := geocodeServer(t, `{"info": {"statusCode": 0}, "results": [{"locations": []}]}`, nil)
	defer server.Close()

	loc, err := newTestGeocoder(server).Resolve(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestResolve_TransportErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestGeocoder(server).Resolve(context.Background(), "Austin, TX")
	assert.Error(t, err)
}

func TestNewBoundingBox_SymmetricAroundCenter(t *testing.T) {
	const lat, lng = 30.2672, -97.7431
	box := NewBoundingBox(lat, lng, 7)

	assert.Greater(t, box.North, lat)
	assert.Less(t, box.South, lat)
	assert.Greater(t, box.East, lng)
	assert.Less(t, box.West, lng)

	// Latitude offsets north and south are symmetric to within rounding.
	assert.InDelta(t, box.North-lat, lat-box.South, 1e-6)
	assert.InDelta(t, box.East-lng, lng-box.West, 1e-6)
}

func TestNewBoundingBox_ScalesWithSide(t *testing.T) {
	small := NewBoundingBox(30, -97, 1)
	large := NewBoundingBox(30, -97, 2)

	assert.InDelta(t, 2*(small.North-30), large.North-30, 1e-9)
}
