package geocoding

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"homescout/server/internal/remote"
)

// Location is a resolved coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type geocodeResponse struct {
	Info struct {
		StatusCode int `json:"statusCode"`
	} `json:"info"`
	Results []struct {
		Locations []struct {
			LatLng Location `json:"latLng"`
		} `json:"locations"`
	} `json:"results"`
}

// Geocoder resolves free-text locations to coordinates through the remote
// gateway.
type Geocoder struct {
	logger  *logrus.Logger
	gateway *remote.Gateway
	baseURL string
	apiKey  string
}

func NewGeocoder(logger *logrus.Logger, gateway *remote.Gateway, baseURL, apiKey string) *Geocoder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Geocoder{
		logger:  logger,
		gateway: gateway,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Resolve returns the coordinates of a free-text location. A provider-reported
// non-zero status code or an empty result set yields (nil, nil): the location
// cannot be searched and callers surface an empty result set rather than an
// error. Transport failures propagate.
func (g *Geocoder) Resolve(ctx context.Context, location string) (*Location, error) {
	geocodeURL := fmt.Sprintf("%s?key=%s&location=%s",
		g.baseURL, url.QueryEscape(g.apiKey), url.QueryEscape(strings.ToLower(location)))

	var resp geocodeResponse
	err := g.gateway.FetchJSON(ctx, geocodeURL, remote.Options{Format: remote.FormatJSON, Proxied: true}, &resp)
	if err != nil {
		return nil, fmt.Errorf("geocoding request failed: %w", err)
	}

	if resp.Info.StatusCode != 0 {
		g.logger.WithFields(logrus.Fields{
			"location":    location,
			"status_code": resp.Info.StatusCode,
		}).Warn("Geocoder reported failure status")
		return nil, nil
	}
	if len(resp.Results) == 0 || len(resp.Results[0].Locations) == 0 {
		g.logger.WithField("location", location).Warn("Geocoder returned no locations")
		return nil, nil
	}

	loc := resp.Results[0].Locations[0].LatLng
	g.logger.WithFields(logrus.Fields{
		"location":  location,
		"latitude":  loc.Lat,
		"longitude": loc.Lng,
	}).Info("Resolved location")
	return &loc, nil
}
