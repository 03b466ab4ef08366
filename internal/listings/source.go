package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"

	"homescout/server/internal/geocoding"
	"homescout/server/internal/models"
	"homescout/server/internal/remote"
)

// Query selects the inventory to search for inside a bounding box.
type Query struct {
	Box        geocoding.BoundingBox
	PriceFloor int
	PriceCeil  int
	// IncludeActive requests for-sale inventory; IncludeSold requests
	// recently-sold inventory. Both may be set; the provider guarantees the
	// classes are disjoint so results are concatenated without deduplication.
	IncludeActive bool
	IncludeSold   bool
	// SoldInLast restricts sold inventory to the given number of days.
	// Zero means no restriction.
	SoldInLast int
}

type flagValue struct {
	Value bool `json:"value"`
}

type stringValue struct {
	Value string `json:"value"`
}

type filterState struct {
	Price struct {
		Min int `json:"min"`
		Max int `json:"max"`
	} `json:"price"`
	IsAllHomes           flagValue    `json:"isAllHomes"`
	IsRecentlySold       flagValue    `json:"isRecentlySold"`
	IsForSaleByAgent     flagValue    `json:"isForSaleByAgent"`
	IsForSaleByOwner     flagValue    `json:"isForSaleByOwner"`
	IsNewConstruction    flagValue    `json:"isNewConstruction"`
	IsComingSoon         flagValue    `json:"isComingSoon"`
	IsAuction            flagValue    `json:"isAuction"`
	IsForSaleForeclosure flagValue    `json:"isForSaleForeclosure"`
	SoldInLast           *stringValue `json:"soldInLast,omitempty"`
}

type searchQueryState struct {
	MapBounds   geocoding.BoundingBox `json:"mapBounds"`
	FilterState filterState           `json:"filterState"`
}

type searchResponse struct {
	Cat1 struct {
		SearchResults struct {
			MapResults []rawListing `json:"mapResults"`
		} `json:"searchResults"`
	} `json:"cat1"`
}

// Source queries the listings provider for properties inside a bounding box
// and price band.
type Source struct {
	logger  *logrus.Logger
	gateway *remote.Gateway
	baseURL string
}

func NewSource(logger *logrus.Logger, gateway *remote.Gateway, baseURL string) *Source {
	if logger == nil {
		logger = logrus.New()
	}
	return &Source{logger: logger, gateway: gateway, baseURL: baseURL}
}

// Search issues one provider query per requested inventory class and returns
// the parsed, concatenated results. Records lacking an id after parsing are
// dropped; records with no usable price are retained (sold-with-unknown-price)
// but cannot participate in ratio filtering downstream.
func (s *Source) Search(ctx context.Context, q Query) ([]models.Property, error) {
	var raw []rawListing
	if q.IncludeActive {
		batch, err := s.queryClass(ctx, q, false)
		if err != nil {
			return nil, err
		}
		raw = append(raw, batch...)
	}
	if q.IncludeSold {
		batch, err := s.queryClass(ctx, q, true)
		if err != nil {
			return nil, err
		}
		raw = append(raw, batch...)
	}

	properties := make([]models.Property, 0, len(raw))
	dropped := 0
	for _, item := range raw {
		prop := parseResult(item)
		if !prop.Identifiable() {
			dropped++
			continue
		}
		properties = append(properties, prop)
	}

	s.logger.WithFields(logrus.Fields{
		"raw":     len(raw),
		"parsed":  len(properties),
		"dropped": dropped,
	}).Info("Fetched listings")
	return properties, nil
}

// queryClass fetches one inventory class (active or recently sold) with the
// provider-specific filter-state payload.
func (s *Source) queryClass(ctx context.Context, q Query, recentlySold bool) ([]rawListing, error) {
	state := searchQueryState{MapBounds: q.Box}
	fs := &state.FilterState
	fs.Price.Min = q.PriceFloor
	fs.Price.Max = q.PriceCeil
	fs.IsAllHomes = flagValue{true}
	fs.IsRecentlySold = flagValue{recentlySold}
	fs.IsForSaleByAgent = flagValue{!recentlySold}
	fs.IsForSaleByOwner = flagValue{!recentlySold}
	fs.IsNewConstruction = flagValue{!recentlySold}
	fs.IsComingSoon = flagValue{!recentlySold}
	fs.IsAuction = flagValue{!recentlySold}
	fs.IsForSaleForeclosure = flagValue{!recentlySold}
	if recentlySold && q.SoldInLast > 0 {
		fs.SoldInLast = &stringValue{strconv.Itoa(q.SoldInLast)}
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query state: %w", err)
	}
	wantsJSON, _ := json.Marshal(map[string][]string{"cat1": {"mapResults"}})

	searchURL := fmt.Sprintf("%s?searchQueryState=%s&wants=%s",
		s.baseURL, url.QueryEscape(string(stateJSON)), url.QueryEscape(string(wantsJSON)))

	var resp searchResponse
	if err := s.gateway.FetchJSON(ctx, searchURL, remote.Options{Format: remote.FormatJSON, Proxied: true}, &resp); err != nil {
		return nil, fmt.Errorf("listings query failed: %w", err)
	}
	return resp.Cat1.SearchResults.MapResults, nil
}
