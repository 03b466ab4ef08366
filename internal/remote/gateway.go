package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clbanning/mxj/v2"
	"github.com/sirupsen/logrus"

	"homescout/server/internal/cache"
)

// Format selects how a response body is decoded.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// xmlPayloadPath is the fixed sub-path of the legacy XML search schema that
// holds the logical payload.
const xmlPayloadPath = "searchresults.response.results.result"

// Options control one gateway request.
type Options struct {
	// Proxied rewrites the URL to route through the configured CORS relay
	// before the request is issued.
	Proxied bool
	Format  Format
}

// Gateway issues cached HTTP requests against third-party JSON/XML APIs.
// Responses are cached by exact URL in the session cache so repeated identical
// queries do not re-hit quota-limited providers. Network and parse errors
// propagate to the caller; callers decide whether they are fatal.
type Gateway struct {
	logger   *logrus.Logger
	client   *http.Client
	cache    cache.Cache
	proxyURL string
	apiKey   string
}

// NewGateway creates a gateway. proxyURL may be empty when no relay is
// configured; apiKey, when non-empty, is sent as the Api-Key header.
func NewGateway(logger *logrus.Logger, sessionCache cache.Cache, proxyURL, apiKey string) *Gateway {
	if logger == nil {
		logger = logrus.New()
	}
	return &Gateway{
		logger:   logger,
		client:   &http.Client{Timeout: 30 * time.Second},
		cache:    sessionCache,
		proxyURL: strings.TrimSuffix(proxyURL, "/"),
		apiKey:   apiKey,
	}
}

// FetchJSON fetches url, normalizes the body to JSON per opts.Format, and
// decodes it into dst.
func (g *Gateway) FetchJSON(ctx context.Context, url string, opts Options, dst any) error {
	fullURL := url
	if opts.Proxied && g.proxyURL != "" {
		fullURL = g.proxyURL + "/" + url
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}

	storageKey := fmt.Sprintf("fetchJson(%s)", fullURL)
	if g.cache != nil {
		if data, ok := g.cache.Get(storageKey); ok {
			g.logger.WithField("url", fullURL).Debug("Remote response served from session cache")
			return json.Unmarshal(data, dst)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/xml")
	if g.apiKey != "" {
		req.Header.Set("Api-Key", g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("remote returned status %d for %s", resp.StatusCode, fullURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	payload := body
	if opts.Format == FormatXML {
		payload, err = normalizeXML(body)
		if err != nil {
			return fmt.Errorf("failed to parse xml response: %w", err)
		}
	}

	if g.cache != nil {
		g.cache.Set(storageKey, payload)
	}
	return json.Unmarshal(payload, dst)
}

// normalizeXML parses an XML body into a document tree and extracts the fixed
// payload sub-path imposed by the provider's XML variant, re-encoded as JSON.
func normalizeXML(body []byte) ([]byte, error) {
	doc, err := mxj.NewMapXml(body)
	if err != nil {
		return nil, err
	}
	payload, err := doc.ValueForPath(xmlPayloadPath)
	if err != nil {
		return nil, fmt.Errorf("payload path missing: %w", err)
	}
	return json.Marshal(payload)
}
