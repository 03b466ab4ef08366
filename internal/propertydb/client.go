package propertydb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"homescout/server/internal/cache"
	"homescout/server/internal/models"
)

// Client talks to the persistent key-value collaborator. The store holds one
// blob per table; the pipeline only ever fetches or overwrites the whole blob,
// never partial entries. Concurrent writers are last-write-wins at blob
// granularity; this is a known consistency limitation of the store interface.
type Client struct {
	logger  *logrus.Logger
	hc      *http.Client
	cache   cache.Cache
	baseURL string
	apiKey  string
}

// NewClient creates a store client. sessionCache may be nil; when set, blob
// reads are served from the session cache after the first fetch.
func NewClient(logger *logrus.Logger, sessionCache cache.Cache, baseURL, apiKey string) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		logger:  logger,
		hc:      &http.Client{Timeout: 15 * time.Second},
		cache:   sessionCache,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// fetchKey is the session-cache key holding the last known blob.
func (c *Client) fetchKey() string {
	return fmt.Sprintf("dbFetch(%s)", c.baseURL+"/get")
}

// Fetch retrieves the full enrichment database blob. A missing blob comes
// back as an empty (non-nil) Database.
func (c *Client) Fetch(ctx context.Context) (models.Database, error) {
	fetchURL := c.baseURL + "/get"
	storageKey := c.fetchKey()

	if c.cache != nil {
		if data, ok := c.cache.Get(storageKey); ok {
			var db models.Database
			if err := json.Unmarshal(data, &db); err == nil {
				return db, nil
			}
		}
	}

	body, err := c.post(ctx, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch database: %w", err)
	}

	db := models.Database{}
	if err := json.Unmarshal(body, &db); err != nil {
		return nil, fmt.Errorf("failed to parse database blob: %w", err)
	}
	if c.cache != nil {
		c.cache.Set(storageKey, body)
	}
	return db, nil
}

// Update overwrites the full database blob.
func (c *Client) Update(ctx context.Context, db models.Database) error {
	payload, err := json.Marshal(map[string]any{"data": db})
	if err != nil {
		return fmt.Errorf("failed to marshal database blob: %w", err)
	}
	if _, err := c.post(ctx, c.baseURL+"/set", payload); err != nil {
		return fmt.Errorf("failed to persist database: %w", err)
	}
	// Later Fetch calls in this session must see the blob that was just
	// written, not the snapshot cached before it.
	if c.cache != nil {
		if blob, err := json.Marshal(db); err == nil {
			c.cache.Set(c.fetchKey(), blob)
		}
	}
	return nil
}

// UpdateAsync starts a best-effort background write of the blob. The caller's
// critical path does not await the outcome; the returned channel closes when
// the write finishes and may be observed for diagnostics. Failures are logged,
// never surfaced, and never retried within the run.
func (c *Client) UpdateAsync(db models.Database) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.Update(ctx, db); err != nil {
			c.logger.WithError(err).Warn("Background database write-back failed")
		}
	}()
	return done
}

func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("store returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	return data, nil
}
