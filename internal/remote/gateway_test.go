package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescout/server/internal/cache"
)

func TestFetchJSON_DecodesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name": "test"}`))
	}))
	defer server.Close()

	g := NewGateway(logrus.New(), nil, "", "")

	var dst struct {
		Name string `json:"name"`
	}
	err := g.FetchJSON(context.Background(), server.URL, Options{}, &dst)
	require.NoError(t, err)
	assert.Equal(t, "test", dst.Name)
}

func TestFetchJSON_SecondCallServedFromSessionCache(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(`{"value": 7}`))
	}))
	defer server.Close()

	g := NewGateway(logrus.New(), cache.NewMemory(logrus.New(), ""), "", "")

	var dst struct {
		Value int `json:"value"`
	}
	require.NoError(t, g.FetchJSON(context.Background(), server.URL, Options{}, &dst))
	require.NoError(t, g.FetchJSON(context.Background(), server.URL, Options{}, &dst))

	assert.Equal(t, 1, requests)
	assert.Equal(t, 7, dst.Value)
}

func TestFetchJSON_ProxiedPrefixesRelay(t *testing.T) {
	var path string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer relay.Close()

	g := NewGateway(logrus.New(), nil, relay.URL+"/", "")

	var dst map[string]any
	require.NoError(t, g.FetchJSON(context.Background(), "https://example.com/api", Options{Proxied: true}, &dst))
	assert.Equal(t, "/https://example.com/api", path)
}

func TestFetchJSON_SendsAPIKeyHeader(t *testing.T) {
	var key string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("Api-Key")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	g := NewGateway(logrus.New(), nil, "", "secret")

	var dst map[string]any
	require.NoError(t, g.FetchJSON(context.Background(), server.URL, Options{}, &dst))
	assert.Equal(t, "secret", key)
}

func TestFetchJSON_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	g := NewGateway(logrus.New(), nil, "", "")
	err := g.FetchJSON(context.Background(), server.URL, Options{}, &struct{}{})
	assert.Error(t, err)
}

func TestFetchJSON_XMLNormalizedToPayloadPath(t *testing.T) {
	const body = `<?xml version="1.0" encoding="utf-8"?>
<SearchResults:searchresults xmlns:SearchResults="http://www.example.com/search">
  <response>
    <results>
      <result>
        <zpid>29381</zpid>
        <rentzestimate><amount currency="USD">2400</amount></rentzestimate>
      </result>
    </results>
  </response>
</SearchResults:searchresults>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(body))
	}))
	defer server.Close()

	g := NewGateway(logrus.New(), nil, "", "")

	var dst map[string]any
	err := g.FetchJSON(context.Background(), server.URL, Options{Format: FormatXML}, &dst)
	require.NoError(t, err)
	assert.Equal(t, "29381", dst["zpid"])
}

func TestFetchJSON_XMLPayloadPathMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<unrelated><body/></unrelated>`))
	}))
	defer server.Close()

	g := NewGateway(logrus.New(), nil, "", "")
	err := g.FetchJSON(context.Background(), server.URL, Options{Format: FormatXML}, &map[string]any{})
	assert.Error(t, err)
}
