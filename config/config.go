package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// HTTP server address for the aggregation API.
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Remote collaborators.
	Remote struct {
		// CORS relay prepended to proxied request URLs. Empty disables
		// proxying.
		ProxyURL string `env:"PROXY_URL"`

		GeocodingBaseURL string `env:"GEOCODING_BASE_URL" envDefault:"https://www.mapquestapi.com/geocoding/v1/address"`
		GeocodingAPIKey  string `env:"GEOCODING_API_KEY"`

		ListingsBaseURL string `env:"LISTINGS_BASE_URL" envDefault:"https://www.zillow.com/search/GetSearchPageState.htm"`

		RentCompsBaseURL string `env:"RENT_COMPS_BASE_URL"`

		// Legacy per-property XML deep-search API. Empty key disables the
		// fallback source.
		DeepSearchBaseURL string `env:"DEEP_SEARCH_BASE_URL" envDefault:"https://www.zillow.com/webservice"`
		DeepSearchAPIKey  string `env:"DEEP_SEARCH_API_KEY"`

		// Distance-matrix SDK key. Empty disables commute estimation.
		MapsAPIKey string `env:"MAPS_API_KEY"`
	}

	// Persistent key-value store (the propertydb service).
	Store struct {
		Endpoint string `env:"PROPERTYDB_ENDPOINT" envDefault:"http://localhost:5250/api"`
		Secret   string `env:"PROPERTYDB_SECRET"`
	}

	// Session cache snapshot directory. Empty keeps the cache memory-only.
	SessionCacheDir string `env:"SESSION_CACHE_DIR"`

	// PropertyDB holds the persistence service's own settings (cmd/propertydb).
	PropertyDB struct {
		Addr       string `env:"PROPERTYDB_ADDR" envDefault:":5250"`
		SQLitePath string `env:"PROPERTYDB_SQLITE_PATH" envDefault:"database/propertydb.db"`

		RedisAddr     string `env:"PROPERTYDB_REDIS_ADDR" envDefault:"localhost:6379"`
		RedisPassword string `env:"PROPERTYDB_REDIS_PASSWORD"`
		RedisDB       int    `env:"PROPERTYDB_REDIS_DB" envDefault:"0"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
