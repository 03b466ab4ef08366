package propertydb

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// setRequest is the /api/set payload. Simple callers push the blob directly
// as the body; structured callers wrap it under "data" with an optional
// version.
type setRequest struct {
	Data    json.RawMessage `json:"data"`
	Version *int            `json:"version"`
}

// Service is the persistence microservice: versioned blob storage fronted by
// a hot cache, guarded by a shared-secret Api-Key header.
type Service struct {
	logger  *logrus.Logger
	storage *Storage
	hot     *HotCache
	secret  string

	// warmed tracks whether the hot cache holds the current blob; cold reads
	// fall through to storage. Handlers run concurrently, so access is atomic.
	warmed atomic.Bool
}

func NewService(logger *logrus.Logger, storage *Storage, hot *HotCache, secret string) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{logger: logger, storage: storage, hot: hot, secret: secret}
}

// Warm copies the persisted blob into the hot cache. Called at startup;
// failures leave the service serving from storage.
func (s *Service) Warm(ctx context.Context) {
	if _, err := s.refresh(ctx); err != nil {
		s.logger.WithError(err).Warn("Failed to warm hot cache")
		return
	}
	s.warmed.Store(true)
}

// SetupRoutes registers the service endpoints.
func (s *Service) SetupRoutes(router *gin.Engine) {
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Api-Key", "Authorization", "Content-Type", "Content-Length", "X-Requested-With"},
	}))

	router.GET("/api", func(c *gin.Context) {
		c.String(http.StatusOK, "alive")
	})

	api := router.Group("/api", s.requireAPIKey)
	{
		api.POST("/get", s.handleGet)
		api.POST("/set", s.handleSet)
		api.POST("/refresh", s.handleRefresh)
		api.POST("/flush", s.handleFlush)
		api.POST("/infodb", s.handleInfoDB)
		api.POST("/infocache", s.handleInfoCache)
	}
}

// requireAPIKey rejects requests whose Api-Key header does not match the
// shared secret. An empty configured secret disables the check (development).
func (s *Service) requireAPIKey(c *gin.Context) {
	if s.secret != "" && c.GetHeader("Api-Key") != s.secret {
		c.AbortWithStatus(http.StatusForbidden)
		return
	}
	c.Next()
}

// handleGet returns the current blob: from the hot cache when warmed, falling
// back to storage. An empty store yields {}.
func (s *Service) handleGet(c *gin.Context) {
	if s.warmed.Load() {
		blob, ok, err := s.hot.Get(c.Request.Context())
		if err == nil && ok {
			c.Data(http.StatusOK, "application/json", []byte(blob))
			return
		}
		if err != nil {
			s.logger.WithError(err).Warn("Hot cache read failed; falling back to storage")
		}
	}

	blob, ok, err := s.storage.Fetch()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.Data(http.StatusOK, "application/json", []byte(blob))
}

// handleSet overwrites the blob. Persistence to storage happens in the
// background; the hot cache is updated synchronously so subsequent reads see
// the new blob immediately.
func (s *Service) handleSet(c *gin.Context) {
	var body setRequest
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	blob := raw
	if len(body.Data) > 0 {
		blob = body.Data
	}

	go func() {
		if err := s.storage.Persist(string(blob), body.Version); err != nil {
			s.logger.WithError(err).Error("Failed to persist blob")
		}
	}()

	if err := s.hot.Set(c.Request.Context(), string(blob)); err != nil {
		c.JSON(http.StatusOK, gin.H{"message": err.Error()})
		return
	}
	s.warmed.Store(true)
	c.JSON(http.StatusOK, gin.H{"message": "OK"})
}

func (s *Service) handleRefresh(c *gin.Context) {
	message, err := s.refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": err.Error()})
		return
	}
	s.warmed.Store(true)
	c.JSON(http.StatusOK, gin.H{"message": message})
}

// refresh copies the persisted blob into the hot cache.
func (s *Service) refresh(ctx context.Context) (string, error) {
	blob, ok, err := s.storage.Fetch()
	if err != nil {
		return "", err
	}
	if !ok {
		// Don't refresh on an empty store.
		return "", nil
	}
	if err := s.hot.Set(ctx, blob); err != nil {
		return "", err
	}
	return "OK", nil
}

func (s *Service) handleFlush(c *gin.Context) {
	reply, err := s.hot.Flush(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"message": err.Error()})
		return
	}
	s.warmed.Store(false)
	c.JSON(http.StatusOK, gin.H{"message": reply})
}

func (s *Service) handleInfoDB(c *gin.Context) {
	version, err := s.storage.ServerVersion()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"version": version})
}

func (s *Service) handleInfoCache(c *gin.Context) {
	info, err := s.hot.Info(c.Request.Context())
	if err != nil {
		c.String(http.StatusOK, "%s", err.Error())
		return
	}
	c.String(http.StatusOK, "%s", info)
}
