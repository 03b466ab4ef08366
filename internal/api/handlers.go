package api

import (
	"net/http"
	"os"

	"homescout/server/internal/enrichment"
	"homescout/server/internal/filter"
	"homescout/server/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	orchestrator *enrichment.Orchestrator
	logger       *logrus.Logger
}

// ResultsRequest carries the local filter settings applied to the current
// result set. Filtering never triggers a refetch.
type ResultsRequest struct {
	Settings *models.FilterSettings `json:"settings"`
}

func NewHandler(orchestrator *enrichment.Orchestrator, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// SubmitSearch queues an enrichment run for the given search parameters and
// returns its sequence token. A newer submission supersedes older in-flight
// ones; clients compare the token against the state's seq.
func (h *Handler) SubmitSearch(c *gin.Context) {
	req := models.DefaultFetchRequest()
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse search request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid search parameters"})
		return
	}

	if req.GeoLocation == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "geoLocation is required"})
		return
	}

	seq := h.orchestrator.Submit(req)
	c.JSON(http.StatusAccepted, gin.H{"seq": seq})
}

// GetState returns the pipeline state without the property payload. Clients
// poll this while loading.
func (h *Handler) GetState(c *gin.Context) {
	state := h.orchestrator.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"seq":      state.Seq,
		"loading":  state.Loading,
		"progress": state.Progress,
		"request":  state.Request,
		"count":    len(state.Properties),
	})
}

// GetResults applies the posted filter settings to the current result set and
// returns the filtered, sorted properties alongside the pipeline state.
func (h *Handler) GetResults(c *gin.Context) {
	var req ResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse filter settings")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filter settings"})
		return
	}

	settings := models.DefaultFilterSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}

	state := h.orchestrator.Snapshot()
	filtered := filter.Apply(state.Properties, settings)

	c.JSON(http.StatusOK, gin.H{
		"seq":        state.Seq,
		"loading":    state.Loading,
		"progress":   state.Progress,
		"total":      len(state.Properties),
		"properties": filtered,
	})
}

// GetDefaults returns the search and filter form defaults plus the supported
// sort dimensions and the home types observed in the current result set.
func (h *Handler) GetDefaults(c *gin.Context) {
	state := h.orchestrator.Snapshot()

	seen := make(map[string]bool)
	var homeTypes []string
	for i := range state.Properties {
		display := models.DisplayHomeType(state.Properties[i].HomeType)
		if display == "" || seen[display] {
			continue
		}
		seen[display] = true
		homeTypes = append(homeTypes, display)
	}

	c.JSON(http.StatusOK, gin.H{
		"request":    models.DefaultFetchRequest(),
		"settings":   models.DefaultFilterSettings(),
		"dimensions": models.Dimensions,
		"homeTypes":  homeTypes,
	})
}
