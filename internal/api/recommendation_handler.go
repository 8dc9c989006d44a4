package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/user-admin-api/internal/service"
)

// maxRefreshWait bounds ?wait=true so a hung generator cannot hold the request forever
const maxRefreshWait = 2 * time.Minute

// RecommendationHandler handles the recommendation panel endpoints
type RecommendationHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler
func NewRecommendationHandler(services *service.Services, log zerolog.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		services: services,
		log:      log.With().Str("handler", "recommendation").Logger(),
	}
}

// GetState handles GET /v1/recommendations
func (h *RecommendationHandler) GetState(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Recommendation.State())
}

// Refresh handles POST /v1/recommendations/refresh?wait=true
// Without wait the loading state is returned at once.
func (h *RecommendationHandler) Refresh(c *gin.Context) {
	count, err := h.services.Export.Count(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if count == 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "No users to analyze"})
		return
	}

	generation, done := h.services.Recommendation.Refresh()
	h.log.Info().Uint64("generation", generation).Msg("Recommendation refresh requested")

	wait, _ := strconv.ParseBool(c.Query("wait"))
	if !wait {
		c.JSON(http.StatusAccepted, h.services.Recommendation.State())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), maxRefreshWait)
	defer cancel()

	select {
	case <-done:
		c.JSON(http.StatusOK, h.services.Recommendation.State())
	case <-ctx.Done():
		c.JSON(http.StatusAccepted, h.services.Recommendation.State())
	}
}
