package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/user-admin-api/internal/service"
)

var exportFormats = map[string]bool{"csv": true, "json": true, "ndjson": true, "xlsx": true}

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamExport handles GET /v1/users/export?format=...
// Streams the export directly to the response
func (h *ExportHandler) StreamExport(c *gin.Context) {
	ctx := c.Request.Context()

	format := c.Query("format")
	if format == "" {
		format = "csv" // Same shape the importer reads
	}
	if !exportFormats[format] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: csv, json, ndjson, xlsx"})
		return
	}

	h.log.Info().
		Str("format", format).
		Msg("Starting streaming export")

	if err := h.services.Export.StreamUsers(ctx, c.Writer, format); err != nil {
		h.log.Error().Err(err).Str("format", format).Msg("Export failed")
		// Can't return error JSON after streaming has started
		if !c.Writer.Written() {
			respondError(c, h.log, err)
		}
		return
	}
}
