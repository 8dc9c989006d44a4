package api

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/user-admin-api/internal/config"
	"github.com/user-admin-api/internal/csvimport"
	"github.com/user-admin-api/internal/service"
)

var errEmptyUpload = errors.New("file upload or text/csv body is required")

// ImportHandler handles import endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// CreateImport handles POST /v1/imports
// Accepts a multipart `file` field or a raw text/csv body
func (h *ImportHandler) CreateImport(c *gin.Context) {
	ctx := c.Request.Context()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Import.MaxUploadSize)

	filename, data, err := h.readUpload(c)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("file too large, max size is %d MB", h.cfg.Import.MaxUploadSize/(1024*1024)),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Content is sniffed; the declared type is not trusted
	detected := mimetype.Detect(data)
	if !isText(detected) {
		h.log.Warn().
			Str("file", filename).
			Str("detected", detected.String()).
			Msg("Rejected non-text upload")
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error":    "CSV upload must be text",
			"detected": detected.String(),
		})
		return
	}

	resp, err := h.services.Import.ImportCSV(ctx, filename, bytes.NewReader(data))
	if err != nil {
		var ferr *csvimport.FormatError
		if errors.As(err, &ferr) && resp != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":           ferr.Error(),
				"missing_headers": ferr.MissingHeaders,
				"import_id":       resp.ID,
			})
			return
		}
		respondError(c, h.log, err)
		return
	}

	h.log.Info().
		Str("import_id", resp.ID).
		Str("file", filename).
		Int("size_bytes", len(data)).
		Str("detected", detected.String()).
		Msg("Import completed")

	c.JSON(http.StatusCreated, resp)
}

// readUpload returns the upload name and its whole content
func (h *ImportHandler) readUpload(c *gin.Context) (string, []byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return "", nil, err
			}
			return "", nil, errEmptyUpload
		}
		if header.Size > h.cfg.Import.MaxUploadSize {
			return "", nil, &http.MaxBytesError{Limit: h.cfg.Import.MaxUploadSize}
		}
		if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != "" && ext != ".csv" && ext != ".txt" {
			return "", nil, fmt.Errorf("users import requires a CSV file, got %s", ext)
		}

		file, err := header.Open()
		if err != nil {
			return "", nil, err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, err
		}
		if len(data) == 0 {
			return "", nil, errEmptyUpload
		}
		return header.Filename, data, nil
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return "", nil, errEmptyUpload
	}
	filename := c.Query("filename")
	if filename == "" {
		filename = "upload.csv"
	}
	return filename, data, nil
}

// isText reports whether m is text/plain or one of its descendants (text/csv)
func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// ListImports handles GET /v1/imports
func (h *ImportHandler) ListImports(c *gin.Context) {
	records, err := h.services.Import.ListImports(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"imports": records,
		"count":   len(records),
	})
}

// GetImportStatus handles GET /v1/imports/:import_id
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	record, err := h.services.Import.GetImport(c.Request.Context(), c.Param("import_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// GetImportErrors handles GET /v1/imports/:import_id/errors
func (h *ImportHandler) GetImportErrors(c *gin.Context) {
	importID := c.Param("import_id")

	notices, err := h.services.Import.GetImportErrors(c.Request.Context(), importID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=errors_%s.csv", importID))
		writer := csv.NewWriter(c.Writer)
		writer.Write([]string{"line", "field", "message", "value"})
		for _, e := range notices {
			value := ""
			if e.Value != nil {
				value = fmt.Sprintf("%v", e.Value)
			}
			writer.Write([]string{strconv.Itoa(e.Line), e.Field, e.Message, value})
		}
		writer.Flush()
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"import_id":   importID,
		"error_count": len(notices),
		"errors":      notices,
	})
}
