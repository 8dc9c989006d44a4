package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/user-admin-api/internal/bulkedit"
	"github.com/user-admin-api/internal/csvimport"
	"github.com/user-admin-api/internal/grid"
	"github.com/user-admin-api/internal/service"
	"github.com/user-admin-api/internal/validation"
)

// respondError maps service errors to status codes.
// Unknown errors are logged and hidden behind a 500.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"errors": verr.Errors,
		})
		return
	}

	var ferr *csvimport.FormatError
	if errors.As(err, &ferr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":           ferr.Error(),
			"missing_headers": ferr.MissingHeaders,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrImportNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, grid.ErrUnknownRow):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, bulkedit.ErrDepartmentRequired),
		errors.Is(err, bulkedit.ErrUnknownDepartment),
		errors.Is(err, bulkedit.ErrInvalidMfaPolicy),
		errors.Is(err, bulkedit.ErrUnsupportedField),
		errors.Is(err, grid.ErrUnknownField),
		errors.Is(err, grid.ErrInvalidOption):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	case errors.Is(err, grid.ErrNotEditing):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrInvalidPatch),
		errors.Is(err, service.ErrUnsupportedFormat),
		errors.Is(err, grid.ErrUnknownKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
