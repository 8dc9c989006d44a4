package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/user-admin-api/internal/config"
	"github.com/user-admin-api/internal/csvimport"
	"github.com/user-admin-api/internal/metrics"
	"github.com/user-admin-api/internal/models"
	"github.com/user-admin-api/internal/repository"
)

// importService is the concrete implementation of ImportService
type importService struct {
	users   repository.UserRepository
	imports repository.ImportRepository
	cfg     *config.Config
	log     zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(users repository.UserRepository, imports repository.ImportRepository, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		users:   users,
		imports: imports,
		cfg:     cfg,
		log:     log.With().Str("service", "import").Logger(),
	}
}

// ImportCSV parses fully loaded CSV content and appends the accepted rows.
// A *csvimport.FormatError leaves the collection unchanged; the failed
// attempt is still recorded and returned alongside the error.
func (s *importService) ImportCSV(ctx context.Context, filename string, r io.Reader) (*models.ImportResponse, error) {
	startTime := time.Now()
	record := &models.ImportRecord{
		ID:        repository.NewID(),
		Filename:  filename,
		CreatedAt: startTime,
	}

	result, err := csvimport.ParseReader(r)
	if err != nil {
		var ferr *csvimport.FormatError
		if !errors.As(err, &ferr) {
			return nil, err
		}
		record.Status = models.ImportStatusFailed
		record.Error = ferr.Error()
		record.MissingHeaders = ferr.MissingHeaders
		s.finish(ctx, record, startTime)

		s.log.Warn().
			Str("import_id", record.ID).
			Str("filename", filename).
			Strs("missing_headers", ferr.MissingHeaders).
			Msg("CSV import rejected")
		return &models.ImportResponse{ImportRecord: *record}, err
	}

	created, err := s.users.BatchInsert(ctx, result.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to insert imported users: %w", err)
	}

	record.Status = models.ImportStatusCompleted
	record.TotalRows = result.Rows
	record.ImportedCount = len(created)
	record.SkippedCount = result.Skipped
	record.CoercedCount = result.Coerced
	record.UserIDs = make([]string, len(created))
	for i, u := range created {
		record.UserIDs[i] = u.ID
	}

	notices := make([]models.ValidationError, 0, len(result.Notices))
	for _, n := range result.Notices {
		s.log.Warn().
			Str("import_id", record.ID).
			Int("line", n.Line).
			Str("kind", string(n.Kind)).
			Str("field", n.Field).
			Msg(n.Message)

		ve := models.ValidationError{Line: n.Line, Field: n.Field, Message: n.Message}
		if n.Value != "" {
			ve.Value = n.Value
		}
		notices = append(notices, ve)
	}

	s.finish(ctx, record, startTime)
	if len(notices) > 0 {
		if err := s.imports.AddErrors(ctx, record.ID, notices); err != nil {
			s.log.Error().Err(err).Str("import_id", record.ID).Msg("Failed to store import notices")
		}
	}

	s.log.Info().
		Str("import_id", record.ID).
		Str("filename", filename).
		Int("total", record.TotalRows).
		Int("imported", record.ImportedCount).
		Int("skipped", record.SkippedCount).
		Int("coerced", record.CoercedCount).
		Int64("duration_ms", record.DurationMs).
		Float64("rows_per_sec", record.RowsPerSec).
		Msg("CSV import completed")

	resp := &models.ImportResponse{ImportRecord: *record, ErrorCount: len(notices)}
	if len(notices) > 0 {
		preview := notices
		if limit := s.cfg.Import.ErrorPreview; limit > 0 && len(preview) > limit {
			preview = preview[:limit]
		}
		resp.Errors = preview
		resp.ErrorReport = fmt.Sprintf(s.cfg.Import.ErrorReportPath, record.ID)
	}
	return resp, nil
}

// finish stamps timings, stores the record and records metrics
func (s *importService) finish(ctx context.Context, record *models.ImportRecord, startTime time.Time) {
	duration := time.Since(startTime)
	record.DurationMs = duration.Milliseconds()
	if record.TotalRows > 0 && duration.Seconds() > 0 {
		record.RowsPerSec = float64(record.TotalRows) / duration.Seconds()
	}

	if err := s.imports.Create(ctx, record); err != nil {
		s.log.Error().Err(err).Str("import_id", record.ID).Msg("Failed to store import record")
	}
	metrics.Import(string(record.Status), record.ImportedCount, record.SkippedCount, record.CoercedCount, duration)
}

// GetImport returns one import record
func (s *importService) GetImport(ctx context.Context, id string) (*models.ImportRecord, error) {
	record, err := s.imports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrImportNotFound
	}
	return record, nil
}

// GetImportErrors returns every row notice of an import
func (s *importService) GetImportErrors(ctx context.Context, id string) ([]models.ValidationError, error) {
	if _, err := s.GetImport(ctx, id); err != nil {
		return nil, err
	}
	return s.imports.GetErrors(ctx, id, 0)
}

// ListImports returns the session's import history, newest first
func (s *importService) ListImports(ctx context.Context) ([]*models.ImportRecord, error) {
	return s.imports.List(ctx)
}
