package service

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/user-admin-api/internal/models"
	"github.com/user-admin-api/internal/repository"
)

// ExportHeader is the column order of CSV and XLSX exports.
// It matches the import headers, so an export can be imported again.
var ExportHeader = []string{"id", "username", "firstName", "lastName", "email", "department", "mfaPolicy", "identityMapping"}

// exportService is the concrete implementation of ExportService
type exportService struct {
	users repository.UserRepository
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(users repository.UserRepository, log zerolog.Logger) *exportService {
	return &exportService{
		users: users,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// StreamUsers streams users in the specified format
func (s *exportService) StreamUsers(ctx context.Context, w http.ResponseWriter, format string) error {
	s.log.Info().Str("format", format).Msg("Starting users export")

	switch format {
	case "ndjson":
		return s.streamNDJSON(ctx, w)
	case "json":
		return s.streamJSON(ctx, w)
	case "csv":
		return s.streamCSV(ctx, w)
	case "xlsx":
		return s.writeXLSX(ctx, w)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// Count returns the number of users
func (s *exportService) Count(ctx context.Context) (int, error) {
	return s.users.Count(ctx)
}

func exportRow(u *models.User) []string {
	return []string{u.ID, u.Username, u.FirstName, u.LastName, u.Email, u.Department, string(u.MfaPolicy), u.IdentityMapping}
}

func (s *exportService) streamNDJSON(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", "attachment; filename=users.ndjson")

	flusher, _ := w.(http.Flusher)
	count := 0

	err := s.users.StreamAll(ctx, func(user *models.User) error {
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		w.Write(data)
		w.Write([]byte("\n"))
		count++

		// Flush every 100 records for streaming
		if count%100 == 0 && flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	s.log.Info().Int("count", count).Msg("Users export completed")
	return err
}

func (s *exportService) streamJSON(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename=users.json")

	w.Write([]byte("["))
	first := true

	err := s.users.StreamAll(ctx, func(user *models.User) error {
		if !first {
			w.Write([]byte(","))
		}
		first = false

		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		w.Write(data)
		return nil
	})

	w.Write([]byte("]"))
	return err
}

func (s *exportService) streamCSV(ctx context.Context, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=users.csv")

	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(ExportHeader); err != nil {
		return err
	}

	return s.users.StreamAll(ctx, func(user *models.User) error {
		return writer.Write(exportRow(user))
	})
}

func (s *exportService) writeXLSX(ctx context.Context, w http.ResponseWriter) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Users"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	row := 1
	writeRow := func(values []string) error {
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		row++
		return sw.SetRow(cell, cells)
	}

	if err := writeRow(ExportHeader); err != nil {
		return err
	}
	err = s.users.StreamAll(ctx, func(user *models.User) error {
		return writeRow(exportRow(user))
	})
	if err != nil {
		return err
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=users.xlsx")
	if _, err := f.WriteTo(w); err != nil {
		return err
	}

	s.log.Info().Int("count", row-2).Msg("Users export completed")
	return nil
}
