package service

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/user-admin-api/internal/bulkedit"
	"github.com/user-admin-api/internal/config"
	"github.com/user-admin-api/internal/grid"
	"github.com/user-admin-api/internal/models"
	"github.com/user-admin-api/internal/recommendation"
	"github.com/user-admin-api/internal/repository"
	"github.com/user-admin-api/internal/validation"
)

var (
	// ErrUserNotFound is returned for unknown user ids
	ErrUserNotFound = repository.ErrUserNotFound
	// ErrImportNotFound is returned for unknown import ids
	ErrImportNotFound = repository.ErrImportNotFound
	// ErrInvalidPatch is returned when a merge patch cannot be applied
	ErrInvalidPatch = errors.New("invalid merge patch")
	// ErrSessionNotFound is returned for unknown or expired grid sessions
	ErrSessionNotFound = errors.New("grid session not found")
	// ErrUnsupportedFormat is returned for unknown export formats
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// UserService defines the interface for user collection operations
type UserService interface {
	List(ctx context.Context, query string) ([]models.User, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user models.NewUser) (*models.User, error)
	Patch(ctx context.Context, id string, mergePatch []byte) (*PatchResult, error)
	Delete(ctx context.Context, ids []string) (int, error)
	BulkEdit(ctx context.Context, ids []string, field models.Field, value string) (int, error)
	BulkDomain(ctx context.Context, field models.Field) ([]string, error)
	Departments(ctx context.Context) ([]string, error)
}

// ImportService defines the interface for CSV import operations
type ImportService interface {
	ImportCSV(ctx context.Context, filename string, r io.Reader) (*models.ImportResponse, error)
	GetImport(ctx context.Context, id string) (*models.ImportRecord, error)
	GetImportErrors(ctx context.Context, id string) ([]models.ValidationError, error)
	ListImports(ctx context.Context) ([]*models.ImportRecord, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamUsers(ctx context.Context, w http.ResponseWriter, format string) error
	Count(ctx context.Context) (int, error)
}

// RecommendationService defines the interface of the recommendation panel
type RecommendationService interface {
	Start(ctx context.Context) (bool, error)
	Refresh() (uint64, <-chan struct{})
	Wait(ctx context.Context) error
	State() models.RecommendationState
	Close()
}

// GridService defines the interface for grid session management
type GridService interface {
	Open() (string, *grid.Controller)
	Get(id string) (*grid.Controller, error)
	Close(id string) error
	StartSweeper(ctx context.Context)
	StopSweeper()
}

// Services holds all service interfaces
type Services struct {
	User           UserService
	Import         ImportService
	Export         ExportService
	Recommendation RecommendationService
	Grid           GridService
}

// NewServices creates all services. A nil generator is built from cfg.
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger, gen recommendation.Generator) *Services {
	users := newMeteredUsers(repos.User)
	validator := validation.NewValidator()
	resolver := bulkedit.NewResolver(users, log)

	if gen == nil {
		gen = newGenerator(cfg, log)
	}
	panel := recommendation.NewPanel(gen, users, log, recommendation.PanelOptions{
		UserContext:   cfg.Recommendation.UserContext,
		SystemContext: cfg.Recommendation.SystemContext,
		Timeout:       cfg.Recommendation.Timeout,
	})
	users.onChange = panel.UsersChanged

	return &Services{
		User:           newUserService(users, resolver, validator, log),
		Import:         newImportService(users, repos.Import, cfg, log),
		Export:         newExportService(users, log),
		Recommendation: panel,
		Grid:           newGridService(users, resolver, validator, cfg, log),
	}
}

func newGenerator(cfg *config.Config, log zerolog.Logger) recommendation.Generator {
	rc := cfg.Recommendation
	if !rc.RecommendationsEnabled() {
		log.Warn().Msg("OPENAI_API_KEY and OPENAI_BASE_URL are unset, recommendations will report an error")
		return recommendation.Unconfigured{}
	}
	return recommendation.NewOpenAIGenerator(recommendation.OpenAIConfig{
		APIKey:      rc.APIKey,
		BaseURL:     rc.BaseURL,
		Model:       rc.Model,
		Temperature: rc.Temperature,
		MaxTokens:   rc.MaxTokens,
	}, log)
}
