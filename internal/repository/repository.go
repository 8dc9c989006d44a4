package repository

import (
	"context"
	"errors"

	"github.com/user-admin-api/internal/models"
)

var (
	// ErrUserNotFound is returned when a mutation targets an unknown id
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateID is returned when inserting a record whose id is already live
	ErrDuplicateID = errors.New("duplicate user id")
	// ErrImportNotFound is returned for unknown import ids
	ErrImportNotFound = errors.New("import not found")
)

// UserRepository is the mutation surface over the live user collection
type UserRepository interface {
	Create(ctx context.Context, user models.NewUser) (*models.User, error)
	Insert(ctx context.Context, user models.User) error
	BatchInsert(ctx context.Context, users []models.NewUser) ([]models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]models.User, error)
	Patch(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	Replace(ctx context.Context, user models.User) error
	BulkPatch(ctx context.Context, ids []string, patch models.UserPatch) (int, error)
	Delete(ctx context.Context, ids []string) (int, error)
	Departments(ctx context.Context) ([]string, error)
	GetAllIDs(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.User) error) error
}

// ImportRepository keeps the history of CSV imports for the session
type ImportRepository interface {
	Create(ctx context.Context, record *models.ImportRecord) error
	GetByID(ctx context.Context, id string) (*models.ImportRecord, error)
	List(ctx context.Context) ([]*models.ImportRecord, error)
	AddErrors(ctx context.Context, importID string, errors []models.ValidationError) error
	GetErrors(ctx context.Context, importID string, limit int) ([]models.ValidationError, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	User   UserRepository
	Import ImportRepository
}

// New creates all repositories backed by process memory
func New() *Repositories {
	return &Repositories{
		User:   NewUserRepo(),
		Import: NewImportRepo(),
	}
}
