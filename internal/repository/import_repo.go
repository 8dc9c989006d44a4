package repository

import (
	"context"
	"sync"

	"github.com/user-admin-api/internal/models"
)

// importRepo is the in-memory implementation of ImportRepository
type importRepo struct {
	mu      sync.RWMutex
	records map[string]*models.ImportRecord
	order   []string
	errors  map[string][]models.ValidationError
}

// NewImportRepo creates a new import repository
func NewImportRepo() ImportRepository {
	return &importRepo{
		records: make(map[string]*models.ImportRecord),
		errors:  make(map[string][]models.ValidationError),
	}
}

// Create stores a new import record
func (r *importRepo) Create(ctx context.Context, record *models.ImportRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[record.ID]; !ok {
		r.order = append(r.order, record.ID)
	}
	stored := *record
	r.records[record.ID] = &stored
	return nil
}

// GetByID retrieves an import record by ID, or nil if unknown
func (r *importRepo) GetByID(ctx context.Context, id string) (*models.ImportRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

// List returns every import, newest first
func (r *importRepo) List(ctx context.Context) ([]*models.ImportRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*models.ImportRecord, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		copied := *r.records[r.order[i]]
		records = append(records, &copied)
	}
	return records, nil
}

// AddErrors appends row notices to an import
func (r *importRepo) AddErrors(ctx context.Context, importID string, errors []models.ValidationError) error {
	if len(errors) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[importID]; !ok {
		return ErrImportNotFound
	}
	r.errors[importID] = append(r.errors[importID], errors...)
	return nil
}

// GetErrors retrieves row notices for an import; limit 0 means all
func (r *importRepo) GetErrors(ctx context.Context, importID string, limit int) ([]models.ValidationError, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errors := r.errors[importID]
	if limit > 0 && len(errors) > limit {
		errors = errors[:limit]
	}
	out := make([]models.ValidationError, len(errors))
	copy(out, errors)
	return out, nil
}
