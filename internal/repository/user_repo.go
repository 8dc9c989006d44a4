package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/user-admin-api/internal/models"
)

// userRepo is the in-memory implementation of UserRepository.
// Records keep insertion order; the index maps id to slice position.
type userRepo struct {
	mu    sync.RWMutex
	users []models.User
	index map[string]int
	newID func() string
}

// NewUserRepo creates a new user repository
func NewUserRepo() UserRepository {
	return NewUserRepoWithIDs(NewID)
}

// NewUserRepoWithIDs creates a user repository with a custom id source
func NewUserRepoWithIDs(newID func() string) UserRepository {
	return &userRepo{
		index: make(map[string]int),
		newID: newID,
	}
}

// NewID returns a time-ordered random id (UUIDv7)
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Create appends a new user and assigns its id
func (r *userRepo) Create(ctx context.Context, user models.NewUser) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := user.WithID(r.newID())
	r.append(created)
	return &created, nil
}

// Insert appends a user that already carries an id (seed data)
func (r *userRepo) Insert(ctx context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[user.ID]; ok {
		return ErrDuplicateID
	}
	r.append(user)
	return nil
}

// BatchInsert appends every user in order, assigning ids
func (r *userRepo) BatchInsert(ctx context.Context, users []models.NewUser) ([]models.User, error) {
	if len(users) == 0 {
		return nil, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	created := make([]models.User, 0, len(users))
	for _, u := range users {
		user := u.WithID(r.newID())
		r.append(user)
		created = append(created, user)
	}
	return created, nil
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pos, ok := r.index[id]
	if !ok {
		return nil, nil
	}
	user := r.users[pos]
	return &user, nil
}

// Exists checks if a user with the given ID exists
func (r *userRepo) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.index[id]
	return ok, nil
}

// List returns a snapshot of the collection in insertion order
func (r *userRepo) List(ctx context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.users), nil
}

// Patch merges the set fields of patch into one record
func (r *userRepo) Patch(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.index[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	patch.Apply(&r.users[pos])
	user := r.users[pos]
	return &user, nil
}

// Replace overwrites the record with the same id
func (r *userRepo) Replace(ctx context.Context, user models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pos, ok := r.index[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	r.users[pos] = user
	return nil
}

// BulkPatch applies one patch to every listed record.
// Unknown ids are ignored; the count of updated records is returned.
func (r *userRepo) BulkPatch(ctx context.Context, ids []string, patch models.UserPatch) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := 0
	for _, id := range dedupe(ids) {
		pos, ok := r.index[id]
		if !ok {
			continue
		}
		patch.Apply(&r.users[pos])
		updated++
	}
	return updated, nil
}

// Delete removes every listed record in one pass
func (r *userRepo) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	kept := r.users[:0]
	removed := 0
	for _, u := range r.users {
		if drop[u.ID] {
			removed++
			continue
		}
		kept = append(kept, u)
	}
	// zero the tail so removed records are not retained
	clear(r.users[len(kept):])
	r.users = kept
	r.reindex()
	return removed, nil
}

// Departments returns the sorted distinct department values in use
func (r *userRepo) Departments(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	departments := make([]string, 0)
	for _, u := range r.users {
		if seen[u.Department] {
			continue
		}
		seen[u.Department] = true
		departments = append(departments, u.Department)
	}
	slices.Sort(departments)
	return departments, nil
}

// GetAllIDs retrieves all user IDs in collection order
func (r *userRepo) GetAllIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.users))
	for i, u := range r.users {
		ids[i] = u.ID
	}
	return ids, nil
}

// Count returns the total number of users
func (r *userRepo) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users), nil
}

// StreamAll walks a snapshot of the collection, stopping on the first callback error
func (r *userRepo) StreamAll(ctx context.Context, callback func(*models.User) error) error {
	users, _ := r.List(ctx)
	for i := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := callback(&users[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *userRepo) append(user models.User) {
	r.index[user.ID] = len(r.users)
	r.users = append(r.users, user)
}

func (r *userRepo) reindex() {
	clear(r.index)
	for i, u := range r.users {
		r.index[u.ID] = i
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
