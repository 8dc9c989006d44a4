package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/rs/zerolog"
	"github.com/wI2L/jsondiff"

	"github.com/user-admin-api/internal/bulkedit"
	"github.com/user-admin-api/internal/grid"
	"github.com/user-admin-api/internal/models"
	"github.com/user-admin-api/internal/repository"
	"github.com/user-admin-api/internal/validation"
)

// PatchResult is the outcome of a user merge patch
type PatchResult struct {
	User    *models.User `json:"user"`
	Changed []string     `json:"changed"`
}

// userService is the concrete implementation of UserService
type userService struct {
	users     repository.UserRepository
	resolver  *bulkedit.Resolver
	validator *validation.Validator
	log       zerolog.Logger
}

// newUserService creates a new UserService
func newUserService(users repository.UserRepository, resolver *bulkedit.Resolver, validator *validation.Validator, log zerolog.Logger) *userService {
	return &userService{
		users:     users,
		resolver:  resolver,
		validator: validator,
		log:       log.With().Str("service", "user").Logger(),
	}
}

// List returns the collection, ranked by fuzzy match when query is set
func (s *userService) List(ctx context.Context, query string) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return grid.Rank(users, query), nil
}

// Get returns one user
func (s *userService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Create validates and appends a user submitted through the add form
func (s *userService) Create(ctx context.Context, user models.NewUser) (*models.User, error) {
	if err := s.validator.CheckNewUser(&user); err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info().
		Str("user_id", created.ID).
		Str("username", created.Username).
		Msg("User added")
	return created, nil
}

// Patch applies an RFC 7386 merge patch to one user.
// The id cannot be changed and the result must be a valid record.
func (s *userService) Patch(ctx context.Context, id string, mergePatch []byte) (*PatchResult, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	original, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	merged, err := jsonpatch.MergePatch(original, mergePatch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	var updated models.User
	if err := json.Unmarshal(merged, &updated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	updated.ID = current.ID

	if err := s.validator.CheckUser(&updated); err != nil {
		return nil, err
	}

	after, err := json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to encode user: %w", err)
	}
	diff, err := jsondiff.CompareJSON(original, after)
	if err != nil {
		return nil, fmt.Errorf("failed to diff user: %w", err)
	}

	changed := make([]string, 0, len(diff))
	for _, op := range diff {
		changed = append(changed, strings.TrimPrefix(string(op.Path), "/"))
	}
	if len(changed) == 0 {
		return &PatchResult{User: current, Changed: changed}, nil
	}

	if err := s.users.Replace(ctx, updated); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", id).
		Strs("changed", changed).
		Msg("User updated")
	return &PatchResult{User: &updated, Changed: changed}, nil
}

// Delete removes the listed users in one batch
func (s *userService) Delete(ctx context.Context, ids []string) (int, error) {
	removed, err := s.users.Delete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete users: %w", err)
	}
	s.log.Info().Int("requested", len(ids)).Int("removed", removed).Msg("Users deleted")
	return removed, nil
}

// BulkEdit sets one field to one value on every listed user
func (s *userService) BulkEdit(ctx context.Context, ids []string, field models.Field, value string) (int, error) {
	return s.resolver.Apply(ctx, ids, field, value)
}

// BulkDomain returns the bulk edit picker values for field
func (s *userService) BulkDomain(ctx context.Context, field models.Field) ([]string, error) {
	return s.resolver.Domain(ctx, field)
}

// Departments returns the distinct departments in use
func (s *userService) Departments(ctx context.Context) ([]string, error) {
	return s.users.Departments(ctx)
}
