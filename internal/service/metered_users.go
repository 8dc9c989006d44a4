package service

import (
	"context"

	"github.com/user-admin-api/internal/metrics"
	"github.com/user-admin-api/internal/models"
	"github.com/user-admin-api/internal/repository"
)

// meteredUsers counts every mutation of the user collection,
// whichever component issued it
type meteredUsers struct {
	repository.UserRepository
	// onChange receives the collection size after each mutation
	onChange func(count int) bool
}

func newMeteredUsers(repo repository.UserRepository) *meteredUsers {
	return &meteredUsers{UserRepository: repo}
}

func (m *meteredUsers) record(ctx context.Context, operation string) {
	count, err := m.Count(ctx)
	if err != nil {
		return
	}
	metrics.Mutation(operation, count)
	if m.onChange != nil {
		m.onChange(count)
	}
}

func (m *meteredUsers) Create(ctx context.Context, user models.NewUser) (*models.User, error) {
	created, err := m.UserRepository.Create(ctx, user)
	if err == nil {
		m.record(ctx, "create")
	}
	return created, err
}

func (m *meteredUsers) BatchInsert(ctx context.Context, users []models.NewUser) ([]models.User, error) {
	created, err := m.UserRepository.BatchInsert(ctx, users)
	if err == nil && len(created) > 0 {
		m.record(ctx, "batch_insert")
	}
	return created, err
}

func (m *meteredUsers) Patch(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	user, err := m.UserRepository.Patch(ctx, id, patch)
	if err == nil {
		m.record(ctx, "patch")
	}
	return user, err
}

func (m *meteredUsers) Replace(ctx context.Context, user models.User) error {
	err := m.UserRepository.Replace(ctx, user)
	if err == nil {
		m.record(ctx, "patch")
	}
	return err
}

func (m *meteredUsers) BulkPatch(ctx context.Context, ids []string, patch models.UserPatch) (int, error) {
	updated, err := m.UserRepository.BulkPatch(ctx, ids, patch)
	if err == nil {
		m.record(ctx, "bulk_patch")
	}
	return updated, err
}

func (m *meteredUsers) Delete(ctx context.Context, ids []string) (int, error) {
	removed, err := m.UserRepository.Delete(ctx, ids)
	if err == nil && removed > 0 {
		m.record(ctx, "delete")
	}
	return removed, err
}
