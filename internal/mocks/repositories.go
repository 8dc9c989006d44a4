package mocks

import (
	"context"
	"sync"

	"github.com/user-admin-api/internal/models"
	"github.com/user-admin-api/internal/repository"
)

// MockUserRepository is an in-memory UserRepository with error injection.
// Calls not overridden here go to a real in-memory repository.
type MockUserRepository struct {
	repository.UserRepository

	mu               sync.Mutex
	InsertError      error
	ReplaceError     error
	DeleteError      error
	BatchInsertFunc  func(ctx context.Context, users []models.NewUser) ([]models.User, error)
	BatchInsertCalls int
	InsertedCount    int
}

// Verify interface compliance
var _ repository.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{UserRepository: repository.NewUserRepo()}
}

// NewMockUserRepositoryWithIDs uses newID for every created user
func NewMockUserRepositoryWithIDs(newID func() string) *MockUserRepository {
	return &MockUserRepository{UserRepository: repository.NewUserRepoWithIDs(newID)}
}

func (m *MockUserRepository) Create(ctx context.Context, user models.NewUser) (*models.User, error) {
	m.mu.Lock()
	err := m.InsertError
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.UserRepository.Create(ctx, user)
}

func (m *MockUserRepository) BatchInsert(ctx context.Context, users []models.NewUser) ([]models.User, error) {
	m.mu.Lock()
	m.BatchInsertCalls++
	fn, err := m.BatchInsertFunc, m.InsertError
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, users)
	}
	if err != nil {
		return nil, err
	}
	created, err := m.UserRepository.BatchInsert(ctx, users)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.InsertedCount += len(created)
	m.mu.Unlock()
	return created, nil
}

func (m *MockUserRepository) Replace(ctx context.Context, user models.User) error {
	m.mu.Lock()
	err := m.ReplaceError
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.UserRepository.Replace(ctx, user)
}

func (m *MockUserRepository) Delete(ctx context.Context, ids []string) (int, error) {
	m.mu.Lock()
	err := m.DeleteError
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	return m.UserRepository.Delete(ctx, ids)
}

// Seed appends users without going through error injection
func (m *MockUserRepository) Seed(users ...models.User) error {
	for _, u := range users {
		if err := m.UserRepository.Insert(context.Background(), u); err != nil {
			return err
		}
	}
	return nil
}
