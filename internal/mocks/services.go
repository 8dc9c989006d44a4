package mocks

import (
	"context"
	"net/http"
	"sync"

	"github.com/user-admin-api/internal/models"
)

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	Body        string
	ContentType string
	StreamError error
	UserCount   int
	Formats     []string
}

func NewMockExportService() *MockExportService {
	return &MockExportService{ContentType: "application/x-ndjson"}
}

func (m *MockExportService) StreamUsers(ctx context.Context, w http.ResponseWriter, format string) error {
	m.Formats = append(m.Formats, format)
	if m.StreamError != nil {
		return m.StreamError
	}
	w.Header().Set("Content-Type", m.ContentType)
	_, err := w.Write([]byte(m.Body))
	return err
}

func (m *MockExportService) Count(ctx context.Context) (int, error) {
	return m.UserCount, nil
}

// MockRecommendationService is a mock implementation of RecommendationService.
// Refresh settles immediately with Next.
type MockRecommendationService struct {
	mu         sync.Mutex
	Current    models.RecommendationState
	Next       models.RecommendationState
	Refreshes  int
	WaitError  error
	StartError error
	closed     bool
}

func NewMockRecommendationService() *MockRecommendationService {
	return &MockRecommendationService{}
}

func (m *MockRecommendationService) Start(ctx context.Context) (bool, error) {
	if m.StartError != nil {
		return false, m.StartError
	}
	m.Refresh()
	return true, nil
}

func (m *MockRecommendationService) Refresh() (uint64, <-chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Refreshes++
	m.Current = m.Next
	m.Current.Generation = uint64(m.Refreshes)
	done := make(chan struct{})
	close(done)
	return m.Current.Generation, done
}

func (m *MockRecommendationService) Wait(ctx context.Context) error {
	return m.WaitError
}

func (m *MockRecommendationService) State() models.RecommendationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Current
}

func (m *MockRecommendationService) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

// Closed reports whether Close was called
func (m *MockRecommendationService) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
