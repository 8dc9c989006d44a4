package mocks

import (
	"context"
	"sync"

	"github.com/user-admin-api/internal/recommendation"
)

// MockGenerator is a mock implementation of recommendation.Generator
type MockGenerator struct {
	mu           sync.Mutex
	GenerateFunc func(ctx context.Context, req recommendation.Request) (*recommendation.Response, error)
	Response     *recommendation.Response
	Err          error
	Requests     []recommendation.Request
}

// Verify interface compliance
var _ recommendation.Generator = (*MockGenerator)(nil)

func (m *MockGenerator) Generate(ctx context.Context, req recommendation.Request) (*recommendation.Response, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	fn, resp, err := m.GenerateFunc, m.Response, m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, recommendation.ErrMalformedResponse
	}
	out := *resp
	return &out, nil
}

// Calls returns how many requests were made
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request
func (m *MockGenerator) LastRequest() (recommendation.Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return recommendation.Request{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}
