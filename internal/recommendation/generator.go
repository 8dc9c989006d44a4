// Package recommendation produces the dashboard's security tip: it asks a
// language model for a recommendation over the current users and maps
// the returned user ids back onto the live collection.
package recommendation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/user-admin-api/internal/models"
)

const (
	DefaultUserContext   = "Admin user reviewing user management dashboard in a healthcare EHR system."
	DefaultSystemContext = "System has multiple users with varying MFA policies. Focus on enhancing overall account security."
)

// ErrMalformedResponse is returned when the generator reply cannot be used
var ErrMalformedResponse = errors.New("malformed recommendation response")

// Request is the input of a recommendation generator
type Request struct {
	UserContext   string        `json:"userContext"`
	SystemContext string        `json:"systemContext"`
	AllUsers      []models.User `json:"allUsers,omitempty"`
}

// Response is the structured reply of a recommendation generator
type Response struct {
	Recommendation  string          `json:"recommendation"`
	Rationale       string          `json:"rationale"`
	Priority        models.Priority `json:"priority"`
	AffectedUserIDs []string        `json:"affectedUserIds,omitempty"`
}

// Generator produces a recommendation for a request
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Validate checks the reply against the output contract
func (r *Response) Validate() error {
	if strings.TrimSpace(r.Recommendation) == "" {
		return fmt.Errorf("%w: recommendation is empty", ErrMalformedResponse)
	}
	if strings.TrimSpace(r.Rationale) == "" {
		return fmt.Errorf("%w: rationale is empty", ErrMalformedResponse)
	}
	if !models.ValidPriorities[r.Priority] {
		return fmt.Errorf("%w: invalid priority %q", ErrMalformedResponse, r.Priority)
	}
	return nil
}

// Decode parses a model reply into a Response.
// Markdown code fences around the JSON object are tolerated.
func Decode(raw string) (*Response, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var resp Response
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Correlate returns the users whose id is in ids, in collection order.
// Ids without a matching user are dropped.
func Correlate(users []models.User, ids []string) []models.User {
	if len(ids) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var affected []models.User
	for _, u := range users {
		if wanted[u.ID] {
			affected = append(affected, u)
		}
	}
	return affected
}

// ErrNotConfigured is returned when no language model endpoint is configured
var ErrNotConfigured = errors.New("recommendation generator is not configured")

// Unconfigured is the generator used when no model endpoint is set
type Unconfigured struct{}

func (Unconfigured) Generate(ctx context.Context, req Request) (*Response, error) {
	return nil, ErrNotConfigured
}
