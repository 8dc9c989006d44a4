package recommendation_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user-admin-api/internal/models"
	"github.com/user-admin-api/internal/recommendation"
)

func TestOpenAIGeneratorRequestsJSONObject(t *testing.T) {
	var sent map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err == nil {
			_ = json.Unmarshal(body, &sent)
		}
		content, _ := json.Marshal(map[string]any{
			"recommendation":  "Raise MFA to High for Cardiology",
			"rationale":       "Cardiology accounts hold sensitive records.",
			"priority":        "high",
			"affectedUserIds": []string{"1"},
		})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 0,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": string(content)},
			}},
		})
	}))
	defer srv.Close()

	gen := recommendation.NewOpenAIGenerator(recommendation.OpenAIConfig{
		APIKey:      "test-key",
		BaseURL:     srv.URL + "/",
		Model:       "test-model",
		Temperature: 0.2,
		MaxTokens:   128,
	}, zerolog.Nop())

	resp, err := gen.Generate(context.Background(), recommendation.Request{
		UserContext:   recommendation.DefaultUserContext,
		SystemContext: recommendation.DefaultSystemContext,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityHigh, resp.Priority)
	assert.Equal(t, []string{"1"}, resp.AffectedUserIDs)

	require.NotNil(t, sent)
	format, ok := sent["response_format"].(map[string]any)
	require.True(t, ok, "response_format missing from request: %v", sent)
	assert.Equal(t, "json_object", format["type"])
	assert.Equal(t, "test-model", sent["model"])
}
