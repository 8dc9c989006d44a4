package recommendation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/rs/zerolog"
)

const systemPrompt = `You are an AI assistant specialized in providing security recommendations for user account management systems.
Reply with a single JSON object and nothing else, using exactly these keys:
  "recommendation": string, one specific and actionable sentence
  "rationale": string, one or two sentences of reasoning and benefits
  "priority": one of "low", "medium", "high"
  "affectedUserIds": array of user id strings, optional`

var userPrompt = template.Must(template.New("recommendation").Parse(
	`Based on the user's context, the current system configuration, and the provided list of all users, provide a specific and actionable recommendation to improve system security.
The recommendation should be 1 sentence maximum.
The rationale should be 1-2 sentences maximum.

User Context: {{.UserContext}}
System Context: {{.SystemContext}}
All Users Data (for analysis): {{.UsersJSON}}

If your recommendation targets a subset of users based on their properties (for example users with 'Low' MFA policy, or users in a department lacking some configuration), identify them from the users data and return their 'id' values in 'affectedUserIds'.
If the recommendation is general or no specific users are identifiable, return an empty array for 'affectedUserIds' or omit the field.`))

// OpenAIConfig configures the OpenAI-compatible generator
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int64
}

// OpenAIGenerator asks an OpenAI-compatible chat completion endpoint
type OpenAIGenerator struct {
	client openai.Client
	cfg    OpenAIConfig
	log    zerolog.Logger
}

// NewOpenAIGenerator creates a generator for cfg
func NewOpenAIGenerator(cfg OpenAIConfig, log zerolog.Logger) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIGenerator{
		client: openai.NewClient(opts...),
		cfg:    cfg,
		log:    log.With().Str("service", "openai_generator").Logger(),
	}
}

// RenderPrompt builds the user message for req
func RenderPrompt(req Request) (string, error) {
	users, err := json.Marshal(req.AllUsers)
	if err != nil {
		return "", fmt.Errorf("failed to encode users: %w", err)
	}
	var buf bytes.Buffer
	err = userPrompt.Execute(&buf, map[string]string{
		"UserContext":   req.UserContext,
		"SystemContext": req.SystemContext,
		"UsersJSON":     string(users),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

// Generate sends one chat completion and decodes the reply
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	prompt, err := RenderPrompt(req)
	if err != nil {
		return nil, err
	}

	response, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(g.cfg.Temperature),
		MaxTokens:   openai.Int(g.cfg.MaxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get AI response: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}

	raw := response.Choices[0].Message.Content
	g.log.Debug().
		Int("users", len(req.AllUsers)).
		Int("raw_length", len(raw)).
		Msg("Model output received")

	return Decode(raw)
}
