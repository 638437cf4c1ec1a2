package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// relevanceSchema is enforced server-side via OpenAI structured outputs and
// matches rawClassification.
var relevanceSchema = json.RawMessage(`{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"score": {"type": "number"},
		"dimensions": {
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"ai_ml_keywords": {"type": "boolean"},
				"research_orientation": {"type": "boolean"},
				"technical_depth": {"type": "boolean"},
				"career_stage_alignment": {"type": "boolean"}
			},
			"required": ["ai_ml_keywords", "research_orientation", "technical_depth", "career_stage_alignment"]
		},
		"category": {"type": "string", "enum": ["Research", "Engineering", "Data Science", "Other"]},
		"reasoning": {"type": "string"}
	},
	"required": ["score", "dimensions", "category", "reasoning"]
}`)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.GPT4oMini

// OpenAIProvider calls the chat completions endpoint with structured outputs.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

var _ Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider targeting an OpenAI-compatible API.
// baseURL may be empty for the public endpoint; httpClient may be nil.
func NewOpenAIProvider(baseURL, apiKey, model string, timeout time.Duration, httpClient *http.Client) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
	}
}

// Complete sends prompt and returns the JSON document produced under
// relevanceSchema.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You are a precise classifier of job postings. Answer with JSON only."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   512,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "job_relevance",
				Schema: relevanceSchema,
				Strict: true,
			},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("llm returned HTTP %d: %w", apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("llm request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
