package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no extraction model is configured.
const DefaultModel = "gpt-4o-mini"

// Config holds extraction provider configuration.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// OpenAIExtractor calls the OpenAI chat completions API with a strict
// JSON schema reflected from Result.
type OpenAIExtractor struct {
	client    openai.Client
	model     string
	maxTokens int
}

// NewOpenAIExtractor creates the extraction provider client.
func NewOpenAIExtractor(cfg Config) (*OpenAIExtractor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	return &OpenAIExtractor{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: maxTokens,
	}, nil
}

// Extract sends one meeting's transcripts and candidate issues to the
// provider and decodes its structured verdict.
func (e *OpenAIExtractor) Extract(ctx context.Context, meetingDate string, documents []Document, existing []IssueContext) (*Result, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "issue_extraction",
		Description: openai.String("New issues and updates extracted from meeting transcripts"),
		Schema:      generateSchema[Result](),
		Strict:      openai.Bool(true),
	}

	params := openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildUserPrompt(meetingDate, documents, existing)),
		},
		MaxCompletionTokens: openai.Int(int64(e.maxTokens)),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	}

	start := time.Now()
	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai extract: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	slog.DebugContext(ctx, "extraction completed",
		"model", e.model,
		"meeting_date", meetingDate,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	var result Result
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &result); err != nil {
		return nil, fmt.Errorf("unmarshal extraction result: %w", err)
	}
	return &result, nil
}

func generateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
