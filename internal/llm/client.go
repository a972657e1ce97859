// Package llm wraps the text-generation endpoint. The endpoint is treated
// as unreliable: every response is schema-validated by the caller, and no
// retry happens at this layer (backoff, if any, belongs to the transport
// in front of the endpoint).
package llm

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

// Request is a single structured generation call.
type Request struct {
	// Instructions is the fixed instructional template (system turn).
	Instructions string

	// Input is the user-turn payload.
	Input string

	// SchemaName names the strict output schema.
	SchemaName string

	// Schema is the JSON schema the response must conform to. Optional;
	// when nil the endpoint returns free text.
	Schema map[string]any

	// MaxOutputTokens bounds the call. Zero uses the client default.
	MaxOutputTokens int
}

// Response carries the generated text plus usage metadata.
type Response struct {
	Text        string
	TokensUsed  int
	InputTokens int
}

// Client is the minimal surface the synthesizer, reflector, and generation
// paths need. Tests substitute a fake.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// OpenAIClient calls the OpenAI Responses API.
type OpenAIClient struct {
	client          *openai.Client
	model           string
	maxOutputTokens int
}

// NewOpenAIClient creates a client for the given model.
func NewOpenAIClient(apiKey, model string, maxOutputTokens int) *OpenAIClient {
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIClient{
		client:          &c,
		model:           model,
		maxOutputTokens: maxOutputTokens,
	}
}

// Generate issues one blocking call. A non-response is the caller's signal
// to take its fallback path.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (*Response, error) {
	if c.client == nil {
		return nil, errors.New("llm: client is nil")
	}
	if c.model == "" {
		return nil, errors.New("llm: model is empty")
	}

	maxTokens := req.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = c.maxOutputTokens
	}

	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(int64(maxTokens)),
		Instructions:    openai.String(req.Instructions),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(req.Input, responses.EasyInputMessageRoleUser),
			},
		},
	}

	if req.Schema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   req.SchemaName,
					Schema: req.Schema,
					Strict: openai.Bool(true),
					Type:   "json_schema",
				},
			},
		}
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return nil, err
	}

	return &Response{
		Text:        resp.OutputText(),
		TokensUsed:  int(resp.Usage.TotalTokens),
		InputTokens: int(resp.Usage.InputTokens),
	}, nil
}
