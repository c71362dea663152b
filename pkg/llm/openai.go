package llm

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/pkg/errors"
)

// OpenAIModel is the default chat model.
const OpenAIModel = "gpt-4o-mini"

// OpenAIClient is a chat completions client.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates a chat completions client. An empty baseURL uses the public API.
// Retries are left to the caller, so the SDK's own retry loop is disabled.
func NewOpenAIClient(apiKey, model, baseURL string) (client *OpenAIClient) {
	if model == "" {
		model = OpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client = &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
	return client
}

// Model returns the model identifier requests are sent to.
func (c *OpenAIClient) Model() (model string) {
	model = c.model
	return model
}

// Complete sends one chat completion and returns the first choice's content.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (text string, err error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSONResponse {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	var resp *openai.ChatCompletion
	resp, err = c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		err = errors.Wrap(err, "openai completion failed")
		return text, err
	}

	if len(resp.Choices) == 0 {
		err = errors.New("no choices in OpenAI response")
		return text, err
	}

	text = resp.Choices[0].Message.Content

	return text, err
}
