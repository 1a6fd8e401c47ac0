package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"

	openai "github.com/sashabaranov/go-openai"

	"github.com/talent-success/melvin/pkg/config"
)

// Client wraps the OpenAI chat completions API. All agent stages obtain
// structured output by forcing a single function call and decoding its
// arguments; free-form text is never parsed.
type Client struct {
	api    *openai.Client
	model  string
	logger *slog.Logger
}

// NewClient creates an LLM client from resolved configuration.
func NewClient(cfg config.LLMConfig) *Client {
	return &Client{
		api:    openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
		logger: slog.Default().With("component", "llm-client"),
	}
}

// NewClientWithBaseURL creates an LLM client that targets a custom API URL.
// Useful for testing with a mock server.
func NewClientWithBaseURL(cfg config.LLMConfig, baseURL string) *Client {
	apiConfig := openai.DefaultConfig(cfg.APIKey)
	apiConfig.BaseURL = baseURL
	return &Client{
		api:    openai.NewClientWithConfig(apiConfig),
		model:  cfg.Model,
		logger: slog.Default().With("component", "llm-client"),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Request describes one completion: system and user prompts, optional
// image URLs appended to the user message as vision content, and the
// sampling temperature. An empty System sends the user message alone.
type Request struct {
	System      string
	User        string
	ImageURLs   []string
	Temperature float32
}

// FunctionSpec names the function the model is forced to call.
type FunctionSpec struct {
	Name        string
	Description string
}

// CreateStructured invokes the model with a single function tool derived
// from T's schema, forces the call, and decodes the arguments into T.
func CreateStructured[T any](ctx context.Context, c *Client, req Request, fn FunctionSpec) (*T, error) {
	schema, err := SchemaFor[T]()
	if err != nil {
		return nil, fmt.Errorf("build schema for %s: %w", fn.Name, err)
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: req.System,
		})
	}
	messages = append(messages, userMessage(req))

	temperature := req.Temperature
	if temperature == 0 {
		// The wire encoding omits zero temperatures and the API would
		// fall back to its default; the smallest positive float keeps
		// sampling deterministic.
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  schema,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: fn.Name},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no choices in completion response")
	}

	message := resp.Choices[0].Message
	if len(message.ToolCalls) == 0 {
		return nil, fmt.Errorf("model returned no %s call", fn.Name)
	}

	var out T
	if err := json.Unmarshal([]byte(message.ToolCalls[0].Function.Arguments), &out); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", fn.Name, err)
	}
	return &out, nil
}

func userMessage(req Request) openai.ChatCompletionMessage {
	msg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(req.ImageURLs) == 0 {
		msg.Content = req.User
		return msg
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: req.User},
	}
	for _, imageURL := range req.ImageURLs {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    imageURL,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	msg.MultiContent = parts
	return msg
}
