// Package gemini provides a chat client for the Google Gemini API
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/bobmccarthy/kakei/internal/common"
	"github.com/bobmccarthy/kakei/internal/interfaces"
)

// DefaultTimeout is the default HTTP timeout for Gemini API calls
const DefaultTimeout = 120 * time.Second

// Client implements the ModelClient interface
type Client struct {
	client  *genai.Client
	logger  *common.Logger
	timeout time.Duration
}

var _ interfaces.ModelClient = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout for API calls
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient creates a new Gemini client
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		logger:  common.NewSilentLogger(),
		timeout: DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: c.timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	c.client = genaiClient

	return c, nil
}

// Close closes the client
func (c *Client) Close() error {
	// The genai client doesn't have a Close method
	return nil
}

// Chat sends an ordered message list to the model and returns the reply
// text. System messages become the system instruction; assistant turns map
// to the model role.
func (c *Client) Chat(ctx context.Context, model string, messages []interfaces.ChatMessage, options map[string]any) (string, error) {
	config := &genai.GenerateContentConfig{}
	var contents []*genai.Content
	for _, m := range messages {
		switch m.Role {
		case "system":
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case "assistant":
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	if len(contents) == 0 {
		return "", fmt.Errorf("no user messages to send")
	}

	if v, ok := options["temperature"].(float64); ok {
		config.Temperature = genai.Ptr(float32(v))
	}
	if v, ok := options["top_p"].(float64); ok {
		config.TopP = genai.Ptr(float32(v))
	}

	c.logger.Debug().Str("model", model).Int("messages", len(messages)).Msg("Gemini chat request")

	result, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(result)
}

// extractTextFromResponse extracts text from a generate content response
func extractTextFromResponse(result *genai.GenerateContentResponse) (string, error) {
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	text := ""
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}

	return text, nil
}
