// Package ollama provides a chat client for a local Ollama model server
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"golang.org/x/time/rate"

	"github.com/bobmccarthy/kakei/internal/common"
	"github.com/bobmccarthy/kakei/internal/interfaces"
)

const (
	DefaultBaseURL   = "http://localhost:11434"
	DefaultTimeout   = 120 * time.Second
	DefaultRateLimit = 2 // requests per second
)

// Client implements the ModelClient interface against an Ollama server
type Client struct {
	baseURL    string
	httpClient *http.Client
	api        *api.Client
	logger     *common.Logger
	limiter    *rate.Limiter
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

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Ollama client for the given server URL
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL %q: %w", c.baseURL, err)
	}
	c.api = api.NewClient(parsed, c.httpClient)

	return c, nil
}

// Chat sends an ordered message list to the model and returns the complete
// assistant reply. Streaming is disabled; the call blocks until the model
// finishes or ctx is done.
func (c *Client) Chat(ctx context.Context, model string, messages []interfaces.ChatMessage, options map[string]any) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	msgs := make([]api.Message, len(messages))
	for i, m := range messages {
		msgs[i] = api.Message{Role: m.Role, Content: m.Content}
	}

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   &stream,
		Options:  options,
	}

	c.logger.Debug().Str("model", model).Int("messages", len(messages)).Msg("Ollama chat request")

	var sb strings.Builder
	err := c.api.Chat(ctx, req, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to execute chat request: %w", err)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no content generated")
	}

	return sb.String(), nil
}
