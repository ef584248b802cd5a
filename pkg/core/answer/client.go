// Package answer provides the answering service client. It forwards an
// authenticated customer's free-text query to the remote answering endpoint
// and masks every failure behind a fixed, personalized fallback message.
package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/SatyamKumarChoudhary/chat-bot/pkg/core/directory"
)

const (
	// DefaultBotName is the persona used in the prompt and fallback copy.
	DefaultBotName = "SatyamBot"
	// DefaultSupportLine is the human-support fallback channel.
	DefaultSupportLine = "1-300-88-6688"

	defaultTimeout = 60 * time.Second
)

// Client talks to the answering service.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	logger      *slog.Logger
	tracer      trace.Tracer
	botName     string
	supportLine string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTracer sets the OpenTelemetry tracer for the client.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// WithBotName sets the bot persona used in prompts and fallback copy.
func WithBotName(name string) Option {
	return func(c *Client) {
		c.botName = name
	}
}

// WithSupportLine sets the human-support channel in the fallback copy.
func WithSupportLine(line string) Option {
	return func(c *Client) {
		c.supportLine = line
	}
}

// New creates a client for the answering service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		logger:      slog.Default(),
		botName:     DefaultBotName,
		supportLine: DefaultSupportLine,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// Ask sends the customer's query and returns the response text. Failures
// never surface: any error is replaced by a fixed, personalized apology
// referencing the support line.
func (c *Client) Ask(ctx context.Context, customer *directory.Customer, query string) string {
	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "answer.ask",
			trace.WithAttributes(attribute.String("customer.short_id", customer.ShortID)))
		defer span.End()
	}

	text, err := c.ask(ctx, customer, query)
	if err != nil {
		c.logger.Warn("answering service failed, using fallback",
			"customer", customer.ShortID, "error", err)
		return c.Fallback(customer)
	}
	return text
}

// ask performs the single-attempt request. No retries: the orchestrator's
// contract is one attempt then fallback.
func (c *Client) ask(ctx context.Context, customer *directory.Customer, query string) (string, error) {
	body, err := json.Marshal(chatRequest{Prompt: c.BuildPrompt(customer, query)})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("answering request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("answering error %d: %s", resp.StatusCode, string(errBody))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if chat.Response == "" {
		return "", fmt.Errorf("empty response body")
	}
	return chat.Response, nil
}

// BuildPrompt constructs the prompt embedding the customer's display name,
// short id, and the raw query. The wording is a formatting contract with the
// remote service.
func (c *Client) BuildPrompt(customer *directory.Customer, query string) string {
	return fmt.Sprintf(
		"You are %s, a professional Maybank customer service AI assistant. Customer: %s (ID: %s). Customer Query: %s. Provide helpful, professional banking assistance.",
		c.botName, customer.DisplayName, customer.ShortID, query)
}

// Fallback returns the fixed, customer-personalized apology used whenever
// the answering service fails.
func (c *Client) Fallback(customer *directory.Customer) string {
	return fmt.Sprintf(
		"Hello %s, I'm experiencing technical difficulties. Please try again in a moment or contact Maybank at %s for immediate assistance.",
		customer.DisplayName, c.supportLine)
}
