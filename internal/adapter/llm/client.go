package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Aswinikumar555/ai-customer-support/internal/domain"
)

var errEmptyReply = errors.New("provider returned no reply")

// Options is the immutable provider configuration handed to NewClient.
type Options struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	// Attribution headers some aggregators (OpenRouter) ask for.
	Referer string
	Title   string
}

// Client is the go-openai backed completion gateway.
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
}

// NewClient creates a completion client from opts.
func NewClient(opts Options) *Client {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}
	cfg.HTTPClient = &http.Client{
		Timeout:   opts.Timeout,
		Transport: &headerTransport{base: http.DefaultTransport, headers: attributionHeaders(opts)},
	}
	return &Client{
		api:       openai.NewClientWithConfig(cfg),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
	}
}

// Complete sends a single non-streaming chat completion request.
func (c *Client) Complete(ctx context.Context, transcript []domain.TranscriptMessage) (*Completion, error) {
	ctx, span := otel.Tracer("llm").Start(ctx, "llm.Complete", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", c.model),
		attribute.Int("llm.transcript_length", len(transcript)),
	)

	req, err := c.buildRequest(transcript)
	if err != nil {
		perr := &domain.ProviderError{Kind: domain.RequestConstructionFailed, Err: err}
		span.SetStatus(codes.Error, perr.Error())
		return nil, perr
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		perr := classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, perr.Error())
		return nil, perr
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		perr := &domain.ProviderError{Kind: domain.ProviderRejected, StatusCode: http.StatusOK, Err: errEmptyReply}
		span.SetStatus(codes.Error, perr.Error())
		return nil, perr
	}

	span.SetAttributes(attribute.Int("llm.total_tokens", resp.Usage.TotalTokens))
	return &Completion{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *Client) buildRequest(transcript []domain.TranscriptMessage) (openai.ChatCompletionRequest, error) {
	if c.model == "" {
		return openai.ChatCompletionRequest{}, errors.New("model is required")
	}
	if len(transcript) == 0 {
		return openai.ChatCompletionRequest{}, errors.New("transcript is empty")
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(transcript))
	for i, entry := range transcript {
		role, err := openaiRole(entry.Role)
		if err != nil {
			return openai.ChatCompletionRequest{}, fmt.Errorf("transcript entry %d: %w", i, err)
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: entry.Content})
	}

	return openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: c.maxTokens,
	}, nil
}

func openaiRole(role domain.Role) (string, error) {
	switch role {
	case domain.RoleSystem:
		return openai.ChatMessageRoleSystem, nil
	case domain.RoleUser:
		return openai.ChatMessageRoleUser, nil
	case domain.RoleAssistant:
		return openai.ChatMessageRoleAssistant, nil
	default:
		return "", fmt.Errorf("unsupported role %q", string(role))
	}
}

// classify maps a go-openai error onto the provider error taxonomy.
func classify(err error) *domain.ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{Kind: domain.ProviderRejected, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.ProviderError{Kind: domain.ProviderRejected, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	// A 2xx answer whose body could not be decoded.
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &domain.ProviderError{Kind: domain.ProviderRejected, StatusCode: http.StatusOK, Err: err}
	}

	// net/http reports malformed endpoints as *url.Error too, before anything is sent.
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Op == "parse" {
		return &domain.ProviderError{Kind: domain.RequestConstructionFailed, Err: err}
	}

	var netErr net.Error
	if urlErr != nil || errors.As(err, &netErr) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &domain.ProviderError{Kind: domain.ProviderUnreachable, Err: err}
	}

	return &domain.ProviderError{Kind: domain.RequestConstructionFailed, Err: err}
}

func attributionHeaders(opts Options) map[string]string {
	headers := map[string]string{}
	if opts.Referer != "" {
		headers["HTTP-Referer"] = opts.Referer
	}
	if opts.Title != "" {
		headers["X-Title"] = opts.Title
	}
	return headers
}

// headerTransport adds static headers to every outgoing request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) == 0 {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
