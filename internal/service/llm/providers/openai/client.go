// Package openai talks to any OpenAI-compatible chat completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	llmSvc "chatrelay/internal/domain/services/llm"

	openai "github.com/sashabaranov/go-openai"
)

// Config describes one upstream endpoint
type Config struct {
	Name    string
	BaseURL string
	APIKey  string

	// Headers are sent with every call, in addition to per-request headers
	Headers map[string]string

	// HTTPClient overrides the transport base (tests)
	HTTPClient *http.Client
}

// Client implements CompletionClient using go-openai.
type Client struct {
	name   string
	client *openai.Client
}

var _ llmSvc.CompletionClient = (*Client)(nil)

// NewClient creates a client for an OpenAI-compatible endpoint.
func NewClient(cfg Config) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	base := http.DefaultTransport
	if cfg.HTTPClient != nil && cfg.HTTPClient.Transport != nil {
		base = cfg.HTTPClient.Transport
	}
	config.HTTPClient = &http.Client{
		Transport: &headerTransport{base: base, static: cfg.Headers},
	}

	return &Client{
		name:   cfg.Name,
		client: openai.NewClientWithConfig(config),
	}
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// Complete sends one buffered chat completion request.
func (c *Client) Complete(ctx context.Context, req *llmSvc.CompletionRequest) (*llmSvc.CompletionResponse, error) {
	resp, err := c.client.CreateChatCompletion(withHeaders(ctx, req.Headers), buildRequest(req, false))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	choice := resp.Choices[0]
	return &llmSvc.CompletionResponse{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		StopReason:   string(choice.FinishReason),
	}, nil
}

// Stream opens a streaming chat completion.
func (c *Client) Stream(ctx context.Context, req *llmSvc.CompletionRequest) (llmSvc.FragmentStream, error) {
	stream, err := c.client.CreateChatCompletionStream(withHeaders(ctx, req.Headers), buildRequest(req, true))
	if err != nil {
		return nil, fmt.Errorf("stream creation failed: %w", err)
	}
	return &fragmentStream{stream: stream}, nil
}

func buildRequest(req *llmSvc.CompletionRequest, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	out := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	if stream {
		out.StreamOptions = &openai.StreamOptions{IncludeUsage: true}
	}
	return out
}

// fragmentStream adapts a go-openai stream to FragmentStream.
// Chunks without a content delta (role headers, usage) are skipped.
type fragmentStream struct {
	stream    *openai.ChatCompletionStream
	closeOnce sync.Once
}

func (s *fragmentStream) Recv() (string, error) {
	for {
		response, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("stream recv failed: %w", err)
		}

		if len(response.Choices) == 0 {
			continue
		}
		if content := response.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *fragmentStream) Close() error {
	s.closeOnce.Do(func() {
		s.stream.Close()
	})
	return nil
}

type headersKey struct{}

func withHeaders(ctx context.Context, headers map[string]string) context.Context {
	if len(headers) == 0 {
		return ctx
	}
	return context.WithValue(ctx, headersKey{}, headers)
}

// headerTransport adds upstream and per-request headers to outgoing calls
type headerTransport struct {
	base   http.RoundTripper
	static map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	perRequest, _ := req.Context().Value(headersKey{}).(map[string]string)
	if len(t.static) == 0 && len(perRequest) == 0 {
		return t.base.RoundTrip(req)
	}

	// RoundTrippers must not modify the caller's request
	// Keys are set verbatim; some gateways match lora_id case-sensitively
	req = req.Clone(req.Context())
	for k, v := range t.static {
		req.Header[k] = []string{v}
	}
	for k, v := range perRequest {
		req.Header[k] = []string{v}
	}
	return t.base.RoundTrip(req)
}
