package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"chatrelay/internal/config"
	"chatrelay/internal/domain"
	"chatrelay/internal/domain/models"
	llmSvc "chatrelay/internal/domain/services/llm"
)

// State is the lifecycle position of one engine call
type State int

const (
	StateAssembling State = iota
	StateDispatching
	StateBuffering
	StateStreaming
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAssembling:
		return "assembling"
	case StateDispatching:
		return "dispatching"
	case StateBuffering:
		return "buffering"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// GenerationParams are the fixed parameters of every completion call
type GenerationParams struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Headers     map[string]string
}

// Reply is the outcome of a buffered call. A failed call is still a reply:
// Text carries "Error: <details>" and Degraded is set.
type Reply struct {
	Text     string
	Degraded bool
	Err      error
}

// Engine drives one send-message exchange against a single upstream.
// It owns the chat session: the system turn, the history and the new user
// turn. Not safe for concurrent use; create one per request.
type Engine struct {
	client  llmSvc.CompletionClient
	params  GenerationParams
	timeout time.Duration
	logger  *slog.Logger

	session []llmSvc.Message
	state   State
}

// NewEngine binds an engine to one client and seeds the session with the system turn.
func NewEngine(client llmSvc.CompletionClient, params GenerationParams, timeout time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		client:  client,
		params:  params,
		timeout: timeout,
		logger:  logger.With("upstream", client.Name()),
		session: []llmSvc.Message{{
			Role:    string(models.RoleSystem),
			Content: config.SystemPrompt,
		}},
		state: StateAssembling,
	}
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	return e.state
}

// Session returns a copy of the messages sent (or to be sent) upstream
func (e *Engine) Session() []llmSvc.Message {
	return append([]llmSvc.Message(nil), e.session...)
}

// Send issues one buffered completion for prompt (history plus the new user turn).
// It never fails: upstream errors become a degraded reply.
func (e *Engine) Send(ctx context.Context, prompt []llmSvc.Message) Reply {
	req := e.dispatch(prompt)

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	e.state = StateBuffering
	start := time.Now()
	resp, err := e.client.Complete(ctx, req)
	if err != nil {
		e.state = StateFailed
		e.logger.Error("completion failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return Reply{
			Text:     "Error: " + err.Error(),
			Degraded: true,
			Err:      fmt.Errorf("%w: %w", domain.ErrUpstream, err),
		}
	}

	e.appendAssistant(resp.Content)
	e.state = StateCompleted
	e.logger.Info("completion finished",
		"model", req.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return Reply{Text: resp.Content}
}

// Stream issues one incremental completion for prompt. The returned stream
// yields non-empty fragments in arrival order and io.EOF at the end; the
// caller must Close it. Failing to open the stream returns an error wrapping
// domain.ErrUpstream.
func (e *Engine) Stream(ctx context.Context, prompt []llmSvc.Message) (llmSvc.FragmentStream, error) {
	req := e.dispatch(prompt)

	ctx, cancel := e.withTimeout(ctx)

	inner, err := e.client.Stream(ctx, req)
	if err != nil {
		cancel()
		e.state = StateFailed
		e.logger.Error("stream open failed", "error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}

	e.state = StateStreaming
	return &engineStream{
		engine: e,
		inner:  inner,
		cancel: cancel,
		start:  time.Now(),
	}, nil
}

func (e *Engine) dispatch(prompt []llmSvc.Message) *llmSvc.CompletionRequest {
	e.session = append(e.session, prompt...)
	e.state = StateDispatching

	return &llmSvc.CompletionRequest{
		Messages:    e.Session(),
		Model:       e.params.Model,
		Temperature: e.params.Temperature,
		MaxTokens:   e.params.MaxTokens,
		Headers:     e.params.Headers,
	}
}

func (e *Engine) appendAssistant(text string) {
	e.session = append(e.session, llmSvc.Message{
		Role:    string(models.RoleAssistant),
		Content: text,
	})
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// engineStream tracks the accumulated text and drives the engine state
type engineStream struct {
	engine *Engine
	inner  llmSvc.FragmentStream
	cancel context.CancelFunc
	start  time.Time

	text strings.Builder
	done bool
}

func (s *engineStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for {
		fragment, err := s.inner.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			s.engine.appendAssistant(s.text.String())
			s.engine.state = StateCompleted
			s.engine.logger.Info("stream finished",
				"chars", s.text.Len(),
				"duration_ms", time.Since(s.start).Milliseconds(),
			)
			return "", io.EOF
		}
		if err != nil {
			s.done = true
			s.engine.state = StateFailed
			s.engine.logger.Error("stream failed", "error", err, "chars", s.text.Len())
			return "", fmt.Errorf("%w: %w", domain.ErrUpstream, err)
		}
		if fragment == "" {
			continue
		}
		s.text.WriteString(fragment)
		return fragment, nil
	}
}

func (s *engineStream) Close() error {
	defer s.cancel()
	if !s.done {
		s.done = true
		if s.engine.state == StateStreaming {
			s.engine.state = StateFailed
			s.engine.logger.Info("stream closed early", "chars", s.text.Len())
		}
	}
	return s.inner.Close()
}
