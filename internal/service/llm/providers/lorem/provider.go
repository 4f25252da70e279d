package lorem

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	llmSvc "chatrelay/internal/domain/services/llm"

	loremgen "github.com/bozaro/golorem"
)

// replyWords caps the generated reply length regardless of max_tokens
const replyWords = 80

// Provider is a mock completion client that generates lorem ipsum text.
// Used for testing and development without requiring real API keys.
type Provider struct {
	name string

	mu        sync.Mutex // golorem is not safe for concurrent use
	generator *loremgen.Lorem
}

var _ llmSvc.CompletionClient = (*Provider)(nil)

// NewProvider creates a new lorem ipsum provider.
func NewProvider(name string) *Provider {
	if name == "" {
		name = "lorem"
	}
	return &Provider{
		name:      name,
		generator: loremgen.New(),
	}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return p.name
}

// SupportsModel returns true if the model name starts with "lorem-".
// Example models: "lorem-fast", "lorem-slow", "lorem-instant"
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "lorem-")
}

// Complete generates a whole reply after one word-delay per word,
// simulating a blocking upstream call.
func (p *Provider) Complete(ctx context.Context, req *llmSvc.CompletionRequest) (*llmSvc.CompletionResponse, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	words := p.generateWords(targetWords(req.MaxTokens))

	if err := sleep(ctx, getStreamDelay(req.Model)*time.Duration(len(words))); err != nil {
		return nil, err
	}

	return &llmSvc.CompletionResponse{
		Content:      strings.Join(words, " "),
		Model:        req.Model,
		InputTokens:  estimateTokens(req.Messages),
		OutputTokens: len(words),
		StopReason:   "stop",
	}, nil
}

// Stream emits the reply one word at a time.
// Speed varies based on model name (lorem-slow, lorem-fast, lorem-medium, lorem-instant).
func (p *Provider) Stream(ctx context.Context, req *llmSvc.CompletionRequest) (llmSvc.FragmentStream, error) {
	if !p.SupportsModel(req.Model) {
		return nil, fmt.Errorf("model '%s' is not supported by lorem provider", req.Model)
	}

	words := p.generateWords(targetWords(req.MaxTokens))
	delay := getStreamDelay(req.Model)

	ctx, cancel := context.WithCancel(ctx)
	s := &wordStream{
		fragments: make(chan string),
		cancel:    cancel,
	}

	go func() {
		defer close(s.fragments)
		for i, word := range words {
			if i > 0 {
				word = " " + word
			}
			if err := sleep(ctx, delay); err != nil {
				s.err = err
				return
			}
			select {
			case s.fragments <- word:
			case <-ctx.Done():
				s.err = ctx.Err()
				return
			}
		}
	}()

	return s, nil
}

// wordStream implements FragmentStream over a producer goroutine.
// err is written before fragments is closed, so reading it after the
// channel drains is race-free.
type wordStream struct {
	fragments chan string
	err       error
	cancel    context.CancelFunc
}

func (s *wordStream) Recv() (string, error) {
	word, ok := <-s.fragments
	if ok {
		return word, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *wordStream) Close() error {
	s.cancel()
	return nil
}

// getStreamDelay returns the delay between words based on the model name.
// - lorem-slow: 2 words/second (500ms per word)
// - lorem-fast: 30 words/second (33ms per word)
// - lorem-medium: 10 words/second (100ms per word)
// - lorem-instant: no delay
// - default: 10 words/second
func getStreamDelay(model string) time.Duration {
	switch {
	case strings.Contains(model, "instant"):
		return 0
	case strings.Contains(model, "slow"):
		return 500 * time.Millisecond
	case strings.Contains(model, "fast"):
		return 33 * time.Millisecond
	default:
		return 100 * time.Millisecond
	}
}

func targetWords(maxTokens int) int {
	if maxTokens <= 0 || maxTokens > replyWords {
		return replyWords
	}
	return maxTokens
}

// generateWords generates exactly n lorem ipsum words.
func (p *Provider) generateWords(n int) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	words := make([]string, 0, n)
	for len(words) < n {
		words = append(words, strings.Fields(p.generator.Sentence(5, 15))...)
	}
	return words[:n]
}

// estimateTokens estimates the token count for a list of messages.
// Uses word count as a rough approximation.
func estimateTokens(messages []llmSvc.Message) int {
	total := 0
	for _, msg := range messages {
		total += len(strings.Fields(msg.Content))
	}
	return total
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
