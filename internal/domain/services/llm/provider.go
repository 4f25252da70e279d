package llm

import (
	"context"
)

// CompletionClient defines the interface that every upstream completion backend implements.
// Implementations are thin clients over network calls and must be safe for concurrent use.
type CompletionClient interface {
	// Name identifies the upstream (used in logs)
	Name() string

	// Complete issues one buffered completion and returns the full reply
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Stream issues one incremental completion.
	// The returned stream must be closed by the caller.
	Stream(ctx context.Context, req *CompletionRequest) (FragmentStream, error)
}

// CompletionRequest contains the parameters for one completion call.
type CompletionRequest struct {
	// Messages is the full prompt, system turn first
	Messages []Message

	// Model is the upstream model identifier (e.g., "xdeepseekv3")
	Model string

	Temperature float32
	MaxTokens   int

	// Headers are extra HTTP headers sent with the call (e.g., the lora_id routing header)
	Headers map[string]string
}

// Message is a role/content pair sent to the completion API.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse contains the upstream's buffered reply.
type CompletionResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
	StopReason   string
}

// FragmentStream is a finite, single-use sequence of text fragments.
// Recv returns io.EOF once the upstream is done. Close stops production;
// it is safe to call more than once.
type FragmentStream interface {
	Recv() (string, error)
	Close() error
}
