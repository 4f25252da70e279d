package lorem

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	llmSvc "chatrelay/internal/domain/services/llm"
)

func TestComplete(t *testing.T) {
	p := NewProvider("")
	resp, err := p.Complete(context.Background(), &llmSvc.CompletionRequest{
		Model:     "lorem-instant",
		MaxTokens: 12,
		Messages:  []llmSvc.Message{{Role: "user", Content: "two words"}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if got := len(strings.Fields(resp.Content)); got != 12 {
		t.Errorf("expected 12 words, got %d", got)
	}
	if resp.InputTokens != 2 {
		t.Errorf("expected 2 input tokens, got %d", resp.InputTokens)
	}
}

func TestComplete_RejectsUnknownModel(t *testing.T) {
	_, err := NewProvider("").Complete(context.Background(), &llmSvc.CompletionRequest{Model: "gpt-4"})
	if err == nil {
		t.Fatal("expected unsupported model error")
	}
}

func TestStream_ConcatenatesToFullReply(t *testing.T) {
	p := NewProvider("")
	stream, err := p.Stream(context.Background(), &llmSvc.CompletionRequest{Model: "lorem-instant", MaxTokens: 20})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	defer stream.Close()

	var sb strings.Builder
	count := 0
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		if fragment == "" {
			t.Fatal("expected non-empty fragments")
		}
		sb.WriteString(fragment)
		count++
	}

	if count != 20 {
		t.Errorf("expected 20 fragments, got %d", count)
	}
	if got := len(strings.Fields(sb.String())); got != 20 {
		t.Errorf("expected 20 words in concatenated text, got %d", got)
	}
}

func TestStream_CloseStopsProduction(t *testing.T) {
	p := NewProvider("")
	stream, err := p.Stream(context.Background(), &llmSvc.CompletionRequest{Model: "lorem-slow", MaxTokens: 50})
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}

	stream.Close()

	// The producer must end promptly with the cancellation error
	for {
		_, err := stream.Recv()
		if err == nil {
			continue
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		break
	}
}
