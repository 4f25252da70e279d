package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"chatrelay/internal/domain"
	llmSvc "chatrelay/internal/domain/services/llm"
)

// fakeClient records requests and replays scripted results
type fakeClient struct {
	reply     string
	err       error
	fragments []string
	streamErr error // returned after fragments are exhausted
	openErr   error

	lastReq *llmSvc.CompletionRequest
	closed  bool
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Complete(ctx context.Context, req *llmSvc.CompletionRequest) (*llmSvc.CompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &llmSvc.CompletionResponse{Content: f.reply}, nil
}

func (f *fakeClient) Stream(ctx context.Context, req *llmSvc.CompletionRequest) (llmSvc.FragmentStream, error) {
	f.lastReq = req
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakeStream{client: f, ctx: ctx}, nil
}

type fakeStream struct {
	client *fakeClient
	ctx    context.Context
	pos    int
}

func (s *fakeStream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.pos < len(s.client.fragments) {
		s.pos++
		return s.client.fragments[s.pos-1], nil
	}
	if s.client.streamErr != nil {
		return "", s.client.streamErr
	}
	return "", io.EOF
}

func (s *fakeStream) Close() error {
	s.client.closed = true
	return nil
}

func testParams() GenerationParams {
	return GenerationParams{
		Model:       "xdeepseekv3",
		Temperature: 0.7,
		MaxTokens:   16384,
		Headers:     map[string]string{"lora_id": "0"},
	}
}

func newTestEngine(client *fakeClient) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(client, testParams(), time.Minute, logger)
}

func userPrompt(text string) []llmSvc.Message {
	return []llmSvc.Message{{Role: "user", Content: text}}
}

func TestNewEngine_SeedsSystemTurn(t *testing.T) {
	engine := newTestEngine(&fakeClient{})

	session := engine.Session()
	if len(session) != 1 {
		t.Fatalf("expected 1 seeded message, got %d", len(session))
	}
	if session[0].Role != "system" || session[0].Content != "Use English to reply." {
		t.Errorf("unexpected system turn: %+v", session[0])
	}
	if engine.State() != StateAssembling {
		t.Errorf("expected assembling, got %s", engine.State())
	}
}

func TestSend_Success(t *testing.T) {
	client := &fakeClient{reply: "Hello!"}
	engine := newTestEngine(client)

	prompt := []llmSvc.Message{
		{Role: "user", Content: "Hi"},
		{Role: "assistant", Content: "Hey"},
		{Role: "user", Content: "How are you?"},
	}
	reply := engine.Send(context.Background(), prompt)

	if reply.Degraded || reply.Err != nil {
		t.Fatalf("expected clean reply, got %+v", reply)
	}
	if reply.Text != "Hello!" {
		t.Errorf("expected 'Hello!', got %q", reply.Text)
	}
	if engine.State() != StateCompleted {
		t.Errorf("expected completed, got %s", engine.State())
	}

	req := client.lastReq
	if len(req.Messages) != 4 || req.Messages[0].Role != "system" || req.Messages[3].Content != "How are you?" {
		t.Errorf("unexpected request messages: %+v", req.Messages)
	}
	if req.Model != "xdeepseekv3" || req.Temperature != 0.7 || req.MaxTokens != 16384 {
		t.Errorf("unexpected generation params: %+v", req)
	}
	if req.Headers["lora_id"] != "0" {
		t.Errorf("expected lora_id header, got %v", req.Headers)
	}

	session := engine.Session()
	if last := session[len(session)-1]; last.Role != "assistant" || last.Content != "Hello!" {
		t.Errorf("expected assistant turn at end of session, got %+v", last)
	}
}

func TestSend_FailureIsDegradedReply(t *testing.T) {
	engine := newTestEngine(&fakeClient{err: errors.New("connection reset")})

	reply := engine.Send(context.Background(), userPrompt("Hi"))

	if !reply.Degraded {
		t.Fatal("expected degraded reply")
	}
	if !strings.HasPrefix(reply.Text, "Error: ") || !strings.Contains(reply.Text, "connection reset") {
		t.Errorf("unexpected degraded text %q", reply.Text)
	}
	if !errors.Is(reply.Err, domain.ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", reply.Err)
	}
	if engine.State() != StateFailed {
		t.Errorf("expected failed, got %s", engine.State())
	}
}

func TestSend_Timeout(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := &blockingClient{}
	engine := NewEngine(client, testParams(), 10*time.Millisecond, logger)

	reply := engine.Send(context.Background(), userPrompt("Hi"))
	if !reply.Degraded || !errors.Is(reply.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded degraded reply, got %+v", reply)
	}
}

// blockingClient blocks until the context ends
type blockingClient struct{ fakeClient }

func (b *blockingClient) Complete(ctx context.Context, req *llmSvc.CompletionRequest) (*llmSvc.CompletionResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStream_SkipsEmptyAndPreservesOrder(t *testing.T) {
	client := &fakeClient{fragments: []string{"Hel", "", "lo", " world"}}
	engine := newTestEngine(client)

	stream, err := engine.Stream(context.Background(), userPrompt("Hi"))
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if engine.State() != StateStreaming {
		t.Errorf("expected streaming, got %s", engine.State())
	}

	var got []string
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		got = append(got, fragment)
	}
	stream.Close()

	if strings.Join(got, "|") != "Hel|lo| world" {
		t.Errorf("unexpected fragments %q", got)
	}
	if engine.State() != StateCompleted {
		t.Errorf("expected completed, got %s", engine.State())
	}
	session := engine.Session()
	if last := session[len(session)-1]; last.Role != "assistant" || last.Content != "Hello world" {
		t.Errorf("expected accumulated assistant turn, got %+v", last)
	}
	if !client.closed {
		t.Error("expected upstream stream to be closed")
	}
}

func TestStream_UpstreamErrorTerminates(t *testing.T) {
	client := &fakeClient{fragments: []string{"partial"}, streamErr: errors.New("reset by peer")}
	engine := newTestEngine(client)

	stream, err := engine.Stream(context.Background(), userPrompt("Hi"))
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	defer stream.Close()

	if fragment, err := stream.Recv(); err != nil || fragment != "partial" {
		t.Fatalf("expected 'partial', got %q, %v", fragment, err)
	}
	if _, err := stream.Recv(); !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if engine.State() != StateFailed {
		t.Errorf("expected failed, got %s", engine.State())
	}
}

func TestStream_OpenFailure(t *testing.T) {
	engine := newTestEngine(&fakeClient{openErr: errors.New("503")})

	_, err := engine.Stream(context.Background(), userPrompt("Hi"))
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if engine.State() != StateFailed {
		t.Errorf("expected failed, got %s", engine.State())
	}
}

func TestStream_CloseStopsProduction(t *testing.T) {
	client := &fakeClient{fragments: []string{"a", "b", "c"}}
	engine := newTestEngine(client)

	stream, err := engine.Stream(context.Background(), userPrompt("Hi"))
	if err != nil {
		t.Fatalf("Stream failed: %v", err)
	}
	if _, err := stream.Recv(); err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	stream.Close()

	if !client.closed {
		t.Error("expected upstream stream to be closed")
	}
	if _, err := stream.Recv(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after Close, got %v", err)
	}
	if engine.State() != StateFailed {
		t.Errorf("expected failed after early close, got %s", engine.State())
	}
}

func TestUpstreamPool(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := NewUpstreamPool(nil, 0, logger); err == nil {
		t.Fatal("expected empty pool to fail")
	}

	a := &fakeClient{reply: "a"}
	pool, err := NewUpstreamPool([]Upstream{{Client: a, Params: testParams()}}, 0, logger)
	if err != nil {
		t.Fatalf("NewUpstreamPool failed: %v", err)
	}

	reply := pool.NewEngine().Send(context.Background(), userPrompt("Hi"))
	if reply.Text != "a" {
		t.Errorf("expected reply from the only upstream, got %q", reply.Text)
	}
}
