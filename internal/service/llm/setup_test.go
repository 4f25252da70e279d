package llm

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"chatrelay/internal/config"
	"chatrelay/internal/service/llm/providers/lorem"
	"chatrelay/internal/service/llm/providers/openai"
)

func TestSetupUpstreams(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		UpstreamModel:   "xdeepseekv3",
		UpstreamTimeout: time.Minute,
		Temperature:     0.7,
		MaxTokens:       16384,
		Upstreams: []config.UpstreamConfig{
			{Name: "a", Kind: config.UpstreamKindOpenAI, BaseURL: "http://a", APIKey: "ka", Headers: map[string]string{"lora_id": "0"}},
			{Name: "dev", Kind: config.UpstreamKindLorem, Model: "lorem-fast"},
		},
	}

	pool, err := SetupUpstreams(cfg, logger)
	if err != nil {
		t.Fatalf("SetupUpstreams failed: %v", err)
	}
	if pool.Len() != 2 {
		t.Fatalf("expected 2 upstreams, got %d", pool.Len())
	}

	for _, u := range pool.picker.All() {
		switch c := u.Client.(type) {
		case *openai.Client:
			if u.Params.Model != "xdeepseekv3" || u.Params.Headers["lora_id"] != "0" {
				t.Errorf("unexpected openai params: %+v", u.Params)
			}
		case *lorem.Provider:
			if u.Params.Model != "lorem-fast" {
				t.Errorf("unexpected lorem model %q", u.Params.Model)
			}
		default:
			t.Errorf("unexpected client type %T", c)
		}
	}
}

func TestSetupUpstreams_Errors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if _, err := SetupUpstreams(&config.Config{}, logger); err == nil {
		t.Error("expected empty pool to fail")
	}

	cfg := &config.Config{Upstreams: []config.UpstreamConfig{{Name: "x", Kind: "grpc"}}}
	if _, err := SetupUpstreams(cfg, logger); err == nil {
		t.Error("expected unknown kind to fail")
	}
}
