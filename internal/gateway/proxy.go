// Package gateway fronts one or more chat-service instances and the auth
// service behind a single /api surface.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"chatrelay/internal/balance"
)

// Routes forwarded to a chat-service instance. Each requires a token.
var chatRoutes = []string{"start_chat", "chat_list", "chat_history", "send_message"}

// Routes forwarded to the auth service
var authRoutes = []string{"login", "register"}

// Config lists the backends the gateway forwards to
type Config struct {
	ChatServiceURLs []string
	AuthServiceURL  string
	Transport       http.RoundTripper // Optional; defaults to http.DefaultTransport
}

// Gateway is a thin reverse proxy. It never inspects bodies, so streamed
// replies from send_message pass through as they arrive.
type Gateway struct {
	chat   *balance.Picker[*url.URL]
	auth   *url.URL
	proxy  *httputil.ReverseProxy
	logger *slog.Logger
}

type targetKey struct{}

type target struct {
	base        *url.URL
	path        string
	unreachable string
}

// New validates the backend URLs and builds the proxy
func New(cfg Config, logger *slog.Logger) (*Gateway, error) {
	var chatURLs []*url.URL
	for _, raw := range cfg.ChatServiceURLs {
		u, err := parseBackend(raw)
		if err != nil {
			return nil, fmt.Errorf("chat service: %w", err)
		}
		chatURLs = append(chatURLs, u)
	}

	chat, err := balance.NewPicker(chatURLs)
	if err != nil {
		return nil, errors.New("at least one chat service URL is required")
	}

	authURL, err := parseBackend(cfg.AuthServiceURL)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	g := &Gateway{
		chat:   chat,
		auth:   authURL,
		logger: logger,
	}

	g.proxy = &httputil.ReverseProxy{
		Rewrite:       g.rewrite,
		Transport:     cfg.Transport,
		FlushInterval: -1,
		ErrorHandler:  g.proxyError,
		ErrorLog:      slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	return g, nil
}

func parseBackend(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(raw), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: scheme and host are required", raw)
	}
	return u, nil
}

// Handler returns the gateway's routes
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	for _, route := range chatRoutes {
		mux.HandleFunc("/api/"+route, g.forwardChat("/"+route, true))
	}
	mux.HandleFunc("GET /api/health", g.forwardChat("/health", false))

	for _, route := range authRoutes {
		mux.HandleFunc("POST /api/"+route, g.forwardAuth("/"+route))
	}

	return mux
}

// Backends returns the configured chat-service URLs
func (g *Gateway) Backends() []string {
	var out []string
	for _, u := range g.chat.All() {
		out = append(out, u.String())
	}
	return out
}

func (g *Gateway) forwardChat(path string, requireToken bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if requireToken && r.Header.Get("Authorization") == "" {
			respondError(w, http.StatusUnauthorized, "Authorization token is missing", "")
			return
		}

		base := g.chat.Pick()
		g.logger.Debug("forwarding to chat service", "path", path, "backend", base.Host)
		g.serve(w, r, target{base: base, path: path, unreachable: "Chat service unreachable"})
	}
}

func (g *Gateway) forwardAuth(path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, target{base: g.auth, path: path, unreachable: "Authentication service unreachable"})
	}
}

func (g *Gateway) serve(w http.ResponseWriter, r *http.Request, t target) {
	g.proxy.ServeHTTP(w, r.WithContext(withTarget(r.Context(), t)))
}

func (g *Gateway) rewrite(pr *httputil.ProxyRequest) {
	t := targetFrom(pr.In.Context())
	pr.SetURL(t.base)
	pr.Out.URL.Path = t.base.Path + t.path
	pr.Out.URL.RawPath = ""
	pr.Out.URL.RawQuery = pr.In.URL.RawQuery
	pr.SetXForwarded()
}

func (g *Gateway) proxyError(w http.ResponseWriter, r *http.Request, err error) {
	t := targetFrom(r.Context())
	g.logger.Error("backend request failed",
		"path", r.URL.Path,
		"backend", t.base.Host,
		"error", err,
	)
	respondError(w, http.StatusInternalServerError, t.unreachable, err.Error())
}

// errorBody is the gateway's own error shape; backend bodies are relayed untouched
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondError(w http.ResponseWriter, status int, message, details string) {
	payload, _ := json.Marshal(errorBody{Error: message, Details: details})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}
