package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chatrelay/internal/config"
	"chatrelay/internal/domain"
	"chatrelay/internal/domain/models"
	"chatrelay/internal/domain/services"
	llmSvc "chatrelay/internal/domain/services/llm"
	"chatrelay/internal/handler/stream"
	"chatrelay/internal/httputil"
	"chatrelay/internal/service/conversation"
	serviceLLM "chatrelay/internal/service/llm"
)

// persistTimeout bounds the tail write after a streamed reply
const persistTimeout = 30 * time.Second

// EngineSource hands out a chat engine bound to one upstream
type EngineSource interface {
	NewEngine() *serviceLLM.Engine
}

// ChatHandler handles the chat HTTP endpoints.
// Handlers only communicate with services, never repositories.
type ChatHandler struct {
	conversations services.ConversationService
	engines       EngineSource
	load          llmSvc.LoadMonitor
	debug         bool
	logger        *slog.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(
	conversations services.ConversationService,
	engines EngineSource,
	load llmSvc.LoadMonitor,
	debug bool,
	logger *slog.Logger,
) *ChatHandler {
	return &ChatHandler{
		conversations: conversations,
		engines:       engines,
		load:          load,
		debug:         debug,
		logger:        logger,
	}
}

// StartChatRequest is the body of POST /start_chat
type StartChatRequest struct {
	ChatName string `json:"chat_name"`
}

// SendMessageRequest is the body of POST /send_message
type SendMessageRequest struct {
	Message  string `json:"message"`
	ChatName string `json:"chat_name"`
}

// StartChat creates a conversation unless one with that name exists
// POST /start_chat
func (h *ChatHandler) StartChat(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req StartChatRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.conversations.StartChat(r.Context(), userID, req.ChatName)
	if err != nil {
		h.logFailure(r, "start chat failed", err)
		handleError(w, err, h.debug)
		return
	}

	message := "Chat already exists"
	if created {
		message = "Chat started"
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message":   message,
		"chat_name": req.ChatName,
	})
}

// ChatList returns the names of the caller's conversations
// GET /chat_list
func (h *ChatHandler) ChatList(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	names, err := h.conversations.List(r.Context(), userID)
	if err != nil {
		h.logFailure(r, "list chats failed", err)
		handleError(w, err, h.debug)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string][]string{
		"chats": names,
	})
}

// ChatHistory returns the stored turns of one conversation.
// An unknown conversation yields an empty list.
// GET /chat_history?chat_name=
func (h *ChatHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	chatName := r.URL.Query().Get("chat_name")
	if chatName == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Chat name is required")
		return
	}

	conv, err := h.conversations.Fetch(r.Context(), userID, chatName)
	if err != nil {
		h.logFailure(r, "fetch chat history failed", err)
		handleError(w, err, h.debug)
		return
	}

	var history models.MessageLog
	if conv != nil {
		history = conv.Messages
	}

	// MessageLog always encodes its list, even when empty
	httputil.RespondJSON(w, http.StatusOK, history)
}

// SendMessage relays one user message upstream and persists the exchange.
// The reply is buffered as JSON when the host is overloaded and streamed
// as plain text otherwise.
// POST /send_message
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req SendMessageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := conversation.ValidateMessage(req.Message); err != nil {
		handleError(w, err, h.debug)
		return
	}
	if req.ChatName == "" {
		req.ChatName = config.DefaultChatName
	}

	conv, err := h.conversations.Fetch(r.Context(), userID, req.ChatName)
	if err != nil {
		h.logFailure(r, "fetch conversation failed", err)
		handleError(w, err, h.debug)
		return
	}
	if conv == nil {
		httputil.RespondError(w, http.StatusNotFound, "Chat not found")
		return
	}

	prompt := conversation.BuildPromptContext(conv.Messages, req.Message)
	engine := h.engines.NewEngine()

	if h.load.IsOverloaded(r.Context()) {
		h.sendBuffered(w, r, engine, conv, prompt, req.Message)
		return
	}
	h.sendStreamed(w, r, engine, conv, prompt, req.Message)
}

func (h *ChatHandler) sendBuffered(
	w http.ResponseWriter,
	r *http.Request,
	engine *serviceLLM.Engine,
	conv *models.Conversation,
	prompt []llmSvc.Message,
	message string,
) {
	reply := engine.Send(r.Context(), prompt)
	if reply.Degraded {
		h.logger.Warn("buffered reply degraded",
			"conversation_id", conv.ID,
			"error", reply.Err,
			"request_id", httputil.GetRequestID(r.Context()),
		)
	}

	err := h.conversations.AppendAndSave(r.Context(), conv,
		models.Turn{Role: models.RoleUser, Content: message},
		models.Turn{Role: models.RoleAssistant, Content: reply.Text},
	)
	if err != nil {
		h.logFailure(r, "persist exchange failed", err)
		handleError(w, err, h.debug)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"message": reply.Text,
	})
}

func (h *ChatHandler) sendStreamed(
	w http.ResponseWriter,
	r *http.Request,
	engine *serviceLLM.Engine,
	conv *models.Conversation,
	prompt []llmSvc.Message,
	message string,
) {
	fragments, err := engine.Stream(r.Context(), prompt)
	if err != nil {
		// Nothing has been sent yet; the degraded text becomes the whole body
		text := "Error: " + err.Error()
		out := stream.NewWriter(w)
		if werr := out.WriteFragment(text); werr != nil {
			h.logger.Debug("client gone before degraded reply", "error", werr)
		}
		h.persistTail(r, conv, message, text)
		return
	}
	defer fragments.Close()

	out := stream.NewWriter(w)
	var text strings.Builder
	completed := false

	for {
		fragment, err := fragments.Recv()
		if errors.Is(err, io.EOF) {
			completed = true
			break
		}
		if err != nil {
			h.logger.Warn("stream ended early",
				"conversation_id", conv.ID,
				"error", err,
				"chars", text.Len(),
				"request_id", httputil.GetRequestID(r.Context()),
			)
			break
		}

		text.WriteString(fragment)
		if err := out.WriteFragment(fragment); err != nil {
			h.logger.Info("client disconnected during stream",
				"conversation_id", conv.ID,
				"chars", text.Len(),
				"request_id", httputil.GetRequestID(r.Context()),
			)
			break
		}
	}
	fragments.Close()

	if text.Len() == 0 && !completed {
		return
	}
	h.persistTail(r, conv, message, text.String())
}

// persistTail saves the exchange after the response has been committed.
// The request context may already be cancelled, so the write runs detached.
// Failures can only be logged.
func (h *ChatHandler) persistTail(r *http.Request, conv *models.Conversation, message, reply string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), persistTimeout)
	defer cancel()

	err := h.conversations.AppendAndSave(ctx, conv,
		models.Turn{Role: models.RoleUser, Content: message},
		models.Turn{Role: models.RoleAssistant, Content: reply},
	)
	if err != nil {
		h.logger.Error("persist streamed exchange failed",
			"conversation_id", conv.ID,
			"error", err,
			"request_id", httputil.GetRequestID(r.Context()),
		)
	}
}

func (h *ChatHandler) logFailure(r *http.Request, msg string, err error) {
	level := slog.LevelError
	if errors.Is(err, domain.ErrValidation) {
		level = slog.LevelDebug
	}
	h.logger.Log(r.Context(), level, msg,
		"error", err,
		"path", r.URL.Path,
		"user_id", httputil.GetUserID(r),
		"request_id", httputil.GetRequestID(r.Context()),
	)
}
