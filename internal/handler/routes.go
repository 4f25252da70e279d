package handler

import "net/http"

// HealthPath is served without authentication
const HealthPath = "/health"

// RegisterRoutes mounts the chat endpoints on mux (Go 1.22+ enhanced patterns)
func RegisterRoutes(mux *http.ServeMux, chat *ChatHandler) {
	mux.HandleFunc("GET "+HealthPath, Health)

	mux.HandleFunc("POST /start_chat", chat.StartChat)
	mux.HandleFunc("GET /chat_list", chat.ChatList)
	mux.HandleFunc("GET /chat_history", chat.ChatHistory)
	mux.HandleFunc("POST /send_message", chat.SendMessage)
}
