package handler

import (
	"net/http"

	"chatrelay/internal/httputil"
)

// Health reports that the process is serving requests
// GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
