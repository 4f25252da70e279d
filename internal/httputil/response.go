package httputil

import (
	"encoding/json"
	"net/http"
)

// MessageBody is the JSON shape of every status and error message.
type MessageBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"` // Internal detail, only populated in debug mode
}

// RespondJSON writes a JSON response with the given status code.
// It handles encoding errors safely by marshaling first, preventing
// partial responses if encoding fails after headers are sent.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// RespondError writes a {"message": ...} error response
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondErrorWithDetail(w, status, message, "")
}

// RespondErrorWithDetail writes an error response carrying internal detail
// under "error". An empty detail is omitted.
func RespondErrorWithDetail(w http.ResponseWriter, status int, message, detail string) {
	payload, err := json.Marshal(MessageBody{Message: message, Error: detail})
	if err != nil {
		// Fallback to plain text if JSON encoding fails
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}
