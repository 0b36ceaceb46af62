package transport

import (
	"encoding/json"
	"net/http"
)

// MaxBodyBytes caps the size of an uploaded project record.
const MaxBodyBytes = 4 << 20

// ErrorBody is the JSON error envelope returned by every failing route.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PutResult acknowledges a stored revision.
type PutResult struct {
	ID       string `json:"id"`
	Revision int64  `json:"revision"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Code: code, Message: message})
}
