package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/saraha-app/sessionkit"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes err in its client-facing form. Internal details never
// reach the response.
func WriteError(w http.ResponseWriter, err error) {
	pub := sessionkit.Classify(err)
	if pub == nil {
		pub = sessionkit.ErrInternal
	}
	WriteJSON(w, pub.Status, ErrorBody{Code: string(pub.Code), Message: pub.Message})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
