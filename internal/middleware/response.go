package middleware

import (
	"net/http"

	"github.com/go-chi/render"
)

// errorBody is the JSON envelope of every error written by middleware.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// writeError writes a JSON error response. Middleware never emits HTML.
func writeError(w http.ResponseWriter, r *http.Request, status int, message, code string) {
	render.Status(r, status)
	render.JSON(w, r, errorBody{Error: message, Code: code})
}
