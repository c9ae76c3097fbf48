// Package httpx is the response vocabulary shared by the ingress handlers:
// JSON bodies, RFC7807 problem details, and the mapping from the domain
// error taxonomy onto status codes.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mobistock/mobistock/internal/shared"
)

// ProblemDetail is an RFC7807 problem document.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem writes an RFC7807 problem response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// Error maps a domain error to an RFC7807 response. Unknown errors become an
// opaque 500 so internals never leak to the caller.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidArgument):
		Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrInvalidState):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// DecodeJSON decodes the request body into target. Unknown fields are
// tolerated since mobile clients ship ahead of the server.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
