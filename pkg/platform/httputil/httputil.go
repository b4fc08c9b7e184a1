// Package httputil provides the JSON response helpers shared by all HTTP
// handlers. Error bodies are built from coded domain errors so handlers never
// map statuses by hand.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "jitbridge/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into an HTTP error response. The body
// carries the code, the message, and any structured details the error holds.
// Internal errors omit the message so store failures never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)
	body := map[string]any{"error": string(code)}

	var de *dErrors.Error
	if errors.As(err, &de) {
		if code != dErrors.CodeInternal {
			body["error_description"] = de.Message
		}
		for k, v := range de.Details {
			body[k] = v
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// DecodeJSON decodes the request body into T, rejecting unknown fields at the
// envelope level is deliberately not done: the event source adds fields
// without notice.
func DecodeJSON[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid JSON body")
	}
	return v, nil
}
