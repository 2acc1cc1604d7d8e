// Package shared holds the JSON response helpers used by every feature
// handler, so error envelopes and content types stay consistent.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "loomworks/pkg/errors"
)

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a tagged error into the JSON error envelope. Untagged
// errors collapse to a generic internal failure so storage details never
// reach callers.
func WriteError(w http.ResponseWriter, err error) {
	code := pkgerrors.CodeOf(err)
	message := "internal error"
	var tagged *pkgerrors.Error
	if errors.As(err, &tagged) {
		message = tagged.Message
	}
	WriteJSON(w, pkgerrors.ToHTTPStatus(code), map[string]string{
		"error":             string(code),
		"error_description": message,
	})
}
