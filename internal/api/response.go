package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/eloquentai/finchat/internal/log"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// WriteJSON writes a JSON response with the given status code. The body
// is encoded into a buffer first so headers are only sent after
// encoding succeeded, leaving room for a proper 500 when it fails.
func WriteJSON(w http.ResponseWriter, status int, data any, logger log.Logger) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		logger.Error("encoding JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		// Client disconnects are common and expected.
		logger.Debug("writing response body", "error", err)
	}
}

// WriteError writes the error envelope {"error":{"code","message"}}.
func WriteError(w http.ResponseWriter, status int, code, message string, logger log.Logger) {
	WriteJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	}, logger)
}

// decodeJSON decodes a JSON request body into dst, enforcing the body
// size cap. Returns false after writing an error response when the body
// is oversized or malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, logger log.Logger) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			WriteError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", logger)
			return false
		}
		WriteError(w, http.StatusBadRequest, "invalid_request", "invalid request body", logger)
		return false
	}
	return true
}

// parseIntParam reads an integer query parameter, falling back to def
// when the parameter is absent or malformed.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// nonNil maps a nil slice to an empty one so JSON renders [] instead of
// null.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
