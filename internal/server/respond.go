package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	apperr "github.com/kindredapp/engine/internal/errors"

	"github.com/gorilla/mux"
)

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to an HTTP status and writes a {code, message} body.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, apperr.HTTPStatus(err), map[string]string{
		"code":    string(apperr.CodeOf(err)),
		"message": err.Error(),
	})
}

// DecodeJSON parses the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.InvalidArgument("invalid JSON body")
	}
	return nil
}

// PathID parses a uint64 path variable.
func PathID(r *http.Request, name string) (uint64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.InvalidArgument(name + " must be a valid user-facing id")
	}
	return id, nil
}

// QueryUint64 parses an optional uint64 query parameter; 0 when absent.
func QueryUint64(r *http.Request, name string) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.InvalidArgument(name + " must be a valid uint64")
	}
	return id, nil
}
