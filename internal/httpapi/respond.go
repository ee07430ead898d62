package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"shopadmin.app/internal/audit"
	"shopadmin.app/internal/auth"
	"shopadmin.app/internal/catalog"
	"shopadmin.app/internal/customer"
)

type errorResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, errorResponse{Message: msg, RequestID: requestIDFromContext(r.Context())})
}

var errEmptyBody = errors.New("request body is required")

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errEmptyBody
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		default:
			return fmt.Errorf("invalid JSON body: %v", err)
		}
	}
	return nil
}

// decodeOrReject decodes the body and writes a 400 on failure.
func decodeOrReject(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(r, dst); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// handleError maps service errors onto HTTP statuses.
func (a *API) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrProtectedAccount):
		writeError(w, r, http.StatusForbidden, "The superadmin account cannot be deleted or demoted.")
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "Invalid username or password.")
	case errors.Is(err, auth.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, msgInvalidToken)
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Admin not found.")
	case errors.Is(err, audit.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Log not found.")
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Resource not found.")
	case errors.Is(err, audit.ErrNotModifiable):
		writeError(w, r, http.StatusBadRequest, "Log cannot be modified.")
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, "Username is already taken.")
	case errors.Is(err, customer.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "Invalid email or password.")
	case errors.Is(err, customer.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Customer not found.")
	case errors.Is(err, customer.ErrConflict):
		writeError(w, r, http.StatusConflict, "User already exists.")
	case errors.Is(err, customer.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, detail(err, customer.ErrInvalidInput))
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, detail(err, auth.ErrInvalidInput))
	case errors.Is(err, audit.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, detail(err, audit.ErrInvalidInput))
	case errors.Is(err, catalog.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, detail(err, catalog.ErrInvalidInput))
	default:
		a.logger.Error("request_failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, r, http.StatusInternalServerError, "Internal server error.")
	}
}

// detail strips the sentinel prefix from a wrapped validation error.
func detail(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return "Invalid input."
	}
	return msg
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}
