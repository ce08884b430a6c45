// Package render writes JSON responses and maps domain errors to status codes.
package render

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/MrJamesThe3rd/invoicely/internal/assistant"
	"github.com/MrJamesThe3rd/invoicely/internal/auth"
	"github.com/MrJamesThe3rd/invoicely/internal/category"
	"github.com/MrJamesThe3rd/invoicely/internal/database"
	"github.com/MrJamesThe3rd/invoicely/internal/income"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
	"github.com/MrJamesThe3rd/invoicely/internal/recurring"
	"github.com/MrJamesThe3rd/invoicely/internal/validate"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error writes err with the status its kind maps to. Unrecognized errors are
// logged and reported as a generic internal error.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, validate.ErrInvalid),
		errors.Is(err, category.ErrEmptyName),
		errors.Is(err, category.ErrUnknownType),
		errors.Is(err, database.ErrBadCursor):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, invoice.ErrNotFound), errors.Is(err, income.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, category.ErrDuplicate), errors.Is(err, recurring.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, assistant.ErrNoAnalysis):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, auth.ErrInvalidToken):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(validate.ErrInvalid, err)
	}

	return nil
}

// UserID returns the authenticated user or answers 401 and reports false.
func UserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserID(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
	}

	return id, ok
}

// MaxLimit caps the page size a client can ask for.
const MaxLimit = 100

// Limit parses the optional "limit" query parameter. Zero means the default;
// anything above MaxLimit is clamped.
func Limit(r *http.Request) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.Join(validate.ErrInvalid, errors.New("limit must be a non-negative integer"))
	}

	return min(n, MaxLimit), nil
}

// Page is the JSON shape of one page of a collection.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor"`
	HasMore    bool   `json:"hasMore"`
}
