package invoice

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/invoicely/internal/category"
	"github.com/MrJamesThe3rd/invoicely/internal/http/render"
	"github.com/MrJamesThe3rd/invoicely/internal/invoice"
)

const maxUploadSize = 10 << 20

// Analyzer extracts invoice data from an uploaded file.
type Analyzer interface {
	AnalyzeInvoice(ctx context.Context, file []byte, mimeType string, categories []string) (*invoice.Parsed, error)
}

type Categories interface {
	Effective(ctx context.Context, userID string, t category.Type) ([]string, error)
}

type Handler struct {
	svc        *invoice.Service
	analyzer   Analyzer
	categories Categories
}

func NewHandler(svc *invoice.Service, analyzer Analyzer, categories Categories) *Handler {
	return &Handler{svc: svc, analyzer: analyzer, categories: categories}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/analyze", h.analyze)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/", h.create)
		r.Patch("/{id}", h.update)
	})

	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.UserID(w, r)
	if !ok {
		return
	}

	limit, err := render.Limit(r)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	page, err := h.svc.Page(r.Context(), userID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, render.Page[invoiceResponse]{
		Items:      toResponseList(page.Items),
		NextCursor: page.Cursor,
		HasMore:    page.More,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.UserID(w, r)
	if !ok {
		return
	}

	var req invoice.CreateParams
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	inv, err := h.svc.Create(r.Context(), userID, req)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(inv))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.UserID(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	inv, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.UserID(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	var patch invoice.Patch
	if err := render.Decode(r, &patch); err != nil {
		render.Error(w, r, err)
		return
	}

	inv, err := h.svc.Update(r.Context(), userID, id, patch)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.UserID(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// analyze reads the multipart "file" field and returns the extracted invoice
// without saving it.
func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.UserID(w, r)
	if !ok {
		return
	}

	if h.analyzer == nil {
		http.Error(w, "invoice analysis is not configured", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "failed to read file", http.StatusBadRequest)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	categories, err := h.categories.Effective(r.Context(), userID, category.TypeExpense)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	parsed, err := h.analyzer.AnalyzeInvoice(r.Context(), data, mimeType, categories)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, parsed)
}
