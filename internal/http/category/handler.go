package category

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/invoicely/internal/category"
	"github.com/MrJamesThe3rd/invoicely/internal/http/render"
)

type Handler struct {
	registry *category.Registry
}

func NewHandler(registry *category.Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{type}", h.list)
	r.Post("/{type}", h.add)
	r.Delete("/{type}/{name}", h.remove)
}

type listResponse struct {
	Type       category.Type `json:"type"`
	Categories []string      `json:"categories"`
	Custom     []string      `json:"custom"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.UserID(w, r)
	if !ok {
		return
	}

	t, err := category.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	sets, err := h.registry.Load(r.Context(), userID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	custom, err := h.registry.Custom(r.Context(), userID, t)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if custom == nil {
		custom = []string{}
	}

	render.JSON(w, http.StatusOK, listResponse{Type: t, Categories: sets.Of(t), Custom: custom})
}

type addRequest struct {
	Name string `json:"name"`
}

type addResponse struct {
	Name string `json:"name"`
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.UserID(w, r)
	if !ok {
		return
	}

	t, err := category.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	var req addRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	name, err := h.registry.Add(r.Context(), userID, t, req.Name)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, addResponse{Name: name})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.UserID(w, r)
	if !ok {
		return
	}

	t, err := category.ParseType(chi.URLParam(r, "type"))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, "invalid name", http.StatusBadRequest)
		return
	}

	if err := h.registry.Remove(r.Context(), userID, t, name); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
