package recurring

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/invoicely/internal/http/render"
)

type Runner interface {
	Run(ctx context.Context, userID string) (int, error)
}

type Handler struct {
	runner Runner
}

func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/run", h.run)
}

type runResponse struct {
	Generated int `json:"generated"`
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.UserID(w, r)
	if !ok {
		return
	}

	n, err := h.runner.Run(r.Context(), userID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, runResponse{Generated: n})
}
