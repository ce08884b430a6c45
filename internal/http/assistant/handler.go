package assistant

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrJamesThe3rd/invoicely/internal/assistant"
	"github.com/MrJamesThe3rd/invoicely/internal/http/render"
	"github.com/MrJamesThe3rd/invoicely/internal/summary"
)

type Chatter interface {
	Chat(ctx context.Context, history []assistant.Message, s summary.Summary) (string, error)
}

type Handler struct {
	chatter Chatter
	summaries *summary.Service
}

func NewHandler(chatter Chatter, summaries *summary.Service) *Handler {
	return &Handler{chatter: chatter, summaries: summaries}
}

func (h *Handler) Routes(r chi.Router) {
	r.With(middleware.AllowContentType("application/json")).Post("/chat", h.chat)
}

type chatRequest struct {
	Messages []assistant.Message `json:"messages"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	userID, ok := render.UserID(w, r)
	if !ok {
		return
	}

	if h.chatter == nil {
		http.Error(w, "assistant is not configured", http.StatusServiceUnavailable)
		return
	}

	var req chatRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, r, err)
		return
	}

	if len(req.Messages) == 0 || strings.TrimSpace(req.Messages[len(req.Messages)-1].Content) == "" {
		http.Error(w, "messages must end with a non-empty message", http.StatusBadRequest)
		return
	}

	s, err := h.summaries.ForUser(r.Context(), userID)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	reply, err := h.chatter.Chat(r.Context(), req.Messages, s)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, chatResponse{Reply: reply})
}
