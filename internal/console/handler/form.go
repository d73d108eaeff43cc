package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/rp-community-console/internal/domain"
)

type FormService interface {
	GetForm(ctx context.Context, id string) (*domain.FormDefinition, error)
	ListForms(ctx context.Context) ([]*domain.FormDefinition, error)
	DeleteForm(ctx context.Context, id string) error
}

type FormHandler struct {
	service FormService
}

func NewFormHandler(s FormService) *FormHandler {
	return &FormHandler{service: s}
}

func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	forms, err := h.service.ListForms(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, forms)
}

func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	form, err := h.service.GetForm(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// Delete — мягкое удаление формы. Только для админов.
func (h *FormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "forms.admin") {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.DeleteForm(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
