package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/xela07ax/rp-community-console/internal/domain"
)

// ResponseWorkflow Описываем, что нам нужно от сервиса
type ResponseWorkflow interface {
	SaveDraft(ctx context.Context, formID, actorID string, answers []domain.Answer) (*domain.ResponseRecord, error)
	Submit(ctx context.Context, formID, actorID string, answers []domain.Answer) (*domain.ResponseRecord, error)
	ReviewerDecision(ctx context.Context, responseID, actorID string, approved bool, comments string) (*domain.ResponseRecord, error)
	FinalApproval(ctx context.Context, responseID, actorID string, approved bool, comments string) (*domain.ResponseRecord, error)
	GetResponse(ctx context.Context, id string) (*domain.ResponseRecord, error)
	ListResponses(ctx context.Context, formID string, status domain.ResponseStatus) ([]*domain.ResponseRecord, error)
}

type ResponseHandler struct {
	service ResponseWorkflow
}

func NewResponseHandler(s ResponseWorkflow) *ResponseHandler {
	return &ResponseHandler{service: s}
}

type answersRequest struct {
	Answers []domain.Answer `json:"answers"`
}

func (h *ResponseHandler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "id")

	var req answersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.service.SaveDraft(r.Context(), formID, actorID(r), req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "id")

	var req answersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.service.Submit(r.Context(), formID, actorID(r), req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

type decideRequest struct {
	Approved bool   `json:"approved"`
	Comments string `json:"comments"`
}

func (h *ResponseHandler) Review(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.service.ReviewerDecision(r.Context(), id, actorID(r), req.Approved, req.Comments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *ResponseHandler) FinalApprove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	rec, err := h.service.FinalApproval(r.Context(), id, actorID(r), req.Approved, req.Comments)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *ResponseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.service.GetResponse(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// List — очередь рецензирования: ?form=...&status=pending_review
func (h *ResponseHandler) List(w http.ResponseWriter, r *http.Request) {
	formID := r.URL.Query().Get("form")
	status := domain.ResponseStatus(r.URL.Query().Get("status"))

	list, err := h.service.ListResponses(r.Context(), formID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
