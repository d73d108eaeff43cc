package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xela07ax/rp-community-console/internal/domain"
)

// statusFromErr маппит ошибки workflow на HTTP-коды.
// 409 с conflict=true — единственный случай, который клиент может ретраить сам.
func statusFromErr(err error) int {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateDecision),
		errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAnswer):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
	// Retryable подсказывает клиенту, что повтор того же запроса безопасен
	Retryable bool `json:"retryable,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFromErr(err)

	msg := err.Error()
	if code == http.StatusInternalServerError {
		// Внутренности не выносим наружу
		msg = "internal error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorResponse{
		Error:     msg,
		Retryable: errors.Is(err, domain.ErrVersionConflict),
	})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// actorID достает ID авторизованного пользователя из контекста запроса
// (проставляется auth middleware).
func actorID(r *http.Request) string {
	if id, ok := r.Context().Value("user_id").(string); ok {
		return id
	}
	return ""
}

// hasScope проверяет скоуп из токена (для админских операций).
func hasScope(r *http.Request, scope string) bool {
	if scopes, ok := r.Context().Value("user_scopes").(map[string]bool); ok {
		return scopes[scope]
	}
	return false
}
