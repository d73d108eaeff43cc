package domain

import (
	"time"
)

// Статусы жизненного цикла отклика (State Machine).
// Значения видны на проводе (API/БД) — переименование требует миграции.
type ResponseStatus string

const (
	StatusDraft            ResponseStatus = "draft"
	StatusSubmitted        ResponseStatus = "submitted" // транзитный: маршрутизация происходит синхронно при Submit
	StatusPendingReview    ResponseStatus = "pending_review"
	StatusDeniedByReview   ResponseStatus = "denied_by_review"
	StatusPendingApproval  ResponseStatus = "pending_approval"
	StatusApproved         ResponseStatus = "approved"
	StatusDeniedByApproval ResponseStatus = "denied_by_approval"
)

// Terminal сообщает, достиг ли статус конечной точки автомата.
// Из терминального статуса переходы запрещены.
func (s ResponseStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusDeniedByReview, StatusDeniedByApproval:
		return true
	}
	return false
}

// Decision — запись в журнале решений рецензентов.
// После добавления запись неизменяема (append-only ledger).
type Decision struct {
	ReviewerID string    `json:"reviewer_id"`
	Approved   bool      `json:"approved"`
	Comments   string    `json:"comments,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

// FinalApproval — вердикт финального утверждающего.
// Присутствует только когда requiresFinalApproval == true и статус терминальный.
type FinalApproval struct {
	ApproverID string    `json:"approver_id"`
	Approved   bool      `json:"approved"`
	Comments   string    `json:"comments,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

// ResponseRecord — единица, которой владеет движок согласования:
// заполненная форма плюс её текущее состояние в workflow.
type ResponseRecord struct {
	ID          string         `json:"id"`
	FormID      string         `json:"form_id"`
	SubmitterID string         `json:"submitter_id"`
	Answers     []Answer       `json:"answers"`
	Status      ResponseStatus `json:"status"`

	ReviewerDecisions []Decision     `json:"reviewer_decisions"`
	FinalApproval     *FinalApproval `json:"final_approval,omitempty"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Version используется хранилищем для оптимистичной блокировки (CAS).
	Version int64 `json:"version"`
}

// Clone возвращает глубокую копию записи.
// Движок мутирует только копию: при ошибке оригинал остается нетронутым.
func (r *ResponseRecord) Clone() *ResponseRecord {
	cp := *r

	cp.Answers = make([]Answer, len(r.Answers))
	copy(cp.Answers, r.Answers)

	cp.ReviewerDecisions = make([]Decision, len(r.ReviewerDecisions))
	copy(cp.ReviewerDecisions, r.ReviewerDecisions)

	if r.FinalApproval != nil {
		fa := *r.FinalApproval
		cp.FinalApproval = &fa
	}
	if r.SubmittedAt != nil {
		ts := *r.SubmittedAt
		cp.SubmittedAt = &ts
	}
	return &cp
}

// Answer — типизированный ответ на вопрос формы (tagged variant).
// Заполнено только поле, соответствующее типу вопроса.
type Answer struct {
	QuestionID string       `json:"question_id"`
	Kind       QuestionKind `json:"kind"`

	Value    bool     `json:"value,omitempty"`    // true_false
	Text     string   `json:"text,omitempty"`     // short_answer, long_answer
	Selected []string `json:"selected,omitempty"` // multiple_choice
}
