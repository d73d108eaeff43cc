package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/rp-community-console/internal/domain"
)

// Engine — конечный автомат согласования откликов.
//
// Движок чистый: он не ходит в БД и не публикует уведомления. Каждая операция
// берет загруженную запись, валидирует переход и возвращает обновленную КОПИЮ
// плюс события для диспетчера. Любая ошибка означает «запись не изменилась» —
// это позволяет слою сервиса безопасно повторять применение после конфликта
// версий в хранилище.
type Engine struct {
	access AccessEvaluator

	// Подменяются в тестах для детерминизма
	now   func() time.Time
	newID func() string
}

func NewEngine(access AccessEvaluator) *Engine {
	return &Engine{
		access: access,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// SaveDraft сохраняет черновик. Если записи еще нет — создает новую в статусе
// draft. Черновик может мутировать только его автор. Событий не порождает.
func (e *Engine) SaveDraft(ctx context.Context, form *domain.FormDefinition, rec *domain.ResponseRecord, actorID string, answers []domain.Answer) (*domain.ResponseRecord, error) {
	if form.Deleted() {
		return nil, fmt.Errorf("form %s is deleted: %w", form.ID, domain.ErrRecordNotFound)
	}

	if rec != nil {
		if rec.Status != domain.StatusDraft {
			return nil, fmt.Errorf("save draft in status %s: %w", rec.Status, domain.ErrInvalidTransition)
		}
		if rec.SubmitterID != actorID {
			return nil, fmt.Errorf("draft belongs to another submitter: %w", domain.ErrUnauthorized)
		}
	}

	allowed, err := e.access.CanSubmit(ctx, form, actorID)
	if err != nil {
		return nil, fmt.Errorf("access check failed: %w", err)
	}
	if !allowed {
		return nil, fmt.Errorf("actor %s cannot submit form %s: %w", actorID, form.ID, domain.ErrUnauthorized)
	}

	// Черновик может быть неполным: обязательность вопросов не проверяем,
	// только соответствие типов ответ/вопрос.
	if err := validateAnswers(form, answers, false); err != nil {
		return nil, err
	}

	now := e.now()
	if rec == nil {
		return &domain.ResponseRecord{
			ID:          e.newID(),
			FormID:      form.ID,
			SubmitterID: actorID,
			Answers:     answers,
			Status:      domain.StatusDraft,
			UpdatedAt:   now,
		}, nil
	}

	updated := rec.Clone()
	updated.Answers = answers
	updated.UpdatedAt = now
	return updated, nil
}

// Submit подает отклик на рассмотрение. Запись должна отсутствовать либо быть
// черновиком актора. После фиксации ответов применяется правило начальной
// маршрутизации:
//   - 0 рецензентов и нет финального аппрува — сразу approved (auto-approve);
//   - 0 рецензентов, но финальный аппрув нужен — pending_approval;
//   - иначе — pending_review.
func (e *Engine) Submit(ctx context.Context, form *domain.FormDefinition, rec *domain.ResponseRecord, actorID string, answers []domain.Answer) (*domain.ResponseRecord, []Event, error) {
	if form.Deleted() {
		return nil, nil, fmt.Errorf("form %s is deleted: %w", form.ID, domain.ErrRecordNotFound)
	}

	if rec != nil {
		if rec.Status != domain.StatusDraft {
			return nil, nil, fmt.Errorf("submit in status %s: %w", rec.Status, domain.ErrInvalidTransition)
		}
		if rec.SubmitterID != actorID {
			return nil, nil, fmt.Errorf("draft belongs to another submitter: %w", domain.ErrUnauthorized)
		}
	}

	allowed, err := e.access.CanSubmit(ctx, form, actorID)
	if err != nil {
		return nil, nil, fmt.Errorf("access check failed: %w", err)
	}
	if !allowed {
		return nil, nil, fmt.Errorf("actor %s cannot submit form %s: %w", actorID, form.ID, domain.ErrUnauthorized)
	}

	if err := validateAnswers(form, answers, true); err != nil {
		return nil, nil, err
	}

	now := e.now()
	var updated *domain.ResponseRecord
	if rec == nil {
		// Подача без черновика (skip-draft submission)
		updated = &domain.ResponseRecord{
			ID:          e.newID(),
			FormID:      form.ID,
			SubmitterID: actorID,
		}
	} else {
		updated = rec.Clone()
	}

	updated.Answers = answers
	updated.SubmittedAt = &now
	updated.UpdatedAt = now
	updated.Status = routeSubmitted(form)

	return updated, []Event{e.event(updated, actorID, ActionSubmit)}, nil
}

// routeSubmitted — правило начальной маршрутизации после подачи.
func routeSubmitted(form *domain.FormDefinition) domain.ResponseStatus {
	switch {
	case form.RequiredReviewers == 0 && !form.RequiresFinalApproval:
		return domain.StatusApproved
	case form.RequiredReviewers == 0:
		return domain.StatusPendingApproval
	default:
		return domain.StatusPendingReview
	}
}

// RecordReviewerDecision фиксирует голос рецензента.
//
// Правило завершения: одно «нет» терминально (denied_by_review) независимо от
// количества «да» и оставшихся рецензентов — рецензенты голосуют независимо,
// это вето, а не большинство. Порог requiredReviewers ограничивает только путь
// одобрения: при deniedCount == 0 и approvedCount >= requiredReviewers отклик
// уходит дальше (pending_approval либо сразу approved).
func (e *Engine) RecordReviewerDecision(ctx context.Context, form *domain.FormDefinition, rec *domain.ResponseRecord, reviewerID string, approved bool, comments string) (*domain.ResponseRecord, []Event, error) {
	if rec.Status != domain.StatusPendingReview {
		return nil, nil, fmt.Errorf("reviewer decision in status %s: %w", rec.Status, domain.ErrInvalidTransition)
	}

	allowed, err := e.access.CanReview(ctx, form, reviewerID)
	if err != nil {
		return nil, nil, fmt.Errorf("access check failed: %w", err)
	}
	if !allowed {
		return nil, nil, fmt.Errorf("actor %s is not a reviewer of form %s: %w", reviewerID, form.ID, domain.ErrUnauthorized)
	}

	updated := rec.Clone()
	ledger := NewLedger(updated.ReviewerDecisions)
	if err := ledger.Append(domain.Decision{
		ReviewerID: reviewerID,
		Approved:   approved,
		Comments:   comments,
		DecidedAt:  e.now(),
	}); err != nil {
		return nil, nil, err
	}
	updated.ReviewerDecisions = ledger.Decisions()

	approvedCount, deniedCount := ledger.Counts()
	switch {
	case deniedCount >= 1:
		updated.Status = domain.StatusDeniedByReview
	case approvedCount >= form.RequiredReviewers:
		if form.RequiresFinalApproval {
			updated.Status = domain.StatusPendingApproval
		} else {
			updated.Status = domain.StatusApproved
		}
	}
	updated.UpdatedAt = e.now()

	// Уведомляем только о смене статуса; промежуточные голоса тихие
	var events []Event
	if updated.Status != rec.Status {
		events = append(events, e.event(updated, reviewerID, ActionReviewDecision))
	}
	return updated, events, nil
}

// RecordFinalApproval фиксирует вердикт финального утверждающего.
func (e *Engine) RecordFinalApproval(ctx context.Context, form *domain.FormDefinition, rec *domain.ResponseRecord, approverID string, approved bool, comments string) (*domain.ResponseRecord, []Event, error) {
	if rec.Status != domain.StatusPendingApproval {
		return nil, nil, fmt.Errorf("final approval in status %s: %w", rec.Status, domain.ErrInvalidTransition)
	}

	allowed, err := e.access.CanFinalApprove(ctx, form, approverID)
	if err != nil {
		return nil, nil, fmt.Errorf("access check failed: %w", err)
	}
	if !allowed {
		return nil, nil, fmt.Errorf("actor %s is not a final approver of form %s: %w", approverID, form.ID, domain.ErrUnauthorized)
	}

	now := e.now()
	updated := rec.Clone()
	updated.FinalApproval = &domain.FinalApproval{
		ApproverID: approverID,
		Approved:   approved,
		Comments:   comments,
		DecidedAt:  now,
	}
	if approved {
		updated.Status = domain.StatusApproved
	} else {
		updated.Status = domain.StatusDeniedByApproval
	}
	updated.UpdatedAt = now

	return updated, []Event{e.event(updated, approverID, ActionFinalApproval)}, nil
}

func (e *Engine) event(rec *domain.ResponseRecord, actorID, action string) Event {
	return Event{
		ResponseID:  rec.ID,
		FormID:      rec.FormID,
		SubmitterID: rec.SubmitterID,
		ActorID:     actorID,
		Action:      action,
		Status:      rec.Status,
		OccurredAt:  e.now(),
	}
}

// validateAnswers проверяет ответы против схемы формы на границе движка,
// не доверяя вызывающему: неизвестный вопрос, дубль ответа, несовпадение типа
// и вариант вне списка отклоняются. При enforceRequired дополнительно
// требуются непустые ответы на все обязательные вопросы.
func validateAnswers(form *domain.FormDefinition, answers []domain.Answer, enforceRequired bool) error {
	seen := make(map[string]bool, len(answers))

	for _, a := range answers {
		q, ok := form.Question(a.QuestionID)
		if !ok {
			return fmt.Errorf("unknown question %s: %w", a.QuestionID, domain.ErrInvalidAnswer)
		}
		if seen[a.QuestionID] {
			return fmt.Errorf("duplicate answer for question %s: %w", a.QuestionID, domain.ErrInvalidAnswer)
		}
		seen[a.QuestionID] = true

		if a.Kind != q.Kind {
			return fmt.Errorf("question %s expects %s, got %s: %w", q.ID, q.Kind, a.Kind, domain.ErrInvalidAnswer)
		}

		if q.Kind == domain.QuestionMultipleChoice {
			for _, sel := range a.Selected {
				if !containsOption(q.Options, sel) {
					return fmt.Errorf("question %s: option %q is not allowed: %w", q.ID, sel, domain.ErrInvalidAnswer)
				}
			}
		}
	}

	if !enforceRequired {
		return nil
	}

	for _, q := range form.Questions {
		if !q.Required {
			continue
		}
		if !seen[q.ID] {
			return fmt.Errorf("required question %s is not answered: %w", q.ID, domain.ErrInvalidAnswer)
		}
		for _, a := range answers {
			if a.QuestionID != q.ID {
				continue
			}
			switch q.Kind {
			case domain.QuestionShortAnswer, domain.QuestionLongAnswer:
				if a.Text == "" {
					return fmt.Errorf("required question %s has empty answer: %w", q.ID, domain.ErrInvalidAnswer)
				}
			case domain.QuestionMultipleChoice:
				if len(a.Selected) == 0 {
					return fmt.Errorf("required question %s has no selection: %w", q.ID, domain.ErrInvalidAnswer)
				}
			}
		}
	}
	return nil
}

func containsOption(options []string, v string) bool {
	for _, opt := range options {
		if opt == v {
			return true
		}
	}
	return false
}
