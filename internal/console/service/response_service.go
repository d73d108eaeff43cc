package service

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/google/uuid"
	"github.com/xela07ax/rp-community-console/internal/audit"
	"github.com/xela07ax/rp-community-console/internal/domain"
	"github.com/xela07ax/rp-community-console/internal/workflow"
	"go.uber.org/zap"
)

// ResponseRepository описывает требования сервиса к хранилищу откликов
type ResponseRepository interface {
	GetResponse(ctx context.Context, id string) (*domain.ResponseRecord, error)
	FindDraft(ctx context.Context, formID, submitterID string) (*domain.ResponseRecord, error)
	InsertResponse(ctx context.Context, rec *domain.ResponseRecord) error
	UpdateResponse(ctx context.Context, rec *domain.ResponseRecord) error
	ListResponses(ctx context.Context, formID string, status domain.ResponseStatus) ([]*domain.ResponseRecord, error)
}

// FormProvider отдает определения форм (read-only для workflow)
type FormProvider interface {
	GetForm(ctx context.Context, id string) (*domain.FormDefinition, error)
}

// EventDispatcher уведомляет внешний мир о переходах
type EventDispatcher interface {
	Dispatch(ctx context.Context, events []workflow.Event)
}

// ResponseService — оркестратор операций workflow:
// загрузка записи -> применение перехода движком -> атомарная CAS-запись.
// При конфликте версий запись перечитывается и переход применяется заново
// (ограниченное число раз); повторное применение того же решения корректно
// всплывет как DuplicateDecision.
type ResponseService struct {
	repo     ResponseRepository
	forms    FormProvider
	engine   *workflow.Engine
	notifier EventDispatcher
	trail    audit.Logger
	metrics  *Metrics
	logger   *zap.Logger

	conflictRetries uint
}

func NewResponseService(
	repo ResponseRepository,
	forms FormProvider,
	engine *workflow.Engine,
	notifier EventDispatcher,
	trail audit.Logger,
	metrics *Metrics,
	logger *zap.Logger,
	conflictRetries int,
) *ResponseService {
	if conflictRetries < 1 {
		conflictRetries = 3
	}
	return &ResponseService{
		repo:            repo,
		forms:           forms,
		engine:          engine,
		notifier:        notifier,
		trail:           trail,
		metrics:         metrics,
		logger:          logger.Named("response-service"),
		conflictRetries: uint(conflictRetries),
	}
}

// SaveDraft сохраняет черновик отклика. Уведомлений не порождает.
func (s *ResponseService) SaveDraft(ctx context.Context, formID, actorID string, answers []domain.Answer) (*domain.ResponseRecord, error) {
	op := s.begin(workflow.ActionSaveDraft, actorID)
	var updated *domain.ResponseRecord

	err := s.withConflictRetry(ctx, func() error {
		form, err := s.forms.GetForm(ctx, formID)
		if err != nil {
			return err
		}
		rec, err := s.repo.FindDraft(ctx, formID, actorID)
		if err != nil {
			return err
		}
		op.observe(rec)

		updated, err = s.engine.SaveDraft(ctx, form, rec, actorID, answers)
		if err != nil {
			return err
		}
		return s.persist(ctx, rec, updated)
	})

	s.complete(ctx, op, updated, nil, err)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Submit подает отклик: фиксирует ответы и прогоняет начальную маршрутизацию.
func (s *ResponseService) Submit(ctx context.Context, formID, actorID string, answers []domain.Answer) (*domain.ResponseRecord, error) {
	op := s.begin(workflow.ActionSubmit, actorID)
	var updated *domain.ResponseRecord
	var events []workflow.Event

	err := s.withConflictRetry(ctx, func() error {
		form, err := s.forms.GetForm(ctx, formID)
		if err != nil {
			return err
		}
		rec, err := s.repo.FindDraft(ctx, formID, actorID)
		if err != nil {
			return err
		}
		op.observe(rec)

		updated, events, err = s.engine.Submit(ctx, form, rec, actorID, answers)
		if err != nil {
			return err
		}
		return s.persist(ctx, rec, updated)
	})

	s.complete(ctx, op, updated, events, err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("response submitted",
		zap.String("response_id", updated.ID),
		zap.String("form_id", formID),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

// ReviewerDecision фиксирует голос рецензента по отклику.
func (s *ResponseService) ReviewerDecision(ctx context.Context, responseID, actorID string, approved bool, comments string) (*domain.ResponseRecord, error) {
	op := s.begin(workflow.ActionReviewDecision, actorID)
	var updated *domain.ResponseRecord
	var events []workflow.Event

	err := s.withConflictRetry(ctx, func() error {
		rec, err := s.repo.GetResponse(ctx, responseID)
		if err != nil {
			return err
		}
		form, err := s.forms.GetForm(ctx, rec.FormID)
		if err != nil {
			return err
		}
		op.observe(rec)

		updated, events, err = s.engine.RecordReviewerDecision(ctx, form, rec, actorID, approved, comments)
		if err != nil {
			return err
		}
		return s.repo.UpdateResponse(ctx, updated)
	})

	s.complete(ctx, op, updated, events, err)
	if err != nil {
		return nil, err
	}

	s.metrics.DecisionsTotal.WithLabelValues("reviewer", outcomeLabel(approved)).Inc()
	s.logger.Info("reviewer decision recorded",
		zap.String("response_id", responseID),
		zap.String("reviewer_id", actorID),
		zap.Bool("approved", approved),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

// FinalApproval фиксирует вердикт финального утверждающего.
func (s *ResponseService) FinalApproval(ctx context.Context, responseID, actorID string, approved bool, comments string) (*domain.ResponseRecord, error) {
	op := s.begin(workflow.ActionFinalApproval, actorID)
	var updated *domain.ResponseRecord
	var events []workflow.Event

	err := s.withConflictRetry(ctx, func() error {
		rec, err := s.repo.GetResponse(ctx, responseID)
		if err != nil {
			return err
		}
		form, err := s.forms.GetForm(ctx, rec.FormID)
		if err != nil {
			return err
		}
		op.observe(rec)

		updated, events, err = s.engine.RecordFinalApproval(ctx, form, rec, actorID, approved, comments)
		if err != nil {
			return err
		}
		return s.repo.UpdateResponse(ctx, updated)
	})

	s.complete(ctx, op, updated, events, err)
	if err != nil {
		return nil, err
	}

	s.metrics.DecisionsTotal.WithLabelValues("final", outcomeLabel(approved)).Inc()
	s.logger.Info("final approval recorded",
		zap.String("response_id", responseID),
		zap.String("approver_id", actorID),
		zap.Bool("approved", approved),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

func (s *ResponseService) GetResponse(ctx context.Context, id string) (*domain.ResponseRecord, error) {
	return s.repo.GetResponse(ctx, id)
}

// ListResponses — очередь рецензирования для админки.
func (s *ResponseService) ListResponses(ctx context.Context, formID string, status domain.ResponseStatus) ([]*domain.ResponseRecord, error) {
	list, err := s.repo.ListResponses(ctx, formID, status)
	if err != nil {
		s.logger.Error("failed to list responses", zap.Error(err))
		return nil, err
	}
	return list, nil
}

// withConflictRetry повторяет применение операции при конфликте версий.
// Остальные ошибки (включая DuplicateDecision после успешного первого
// применения) отдаются вызывающему как есть.
func (s *ResponseService) withConflictRetry(ctx context.Context, apply func() error) error {
	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(s.conflictRetries),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			if errors.Is(err, domain.ErrVersionConflict) {
				s.metrics.VersionConflicts.Inc()
				return true
			}
			return false
		}),
	)
	return r.Do(apply)
}

// persist выбирает между INSERT (новая запись) и CAS UPDATE (существующая).
func (s *ResponseService) persist(ctx context.Context, before, after *domain.ResponseRecord) error {
	if before == nil {
		if after.ID == "" {
			after.ID = uuid.NewString()
		}
		return s.repo.InsertResponse(ctx, after)
	}
	return s.repo.UpdateResponse(ctx, after)
}

// operation — контекст одного применения для аудита и метрик.
type operation struct {
	action     string
	actorID    string
	startedAt  time.Time
	fromStatus domain.ResponseStatus
	responseID string
	formID     string
}

func (s *ResponseService) begin(action, actorID string) *operation {
	return &operation{
		action:    action,
		actorID:   actorID,
		startedAt: time.Now(),
	}
}

// observe запоминает состояние записи до применения (для from_status в аудите).
// При ретрае перезаписывается — в аудит попадает последняя попытка.
func (op *operation) observe(rec *domain.ResponseRecord) {
	if rec == nil {
		return
	}
	op.fromStatus = rec.Status
	op.responseID = rec.ID
	op.formID = rec.FormID
}

// complete закрывает операцию: аудит, метрики, уведомления.
func (s *ResponseService) complete(ctx context.Context, op *operation, updated *domain.ResponseRecord, events []workflow.Event, err error) {
	duration := time.Since(op.startedAt)

	result := "ok"
	toStatus := op.fromStatus
	responseID, formID := op.responseID, op.formID
	errText := ""

	if err != nil {
		result = errorType(err)
		errText = err.Error()
		s.metrics.ErrorTotal.WithLabelValues(result).Inc()
	} else if updated != nil {
		toStatus = updated.Status
		responseID, formID = updated.ID, updated.FormID
		if toStatus != op.fromStatus {
			s.metrics.TransitionsTotal.WithLabelValues(op.action, string(toStatus)).Inc()
		}
	}

	s.metrics.OperationDuration.WithLabelValues(op.action, result).Observe(duration.Seconds())

	// Черновики в аудит не пишем: workflow-состояние они не меняют
	if op.action != workflow.ActionSaveDraft {
		s.trail.Log(audit.TransitionEvent{
			ID:         uuid.NewString(),
			ResponseID: responseID,
			FormID:     formID,
			ActorID:    op.actorID,
			Action:     op.action,
			FromStatus: string(op.fromStatus),
			ToStatus:   string(toStatus),
			Error:      errText,
			DurationMs: duration.Milliseconds(),
			Timestamp:  op.startedAt,
		})
	}

	if err == nil && len(events) > 0 {
		s.notifier.Dispatch(ctx, events)
	}
}

func outcomeLabel(approved bool) string {
	if approved {
		return "approved"
	}
	return "denied"
}
