package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/rp-community-console/internal/audit"
	"github.com/xela07ax/rp-community-console/internal/domain"
	"github.com/xela07ax/rp-community-console/internal/workflow"
	"go.uber.org/zap"
)

// --- Фейки зависимостей сервиса ---

type openAccess struct{}

func (openAccess) CanSubmit(ctx context.Context, form *domain.FormDefinition, actorID string) (bool, error) {
	return true, nil
}

func (openAccess) CanReview(ctx context.Context, form *domain.FormDefinition, actorID string) (bool, error) {
	return true, nil
}

func (openAccess) CanFinalApprove(ctx context.Context, form *domain.FormDefinition, actorID string) (bool, error) {
	return true, nil
}

type fakeFormProvider struct{ form *domain.FormDefinition }

func (p *fakeFormProvider) GetForm(ctx context.Context, id string) (*domain.FormDefinition, error) {
	return p.form, nil
}

type fakeDispatcher struct{ events []workflow.Event }

func (d *fakeDispatcher) Dispatch(ctx context.Context, events []workflow.Event) {
	d.events = append(d.events, events...)
}

type fakeTrail struct{ entries []audit.TransitionEvent }

func (t *fakeTrail) Log(e audit.TransitionEvent) { t.entries = append(t.entries, e) }

// fakeResponseRepo имитирует хранилище с оптимистичной блокировкой.
// conflicts задает, сколько первых UpdateResponse завершатся ErrVersionConflict;
// onConflict дает «победившей» конкурентной записи изменить хранимое состояние
// между попытками — так сервис при повторе перечитывает уже другую версию.
type fakeResponseRepo struct {
	stored *domain.ResponseRecord

	conflicts  int
	onConflict func(rec *domain.ResponseRecord)

	getCalls    int
	updateCalls int
	inserted    *domain.ResponseRecord
}

func (r *fakeResponseRepo) GetResponse(ctx context.Context, id string) (*domain.ResponseRecord, error) {
	r.getCalls++
	if r.stored == nil || r.stored.ID != id {
		return nil, fmt.Errorf("response %s: %w", id, domain.ErrRecordNotFound)
	}
	return r.stored.Clone(), nil
}

func (r *fakeResponseRepo) FindDraft(ctx context.Context, formID, submitterID string) (*domain.ResponseRecord, error) {
	if r.stored != nil && r.stored.Status == domain.StatusDraft &&
		r.stored.FormID == formID && r.stored.SubmitterID == submitterID {
		return r.stored.Clone(), nil
	}
	return nil, nil
}

func (r *fakeResponseRepo) InsertResponse(ctx context.Context, rec *domain.ResponseRecord) error {
	rec.Version = 1
	r.inserted = rec.Clone()
	r.stored = rec.Clone()
	return nil
}

func (r *fakeResponseRepo) UpdateResponse(ctx context.Context, rec *domain.ResponseRecord) error {
	r.updateCalls++
	if r.conflicts > 0 {
		r.conflicts--
		if r.onConflict != nil {
			r.onConflict(r.stored)
		}
		return fmt.Errorf("response %s at version %d: %w", rec.ID, rec.Version, domain.ErrVersionConflict)
	}
	rec.Version++
	r.stored = rec.Clone()
	return nil
}

func (r *fakeResponseRepo) ListResponses(ctx context.Context, formID string, status domain.ResponseStatus) ([]*domain.ResponseRecord, error) {
	return []*domain.ResponseRecord{}, nil
}

func newTestService(repo *fakeResponseRepo, form *domain.FormDefinition) (*ResponseService, *fakeDispatcher, *Metrics) {
	engine := workflow.NewEngine(openAccess{})
	disp := &fakeDispatcher{}
	m := NewMetrics(nil)
	svc := NewResponseService(repo, &fakeFormProvider{form: form}, engine, disp, &fakeTrail{}, m, zap.NewNop(), 3)
	return svc, disp, m
}

func reviewForm() *domain.FormDefinition {
	return &domain.FormDefinition{
		ID:                "form-1",
		Title:             "Patrol Division Application",
		RequiredReviewers: 2,
		ReviewerRoleIDs:   []string{"role-hr"},
	}
}

func pendingRecord() *domain.ResponseRecord {
	submitted := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.ResponseRecord{
		ID:          "resp-1",
		FormID:      "form-1",
		SubmitterID: "citizen-7",
		Status:      domain.StatusPendingReview,
		SubmittedAt: &submitted,
		UpdatedAt:   submitted,
		Version:     3,
	}
}

// Два рецензента пишут решение одновременно: проигравший CAS перечитывает
// запись (уже с чужим голосом) и применяет свой переход заново.
func TestReviewerDecisionRetriesAfterConflict(t *testing.T) {
	repo := &fakeResponseRepo{stored: pendingRecord(), conflicts: 1}
	repo.onConflict = func(rec *domain.ResponseRecord) {
		rec.ReviewerDecisions = append(rec.ReviewerDecisions, domain.Decision{
			ReviewerID: "rev-a",
			Approved:   true,
			DecidedAt:  time.Now(),
		})
		rec.Version++
	}
	svc, disp, _ := newTestService(repo, reviewForm())

	updated, err := svc.ReviewerDecision(context.Background(), "resp-1", "rev-b", true, "solid record")
	require.NoError(t, err)

	assert.Equal(t, 2, repo.updateCalls, "losing writer must retry the CAS update")
	assert.Equal(t, 2, repo.getCalls, "retry starts from a fresh read")
	require.Len(t, updated.ReviewerDecisions, 2, "both votes must survive the race")
	assert.Equal(t, domain.StatusApproved, updated.Status, "quorum of 2 reached, no final approval step")
	assert.NotEmpty(t, disp.events, "status change must be dispatched")
}

// Тот же рецензент «выиграл» конкурентной записью (двойной клик, два инстанса):
// повторное применение корректно всплывает как DuplicateDecision, а не как
// второй голос.
func TestConflictRetrySurfacesDuplicateDecision(t *testing.T) {
	repo := &fakeResponseRepo{stored: pendingRecord(), conflicts: 1}
	repo.onConflict = func(rec *domain.ResponseRecord) {
		rec.ReviewerDecisions = append(rec.ReviewerDecisions, domain.Decision{
			ReviewerID: "rev-b",
			Approved:   true,
			DecidedAt:  time.Now(),
		})
		rec.Version++
	}
	svc, disp, _ := newTestService(repo, reviewForm())

	_, err := svc.ReviewerDecision(context.Background(), "resp-1", "rev-b", true, "")
	require.ErrorIs(t, err, domain.ErrDuplicateDecision)

	assert.Equal(t, 1, repo.updateCalls, "duplicate is not retryable")
	assert.Len(t, repo.stored.ReviewerDecisions, 1, "ledger keeps exactly one vote per reviewer")
	assert.Empty(t, disp.events, "failed application must not notify")
}

// Бесконечный конфликт: сервис сдается после conflictRetries попыток
// и отдает ErrVersionConflict наружу (клиент получит retryable 409).
func TestConflictRetryIsBounded(t *testing.T) {
	repo := &fakeResponseRepo{stored: pendingRecord(), conflicts: 100}
	svc, _, m := newTestService(repo, reviewForm())

	_, err := svc.ReviewerDecision(context.Background(), "resp-1", "rev-b", true, "")
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	assert.Equal(t, 3, repo.updateCalls, "exactly conflictRetries attempts")
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.VersionConflicts), float64(2))
}

// Отклик с терминальным исходом не блокирует новую подачу: FindDraft видит
// только черновики, поэтому после отказа подается свежая запись.
func TestResubmitAfterDenial(t *testing.T) {
	denied := pendingRecord()
	denied.Status = domain.StatusDeniedByReview
	repo := &fakeResponseRepo{stored: denied}
	svc, disp, _ := newTestService(repo, reviewForm())

	updated, err := svc.Submit(context.Background(), "form-1", "citizen-7", nil)
	require.NoError(t, err)

	require.NotNil(t, repo.inserted, "fresh submission must be an INSERT, not an update of the denied record")
	assert.NotEqual(t, denied.ID, updated.ID)
	assert.Equal(t, domain.StatusPendingReview, updated.Status)
	assert.Equal(t, int64(1), updated.Version)
	assert.NotEmpty(t, disp.events)
}
