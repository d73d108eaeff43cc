package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/rp-community-console/internal/domain"
	"go.uber.org/zap"
)

type fakeDirectory struct {
	roles map[string][]string
	err   error
	calls int
}

func (d *fakeDirectory) MemberRoles(ctx context.Context, userID string) ([]string, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.roles[userID], nil
}

func newTestEvaluator(dir *fakeDirectory) *Evaluator {
	// Без Redis: каждый вызов идет напрямую в директорию
	return NewEvaluator(dir, nil, time.Minute, zap.NewNop())
}

func gatedForm() *domain.FormDefinition {
	return &domain.FormDefinition{
		ID:                   "form-1",
		SubmitterRoleIDs:     []string{"role-citizen"},
		ReviewerRoleIDs:      []string{"role-hr", "role-command"},
		FinalApproverRoleIDs: []string{"role-chief"},
	}
}

func TestCanSubmitOpenForm(t *testing.T) {
	dir := &fakeDirectory{}
	e := newTestEvaluator(dir)

	form := gatedForm()
	form.SubmitterRoleIDs = nil // открытая форма

	ok, err := e.CanSubmit(context.Background(), form, "anyone")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, dir.calls, "open form must not hit the directory")
}

func TestRoleIntersection(t *testing.T) {
	dir := &fakeDirectory{roles: map[string][]string{
		"citizen": {"role-citizen"},
		"officer": {"role-citizen", "role-hr"},
		"chief":   {"role-chief"},
		"nobody":  {},
	}}
	e := newTestEvaluator(dir)
	form := gatedForm()
	ctx := context.Background()

	tests := []struct {
		name  string
		check func(context.Context, *domain.FormDefinition, string) (bool, error)
		actor string
		want  bool
	}{
		{"citizen can submit", e.CanSubmit, "citizen", true},
		{"citizen cannot review", e.CanReview, "citizen", false},
		{"officer reviews via role-hr", e.CanReview, "officer", true},
		{"chief approves", e.CanFinalApprove, "chief", true},
		{"officer cannot final approve", e.CanFinalApprove, "officer", false},
		{"member without roles", e.CanSubmit, "nobody", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.check(ctx, form, tt.actor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestEmptyRoleSetMeansNoOne(t *testing.T) {
	dir := &fakeDirectory{roles: map[string][]string{"chief": {"role-chief"}}}
	e := newTestEvaluator(dir)

	form := gatedForm()
	form.ReviewerRoleIDs = nil
	form.FinalApproverRoleIDs = nil

	ok, err := e.CanReview(context.Background(), form, "chief")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = e.CanFinalApprove(context.Background(), form, "chief")
	require.NoError(t, err)
	assert.False(t, ok)
}

// Fail-closed: недоступная директория ролей — отказ, а не пропуск.
func TestDirectoryFailureDeniesAccess(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("discord is down")}
	e := newTestEvaluator(dir)

	ok, err := e.CanReview(context.Background(), gatedForm(), "officer")
	require.Error(t, err)
	assert.False(t, ok)
}
