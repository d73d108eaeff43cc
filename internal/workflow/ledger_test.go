package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/rp-community-console/internal/domain"
)

func decision(reviewerID string, approved bool) domain.Decision {
	return domain.Decision{
		ReviewerID: reviewerID,
		Approved:   approved,
		DecidedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLedgerAppend(t *testing.T) {
	l := NewLedger(nil)

	require.NoError(t, l.Append(decision("rev-a", true)))
	require.NoError(t, l.Append(decision("rev-b", false)))
	assert.Len(t, l.Decisions(), 2)
}

func TestLedgerRejectsDuplicateReviewer(t *testing.T) {
	l := NewLedger(nil)
	require.NoError(t, l.Append(decision("rev-a", true)))

	err := l.Append(decision("rev-a", false))
	require.ErrorIs(t, err, domain.ErrDuplicateDecision)
	assert.Len(t, l.Decisions(), 1, "failed append must not grow the ledger")
}

func TestLedgerCounts(t *testing.T) {
	tests := []struct {
		name         string
		decisions    []domain.Decision
		wantApproved int
		wantDenied   int
	}{
		{"empty", nil, 0, 0},
		{"only approvals", []domain.Decision{decision("a", true), decision("b", true)}, 2, 0},
		{"mixed", []domain.Decision{decision("a", true), decision("b", false), decision("c", true)}, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			approved, denied := NewLedger(tt.decisions).Counts()
			assert.Equal(t, tt.wantApproved, approved)
			assert.Equal(t, tt.wantDenied, denied)
		})
	}
}

func TestLedgerHasDecided(t *testing.T) {
	l := NewLedger([]domain.Decision{decision("rev-a", true)})

	assert.True(t, l.HasDecided("rev-a"))
	assert.False(t, l.HasDecided("rev-b"))
}
