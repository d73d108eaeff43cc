package workflow

import (
	"fmt"

	"github.com/xela07ax/rp-community-console/internal/domain"
)

// Ledger — append-only представление журнала решений рецензентов.
// Это view над ResponseRecord.ReviewerDecisions, а не отдельное хранилище:
// единственный разрешенный способ мутации — Append, который следит за
// инвариантом «одно решение на рецензента».
type Ledger struct {
	decisions []domain.Decision
}

// NewLedger оборачивает существующий журнал записи.
func NewLedger(decisions []domain.Decision) *Ledger {
	return &Ledger{decisions: decisions}
}

// HasDecided проверяет, голосовал ли уже рецензент.
func (l *Ledger) HasDecided(reviewerID string) bool {
	for _, d := range l.decisions {
		if d.ReviewerID == reviewerID {
			return true
		}
	}
	return false
}

// Append добавляет решение в журнал.
// Повторный голос того же рецензента — ErrDuplicateDecision, журнал не меняется.
func (l *Ledger) Append(d domain.Decision) error {
	if l.HasDecided(d.ReviewerID) {
		return fmt.Errorf("reviewer %s: %w", d.ReviewerID, domain.ErrDuplicateDecision)
	}
	l.decisions = append(l.decisions, d)
	return nil
}

// Counts пересчитывает агрегаты по журналу.
// Всегда полный проход по слайсу: кэшируемый счетчик рядом с журналом
// рано или поздно разъедется с ним, пересчет — нет.
func (l *Ledger) Counts() (approved, denied int) {
	for _, d := range l.decisions {
		if d.Approved {
			approved++
		} else {
			denied++
		}
	}
	return approved, denied
}

// Decisions отдает журнал для записи обратно в ResponseRecord.
func (l *Ledger) Decisions() []domain.Decision {
	return l.decisions
}
