package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/xela07ax/rp-community-console/internal/audit"
)

// WriteBatch пакетно вставляет события аудита переходов.
// Вызывается воркером audit.Trail, не горячим путем API.
func (r *Repo) WriteBatch(ctx context.Context, events []audit.TransitionEvent) error {
	if len(events) == 0 {
		return nil
	}

	// Количество колонок в таблице workflow_audit
	numFields := 10
	placeholderStr := ""
	vals := make([]interface{}, 0, len(events)*numFields)

	// Динамически строим запрос для пакетной вставки
	for i, e := range events {
		p := i * numFields
		placeholderStr += fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d),",
			p+1, p+2, p+3, p+4, p+5, p+6, p+7, p+8, p+9, p+10)

		vals = append(vals,
			e.ID, e.ResponseID, e.FormID, e.ActorID, e.Action,
			e.FromStatus, e.ToStatus, e.Error, e.DurationMs, e.Timestamp,
		)
	}

	query := fmt.Sprintf(
		"INSERT INTO workflow_audit (id, response_id, form_id, actor_id, action, from_status, to_status, error, duration_ms, timestamp) VALUES %s",
		strings.TrimSuffix(placeholderStr, ","),
	)

	if _, err := r.pool.Exec(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: failed to write audit batch: %w", err)
	}
	return nil
}
