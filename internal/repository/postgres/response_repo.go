package postgres

/*
Файл response_repo.go — хранилище откликов на формы.

Конкурентный доступ решается оптимистичной блокировкой: у строки есть колонка
version, и UpdateResponse выполняет CAS (WHERE id = ... AND version = ...).
Ноль затронутых строк означает, что кто-то успел записать решение раньше —
сервис перечитывает запись и применяет переход заново.
*/

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/rp-community-console/internal/domain"
)

const responseColumns = `id, form_id, submitter_id, answers, status, reviewer_decisions, final_approval, submitted_at, updated_at, version`

// GetResponse загружает отклик по ID.
func (r *Repo) GetResponse(ctx context.Context, id string) (*domain.ResponseRecord, error) {
	query := `SELECT ` + responseColumns + ` FROM form_responses WHERE id = $1`

	rec, err := scanResponse(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("response %s: %w", id, domain.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("postgres: failed to get response: %w", err)
	}
	return rec, nil
}

// FindDraft ищет черновик пары (форма, автор). Отсутствие — не ошибка: (nil, nil).
func (r *Repo) FindDraft(ctx context.Context, formID, submitterID string) (*domain.ResponseRecord, error) {
	query := `SELECT ` + responseColumns + ` FROM form_responses
	          WHERE form_id = $1 AND submitter_id = $2 AND status = 'draft'`

	rec, err := scanResponse(r.pool.QueryRow(ctx, query, formID, submitterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to find draft: %w", err)
	}
	return rec, nil
}

// InsertResponse создает строку отклика. Версия всегда стартует с 1.
func (r *Repo) InsertResponse(ctx context.Context, rec *domain.ResponseRecord) error {
	answers, decisions, final, err := marshalResponseBlobs(rec)
	if err != nil {
		return err
	}

	query := `INSERT INTO form_responses
	          (id, form_id, submitter_id, answers, status, reviewer_decisions, final_approval, submitted_at, updated_at, version)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), 1)`

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.FormID, rec.SubmitterID, answers, rec.Status, decisions, final, rec.SubmittedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to insert response: %w", err)
	}
	rec.Version = 1
	return nil
}

// UpdateResponse атомарно перезаписывает состояние отклика (CAS по version).
// Ноль затронутых строк — конкурентное обновление: ErrVersionConflict,
// вызывающий слой перечитывает и повторяет.
func (r *Repo) UpdateResponse(ctx context.Context, rec *domain.ResponseRecord) error {
	answers, decisions, final, err := marshalResponseBlobs(rec)
	if err != nil {
		return err
	}

	query := `UPDATE form_responses
	          SET answers = $1,
	              status = $2,
	              reviewer_decisions = $3,
	              final_approval = $4,
	              submitted_at = $5,
	              updated_at = NOW(),
	              version = version + 1
	          WHERE id = $6 AND version = $7`

	tag, err := r.pool.Exec(ctx, query,
		answers, rec.Status, decisions, final, rec.SubmittedAt, rec.ID, rec.Version)
	if err != nil {
		return fmt.Errorf("postgres: failed to update response: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("response %s at version %d: %w", rec.ID, rec.Version, domain.ErrVersionConflict)
	}
	rec.Version++
	return nil
}

// ListResponses — очередь рецензирования с фильтрами по форме и статусу.
func (r *Repo) ListResponses(ctx context.Context, formID string, status domain.ResponseStatus) ([]*domain.ResponseRecord, error) {
	query := `SELECT ` + responseColumns + ` FROM form_responses`

	var args []interface{}
	var where []string
	if formID != "" {
		args = append(args, formID)
		where = append(where, fmt.Sprintf("form_id = $%d", len(args)))
	}
	if status != "" {
		args = append(args, status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY updated_at DESC LIMIT 100"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query responses: %w", err)
	}
	defer rows.Close()

	// Инициализируем пустой слайс, чтобы в JSON был [] вместо null
	results := make([]*domain.ResponseRecord, 0)
	for rows.Next() {
		rec, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan response: %w", err)
		}
		results = append(results, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

func marshalResponseBlobs(rec *domain.ResponseRecord) (answers, decisions, final []byte, err error) {
	answers, err = json.Marshal(rec.Answers)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("postgres: marshal answers: %w", err)
	}
	decisions, err = json.Marshal(rec.ReviewerDecisions)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("postgres: marshal decisions: %w", err)
	}
	if rec.FinalApproval != nil {
		final, err = json.Marshal(rec.FinalApproval)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("postgres: marshal final approval: %w", err)
		}
	}
	return answers, decisions, final, nil
}

func scanResponse(row pgx.Row) (*domain.ResponseRecord, error) {
	var rec domain.ResponseRecord
	var answers, decisions, final []byte
	var submittedAt sql.NullTime // Обработка NULL из БД

	err := row.Scan(
		&rec.ID,
		&rec.FormID,
		&rec.SubmitterID,
		&answers,
		&rec.Status,
		&decisions,
		&final,
		&submittedAt,
		&rec.UpdatedAt,
		&rec.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(answers, &rec.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if err := json.Unmarshal(decisions, &rec.ReviewerDecisions); err != nil {
		return nil, fmt.Errorf("unmarshal decisions: %w", err)
	}
	if len(final) > 0 {
		var fa domain.FinalApproval
		if err := json.Unmarshal(final, &fa); err != nil {
			return nil, fmt.Errorf("unmarshal final approval: %w", err)
		}
		rec.FinalApproval = &fa
	}
	if submittedAt.Valid {
		ts := submittedAt.Time
		rec.SubmittedAt = &ts
	}
	return &rec, nil
}
