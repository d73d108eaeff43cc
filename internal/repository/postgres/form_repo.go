package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/xela07ax/rp-community-console/internal/domain"
)

const formColumns = `id, title, required_reviewers, requires_final_approval,
	submitter_role_ids, reviewer_role_ids, final_approver_role_ids, questions,
	deleted_at, created_at, updated_at`

// GetForm загружает определение формы. Мягко удаленные формы тоже резолвятся:
// существующие отклики продолжают на них ссылаться, решение «принимать ли
// новые подачи» принимает движок по DeletedAt.
func (r *Repo) GetForm(ctx context.Context, id string) (*domain.FormDefinition, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE id = $1`

	form, err := scanForm(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("form %s: %w", id, domain.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("postgres: failed to get form: %w", err)
	}
	return form, nil
}

// ListForms возвращает активные формы (без мягко удаленных).
func (r *Repo) ListForms(ctx context.Context) ([]*domain.FormDefinition, error) {
	query := `SELECT ` + formColumns + ` FROM forms WHERE deleted_at IS NULL ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query forms: %w", err)
	}
	defer rows.Close()

	results := make([]*domain.FormDefinition, 0)
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan form: %w", err)
		}
		results = append(results, form)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows iteration error: %w", err)
	}
	return results, nil
}

// SoftDeleteForm помечает форму удаленной. Существующие отклики не трогаем:
// удаление формы не каскадируется на историю согласований.
func (r *Repo) SoftDeleteForm(ctx context.Context, id string) error {
	query := `UPDATE forms SET deleted_at = NOW(), updated_at = NOW()
	          WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to soft delete form: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("form %s: %w", id, domain.ErrRecordNotFound)
	}
	return nil
}

func scanForm(row pgx.Row) (*domain.FormDefinition, error) {
	var form domain.FormDefinition
	var submitterRoles, reviewerRoles, approverRoles, questions []byte
	var deletedAt sql.NullTime

	err := row.Scan(
		&form.ID,
		&form.Title,
		&form.RequiredReviewers,
		&form.RequiresFinalApproval,
		&submitterRoles,
		&reviewerRoles,
		&approverRoles,
		&questions,
		&deletedAt,
		&form.CreatedAt,
		&form.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(submitterRoles, &form.SubmitterRoleIDs); err != nil {
		return nil, fmt.Errorf("unmarshal submitter roles: %w", err)
	}
	if err := json.Unmarshal(reviewerRoles, &form.ReviewerRoleIDs); err != nil {
		return nil, fmt.Errorf("unmarshal reviewer roles: %w", err)
	}
	if err := json.Unmarshal(approverRoles, &form.FinalApproverRoleIDs); err != nil {
		return nil, fmt.Errorf("unmarshal approver roles: %w", err)
	}
	if err := json.Unmarshal(questions, &form.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	if deletedAt.Valid {
		ts := deletedAt.Time
		form.DeletedAt = &ts
	}
	return &form, nil
}
