package domain

import "time"

// Типы вопросов формы. Каждый тип диктует форму допустимого ответа.
type QuestionKind string

const (
	QuestionTrueFalse      QuestionKind = "true_false"
	QuestionMultipleChoice QuestionKind = "multiple_choice"
	QuestionShortAnswer    QuestionKind = "short_answer"
	QuestionLongAnswer     QuestionKind = "long_answer"
)

// Question — элемент схемы формы.
// Options заполняется только для multiple_choice.
type Question struct {
	ID       string       `json:"id"`
	Kind     QuestionKind `json:"kind"`
	Prompt   string       `json:"prompt"`
	Options  []string     `json:"options,omitempty"`
	Required bool         `json:"required"`
}

// FormDefinition — определение формы (заявки, рапорта, запроса на аппрув).
// Для движка согласования форма read-only: авторингом занимается отдельный контур.
type FormDefinition struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Сколько одобрений рецензентов нужно, чтобы пройти этап review.
	// Ноль — этап пропускается.
	RequiredReviewers     int  `json:"required_reviewers"`
	RequiresFinalApproval bool `json:"requires_final_approval"`

	// Наборы Discord-ролей. Используются только AccessControlEvaluator'ом,
	// движок на сырые ID ролей не смотрит.
	SubmitterRoleIDs     []string `json:"submitter_role_ids"`
	ReviewerRoleIDs      []string `json:"reviewer_role_ids"`
	FinalApproverRoleIDs []string `json:"final_approver_role_ids"`

	Questions []Question `json:"questions"`

	// Soft delete: форма скрывается из списков и не принимает новые отклики,
	// но существующие отклики продолжают ссылаться на нее.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Question ищет вопрос схемы по ID.
func (f *FormDefinition) Question(id string) (*Question, bool) {
	for i := range f.Questions {
		if f.Questions[i].ID == id {
			return &f.Questions[i], true
		}
	}
	return nil, false
}

func (f *FormDefinition) Deleted() bool {
	return f.DeletedAt != nil
}
