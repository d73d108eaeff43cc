package workflow

import (
	"time"

	"github.com/xela07ax/rp-community-console/internal/domain"
)

// Действия движка, попадающие в события и аудит.
const (
	ActionSaveDraft      = "save_draft"
	ActionSubmit         = "submit"
	ActionReviewDecision = "reviewer_decision"
	ActionFinalApproval  = "final_approval"
)

// Event — уведомление о смене статуса отклика.
// Движок только порождает события; доставкой (Redis Pub/Sub, Discord)
// занимается NotificationDispatcher на слое сервиса.
type Event struct {
	ResponseID  string                `json:"response_id"`
	FormID      string                `json:"form_id"`
	SubmitterID string                `json:"submitter_id"`
	ActorID     string                `json:"actor_id"`
	Action      string                `json:"action"`
	Status      domain.ResponseStatus `json:"status"`
	OccurredAt  time.Time             `json:"occurred_at"`
}
