package audit

import "time"

// TransitionEvent — запись аудита одного применения перехода workflow.
// Хранится ровно столько, сколько нужно для восстановления истории состояния:
// кто, над каким откликом, какой переход, чем закончилось.
type TransitionEvent struct {
	ID         string    `json:"id"`          // UUID события
	ResponseID string    `json:"response_id"` // Над чем
	FormID     string    `json:"form_id"`
	ActorID    string    `json:"actor_id"` // Кто
	Action     string    `json:"action"`   // submit / save_draft / reviewer_decision / final_approval
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Error      string    `json:"error,omitempty"` // Пусто при успехе
	DurationMs int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
