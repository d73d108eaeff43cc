package workflow

import (
	"context"

	"github.com/xela07ax/rp-community-console/internal/domain"
)

// AccessEvaluator — контракт контроля доступа, который потребляет движок.
// Движок никогда не смотрит на сырые ID ролей: он ветвится только на этих
// булевых ответах. Реализация (поиск ролей в Discord, кэширование) живет
// в internal/access.
type AccessEvaluator interface {
	CanSubmit(ctx context.Context, form *domain.FormDefinition, actorID string) (bool, error)
	CanReview(ctx context.Context, form *domain.FormDefinition, actorID string) (bool, error)
	CanFinalApprove(ctx context.Context, form *domain.FormDefinition, actorID string) (bool, error)
}
