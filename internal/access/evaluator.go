package access

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/rp-community-console/internal/domain"
	"github.com/xela07ax/rp-community-console/internal/infra"
	"go.uber.org/zap"
)

// RoleDirectory описывает требования к источнику ролей участника
// (Discord-гильдия). Реализация живет в internal/connectors.
type RoleDirectory interface {
	MemberRoles(ctx context.Context, userID string) ([]string, error)
}

// Evaluator отвечает на три вопроса движка: может ли актор подавать,
// рецензировать и финально утверждать конкретную форму. Решение — пересечение
// ролей участника с наборами ролей формы; сами ID ролей дальше этого пакета
// не уходят.
type Evaluator struct {
	dir    RoleDirectory
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewEvaluator создает оценщик доступа. rdb опционален: без Redis каждый
// запрос уходит напрямую в директорию ролей.
func NewEvaluator(dir RoleDirectory, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		dir:    dir,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.Named("access-evaluator"),
	}
}

// CanSubmit: пустой набор ролей подачи означает «открытая форма» —
// подавать может любой аутентифицированный участник.
func (e *Evaluator) CanSubmit(ctx context.Context, form *domain.FormDefinition, actorID string) (bool, error) {
	if len(form.SubmitterRoleIDs) == 0 {
		return true, nil
	}
	return e.hasAnyRole(ctx, actorID, form.SubmitterRoleIDs)
}

// CanReview: пустой набор ролей рецензентов — рецензентов нет, никто не может.
func (e *Evaluator) CanReview(ctx context.Context, form *domain.FormDefinition, actorID string) (bool, error) {
	if len(form.ReviewerRoleIDs) == 0 {
		return false, nil
	}
	return e.hasAnyRole(ctx, actorID, form.ReviewerRoleIDs)
}

func (e *Evaluator) CanFinalApprove(ctx context.Context, form *domain.FormDefinition, actorID string) (bool, error) {
	if len(form.FinalApproverRoleIDs) == 0 {
		return false, nil
	}
	return e.hasAnyRole(ctx, actorID, form.FinalApproverRoleIDs)
}

func (e *Evaluator) hasAnyRole(ctx context.Context, actorID string, wanted []string) (bool, error) {
	roles, err := e.memberRoles(ctx, actorID)
	if err != nil {
		// Fail-closed: не знаем роли — не даем доступ
		return false, err
	}
	for _, id := range wanted {
		if roles[id] {
			return true, nil
		}
	}
	return false, nil
}

// memberRoles достает роли участника: сперва из Redis-кэша, при промахе —
// из директории с записью обратно в кэш. Сбои Redis деградируют до прямого
// похода в директорию, а не до отказа.
func (e *Evaluator) memberRoles(ctx context.Context, userID string) (map[string]bool, error) {
	key := infra.MemberRolesKey(userID)

	if e.rdb != nil {
		cached, err := e.rdb.Get(ctx, key).Result()
		if err == nil {
			var ids []string
			if jsonErr := json.Unmarshal([]byte(cached), &ids); jsonErr == nil {
				return toSet(ids), nil
			}
			// Битый кэш перечитываем из директории
		} else if err != redis.Nil {
			e.logger.Warn("role cache read failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	ids, err := e.dir.MemberRoles(ctx, userID)
	if err != nil {
		return nil, err
	}

	if e.rdb != nil {
		payload, _ := json.Marshal(ids)
		if err := e.rdb.Set(ctx, key, payload, e.ttl).Err(); err != nil {
			e.logger.Warn("role cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return toSet(ids), nil
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
