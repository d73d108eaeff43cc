package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/rp-community-console/internal/infra"
	"github.com/xela07ax/rp-community-console/internal/workflow"
	"go.uber.org/zap"
)

// Dispatcher транслирует события workflow в Redis Pub/Sub.
// Доставкой дальше (Discord-бот, live-очередь на фронте) занимаются подписчики.
// Сбой публикации не валит переход: решение уже зафиксировано в БД,
// потеря уведомления — деградация, а не ошибка операции.
type Dispatcher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewDispatcher(rdb *redis.Client, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		rdb:    rdb,
		logger: logger.Named("notify-dispatcher"),
	}
}

// Dispatch публикует каждое событие в широковещательный канал и в персональный
// канал автора отклика.
func (d *Dispatcher) Dispatch(ctx context.Context, events []workflow.Event) {
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			d.logger.Error("event marshal failed", zap.String("response_id", ev.ResponseID), zap.Error(err))
			continue
		}

		if err := d.rdb.Publish(ctx, infra.RedisChanFormEvents, payload).Err(); err != nil {
			d.logger.Warn("broadcast delivery failed",
				zap.String("response_id", ev.ResponseID),
				zap.String("status", string(ev.Status)),
				zap.Error(err))
		}

		submitterChan := infra.SubmitterEventChan(ev.SubmitterID)
		if err := d.rdb.Publish(ctx, submitterChan, payload).Err(); err != nil {
			d.logger.Warn("submitter signal failed",
				zap.String("channel", submitterChan),
				zap.Error(err))
		}
	}
}
