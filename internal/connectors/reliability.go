package connectors

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// DirectoryProvider — то, что оборачивает ReliableDirectory.
type DirectoryProvider interface {
	MemberRoles(ctx context.Context, userID string) ([]string, error)
}

// ReliableDirectory закрывает директорию ролей тремя слоями защиты:
// rate limiter (не выжигаем лимиты Discord), circuit breaker (не долбим
// лежащий API) и ретраи с учетом Retry-After.
type ReliableDirectory struct {
	next    DirectoryProvider
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

func NewReliableDirectory(next DirectoryProvider) *ReliableDirectory {
	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "discord-directory",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second, // Время, через которое CB попробует «закрыться»
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Более 5 ошибок подряд — открываемся (блокируем трафик)
			return counts.ConsecutiveFailures > 5
		},
	})

	// Лимит Discord на бот-запросы — 50 rps, держимся сильно ниже
	limiter := rate.NewLimiter(rate.Limit(20), 10)

	return &ReliableDirectory{
		next:    next,
		cb:      cb,
		limiter: limiter,
	}
}

func (w *ReliableDirectory) MemberRoles(ctx context.Context, userID string) (res []string, err error) {
	// 1. Rate Limiter
	if err := w.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	var roles []string

	// 2. Circuit Breaker
	_, err = w.cb.Execute(func() (interface{}, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(3),
			retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
				// Если API вернул 429 — ждем ровно столько, сколько просят
				var tErr *ThrottleError
				if errors.As(err, &tErr) {
					return tErr.RetryAfter
				}
				// В остальных случаях — стандартный экспоненциальный бэкофф
				return retry.BackOffDelay(n, err, config)
			}),
		)

		retryErr := r.Do(func() error {
			tCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			var callErr error
			roles, callErr = w.next.MemberRoles(tCtx, userID)
			return callErr
		})
		return nil, retryErr
	})

	if err != nil {
		return nil, fmt.Errorf("directory call failed: %w", err)
	}
	return roles, nil
}
