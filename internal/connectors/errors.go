package connectors

import (
	"fmt"
	"time"
)

// ThrottleError возвращается, когда Discord отвечает 429.
// RetryAfter берется из заголовка Retry-After, чтобы ретраи ждали ровно столько,
// сколько просит API, а не экспоненциальный бэкофф вслепую.
type ThrottleError struct {
	RetryAfter time.Duration
	Cause      error
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("throttled: retry after %v (cause: %v)", e.RetryAfter, e.Cause)
}
