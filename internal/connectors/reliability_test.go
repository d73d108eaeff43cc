package connectors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyDirectory struct {
	failures int
	calls    int
	err      error
	roles    []string
}

func (d *flakyDirectory) MemberRoles(ctx context.Context, userID string) ([]string, error) {
	d.calls++
	if d.calls <= d.failures {
		return nil, d.err
	}
	return d.roles, nil
}

func TestReliableDirectoryRetriesTransientFailures(t *testing.T) {
	next := &flakyDirectory{
		failures: 2,
		err:      errors.New("connection reset"),
		roles:    []string{"role-hr"},
	}
	w := NewReliableDirectory(next)

	roles, err := w.MemberRoles(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"role-hr"}, roles)
	assert.Equal(t, 3, next.calls)
}

func TestReliableDirectoryHonorsThrottleDelay(t *testing.T) {
	next := &flakyDirectory{
		failures: 1,
		err:      &ThrottleError{RetryAfter: 30 * time.Millisecond, Cause: errors.New("429")},
		roles:    []string{},
	}
	w := NewReliableDirectory(next)

	start := time.Now()
	_, err := w.MemberRoles(context.Background(), "user-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond, "retry must wait out Retry-After")
	assert.Equal(t, 2, next.calls)
}

func TestReliableDirectoryGivesUpAfterAttempts(t *testing.T) {
	next := &flakyDirectory{
		failures: 10,
		err:      errors.New("permanent failure"),
	}
	w := NewReliableDirectory(next)

	_, err := w.MemberRoles(context.Background(), "user-1")
	require.Error(t, err)
	assert.Equal(t, 3, next.calls, "three attempts, then surface the error")
}
