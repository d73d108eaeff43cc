package connectors

import (
	"context"
	"fmt"
	"math/rand/v2" // Используем v2 для Go 1.25
	"time"
)

// MockDirectory — заглушка директории ролей для локального запуска без Discord.
type MockDirectory struct {
	// user_id -> роли. Пустая мапа означает «никто никого не знает».
	Members map[string][]string
}

func (m *MockDirectory) MemberRoles(ctx context.Context, userID string) ([]string, error) {
	// Имитируем сетевую задержку 20-120мс
	latency := time.Duration(20+rand.IntN(100)) * time.Millisecond

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if userID == "unstable.member" {
		return nil, fmt.Errorf("directory internal error")
	}

	roles, ok := m.Members[userID]
	if !ok {
		return []string{}, nil
	}
	return roles, nil
}
