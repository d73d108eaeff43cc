package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// DiscordConnector ходит в REST API Discord за ролями участников гильдии.
// Это единственная внешняя интеграция сервиса: членство в ролях — источник
// правды для контроля доступа к формам.
type DiscordConnector struct {
	baseURL string
	guildID string
	token   string
	client  *http.Client
}

func NewDiscordConnector(baseURL, guildID, token string) *DiscordConnector {
	return &DiscordConnector{
		baseURL: baseURL,
		guildID: guildID,
		token:   token,
		// Защитный таймаут на уровне клиента: даже если обертка надежности
		// имеет свой, коннектор должен иметь собственный предел
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type guildMember struct {
	Roles []string `json:"roles"`
}

// MemberRoles возвращает ID ролей участника гильдии.
// 404 трактуем как «участник без ролей», 429 — как ThrottleError с Retry-After.
func (c *DiscordConnector) MemberRoles(ctx context.Context, userID string) ([]string, error) {
	url := fmt.Sprintf("%s/guilds/%s/members/%s", c.baseURL, c.guildID, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bot "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord: member lookup failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// ниже
	case http.StatusNotFound:
		return []string{}, nil
	case http.StatusTooManyRequests:
		return nil, &ThrottleError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Cause:      fmt.Errorf("discord rate limit for user %s", userID),
		}
	default:
		return nil, fmt.Errorf("discord: unexpected status %d for member %s", resp.StatusCode, userID)
	}

	var m guildMember
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("discord: decode member: %w", err)
	}
	if m.Roles == nil {
		return []string{}, nil
	}
	return m.Roles, nil
}

func parseRetryAfter(h string) time.Duration {
	// Discord шлет секунды, иногда дробные
	if sec, err := strconv.ParseFloat(h, 64); err == nil && sec > 0 {
		return time.Duration(sec * float64(time.Second))
	}
	return time.Second
}
