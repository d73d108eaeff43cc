package infra

import "fmt"

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "rpadmin"
)

// Ключи кэша (состояние)
const (
	// RedisKeyMemberRoles — префикс кэша ролей участника (см. MemberRolesKey)
	RedisKeyMemberRoles = RedisNamespace + ":roles:"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanFormEvents — широковещательный канал событий workflow.
	// Слушают бот-уведомлений и фронтенд (live-очередь рецензий).
	RedisChanFormEvents = RedisNamespace + ":forms:events"

	// RedisChanFormInvalidate — сигнал инвалидации кэша определений форм
	RedisChanFormInvalidate = RedisNamespace + ":forms:invalidate"
)

// MemberRolesKey — ключ кэша ролей конкретного участника.
func MemberRolesKey(userID string) string {
	return RedisKeyMemberRoles + userID
}

// SubmitterEventChan — персональный канал автора отклика: по нему фронтенд
// показывает «вашу заявку рассмотрели» без поллинга.
func SubmitterEventChan(userID string) string {
	return fmt.Sprintf("%s:forms:events:%s", RedisNamespace, userID)
}
