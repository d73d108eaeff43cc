package service

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/rp-community-console/internal/domain"
	"github.com/xela07ax/rp-community-console/internal/infra"
	"go.uber.org/zap"
)

// FormRepository описывает требования сервиса к хранилищу форм
type FormRepository interface {
	GetForm(ctx context.Context, id string) (*domain.FormDefinition, error)
	ListForms(ctx context.Context) ([]*domain.FormDefinition, error)
	SoftDeleteForm(ctx context.Context, id string) error
}

type FormService struct {
	repo   FormRepository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewFormService(repo FormRepository, rdb *redis.Client, logger *zap.Logger) *FormService {
	return &FormService{
		repo:   repo,
		rdb:    rdb,
		logger: logger.Named("form-service"),
	}
}

func (s *FormService) GetForm(ctx context.Context, id string) (*domain.FormDefinition, error) {
	return s.repo.GetForm(ctx, id)
}

func (s *FormService) ListForms(ctx context.Context) ([]*domain.FormDefinition, error) {
	forms, err := s.repo.ListForms(ctx)
	if err != nil {
		s.logger.Error("failed to list forms", zap.Error(err))
		return nil, err
	}
	// Гарантируем фронтенду пустой массив [] вместо null
	if forms == nil {
		return []*domain.FormDefinition{}, nil
	}
	return forms, nil
}

// DeleteForm мягко удаляет форму. Существующие отклики не трогаются —
// их история согласований должна оставаться читаемой.
func (s *FormService) DeleteForm(ctx context.Context, id string) error {
	if err := s.repo.SoftDeleteForm(ctx, id); err != nil {
		return err
	}
	return s.notifyInvalidate(ctx)
}

// notifyInvalidate отправляет широковещательный сигнал в Redis.
// Инстансы с кэшем определений форм перечитают их из БД.
func (s *FormService) notifyInvalidate(ctx context.Context) error {
	return s.rdb.Publish(ctx, infra.RedisChanFormInvalidate, "refresh").Err()
}
