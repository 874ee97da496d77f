package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/push"
	rep "todoTracker/internal/repository"

	"github.com/google/uuid"
)

type SubscribeInput struct {
	Endpoint  string
	P256dh    string
	Auth      string
	UserAgent string
}

type PushSubscriptionService struct {
	repo      SubscriptionRepository
	publicKey string
}

func NewPushSubscriptionService(repo SubscriptionRepository, vapidPublicKey string) *PushSubscriptionService {
	return &PushSubscriptionService{repo: repo, publicKey: vapidPublicKey}
}

// PublicKey - VAPID ключ для PushManager.subscribe в браузере; пустая строка, если push отключён
func (s *PushSubscriptionService) PublicKey() string {
	return s.publicKey
}

// Subscribe сохраняет подписку; повторная подписка того же endpoint обновляет ключи
func (s *PushSubscriptionService) Subscribe(ctx context.Context, ownerID uuid.UUID, in SubscribeInput) (*push.Subscription, error) {
	u, err := url.Parse(in.Endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return nil, NewValidationError("endpoint", "ожидается https URL push-сервиса")
	}

	sub := &push.Subscription{
		OwnerID:   ownerID,
		Endpoint:  in.Endpoint,
		P256dh:    in.P256dh,
		Auth:      in.Auth,
		UserAgent: in.UserAgent,
	}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("сохранение подписки: %w", err)
	}

	logger.Info("Service: Подписка сохранена",
		logger.SubscriptionID(sub.UUID),
		logger.OwnerID(ownerID),
		logger.PushHost(sub.Endpoint))
	return sub, nil
}

func (s *PushSubscriptionService) Unsubscribe(ctx context.Context, ownerID uuid.UUID, endpoint string) error {
	if endpoint == "" {
		return NewValidationError("endpoint", "обязателен")
	}
	if err := s.repo.DeleteByOwnerAndEndpoint(ctx, ownerID, endpoint); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound(ResourceSubscription, endpoint)
		}
		return fmt.Errorf("удаление подписки: %w", err)
	}
	logger.Info("Service: Подписка удалена", logger.OwnerID(ownerID))
	return nil
}

func (s *PushSubscriptionService) List(ctx context.Context, ownerID uuid.UUID) ([]*push.Subscription, error) {
	subs, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("получение подписок: %w", err)
	}
	return subs, nil
}
