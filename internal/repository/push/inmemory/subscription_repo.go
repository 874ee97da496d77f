package inmemory

import (
	"context"
	"sync"
	"time"

	"todoTracker/internal/models/push"
	repo "todoTracker/internal/repository"

	"github.com/google/uuid"
)

// SubscriptionStorage индексирует подписки по id и по endpoint
type SubscriptionStorage struct {
	mtx        sync.RWMutex
	byID       map[uuid.UUID]*push.Subscription
	byEndpoint map[string]uuid.UUID
}

func NewSubscriptionStorage() *SubscriptionStorage {
	return &SubscriptionStorage{
		byID:       make(map[uuid.UUID]*push.Subscription),
		byEndpoint: make(map[string]uuid.UUID),
	}
}

// Upsert: существующий endpoint переходит к новому владельцу с новыми ключами, id сохраняется
func (s *SubscriptionStorage) Upsert(ctx context.Context, sub *push.Subscription) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	now := time.Now().UTC()
	if id, ok := s.byEndpoint[sub.Endpoint]; ok {
		existing := s.byID[id]
		existing.OwnerID = sub.OwnerID
		existing.P256dh = sub.P256dh
		existing.Auth = sub.Auth
		existing.UserAgent = sub.UserAgent
		existing.UpdatedAt = &now

		*sub = *existing
		return nil
	}

	if sub.UUID == uuid.Nil {
		sub.UUID = uuid.New()
	}
	sub.CreatedAt = now
	sub.UpdatedAt = nil

	stored := *sub
	s.byID[stored.UUID] = &stored
	s.byEndpoint[stored.Endpoint] = stored.UUID
	return nil
}

func (s *SubscriptionStorage) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*push.Subscription, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	subs := []*push.Subscription{}
	for _, sub := range s.byID {
		if sub.OwnerID == ownerID {
			c := *sub
			subs = append(subs, &c)
		}
	}
	return subs, nil
}

// DeleteByID не считает отсутствие записи ошибкой: подписку мог уже удалить параллельный тик
func (s *SubscriptionStorage) DeleteByID(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if sub, ok := s.byID[id]; ok {
		delete(s.byEndpoint, sub.Endpoint)
		delete(s.byID, id)
	}
	return nil
}

func (s *SubscriptionStorage) DeleteByOwnerAndEndpoint(ctx context.Context, ownerID uuid.UUID, endpoint string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	id, ok := s.byEndpoint[endpoint]
	if !ok || s.byID[id].OwnerID != ownerID {
		return repo.ErrNotFound
	}
	delete(s.byEndpoint, endpoint)
	delete(s.byID, id)
	return nil
}
