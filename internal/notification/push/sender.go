package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/metrics"
	models "todoTracker/internal/models/push"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const DefaultIcon = "/icons/icon-192x192.png"

// Payload - JSON, который получает service worker браузера
type Payload struct {
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	URL    string    `json:"url"`
	Icon   string    `json:"icon"`
	TodoID uuid.UUID `json:"todoId"`
	UserID uuid.UUID `json:"userId"`
}

type SubscriptionStore interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Subscription, error)
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

type SenderConfig struct {
	Workers     int
	SendTimeout time.Duration
	TTL         time.Duration
}

type Sender struct {
	store     SubscriptionStore
	transport Transport
	cfg       SenderConfig
}

func NewSender(store SubscriptionStore, transport Transport, cfg SenderConfig) *Sender {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 28 * 24 * time.Hour
	}
	return &Sender{store: store, transport: transport, cfg: cfg}
}

// SendToOwner отправляет payload на все endpoint владельца и возвращает число принятых.
// Ошибка возвращается только если не удалось прочитать подписки; сбои отдельных endpoint
// не мешают остальным, а endpoint с ответом 404/410 удаляется.
func (s *Sender) SendToOwner(ctx context.Context, ownerID uuid.UUID, payload Payload) (int, error) {
	subs, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("чтение подписок: %w", err)
	}
	if len(subs) == 0 {
		logger.Debug("Push: У владельца нет подписок", logger.OwnerID(ownerID))
		return 0, nil
	}

	if payload.Icon == "" {
		payload.Icon = DefaultIcon
	}
	if payload.URL == "" {
		payload.URL = "/"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("сериализация payload: %w", err)
	}

	p := pool.NewWithResults[Outcome]().WithMaxGoroutines(s.cfg.Workers)
	for _, sub := range subs {
		p.Go(func() Outcome {
			return s.sendOne(ctx, sub, body)
		})
	}

	delivered := 0
	for _, outcome := range p.Wait() {
		if outcome == OutcomeDelivered {
			delivered++
		}
	}
	return delivered, nil
}

func (s *Sender) sendOne(ctx context.Context, sub *models.Subscription, body []byte) Outcome {
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()

	err := s.transport.Send(sendCtx, Message{
		Endpoint: sub.Endpoint,
		P256dh:   sub.P256dh,
		Auth:     sub.Auth,
		Payload:  body,
		TTL:      s.cfg.TTL,
	})
	outcome := Classify(err)
	metrics.PushSends.WithLabelValues(string(outcome)).Inc()

	switch outcome {
	case OutcomeGone:
		logger.Info("Push: Endpoint больше не существует, удаляем подписку",
			logger.SubscriptionID(sub.UUID),
			logger.OwnerID(sub.OwnerID),
			logger.PushHost(sub.Endpoint))
		if err := s.store.DeleteByID(ctx, sub.UUID); err != nil {
			logger.Error("Push: Не удалось удалить подписку", err, logger.SubscriptionID(sub.UUID))
			return outcome
		}
		metrics.PushSubscriptionsPruned.Inc()
	case OutcomeFailed:
		logger.Warn("Push: Временная ошибка отправки",
			logger.SubscriptionID(sub.UUID),
			logger.PushHost(sub.Endpoint),
			zap.Error(err))
	}
	return outcome
}
