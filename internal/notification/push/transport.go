package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
)

// ErrEndpointGone - постоянная ошибка: подписка больше не существует у push-сервиса
var ErrEndpointGone = errors.New("push endpoint больше не существует")

// Message - одна зашифрованная отправка на конкретный endpoint
type Message struct {
	Endpoint string
	P256dh   string
	Auth     string
	Payload  []byte
	TTL      time.Duration
}

// Transport отправляет одно сообщение.
// nil - принято, ErrEndpointGone - постоянная ошибка, любая другая - временная.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

type Outcome string

const OutcomeDelivered Outcome = "delivered"
const OutcomeGone Outcome = "gone"
const OutcomeFailed Outcome = "failed"

func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeDelivered
	case errors.Is(err, ErrEndpointGone):
		return OutcomeGone
	default:
		return OutcomeFailed
	}
}

type VAPIDConfig struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

// WebPushTransport шифрует payload (RFC 8291) и подписывает запрос VAPID ключами
type WebPushTransport struct {
	vapid  VAPIDConfig
	client *http.Client
}

func NewWebPushTransport(vapid VAPIDConfig, client *http.Client) *WebPushTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &WebPushTransport{vapid: vapid, client: client}
}

func (t *WebPushTransport) Send(ctx context.Context, msg Message) error {
	sub := &webpush.Subscription{
		Endpoint: msg.Endpoint,
		Keys: webpush.Keys{
			P256dh: msg.P256dh,
			Auth:   msg.Auth,
		},
	}

	resp, err := webpush.SendNotificationWithContext(ctx, msg.Payload, sub, &webpush.Options{
		HTTPClient:      t.client,
		Subscriber:      t.vapid.Subject,
		VAPIDPublicKey:  t.vapid.PublicKey,
		VAPIDPrivateKey: t.vapid.PrivateKey,
		TTL:             int(msg.TTL / time.Second),
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("отправка push: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: статус %d", ErrEndpointGone, resp.StatusCode)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		return fmt.Errorf("push-сервис ответил статусом %d", resp.StatusCode)
	}
}
