package push

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	models "todoTracker/internal/models/push"
	"todoTracker/internal/repository/push/inmemory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport отвечает по endpoint заранее заданной ошибкой
type fakeTransport struct {
	mtx     sync.Mutex
	results map[string]error
	delay   map[string]time.Duration
	sent    []Message
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{results: map[string]error{}, delay: map[string]time.Duration{}}
}

func (f *fakeTransport) Send(ctx context.Context, msg Message) error {
	f.mtx.Lock()
	f.sent = append(f.sent, msg)
	err := f.results[msg.Endpoint]
	d := f.delay[msg.Endpoint]
	f.mtx.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

type failingStore struct{}

func (failingStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Subscription, error) {
	return nil, errors.New("db down")
}

func (failingStore) DeleteByID(ctx context.Context, id uuid.UUID) error { return nil }

func subscribe(t *testing.T, store *inmemory.SubscriptionStorage, owner uuid.UUID, endpoint string) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{OwnerID: owner, Endpoint: endpoint, P256dh: "key", Auth: "auth"}
	require.NoError(t, store.Upsert(context.Background(), sub))
	return sub
}

// TestSender_PrunesGoneEndpoint тестирует удаление мёртвой подписки при успешной отправке на остальные
func TestSender_PrunesGoneEndpoint(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewSubscriptionStorage()
	owner := uuid.New()
	subscribe(t, store, owner, "https://push.example/a")
	subscribe(t, store, owner, "https://push.example/b")
	subscribe(t, store, owner, "https://push.example/dead")

	transport := newFakeTransport()
	transport.results["https://push.example/dead"] = ErrEndpointGone

	sender := NewSender(store, transport, SenderConfig{Workers: 2})
	delivered, err := sender.SendToOwner(ctx, owner, Payload{Title: "t", Body: "b", TodoID: uuid.New(), UserID: owner})
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)

	left, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, left, 2)
	for _, s := range left {
		assert.NotEqual(t, "https://push.example/dead", s.Endpoint)
	}
}

// TestSender_TransientFailureKeepsSubscription тестирует, что временная ошибка не удаляет подписку
func TestSender_TransientFailureKeepsSubscription(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewSubscriptionStorage()
	owner := uuid.New()
	subscribe(t, store, owner, "https://push.example/flaky")
	subscribe(t, store, owner, "https://push.example/slow")
	subscribe(t, store, owner, "https://push.example/ok")

	transport := newFakeTransport()
	transport.results["https://push.example/flaky"] = errors.New("503")
	transport.delay["https://push.example/slow"] = time.Second

	sender := NewSender(store, transport, SenderConfig{SendTimeout: 50 * time.Millisecond})
	delivered, err := sender.SendToOwner(ctx, owner, Payload{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	left, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, left, 3)
}

// TestSender_NoSubscriptions тестирует владельца без подписок
func TestSender_NoSubscriptions(t *testing.T) {
	transport := newFakeTransport()
	sender := NewSender(inmemory.NewSubscriptionStorage(), transport, SenderConfig{})

	delivered, err := sender.SendToOwner(context.Background(), uuid.New(), Payload{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, 0, delivered)
	assert.Empty(t, transport.sent)
}

// TestSender_StoreFailure тестирует ошибку чтения подписок
func TestSender_StoreFailure(t *testing.T) {
	sender := NewSender(failingStore{}, newFakeTransport(), SenderConfig{})

	_, err := sender.SendToOwner(context.Background(), uuid.New(), Payload{Title: "t"})
	assert.Error(t, err)
}

// TestSender_PayloadDefaults тестирует JSON, уходящий в браузер
func TestSender_PayloadDefaults(t *testing.T) {
	store := inmemory.NewSubscriptionStorage()
	owner := uuid.New()
	todoID := uuid.New()
	subscribe(t, store, owner, "https://push.example/a")

	transport := newFakeTransport()
	sender := NewSender(store, transport, SenderConfig{TTL: time.Hour})
	_, err := sender.SendToOwner(context.Background(), owner, Payload{Title: "Скоро срок", Body: "Задача", TodoID: todoID, UserID: owner})
	require.NoError(t, err)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, time.Hour, transport.sent[0].TTL)

	var got map[string]any
	require.NoError(t, json.Unmarshal(transport.sent[0].Payload, &got))
	assert.Equal(t, "/", got["url"])
	assert.Equal(t, DefaultIcon, got["icon"])
	assert.Equal(t, todoID.String(), got["todoId"])
	assert.Equal(t, owner.String(), got["userId"])
}

// TestClassify тестирует разбор результата отправки
func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomeDelivered, Classify(nil))
	assert.Equal(t, OutcomeGone, Classify(errors.Join(errors.New("x"), ErrEndpointGone)))
	assert.Equal(t, OutcomeFailed, Classify(context.DeadlineExceeded))
}
