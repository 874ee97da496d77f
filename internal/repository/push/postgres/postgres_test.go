package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"todoTracker/internal/config"
	"todoTracker/internal/migrations"
	"todoTracker/internal/models/push"
	repo "todoTracker/internal/repository"
	"todoTracker/internal/repository/pgdb"
	"todoTracker/internal/repository/push/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type SubscriptionTestSuite struct {
	suite.Suite
	container testcontainers.Container
	pool      *pgxpool.Pool
	storage   *postgres.Storage
	ctx       context.Context
}

func (s *SubscriptionTestSuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "testdb",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	connString := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())
	require.NoError(s.T(), migrations.Up(connString))

	s.pool, err = pgdb.Connect(s.ctx, config.DatabaseConfig{URL: connString, ConnectRetries: 5})
	require.NoError(s.T(), err)
	s.storage = postgres.New(s.pool)
}

func (s *SubscriptionTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func (s *SubscriptionTestSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, "DELETE FROM push_subscriptions")
	require.NoError(s.T(), err)
}

// TestSubscriptionTestSuite запускает suite подписок
func TestSubscriptionTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(SubscriptionTestSuite))
}

// TestStorage_Upsert тестирует конфликт по endpoint
func (s *SubscriptionTestSuite) TestStorage_Upsert() {
	alice, bob := uuid.New(), uuid.New()

	first := &push.Subscription{OwnerID: alice, Endpoint: "https://push.example/1", P256dh: "k1", Auth: "a1", UserAgent: "firefox"}
	require.NoError(s.T(), s.storage.Upsert(s.ctx, first))
	assert.Nil(s.T(), first.UpdatedAt)

	again := &push.Subscription{OwnerID: bob, Endpoint: "https://push.example/1", P256dh: "k2", Auth: "a2"}
	require.NoError(s.T(), s.storage.Upsert(s.ctx, again))
	assert.Equal(s.T(), first.UUID, again.UUID)
	assert.NotNil(s.T(), again.UpdatedAt)

	aliceSubs, err := s.storage.ListByOwner(s.ctx, alice)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), aliceSubs)

	bobSubs, err := s.storage.ListByOwner(s.ctx, bob)
	require.NoError(s.T(), err)
	require.Len(s.T(), bobSubs, 1)
	assert.Equal(s.T(), "k2", bobSubs[0].P256dh)
	assert.Equal(s.T(), "a2", bobSubs[0].Auth)
}

// TestStorage_Delete тестирует удаление подписок
func (s *SubscriptionTestSuite) TestStorage_Delete() {
	owner := uuid.New()
	a := &push.Subscription{OwnerID: owner, Endpoint: "https://push.example/a", P256dh: "k", Auth: "a"}
	b := &push.Subscription{OwnerID: owner, Endpoint: "https://push.example/b", P256dh: "k", Auth: "a"}
	require.NoError(s.T(), s.storage.Upsert(s.ctx, a))
	require.NoError(s.T(), s.storage.Upsert(s.ctx, b))

	require.NoError(s.T(), s.storage.DeleteByID(s.ctx, a.UUID))
	require.NoError(s.T(), s.storage.DeleteByID(s.ctx, a.UUID))

	assert.ErrorIs(s.T(), s.storage.DeleteByOwnerAndEndpoint(s.ctx, uuid.New(), b.Endpoint), repo.ErrNotFound)
	require.NoError(s.T(), s.storage.DeleteByOwnerAndEndpoint(s.ctx, owner, b.Endpoint))

	subs, err := s.storage.ListByOwner(s.ctx, owner)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), subs)
}
