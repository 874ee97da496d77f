package postgres

import (
	"context"
	"fmt"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/push"
	repo "todoTracker/internal/repository"
	"todoTracker/internal/repository/pgdb"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slowQuery = 100 * time.Millisecond

type Storage struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// Upsert по уникальному endpoint: повторная подписка того же браузера обновляет владельца и ключи
func (s *Storage) Upsert(ctx context.Context, sub *push.Subscription) error {
	start := time.Now()
	defer pgdb.WarnIfSlow("push_upsert", start, slowQuery)

	if sub.UUID == uuid.Nil {
		sub.UUID = uuid.New()
	}

	query := `INSERT INTO push_subscriptions
				(uuid, owner_id, endpoint, p256dh, auth, user_agent, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, NOW())
				ON CONFLICT (endpoint) DO UPDATE SET
					owner_id = EXCLUDED.owner_id,
					p256dh = EXCLUDED.p256dh,
					auth = EXCLUDED.auth,
					user_agent = EXCLUDED.user_agent,
					updated_at = NOW()
				RETURNING uuid, created_at, updated_at`

	err := s.pool.QueryRow(ctx, query,
		sub.UUID,
		sub.OwnerID,
		sub.Endpoint,
		sub.P256dh,
		sub.Auth,
		sub.UserAgent,
	).Scan(&sub.UUID, &sub.CreatedAt, &sub.UpdatedAt)

	if err != nil {
		logger.Error("Repository: Не удалось сохранить подписку", err, logger.OwnerID(sub.OwnerID))
		return fmt.Errorf("сохранение подписки: %w", err)
	}
	return nil
}

func (s *Storage) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*push.Subscription, error) {
	start := time.Now()
	defer pgdb.WarnIfSlow("push_list", start, slowQuery)

	query := `SELECT uuid, owner_id, endpoint, p256dh, auth, COALESCE(user_agent, ''), created_at, updated_at
				FROM push_subscriptions
				WHERE owner_id = $1
				ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		logger.Error("Repository: Не удалось получить подписки", err, logger.OwnerID(ownerID))
		return nil, fmt.Errorf("получение подписок: %w", err)
	}

	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*push.Subscription, error) {
		sub := &push.Subscription{}
		err := row.Scan(&sub.UUID, &sub.OwnerID, &sub.Endpoint, &sub.P256dh, &sub.Auth, &sub.UserAgent, &sub.CreatedAt, &sub.UpdatedAt)
		return sub, err
	})
	if err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return subs, nil
}

func (s *Storage) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE uuid = $1`, id); err != nil {
		logger.Error("Repository: Не удалось удалить подписку", err, logger.SubscriptionID(id))
		return fmt.Errorf("удаление подписки: %w", err)
	}
	return nil
}

func (s *Storage) DeleteByOwnerAndEndpoint(ctx context.Context, ownerID uuid.UUID, endpoint string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE owner_id = $1 AND endpoint = $2`, ownerID, endpoint)
	if err != nil {
		logger.Error("Repository: Не удалось удалить подписку", err, logger.OwnerID(ownerID))
		return fmt.Errorf("удаление подписки: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
