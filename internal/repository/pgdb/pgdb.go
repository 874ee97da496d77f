package pgdb

import (
	"context"
	"fmt"
	"time"

	"todoTracker/internal/config"
	"todoTracker/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Connect создаёт пул и ждёт, пока база ответит на ping (с экспоненциальной задержкой).
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections > 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.IdleTimeout > 0 {
		poolCfg.MaxConnIdleTime = cfg.IdleTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	attempt := 0
	ping := func() error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("Repository: Неудачная проверка ping", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(policy, cfg.ConnectRetries), ctx)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return pool, nil
}

// WarnIfSlow пишет предупреждение для медленных запросов.
func WarnIfSlow(op string, start time.Time, threshold time.Duration) {
	if d := time.Since(start); d > threshold {
		logger.Warn("Repository: Медленная операция", zap.String("operation", op), zap.Duration("ms", d))
	}
}
