package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"todoTracker/internal/config"
	"todoTracker/internal/handlers"
	"todoTracker/internal/logger"
	"todoTracker/internal/middleware"
	"todoTracker/internal/migrations"
	"todoTracker/internal/notification/inapp"
	"todoTracker/internal/notification/push"
	"todoTracker/internal/repository/pgdb"
	pushinmemory "todoTracker/internal/repository/push/inmemory"
	pushpostgres "todoTracker/internal/repository/push/postgres"
	taskinmemory "todoTracker/internal/repository/task/inmemory"
	taskpostgres "todoTracker/internal/repository/task/postgres"
	"todoTracker/internal/service"
	"todoTracker/internal/worker"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// taskStore - всё, что нужно от хранилища задач сервисам и планировщику
type taskStore interface {
	service.TaskRepository
	worker.ReminderStore
}

type subscriptionStore interface {
	service.SubscriptionRepository
	push.SubscriptionStore
}

type App struct {
	config    *config.Config
	server    *http.Server
	router    *chi.Mux
	tasks     taskStore
	subs      subscriptionStore
	feed      *inapp.Feed
	worker    *worker.NotificationWorker
	shutdowns []func() // выполняются в обратном порядке

	connectDB func(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error)
	migrateDB func(databaseURL string) error
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
		connectDB: pgdb.Connect,
		migrateDB: migrations.Up,
	}
}

// Init собирает хранилища, планировщик и HTTP-сервер
func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initStorage(ctx); err != nil {
		a.Shutdown()
		return nil, err
	}

	a.feed = inapp.NewFeed(a.config.Notify.FeedCapacity)
	a.worker = worker.NewNotificationWorker(a.tasks, a.feed, a.pushSender(), worker.Config{
		Interval:   a.config.Notify.Interval,
		BatchLimit: a.config.Notify.BatchLimit,
		Workers:    a.config.Notify.Workers,
	})

	a.initRouter()
	a.server = &http.Server{
		Addr:              a.config.GetServerAddr(),
		Handler:           otelhttp.NewHandler(a.router, "todo-api"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.Bool("push_enabled", a.config.PushEnabled()))
	return a, nil
}

func (a *App) initStorage(ctx context.Context) error {
	switch a.config.Repository.Type {
	case config.RepositoryPostgres:
		// сначала ждём базу с повторами, миграции идут уже по живому соединению
		pool, err := a.connectDB(ctx, a.config.Database)
		if err != nil {
			return fmt.Errorf("подключение к БД: %w", err)
		}
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("Закрытие пула соединений...")
			pool.Close()
		})
		if a.config.Database.MigrateOnStart {
			if err := a.migrateDB(a.config.Database.URL); err != nil {
				return fmt.Errorf("миграции: %w", err)
			}
		}
		a.tasks = taskpostgres.New(pool)
		a.subs = pushpostgres.New(pool)
	default:
		a.tasks = taskinmemory.NewTaskStorage()
		a.subs = pushinmemory.NewSubscriptionStorage()
	}
	return nil
}

// pushSender возвращает nil-интерфейс, если VAPID ключи не заданы
func (a *App) pushSender() worker.PushSender {
	if !a.config.PushEnabled() {
		logger.Warn("Push отключён: VAPID ключи не заданы")
		return nil
	}

	pc := a.config.Push
	transport := push.NewBreakerTransport(
		push.NewWebPushTransport(push.VAPIDConfig{
			PublicKey:  pc.VapidPublicKey,
			PrivateKey: pc.VapidPrivateKey,
			Subject:    pc.Subject,
		}, &http.Client{Timeout: pc.SendTimeout}),
		push.BreakerConfig{
			Name:             "webpush",
			FailureThreshold: pc.BreakerThreshold,
			Timeout:          pc.BreakerTimeout,
		},
	)
	return push.NewSender(a.subs, transport, push.SenderConfig{
		Workers:     pc.Workers,
		SendTimeout: pc.SendTimeout,
		TTL:         pc.TTL,
	})
}

func (a *App) initRouter() {
	publicKey := ""
	if a.config.PushEnabled() {
		publicKey = a.config.Push.VapidPublicKey
	}

	h := handlers.NewHandler(
		service.NewTaskService(a.tasks, service.NewRecurrenceGenerator(a.tasks)),
		service.NewPushSubscriptionService(a.subs, publicKey),
		service.NewNotificationService(a.feed),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimit(a.config.RateLimit.RPM))

	r.Handle("/metrics", promhttp.Handler())
	h.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth([]byte(a.config.Auth.JWTSecret)))
		h.RegisterProtected(r)
	})

	a.router = r
}

// Router нужен тестам, чтобы ходить в приложение без сети
func (a *App) Router() http.Handler {
	return a.router
}

// Run запускает планировщик и сервер, блокируется до отмены ctx
func (a *App) Run(ctx context.Context) error {
	workerCtx, stopWorker := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		a.worker.Start(workerCtx)
	}()
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Остановка планировщика напоминаний...")
		stopWorker()
		<-done
	})

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-serverErr:
		if ok {
			a.Shutdown()
			return fmt.Errorf("HTTP сервер: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка остановки HTTP сервера", err)
	}
	a.Shutdown()
	return nil
}

func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	a.shutdowns = nil
}
