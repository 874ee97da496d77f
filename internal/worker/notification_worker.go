package worker

import (
	"context"
	"fmt"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/metrics"
	"todoTracker/internal/models/task"
	"todoTracker/internal/notification/inapp"
	"todoTracker/internal/notification/push"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

type ReminderStore interface {
	FindDueForNotification(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*task.Task, error)
	MarkNotified(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error)
}

type FeedWriter interface {
	Push(msg inapp.Message)
	Len() int
}

type PushSender interface {
	SendToOwner(ctx context.Context, ownerID uuid.UUID, payload push.Payload) (int, error)
}

type Config struct {
	Interval   time.Duration
	BatchLimit int
	Workers    int
}

// TickReport - итог одного прохода планировщика
type TickReport struct {
	Found         int
	Delivered     int
	Failed        int
	PushDelivered int
	Marked        int64
}

type NotificationWorker struct {
	store ReminderStore
	feed  FeedWriter
	push  PushSender // nil, если push отключён
	cfg   Config
	now   func() time.Time
}

func NewNotificationWorker(store ReminderStore, feed FeedWriter, sender PushSender, cfg Config) *NotificationWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 500
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &NotificationWorker{
		store: store,
		feed:  feed,
		push:  sender,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Start выполняет первый проход сразу, дальше по тикеру до отмены ctx
func (w *NotificationWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	logger.Info("Worker: Планировщик напоминаний запущен", zap.Duration("interval", w.cfg.Interval))
	w.tick(ctx)

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			logger.Info("Worker: Планировщик напоминаний останавливается")
			return
		}
	}
}

func (w *NotificationWorker) tick(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil {
		logger.Warn("Worker: Проход завершился ошибкой, повтор на следующем тике", zap.Error(err))
	}
}

type deliveryResult struct {
	id            uuid.UUID
	ok            bool
	pushDelivered int
}

// RunOnce: выборка -> доставка -> отметка notified_at только для успешно обработанных задач.
// Ошибка выборки прерывает проход без каких-либо отметок.
func (w *NotificationWorker) RunOnce(ctx context.Context) (TickReport, error) {
	start := time.Now()
	defer func() { metrics.TickDuration.Observe(time.Since(start).Seconds()) }()

	now := w.now()
	var report TickReport

	ids, err := w.store.FindDueForNotification(ctx, now, w.cfg.BatchLimit)
	if err != nil {
		metrics.TicksTotal.WithLabelValues("query_error").Inc()
		return report, fmt.Errorf("выборка напоминаний: %w", err)
	}
	if len(ids) == 0 {
		metrics.TicksTotal.WithLabelValues("ok").Inc()
		return report, nil
	}

	tasks, err := w.store.GetByIDs(ctx, ids)
	if err != nil {
		metrics.TicksTotal.WithLabelValues("query_error").Inc()
		return report, fmt.Errorf("загрузка задач: %w", err)
	}
	report.Found = len(ids)
	if missing := unloadedIDs(ids, tasks); len(missing) > 0 {
		// удалена после выборки или не читается: без отметки, уйдёт на следующий тик
		report.Failed += len(missing)
		logger.Warn("Worker: Часть задач не загружена",
			zap.Int("count", len(missing)),
			zap.Stringers("task_ids", missing))
	}

	p := pool.NewWithResults[deliveryResult]().WithMaxGoroutines(w.cfg.Workers)
	for _, t := range tasks {
		p.Go(func() deliveryResult {
			return w.deliver(ctx, t, now)
		})
	}

	successIDs := make([]uuid.UUID, 0, len(tasks))
	for _, res := range p.Wait() {
		report.PushDelivered += res.pushDelivered
		if res.ok {
			successIDs = append(successIDs, res.id)
			continue
		}
		report.Failed++
	}
	report.Delivered = len(successIDs)
	metrics.DeliveryFailures.Add(float64(report.Failed))
	metrics.FeedSize.Set(float64(w.feed.Len()))

	if len(successIDs) > 0 {
		marked, err := w.store.MarkNotified(ctx, successIDs, now)
		if err != nil {
			metrics.TicksTotal.WithLabelValues("mark_error").Inc()
			return report, fmt.Errorf("отметка напоминаний: %w", err)
		}
		report.Marked = marked
		metrics.RemindersMarked.Add(float64(marked))
	}

	metrics.TicksTotal.WithLabelValues("ok").Inc()
	logger.Info("Worker: Проход планировщика завершён",
		zap.Duration("ms", time.Since(start)),
		zap.Int("found", report.Found),
		zap.Int("delivered", report.Delivered),
		zap.Int("failed", report.Failed),
		zap.Int("push_delivered", report.PushDelivered),
		zap.Int64("marked", report.Marked))
	return report, nil
}

// deliver не паникует наружу: сбой одной задачи не должен прерывать пачку
func (w *NotificationWorker) deliver(ctx context.Context, t *task.Task, now time.Time) (res deliveryResult) {
	res.id = t.UUID
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Worker: Паника при доставке напоминания", fmt.Errorf("%v", r), logger.TaskID(t.UUID))
			res.ok = false
		}
	}()

	w.feed.Push(inapp.Message{
		TaskID:    t.UUID,
		OwnerID:   t.OwnerID,
		Text:      ReminderText(t),
		DueDate:   t.DueDate,
		CreatedAt: now,
	})

	if w.push != nil {
		delivered, err := w.push.SendToOwner(ctx, t.OwnerID, push.Payload{
			Title:  "Скоро срок",
			Body:   fmt.Sprintf("«%s» приближается", t.Title),
			URL:    "/todos?open=" + t.UUID.String(),
			TodoID: t.UUID,
			UserID: t.OwnerID,
		})
		if err != nil {
			logger.Warn("Worker: Push недоступен, задача останется в очереди",
				logger.TaskID(t.UUID),
				zap.Error(err))
			return res
		}
		res.pushDelivered = delivered
	}

	res.ok = true
	return res
}

func ReminderText(t *task.Task) string {
	if t.DueDate == nil {
		return fmt.Sprintf("Скоро срок: «%s»", t.Title)
	}
	return fmt.Sprintf("Скоро срок: «%s» (%s)", t.Title, t.DueDate.UTC().Format("2006-01-02 15:04"))
}

func unloadedIDs(ids []uuid.UUID, loaded []*task.Task) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(loaded))
	for _, t := range loaded {
		seen[t.UUID] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
