package service

import (
	"context"
	"fmt"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TaskCreator interface {
	Create(context.Context, *task.Task) error
}

// RecurrenceGenerator создаёт следующий экземпляр повторяющейся задачи при её завершении
type RecurrenceGenerator struct {
	repo  TaskCreator
	now   Clock
	newID func() uuid.UUID
}

func NewRecurrenceGenerator(repo TaskCreator) *RecurrenceGenerator {
	return &RecurrenceGenerator{repo: repo, now: utcNow, newID: uuid.New}
}

// OnCompleted срабатывает только на переход false -> true у задачи с повторением.
// Исходная задача не меняется; без срока базой служит текущее время.
func (g *RecurrenceGenerator) OnCompleted(ctx context.Context, wasDone bool, t *task.Task) (*task.Task, error) {
	if wasDone || !t.Done || t.RepeatKind == task.RepeatNone || t.RepeatKind == "" {
		return nil, nil
	}

	next := t.NextOccurrence(g.now(), g.newID)
	if err := g.repo.Create(ctx, next); err != nil {
		logger.Error("Service: Не удалось создать следующий экземпляр задачи", err,
			logger.TaskID(t.UUID),
			zap.String("repeat_kind", string(t.RepeatKind)))
		return nil, fmt.Errorf("создание следующего экземпляра: %w", err)
	}

	logger.Info("Service: Создан следующий экземпляр задачи",
		logger.TaskID(t.UUID),
		zap.String("next_id", next.UUID.String()),
		zap.Time("due_date", *next.DueDate))
	return next, nil
}
