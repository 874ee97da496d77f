package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	rep "todoTracker/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxTitleLength = 255

type CreateTaskInput struct {
	Title               string
	DueDate             *time.Time
	RemindOffsetMinutes *int
	RepeatKind          task.RepeatKind
	CategoryID          *uuid.UUID
	TagIDs              []uuid.UUID
}

// CompletionResult - результат изменения задачи. RecurrenceErr != nil означает,
// что задача сохранена, но следующий экземпляр создать не удалось.
type CompletionResult struct {
	Task          *task.Task
	Next          *task.Task
	RecurrenceErr error
}

func (r *CompletionResult) Degraded() bool {
	return r.RecurrenceErr != nil
}

type TaskService struct {
	repo       TaskRepository
	recurrence *RecurrenceGenerator
	newID      func() uuid.UUID
}

func NewTaskService(repo TaskRepository, recurrence *RecurrenceGenerator) *TaskService {
	return &TaskService{
		repo:       repo,
		recurrence: recurrence,
		newID:      uuid.New,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.repo.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

func (s *TaskService) Create(ctx context.Context, ownerID uuid.UUID, in CreateTaskInput) (*task.Task, error) {
	t := &task.Task{
		UUID:       s.newID(),
		Title:      strings.TrimSpace(in.Title),
		RepeatKind: task.RepeatNone,
		OwnerID:    ownerID,
		TagIDs:     []uuid.UUID{},
	}
	t.Apply(
		task.WithDueDate(in.DueDate),
		task.WithRemindOffset(in.RemindOffsetMinutes),
		task.WithRepeatKind(in.RepeatKind),
		task.WithCategory(in.CategoryID),
		task.WithTags(in.TagIDs),
	)
	t.NormalizeReminder()

	if err := validateTask(t); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	logger.Info("Service: Задача создана",
		logger.TaskID(t.UUID),
		logger.OwnerID(ownerID))
	return t, nil
}

// Get возвращает задачу только её владельцу
func (s *TaskService) Get(ctx context.Context, ownerID, id uuid.UUID) (*task.Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", logger.TaskID(id))
			return nil, NewNotFound(ResourceTask, id.String())
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	if t.OwnerID != ownerID {
		logger.Warn("Service: Попытка доступа к чужой задаче",
			logger.TaskID(id),
			logger.OwnerID(ownerID))
		return nil, NewForbidden(ResourceTask, id.String())
	}
	return t, nil
}

// List всегда ограничивает выборку владельцем
func (s *TaskService) List(ctx context.Context, ownerID uuid.UUID, filter task.Filter) ([]*task.Task, error) {
	filter.OwnerID = &ownerID
	tasks, err := s.repo.List(ctx, filter.Normalized())
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return tasks, nil
}

// Update применяет опции и сохраняет задачу. Переход done false -> true запускает повторение.
func (s *TaskService) Update(ctx context.Context, ownerID, id uuid.UUID, options ...task.TaskOption) (*CompletionResult, error) {
	t, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	wasDone := t.Done
	t.Apply(options...)
	t.Title = strings.TrimSpace(t.Title)
	t.NormalizeReminder()

	if err := validateTask(t); err != nil {
		return nil, err
	}

	return s.save(ctx, t, wasDone)
}

func (s *TaskService) ToggleDone(ctx context.Context, ownerID, id uuid.UUID) (*CompletionResult, error) {
	t, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	wasDone := t.Done
	t.Apply(task.WithDone(!wasDone))
	return s.save(ctx, t, wasDone)
}

// save: сначала сохраняется сама задача, затем отдельной записью создаётся следующий экземпляр.
// Ошибка второй записи не откатывает первую.
func (s *TaskService) save(ctx context.Context, t *task.Task, wasDone bool) (*CompletionResult, error) {
	if err := s.repo.Update(ctx, t); err != nil {
		switch {
		case errors.Is(err, rep.ErrVersionConflict):
			return nil, NewVersionConflict(t.UUID.String(), err)
		case errors.Is(err, rep.ErrNotFound):
			return nil, NewNotFound(ResourceTask, t.UUID.String())
		}
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}

	result := &CompletionResult{Task: t}
	if s.recurrence == nil {
		return result, nil
	}

	next, err := s.recurrence.OnCompleted(ctx, wasDone, t)
	if err != nil {
		logger.Warn("Service: Задача завершена без следующего экземпляра",
			logger.TaskID(t.UUID),
			zap.Error(err))
		result.RecurrenceErr = err
		return result, nil
	}
	result.Next = next
	return result, nil
}

func (s *TaskService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound(ResourceTask, id.String())
		}
		return fmt.Errorf("удаление задачи: %w", err)
	}
	logger.Info("Service: Задача удалена", logger.TaskID(id))
	return nil
}

func validateTask(t *task.Task) error {
	if t.Title == "" {
		return NewValidationError("title", "не может быть пустым")
	}
	if len([]rune(t.Title)) > maxTitleLength {
		return NewValidationError("title", fmt.Sprintf("не длиннее %d символов", maxTitleLength))
	}
	if !t.RepeatKind.Valid() {
		return NewValidationError("repeat_kind", "допустимо NONE, DAILY, WEEKLY, MONTHLY")
	}
	return nil
}
