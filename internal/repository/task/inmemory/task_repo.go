package inmemory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/models/task"
	repo "todoTracker/internal/repository"

	"github.com/google/uuid"
)

// TaskStorage хранит копии задач: наружу никогда не отдаются указатели на внутренние записи.
type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	mtx     *sync.RWMutex
	ids     []uuid.UUID
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, taskToCreate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, exists := s.storage[taskToCreate.UUID]; exists {
		return repo.ErrConflict
	}

	taskToCreate.CreatedAt = time.Now().UTC()
	taskToCreate.Version = 1

	s.storage[taskToCreate.UUID] = taskToCreate.Clone()
	s.ids = append(s.ids, taskToCreate.UUID)
	return nil
}

// Update сохраняет задачу с проверкой версии. notified_at не переносится из taskToUpdate:
// он сбрасывается, только если изменились срок или смещение напоминания.
func (s *TaskStorage) Update(ctx context.Context, taskToUpdate *task.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	existing, ok := s.storage[taskToUpdate.UUID]
	if !ok {
		return repo.ErrNotFound
	}
	if existing.Version != taskToUpdate.Version {
		return repo.ErrVersionConflict
	}

	updated := taskToUpdate.Clone()
	updated.CreatedAt = existing.CreatedAt
	updated.NotifiedAt = existing.NotifiedAt
	if updated.ScheduleChanged(existing) {
		updated.NotifiedAt = nil
	}
	now := time.Now().UTC()
	updated.UpdatedAt = &now
	updated.Version = existing.Version + 1

	s.storage[updated.UUID] = updated

	taskToUpdate.NotifiedAt = updated.Clone().NotifiedAt
	taskToUpdate.UpdatedAt = &now
	taskToUpdate.Version = updated.Version
	return nil
}

func (s *TaskStorage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	taskToGet, ok := s.storage[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return taskToGet.Clone(), nil
}

// отсутствующие id молча пропускаются
func (s *TaskStorage) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	res := make([]*task.Task, 0, len(ids))
	for _, id := range ids {
		if t, ok := s.storage[id]; ok {
			res = append(res, t.Clone())
		}
	}
	return res, nil
}

func (s *TaskStorage) Delete(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.storage[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.storage, id)
	s.ids = slices.DeleteFunc(s.ids, func(v uuid.UUID) bool { return v == id })
	return nil
}

// List возвращает страницу задач по фильтру, упорядоченную по сроку (без срока - в конце).
func (s *TaskStorage) List(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	filter = filter.Normalized()
	match := filter.Predicate()

	matched := []*task.Task{}
	for _, id := range s.ids {
		t := s.storage[id]
		if match(t) {
			matched = append(matched, t)
		}
	}
	sortByDueDate(matched)

	offset := filter.Offset()
	if offset >= len(matched) {
		return []*task.Task{}, nil
	}
	end := min(offset+filter.Size, len(matched))

	res := make([]*task.Task, 0, end-offset)
	for _, t := range matched[offset:end] {
		res = append(res, t.Clone())
	}
	return res, nil
}

// FindDueForNotification - только чтение, без побочных эффектов.
func (s *TaskStorage) FindDueForNotification(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	due := []*task.Task{}
	for _, id := range s.ids {
		t := s.storage[id]
		if t.DueForNotification(now) {
			due = append(due, t)
		}
	}
	sortByDueDate(due)

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	ids := make([]uuid.UUID, 0, len(due))
	for _, t := range due {
		ids = append(ids, t.UUID)
	}
	return ids, nil
}

// MarkNotified проставляет notified_at только задачам, окно которых всё ещё открыто на now
// и отметка ещё пуста. Задача, чьё расписание изменили после выборки, не отмечается.
// Проверка и запись выполняются под одной блокировкой, поэтому конкурентные вызовы
// с пересекающимися id никогда не засчитывают одну задачу дважды.
func (s *TaskStorage) MarkNotified(ctx context.Context, ids []uuid.UUID, now time.Time) (int64, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	var changed int64
	stamp := now.UTC()
	for _, id := range ids {
		t, ok := s.storage[id]
		if !ok || !t.DueForNotification(stamp) {
			continue
		}
		at := stamp
		t.NotifiedAt = &at
		changed++
	}
	return changed, nil
}

func sortByDueDate(tasks []*task.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].DueDate, tasks[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}
