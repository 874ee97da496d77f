package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"todoTracker/internal/models/push"
	"todoTracker/internal/models/task"
	"todoTracker/internal/notification/inapp"
	rep "todoTracker/internal/repository"
	"todoTracker/internal/repository/task/inmemory"
	"todoTracker/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskRepository - мок репозитория
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) List(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)

func ptr[T any](v T) *T { return &v }

func assertBusinessCode(t *testing.T, err error, code string) {
	t.Helper()
	var busErr *service.BusinessError
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, code, busErr.Code)
}

// TestTaskService_HealthCheck тестирует HealthCheck
func TestTaskService_HealthCheck(t *testing.T) {
	tests := []struct {
		name        string
		setupMock   func(*MockTaskRepository)
		expectError bool
	}{
		{
			name: "success - health check passes",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(nil)
			},
		},
		{
			name: "error - health check fails",
			setupMock: func(m *MockTaskRepository) {
				m.On("HealthCheck", mock.Anything).Return(errors.New("db connection failed"))
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			tt.setupMock(mockRepo)

			svc := service.NewTaskService(mockRepo, nil)
			err := svc.HealthCheck(context.Background())

			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "проверка здоровья сервиса")
			} else {
				assert.NoError(t, err)
			}
			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_Create тестирует создание и нормализацию напоминания
func TestTaskService_Create(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	due := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		input      service.CreateTaskInput
		wantCode   string
		wantOffset *int
		wantRepeat task.RepeatKind
	}{
		{
			name:       "offset kept with due date",
			input:      service.CreateTaskInput{Title: "  Отчёт  ", DueDate: &due, RemindOffsetMinutes: ptr(30), RepeatKind: task.RepeatDaily},
			wantOffset: ptr(30),
			wantRepeat: task.RepeatDaily,
		},
		{
			name:       "offset dropped without due date",
			input:      service.CreateTaskInput{Title: "Отчёт", RemindOffsetMinutes: ptr(30)},
			wantRepeat: task.RepeatNone,
		},
		{
			name:       "zero offset dropped",
			input:      service.CreateTaskInput{Title: "Отчёт", DueDate: &due, RemindOffsetMinutes: ptr(0)},
			wantRepeat: task.RepeatNone,
		},
		{
			name:     "empty title",
			input:    service.CreateTaskInput{Title: "   "},
			wantCode: service.CodeValidation,
		},
		{
			name:     "unknown repeat kind",
			input:    service.CreateTaskInput{Title: "Отчёт", RepeatKind: "YEARLY"},
			wantCode: service.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockTaskRepository)
			if tt.wantCode == "" {
				mockRepo.On("Create", mock.Anything, mock.AnythingOfType("*task.Task")).Return(nil)
			}

			svc := service.NewTaskService(mockRepo, nil)
			created, err := svc.Create(ctx, owner, tt.input)

			if tt.wantCode != "" {
				assertBusinessCode(t, err, tt.wantCode)
				mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Отчёт", created.Title)
			assert.Equal(t, owner, created.OwnerID)
			assert.Equal(t, tt.wantOffset, created.RemindOffsetMinutes)
			assert.Equal(t, tt.wantRepeat, created.RepeatKind)
			assert.Nil(t, created.NotifiedAt)
			mockRepo.AssertExpectations(t)
		})
	}
}

// TestTaskService_Get_Ownership тестирует доступ к чужой и отсутствующей задаче
func TestTaskService_Get_Ownership(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	id := uuid.New()

	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetByID", mock.Anything, id).Return(&task.Task{UUID: id, OwnerID: owner, Title: "x"}, nil)
	missing := uuid.New()
	mockRepo.On("GetByID", mock.Anything, missing).Return(nil, rep.ErrNotFound)

	svc := service.NewTaskService(mockRepo, nil)

	got, err := svc.Get(ctx, owner, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.UUID)

	_, err = svc.Get(ctx, uuid.New(), id)
	assertBusinessCode(t, err, service.CodeForbidden)

	_, err = svc.Get(ctx, owner, missing)
	assertBusinessCode(t, err, service.CodeNotFound)
}

// TestTaskService_List_ForcesOwner тестирует, что список всегда ограничен владельцем
func TestTaskService_List_ForcesOwner(t *testing.T) {
	owner := uuid.New()
	mockRepo := new(MockTaskRepository)
	mockRepo.On("List", mock.Anything, mock.MatchedBy(func(f task.Filter) bool {
		return f.OwnerID != nil && *f.OwnerID == owner && f.Size == task.DefaultPageSize && f.Keyword == "milk"
	})).Return([]*task.Task{}, nil)

	svc := service.NewTaskService(mockRepo, nil)
	stranger := uuid.New()
	_, err := svc.List(context.Background(), owner, task.Filter{OwnerID: &stranger, Keyword: "milk"})
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

// TestTaskService_Update_VersionConflict тестирует конфликт версий
func TestTaskService_Update_VersionConflict(t *testing.T) {
	owner := uuid.New()
	id := uuid.New()
	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetByID", mock.Anything, id).Return(&task.Task{UUID: id, OwnerID: owner, Title: "x", RepeatKind: task.RepeatNone}, nil)
	mockRepo.On("Update", mock.Anything, mock.Anything).Return(rep.ErrVersionConflict)

	svc := service.NewTaskService(mockRepo, nil)
	_, err := svc.Update(context.Background(), owner, id, task.WithTitle("y"))
	assertBusinessCode(t, err, service.CodeVersionConflict)
	assert.ErrorIs(t, err, rep.ErrVersionConflict)
}

// TestRecurrence_Daily тестирует завершение ежедневной задачи
func TestRecurrence_Daily(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	owner := uuid.New()
	tag := uuid.New()
	due := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	svc := service.NewTaskService(store, service.NewRecurrenceGenerator(store))
	created, err := svc.Create(ctx, owner, service.CreateTaskInput{
		Title:               "Полить цветы",
		DueDate:             &due,
		RemindOffsetMinutes: ptr(15),
		RepeatKind:          task.RepeatDaily,
		TagIDs:              []uuid.UUID{tag},
	})
	require.NoError(t, err)

	result, err := svc.ToggleDone(ctx, owner, created.UUID)
	require.NoError(t, err)
	require.False(t, result.Degraded())
	require.NotNil(t, result.Next)

	next, err := store.GetByID(ctx, result.Next.UUID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 11, 9, 0, 0, 0, time.UTC), *next.DueDate)
	assert.False(t, next.Done)
	assert.Nil(t, next.NotifiedAt)
	assert.Equal(t, "Полить цветы", next.Title)
	assert.Equal(t, owner, next.OwnerID)
	assert.Equal(t, []uuid.UUID{tag}, next.TagIDs)
	assert.Equal(t, 15, *next.RemindOffsetMinutes)
	assert.Equal(t, task.RepeatDaily, next.RepeatKind)

	// исходная задача не изменена, кроме done
	original, err := store.GetByID(ctx, created.UUID)
	require.NoError(t, err)
	assert.True(t, original.Done)
	assert.Equal(t, due, *original.DueDate)

	all, err := store.List(ctx, task.Filter{OwnerID: &owner})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

// TestRecurrence_NoSuccessor тестирует случаи, когда следующий экземпляр не создаётся
func TestRecurrence_NoSuccessor(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	due := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	t.Run("repeat none", func(t *testing.T) {
		store := inmemory.NewTaskStorage()
		svc := service.NewTaskService(store, service.NewRecurrenceGenerator(store))
		created, err := svc.Create(ctx, owner, service.CreateTaskInput{Title: "Разово", DueDate: &due})
		require.NoError(t, err)

		result, err := svc.ToggleDone(ctx, owner, created.UUID)
		require.NoError(t, err)
		assert.Nil(t, result.Next)

		all, err := store.List(ctx, task.Filter{OwnerID: &owner})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("true to false", func(t *testing.T) {
		store := inmemory.NewTaskStorage()
		svc := service.NewTaskService(store, service.NewRecurrenceGenerator(store))
		created, err := svc.Create(ctx, owner, service.CreateTaskInput{Title: "Каждый день", DueDate: &due, RepeatKind: task.RepeatDaily})
		require.NoError(t, err)

		_, err = svc.ToggleDone(ctx, owner, created.UUID)
		require.NoError(t, err)
		result, err := svc.ToggleDone(ctx, owner, created.UUID)
		require.NoError(t, err)
		assert.False(t, result.Task.Done)
		assert.Nil(t, result.Next)

		all, err := store.List(ctx, task.Filter{OwnerID: &owner})
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("update keeping done", func(t *testing.T) {
		store := inmemory.NewTaskStorage()
		svc := service.NewTaskService(store, service.NewRecurrenceGenerator(store))
		created, err := svc.Create(ctx, owner, service.CreateTaskInput{Title: "Каждую неделю", DueDate: &due, RepeatKind: task.RepeatWeekly})
		require.NoError(t, err)

		first, err := svc.Update(ctx, owner, created.UUID, task.WithDone(true))
		require.NoError(t, err)
		require.NotNil(t, first.Next)

		again, err := svc.Update(ctx, owner, created.UUID, task.WithTitle("Переименовано"), task.WithDone(true))
		require.NoError(t, err)
		assert.Nil(t, again.Next)
	})
}

// TestRecurrence_NullDueUsesNow тестирует базу "сейчас" для задачи без срока
func TestRecurrence_NullDueUsesNow(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	gen := service.NewRecurrenceGenerator(store)

	before := time.Now().UTC()
	next, err := gen.OnCompleted(ctx, false, &task.Task{UUID: uuid.New(), Title: "x", Done: true, RepeatKind: task.RepeatWeekly, OwnerID: uuid.New()})
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.WithinDuration(t, before.AddDate(0, 0, 7), *next.DueDate, 5*time.Second)
}

// TestRecurrence_PersistFailureIsDegraded тестирует, что ошибка создания не откатывает завершение
func TestRecurrence_PersistFailureIsDegraded(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	id := uuid.New()
	due := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetByID", mock.Anything, id).Return(&task.Task{
		UUID: id, OwnerID: owner, Title: "x", DueDate: &due, RepeatKind: task.RepeatMonthly, Version: 1,
	}, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(t *task.Task) bool { return t.Done })).Return(nil)
	mockRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := service.NewTaskService(mockRepo, service.NewRecurrenceGenerator(mockRepo))
	result, err := svc.ToggleDone(ctx, owner, id)
	require.NoError(t, err)
	assert.True(t, result.Degraded())
	assert.True(t, result.Task.Done)
	assert.Nil(t, result.Next)
	mockRepo.AssertExpectations(t)
}

// TestTaskService_Delete тестирует удаление своей и чужой задачи
func TestTaskService_Delete(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewTaskStorage()
	svc := service.NewTaskService(store, nil)
	owner := uuid.New()

	created, err := svc.Create(ctx, owner, service.CreateTaskInput{Title: "x"})
	require.NoError(t, err)

	assertBusinessCode(t, svc.Delete(ctx, uuid.New(), created.UUID), service.CodeForbidden)
	require.NoError(t, svc.Delete(ctx, owner, created.UUID))
	assertBusinessCode(t, svc.Delete(ctx, owner, created.UUID), service.CodeNotFound)
}

type memSubscriptions struct {
	subs map[string]*push.Subscription
}

func (m *memSubscriptions) Upsert(ctx context.Context, s *push.Subscription) error {
	s.UUID = uuid.New()
	m.subs[s.Endpoint] = s
	return nil
}

func (m *memSubscriptions) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*push.Subscription, error) {
	out := []*push.Subscription{}
	for _, s := range m.subs {
		if s.OwnerID == owner {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSubscriptions) DeleteByOwnerAndEndpoint(ctx context.Context, owner uuid.UUID, endpoint string) error {
	s, ok := m.subs[endpoint]
	if !ok || s.OwnerID != owner {
		return rep.ErrNotFound
	}
	delete(m.subs, endpoint)
	return nil
}

// TestPushSubscriptionService тестирует подписку и отписку
func TestPushSubscriptionService(t *testing.T) {
	ctx := context.Background()
	repo := &memSubscriptions{subs: map[string]*push.Subscription{}}
	svc := service.NewPushSubscriptionService(repo, "BPub")
	owner := uuid.New()

	assert.Equal(t, "BPub", svc.PublicKey())

	_, err := svc.Subscribe(ctx, owner, service.SubscribeInput{Endpoint: "http://insecure.example", P256dh: "k", Auth: "a"})
	assertBusinessCode(t, err, service.CodeValidation)

	sub, err := svc.Subscribe(ctx, owner, service.SubscribeInput{Endpoint: "https://fcm.googleapis.com/fcm/send/abc", P256dh: "k", Auth: "a"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sub.UUID)

	assertBusinessCode(t, svc.Unsubscribe(ctx, uuid.New(), sub.Endpoint), service.CodeNotFound)
	require.NoError(t, svc.Unsubscribe(ctx, owner, sub.Endpoint))

	subs, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

// TestNotificationService_Recent тестирует фильтрацию и пагинацию ленты
func TestNotificationService_Recent(t *testing.T) {
	feed := inapp.NewFeed(200)
	owner := uuid.New()
	now := time.Now().UTC()

	feed.Push(inapp.Message{TaskID: uuid.New(), OwnerID: owner, Text: "old", CreatedAt: now.Add(-2 * time.Hour)})
	for i := 0; i < 3; i++ {
		feed.Push(inapp.Message{TaskID: uuid.New(), OwnerID: owner, Text: "fresh", CreatedAt: now.Add(-time.Duration(3-i) * time.Minute)})
	}
	feed.Push(inapp.Message{TaskID: uuid.New(), OwnerID: uuid.New(), Text: "foreign", CreatedAt: now})

	svc := service.NewNotificationService(feed)

	page := svc.Recent(owner, service.RecentQuery{Size: 2})
	require.Len(t, page.Content, 2)
	assert.True(t, page.HasNext)
	assert.True(t, page.Content[0].CreatedAt.After(page.Content[1].CreatedAt))

	last := svc.Recent(owner, service.RecentQuery{Page: 1, Size: 2})
	require.Len(t, last.Content, 1)
	assert.False(t, last.HasNext)

	wide := svc.Recent(owner, service.RecentQuery{MinutesFallback: 180})
	assert.Len(t, wide.Content, 4)

	after := now.Add(-150 * time.Second)
	since := svc.Recent(owner, service.RecentQuery{After: &after})
	assert.Len(t, since.Content, 2)

	empty := svc.Recent(owner, service.RecentQuery{Page: 5})
	assert.Empty(t, empty.Content)
	assert.False(t, empty.HasNext)
}
