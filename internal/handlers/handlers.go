package handlers

import (
	"context"
	"net/http"
	"time"

	"todoTracker/internal/logger"
	"todoTracker/internal/middleware"
	"todoTracker/internal/models/push"
	"todoTracker/internal/models/task"
	"todoTracker/internal/notification/inapp"
	"todoTracker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	Create(ctx context.Context, ownerID uuid.UUID, in service.CreateTaskInput) (*task.Task, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*task.Task, error)
	List(ctx context.Context, ownerID uuid.UUID, filter task.Filter) ([]*task.Task, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, options ...task.TaskOption) (*service.CompletionResult, error)
	ToggleDone(ctx context.Context, ownerID, id uuid.UUID) (*service.CompletionResult, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type PushService interface {
	PublicKey() string
	Subscribe(ctx context.Context, ownerID uuid.UUID, in service.SubscribeInput) (*push.Subscription, error)
	Unsubscribe(ctx context.Context, ownerID uuid.UUID, endpoint string) error
}

type NotificationService interface {
	Recent(ownerID uuid.UUID, q service.RecentQuery) service.Paged[inapp.Message]
}

type Handler struct {
	tasks         TaskService
	push          PushService
	notifications NotificationService
}

func NewHandler(tasks TaskService, push PushService, notifications NotificationService) *Handler {
	return &Handler{tasks: tasks, push: push, notifications: notifications}
}

// RegisterPublic - маршруты без аутентификации
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/push/public-key", h.PublicKey)
}

// RegisterProtected - маршруты, требующие владельца в контексте
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Route("/todos", func(r chi.Router) {
		r.Post("/", h.CreateTask)
		r.Get("/", h.ListTasks)
		r.Get("/{id}", h.GetTask)
		r.Put("/{id}", h.UpdateTask)
		r.Patch("/{id}", h.ToggleTask)
		r.Delete("/{id}", h.DeleteTask)
	})
	r.Post("/push/subscribe", h.Subscribe)
	r.Delete("/push/unsubscribe", h.Unsubscribe)
	r.Get("/notifications/in-app/recent", h.RecentNotifications)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.tasks.HealthCheck(ctx); err != nil {
		logger.Error("HTTP: Хранилище недоступно", err)
		responseWithJSON(w, http.StatusServiceUnavailable, toPayload("status", "unavailable"))
		return
	}
	responseWithJSON(w, http.StatusOK, toPayload("status", "ok"))
}

// ownerFromRequest достаёт владельца, положенного Auth. Без него ответ 401 уже отправлен.
func ownerFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ownerID, err := middleware.OwnerID(r.Context())
	if err != nil {
		responseWithError(w, http.StatusUnauthorized, err.Error())
		return uuid.Nil, false
	}
	return ownerID, true
}
