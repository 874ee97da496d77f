package service

import (
	"context"
	"time"

	"todoTracker/internal/models/push"
	"todoTracker/internal/models/task"
	"todoTracker/internal/notification/inapp"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	List(context.Context, task.Filter) ([]*task.Task, error)
	Delete(context.Context, uuid.UUID) error
}

type SubscriptionRepository interface {
	Upsert(context.Context, *push.Subscription) error
	ListByOwner(context.Context, uuid.UUID) ([]*push.Subscription, error)
	DeleteByOwnerAndEndpoint(context.Context, uuid.UUID, string) error
}

type FeedReader interface {
	Recent() []inapp.Message
}

type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }
