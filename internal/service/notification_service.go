package service

import (
	"time"

	"todoTracker/internal/models/task"
	"todoTracker/internal/notification/inapp"

	"github.com/google/uuid"
)

const DefaultMinutesFallback = 60

type RecentQuery struct {
	After           *time.Time
	MinutesFallback int
	Page            int
	Size            int
}

type Paged[T any] struct {
	Content []T  `json:"content"`
	HasNext bool `json:"hasNext"`
}

// NotificationService читает in-app ленту. Лента общая на процесс, поэтому фильтрация по владельцу обязательна.
type NotificationService struct {
	feed FeedReader
	now  Clock
}

func NewNotificationService(feed FeedReader) *NotificationService {
	return &NotificationService{feed: feed, now: utcNow}
}

// Recent: сообщения владельца новее After (или за последние MinutesFallback минут), newest first
func (s *NotificationService) Recent(ownerID uuid.UUID, q RecentQuery) Paged[inapp.Message] {
	since := s.now().Add(-DefaultMinutesFallback * time.Minute)
	if q.MinutesFallback > 0 {
		since = s.now().Add(-time.Duration(q.MinutesFallback) * time.Minute)
	}
	if q.After != nil {
		since = *q.After
	}

	page, size := q.Page, q.Size
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = task.DefaultPageSize
	}
	if size > task.MaxPageSize {
		size = task.MaxPageSize
	}

	matched := []inapp.Message{}
	for _, msg := range s.feed.Recent() {
		if msg.OwnerID == ownerID && msg.CreatedAt.After(since) {
			matched = append(matched, msg)
		}
	}

	from := page * size
	if from >= len(matched) {
		return Paged[inapp.Message]{Content: []inapp.Message{}, HasNext: false}
	}
	to := min(from+size, len(matched))
	return Paged[inapp.Message]{Content: matched[from:to], HasNext: to < len(matched)}
}
