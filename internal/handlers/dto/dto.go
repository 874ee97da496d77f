package dto

import (
	"time"

	"todoTracker/internal/models/task"
	"todoTracker/internal/service"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Title               string      `json:"title" validate:"required,max=255"`
	DueDate             *time.Time  `json:"due_date,omitempty"`
	RemindOffsetMinutes *int        `json:"remind_offset_minutes,omitempty" validate:"omitempty,min=0,max=525600"`
	RepeatKind          string      `json:"repeat_kind,omitempty" validate:"omitempty,oneof=NONE DAILY WEEKLY MONTHLY"`
	CategoryID          *uuid.UUID  `json:"category_id,omitempty"`
	TagIDs              []uuid.UUID `json:"tag_ids,omitempty" validate:"max=50"`
}

func (r CreateTaskRequest) ToInput() service.CreateTaskInput {
	return service.CreateTaskInput{
		Title:               r.Title,
		DueDate:             r.DueDate,
		RemindOffsetMinutes: r.RemindOffsetMinutes,
		RepeatKind:          task.RepeatKind(r.RepeatKind),
		CategoryID:          r.CategoryID,
		TagIDs:              r.TagIDs,
	}
}

// UpdateTaskRequest - полная замена редактируемых полей (PUT)
type UpdateTaskRequest struct {
	Title               string      `json:"title" validate:"required,max=255"`
	Done                bool        `json:"done"`
	DueDate             *time.Time  `json:"due_date"`
	RemindOffsetMinutes *int        `json:"remind_offset_minutes" validate:"omitempty,min=0,max=525600"`
	RepeatKind          string      `json:"repeat_kind" validate:"omitempty,oneof=NONE DAILY WEEKLY MONTHLY"`
	CategoryID          *uuid.UUID  `json:"category_id"`
	TagIDs              []uuid.UUID `json:"tag_ids" validate:"max=50"`
}

func (r UpdateTaskRequest) ToOptions() []task.TaskOption {
	repeat := task.RepeatKind(r.RepeatKind)
	if repeat == "" {
		repeat = task.RepeatNone
	}
	return []task.TaskOption{
		task.WithTitle(r.Title),
		task.WithDone(r.Done),
		task.WithDueDate(r.DueDate),
		task.WithRemindOffset(r.RemindOffsetMinutes),
		task.WithRepeatKind(repeat),
		task.WithCategory(r.CategoryID),
		task.WithTags(r.TagIDs),
	}
}

type TaskResponse struct {
	UUID                uuid.UUID   `json:"id"`
	Title               string      `json:"title"`
	Done                bool        `json:"done"`
	DueDate             *time.Time  `json:"due_date,omitempty"`
	RemindOffsetMinutes *int        `json:"remind_offset_minutes,omitempty"`
	RepeatKind          string      `json:"repeat_kind"`
	CategoryID          *uuid.UUID  `json:"category_id,omitempty"`
	TagIDs              []uuid.UUID `json:"tag_ids"`
	NotifiedAt          *time.Time  `json:"notified_at,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           *time.Time  `json:"updated_at,omitempty"`
	Version             int         `json:"version"`
	IsOverdue           bool        `json:"is_overdue"`
}

func FromTask(t *task.Task) TaskResponse {
	tags := t.TagIDs
	if tags == nil {
		tags = []uuid.UUID{}
	}
	return TaskResponse{
		UUID:                t.UUID,
		Title:               t.Title,
		Done:                t.Done,
		DueDate:             t.DueDate,
		RemindOffsetMinutes: t.RemindOffsetMinutes,
		RepeatKind:          string(t.RepeatKind),
		CategoryID:          t.CategoryID,
		TagIDs:              tags,
		NotifiedAt:          t.NotifiedAt,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
		Version:             t.Version,
		IsOverdue:           !t.Done && t.DueDate != nil && t.DueDate.Before(time.Now()),
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

// CompletionResponse: degraded=true, если задача сохранена, а следующий экземпляр - нет
type CompletionResponse struct {
	Task     TaskResponse  `json:"task"`
	Next     *TaskResponse `json:"next,omitempty"`
	Degraded bool          `json:"degraded"`
	Warning  string        `json:"warning,omitempty"`
}

func FromCompletion(r *service.CompletionResult) CompletionResponse {
	resp := CompletionResponse{Task: FromTask(r.Task)}
	if r.Next != nil {
		next := FromTask(r.Next)
		resp.Next = &next
	}
	if r.Degraded() {
		resp.Degraded = true
		resp.Warning = "задача сохранена, но следующий повтор не создан"
	}
	return resp
}

// SubscribeRequest повторяет формат PushSubscription.toJSON() браузера
type SubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url,max=1024"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required,max=255"`
		Auth   string `json:"auth" validate:"required,max=255"`
	} `json:"keys"`
}

type PublicKeyResponse struct {
	PublicKey string `json:"publicKey"`
	Enabled   bool   `json:"enabled"`
}
