package task

import (
	"time"

	"github.com/google/uuid"
)

type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	if title == "" {
		return nil
	}
	return func(task *Task) {
		task.Title = title
	}
}

func WithDone(done bool) TaskOption {
	return func(task *Task) {
		task.Done = done
	}
}

// nil снимает срок
func WithDueDate(dueDate *time.Time) TaskOption {
	return func(task *Task) {
		if dueDate == nil {
			task.DueDate = nil
			return
		}
		d := dueDate.UTC()
		task.DueDate = &d
	}
}

// nil или неположительное значение отключает напоминание
func WithRemindOffset(minutes *int) TaskOption {
	return func(task *Task) {
		if minutes == nil || *minutes <= 0 {
			task.RemindOffsetMinutes = nil
			return
		}
		m := *minutes
		task.RemindOffsetMinutes = &m
	}
}

func WithRepeatKind(kind RepeatKind) TaskOption {
	if kind == "" {
		return nil
	}
	return func(task *Task) {
		task.RepeatKind = kind
	}
}

func WithCategory(categoryID *uuid.UUID) TaskOption {
	return func(task *Task) {
		if categoryID == nil {
			task.CategoryID = nil
			return
		}
		id := *categoryID
		task.CategoryID = &id
	}
}

func WithTags(tagIDs []uuid.UUID) TaskOption {
	return func(task *Task) {
		task.TagIDs = append([]uuid.UUID{}, tagIDs...)
	}
}

// Apply пропускает nil-опции, которые возвращают конструкторы при пустых значениях.
func (t *Task) Apply(options ...TaskOption) {
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
}
