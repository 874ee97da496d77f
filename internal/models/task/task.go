package task

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

type Task struct {
	UUID                uuid.UUID   `json:"uuid" db:"uuid"`
	Title               string      `json:"title" db:"title"`
	Done                bool        `json:"done" db:"done"`
	DueDate             *time.Time  `json:"due_date,omitempty" db:"due_date"`
	RemindOffsetMinutes *int        `json:"remind_offset_minutes,omitempty" db:"remind_offset_minutes"`
	RepeatKind          RepeatKind  `json:"repeat_kind" db:"repeat_kind"`
	OwnerID             uuid.UUID   `json:"owner_id" db:"owner_id"`
	CategoryID          *uuid.UUID  `json:"category_id,omitempty" db:"category_id"`
	TagIDs              []uuid.UUID `json:"tag_ids" db:"tag_ids"`
	// NotifiedAt пишет только подсистема уведомлений; обновление задачи может лишь сбросить его в nil
	NotifiedAt *time.Time `json:"notified_at,omitempty" db:"notified_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty" db:"updated_at,omitempty"`
	Version    int        `json:"version" db:"version"`
}

type RepeatKind string

const RepeatNone RepeatKind = "NONE"
const RepeatDaily RepeatKind = "DAILY"
const RepeatWeekly RepeatKind = "WEEKLY"
const RepeatMonthly RepeatKind = "MONTHLY"

func (r RepeatKind) Valid() bool {
	switch r {
	case RepeatNone, RepeatDaily, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}

// момент открытия окна напоминания: due_date - remind_offset
func (t *Task) ReminderAt() (time.Time, bool) {
	if t.DueDate == nil || t.RemindOffsetMinutes == nil || *t.RemindOffsetMinutes <= 0 {
		return time.Time{}, false
	}
	return t.DueDate.Add(-time.Duration(*t.RemindOffsetMinutes) * time.Minute), true
}

// просроченные задачи остаются в выборке, пока не будет проставлен notified_at
func (t *Task) DueForNotification(now time.Time) bool {
	if t.NotifiedAt != nil {
		return false
	}
	at, ok := t.ReminderAt()
	if !ok {
		return false
	}
	return !now.Before(at)
}

// NormalizeReminder оставляет смещение только если задан срок и смещение положительное.
func (t *Task) NormalizeReminder() {
	if t.DueDate == nil || t.RemindOffsetMinutes == nil || *t.RemindOffsetMinutes <= 0 {
		t.RemindOffsetMinutes = nil
	}
	if t.RepeatKind == "" {
		t.RepeatKind = RepeatNone
	}
}

// ScheduleChanged сообщает, изменились ли срок или смещение напоминания относительно prev.
func (t *Task) ScheduleChanged(prev *Task) bool {
	return !equalTime(t.DueDate, prev.DueDate) || !equalInt(t.RemindOffsetMinutes, prev.RemindOffsetMinutes)
}

func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.RemindOffsetMinutes != nil {
		o := *t.RemindOffsetMinutes
		c.RemindOffsetMinutes = &o
	}
	if t.CategoryID != nil {
		id := *t.CategoryID
		c.CategoryID = &id
	}
	if t.NotifiedAt != nil {
		n := *t.NotifiedAt
		c.NotifiedAt = &n
	}
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		c.UpdatedAt = &u
	}
	c.TagIDs = slices.Clone(t.TagIDs)
	return &c
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func equalInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
