package task

import (
	"time"

	"github.com/google/uuid"
)

// AddInterval сдвигает base ровно на один шаг повторения.
// Месяц прибавляется с прижатием к последнему дню: 31 января -> 28/29 февраля.
func AddInterval(base time.Time, kind RepeatKind) time.Time {
	switch kind {
	case RepeatDaily:
		return base.AddDate(0, 0, 1)
	case RepeatWeekly:
		return base.AddDate(0, 0, 7)
	case RepeatMonthly:
		return addMonthClamped(base)
	default:
		return base
	}
}

func addMonthClamped(base time.Time) time.Time {
	y, m, d := base.Date()
	firstOfNext := time.Date(y, m+1, 1, base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), base.Location())
	lastDay := firstOfNext.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), d, base.Hour(), base.Minute(), base.Second(), base.Nanosecond(), base.Location())
}

// NextOccurrence строит следующий экземпляр повторяющейся задачи.
// Исходная задача не изменяется.
func (t *Task) NextOccurrence(now time.Time, newID func() uuid.UUID) *Task {
	base := now
	if t.DueDate != nil {
		base = *t.DueDate
	}
	next := AddInterval(base, t.RepeatKind)

	occ := &Task{
		UUID:       newID(),
		Title:      t.Title,
		Done:       false,
		DueDate:    &next,
		RepeatKind: t.RepeatKind,
		OwnerID:    t.OwnerID,
		NotifiedAt: nil,
	}
	if t.RemindOffsetMinutes != nil {
		o := *t.RemindOffsetMinutes
		occ.RemindOffsetMinutes = &o
	}
	if t.CategoryID != nil {
		c := *t.CategoryID
		occ.CategoryID = &c
	}
	occ.TagIDs = append([]uuid.UUID{}, t.TagIDs...)
	return occ
}
