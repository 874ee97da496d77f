package task

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

const DefaultPageSize = 20
const MaxPageSize = 100

// Filter описывает выборку списка задач. Пустые поля не ограничивают выборку.
type Filter struct {
	OwnerID    *uuid.UUID
	Keyword    string
	Done       *bool
	CategoryID *uuid.UUID
	TagIDs     []uuid.UUID
	Page       int // с нуля
	Size       int
}

type Predicate func(*Task) bool

func OwnerIs(ownerID *uuid.UUID) Predicate {
	if ownerID == nil {
		return nil
	}
	return func(t *Task) bool { return t.OwnerID == *ownerID }
}

func TitleContains(keyword string) Predicate {
	if keyword == "" {
		return nil
	}
	k := strings.ToLower(keyword)
	return func(t *Task) bool { return strings.Contains(strings.ToLower(t.Title), k) }
}

func DoneIs(done *bool) Predicate {
	if done == nil {
		return nil
	}
	return func(t *Task) bool { return t.Done == *done }
}

func CategoryIs(categoryID *uuid.UUID) Predicate {
	if categoryID == nil {
		return nil
	}
	return func(t *Task) bool { return t.CategoryID != nil && *t.CategoryID == *categoryID }
}

// HasAnyTag совпадает, если у задачи есть хотя бы один из тегов
func HasAnyTag(tagIDs []uuid.UUID) Predicate {
	if len(tagIDs) == 0 {
		return nil
	}
	return func(t *Task) bool {
		for _, id := range tagIDs {
			if slices.Contains(t.TagIDs, id) {
				return true
			}
		}
		return false
	}
}

// All объединяет предикаты через И, nil-предикаты пропускаются.
func All(predicates ...Predicate) Predicate {
	return func(t *Task) bool {
		for _, p := range predicates {
			if p != nil && !p(t) {
				return false
			}
		}
		return true
	}
}

func (f Filter) Predicate() Predicate {
	return All(
		OwnerIs(f.OwnerID),
		TitleContains(f.Keyword),
		DoneIs(f.Done),
		CategoryIs(f.CategoryID),
		HasAnyTag(f.TagIDs),
	)
}

func (f Filter) Normalized() Filter {
	if f.Page < 0 {
		f.Page = 0
	}
	if f.Size <= 0 {
		f.Size = DefaultPageSize
	}
	if f.Size > MaxPageSize {
		f.Size = MaxPageSize
	}
	return f
}

func (f Filter) Offset() int {
	return f.Page * f.Size
}
