package inapp

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultCapacity = 200

// Message - одна запись in-app ленты
type Message struct {
	TaskID    uuid.UUID  `json:"todoId"`
	OwnerID   uuid.UUID  `json:"userId"`
	Text      string     `json:"text"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Feed - кольцевой буфер фиксированной ёмкости. При переполнении вытесняется самое старое сообщение.
type Feed struct {
	mtx   sync.RWMutex
	buf   []Message
	head  int // индекс следующей записи
	count int
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{buf: make([]Message, capacity)}
}

func (f *Feed) Push(msg Message) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	f.buf[f.head] = msg
	f.head = (f.head + 1) % len(f.buf)
	if f.count < len(f.buf) {
		f.count++
	}
}

// Recent возвращает копию ленты, самые новые сообщения первыми
func (f *Feed) Recent() []Message {
	f.mtx.RLock()
	defer f.mtx.RUnlock()

	out := make([]Message, 0, f.count)
	for i := 1; i <= f.count; i++ {
		idx := (f.head - i + len(f.buf)) % len(f.buf)
		out = append(out, f.buf[idx])
	}
	return out
}

func (f *Feed) Len() int {
	f.mtx.RLock()
	defer f.mtx.RUnlock()
	return f.count
}

func (f *Feed) Cap() int {
	return len(f.buf)
}
