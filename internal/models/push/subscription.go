package push

import (
	"time"

	"github.com/google/uuid"
)

// Subscription - одна подписка браузера на web push. Endpoint уникален глобально.
type Subscription struct {
	UUID      uuid.UUID  `json:"id" db:"uuid"`
	OwnerID   uuid.UUID  `json:"owner_id" db:"owner_id"`
	Endpoint  string     `json:"endpoint" db:"endpoint"`
	P256dh    string     `json:"-" db:"p256dh"`
	Auth      string     `json:"-" db:"auth"`
	UserAgent string     `json:"user_agent,omitempty" db:"user_agent"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}
