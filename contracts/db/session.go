package db

import (
	"github.com/google/uuid"

	"javazone-calendar/pkg/outbox"
)

// Session 表示 sessions 表的一行，Users 为已加入用户的 email
type Session struct {
	ID    uuid.UUID `json:"id"`
	Hash  string    `json:"hash"`
	Data  string    `json:"data"`
	Users []string  `json:"users,omitempty"`
}

// User 表示 users 表的完整结构
type User struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	PictureURL string `json:"picture_url,omitempty"`
}

// SyncBatch is everything one reconciliation pass writes. It is applied in a
// single transaction.
type SyncBatch struct {
	Added   []*Session
	Changed []*Session
	Deleted []uuid.UUID
	Entries []*outbox.Entry
}

// Empty reports whether applying the batch would change nothing.
func (b *SyncBatch) Empty() bool {
	return len(b.Added) == 0 && len(b.Changed) == 0 && len(b.Deleted) == 0 && len(b.Entries) == 0
}
