package models

import (
	"time"
)

const (
	MemoryKMin     = 4
	MemoryKMax     = 50
	MemoryKDefault = 12
)

// Session binds a generated conversation owner to its display settings.
type Session struct {
	SessionID string    `bson:"session_id" json:"session_id"` // uuid v4
	UserID    string    `bson:"user_id" json:"user_id"`       // user_xxxxxxxx
	MemoryK   int       `bson:"memory_k" json:"memory_k"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func ValidMemoryK(k int) bool { return k >= MemoryKMin && k <= MemoryKMax }
