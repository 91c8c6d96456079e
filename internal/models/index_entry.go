package models

import (
	"crypto/sha1"
	"encoding/hex"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// IndexCollection names the semantic index collection every entry belongs to.
const IndexCollection = "chat-history"

type IndexEntry struct {
	ID         string          `gorm:"column:id;type:text;primaryKey" json:"id"`
	Collection string          `gorm:"column:collection;type:text;index" json:"collection"`
	UserID     string          `gorm:"column:user_id;type:text;index" json:"user_id"`
	Content    string          `gorm:"column:content;type:text" json:"content"`
	Embedding  pgvector.Vector `gorm:"column:embedding;type:vector" json:"embedding"`
	Metadata   datatypes.JSON  `gorm:"column:metadata;type:jsonb" json:"metadata"`
}

func (IndexEntry) TableName() string { return "chat_history_index" }

// IndexMetadata is stored alongside every embedding.
type IndexMetadata struct {
	UserID    string  `json:"user_id"`
	Role      Role    `json:"role"`
	Timestamp string  `json:"timestamp"`
	SessionID *string `json:"session_id"`
}

// IndexID is the deterministic entry id: sha1 over user id, role, timestamp
// and content, concatenated without separators.
func IndexID(userID string, role Role, timestamp, content string) string {
	sum := sha1.Sum([]byte(userID + string(role) + timestamp + content))
	return hex.EncodeToString(sum[:])
}

func IndexIDForTurn(t Turn) string {
	return IndexID(t.UserID, t.Role, t.Timestamp, t.Content)
}
