package types

import (
  "time"

  "github.com/google/uuid"
)

// MessageRole is a closed set. Adding a role means touching ValidRole and
// every switch over it, on purpose.
type MessageRole string

const (
  RoleUser      MessageRole = "user"
  RoleAssistant MessageRole = "assistant"
)

func ValidRole(r MessageRole) bool {
  switch r {
  case RoleUser, RoleAssistant:
    return true
  }
  return false
}

// ChatMessage is append-only: it carries no UpdatedAt and is never mutated.
// The autoincrement ID breaks ties between messages created in the same
// clock tick, so (created_at, id) is the display order. UserID records the
// requesting user even for assistant messages, for audit.
type ChatMessage struct {
  ID              int64             `gorm:"primaryKey;autoIncrement" json:"id"`
  ConversationID  uuid.UUID         `gorm:"index;not null" json:"-"`
  Conversation    *Conversation     `gorm:"constraint:OnDelete:CASCADE;foreignKey:ConversationID;references:ID" json:"-"`
  UserID          uuid.UUID         `gorm:"index;not null" json:"-"`

  Role            MessageRole       `gorm:"type:varchar(16);not null;column:role" json:"role"`
  Content         string            `gorm:"type:text;not null;column:content" json:"content"`
  Model           *string           `gorm:"type:varchar(100);column:model" json:"model,omitempty"`

  CreatedAt       time.Time         `gorm:"not null;index" json:"createdAt"`
}

func (ChatMessage) TableName() string {
  return "chat_message"
}
