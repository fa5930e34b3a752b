package types

import (
  "time"

  "github.com/google/uuid"
)

// Conversation is a titled thread of chat messages owned by one user. The ID
// doubles as the opaque token handed to clients, both for addressing and as
// the pagination cursor. The owning user never changes after creation.
type Conversation struct {
  ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"token"`
  UserID      uuid.UUID         `gorm:"index;not null" json:"-"`
  User        *User             `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`

  Title       string            `gorm:"type:varchar(255);column:title" json:"title"`

  CreatedAt   time.Time         `gorm:"not null;index" json:"createdAt"`
  UpdatedAt   time.Time         `gorm:"not null;index" json:"updatedAt"`
}

func (Conversation) TableName() string {
  return "conversation"
}
