package types

import (
  "time"

  "github.com/google/uuid"
)

// OneTimeCode backs the forgot-password flow. Code holds the sha256 hex of
// the token that was mailed out, never the token itself.
type OneTimeCode struct {
  ID                  uuid.UUID                 `gorm:"type:uuid;primaryKey"`
  UserID              uuid.UUID                 `gorm:"index;not null"`
  User                *User                     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID"`

  Code                string                    `gorm:"uniqueIndex;not null;column:code"`
  ExpiresAt           time.Time                 `gorm:"column:expires_at"`
  Used                bool                      `gorm:"not null;default:false"`

  CreatedAt           time.Time                 `gorm:"not null"`
  UpdatedAt           time.Time                 `gorm:"not null"`
}

func (OneTimeCode) TableName() string {
  return "one_time_code"
}
