package types

import (
  "time"

  "github.com/google/uuid"
)

type User struct {
  ID                  uuid.UUID                 `gorm:"type:uuid;primaryKey" json:"id"`

  Name                string                    `gorm:"not null;column:name" json:"name"`
  Email               string                    `gorm:"uniqueIndex;not null;column:email" json:"email"`
  Password            string                    `gorm:"not null;column:password" json:"-"`
  IsVerified          bool                      `gorm:"not null;default:false;column:is_verified" json:"isVerified"`
  AvatarBucketKey     string                    `gorm:"column:avatar_bucket_key" json:"avatarBucketKey,omitempty"`
  AvatarURL           string                    `gorm:"column:avatar_url" json:"avatarURL,omitempty"`

  CreatedAt           time.Time                 `gorm:"not null" json:"createdAt"`
  UpdatedAt           time.Time                 `gorm:"not null" json:"updatedAt"`
}

func (User) TableName() string {
  return "user"
}
