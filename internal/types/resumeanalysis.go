package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
)

type ResumeAnalysis struct {
  ID          int64             `gorm:"primaryKey;autoIncrement" json:"id"`
  UserID      uuid.UUID         `gorm:"index;not null" json:"-"`
  User        *User             `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`

  Filename    string            `gorm:"type:varchar(255);column:filename" json:"filename"`
  JobRole     string            `gorm:"type:varchar(255);column:job_role" json:"jobRole"`
  Feedback    string            `gorm:"type:text;not null;column:feedback" json:"feedback"`
  BucketKey   string            `gorm:"column:bucket_key" json:"-"`
  Meta        datatypes.JSON    `gorm:"column:meta" json:"meta,omitempty"`

  CreatedAt   time.Time         `gorm:"not null" json:"createdAt"`
}

func (ResumeAnalysis) TableName() string {
  return "resume_analysis"
}
