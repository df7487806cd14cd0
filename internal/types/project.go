package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/gorm"
)

// Project groups every section generated for one business/workflow run.
// Soft-deleted only; history under it is never hard-deleted while it exists.
type Project struct {
  ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
  UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
  User        *User           `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
  Name        string          `gorm:"column:name;not null" json:"name"`
  Active      bool            `gorm:"column:active;not null" json:"active"`
  CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
  UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
  DeletedAt   gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`
}

func (Project) TableName() string { return "project" }
