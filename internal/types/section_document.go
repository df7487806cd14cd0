package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
)

const (
  SectionStatusPending  = "pending"
  SectionStatusApproved = "approved"
)

// SectionDocument is one version of a section's nested content. Rows are
// append-only: every write inserts a new version and flips the previous
// current row off. Exactly one row per (project, section_type) is current.
type SectionDocument struct {
  ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
  ProjectID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_section_document_version,unique,priority:1" json:"project_id"`
  Project     *Project        `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
  SectionType string          `gorm:"column:section_type;not null;index:idx_section_document_version,unique,priority:2" json:"section_type"`
  Version     int             `gorm:"column:version;not null;index:idx_section_document_version,unique,priority:3" json:"version"`
  IsCurrent   bool            `gorm:"column:is_current;not null;index" json:"is_current"`
  Status      string          `gorm:"column:status;not null" json:"status"`
  Content     datatypes.JSON  `gorm:"column:content;not null" json:"content"`

  // Hash of the canonicalized content, used to skip no-op writes cheaply.
  ContentHash string          `gorm:"column:content_hash;type:text;not null;index" json:"content_hash"`

  CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
  UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (SectionDocument) TableName() string { return "section_document" }
