package types

import (
  "time"

  "github.com/google/uuid"
  "gorm.io/datatypes"
)

const (
  FieldTypeText       = "text"
  FieldTypeList       = "list"
  FieldTypeStructured = "structured"
)

// FieldRecord is one version of an individually addressable, individually
// approvable leaf value of a section. Append-only like SectionDocument:
// exactly one row per (project, section_type, field_id) is current.
// A new version always starts unapproved unless the reconciler replays an
// identical value.
type FieldRecord struct {
  ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
  ProjectID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_field_record_version,unique,priority:1" json:"project_id"`
  Project      *Project        `gorm:"constraint:OnDelete:CASCADE;foreignKey:ProjectID;references:ID" json:"project,omitempty"`
  SectionType  string          `gorm:"column:section_type;not null;index:idx_field_record_version,unique,priority:2" json:"section_type"`
  FieldID      string          `gorm:"column:field_id;not null;index:idx_field_record_version,unique,priority:3" json:"field_id"`
  Version      int             `gorm:"column:version;not null;index:idx_field_record_version,unique,priority:4" json:"version"`
  IsCurrent    bool            `gorm:"column:is_current;not null;index" json:"is_current"`

  // Value is the normalized JSON serialization of the field's value
  // (scalar, list, or nested structure). No explicit column type: the
  // datatypes.JSON dialect mapping picks jsonb on postgres and a text
  // affinity column on sqlite, where a literal "jsonb" type would coerce
  // bare numbers.
  Value        datatypes.JSON  `gorm:"column:value;not null" json:"value"`
  Label        string          `gorm:"column:label;not null" json:"label"`
  FieldType    string          `gorm:"column:field_type;not null" json:"field_type"`
  Metadata     datatypes.JSON  `gorm:"column:metadata" json:"metadata,omitempty"`
  IsCustom     bool            `gorm:"column:is_custom;not null" json:"is_custom"`
  IsApproved   bool            `gorm:"column:is_approved;not null" json:"is_approved"`
  DisplayOrder int             `gorm:"column:display_order;not null" json:"display_order"`

  CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
  UpdatedAt    time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (FieldRecord) TableName() string { return "field_record" }
