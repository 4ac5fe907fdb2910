package types

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CodedConcept is one terminology row. Concepts are matched during writes
// by (code, system); the loader that fills these tables is external.
type CodedConcept struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Terminology string         `gorm:"column:terminology;not null;index;uniqueIndex:idx_concept_identity" json:"terminology"`
	Code        string         `gorm:"column:code;not null;uniqueIndex:idx_concept_identity" json:"code"`
	System      string         `gorm:"column:system;not null;uniqueIndex:idx_concept_identity" json:"system"`
	Display     string         `gorm:"column:display" json:"display"`
	Version     string         `gorm:"column:version" json:"version,omitempty"`
	Synonyms    datatypes.JSON `gorm:"type:jsonb;column:synonyms" json:"synonyms,omitempty"`
	ParentID    *uuid.UUID     `gorm:"type:uuid;column:parent_id;index" json:"parent_id,omitempty"`
	Parent      *CodedConcept  `gorm:"foreignKey:ParentID;references:ID" json:"parent,omitempty"`
}

func (CodedConcept) TableName() string { return "coded_concept" }

// Envelope renders the external coded-concept object.
func (c *CodedConcept) Envelope() map[string]any {
	if c == nil {
		return nil
	}
	out := map[string]any{
		"code":    c.Code,
		"system":  c.System,
		"display": c.Display,
	}
	if c.Version != "" {
		out["version"] = c.Version
	}
	return out
}
