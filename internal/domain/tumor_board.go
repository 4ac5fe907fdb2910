package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TumorBoardCategory string

const (
	TumorBoardMolecular   TumorBoardCategory = "molecular"
	TumorBoardUnspecified TumorBoardCategory = "unspecified"
)

// TumorBoard follows the same parent/subtype polymorphism as Staging.
type TumorBoard struct {
	ID              uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID          uuid.UUID          `gorm:"type:uuid;not null;index" json:"case_id"`
	Case            *PatientCase       `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Category        TumorBoardCategory `gorm:"column:category;not null;index" json:"category" api:"enum=molecular|unspecified"`
	Date            time.Time          `gorm:"type:date;column:date;not null" json:"date"`
	RelatedEntities []NeoplasticEntity `gorm:"many2many:tumor_board_related_entities" json:"related_entities,omitempty"`
	Recommendations datatypes.JSON     `gorm:"type:jsonb;column:recommendations" json:"recommendations,omitempty"`
	Audit
}

func (TumorBoard) TableName() string { return "tumor_board" }

// MolecularTumorBoard adds the genomic context reviewed by the board.
type MolecularTumorBoard struct {
	ID                    uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Parent                *TumorBoard      `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	ReviewedVariants      []GenomicVariant `gorm:"many2many:mtb_reviewed_variants" json:"reviewed_variants,omitempty"`
	CharacterizedEntities bool             `gorm:"column:characterized_entities;not null;default:false" json:"characterized_entities"`
}

func (MolecularTumorBoard) TableName() string { return "tumor_board_molecular" }

type UnspecifiedTumorBoard struct {
	ID     uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *TumorBoard `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Notes  string      `gorm:"column:notes" json:"notes,omitempty"`
}

func (UnspecifiedTumorBoard) TableName() string { return "tumor_board_unspecified" }
