package types

import (
	"time"

	"github.com/google/uuid"
)

type NeoplasticRelationship string

const (
	RelationshipPrimary            NeoplasticRelationship = "primary"
	RelationshipMetastatic         NeoplasticRelationship = "metastatic"
	RelationshipLocalRecurrence    NeoplasticRelationship = "local-recurrence"
	RelationshipRegionalRecurrence NeoplasticRelationship = "regional-recurrence"
)

// NeoplasticEntity models one neoplasm of a case. Non-primary rows may
// point at the primary they derive from; a primary must not. The CHECK
// constraint enforcing that lives in data/db/constraints.go.
type NeoplasticEntity struct {
	ID                uuid.UUID              `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID            uuid.UUID              `gorm:"type:uuid;not null;index" json:"case_id"`
	Case              *PatientCase           `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Relationship      NeoplasticRelationship `gorm:"column:relationship;not null" json:"relationship" api:"enum=primary|metastatic|local-recurrence|regional-recurrence"`
	RelatedPrimaryID  *uuid.UUID             `gorm:"type:uuid;column:related_primary_id;index" json:"related_primary_id,omitempty"`
	RelatedPrimary    *NeoplasticEntity      `gorm:"foreignKey:RelatedPrimaryID;references:ID" json:"related_primary,omitempty"`
	AssertionDate     time.Time              `gorm:"type:date;column:assertion_date;not null" json:"assertion_date"`
	TopographyID      *uuid.UUID             `gorm:"type:uuid;column:topography_id" json:"topography_id,omitempty"`
	Topography        *CodedConcept          `gorm:"foreignKey:TopographyID;references:ID" json:"topography,omitempty" api:"terminology=CancerTopography"`
	MorphologyID      *uuid.UUID             `gorm:"type:uuid;column:morphology_id" json:"morphology_id,omitempty"`
	Morphology        *CodedConcept          `gorm:"foreignKey:MorphologyID;references:ID" json:"morphology,omitempty" api:"terminology=CancerMorphology"`
	LateralityID      *uuid.UUID             `gorm:"type:uuid;column:laterality_id" json:"laterality_id,omitempty"`
	Laterality        *CodedConcept          `gorm:"foreignKey:LateralityID;references:ID" json:"laterality,omitempty" api:"terminology=Laterality"`
	DifferentiationID *uuid.UUID             `gorm:"type:uuid;column:differentiation_id" json:"differentiation_id,omitempty"`
	Differentiation   *CodedConcept          `gorm:"foreignKey:DifferentiationID;references:ID" json:"differentiation,omitempty" api:"terminology=HistologyDifferentiation"`
	Audit
}

func (NeoplasticEntity) TableName() string { return "neoplastic_entity" }

func (n *NeoplasticEntity) IsPrimary() bool {
	return n != nil && n.Relationship == RelationshipPrimary
}

func (n *NeoplasticEntity) IsMetastatic() bool {
	return n != nil && n.Relationship == RelationshipMetastatic
}
