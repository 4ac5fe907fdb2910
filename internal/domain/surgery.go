package types

import (
	"time"

	"github.com/google/uuid"
)

type Surgery struct {
	ID            uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"case_id"`
	Case          *PatientCase  `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Date          time.Time     `gorm:"type:date;column:date;not null" json:"date"`
	ProcedureID   *uuid.UUID    `gorm:"type:uuid;column:procedure_id" json:"procedure_id,omitempty"`
	Procedure     *CodedConcept `gorm:"foreignKey:ProcedureID;references:ID" json:"procedure,omitempty" api:"terminology=SurgicalProcedure"`
	Intent        TherapyIntent `gorm:"column:intent" json:"intent,omitempty" api:"enum=curative|palliative"`
	BodySiteID    *uuid.UUID    `gorm:"type:uuid;column:body_site_id" json:"body_site_id,omitempty"`
	BodySite      *CodedConcept `gorm:"foreignKey:BodySiteID;references:ID" json:"body_site,omitempty" api:"terminology=BodySite"`
	OutcomeID     *uuid.UUID    `gorm:"type:uuid;column:outcome_id" json:"outcome_id,omitempty"`
	Outcome       *CodedConcept `gorm:"foreignKey:OutcomeID;references:ID" json:"outcome,omitempty" api:"terminology=SurgicalOutcome"`
	TherapyLineID *uuid.UUID    `gorm:"type:uuid;column:therapy_line_id;index" json:"therapy_line_id,omitempty" api:"readonly"`
	TherapyLine   *TherapyLine  `gorm:"foreignKey:TherapyLineID;references:ID" json:"therapy_line,omitempty"`
	Audit
}

func (Surgery) TableName() string { return "surgery" }
