package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LOINC answer code for progressive disease under RECIST.
const RecistProgressiveDisease = "LA28370-7"

type TreatmentResponse struct {
	ID               uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"case_id"`
	Case             *PatientCase       `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Date             time.Time          `gorm:"type:date;column:date;not null" json:"date"`
	RecistID         *uuid.UUID         `gorm:"type:uuid;column:recist_id" json:"recist_id,omitempty"`
	Recist           *CodedConcept      `gorm:"foreignKey:RecistID;references:ID" json:"recist,omitempty" api:"terminology=TreatmentResponseRecist"`
	MethodologyID    *uuid.UUID         `gorm:"type:uuid;column:methodology_id" json:"methodology_id,omitempty"`
	Methodology      *CodedConcept      `gorm:"foreignKey:MethodologyID;references:ID" json:"methodology,omitempty" api:"terminology=ResponseAssessmentMethod"`
	AssessedEntities []NeoplasticEntity `gorm:"many2many:response_assessed_entities" json:"assessed_entities,omitempty"`
	Audit
}

func (TreatmentResponse) TableName() string { return "treatment_response" }

func (r *TreatmentResponse) IsProgression() bool {
	return r != nil && r.Recist != nil && r.Recist.Code == RecistProgressiveDisease
}

type TherapyLine struct {
	ID              uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID          uuid.UUID     `gorm:"type:uuid;not null;index" json:"case_id"`
	Case            *PatientCase  `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Ordinal         int           `gorm:"column:ordinal;not null" json:"ordinal"`
	Intent          TherapyIntent `gorm:"column:intent;not null" json:"intent" api:"enum=curative|palliative"`
	ProgressionDate *time.Time    `gorm:"type:date;column:progression_date" json:"progression_date,omitempty"`
	Audit
}

func (TherapyLine) TableName() string { return "therapy_line" }

// Label renders the conventional line-of-therapy label, e.g. PLoT2.
func (l *TherapyLine) Label() string {
	prefix := "C"
	if l.Intent == IntentPalliative {
		prefix = "P"
	}
	return fmt.Sprintf("%sLoT%d", prefix, l.Ordinal)
}
