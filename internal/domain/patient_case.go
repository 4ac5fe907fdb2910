package types

import (
	"time"

	"github.com/google/uuid"
)

type VitalStatus string

const (
	VitalStatusAlive   VitalStatus = "alive"
	VitalStatusDead    VitalStatus = "dead"
	VitalStatusUnknown VitalStatus = "unknown"
)

// PatientCase is the root aggregate. Dates of birth and death are stored
// with the day clamped to the first of the month; the corresponding CHECK
// constraints live in data/db/constraints.go.
type PatientCase struct {
	ID                 uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PseudoIdentifier   string        `gorm:"column:pseudo_identifier;not null;uniqueIndex" json:"pseudo_identifier" api:"readonly"`
	Center             string        `gorm:"column:center;not null;uniqueIndex:idx_case_center_clinical" json:"center"`
	ClinicalIdentifier string        `gorm:"column:clinical_identifier;not null;uniqueIndex:idx_case_center_clinical" json:"clinical_identifier"`
	GenderID           *uuid.UUID    `gorm:"type:uuid;column:gender_id" json:"gender_id,omitempty"`
	Gender             *CodedConcept `gorm:"foreignKey:GenderID;references:ID" json:"gender,omitempty" api:"terminology=AdministrativeGender"`
	DateOfBirth        time.Time     `gorm:"type:date;column:date_of_birth;not null" json:"date_of_birth"`
	VitalStatus        VitalStatus   `gorm:"column:vital_status;not null;default:'alive'" json:"vital_status" api:"enum=alive|dead|unknown"`
	DateOfDeath        *time.Time    `gorm:"type:date;column:date_of_death" json:"date_of_death,omitempty"`
	CauseOfDeathID     *uuid.UUID    `gorm:"type:uuid;column:cause_of_death_id" json:"cause_of_death_id,omitempty"`
	CauseOfDeath       *CodedConcept `gorm:"foreignKey:CauseOfDeathID;references:ID" json:"cause_of_death,omitempty" api:"terminology=CauseOfDeath"`
	EndOfRecords       *time.Time    `gorm:"type:date;column:end_of_records" json:"end_of_records,omitempty"`
	Audit
}

func (PatientCase) TableName() string { return "patient_case" }
