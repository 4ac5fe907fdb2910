package types

import (
	"github.com/google/uuid"
)

type Radiotherapy struct {
	ID               uuid.UUID              `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID           uuid.UUID              `gorm:"type:uuid;not null;index" json:"case_id"`
	Case             *PatientCase           `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Period           Period                 `gorm:"type:daterange;column:period" json:"period"`
	Sessions         *int                   `gorm:"column:sessions" json:"sessions,omitempty"`
	Intent           TherapyIntent          `gorm:"column:intent" json:"intent,omitempty" api:"enum=curative|palliative"`
	TherapyLineID    *uuid.UUID             `gorm:"type:uuid;column:therapy_line_id;index" json:"therapy_line_id,omitempty" api:"readonly"`
	TherapyLine      *TherapyLine           `gorm:"foreignKey:TherapyLineID;references:ID" json:"therapy_line,omitempty"`
	TargetedEntities []NeoplasticEntity     `gorm:"many2many:radiotherapy_targeted_entities" json:"targeted_entities,omitempty"`
	Dosages          []RadiotherapyDosage   `gorm:"constraint:OnDelete:CASCADE;foreignKey:RadiotherapyID;references:ID" json:"dosages,omitempty"`
	Settings         []RadiotherapySetting  `gorm:"constraint:OnDelete:CASCADE;foreignKey:RadiotherapyID;references:ID" json:"settings,omitempty"`
	Audit
}

func (Radiotherapy) TableName() string { return "radiotherapy" }

type RadiotherapyDosage struct {
	ID                 uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RadiotherapyID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"radiotherapy_id"`
	Radiotherapy       *Radiotherapy `gorm:"foreignKey:RadiotherapyID;references:ID" json:"-" api:"exclude"`
	Dose               Measure       `gorm:"type:jsonb;column:dose" json:"dose" api:"measure=radiation-dose,unit=Gy"`
	Fractions          *int          `gorm:"column:fractions" json:"fractions,omitempty"`
	IrradiatedVolumeID *uuid.UUID    `gorm:"type:uuid;column:irradiated_volume_id" json:"irradiated_volume_id,omitempty"`
	IrradiatedVolume   *CodedConcept `gorm:"foreignKey:IrradiatedVolumeID;references:ID" json:"irradiated_volume,omitempty" api:"terminology=IrradiatedVolume"`
	Audit
}

func (RadiotherapyDosage) TableName() string { return "radiotherapy_dosage" }

type RadiotherapySetting struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RadiotherapyID uuid.UUID     `gorm:"type:uuid;not null;index" json:"radiotherapy_id"`
	Radiotherapy   *Radiotherapy `gorm:"foreignKey:RadiotherapyID;references:ID" json:"-" api:"exclude"`
	TechniqueID    *uuid.UUID    `gorm:"type:uuid;column:technique_id" json:"technique_id,omitempty"`
	Technique      *CodedConcept `gorm:"foreignKey:TechniqueID;references:ID" json:"technique,omitempty" api:"terminology=RadiotherapyTechnique"`
	ModalityID     *uuid.UUID    `gorm:"type:uuid;column:modality_id" json:"modality_id,omitempty"`
	Modality       *CodedConcept `gorm:"foreignKey:ModalityID;references:ID" json:"modality,omitempty" api:"terminology=RadiotherapyModality"`
	Audit
}

func (RadiotherapySetting) TableName() string { return "radiotherapy_setting" }
