package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type StagingDomain string

const (
	StagingDomainTNM              StagingDomain = "tnm"
	StagingDomainFIGO             StagingDomain = "figo"
	StagingDomainBinet            StagingDomain = "binet"
	StagingDomainRai              StagingDomain = "rai"
	StagingDomainBreslow          StagingDomain = "breslow"
	StagingDomainClark            StagingDomain = "clark"
	StagingDomainISS              StagingDomain = "iss"
	StagingDomainRISS             StagingDomain = "riss"
	StagingDomainGleason          StagingDomain = "gleason"
	StagingDomainINSS             StagingDomain = "inss"
	StagingDomainINRGSS           StagingDomain = "inrgss"
	StagingDomainWilms            StagingDomain = "wilms"
	StagingDomainRhabdomyosarcoma StagingDomain = "rhabdomyosarcoma"
	StagingDomainLymphoma         StagingDomain = "lymphoma"
)

// Staging is the parent row of the polymorphic staging family. Exactly one
// subtype row shares its primary key; Domain is the discriminator the API
// exposes as the tagged-union tag.
type Staging struct {
	ID             uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID         uuid.UUID          `gorm:"type:uuid;not null;index" json:"case_id"`
	Case           *PatientCase       `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Domain         StagingDomain      `gorm:"column:domain;not null;index" json:"domain" api:"enum=tnm|figo|binet|rai|breslow|clark|iss|riss|gleason|inss|inrgss|wilms|rhabdomyosarcoma|lymphoma"`
	Date           time.Time          `gorm:"type:date;column:date;not null" json:"date"`
	MethodologyID  *uuid.UUID         `gorm:"type:uuid;column:methodology_id" json:"methodology_id,omitempty"`
	Methodology    *CodedConcept      `gorm:"foreignKey:MethodologyID;references:ID" json:"methodology,omitempty" api:"terminology=StagingMethodology"`
	StagedEntities []NeoplasticEntity `gorm:"many2many:staging_staged_entities" json:"staged_entities,omitempty"`
	Audit
}

func (Staging) TableName() string { return "staging" }

// TNMStaging covers the AJCC/UICC tumor-node-metastasis system.
type TNMStaging struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Parent       *Staging      `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	TStageID     *uuid.UUID    `gorm:"type:uuid;column:t_stage_id" json:"t_stage_id,omitempty"`
	TStage       *CodedConcept `gorm:"foreignKey:TStageID;references:ID" json:"t_stage,omitempty" api:"terminology=TNMTStage"`
	NStageID     *uuid.UUID    `gorm:"type:uuid;column:n_stage_id" json:"n_stage_id,omitempty"`
	NStage       *CodedConcept `gorm:"foreignKey:NStageID;references:ID" json:"n_stage,omitempty" api:"terminology=TNMNStage"`
	MStageID     *uuid.UUID    `gorm:"type:uuid;column:m_stage_id" json:"m_stage_id,omitempty"`
	MStage       *CodedConcept `gorm:"foreignKey:MStageID;references:ID" json:"m_stage,omitempty" api:"terminology=TNMMStage"`
	StageGroupID *uuid.UUID    `gorm:"type:uuid;column:stage_group_id" json:"stage_group_id,omitempty"`
	StageGroup   *CodedConcept `gorm:"foreignKey:StageGroupID;references:ID" json:"stage_group,omitempty" api:"terminology=TNMStageGroup"`
	Edition      string        `gorm:"column:edition" json:"edition,omitempty"`
}

func (TNMStaging) TableName() string { return "staging_tnm" }

type FIGOStaging struct {
	ID      uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Parent  *Staging      `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	StageID *uuid.UUID    `gorm:"type:uuid;column:stage_id" json:"stage_id,omitempty"`
	Stage   *CodedConcept `gorm:"foreignKey:StageID;references:ID" json:"stage,omitempty" api:"terminology=FIGOStage"`
}

func (FIGOStaging) TableName() string { return "staging_figo" }

type BinetStaging struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *Staging  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Stage  string    `gorm:"column:stage;not null" json:"stage" api:"enum=A|B|C"`
}

func (BinetStaging) TableName() string { return "staging_binet" }

type RaiStaging struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *Staging  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Stage  string    `gorm:"column:stage;not null" json:"stage" api:"enum=0|I|II|III|IV"`
}

func (RaiStaging) TableName() string { return "staging_rai" }

type BreslowDepth struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *Staging  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Depth  Measure   `gorm:"type:jsonb;column:depth" json:"depth" api:"measure=depth,unit=mm"`
}

func (BreslowDepth) TableName() string { return "staging_breslow" }

type ClarkStaging struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *Staging  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Level  string    `gorm:"column:level;not null" json:"level" api:"enum=I|II|III|IV|V"`
}

func (ClarkStaging) TableName() string { return "staging_clark" }

type ISSStaging struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *Staging  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Stage  string    `gorm:"column:stage;not null" json:"stage" api:"enum=I|II|III"`
}

func (ISSStaging) TableName() string { return "staging_iss" }

type RISSStaging struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *Staging  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Stage  string    `gorm:"column:stage;not null" json:"stage" api:"enum=I|II|III"`
}

func (RISSStaging) TableName() string { return "staging_riss" }

// GleasonGrade keeps the primary and secondary patterns; the score is a
// derived read-only field.
type GleasonGrade struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Parent    *Staging  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Primary   int       `gorm:"column:primary_pattern;not null" json:"primary_pattern"`
	Secondary int       `gorm:"column:secondary_pattern;not null" json:"secondary_pattern"`
}

func (GleasonGrade) TableName() string { return "staging_gleason" }

func (g *GleasonGrade) Score() int { return g.Primary + g.Secondary }

type INSSStage struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *Staging  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Stage  string    `gorm:"column:stage;not null" json:"stage" api:"enum=1|2A|2B|3|4|4S"`
}

func (INSSStage) TableName() string { return "staging_inss" }

type INRGSSStage struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *Staging  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Stage  string    `gorm:"column:stage;not null" json:"stage" api:"enum=L1|L2|M|MS"`
}

func (INRGSSStage) TableName() string { return "staging_inrgss" }

type WilmsStage struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *Staging  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Stage  string    `gorm:"column:stage;not null" json:"stage" api:"enum=I|II|III|IV|V"`
}

func (WilmsStage) TableName() string { return "staging_wilms" }

type RhabdomyosarcomaClinicalGroup struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *Staging  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Group  string    `gorm:"column:clinical_group;not null" json:"clinical_group" api:"enum=I|II|III|IV"`
}

func (RhabdomyosarcomaClinicalGroup) TableName() string { return "staging_rhabdomyosarcoma" }

// LymphomaStaging is Ann-Arbor / Lugano staging with its modifier letters.
type LymphomaStaging struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Parent    *Staging       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	StageID   *uuid.UUID     `gorm:"type:uuid;column:stage_id" json:"stage_id,omitempty"`
	Stage     *CodedConcept  `gorm:"foreignKey:StageID;references:ID" json:"stage,omitempty" api:"terminology=LymphomaStage"`
	Modifiers datatypes.JSON `gorm:"type:jsonb;column:modifiers" json:"modifiers,omitempty"`
}

func (LymphomaStaging) TableName() string { return "staging_lymphoma" }
