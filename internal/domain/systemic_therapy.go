package types

import (
	"strings"

	"github.com/google/uuid"
)

type TherapyIntent string

const (
	IntentCurative   TherapyIntent = "curative"
	IntentPalliative TherapyIntent = "palliative"
)

type AdjunctiveRole string

const (
	RoleNeoadjuvant AdjunctiveRole = "neoadjuvant"
	RoleAdjuvant    AdjunctiveRole = "adjuvant"
	RoleMaintenance AdjunctiveRole = "maintenance"
	RoleAdditive    AdjunctiveRole = "additive"
)

// ATC class prefix for endocrine (anti-hormonal) therapy agents.
const atcAntihormonalPrefix = "L02"

// SystemicTherapy is one systemic treatment episode. Medications are owned
// children; the therapy line is derived and reassigned by the line engine.
type SystemicTherapy struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID              uuid.UUID       `gorm:"type:uuid;not null;index" json:"case_id"`
	Case                *PatientCase    `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Period              Period          `gorm:"type:daterange;column:period" json:"period"`
	Intent              TherapyIntent   `gorm:"column:intent" json:"intent,omitempty" api:"enum=curative|palliative"`
	AdjunctiveRole      *AdjunctiveRole `gorm:"column:adjunctive_role" json:"adjunctive_role,omitempty" api:"enum=neoadjuvant|adjuvant|maintenance|additive"`
	TerminationReasonID *uuid.UUID      `gorm:"type:uuid;column:termination_reason_id" json:"termination_reason_id,omitempty"`
	TerminationReason   *CodedConcept   `gorm:"foreignKey:TerminationReasonID;references:ID" json:"termination_reason,omitempty" api:"terminology=TherapyTerminationReason"`
	TherapyLineID       *uuid.UUID      `gorm:"type:uuid;column:therapy_line_id;index" json:"therapy_line_id,omitempty" api:"readonly"`
	TherapyLine         *TherapyLine    `gorm:"foreignKey:TherapyLineID;references:ID" json:"therapy_line,omitempty"`
	Medications         []Medication    `gorm:"constraint:OnDelete:CASCADE;foreignKey:TherapyID;references:ID" json:"medications,omitempty"`
	Audit
}

func (SystemicTherapy) TableName() string { return "systemic_therapy" }

// DrugCodes returns the ATC codes of all prescribed drugs, preload order.
func (t *SystemicTherapy) DrugCodes() []string {
	if t == nil {
		return nil
	}
	codes := make([]string, 0, len(t.Medications))
	for _, m := range t.Medications {
		if m.Drug != nil {
			codes = append(codes, m.Drug.Code)
		}
	}
	return codes
}

// Antihormonal reports whether every prescribed drug is an endocrine
// therapy agent (ATC L02). Therapies without resolvable drugs are not
// considered anti-hormonal.
func (t *SystemicTherapy) Antihormonal() bool {
	codes := t.DrugCodes()
	if len(codes) == 0 {
		return false
	}
	for _, code := range codes {
		if !strings.HasPrefix(code, atcAntihormonalPrefix) {
			return false
		}
	}
	return true
}

// TherapeuticClasses returns the 4-character ATC class prefixes of the
// prescribed drugs, deduplicated.
func (t *SystemicTherapy) TherapeuticClasses() map[string]struct{} {
	out := map[string]struct{}{}
	for _, code := range t.DrugCodes() {
		if len(code) >= 4 {
			out[code[:4]] = struct{}{}
		} else if code != "" {
			out[code] = struct{}{}
		}
	}
	return out
}

// Medication is one drug prescription within a systemic therapy.
type Medication struct {
	ID        uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TherapyID uuid.UUID        `gorm:"type:uuid;not null;index" json:"therapy_id"`
	Therapy   *SystemicTherapy `gorm:"foreignKey:TherapyID;references:ID" json:"-" api:"exclude"`
	DrugID    uuid.UUID        `gorm:"type:uuid;not null;column:drug_id" json:"drug_id"`
	Drug      *CodedConcept    `gorm:"foreignKey:DrugID;references:ID" json:"drug,omitempty" api:"terminology=AntineoplasticAgent"`
	Dosage    *Measure         `gorm:"type:jsonb;column:dosage" json:"dosage,omitempty" api:"measure=dosage,unit=mg"`
	Audit
}

func (Medication) TableName() string { return "medication" }
