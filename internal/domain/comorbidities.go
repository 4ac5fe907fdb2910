package types

import (
	"time"

	"github.com/google/uuid"
)

type ComorbidityPanel string

const (
	PanelCharlson   ComorbidityPanel = "charlson"
	PanelElixhauser ComorbidityPanel = "elixhauser"
	PanelNCI        ComorbidityPanel = "nci"
)

type ComorbiditiesAssessment struct {
	ID                uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID            uuid.UUID         `gorm:"type:uuid;not null;index" json:"case_id"`
	Case              *PatientCase      `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Date              time.Time         `gorm:"type:date;column:date;not null" json:"date"`
	IndexConditionID  *uuid.UUID        `gorm:"type:uuid;column:index_condition_id" json:"index_condition_id,omitempty"`
	IndexCondition    *NeoplasticEntity `gorm:"foreignKey:IndexConditionID;references:ID" json:"index_condition,omitempty"`
	Panel             ComorbidityPanel  `gorm:"column:panel;not null" json:"panel" api:"enum=charlson|elixhauser|nci"`
	PresentConditions []CodedConcept    `gorm:"many2many:comorbidities_present" json:"present_conditions,omitempty" api:"terminology=ComorbidityCondition"`
	AbsentConditions  []CodedConcept    `gorm:"many2many:comorbidities_absent" json:"absent_conditions,omitempty" api:"terminology=ComorbidityCondition"`
	Audit
}

func (ComorbiditiesAssessment) TableName() string { return "comorbidities_assessment" }

// Panel weights keyed by comorbidity category code. Conditions not listed
// in the active panel contribute nothing to the score.
var comorbidityPanelWeights = map[ComorbidityPanel]map[string]float64{
	PanelCharlson: {
		"myocardial-infarction":      1,
		"congestive-heart-failure":   1,
		"peripheral-vascular":        1,
		"cerebrovascular":            1,
		"dementia":                   1,
		"chronic-pulmonary":          1,
		"rheumatologic":              1,
		"peptic-ulcer":               1,
		"mild-liver-disease":         1,
		"diabetes":                   1,
		"diabetes-complications":     2,
		"hemiplegia":                 2,
		"renal-disease":              2,
		"moderate-severe-liver":      3,
		"aids":                       6,
	},
	PanelElixhauser: {
		"congestive-heart-failure": 7,
		"cardiac-arrhythmia":       5,
		"valvular-disease":         4,
		"pulmonary-circulation":    6,
		"peripheral-vascular":      2,
		"hypertension":             0,
		"paralysis":                7,
		"neurologic-disorders":     6,
		"chronic-pulmonary":        3,
		"diabetes":                 0,
		"diabetes-complications":   7,
		"hypothyroidism":           0,
		"renal-failure":            5,
		"liver-disease":            11,
		"peptic-ulcer":             0,
		"aids":                     0,
		"lymphoma":                 9,
		"coagulopathy":             3,
		"obesity":                  -4,
		"weight-loss":              6,
		"fluid-electrolyte":        5,
		"blood-loss-anemia":        -2,
		"deficiency-anemia":        -2,
		"alcohol-abuse":            0,
		"drug-abuse":               -7,
		"psychoses":                0,
		"depression":               -3,
	},
	PanelNCI: {
		"myocardial-infarction":    0.12624,
		"congestive-heart-failure": 0.64441,
		"peripheral-vascular":      0.26232,
		"cerebrovascular":          0.27868,
		"dementia":                 0.72219,
		"chronic-pulmonary":        0.52487,
		"rheumatologic":            0.21905,
		"peptic-ulcer":             0.07506,
		"mild-liver-disease":       0.73803,
		"diabetes":                 0.29408,
		"diabetes-complications":   0.29408,
		"hemiplegia":               0.43254,
		"renal-disease":            0.60638,
		"moderate-severe-liver":    0.73803,
		"aids":                     0.58362,
	},
}

// Score computes the weighted comorbidity score over the present
// conditions, using the weights of the assessment's panel.
func (a *ComorbiditiesAssessment) Score() float64 {
	weights, ok := comorbidityPanelWeights[a.Panel]
	if !ok {
		return 0
	}
	var total float64
	for _, cond := range a.PresentConditions {
		total += weights[cond.Code]
	}
	return total
}
