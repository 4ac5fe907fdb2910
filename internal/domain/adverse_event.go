package types

import (
	"time"

	"github.com/google/uuid"
)

type AdverseEventOutcome string

const (
	OutcomeResolved          AdverseEventOutcome = "resolved"
	OutcomeResolvedSequelae  AdverseEventOutcome = "resolved-with-sequelae"
	OutcomeRecovering        AdverseEventOutcome = "recovering"
	OutcomeOngoing           AdverseEventOutcome = "ongoing"
	OutcomeFatal             AdverseEventOutcome = "fatal"
	OutcomeUnknown           AdverseEventOutcome = "unknown"
)

// AdverseEvent is a CTCAE-graded event. Grade bounds are enforced by a
// CHECK constraint (data/db/constraints.go).
type AdverseEvent struct {
	ID          uuid.UUID                `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID      uuid.UUID                `gorm:"type:uuid;not null;index" json:"case_id"`
	Case        *PatientCase             `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Date        time.Time                `gorm:"type:date;column:date;not null" json:"date"`
	EventID     *uuid.UUID               `gorm:"type:uuid;column:event_id" json:"event_id,omitempty"`
	Event       *CodedConcept            `gorm:"foreignKey:EventID;references:ID" json:"event,omitempty" api:"terminology=AdverseEventTerm"`
	Grade       int                      `gorm:"column:grade;not null" json:"grade"`
	Outcome     *AdverseEventOutcome     `gorm:"column:outcome" json:"outcome,omitempty" api:"enum=resolved|resolved-with-sequelae|recovering|ongoing|fatal|unknown"`
	Causes      []AdverseEventCause      `gorm:"constraint:OnDelete:CASCADE;foreignKey:AdverseEventID;references:ID" json:"causes,omitempty"`
	Mitigations []AdverseEventMitigation `gorm:"constraint:OnDelete:CASCADE;foreignKey:AdverseEventID;references:ID" json:"mitigations,omitempty"`
	Audit
}

func (AdverseEvent) TableName() string { return "adverse_event" }

// IsResolved is a derived read-only envelope field.
func (a *AdverseEvent) IsResolved() bool {
	if a == nil || a.Outcome == nil {
		return false
	}
	switch *a.Outcome {
	case OutcomeResolved, OutcomeResolvedSequelae:
		return true
	default:
		return false
	}
}

type AdverseEventCause struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AdverseEventID uuid.UUID     `gorm:"type:uuid;not null;index" json:"adverse_event_id"`
	AdverseEvent   *AdverseEvent `gorm:"foreignKey:AdverseEventID;references:ID" json:"-" api:"exclude"`
	AgentID        *uuid.UUID    `gorm:"type:uuid;column:agent_id" json:"agent_id,omitempty"`
	Agent          *CodedConcept `gorm:"foreignKey:AgentID;references:ID" json:"agent,omitempty" api:"terminology=AntineoplasticAgent"`
	Likelihood     string        `gorm:"column:likelihood" json:"likelihood,omitempty" api:"enum=unlikely|possible|probable|definite"`
	Audit
}

func (AdverseEventCause) TableName() string { return "adverse_event_cause" }

type AdverseEventMitigation struct {
	ID             uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AdverseEventID uuid.UUID     `gorm:"type:uuid;not null;index" json:"adverse_event_id"`
	AdverseEvent   *AdverseEvent `gorm:"foreignKey:AdverseEventID;references:ID" json:"-" api:"exclude"`
	Strategy       string        `gorm:"column:strategy;not null" json:"strategy" api:"enum=dose-reduction|interruption|discontinuation|supportive-care"`
	ManagementID   *uuid.UUID    `gorm:"type:uuid;column:management_id" json:"management_id,omitempty"`
	Management     *CodedConcept `gorm:"foreignKey:ManagementID;references:ID" json:"management,omitempty" api:"terminology=AdverseEventManagement"`
	Audit
}

func (AdverseEventMitigation) TableName() string { return "adverse_event_mitigation" }
