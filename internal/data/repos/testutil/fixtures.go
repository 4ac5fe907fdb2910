package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
)

// Case inserts a minimal patient case and returns it.
func Case(tb testing.TB, tx *gorm.DB) *types.PatientCase {
	tb.Helper()
	c := &types.PatientCase{
		ID:                 uuid.New(),
		PseudoIdentifier:   "tc-" + uuid.NewString()[:8],
		Center:             "test-center",
		ClinicalIdentifier: uuid.NewString(),
		DateOfBirth:        time.Date(1960, 4, 1, 0, 0, 0, 0, time.UTC),
		VitalStatus:        types.VitalStatusAlive,
	}
	if err := tx.Create(c).Error; err != nil {
		tb.Fatalf("create fixture case: %v", err)
	}
	return c
}

// Concept inserts one coded concept.
func Concept(tb testing.TB, tx *gorm.DB, terminology, code, system, display string) *types.CodedConcept {
	tb.Helper()
	c := &types.CodedConcept{
		ID:          uuid.New(),
		Terminology: terminology,
		Code:        code,
		System:      system,
		Display:     display,
	}
	if err := tx.Create(c).Error; err != nil {
		tb.Fatalf("create fixture concept: %v", err)
	}
	return c
}

// ChildConcept inserts a concept below the given parent.
func ChildConcept(tb testing.TB, tx *gorm.DB, parent *types.CodedConcept, code, display string) *types.CodedConcept {
	tb.Helper()
	c := &types.CodedConcept{
		ID:          uuid.New(),
		Terminology: parent.Terminology,
		Code:        code,
		System:      parent.System,
		Display:     display,
		ParentID:    &parent.ID,
	}
	if err := tx.Create(c).Error; err != nil {
		tb.Fatalf("create fixture concept: %v", err)
	}
	return c
}
