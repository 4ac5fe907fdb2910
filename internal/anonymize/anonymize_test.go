package anonymize

import (
	"testing"
	"time"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/schema"
)

func TestOffsetIsDeterministicAndBounded(t *testing.T) {
	keys := []string{"case-0001", "case-0002", "another key", ""}
	for _, key := range keys {
		first := offsetDays(key)
		if second := offsetDays(key); second != first {
			t.Fatalf("offsetDays(%q) unstable: %d then %d", key, first, second)
		}
		if first < -maxShiftDays || first > maxShiftDays {
			t.Errorf("offsetDays(%q) = %d, outside [-%d, %d]", key, first, maxShiftDays, maxShiftDays)
		}
	}
	if offsetDays("case-0001") == offsetDays("case-0002") {
		t.Log("adjacent keys share an offset, acceptable but unusual")
	}
}

func TestShiftDatePreservesIntervals(t *testing.T) {
	key := "case-0042"
	birth := time.Date(1960, 4, 1, 0, 0, 0, 0, time.UTC)
	death := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

	shiftedBirth := ShiftDate(key, birth)
	shiftedDeath := ShiftDate(key, death)
	want := death.Sub(birth)
	if got := shiftedDeath.Sub(shiftedBirth); got != want {
		t.Errorf("interval changed under shift: got %v, want %v", got, want)
	}
}

func TestAgeBin(t *testing.T) {
	cases := []struct {
		age  int
		want string
	}{
		{0, "0-4"},
		{4, "0-4"},
		{5, "5-9"},
		{62, "60-64"},
		{99, "95-99"},
		{-3, "0-4"},
	}
	for _, tc := range cases {
		if got := AgeBin(tc.age); got != tc.want {
			t.Errorf("AgeBin(%d) = %q, want %q", tc.age, got, tc.want)
		}
	}
}

func TestApplyRedactsAndShifts(t *testing.T) {
	factory := schema.NewFactory()
	s, err := factory.Read(types.PatientCase{},
		schema.WithAnonymization("pseudoIdentifier", "dateOfBirth", "dateOfDeath"))
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}

	envelope := map[string]any{
		"pseudoIdentifier": "case-0042",
		"dateOfBirth":      "1960-04-01",
		"dateOfDeath":      "2021-03-01",
		"vitalStatus":      "dead",
	}
	Apply(s, envelope)

	if envelope["vitalStatus"] != "dead" {
		t.Errorf("unlisted field changed: %v", envelope["vitalStatus"])
	}
	birth, err := time.Parse("2006-01-02", envelope["dateOfBirth"].(string))
	if err != nil {
		t.Fatalf("shifted dateOfBirth not a date: %v", envelope["dateOfBirth"])
	}
	death, err := time.Parse("2006-01-02", envelope["dateOfDeath"].(string))
	if err != nil {
		t.Fatalf("shifted dateOfDeath not a date: %v", envelope["dateOfDeath"])
	}

	origBirth := time.Date(1960, 4, 1, 0, 0, 0, 0, time.UTC)
	origDeath := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	if got, want := death.Sub(birth), origDeath.Sub(origBirth); got != want {
		t.Errorf("interval between shifted dates = %v, want %v", got, want)
	}
	if diff := birth.Sub(origBirth).Hours() / 24; diff < -maxShiftDays || diff > maxShiftDays {
		t.Errorf("shift of %v days exceeds bound", diff)
	}

	second := map[string]any{
		"pseudoIdentifier": "case-0042",
		"dateOfBirth":      "1960-04-01",
	}
	Apply(s, second)
	if second["dateOfBirth"] != envelope["dateOfBirth"] {
		t.Errorf("same key shifted differently: %v vs %v", second["dateOfBirth"], envelope["dateOfBirth"])
	}
}

func TestApplyRedactsNonDateFields(t *testing.T) {
	factory := schema.NewFactory()
	s, err := factory.Read(types.PatientCase{},
		schema.WithAnonymization("pseudoIdentifier", "clinicalIdentifier", "dateOfBirth"))
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}

	envelope := map[string]any{
		"pseudoIdentifier":   "case-7",
		"clinicalIdentifier": "MRN-998877",
		"dateOfBirth":        "1971-06-01",
	}
	Apply(s, envelope)

	if envelope["clinicalIdentifier"] != Sentinel {
		t.Errorf("clinicalIdentifier = %v, want sentinel", envelope["clinicalIdentifier"])
	}
	if envelope["dateOfBirth"] == "1971-06-01" || envelope["dateOfBirth"] == Sentinel {
		t.Errorf("dateOfBirth = %v, want a shifted date", envelope["dateOfBirth"])
	}
}
