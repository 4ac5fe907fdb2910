package therapyline

import (
	"testing"
	"time"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

func therapy(start, end string, intent types.TherapyIntent, codes ...string) *types.SystemicTherapy {
	t := &types.SystemicTherapy{
		Period: types.Period{Start: dayPtr(start)},
		Intent: intent,
	}
	if end != "" {
		t.Period.End = dayPtr(end)
	}
	for _, code := range codes {
		t.Medications = append(t.Medications, types.Medication{
			Drug: &types.CodedConcept{Code: code, System: "ATC"},
		})
	}
	return t
}

func rolePtr(r types.AdjunctiveRole) *types.AdjunctiveRole { return &r }

func progression(date string) *types.TreatmentResponse {
	return &types.TreatmentResponse{
		Date:   day(date),
		Recist: &types.CodedConcept{Code: types.RecistProgressiveDisease, System: "LOINC"},
	}
}

func TestProgressionSplitsPalliativeLines(t *testing.T) {
	t1 := therapy("2020-01-01", "2020-06-01", types.IntentPalliative, "L01XA01", "L01CD01")
	t2 := therapy("2020-07-01", "2020-12-01", types.IntentPalliative, "L01XE07")

	lines := Assign(History{
		Therapies: []*types.SystemicTherapy{t1, t2},
		Responses: []*types.TreatmentResponse{progression("2020-06-15")},
	})

	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0].Label() != "PLoT1" || lines[1].Label() != "PLoT2" {
		t.Errorf("labels = %s, %s, want PLoT1, PLoT2", lines[0].Label(), lines[1].Label())
	}
	if lines[0].ProgressionDate == nil || !lines[0].ProgressionDate.Equal(day("2020-06-15")) {
		t.Errorf("first line progression = %v, want 2020-06-15", lines[0].ProgressionDate)
	}
	if len(lines[0].Therapies) != 1 || lines[0].Therapies[0] != t1 {
		t.Errorf("first line members wrong")
	}
	if len(lines[1].Therapies) != 1 || lines[1].Therapies[0] != t2 {
		t.Errorf("second line members wrong")
	}
}

func TestProgressionAloneStartsNewLine(t *testing.T) {
	t1 := therapy("2021-01-01", "2021-03-01", types.IntentPalliative, "L01XA01")
	t2 := therapy("2021-04-01", "2021-06-01", types.IntentPalliative, "L01XA01")

	lines := Assign(History{
		Therapies: []*types.SystemicTherapy{t1, t2},
		Responses: []*types.TreatmentResponse{progression("2021-03-15")},
	})
	if len(lines) != 2 {
		t.Fatalf("same-drug restart after progression: got %d lines, want 2", len(lines))
	}
}

func TestOverlappingTherapiesShareAGroup(t *testing.T) {
	t1 := therapy("2020-01-01", "2020-05-01", types.IntentCurative, "L01XA01")
	t2 := therapy("2020-02-01", "2020-06-01", types.IntentCurative, "L01CD01")

	lines := Assign(History{Therapies: []*types.SystemicTherapy{t1, t2}})
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if len(lines[0].Therapies) != 2 {
		t.Errorf("got %d member therapies, want 2", len(lines[0].Therapies))
	}
	if lines[0].Label() != "CLoT1" {
		t.Errorf("label = %s, want CLoT1", lines[0].Label())
	}
}

func TestAdjunctiveTherapyJoinsPreviousLine(t *testing.T) {
	main := therapy("2020-01-01", "2020-04-01", types.IntentCurative, "L01XA01")
	adj := therapy("2020-05-01", "2020-08-01", types.IntentCurative, "L01XA01")
	adj.AdjunctiveRole = rolePtr(types.RoleAdjuvant)

	lines := Assign(History{Therapies: []*types.SystemicTherapy{main, adj}})
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if len(lines[0].Therapies) != 2 {
		t.Errorf("adjuvant therapy not assigned to previous line")
	}
}

func TestAntihormonalPredecessorKeepsLine(t *testing.T) {
	hormonal := therapy("2020-01-01", "2020-06-01", types.IntentPalliative, "L02BA01")
	next := therapy("2020-07-01", "2020-12-01", types.IntentPalliative, "L01XE07")

	lines := Assign(History{Therapies: []*types.SystemicTherapy{hormonal, next}})
	if len(lines) != 1 {
		t.Fatalf("new drug after anti-hormonal therapy: got %d lines, want 1", len(lines))
	}
}

func TestToleranceSwitchWithinClassKeepsLine(t *testing.T) {
	first := therapy("2020-01-01", "2020-03-01", types.IntentPalliative, "L01XA01")
	first.TerminationReason = &types.CodedConcept{Code: terminationNotTolerated, System: "SNOMED"}
	sameClass := therapy("2020-04-01", "2020-08-01", types.IntentPalliative, "L01XA03")

	lines := Assign(History{Therapies: []*types.SystemicTherapy{first, sameClass}})
	if len(lines) != 1 {
		t.Fatalf("same-class switch after intolerance: got %d lines, want 1", len(lines))
	}

	otherClass := therapy("2020-04-01", "2020-08-01", types.IntentPalliative, "L01CD01")
	lines = Assign(History{Therapies: []*types.SystemicTherapy{first, otherClass}})
	if len(lines) != 2 {
		t.Fatalf("cross-class switch after intolerance: got %d lines, want 2", len(lines))
	}
}

func TestIntentFallbackUsesMetastasisStatus(t *testing.T) {
	bare := therapy("2020-01-01", "2020-03-01", "", "L01XA01")
	lines := Assign(History{
		Therapies: []*types.SystemicTherapy{bare},
		Entities:  []*types.NeoplasticEntity{{Relationship: types.RelationshipMetastatic}},
	})
	if len(lines) != 1 || lines[0].Label() != "PLoT1" {
		t.Fatalf("metastatic fallback: got %v", lines)
	}

	lines = Assign(History{Therapies: []*types.SystemicTherapy{bare}})
	if len(lines) != 1 || lines[0].Label() != "CLoT1" {
		t.Fatalf("non-metastatic fallback: got %v", lines)
	}
}

func TestOrdinalsAreDensePerIntent(t *testing.T) {
	c1 := therapy("2019-01-01", "2019-04-01", types.IntentCurative, "L01XA01")
	p1 := therapy("2020-01-01", "2020-04-01", types.IntentPalliative, "L01CD01")
	p2 := therapy("2020-06-01", "2020-09-01", types.IntentPalliative, "L01XE07")

	lines := Assign(History{Therapies: []*types.SystemicTherapy{c1, p1, p2}})
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	labels := []string{lines[0].Label(), lines[1].Label(), lines[2].Label()}
	want := []string{"CLoT1", "PLoT1", "PLoT2"}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("labels = %v, want %v", labels, want)
			break
		}
	}
}

func TestRadiotherapyAndSurgeryAttachment(t *testing.T) {
	t1 := therapy("2020-01-01", "2020-06-01", types.IntentCurative, "L01XA01")
	rt := &types.Radiotherapy{
		Period: types.Period{Start: dayPtr("2020-02-01"), End: dayPtr("2020-03-01")},
		Intent: types.IntentCurative,
	}
	sg := &types.Surgery{Date: day("2020-04-15"), Intent: types.IntentCurative}
	offIntent := &types.Surgery{Date: day("2020-04-15"), Intent: types.IntentPalliative}

	lines := Assign(History{
		Therapies:      []*types.SystemicTherapy{t1},
		Radiotherapies: []*types.Radiotherapy{rt},
		Surgeries:      []*types.Surgery{sg, offIntent},
	})
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if len(lines[0].Radiotherapies) != 1 {
		t.Errorf("radiotherapy not attached")
	}
	if len(lines[0].Surgeries) != 1 {
		t.Errorf("got %d attached surgeries, want 1 (intent must match)", len(lines[0].Surgeries))
	}
}

func TestPeriodEnvelopeAndSurvival(t *testing.T) {
	t1 := therapy("2020-01-01", "2020-06-01", types.IntentPalliative, "L01XA01")
	line := &Line{Intent: types.IntentPalliative, Ordinal: 1, Therapies: []*types.SystemicTherapy{t1}}
	line.Surgeries = []*types.Surgery{{Date: day("2020-07-15")}}

	p := line.Period()
	if p.Start == nil || !p.Start.Equal(day("2020-01-01")) {
		t.Errorf("period start = %v, want 2020-01-01", p.Start)
	}
	if p.End == nil || !p.End.Equal(day("2020-07-15")) {
		t.Errorf("period end = %v, want 2020-07-15", p.End)
	}

	line.ProgressionDate = dayPtr("2020-07-01")
	pfs := line.ProgressionFreeSurvival(nil, day("2021-01-01"))
	if pfs == nil {
		t.Fatal("pfs is nil")
	}
	want := day("2020-07-01").Sub(day("2020-01-01")).Hours() / 24 / monthDays
	if *pfs != want {
		t.Errorf("pfs = %v months, want %v", *pfs, want)
	}

	open := &Line{Therapies: []*types.SystemicTherapy{{Period: types.Period{}}}}
	if open.ProgressionFreeSurvival(nil, day("2021-01-01")) != nil {
		t.Error("pfs for open-start line should be nil")
	}
}
