package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/schema"
)

func TestResourceDefinitionsAreWellFormed(t *testing.T) {
	defs := ResourceDefinitions()
	if len(defs) == 0 {
		t.Fatal("no resource definitions")
	}

	seen := map[string]bool{}
	f := schema.NewFactory()
	for _, def := range defs {
		if def.Name == "" || def.Model == nil {
			t.Fatalf("definition missing name or model: %+v", def)
		}
		if seen[def.Name] {
			t.Fatalf("duplicate resource name %q", def.Name)
		}
		seen[def.Name] = true

		// Every model and subtype must yield derivable contracts.
		if _, err := f.Read(def.Model, def.ReadOptions...); err != nil {
			t.Errorf("%s: read schema: %v", def.Name, err)
		}
		if !def.ReadOnly {
			if _, err := f.Create(def.Model, def.CreateOptions...); err != nil {
				t.Errorf("%s: create schema: %v", def.Name, err)
			}
		}
		for tag, sub := range def.Subtypes {
			if def.Discriminator == "" {
				t.Errorf("%s: subtypes without discriminator", def.Name)
			}
			if _, err := f.Create(sub.Model); err != nil {
				t.Errorf("%s/%s: subtype schema: %v", def.Name, tag, err)
			}
		}
	}

	index := DefinitionIndex(defs)
	if len(index) != len(defs) {
		t.Fatalf("index has %d entries, want %d", len(index), len(defs))
	}

	stagings := index["stagings"]
	if stagings == nil || len(stagings.Subtypes) != 14 {
		t.Errorf("stagings should carry 14 staging systems")
	}
	if lines := index["therapy-lines"]; lines == nil || !lines.ReadOnly {
		t.Errorf("therapy-lines must be read only")
	}
	for _, name := range []string{"systemic-therapies", "radiotherapies", "surgeries", "treatment-responses"} {
		if def := index[name]; def == nil || !def.TriggersLines {
			t.Errorf("%s must trigger line rebuilds", name)
		}
	}
	if signatures := index["genomic-signatures"]; signatures == nil || len(signatures.Subtypes) != 6 {
		t.Errorf("genomic-signatures should carry 6 categories")
	}
}

func TestValidateVariantHGVS(t *testing.T) {
	ctx := context.Background()

	ok := map[string]any{
		"dnaHgvs":     "NM_005228.5:c.2369C>T",
		"proteinHgvs": "NP_005219.2:p.Val600Glu",
	}
	if err := validateVariantHGVS(ctx, nil, ok); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	// Absent and explicit-null fields are skipped.
	if err := validateVariantHGVS(ctx, nil, map[string]any{"rnaHgvs": nil}); err != nil {
		t.Fatalf("nil field rejected: %v", err)
	}

	bad := []map[string]any{
		{"dnaHgvs": "c.2369C>T"},
		{"proteinHgvs": "NM_005228.5:c.2369C>T"},
		{"rnaHgvs": "total nonsense"},
		{"dnaHgvs": 12},
	}
	for _, payload := range bad {
		if err := validateVariantHGVS(ctx, nil, payload); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("payload %v: err = %v, want invalid argument", payload, err)
		}
	}
}

func TestResolveLineLabel(t *testing.T) {
	line := types.TherapyLine{Ordinal: 2, Intent: types.IntentPalliative}
	got, err := resolveLineLabel(context.Background(), nil, reflect.ValueOf(&line))
	if err != nil {
		t.Fatalf("resolveLineLabel: %v", err)
	}
	if got != "PLoT2" {
		t.Errorf("label = %v, want PLoT2", got)
	}

	if _, err := resolveLineLabel(context.Background(), nil, reflect.ValueOf(&types.User{})); err == nil {
		t.Errorf("wrong row type accepted")
	}
}

func TestResolveAdverseEventResolved(t *testing.T) {
	outcome := types.OutcomeResolvedSequelae
	event := types.AdverseEvent{Outcome: &outcome}
	got, err := resolveAdverseEventResolved(context.Background(), nil, reflect.ValueOf(&event))
	if err != nil {
		t.Fatalf("resolveAdverseEventResolved: %v", err)
	}
	if got != true {
		t.Errorf("resolved = %v, want true", got)
	}

	got, err = resolveAdverseEventResolved(context.Background(), nil, reflect.ValueOf(&types.AdverseEvent{}))
	if err != nil {
		t.Fatalf("resolveAdverseEventResolved: %v", err)
	}
	if got != false {
		t.Errorf("no outcome resolved = %v, want false", got)
	}
}

func TestResolveCaseCompleteness(t *testing.T) {
	ctx := context.Background()
	genderID := uuid.New()
	dod := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)

	alive := types.PatientCase{VitalStatus: types.VitalStatusAlive, GenderID: &genderID}
	got, err := resolveCaseCompleteness(ctx, nil, reflect.ValueOf(&alive))
	if err != nil {
		t.Fatalf("resolveCaseCompleteness: %v", err)
	}
	if got != 0.5 {
		t.Errorf("alive with gender = %v, want 0.5", got)
	}

	dead := types.PatientCase{VitalStatus: types.VitalStatusDead, GenderID: &genderID, DateOfDeath: &dod}
	got, err = resolveCaseCompleteness(ctx, nil, reflect.ValueOf(&dead))
	if err != nil {
		t.Fatalf("resolveCaseCompleteness: %v", err)
	}
	if got != 0.5 {
		t.Errorf("dead with gender+dod = %v, want 0.5", got)
	}
}

func TestResolveOverallSurvivalWithoutDB(t *testing.T) {
	row := types.PatientCase{DateOfBirth: time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)}
	got, err := resolveOverallSurvival(context.Background(), nil, reflect.ValueOf(&row))
	if err != nil {
		t.Fatalf("resolveOverallSurvival: %v", err)
	}
	if got != nil {
		t.Errorf("survival without db = %v, want nil", got)
	}
}
