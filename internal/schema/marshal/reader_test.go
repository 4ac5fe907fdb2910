package marshal

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/schema"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReadPatientCaseEnvelope(t *testing.T) {
	f := schema.NewFactory()
	s, err := f.Read(&types.PatientCase{})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}

	genderID := uuid.New()
	dod := date(2021, 3, 1)
	row := &types.PatientCase{
		ID:                 uuid.New(),
		PseudoIdentifier:   "HD-000042",
		Center:             "Heidelberg",
		ClinicalIdentifier: "HD-1923",
		GenderID:           &genderID,
		Gender: &types.CodedConcept{
			ID: genderID, Terminology: "AdministrativeGender",
			Code: "female", System: "http://hl7.org/fhir/administrative-gender",
			Display: "Female",
		},
		DateOfBirth: date(1960, 4, 1),
		VitalStatus: types.VitalStatusDead,
		DateOfDeath: &dod,
	}

	envelope, err := Read(context.Background(), nil, s, row)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	if envelope["dateOfBirth"] != "1960-04-01" {
		t.Errorf("dateOfBirth = %v, want 1960-04-01", envelope["dateOfBirth"])
	}
	if envelope["dateOfDeath"] != "2021-03-01" {
		t.Errorf("dateOfDeath = %v, want 2021-03-01", envelope["dateOfDeath"])
	}
	if envelope["vitalStatus"] != "dead" {
		t.Errorf("vitalStatus = %v, want dead", envelope["vitalStatus"])
	}
	gender, ok := envelope["gender"].(map[string]any)
	if !ok {
		t.Fatalf("gender = %v, want concept object", envelope["gender"])
	}
	if gender["code"] != "female" || gender["display"] != "Female" {
		t.Errorf("gender envelope = %v", gender)
	}
	if _, ok := envelope["genderId"]; ok {
		t.Errorf("raw concept fk must not surface")
	}
	if _, ok := envelope["causeOfDeath"]; ok {
		t.Errorf("nil relations must be omitted")
	}
}

func TestReadNestedMedications(t *testing.T) {
	f := schema.NewFactory()
	s, err := f.Read(&types.SystemicTherapy{})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}

	start := date(2020, 1, 1)
	end := date(2020, 6, 1)
	drugID := uuid.New()
	row := &types.SystemicTherapy{
		ID:     uuid.New(),
		CaseID: uuid.New(),
		Period: types.Period{Start: &start, End: &end},
		Intent: types.IntentPalliative,
		Medications: []types.Medication{
			{
				ID:     uuid.New(),
				DrugID: drugID,
				Drug: &types.CodedConcept{
					ID: drugID, Terminology: "AntineoplasticAgent",
					Code: "L01EB03", System: "http://www.whocc.no/atc",
					Display: "afatinib",
				},
				Dosage: &types.Measure{Amount: 40, Unit: "mg"},
			},
		},
	}

	envelope, err := Read(context.Background(), nil, s, row)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	period, ok := envelope["period"].(map[string]any)
	if !ok {
		t.Fatalf("period = %v, want object", envelope["period"])
	}
	if period["start"] != "2020-01-01" || period["end"] != "2020-06-01" {
		t.Errorf("period envelope = %v", period)
	}

	meds, ok := envelope["medications"].([]map[string]any)
	if !ok || len(meds) != 1 {
		t.Fatalf("medications = %v, want one nested object", envelope["medications"])
	}
	drug, ok := meds[0]["drug"].(map[string]any)
	if !ok || drug["code"] != "L01EB03" {
		t.Errorf("nested drug = %v", meds[0]["drug"])
	}
	dosage, ok := meds[0]["dosage"].(map[string]any)
	if !ok || dosage["value"] != 40.0 || dosage["unit"] != "mg" {
		t.Errorf("nested dosage = %v", meds[0]["dosage"])
	}
}

func TestReadManyIDs(t *testing.T) {
	f := schema.NewFactory()
	s, err := f.Read(&types.GenomicVariant{})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}

	gene := types.Gene{ID: uuid.New(), Symbol: "EGFR"}
	hgvs := "NM_005228.5:c.2369C>T"
	row := &types.GenomicVariant{
		ID:      uuid.New(),
		CaseID:  uuid.New(),
		Genes:   []types.Gene{gene},
		DNAHGVS: &hgvs,
	}

	envelope, err := Read(context.Background(), nil, s, row)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	ids, ok := envelope["geneIds"].([]uuid.UUID)
	if !ok || len(ids) != 1 || ids[0] != gene.ID {
		t.Errorf("geneIds = %v, want [%s]", envelope["geneIds"], gene.ID)
	}
	if envelope["dnaHgvs"] != hgvs {
		t.Errorf("dnaHgvs = %v, want %q", envelope["dnaHgvs"], hgvs)
	}
}
