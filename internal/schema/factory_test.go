package schema

import (
	"sync"
	"testing"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
)

func TestReadSchemaPatientCase(t *testing.T) {
	f := NewFactory()
	s, err := f.Read(&types.PatientCase{})
	if err != nil {
		t.Fatalf("Read schema: %v", err)
	}
	if s.Variant != VariantRead {
		t.Fatalf("variant = %s, want read", s.Variant)
	}
	if s.Table != "patient_case" {
		t.Fatalf("table = %s, want patient_case", s.Table)
	}

	tests := []struct {
		field    string
		kind     FieldKind
		readOnly bool
	}{
		{field: "id", kind: KindUUID},
		{field: "pseudoIdentifier", kind: KindString, readOnly: true},
		{field: "center", kind: KindString},
		{field: "clinicalIdentifier", kind: KindString},
		{field: "gender", kind: KindConcept},
		{field: "dateOfBirth", kind: KindDate},
		{field: "vitalStatus", kind: KindEnum},
		{field: "causeOfDeath", kind: KindConcept},
		{field: "createdAt", kind: KindDateTime, readOnly: true},
	}
	for _, tt := range tests {
		spec, ok := s.Field(tt.field)
		if !ok {
			t.Errorf("field %s missing", tt.field)
			continue
		}
		if spec.Kind != tt.kind {
			t.Errorf("field %s kind = %s, want %s", tt.field, spec.Kind, tt.kind)
		}
		if spec.ReadOnly != tt.readOnly {
			t.Errorf("field %s readOnly = %v, want %v", tt.field, spec.ReadOnly, tt.readOnly)
		}
	}

	// The raw concept fk column is folded into the concept field.
	if _, ok := s.Field("genderId"); ok {
		t.Errorf("genderId should be consumed by the gender concept field")
	}
	gender, _ := s.Field("gender")
	if gender.Terminology != "AdministrativeGender" {
		t.Errorf("gender terminology = %q, want AdministrativeGender", gender.Terminology)
	}
	if gender.Resolver == nil {
		t.Errorf("gender field carries no resolver")
	}
	vital, _ := s.Field("vitalStatus")
	if len(vital.Enum) != 3 {
		t.Errorf("vitalStatus enum = %v, want 3 values", vital.Enum)
	}
}

func TestCreateSchemaExcludesGeneratedFields(t *testing.T) {
	f := NewFactory()
	s, err := f.Create(&types.PatientCase{})
	if err != nil {
		t.Fatalf("Create schema: %v", err)
	}
	for _, excluded := range []string{"id", "pseudoIdentifier", "createdAt", "updatedAt", "createdById"} {
		if _, ok := s.Field(excluded); ok {
			t.Errorf("create schema should not carry %s", excluded)
		}
	}
	center, ok := s.Field("center")
	if !ok {
		t.Fatalf("create schema missing center")
	}
	if center.Optional {
		t.Errorf("center should be required")
	}
	if center.Resolver != nil {
		t.Errorf("create schema fields carry no resolvers")
	}
}

func TestNestedAndManyRelations(t *testing.T) {
	f := NewFactory()
	s, err := f.Read(&types.SystemicTherapy{})
	if err != nil {
		t.Fatalf("Read schema: %v", err)
	}

	meds, ok := s.Field("medications")
	if !ok {
		t.Fatalf("medications field missing")
	}
	if meds.Kind != KindNestedMany {
		t.Fatalf("medications kind = %s, want nested-many", meds.Kind)
	}
	if meds.Nested == nil {
		t.Fatalf("medications carries no nested schema")
	}
	if drug, ok := meds.Nested.Field("drug"); !ok || drug.Kind != KindConcept {
		t.Fatalf("nested medication drug field missing or wrong kind")
	}
	if meds.Relation.ForeignKey != "TherapyID" {
		t.Errorf("medications reverse fk = %s, want TherapyID", meds.Relation.ForeignKey)
	}

	variantSchema, err := f.Read(&types.GenomicVariant{})
	if err != nil {
		t.Fatalf("Read schema: %v", err)
	}
	genes, ok := variantSchema.Field("geneIds")
	if !ok {
		t.Fatalf("geneIds field missing")
	}
	if genes.Kind != KindReferences {
		t.Fatalf("geneIds kind = %s, want references", genes.Kind)
	}
}

func TestFactoryCachesByFingerprint(t *testing.T) {
	f := NewFactory()
	first, err := f.Read(&types.PatientCase{})
	if err != nil {
		t.Fatalf("Read schema: %v", err)
	}
	second, err := f.Read(&types.PatientCase{})
	if err != nil {
		t.Fatalf("Read schema: %v", err)
	}
	if first != second {
		t.Fatalf("identical fingerprints must share one schema instance")
	}

	excluded, err := f.Read(&types.PatientCase{}, WithExclude("center"))
	if err != nil {
		t.Fatalf("Read schema: %v", err)
	}
	if excluded == first {
		t.Fatalf("different configs must not share a cache entry")
	}
	if _, ok := excluded.Field("center"); ok {
		t.Fatalf("excluded field still present")
	}
}

func TestFactoryConcurrentBuildYieldsOneInstance(t *testing.T) {
	f := NewFactory()
	const workers = 16
	results := make([]*Schema, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := f.Read(&types.Surgery{})
			if err != nil {
				t.Errorf("Read schema: %v", err)
				return
			}
			results[i] = s
		}(i)
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("concurrent derivation produced distinct instances")
		}
	}
}

func TestNamingHelpers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"date_of_birth", "dateOfBirth"},
		{"id", "id"},
		{"dna_hgvs", "dnaHgvs"},
	}
	for _, tt := range tests {
		if got := lowerCamel(tt.in); got != tt.want {
			t.Errorf("lowerCamel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	idTests := []struct {
		in   string
		want string
	}{
		{"stagedEntities", "stagedEntityIds"},
		{"genes", "geneIds"},
		{"relatedEntities", "relatedEntityIds"},
	}
	for _, tt := range idTests {
		if got := singularIDs(tt.in); got != tt.want {
			t.Errorf("singularIDs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
