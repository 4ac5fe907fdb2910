package filters

import (
	"net/url"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/schema"
)

// dryDB yields a postgres-dialect session that renders SQL without
// executing it.
func dryDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return db
}

// renderSQL applies the query filters over the model's filter schema and
// returns the generated statement plus its bind variables.
func renderSQL(t *testing.T, model any, query url.Values) (string, []any, error) {
	t.Helper()
	f := schema.NewFactory()
	s, err := f.Filter(model)
	if err != nil {
		t.Fatalf("filter schema: %v", err)
	}
	db := dryDB(t).Model(model)
	db, err = Apply(db, s, query)
	if err != nil {
		return "", nil, err
	}
	tx := db.Find(s.NewSlice())
	if tx.Error != nil {
		t.Fatalf("render: %v", tx.Error)
	}
	return tx.Statement.SQL.String(), tx.Statement.Vars, nil
}

func TestStringAndDateFilters(t *testing.T) {
	sql, vars, err := renderSQL(t, &types.PatientCase{}, url.Values{
		"center.contains":        {"Heidelberg"},
		"dateOfBirth.onOrAfter":  {"1960-01-01"},
		"vitalStatus":            {"alive"},
		"clinicalIdentifier.not": {"X-1"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, want := range []string{
		"patient_case.center ILIKE",
		"patient_case.date_of_birth >=",
		"patient_case.vital_status =",
		"NOT (patient_case.clinical_identifier =",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql %q missing %q", sql, want)
		}
	}
	found := false
	for _, v := range vars {
		if v == "%Heidelberg%" {
			found = true
		}
	}
	if !found {
		t.Errorf("vars %v missing contains pattern", vars)
	}
}

func TestDescendantsOfRendersRecursiveQuery(t *testing.T) {
	sql, _, err := renderSQL(t, &types.NeoplasticEntity{}, url.Values{
		"topography.descendantsOf": {"C100"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, want := range []string{
		"neoplastic_entity.topography_id IN (WITH RECURSIVE concept_tree",
		"c.parent_id = t.id",
		"id <> root_id",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql %q missing %q", sql, want)
		}
	}

	// isA keeps the roots.
	sql, _, err = renderSQL(t, &types.NeoplasticEntity{}, url.Values{
		"topography.isA": {"C100"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if strings.Contains(sql, "id <> root_id") {
		t.Errorf("isA must not exclude the root: %q", sql)
	}
}

func TestConceptAllOfCountsDistinctMatches(t *testing.T) {
	sql, vars, err := renderSQL(t, &types.ComorbiditiesAssessment{}, url.Values{
		"presentConditions.allOf": {"I50,E11"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, want := range []string{
		"count(DISTINCT c.code)",
		"comorbidities_present",
		"c.code IN",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql %q missing %q", sql, want)
		}
	}
	// The last variable is the demanded match count.
	if vars[len(vars)-1] != 2 {
		t.Errorf("vars %v should end with the value count 2", vars)
	}
}

func TestPeriodOverlaps(t *testing.T) {
	sql, _, err := renderSQL(t, &types.SystemicTherapy{}, url.Values{
		"period.overlaps": {"2020-01-01,2021-01-01"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(sql, "systemic_therapy.period && daterange($1, $2, '[]')") {
		t.Errorf("sql %q missing daterange overlap", sql)
	}
}

func TestNestedChildFilter(t *testing.T) {
	sql, _, err := renderSQL(t, &types.SystemicTherapy{}, url.Values{
		"medications.drug.anyOf": {"L01EB03,L01XE03"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	for _, want := range []string{
		"EXISTS (SELECT 1 FROM medication",
		"medication.therapy_id = systemic_therapy.id",
		"medication.drug_id IN (SELECT id FROM coded_concept",
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("sql %q missing %q", sql, want)
		}
	}
}

func TestManyReferenceFilter(t *testing.T) {
	sql, _, err := renderSQL(t, &types.GenomicVariant{}, url.Values{
		"geneIds.oneOf": {"8e9df9c8-8b8d-4a5c-9f5e-3f6f54d3a111"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(sql, "EXISTS (SELECT 1 FROM variant_genes") {
		t.Errorf("sql %q missing join-table existence query", sql)
	}
}

func TestFilterErrors(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
	}{
		{name: "unknown field", query: url.Values{"bogus": {"x"}}},
		{name: "unknown suffix", query: url.Values{"center.near": {"x"}}},
		{name: "bad enum value", query: url.Values{"vitalStatus": {"undead"}}},
		{name: "bad date", query: url.Values{"dateOfBirth.before": {"yesterday"}}},
		{name: "between arity", query: url.Values{"dateOfBirth.between": {"2020-01-01"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := renderSQL(t, &types.PatientCase{}, tt.query); err == nil {
				t.Fatalf("expected error for %v", tt.query)
			}
		})
	}
}

func TestNullValueRendersNoPredicate(t *testing.T) {
	sql, _, err := renderSQL(t, &types.PatientCase{}, url.Values{
		"center": {"null"},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if strings.Contains(sql, "center") && strings.Contains(sql, "WHERE") {
		t.Errorf("null value must not render a predicate: %q", sql)
	}
}
