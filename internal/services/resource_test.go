package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/schema"
)

func stagingDef() *ResourceDefinition {
	return &ResourceDefinition{
		Name:          "stagings",
		Model:         types.Staging{},
		Discriminator: "domain",
		Subtypes: map[string]SubtypeDef{
			"tnm":  {Model: types.TNMStaging{}},
			"figo": {Model: types.FIGOStaging{}},
		},
	}
}

func TestSplitSubtypePopsTypedPayload(t *testing.T) {
	rs := &resourceService{}
	payload := map[string]any{
		"domain": "tnm",
		"tnm":    map[string]any{"t": "2", "n": "1", "m": "0"},
		"date":   "2024-03-01",
	}

	rest, tag, sub, err := rs.splitSubtype(stagingDef(), payload, "")
	if err != nil {
		t.Fatalf("splitSubtype: %v", err)
	}
	if tag != "tnm" {
		t.Fatalf("tag = %q, want tnm", tag)
	}
	if _, ok := rest["tnm"]; ok {
		t.Errorf("typed payload left in parent envelope")
	}
	if rest["domain"] != "tnm" || rest["date"] != "2024-03-01" {
		t.Errorf("parent fields lost: %v", rest)
	}
	if sub["t"] != "2" {
		t.Errorf("sub payload = %v", sub)
	}
	// The input map is not mutated.
	if _, ok := payload["tnm"]; !ok {
		t.Errorf("splitSubtype mutated its input")
	}
}

func TestSplitSubtypeFallbackTag(t *testing.T) {
	rs := &resourceService{}

	// Updates may omit the discriminator; the stored value carries.
	rest, tag, _, err := rs.splitSubtype(stagingDef(), map[string]any{"date": "2024-03-01"}, "figo")
	if err != nil {
		t.Fatalf("splitSubtype: %v", err)
	}
	if tag != "figo" {
		t.Fatalf("tag = %q, want figo", tag)
	}
	if len(rest) != 1 {
		t.Errorf("rest = %v", rest)
	}
}

func TestSplitSubtypeRejections(t *testing.T) {
	rs := &resourceService{}
	def := stagingDef()

	cases := []struct {
		name    string
		payload map[string]any
	}{
		{"missing discriminator", map[string]any{"date": "2024-03-01"}},
		{"unknown tag", map[string]any{"domain": "ajcc"}},
		{"non-string discriminator", map[string]any{"domain": 7}},
		{"non-object payload", map[string]any{"domain": "tnm", "tnm": "T2N1M0"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, _, err := rs.splitSubtype(def, tc.payload, "")
			if !errors.Is(err, errs.ErrInvalidArgument) {
				t.Fatalf("err = %v, want invalid argument", err)
			}
		})
	}
}

func TestSplitSubtypeNonPolymorphic(t *testing.T) {
	rs := &resourceService{}
	payload := map[string]any{"center": "x"}
	rest, tag, sub, err := rs.splitSubtype(&ResourceDefinition{Name: "patient-cases"}, payload, "")
	if err != nil {
		t.Fatalf("splitSubtype: %v", err)
	}
	if tag != "" || sub != nil {
		t.Fatalf("tag=%q sub=%v, want empty", tag, sub)
	}
	if rest["center"] != "x" {
		t.Errorf("payload passed through wrong: %v", rest)
	}
}

func TestOrderClause(t *testing.T) {
	f := schema.NewFactory()
	s, err := f.Read(&types.PatientCase{})
	if err != nil {
		t.Fatalf("Read schema: %v", err)
	}

	tests := []struct {
		sort string
		want string
		fail bool
	}{
		{sort: "", want: "created_at"},
		{sort: "center", want: "center"},
		{sort: "-center", want: "center DESC"},
		{sort: "dateOfBirth", want: "date_of_birth"},
		{sort: "nope", fail: true},
		{sort: "-nope", fail: true},
	}
	for _, tc := range tests {
		got, err := orderClause(s, tc.sort)
		if tc.fail {
			if !errors.Is(err, errs.ErrInvalidArgument) {
				t.Errorf("orderClause(%q) err = %v, want invalid argument", tc.sort, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("orderClause(%q): %v", tc.sort, err)
			continue
		}
		if got != tc.want {
			t.Errorf("orderClause(%q) = %q, want %q", tc.sort, got, tc.want)
		}
	}
}

func TestRowUUID(t *testing.T) {
	id := uuid.New()
	caseID := uuid.New()
	row := &types.Staging{ID: id, CaseID: caseID}

	if got := rowUUID(row, "ID"); got != id {
		t.Errorf("ID = %s, want %s", got, id)
	}
	if got := rowUUID(row, "CaseID"); got != caseID {
		t.Errorf("CaseID = %s, want %s", got, caseID)
	}
	if got := rowUUID(row, "NoSuchField"); got != uuid.Nil {
		t.Errorf("missing field = %s, want nil uuid", got)
	}
	if got := rowUUID(&types.User{}, "CaseID"); got != uuid.Nil {
		t.Errorf("user CaseID = %s, want nil uuid", got)
	}
}

func TestEnvelopeUUID(t *testing.T) {
	id := uuid.New()

	if got, ok := envelopeUUID(id); !ok || got != id {
		t.Errorf("uuid passthrough = %s/%v", got, ok)
	}
	if got, ok := envelopeUUID(id.String()); !ok || got != id {
		t.Errorf("string parse = %s/%v", got, ok)
	}
	if _, ok := envelopeUUID("not-a-uuid"); ok {
		t.Errorf("garbage string accepted")
	}
	if _, ok := envelopeUUID(nil); ok {
		t.Errorf("nil accepted")
	}
	if _, ok := envelopeUUID(42); ok {
		t.Errorf("int accepted")
	}
}
