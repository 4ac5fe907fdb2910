package marshal

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/schema"
)

func mockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{
		DisableAutomaticPing: true,
	})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return db, mock
}

func createSchema(t *testing.T, model any) *schema.Schema {
	t.Helper()
	s, err := schema.NewFactory().Create(model)
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return s
}

func TestCreateRejectsUnknownField(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	s := createSchema(t, &types.Surgery{})
	_, err := Create(context.Background(), db, s, map[string]any{
		"bogus": "x",
	})
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database traffic: %v", err)
	}
}

func TestCreateRejectsMissingRequiredField(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	s := createSchema(t, &types.NeoplasticEntity{})
	_, err := Create(context.Background(), db, s, map[string]any{
		"relationship": "primary",
		// caseId and assertionDate absent
	})
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}

func TestCreateRejectsUnknownEnumValue(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	s := createSchema(t, &types.NeoplasticEntity{})
	_, err := Create(context.Background(), db, s, map[string]any{
		"caseId":        "7d4f2c1e-61f2-4b0e-9f64-0d4c1bfa2f10",
		"assertionDate": "2020-01-01",
		"relationship":  "sideways",
	})
	if !errors.Is(err, errs.ErrInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}

func TestCreateMissingConceptRollsBack(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM "coded_concept"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	s := createSchema(t, &types.NeoplasticEntity{})
	_, err := Create(context.Background(), db, s, map[string]any{
		"caseId":        "7d4f2c1e-61f2-4b0e-9f64-0d4c1bfa2f10",
		"assertionDate": "2020-01-01",
		"relationship":  "primary",
		"topography":    map[string]any{"code": "C34.1", "system": "icd-o-3"},
	})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("write path continued past the failed resolution: %v", err)
	}
}

func TestDecodeHelpers(t *testing.T) {
	spec := &schema.FieldSpec{JSON: "dosage", Kind: schema.KindMeasure, DefaultUnit: "mg"}
	m, err := decodeMeasure(spec, map[string]any{"value": 40.0})
	if err != nil {
		t.Fatalf("decodeMeasure: %v", err)
	}
	if m.Amount != 40 || m.Unit != "mg" {
		t.Errorf("measure = %+v, want 40 mg", m)
	}
	if _, err := decodeMeasure(spec, map[string]any{"unit": "mg"}); err == nil {
		t.Errorf("measure without value must fail")
	}

	pspec := &schema.FieldSpec{JSON: "period", Kind: schema.KindPeriod}
	p, err := decodePeriod(pspec, map[string]any{"start": "2020-01-01", "end": "2020-06-01"})
	if err != nil {
		t.Fatalf("decodePeriod: %v", err)
	}
	if p.Start == nil || p.End == nil || p.Start.Format(dateLayout) != "2020-01-01" {
		t.Errorf("period = %+v", p)
	}
	if _, err := decodePeriod(pspec, map[string]any{"start": "not-a-date"}); err == nil {
		t.Errorf("malformed period start must fail")
	}

	open, err := decodePeriod(pspec, map[string]any{"start": "2020-01-01"})
	if err != nil {
		t.Fatalf("decodePeriod: %v", err)
	}
	if open.End != nil {
		t.Errorf("open period must keep a nil end")
	}
}
