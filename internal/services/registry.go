package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/hgvs"
	"github.com/oncotrace/oncotrace-backend/internal/observability"
	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/schema"
)

// Days per month averaged over the Gregorian calendar, used for survival
// figures reported in months.
const monthDays = 30.436875

// ResourceDefinitions declares every exposed resource. The router derives
// one route group per definition; order here is the order of the OpenAPI
// listing.
func ResourceDefinitions() []*ResourceDefinition {
	return []*ResourceDefinition{
		{
			Name:  "patient-cases",
			Model: types.PatientCase{},
			ReadOptions: []schema.Option{
				schema.WithAnonymization("pseudoIdentifier",
					"clinicalIdentifier", "center",
					"dateOfBirth", "dateOfDeath", "endOfRecords"),
				schema.WithCustomField(
					schema.CustomField{
						Name:     "overallSurvivalMonths",
						Kind:     schema.KindFloat,
						Resolver: resolveOverallSurvival,
					},
					schema.CustomField{
						Name:     "completeness",
						Kind:     schema.KindFloat,
						Resolver: resolveCaseCompleteness,
					},
				),
			},
			AfterCreate: assignPseudoIdentifier,
		},
		{
			Name:  "neoplastic-entities",
			Model: types.NeoplasticEntity{},
		},
		{
			Name:          "stagings",
			Model:         types.Staging{},
			Discriminator: "domain",
			Subtypes: map[string]SubtypeDef{
				string(types.StagingDomainTNM):              {Model: types.TNMStaging{}},
				string(types.StagingDomainFIGO):             {Model: types.FIGOStaging{}},
				string(types.StagingDomainBinet):            {Model: types.BinetStaging{}},
				string(types.StagingDomainRai):              {Model: types.RaiStaging{}},
				string(types.StagingDomainBreslow):          {Model: types.BreslowDepth{}},
				string(types.StagingDomainClark):            {Model: types.ClarkStaging{}},
				string(types.StagingDomainISS):              {Model: types.ISSStaging{}},
				string(types.StagingDomainRISS):             {Model: types.RISSStaging{}},
				string(types.StagingDomainGleason):          {Model: types.GleasonGrade{}},
				string(types.StagingDomainINSS):             {Model: types.INSSStage{}},
				string(types.StagingDomainINRGSS):           {Model: types.INRGSSStage{}},
				string(types.StagingDomainWilms):            {Model: types.WilmsStage{}},
				string(types.StagingDomainRhabdomyosarcoma): {Model: types.RhabdomyosarcomaClinicalGroup{}},
				string(types.StagingDomainLymphoma):         {Model: types.LymphomaStaging{}},
			},
		},
		{
			Name:          "systemic-therapies",
			Model:         types.SystemicTherapy{},
			TriggersLines: true,
		},
		{
			Name:          "radiotherapies",
			Model:         types.Radiotherapy{},
			TriggersLines: true,
		},
		{
			Name:          "surgeries",
			Model:         types.Surgery{},
			TriggersLines: true,
		},
		{
			Name:          "treatment-responses",
			Model:         types.TreatmentResponse{},
			TriggersLines: true,
		},
		{
			Name:     "therapy-lines",
			Model:    types.TherapyLine{},
			ReadOnly: true,
			ReadOptions: []schema.Option{
				schema.WithCustomField(schema.CustomField{
					Name:     "label",
					Kind:     schema.KindString,
					Resolver: resolveLineLabel,
				}),
			},
		},
		{
			Name:  "adverse-events",
			Model: types.AdverseEvent{},
			ReadOptions: []schema.Option{
				schema.WithCustomField(schema.CustomField{
					Name:     "isResolved",
					Kind:     schema.KindBool,
					Resolver: resolveAdverseEventResolved,
				}),
			},
		},
		{
			Name:  "comorbidities-assessments",
			Model: types.ComorbiditiesAssessment{},
			ReadOptions: []schema.Option{
				schema.WithCustomField(schema.CustomField{
					Name:     "score",
					Kind:     schema.KindFloat,
					Resolver: resolveComorbidityScore,
				}),
			},
		},
		{
			Name:  "genomic-variants",
			Model: types.GenomicVariant{},
			ReadOptions: []schema.Option{
				schema.WithCustomField(
					schema.CustomField{
						Name:     "annotation",
						Kind:     schema.KindJSON,
						Resolver: resolveVariantAnnotation,
					},
					schema.CustomField{
						Name:     "affectedRegions",
						Kind:     schema.KindArray,
						Resolver: resolveVariantRegions,
					},
				),
			},
			BeforeCreate: validateVariantHGVS,
			BeforeUpdate: validateVariantHGVS,
		},
		{
			Name:          "genomic-signatures",
			Model:         types.GenomicSignature{},
			Discriminator: "category",
			Subtypes: map[string]SubtypeDef{
				string(types.SignatureTMB):       {Model: types.TumorMutationalBurden{}},
				string(types.SignatureMSI):       {Model: types.MicrosatelliteInstability{}},
				string(types.SignatureLOH):       {Model: types.LossOfHeterozygosity{}},
				string(types.SignatureHRD):       {Model: types.HomologousRecombinationDeficiency{}},
				string(types.SignatureTNB):       {Model: types.TumorNeoantigenBurden{}},
				string(types.SignatureAneuploid): {Model: types.AneuploidScore{}},
			},
		},
		{
			Name:          "tumor-boards",
			Model:         types.TumorBoard{},
			Discriminator: "category",
			Subtypes: map[string]SubtypeDef{
				string(types.TumorBoardMolecular):   {Model: types.MolecularTumorBoard{}},
				string(types.TumorBoardUnspecified): {Model: types.UnspecifiedTumorBoard{}},
			},
		},
		{
			Name:  "genes",
			Model: types.Gene{},
		},
	}
}

// DefinitionIndex keys definitions by resource name.
func DefinitionIndex(defs []*ResourceDefinition) map[string]*ResourceDefinition {
	out := make(map[string]*ResourceDefinition, len(defs))
	for _, def := range defs {
		out[def.Name] = def
	}
	return out
}

// assignPseudoIdentifier stamps a freshly created case with its stable
// pseudonym, e.g. OT-3F9A2C41. The column is read-only on the API.
func assignPseudoIdentifier(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return errs.Internalf("generate pseudo identifier: %v", err)
	}
	pseudo := "OT-" + strings.ToUpper(hex.EncodeToString(buf))
	res := tx.WithContext(ctx).
		Model(&types.PatientCase{}).
		Where("id = ?", id).
		Update("pseudo_identifier", pseudo)
	return errs.FromDB(res.Error)
}

func resolveLineLabel(_ context.Context, _ *gorm.DB, row reflect.Value) (any, error) {
	line, ok := rowAs[types.TherapyLine](row)
	if !ok {
		return nil, fmt.Errorf("resolver: %s is not a therapy line", row.Type())
	}
	return line.Label(), nil
}

func resolveAdverseEventResolved(_ context.Context, _ *gorm.DB, row reflect.Value) (any, error) {
	event, ok := rowAs[types.AdverseEvent](row)
	if !ok {
		return nil, fmt.Errorf("resolver: %s is not an adverse event", row.Type())
	}
	return event.IsResolved(), nil
}

// resolveComorbidityScore computes the panel-weighted score. The present
// conditions are fetched here because list queries do not preload them.
func resolveComorbidityScore(ctx context.Context, db *gorm.DB, row reflect.Value) (any, error) {
	assessment, ok := rowAs[types.ComorbiditiesAssessment](row)
	if !ok {
		return nil, fmt.Errorf("resolver: %s is not a comorbidities assessment", row.Type())
	}
	if len(assessment.PresentConditions) == 0 && db != nil {
		err := db.WithContext(ctx).
			Where("id IN (SELECT coded_concept_id FROM comorbidities_present WHERE comorbidities_assessment_id = ?)", assessment.ID).
			Find(&assessment.PresentConditions).Error
		if err != nil {
			return nil, fmt.Errorf("resolve comorbidity score: %w", err)
		}
	}
	return assessment.Score(), nil
}

// resolveOverallSurvival reports months from the earliest neoplasm
// assertion to death, end of records, or today, nil before any neoplasm
// is recorded.
func resolveOverallSurvival(ctx context.Context, db *gorm.DB, row reflect.Value) (any, error) {
	patientCase, ok := rowAs[types.PatientCase](row)
	if !ok {
		return nil, fmt.Errorf("resolver: %s is not a patient case", row.Type())
	}
	if db == nil {
		return nil, nil
	}
	var first types.NeoplasticEntity
	err := db.WithContext(ctx).
		Where("case_id = ?", patientCase.ID).
		Order("assertion_date").
		First(&first).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve overall survival: %w", err)
	}
	until := time.Now()
	switch {
	case patientCase.DateOfDeath != nil:
		until = *patientCase.DateOfDeath
	case patientCase.EndOfRecords != nil:
		until = *patientCase.EndOfRecords
	}
	months := until.Sub(first.AssertionDate).Hours() / 24 / monthDays
	if months < 0 {
		months = 0
	}
	return months, nil
}

// resolveCaseCompleteness reports the filled fraction of the optional
// curated fields. Death details only count against dead cases.
func resolveCaseCompleteness(_ context.Context, _ *gorm.DB, row reflect.Value) (any, error) {
	patientCase, ok := rowAs[types.PatientCase](row)
	if !ok {
		return nil, fmt.Errorf("resolver: %s is not a patient case", row.Type())
	}

	total := 2
	filled := 0
	if patientCase.GenderID != nil {
		filled++
	}
	if patientCase.EndOfRecords != nil {
		filled++
	}
	if patientCase.VitalStatus == types.VitalStatusDead {
		total += 2
		if patientCase.DateOfDeath != nil {
			filled++
		}
		if patientCase.CauseOfDeathID != nil {
			filled++
		}
	}
	return float64(filled) / float64(total), nil
}

func resolveVariantAnnotation(_ context.Context, _ *gorm.DB, row reflect.Value) (any, error) {
	variant, ok := rowAs[types.GenomicVariant](row)
	if !ok {
		return nil, fmt.Errorf("resolver: %s is not a genomic variant", row.Type())
	}
	annotation, err := hgvs.Annotate(variant.DNAHGVS, variant.RNAHGVS, variant.ProteinHGVS)
	if err != nil {
		return nil, fmt.Errorf("resolve variant annotation: %w", err)
	}
	return annotation, nil
}

// resolveVariantRegions derives the exon/intron labels covered by the
// variant from the exon tables of its associated genes.
func resolveVariantRegions(ctx context.Context, db *gorm.DB, row reflect.Value) (any, error) {
	variant, ok := rowAs[types.GenomicVariant](row)
	if !ok {
		return nil, fmt.Errorf("resolver: %s is not a genomic variant", row.Type())
	}
	if db == nil {
		return []string{}, nil
	}
	annotation, err := hgvs.Annotate(variant.DNAHGVS, variant.RNAHGVS, variant.ProteinHGVS)
	if err != nil {
		return nil, fmt.Errorf("resolve variant regions: %w", err)
	}

	geneIDs := make([]uuid.UUID, 0, len(variant.Genes))
	for _, gene := range variant.Genes {
		geneIDs = append(geneIDs, gene.ID)
	}
	if len(geneIDs) == 0 {
		err := db.WithContext(ctx).
			Table("variant_genes").
			Where("genomic_variant_id = ?", variant.ID).
			Pluck("gene_id", &geneIDs).Error
		if err != nil {
			return nil, fmt.Errorf("resolve variant regions: %w", err)
		}
	}
	regions, err := hgvs.Regions(ctx, db, annotation, geneIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve variant regions: %w", err)
	}
	return regions, nil
}

// validateVariantHGVS rejects malformed descriptions before they reach the
// CHECK constraints, so clients get a field-level error.
func validateVariantHGVS(_ context.Context, _ *gorm.DB, payload map[string]any) error {
	checks := []struct {
		field    string
		molecule hgvs.Molecule
	}{
		{"dnaHgvs", hgvs.MoleculeDNA},
		{"rnaHgvs", hgvs.MoleculeRNA},
		{"proteinHgvs", hgvs.MoleculeProtein},
	}
	for _, check := range checks {
		raw, ok := payload[check.field]
		if !ok || raw == nil {
			continue
		}
		description, ok := raw.(string)
		if !ok {
			return errs.InvalidArgumentf("field %q expects a string", check.field)
		}
		if description != "" && !hgvs.Valid(check.molecule, description) {
			observability.Current().ObserveHGVSRejection()
			return errs.InvalidArgumentf("field %q is not a valid HGVS description: %q", check.field, description)
		}
	}
	return nil
}

// rowAs unwraps a reflected model row to a typed pointer.
func rowAs[T any](row reflect.Value) (*T, bool) {
	v := row
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, false
	}
	if typed, ok := v.Interface().(T); ok {
		return &typed, true
	}
	return nil, false
}
