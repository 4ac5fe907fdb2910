package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Identity + auth
		// =========================
		&types.User{},
		&types.UserToken{},

		// =========================
		// Terminology + genes
		// =========================
		&types.CodedConcept{},
		&types.Gene{},
		&types.GeneExon{},

		// =========================
		// Case core
		// =========================
		&types.PatientCase{},
		&types.NeoplasticEntity{},

		// =========================
		// Staging (parent + subtypes sharing the parent pk)
		// =========================
		&types.Staging{},
		&types.TNMStaging{},
		&types.FIGOStaging{},
		&types.BinetStaging{},
		&types.RaiStaging{},
		&types.BreslowDepth{},
		&types.ClarkStaging{},
		&types.ISSStaging{},
		&types.RISSStaging{},
		&types.GleasonGrade{},
		&types.INSSStage{},
		&types.INRGSSStage{},
		&types.WilmsStage{},
		&types.RhabdomyosarcomaClinicalGroup{},
		&types.LymphomaStaging{},

		// =========================
		// Treatment timeline
		// =========================
		&types.SystemicTherapy{},
		&types.Medication{},
		&types.Radiotherapy{},
		&types.RadiotherapyDosage{},
		&types.RadiotherapySetting{},
		&types.Surgery{},
		&types.TreatmentResponse{},
		&types.TherapyLine{},
		&types.AdverseEvent{},
		&types.AdverseEventCause{},
		&types.AdverseEventMitigation{},

		// =========================
		// Comorbidities
		// =========================
		&types.ComorbiditiesAssessment{},

		// =========================
		// Genomics
		// =========================
		&types.GenomicVariant{},
		&types.GenomicSignature{},
		&types.TumorMutationalBurden{},
		&types.MicrosatelliteInstability{},
		&types.LossOfHeterozygosity{},
		&types.HomologousRecombinationDeficiency{},
		&types.TumorNeoantigenBurden{},
		&types.AneuploidScore{},

		// =========================
		// Tumor boards
		// =========================
		&types.TumorBoard{},
		&types.MolecularTumorBoard{},
		&types.UnspecifiedTumorBoard{},
	)
}

func EnsureTerminologyIndexes(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}
	// Concept lookup during marshalling is always (code, system) or
	// (terminology, code).
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_coded_concept_code_system
		ON coded_concept (code, system);
	`).Error; err != nil {
		return fmt.Errorf("create idx_coded_concept_code_system: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_coded_concept_display
		ON coded_concept USING GIN (to_tsvector('simple', display));
	`).Error; err != nil {
		return fmt.Errorf("create idx_coded_concept_display: %w", err)
	}
	return nil
}

func EnsureTimelineIndexes(db *gorm.DB) error {
	// Line rebuilds scan the whole treatment timeline of one case.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_systemic_therapy_case_period
		ON systemic_therapy (case_id, lower(period));
	`).Error; err != nil {
		return fmt.Errorf("create idx_systemic_therapy_case_period: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_treatment_response_case_date
		ON treatment_response (case_id, date);
	`).Error; err != nil {
		return fmt.Errorf("create idx_treatment_response_case_date: %w", err)
	}
	// Exon interval containment drives HGVS region annotation.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_gene_exon_dna_region
		ON gene_exon USING GIST (coding_dna_region);
	`).Error; err != nil {
		return fmt.Errorf("create idx_gene_exon_dna_region: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_gene_exon_genomic_region
		ON gene_exon USING GIST (coding_genomic_region);
	`).Error; err != nil {
		return fmt.Errorf("create idx_gene_exon_genomic_region: %w", err)
	}
	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureTerminologyIndexes(s.db); err != nil {
		s.log.Error("Terminology index migration failed", "error", err)
		return err
	}
	if err := EnsureTimelineIndexes(s.db); err != nil {
		s.log.Error("Timeline index migration failed", "error", err)
		return err
	}
	if err := InstallConstraints(s.db); err != nil {
		s.log.Error("Constraint installation failed", "error", err)
		return err
	}
	return nil
}
