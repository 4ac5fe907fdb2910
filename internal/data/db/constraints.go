package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/oncotrace/oncotrace-backend/internal/hgvs"
)

// checkConstraint is one named CHECK on one table. Install drops and
// recreates so pattern changes take effect on redeploy.
type checkConstraint struct {
	table     string
	name      string
	predicate string
}

func constraints() []checkConstraint {
	return []checkConstraint{
		// Birth and death dates are stored month-precise.
		{
			table:     "patient_case",
			name:      "chk_case_dob_month",
			predicate: `extract(day from date_of_birth) = 1`,
		},
		{
			table:     "patient_case",
			name:      "chk_case_dod_month",
			predicate: `date_of_death IS NULL OR extract(day from date_of_death) = 1`,
		},
		// A primary neoplasm cannot point at another primary.
		{
			table:     "neoplastic_entity",
			name:      "chk_entity_primary_unrelated",
			predicate: `relationship <> 'primary' OR related_primary_id IS NULL`,
		},
		{
			table:     "adverse_event",
			name:      "chk_adverse_event_grade",
			predicate: `grade >= 0 AND grade <= 5`,
		},
		{
			table:     "genomic_variant",
			name:      "chk_variant_dna_hgvs",
			predicate: hgvs.CheckConstraint("dna_hgvs", hgvs.MoleculeDNA),
		},
		{
			table:     "genomic_variant",
			name:      "chk_variant_rna_hgvs",
			predicate: hgvs.CheckConstraint("rna_hgvs", hgvs.MoleculeRNA),
		},
		{
			table:     "genomic_variant",
			name:      "chk_variant_protein_hgvs",
			predicate: hgvs.CheckConstraint("protein_hgvs", hgvs.MoleculeProtein),
		},
	}
}

// InstallConstraints applies every CHECK after AutoMigrate has created
// the tables.
func InstallConstraints(db *gorm.DB) error {
	for _, c := range constraints() {
		drop := fmt.Sprintf(`ALTER TABLE %s DROP CONSTRAINT IF EXISTS %s;`, c.table, c.name)
		if err := db.Exec(drop).Error; err != nil {
			return fmt.Errorf("drop constraint %s: %w", c.name, err)
		}
		add := fmt.Sprintf(`ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s);`, c.table, c.name, c.predicate)
		if err := db.Exec(add).Error; err != nil {
			return fmt.Errorf("add constraint %s: %w", c.name, err)
		}
	}
	return nil
}
