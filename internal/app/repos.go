package app

import (
	"gorm.io/gorm"

	"github.com/oncotrace/oncotrace-backend/internal/data/repos"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
)

type Repos struct {
	User        repos.UserRepo
	UserToken   repos.UserTokenRepo
	Concept     repos.ConceptRepo
	Gene        repos.GeneRepo
	PatientCase repos.PatientCaseRepo
	Timeline    repos.TimelineRepo
	TherapyLine repos.TherapyLineRepo
	Variant     repos.VariantRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:        repos.NewUserRepo(db, log),
		UserToken:   repos.NewUserTokenRepo(db, log),
		Concept:     repos.NewConceptRepo(db, log),
		Gene:        repos.NewGeneRepo(db, log),
		PatientCase: repos.NewPatientCaseRepo(db, log),
		Timeline:    repos.NewTimelineRepo(db, log),
		TherapyLine: repos.NewTherapyLineRepo(db, log),
		Variant:     repos.NewVariantRepo(db, log),
	}
}
