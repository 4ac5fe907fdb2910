package repos

import (
	"gorm.io/gorm"

	"github.com/oncotrace/oncotrace-backend/internal/data/repos/auth"
	"github.com/oncotrace/oncotrace-backend/internal/data/repos/cases"
	"github.com/oncotrace/oncotrace-backend/internal/data/repos/genomics"
	"github.com/oncotrace/oncotrace-backend/internal/data/repos/terminology"
	"github.com/oncotrace/oncotrace-backend/internal/data/repos/treatment"
	"github.com/oncotrace/oncotrace-backend/internal/data/repos/user"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
)

type UserRepo = user.UserRepo
type UserTokenRepo = auth.UserTokenRepo

type ConceptRepo = terminology.ConceptRepo
type GeneRepo = terminology.GeneRepo

type PatientCaseRepo = cases.PatientCaseRepo

type TimelineRepo = treatment.TimelineRepo
type TherapyLineRepo = treatment.TherapyLineRepo

type VariantRepo = genomics.VariantRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}

func NewConceptRepo(db *gorm.DB, baseLog *logger.Logger) ConceptRepo {
	return terminology.NewConceptRepo(db, baseLog)
}
func NewGeneRepo(db *gorm.DB, baseLog *logger.Logger) GeneRepo {
	return terminology.NewGeneRepo(db, baseLog)
}

func NewPatientCaseRepo(db *gorm.DB, baseLog *logger.Logger) PatientCaseRepo {
	return cases.NewPatientCaseRepo(db, baseLog)
}

func NewTimelineRepo(db *gorm.DB, baseLog *logger.Logger) TimelineRepo {
	return treatment.NewTimelineRepo(db, baseLog)
}
func NewTherapyLineRepo(db *gorm.DB, baseLog *logger.Logger) TherapyLineRepo {
	return treatment.NewTherapyLineRepo(db, baseLog)
}

func NewVariantRepo(db *gorm.DB, baseLog *logger.Logger) VariantRepo {
	return genomics.NewVariantRepo(db, baseLog)
}
