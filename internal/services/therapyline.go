package services

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oncotrace/oncotrace-backend/internal/data/repos"
	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/observability"
	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
	"github.com/oncotrace/oncotrace-backend/internal/therapyline"
)

type TherapyLineService interface {
	Rebuild(ctx context.Context, caseID uuid.UUID) error
}

type therapyLineService struct {
	db           *gorm.DB
	log          *logger.Logger
	caseRepo     repos.PatientCaseRepo
	timelineRepo repos.TimelineRepo
	lineRepo     repos.TherapyLineRepo
}

func NewTherapyLineService(
	db *gorm.DB,
	baseLog *logger.Logger,
	caseRepo repos.PatientCaseRepo,
	timelineRepo repos.TimelineRepo,
	lineRepo repos.TherapyLineRepo,
) TherapyLineService {
	serviceLog := baseLog.With("service", "TherapyLineService")
	return &therapyLineService{
		db:           db,
		log:          serviceLog,
		caseRepo:     caseRepo,
		timelineRepo: timelineRepo,
		lineRepo:     lineRepo,
	}
}

// Rebuild drops and recreates the case's therapy lines in one
// transaction. An advisory lock keyed on the case id serializes
// concurrent rebuilds of the same case; different cases proceed in
// parallel.
func (ls *therapyLineService) Rebuild(ctx context.Context, caseID uuid.UUID) error {
	start := time.Now()
	assigned := 0
	err := ls.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(`SELECT pg_advisory_xact_lock(?)`, advisoryKey(caseID)).Error; err != nil {
			return errs.FromDB(err)
		}

		therapies, err := ls.timelineRepo.TherapiesByCase(ctx, tx, caseID)
		if err != nil {
			return errs.FromDB(err)
		}
		radiotherapies, err := ls.timelineRepo.RadiotherapiesByCase(ctx, tx, caseID)
		if err != nil {
			return errs.FromDB(err)
		}
		surgeries, err := ls.timelineRepo.SurgeriesByCase(ctx, tx, caseID)
		if err != nil {
			return errs.FromDB(err)
		}
		responses, err := ls.timelineRepo.ResponsesByCase(ctx, tx, caseID)
		if err != nil {
			return errs.FromDB(err)
		}
		entities, err := ls.caseRepo.EntitiesByCase(ctx, tx, caseID)
		if err != nil {
			return errs.FromDB(err)
		}

		if err := ls.lineRepo.DeleteByCase(ctx, tx, caseID); err != nil {
			return errs.FromDB(err)
		}

		lines := therapyline.Assign(therapyline.History{
			Therapies:      therapies,
			Radiotherapies: radiotherapies,
			Surgeries:      surgeries,
			Responses:      responses,
			Entities:       entities,
		})
		assigned = len(lines)
		if len(lines) == 0 {
			return nil
		}

		for _, line := range lines {
			row := line.Row(caseID)
			row.ID = uuid.New()
			if _, err := ls.lineRepo.Create(ctx, tx, []*types.TherapyLine{row}); err != nil {
				return errs.FromDB(err)
			}

			if err := ls.timelineRepo.AssignTherapyLine(ctx, tx, ids(line.Therapies), row.ID); err != nil {
				return errs.FromDB(err)
			}
			if err := ls.timelineRepo.AssignRadiotherapyLine(ctx, tx, radiotherapyIDs(line.Radiotherapies), row.ID); err != nil {
				return errs.FromDB(err)
			}
			if err := ls.timelineRepo.AssignSurgeryLine(ctx, tx, surgeryIDs(line.Surgeries), row.ID); err != nil {
				return errs.FromDB(err)
			}
		}

		ls.log.Info("Rebuilt therapy lines", "case_id", caseID, "lines", len(lines))
		return nil
	})

	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	observability.Current().ObserveLineRebuild(outcome, assigned, time.Since(start))
	return err
}

// advisoryKey folds the uuid into the signed 64-bit keyspace of
// pg_advisory_xact_lock.
func advisoryKey(id uuid.UUID) int64 {
	return int64(binary.BigEndian.Uint64(id[:8]))
}

func ids(therapies []*types.SystemicTherapy) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(therapies))
	for _, t := range therapies {
		out = append(out, t.ID)
	}
	return out
}

func radiotherapyIDs(rts []*types.Radiotherapy) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(rts))
	for _, rt := range rts {
		out = append(out, rt.ID)
	}
	return out
}

func surgeryIDs(surgeries []*types.Surgery) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(surgeries))
	for _, s := range surgeries {
		out = append(out, s.ID)
	}
	return out
}
