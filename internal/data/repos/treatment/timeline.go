package treatment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
)

// TimelineRepo loads the full treatment timeline of one case with the
// associations the line engine needs resolved.
type TimelineRepo interface {
	TherapiesByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.SystemicTherapy, error)
	RadiotherapiesByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.Radiotherapy, error)
	SurgeriesByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.Surgery, error)
	ResponsesByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.TreatmentResponse, error)
	AssignTherapyLine(ctx context.Context, tx *gorm.DB, therapyIDs []uuid.UUID, lineID uuid.UUID) error
	AssignRadiotherapyLine(ctx context.Context, tx *gorm.DB, radiotherapyIDs []uuid.UUID, lineID uuid.UUID) error
	AssignSurgeryLine(ctx context.Context, tx *gorm.DB, surgeryIDs []uuid.UUID, lineID uuid.UUID) error
}

type timelineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTimelineRepo(db *gorm.DB, baseLog *logger.Logger) TimelineRepo {
	repoLog := baseLog.With("repo", "TimelineRepo")
	return &timelineRepo{db: db, log: repoLog}
}

func (tr *timelineRepo) TherapiesByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.SystemicTherapy, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.SystemicTherapy
	if err := transaction.WithContext(ctx).
		Preload("Medications.Drug").
		Preload("TerminationReason").
		Where("case_id = ?", caseID).
		Order("lower(period)").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *timelineRepo) RadiotherapiesByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.Radiotherapy, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Radiotherapy
	if err := transaction.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("lower(period)").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *timelineRepo) SurgeriesByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.Surgery, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.Surgery
	if err := transaction.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("date").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *timelineRepo) ResponsesByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.TreatmentResponse, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.TreatmentResponse
	if err := transaction.WithContext(ctx).
		Preload("Recist").
		Where("case_id = ?", caseID).
		Order("date").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *timelineRepo) AssignTherapyLine(ctx context.Context, tx *gorm.DB, therapyIDs []uuid.UUID, lineID uuid.UUID) error {
	return tr.assign(ctx, tx, &types.SystemicTherapy{}, therapyIDs, lineID)
}

func (tr *timelineRepo) AssignRadiotherapyLine(ctx context.Context, tx *gorm.DB, radiotherapyIDs []uuid.UUID, lineID uuid.UUID) error {
	return tr.assign(ctx, tx, &types.Radiotherapy{}, radiotherapyIDs, lineID)
}

func (tr *timelineRepo) AssignSurgeryLine(ctx context.Context, tx *gorm.DB, surgeryIDs []uuid.UUID, lineID uuid.UUID) error {
	return tr.assign(ctx, tx, &types.Surgery{}, surgeryIDs, lineID)
}

func (tr *timelineRepo) assign(ctx context.Context, tx *gorm.DB, model any, ids []uuid.UUID, lineID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if len(ids) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(model).
		Where("id IN ?", ids).
		Update("therapy_line_id", lineID).Error
}
