package treatment

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
)

type TherapyLineRepo interface {
	Create(ctx context.Context, tx *gorm.DB, lines []*types.TherapyLine) ([]*types.TherapyLine, error)
	GetByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.TherapyLine, error)
	DeleteByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) error
}

type therapyLineRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTherapyLineRepo(db *gorm.DB, baseLog *logger.Logger) TherapyLineRepo {
	repoLog := baseLog.With("repo", "TherapyLineRepo")
	return &therapyLineRepo{db: db, log: repoLog}
}

func (lr *therapyLineRepo) Create(ctx context.Context, tx *gorm.DB, lines []*types.TherapyLine) ([]*types.TherapyLine, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	if len(lines) == 0 {
		return []*types.TherapyLine{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

func (lr *therapyLineRepo) GetByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.TherapyLine, error) {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	var results []*types.TherapyLine
	if err := transaction.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("intent, ordinal").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteByCase detaches members first so the rebuild starts clean even
// when the new assignment produces fewer lines.
func (lr *therapyLineRepo) DeleteByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = lr.db
	}

	for _, model := range []any{&types.SystemicTherapy{}, &types.Radiotherapy{}, &types.Surgery{}} {
		if err := transaction.WithContext(ctx).
			Model(model).
			Where("case_id = ?", caseID).
			Update("therapy_line_id", nil).Error; err != nil {
			return err
		}
	}

	return transaction.WithContext(ctx).
		Where("case_id = ?", caseID).
		Delete(&types.TherapyLine{}).Error
}
