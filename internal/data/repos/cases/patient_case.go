package cases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
)

type PatientCaseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, cases []*types.PatientCase) ([]*types.PatientCase, error)
	GetByID(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) (*types.PatientCase, error)
	GetByPseudoIdentifier(ctx context.Context, tx *gorm.DB, pseudo string) (*types.PatientCase, error)
	PseudoIdentifierExists(ctx context.Context, tx *gorm.DB, pseudo string) (bool, error)
	EntitiesByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.NeoplasticEntity, error)
	Delete(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) error
}

type patientCaseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatientCaseRepo(db *gorm.DB, baseLog *logger.Logger) PatientCaseRepo {
	repoLog := baseLog.With("repo", "PatientCaseRepo")
	return &patientCaseRepo{db: db, log: repoLog}
}

func (pr *patientCaseRepo) Create(ctx context.Context, tx *gorm.DB, cases []*types.PatientCase) ([]*types.PatientCase, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	if len(cases) == 0 {
		return []*types.PatientCase{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

func (pr *patientCaseRepo) GetByID(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) (*types.PatientCase, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var result types.PatientCase
	if err := transaction.WithContext(ctx).
		Preload("Gender").
		Preload("CauseOfDeath").
		Where("id = ?", caseID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *patientCaseRepo) GetByPseudoIdentifier(ctx context.Context, tx *gorm.DB, pseudo string) (*types.PatientCase, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var result types.PatientCase
	if err := transaction.WithContext(ctx).
		Where("pseudo_identifier = ?", pseudo).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (pr *patientCaseRepo) PseudoIdentifierExists(ctx context.Context, tx *gorm.DB, pseudo string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.PatientCase{}).
		Where("pseudo_identifier = ?", pseudo).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (pr *patientCaseRepo) EntitiesByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.NeoplasticEntity, error) {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	var results []*types.NeoplasticEntity
	if err := transaction.WithContext(ctx).
		Where("case_id = ?", caseID).
		Order("assertion_date").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (pr *patientCaseRepo) Delete(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = pr.db
	}

	return transaction.WithContext(ctx).
		Where("id = ?", caseID).
		Delete(&types.PatientCase{}).Error
}
