package genomics

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
)

type VariantRepo interface {
	GetByID(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (*types.GenomicVariant, error)
	GetByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.GenomicVariant, error)
	GeneIDsForVariant(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) ([]uuid.UUID, error)
}

type variantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVariantRepo(db *gorm.DB, baseLog *logger.Logger) VariantRepo {
	repoLog := baseLog.With("repo", "VariantRepo")
	return &variantRepo{db: db, log: repoLog}
}

func (vr *variantRepo) GetByID(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) (*types.GenomicVariant, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var result types.GenomicVariant
	if err := transaction.WithContext(ctx).
		Preload("Genes").
		Where("id = ?", variantID).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (vr *variantRepo) GetByCase(ctx context.Context, tx *gorm.DB, caseID uuid.UUID) ([]*types.GenomicVariant, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var results []*types.GenomicVariant
	if err := transaction.WithContext(ctx).
		Preload("Genes").
		Where("case_id = ?", caseID).
		Order("date").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (vr *variantRepo) GeneIDsForVariant(ctx context.Context, tx *gorm.DB, variantID uuid.UUID) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = vr.db
	}

	var results []uuid.UUID
	if err := transaction.WithContext(ctx).
		Table("variant_genes").
		Where("genomic_variant_id = ?", variantID).
		Pluck("gene_id", &results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
