package terminology

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
)

type GeneRepo interface {
	Create(ctx context.Context, tx *gorm.DB, genes []*types.Gene) ([]*types.Gene, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, geneIDs []uuid.UUID) ([]*types.Gene, error)
	GetBySymbols(ctx context.Context, tx *gorm.DB, symbols []string) ([]*types.Gene, error)
	ExonsByGeneIDs(ctx context.Context, tx *gorm.DB, geneIDs []uuid.UUID) ([]*types.GeneExon, error)
}

type geneRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGeneRepo(db *gorm.DB, baseLog *logger.Logger) GeneRepo {
	repoLog := baseLog.With("repo", "GeneRepo")
	return &geneRepo{db: db, log: repoLog}
}

func (gr *geneRepo) Create(ctx context.Context, tx *gorm.DB, genes []*types.Gene) ([]*types.Gene, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}

	if len(genes) == 0 {
		return []*types.Gene{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&genes).Error; err != nil {
		return nil, err
	}
	return genes, nil
}

func (gr *geneRepo) GetByIDs(ctx context.Context, tx *gorm.DB, geneIDs []uuid.UUID) ([]*types.Gene, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}

	var results []*types.Gene
	if len(geneIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", geneIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (gr *geneRepo) GetBySymbols(ctx context.Context, tx *gorm.DB, symbols []string) ([]*types.Gene, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}

	var results []*types.Gene
	if len(symbols) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("symbol IN ?", symbols).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (gr *geneRepo) ExonsByGeneIDs(ctx context.Context, tx *gorm.DB, geneIDs []uuid.UUID) ([]*types.GeneExon, error) {
	transaction := tx
	if transaction == nil {
		transaction = gr.db
	}

	var results []*types.GeneExon
	if len(geneIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("gene_id IN ?", geneIDs).
		Order("gene_id, rank").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
