package terminology

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
)

type ConceptRepo interface {
	Create(ctx context.Context, tx *gorm.DB, concepts []*types.CodedConcept) ([]*types.CodedConcept, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, conceptIDs []uuid.UUID) ([]*types.CodedConcept, error)
	GetByCodeSystem(ctx context.Context, tx *gorm.DB, code, system string) (*types.CodedConcept, error)
	GetByTerminologyCode(ctx context.Context, tx *gorm.DB, terminology, code string) (*types.CodedConcept, error)
	Search(ctx context.Context, tx *gorm.DB, terminology, query string, limit int) ([]*types.CodedConcept, error)
	Descendants(ctx context.Context, tx *gorm.DB, rootIDs []uuid.UUID, includeRoots bool) ([]uuid.UUID, error)
}

type conceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConceptRepo(db *gorm.DB, baseLog *logger.Logger) ConceptRepo {
	repoLog := baseLog.With("repo", "ConceptRepo")
	return &conceptRepo{db: db, log: repoLog}
}

func (cr *conceptRepo) Create(ctx context.Context, tx *gorm.DB, concepts []*types.CodedConcept) ([]*types.CodedConcept, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if len(concepts) == 0 {
		return []*types.CodedConcept{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&concepts).Error; err != nil {
		return nil, err
	}
	return concepts, nil
}

func (cr *conceptRepo) GetByIDs(ctx context.Context, tx *gorm.DB, conceptIDs []uuid.UUID) ([]*types.CodedConcept, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []*types.CodedConcept
	if len(conceptIDs) == 0 {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("id IN ?", conceptIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *conceptRepo) GetByCodeSystem(ctx context.Context, tx *gorm.DB, code, system string) (*types.CodedConcept, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.CodedConcept
	if err := transaction.WithContext(ctx).
		Where("code = ? AND system = ?", code, system).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *conceptRepo) GetByTerminologyCode(ctx context.Context, tx *gorm.DB, terminology, code string) (*types.CodedConcept, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.CodedConcept
	if err := transaction.WithContext(ctx).
		Where("terminology = ? AND code = ?", terminology, code).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *conceptRepo) Search(ctx context.Context, tx *gorm.DB, terminology, query string, limit int) ([]*types.CodedConcept, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if limit <= 0 {
		limit = 50
	}

	var results []*types.CodedConcept
	q := transaction.WithContext(ctx).Model(&types.CodedConcept{})
	if terminology != "" {
		q = q.Where("terminology = ?", terminology)
	}
	if query != "" {
		q = q.Where("display ILIKE ? OR code = ?", "%"+query+"%", query)
	}
	if err := q.Order("display").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// Descendants walks parent links transitively from the given roots.
func (cr *conceptRepo) Descendants(ctx context.Context, tx *gorm.DB, rootIDs []uuid.UUID, includeRoots bool) ([]uuid.UUID, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var results []uuid.UUID
	if len(rootIDs) == 0 {
		return results, nil
	}

	query := `
		WITH RECURSIVE concept_tree AS (
			SELECT id, id AS root_id FROM coded_concept WHERE id IN ?
			UNION ALL
			SELECT c.id, t.root_id FROM coded_concept c
			JOIN concept_tree t ON c.parent_id = t.id
		)
		SELECT id FROM concept_tree`
	if !includeRoots {
		query += ` WHERE id <> root_id`
	}

	if err := transaction.WithContext(ctx).
		Raw(query, rootIDs).
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
