package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oncotrace/oncotrace-backend/internal/clients/redis"
	"github.com/oncotrace/oncotrace-backend/internal/data/repos"
	types "github.com/oncotrace/oncotrace-backend/internal/domain"
	"github.com/oncotrace/oncotrace-backend/internal/observability"
	"github.com/oncotrace/oncotrace-backend/internal/platform/errs"
	"github.com/oncotrace/oncotrace-backend/internal/platform/logger"
)

const conceptCacheTTL = 12 * time.Hour

type TerminologyService interface {
	Resolve(ctx context.Context, code, system string) (*types.CodedConcept, error)
	ResolveInTerminology(ctx context.Context, terminology, code string) (*types.CodedConcept, error)
	Search(ctx context.Context, terminology, query string, limit int) ([]*types.CodedConcept, error)
	Descendants(ctx context.Context, rootIDs []uuid.UUID, includeRoots bool) ([]uuid.UUID, error)
}

type terminologyService struct {
	log         *logger.Logger
	conceptRepo repos.ConceptRepo
	cache       *redis.Client
}

func NewTerminologyService(baseLog *logger.Logger, conceptRepo repos.ConceptRepo, cache *redis.Client) TerminologyService {
	serviceLog := baseLog.With("service", "TerminologyService")
	return &terminologyService{
		log:         serviceLog,
		conceptRepo: conceptRepo,
		cache:       cache,
	}
}

func (ts *terminologyService) Resolve(ctx context.Context, code, system string) (*types.CodedConcept, error) {
	key := fmt.Sprintf("concept:%s:%s", system, code)
	if concept, ok := ts.cached(ctx, key); ok {
		observability.Current().ObserveTerminologyLookup("cache")
		return concept, nil
	}

	concept, err := ts.conceptRepo.GetByCodeSystem(ctx, nil, code, system)
	if err != nil {
		observability.Current().ObserveTerminologyLookup("miss")
		return nil, errs.NotFoundf("concept %s (%s)", code, system)
	}
	observability.Current().ObserveTerminologyLookup("database")
	ts.store(ctx, key, concept)
	return concept, nil
}

func (ts *terminologyService) ResolveInTerminology(ctx context.Context, terminology, code string) (*types.CodedConcept, error) {
	key := fmt.Sprintf("concept:t:%s:%s", terminology, code)
	if concept, ok := ts.cached(ctx, key); ok {
		observability.Current().ObserveTerminologyLookup("cache")
		return concept, nil
	}

	concept, err := ts.conceptRepo.GetByTerminologyCode(ctx, nil, terminology, code)
	if err != nil {
		observability.Current().ObserveTerminologyLookup("miss")
		return nil, errs.NotFoundf("concept %s in terminology %s", code, terminology)
	}
	observability.Current().ObserveTerminologyLookup("database")
	ts.store(ctx, key, concept)
	return concept, nil
}

func (ts *terminologyService) Search(ctx context.Context, terminology, query string, limit int) ([]*types.CodedConcept, error) {
	results, err := ts.conceptRepo.Search(ctx, nil, terminology, query, limit)
	if err != nil {
		return nil, errs.FromDB(err)
	}
	return results, nil
}

func (ts *terminologyService) Descendants(ctx context.Context, rootIDs []uuid.UUID, includeRoots bool) ([]uuid.UUID, error) {
	ids, err := ts.conceptRepo.Descendants(ctx, nil, rootIDs, includeRoots)
	if err != nil {
		return nil, errs.FromDB(err)
	}
	return ids, nil
}

// Cache misses and failures both fall through to the database; a broken
// cache never fails a request.
func (ts *terminologyService) cached(ctx context.Context, key string) (*types.CodedConcept, bool) {
	raw, ok, err := ts.cache.Get(ctx, key)
	if err != nil {
		ts.log.Warn("Concept cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var concept types.CodedConcept
	if err := json.Unmarshal([]byte(raw), &concept); err != nil {
		return nil, false
	}
	return &concept, true
}

func (ts *terminologyService) store(ctx context.Context, key string, concept *types.CodedConcept) {
	raw, err := json.Marshal(concept)
	if err != nil {
		return
	}
	if err := ts.cache.Set(ctx, key, string(raw), conceptCacheTTL); err != nil {
		ts.log.Warn("Concept cache write failed", "key", key, "error", err)
	}
}
