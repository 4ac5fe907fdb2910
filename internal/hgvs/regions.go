package hgvs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/oncotrace/oncotrace-backend/internal/domain"
)

// Regions derives the gene regions affected by an annotated variant by
// joining its position against the exon tables of the affected genes.
// Containment checks run database-side over the exons' range columns.
func Regions(ctx context.Context, db *gorm.DB, ann *Annotation, geneIDs []uuid.UUID) ([]string, error) {
	if ann == nil || ann.DNA == nil || len(geneIDs) == 0 {
		return nil, nil
	}
	dna := ann.DNA

	switch {
	case dna.IntronOffset != "":
		return intronRegions(ctx, db, dna, geneIDs)
	case dna.ThreePrimeUTR:
		return utrRegions(ctx, db, geneIDs, "3'UTR")
	case dna.FivePrimeUTR:
		return utrRegions(ctx, db, geneIDs, "5'UTR")
	}

	pos := dna.Position
	if pos == nil && dna.PositionRange != nil {
		pos = &dna.PositionRange.Start
	}
	if pos == nil {
		return nil, nil
	}

	// Coding-DNA interval first, genomic interval as fallback.
	regions, err := exonRegions(ctx, db, geneIDs, "coding_dna_region @> ?::int4", *pos)
	if err != nil {
		return nil, err
	}
	if len(regions) > 0 {
		return regions, nil
	}
	return exonRegions(ctx, db, geneIDs, "coding_genomic_region @> ?::int8", *pos)
}

func exonRegions(ctx context.Context, db *gorm.DB, geneIDs []uuid.UUID, containment string, pos int) ([]string, error) {
	var exons []types.GeneExon
	err := db.WithContext(ctx).
		Preload("Gene").
		Where("gene_id IN ?", geneIDs).
		Where(containment, pos).
		Order("rank").
		Find(&exons).Error
	if err != nil {
		return nil, fmt.Errorf("exon region lookup: %w", err)
	}
	out := make([]string, 0, len(exons))
	for _, exon := range exons {
		out = append(out, fmt.Sprintf("%s exon %d", exonGeneSymbol(exon), exon.Rank))
	}
	return out, nil
}

func intronRegions(ctx context.Context, db *gorm.DB, dna *MoleculeAnnotation, geneIDs []uuid.UUID) ([]string, error) {
	if dna.intronAnchor == nil {
		return nil, nil
	}
	var exons []types.GeneExon
	err := db.WithContext(ctx).
		Preload("Gene").
		Where("gene_id IN ?", geneIDs).
		Where("coding_dna_region @> ?::int4", *dna.intronAnchor).
		Order("rank").
		Find(&exons).Error
	if err != nil {
		return nil, fmt.Errorf("intron region lookup: %w", err)
	}
	out := make([]string, 0, len(exons))
	for _, exon := range exons {
		// A "+" offset counts 3'-ward from the anchor exon, so the intron
		// carries that exon's rank; a "-" offset sits before it.
		rank := exon.Rank
		if !strings.HasPrefix(dna.IntronOffset, "+") {
			rank--
		}
		if rank < 1 {
			continue
		}
		out = append(out, fmt.Sprintf("%s intron %d", exonGeneSymbol(exon), rank))
	}
	return out, nil
}

func utrRegions(ctx context.Context, db *gorm.DB, geneIDs []uuid.UUID, label string) ([]string, error) {
	var genes []types.Gene
	if err := db.WithContext(ctx).Where("id IN ?", geneIDs).Order("symbol").Find(&genes).Error; err != nil {
		return nil, fmt.Errorf("utr region lookup: %w", err)
	}
	out := make([]string, 0, len(genes))
	for _, g := range genes {
		out = append(out, fmt.Sprintf("%s %s", g.Symbol, label))
	}
	return out, nil
}

func exonGeneSymbol(exon types.GeneExon) string {
	if exon.Gene != nil {
		return exon.Gene.Symbol
	}
	return exon.GeneID.String()
}
