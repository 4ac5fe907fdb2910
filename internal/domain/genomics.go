package types

import (
	"time"

	"github.com/google/uuid"
)

// Gene is reference data: one HGNC gene with its exon table used to derive
// the regions affected by a variant.
type Gene struct {
	ID       uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Symbol   string     `gorm:"column:symbol;not null;uniqueIndex" json:"symbol"`
	Name     string     `gorm:"column:name" json:"name,omitempty"`
	HGNCID   string     `gorm:"column:hgnc_id" json:"hgnc_id,omitempty"`
	Exons    []GeneExon `gorm:"constraint:OnDelete:CASCADE;foreignKey:GeneID;references:ID" json:"exons,omitempty"`
}

func (Gene) TableName() string { return "gene" }

// GeneExon carries the coding-DNA and genomic coordinate intervals of one
// exon, ranked 5' to 3'.
type GeneExon struct {
	ID                  uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GeneID              uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_gene_exon_rank" json:"gene_id"`
	Gene                *Gene     `gorm:"foreignKey:GeneID;references:ID" json:"-" api:"exclude"`
	Rank                int       `gorm:"column:rank;not null;uniqueIndex:idx_gene_exon_rank" json:"rank"`
	CodingDNARegion     IntRange  `gorm:"type:int4range;column:coding_dna_region" json:"coding_dna_region"`
	CodingGenomicRegion IntRange  `gorm:"type:int8range;column:coding_genomic_region" json:"coding_genomic_region"`
}

func (GeneExon) TableName() string { return "gene_exon" }

type ClinicalRelevance string

const (
	RelevancePathogenic       ClinicalRelevance = "pathogenic"
	RelevanceLikelyPathogenic ClinicalRelevance = "likely-pathogenic"
	RelevanceUncertain        ClinicalRelevance = "uncertain-significance"
	RelevanceLikelyBenign     ClinicalRelevance = "likely-benign"
	RelevanceBenign           ClinicalRelevance = "benign"
)

type Zygosity string

const (
	ZygosityHeterozygous Zygosity = "heterozygous"
	ZygosityHomozygous   Zygosity = "homozygous"
	ZygosityHemizygous   Zygosity = "hemizygous"
)

// GenomicVariant stores the raw HGVS strings; all structural properties
// (change type, positions, affected regions) are derived by the HGVS
// annotator and surfaced as read-only envelope fields. The CHECK
// constraints rejecting malformed HGVS live in data/db/constraints.go and
// are emitted from the same grammar the annotator uses.
type GenomicVariant struct {
	ID                uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID            uuid.UUID          `gorm:"type:uuid;not null;index" json:"case_id"`
	Case              *PatientCase       `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Date              time.Time          `gorm:"type:date;column:date;not null" json:"date"`
	Genes             []Gene             `gorm:"many2many:variant_genes" json:"genes,omitempty"`
	DNAHGVS           *string            `gorm:"column:dna_hgvs" json:"dna_hgvs,omitempty"`
	RNAHGVS           *string            `gorm:"column:rna_hgvs" json:"rna_hgvs,omitempty"`
	ProteinHGVS       *string            `gorm:"column:protein_hgvs" json:"protein_hgvs,omitempty"`
	ClinicalRelevance *ClinicalRelevance `gorm:"column:clinical_relevance" json:"clinical_relevance,omitempty" api:"enum=pathogenic|likely-pathogenic|uncertain-significance|likely-benign|benign"`
	CopyNumber        *int               `gorm:"column:copy_number" json:"copy_number,omitempty"`
	Zygosity          *Zygosity          `gorm:"column:zygosity" json:"zygosity,omitempty" api:"enum=heterozygous|homozygous|hemizygous"`
	Audit
}

func (GenomicVariant) TableName() string { return "genomic_variant" }

type SignatureCategory string

const (
	SignatureTMB        SignatureCategory = "tumor-mutational-burden"
	SignatureMSI        SignatureCategory = "microsatellite-instability"
	SignatureLOH        SignatureCategory = "loss-of-heterozygosity"
	SignatureHRD        SignatureCategory = "homologous-recombination-deficiency"
	SignatureTNB        SignatureCategory = "tumor-neoantigen-burden"
	SignatureAneuploid  SignatureCategory = "aneuploid-score"
)

// GenomicSignature follows the same parent/subtype polymorphism as Staging.
type GenomicSignature struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CaseID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"case_id"`
	Case           *PatientCase      `gorm:"constraint:OnDelete:CASCADE;foreignKey:CaseID;references:ID" json:"case,omitempty"`
	Category       SignatureCategory `gorm:"column:category;not null;index" json:"category" api:"enum=tumor-mutational-burden|microsatellite-instability|loss-of-heterozygosity|homologous-recombination-deficiency|tumor-neoantigen-burden|aneuploid-score"`
	Date           time.Time         `gorm:"type:date;column:date;not null" json:"date"`
	Interpretation string            `gorm:"column:interpretation" json:"interpretation,omitempty"`
	Audit
}

func (GenomicSignature) TableName() string { return "genomic_signature" }

type TumorMutationalBurden struct {
	ID     uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *GenomicSignature `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Value  Measure           `gorm:"type:jsonb;column:value" json:"value" api:"measure=mutational-burden,unit=mutations/Mb"`
}

func (TumorMutationalBurden) TableName() string { return "signature_tmb" }

type MicrosatelliteInstability struct {
	ID      uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Parent  *GenomicSignature `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	StateID *uuid.UUID        `gorm:"type:uuid;column:state_id" json:"state_id,omitempty"`
	State   *CodedConcept     `gorm:"foreignKey:StateID;references:ID" json:"state,omitempty" api:"terminology=MicrosatelliteInstabilityState"`
}

func (MicrosatelliteInstability) TableName() string { return "signature_msi" }

type LossOfHeterozygosity struct {
	ID     uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *GenomicSignature `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Value  Measure           `gorm:"type:jsonb;column:value" json:"value" api:"measure=fraction,unit=%"`
}

func (LossOfHeterozygosity) TableName() string { return "signature_loh" }

type HomologousRecombinationDeficiency struct {
	ID     uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *GenomicSignature `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Score  *int              `gorm:"column:score" json:"score,omitempty"`
	Status *bool             `gorm:"column:status" json:"status,omitempty"`
}

func (HomologousRecombinationDeficiency) TableName() string { return "signature_hrd" }

type TumorNeoantigenBurden struct {
	ID     uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *GenomicSignature `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Value  Measure           `gorm:"type:jsonb;column:value" json:"value" api:"measure=neoantigen-burden,unit=neoantigens/Mb"`
}

func (TumorNeoantigenBurden) TableName() string { return "signature_tnb" }

type AneuploidScore struct {
	ID     uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Parent *GenomicSignature `gorm:"constraint:OnDelete:CASCADE;foreignKey:ID;references:ID" json:"-" api:"exclude"`
	Score  *int              `gorm:"column:score" json:"score,omitempty"`
}

func (AneuploidScore) TableName() string { return "signature_aneuploid" }
