// Package hgvs implements the variant-nomenclature grammar used by the
// genomic-variant entity: regex-driven lexing of DNA, RNA and protein
// descriptions plus derivation of their structural properties. The same
// pattern source feeds both the in-process validator and the database
// CHECK constraints so the two can never drift.
package hgvs

import "regexp"

// Reference-sequence accessions. NCBI (NC/NG/NM/NR/NT/NW), ENSEMBL
// transcripts and LRG records for nucleotide-level descriptions; NP,
// ENSEMBL proteins and LRG p-numbers for protein-level ones.
const (
	dnaAccession     = `(?:N[CGMRTW]_[0-9]+(?:\.[0-9]+)?|ENST[0-9]+(?:\.[0-9]+)?|LRG_[0-9]+(?:t[0-9]+)?)`
	proteinAccession = `(?:NP_[0-9]+(?:\.[0-9]+)?|ENSP[0-9]+(?:\.[0-9]+)?|LRG_[0-9]+p[0-9]+)`
)

// Position syntax. A coding-DNA position may sit in the 5' UTR (-n), the
// 3' UTR (*n) or an intron (n+m / n-m); a location is a single position or
// a `_`-separated range; uncertainty is expressed with parentheses.
const (
	dnaPos      = `(?:[-*]?[0-9]+(?:[+-][0-9]+)?)`
	dnaLoc      = `(?:` + dnaPos + `(?:_` + dnaPos + `)?|\(` + dnaPos + `_` + dnaPos + `\))`
	dnaSeq      = `[ACGTN]+`
	rnaPos      = `(?:[-*]?[0-9]+(?:[+-][0-9]+)?)`
	rnaLoc      = `(?:` + rnaPos + `(?:_` + rnaPos + `)?)`
	rnaSeq      = `[acgun]+`
	aminoAcid   = `(?:Ala|Arg|Asn|Asp|Cys|Gln|Glu|Gly|His|Ile|Leu|Lys|Met|Phe|Pro|Ser|Thr|Trp|Tyr|Val|Ter|Xaa)`
	proteinPos  = aminoAcid + `[0-9]+`
	proteinLoc  = `(?:` + proteinPos + `(?:_` + proteinPos + `)?)`
)

// ChangeType enumerates the structural change kinds, chosen by the first
// matching grammar rule.
type ChangeType string

const (
	ChangeSubstitution         ChangeType = "substitution"
	ChangeDelins               ChangeType = "delins"
	ChangeInsertion            ChangeType = "insertion"
	ChangeDeletion             ChangeType = "deletion"
	ChangeDuplication          ChangeType = "duplication"
	ChangeInversion            ChangeType = "inversion"
	ChangeUnchanged            ChangeType = "unchanged"
	ChangeRepetition           ChangeType = "repetition"
	ChangeTranslocation        ChangeType = "translocation"
	ChangeTransposition        ChangeType = "transposition"
	ChangeMethylationGain      ChangeType = "methylation-gain"
	ChangeMethylationLoss      ChangeType = "methylation-loss"
	ChangeMethylationUnchanged ChangeType = "methylation-unchanged"

	ChangeMissense   ChangeType = "missense"
	ChangeNonsense   ChangeType = "nonsense"
	ChangeFrameshift ChangeType = "frameshift"
	ChangeExtension  ChangeType = "extension"
	ChangeSilent     ChangeType = "silent"
	ChangeNoProtein  ChangeType = "no-protein"
	ChangeUnknown    ChangeType = "unknown"
)

// rule binds one change kind to the pattern of its description part (the
// text after the molecule prefix).
type rule struct {
	change  ChangeType
	pattern string
}

// DNA change rules, ordered: more specific kinds (delins, methylation,
// repetition) must be tried before the kinds their syntax embeds.
var dnaRules = []rule{
	{ChangeDelins, dnaLoc + `delins` + dnaSeq},
	{ChangeMethylationGain, dnaLoc + `\|gom`},
	{ChangeMethylationLoss, dnaLoc + `\|lom`},
	{ChangeMethylationUnchanged, dnaLoc + `\|met=`},
	{ChangeInversion, dnaLoc + `inv`},
	{ChangeDuplication, dnaLoc + `dup(?:` + dnaSeq + `|[0-9]+)?`},
	{ChangeDeletion, dnaLoc + `del(?:` + dnaSeq + `|[0-9]+)?`},
	{ChangeInsertion, dnaLoc + `ins(?:` + dnaSeq + `|[0-9]+)`},
	{ChangeSubstitution, dnaPos + dnaSeq + `>` + dnaSeq},
	{ChangeRepetition, dnaLoc + dnaSeq + `\[[0-9]+\]`},
	{ChangeTranslocation, dnaLoc + `t\(` + dnaAccession + `:` + dnaLoc + `\)`},
	{ChangeTransposition, dnaLoc + `ins` + dnaAccession + `:` + dnaLoc},
	{ChangeUnchanged, dnaLoc + `=`},
}

var rnaRules = []rule{
	{ChangeDelins, rnaLoc + `delins` + rnaSeq},
	{ChangeInversion, rnaLoc + `inv`},
	{ChangeDuplication, rnaLoc + `dup(?:` + rnaSeq + `|[0-9]+)?`},
	{ChangeDeletion, rnaLoc + `del(?:` + rnaSeq + `|[0-9]+)?`},
	{ChangeInsertion, rnaLoc + `ins(?:` + rnaSeq + `|[0-9]+)`},
	{ChangeSubstitution, rnaPos + rnaSeq + `>` + rnaSeq},
	{ChangeRepetition, rnaLoc + rnaSeq + `\[[0-9]+\]`},
	{ChangeUnchanged, rnaLoc + `=`},
}

var proteinRules = []rule{
	{ChangeNoProtein, `0\??`},
	{ChangeUnknown, `\?`},
	{ChangeSilent, `(?:` + proteinLoc + `)?=`},
	{ChangeFrameshift, proteinPos + aminoAcid + `?fs(?:Ter(?:[0-9]+|\?)|\*(?:[0-9]+|\?))?`},
	{ChangeExtension, `(?:Met1|Ter[0-9]+)` + aminoAcid + `?ext(?:-[0-9]+|Ter(?:[0-9]+|\?)|\*(?:[0-9]+|\?))?`},
	{ChangeDelins, proteinLoc + `delins` + aminoAcid + `+`},
	{ChangeDuplication, proteinLoc + `dup`},
	{ChangeDeletion, proteinLoc + `del`},
	{ChangeInsertion, proteinLoc + `ins` + aminoAcid + `+`},
	{ChangeNonsense, proteinPos + `(?:Ter|\*)`},
	{ChangeMissense, proteinPos + aminoAcid},
}

// Molecule identifies which grammar applies.
type Molecule string

const (
	MoleculeDNA     Molecule = "dna"
	MoleculeRNA     Molecule = "rna"
	MoleculeProtein Molecule = "protein"
)

type grammar struct {
	full  *regexp.Regexp
	rules []compiledRule
}

type compiledRule struct {
	change ChangeType
	re     *regexp.Regexp
}

func compile(accession, prefixes string, rules []rule) grammar {
	alts := ""
	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		if i > 0 {
			alts += "|"
		}
		alts += "(?:" + r.pattern + ")"
		compiled = append(compiled, compiledRule{
			change: r.change,
			re:     regexp.MustCompile(`^` + accession + `:` + prefixes + `\.(?:` + r.pattern + `)$`),
		})
	}
	return grammar{
		full:  regexp.MustCompile(`^` + accession + `:` + prefixes + `\.(?:` + alts + `)$`),
		rules: compiled,
	}
}

var (
	dnaGrammar     = compile(dnaAccession, `[cgm]`, dnaRules)
	rnaGrammar     = compile(dnaAccession, `r`, rnaRules)
	proteinGrammar = compile(proteinAccession, `p`, proteinRules)
)

func grammarFor(m Molecule) grammar {
	switch m {
	case MoleculeRNA:
		return rnaGrammar
	case MoleculeProtein:
		return proteinGrammar
	default:
		return dnaGrammar
	}
}

// Valid reports whether the description matches the full grammar of the
// molecule.
func Valid(m Molecule, description string) bool {
	return grammarFor(m).full.MatchString(description)
}

// Pattern returns the full-grammar pattern for a molecule. The database
// layer embeds it verbatim into CHECK constraints.
func Pattern(m Molecule) string {
	return grammarFor(m).full.String()
}
