package hgvs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Range is a closed 1-based position interval.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// MoleculeAnnotation is the set of structural properties derived from one
// variant description.
type MoleculeAnnotation struct {
	ReferenceSequence string     `json:"reference_sequence"`
	ChangeType        ChangeType `json:"change_type"`
	Position          *int       `json:"position,omitempty"`
	PositionRange     *Range     `json:"position_range,omitempty"`
	IntronOffset      string     `json:"intron_offset,omitempty"`
	FivePrimeUTR      bool       `json:"five_prime_utr,omitempty"`
	ThreePrimeUTR     bool       `json:"three_prime_utr,omitempty"`
	NucleotidesLength *int       `json:"nucleotides_length,omitempty"`

	// anchor of an intronic position (the coding base the offset counts
	// from); feeds the affected-region derivation.
	intronAnchor *int
}

// Annotation groups the per-molecule annotations of a variant.
type Annotation struct {
	DNA     *MoleculeAnnotation `json:"dna,omitempty"`
	RNA     *MoleculeAnnotation `json:"rna,omitempty"`
	Protein *MoleculeAnnotation `json:"protein,omitempty"`
}

var (
	accessionRe = regexp.MustCompile(`^(` + dnaAccession + `|` + proteinAccession + `):[cgmrp]\.(.+)$`)
	positionRe  = regexp.MustCompile(`^([-*]?)([0-9]+)([+-][0-9]+)?(?:_([-*]?)([0-9]+)([+-][0-9]+)?)?`)
	proteinPosRe = regexp.MustCompile(`^` + aminoAcid + `([0-9]+)`)
)

// Annotate derives the structural properties of up to three descriptions
// of one variant. A non-empty description that does not satisfy its
// grammar yields an error.
func Annotate(dna, rna, protein *string) (*Annotation, error) {
	out := &Annotation{}
	var err error
	if dna != nil && *dna != "" {
		if out.DNA, err = annotateOne(MoleculeDNA, *dna); err != nil {
			return nil, err
		}
	}
	if rna != nil && *rna != "" {
		if out.RNA, err = annotateOne(MoleculeRNA, *rna); err != nil {
			return nil, err
		}
	}
	if protein != nil && *protein != "" {
		if out.Protein, err = annotateOne(MoleculeProtein, *protein); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func annotateOne(m Molecule, description string) (*MoleculeAnnotation, error) {
	description = strings.TrimSpace(description)
	g := grammarFor(m)
	if !g.full.MatchString(description) {
		return nil, fmt.Errorf("%s description %q does not satisfy the grammar", m, description)
	}
	ann := &MoleculeAnnotation{}
	if acc := accessionRe.FindStringSubmatch(description); acc != nil {
		ann.ReferenceSequence = acc[1]
	}
	for _, r := range g.rules {
		if r.re.MatchString(description) {
			ann.ChangeType = r.change
			break
		}
	}
	body := description
	if idx := strings.Index(body, ":"); idx >= 0 {
		body = body[idx+1:]
	}
	if len(body) > 2 {
		body = body[2:] // strip the molecule prefix and dot
	}
	if m == MoleculeProtein {
		annotateProteinPosition(ann, body)
	} else {
		annotateNucleotidePosition(ann, body)
	}
	return ann, nil
}

func annotateNucleotidePosition(ann *MoleculeAnnotation, body string) {
	body = strings.TrimPrefix(body, "(")
	match := positionRe.FindStringSubmatch(body)
	if match == nil {
		return
	}
	startMarker, startDigits, startOffset := match[1], match[2], match[3]
	endMarker, endDigits, endOffset := match[4], match[5], match[6]

	switch {
	case startMarker == "-" || endMarker == "-":
		ann.FivePrimeUTR = true
	case startMarker == "*" || endMarker == "*":
		ann.ThreePrimeUTR = true
	}
	if startOffset != "" {
		ann.IntronOffset = startOffset
		if startMarker == "" {
			if n, err := strconv.Atoi(startDigits); err == nil {
				ann.intronAnchor = &n
			}
		}
	} else if endOffset != "" {
		ann.IntronOffset = endOffset
		if endMarker == "" {
			if n, err := strconv.Atoi(endDigits); err == nil {
				ann.intronAnchor = &n
			}
		}
	}

	one := 1
	if endDigits == "" {
		// Single position; only plain coding positions yield an integer.
		if startMarker == "" && startOffset == "" {
			n, _ := strconv.Atoi(startDigits)
			ann.Position = &n
			ann.NucleotidesLength = &one
		}
		return
	}
	if startMarker == "" && endMarker == "" && startOffset == "" && endOffset == "" {
		start, _ := strconv.Atoi(startDigits)
		end, _ := strconv.Atoi(endDigits)
		if start > end {
			start, end = end, start
		}
		ann.PositionRange = &Range{Start: start, End: end}
		length := end - start + 1
		ann.NucleotidesLength = &length
	}
}

func annotateProteinPosition(ann *MoleculeAnnotation, body string) {
	match := proteinPosRe.FindStringSubmatch(body)
	if match == nil {
		return
	}
	n, _ := strconv.Atoi(match[1])
	ann.Position = &n
}
