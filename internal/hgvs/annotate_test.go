package hgvs

import (
	"strings"
	"testing"
)

func TestAnnotateDNA(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantRef       string
		wantChange    ChangeType
		wantPosition  int
		noPosition    bool
		wantRange     *Range
		wantIntron    string
		want5UTR      bool
		want3UTR      bool
		wantLength    int
		noLength      bool
		wantErr       bool
	}{
		{
			name:         "coding substitution",
			input:        "NM_005228.5:c.2369C>T",
			wantRef:      "NM_005228.5",
			wantChange:   ChangeSubstitution,
			wantPosition: 2369,
			wantLength:   1,
		},
		{
			name:       "range deletion",
			input:      "NM_005228.5:c.2235_2249del",
			wantRef:    "NM_005228.5",
			wantChange: ChangeDeletion,
			noPosition: true,
			wantRange:  &Range{Start: 2235, End: 2249},
			wantLength: 15,
		},
		{
			name:       "reversed range is normalized",
			input:      "NM_004333.6:c.1799_1780dup",
			wantChange: ChangeDuplication,
			noPosition: true,
			wantRange:  &Range{Start: 1780, End: 1799},
			wantLength: 20,
		},
		{
			name:       "intronic substitution",
			input:      "NM_000546.6:c.782+1G>T",
			wantChange: ChangeSubstitution,
			noPosition: true,
			wantIntron: "+1",
			noLength:   true,
		},
		{
			name:       "five prime utr",
			input:      "NM_000546.6:c.-28A>G",
			wantChange: ChangeSubstitution,
			noPosition: true,
			want5UTR:   true,
			noLength:   true,
		},
		{
			name:       "three prime utr",
			input:      "NM_000546.6:c.*97del",
			wantChange: ChangeDeletion,
			noPosition: true,
			want3UTR:   true,
			noLength:   true,
		},
		{
			name:         "delins",
			input:        "NM_004333.6:c.1798_1799delinsAA",
			wantChange:   ChangeDelins,
			noPosition:   true,
			wantRange:    &Range{Start: 1798, End: 1799},
			wantLength:   2,
		},
		{
			name:         "insertion",
			input:        "NM_005228.5:c.2310_2311insGGT",
			wantChange:   ChangeInsertion,
			noPosition:   true,
			wantRange:    &Range{Start: 2310, End: 2311},
			wantLength:   2,
		},
		{
			name:         "inversion",
			input:        "NC_000007.14:g.55174776_55174793inv",
			wantRef:      "NC_000007.14",
			wantChange:   ChangeInversion,
			noPosition:   true,
			wantRange:    &Range{Start: 55174776, End: 55174793},
			wantLength:   18,
		},
		{
			name:         "unchanged",
			input:        "NM_005228.5:c.2369=",
			wantChange:   ChangeUnchanged,
			wantPosition: 2369,
			wantLength:   1,
		},
		{
			name:         "repetition",
			input:        "NM_002111.8:c.52CAG[23]",
			wantChange:   ChangeRepetition,
			wantPosition: 52,
			wantLength:   1,
		},
		{
			name:       "methylation gain",
			input:      "NC_000011.10:g.1999904_1999946|gom",
			wantChange: ChangeMethylationGain,
			noPosition: true,
			wantRange:  &Range{Start: 1999904, End: 1999946},
			wantLength: 43,
		},
		{
			name:       "ensembl accession",
			input:      "ENST00000275493.7:c.2573T>G",
			wantRef:    "ENST00000275493.7",
			wantChange: ChangeSubstitution,
			wantPosition: 2573,
			wantLength: 1,
		},
		{
			name:    "garbage change",
			input:   "NM_005228.5:c.banana",
			wantErr: true,
		},
		{
			name:    "missing accession",
			input:   "c.2369C>T",
			wantErr: true,
		},
		{
			name:    "protein accession on dna description",
			input:   "NP_005219.2:c.2369C>T",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Annotate(&tt.input, nil, nil)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Annotate(%q): expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Annotate(%q): %v", tt.input, err)
			}
			ann := got.DNA
			if ann == nil {
				t.Fatalf("Annotate(%q): missing DNA annotation", tt.input)
			}
			if tt.wantRef != "" && ann.ReferenceSequence != tt.wantRef {
				t.Errorf("reference = %q, want %q", ann.ReferenceSequence, tt.wantRef)
			}
			if ann.ChangeType != tt.wantChange {
				t.Errorf("change = %q, want %q", ann.ChangeType, tt.wantChange)
			}
			if tt.noPosition {
				if ann.Position != nil {
					t.Errorf("position = %d, want none", *ann.Position)
				}
			} else if ann.Position == nil || *ann.Position != tt.wantPosition {
				t.Errorf("position = %v, want %d", ann.Position, tt.wantPosition)
			}
			if tt.wantRange != nil {
				if ann.PositionRange == nil || *ann.PositionRange != *tt.wantRange {
					t.Errorf("range = %+v, want %+v", ann.PositionRange, tt.wantRange)
				}
			} else if ann.PositionRange != nil {
				t.Errorf("range = %+v, want none", ann.PositionRange)
			}
			if ann.IntronOffset != tt.wantIntron {
				t.Errorf("intron offset = %q, want %q", ann.IntronOffset, tt.wantIntron)
			}
			if ann.FivePrimeUTR != tt.want5UTR || ann.ThreePrimeUTR != tt.want3UTR {
				t.Errorf("utr flags = (%v,%v), want (%v,%v)", ann.FivePrimeUTR, ann.ThreePrimeUTR, tt.want5UTR, tt.want3UTR)
			}
			if tt.noLength {
				if ann.NucleotidesLength != nil {
					t.Errorf("length = %d, want none", *ann.NucleotidesLength)
				}
			} else if ann.NucleotidesLength == nil || *ann.NucleotidesLength != tt.wantLength {
				t.Errorf("length = %v, want %d", ann.NucleotidesLength, tt.wantLength)
			}
		})
	}
}

func TestAnnotateProtein(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantChange   ChangeType
		wantPosition int
		noPosition   bool
		wantErr      bool
	}{
		{name: "missense", input: "NP_005219.2:p.Leu858Arg", wantChange: ChangeMissense, wantPosition: 858},
		{name: "nonsense", input: "NP_000537.3:p.Arg196Ter", wantChange: ChangeNonsense, wantPosition: 196},
		{name: "frameshift", input: "NP_000537.3:p.Pro177ArgfsTer2", wantChange: ChangeFrameshift, wantPosition: 177},
		{name: "extension", input: "NP_003997.1:p.Ter110GlnextTer17", wantChange: ChangeExtension, wantPosition: 110},
		{name: "silent", input: "NP_005219.2:p.Leu858=", wantChange: ChangeSilent, wantPosition: 858},
		{name: "no protein", input: "NP_005219.2:p.0", wantChange: ChangeNoProtein, noPosition: true},
		{name: "unknown", input: "NP_005219.2:p.?", wantChange: ChangeUnknown, noPosition: true},
		{name: "deletion", input: "NP_005219.2:p.Glu746_Ala750del", wantChange: ChangeDeletion, wantPosition: 746},
		{name: "bad residue", input: "NP_005219.2:p.Zzz858Arg", wantErr: true},
		{name: "dna accession", input: "NM_005228.5:p.Leu858Arg", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Annotate(nil, nil, &tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Annotate(%q): expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Annotate(%q): %v", tt.input, err)
			}
			ann := got.Protein
			if ann == nil {
				t.Fatalf("Annotate(%q): missing protein annotation", tt.input)
			}
			if ann.ChangeType != tt.wantChange {
				t.Errorf("change = %q, want %q", ann.ChangeType, tt.wantChange)
			}
			if tt.noPosition {
				if ann.Position != nil {
					t.Errorf("position = %d, want none", *ann.Position)
				}
			} else if ann.Position == nil || *ann.Position != tt.wantPosition {
				t.Errorf("position = %v, want %d", ann.Position, tt.wantPosition)
			}
		})
	}
}

func TestAnnotateRNA(t *testing.T) {
	input := "NM_005228.5:r.2369c>u"
	got, err := Annotate(nil, &input, nil)
	if err != nil {
		t.Fatalf("Annotate(%q): %v", input, err)
	}
	if got.RNA == nil || got.RNA.ChangeType != ChangeSubstitution {
		t.Fatalf("RNA annotation = %+v, want substitution", got.RNA)
	}
	if got.RNA.Position == nil || *got.RNA.Position != 2369 {
		t.Fatalf("RNA position = %v, want 2369", got.RNA.Position)
	}

	bad := "NM_005228.5:r.2369C>T" // uppercase DNA alphabet is not RNA
	if _, err := Annotate(nil, &bad, nil); err == nil {
		t.Fatalf("Annotate(%q): expected error", bad)
	}
}

func TestValidPatternsAgree(t *testing.T) {
	// The validator and the CHECK-constraint patterns come from the same
	// source; spot-check that the rendered constraint embeds the pattern.
	for _, m := range []Molecule{MoleculeDNA, MoleculeRNA, MoleculeProtein} {
		check := CheckConstraint("dna_hgvs", m)
		if !strings.Contains(check, Pattern(m)) {
			t.Fatalf("check constraint for %s does not embed its grammar pattern", m)
		}
	}
}
