package terminology

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/oncotrace/oncotrace-backend/internal/data/repos/testutil"
)

func TestConceptRepoDescendants(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewConceptRepo(db, testutil.Logger(t))
	ctx := context.Background()

	root := testutil.Concept(t, tx, "CancerTopography", "C34", "ICD-O-3", "Lung")
	child := testutil.ChildConcept(t, tx, root, "C34.1", "Upper lobe")
	grandchild := testutil.ChildConcept(t, tx, child, "C34.10", "Upper lobe, central")
	other := testutil.Concept(t, tx, "CancerTopography", "C50", "ICD-O-3", "Breast")

	got, err := repo.Descendants(ctx, tx, []uuid.UUID{root.ID}, false)
	if err != nil {
		t.Fatalf("Descendants: %v", err)
	}
	want := map[uuid.UUID]bool{child.ID: true, grandchild.ID: true}
	if len(got) != len(want) {
		t.Fatalf("Descendants: got %d ids, want %d", len(got), len(want))
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("Descendants: unexpected id %s", id)
		}
		if id == other.ID {
			t.Errorf("Descendants: sibling tree leaked in")
		}
	}

	withRoots, err := repo.Descendants(ctx, tx, []uuid.UUID{root.ID}, true)
	if err != nil {
		t.Fatalf("Descendants(includeRoots): %v", err)
	}
	if len(withRoots) != 3 {
		t.Fatalf("Descendants(includeRoots): got %d ids, want 3", len(withRoots))
	}
}

func TestConceptRepoLookup(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewConceptRepo(db, testutil.Logger(t))
	ctx := context.Background()

	created := testutil.Concept(t, tx, "AntineoplasticAgent", "L01XA01", "ATC", "Cisplatin")

	byCode, err := repo.GetByCodeSystem(ctx, tx, "L01XA01", "ATC")
	if err != nil {
		t.Fatalf("GetByCodeSystem: %v", err)
	}
	if byCode.ID != created.ID {
		t.Fatalf("GetByCodeSystem: got %s, want %s", byCode.ID, created.ID)
	}

	byTerm, err := repo.GetByTerminologyCode(ctx, tx, "AntineoplasticAgent", "L01XA01")
	if err != nil {
		t.Fatalf("GetByTerminologyCode: %v", err)
	}
	if byTerm.ID != created.ID {
		t.Fatalf("GetByTerminologyCode: got %s, want %s", byTerm.ID, created.ID)
	}

	found, err := repo.Search(ctx, tx, "AntineoplasticAgent", "cispl", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].ID != created.ID {
		t.Fatalf("Search: unexpected result: %+v", found)
	}
}
