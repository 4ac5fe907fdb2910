package treatment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/oncotrace/oncotrace-backend/internal/data/repos/testutil"
	types "github.com/oncotrace/oncotrace-backend/internal/domain"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestTherapyLineRepoRebuildCycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	lineRepo := NewTherapyLineRepo(db, testutil.Logger(t))
	timelineRepo := NewTimelineRepo(db, testutil.Logger(t))
	ctx := context.Background()

	pc := testutil.Case(t, tx)

	therapy := &types.SystemicTherapy{
		ID:     uuid.New(),
		CaseID: pc.ID,
		Period: types.Period{Start: datePtr(2020, 1, 1), End: datePtr(2020, 6, 1)},
		Intent: types.IntentPalliative,
	}
	if err := tx.Create(therapy).Error; err != nil {
		t.Fatalf("create therapy: %v", err)
	}

	lines, err := lineRepo.Create(ctx, tx, []*types.TherapyLine{
		{ID: uuid.New(), CaseID: pc.ID, Ordinal: 1, Intent: types.IntentPalliative},
	})
	if err != nil {
		t.Fatalf("Create lines: %v", err)
	}

	if err := timelineRepo.AssignTherapyLine(ctx, tx, []uuid.UUID{therapy.ID}, lines[0].ID); err != nil {
		t.Fatalf("AssignTherapyLine: %v", err)
	}

	therapies, err := timelineRepo.TherapiesByCase(ctx, tx, pc.ID)
	if err != nil {
		t.Fatalf("TherapiesByCase: %v", err)
	}
	if len(therapies) != 1 || therapies[0].TherapyLineID == nil || *therapies[0].TherapyLineID != lines[0].ID {
		t.Fatalf("therapy not assigned to line: %+v", therapies)
	}

	if err := lineRepo.DeleteByCase(ctx, tx, pc.ID); err != nil {
		t.Fatalf("DeleteByCase: %v", err)
	}

	remaining, err := lineRepo.GetByCase(ctx, tx, pc.ID)
	if err != nil {
		t.Fatalf("GetByCase: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("lines survived delete: %+v", remaining)
	}

	therapies, err = timelineRepo.TherapiesByCase(ctx, tx, pc.ID)
	if err != nil {
		t.Fatalf("TherapiesByCase after delete: %v", err)
	}
	if therapies[0].TherapyLineID != nil {
		t.Fatalf("therapy still points at a deleted line")
	}
}
