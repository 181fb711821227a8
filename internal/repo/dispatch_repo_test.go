package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hkawai/go-quake-backend/internal/domain"
)

func TestCreateDispatch_UniquePerEventWorkspacePurpose(t *testing.T) {
	db := newTestDB(t, &domain.DispatchRecord{})
	ctx := context.Background()

	rec := &domain.DispatchRecord{
		EventID:        "EQ001",
		WorkspaceID:    "w1",
		Purpose:        domain.PurposeProduction,
		ChannelID:      "C1",
		SlackMessageTS: "1700000000.000100",
	}
	if err := CreateDispatch(ctx, db, rec); err != nil {
		t.Fatalf("first CreateDispatch: %v", err)
	}
	if rec.ID == "" || rec.SentAt.IsZero() {
		t.Fatalf("expected ID and SentAt filled, got %+v", rec)
	}

	dup := &domain.DispatchRecord{
		EventID:        "EQ001",
		WorkspaceID:    "w1",
		Purpose:        domain.PurposeProduction,
		ChannelID:      "C1",
		SlackMessageTS: "1700000000.000200",
	}
	if err := CreateDispatch(ctx, db, dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate CreateDispatch err = %v, want ErrDuplicate", err)
	}

	// Training purpose for the same pair is a separate ledger entry.
	training := &domain.DispatchRecord{
		EventID:        "EQ001",
		WorkspaceID:    "w1",
		Purpose:        domain.PurposeTraining,
		ChannelID:      "C1",
		SlackMessageTS: "1700000000.000300",
	}
	if err := CreateDispatch(ctx, db, training); err != nil {
		t.Fatalf("training CreateDispatch: %v", err)
	}
}

func TestDispatchExists(t *testing.T) {
	db := newTestDB(t, &domain.DispatchRecord{})
	ctx := context.Background()

	exists, err := DispatchExists(ctx, db, "EQ001", "w1", domain.PurposeProduction)
	if err != nil || exists {
		t.Fatalf("DispatchExists before insert = (%v, %v)", exists, err)
	}

	rec := &domain.DispatchRecord{
		EventID: "EQ001", WorkspaceID: "w1", Purpose: domain.PurposeProduction,
		ChannelID: "C1", SlackMessageTS: "ts", SentAt: time.Now().UTC(),
	}
	if err := CreateDispatch(ctx, db, rec); err != nil {
		t.Fatalf("CreateDispatch: %v", err)
	}

	exists, err = DispatchExists(ctx, db, "EQ001", "w1", domain.PurposeProduction)
	if err != nil || !exists {
		t.Fatalf("DispatchExists after insert = (%v, %v)", exists, err)
	}
}

func TestListUnreconciled(t *testing.T) {
	db := newTestDB(t, &domain.DispatchRecord{})
	ctx := context.Background()

	ok := &domain.DispatchRecord{EventID: "EQ1", WorkspaceID: "w1", Purpose: domain.PurposeProduction, ChannelID: "C1", SlackMessageTS: "ts1"}
	flagged := &domain.DispatchRecord{EventID: "EQ2", WorkspaceID: "w1", Purpose: domain.PurposeProduction, ChannelID: "C1", SlackMessageTS: "ts2", NeedsReconcile: true}
	for _, r := range []*domain.DispatchRecord{ok, flagged} {
		if err := CreateDispatch(ctx, db, r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rows, err := ListUnreconciled(ctx, db)
	if err != nil {
		t.Fatalf("ListUnreconciled: %v", err)
	}
	if len(rows) != 1 || rows[0].EventID != "EQ2" {
		t.Fatalf("unexpected unreconciled rows: %+v", rows)
	}
}
