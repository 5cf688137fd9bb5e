package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kestrelfw/spm/internal/storage"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	db, err := storage.OpenSQLite(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func TestRecordAndRecent(t *testing.T) {
	t.Parallel()

	j := testJournal(t)
	ctx := context.Background()

	id1, err := j.Record(ctx, Entry{
		MsgID:   "m1",
		SID:     7,
		Kind:    "connect",
		Trust:   "non-secure",
		Outcome: OutcomeEnqueued,
	})
	if err != nil {
		t.Fatalf("Record 1: %v", err)
	}
	_, err = j.Record(ctx, Entry{
		SID:     7,
		Handle:  3,
		Kind:    "call",
		Trust:   "non-secure",
		Outcome: OutcomeFault,
		Detail:  "fault memory-violation: in vec 0 illegal",
	})
	if err != nil {
		t.Fatalf("Record 2: %v", err)
	}

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	// Newest first.
	if got[0].Outcome != OutcomeFault || got[0].Detail == "" {
		t.Fatalf("unexpected head entry: %#v", got[0])
	}
	if got[1].ID != id1 || got[1].MsgID != "m1" {
		t.Fatalf("unexpected tail entry: %#v", got[1])
	}
}

func TestRecordRequiresOutcomeAndKind(t *testing.T) {
	t.Parallel()

	j := testJournal(t)
	if _, err := j.Record(context.Background(), Entry{Kind: "call"}); err == nil {
		t.Fatal("expected error for missing outcome")
	}
	if _, err := j.Record(context.Background(), Entry{Outcome: OutcomeBusy}); err == nil {
		t.Fatal("expected error for missing kind")
	}
}

func TestCountByOutcome(t *testing.T) {
	t.Parallel()

	j := testJournal(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := j.Record(ctx, Entry{SID: 7, Kind: "call", Trust: "secure", Outcome: OutcomeEnqueued}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	if _, err := j.Record(ctx, Entry{SID: 7, Kind: "connect", Trust: "secure", Outcome: OutcomeBusy}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	counts, err := j.CountByOutcome(ctx)
	if err != nil {
		t.Fatalf("CountByOutcome: %v", err)
	}
	if counts[OutcomeEnqueued] != 3 || counts[OutcomeBusy] != 1 {
		t.Fatalf("unexpected counts: %#v", counts)
	}
}

func TestPrune(t *testing.T) {
	t.Parallel()

	j := testJournal(t)
	ctx := context.Background()
	if _, err := j.Record(ctx, Entry{SID: 7, Kind: "call", Trust: "secure", Outcome: OutcomeEnqueued}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// Everything is newer than the cutoff; nothing pruned.
	if err := j.Prune(ctx, time.Hour); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected entry to survive prune, got %d", len(got))
	}

	// Zero retention prunes everything.
	if err := j.Prune(ctx, 0); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	got, err = j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty journal, got %d entries", len(got))
	}
}
