package evd_test

import (
	"bytes"
	"context"
	"testing"

	"evd-go/internal/evd"
	"evd-go/internal/testutil"
)

func TestIntakeService_SweepOrphans(t *testing.T) {
	t.Run("reclaims files missing from the manifest and leaves the rest", func(t *testing.T) {
		f := newFixture(t)
		p := f.addFile(t, "/inbox/2024-06-01_order_ruling.pdf", testutil.PDFBytes([]byte("kept")))
		res, err := f.svc.Ingest(context.Background(), p, evd.Hint{CaseIdentifier: "1:24-cv-01234"})
		if err != nil || !res.Accepted() {
			t.Fatalf("Ingest() = %+v, %v", res, err)
		}

		// Plant an orphan, as a cancelled intake would leave behind.
		orphan := "1:24-cv-01234/2024-06-01_order_abandoned.pdf"
		if err := f.store.Put(orphan, bytes.NewReader([]byte("orphan"))); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		removed, err := f.svc.SweepOrphans(context.Background(), "janitor")
		if err != nil {
			t.Fatalf("SweepOrphans() error = %v", err)
		}
		if len(removed) != 1 || removed[0] != orphan {
			t.Fatalf("removed = %v, want [%s]", removed, orphan)
		}

		if ok, _ := f.store.Exists(orphan); ok {
			t.Error("orphan still present after sweep")
		}
		if ok, _ := f.store.Exists(res.CanonicalPath); !ok {
			t.Error("manifest-listed file was swept")
		}

		// Each removal leaves a ledger trace.
		events, _ := f.svc.CaseLedger("1:24-cv-01234")
		var swept bool
		for _, e := range events {
			if e.Type == evd.EventOrphanSwept {
				swept = true
			}
		}
		if !swept {
			t.Error("no orphan-swept event on the ledger")
		}
	})

	t.Run("skips cases under an active hold", func(t *testing.T) {
		f := newFixture(t)
		p := f.addFile(t, "/inbox/2024-06-01_order_ruling.pdf", testutil.PDFBytes([]byte("kept")))
		if _, err := f.svc.Ingest(context.Background(), p, evd.Hint{CaseIdentifier: "1:24-cv-01234"}); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if _, err := f.svc.ApplyHold("1:24-cv-01234", "preservation order", "counsel"); err != nil {
			t.Fatalf("ApplyHold() error = %v", err)
		}

		orphan := "1:24-cv-01234/2024-06-01_order_abandoned.pdf"
		if err := f.store.Put(orphan, bytes.NewReader([]byte("orphan"))); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		removed, err := f.svc.SweepOrphans(context.Background(), "janitor")
		if err != nil {
			t.Fatalf("SweepOrphans() error = %v", err)
		}
		if len(removed) != 0 {
			t.Fatalf("removed = %v, want none while held", removed)
		}
		if ok, _ := f.store.Exists(orphan); !ok {
			t.Error("held case's file was swept")
		}
	})

	t.Run("no orphans means no removals and no events", func(t *testing.T) {
		f := newFixture(t)
		p := f.addFile(t, "/inbox/2024-06-01_order_ruling.pdf", testutil.PDFBytes([]byte("kept")))
		if _, err := f.svc.Ingest(context.Background(), p, evd.Hint{CaseIdentifier: "1:24-cv-01234"}); err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}

		removed, err := f.svc.SweepOrphans(context.Background(), "janitor")
		if err != nil {
			t.Fatalf("SweepOrphans() error = %v", err)
		}
		if len(removed) != 0 {
			t.Fatalf("removed = %v, want none", removed)
		}
	})
}
