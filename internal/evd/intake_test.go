package evd_test

import (
	"context"
	"sync"
	"testing"

	"evd-go/internal/casepattern"
	"evd-go/internal/evd"
	"evd-go/internal/schema"
	"evd-go/internal/testutil"
)

// fixture bundles a wired service with its fakes for inspection.
type fixture struct {
	svc   *evd.IntakeService
	fsmgr *testutil.MockFilesystemManager
	store *testutil.MemoryStore
	index evd.Index
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	idx := testutil.NewTestIndex(t)
	st := testutil.NewMemoryStore()
	fsmgr := testutil.NewMockFilesystemManager()

	resolver, err := casepattern.New(casepattern.DefaultPatterns())
	if err != nil {
		t.Fatalf("compiling patterns: %v", err)
	}
	clock := testutil.FixedClock()
	validator := schema.New(clock)

	svc := evd.NewIntakeService(idx, st, fsmgr, resolver, validator,
		evd.NewNopLogger(), clock, testutil.NewStubIDGenerator(), evd.Options{})

	return &fixture{svc: svc, fsmgr: fsmgr, store: st, index: idx}
}

func (f *fixture) addFile(t *testing.T, path string, content []byte) *evd.Path {
	t.Helper()
	f.fsmgr.AddFile(path, content)
	p, err := f.fsmgr.Resolve(path)
	if err != nil {
		t.Fatalf("resolving %s: %v", path, err)
	}
	return p
}

func TestIntakeService_Ingest(t *testing.T) {
	t.Run("accepts a well-formed file end to end", func(t *testing.T) {
		f := newFixture(t)
		content := testutil.PDFBytes([]byte("ruling text"))
		p := f.addFile(t, "/inbox/2024-06-01_order_sanctions-ruling.pdf", content)

		res, err := f.svc.Ingest(context.Background(), p, evd.Hint{CaseIdentifier: "1:24-cv-01234"})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if !res.Accepted() {
			t.Fatalf("Ingest() outcome = %s (%s), want accepted", res.Outcome, res.Reason)
		}
		if res.State != evd.StateComplete {
			t.Errorf("state = %s, want %s", res.State, evd.StateComplete)
		}
		if res.CaseIdent != "1:24-cv-01234" {
			t.Errorf("case = %s, want 1:24-cv-01234", res.CaseIdent)
		}
		want := "1:24-cv-01234/2024-06-01_order_sanctions-ruling.pdf"
		if res.CanonicalPath != want {
			t.Errorf("canonical path = %s, want %s", res.CanonicalPath, want)
		}
		if res.Digest != testutil.SHA256Hex(content) {
			t.Errorf("digest = %s, want %s", res.Digest, testutil.SHA256Hex(content))
		}

		// Bytes actually landed at the canonical path.
		if ok, _ := f.store.Exists(res.CanonicalPath); !ok {
			t.Error("stored file missing at canonical path")
		}

		// The ingest event is on the ledger.
		events, err := f.index.EventsForEvidence(res.EvidenceID)
		if err != nil {
			t.Fatalf("EventsForEvidence() error = %v", err)
		}
		if len(events) != 1 || events[0].Type != evd.EventIngest {
			t.Fatalf("events = %+v, want one ingest event", events)
		}
		if events[0].HashAfter != res.Digest {
			t.Errorf("event hash = %s, want %s", events[0].HashAfter, res.Digest)
		}

		// The manifest records the digest as ground truth.
		manifest, err := f.index.Manifest(res.CaseID)
		if err != nil {
			t.Fatalf("Manifest() error = %v", err)
		}
		if len(manifest) != 1 || manifest[0].Digest != res.Digest {
			t.Fatalf("manifest = %+v, want one row with ingest digest", manifest)
		}
	})

	t.Run("resolves case from filename when no hint given", func(t *testing.T) {
		f := newFixture(t)
		p := f.addFile(t, "/inbox/2024-06-01_filing_CR-2024-0042-notice.pdf",
			testutil.PDFBytes([]byte("notice")))

		res, err := f.svc.Ingest(context.Background(), p, evd.Hint{})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if res.CaseIdent != "CR-2024-0042" {
			t.Errorf("case = %s, want CR-2024-0042", res.CaseIdent)
		}
		if res.Unassigned {
			t.Error("Unassigned = true, want false")
		}
	})

	t.Run("routes unresolvable files to the unassigned case", func(t *testing.T) {
		f := newFixture(t)
		p := f.addFile(t, "/inbox/2024-06-01_order_mystery-memo.pdf",
			testutil.PDFBytes([]byte("memo")))

		res, err := f.svc.Ingest(context.Background(), p, evd.Hint{})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if !res.Accepted() {
			t.Fatalf("outcome = %s (%s), want accepted", res.Outcome, res.Reason)
		}
		if !res.Unassigned || res.CaseIdent != evd.UnassignedCase {
			t.Errorf("case = %s unassigned=%v, want %s/true", res.CaseIdent, res.Unassigned, evd.UnassignedCase)
		}
	})

	t.Run("rejects empty files at the gate without touching state", func(t *testing.T) {
		f := newFixture(t)
		p := f.addFile(t, "/inbox/empty.pdf", nil)

		res, err := f.svc.Ingest(context.Background(), p, evd.Hint{CaseIdentifier: "1:24-cv-01234"})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if res.Outcome != evd.OutcomeRejected {
			t.Fatalf("outcome = %s, want rejected", res.Outcome)
		}

		cases, _ := f.index.ListCases()
		if len(cases) != 0 {
			t.Errorf("cases created = %d, want 0", len(cases))
		}
		recs, _ := f.index.ListQuarantine()
		if len(recs) != 0 {
			t.Errorf("quarantine records = %d, want 0", len(recs))
		}
	})

	t.Run("quarantines on invalid date hint", func(t *testing.T) {
		f := newFixture(t)
		p := f.addFile(t, "/inbox/report.pdf", testutil.PDFBytes([]byte("report")))

		res, err := f.svc.Ingest(context.Background(), p,
			evd.Hint{CaseIdentifier: "1:24-cv-01234", Date: "June 1st 2024"})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if res.Outcome != evd.OutcomeQuarantined {
			t.Fatalf("outcome = %s, want quarantined", res.Outcome)
		}

		recs, err := f.index.ListQuarantine()
		if err != nil {
			t.Fatalf("ListQuarantine() error = %v", err)
		}
		if len(recs) != 1 {
			t.Fatalf("quarantine records = %d, want 1", len(recs))
		}
		if recs[0].Reason == "" {
			t.Error("quarantine reason is empty")
		}

		// The bytes were preserved, not dropped.
		if _, ok := f.store.QuarantineContents(recs[0].QuarantinePath); !ok {
			t.Error("quarantined bytes missing from quarantine storage")
		}
	})

	t.Run("quarantines on unknown document type hint", func(t *testing.T) {
		f := newFixture(t)
		p := f.addFile(t, "/inbox/2024-06-01_memo.pdf", testutil.PDFBytes([]byte("memo")))

		res, err := f.svc.Ingest(context.Background(), p,
			evd.Hint{CaseIdentifier: "1:24-cv-01234", DocType: "memo"})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if res.Outcome != evd.OutcomeQuarantined {
			t.Fatalf("outcome = %s, want quarantined", res.Outcome)
		}
	})

	t.Run("quarantines future-dated entries", func(t *testing.T) {
		f := newFixture(t)
		p := f.addFile(t, "/inbox/order.pdf", testutil.PDFBytes([]byte("order")))

		res, err := f.svc.Ingest(context.Background(), p,
			evd.Hint{CaseIdentifier: "1:24-cv-01234", Date: "2031-01-01", DocType: "order"})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if res.Outcome != evd.OutcomeQuarantined {
			t.Fatalf("outcome = %s, want quarantined", res.Outcome)
		}
	})

	t.Run("quarantines entry ID collisions with distinct bytes", func(t *testing.T) {
		f := newFixture(t)
		hint := evd.Hint{CaseIdentifier: "1:24-cv-01234", EntryID: "doc-7", DocType: "order", Date: "2024-06-01"}

		p1 := f.addFile(t, "/inbox/a.pdf", testutil.PDFBytes([]byte("first")))
		if res, err := f.svc.Ingest(context.Background(), p1, hint); err != nil || !res.Accepted() {
			t.Fatalf("first Ingest() = %+v, %v", res, err)
		}

		p2 := f.addFile(t, "/inbox/b.pdf", testutil.PDFBytes([]byte("second")))
		res, err := f.svc.Ingest(context.Background(), p2, hint)
		if err != nil {
			t.Fatalf("second Ingest() error = %v", err)
		}
		if res.Outcome != evd.OutcomeQuarantined {
			t.Fatalf("outcome = %s, want quarantined", res.Outcome)
		}
	})

	t.Run("steps the collision suffix for distinct bytes with identical metadata", func(t *testing.T) {
		f := newFixture(t)
		base := evd.Hint{CaseIdentifier: "1:24-cv-01234", DocType: "exhibit", Title: "Scene Photo", Date: "2024-06-01"}

		h1 := base
		h1.EntryID = "ex-1"
		p1 := f.addFile(t, "/inbox/photo1.pdf", testutil.PDFBytes([]byte("photo one")))
		r1, err := f.svc.Ingest(context.Background(), p1, h1)
		if err != nil || !r1.Accepted() {
			t.Fatalf("first Ingest() = %+v, %v", r1, err)
		}

		h2 := base
		h2.EntryID = "ex-2"
		p2 := f.addFile(t, "/inbox/photo2.pdf", testutil.PDFBytes([]byte("photo two")))
		r2, err := f.svc.Ingest(context.Background(), p2, h2)
		if err != nil || !r2.Accepted() {
			t.Fatalf("second Ingest() = %+v, %v", r2, err)
		}

		if r1.CanonicalPath == r2.CanonicalPath {
			t.Fatalf("both files landed at %s", r1.CanonicalPath)
		}
		want := "1:24-cv-01234/2024-06-01_exhibit_scene-photo-2.pdf"
		if r2.CanonicalPath != want {
			t.Errorf("second path = %s, want %s", r2.CanonicalPath, want)
		}
	})

	t.Run("honors context cancellation before commit", func(t *testing.T) {
		f := newFixture(t)
		p := f.addFile(t, "/inbox/2024-06-01_order_x.pdf", testutil.PDFBytes([]byte("x")))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := f.svc.Ingest(ctx, p, evd.Hint{CaseIdentifier: "1:24-cv-01234"}); err == nil {
			t.Fatal("Ingest() error = nil, want context error")
		}
	})
}

func TestIntakeService_Duplicates(t *testing.T) {
	t.Run("re-ingesting the same bytes under the same entry is idempotent", func(t *testing.T) {
		f := newFixture(t)
		content := testutil.PDFBytes([]byte("ruling"))
		hint := evd.Hint{CaseIdentifier: "1:24-cv-01234"}

		p := f.addFile(t, "/inbox/2024-06-01_order_ruling.pdf", content)
		r1, err := f.svc.Ingest(context.Background(), p, hint)
		if err != nil || !r1.Accepted() {
			t.Fatalf("first Ingest() = %+v, %v", r1, err)
		}

		r2, err := f.svc.Ingest(context.Background(), p, hint)
		if err != nil {
			t.Fatalf("second Ingest() error = %v", err)
		}
		if !r2.Accepted() || !r2.Duplicate {
			t.Fatalf("second result = %+v, want accepted duplicate", r2)
		}
		if r2.EvidenceID != r1.EvidenceID {
			t.Errorf("evidence = %s, want original %s", r2.EvidenceID, r1.EvidenceID)
		}

		// Exactly one docket entry and one physical file.
		entries, _ := f.index.ListEntries(r1.CaseID)
		if len(entries) != 1 {
			t.Errorf("entries = %d, want 1", len(entries))
		}
		paths, _ := f.store.ListCase("1:24-cv-01234")
		if len(paths) != 1 {
			t.Errorf("stored files = %d, want 1", len(paths))
		}

		// But the re-ingestion itself was logged.
		events, _ := f.index.EventsForEvidence(r1.EvidenceID)
		var dups int
		for _, e := range events {
			if e.Type == evd.EventDuplicateDetected {
				dups++
			}
		}
		if dups != 1 {
			t.Errorf("duplicate-detected events = %d, want 1", dups)
		}
	})

	t.Run("same bytes under a new entry ID attach to existing evidence", func(t *testing.T) {
		f := newFixture(t)
		content := testutil.PDFBytes([]byte("exhibit"))

		p1 := f.addFile(t, "/inbox/2024-06-01_exhibit_original.pdf", content)
		r1, err := f.svc.Ingest(context.Background(), p1, evd.Hint{CaseIdentifier: "1:24-cv-01234"})
		if err != nil || !r1.Accepted() {
			t.Fatalf("first Ingest() = %+v, %v", r1, err)
		}

		p2 := f.addFile(t, "/inbox/2024-06-02_exhibit_resubmitted.pdf", content)
		r2, err := f.svc.Ingest(context.Background(), p2, evd.Hint{CaseIdentifier: "1:24-cv-01234"})
		if err != nil {
			t.Fatalf("second Ingest() error = %v", err)
		}
		if !r2.Duplicate || r2.EvidenceID != r1.EvidenceID {
			t.Fatalf("second result = %+v, want duplicate of %s", r2, r1.EvidenceID)
		}

		// Two docket entries, one evidence item, one physical file.
		entries, _ := f.index.ListEntries(r1.CaseID)
		if len(entries) != 2 {
			t.Fatalf("entries = %d, want 2", len(entries))
		}
		for _, e := range entries {
			if e.EvidenceID != r1.EvidenceID {
				t.Errorf("entry %s points at %s, want %s", e.EntryID, e.EvidenceID, r1.EvidenceID)
			}
		}
		paths, _ := f.store.ListCase("1:24-cv-01234")
		if len(paths) != 1 {
			t.Errorf("stored files = %d, want 1", len(paths))
		}
	})
}

func TestIntakeService_ConcurrentIntake(t *testing.T) {
	t.Run("colliding entry IDs from parallel pipelines accept exactly once", func(t *testing.T) {
		f := newFixture(t)
		hint := evd.Hint{CaseIdentifier: "1:24-cv-01234", EntryID: "doc-7", DocType: "order", Date: "2024-06-01"}

		paths := []*evd.Path{
			f.addFile(t, "/inbox/a.pdf", testutil.PDFBytes([]byte("first version"))),
			f.addFile(t, "/inbox/b.pdf", testutil.PDFBytes([]byte("second version"))),
		}

		results := make([]*evd.IntakeResult, len(paths))
		errs := make([]error, len(paths))
		var wg sync.WaitGroup
		for i, p := range paths {
			i, p := i, p
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = f.svc.Ingest(context.Background(), p, hint)
			}()
		}
		wg.Wait()

		var accepted, quarantined int
		for i, r := range results {
			if errs[i] != nil {
				t.Fatalf("Ingest(%s) error = %v", paths[i], errs[i])
			}
			switch r.Outcome {
			case evd.OutcomeAccepted:
				accepted++
			case evd.OutcomeQuarantined:
				quarantined++
			}
		}
		if accepted != 1 || quarantined != 1 {
			t.Fatalf("accepted = %d, quarantined = %d, want 1/1", accepted, quarantined)
		}

		// One docket entry won the ID; the loser's bytes are preserved.
		caseRec, _ := f.index.FindCaseByIdentifier("1:24-cv-01234")
		entries, _ := f.index.ListEntries(caseRec.ID)
		if len(entries) != 1 || entries[0].EntryID != "doc-7" {
			t.Fatalf("entries = %+v, want single doc-7", entries)
		}
		recs, _ := f.index.ListQuarantine()
		if len(recs) != 1 {
			t.Errorf("quarantine records = %d, want 1", len(recs))
		}
	})

	t.Run("identical bytes ingested in parallel store one evidence item", func(t *testing.T) {
		f := newFixture(t)
		content := testutil.PDFBytes([]byte("shared exhibit"))
		hint := evd.Hint{CaseIdentifier: "1:24-cv-01234"}

		paths := []*evd.Path{
			f.addFile(t, "/inbox/2024-06-01_exhibit_original.pdf", content),
			f.addFile(t, "/inbox/2024-06-02_exhibit_resubmitted.pdf", content),
		}

		results := make([]*evd.IntakeResult, len(paths))
		errs := make([]error, len(paths))
		var wg sync.WaitGroup
		for i, p := range paths {
			i, p := i, p
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = f.svc.Ingest(context.Background(), p, hint)
			}()
		}
		wg.Wait()

		var duplicates int
		for i, r := range results {
			if errs[i] != nil {
				t.Fatalf("Ingest(%s) error = %v", paths[i], errs[i])
			}
			if !r.Accepted() {
				t.Fatalf("result %d outcome = %s (%s), want accepted", i, r.Outcome, r.Reason)
			}
			if r.Duplicate {
				duplicates++
			}
		}
		if duplicates != 1 {
			t.Fatalf("duplicate results = %d, want exactly 1", duplicates)
		}
		if results[0].EvidenceID != results[1].EvidenceID {
			t.Fatalf("evidence IDs diverge: %s vs %s", results[0].EvidenceID, results[1].EvidenceID)
		}

		// Two docket entries share one evidence item; the loser's physical
		// file, if it landed, is manifest-less and falls to the sweep.
		caseRec, _ := f.index.FindCaseByIdentifier("1:24-cv-01234")
		entries, _ := f.index.ListEntries(caseRec.ID)
		if len(entries) != 2 {
			t.Fatalf("entries = %d, want 2", len(entries))
		}
		for _, e := range entries {
			if e.EvidenceID != results[0].EvidenceID {
				t.Errorf("entry %s points at %s, want %s", e.EntryID, e.EvidenceID, results[0].EvidenceID)
			}
		}
		manifest, _ := f.index.Manifest(caseRec.ID)
		if len(manifest) != 1 {
			t.Errorf("manifest rows = %d, want 1", len(manifest))
		}
	})
}

func TestIntakeService_IngestBatch(t *testing.T) {
	t.Run("processes a staging directory and reports per-file outcomes", func(t *testing.T) {
		f := newFixture(t)
		f.fsmgr.AddDirectory("/staging")
		f.addFile(t, "/staging/2024-06-01_order_CR-2024-0042-ruling.pdf", testutil.PDFBytes([]byte("one")))
		f.addFile(t, "/staging/2024-06-02_filing_CR-2024-0042-brief.pdf", testutil.PDFBytes([]byte("two")))
		f.addFile(t, "/staging/unmatched-note.pdf", testutil.PDFBytes([]byte("three")))

		dir, err := f.fsmgr.Resolve("/staging")
		if err != nil {
			t.Fatalf("resolving staging dir: %v", err)
		}

		results, err := f.svc.IngestBatch(context.Background(), dir, evd.Hint{})
		if err != nil {
			t.Fatalf("IngestBatch() error = %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("results = %d, want 3", len(results))
		}
		for i, r := range results {
			if !r.Accepted() {
				t.Errorf("result %d outcome = %s (%s), want accepted", i, r.Outcome, r.Reason)
			}
		}

		// One file had no resolvable identifier.
		var unassigned int
		for _, r := range results {
			if r.Unassigned {
				unassigned++
			}
		}
		if unassigned != 1 {
			t.Errorf("unassigned results = %d, want 1", unassigned)
		}
	})

	t.Run("re-running a batch is idempotent", func(t *testing.T) {
		f := newFixture(t)
		f.fsmgr.AddDirectory("/staging")
		f.addFile(t, "/staging/2024-06-01_order_CR-2024-0042-ruling.pdf", testutil.PDFBytes([]byte("one")))
		f.addFile(t, "/staging/2024-06-02_filing_CR-2024-0042-brief.pdf", testutil.PDFBytes([]byte("two")))

		dir, _ := f.fsmgr.Resolve("/staging")

		if _, err := f.svc.IngestBatch(context.Background(), dir, evd.Hint{}); err != nil {
			t.Fatalf("first IngestBatch() error = %v", err)
		}
		results, err := f.svc.IngestBatch(context.Background(), dir, evd.Hint{})
		if err != nil {
			t.Fatalf("second IngestBatch() error = %v", err)
		}

		for i, r := range results {
			if !r.Duplicate {
				t.Errorf("result %d Duplicate = false, want true", i)
			}
		}
		paths, _ := f.store.ListCase("CR-2024-0042")
		if len(paths) != 2 {
			t.Errorf("stored files = %d, want 2", len(paths))
		}
	})
}

func TestIntakeService_StoreRetry(t *testing.T) {
	t.Run("transient store failures are retried", func(t *testing.T) {
		f := newFixture(t)
		f.store.FailPuts = 1

		p := f.addFile(t, "/inbox/2024-06-01_order_retry.pdf", testutil.PDFBytes([]byte("retry me")))
		res, err := f.svc.Ingest(context.Background(), p, evd.Hint{CaseIdentifier: "1:24-cv-01234"})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if !res.Accepted() {
			t.Fatalf("outcome = %s (%s), want accepted after retry", res.Outcome, res.Reason)
		}
	})

	t.Run("persistent store failures quarantine the file", func(t *testing.T) {
		f := newFixture(t)
		f.store.FailPuts = 100

		p := f.addFile(t, "/inbox/2024-06-01_order_doomed.pdf", testutil.PDFBytes([]byte("doomed")))
		res, err := f.svc.Ingest(context.Background(), p, evd.Hint{CaseIdentifier: "1:24-cv-01234"})
		if err != nil {
			t.Fatalf("Ingest() error = %v", err)
		}
		if res.Outcome != evd.OutcomeQuarantined {
			t.Fatalf("outcome = %s, want quarantined", res.Outcome)
		}
	})
}
