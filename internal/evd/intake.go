package evd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"evd-go/internal/checksum"
)

// maxNameAttempts bounds the canonical-name collision suffix search.
const maxNameAttempts = 100

// storeRetries is how many additional attempts a transient store write
// gets before the file is quarantined.
const storeRetries = 2

// storeBackoff is the initial backoff between store write attempts.
const storeBackoff = 100 * time.Millisecond

// Ingest runs one file through the intake pipeline:
// resolve -> validate -> hash -> dedupe -> store -> index -> log.
//
// Expected conditions (unresolved case, schema rejection, duplicate bytes)
// come back inside the IntakeResult; the error return is reserved for
// infrastructure failures and context cancellation. Cancellation is honored
// up to the index commit; after that the operation is final.
func (s *IntakeService) Ingest(ctx context.Context, path *Path, hint Hint) (*IntakeResult, error) {
	res := &IntakeResult{State: StateReceived, SourcePath: path.String()}
	actor := s.actorOr(hint.Actor)

	// Intake gate: non-zero size and recognizable magic bytes, or the file
	// never enters the pipeline. The source is left untouched.
	ct, ok, err := s.fsmgr.Sniff(path)
	if err != nil {
		return nil, fmt.Errorf("sniffing content: %w", err)
	}
	if !ok {
		res.Outcome = OutcomeRejected
		res.Reason = "empty file or unrecognized content type"
		s.logger.Warn("intake gate rejected file", "path", path.String())
		return res, nil
	}

	res.State = StateResolving
	ident := s.resolveCase(path, hint)
	res.CaseIdent = ident
	if ident == UnassignedCase {
		res.Unassigned = true
		s.logger.Info("no docket pattern matched, routing to unassigned", "path", path.String())
	}

	cs, err := s.index.EnsureCase(ident, s.clock.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("ensuring case: %w", err)
	}
	res.CaseID = cs.ID

	entry := s.proposeEntry(cs, ident, path, hint, ct)
	res.EntryID = entry.EntryID

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.State = StateValidating
	rej, err := s.validator.Validate(entry, ident, s.index)
	if err != nil {
		return nil, fmt.Errorf("validating entry: %w", err)
	}
	// An entry-ID collision is not yet a failure: if the bytes turn out to
	// be an exact duplicate of what the entry already points at, this is an
	// idempotent re-ingestion. The dedupe stage settles it.
	if rej != nil && rej.Code != CodeIDCollision {
		return s.quarantine(path, cs.ID, rej.Error(), "", actor, res)
	}

	res.State = StateHashing
	digest, size, err := s.hashSource(ctx, path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return s.quarantine(path, cs.ID, "read failure: "+err.Error(), "", actor, res)
	}
	entry.Digest = digest
	res.Digest = digest

	// Pre-commit dedupe check. Runs without the case lock; the commit path
	// re-checks under the lock.
	res.State = StateDeduplicating
	existing, err := s.index.FindEvidenceByDigest(cs.ID, digest)
	if err != nil {
		return nil, fmt.Errorf("dedupe lookup: %w", err)
	}
	if existing != nil {
		return s.commitDuplicate(cs, entry, existing, path, actor, res)
	}
	if rej != nil {
		// The entry ID is taken and these are not the bytes it points at.
		return s.quarantine(path, cs.ID, rej.Error(), digest, actor, res)
	}

	res.State = StateStoring
	canonicalPath, err := s.storeContent(ctx, path, entry, ident, ct)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return s.quarantine(path, cs.ID, "storage failure: "+err.Error(), digest, actor, res)
	}
	entry.CanonicalPath = canonicalPath
	res.CanonicalPath = canonicalPath

	// Last cancellation point. The physical file may be orphaned here; the
	// sweep reclaims it because it never reaches the manifest.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.State = StateIndexing
	return s.commitNew(cs, entry, path, ct, size, actor, hint, res)
}

// IngestBatch runs every regular file in a staging directory through the
// pipeline, processing files in parallel with one pipeline instance each.
// Results come back in directory order. Re-running a batch is idempotent:
// already-accepted bytes resolve as duplicates.
func (s *IntakeService) IngestBatch(ctx context.Context, dir *Path, hint Hint) ([]*IntakeResult, error) {
	files, err := s.fsmgr.FindFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("listing staging directory: %w", err)
	}

	results := make([]*IntakeResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			r, err := s.Ingest(ctx, f, hint)
			if err != nil {
				return fmt.Errorf("%s: %w", f.String(), err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("batch intake complete", "files", len(files))
	return results, nil
}

// resolveCase tries the caller's hint first, then the filename.
func (s *IntakeService) resolveCase(path *Path, hint Hint) string {
	if hint.CaseIdentifier != "" {
		if ident := s.resolver.Resolve(hint.CaseIdentifier); ident != UnassignedCase {
			return ident
		}
	}
	return s.resolver.Resolve(filepath.Base(path.String()))
}

// leadingDate matches a YYYY-MM-DD prefix on a filename.
var leadingDate = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[_-]?`)

// proposeEntry builds the docket entry candidate from hints, falling back
// to filename inference. The canonical path is provisional; the storing
// stage may append a collision suffix.
func (s *IntakeService) proposeEntry(cs *Case, ident string, path *Path, hint Hint, ct ContentType) *DocketEntry {
	base := filepath.Base(path.String())
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	date := s.clock.Now().UTC().Truncate(24 * time.Hour)
	if hint.Date != "" {
		if d, err := time.Parse("2006-01-02", hint.Date); err == nil {
			date = d
		} else {
			date = time.Time{} // invalid hint dates must fail validation, not be papered over
		}
	} else if m := leadingDate.FindStringSubmatch(stem); m != nil {
		if d, err := time.Parse("2006-01-02", m[1]); err == nil {
			date = d
			stem = strings.TrimPrefix(stem, m[0])
		}
	}

	docType := s.inferDocType(&stem, hint, ct)

	title := hint.Title
	if title == "" {
		title = stem
	}
	if strings.TrimSpace(title) == "" {
		title = "untitled"
	}

	entryID := hint.EntryID
	if entryID == "" && !date.IsZero() {
		entryID = date.Format("2006-01-02") + "-" + Slugify(title)
	}

	provenance := hint.Provenance
	if provenance == "" {
		provenance = ProvenanceInbox
	}

	canonicalPath := ""
	if !date.IsZero() {
		canonicalPath = CanonicalName(ident, date, docType, title, ct.Ext, 1)
	}

	return &DocketEntry{
		CaseID:        cs.ID,
		EntryID:       entryID,
		Date:          date,
		DocType:       docType,
		Title:         title,
		CanonicalPath: canonicalPath,
		Stamp:         hint.Stamp,
		Provenance:    provenance,
		Notes:         hint.Notes,
		CreatedAt:     s.clock.Now().UTC(),
	}
}

// inferDocType prefers the caller's hint, then a leading filename token,
// then the sniffed media class. stem is trimmed when a token is consumed.
func (s *IntakeService) inferDocType(stem *string, hint Hint, ct ContentType) DocumentType {
	if hint.DocType != "" {
		if dt, err := ParseDocumentType(hint.DocType); err == nil {
			return dt
		}
		// Unknown hint becomes an unknown-type rejection downstream.
		return DocumentType(strings.ToLower(hint.DocType))
	}

	if tok, rest, found := strings.Cut(*stem, "_"); found {
		if dt, err := ParseDocumentType(tok); err == nil {
			*stem = rest
			return dt
		}
	}

	switch {
	case strings.HasPrefix(ct.MIME, "image/"):
		return DocImage
	case strings.HasPrefix(ct.MIME, "video/"):
		return DocVideo
	case strings.HasPrefix(ct.MIME, "audio/"):
		return DocAudio
	}
	return DocOther
}

// hashSource streams the file through the checksum engine, retrying
// transient read failures with bounded backoff.
func (s *IntakeService) hashSource(ctx context.Context, path *Path) (string, int64, error) {
	var digest string
	var size int64

	backoff := retry.WithMaxRetries(storeRetries, retry.NewExponential(storeBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		f, err := s.fsmgr.Open(path)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer f.Close()

		digest, size, err = checksum.Sum(f)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	return digest, size, nil
}

// storeContent writes the bytes into the canonical store, retrying
// transient I/O and stepping the collision suffix when distinct bytes map
// to an occupied canonical name.
func (s *IntakeService) storeContent(ctx context.Context, path *Path, entry *DocketEntry, ident string, ct ContentType) (string, error) {
	for seq := 1; seq <= maxNameAttempts; seq++ {
		canonicalPath := CanonicalName(ident, entry.Date, entry.DocType, entry.Title, ct.Ext, seq)

		backoff := retry.WithMaxRetries(storeRetries, retry.NewExponential(storeBackoff))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			f, err := s.fsmgr.Open(path)
			if err != nil {
				return retry.RetryableError(err)
			}
			defer f.Close()

			if err := s.store.Put(canonicalPath, f); err != nil {
				if errors.Is(err, ErrPathExists) {
					return err // collision is permanent for this name, step the suffix
				}
				return retry.RetryableError(err)
			}
			return nil
		})
		if err == nil {
			return canonicalPath, nil
		}
		if errors.Is(err, ErrPathExists) {
			continue
		}
		return "", err
	}
	return "", fmt.Errorf("no free canonical name after %d attempts for %s", maxNameAttempts, entry.EntryID)
}

// commitNew performs the locked commit of a brand-new evidence item. Under
// the case lock it re-runs the dedupe and uniqueness checks as the second
// line of defense against races between validation and commit.
func (s *IntakeService) commitNew(cs *Case, entry *DocketEntry, path *Path, ct ContentType, size int64, actor string, hint Hint, res *IntakeResult) (*IntakeResult, error) {
	lock := s.locks.get(cs.ID)
	lock.Lock()
	defer lock.Unlock()

	// Dedupe re-check: a concurrent pipeline may have stored identical
	// bytes since the pre-check. Our physical file stays orphaned and the
	// sweep reclaims it.
	existing, err := s.index.FindEvidenceByDigest(cs.ID, entry.Digest)
	if err != nil {
		return nil, fmt.Errorf("dedupe re-check: %w", err)
	}
	if existing != nil {
		return s.attachDuplicateLocked(cs, entry, existing, path, actor, res)
	}

	now := s.clock.Now().UTC()
	item := &EvidenceItem{
		ID:            s.idgen.New(),
		CaseID:        cs.ID,
		Digest:        entry.Digest,
		Size:          size,
		ContentType:   ct.MIME,
		IngestedAt:    now,
		Source:        hint.Source,
		CanonicalPath: entry.CanonicalPath,
	}
	entry.EvidenceID = item.ID

	event := &CustodyEvent{
		Type:       EventIngest,
		EvidenceID: item.ID,
		CaseID:     cs.ID,
		Actor:      actor,
		At:         now,
		HashAfter:  item.Digest,
		Note:       "ingested " + filepath.Base(path.String()),
	}

	if err := s.index.CommitIntake(item, entry, event); err != nil {
		if errors.Is(err, ErrEntryExists) {
			// Lost the uniqueness race after validation passed. The loser
			// is quarantined, never silently merged.
			return s.quarantine(path, cs.ID, "entry ID collision at commit: "+entry.EntryID, entry.Digest, actor, res)
		}
		return nil, fmt.Errorf("committing intake: %w", err)
	}

	res.Outcome = OutcomeAccepted
	res.State = StateComplete
	res.EvidenceID = item.ID
	s.logger.Info("evidence accepted",
		"case", res.CaseIdent, "entry", entry.EntryID, "path", entry.CanonicalPath, "digest", item.Digest)
	return res, nil
}

// commitDuplicate handles an exact-digest match found before storing.
func (s *IntakeService) commitDuplicate(cs *Case, entry *DocketEntry, existing *EvidenceItem, path *Path, actor string, res *IntakeResult) (*IntakeResult, error) {
	lock := s.locks.get(cs.ID)
	lock.Lock()
	defer lock.Unlock()
	return s.attachDuplicateLocked(cs, entry, existing, path, actor, res)
}

// attachDuplicateLocked records a duplicate-detected outcome while holding
// the case lock. Re-ingesting bytes under the entry ID that already points
// at them is idempotent: one evidence item, one physical file, one entry.
// A new entry ID attaches a second docket entry to the same evidence item.
// Exact digest equality is the only automatic merge criterion.
func (s *IntakeService) attachDuplicateLocked(cs *Case, entry *DocketEntry, existing *EvidenceItem, path *Path, actor string, res *IntakeResult) (*IntakeResult, error) {
	now := s.clock.Now().UTC()
	event := &CustodyEvent{
		Type:       EventDuplicateDetected,
		EvidenceID: existing.ID,
		CaseID:     cs.ID,
		Actor:      actor,
		At:         now,
		HashAfter:  existing.Digest,
		Note:       "duplicate of " + existing.CanonicalPath,
	}

	prior, err := s.index.GetEntry(cs.ID, entry.EntryID)
	if err != nil && !errors.Is(err, ErrEntryNotFound) {
		return nil, fmt.Errorf("checking prior entry: %w", err)
	}

	if prior != nil {
		if prior.EvidenceID != existing.ID {
			// Same entry ID, different evidence: a collision, not a re-run.
			return s.quarantine(path, cs.ID,
				"entry ID collision with distinct evidence: "+entry.EntryID,
				entry.Digest, actor, res)
		}
		// Pure re-ingestion: log it, change nothing.
		if _, err := s.index.AppendEvent(event); err != nil {
			return nil, fmt.Errorf("logging duplicate: %w", err)
		}
	} else {
		entry.EvidenceID = existing.ID
		entry.CanonicalPath = existing.CanonicalPath
		entry.Digest = existing.Digest
		if err := s.index.AttachDuplicate(entry, event); err != nil {
			return nil, fmt.Errorf("attaching duplicate entry: %w", err)
		}
	}

	res.Outcome = OutcomeAccepted
	res.State = StateComplete
	res.Duplicate = true
	res.EvidenceID = existing.ID
	res.CanonicalPath = existing.CanonicalPath
	s.logger.Info("duplicate detected, storage not repeated",
		"case", res.CaseIdent, "entry", entry.EntryID, "digest", existing.Digest)
	return res, nil
}

// quarantine preserves the source bytes with the rejection reason attached
// and records both the quarantine row and its custody event. Quarantined
// files are never deleted.
func (s *IntakeService) quarantine(path *Path, caseID, reason, digest, actor string, res *IntakeResult) (*IntakeResult, error) {
	id := s.idgen.New()
	base := filepath.Base(path.String())

	f, err := s.fsmgr.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening source for quarantine: %w", err)
	}
	qpath, qerr := s.store.Quarantine(id, base, f, reason)
	f.Close()
	if qerr != nil {
		return nil, fmt.Errorf("quarantining %s: %w", base, qerr)
	}

	now := s.clock.Now().UTC()
	rec := &QuarantineRecord{
		ID:             id,
		OriginalName:   base,
		CaseID:         caseID,
		Reason:         reason,
		QuarantinePath: qpath,
		Digest:         digest,
		At:             now,
	}
	if err := s.index.RecordQuarantine(rec); err != nil {
		return nil, fmt.Errorf("recording quarantine: %w", err)
	}

	event := &CustodyEvent{
		Type:   EventQuarantine,
		CaseID: caseID,
		Actor:  actor,
		At:     now,
		Note:   reason,
	}
	if _, err := s.index.AppendEvent(event); err != nil {
		return nil, fmt.Errorf("logging quarantine: %w", err)
	}

	res.Outcome = OutcomeQuarantined
	res.State = StateQuarantined
	res.Reason = reason
	s.logger.Warn("file quarantined", "file", base, "reason", reason)
	return res, nil
}
