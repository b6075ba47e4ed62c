package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"evd-go/internal/casepattern"
	"evd-go/internal/config"
	"evd-go/internal/evd"
	"evd-go/internal/fs"
	"evd-go/internal/index"
	"evd-go/internal/schema"
	"evd-go/internal/store"
)

// EvdApp is the application layer between the CLI and IntakeService.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the index lifecycle on Close.
type EvdApp struct {
	cfg     *config.Config
	index   evd.Index
	store   evd.Store
	fsmgr   evd.FilesystemManager
	service *evd.IntakeService
	lock    *flock.Flock
	logFile *os.File
}

// NewEvdApp creates a fully wired EvdApp from the given config.
// operation identifies the CLI command being run (e.g. "Ingest", "Verify").
// A file lock on the base directory serializes evd processes; a second
// invocation fails fast instead of racing the index. The caller must call
// Close when done.
func NewEvdApp(cfg *config.Config, operation string) (*EvdApp, error) {
	if err := os.MkdirAll(cfg.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating base directory: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.BaseDir, "evd.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another evd instance is already running against %s", cfg.BaseDir)
	}

	patterns := casepattern.DefaultPatterns()
	for _, p := range cfg.Patterns {
		patterns = append(patterns, casepattern.Pattern{
			Name:     p.Name,
			Regex:    p.Regex,
			Priority: p.Priority,
		})
	}
	resolver, err := casepattern.New(patterns)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("compiling docket patterns: %w", err)
	}

	st, err := store.NewFileSystemStore(cfg.Store.Root)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("opening canonical store: %w", err)
	}

	idx, err := index.NewSQLiteIndex(cfg.Index.Path)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("opening index: %w", err)
	}

	if err := idx.CheckMigrations(); err != nil {
		idx.Close()
		lock.Unlock()
		return nil, fmt.Errorf("index schema out of date: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		idx.Close()
		lock.Unlock()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger = logger.With("op", operation)

	fsmgr := fs.NewOSFilesystemManager()
	validator := schema.New(evd.RealClock{})

	svc := evd.NewIntakeService(idx, st, fsmgr, resolver, validator,
		&slogAdapter{l: logger}, evd.RealClock{}, evd.UUIDGenerator{},
		evd.Options{
			DefaultActor: cfg.ActorID,
			Workers:      cfg.Intake.Workers,
		})

	return &EvdApp{
		cfg:     cfg,
		index:   idx,
		store:   st,
		fsmgr:   fsmgr,
		service: svc,
		lock:    lock,
		logFile: logFile,
	}, nil
}

// Service exposes the underlying IntakeService for operations that need no
// path resolution.
func (a *EvdApp) Service() *evd.IntakeService { return a.service }

// Ingest resolves the given path and runs it through the intake pipeline.
// Directories run as a batch; single files run one pipeline.
func (a *EvdApp) Ingest(ctx context.Context, rawPath string, hint evd.Hint) ([]*evd.IntakeResult, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if p.IsDir() {
		return a.service.IngestBatch(ctx, p, hint)
	}
	res, err := a.service.Ingest(ctx, p, hint)
	if err != nil {
		return nil, err
	}
	return []*evd.IntakeResult{res}, nil
}

// IngestStaging runs the configured staging directory as a batch.
func (a *EvdApp) IngestStaging(ctx context.Context, hint evd.Hint) ([]*evd.IntakeResult, error) {
	if err := os.MkdirAll(a.cfg.Intake.StagingDir, 0755); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	return a.Ingest(ctx, a.cfg.Intake.StagingDir, hint)
}

// Verify audits one case, or every case when caseIdent is empty. The
// configured per-case timeout bounds each case's re-hash pass.
func (a *EvdApp) Verify(ctx context.Context, caseIdent, actor string) ([]*evd.Mismatch, error) {
	if caseIdent != "" {
		return a.service.Verify(ctx, caseIdent, actor)
	}
	perCase := time.Duration(a.cfg.Audit.CaseTimeoutSeconds) * time.Second
	return a.service.VerifyAll(ctx, actor, perCase)
}

// Supersede resolves the replacement path and swaps it in for the entry's
// current evidence.
func (a *EvdApp) Supersede(ctx context.Context, caseIdent, entryID, rawPath, note, actor string) (*evd.IntakeResult, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	if p.IsDir() {
		return nil, fmt.Errorf("replacement must be a file, not a directory")
	}
	return a.service.Supersede(ctx, caseIdent, entryID, p, note, actor)
}

// ExportEvidence writes the evidence bytes to destPath, refusing to
// overwrite an existing file.
func (a *EvdApp) ExportEvidence(evidenceID, destPath, actor string) (*evd.EvidenceItem, error) {
	f, err := os.OpenFile(destPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("creating export file: %w", err)
	}
	defer f.Close()

	item, err := a.service.ExportEvidence(evidenceID, actor, f)
	if err != nil {
		os.Remove(destPath)
		return nil, err
	}
	return item, nil
}

// Close releases the index, the process lock, and the log file.
func (a *EvdApp) Close() error {
	var firstErr error

	if err := a.index.Close(); err != nil {
		firstErr = fmt.Errorf("closing index: %w", err)
	}

	if err := a.lock.Unlock(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("releasing lock: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
