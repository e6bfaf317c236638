// Package bundlebuilder implements the atomic Bundle Builder state machine
// (spec §4.H): fingerprint → lock → task → tmp dir → per-repo
// acquire+normalize (concurrent, golang.org/x/sync/errgroup) → index →
// tag/describe → manifest → guides → validate → atomic publish →
// mirror → dedup/lock/task finalize, with compensating cleanup on any
// failure from step 3 onward. No analyzer step runs: the pipeline writes
// no fact or advanced-analysis output.
package bundlebuilder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Sumatoshi-tech/preflight/internal/acquire"
	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/config"
	"github.com/Sumatoshi-tech/preflight/internal/dedup"
	"github.com/Sumatoshi-tech/preflight/internal/external"
	"github.com/Sumatoshi-tech/preflight/internal/fts"
	"github.com/Sumatoshi-tech/preflight/internal/ingest"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
	"github.com/Sumatoshi-tech/preflight/internal/observability"
	"github.com/Sumatoshi-tech/preflight/internal/progress"
	"github.com/Sumatoshi-tech/preflight/internal/storage"
	"github.com/google/uuid"
)

// IfExists controls dedup behavior when a matching fingerprint already exists.
type IfExists string

// IfExists policies (spec §4.H).
const (
	IfExistsError          IfExists = "error"
	IfExistsReturnExisting IfExists = "returnExisting"
	IfExistsUpdateExisting IfExists = "updateExisting"
	IfExistsCreateNew      IfExists = "createNew"
)

// CreateRequest is the caller-supplied input to Create.
type CreateRequest struct {
	Repos      []manifest.RepoInput
	Libraries  []string
	Topics     []string
	IfExists   IfExists
	Type       manifest.BundleType
	DisplayNameHint string
}

// Deps bundles the collaborators the builder orchestrates. All fields are
// required except Crawler/Guides/Tagger, which default to the Noop/Static
// implementations in internal/external when nil, and Logger/Metrics, which
// default to slog.Default() and disabled metrics respectively.
type Deps struct {
	Config    *config.Config
	Dedup     *dedup.Store
	Tracker   *progress.Tracker
	Crawler   external.WebCrawler
	Guides    external.GuideGenerator
	Tagger    external.Tagger
	Logger    *slog.Logger
	Metrics   *observability.REDMetrics

	// ArchiveFetcher overrides acquire.FetchArchive; nil uses the default.
	ArchiveFetcher func(ctx context.Context, owner, repo, ref, dir string) (string, error)
}

// Result is the outcome of a successful Create/Update.
type Result struct {
	BundleID string
	TaskID   string
	Manifest *manifest.Manifest
	Warnings []string
}

// Limiter bounds the number of bundle-creation pipelines that may run
// concurrently across the process, per spec §5's process-wide builder
// semaphore (the DoS guard against unbounded concurrent creation).
type Limiter struct {
	sem *semaphore.Weighted
}

// NewLimiter creates a Limiter admitting up to n concurrent creations.
func NewLimiter(n int64) *Limiter {
	if n <= 0 {
		n = 1
	}

	return &Limiter{sem: semaphore.NewWeighted(n)}
}

// Builder runs the Bundle Builder pipeline against a fixed Deps.
type Builder struct {
	deps    Deps
	limiter *Limiter
}

// New creates a Builder whose concurrent-creation limiter is sized from
// deps.Config.BundleCreationLimit.
func New(deps Deps) *Builder {
	limit := int64(1)
	if deps.Config != nil && deps.Config.BundleCreationLimit > 0 {
		limit = int64(deps.Config.BundleCreationLimit)
	}

	if deps.Guides == nil {
		deps.Guides = external.NoopGuideGenerator{}
	}

	if deps.Tagger == nil {
		deps.Tagger = external.NoopTagger{}
	}

	if deps.Crawler == nil {
		deps.Crawler = external.StaticWebCrawler{}
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Builder{deps: deps, limiter: NewLimiter(limit)}
}

// Create runs the full atomic pipeline for req, returning the published
// bundle's id and manifest, logging its outcome and recording RED metrics
// under the "bundle.create" operation name.
func (b *Builder) Create(ctx context.Context, req CreateRequest) (result Result, err error) {
	b.deps.Logger.Info("creating bundle", "repos", len(req.Repos), "ifExists", req.IfExists)

	err = observability.Observe(ctx, b.deps.Metrics, "bundle.create", func() error {
		result, err = b.create(ctx, req)

		return err
	})
	if err != nil {
		b.deps.Logger.Error("bundle creation failed", "error", err)
	} else {
		b.deps.Logger.Info("bundle created", "bundleId", result.BundleID, "taskId", result.TaskID)
	}

	return result, err
}

// create implements Create's pipeline; split out so Create can wrap it
// uniformly with logging and metrics regardless of which return path fires.
func (b *Builder) create(ctx context.Context, req CreateRequest) (Result, error) {
	if err := b.limiter.sem.Acquire(ctx, 1); err != nil {
		return Result{}, err
	}
	defer b.limiter.sem.Release(1)

	// Step 1: compute fingerprint; short-circuit on existing match.
	fingerprint, err := manifest.Fingerprint(req.Repos, req.Libraries, req.Topics)
	if err != nil {
		return Result{}, bundleerrors.BundleCreationError(fmt.Errorf("compute fingerprint: %w", err))
	}

	if req.IfExists != IfExistsCreateNew {
		if existingID, found, err := b.deps.Dedup.FindExisting(fingerprint); err != nil {
			return Result{}, bundleerrors.BundleCreationError(err)
		} else if found {
			switch req.IfExists {
			case IfExistsReturnExisting, "":
				return b.loadExisting(existingID)
			case IfExistsUpdateExisting:
				return b.update(ctx, existingID, req)
			case IfExistsError:
				return Result{}, bundleerrors.New(bundleerrors.CodeBundleCreationError,
					"bundle already exists for this fingerprint").WithContext("bundleId", existingID)
			}
		}
	}

	bundleID := uuid.NewString()
	repoIDs := repoDisplayIDs(req.Repos)

	taskID := b.deps.Tracker.StartTask(fingerprint, repoIDs)

	// Step 2: acquire in-progress lock.
	if err := b.deps.Dedup.AcquireOrConflict(fingerprint, bundleID, taskID, repoIDs); err != nil {
		b.deps.Tracker.FailTask(taskID, err.Error())

		return Result{}, err
	}

	finalize := func(failErr error) {
		if failErr != nil {
			b.deps.Tracker.FailTask(taskID, failErr.Error())
			_ = b.deps.Dedup.ClearLock(fingerprint)
		}
	}

	root, err := storage.EffectiveWriteRoot(b.deps.Config.StorageDirs)
	if err != nil {
		finalize(err)

		return Result{}, err
	}

	// Step 4: tmp working dir.
	tmpRoot := filepath.Join(b.deps.Config.TmpDir, "bundles-wip", bundleID)
	if err := os.MkdirAll(tmpRoot, 0o755); err != nil {
		cleanupErr := bundleerrors.BundleCreationError(fmt.Errorf("allocate tmp dir: %w", err))
		finalize(cleanupErr)

		return Result{}, cleanupErr
	}

	result, err := b.runPipeline(ctx, pipelineCtx{
		bundleID:    bundleID,
		fingerprint: fingerprint,
		taskID:      taskID,
		tmpRoot:     tmpRoot,
		root:        root,
		req:         req,
	})
	if err != nil {
		os.RemoveAll(tmpRoot)
		finalize(err)

		return Result{}, err
	}

	return result, nil
}

type pipelineCtx struct {
	bundleID    string
	fingerprint string
	taskID      string
	tmpRoot     string
	root        string
	req         CreateRequest
}

// runPipeline executes steps 5 through 14. The tmp dir and lock cleanup on
// failure are the caller's responsibility (Create's finalize/RemoveAll).
func (b *Builder) runPipeline(ctx context.Context, p pipelineCtx) (Result, error) {
	b.deps.Tracker.UpdateProgress(p.taskID, progress.PhaseIngesting, 10, "acquiring and normalizing repos", 0)

	acquired, ingested, skipped, warnings, err := b.acquireAndNormalize(ctx, p)
	if err != nil {
		return Result{}, bundleerrors.BundleCreationError(err)
	}

	b.deps.Tracker.UpdateProgress(p.taskID, progress.PhaseIndexing, 40, "building search index", 0)

	db, err := fts.Open(filepath.Join(p.tmpRoot, "indexes", "search.sqlite3"))
	if err != nil {
		return Result{}, bundleerrors.BundleCreationError(err)
	}
	defer db.Close()

	sourceFiles, err := toSourceFiles(ingested)
	if err != nil {
		return Result{}, bundleerrors.BundleCreationError(err)
	}

	if err := fts.Rebuild(db, sourceFiles, fts.Options{Scope: fts.ScopeAll}); err != nil {
		return Result{}, bundleerrors.BundleCreationError(err)
	}

	b.deps.Tracker.UpdateProgress(p.taskID, progress.PhaseGenerating, 60, "tagging and describing", 0)

	view := external.BundleView{BundleID: p.bundleID, Repos: repoRecordIDs(acquired), FileCount: len(ingested)}

	description, err := b.deps.Tagger.Describe(ctx, view)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("tagger failed: %v", err))
	}

	m := manifest.New(p.bundleID, p.fingerprint)
	m.Type = p.req.Type
	m.Tags = description.Tags
	m.DisplayName = firstNonEmpty(description.DisplayName, p.req.DisplayNameHint)

	for _, a := range acquired {
		m.Repos = append(m.Repos, a.Record)
	}

	m.Skipped = skipped

	if err := manifest.Save(filepath.Join(p.tmpRoot, "manifest.json"), m); err != nil {
		return Result{}, bundleerrors.BundleCreationError(err)
	}

	guides, err := b.deps.Guides.Generate(ctx, view)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("guide generation failed: %v", err))
	}

	if err := writeGuides(p.tmpRoot, guides); err != nil {
		return Result{}, bundleerrors.BundleCreationError(err)
	}

	b.deps.Tracker.UpdateProgress(p.taskID, progress.PhaseFinalizing, 90, "validating completeness", 0)

	missing := validateTmpCompleteness(p.tmpRoot)
	if len(missing) > 0 {
		return Result{}, bundleerrors.BundleValidationError(p.bundleID, missing)
	}

	finalRoot := storage.GetPaths(p.root, p.bundleID).Root
	if err := publishAtomic(p.tmpRoot, finalRoot); err != nil {
		return Result{}, bundleerrors.BundleCreationError(err)
	}

	backups := b.deps.Config.StorageDirs
	var backupRoots []string

	for _, r := range backups {
		if r != p.root {
			backupRoots = append(backupRoots, r)
		}
	}

	mirrorWarnings := storage.Mirror(p.root, backupRoots, p.bundleID)
	warnings = append(warnings, mirrorWarnings...)

	if err := b.deps.Dedup.MarkComplete(p.fingerprint, p.bundleID); err != nil {
		warnings = append(warnings, fmt.Sprintf("dedup index update failed: %v", err))
	}

	_ = b.deps.Dedup.ClearLock(p.fingerprint)
	b.deps.Tracker.CompleteTask(p.taskID, p.bundleID)

	return Result{BundleID: p.bundleID, TaskID: p.taskID, Manifest: m, Warnings: warnings}, nil
}

// acquireAndNormalize runs the per-repo Acquirer→Normalizer fan-out
// concurrently, bounded by errgroup, preserving deterministic output order
// by repo index regardless of completion order.
func (b *Builder) acquireAndNormalize(ctx context.Context, p pipelineCtx) ([]acquire.Acquired, []taggedFile, []manifest.SkippedFileEntry, []string, error) {
	n := len(p.req.Repos)

	acquiredAll := make([]acquire.Acquired, n)
	ingestedAll := make([][]taggedFile, n)
	skippedAll := make([][]manifest.SkippedFileEntry, n)

	var (
		mu       sync.Mutex
		warnings []string
	)

	g, gctx := errgroup.WithContext(ctx)

	for i, repoInput := range p.req.Repos {
		i, repoInput := i, repoInput

		g.Go(func() error {
			acquired, err := b.acquireOne(gctx, p, repoInput)
			if err != nil {
				return err
			}

			ns, name := repoDirParts(acquired.Record.ID)
			rawDir := filepath.Join(p.tmpRoot, "repos", ns, name, "raw")
			normDir := filepath.Join(p.tmpRoot, "repos", ns, name, "norm")

			result, err := ingest.Normalize(acquired.RepoRoot, rawDir, normDir, ingest.Options{
				MaxFileBytes:  b.deps.Config.MaxFileBytes,
				MaxTotalBytes: b.deps.Config.MaxTotalBytes,
			})
			if err != nil {
				return err
			}

			tagged := make([]taggedFile, len(result.Files))
			for j, f := range result.Files {
				tagged[j] = taggedFile{RepoID: acquired.Record.ID, NormDir: normDir, File: f}
			}

			skipped := make([]manifest.SkippedFileEntry, len(result.Skipped))
			for j, s := range result.Skipped {
				skipped[j] = manifest.SkippedFileEntry{
					Path: acquired.Record.ID + "/" + s.Path, Reason: s.Reason, Size: s.Size,
				}
			}

			mu.Lock()
			acquiredAll[i] = acquired
			ingestedAll[i] = tagged
			skippedAll[i] = skipped
			warnings = append(warnings, acquired.Warnings...)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, nil, nil, err
	}

	var (
		allFiles   []taggedFile
		allSkipped []manifest.SkippedFileEntry
	)

	for _, files := range ingestedAll {
		allFiles = append(allFiles, files...)
	}

	for _, skipped := range skippedAll {
		allSkipped = append(allSkipped, skipped...)
	}

	sort.Slice(allFiles, func(i, j int) bool {
		return allFiles[i].RepoID+"/"+allFiles[i].File.RepoRelPath < allFiles[j].RepoID+"/"+allFiles[j].File.RepoRelPath
	})

	sort.Slice(allSkipped, func(i, j int) bool {
		return allSkipped[i].Path < allSkipped[j].Path
	})

	return acquiredAll, allFiles, allSkipped, warnings, nil
}

// taggedFile pairs a normalized file with the repo it came from and the
// on-disk directory its normalized bytes were written to, so later stages
// (FTS indexing) can read the file content without re-deriving paths.
type taggedFile struct {
	RepoID  string
	NormDir string
	File    ingest.IngestedFile
}

func (b *Builder) acquireOne(ctx context.Context, p pipelineCtx, repoInput manifest.RepoInput) (acquire.Acquired, error) {
	switch repoInput.Kind {
	case "github":
		ns, name := repoDirParts(repoInput.Owner + "/" + repoInput.Repo)
		cloneDir := filepath.Join(p.tmpRoot, "repos", ns, name, "raw")

		fetcher := b.deps.ArchiveFetcher
		if fetcher == nil {
			fetcher = acquire.FetchArchive
		}

		timeout := time.Duration(b.deps.Config.GitCloneTimeoutMs) * time.Millisecond

		return acquire.GitHub(ctx, acquire.GitHubRequest{
			Owner: repoInput.Owner, Repo: repoInput.Repo, Ref: repoInput.Ref,
			CloneDir: cloneDir, CloneTimeout: timeout, ArchiveFetcher: fetcher,
		})

	case "local":
		return acquire.Local(acquire.LocalRequest{
			RepoID: repoInput.RepoID, AbsolutePath: repoInput.AbsolutePath, Ref: repoInput.Ref,
		})

	case "web":
		ns, name := repoDirParts("web/" + repoInput.URL)
		outDir := filepath.Join(p.tmpRoot, "repos", ns, name)

		return acquire.Web(ctx, acquire.WebRequest{
			URL: repoInput.URL, Crawler: b.deps.Crawler, OutputDir: outDir,
		})

	default:
		return acquire.Acquired{}, fmt.Errorf("unknown repo input kind %q", repoInput.Kind)
	}
}

func (b *Builder) loadExisting(bundleID string) (Result, error) {
	root, found := storage.FindBundle(b.deps.Config.StorageDirs, bundleID)
	if !found {
		return Result{}, bundleerrors.BundleNotFound(bundleID)
	}

	m, err := manifest.Load(storage.GetPaths(root, bundleID).Manifest)
	if err != nil {
		return Result{}, bundleerrors.BundleCreationError(err)
	}

	return Result{BundleID: bundleID, Manifest: m}, nil
}

func repoDisplayIDs(repos []manifest.RepoInput) []string {
	ids := make([]string, 0, len(repos))

	for _, r := range repos {
		switch r.Kind {
		case "github":
			ids = append(ids, r.Owner+"/"+r.Repo)
		case "local":
			ids = append(ids, r.RepoID)
		case "web":
			ids = append(ids, r.URL)
		}
	}

	return ids
}

func repoRecordIDs(acquired []acquire.Acquired) []string {
	ids := make([]string, 0, len(acquired))
	for _, a := range acquired {
		ids = append(ids, a.Record.ID)
	}

	return ids
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
