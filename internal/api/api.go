// Package api is the bundle-facing callable surface spec §6 describes as
// consumed by an external tool layer (SPEC_FULL §4.Z): one function per
// listed operation, wiring together storage, dedup, the bundle builder,
// search, the dependency graph engine, the trace store, and the
// validator/repair package behind a single Env.
package api

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/preflight/internal/bundlebuilder"
	"github.com/Sumatoshi-tech/preflight/internal/config"
	"github.com/Sumatoshi-tech/preflight/internal/dedup"
	"github.com/Sumatoshi-tech/preflight/internal/external"
	"github.com/Sumatoshi-tech/preflight/internal/observability"
	"github.com/Sumatoshi-tech/preflight/internal/progress"
	"github.com/Sumatoshi-tech/preflight/internal/storage"
)

// Env bundles every collaborator an API call needs, constructed once per
// process and shared by every operation in this package.
type Env struct {
	Config  *config.Config
	Dedup   *dedup.Store
	Tracker *progress.Tracker
	Builder *bundlebuilder.Builder
	Guides  external.GuideGenerator
	Logger  *slog.Logger
	Metrics *observability.REDMetrics

	crawler external.WebCrawler
	tagger  external.Tagger
}

// New wires a fresh Env from cfg: a dedup store rooted at the effective
// write root (bundle existence checked across every configured storage
// dir), a process-wide progress tracker, and a bundlebuilder.Builder using
// the no-op web crawler/guide generator/tagger defaults unless overridden
// via WithCollaborators. Logging defaults to slog.Default() and metrics
// stay disabled until WithObservability installs a real meter.
func New(cfg *config.Config) (*Env, error) {
	writeRoot, err := storage.EffectiveWriteRoot(cfg.StorageDirs)
	if err != nil {
		return nil, fmt.Errorf("resolve write root: %w", err)
	}

	dedupStore := dedup.NewStore(writeRoot, func(bundleID string) bool {
		_, found := storage.FindBundle(cfg.StorageDirs, bundleID)

		return found
	})

	e := &Env{
		Config:  cfg,
		Dedup:   dedupStore,
		Tracker: progress.NewTracker(),
		Guides:  external.NoopGuideGenerator{},
		Logger:  slog.Default(),
		crawler: external.StaticWebCrawler{},
		tagger:  external.NoopTagger{},
	}

	e.rebuildBuilder()

	return e, nil
}

// WithCollaborators rebuilds e.Builder using crawler/guides/tagger instead
// of the no-op defaults New installs, for callers that have a real web
// crawler, narrative-guide generator, or auto-tagger to wire in.
func (e *Env) WithCollaborators(crawler external.WebCrawler, guides external.GuideGenerator, tagger external.Tagger) {
	e.crawler = crawler
	e.Guides = guides
	e.tagger = tagger

	e.rebuildBuilder()
}

// WithObservability installs logger/meter, replacing the zero-value
// defaults New constructs, and threads both into the bundle builder so its
// pipeline logs and emits RED metrics for every create/update run.
func (e *Env) WithObservability(logger *slog.Logger, meter metric.Meter) error {
	if logger != nil {
		e.Logger = logger
	}

	if meter != nil {
		red, err := observability.NewREDMetrics(meter)
		if err != nil {
			return fmt.Errorf("create RED metrics: %w", err)
		}

		e.Metrics = red
	}

	e.rebuildBuilder()

	return nil
}

func (e *Env) rebuildBuilder() {
	e.Builder = bundlebuilder.New(bundlebuilder.Deps{
		Config:  e.Config,
		Dedup:   e.Dedup,
		Tracker: e.Tracker,
		Crawler: e.crawler,
		Guides:  e.Guides,
		Tagger:  e.tagger,
		Logger:  e.Logger,
		Metrics: e.Metrics,
	})
}

// bundleRoot resolves bundleID to its on-disk root across every configured
// storage dir, or returns BundleNotFound.
func (e *Env) bundleRoot(bundleID string) (string, error) {
	root, found := storage.FindBundle(e.Config.StorageDirs, bundleID)
	if !found {
		return "", notFound(bundleID)
	}

	return storage.GetPaths(root, bundleID).Root, nil
}
