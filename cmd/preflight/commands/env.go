package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/preflight/internal/api"
	"github.com/Sumatoshi-tech/preflight/internal/config"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
	"github.com/Sumatoshi-tech/preflight/internal/observability"
)

// buildEnv loads config from configPath (empty means the default search
// path), wires a fresh api.Env, and installs a process-local logger/meter
// pair via observability.Init. The returned shutdown func flushes the meter
// provider and must be deferred by the caller; it logs (rather than
// returns) a failure, mirroring codefang's run.go defer-shutdown idiom.
func buildEnv(configPath string) (*api.Env, func(), error) {
	noop := func() {}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, noop, fmt.Errorf("load config: %w", err)
	}

	env, err := api.New(cfg)
	if err != nil {
		return nil, noop, err
	}

	providers, err := observability.Init(observability.DefaultConfig())
	if err != nil {
		return nil, noop, fmt.Errorf("init observability: %w", err)
	}

	if err := env.WithObservability(providers.Logger, providers.Meter); err != nil {
		return nil, noop, fmt.Errorf("install observability: %w", err)
	}

	shutdown := func() {
		if shutdownErr := providers.Shutdown(context.Background()); shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}

	return env, shutdown, nil
}

// parseRepoSpec parses one --repo flag value into a manifest.RepoInput.
//
//	owner/repo[@ref]      github
//	local:/abs/path[@ref] local
//	https://...           web
func parseRepoSpec(spec string) (manifest.RepoInput, error) {
	switch {
	case strings.HasPrefix(spec, "local:"):
		rest := strings.TrimPrefix(spec, "local:")

		path, ref, _ := strings.Cut(rest, "@")

		return manifest.RepoInput{Kind: "local", RepoID: lastPathSegment(path), AbsolutePath: path, Ref: ref}, nil

	case strings.HasPrefix(spec, "http://"), strings.HasPrefix(spec, "https://"):
		return manifest.RepoInput{Kind: "web", URL: spec}, nil

	default:
		ownerRepo, ref, _ := strings.Cut(spec, "@")

		owner, repo, ok := strings.Cut(ownerRepo, "/")
		if !ok {
			return manifest.RepoInput{}, fmt.Errorf("repo spec %q: expected owner/repo[@ref], local:/path, or a URL", spec)
		}

		return manifest.RepoInput{Kind: "github", Owner: owner, Repo: repo, Ref: ref}, nil
	}
}

func lastPathSegment(path string) string {
	path = strings.TrimSuffix(path, "/")

	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return path
	}

	return path[idx+1:]
}
