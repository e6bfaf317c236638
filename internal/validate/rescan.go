package validate

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Sumatoshi-tech/preflight/internal/config"
	"github.com/Sumatoshi-tech/preflight/internal/fts"
	"github.com/Sumatoshi-tech/preflight/internal/ingest"
)

// rescanNormFiles re-derives the FTS index's source-file set by walking
// repos/<namespace>/<name>/norm directly, applying ingest's size rule so a
// file that grew past the budget since normalization doesn't get
// re-admitted (spec §4.K Repair: "applying the same size rules as
// ingest"). It never touches raw/ and never re-fetches anything.
func rescanNormFiles(bundleRoot string, maxFileBytes int64) ([]fts.SourceFile, error) {
	reposDir := filepath.Join(bundleRoot, "repos")

	namespaces, err := os.ReadDir(reposDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	var out []fts.SourceFile

	for _, ns := range namespaces {
		if !ns.IsDir() {
			continue
		}

		names, err := os.ReadDir(filepath.Join(reposDir, ns.Name()))
		if err != nil {
			continue
		}

		for _, name := range names {
			if !name.IsDir() {
				continue
			}

			repoID := ns.Name() + "/" + name.Name()
			normDir := filepath.Join(reposDir, ns.Name(), name.Name(), "norm")

			files, err := rescanRepoNormDir(normDir, repoID, maxFileBytes)
			if err != nil {
				continue
			}

			out = append(out, files...)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })

	return out, nil
}

func rescanRepoNormDir(normDir, repoID string, maxFileBytes int64) ([]fts.SourceFile, error) {
	var out []fts.SourceFile

	err := filepath.Walk(normDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil //nolint:nilerr
		}

		if info == nil || info.IsDir() {
			return nil
		}

		if maxFileBytes > 0 && info.Size() > maxFileBytes {
			return nil
		}

		rel, relErr := filepath.Rel(normDir, path)
		if relErr != nil {
			return nil
		}

		rel = filepath.ToSlash(rel)

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}

		sum := sha256.Sum256(content)

		out = append(out, fts.SourceFile{
			Path:        repoID + "/" + rel,
			Repo:        repoID,
			Kind:        string(ingest.Classify(rel, content)),
			ContentHash: hex.EncodeToString(sum[:]),
			Lines:       strings.Split(string(content), "\n"),
		})

		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return out, nil
}

// defaultMaxFileBytes resolves the ingest size budget used by a rescan
// when the caller doesn't supply one explicitly.
func defaultMaxFileBytes(cfg *config.Config) int64 {
	if cfg == nil || cfg.MaxFileBytes <= 0 {
		return config.DefaultMaxFileBytes
	}

	return cfg.MaxFileBytes
}
