package api

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
	"github.com/Sumatoshi-tech/preflight/internal/storage"
	"github.com/Sumatoshi-tech/preflight/pkg/gitlib"
)

// RepoUpdateStatus reports whether one git-acquired repo in a bundle has
// moved past the revision recorded at acquisition time.
type RepoUpdateStatus struct {
	RepoID        string `json:"repoId"`
	StoredHeadRev string `json:"storedHeadRev"`
	RemoteHeadRev string `json:"remoteHeadRev,omitempty"`
	HasUpdate     bool   `json:"hasUpdate"`
	Checked       bool   `json:"checked"`
	Error         string `json:"error,omitempty"`
}

// CheckForUpdates re-resolves each git-kind repo's remote HEAD via a
// throwaway shallow clone and compares it against the manifest's stored
// headRev (spec §6 `check_for_updates`). Archive/local/crawl repos have no
// cheap remote probe and are reported unchecked.
func (e *Env) CheckForUpdates(ctx context.Context, bundleID string) ([]RepoUpdateStatus, error) {
	writeRoot, found := storage.FindBundle(e.Config.StorageDirs, bundleID)
	if !found {
		return nil, notFound(bundleID)
	}

	m, err := manifest.Load(storage.GetPaths(writeRoot, bundleID).Manifest)
	if err != nil {
		return nil, bundleerrors.OperationFailed("load manifest", err)
	}

	statuses := make([]RepoUpdateStatus, 0, len(m.Repos))

	for _, r := range m.Repos {
		if r.Kind != manifest.RepoKindGit || r.HeadRev == "" {
			statuses = append(statuses, RepoUpdateStatus{RepoID: r.ID, StoredHeadRev: r.HeadRev})
			continue
		}

		statuses = append(statuses, e.checkOneRepo(ctx, r))
	}

	return statuses, nil
}

func (e *Env) checkOneRepo(ctx context.Context, r manifest.RepoRecord) RepoUpdateStatus {
	status := RepoUpdateStatus{RepoID: r.ID, StoredHeadRev: r.HeadRev}

	probeDir, err := os.MkdirTemp(e.Config.TmpDir, "update-probe-*")
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer os.RemoveAll(probeDir)

	url := "https://github.com/" + r.ID + ".git"
	timeout := time.Duration(e.Config.GitCloneTimeoutMs) * time.Millisecond

	repo, err := gitlib.Clone(ctx, url, filepath.Join(probeDir, "repo"), gitlib.CloneOptions{
		Ref:     r.RefUsed,
		Timeout: timeout,
	})
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer repo.Free()

	head, err := repo.Head()
	if err != nil {
		status.Error = err.Error()
		return status
	}

	status.Checked = true
	status.RemoteHeadRev = head.String()
	status.HasUpdate = status.RemoteHeadRev != status.StoredHeadRev

	return status
}
