package acquire

import (
	"context"
	"errors"
	"time"

	"github.com/Sumatoshi-tech/preflight/internal/bundleerrors"
	"github.com/Sumatoshi-tech/preflight/internal/manifest"
	"github.com/Sumatoshi-tech/preflight/pkg/gitlib"
)

// GitHub acquires a repo by shallow clone, falling back to archive download
// on failure (spec §4.G). Both paths emit fetchedAt and optional refUsed;
// user-visible warnings are appended describing which path was used.
func GitHub(ctx context.Context, req GitHubRequest) (Acquired, error) {
	id := canonicalID(req.Owner, req.Repo)
	url := "https://github.com/" + id + ".git"

	repo, err := gitlib.Clone(ctx, url, req.CloneDir, gitlib.CloneOptions{
		Ref:      req.Ref,
		Timeout:  req.CloneTimeout,
		Progress: req.Progress,
	})
	if err == nil {
		defer repo.Free()

		head, headErr := repo.Head()
		if headErr != nil {
			return Acquired{}, bundleerrors.GitHubError("read cloned HEAD", headErr)
		}

		return Acquired{
			RepoRoot: req.CloneDir,
			Record: manifest.RepoRecord{
				ID:        id,
				Kind:      manifest.RepoKindGit,
				HeadRev:   head.String(),
				FetchedAt: time.Now().UTC(),
				RefUsed:   req.Ref,
			},
			Warnings: nil,
		}, nil
	}

	if req.ArchiveFetcher == nil {
		return Acquired{}, bundleerrors.GitHubError("clone failed and no archive fallback configured", err)
	}

	refUsed, archiveErr := req.ArchiveFetcher(ctx, req.Owner, req.Repo, req.Ref, req.CloneDir)
	if archiveErr != nil {
		return Acquired{}, bundleerrors.GitHubError("clone and archive fallback both failed",
			errors.Join(err, archiveErr))
	}

	return Acquired{
		RepoRoot: req.CloneDir,
		Record: manifest.RepoRecord{
			ID:        id,
			Kind:      manifest.RepoKindArchive,
			FetchedAt: time.Now().UTC(),
			RefUsed:   refUsed,
		},
		Warnings: []string{"git clone failed; used archive", "archive completed"},
	}, nil
}
