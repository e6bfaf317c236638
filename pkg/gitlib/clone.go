package gitlib

import (
	"context"
	"fmt"
	"time"

	git2go "github.com/libgit2/git2go/v34"
)

// ProgressFunc receives human-readable progress messages during a clone.
type ProgressFunc func(message string)

// CloneOptions configures a clone that checks out one ref. No depth limit
// or single-branch refspec is set: the clone fetches the remote's full
// history and branches.
type CloneOptions struct {
	// Ref is the branch or tag to check out; empty means the remote's
	// default branch.
	Ref string

	// Timeout bounds how long the clone may run; zero means no timeout.
	Timeout time.Duration

	// Progress, if set, is called with periodic status messages.
	Progress ProgressFunc
}

// Clone performs a full (non-shallow) clone of url into dstPath, checking
// out opts.Ref, and returns the opened repository. A non-zero Timeout aborts the clone and returns a
// context.DeadlineExceeded-wrapped error; callers (the Repo Acquirer) treat
// that as a signal to fall back to archive download.
func Clone(ctx context.Context, url, dstPath string, opts CloneOptions) (*Repository, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cloneOpts := &git2go.CloneOptions{
		CheckoutBranch: opts.Ref,
		FetchOptions: &git2go.FetchOptions{
			DownloadTags: git2go.DownloadTagsNone,
		},
	}

	type result struct {
		repo *git2go.Repository
		err  error
	}

	done := make(chan result, 1)

	go func() {
		if opts.Progress != nil {
			opts.Progress(fmt.Sprintf("cloning %s", url))
		}

		repo, err := git2go.Clone(url, dstPath, cloneOpts)
		done <- result{repo: repo, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("clone %s: %w", url, ctx.Err())

	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("clone %s: %w", url, r.err)
		}

		if opts.Progress != nil {
			opts.Progress("clone completed")
		}

		return &Repository{repo: r.repo, path: dstPath}, nil
	}
}
