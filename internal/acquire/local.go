package acquire

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sumatoshi-tech/preflight/internal/manifest"
	"github.com/Sumatoshi-tech/preflight/pkg/gitlib"
)

// Local resolves and verifies a local directory. If it is a git working
// tree, its HEAD sha is captured (spec §4.G).
func Local(req LocalRequest) (Acquired, error) {
	abs, err := filepath.Abs(req.AbsolutePath)
	if err != nil {
		return Acquired{}, fmt.Errorf("resolve local path %s: %w", req.AbsolutePath, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return Acquired{}, fmt.Errorf("stat local path %s: %w", abs, err)
	}

	if !info.IsDir() {
		return Acquired{}, fmt.Errorf("local path %s is not a directory", abs)
	}

	record := manifest.RepoRecord{
		ID:        req.RepoID,
		Kind:      manifest.RepoKindLocal,
		FetchedAt: time.Now().UTC(),
		RefUsed:   req.Ref,
	}

	if repo, err := gitlib.OpenRepository(abs); err == nil {
		defer repo.Free()

		if head, err := repo.Head(); err == nil {
			record.HeadRev = head.String()
		}
	}

	return Acquired{RepoRoot: abs, Record: record}, nil
}
