package acquire

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// FetchArchive downloads https://github.com/<owner>/<repo>/archive/<ref>.zip
// (defaulting ref to "HEAD" when empty) and extracts it into dir, stripping
// the single top-level directory GitHub archives always contain. It is the
// default ArchiveFetcher wired into production GitHubRequests.
func FetchArchive(ctx context.Context, owner, repo, ref, dir string) (string, error) {
	refUsed := ref
	if refUsed == "" {
		refUsed = "HEAD"
	}

	url := fmt.Sprintf("https://github.com/%s/%s/archive/%s.zip", owner, repo, refUsed)

	tmpZip, err := downloadToTemp(ctx, url, dir)
	if err != nil {
		return "", err
	}
	defer os.Remove(tmpZip)

	if err := extractZip(tmpZip, dir); err != nil {
		return "", err
	}

	return refUsed, nil
}

func downloadToTemp(ctx context.Context, url, dir string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build archive request: %w", err)
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("download archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download archive: unexpected status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dest dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".archive-*.zip")
	if err != nil {
		return "", fmt.Errorf("create temp archive file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		return "", fmt.Errorf("write archive to disk: %w", err)
	}

	return tmp.Name(), nil
}

// extractZip extracts archive into dir, stripping the single top-level
// directory component every GitHub codeload archive wraps its contents in.
func extractZip(archivePath, dir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		rel := stripTopLevel(f.Name)
		if rel == "" {
			continue
		}

		target := filepath.Join(dir, rel)

		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}

			continue
		}

		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}

	return nil
}

func extractZipFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return fmt.Errorf("create extracted file %s: %w", target, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write extracted file %s: %w", target, err)
	}

	return nil
}

func stripTopLevel(name string) string {
	idx := strings.IndexByte(name, '/')
	if idx < 0 {
		return ""
	}

	return name[idx+1:]
}
