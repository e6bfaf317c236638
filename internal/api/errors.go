package api

import "github.com/Sumatoshi-tech/preflight/internal/bundleerrors"

func notFound(bundleID string) error {
	return bundleerrors.BundleNotFound(bundleID)
}
