package depgraph

import "database/sql"

// Generate dispatches to target or global mode depending on whether
// opts.TargetFile is set, per spec §4.I.
func Generate(bundleRoot, bundleID string, db *sql.DB, opts Options) (Result, error) {
	if opts.TargetFile != "" {
		return GenerateTarget(bundleRoot, bundleID, db, opts)
	}

	return GenerateGlobal(bundleRoot, bundleID, opts)
}
