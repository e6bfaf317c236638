package trace

import (
	"crypto/sha256"
	"encoding/hex"
)

// edgeKey computes the idempotent upsert key spec §4.J specifies:
// (source.type+id, target.type+id, type).
func edgeKey(e Edge) string {
	return e.Source.Type + ":" + e.Source.ID + "|" + e.Target.Type + ":" + e.Target.ID + "|" + string(e.Type)
}

// computeEdgeID derives a stable id from the edge's key, following the
// Evidence/EvidenceItem convention of hashing kind+endpoints+location
// (spec §3) rather than assigning a random id.
func computeEdgeID(e Edge) string {
	sum := sha256.Sum256([]byte(edgeKey(e)))

	return hex.EncodeToString(sum[:])
}
