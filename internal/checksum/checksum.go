// Package checksum derives content revisions for panel documents.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// revisionLen is the number of hex characters kept in a revision.
const revisionLen = 16

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Revision returns a short, stable identifier for a rendered document,
// suitable for ETags and for skipping no-op reloads in the panel page.
func Revision(doc string) string {
	return Sum([]byte(doc))[:revisionLen]
}
