package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// OwnerKey maps a user id to the path segment grouping that user's export
// artifacts. Raw ids never show up in object keys or bucket listings.
func OwnerKey(userID string) string {
	sum := sha256.Sum256([]byte("export-owner\x00" + userID))
	return hex.EncodeToString(sum[:16])
}
