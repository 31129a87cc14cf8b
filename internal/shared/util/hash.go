package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// OwnerPrefix maps an owner id to the directory that holds its uploaded
// content. Owner ids like "google:123" are not safe path segments, so the
// prefix is the hex sha256 of the id.
func OwnerPrefix(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:])
}
