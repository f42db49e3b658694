package idhash

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
)

// SnapshotID computes a deterministic equity snapshot id.
// Formula: SHA256(window_key|series|computed_at_ms)
func SnapshotID(windowKey, series string, computedAt time.Time) string {
	data := fmt.Sprintf("%s|%s|%d", windowKey, series, computedAt.UnixMilli())

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
