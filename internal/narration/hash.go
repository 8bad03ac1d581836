package narration

import (
	"crypto/md5" //#nosec G401 -- fingerprint for cache invalidation, not security
	"encoding/hex"
)

// ContentHash fingerprints extracted narration text. It gates regeneration
// (skip when the stored hash matches) and doubles as the cache-busting query
// parameter on audio URLs, so it only needs to be stable and short, not
// cryptographically strong.
func ContentHash(text string) string {
	sum := md5.Sum([]byte(text)) //#nosec G401
	return hex.EncodeToString(sum[:])[:8]
}
