package mirror

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GitBlobSHA1 computes the same hash `git hash-object` would for content:
// sha1("blob " + len(content) + "\0" + content). The ls checksums and
// file_status report it so callers can compare against git objects.
func GitBlobSHA1(content []byte) string {
	header := fmt.Sprintf("blob %d\x00", len(content))
	h := sha1.New()
	h.Write([]byte(header))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentSHA256 is a plain digest used where a git-independent fingerprint
// is wanted: RsyncEngine compares local and remote content with it, and
// file_status reports it.
func ContentSHA256(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
