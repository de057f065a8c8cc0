package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/emtek/nce-pricing/pricing"
)

// FileDigest computes the SHA-256 content digest of the file at path,
// streamed so large feeds do not load into memory. The digest is stable
// across re-reads of identical bytes.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", pricing.ErrSourceUnavailable, path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("%w: read %s: %v", pricing.ErrSourceUnavailable, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
