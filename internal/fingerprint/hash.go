// Package fingerprint identifies input files by content and remembers which
// ones have already been turned into variants.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// chunkSize is the read size used while streaming a file through the digest.
const chunkSize = 4096

// Fingerprint is the hex SHA-256 digest of a file's bytes.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Short returns a log-friendly prefix.
func (f Fingerprint) Short() string {
	if len(f) > 12 {
		return string(f[:12])
	}
	return string(f)
}

// Hash streams the file at path through SHA-256.
func Hash(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for hashing: %w", err)
	}
	defer f.Close()
	return HashReader(f)
}

// HashReader digests r in fixed-size chunks.
func HashReader(r io.Reader) (Fingerprint, error) {
	h := sha256.New()
	if err := fold(h, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}

func fold(h hash.Hash, r io.Reader) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
