package fingerprint

import (
	"context"
	"errors"
)

// Registry is the append-only set of fingerprints already processed.
// Entries are never evicted.
type Registry interface {
	Contains(ctx context.Context, fp Fingerprint) (bool, error)
	Add(ctx context.Context, fp Fingerprint) error
	// Claim atomically checks and inserts fp. It reports false when fp was
	// already present, so only one of several concurrent callers wins.
	Claim(ctx context.Context, fp Fingerprint) (bool, error)
}

var errEmptyFingerprint = errors.New("fingerprint cannot be empty")
