// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package stages

import (
	"encoding/hex"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint returns the hex blake2b-256 digest of everything in r.
func Fingerprint(r io.Reader) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Ledger reports files that an earlier run already ingested.
// Implementations must be safe for concurrent readers.
type Ledger interface {
	Ingested(digest string) bool
}

// DigestSet is a Ledger backed by a map that is not modified during a run.
type DigestSet map[string]bool

func (s DigestSet) Ingested(digest string) bool {
	return s[digest]
}

// IngestedFile is a file a worker folded into its table.
type IngestedFile struct {
	Path   string
	Digest string
	Rows   int64
}
