package project

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest is a SHA-256 hash, compatible with source.File.Hash.
type Digest [32]byte

// Combine builds a unit hash: H(content || dep1 || dep2 ...). Callers pass
// deps in a deterministic order.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// HashString digests an option string so it can join a Combine.
func HashString(s string) Digest {
	return sha256.Sum256([]byte(s))
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
