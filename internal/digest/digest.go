// Package digest computes cryptographic content digests used as
// tamper-evident fingerprints. Digests are streamed, so memory use is
// bounded regardless of input size, and deterministic: identical byte
// sequences always produce identical digests.
package digest

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"golang.org/x/crypto/sha3"
)

// Supported algorithm names.
const (
	AlgSHA256  = "sha256"
	AlgSHA512  = "sha512"
	AlgSHA3256 = "sha3-256"
)

// Engine computes hex digests with a fixed algorithm. The zero value is not
// usable; construct with New.
type Engine struct {
	alg string
	new func() hash.Hash
}

// New returns an Engine for the given algorithm name. An empty name selects
// sha256.
func New(alg string) (*Engine, error) {
	if alg == "" {
		alg = AlgSHA256
	}
	switch alg {
	case AlgSHA256:
		return &Engine{alg: alg, new: sha256.New}, nil
	case AlgSHA512:
		return &Engine{alg: alg, new: sha512.New}, nil
	case AlgSHA3256:
		return &Engine{alg: alg, new: sha3.New256}, nil
	default:
		return nil, fmt.Errorf("unsupported digest algorithm: %q", alg)
	}
}

// Algorithm returns the engine's algorithm name.
func (e *Engine) Algorithm() string {
	return e.alg
}

// HexLen returns the length of the hex digest the engine produces.
func (e *Engine) HexLen() int {
	return e.new().Size() * 2
}

// Sum streams r through the hash and returns the lowercase hex digest.
// A read error is returned as-is; no partial digest is ever produced.
func (e *Engine) Sum(r io.Reader) (string, error) {
	h := e.new()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumBytes returns the hex digest of b.
func (e *Engine) SumBytes(b []byte) string {
	h := e.new()
	h.Write(b)
	return hex.EncodeToString(h.Sum(nil))
}
