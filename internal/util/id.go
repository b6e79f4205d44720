package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a random identifier such as "case_3f2a…" or "dsp_91bc…".
// An empty prefix yields bare hex, used to pad refresh tokens. Device-local
// case ids use "local-" instead and are minted by the localstore package.
func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}
