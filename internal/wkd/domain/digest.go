package domain

import (
	"crypto/sha1" //nolint:gosec // the WKD address encoding is defined over SHA-1
	"fmt"

	"github.com/tv42/zbase32"
)

// DigestLength is the length of every encoded digest: 160 bits in 5-bit groups.
const DigestLength = 32

// Digest is the z-base-32 encoded SHA-1 of a normalized local part.
type Digest string

// HashLocalPart computes the WKD digest of an already normalized local part.
func HashLocalPart(normalized string) Digest {
	sum := sha1.Sum([]byte(normalized)) //nolint:gosec // see import
	encoded := zbase32.EncodeToString(sum[:])
	if len(encoded) != DigestLength {
		panic(fmt.Sprintf("wkd digest: encoded %d bytes into %d characters, want %d", len(sum), len(encoded), DigestLength))
	}
	return Digest(encoded)
}

// String returns the encoded digest.
func (d Digest) String() string {
	return string(d)
}
