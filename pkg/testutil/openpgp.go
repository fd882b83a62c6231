package testutil

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/stretchr/testify/require"
)

// Key is an OpenPGP certificate generated for a test.
type Key struct {
	Entity *openpgp.Entity
	// Binary is the public certificate in WKD's binary transferable format.
	Binary []byte
}

// Fingerprint returns the upper-case hex fingerprint of the primary key.
func (k Key) Fingerprint() string {
	return fmt.Sprintf("%X", k.Entity.PrimaryKey.Fingerprint[:])
}

type keyOptions struct {
	created  time.Time
	lifetime time.Duration
	revoked  bool
}

// KeyOption customises NewKey.
type KeyOption func(*keyOptions)

// CreatedAt backdates the key and its self-signatures.
func CreatedAt(t time.Time) KeyOption {
	return func(o *keyOptions) { o.created = t }
}

// ExpiresAfter sets the key lifetime relative to its creation.
func ExpiresAfter(d time.Duration) KeyOption {
	return func(o *keyOptions) { o.lifetime = d }
}

// Revoked adds a key revocation signature.
func Revoked() KeyOption {
	return func(o *keyOptions) { o.revoked = true }
}

// NewKey generates an EdDSA certificate for email and serializes its public part.
func NewKey(t *testing.T, name, email string, opts ...KeyOption) Key {
	t.Helper()

	o := keyOptions{created: time.Now()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := &packet.Config{
		Algorithm:       packet.PubKeyAlgoEdDSA,
		KeyLifetimeSecs: uint32(o.lifetime / time.Second),
		Time:            func() time.Time { return o.created },
	}
	entity, err := openpgp.NewEntity(name, "", email, cfg)
	require.NoError(t, err, "generate key")

	if o.revoked {
		require.NoError(t, entity.RevokeKey(packet.KeyCompromised, "test revocation", cfg), "revoke key")
	}

	return Key{Entity: entity, Binary: Serialize(t, entity)}
}

// Serialize writes the public part of every entity back to back.
func Serialize(t *testing.T, entities ...*openpgp.Entity) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, e := range entities {
		require.NoError(t, e.Serialize(&buf), "serialize key")
	}
	return buf.Bytes()
}
