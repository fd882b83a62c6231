package keys

import (
	"bytes"
	"crypto"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wkd-tester/internal/wkd/domain"
	"wkd-tester/pkg/testutil"
)

func TestParseMatchingKey(t *testing.T) {
	key := testutil.NewKey(t, "Joe Doe", "joe.doe@example.org")

	info, err := Parse(key.Binary, domain.MustParseUserID("joe.doe@example.org"), time.Now())
	require.NoError(t, err)

	assert.Equal(t, key.Fingerprint(), info.Fingerprint)
	assert.Len(t, info.Fingerprint, 40)
	assert.Equal(t, domain.RevocationNotRevoked, info.RevocationStatus)

	require.NotNil(t, info.Details)
	assert.Equal(t, []string{"Joe Doe <joe.doe@example.org>"}, info.Details.UserIDs)
	assert.Contains(t, info.Details.Algorithm, "EdDSA")
	assert.Nil(t, info.Details.ExpiresAt)
	assert.Equal(t, "No expiry date set", info.Details.Expiry)
	assert.True(t, strings.HasPrefix(info.Details.Randomart, "+-----[EdDSA]-----+\n"), info.Details.Randomart)
	assert.True(t, strings.HasSuffix(info.Details.Randomart, "+-----[SHA1]------+"), info.Details.Randomart)
}

func TestParseMatchesCaseInsensitively(t *testing.T) {
	key := testutil.NewKey(t, "Joe Doe", "joe.doe@example.org")

	info, err := Parse(key.Binary, domain.MustParseUserID("Joe.Doe@Example.ORG"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, key.Fingerprint(), info.Fingerprint)
}

func TestParseNoKeyFound(t *testing.T) {
	key := testutil.NewKey(t, "Someone Else", "someone@example.org")

	_, err := Parse(key.Binary, domain.MustParseUserID("joe.doe@example.org"), time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoKeyFound))
	assert.False(t, errors.Is(err, ErrMalformedKey))

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	diag := perr.Diagnostic()
	assert.Equal(t, domain.CodeNoKeyFound, diag.Code)
	assert.Equal(t, MessageNoKeyFound, diag.Message)
	require.NotEmpty(t, diag.Causes)
	assert.Contains(t, diag.Causes[0], key.Fingerprint())
}

func TestParseSameLocalPartOtherDomain(t *testing.T) {
	key := testutil.NewKey(t, "Joe Doe", "joe.doe@example.com")

	_, err := Parse(key.Binary, domain.MustParseUserID("joe.doe@example.org"), time.Now())
	assert.ErrorIs(t, err, ErrNoKeyFound)
}

func TestParseSelectsBoundCertificate(t *testing.T) {
	other := testutil.NewKey(t, "Other", "other@example.org")
	joe := testutil.NewKey(t, "Joe Doe", "joe.doe@example.org")
	body := testutil.Serialize(t, other.Entity, joe.Entity)

	info, err := Parse(body, domain.MustParseUserID("joe.doe@example.org"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, joe.Fingerprint(), info.Fingerprint)
}

func TestParsePrefersUnrevokedCertificate(t *testing.T) {
	revoked := testutil.NewKey(t, "Joe Doe", "joe.doe@example.org", testutil.Revoked())
	current := testutil.NewKey(t, "Joe Doe", "joe.doe@example.org")
	id := domain.MustParseUserID("joe.doe@example.org")

	info, err := Parse(testutil.Serialize(t, revoked.Entity, current.Entity), id, time.Now())
	require.NoError(t, err)
	assert.Equal(t, current.Fingerprint(), info.Fingerprint)
	assert.Equal(t, domain.RevocationNotRevoked, info.RevocationStatus)
}

func TestParseRevokedKey(t *testing.T) {
	key := testutil.NewKey(t, "Joe Doe", "joe.doe@example.org", testutil.Revoked())

	info, err := Parse(key.Binary, domain.MustParseUserID("joe.doe@example.org"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, key.Fingerprint(), info.Fingerprint)
	assert.Equal(t, domain.RevocationRevoked, info.RevocationStatus)
}

func TestRevocationStatus(t *testing.T) {
	revoked := testutil.NewKey(t, "Joe Doe", "joe.doe@example.org", testutil.Revoked())
	stranger := testutil.NewKey(t, "Other", "other@example.org", testutil.Revoked())
	valid := revoked.Entity.Revocations[0]

	unsupportedHash := *valid
	unsupportedHash.Hash = crypto.Hash(0)

	tests := []struct {
		name        string
		revocations []*packet.Signature
		want        domain.RevocationStatus
	}{
		{name: "no revocation signatures", want: domain.RevocationNotRevoked},
		{name: "verified revocation", revocations: []*packet.Signature{valid}, want: domain.RevocationRevoked},
		{name: "unavailable hash", revocations: []*packet.Signature{&unsupportedHash}, want: domain.RevocationUnknown},
		{
			name:        "signature by another key",
			revocations: []*packet.Signature{stranger.Entity.Revocations[0]},
			want:        domain.RevocationNotRevoked,
		},
		{
			name:        "unverifiable then verified",
			revocations: []*packet.Signature{&unsupportedHash, valid},
			want:        domain.RevocationRevoked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entity := &openpgp.Entity{PrimaryKey: revoked.Entity.PrimaryKey, Revocations: tt.revocations}

			assert.Equal(t, tt.want, revocationStatus(entity))
		})
	}
}

func TestParseExpiry(t *testing.T) {
	id := domain.MustParseUserID("joe.doe@example.org")
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	key := testutil.NewKey(t, "Joe Doe", id.String(),
		testutil.CreatedAt(created), testutil.ExpiresAfter(time.Hour))

	t.Run("expired", func(t *testing.T) {
		info, err := Parse(key.Binary, id, created.Add(2*time.Hour))
		require.NoError(t, err)
		require.NotNil(t, info.Details.ExpiresAt)
		assert.True(t, info.Details.ExpiresAt.Equal(created.Add(time.Hour)))
		assert.Equal(t, "Expired on 2024-01-02 04:04:05 UTC", info.Details.Expiry)
	})

	t.Run("still valid", func(t *testing.T) {
		info, err := Parse(key.Binary, id, created.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, "Expires on 2024-01-02 04:04:05 UTC", info.Details.Expiry)
		assert.True(t, info.Details.CreatedAt.Equal(created))
	})
}

func TestParseMalformed(t *testing.T) {
	id := domain.MustParseUserID("joe.doe@example.org")
	key := testutil.NewKey(t, "Joe Doe", id.String())

	var armored bytes.Buffer
	w, err := armor.Encode(&armored, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	_, err = w.Write(key.Binary)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	tests := []struct {
		name  string
		body  []byte
		cause string
	}{
		{name: "plain text", body: []byte("Hello, World!")},
		{name: "empty body", body: nil, cause: "response body is empty"},
		{name: "whitespace only", body: []byte("\n\t \n"), cause: "response body is empty"},
		{name: "armored", body: armored.Bytes(), cause: errArmored.Error()},
		{name: "truncated", body: key.Binary[:len(key.Binary)-1]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.body, id, time.Now())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedKey)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			diag := perr.Diagnostic()
			assert.Equal(t, domain.CodeMalformedKey, diag.Code)
			assert.Equal(t, MessageMalformedKey, diag.Message)
			if tt.cause != "" {
				assert.Equal(t, []string{tt.cause}, diag.Causes)
			}
		})
	}
}

func TestExpiryStatus(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(24 * time.Hour)

	assert.Equal(t, "No expiry date set", expiryStatus(nil, now))
	assert.Equal(t, "Expired on 2025-05-31 23:59:59 UTC", expiryStatus(&past, now))
	assert.Equal(t, "Expires on 2025-06-02 00:00:00 UTC", expiryStatus(&future, now))
}

func TestFingerprintDigest(t *testing.T) {
	assert.Equal(t, "SHA1", fingerprintDigest(4))
	assert.Equal(t, "SHA256", fingerprintDigest(6))
	assert.Equal(t, "MD5", fingerprintDigest(3))
	assert.Equal(t, "NONE", fingerprintDigest(9))
}
