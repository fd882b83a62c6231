// Package keys parses the OpenPGP certificates served by a WKD endpoint.
package keys

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	pgperrors "github.com/ProtonMail/go-crypto/openpgp/errors"
	"github.com/ProtonMail/go-crypto/openpgp/packet"

	"wkd-tester/internal/wkd/domain"
)

// Sentinel errors matched by errors.Is on a *ParseError.
var (
	ErrMalformedKey = errors.New("malformed key")
	ErrNoKeyFound   = errors.New("no key found")
)

// Diagnostic messages.
const (
	MessageMalformedKey = "Failed to parse key"
	MessageNoKeyFound   = "No key found for the requested user ID"
)

var errArmored = errors.New("body is ASCII armored; WKD serves the binary transferable format")

// ParseError is a key parsing failure that maps onto a report diagnostic.
type ParseError struct {
	Code    domain.Code
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap supports error unwrapping
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrMalformedKey and ErrNoKeyFound.
func (e *ParseError) Is(target error) bool {
	switch target {
	case ErrMalformedKey:
		return e.Code == domain.CodeMalformedKey
	case ErrNoKeyFound:
		return e.Code == domain.CodeNoKeyFound
	}
	return false
}

// Diagnostic converts the failure into a report entry.
func (e *ParseError) Diagnostic() domain.Diagnostic {
	return domain.NewDiagnostic(e.Code, e.Message, domain.CausesOf(e.Err)...)
}

func malformed(err error) *ParseError {
	return &ParseError{Code: domain.CodeMalformedKey, Message: MessageMalformedKey, Err: err}
}

// Parse reads binary OpenPGP key material and returns the certificate bound
// to id. now decides whether an expiry date lies in the past.
func Parse(body []byte, id domain.UserID, now time.Time) (*domain.KeyInfo, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, malformed(errors.New("response body is empty"))
	}
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("-----BEGIN PGP")) {
		return nil, malformed(errArmored)
	}

	entities, err := openpgp.ReadKeyRing(bytes.NewReader(body))
	if err != nil {
		return nil, malformed(err)
	}
	if len(entities) == 0 {
		return nil, malformed(errors.New("no OpenPGP certificates in response body"))
	}

	entity := selectEntity(entities, id)
	if entity == nil {
		return nil, &ParseError{Code: domain.CodeNoKeyFound, Message: MessageNoKeyFound, Err: noMatch(entities, id)}
	}

	return keyInfo(entity, now), nil
}

// selectEntity prefers the first matching certificate that is not revoked.
func selectEntity(entities openpgp.EntityList, id domain.UserID) *openpgp.Entity {
	var fallback *openpgp.Entity
	for _, e := range entities {
		if !boundTo(e, id) {
			continue
		}
		if revocationStatus(e) == domain.RevocationNotRevoked {
			return e
		}
		if fallback == nil {
			fallback = e
		}
	}
	return fallback
}

func boundTo(e *openpgp.Entity, id domain.UserID) bool {
	for _, ident := range e.Identities {
		if matchesAddress(identityAddress(ident), id) {
			return true
		}
	}
	return false
}

// matchesAddress compares the local part case-insensitively and the domain
// as a host name.
func matchesAddress(addr string, id domain.UserID) bool {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return false
	}
	return domain.FoldASCII(addr[:at]) == id.Local() &&
		domain.FoldASCII(addr[at+1:]) == domain.FoldASCII(id.Domain())
}

// identityAddress extracts the email of a user ID packet. Bare addresses, with
// or without angle brackets, are accepted when no name part is present.
func identityAddress(ident *openpgp.Identity) string {
	if ident.UserId != nil && ident.UserId.Email != "" {
		return ident.UserId.Email
	}
	raw := ident.Name
	if ident.UserId != nil {
		raw = ident.UserId.Id
	}
	raw = strings.TrimSpace(raw)
	return strings.TrimSuffix(strings.TrimPrefix(raw, "<"), ">")
}

func noMatch(entities openpgp.EntityList, id domain.UserID) error {
	parts := make([]string, 0, len(entities))
	for _, e := range entities {
		parts = append(parts, fmt.Sprintf("%s (%s)", fingerprint(e.PrimaryKey), strings.Join(userIDs(e), ", ")))
	}
	return fmt.Errorf("none of %d certificate(s) carry a user ID for %s: %s",
		len(entities), id.String(), strings.Join(parts, "; "))
}

// revocationStatus checks every key revocation signature against the primary
// key. A signature the library cannot verify makes the status Unknown.
func revocationStatus(e *openpgp.Entity) domain.RevocationStatus {
	status := domain.RevocationNotRevoked
	for _, sig := range e.Revocations {
		err := e.PrimaryKey.VerifyRevocationSignature(sig)
		if err == nil {
			return domain.RevocationRevoked
		}
		var unsupported pgperrors.UnsupportedError
		if errors.As(err, &unsupported) {
			status = domain.RevocationUnknown
		}
	}
	return status
}

func keyInfo(e *openpgp.Entity, now time.Time) *domain.KeyInfo {
	pk := e.PrimaryKey
	expiresAt := expiry(e)

	return &domain.KeyInfo{
		Fingerprint:      fingerprint(pk),
		RevocationStatus: revocationStatus(e),
		Details: &domain.KeyDetails{
			Algorithm: algorithmName(pk),
			CreatedAt: pk.CreationTime,
			ExpiresAt: expiresAt,
			Expiry:    expiryStatus(expiresAt, now),
			Randomart: Randomart(pk.Fingerprint[:], algorithmFamily(pk.PubKeyAlgo), fingerprintDigest(pk.Version)),
			UserIDs:   userIDs(e),
		},
	}
}

func fingerprint(pk *packet.PublicKey) string {
	return fmt.Sprintf("%X", pk.Fingerprint[:])
}

func userIDs(e *openpgp.Entity) []string {
	ids := make([]string, 0, len(e.Identities))
	for name := range e.Identities {
		ids = append(ids, name)
	}
	slices.Sort(ids)
	return ids
}

// expiry returns the latest expiry declared by any user ID self-signature.
func expiry(e *openpgp.Entity) *time.Time {
	var lifetime uint32
	for _, ident := range e.Identities {
		sig := ident.SelfSignature
		if sig == nil || sig.KeyLifetimeSecs == nil {
			continue
		}
		lifetime = max(lifetime, *sig.KeyLifetimeSecs)
	}
	if lifetime == 0 {
		return nil
	}
	at := e.PrimaryKey.CreationTime.Add(time.Duration(lifetime) * time.Second).UTC()
	return &at
}

func expiryStatus(expiresAt *time.Time, now time.Time) string {
	if expiresAt == nil {
		return "No expiry date set"
	}
	formatted := expiresAt.UTC().Format("2006-01-02 15:04:05 UTC")
	if expiresAt.Before(now) {
		return "Expired on " + formatted
	}
	return "Expires on " + formatted
}

// algorithmName is the family plus key size, e.g. "RSA 4096".
func algorithmName(pk *packet.PublicKey) string {
	name := algorithmFamily(pk.PubKeyAlgo)
	if bits, err := pk.BitLength(); err == nil && bits > 0 {
		return fmt.Sprintf("%s %d", name, bits)
	}
	return name
}

// algorithmFamily is the bare algorithm name used in the randomart header.
func algorithmFamily(algo packet.PublicKeyAlgorithm) string {
	switch algo {
	case packet.PubKeyAlgoRSA, packet.PubKeyAlgoRSAEncryptOnly, packet.PubKeyAlgoRSASignOnly:
		return "RSA"
	case packet.PubKeyAlgoDSA:
		return "DSA"
	case packet.PubKeyAlgoElGamal:
		return "ElGamal"
	case packet.PubKeyAlgoECDSA:
		return "ECDSA"
	case packet.PubKeyAlgoECDH:
		return "ECDH"
	case packet.PubKeyAlgoEdDSA:
		return "EdDSA"
	case packet.PubKeyAlgoEd25519:
		return "Ed25519"
	case packet.PubKeyAlgoEd448:
		return "Ed448"
	case packet.PubKeyAlgoX25519:
		return "X25519"
	case packet.PubKeyAlgoX448:
		return "X448"
	default:
		return fmt.Sprintf("Unknown(%d)", algo)
	}
}

// fingerprintDigest names the hash behind a fingerprint of the given key version.
func fingerprintDigest(version int) string {
	switch version {
	case 2, 3:
		return "MD5"
	case 4:
		return "SHA1"
	case 5, 6:
		return "SHA256"
	default:
		return "NONE"
	}
}
