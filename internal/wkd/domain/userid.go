package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidUserID indicates the user identifier is not of the form local@domain.
var ErrInvalidUserID = errors.New("invalid user id")

// UserID is a validated WKD user identifier.
//
// Invariants:
//   - Exactly one '@' separated the local part and domain in the source string
//   - Domain is non-empty
//   - local is original with ASCII A-Z lowercased and nothing else changed
type UserID struct {
	original string
	local    string
	domain   string
}

// ParseUserID splits raw on its '@' and normalizes the local part.
func ParseUserID(raw string) (UserID, error) {
	at := strings.IndexByte(raw, '@')
	if at < 0 {
		return UserID{}, fmt.Errorf("%w: %q is missing '@'", ErrInvalidUserID, raw)
	}

	local, domain := raw[:at], raw[at+1:]
	if domain == "" {
		return UserID{}, fmt.Errorf("%w: %q has an empty domain", ErrInvalidUserID, raw)
	}
	if strings.IndexByte(domain, '@') >= 0 {
		return UserID{}, fmt.Errorf("%w: %q contains more than one '@'", ErrInvalidUserID, raw)
	}

	return UserID{
		original: local,
		local:    NormalizeLocalPart(local),
		domain:   domain,
	}, nil
}

// MustParseUserID parses raw, panicking if invalid.
// Use only in tests or when the value is known to be valid.
func MustParseUserID(raw string) UserID {
	id, err := ParseUserID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// Local returns the normalized local part used for hashing.
func (u UserID) Local() string {
	return u.local
}

// OriginalLocal returns the local part exactly as it was given.
func (u UserID) OriginalLocal() string {
	return u.original
}

// Domain returns the domain exactly as it was given.
func (u UserID) Domain() string {
	return u.domain
}

// String reassembles the identifier as it was given.
func (u UserID) String() string {
	return u.original + "@" + u.domain
}

// IsZero reports whether u is the zero value.
func (u UserID) IsZero() bool {
	return u.domain == ""
}

// NormalizeLocalPart lowercases ASCII letters and leaves every other byte alone.
func NormalizeLocalPart(local string) string {
	return FoldASCII(local)
}

// FoldASCII maps A-Z to a-z. Multi-byte UTF-8 sequences never contain bytes
// in that range, so non-ASCII code points pass through untouched.
func FoldASCII(s string) string {
	upper := false
	for i := 0; i < len(s); i++ {
		if 'A' <= s[i] && s[i] <= 'Z' {
			upper = true
			break
		}
	}
	if !upper {
		return s
	}

	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
