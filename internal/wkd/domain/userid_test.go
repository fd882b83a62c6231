package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseUserID(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		wantLocal     string
		wantOriginal  string
		wantDomain    string
		expectInvalid bool
	}{
		{
			name:         "lowercases ascii local part",
			input:        "Joe.Doe@example.org",
			wantLocal:    "joe.doe",
			wantOriginal: "Joe.Doe",
			wantDomain:   "example.org",
		},
		{
			name:         "domain passes through unchanged",
			input:        "Joe.Doe@Example.ORG",
			wantLocal:    "joe.doe",
			wantOriginal: "Joe.Doe",
			wantDomain:   "Example.ORG",
		},
		{
			name:         "non-ascii code points are not folded",
			input:        "Grüße.Jürgen@example.org",
			wantLocal:    "grüße.jürgen",
			wantOriginal: "Grüße.Jürgen",
			wantDomain:   "example.org",
		},
		{
			name:         "upper-case non-ascii stays upper-case",
			input:        "ÄBC@example.org",
			wantLocal:    "Äbc",
			wantOriginal: "ÄBC",
			wantDomain:   "example.org",
		},
		{
			name:         "empty local part is accepted",
			input:        "@example.org",
			wantLocal:    "",
			wantOriginal: "",
			wantDomain:   "example.org",
		},
		{
			name:          "missing at sign",
			input:         "joe.doe.example.org",
			expectInvalid: true,
		},
		{
			name:          "empty domain",
			input:         "joe.doe@",
			expectInvalid: true,
		},
		{
			name:          "second at sign",
			input:         "joe@doe@example.org",
			expectInvalid: true,
		},
		{
			name:          "empty input",
			input:         "",
			expectInvalid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseUserID(tt.input)
			if tt.expectInvalid {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidUserID)
				assert.True(t, id.IsZero())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantLocal, id.Local())
			assert.Equal(t, tt.wantOriginal, id.OriginalLocal())
			assert.Equal(t, tt.wantDomain, id.Domain())
			assert.Equal(t, tt.input, id.String())
		})
	}
}

func TestMustParseUserIDPanicsOnInvalidInput(t *testing.T) {
	assert.Panics(t, func() { MustParseUserID("nobody") })
	assert.NotPanics(t, func() { MustParseUserID("somebody@example.org") })
}

func TestNormalizeLocalPartIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		local := rapid.StringMatching(`[ -~]{0,64}`).Draw(t, "local")

		once := NormalizeLocalPart(local)
		twice := NormalizeLocalPart(once)

		if once != twice {
			t.Fatalf("normalize(%q) = %q but normalize(normalize) = %q", local, once, twice)
		}
		if strings.ToLower(local) != once {
			t.Fatalf("ascii input %q normalized to %q, want %q", local, once, strings.ToLower(local))
		}
	})
}

func TestNormalizeLocalPartOnlyTouchesASCII(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		local := rapid.String().Draw(t, "local")
		normalized := NormalizeLocalPart(local)

		if len(normalized) != len(local) {
			t.Fatalf("length changed from %d to %d", len(local), len(normalized))
		}
		for i := 0; i < len(local); i++ {
			c := local[i]
			if 'A' <= c && c <= 'Z' {
				continue
			}
			if normalized[i] != c {
				t.Fatalf("byte %d changed from %#x to %#x", i, c, normalized[i])
			}
		}
	})
}
