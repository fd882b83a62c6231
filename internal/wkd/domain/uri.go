package domain

import (
	"net/url"
	"strings"
)

// Method identifies one of the two WKD lookup variants.
type Method string

const (
	// MethodDirect looks the key up on the bare domain.
	MethodDirect Method = "direct"
	// MethodAdvanced looks the key up on the openpgpkey sub-domain.
	MethodAdvanced Method = "advanced"
)

// Methods lists every method in the order they are reported.
func Methods() []Method {
	return []Method{MethodDirect, MethodAdvanced}
}

// String returns the method name.
func (m Method) String() string {
	return string(m)
}

// Title returns the capitalized method name used in human-facing output.
func (m Method) Title() string {
	switch m {
	case MethodDirect:
		return "Direct"
	case MethodAdvanced:
		return "Advanced"
	default:
		return string(m)
	}
}

const wellKnownPath = "/.well-known/openpgpkey/"

// URI is a fully formed lookup URI. It is never modified after BuildURIs.
type URI string

// String returns the URI.
func (u URI) String() string {
	return string(u)
}

// IndexURL returns the hu/ directory that holds the key.
func (u URI) IndexURL() string {
	s := u.withoutQuery()
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[:i+1]
	}
	return s
}

// PolicyURL returns the policy file that sits next to the hu/ directory.
// It returns "" when the URI has no hu/ segment.
func (u URI) PolicyURL() string {
	s := u.withoutQuery()
	i := strings.LastIndex(s, "/hu/")
	if i < 0 {
		return ""
	}
	return s[:i+1] + "policy"
}

func (u URI) withoutQuery() string {
	s := string(u)
	if i := strings.IndexByte(s, '?'); i >= 0 {
		return s[:i]
	}
	return s
}

// URIs holds the lookup URI of each method for one UserID.
type URIs struct {
	Direct   URI
	Advanced URI
}

// For returns the URI of method m.
func (u URIs) For(m Method) URI {
	if m == MethodAdvanced {
		return u.Advanced
	}
	return u.Direct
}

// escapeQueryComponent percent-encodes s for a query value, writing spaces as
// %20 rather than the form-encoded '+'.
func escapeQueryComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// BuildURIs renders the Direct and Advanced URIs. Host names are
// case-insensitive, so the domain is lowercased; the l= parameter keeps the
// local part exactly as given.
func BuildURIs(id UserID, digest Digest) URIs {
	domain := FoldASCII(id.Domain())
	query := "?l=" + escapeQueryComponent(id.OriginalLocal())

	return URIs{
		Direct: URI("https://" + domain + wellKnownPath + "hu/" + digest.String() + query),
		Advanced: URI("https://openpgpkey." + domain + wellKnownPath + domain + "/hu/" +
			digest.String() + query),
	}
}
