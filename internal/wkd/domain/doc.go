// Package domain contains the pure model of a Web Key Directory lookup.
//
// # Lookup Pipeline
//
// A lookup takes a user identifier (an email address) through:
//
//	ParseUserID -> HashLocalPart -> BuildURIs -> fetch -> validate -> parse key -> Report
//
// The first three steps live here and are pure. Fetching, validation and key
// parsing are performed by sibling packages and report back through the types
// in this package.
//
// # Types
//
//   - UserID: validated local part and domain, with the ASCII-lowercased local part
//   - Digest: z-base-32 rendering of the SHA-1 of the lowercased local part
//   - URIs: the Direct and Advanced lookup URIs for a UserID
//   - Diagnostic: a coded error or warning with an outermost-to-innermost cause chain
//   - KeyInfo, MethodResult, Report: the lookup outcome
//
// Domain Purity: this package performs no I/O, takes no context.Context and
// never reads the clock.
package domain
