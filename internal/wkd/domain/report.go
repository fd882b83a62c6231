package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// RevocationStatus reports whether a key carries a verified revocation.
type RevocationStatus string

const (
	RevocationNotRevoked RevocationStatus = "NotRevoked"
	RevocationRevoked    RevocationStatus = "Revoked"
	RevocationUnknown    RevocationStatus = "Unknown"
)

// ParseRevocationStatus validates a serialized revocation status.
func ParseRevocationStatus(s string) (RevocationStatus, error) {
	switch RevocationStatus(s) {
	case RevocationNotRevoked, RevocationRevoked, RevocationUnknown:
		return RevocationStatus(s), nil
	default:
		return "", fmt.Errorf("unknown revocation status %q", s)
	}
}

// UnmarshalJSON rejects statuses outside the enumeration.
func (r *RevocationStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	status, err := ParseRevocationStatus(s)
	if err != nil {
		return err
	}
	*r = status
	return nil
}

// KeyDetails is presentational information about a resolved key. It is shown
// by the CLI and the HTML page and is not part of the JSON report.
type KeyDetails struct {
	Algorithm string
	CreatedAt time.Time
	ExpiresAt *time.Time
	Expiry    string
	Randomart string
	UserIDs   []string
}

// KeyInfo is the key resolved for one method.
type KeyInfo struct {
	Fingerprint      string           `json:"fingerprint"`
	RevocationStatus RevocationStatus `json:"revocation_status"`
	Details          *KeyDetails      `json:"-"`
}

// MethodResult is the outcome of one method's pipeline.
type MethodResult struct {
	URI      URI          `json:"uri"`
	Key      *KeyInfo     `json:"key"`
	Errors   []Diagnostic `json:"errors"`
	Warnings []Diagnostic `json:"warnings"`
	// Passed names the hygiene checks that succeeded.
	Passed []string `json:"-"`
}

// NewMethodResult builds a MethodResult whose lists are never nil, so they
// always serialize as arrays.
func NewMethodResult(uri URI, key *KeyInfo, errs, warnings []Diagnostic, passed []string) MethodResult {
	if errs == nil {
		errs = []Diagnostic{}
	}
	if warnings == nil {
		warnings = []Diagnostic{}
	}
	return MethodResult{
		URI:      uri,
		Key:      key,
		Errors:   errs,
		Warnings: warnings,
		Passed:   passed,
	}
}

// OK reports whether a key was resolved without errors.
func (m MethodResult) OK() bool {
	return m.Key != nil && len(m.Errors) == 0
}

// Report is the outcome of a lookup across both methods.
type Report struct {
	UserID   string       `json:"user_id"`
	Direct   MethodResult `json:"direct_method"`
	Advanced MethodResult `json:"advanced_method"`
}

// NewReport joins the two method results.
func NewReport(userID string, direct, advanced MethodResult) *Report {
	return &Report{
		UserID:   userID,
		Direct:   direct,
		Advanced: advanced,
	}
}

// Method returns the result of method m.
func (r *Report) Method(m Method) MethodResult {
	if m == MethodAdvanced {
		return r.Advanced
	}
	return r.Direct
}

// ParseReport decodes a report in the JSON shape produced by json.Marshal.
func ParseReport(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}
