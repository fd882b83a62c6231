package domain

import (
	"errors"
	"strings"
)

// Code names a diagnostic. It is the "name" field of the JSON report.
type Code string

const (
	CodeTransportDNS     Code = "TransportError.Dns"
	CodeTransportConnect Code = "TransportError.Connect"
	CodeTransportTLS     Code = "TransportError.Tls"
	CodeTransportTimeout Code = "TransportError.Timeout"
	CodeTransportOther   Code = "TransportError.Other"

	CodeHTTPStatus Code = "HttpStatusError"

	CodeContentType              Code = "HeaderHygieneWarning.ContentType"
	CodeAccessControlAllowOrigin Code = "HeaderHygieneWarning.AccessControlAllowOrigin"

	CodeHeadMethod     Code = "HygieneWarning.HeadMethod"
	CodeDirectoryIndex Code = "HygieneWarning.DirectoryIndex"
	CodePolicyFile     Code = "HygieneWarning.PolicyFile"

	CodeMalformedKey Code = "MalformedKey"
	CodeNoKeyFound   Code = "NoKeyFound"
)

// Diagnostic is a single error or warning. Whether it is an error or a
// warning is decided by the MethodResult list it is placed in.
type Diagnostic struct {
	Code    Code   `json:"name"`
	Message string `json:"message"`
	// Causes runs from the outermost wrapped error to the innermost.
	Causes []string `json:"-"`
}

// NewDiagnostic builds a Diagnostic with an optional cause chain.
func NewDiagnostic(code Code, message string, causes ...string) Diagnostic {
	return Diagnostic{Code: code, Message: message, Causes: causes}
}

// String renders the message followed by each cause on its own line.
func (d Diagnostic) String() string {
	if len(d.Causes) == 0 {
		return d.Message
	}
	var b strings.Builder
	b.WriteString(d.Message)
	for _, cause := range d.Causes {
		b.WriteString("\n  caused by: ")
		b.WriteString(cause)
	}
	return b.String()
}

// CausesOf flattens an error chain into messages, outermost first. Layers
// whose message repeats the previous one are skipped. For joined errors the
// last branch is followed.
func CausesOf(err error) []string {
	var causes []string
	for err != nil {
		msg := err.Error()
		if len(causes) == 0 || causes[len(causes)-1] != msg {
			causes = append(causes, msg)
		}
		err = unwrapOne(err)
	}
	return causes
}

func unwrapOne(err error) error {
	if next := errors.Unwrap(err); next != nil {
		return next
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		if errs := joined.Unwrap(); len(errs) > 0 {
			return errs[len(errs)-1]
		}
	}
	return nil
}
