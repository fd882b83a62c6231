package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"

	"wkd-tester/internal/wkd/domain"
)

// Kind is the normalized transport failure taxonomy.
type Kind string

const (
	// KindDNS indicates the host name could not be resolved
	KindDNS Kind = "Dns"

	// KindConnect indicates the TCP connection was refused or reset
	KindConnect Kind = "Connect"

	// KindTLS indicates the TLS handshake or certificate verification failed
	KindTLS Kind = "Tls"

	// KindTimeout indicates the request exceeded its deadline
	KindTimeout Kind = "Timeout"

	// KindOther covers every other I/O failure
	KindOther Kind = "Other"
)

// Code returns the diagnostic code reported for this kind.
func (k Kind) Code() domain.Code {
	switch k {
	case KindDNS:
		return domain.CodeTransportDNS
	case KindConnect:
		return domain.CodeTransportConnect
	case KindTLS:
		return domain.CodeTransportTLS
	case KindTimeout:
		return domain.CodeTransportTimeout
	default:
		return domain.CodeTransportOther
	}
}

// Messages used for transport diagnostics.
const (
	MessageFetchFailed = "Failed to fetch given URL"
	MessageInvalidURL  = "WKD URI provided is not a valid URL"
	MessageBodyFailed  = "Error whilst extracting body from response"
)

// TransportError wraps a failure that prevented an HTTP response.
type TransportError struct {
	Kind    Kind
	URL     string
	Message string
	Err     error
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s [%s]: %s: %v", e.URL, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("fetch %s [%s]: %s", e.URL, e.Kind, e.Message)
}

// Unwrap supports error unwrapping
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Diagnostic converts the failure into a report entry whose causes start at
// the wrapped error.
func (e *TransportError) Diagnostic() domain.Diagnostic {
	return domain.NewDiagnostic(e.Kind.Code(), e.Message, domain.CausesOf(e.Err)...)
}

// NewTransportError classifies err and wraps it.
func NewTransportError(url, message string, err error) *TransportError {
	return &TransportError{
		Kind:    Classify(err),
		URL:     url,
		Message: message,
		Err:     err,
	}
}

// KindOf extracts the transport kind from an error, defaulting to KindOther.
func KindOf(err error) Kind {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindOther
}

// Classify maps a client error onto Kind. DNS is checked first because
// resolver errors may also report a timeout.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindDNS
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if isTLSError(err) {
		return KindTLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindConnect
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return KindConnect
	}

	return KindOther
}

func isTLSError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		authorityErr x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	return errors.As(err, &verifyErr) ||
		errors.As(err, &recordErr) ||
		errors.As(err, &alertErr) ||
		errors.As(err, &authorityErr) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr)
}
