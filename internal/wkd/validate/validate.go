// Package validate applies the WKD hygiene rules to a fetched key response.
package validate

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"wkd-tester/internal/wkd/domain"
	"wkd-tester/internal/wkd/fetch"
)

// Diagnostic messages.
const (
	MessageStatusNot200       = "Status code is not 200"
	MessageContentType        = "Content-Type header is not set to 'application/octet-stream'. This may cause issues with parsing"
	MessageAccessControl      = "Access-Control-Allow-Origin header is not set to '*'. This may cause issues with CORS"
	MessageHeadMethodFailed   = "Failed existence check with HEAD method"
	MessageDirectoryIndex     = "Well-Known path shouldn't have an index"
	MessagePolicyFileNotFound = "Policy file not found"
)

const (
	expectedContentType = "application/octet-stream"
	expectedAllowOrigin = "*"
	headerAllowOrigin   = "Access-Control-Allow-Origin"
)

// Names of passed checks.
const (
	CheckStatus         = "StatusIs200"
	CheckContentType    = "ContentTypeIsOctetStream"
	CheckAllowOrigin    = "AccessControlAllowOriginIsStar"
	CheckHeadMethod     = "HeadMethodSucceeds"
	CheckDirectoryIndex = "NoDirectoryIndex"
	CheckPolicyFile     = "PolicyFilePresent"
)

// Result is what the validator concluded about one response.
type Result struct {
	Errors   []domain.Diagnostic
	Warnings []domain.Diagnostic
	Passed   []string
	// Parse is false when the body must not be handed to the key parser.
	Parse bool
}

func (r *Result) warn(code domain.Code, message string, causes ...string) {
	r.Warnings = append(r.Warnings, domain.NewDiagnostic(code, message, causes...))
}

func (r *Result) pass(check string) {
	r.Passed = append(r.Passed, check)
}

// Validator checks responses. With probes enabled it issues extra requests
// through its Fetcher for the HEAD, directory index and policy file checks.
type Validator struct {
	fetcher fetch.Fetcher
	probes  bool
	logger  *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithProbes enables the checks that issue extra requests.
func WithProbes(fetcher fetch.Fetcher) Option {
	return func(v *Validator) {
		v.fetcher = fetcher
		v.probes = fetcher != nil
	}
}

// WithLogger sets the validator's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// New builds a Validator. Without WithProbes only the response itself is checked.
func New(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate evaluates every rule against resp. A status other than 200 is an
// error and stops all further checks.
func (v *Validator) Validate(ctx context.Context, uri domain.URI, resp *fetch.Response) Result {
	var res Result

	if resp.StatusCode != http.StatusOK {
		res.Errors = append(res.Errors, domain.NewDiagnostic(domain.CodeHTTPStatus, MessageStatusNot200,
			"status "+strconv.Itoa(resp.StatusCode)))
		return res
	}
	res.pass(CheckStatus)
	res.Parse = true

	if values := resp.Header.Values("Content-Type"); len(values) > 0 && values[0] != expectedContentType {
		res.warn(domain.CodeContentType, MessageContentType, "Content-Type: "+values[0])
	} else {
		res.pass(CheckContentType)
	}

	if origin := resp.Header.Get(headerAllowOrigin); origin != expectedAllowOrigin {
		if origin == "" {
			res.warn(domain.CodeAccessControlAllowOrigin, MessageAccessControl, "header is absent")
		} else {
			res.warn(domain.CodeAccessControlAllowOrigin, MessageAccessControl, headerAllowOrigin+": "+origin)
		}
	} else {
		res.pass(CheckAllowOrigin)
	}

	if v.probes {
		v.probe(ctx, uri, &res)
	}

	return res
}

func (v *Validator) probe(ctx context.Context, uri domain.URI, res *Result) {
	if status, err := v.status(ctx, fetch.Head(uri.String())); err != nil || status != http.StatusOK {
		res.warn(domain.CodeHeadMethod, MessageHeadMethodFailed, probeCause(status, err)...)
	} else {
		res.pass(CheckHeadMethod)
	}

	if status, err := v.status(ctx, fetch.Get(uri.IndexURL())); err == nil && status == http.StatusOK {
		res.warn(domain.CodeDirectoryIndex, MessageDirectoryIndex, uri.IndexURL()+" returned 200")
	} else {
		res.pass(CheckDirectoryIndex)
	}

	policy := uri.PolicyURL()
	if policy == "" {
		res.warn(domain.CodePolicyFile, MessagePolicyFileNotFound, "no policy location for "+uri.String())
		return
	}
	if status, err := v.status(ctx, fetch.Get(policy)); err != nil || status != http.StatusOK {
		res.warn(domain.CodePolicyFile, MessagePolicyFileNotFound, probeCause(status, err)...)
	} else {
		res.pass(CheckPolicyFile)
	}
}

func (v *Validator) status(ctx context.Context, req fetch.Request) (int, error) {
	resp, err := v.fetcher.Fetch(ctx, req)
	if err != nil {
		if v.logger != nil {
			v.logger.DebugContext(ctx, "probe failed", "http_method", req.Method, "url", req.URL, "error", err)
		}
		return 0, err
	}
	return resp.StatusCode, nil
}

func probeCause(status int, err error) []string {
	if err != nil {
		return domain.CausesOf(err)
	}
	return []string{"status " + strconv.Itoa(status)}
}
