package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"wkd-tester/internal/wkd/domain"
	"wkd-tester/internal/wkd/fetch"
	"wkd-tester/internal/wkd/fetch/mocks"
	"wkd-tester/internal/wkd/metrics"
	"wkd-tester/internal/wkd/validate"
	"wkd-tester/pkg/testutil"
)

const (
	joeDoe      = "Joe.Doe@example.org"
	directURI   = "https://example.org/.well-known/openpgpkey/hu/iy9q119eutrkn8s1mk4r39qejnbu3n5q?l=Joe.Doe"
	advancedURI = "https://openpgpkey.example.org/.well-known/openpgpkey/example.org/hu/iy9q119eutrkn8s1mk4r39qejnbu3n5q?l=Joe.Doe"
)

// =============================================================================
// Lookup Service Test Suite
// =============================================================================

type LookupServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	fetcher *mocks.MockFetcher
	metrics *metrics.Metrics
	service *Service

	joe testutil.Key
}

func TestLookupServiceSuite(t *testing.T) {
	suite.Run(t, new(LookupServiceSuite))
}

func (s *LookupServiceSuite) SetupSuite() {
	s.joe = testutil.NewKey(s.T(), "Joe Doe", "joe.doe@example.org")
}

func (s *LookupServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.fetcher = mocks.NewMockFetcher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.fetcher, WithMetrics(s.metrics), WithProbes(false))
}

func (s *LookupServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

type reply func() (*fetch.Response, error)

// route answers every fetch from routes keyed by URL. HEAD requests are keyed
// as "HEAD <url>". Anything unrouted gets a 404.
func (s *LookupServiceSuite) route(routes map[string]reply) {
	s.fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req fetch.Request) (*fetch.Response, error) {
			key := req.URL
			if req.Method != http.MethodGet {
				key = req.Method + " " + req.URL
			}
			if r, ok := routes[key]; ok {
				return r()
			}
			return respond(http.StatusNotFound, nil), nil
		}).AnyTimes()
}

func respond(status int, body []byte) *fetch.Response {
	h := http.Header{}
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Access-Control-Allow-Origin", "*")
	return &fetch.Response{StatusCode: status, Header: h, Body: body}
}

func serve(status int, body []byte) reply {
	return func() (*fetch.Response, error) { return respond(status, body), nil }
}

func dnsFailure(url string) reply {
	return func() (*fetch.Response, error) {
		return nil, &fetch.TransportError{
			Kind:    fetch.KindDNS,
			URL:     url,
			Message: fetch.MessageFetchFailed,
			Err:     &net.DNSError{Err: "no such host", Name: "openpgpkey.example.org", IsNotFound: true},
		}
	}
}

func diagCodes(diags []domain.Diagnostic) []domain.Code {
	out := make([]domain.Code, 0, len(diags))
	for _, d := range diags {
		out = append(out, d.Code)
	}
	return out
}

// =============================================================================
// Input Validation Tests
// =============================================================================

func (s *LookupServiceSuite) TestInvalidUserIDFailsBeforeNetwork() {
	for _, raw := range []string{"joe.doe", "joe@", "a@b@c", ""} {
		report, err := s.service.Lookup(context.Background(), raw)
		s.Nil(report, raw)
		s.ErrorIs(err, domain.ErrInvalidUserID, raw)
	}
	s.Equal(4.0, promtest.ToFloat64(s.metrics.InvalidUserIDs))
}

// =============================================================================
// Method Independence Tests
// =============================================================================

func (s *LookupServiceSuite) TestJoeDoeWithoutAdvancedSubdomain() {
	s.route(map[string]reply{
		advancedURI: dnsFailure(advancedURI),
	})

	report, err := s.service.Lookup(context.Background(), joeDoe)
	s.Require().NoError(err)

	s.Equal(joeDoe, report.UserID)
	s.Equal(domain.URI(directURI), report.Direct.URI)
	s.Equal(domain.URI(advancedURI), report.Advanced.URI)

	s.Nil(report.Direct.Key)
	s.Equal([]domain.Code{domain.CodeHTTPStatus}, diagCodes(report.Direct.Errors))
	s.Equal("Status code is not 200", report.Direct.Errors[0].Message)

	s.Nil(report.Advanced.Key)
	s.Equal([]domain.Code{domain.CodeTransportDNS}, diagCodes(report.Advanced.Errors))
	s.Equal(fetch.MessageFetchFailed, report.Advanced.Errors[0].Message)
	s.Empty(report.Advanced.Warnings)
}

func (s *LookupServiceSuite) TestDNSFailureDoesNotBlockOtherMethod() {
	s.route(map[string]reply{
		directURI:   serve(http.StatusOK, s.joe.Binary),
		advancedURI: dnsFailure(advancedURI),
	})

	report, err := s.service.Lookup(context.Background(), joeDoe)
	s.Require().NoError(err)

	s.Require().NotNil(report.Direct.Key)
	s.Equal(s.joe.Fingerprint(), report.Direct.Key.Fingerprint)
	s.Empty(report.Direct.Errors)
	s.Equal([]domain.Code{domain.CodeTransportDNS}, diagCodes(report.Advanced.Errors))

	s.Equal(1.0, promtest.ToFloat64(s.metrics.MethodOutcomes.WithLabelValues("direct", metrics.OutcomeKey)))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.MethodOutcomes.WithLabelValues("advanced", metrics.OutcomeTransport)))
}

func (s *LookupServiceSuite) TestBothMethodsServeSameKey() {
	s.route(map[string]reply{
		directURI:   serve(http.StatusOK, s.joe.Binary),
		advancedURI: serve(http.StatusOK, s.joe.Binary),
	})

	report, err := s.service.Lookup(context.Background(), joeDoe)
	s.Require().NoError(err)

	s.Require().NotNil(report.Direct.Key)
	s.Require().NotNil(report.Advanced.Key)
	s.Equal(report.Direct.Key.Fingerprint, report.Advanced.Key.Fingerprint)
	s.Empty(report.Direct.Errors)
	s.Empty(report.Advanced.Errors)
	s.Equal(domain.RevocationNotRevoked, report.Direct.Key.RevocationStatus)
	s.Equal(domain.RevocationNotRevoked, report.Advanced.Key.RevocationStatus)
	s.True(report.Direct.OK())
	s.True(report.Advanced.OK())
}

// =============================================================================
// Pipeline Tests
// =============================================================================

func (s *LookupServiceSuite) TestNon200SkipsParsing() {
	s.route(map[string]reply{
		directURI:   serve(http.StatusInternalServerError, s.joe.Binary),
		advancedURI: serve(http.StatusMovedPermanently, []byte("not a key")),
	})

	report, err := s.service.Lookup(context.Background(), joeDoe)
	s.Require().NoError(err)

	for _, m := range domain.Methods() {
		res := report.Method(m)
		s.Nil(res.Key, m)
		s.Equal([]domain.Code{domain.CodeHTTPStatus}, diagCodes(res.Errors), m)
		s.Empty(res.Warnings, m)
	}
	s.Equal(1.0, promtest.ToFloat64(s.metrics.MethodOutcomes.WithLabelValues("direct", metrics.OutcomeStatus)))
}

func (s *LookupServiceSuite) TestKeyFailures() {
	other := testutil.NewKey(s.T(), "Someone", "someone@example.org")
	s.route(map[string]reply{
		directURI:   serve(http.StatusOK, []byte("Hello, World!")),
		advancedURI: serve(http.StatusOK, other.Binary),
	})

	report, err := s.service.Lookup(context.Background(), joeDoe)
	s.Require().NoError(err)

	s.Nil(report.Direct.Key)
	s.Equal([]domain.Code{domain.CodeMalformedKey}, diagCodes(report.Direct.Errors))
	s.Nil(report.Advanced.Key)
	s.Equal([]domain.Code{domain.CodeNoKeyFound}, diagCodes(report.Advanced.Errors))

	s.Equal(1.0, promtest.ToFloat64(s.metrics.MethodOutcomes.WithLabelValues("direct", metrics.OutcomeMalformedKey)))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.MethodOutcomes.WithLabelValues("advanced", metrics.OutcomeNoKeyFound)))
}

func (s *LookupServiceSuite) TestWarningsAccompanyKey() {
	s.route(map[string]reply{
		directURI: func() (*fetch.Response, error) {
			return &fetch.Response{
				StatusCode: http.StatusOK,
				Header:     http.Header{"Content-Type": []string{"application/pgp-keys"}},
				Body:       s.joe.Binary,
			}, nil
		},
	})

	report, err := s.service.Lookup(context.Background(), joeDoe)
	s.Require().NoError(err)

	s.Require().NotNil(report.Direct.Key)
	s.Empty(report.Direct.Errors)
	s.Equal([]domain.Code{domain.CodeContentType, domain.CodeAccessControlAllowOrigin}, diagCodes(report.Direct.Warnings))
}

func (s *LookupServiceSuite) TestUnclassifiedFetchErrorIsWrapped() {
	s.route(map[string]reply{
		directURI: func() (*fetch.Response, error) { return nil, errors.New("boom") },
	})

	report, err := s.service.Lookup(context.Background(), joeDoe)
	s.Require().NoError(err)

	s.Require().Len(report.Direct.Errors, 1)
	s.Equal(domain.CodeTransportOther, report.Direct.Errors[0].Code)
	s.Equal([]string{"boom"}, report.Direct.Errors[0].Causes)
}

func (s *LookupServiceSuite) TestProbesRunAfterSuccessfulFetch() {
	svc := New(s.fetcher, WithMetrics(s.metrics), WithProbes(true))
	uri := domain.URI(directURI)
	s.route(map[string]reply{
		directURI:           serve(http.StatusOK, s.joe.Binary),
		"HEAD " + directURI: serve(http.StatusOK, nil),
		uri.IndexURL():      serve(http.StatusForbidden, nil),
		uri.PolicyURL():     serve(http.StatusOK, nil),
		advancedURI:         dnsFailure(advancedURI),
	})

	report, err := svc.Lookup(context.Background(), joeDoe)
	s.Require().NoError(err)

	s.Empty(report.Direct.Warnings)
	s.Equal([]string{
		validate.CheckStatus, validate.CheckContentType, validate.CheckAllowOrigin,
		validate.CheckHeadMethod, validate.CheckDirectoryIndex, validate.CheckPolicyFile,
	}, report.Direct.Passed)

	s.Empty(report.Advanced.Warnings)
	s.Empty(report.Advanced.Passed)
}
