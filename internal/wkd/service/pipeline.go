package service

import (
	"context"
	"errors"
	"fmt"

	"wkd-tester/internal/wkd/domain"
	"wkd-tester/internal/wkd/fetch"
	"wkd-tester/internal/wkd/keys"
	"wkd-tester/internal/wkd/metrics"
	"wkd-tester/internal/wkd/validate"
	"wkd-tester/pkg/requestcontext"
)

// pipelineState is one step of a method check:
//
//	built -> fetched -> validated -> parsed
//	           |           |     \-> parseFailed
//	           |           \-> rejected
//	           \-> fetchFailed
//
// Only terminal states produce a MethodResult.
type pipelineState interface {
	isPipelineState()
}

type terminal interface {
	pipelineState
	result() domain.MethodResult
	outcome() string
}

type built struct {
	method domain.Method
	uri    domain.URI
}

type fetched struct {
	uri  domain.URI
	resp *fetch.Response
}

type validated struct {
	uri        domain.URI
	body       []byte
	validation validate.Result
}

type fetchFailed struct {
	uri domain.URI
	err *fetch.TransportError
}

type rejected struct {
	uri        domain.URI
	validation validate.Result
}

type parsed struct {
	uri        domain.URI
	validation validate.Result
	key        *domain.KeyInfo
}

type parseFailed struct {
	uri        domain.URI
	validation validate.Result
	err        *keys.ParseError
}

func (built) isPipelineState()       {}
func (fetched) isPipelineState()     {}
func (validated) isPipelineState()   {}
func (fetchFailed) isPipelineState() {}
func (rejected) isPipelineState()    {}
func (parsed) isPipelineState()      {}
func (parseFailed) isPipelineState() {}

func (s fetchFailed) result() domain.MethodResult {
	return domain.NewMethodResult(s.uri, nil, []domain.Diagnostic{s.err.Diagnostic()}, nil, nil)
}

func (s rejected) result() domain.MethodResult {
	v := s.validation
	return domain.NewMethodResult(s.uri, nil, v.Errors, v.Warnings, v.Passed)
}

func (s parsed) result() domain.MethodResult {
	v := s.validation
	return domain.NewMethodResult(s.uri, s.key, v.Errors, v.Warnings, v.Passed)
}

func (s parseFailed) result() domain.MethodResult {
	v := s.validation
	errs := append(append([]domain.Diagnostic{}, v.Errors...), s.err.Diagnostic())
	return domain.NewMethodResult(s.uri, nil, errs, v.Warnings, v.Passed)
}

func (fetchFailed) outcome() string { return metrics.OutcomeTransport }
func (rejected) outcome() string    { return metrics.OutcomeStatus }
func (parsed) outcome() string      { return metrics.OutcomeKey }

func (s parseFailed) outcome() string {
	if errors.Is(s.err, keys.ErrNoKeyFound) {
		return metrics.OutcomeNoKeyFound
	}
	return metrics.OutcomeMalformedKey
}

// pipeline drives one method from built to a terminal state. It holds no
// state of its own and is safe to share between goroutines.
type pipeline struct {
	fetcher   fetch.Fetcher
	validator *validate.Validator
	id        domain.UserID
}

func (p pipeline) run(ctx context.Context, start built) terminal {
	var state pipelineState = start
	for {
		switch st := state.(type) {
		case built:
			state = p.fetch(ctx, st)
		case fetched:
			state = p.validate(ctx, st)
		case validated:
			state = p.parse(ctx, st)
		case terminal:
			return st
		default:
			panic(fmt.Sprintf("unexpected pipeline state %T", st))
		}
	}
}

func (p pipeline) fetch(ctx context.Context, st built) pipelineState {
	resp, err := p.fetcher.Fetch(ctx, fetch.Get(st.uri.String()))
	if err != nil {
		var te *fetch.TransportError
		if !errors.As(err, &te) {
			te = fetch.NewTransportError(st.uri.String(), fetch.MessageFetchFailed, err)
		}
		return fetchFailed{uri: st.uri, err: te}
	}
	return fetched{uri: st.uri, resp: resp}
}

func (p pipeline) validate(ctx context.Context, st fetched) pipelineState {
	res := p.validator.Validate(ctx, st.uri, st.resp)
	if !res.Parse {
		return rejected{uri: st.uri, validation: res}
	}
	return validated{uri: st.uri, body: st.resp.Body, validation: res}
}

func (p pipeline) parse(ctx context.Context, st validated) pipelineState {
	key, err := keys.Parse(st.body, p.id, requestcontext.Now(ctx))
	if err != nil {
		var perr *keys.ParseError
		if !errors.As(err, &perr) {
			perr = &keys.ParseError{Code: domain.CodeMalformedKey, Message: keys.MessageMalformedKey, Err: err}
		}
		return parseFailed{uri: st.uri, validation: st.validation, err: perr}
	}
	return parsed{uri: st.uri, validation: st.validation, key: key}
}
