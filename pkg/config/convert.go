package config

import (
	"fmt"

	"github.com/getmockd/mockman/pkg/instance"
	"github.com/getmockd/mockman/pkg/mockinstance"
	"github.com/getmockd/mockman/pkg/relay"
)

// ToSpecs converts every ServerDocument in d into an instance.Spec, in
// document order.
func (d *Document) ToSpecs() ([]instance.Spec, error) {
	specs := make([]instance.Spec, 0, len(d.Servers))
	for _, sd := range d.Servers {
		spec, err := sd.ToSpec()
		if err != nil {
			return nil, fmt.Errorf("server %q: %w", sd.Server.ServerID, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (sd ServerDocument) ToSpec() (instance.Spec, error) {
	spec := instance.Spec{
		ID:          sd.Server.ServerID,
		Port:        sd.Server.Port,
		Description: sd.Server.Description,
	}

	if tc := sd.Server.TLSConfig; tc != nil {
		spec.TLS = instance.TLSSpec{
			Enabled: true,
			CertPEM: []byte(tc.Certificate),
			KeyPEM:  []byte(tc.PrivateKey),
		}
		if mtls := tc.MTLSConfig; mtls != nil {
			spec.TLS.CAPEM = []byte(mtls.CACertificate)
			spec.TLS.RequireClientAuth = mtls.RequireClientAuth == nil || *mtls.RequireClientAuth
		}
	}

	if ba := sd.Server.BasicAuth; ba != nil {
		spec.BasicAuth = &mockinstance.BasicAuth{Username: ba.Username, Password: ba.Password}
	}

	for _, h := range sd.Server.GlobalHeaders {
		spec.GlobalHeaders = append(spec.GlobalHeaders, mockinstance.GlobalHeader{Name: h.Name, Value: h.Value})
	}

	if rc := sd.Server.RelayConfig; rc != nil {
		spec.Relay = convertRelayConfig(rc)
	}

	expectations := make([]mockinstance.Expectation, 0, len(sd.Expectations))
	for i, ed := range sd.Expectations {
		exp, err := ed.toExpectation()
		if err != nil {
			return instance.Spec{}, fmt.Errorf("expectations[%d]: %w", i, err)
		}
		expectations = append(expectations, exp)
	}
	spec.Expectations = expectations

	return spec, nil
}

func convertRelayConfig(rc *RelayConfigDoc) *relay.Config {
	return &relay.Config{
		RemoteURL:       rc.RemoteURL,
		TokenURL:        rc.TokenURL,
		ClientID:        rc.ClientID,
		ClientSecret:    rc.ClientSecret,
		Scope:           rc.Scope,
		GrantType:       rc.GrantType,
		Headers:         rc.Headers,
		IgnoreSSLErrors: rc.IgnoreSSLErrors,
	}
}

// ToExpectation converts a single ExpectationDoc into a mockinstance.Expectation.
// Exported for the control-plane REST adapter's set-expectations operation,
// which decodes a bare []ExpectationDoc body rather than a full Document.
func (ed ExpectationDoc) ToExpectation() (mockinstance.Expectation, error) {
	return ed.toExpectation()
}

func (ed ExpectationDoc) toExpectation() (mockinstance.Expectation, error) {
	match := mockinstance.Match{
		Method:  ed.Match.Method,
		Path:    ed.Match.Path,
		Query:   ed.Match.Query,
		Headers: ed.Match.Headers,
	}
	if bp := ed.Match.Body; bp != nil {
		match.Body = &mockinstance.BodyPredicate{
			Mode:  mockinstance.BodyPredicateMode(bp.Mode),
			Value: bp.Value,
			JSON:  bp.JSON,
		}
	}

	response, err := ed.Response.toResponse()
	if err != nil {
		return mockinstance.Expectation{}, err
	}

	return mockinstance.Expectation{ID: ed.ID, Match: match, Response: response}, nil
}

func (rd ResponseDoc) toResponse() (mockinstance.Response, error) {
	kind := mockinstance.ResponseKind(rd.Kind)
	resp := mockinstance.Response{Kind: kind}

	switch kind {
	case mockinstance.KindStatic:
		if rd.Static == nil {
			return resp, fmt.Errorf("response kind %q requires a \"static\" block", rd.Kind)
		}
		resp.Static = &mockinstance.StaticResponse{
			StatusCode: rd.Static.StatusCode,
			Headers:    rd.Static.Headers,
			Body:       rd.Static.Body,
		}
	case mockinstance.KindTemplate:
		if rd.Template == nil {
			return resp, fmt.Errorf("response kind %q requires a \"template\" block", rd.Kind)
		}
		resp.Template = &mockinstance.TemplateResponse{
			StatusCode: rd.Template.StatusCode,
			Headers:    rd.Template.Headers,
			Body:       rd.Template.Body,
		}
	case mockinstance.KindSSE:
		if rd.SSE == nil {
			return resp, fmt.Errorf("response kind %q requires an \"sse\" block", rd.Kind)
		}
		messages := make([]mockinstance.SSEMessage, 0, len(rd.SSE.Messages))
		for _, m := range rd.SSE.Messages {
			messages = append(messages, mockinstance.SSEMessage{Data: m.Data, IntervalMs: m.IntervalMs})
		}
		resp.SSE = &mockinstance.SSEResponse{Messages: messages}
	case mockinstance.KindMultipartFile:
		if rd.MultipartFile == nil {
			return resp, fmt.Errorf("response kind %q requires a \"multipartFile\" block", rd.Kind)
		}
		parts := make([]mockinstance.MultipartFilePart, 0, len(rd.MultipartFile.Parts))
		for _, p := range rd.MultipartFile.Parts {
			parts = append(parts, mockinstance.MultipartFilePart{Name: p.Name, ContentType: p.ContentType, FilePath: p.FilePath})
		}
		resp.MultipartFile = &mockinstance.MultipartFileResponse{StatusCode: rd.MultipartFile.StatusCode, Parts: parts}
	case mockinstance.KindRelay:
		if rd.Relay == nil {
			return resp, fmt.Errorf("response kind %q requires a \"relay\" block", rd.Kind)
		}
		resp.Relay = convertRelayConfig(rd.Relay)
	default:
		return resp, fmt.Errorf("unknown response kind %q", rd.Kind)
	}

	return resp, nil
}

// FromExpectation converts a runtime mockinstance.Expectation back into its
// wire representation, for the get-expectations control-plane operation.
func FromExpectation(e mockinstance.Expectation) ExpectationDoc {
	doc := ExpectationDoc{
		ID: e.ID,
		Match: MatchDoc{
			Method:  e.Match.Method,
			Path:    e.Match.Path,
			Query:   e.Match.Query,
			Headers: e.Match.Headers,
		},
		Response: ResponseDoc{Kind: string(e.Response.Kind)},
	}
	if bp := e.Match.Body; bp != nil {
		doc.Match.Body = &BodyPredicateDoc{Mode: string(bp.Mode), Value: bp.Value, JSON: bp.JSON}
	}

	switch e.Response.Kind {
	case mockinstance.KindStatic:
		if s := e.Response.Static; s != nil {
			doc.Response.Static = &StaticResponseDoc{StatusCode: s.StatusCode, Headers: s.Headers, Body: s.Body}
		}
	case mockinstance.KindTemplate:
		if t := e.Response.Template; t != nil {
			doc.Response.Template = &TemplateResponseDoc{StatusCode: t.StatusCode, Headers: t.Headers, Body: t.Body}
		}
	case mockinstance.KindSSE:
		if s := e.Response.SSE; s != nil {
			messages := make([]SSEMessageDoc, 0, len(s.Messages))
			for _, m := range s.Messages {
				messages = append(messages, SSEMessageDoc{Data: m.Data, IntervalMs: m.IntervalMs})
			}
			doc.Response.SSE = &SSEResponseDoc{Messages: messages}
		}
	case mockinstance.KindMultipartFile:
		if mf := e.Response.MultipartFile; mf != nil {
			parts := make([]MultipartFilePartDoc, 0, len(mf.Parts))
			for _, p := range mf.Parts {
				parts = append(parts, MultipartFilePartDoc{Name: p.Name, ContentType: p.ContentType, FilePath: p.FilePath})
			}
			doc.Response.MultipartFile = &MultipartFileResponseDoc{StatusCode: mf.StatusCode, Parts: parts}
		}
	case mockinstance.KindRelay:
		if e.Response.Relay != nil {
			doc.Response.Relay = &RelayConfigDoc{
				RemoteURL:       e.Response.Relay.RemoteURL,
				TokenURL:        e.Response.Relay.TokenURL,
				ClientID:        e.Response.Relay.ClientID,
				ClientSecret:    e.Response.Relay.ClientSecret,
				Scope:           e.Response.Relay.Scope,
				GrantType:       e.Response.Relay.GrantType,
				Headers:         e.Response.Relay.Headers,
				IgnoreSSLErrors: e.Response.Relay.IgnoreSSLErrors,
			}
		}
	}

	return doc
}
