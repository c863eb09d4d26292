package mockinstance

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/getmockd/mockman/pkg/relay"
)

// BasicAuth gates an instance behind a single username/password pair.
type BasicAuth struct {
	Username string
	Password string
}

// Dispatcher answers requests for a single mock instance: it gates on
// basic auth, forwards every request through the instance's relay
// configuration when one is set, and otherwise runs the expectation
// matcher, executes the winning strategy, and merges global headers in.
//
// BasicAuth, GlobalHeaders and Relay are fixed at instance creation and
// read without synchronization. Expectations can be replaced at any time
// through the control API while requests are in flight, so access to it
// goes through SetExpectations/ExpectationList/ClearExpectations.
type Dispatcher struct {
	BasicAuth     *BasicAuth
	GlobalHeaders []GlobalHeader
	Relay         *relay.Config

	mu           sync.RWMutex
	expectations []Expectation

	engine *relay.Engine
}

// NewDispatcher builds a Dispatcher that forwards relay responses (both the
// per-expectation Relay strategy and the instance-level fallback) through
// engine.
func NewDispatcher(engine *relay.Engine) *Dispatcher {
	return &Dispatcher{engine: engine}
}

// SetExpectations replaces the dispatcher's expectation list atomically.
func (d *Dispatcher) SetExpectations(es []Expectation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expectations = es
}

// ExpectationList returns the currently configured expectations.
func (d *Dispatcher) ExpectationList() []Expectation {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.expectations
}

// ClearExpectations removes every configured expectation.
func (d *Dispatcher) ClearExpectations() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expectations = nil
}

// ServeHTTP implements the instance's whole request lifecycle.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if d.BasicAuth != nil && !checkBasicAuth(*d.BasicAuth, r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="mock"`)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		http.Error(w, "error reading request body", http.StatusBadRequest)
		return
	}

	result, err := d.dispatch(r.Context(), r, body)
	if err != nil {
		http.Error(w, "bad gateway", http.StatusBadGateway)
		return
	}

	d.writeResult(w, result)
}

func (d *Dispatcher) dispatch(ctx context.Context, r *http.Request, body []byte) (StrategyResult, error) {
	// Instance-level relay forwards every request; expectations are ignored.
	if d.Relay != nil {
		result, err := d.relayThrough(ctx, *d.Relay, r, body)
		if err != nil {
			return errorResult(http.StatusBadGateway, "RELAY_ERROR", err.Error()), nil
		}
		return result, nil
	}

	expectation, vars, matched := Match(d.ExpectationList(), r, body)
	if !matched {
		return errorResult(http.StatusNotFound, "NOT_MATCHED", ""), nil
	}

	ec := ExecContext{
		Method:       r.Method,
		PathAndQuery: pathAndQuery(r.URL),
		Headers:      r.Header,
		Body:         body,
		Template:     templateContext(vars, r, body),
		Relay:        d.engine,
	}

	result, err := Execute(ctx, expectation.Response, ec)
	if err != nil {
		if expectation.Response.Kind == KindRelay {
			return errorResult(http.StatusBadGateway, "RELAY_ERROR", err.Error()), nil
		}
		return errorResult(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", err.Error()), nil
	}

	// Relay responses pass upstream headers through untouched; global
	// headers only apply to responses this instance originates itself.
	if expectation.Response.Kind != KindRelay {
		result.Headers = d.mergeGlobalHeaders(result.Headers)
	}
	return result, nil
}

func (d *Dispatcher) relayThrough(ctx context.Context, cfg relay.Config, r *http.Request, body []byte) (StrategyResult, error) {
	result, err := d.engine.Relay(ctx, cfg, r.Method, pathAndQuery(r.URL), r.Header, body)
	if err != nil {
		return StrategyResult{}, err
	}
	return StrategyResult{StatusCode: result.StatusCode, Headers: result.Headers, Body: result.Body}, nil
}

// errorResult builds a JSON error response {"errorCode":code,"message":message},
// omitting "message" when it is empty.
func errorResult(status int, code, message string) StrategyResult {
	payload := map[string]string{"errorCode": code}
	if message != "" {
		payload["message"] = message
	}
	body, _ := json.Marshal(payload)
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	return StrategyResult{StatusCode: status, Headers: headers, Body: body}
}

// mergeGlobalHeaders adds every configured global header whose name the
// response didn't already set; the response's own headers always win.
func (d *Dispatcher) mergeGlobalHeaders(h http.Header) http.Header {
	if h == nil {
		h = http.Header{}
	}
	for _, gh := range d.GlobalHeaders {
		if h.Get(gh.Name) == "" {
			h.Set(gh.Name, gh.Value)
		}
	}
	return h
}

func (d *Dispatcher) writeResult(w http.ResponseWriter, result StrategyResult) {
	for name, values := range result.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	status := result.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(result.Body) > 0 {
		_, _ = w.Write(result.Body)
	}
}

func checkBasicAuth(auth BasicAuth, r *http.Request) bool {
	username, password, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(auth.Username)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(auth.Password)) == 1
	return userMatch && passMatch
}

func pathAndQuery(u *url.URL) string {
	if u.RawQuery == "" {
		return u.Path
	}
	return u.Path + "?" + u.RawQuery
}

func templateContext(pathVars map[string]string, r *http.Request, body []byte) TemplateContext {
	flatHeaders := make(map[string]string, len(r.Header))
	for name := range r.Header {
		flatHeaders[name] = r.Header.Get(name)
	}

	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}

	ctx := TemplateContext{
		PathVariables: pathVars,
		Headers:       flatHeaders,
		Cookies:       cookies,
	}

	if len(body) > 0 {
		var parsed any
		if err := json.Unmarshal(body, &parsed); err == nil {
			ctx.Body = parsed
		}
	}
	return ctx
}
