package mockinstance

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getmockd/mockman/pkg/relay"
)

func TestDispatcherStaticResponseWithGlobalHeaders(t *testing.T) {
	d := NewDispatcher(relay.New())
	d.GlobalHeaders = []GlobalHeader{{Name: "X-Powered-By", Value: "mockman"}}
	d.SetExpectations([]Expectation{
		{
			Match: Match{Method: "GET", Path: "/ping"},
			Response: Response{
				Kind:   KindStatic,
				Static: &StaticResponse{StatusCode: 200, Headers: map[string]string{"Content-Type": "text/plain"}, Body: "pong"},
			},
		},
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ping", nil)
	d.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d", w.Code)
	}
	if w.Body.String() != "pong" {
		t.Fatalf("got body %q", w.Body.String())
	}
	if w.Header().Get("X-Powered-By") != "mockman" {
		t.Fatalf("expected global header to be set")
	}
}

func TestDispatcherExpectationHeaderWinsOverGlobalHeader(t *testing.T) {
	d := NewDispatcher(relay.New())
	d.GlobalHeaders = []GlobalHeader{{Name: "X-Source", Value: "global"}}
	d.SetExpectations([]Expectation{
		{
			Match: Match{Method: "GET", Path: "/ping"},
			Response: Response{
				Kind:   KindStatic,
				Static: &StaticResponse{StatusCode: 200, Headers: map[string]string{"X-Source": "expectation"}, Body: "pong"},
			},
		},
	})

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if got := w.Header().Get("X-Source"); got != "expectation" {
		t.Fatalf("expected expectation header to win, got %q", got)
	}
}

func TestDispatcherBasicAuthGate(t *testing.T) {
	d := NewDispatcher(relay.New())
	d.BasicAuth = &BasicAuth{Username: "admin", Password: "secret"}
	d.SetExpectations([]Expectation{
		{Match: Match{Path: "/ping"}, Response: Response{Kind: KindStatic, Static: &StaticResponse{Body: "pong"}}},
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/ping", nil)
	d.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("expected WWW-Authenticate header on 401")
	}

	w2 := httptest.NewRecorder()
	r2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r2.SetBasicAuth("admin", "secret")
	d.ServeHTTP(w2, r2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 with correct credentials, got %d", w2.Code)
	}
}

func TestDispatcherTemplateResponseRendersFromPathVariable(t *testing.T) {
	d := NewDispatcher(relay.New())
	d.SetExpectations([]Expectation{
		{
			Match: Match{Method: "GET", Path: "/users/{id}"},
			Response: Response{
				Kind: KindTemplate,
				Template: &TemplateResponse{
					StatusCode: 200,
					Headers:    map[string]string{"Content-Type": "application/json"},
					Body:       `{"userId":"${pathVariables.id}"}`,
				},
			},
		},
	})

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/42", nil))

	if w.Body.String() != `{"userId":"42"}` {
		t.Fatalf("got body %q", w.Body.String())
	}
}

func TestDispatcherTemplateResponseRendersFromCookie(t *testing.T) {
	d := NewDispatcher(relay.New())
	d.SetExpectations([]Expectation{
		{
			Match: Match{Method: "GET", Path: "/whoami"},
			Response: Response{
				Kind: KindTemplate,
				Template: &TemplateResponse{
					StatusCode: 200,
					Body:       `{"session":"${cookies.session}"}`,
				},
			},
		},
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "abc123"})
	d.ServeHTTP(w, req)

	if w.Body.String() != `{"session":"abc123"}` {
		t.Fatalf("got body %q", w.Body.String())
	}
}

func TestDispatcherFallsBackToInstanceRelayOnNoMatch(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("from upstream"))
	}))
	defer upstream.Close()

	d := NewDispatcher(relay.New())
	d.Relay = &relay.Config{RemoteURL: upstream.URL}

	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unmatched", nil))

	if w.Code != http.StatusTeapot {
		t.Fatalf("expected relay fallback status 418, got %d", w.Code)
	}
	if w.Body.String() != "from upstream" {
		t.Fatalf("got body %q", w.Body.String())
	}
}

func TestDispatcherReturns404WhenNoMatchAndNoRelay(t *testing.T) {
	d := NewDispatcher(relay.New())
	w := httptest.NewRecorder()
	d.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unmatched", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
