package mockinstance

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"sort"
	"strings"

	"github.com/getmockd/mockman/pkg/relay"
)

// ExecContext is everything a strategy needs beyond the matched Response
// itself: the request being answered (for relay forwarding) and the
// template context (for template rendering).
type ExecContext struct {
	Method       string
	PathAndQuery string
	Headers      http.Header
	Body         []byte
	Template     TemplateContext
	Relay        *relay.Engine
}

// StrategyResult is what a strategy produces for the dispatcher to emit.
type StrategyResult struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Strategy is one member of the response strategy set: a tagged-variant
// handler selected by priority rather than by type-switch dispatch.
type Strategy interface {
	Priority() int
	Supports(resp Response) bool
	Execute(ctx context.Context, resp Response, ec ExecContext) (StrategyResult, error)
}

// Strategies holds the registered strategy set in priority order (highest
// first): Relay > SSE > MultipartFile > Template > Static.
var Strategies = sortedStrategies([]Strategy{
	relayStrategy{},
	sseStrategy{},
	multipartFileStrategy{},
	templateStrategy{},
	staticStrategy{},
})

func sortedStrategies(s []Strategy) []Strategy {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Priority() > s[j].Priority() })
	return s
}

// Execute picks the first registered strategy (in priority order) whose
// Supports returns true for resp, and runs it.
func Execute(ctx context.Context, resp Response, ec ExecContext) (StrategyResult, error) {
	for _, s := range Strategies {
		if s.Supports(resp) {
			return s.Execute(ctx, resp, ec)
		}
	}
	return StrategyResult{}, fmt.Errorf("mockinstance: no response strategy supports kind %q", resp.Kind)
}

// --- Static ---

type staticStrategy struct{}

func (staticStrategy) Priority() int             { return 10 }
func (staticStrategy) Supports(r Response) bool  { return r.Kind == KindStatic && r.Static != nil }
func (staticStrategy) Execute(_ context.Context, resp Response, _ ExecContext) (StrategyResult, error) {
	s := resp.Static
	status := s.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	return StrategyResult{
		StatusCode: status,
		Headers:    headerMap(s.Headers),
		Body:       []byte(s.Body),
	}, nil
}

// --- Template ---

type templateStrategy struct{}

func (templateStrategy) Priority() int            { return 20 }
func (templateStrategy) Supports(r Response) bool { return r.Kind == KindTemplate && r.Template != nil }
func (templateStrategy) Execute(_ context.Context, resp Response, ec ExecContext) (StrategyResult, error) {
	t := resp.Template
	status := t.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	headers := http.Header{}
	for name, value := range t.Headers {
		headers.Set(name, RenderTemplate(value, ec.Template))
	}

	body := RenderTemplate(t.Body, ec.Template)
	return StrategyResult{StatusCode: status, Headers: headers, Body: []byte(body)}, nil
}

// --- SSE ---

type sseStrategy struct{}

func (sseStrategy) Priority() int            { return 40 }
func (sseStrategy) Supports(r Response) bool { return r.Kind == KindSSE && r.SSE != nil }
func (sseStrategy) Execute(_ context.Context, resp Response, _ ExecContext) (StrategyResult, error) {
	var body strings.Builder
	for _, msg := range resp.SSE.Messages {
		body.WriteString("data: ")
		body.WriteString(msg.Data)
		body.WriteString("\n\n")
	}

	headers := http.Header{}
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")

	return StrategyResult{StatusCode: http.StatusOK, Headers: headers, Body: []byte(body.String())}, nil
}

// --- MultipartFile ---

type multipartFileStrategy struct{}

func (multipartFileStrategy) Priority() int { return 30 }
func (multipartFileStrategy) Supports(r Response) bool {
	return r.Kind == KindMultipartFile && r.MultipartFile != nil
}
func (multipartFileStrategy) Execute(_ context.Context, resp Response, _ ExecContext) (StrategyResult, error) {
	var buf strings.Builder
	w := multipart.NewWriter(&buf)

	for _, part := range resp.MultipartFile.Parts {
		data, err := os.ReadFile(part.FilePath)
		if err != nil {
			return StrategyResult{}, fmt.Errorf("mockinstance: reading multipart file %q: %w", part.FilePath, err)
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, part.Name, part.Name))
		if part.ContentType != "" {
			header.Set("Content-Type", part.ContentType)
		}
		pw, err := w.CreatePart(header)
		if err != nil {
			return StrategyResult{}, fmt.Errorf("mockinstance: creating multipart part %q: %w", part.Name, err)
		}
		if _, err := pw.Write(data); err != nil {
			return StrategyResult{}, fmt.Errorf("mockinstance: writing multipart part %q: %w", part.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return StrategyResult{}, fmt.Errorf("mockinstance: closing multipart writer: %w", err)
	}

	status := resp.MultipartFile.StatusCode
	if status == 0 {
		status = http.StatusOK
	}

	headers := http.Header{}
	headers.Set("Content-Type", w.FormDataContentType())

	return StrategyResult{StatusCode: status, Headers: headers, Body: []byte(buf.String())}, nil
}

// --- Relay ---

type relayStrategy struct{}

func (relayStrategy) Priority() int            { return 50 }
func (relayStrategy) Supports(r Response) bool { return r.Kind == KindRelay && r.Relay != nil }
func (relayStrategy) Execute(ctx context.Context, resp Response, ec ExecContext) (StrategyResult, error) {
	result, err := ec.Relay.Relay(ctx, *resp.Relay, ec.Method, ec.PathAndQuery, ec.Headers, ec.Body)
	if err != nil {
		return StrategyResult{}, err
	}
	return StrategyResult{StatusCode: result.StatusCode, Headers: result.Headers, Body: result.Body}, nil
}

func headerMap(m map[string]string) http.Header {
	h := http.Header{}
	for name, value := range m {
		h.Set(name, value)
	}
	return h
}
