package mockinstance

import "github.com/getmockd/mockman/pkg/relay"

// GlobalHeader is a (name, value) pair added unconditionally to every
// non-relayed response unless the expectation's own response already set a
// header of the same name.
type GlobalHeader struct {
	Name  string
	Value string
}

// BodyPredicateMode selects how an expectation's body predicate is applied.
type BodyPredicateMode string

const (
	BodyEquals      BodyPredicateMode = "equals"
	BodyContains    BodyPredicateMode = "contains"
	BodyJSONSubset  BodyPredicateMode = "json_subset"
)

// BodyPredicate is an optional request-body match condition.
type BodyPredicate struct {
	Mode BodyPredicateMode
	// Value holds the literal/substring text for Equals/Contains.
	Value string
	// JSON holds the subset document for JSONSubset.
	JSON map[string]any
}

// Match describes the conditions an incoming request must satisfy.
type Match struct {
	// Method, if non-empty, must equal the request method case-insensitively.
	Method string
	// Path is a pattern split on "/"; a segment "{name}" binds to any value.
	Path string
	// Query holds required query parameters (name -> required value).
	Query map[string]string
	// Headers holds required request headers (name -> required value).
	Headers map[string]string
	// Body is an optional body predicate.
	Body *BodyPredicate
}

// ResponseKind tags which response strategy an Expectation's Response uses.
type ResponseKind string

const (
	KindStatic        ResponseKind = "static"
	KindTemplate      ResponseKind = "template"
	KindSSE           ResponseKind = "sse"
	KindMultipartFile ResponseKind = "multipart_file"
	KindRelay         ResponseKind = "relay"
)

// StaticResponse emits a literal status/headers/body.
type StaticResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// TemplateResponse renders Body as a "${...}" template over the request
// context before emitting it.
type TemplateResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// SSEMessage is one event emitted by an SSE response. Interval is metadata
// only: the mock flushes every message synchronously regardless of it.
type SSEMessage struct {
	Data       string
	IntervalMs int
}

// SSEResponse serializes Messages as "data: <message>\n\n" concatenated.
type SSEResponse struct {
	Messages []SSEMessage
}

// MultipartFilePart is one part of a MultipartFileResponse.
type MultipartFilePart struct {
	Name        string
	ContentType string
	FilePath    string
}

// MultipartFileResponse emits a multipart/* response whose parts are read
// from disk.
type MultipartFileResponse struct {
	StatusCode int
	Parts      []MultipartFilePart
}

// Response is a tagged variant over the five response strategies. Exactly
// the field named by Kind is populated.
type Response struct {
	Kind          ResponseKind
	Static        *StaticResponse
	Template      *TemplateResponse
	SSE           *SSEResponse
	MultipartFile *MultipartFileResponse
	Relay         *relay.Config
}

// Expectation is one match -> response rule.
type Expectation struct {
	ID       string
	Match    Match
	Response Response
}
