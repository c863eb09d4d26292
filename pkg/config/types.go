package config

// Document is the top-level shape of a startup configuration file: an
// ordered list of servers to create, each with its own expectations.
type Document struct {
	Servers []ServerDocument `json:"servers" yaml:"servers"`
}

// ServerDocument declares one instance and the expectations installed on it.
type ServerDocument struct {
	Server       ServerBlock       `json:"server" yaml:"server"`
	Expectations []ExpectationDoc  `json:"expectations,omitempty" yaml:"expectations,omitempty"`
}

// ServerBlock is the "server" object of a ServerDocument.
type ServerBlock struct {
	ServerID      string            `json:"serverId" yaml:"serverId"`
	Port          int               `json:"port,omitempty" yaml:"port,omitempty"`
	Description   string            `json:"description,omitempty" yaml:"description,omitempty"`
	TLSConfig     *TLSConfigDoc     `json:"tlsConfig,omitempty" yaml:"tlsConfig,omitempty"`
	BasicAuth     *BasicAuthDoc     `json:"basicAuth,omitempty" yaml:"basicAuth,omitempty"`
	GlobalHeaders []GlobalHeaderDoc `json:"globalHeaders,omitempty" yaml:"globalHeaders,omitempty"`
	RelayConfig   *RelayConfigDoc   `json:"relayConfig,omitempty" yaml:"relayConfig,omitempty"`
}

// TLSConfigDoc carries the PEM material for a server's listener. MTLSConfig
// being present enables client certificate verification.
type TLSConfigDoc struct {
	Certificate string      `json:"certificate" yaml:"certificate"`
	PrivateKey  string      `json:"privateKey" yaml:"privateKey"`
	MTLSConfig  *MTLSConfig `json:"mtlsConfig,omitempty" yaml:"mtlsConfig,omitempty"`
}

// MTLSConfig names the CA certificate a server verifies client certs
// against. RequireClientAuth defaults to true per the data model invariant
// that mTLS presence implies required client auth.
type MTLSConfig struct {
	CACertificate     string `json:"caCertificate" yaml:"caCertificate"`
	RequireClientAuth *bool  `json:"requireClientAuth,omitempty" yaml:"requireClientAuth,omitempty"`
}

// BasicAuthDoc gates every request behind a single username/password pair.
type BasicAuthDoc struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
}

// GlobalHeaderDoc is one (name, value) header applied to every non-relayed
// response.
type GlobalHeaderDoc struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// RelayConfigDoc describes an upstream to forward requests to (every
// request at instance scope, or the requests an expectation matches when
// used as a "relay" response), with optional OAuth2 client-credentials
// token acquisition.
type RelayConfigDoc struct {
	RemoteURL       string            `json:"remoteUrl" yaml:"remoteUrl"`
	TokenURL        string            `json:"tokenUrl,omitempty" yaml:"tokenUrl,omitempty"`
	ClientID        string            `json:"clientId,omitempty" yaml:"clientId,omitempty"`
	ClientSecret    string            `json:"clientSecret,omitempty" yaml:"clientSecret,omitempty"`
	Scope           string            `json:"scope,omitempty" yaml:"scope,omitempty"`
	GrantType       string            `json:"grantType,omitempty" yaml:"grantType,omitempty"`
	Headers         map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	IgnoreSSLErrors bool              `json:"ignoreSSLErrors,omitempty" yaml:"ignoreSSLErrors,omitempty"`
}

// ExpectationDoc is one match -> response rule.
type ExpectationDoc struct {
	ID       string      `json:"id,omitempty" yaml:"id,omitempty"`
	Match    MatchDoc    `json:"match" yaml:"match"`
	Response ResponseDoc `json:"response" yaml:"response"`
}

// MatchDoc describes the request-matching conditions of an expectation.
type MatchDoc struct {
	Method  string            `json:"method,omitempty" yaml:"method,omitempty"`
	Path    string            `json:"path" yaml:"path"`
	Query   map[string]string `json:"query,omitempty" yaml:"query,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    *BodyPredicateDoc `json:"body,omitempty" yaml:"body,omitempty"`
}

// BodyPredicateDoc is an optional request-body match condition. Mode is one
// of "equals", "contains", "json_subset".
type BodyPredicateDoc struct {
	Mode  string         `json:"mode" yaml:"mode"`
	Value string         `json:"value,omitempty" yaml:"value,omitempty"`
	JSON  map[string]any `json:"json,omitempty" yaml:"json,omitempty"`
}

// ResponseDoc is a tagged variant over the five response strategies. Kind
// selects which of the nested fields is populated: "static", "template",
// "sse", "multipart_file", "relay".
type ResponseDoc struct {
	Kind          string                   `json:"kind" yaml:"kind"`
	Static        *StaticResponseDoc       `json:"static,omitempty" yaml:"static,omitempty"`
	Template      *TemplateResponseDoc     `json:"template,omitempty" yaml:"template,omitempty"`
	SSE           *SSEResponseDoc          `json:"sse,omitempty" yaml:"sse,omitempty"`
	MultipartFile *MultipartFileResponseDoc `json:"multipartFile,omitempty" yaml:"multipartFile,omitempty"`
	Relay         *RelayConfigDoc          `json:"relay,omitempty" yaml:"relay,omitempty"`
}

// StaticResponseDoc emits a literal status/headers/body.
type StaticResponseDoc struct {
	StatusCode int               `json:"statusCode" yaml:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       string            `json:"body,omitempty" yaml:"body,omitempty"`
}

// TemplateResponseDoc renders Body as a "${...}" template before emitting it.
type TemplateResponseDoc struct {
	StatusCode int               `json:"statusCode" yaml:"statusCode"`
	Headers    map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       string            `json:"body" yaml:"body"`
}

// SSEMessageDoc is one event of an SSEResponseDoc.
type SSEMessageDoc struct {
	Data       string `json:"data" yaml:"data"`
	IntervalMs int    `json:"intervalMs,omitempty" yaml:"intervalMs,omitempty"`
}

// SSEResponseDoc serializes Messages as "data: <message>\n\n" concatenated.
type SSEResponseDoc struct {
	Messages []SSEMessageDoc `json:"messages" yaml:"messages"`
}

// MultipartFilePartDoc is one part of a MultipartFileResponseDoc, read from
// disk at request time.
type MultipartFilePartDoc struct {
	Name        string `json:"name" yaml:"name"`
	ContentType string `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	FilePath    string `json:"filePath" yaml:"filePath"`
}

// MultipartFileResponseDoc emits a multipart/* response built from Parts.
type MultipartFileResponseDoc struct {
	StatusCode int                    `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	Parts      []MultipartFilePartDoc `json:"parts" yaml:"parts"`
}
