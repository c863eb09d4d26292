// Package instance implements the instance lifecycle manager: creating,
// listing, and tearing down independently-addressable mock instances,
// each backed by its own TLS material, dispatcher, and HTTP listener.
package instance

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/getmockd/mockman/pkg/mockinstance"
	"github.com/getmockd/mockman/pkg/relay"
)

// State is the lifecycle state of an Instance.
type State string

const (
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopped  State = "stopped"
	StateFailed   State = "failed"
)

// MinPort and MaxPort bound the valid instance port range.
const (
	MinPort = 1024
	MaxPort = 65535
)

// TLSSpec describes the TLS material an instance should be brought up with.
// A zero value means plain HTTP.
type TLSSpec struct {
	Enabled           bool
	CertPEM           []byte
	KeyPEM            []byte
	CAPEM             []byte
	RequireClientAuth bool
}

// Spec is the declarative description of an instance to create. ID must be
// caller-supplied and unique; Port must fall within [MinPort, MaxPort], or
// be 0 to have a free port allocated.
type Spec struct {
	ID            string
	Port          int
	Description   string
	TLS           TLSSpec
	BasicAuth     *mockinstance.BasicAuth
	GlobalHeaders []mockinstance.GlobalHeader
	Relay         *relay.Config
	Expectations  []mockinstance.Expectation
}

// Instance is one running (or stopped) mock server: its declared
// configuration plus runtime state.
type Instance struct {
	ID          string
	Port        int
	Description string
	TLSEnabled  bool
	State       State
	CreatedAt   time.Time

	dispatcher *mockinstance.Dispatcher
	tlsConfig  *tls.Config
	certPath   string
	keyPath    string
	caPath     string
	server     *http.Server
	relayCfg   *relay.Config
}

// Expectations returns the instance's currently configured expectations.
func (i *Instance) Expectations() []mockinstance.Expectation {
	return i.dispatcher.ExpectationList()
}

// SetExpectations replaces the instance's expectation list.
func (i *Instance) SetExpectations(es []mockinstance.Expectation) {
	i.dispatcher.SetExpectations(es)
}

// ClearExpectations removes every configured expectation.
func (i *Instance) ClearExpectations() {
	i.dispatcher.ClearExpectations()
}
