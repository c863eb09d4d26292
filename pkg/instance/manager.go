package instance

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/getmockd/mockman/pkg/logging"
	"github.com/getmockd/mockman/pkg/mockinstance"
	"github.com/getmockd/mockman/pkg/relay"
	"github.com/getmockd/mockman/pkg/tlsmaterial"
)

// shutdownTimeout bounds how long Delete/Shutdown wait for an instance's
// in-flight requests to drain before the listener is forced closed.
const shutdownTimeout = 5 * time.Second

// ManagerOption configures a Manager at construction time.
type ManagerOption func(*Manager)

// WithLogger sets the operational logger used for lifecycle events.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithTLSStore overrides the TLS material store (e.g. to point it at a
// specific base directory). Defaults to a store rooted at os.TempDir().
func WithTLSStore(store *tlsmaterial.Store) ManagerOption {
	return func(m *Manager) { m.tls = store }
}

// WithRelayEngine overrides the relay engine shared by every instance's
// dispatcher. Defaults to a freshly constructed relay.New().
func WithRelayEngine(engine *relay.Engine) ManagerOption {
	return func(m *Manager) { m.relay = engine }
}

// Manager owns the set of live instances: it allocates ports, brings TLS
// material up, starts/stops each instance's HTTP listener, and enforces
// port uniqueness across everything it manages.
type Manager struct {
	mu        sync.RWMutex
	instances map[string]*Instance
	ports     map[int]string // port -> instance ID

	tls   *tlsmaterial.Store
	relay *relay.Engine
	log   *slog.Logger
}

// NewManager creates an empty Manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		instances: make(map[string]*Instance),
		ports:     make(map[int]string),
		tls:       tlsmaterial.NewStore(),
		relay:     relay.New(),
		log:       logging.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create brings up a new instance from spec. A blank spec.ID is assigned a
// generated id. On any failure after a port or TLS material has been
// claimed, everything claimed so far is rolled back before the error is
// returned.
func (m *Manager) Create(spec Spec) (*Instance, error) {
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}
	if spec.Port != 0 && (spec.Port < MinPort || spec.Port > MaxPort) {
		return nil, &ValidationError{Reason: fmt.Sprintf("port %d out of range [%d, %d]", spec.Port, MinPort, MaxPort)}
	}
	if spec.TLS.RequireClientAuth && len(spec.TLS.CAPEM) == 0 {
		return nil, &ValidationError{Reason: "mTLS requires a non-empty CA certificate"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.instances[spec.ID]; exists {
		return nil, &ConflictError{Reason: fmt.Sprintf("instance %q already exists", spec.ID)}
	}

	port, err := m.reservePortLocked(spec.Port)
	if err != nil {
		return nil, err
	}

	id := spec.ID
	inst := &Instance{
		ID:          id,
		Port:        port,
		Description: spec.Description,
		TLSEnabled:  spec.TLS.Enabled,
		State:       StateStarting,
		CreatedAt:   time.Now(),
	}

	rollback := func() {
		delete(m.ports, port)
	}

	if spec.TLS.Enabled {
		tlsConfig, certPath, keyPath, caPath, err := m.buildTLSConfig(id, spec.TLS)
		if err != nil {
			rollback()
			return nil, &ValidationError{Reason: fmt.Sprintf("TLS bring-up: %v", err)}
		}
		inst.tlsConfig = tlsConfig
		inst.certPath, inst.keyPath, inst.caPath = certPath, keyPath, caPath
		rollback = func() {
			delete(m.ports, port)
			m.tls.Delete(id)
		}
	}

	dispatcher := mockinstance.NewDispatcher(m.relay)
	dispatcher.BasicAuth = spec.BasicAuth
	dispatcher.GlobalHeaders = spec.GlobalHeaders
	dispatcher.Relay = spec.Relay
	dispatcher.SetExpectations(spec.Expectations)
	inst.dispatcher = dispatcher
	inst.relayCfg = spec.Relay

	server := &http.Server{
		Addr:      fmt.Sprintf(":%d", port),
		Handler:   dispatcher,
		TLSConfig: inst.tlsConfig,
	}
	inst.server = server

	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		rollback()
		return nil, &CreationFailedError{Cause: fmt.Errorf("binding port %d: %w", port, err)}
	}

	go func() {
		var serveErr error
		if inst.tlsConfig != nil {
			serveErr = server.ServeTLS(listener, inst.certPath, inst.keyPath)
		} else {
			serveErr = server.Serve(listener)
		}
		if serveErr != nil && serveErr != http.ErrServerClosed {
			m.log.Error("instance server error", "instance_id", id, "error", serveErr)
		}
	}()

	inst.State = StateRunning
	m.instances[id] = inst
	m.ports[port] = id

	m.log.Info("instance created", "instance_id", id, "port", port, "tls", spec.TLS.Enabled)
	return inst, nil
}

func (m *Manager) buildTLSConfig(id string, spec TLSSpec) (*tls.Config, string, string, string, error) {
	if err := tlsmaterial.ValidateKey(spec.KeyPEM); err != nil {
		return nil, "", "", "", err
	}
	if _, err := tlsmaterial.ValidateCertificate(spec.CertPEM); err != nil {
		return nil, "", "", "", err
	}

	if len(spec.CAPEM) > 0 {
		_, warn, err := tlsmaterial.ValidateCA(spec.CAPEM)
		if err != nil {
			return nil, "", "", "", err
		}
		if warn != nil {
			m.log.Warn("TLS CA material is not flagged as a CA certificate", "instance_id", id, "warning", string(*warn))
		}
	}

	certPath, keyPath, caPath, err := m.tls.Materialize(id, tlsmaterial.Material{
		CertPEM:           spec.CertPEM,
		KeyPEM:            spec.KeyPEM,
		CAPEM:             spec.CAPEM,
		RequireClientAuth: spec.RequireClientAuth,
	})
	if err != nil {
		return nil, "", "", "", err
	}

	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if spec.RequireClientAuth && caPath != "" {
		pool, err := certPoolFromFile(caPath)
		if err != nil {
			return nil, "", "", "", err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return cfg, certPath, keyPath, caPath, nil
}

func certPoolFromFile(path string) (*x509.CertPool, error) {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("instance: reading CA file %q: %w", path, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pemBytes) {
		return nil, fmt.Errorf("instance: no valid certificates found in %q", path)
	}
	return pool, nil
}

// reservePortLocked claims requestedPort (or any free port when 0) under
// m.mu. The caller must already hold m.mu.
func (m *Manager) reservePortLocked(requestedPort int) (int, error) {
	if requestedPort == 0 {
		return m.allocateFreePortLocked()
	}
	if _, taken := m.ports[requestedPort]; taken {
		return 0, &ConflictError{Reason: fmt.Sprintf("port %d is already in use", requestedPort)}
	}
	m.ports[requestedPort] = "" // placeholder claim, overwritten once the instance ID is known
	return requestedPort, nil
}

func (m *Manager) allocateFreePortLocked() (int, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, fmt.Errorf("instance: allocating free port: %w", err)
	}
	defer func() { _ = listener.Close() }()

	addr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("instance: unexpected listener address type")
	}
	if _, taken := m.ports[addr.Port]; taken {
		return 0, &ConflictError{Reason: fmt.Sprintf("port %d is already in use", addr.Port)}
	}
	m.ports[addr.Port] = ""
	return addr.Port, nil
}

// Get returns the instance with the given ID.
func (m *Manager) Get(id string) (*Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return inst, nil
}

// List returns every managed instance.
func (m *Manager) List() []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		result = append(result, inst)
	}
	return result
}

// Delete gracefully shuts down and removes an instance, freeing its port
// and any materialized TLS material.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	inst, ok := m.instances[id]
	if !ok {
		m.mu.Unlock()
		return &NotFoundError{ID: id}
	}
	delete(m.instances, id)
	delete(m.ports, inst.Port)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := inst.server.Shutdown(ctx)
	if inst.TLSEnabled {
		m.tls.Delete(id)
	}
	if inst.relayCfg != nil && inst.relayCfg.TokenURL != "" {
		m.relay.TokenCache().DropPrefix(inst.relayCfg.TokenURL)
	}

	inst.State = StateStopped
	m.log.Info("instance deleted", "instance_id", id)
	return err
}

// Shutdown stops every managed instance, deleting them in parallel, and
// returns one of the deletion errors if any occurred.
func (m *Manager) Shutdown() error {
	insts := m.List()
	errs := make([]error, len(insts))
	var wg sync.WaitGroup
	for i, inst := range insts {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = m.Delete(id)
		}(i, inst.ID)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
