package tlsmaterial

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/getmockd/mockman/pkg/logging"
)

// Material is the PEM content an instance was configured with. CAPEM must
// be non-empty to enable mTLS. The store records RequireClientAuth as
// given; its default of true for an mTLS block is applied when a
// configuration document is converted (config.ServerDocument.ToSpec).
type Material struct {
	CertPEM           []byte
	KeyPEM            []byte
	CAPEM             []byte
	RequireClientAuth bool
}

// Store materializes PEM blobs to temporary files scoped to an instance id,
// since crypto/tls and most TLS-consuming libraries want file paths rather
// than in-memory bytes. It tracks every file it wrote per instance id so
// they can be deleted atomically with the instance.
type Store struct {
	mu    sync.Mutex
	paths map[string][]string
	dir   string
	log   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report cleanup failures.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithBaseDir overrides the directory temporary files are written under.
// Defaults to os.TempDir().
func WithBaseDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.dir = dir
		}
	}
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		paths: make(map[string][]string),
		dir:   os.TempDir(),
		log:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Materialize writes the given material's PEM blobs to temp files under
// instanceId, replacing any previous files for that id. Returns the
// certificate, key, and (if present) CA file paths.
func (s *Store) Materialize(instanceID string, m Material) (certPath, keyPath, caPath string, err error) {
	dir, err := os.MkdirTemp(s.dir, "mockman-tls-"+sanitize(instanceID)+"-")
	if err != nil {
		return "", "", "", fmt.Errorf("tlsmaterial: creating temp dir: %w", err)
	}

	written := []string{dir}
	cleanup := func() {
		for _, p := range written {
			_ = os.RemoveAll(p)
		}
	}

	certPath = filepath.Join(dir, "cert.pem")
	if err = os.WriteFile(certPath, m.CertPEM, 0o644); err != nil {
		cleanup()
		return "", "", "", fmt.Errorf("tlsmaterial: writing certificate: %w", err)
	}
	written = append(written, certPath)

	keyPath = filepath.Join(dir, "key.pem")
	if err = os.WriteFile(keyPath, m.KeyPEM, 0o600); err != nil {
		cleanup()
		return "", "", "", fmt.Errorf("tlsmaterial: writing key: %w", err)
	}
	written = append(written, keyPath)

	if len(m.CAPEM) > 0 {
		caPath = filepath.Join(dir, "ca.pem")
		if err = os.WriteFile(caPath, m.CAPEM, 0o644); err != nil {
			cleanup()
			return "", "", "", fmt.Errorf("tlsmaterial: writing CA certificate: %w", err)
		}
		written = append(written, caPath)
	}

	s.mu.Lock()
	s.paths[instanceID] = written
	s.mu.Unlock()

	return certPath, keyPath, caPath, nil
}

// Delete removes every file tracked for instanceId. Failures are logged,
// never returned: cleanup is always best-effort, per the cleanup-failure
// policy shared with every other component in this module.
func (s *Store) Delete(instanceID string) {
	s.mu.Lock()
	paths := s.paths[instanceID]
	delete(s.paths, instanceID)
	s.mu.Unlock()

	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			s.log.Warn("failed to remove TLS material", "instance_id", instanceID, "path", p, "error", err)
		}
	}
}

// DeleteAll removes every file for every instance still tracked.
// Manager.Shutdown does not call it; it deletes each instance's files
// through Delete.
func (s *Store) DeleteAll() {
	s.mu.Lock()
	all := s.paths
	s.paths = make(map[string][]string)
	s.mu.Unlock()

	for id, paths := range all {
		for _, p := range paths {
			if err := os.RemoveAll(p); err != nil {
				s.log.Warn("failed to remove TLS material on shutdown", "instance_id", id, "path", p, "error", err)
			}
		}
	}
}

func sanitize(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "instance"
	}
	return string(out)
}
