package instance

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/getmockd/mockman/pkg/mockinstance"
)

func TestManagerCreateAndServeStaticResponse(t *testing.T) {
	m := NewManager()
	defer func() { _ = m.Shutdown() }()

	inst, err := m.Create(Spec{
		ID: "s1",
		Expectations: []mockinstance.Expectation{
			{
				Match: mockinstance.Match{Method: "GET", Path: "/ping"},
				Response: mockinstance.Response{
					Kind:   mockinstance.KindStatic,
					Static: &mockinstance.StaticResponse{StatusCode: 200, Body: "pong"},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inst.State != StateRunning {
		t.Fatalf("expected running state, got %v", inst.State)
	}

	waitForListener(t, inst.Port)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", inst.Port))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
}

func TestManagerEnforcesPortUniqueness(t *testing.T) {
	m := NewManager()
	defer func() { _ = m.Shutdown() }()

	first, err := m.Create(Spec{ID: "s1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = m.Create(Spec{ID: "s2", Port: first.Port})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ConflictError, got %v", err)
	}
}

func TestManagerRejectsDuplicateID(t *testing.T) {
	m := NewManager()
	defer func() { _ = m.Shutdown() }()

	if _, err := m.Create(Spec{ID: "dup"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := m.Create(Spec{ID: "dup"})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected *ConflictError for duplicate id, got %v", err)
	}
}

func TestManagerGeneratesIDWhenBlank(t *testing.T) {
	m := NewManager()
	defer func() { _ = m.Shutdown() }()

	inst, err := m.Create(Spec{ID: ""})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inst.ID == "" {
		t.Fatal("expected a generated instance id, got blank")
	}

	inst2, err := m.Create(Spec{ID: ""})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if inst2.ID == inst.ID {
		t.Fatalf("expected distinct generated ids, got %q twice", inst.ID)
	}
}

func TestManagerRejectsOutOfRangePort(t *testing.T) {
	m := NewManager()
	defer func() { _ = m.Shutdown() }()

	var validationErr *ValidationError
	if _, err := m.Create(Spec{ID: "bad-port", Port: 80}); !errors.As(err, &validationErr) {
		t.Fatalf("expected *ValidationError for out-of-range port, got %v", err)
	}
}

func TestManagerDeleteFreesPortForReuse(t *testing.T) {
	m := NewManager()
	defer func() { _ = m.Shutdown() }()

	inst, err := m.Create(Spec{ID: "s1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	port := inst.Port

	if err := m.Delete(inst.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var notFound *NotFoundError
	if _, err := m.Get(inst.ID); !errors.As(err, &notFound) {
		t.Fatalf("expected *NotFoundError after delete, got %v", err)
	}

	again, err := m.Create(Spec{ID: "s1", Port: port})
	if err != nil {
		t.Fatalf("expected port %d to be reusable after delete, got %v", port, err)
	}
	if err := m.Delete(again.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestManagerCreateWithTLSMaterial(t *testing.T) {
	certPEM, keyPEM := generateSelfSignedCert(t)

	m := NewManager()
	defer func() { _ = m.Shutdown() }()

	inst, err := m.Create(Spec{
		ID:  "s-tls",
		TLS: TLSSpec{Enabled: true, CertPEM: certPEM, KeyPEM: keyPEM},
		Expectations: []mockinstance.Expectation{
			{
				Match:    mockinstance.Match{Method: "GET", Path: "/ping"},
				Response: mockinstance.Response{Kind: mockinstance.KindStatic, Static: &mockinstance.StaticResponse{Body: "pong"}},
			},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	waitForListener(t, inst.Port)

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}}
	resp, err := client.Get(fmt.Sprintf("https://127.0.0.1:%d/ping", inst.Port))
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
}

func waitForListener(t *testing.T, port int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
		if err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func generateSelfSignedCert(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}

	keyBytes, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshaling key: %v", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes})
	return certPEM, keyPEM
}
