// Package tlsmaterial validates and stores the PEM certificate, key, and CA
// material instances are configured with.
package tlsmaterial

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"
)

// ValidationWarning is a non-fatal observation surfaced alongside a
// successful validation (e.g. a CA certificate whose basicConstraints say
// it isn't actually a CA).
type ValidationWarning string

// ValidateCertificate decodes a PEM certificate blob, requiring the
// standard "BEGIN CERTIFICATE"/"END CERTIFICATE" markers, parses it as
// X.509, and checks that the current time falls within its validity
// window. It does not attempt to prove the certificate matches any key.
func ValidateCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("tlsmaterial: certificate PEM block missing BEGIN/END CERTIFICATE markers")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("tlsmaterial: parsing certificate: %w", err)
	}

	now := time.Now()
	if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
		return nil, fmt.Errorf("tlsmaterial: certificate is not valid at %s (validity %s .. %s)",
			now.Format(time.RFC3339), cert.NotBefore.Format(time.RFC3339), cert.NotAfter.Format(time.RFC3339))
	}

	return cert, nil
}

// privateKeyBlockTypes are the PEM block types the validator accepts for a
// private key. The validator does not require a specific key algorithm.
var privateKeyBlockTypes = map[string]bool{
	"PRIVATE KEY":     true,
	"RSA PRIVATE KEY": true,
	"EC PRIVATE KEY":  true,
}

// ValidateKey decodes a PEM private key blob, requiring one of "BEGIN
// PRIVATE KEY", "BEGIN RSA PRIVATE KEY", or "BEGIN EC PRIVATE KEY".
func ValidateKey(keyPEM []byte) error {
	block, _ := pem.Decode(keyPEM)
	if block == nil || !privateKeyBlockTypes[block.Type] {
		return fmt.Errorf("tlsmaterial: private key PEM block must be one of PRIVATE KEY, RSA PRIVATE KEY, EC PRIVATE KEY")
	}
	return nil
}

// ValidateCA validates a CA certificate blob the same way as
// ValidateCertificate, additionally checking basicConstraints. A
// certificate whose basicConstraints mark it as non-CA is returned along
// with a warning rather than an error.
func ValidateCA(caPEM []byte) (*x509.Certificate, *ValidationWarning, error) {
	cert, err := ValidateCertificate(caPEM)
	if err != nil {
		return nil, nil, err
	}
	if !cert.IsCA {
		w := ValidationWarning(fmt.Sprintf("certificate %q has basicConstraints CA=false", cert.Subject.CommonName))
		return cert, &w, nil
	}
	return cert, nil, nil
}
