package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"
)

// ExpiryWarningWindow is how close to NotAfter a certificate must be before
// loading it logs a warning.
const ExpiryWarningWindow = 30 * 24 * time.Hour

// ValidateCertificate parses the leaf of cert and checks that it is
// currently valid.
func ValidateCertificate(cert *tls.Certificate, now time.Time) (*x509.Certificate, error) {
	if cert == nil || len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("certificate chain is empty")
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	if now.Before(leaf.NotBefore) {
		return nil, fmt.Errorf("certificate is not yet valid (valid from %s)", leaf.NotBefore.Format(time.RFC3339))
	}
	if now.After(leaf.NotAfter) {
		return nil, fmt.Errorf("certificate expired on %s", leaf.NotAfter.Format(time.RFC3339))
	}
	return leaf, nil
}

// ExpiresSoon reports whether leaf expires within ExpiryWarningWindow of
// now, and how long it has left.
func ExpiresSoon(leaf *x509.Certificate, now time.Time) (bool, time.Duration) {
	left := leaf.NotAfter.Sub(now)
	return left < ExpiryWarningWindow, left
}
