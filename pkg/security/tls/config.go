package tls

import (
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/cd-Crypton/anistream/pkg/config"
)

// ServerConfig builds the crypto/tls configuration for the HTTP server.
// Certificates are served by r so they can rotate while running.
func ServerConfig(cfg config.TLSConfig, r *Reloader) (*tls.Config, error) {
	if r == nil {
		return nil, errors.New("certificate reloader is required")
	}
	minVersion, err := ParseMinVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	// #nosec G402 - MinVersion is validated, TLS 1.0 and 1.1 are rejected
	return &tls.Config{
		MinVersion:     minVersion,
		GetCertificate: r.GetCertificate,
		NextProtos:     []string{"h2", "http/1.1"},
	}, nil
}

// ParseMinVersion maps "1.2" or "1.3" to the tls constant. "" means 1.2.
func ParseMinVersion(v string) (uint16, error) {
	switch v {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q", v)
	}
}
