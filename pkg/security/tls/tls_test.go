package tls

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cd-Crypton/anistream/pkg/config"
)

// writePair writes a self-signed certificate valid in [notBefore, notAfter]
// to dir and returns the file paths.
func writePair(t *testing.T, dir string, serial int64, notBefore, notAfter time.Time) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: "edge.anistream.test"},
		DNSNames:     []string{"edge.anistream.test"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatal(err)
	}

	certFile := filepath.Join(dir, "tls.crt")
	keyFile := filepath.Join(dir, "tls.key")
	// Key first so a watcher reacting to the certificate sees a matching pair.
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o644); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func validPair(t *testing.T, dir string, serial int64) (string, string) {
	now := time.Now()
	return writePair(t, dir, serial, now.Add(-time.Hour), now.Add(90*24*time.Hour))
}

func TestNewReloader(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name      string
		notBefore time.Time
		notAfter  time.Time
		wantErr   bool
	}{
		{"valid", now.Add(-time.Hour), now.Add(90 * 24 * time.Hour), false},
		{"expiring soon still loads", now.Add(-time.Hour), now.Add(24 * time.Hour), false},
		{"expired", now.Add(-48 * time.Hour), now.Add(-24 * time.Hour), true},
		{"not yet valid", now.Add(24 * time.Hour), now.Add(48 * time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certFile, keyFile := writePair(t, t.TempDir(), 1, tt.notBefore, tt.notAfter)
			r, err := NewReloader(certFile, keyFile)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewReloader() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			cert, err := r.GetCertificate(&tls.ClientHelloInfo{})
			if err != nil || cert == nil {
				t.Fatalf("GetCertificate() = %v, %v", cert, err)
			}
			if r.Leaf().Subject.CommonName != "edge.anistream.test" {
				t.Errorf("leaf subject = %q", r.Leaf().Subject.CommonName)
			}
		})
	}
}

func TestNewReloader_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewReloader(filepath.Join(dir, "tls.crt"), filepath.Join(dir, "tls.key")); err == nil {
		t.Error("NewReloader() with missing files returned nil error")
	}
}

func TestReloader_KeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := validPair(t, dir, 1)
	r, err := NewReloader(certFile, keyFile)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(certFile, []byte("not a certificate"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(); err == nil {
		t.Fatal("Reload() of a corrupt file returned nil error")
	}
	if r.Leaf().SerialNumber.Int64() != 1 {
		t.Error("previous certificate was dropped")
	}
}

func TestReloader_WatchPicksUpRenewal(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := validPair(t, dir, 1)
	r, err := NewReloader(certFile, keyFile)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.Start(ctx); err != nil {
		t.Fatal(err)
	}

	validPair(t, dir, 2)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if r.Leaf().SerialNumber.Int64() == 2 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("renewed certificate was not loaded")
}

func TestReloader_CloseIdempotent(t *testing.T) {
	certFile, keyFile := validPair(t, t.TempDir(), 1)
	r, err := NewReloader(certFile, keyFile)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestServerConfig(t *testing.T) {
	certFile, keyFile := validPair(t, t.TempDir(), 1)
	r, err := NewReloader(certFile, keyFile)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		version string
		want    uint16
		wantErr bool
	}{
		{"", tls.VersionTLS12, false},
		{"1.2", tls.VersionTLS12, false},
		{"1.3", tls.VersionTLS13, false},
		{"1.1", 0, true},
	}
	for _, tt := range tests {
		t.Run("min "+tt.version, func(t *testing.T) {
			cfg, err := ServerConfig(config.TLSConfig{Enabled: true, MinVersion: tt.version}, r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ServerConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if cfg.MinVersion != tt.want {
				t.Errorf("MinVersion = %x, want %x", cfg.MinVersion, tt.want)
			}
			if cert, err := cfg.GetCertificate(&tls.ClientHelloInfo{}); err != nil || cert == nil {
				t.Errorf("GetCertificate() = %v, %v", cert, err)
			}
		})
	}

	if _, err := ServerConfig(config.TLSConfig{}, nil); err == nil {
		t.Error("ServerConfig() without a reloader returned nil error")
	}
}

func TestExpiresSoon(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	leaf := &x509.Certificate{NotAfter: now.Add(10 * 24 * time.Hour)}
	if soon, left := ExpiresSoon(leaf, now); !soon || left != 10*24*time.Hour {
		t.Errorf("ExpiresSoon() = %v, %v", soon, left)
	}
	leaf.NotAfter = now.Add(60 * 24 * time.Hour)
	if soon, _ := ExpiresSoon(leaf, now); soon {
		t.Error("60 days reported as expiring soon")
	}
}
