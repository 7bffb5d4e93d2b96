package certs

import (
	"crypto/sha256"
	"crypto/x509"
	"testing"
	"time"
)

func parseLeaf(t *testing.T, cert *CertInfo) *x509.Certificate {
	t.Helper()
	if len(cert.TLSCert.Certificate) == 0 {
		t.Fatal("no certificate data")
	}
	leaf, err := x509.ParseCertificate(cert.TLSCert.Certificate[0])
	if err != nil {
		t.Fatalf("failed to parse cert: %v", err)
	}
	return leaf
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	cert, err := Generate(time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	leaf := parseLeaf(t, cert)

	if leaf.Subject.CommonName != "pvrbridge" {
		t.Errorf("CommonName = %q, want %q", leaf.Subject.CommonName, "pvrbridge")
	}
	if leaf.NotAfter.Before(time.Now()) {
		t.Error("cert is already expired")
	}
	if !cert.NotAfter.Equal(leaf.NotAfter) {
		t.Errorf("CertInfo.NotAfter = %v, cert says %v", cert.NotAfter, leaf.NotAfter)
	}

	wantFingerprint := sha256.Sum256(cert.TLSCert.Certificate[0])
	if cert.Fingerprint != wantFingerprint {
		t.Error("fingerprint does not match certificate bytes")
	}
	if cert.FingerprintBase64() == "" {
		t.Error("FingerprintBase64 returned empty string")
	}
}

func TestGenerateLoopbackNames(t *testing.T) {
	t.Parallel()
	cert, err := Generate(time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	leaf := parseLeaf(t, cert)

	var hasLocalhost bool
	for _, name := range leaf.DNSNames {
		if name == "localhost" {
			hasLocalhost = true
		}
	}
	if !hasLocalhost {
		t.Error("expected localhost in DNS names")
	}
	if len(leaf.IPAddresses) == 0 {
		t.Error("expected loopback IP addresses")
	}
}

func TestGenerateValidityCapped(t *testing.T) {
	t.Parallel()

	for _, validity := range []time.Duration{14 * 24 * time.Hour, 90 * 24 * time.Hour} {
		cert, err := Generate(validity)
		if err != nil {
			t.Fatalf("Generate(%v) failed: %v", validity, err)
		}
		leaf := parseLeaf(t, cert)
		got := leaf.NotAfter.Sub(leaf.NotBefore)
		if got > 14*24*time.Hour+2*time.Minute {
			t.Errorf("Generate(%v): validity %v exceeds the 14 day cap", validity, got)
		}
	}
}
