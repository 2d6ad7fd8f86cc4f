// Package testpki generates throwaway signing credentials for tests.
package testpki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"testing"
	"time"
)

// KeyProfile defines the key type of the generated credentials.
type KeyProfile string

const (
	RSA_2048   KeyProfile = "RSA_2048"
	ECDSA_P256 KeyProfile = "ECDSA_P256"
	ECDSA_P384 KeyProfile = "ECDSA_P384"
)

// TestPKI holds a root CA and one leaf signing credential issued by it.
type TestPKI struct {
	RootKey  crypto.Signer
	RootCert *x509.Certificate
	LeafKey  crypto.Signer
	LeafCert *x509.Certificate
}

// New creates a root CA and a leaf signing certificate with the default
// profile.
func New(t *testing.T) *TestPKI {
	return NewWithProfile(t, ECDSA_P256)
}

// NewWithProfile creates the hierarchy with the given key profile.
func NewWithProfile(t *testing.T, profile KeyProfile) *TestPKI {
	t.Helper()

	rootKey := GenerateKey(t, profile)
	rootTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "Certbatch Test Root CA",
			Organization: []string{"Certbatch Test Org"},
		},
		NotBefore:             time.Now().Add(-1 * time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	rootBytes, err := x509.CreateCertificate(rand.Reader, rootTemplate, rootTemplate, rootKey.Public(), rootKey)
	if err != nil {
		t.Fatalf("failed to create root cert: %v", err)
	}
	rootCert, err := x509.ParseCertificate(rootBytes)
	if err != nil {
		t.Fatalf("failed to parse root cert: %v", err)
	}

	leafKey := GenerateKey(t, profile)
	leafTemplate := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject: pkix.Name{
			CommonName:   "Certbatch Test Signer",
			Organization: []string{"Certbatch Test Org"},
		},
		NotBefore:   time.Now().Add(-1 * time.Hour),
		NotAfter:    time.Now().Add(24 * time.Hour),
		KeyUsage:    x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{x509.ExtKeyUsageEmailProtection},
	}
	leafBytes, err := x509.CreateCertificate(rand.Reader, leafTemplate, rootCert, leafKey.Public(), rootKey)
	if err != nil {
		t.Fatalf("failed to create leaf cert: %v", err)
	}
	leafCert, err := x509.ParseCertificate(leafBytes)
	if err != nil {
		t.Fatalf("failed to parse leaf cert: %v", err)
	}

	return &TestPKI{
		RootKey:  rootKey,
		RootCert: rootCert,
		LeafKey:  leafKey,
		LeafCert: leafCert,
	}
}

// GenerateKey creates a private key for the given profile.
func GenerateKey(t *testing.T, profile KeyProfile) crypto.Signer {
	t.Helper()

	var key crypto.Signer
	var err error
	switch profile {
	case RSA_2048:
		key, err = rsa.GenerateKey(rand.Reader, 2048)
	case ECDSA_P256:
		key, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	case ECDSA_P384:
		key, err = ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	default:
		t.Fatalf("unknown key profile %q", profile)
	}
	if err != nil {
		t.Fatalf("failed to generate %s key: %v", profile, err)
	}
	return key
}

// LeafCertPEM returns the leaf certificate in PEM form.
func (p *TestPKI) LeafCertPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: p.LeafCert.Raw})
}

// LeafKeyPEM returns the leaf key as PKCS#8 PEM.
func (p *TestPKI) LeafKeyPEM(t *testing.T) []byte {
	t.Helper()

	der, err := x509.MarshalPKCS8PrivateKey(p.LeafKey)
	if err != nil {
		t.Fatalf("failed to marshal leaf key: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}
