package provider

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	pkcs12 "software.sslmate.com/src/go-pkcs12"
)

// Local holds the credential in process memory. Delay, when set, is applied
// before every operation to model token or network latency; it honors
// context cancellation, which is what batch timeouts rely on.
type Local struct {
	Certificate *x509.Certificate
	Key         crypto.Signer
	Delay       time.Duration
}

// NewLocalFromPEM builds a local provider from a PEM certificate and key
// pair.
func NewLocalFromPEM(cert_pem, key_pem []byte) (*Local, error) {
	certificate, err := parseCertificate(cert_pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	key, err := parsePrivateKey(key_pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Local{Certificate: certificate, Key: key}, nil
}

// NewLocalFromPKCS12 builds a local provider from a PKCS#12 bundle, the
// format signing credentials are usually issued in.
func NewLocalFromPKCS12(data []byte, password string) (*Local, error) {
	key, certificate, _, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PKCS#12 bundle: %w", err)
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("PKCS#12 key of type %T cannot sign", key)
	}

	return &Local{Certificate: certificate, Key: signer}, nil
}

// ExportCertificate returns the certificate in DER form.
func (l *Local) ExportCertificate(ctx context.Context, _ Identity) ([]byte, error) {
	if err := l.wait(ctx); err != nil {
		return nil, &Error{Op: "export_certificate", Err: err}
	}
	return l.Certificate.Raw, nil
}

// Sign signs the digest with the in-memory key.
func (l *Local) Sign(ctx context.Context, digest_algorithm crypto.Hash, _ Identity, digest []byte) ([]byte, error) {
	if err := l.wait(ctx); err != nil {
		return nil, &Error{Op: "sign", Err: err}
	}

	signature, err := l.Key.Sign(rand.Reader, digest, digest_algorithm)
	if err != nil {
		return nil, &Error{Op: "sign", Err: err}
	}
	return signature, nil
}

func (l *Local) wait(ctx context.Context) error {
	if l.Delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(l.Delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parsePrivateKey(key_pem []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(key_pem)
	if block == nil {
		return nil, errors.New("no PEM block found")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		signer, ok := key.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("key of type %T cannot sign", key)
		}
		return signer, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	return nil, errors.New("unsupported private key format")
}
