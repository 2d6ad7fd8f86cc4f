// Package provider abstracts the signing credential: a certificate that can
// be exported and a key that can sign digests, living anywhere from process
// memory to a hardware token behind a remote API.
package provider

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
)

// Identity is an opaque reference to a credential held by a provider. The
// provider decides what the strings mean.
type Identity struct {
	Provider    string
	Certificate string
}

// Provider exports certificates and signs digests. Both operations take a
// context because real providers sit behind tokens or networks and can block
// for a long time.
type Provider interface {
	ExportCertificate(ctx context.Context, id Identity) ([]byte, error)
	Sign(ctx context.Context, digest_algorithm crypto.Hash, id Identity, digest []byte) ([]byte, error)
}

// Error wraps a provider failure with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Signer adapts a Provider credential to crypto.Signer so it can be handed
// to CMS assembly unchanged. The context given to NewSigner bounds every
// subsequent Sign call.
type Signer struct {
	ctx         context.Context
	provider    Provider
	identity    Identity
	certificate *x509.Certificate
}

// NewSigner exports and parses the credential's certificate (PEM or raw DER)
// and returns a signer bound to it.
func NewSigner(ctx context.Context, p Provider, id Identity) (*Signer, error) {
	exported, err := p.ExportCertificate(ctx, id)
	if err != nil {
		return nil, err
	}

	certificate, err := parseCertificate(exported)
	if err != nil {
		return nil, &Error{Op: "export_certificate", Err: err}
	}

	return &Signer{
		ctx:         ctx,
		provider:    p,
		identity:    id,
		certificate: certificate,
	}, nil
}

// Certificate returns the parsed signing certificate.
func (s *Signer) Certificate() *x509.Certificate {
	return s.certificate
}

// Public returns the certificate's public key.
func (s *Signer) Public() crypto.PublicKey {
	return s.certificate.PublicKey
}

// Sign signs a digest through the provider. The rand parameter is ignored;
// randomness, if any, is the provider's concern.
func (s *Signer) Sign(_ io.Reader, digest []byte, opts crypto.SignerOpts) ([]byte, error) {
	return s.provider.Sign(s.ctx, opts.HashFunc(), s.identity, digest)
}

func parseCertificate(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
		}
		data = block.Bytes
	}
	return x509.ParseCertificate(data)
}
