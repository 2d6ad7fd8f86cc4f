package sign

import (
	"bytes"
	"context"
	"crypto"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/digitorus/pkcs7"

	"github.com/certforge/certbatch/internal/testpdf"
	"github.com/certforge/certbatch/internal/testpki"
)

func TestCreateSignature(t *testing.T) {
	pki := testpki.New(t)
	content := []byte("document bytes to be covered by the signature")

	data := &SignData{
		DigestAlgorithm: crypto.SHA256,
		Certificate:     pki.LeafCert,
		Signer:          pki.LeafKey,
	}

	signature, err := CreateSignature(context.Background(), content, data)
	if err != nil {
		t.Fatalf("CreateSignature failed: %v", err)
	}

	p7, err := pkcs7.Parse(signature)
	if err != nil {
		t.Fatalf("signature does not parse: %v", err)
	}

	// Detached: the envelope must not embed the content.
	if len(p7.Content) != 0 {
		t.Errorf("envelope embeds %d content bytes, want detached", len(p7.Content))
	}
	if len(p7.Certificates) != 1 {
		t.Errorf("envelope carries %d certificates, want 1", len(p7.Certificates))
	}
	if len(p7.Signers) != 1 {
		t.Errorf("envelope carries %d signers, want 1", len(p7.Signers))
	}

	p7.Content = content
	if err := p7.Verify(); err != nil {
		t.Errorf("signature does not verify against the content: %v", err)
	}
}

func TestCreateSignatureSHA1UsesLegacyAttribute(t *testing.T) {
	pki := testpki.New(t)

	attribute, err := signingCertificateAttribute(&SignData{
		DigestAlgorithm: crypto.SHA1,
		Certificate:     pki.LeafCert,
	})
	if err != nil {
		t.Fatalf("signingCertificateAttribute failed: %v", err)
	}

	want := "1.2.840.113549.1.9.16.2.12"
	if attribute.Type.String() != want {
		t.Errorf("attribute OID = %s, want %s", attribute.Type, want)
	}
}

func TestSignPrepared(t *testing.T) {
	pki := testpki.New(t)
	template := testpdf.Template("nomeParticipante")

	data := &SignData{
		Reason:      "Certificate of participation",
		Certificate: pki.LeafCert,
		Signer:      pki.LeafKey,
	}

	signed, err := Sign(context.Background(), template, data)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	if bytes.Contains(signed, []byte(signatureByteRangePlaceholder)) {
		t.Error("byte range placeholder survived signing")
	}

	ranged, byte_range, err := extractByteRange(signed)
	if err != nil {
		t.Fatalf("failed to read back byte range: %v", err)
	}

	contents_hex := signed[byte_range.Values[1]+1 : byte_range.Values[2]-1]
	raw := make([]byte, hex.DecodedLen(len(contents_hex)))
	if _, err := hex.Decode(raw, contents_hex); err != nil {
		t.Fatalf("embedded contents are not hex: %v", err)
	}

	p7, err := pkcs7.Parse(raw)
	if err != nil {
		t.Fatalf("embedded signature does not parse: %v", err)
	}

	covered := make([]byte, 0, byte_range.Values[1]+byte_range.Values[3])
	covered = append(covered, ranged[:byte_range.Values[1]]...)
	covered = append(covered, ranged[byte_range.Values[2]:]...)

	p7.Content = covered
	if err := p7.Verify(); err != nil {
		t.Errorf("embedded signature does not verify: %v", err)
	}
}

// extractByteRange parses the /ByteRange values out of a signed document.
func extractByteRange(signed []byte) ([]byte, ByteRange, error) {
	var byte_range ByteRange

	start := bytes.Index(signed, []byte("/ByteRange["))
	if start < 0 {
		return nil, byte_range, &PlaceholderNotFoundError{Msg: "no byte range in signed document"}
	}
	end := bytes.IndexByte(signed[start:], ']')
	if end < 0 {
		return nil, byte_range, &PlaceholderNotFoundError{Msg: "unterminated byte range"}
	}

	values := signed[start+len("/ByteRange[") : start+end]
	if _, err := fmt.Sscanf(string(values), "%d %d %d %d",
		&byte_range.Values[0], &byte_range.Values[1], &byte_range.Values[2], &byte_range.Values[3]); err != nil {
		return nil, byte_range, err
	}

	byte_range.PlaceholderLength = int(byte_range.Values[2]-byte_range.Values[1]) - 2
	return signed, byte_range, nil
}
