package sign

import (
	"bytes"
	"context"
	"crypto"
	"encoding/asn1"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/digitorus/pkcs7"
	"github.com/digitorus/timestamp"
	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// signingCertificateAttribute builds the ESS signing-certificate signed
// attribute binding the signer certificate into the CMS envelope
// (RFC 5035 SigningCertificateV2, or RFC 2634 SigningCertificate for SHA-1).
func signingCertificateAttribute(data *SignData) (*pkcs7.Attribute, error) {
	hash := data.DigestAlgorithm.New()
	hash.Write(data.Certificate.Raw)

	var b cryptobyte.Builder
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // SigningCertificate
		b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // []ESSCertID, []ESSCertIDv2
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // ESSCertID, ESSCertIDv2
				if data.DigestAlgorithm.HashFunc() != crypto.SHA1 &&
					data.DigestAlgorithm.HashFunc() != crypto.SHA256 { // default SHA-256
					b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) { // AlgorithmIdentifier
						b.AddASN1ObjectIdentifier(getOIDFromHashAlgorithm(data.DigestAlgorithm))
					})
				}
				b.AddASN1OctetString(hash.Sum(nil)) // certHash
			})
		})
	})

	sse, err := b.Bytes()
	if err != nil {
		return nil, err
	}

	signing_certificate := pkcs7.Attribute{
		Type:  asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 47}, // SigningCertificateV2
		Value: asn1.RawValue{FullBytes: sse},
	}
	if data.DigestAlgorithm.HashFunc() == crypto.SHA1 {
		signing_certificate.Type = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 12} // SigningCertificate
	}

	return &signing_certificate, nil
}

// CreateSignature builds the detached CMS SignedData envelope over
// sign_content, the document bytes with the reserved /Contents region
// excised. The returned DER is what EmbedSignature writes back into the
// placeholder.
func CreateSignature(ctx context.Context, sign_content []byte, data *SignData) ([]byte, error) {
	signed_data, err := pkcs7.NewSignedData(sign_content)
	if err != nil {
		return nil, &SignatureAssemblyError{Msg: "new signed data", Err: err}
	}

	signed_data.SetDigestAlgorithm(getOIDFromHashAlgorithm(data.DigestAlgorithm))

	signing_certificate, err := signingCertificateAttribute(data)
	if err != nil {
		return nil, &SignatureAssemblyError{Msg: "signing certificate attribute", Err: err}
	}

	signer_config := pkcs7.SignerInfoConfig{
		ExtraSignedAttributes: []pkcs7.Attribute{*signing_certificate},
	}

	if err := signed_data.AddSignerChain(data.Certificate, data.Signer, nil, signer_config); err != nil {
		return nil, &SignatureAssemblyError{Msg: "add signer chain", Err: err}
	}

	// The document carries the content; the envelope must not.
	signed_data.Detach()

	if data.TSA.URL != "" {
		signature_data := signed_data.GetSignedData()

		timestamp_response, err := fetchTimestamp(ctx, data.TSA, signature_data.SignerInfos[0].EncryptedDigest)
		if err != nil {
			return nil, &SignatureAssemblyError{Msg: "get timestamp", Err: err}
		}

		ts, err := timestamp.ParseResponse(timestamp_response)
		if err != nil {
			return nil, &SignatureAssemblyError{Msg: "parse timestamp", Err: err}
		}

		if _, err := pkcs7.Parse(ts.RawToken); err != nil {
			return nil, &SignatureAssemblyError{Msg: "parse timestamp token", Err: err}
		}

		timestamp_attribute := pkcs7.Attribute{
			Type:  asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 16, 2, 14},
			Value: asn1.RawValue{FullBytes: ts.RawToken},
		}
		if err := signature_data.SignerInfos[0].SetUnauthenticatedAttributes([]pkcs7.Attribute{timestamp_attribute}); err != nil {
			return nil, &SignatureAssemblyError{Msg: "set timestamp attribute", Err: err}
		}
	}

	signature, err := signed_data.Finish()
	if err != nil {
		return nil, &SignatureAssemblyError{Msg: "finish signed data", Err: err}
	}

	// Round-trip the envelope so a malformed signature fails here instead of
	// inside a validator.
	if _, err := pkcs7.Parse(signature); err != nil {
		return nil, &SignatureAssemblyError{Msg: "produced signature does not parse", Err: err}
	}

	return signature, nil
}

func fetchTimestamp(ctx context.Context, tsa TSA, sign_content []byte) ([]byte, error) {
	sign_reader := bytes.NewReader(sign_content)
	ts_request, err := timestamp.CreateRequest(sign_reader, &timestamp.RequestOptions{
		Certificates: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	ts_request_reader := bytes.NewReader(ts_request)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tsa.URL, ts_request_reader)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare request (%s): %w", tsa.URL, err)
	}

	req.Header.Add("Content-Type", "application/timestamp-query")
	req.Header.Add("Content-Transfer-Encoding", "binary")

	if tsa.Username != "" && tsa.Password != "" {
		req.SetBasicAuth(tsa.Username, tsa.Password)
	}

	client := &http.Client{}
	resp, err := client.Do(req)
	code := 0

	if resp != nil {
		code = resp.StatusCode
	}

	if err != nil || (code < 200 || code > 299) {
		if err == nil {
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			return nil, errors.New("non success response (" + strconv.Itoa(code) + "): " + string(body))
		}

		return nil, errors.New("non success response (" + strconv.Itoa(code) + ")")
	}

	defer resp.Body.Close()
	timestamp_response_body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return timestamp_response_body, nil
}
