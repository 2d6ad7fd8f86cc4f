// Package sign appends digital signatures to PDF documents as incremental
// updates: a signature dictionary with reserved space, a detached CMS
// envelope over the document bytes, and the envelope spliced back into the
// reserved region so the original bytes stay untouched.
package sign

import (
	"context"
	"crypto"
	"time"
)

// Sign appends a signature placeholder to the document and signs it in one
// call.
func Sign(ctx context.Context, input []byte, data *SignData) ([]byte, error) {
	if err := applyDefaults(data); err != nil {
		return nil, err
	}

	prepared, err := AddPlaceholder(input, data)
	if err != nil {
		return nil, err
	}

	return SignPrepared(ctx, prepared, data)
}

// SignPrepared signs a document that already carries a signature placeholder:
// it writes the real byte range, excises the reserved contents, signs the
// remaining bytes and embeds the resulting envelope.
func SignPrepared(ctx context.Context, input []byte, data *SignData) ([]byte, error) {
	if err := applyDefaults(data); err != nil {
		return nil, err
	}

	ranged, byte_range, err := UpdateByteRange(input)
	if err != nil {
		return nil, err
	}

	excised, err := ExcisePlaceholder(ranged, byte_range)
	if err != nil {
		return nil, err
	}

	signature, err := CreateSignature(ctx, excised, data)
	if err != nil {
		return nil, err
	}

	return EmbedSignature(excised, byte_range, signature)
}

func applyDefaults(data *SignData) error {
	if data.Certificate == nil {
		return ErrNilCertificate
	}
	if data.Signer == nil {
		return ErrNilSigner
	}
	if err := ValidateSignerCertificateMatch(data.Signer, data.Certificate); err != nil {
		return err
	}

	if data.DigestAlgorithm == 0 {
		data.DigestAlgorithm = crypto.SHA256
	}
	if data.Date.IsZero() {
		data.Date = time.Now()
	}

	return nil
}
