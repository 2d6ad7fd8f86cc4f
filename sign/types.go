package sign

import (
	"crypto"
	"crypto/x509"
	"time"
)

// TSA points at an RFC 3161 timestamp authority. Leave URL empty to skip
// timestamping.
type TSA struct {
	URL      string
	Username string
	Password string
}

// SignData carries everything needed to sign one prepared document.
type SignData struct {
	// Signature dictionary metadata. Empty strings are omitted.
	Reason      string
	Location    string
	ContactInfo string
	Date        time.Time

	DigestAlgorithm crypto.Hash
	Certificate     *x509.Certificate
	Signer          crypto.Signer
	TSA             TSA

	// SignatureMaxLength overrides the reserved /Contents capacity in hex
	// characters. Zero means estimate from the certificate.
	SignatureMaxLength uint32
}

// ByteRange describes the reserved signature region of one specific buffer
// version. Values holds [0, preLen, postStart, postLen]: the two byte ranges
// covered by the signature, bracketing the hex placeholder including its
// angle brackets. PlaceholderLength is the usable hex-character capacity
// between the brackets.
//
// The descriptor is only meaningful against the buffer it was computed from;
// the pre-excision and post-excision buffers differ in length.
type ByteRange struct {
	Values            [4]int64
	PlaceholderLength int
}
