package sign

import "fmt"

// TemplateInvalidError indicates the document does not satisfy the template
// contract (missing field, inconsistent byte layout).
type TemplateInvalidError struct {
	Msg string
}

func (e *TemplateInvalidError) Error() string {
	return e.Msg
}

// PlaceholderInsertionError indicates the signature dictionary could not be
// appended to the document.
type PlaceholderInsertionError struct {
	Msg string
	Err error
}

func (e *PlaceholderInsertionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *PlaceholderInsertionError) Unwrap() error {
	return e.Err
}

// PlaceholderNotFoundError indicates the document carries no ByteRange
// placeholder, meaning it was never prepared for signing.
type PlaceholderNotFoundError struct {
	Msg string
}

func (e *PlaceholderNotFoundError) Error() string {
	return e.Msg
}

// SignatureTooLargeError indicates the hex-encoded signature does not fit the
// reserved placeholder.
type SignatureTooLargeError struct {
	HexLength int
	Capacity  int
}

func (e *SignatureTooLargeError) Error() string {
	return fmt.Sprintf("signature exceeds placeholder length: %d > %d", e.HexLength, e.Capacity)
}

// SignatureAssemblyError indicates the CMS SignedData envelope could not be
// finalized into valid DER.
type SignatureAssemblyError struct {
	Msg string
	Err error
}

func (e *SignatureAssemblyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *SignatureAssemblyError) Unwrap() error {
	return e.Err
}
