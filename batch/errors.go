package batch

import (
	"errors"

	"github.com/certforge/certbatch/archive"
	"github.com/certforge/certbatch/provider"
	"github.com/certforge/certbatch/sign"
)

var (
	// ErrBusy is returned by Start while another run is active. Runs are
	// rejected, not queued.
	ErrBusy = errors.New("a batch run is already active")

	// ErrEmptyInput rejects a request with no recipients.
	ErrEmptyInput = errors.New("recipient list is empty")

	// ErrMissingTemplate rejects a request without a template document.
	ErrMissingTemplate = errors.New("no certificate template provided")
)

// Error kind identifiers carried in terminal ERROR messages.
const (
	KindTemplateInvalid     = "TEMPLATE_INVALID"
	KindPlaceholderNotFound = "PLACEHOLDER_NOT_FOUND"
	KindSignatureTooLarge   = "SIGNATURE_TOO_LARGE"
	KindSignatureAssembly   = "SIGNATURE_ASSEMBLY"
	KindProvider            = "PROVIDER"
	KindArchive             = "ARCHIVE"
	KindEmptyInput          = "EMPTY_INPUT"
	KindMissingTemplate     = "MISSING_TEMPLATE"
	KindInternal            = "INTERNAL"
)

// errorKind maps an error to its taxonomy identifier.
func errorKind(err error) string {
	var (
		template_invalid      *sign.TemplateInvalidError
		placeholder_insertion *sign.PlaceholderInsertionError
		placeholder_missing   *sign.PlaceholderNotFoundError
		signature_too_large   *sign.SignatureTooLargeError
		signature_assembly    *sign.SignatureAssemblyError
		provider_error        *provider.Error
		archive_error         *archive.Error
	)

	switch {
	case errors.Is(err, ErrEmptyInput):
		return KindEmptyInput
	case errors.Is(err, ErrMissingTemplate):
		return KindMissingTemplate
	case errors.As(err, &template_invalid),
		errors.As(err, &placeholder_insertion):
		return KindTemplateInvalid
	case errors.As(err, &placeholder_missing):
		return KindPlaceholderNotFound
	case errors.As(err, &signature_too_large):
		return KindSignatureTooLarge
	case errors.As(err, &signature_assembly):
		return KindSignatureAssembly
	case errors.As(err, &provider_error):
		return KindProvider
	case errors.As(err, &archive_error):
		return KindArchive
	default:
		return KindInternal
	}
}
