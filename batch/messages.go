package batch

import (
	"time"

	"github.com/certforge/certbatch/provider"
)

// Kind enumerates the messages crossing the caller/worker boundary. The
// payload of each kind has a fixed shape; callers switch on Kind instead of
// sniffing fields.
type Kind string

const (
	MessageGenerate Kind = "GENERATE_CERTIFICATES"
	MessageProgress Kind = "PROGRESS"
	MessageComplete Kind = "COMPLETE"
	MessageError    Kind = "ERROR"
)

// Request carries every input of one batch run. It is read-only for the
// run's duration; nothing is read from ambient service state.
type Request struct {
	Names        []string          `json:"names"`
	PlaceAndDate string            `json:"placeAndDate"`
	Template     []byte            `json:"pdfTemplate"`
	Timeout      time.Duration     `json:"timeout"`
	Identity     provider.Identity `json:"signingIdentity"`
}

// Progress reports batch advancement. Current increases strictly from 1 to
// Total; Total is fixed for the run at twice the recipient count (one unit
// to fill, one to sign, per recipient).
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Label   string `json:"label"`
}

// Message is one event on the run's channel: zero or more PROGRESS messages
// followed by exactly one COMPLETE or ERROR.
type Message struct {
	Kind     Kind      `json:"kind"`
	Progress *Progress `json:"progress,omitempty"`
	Archive  []byte    `json:"archive,omitempty"`
	Error    string    `json:"error,omitempty"`
	// ErrorKind preserves the failure taxonomy for programmatic handling,
	// alongside the human-readable Error text.
	ErrorKind string `json:"errorKind,omitempty"`
}
