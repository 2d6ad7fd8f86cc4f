// Package batch drives the certificate pipeline across a recipient list:
// fill all documents, sign all documents, bundle the results, streaming
// progress to the caller over a message channel.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/certforge/certbatch/archive"
	"github.com/certforge/certbatch/prepare"
	"github.com/certforge/certbatch/provider"
	"github.com/certforge/certbatch/sign"
)

// Options tune a batch orchestrator. Zero values fall back to the template
// contract defaults.
type Options struct {
	// NameField and CaptionField are the template text fields receiving the
	// recipient name and the place-and-date caption.
	NameField    string
	CaptionField string

	// Signature dictionary metadata.
	Reason      string
	Location    string
	ContactInfo string

	TSA sign.TSA

	Logger *slog.Logger
}

const (
	defaultNameField    = "nomeParticipante"
	defaultCaptionField = "localEData"
)

// Orchestrator runs at most one batch at a time. Callers observe a run only
// through the channel returned by Start; the orchestrator never blocks on a
// slow consumer because the channel is sized for the whole run.
type Orchestrator struct {
	provider provider.Provider
	opts     Options
	log      *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	job    *Job
}

// New builds an orchestrator signing through the given provider.
func New(p provider.Provider, opts Options) *Orchestrator {
	if opts.NameField == "" {
		opts.NameField = defaultNameField
	}
	if opts.CaptionField == "" {
		opts.CaptionField = defaultCaptionField
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Orchestrator{
		provider: p,
		opts:     opts,
		log:      opts.Logger,
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Job returns the most recent run, or nil before the first Start.
func (o *Orchestrator) Job() *Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.job
}

// Start validates the request and launches the run on its own goroutine.
// The returned channel carries zero or more PROGRESS messages followed by
// exactly one COMPLETE or ERROR, then closes. A second Start while a run is
// active fails with ErrBusy; requests are rejected, not queued.
func (o *Orchestrator) Start(req Request) (<-chan Message, error) {
	if len(req.Template) == 0 {
		return nil, ErrMissingTemplate
	}
	if len(req.Names) == 0 {
		return nil, ErrEmptyInput
	}

	o.mu.Lock()
	if o.state == StateRunning {
		o.mu.Unlock()
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.state = StateRunning
	o.cancel = cancel
	o.job = newJob(len(req.Names))
	job := o.job
	o.mu.Unlock()

	// Sized for every progress message plus the terminal one, so the run
	// never blocks on the consumer.
	events := make(chan Message, 2*len(req.Names)+1)

	go o.run(ctx, req, job, events)

	return events, nil
}

// Terminate hard-cancels the active run. In-flight work is abandoned: no
// terminal message is emitted, the channel just closes.
func (o *Orchestrator) Terminate() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (o *Orchestrator) run(ctx context.Context, req Request, job *Job, events chan<- Message) {
	defer close(events)

	archive_bytes, err := o.execute(ctx, req, events)

	if ctx.Err() != nil {
		// Hard termination: abandon without a terminal message.
		o.log.Info("batch terminated", "job", job.ID)
		o.finish(job, StateIdle, ctx.Err())
		o.idle()
		return
	}

	if err != nil {
		kind := errorKind(err)
		o.log.Error("batch failed", "job", job.ID, "kind", kind, "error", err)
		o.finish(job, StateFailed, err)
		events <- Message{Kind: MessageError, Error: err.Error(), ErrorKind: kind}
		o.idle()
		return
	}

	o.log.Info("batch complete", "job", job.ID, "recipients", job.Recipients)
	o.finish(job, StateSucceeded, nil)
	events <- Message{Kind: MessageComplete, Archive: archive_bytes}
	o.idle()
}

func (o *Orchestrator) execute(ctx context.Context, req Request, events chan<- Message) ([]byte, error) {
	total := 2 * len(req.Names)

	required := []string{o.opts.NameField}
	if req.PlaceAndDate != "" {
		required = append(required, o.opts.CaptionField)
	}
	if err := prepare.Validate(req.Template, required...); err != nil {
		return nil, err
	}

	signer, err := provider.NewSigner(ctx, o.provider, req.Identity)
	if err != nil {
		return nil, err
	}

	// Phase 1: fill one document per recipient.
	filled := make([][]byte, 0, len(req.Names))
	for i, name := range req.Names {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		values := map[string]string{o.opts.NameField: name}
		if req.PlaceAndDate != "" {
			values[o.opts.CaptionField] = req.PlaceAndDate
		}

		document, err := prepare.Fill(req.Template, values)
		if err != nil {
			return nil, fmt.Errorf("failed to fill document for %q: %w", name, err)
		}
		filled = append(filled, document)

		events <- Message{Kind: MessageProgress, Progress: &Progress{
			Current: i + 1,
			Total:   total,
			Label:   fmt.Sprintf("Filling: %s (%d/%d)", name, i+1, len(req.Names)),
		}}
	}

	// Phase 2: sign every filled document.
	files := make([]archive.File, 0, len(filled))
	for i, document := range filled {
		if err := waitDelay(ctx, req.Timeout); err != nil {
			return nil, err
		}

		filename := fmt.Sprintf("%d-%s.pdf", i+1, req.Names[i])

		signed, err := sign.Sign(ctx, document, &sign.SignData{
			Reason:      o.opts.Reason,
			Location:    o.opts.Location,
			ContactInfo: o.opts.ContactInfo,
			Certificate: signer.Certificate(),
			Signer:      signer,
			TSA:         o.opts.TSA,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to sign %s: %w", filename, err)
		}
		files = append(files, archive.File{Name: filename, Content: signed})

		events <- Message{Kind: MessageProgress, Progress: &Progress{
			Current: len(filled) + i + 1,
			Total:   total,
			Label:   fmt.Sprintf("Signing: %s (%d/%d)", filename, i+1, len(filled)),
		}}
	}

	return archive.Build(files)
}

// finish records the job outcome. The orchestrator stays Running until the
// terminal message is on the channel; idle releases it afterwards, so an
// Idle poll always means the terminal message has been emitted.
func (o *Orchestrator) finish(job *Job, terminal State, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	job.FinishedAt = time.Now()
	job.State = terminal
	job.Err = err
}

func (o *Orchestrator) idle() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.state = StateIdle
	o.cancel = nil
}

// waitDelay models provider latency before a signing call. It returns early
// only on cancellation.
func waitDelay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
