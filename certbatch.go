// Package certbatch produces personalized, digitally signed PDF
// certificates: for each recipient name it fills a PDF form template,
// embeds a detached CAdES signature and bundles all outputs into one zip
// archive.
//
// Basic usage:
//
//	p, err := provider.NewLocalFromPEM(certPEM, keyPEM)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	archive, err := certbatch.Generate(p, batch.Options{}, batch.Request{
//	    Names:        []string{"ANA", "BEN"},
//	    PlaceAndDate: "São Paulo, 1 de Janeiro.",
//	    Template:     template,
//	})
//
// The batch package exposes the same pipeline asynchronously with streaming
// progress; the sign package signs individual documents.
package certbatch

import (
	"github.com/certforge/certbatch/batch"
	"github.com/certforge/certbatch/provider"
)

// Generate runs one batch synchronously and returns the finished archive.
func Generate(p provider.Provider, opts batch.Options, req batch.Request) ([]byte, error) {
	return GenerateWithProgress(p, opts, req, nil)
}

// GenerateWithProgress runs one batch synchronously, invoking report for
// every progress event. The typed failure is returned as-is, not collapsed
// to a message string.
func GenerateWithProgress(p provider.Provider, opts batch.Options, req batch.Request, report func(batch.Progress)) ([]byte, error) {
	orchestrator := batch.New(p, opts)

	events, err := orchestrator.Start(req)
	if err != nil {
		return nil, err
	}

	var archive_bytes []byte
	for msg := range events {
		switch msg.Kind {
		case batch.MessageProgress:
			if report != nil {
				report(*msg.Progress)
			}
		case batch.MessageComplete:
			archive_bytes = msg.Archive
		case batch.MessageError:
			return nil, orchestrator.Job().Err
		}
	}

	return archive_bytes, nil
}
