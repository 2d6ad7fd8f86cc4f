package cli

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/certforge/certbatch/batch"
	"github.com/certforge/certbatch/roster"
	"github.com/certforge/certbatch/sign"
)

// GenerateCommand runs one batch from the command line and writes the
// resulting archive to disk.
func GenerateCommand() {
	flags := flag.NewFlagSet("generate", flag.ExitOnError)

	out := flags.String("out", "certificates.zip", "Output archive path")
	certPath := flags.String("cert", "", "PEM certificate path")
	keyPath := flags.String("key", "", "PEM private key path")
	p12Path := flags.String("p12", "", "PKCS#12 bundle path (alternative to -cert/-key)")
	p12Password := flags.String("password", "", "PKCS#12 bundle password")
	place := flags.String("place", "", "Place and date caption")
	timeout := flags.Int("timeout", 0, "Artificial per-document signing delay in milliseconds")
	field := flags.String("field", roster.DefaultColumn, "Template field and roster column holding the recipient name")
	caption := flags.String("caption", "localEData", "Template field holding the place and date caption")
	reason := flags.String("reason", "", "Reason for signing")
	location := flags.String("location", "", "Location of the signatory")
	contact := flags.String("contact", "", "Contact information for signatory")
	optimize := flags.Bool("optimize", false, "Optimize the template before filling")
	tsa := flags.String("tsa", "", "URL for Time-Stamp Authority")

	flags.Usage = func() {
		fmt.Printf("Usage: %s generate [options] <template.pdf> <roster.xlsx>\n\n", os.Args[0])
		fmt.Println("Generate signed certificates for every name in the roster")
		fmt.Println("\nOptions:")
		flags.PrintDefaults()
		fmt.Println("\nExamples:")
		fmt.Printf("  %s generate -cert cert.crt -key key.key -place \"São Paulo, 1 de Janeiro.\" template.pdf roster.xlsx\n", os.Args[0])
		fmt.Printf("  %s generate -p12 bundle.p12 -password secret -out batch.zip template.pdf roster.xlsx\n", os.Args[0])
	}

	if err := flags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse generate flags: %v", err)
		osExit(1)
	}

	if len(flags.Args()) < 2 {
		flags.Usage()
		osExit(1)
		return
	}

	template, err := os.ReadFile(flags.Arg(0))
	if err != nil {
		log.Printf("Failed to read template: %v", err)
		osExit(1)
		return
	}

	if *optimize {
		template, err = optimizeTemplate(template)
		if err != nil {
			log.Printf("Failed to optimize template: %v", err)
			osExit(1)
			return
		}
	}

	roster_file, err := os.Open(flags.Arg(1))
	if err != nil {
		log.Printf("Failed to open roster: %v", err)
		osExit(1)
		return
	}
	names, err := roster.LoadColumn(roster_file, *field)
	roster_file.Close()
	if err != nil {
		log.Printf("Failed to load roster: %v", err)
		osExit(1)
		return
	}

	signing_provider, err := LoadProvider(*certPath, *keyPath, *p12Path, *p12Password)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}

	orchestrator := batch.New(signing_provider, batch.Options{
		NameField:    *field,
		CaptionField: *caption,
		Reason:       *reason,
		Location:     *location,
		ContactInfo:  *contact,
		TSA:          sign.TSA{URL: *tsa},
	})

	events, err := orchestrator.Start(batch.Request{
		Names:        names,
		PlaceAndDate: *place,
		Template:     template,
		Timeout:      time.Duration(*timeout) * time.Millisecond,
	})
	if err != nil {
		log.Printf("Failed to start batch: %v", err)
		osExit(1)
		return
	}

	for msg := range events {
		switch msg.Kind {
		case batch.MessageProgress:
			fmt.Printf("[%d/%d] %s\n", msg.Progress.Current, msg.Progress.Total, msg.Progress.Label)
		case batch.MessageComplete:
			if err := os.WriteFile(*out, msg.Archive, 0o644); err != nil {
				log.Printf("Failed to write archive: %v", err)
				osExit(1)
				return
			}
			fmt.Printf("Wrote %d certificates to %s\n", len(names), *out)
		case batch.MessageError:
			log.Printf("Batch failed (%s): %s", msg.ErrorKind, msg.Error)
			osExit(1)
			return
		}
	}
}

// optimizeTemplate runs the template through a relaxed-validation optimize
// pass, which repairs the slightly malformed files design tools tend to
// export.
func optimizeTemplate(template []byte) ([]byte, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	var buf bytes.Buffer
	if err := api.Optimize(bytes.NewReader(template), &buf, cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
