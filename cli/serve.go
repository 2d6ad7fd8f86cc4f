package cli

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/certforge/certbatch/batch"
	"github.com/certforge/certbatch/config"
	"github.com/certforge/certbatch/server"
	"github.com/certforge/certbatch/sign"
)

// ServeCommand runs the batch generation server.
func ServeCommand() {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)

	listen := flags.String("listen", "", "Listen address (overrides config)")
	configPath := flags.String("config", "", "Path to config file")
	certPath := flags.String("cert", "", "PEM certificate path")
	keyPath := flags.String("key", "", "PEM private key path")
	p12Path := flags.String("p12", "", "PKCS#12 bundle path (alternative to -cert/-key)")
	p12Password := flags.String("password", "", "PKCS#12 bundle password")

	flags.Usage = func() {
		fmt.Printf("Usage: %s serve [options]\n\n", os.Args[0])
		fmt.Println("Run the batch certificate generation server")
		fmt.Println("\nOptions:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse serve flags: %v", err)
		osExit(1)
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Read(*configPath)
		if err != nil {
			log.Println(err)
			osExit(1)
			return
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	signing_provider, err := LoadProvider(*certPath, *keyPath, *p12Path, *p12Password)
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	orchestrator := batch.New(signing_provider, batch.Options{
		NameField:    cfg.NameField,
		CaptionField: cfg.CaptionField,
		Reason:       cfg.Reason,
		Location:     cfg.Location,
		ContactInfo:  cfg.ContactInfo,
		TSA: sign.TSA{
			URL:      cfg.TSA.URL,
			Username: cfg.TSA.Username,
			Password: cfg.TSA.Password,
		},
		Logger: logger,
	})

	srv := server.New(orchestrator, cfg, logger)
	if err := srv.ListenAndServe(); err != nil {
		log.Printf("Server failed: %v", err)
		osExit(1)
	}
}
