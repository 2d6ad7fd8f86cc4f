// Package config loads the service configuration from a TOML file.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
)

// DefaultLocation is where Read looks when no path is given.
var DefaultLocation = "./certbatch.conf"

// TSA configures the optional RFC 3161 timestamp authority.
type TSA struct {
	URL      string `toml:"url" valid:"url,optional"`
	Username string `toml:"username" valid:"optional"`
	Password string `toml:"password" valid:"optional"`
}

// Config is the root of the configuration file.
type Config struct {
	// Template text fields receiving the recipient name and the
	// place-and-date caption.
	NameField    string `toml:"name_field" valid:"optional"`
	CaptionField string `toml:"caption_field" valid:"optional"`

	// Signature dictionary metadata.
	Reason      string `toml:"reason" valid:"optional"`
	Location    string `toml:"location" valid:"optional"`
	ContactInfo string `toml:"contact_info" valid:"optional"`

	// Artificial per-document delay before signing, in milliseconds.
	TimeoutMS int `toml:"timeout_ms" valid:"range(0|3600000),optional"`

	// Listen address of the batch server.
	Listen string `toml:"listen" valid:"dialstring,optional"`

	TSA TSA `toml:"tsa"`
}

// Default returns the documented defaults.
func Default() Config {
	return Config{
		NameField:    "nomeParticipante",
		CaptionField: "localEData",
		Reason:       "Certificate of participation",
		Listen:       "localhost:8080",
	}
}

// ValidateFields validates all the fields of the config.
func (c Config) ValidateFields() error {
	_, err := govalidator.ValidateStruct(c)
	return err
}

// Read decodes and validates the config file at the given path, layering it
// over the defaults.
func Read(path string) (Config, error) {
	if path == "" {
		path = DefaultLocation
	}

	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config file is missing: %s", path)
	}

	c := Default()
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := c.ValidateFields(); err != nil {
		return Config{}, fmt.Errorf("config is not valid: %w", err)
	}

	return c, nil
}
