package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/certforge/certbatch/provider"
)

// LoadProvider builds a local signing provider from either a PEM pair or a
// PKCS#12 bundle.
func LoadProvider(cert_path, key_path, p12_path, p12_password string) (*provider.Local, error) {
	if p12_path != "" {
		data, err := os.ReadFile(p12_path)
		if err != nil {
			return nil, fmt.Errorf("failed to read PKCS#12 bundle: %w", err)
		}
		return provider.NewLocalFromPKCS12(data, p12_password)
	}

	if cert_path == "" || key_path == "" {
		return nil, errors.New("signing requires -cert and -key, or -p12")
	}

	cert_pem, err := os.ReadFile(cert_path)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate: %w", err)
	}
	key_pem, err := os.ReadFile(key_path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	return provider.NewLocalFromPEM(cert_pem, key_pem)
}
