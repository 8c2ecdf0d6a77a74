package encryption

import (
	"fmt"

	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/config"
	"github.com/gigibardan-dev/jinfo-trip-app-sub001/internal/offline"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (offline.Encryptor, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "none":
		return NewNoneEncryptor(), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}

// EnsureKeys generates the age key pair for cfg if the configured type
// needs one and the keys do not exist yet. The none and test encryptors
// need no key material.
func EnsureKeys(cfg config.EncryptionConfig) error {
	switch cfg.Type {
	case "age", "":
		enc := NewAgeEncryptor(cfg)
		if enc.IsConfigured() {
			return nil
		}
		return enc.Setup()
	default:
		return nil
	}
}
