package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name under which API keys are stored in the OS keyring.
const KeyringService = "nomadically"

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over every other source.
	File string
	// Env names an environment variable consulted when File is unset.
	Env string
	// KeyringAccount is looked up under KeyringService when nothing else
	// produced a value.
	KeyringAccount string
}

// Load returns the resolved secret value from the provided source. Precedence is
// File, Env, Value, then the OS keyring. The returned secret is always trimmed.
// An error is returned when no source contains a usable secret.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if env := strings.TrimSpace(src.Env); env != "" {
		if secret := strings.TrimSpace(os.Getenv(env)); secret != "" {
			return secret, nil
		}
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	if account := strings.TrimSpace(src.KeyringAccount); account != "" {
		secret, err := keyring.Get(KeyringService, account)
		if err != nil {
			if errors.Is(err, keyring.ErrNotFound) {
				return "", fmt.Errorf("%s is not in the keyring under account %q", name, account)
			}
			return "", fmt.Errorf("reading %s from keyring: %w", name, err)
		}
		if secret = strings.TrimSpace(secret); secret != "" {
			return secret, nil
		}
	}

	return "", fmt.Errorf("%s is not configured", name)
}

// Store saves a secret in the OS keyring under KeyringService.
func Store(account, secret string) error {
	account = strings.TrimSpace(account)
	if account == "" {
		return errors.New("keyring account name is empty")
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return errors.New("refusing to store an empty secret")
	}
	return keyring.Set(KeyringService, account, secret)
}
