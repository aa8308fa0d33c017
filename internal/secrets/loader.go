// Package secrets resolves credential values from configuration, preferring
// file-based sources so keys stay out of config files and process listings.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// Source describes where a credential comes from.
type Source struct {
	// Name identifies the credential in error messages.
	Name string
	// Value is an inline value from configuration or flags.
	Value string
	// File points to a file holding the value. A set File wins over Value.
	File string
}

// Load resolves the credential, trimming surrounding whitespace. It fails
// when neither File nor Value yields a non-empty result.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from %q: %w", name, file, err)
		}
		src.Value = string(data)
		src.File = file
	}

	value := strings.TrimSpace(src.Value)
	if value == "" {
		if src.File != "" {
			return "", fmt.Errorf("%s file %q holds no value", name, src.File)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}

	return value, nil
}
