package declarative

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadOptions configures YAML loading behavior.
type LoadOptions struct {
	AllowUnknownFields bool
}

// Load reads the configuration document at path. Unknown fields are rejected.
func Load(path string) (*ConfigurationFile, error) {
	return LoadWithOptions(path, LoadOptions{})
}

// LoadWithOptions reads the configuration document at path using
// caller-provided loading options.
func LoadWithOptions(path string, opts LoadOptions) (*ConfigurationFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // intentional: reading user-specified config file
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a configuration document. An empty document is valid and
// declares nothing.
func Parse(data []byte, opts LoadOptions) (*ConfigurationFile, error) {
	doc := &ConfigurationFile{}
	if opts.AllowUnknownFields {
		if err := yaml.Unmarshal(data, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return doc, nil
}
