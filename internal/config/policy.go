package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/grid-feasibility-service/internal/domain"
)

// LoadPolicy returns the engine policy. Values from the YAML file at path are
// layered over domain.DefaultPolicy; an empty path yields the defaults.
// Unknown keys are rejected so typos do not silently fall back to defaults.
func LoadPolicy(path string) (domain.Policy, error) {
	policy := domain.DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Policy{}, fmt.Errorf("read policy file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&policy); err != nil && !errors.Is(err, io.EOF) {
		return domain.Policy{}, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	if err := policy.Validate(); err != nil {
		return domain.Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return policy, nil
}
