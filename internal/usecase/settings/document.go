package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/tokenmeter/internal/config"
	"github.com/kailas-cloud/tokenmeter/internal/domain/limits"
	"github.com/kailas-cloud/tokenmeter/internal/domain/payload"
)

// Document is a settings file. Sections left out of the file are nil and
// are not written.
//
//	limits:
//	  max_payload_size: 20000
//	  daily: 50000
//	  monthly: 1000000
//	api_key: ${OPENAI_API_KEY}
//	config:
//	  model: gpt-4o-mini
type Document struct {
	Limits *LimitsSection `yaml:"limits"`
	APIKey *string        `yaml:"api_key"`
	Config map[string]any `yaml:"config"`
}

// LimitsSection is the YAML form of limits.Limits.
type LimitsSection struct {
	MaxPayloadSize *int64 `yaml:"max_payload_size"`
	Daily          *int64 `yaml:"daily"`
	Monthly        *int64 `yaml:"monthly"`
}

// Limits converts the section to the persisted form.
func (s LimitsSection) Limits() limits.Limits {
	return limits.Limits{MaxPayloadSize: s.MaxPayloadSize, Daily: s.Daily, Monthly: s.Monthly}
}

// ProviderConfig returns the config overlay, or nil when the section is absent.
func (d Document) ProviderConfig() payload.Object {
	if d.Config == nil {
		return nil
	}
	return payload.Object(d.Config)
}

// IsEmpty reports whether the document has no section at all.
func (d Document) IsEmpty() bool {
	return d.Limits == nil && d.APIKey == nil && d.Config == nil
}

// ErrEmptyDocument is returned for a settings file with no known section.
var ErrEmptyDocument = errors.New("settings document has no limits, api_key or config section")

// Parse expands ${VAR} references and decodes a settings document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(config.ExpandEnv(data), &doc); err != nil {
		return Document{}, fmt.Errorf("parse settings: %w", err)
	}
	if doc.IsEmpty() {
		return Document{}, ErrEmptyDocument
	}
	return doc, nil
}

// LoadFile reads and parses a settings document.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Document{}, fmt.Errorf("read settings %s: %w", path, err)
	}
	return Parse(data)
}
