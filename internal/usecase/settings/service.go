// Package settings seeds the externally managed settings (limits, API key
// and provider config) into the store from a YAML document.
package settings

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Service applies settings documents.
type Service struct {
	store  Writer
	logger *zap.Logger
}

// New creates a Service. A nil logger discards output.
func New(store Writer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Apply writes every section present in doc and returns the names of the
// sections written.
func (s *Service) Apply(ctx context.Context, doc Document) ([]string, error) {
	var applied []string

	if doc.Limits != nil {
		if err := s.store.SetLimits(ctx, doc.Limits.Limits()); err != nil {
			return applied, fmt.Errorf("apply limits: %w", err)
		}
		applied = append(applied, "limits")
	}
	if doc.APIKey != nil {
		if err := s.store.SetAPIKey(ctx, *doc.APIKey); err != nil {
			return applied, fmt.Errorf("apply api key: %w", err)
		}
		applied = append(applied, "api_key")
	}
	if cfg := doc.ProviderConfig(); cfg != nil {
		if err := s.store.SetProviderConfig(ctx, cfg); err != nil {
			return applied, fmt.Errorf("apply provider config: %w", err)
		}
		applied = append(applied, "config")
	}

	s.logger.Info("settings applied", zap.Strings("sections", applied))
	return applied, nil
}

// ApplyFile loads the document at path and applies it.
func (s *Service) ApplyFile(ctx context.Context, path string) ([]string, error) {
	doc, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, doc)
}
