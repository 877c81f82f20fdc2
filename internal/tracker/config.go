package tracker

import (
	"fmt"
	"strings"

	"doctrack/internal/domain"
)

// DefaultLimit is the number of history entries kept when no limit is set.
const DefaultLimit = 30

// Config is the per-document-type tracking configuration. It is immutable
// once built by NewConfig.
type Config struct {
	name    string
	fields  []string
	tracked map[string]struct{}
	limit   int
}

// ConfigOption customises a Config.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	name   string
	fields []string
	limit  int
}

// WithName sets the attribute that holds the history.
func WithName(name string) ConfigOption {
	return func(b *configBuilder) {
		b.name = name
	}
}

// WithFieldsToTrack sets the allow-list of tracked fields.
func WithFieldsToTrack(fields ...string) ConfigOption {
	return func(b *configBuilder) {
		b.fields = append([]string(nil), fields...)
	}
}

// WithLimit sets how many history entries are kept per document.
func WithLimit(limit int) ConfigOption {
	return func(b *configBuilder) {
		b.limit = limit
	}
}

// NewConfig validates the options and returns an immutable Config.
func NewConfig(opts ...ConfigOption) (Config, error) {
	b := configBuilder{
		name:  domain.DefaultHistoryName,
		limit: DefaultLimit,
	}
	for _, opt := range opts {
		opt(&b)
	}

	if b.limit < 0 {
		return Config{}, fmt.Errorf("%w: %w: got %d", domain.ErrInvalidConfig, domain.ErrInvalidLimit, b.limit)
	}
	if err := validateFieldName(b.name); err != nil {
		return Config{}, fmt.Errorf("%w: history name: %w", domain.ErrInvalidConfig, err)
	}

	cfg := Config{
		name:    b.name,
		tracked: make(map[string]struct{}, len(b.fields)),
		limit:   b.limit,
	}
	for _, f := range b.fields {
		if err := validateFieldName(f); err != nil {
			return Config{}, fmt.Errorf("%w: fields to track: %w", domain.ErrInvalidConfig, err)
		}
		if f == b.name {
			return Config{}, fmt.Errorf("%w: history field %q cannot track itself", domain.ErrInvalidConfig, f)
		}
		if _, dup := cfg.tracked[f]; dup {
			continue
		}
		cfg.tracked[f] = struct{}{}
		cfg.fields = append(cfg.fields, f)
	}
	return cfg, nil
}

// Name returns the history attribute name.
func (c Config) Name() string {
	if c.name == "" {
		return domain.DefaultHistoryName
	}
	return c.name
}

// TrackedFields returns the allow-list in registration order.
func (c Config) TrackedFields() []string {
	out := make([]string, len(c.fields))
	copy(out, c.fields)
	return out
}

// Limit returns the retention cap.
func (c Config) Limit() int {
	return c.limit
}

// IsTracked reports whether field is in the allow-list.
func (c Config) IsTracked(field string) bool {
	return IsTracked(field, c.tracked)
}

// validateFieldName rejects names that cannot address a top-level field.
func validateFieldName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", domain.ErrInvalidFieldName)
	case strings.Contains(name, "."):
		return fmt.Errorf("%w: %q is a nested path", domain.ErrInvalidFieldName, name)
	case strings.HasPrefix(name, "$"):
		return fmt.Errorf("%w: %q starts with $", domain.ErrInvalidFieldName, name)
	case name == domain.IDField:
		return fmt.Errorf("%w: %q is reserved", domain.ErrInvalidFieldName, name)
	}
	return nil
}
