package searchql

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperator is matched by every InvalidOperatorError.
	ErrInvalidOperator = errors.New("invalid operator")

	// ErrLookup is matched by every LookupError.
	ErrLookup = errors.New("unknown node type")

	// ErrConfig is matched by every ConfigError.
	ErrConfig = errors.New("invalid registry configuration")
)

// InvalidOperatorError reports an operator name outside lt, gt, le, ge, eq, ne.
type InvalidOperatorError struct {
	Name string
	Key  string
}

func (e *InvalidOperatorError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("invalid operator %q in field %q", e.Name, e.Key)
	}
	return fmt.Sprintf("invalid operator %q", e.Name)
}

// Is reports whether target is ErrInvalidOperator.
func (e *InvalidOperatorError) Is(target error) bool {
	return target == ErrInvalidOperator
}

// LookupError reports a node type name missing from a registry.
type LookupError struct {
	Name     string
	Registry string
}

func (e *LookupError) Error() string {
	if e.Registry != "" {
		return fmt.Sprintf("node type %q not found in %s registry", e.Name, e.Registry)
	}
	return fmt.Sprintf("node type %q not found in registry", e.Name)
}

// Is reports whether target is ErrLookup.
func (e *LookupError) Is(target error) bool {
	return target == ErrLookup
}

// ConfigError is raised while a registry or derivation is being defined.
// It is never recoverable: callers are expected to abort startup.
type ConfigError struct {
	Name   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Reason)
}

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

func newConfigError(name, format string, args ...any) error {
	return &ConfigError{Name: name, Reason: fmt.Sprintf(format, args...)}
}
