package model

import (
	"encoding/json"
	"log/slog"
)

const redacted = "[REDACTED]"

// Secret holds a credential such as a bot token. The value is only reachable
// through Reveal; formatting, logging and JSON encoding print a placeholder.
type Secret struct {
	value string
}

// NewSecret wraps a plaintext credential
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Reveal returns the plaintext credential
func (s Secret) Reveal() string { return s.value }

// IsEmpty reports whether no credential is held
func (s Secret) IsEmpty() bool { return s.value == "" }

func (s Secret) String() string {
	if s.value == "" {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string { return "model.Secret{" + s.String() + "}" }

// LogValue implements slog.LogValuer
func (s Secret) LogValue() slog.Value { return slog.StringValue(s.String()) }

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(s.String()) }
