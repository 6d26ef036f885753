package config

import "encoding/json"

const redacted = "[REDACTED]"

// Secret holds a credential that must never reach logs or serialized output.
// Use Value() to read it.
type Secret string

// String implements fmt.Stringer
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// GoString implements fmt.GoStringer for %#v
func (s Secret) GoString() string {
	return "Secret(" + redacted + ")"
}

// Value returns the raw secret
func (s Secret) Value() string {
	return string(s)
}

// IsSet reports whether the secret has a value
func (s Secret) IsSet() bool {
	return s != ""
}

// MarshalJSON always writes the redacted form
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MarshalText always writes the redacted form
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts the raw value from yaml or the environment
func (s *Secret) UnmarshalText(text []byte) error {
	*s = Secret(text)
	return nil
}
