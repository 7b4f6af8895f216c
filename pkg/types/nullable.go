// Package types provides nullable type implementations for handling optional values.
package types

import "encoding/json"

// Nullable represents a value that may be unset. The zero value is unset,
// which lets option structs tell "not given" apart from an explicit zero
// value such as false or 0.
type Nullable[T any] struct {
	Value T
	Valid bool // Valid is true if Value was set
}

// NullableFrom returns a set Nullable holding v.
func NullableFrom[T any](v T) Nullable[T] {
	return Nullable[T]{Value: v, Valid: true}
}

// Null returns an unset Nullable.
func Null[T any]() Nullable[T] {
	return Nullable[T]{}
}

// IsNil returns true if no value was set.
func (n Nullable[T]) IsNil() bool {
	return !n.Valid
}

// Set assigns v and marks the value as set.
func (n *Nullable[T]) Set(v T) {
	n.Value = v
	n.Valid = true
}

// ValueOr returns the value if set, otherwise def.
func (n Nullable[T]) ValueOr(def T) T {
	if n.Valid {
		return n.Value
	}
	return def
}

// Interface returns the value as any, or nil when unset.
func (n Nullable[T]) Interface() any {
	if !n.Valid {
		return nil
	}
	return n.Value
}

// MarshalJSON implements the json.Marshaler interface.
// Returns the value as JSON if set, or null otherwise.
func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Valid {
		return json.Marshal(n.Value)
	}
	return []byte("null"), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
// A JSON null leaves the value unset.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	var zero T
	if len(data) == 0 || string(data) == "null" {
		n.Value = zero
		n.Valid = false
		return nil
	}
	if err := json.Unmarshal(data, &n.Value); err != nil {
		return err
	}
	n.Valid = true
	return nil
}

var _ json.Marshaler = Nullable[string]{}
var _ json.Unmarshaler = &Nullable[string]{}
