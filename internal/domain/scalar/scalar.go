// Package scalar holds optional typed scalars that accept either their native
// JSON encoding or a string carrying the same value. Config sources that
// supply everything as text and sources that supply native types decode to
// identical values.
//
// Fields are declared as pointers: a nil pointer means the attribute was not
// given.
package scalar

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	domainErrors "netstate-agent/internal/domain/errors"
)

const (
	boolForms = "true|false|yes|no|y|n|on|off|1|0"
	uintForms = "unsigned integer or decimal string"
)

// Bool is a boolean that also accepts yes/no, on/off, y/n, 1/0 and their string forms
type Bool bool

// Uint8 is an 8 bit unsigned integer that also accepts a decimal string
type Uint8 uint8

// Uint16 is a 16 bit unsigned integer that also accepts a decimal string
type Uint16 uint16

// Uint32 is a 32 bit unsigned integer that also accepts a decimal string
type Uint32 uint32

// Uint64 is a 64 bit unsigned integer that also accepts a decimal string
type Uint64 uint64

// String is a string that also accepts numbers and booleans, kept in their textual form
type String string

func typeError(data []byte, forms string, target interface{}) error {
	return &json.UnmarshalTypeError{
		Value: fmt.Sprintf("%s (expecting %s)", string(data), forms),
		Type:  reflect.TypeOf(target),
	}
}

// rawText returns the unquoted text of a JSON string or the literal itself
func rawText(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", true, err
		}
		return s, true, nil
	}
	return string(data), false, nil
}

func parseBoolText(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "on", "1":
		return true, true
	case "false", "no", "n", "off", "0":
		return false, true
	}
	return false, false
}

func parseUintText(s string, bits int) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, false
	}
	return v, true
}

// UnmarshalJSON accepts a JSON boolean, a JSON number 0/1 or a string form
func (b *Bool) UnmarshalJSON(data []byte) error {
	text, _, err := rawText(data)
	if err != nil {
		return typeError(data, boolForms, *b)
	}
	v, ok := parseBoolText(text)
	if !ok {
		return typeError(data, boolForms, *b)
	}
	*b = Bool(v)
	return nil
}

func unmarshalUint(data []byte, bits int, target interface{}) (uint64, error) {
	text, _, err := rawText(data)
	if err != nil {
		return 0, typeError(data, uintForms, target)
	}
	v, ok := parseUintText(text, bits)
	if !ok {
		return 0, typeError(data, fmt.Sprintf("%s within %d bits", uintForms, bits), target)
	}
	return v, nil
}

// UnmarshalJSON accepts a JSON number or a decimal string
func (u *Uint8) UnmarshalJSON(data []byte) error {
	v, err := unmarshalUint(data, 8, *u)
	if err != nil {
		return err
	}
	*u = Uint8(v)
	return nil
}

// UnmarshalJSON accepts a JSON number or a decimal string
func (u *Uint16) UnmarshalJSON(data []byte) error {
	v, err := unmarshalUint(data, 16, *u)
	if err != nil {
		return err
	}
	*u = Uint16(v)
	return nil
}

// UnmarshalJSON accepts a JSON number or a decimal string
func (u *Uint32) UnmarshalJSON(data []byte) error {
	v, err := unmarshalUint(data, 32, *u)
	if err != nil {
		return err
	}
	*u = Uint32(v)
	return nil
}

// UnmarshalJSON accepts a JSON number or a decimal string
func (u *Uint64) UnmarshalJSON(data []byte) error {
	v, err := unmarshalUint(data, 64, *u)
	if err != nil {
		return err
	}
	*u = Uint64(v)
	return nil
}

// UnmarshalJSON accepts a JSON string, number or boolean
func (s *String) UnmarshalJSON(data []byte) error {
	text, quoted, err := rawText(data)
	if err != nil {
		return typeError(data, "string, number or boolean", *s)
	}
	if !quoted {
		if text == "null" || strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
			return typeError(data, "string, number or boolean", *s)
		}
	}
	*s = String(text)
	return nil
}

// ParseBool converts text input for the named field
func ParseBool(field, s string) (bool, error) {
	v, ok := parseBoolText(s)
	if !ok {
		return false, domainErrors.InvalidArgumentf(
			"invalid value %q for %s, expecting %s", s, field, boolForms)
	}
	return v, nil
}

// ParseUint converts decimal text input for the named field within the given bit size
func ParseUint(field, s string, bits int) (uint64, error) {
	v, ok := parseUintText(s, bits)
	if !ok {
		return 0, domainErrors.InvalidArgumentf(
			"invalid value %q for %s, expecting %s within %d bits", s, field, uintForms, bits)
	}
	return v, nil
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}

// NewBool returns an optional Bool holding v
func NewBool(v bool) *Bool { return Ptr(Bool(v)) }

// NewUint8 returns an optional Uint8 holding v
func NewUint8(v uint8) *Uint8 { return Ptr(Uint8(v)) }

// NewUint16 returns an optional Uint16 holding v
func NewUint16(v uint16) *Uint16 { return Ptr(Uint16(v)) }

// NewUint32 returns an optional Uint32 holding v
func NewUint32(v uint32) *Uint32 { return Ptr(Uint32(v)) }

// NewUint64 returns an optional Uint64 holding v
func NewUint64(v uint64) *Uint64 { return Ptr(Uint64(v)) }

// NewString returns an optional String holding v
func NewString(v string) *String { return Ptr(String(v)) }

// Equal reports whether two optional values are both absent or both present and equal
func Equal[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Changed reports whether desired is present and differs from current.
// An absent desired value never counts as a change.
func Changed[T comparable](desired, current *T) bool {
	if desired == nil {
		return false
	}
	return current == nil || *desired != *current
}

// Deref returns the pointed value or def when absent
func Deref[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}
