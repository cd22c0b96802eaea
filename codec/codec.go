// Package codec turns response bodies into typed values and request values
// into bodies. Decoders are pluggable so an endpoint can pick the key naming
// convention its server uses.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// Decoder fills the value pointed to by v from data. Implementations must
// leave v untouched when they return an error.
type Decoder interface {
	Decode(data []byte, v any) error
}

// Encoder serialises a request payload.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// KeyStrategy selects how object keys are rewritten before matching fields.
type KeyStrategy int

const (
	// DefaultKeys uses keys as they are.
	DefaultKeys KeyStrategy = iota
	// SnakeCaseKeys rewrites snake_case keys to camelCase first.
	SnakeCaseKeys
)

func (s KeyStrategy) String() string {
	switch s {
	case SnakeCaseKeys:
		return "snake_case"
	default:
		return "default"
	}
}

var (
	// DefaultDecoder matches keys as they appear.
	DefaultDecoder Decoder = JSONDecoder{}
	// SnakeCaseDecoder converts snake_case keys before matching.
	SnakeCaseDecoder Decoder = JSONDecoder{Keys: SnakeCaseKeys}
	// DefaultEncoder produces compact JSON.
	DefaultEncoder Encoder = JSONEncoder{}
)

var errInvalidTarget = errors.New("decode target must be a non-nil pointer")

// JSONDecoder decodes JSON documents.
type JSONDecoder struct {
	Keys                  KeyStrategy
	DisallowUnknownFields bool
}

// Decode decodes into a fresh value and copies it into v only on success.
func (d JSONDecoder) Decode(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &DecodeError{Target: fmt.Sprintf("%T", v), Err: errInvalidTarget}
	}
	target := rv.Elem().Type()

	if d.Keys == SnakeCaseKeys {
		converted, err := convertKeys(data)
		if err != nil {
			return &DecodeError{Target: target.String(), Err: err}
		}
		data = converted
	}

	fresh := reflect.New(target)
	dec := json.NewDecoder(bytes.NewReader(data))
	if d.DisallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(fresh.Interface()); err != nil {
		return &DecodeError{Target: target.String(), Err: err}
	}
	if dec.More() {
		return &DecodeError{Target: target.String(), Err: errors.New("unexpected data after top-level value")}
	}

	rv.Elem().Set(fresh.Elem())
	return nil
}

// Decode decodes data into a T using d, or DefaultDecoder when d is nil.
// On failure the zero T is returned.
func Decode[T any](data []byte, d Decoder) (T, error) {
	if d == nil {
		d = DefaultDecoder
	}
	var out T
	if err := d.Decode(data, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// JSONEncoder encodes values as compact JSON.
type JSONEncoder struct{}

func (JSONEncoder) Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &EncodeError{Source: fmt.Sprintf("%T", v), Err: err}
	}
	return b, nil
}

// DecodeError reports a body that could not be turned into Target.
type DecodeError struct {
	Target string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Target, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// EncodeError reports a payload that could not be serialised.
type EncodeError struct {
	Source string
	Err    error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Source, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
