// Package adapter converts single cell strings to typed Go values and back.
//
// An Adapter is stateless and may be shared by every record, column and
// goroutine that needs it. Adapters are obtained from a Registry, which holds
// the built-in adapters (selected by exact field type) and the named adapters
// that a column can request as an override.
package adapter

import (
	"errors"
	"fmt"
	"reflect"
)

// Adapter is a bidirectional converter between a raw cell string and a typed
// value. Parse returns a value of the adapter's target type; Format accepts a
// value of that type (never nil, callers handle absent values).
type Adapter interface {
	Parse(s string) (any, error)
	Format(v any) (string, error)
}

// ID names an adapter registered with a Registry. The zero value NoOverride
// means "infer the adapter from the field type".
type ID string

// NoOverride is the sentinel carried by columns that use the type-inferred
// built-in adapter.
const NoOverride ID = ""

// Factory constructs a fresh Adapter for an override ID.
type Factory func() Adapter

// ErrDuplicateID is returned by Register when an ID is already taken.
var ErrDuplicateID = errors.New("adapter: id already registered")

// UnsupportedTypeError reports a field type with no built-in adapter and no
// override.
type UnsupportedTypeError struct {
	Type reflect.Type
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("adapter: no adapter for type %v", e.Type)
}

// UnknownAdapterError reports an override ID that was never registered.
type UnknownAdapterError struct {
	ID ID
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("adapter: unknown adapter id %q", string(e.ID))
}

// TypeError is returned by Format when the value is not of the type the
// adapter handles.
type TypeError struct {
	Want string
	Got  any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("adapter: cannot format %T as %s", e.Got, e.Want)
}
