package adapter

import (
	"reflect"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the layout used by the built-in time.Time adapter.
const DateLayout = "2006-01-02"

// DMYLayout is the day-first layout found in Czech registry exports.
const DMYLayout = "02.01.2006"

// String passes cell text through unchanged.
type String struct{}

func (String) Parse(s string) (any, error) { return s, nil }

func (String) Format(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Want: "string", Got: v}
	}
	return s, nil
}

// Trim is String with surrounding whitespace removed in both directions.
type Trim struct{}

func (Trim) Parse(s string) (any, error) { return strings.TrimSpace(s), nil }

func (Trim) Format(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Want: "string", Got: v}
	}
	return strings.TrimSpace(s), nil
}

// Int handles the signed integer kinds. Typ is the concrete Go type produced
// by Parse.
type Int struct {
	Typ reflect.Type
}

func (a Int) Parse(s string) (any, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, a.Typ.Bits())
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(n).Convert(a.Typ).Interface(), nil
}

func (a Int) Format(v any) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	}
	return "", &TypeError{Want: a.Typ.String(), Got: v}
}

// Uint handles the unsigned integer kinds.
type Uint struct {
	Typ reflect.Type
}

func (a Uint) Parse(s string) (any, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, a.Typ.Bits())
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(n).Convert(a.Typ).Interface(), nil
}

func (a Uint) Format(v any) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	}
	return "", &TypeError{Want: a.Typ.String(), Got: v}
}

// Float handles float32 and float64 using the shortest representation that
// parses back to the same value.
type Float struct {
	Typ reflect.Type
}

func (a Float) Parse(s string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), a.Typ.Bits())
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(f).Convert(a.Typ).Interface(), nil
}

func (a Float) Format(v any) (string, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, a.Typ.Bits()), nil
	}
	return "", &TypeError{Want: a.Typ.String(), Got: v}
}

// Bool accepts anything strconv.ParseBool does and writes true/false.
type Bool struct{}

func (Bool) Parse(s string) (any, error) { return strconv.ParseBool(strings.TrimSpace(s)) }

func (Bool) Format(v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", &TypeError{Want: "bool", Got: v}
	}
	return strconv.FormatBool(b), nil
}

// DigitBool writes 1/0 and reads the same forms Bool does.
type DigitBool struct{}

func (DigitBool) Parse(s string) (any, error) { return Bool{}.Parse(s) }

func (DigitBool) Format(v any) (string, error) {
	b, ok := v.(bool)
	if !ok {
		return "", &TypeError{Want: "bool", Got: v}
	}
	if b {
		return "1", nil
	}
	return "0", nil
}

// Time formats time.Time values with Layout.
type Time struct {
	Layout string
}

func (a Time) Parse(s string) (any, error) {
	return time.Parse(a.Layout, strings.TrimSpace(s))
}

func (a Time) Format(v any) (string, error) {
	t, ok := v.(time.Time)
	if !ok {
		return "", &TypeError{Want: "time.Time", Got: v}
	}
	return t.Format(a.Layout), nil
}

// builtinFor returns the built-in adapter for t, or nil. Only unnamed
// predeclared types and time.Time match; named types need an override.
func builtinFor(t reflect.Type) Adapter {
	if t == timeType {
		return Time{Layout: DateLayout}
	}
	if t.PkgPath() != "" {
		return nil
	}
	switch t.Kind() {
	case reflect.String:
		return String{}
	case reflect.Bool:
		return Bool{}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int{Typ: t}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Uint{Typ: t}
	case reflect.Float32, reflect.Float64:
		return Float{Typ: t}
	}
	return nil
}

var timeType = reflect.TypeFor[time.Time]()
