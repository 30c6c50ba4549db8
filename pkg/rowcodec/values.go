package rowcodec

import (
	"fmt"
	"reflect"

	"sheetmap/pkg/adapter"
	"sheetmap/pkg/column"
)

// Values returns the mapped field values of rec in column order, with nil for
// absent values and pointers dereferenced. It is the typed counterpart of
// Cells, used when binding records to database statements.
func Values(rec any, m *column.Mapping) ([]any, error) {
	rv, err := recordValue(rec, m)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(m.Columns))
	for i, c := range m.Columns {
		fv, err := rv.FieldByIndexErr(c.Field.Index)
		if err != nil {
			return nil, &FieldAccessError{Type: m.Type, Field: c.Field.Name, Err: err}
		}
		if c.Field.Nullable() {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		out[i] = fv.Interface()
	}
	return out, nil
}

// Assign stores values, in column order, into dst (a non-nil pointer to the
// mapping's record type). nil values are skipped. Values that are not directly
// assignable are converted: strings and byte slices go through the column's
// adapter, integers widen or narrow to the field's numeric kind, and integers
// become bools by comparing with zero. This covers what database/sql drivers
// hand back from a scan into *any.
func Assign(dst any, m *column.Mapping, values []any) error {
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Type() != m.Type {
		return &FieldAccessError{Type: m.Type, Err: fmt.Errorf("destination is %T, want *%v", dst, m.Type)}
	}
	if len(values) > len(m.Columns) {
		return &FieldCountError{Want: len(m.Columns), Got: len(values)}
	}
	rv = rv.Elem()

	for i, v := range values {
		if v == nil {
			continue
		}
		c := m.Columns[i]
		fv, err := settableField(rv, c.Field.Index)
		if err != nil {
			return &FieldAccessError{Type: m.Type, Field: c.Field.Name, Err: err}
		}
		cv, err := convert(v, c.Field.ValueType(), c.Adapter)
		if err != nil {
			return &FieldAccessError{Type: m.Type, Field: c.Field.Name, Err: err}
		}
		if c.Field.Nullable() {
			p := reflect.New(c.Field.ValueType())
			p.Elem().Set(cv)
			cv = p
		}
		fv.Set(cv)
	}
	return nil
}

// settableField walks an index path, allocating nil embedded pointers.
func settableField(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, fmt.Errorf("cannot allocate embedded %v", v.Type())
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}
	if !v.CanSet() {
		return reflect.Value{}, fmt.Errorf("field is not settable")
	}
	return v, nil
}

func convert(v any, t reflect.Type, a adapter.Adapter) (reflect.Value, error) {
	src := reflect.ValueOf(v)
	if src.Type().AssignableTo(t) {
		return src, nil
	}
	switch s := v.(type) {
	case string:
		return parseAs(s, t, a)
	case []byte:
		return parseAs(string(s), t, a)
	}

	sk, tk := src.Kind(), t.Kind()
	switch {
	case tk == reflect.Bool && isInteger(sk):
		return reflect.ValueOf(!src.IsZero()).Convert(t), nil
	case isNumber(sk) && isNumber(tk):
		return src.Convert(t), nil
	case tk == reflect.String:
		return reflect.ValueOf(fmt.Sprint(v)).Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %T to %v", v, t)
}

func parseAs(s string, t reflect.Type, a adapter.Adapter) (reflect.Value, error) {
	if s == "" && t.Kind() != reflect.String {
		return reflect.Zero(t), nil
	}
	pv, err := a.Parse(s)
	if err != nil {
		return reflect.Value{}, err
	}
	p := reflect.ValueOf(pv)
	if p.Type().AssignableTo(t) {
		return p, nil
	}
	if p.Type().ConvertibleTo(t) && p.Kind() == t.Kind() {
		return p.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("adapter produced %T, field is %v", pv, t)
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	return isInteger(k) || k == reflect.Float32 || k == reflect.Float64
}
