// Package rowcodec turns one record into one delimited row and back, using a
// resolved column.Mapping.
//
// Rows are cells joined by Separator and terminated by a single newline.
// Cells are written verbatim: a separator or newline inside a value is not
// quoted or escaped and will corrupt the row when read back. Existing files
// depend on this layout, so it is kept as is.
package rowcodec

import (
	"fmt"
	"reflect"
	"strings"

	"sheetmap/pkg/column"
)

// Separator joins the cells of a row.
const Separator = ","

// FieldAccessError reports a field whose value could not be read or written.
// It indicates a malformed record or record type and is never retried.
type FieldAccessError struct {
	Type  reflect.Type
	Field string
	Err   error
}

func (e *FieldAccessError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("rowcodec: %v: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("rowcodec: %v.%s: %v", e.Type, e.Field, e.Err)
}

func (e *FieldAccessError) Unwrap() error { return e.Err }

// ParseError reports a cell that its column's adapter rejected.
type ParseError struct {
	Column int // 0-based position in the row
	Field  string
	Cell   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rowcodec: column %d (%s): parse %q: %v", e.Column, e.Field, e.Cell, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FieldCountError reports a row with more cells than the mapping has columns.
type FieldCountError struct {
	Want, Got int
}

func (e *FieldCountError) Error() string {
	return fmt.Sprintf("rowcodec: row has %d cells, mapping has %d columns", e.Got, e.Want)
}

// RenderHeader returns the display names joined and newline-terminated.
func RenderHeader(m *column.Mapping) string {
	return strings.Join(m.Names(), Separator) + "\n"
}

// Cells formats each mapped field of rec. Absent values (nil pointers) become
// empty strings. rec may be a struct value or a pointer to one.
func Cells(rec any, m *column.Mapping) ([]string, error) {
	rv, err := recordValue(rec, m)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(m.Columns))
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
		s, err := c.Adapter.Format(fv.Interface())
		if err != nil {
			return nil, &FieldAccessError{Type: m.Type, Field: c.Field.Name, Err: err}
		}
		out[i] = s
	}
	return out, nil
}

// RenderRow formats rec as one newline-terminated row.
func RenderRow(rec any, m *column.Mapping) (string, error) {
	cells, err := Cells(rec, m)
	if err != nil {
		return "", err
	}
	return strings.Join(cells, Separator) + "\n", nil
}

// ParseRow builds a T from one row. T must be the mapping's record type.
func ParseRow[T any](row string, m *column.Mapping) (T, error) {
	var rec T
	err := ParseRowInto(row, m, &rec)
	return rec, err
}

// ParseRowInto populates dst, a non-nil pointer to the mapping's record type,
// from one row. A trailing "\n" or "\r\n" is ignored. Empty cells leave their
// field untouched, so nullable fields stay nil.
func ParseRowInto(row string, m *column.Mapping, dst any) error {
	row = strings.TrimSuffix(row, "\n")
	row = strings.TrimSuffix(row, "\r")
	cells := strings.Split(row, Separator)
	if len(m.Columns) == 0 && row == "" {
		return nil
	}
	if len(cells) > len(m.Columns) {
		return &FieldCountError{Want: len(m.Columns), Got: len(cells)}
	}

	values := make([]any, len(m.Columns))
	for i, cell := range cells {
		if cell == "" {
			continue
		}
		c := m.Columns[i]
		v, err := c.Adapter.Parse(cell)
		if err != nil {
			return &ParseError{Column: i, Field: c.Field.Name, Cell: cell, Err: err}
		}
		values[i] = v
	}
	return Assign(dst, m, values)
}

func recordValue(rec any, m *column.Mapping) (reflect.Value, error) {
	rv := reflect.ValueOf(rec)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}, &FieldAccessError{Type: m.Type, Err: fmt.Errorf("nil record")}
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Type() != m.Type {
		return reflect.Value{}, &FieldAccessError{Type: m.Type, Err: fmt.Errorf("record is %T", rec)}
	}
	return rv, nil
}
