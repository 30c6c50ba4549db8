// Package column resolves which struct field feeds which sheet column.
//
// Column metadata comes from a `sheet` struct tag or from a Table registered
// for the type. Columns are ordered by Descriptor.Index; indices are sort keys
// only, so gaps simply close up in the output.
//
//	type Person struct {
//		Name string `sheet:"1,name=name"`
//		Age  int    `sheet:"0,name=age"`
//		Born time.Time `sheet:"2,name=born,adapter=date.dmy"`
//	}
package column

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"sheetmap/pkg/adapter"
)

// TagName is the struct tag key read by the resolver.
const TagName = "sheet"

// Descriptor is the per-field column metadata.
type Descriptor struct {
	Index   int
	Name    string
	Adapter adapter.ID
}

// Table maps Go field names to descriptors. Registering a Table for a type
// replaces tag discovery for that type.
type Table map[string]Descriptor

// TagError reports a malformed `sheet` tag.
type TagError struct {
	Type  reflect.Type
	Field string
	Tag   string
	Msg   string
}

func (e *TagError) Error() string {
	return fmt.Sprintf("column: %v.%s: bad tag %q: %s", e.Type, e.Field, e.Tag, e.Msg)
}

// parseTag decodes `index[,name=x][,adapter=y]`. ok is false for an absent
// tag or "-".
func parseTag(t reflect.Type, f reflect.StructField) (Descriptor, bool, error) {
	tag, has := f.Tag.Lookup(TagName)
	if !has || tag == "-" {
		return Descriptor{}, false, nil
	}
	bad := func(msg string) error {
		return &TagError{Type: t, Field: f.Name, Tag: tag, Msg: msg}
	}

	parts := strings.Split(tag, ",")
	idx, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Descriptor{}, false, bad("index must be an integer")
	}
	if idx < 0 {
		return Descriptor{}, false, bad("index must not be negative")
	}
	d := Descriptor{Index: idx, Name: f.Name}
	for _, p := range parts[1:] {
		k, v, found := strings.Cut(strings.TrimSpace(p), "=")
		if !found {
			return Descriptor{}, false, bad("option " + strconv.Quote(p) + " is not key=value")
		}
		switch k {
		case "name":
			d.Name = v
		case "adapter":
			d.Adapter = adapter.ID(v)
		default:
			return Descriptor{}, false, bad("unknown option " + strconv.Quote(k))
		}
	}
	return d, true, nil
}
