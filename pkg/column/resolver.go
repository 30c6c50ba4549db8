package column

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"sheetmap/pkg/adapter"
)

// ErrNotStruct is returned when a record type is not a struct or pointer to
// struct.
var ErrNotStruct = errors.New("column: record type is not a struct")

// ErrAlreadyResolved is returned by Register when the type's mapping has
// already been built and published.
var ErrAlreadyResolved = errors.New("column: mapping already resolved")

// DuplicateColumnIndexError reports two or more fields of one record type that
// claim the same column index.
type DuplicateColumnIndexError struct {
	Type   reflect.Type
	Index  int
	Fields []string
}

func (e *DuplicateColumnIndexError) Error() string {
	return fmt.Sprintf("column: %v: index %d used by fields %s",
		e.Type, e.Index, strings.Join(e.Fields, ", "))
}

// Field is a mapped struct field.
type Field struct {
	Name  string
	Index []int        // reflect index path, including promoted fields
	Type  reflect.Type // declared type, possibly a pointer
}

// Nullable reports whether the field is a pointer; a nil pointer is an
// absent cell.
func (f Field) Nullable() bool { return f.Type.Kind() == reflect.Pointer }

// ValueType is the type handled by the field's adapter.
func (f Field) ValueType() reflect.Type {
	if f.Nullable() {
		return f.Type.Elem()
	}
	return f.Type
}

// Column pairs a field with its descriptor and resolved adapter.
type Column struct {
	Field      Field
	Descriptor Descriptor
	Adapter    adapter.Adapter
}

// Mapping is the resolved, index-ordered column list of a record type. It is
// immutable once returned by a Resolver.
type Mapping struct {
	Type    reflect.Type
	Columns []Column
}

// Len returns the number of columns.
func (m *Mapping) Len() int { return len(m.Columns) }

// Names returns the display names in column order.
func (m *Mapping) Names() []string {
	out := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		out[i] = c.Descriptor.Name
	}
	return out
}

type entry struct {
	once sync.Once
	// tbl is the explicit table captured when the entry was created; nil
	// means struct tags.
	tbl Table
	m   *Mapping
	err error
}

// Resolver builds and caches Mappings per record type. It is safe for
// concurrent use; each type is resolved at most once.
type Resolver struct {
	registry *adapter.Registry

	mu     sync.Mutex
	tables map[reflect.Type]Table

	cache sync.Map // reflect.Type -> *entry
}

// NewResolver returns a Resolver using reg for adapter lookup. A nil reg
// selects adapter.Default().
func NewResolver(reg *adapter.Registry) *Resolver {
	if reg == nil {
		reg = adapter.Default()
	}
	return &Resolver{registry: reg, tables: make(map[reflect.Type]Table)}
}

var (
	defaultResolverOnce sync.Once
	defaultResolver     *Resolver
)

// Default returns the process-wide Resolver backed by adapter.Default().
func Default() *Resolver {
	defaultResolverOnce.Do(func() { defaultResolver = NewResolver(nil) })
	return defaultResolver
}

// Register installs an explicit column table for t, used instead of struct
// tags. It must be called before the type is first resolved.
func (r *Resolver) Register(t reflect.Type, tbl Table) error {
	st, err := structType(t)
	if err != nil {
		return err
	}
	cp := make(Table, len(tbl))
	for k, v := range tbl {
		cp[k] = v
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cache.Load(st); ok {
		return fmt.Errorf("%w: %v", ErrAlreadyResolved, st)
	}
	r.tables[st] = cp
	return nil
}

// For resolves the mapping of T.
func For[T any](r *Resolver) (*Mapping, error) {
	return r.Resolve(reflect.TypeFor[T]())
}

// Resolve returns the cached Mapping for t, building it on first use.
// Failures are cached as well; a type that failed once fails every time.
func (r *Resolver) Resolve(t reflect.Type) (*Mapping, error) {
	st, err := structType(t)
	if err != nil {
		return nil, err
	}
	v, ok := r.cache.Load(st)
	if !ok {
		// Register checks the cache under mu as well, so a table is either
		// captured here or rejected there.
		r.mu.Lock()
		v, _ = r.cache.LoadOrStore(st, &entry{tbl: r.tables[st]})
		r.mu.Unlock()
	}
	e := v.(*entry)
	e.once.Do(func() { e.m, e.err = r.build(st, e.tbl) })
	return e.m, e.err
}

type pending struct {
	field Field
	desc  Descriptor
}

func (r *Resolver) build(t reflect.Type, tbl Table) (*Mapping, error) {
	cols, err := collect(t, tbl)
	if err != nil {
		return nil, err
	}
	if err := checkDuplicates(t, cols); err != nil {
		return nil, err
	}
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].desc.Index < cols[j].desc.Index })

	m := &Mapping{Type: t, Columns: make([]Column, 0, len(cols))}
	for _, c := range cols {
		a, err := r.registry.Resolve(c.field.ValueType(), c.desc.Adapter)
		if err != nil {
			return nil, fmt.Errorf("column: %v.%s: %w", t, c.field.Name, err)
		}
		m.Columns = append(m.Columns, Column{Field: c.field, Descriptor: c.desc, Adapter: a})
	}
	return m, nil
}

// collect enumerates the fields that carry a descriptor, in declaration
// order. A non-nil tbl replaces struct tags.
func collect(t reflect.Type, tbl Table) ([]pending, error) {
	explicit := tbl != nil
	var out []pending
	seen := make(map[string]bool, len(tbl))
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		var (
			d  Descriptor
			ok bool
		)
		if explicit {
			d, ok = tbl[f.Name]
			if ok && d.Index < 0 {
				return nil, &TagError{Type: t, Field: f.Name, Msg: "index must not be negative"}
			}
			if ok && d.Name == "" {
				d.Name = f.Name
			}
		} else {
			var err error
			d, ok, err = parseTag(t, f)
			if err != nil {
				return nil, err
			}
		}
		if !ok {
			continue
		}
		seen[f.Name] = true
		out = append(out, pending{
			field: Field{Name: f.Name, Index: f.Index, Type: f.Type},
			desc:  d,
		})
	}
	for name := range tbl {
		if !seen[name] {
			return nil, fmt.Errorf("column: %v has no exported field %q", t, name)
		}
	}
	return out, nil
}

func checkDuplicates(t reflect.Type, cols []pending) error {
	byIndex := make(map[int][]string, len(cols))
	for _, c := range cols {
		byIndex[c.desc.Index] = append(byIndex[c.desc.Index], c.field.Name)
	}
	var dup *DuplicateColumnIndexError
	for idx, names := range byIndex {
		if len(names) < 2 {
			continue
		}
		if dup == nil || idx < dup.Index {
			dup = &DuplicateColumnIndexError{Type: t, Index: idx, Fields: names}
		}
	}
	if dup != nil {
		return dup
	}
	return nil
}

func structType(t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, ErrNotStruct
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %v", ErrNotStruct, t)
	}
	return t, nil
}
