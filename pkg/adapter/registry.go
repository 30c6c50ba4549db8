package adapter

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Registry resolves adapters for column fields. Named factories are expected
// to be registered once at start-up; built-in adapters are created lazily on
// first use and cached per type. A Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[ID]Factory

	builtins sync.Map // reflect.Type -> Adapter
}

// NewRegistry returns a Registry with built-in type adapters and no named
// adapters.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[ID]Factory)}
}

// Register binds id to f. The NoOverride id and ids already in use are
// rejected.
func (r *Registry) Register(id ID, f Factory) error {
	if id == NoOverride {
		return fmt.Errorf("adapter: cannot register the empty id")
	}
	if f == nil {
		return fmt.Errorf("adapter: nil factory for %q", string(id))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, string(id))
	}
	r.factories[id] = f
	return nil
}

// MustRegister is Register for package init code.
func (r *Registry) MustRegister(id ID, f Factory) {
	if err := r.Register(id, f); err != nil {
		panic(err)
	}
}

// Resolve returns the adapter for a field of type fieldType. A non-empty
// override always wins and yields a new instance from its factory; otherwise
// the built-in adapter for the exact type is returned.
func (r *Registry) Resolve(fieldType reflect.Type, override ID) (Adapter, error) {
	if override != NoOverride {
		r.mu.RLock()
		f, ok := r.factories[override]
		r.mu.RUnlock()
		if !ok {
			return nil, &UnknownAdapterError{ID: override}
		}
		return f(), nil
	}

	if a, ok := r.builtins.Load(fieldType); ok {
		return a.(Adapter), nil
	}
	a := builtinFor(fieldType)
	if a == nil {
		return nil, &UnsupportedTypeError{Type: fieldType}
	}
	// Concurrent first lookups agree on whichever instance was stored first.
	actual, _ := r.builtins.LoadOrStore(fieldType, a)
	return actual.(Adapter), nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry, pre-loaded with the named
// adapters date, date.dmy, datetime, bool.digit and trim.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		r.MustRegister("date", func() Adapter { return Time{Layout: DateLayout} })
		r.MustRegister("date.dmy", func() Adapter { return Time{Layout: DMYLayout} })
		r.MustRegister("datetime", func() Adapter { return Time{Layout: time.RFC3339} })
		r.MustRegister("bool.digit", func() Adapter { return DigitBool{} })
		r.MustRegister("trim", func() Adapter { return Trim{} })
		defaultRegistry = r
	})
	return defaultRegistry
}
