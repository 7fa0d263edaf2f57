package property

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/convert"
	"github.com/Konsultn-Engineering/tabular/engine"
	"github.com/Konsultn-Engineering/tabular/errs"
)

// MapEntry is one row of a map property table.
type MapEntry[S any, K comparable, V any] struct {
	Subject S
	Key     K
	Value   V
}

// MapTable describes where a map property of subjects of type S is stored.
// The subject's and the key's columns form the primary key of the table.
type MapTable[S any, K comparable, V any] struct {
	name    string
	table   *ast.Table
	subject convert.Converter
	entries *convert.Struct[MapEntry[S, K, V]]
}

// MapTableConfig configures a MapTable.
type MapTableConfig[S any, K comparable, V any] struct {
	// ExtractKey derives the context handed to the key converter on recovery.
	ExtractKey func(subject S) any
	// ExtractValue derives the context handed to the value converter.
	ExtractValue func(subject S, key K) any
}

// NewMapTable declares the table of the map property name.
func NewMapTable[S any, K comparable, V any](name string, subject, key, val convert.Converter, cfg MapTableConfig[S, K, V]) (*MapTable[S, K, V], error) {
	if subject == nil || key == nil || val == nil {
		return nil, errs.Structural("property "+name, "missing converter")
	}

	entries, err := convert.NewStruct(subject.TypeName()+"."+name,
		func(v []any, _ any) (MapEntry[S, K, V], error) {
			var e MapEntry[S, K, V]
			var ok bool
			if e.Subject, ok = as[S](v[0]); !ok {
				return e, fmt.Errorf("subject: unexpected %T", v[0])
			}
			if e.Key, ok = as[K](v[1]); !ok {
				return e, fmt.Errorf("key: unexpected %T", v[1])
			}
			if e.Value, ok = as[V](v[2]); !ok {
				return e, fmt.Errorf("value: unexpected %T", v[2])
			}
			return e, nil
		},
		convert.Field(subjectField, subject, func(e MapEntry[S, K, V]) any { return e.Subject }, convert.Annotate("primary")),
		convert.Field("key", key, func(e MapEntry[S, K, V]) any { return e.Key },
			convert.Annotate("primary"),
			convert.Provide(func(recovered []any, _ any) any {
				if cfg.ExtractKey == nil {
					return nil
				}
				s, _ := as[S](recovered[0])
				return cfg.ExtractKey(s)
			})),
		convert.Field("value", val, func(e MapEntry[S, K, V]) any { return e.Value },
			convert.Provide(func(recovered []any, _ any) any {
				if cfg.ExtractValue == nil {
					return nil
				}
				s, _ := as[S](recovered[0])
				k, _ := as[K](recovered[1])
				return cfg.ExtractValue(s, k)
			})),
	)
	if err != nil {
		return nil, err
	}
	return &MapTable[S, K, V]{
		name:    name,
		table:   tableFor(subject.TypeName(), name),
		subject: subject,
		entries: entries,
	}, nil
}

func (t *MapTable[S, K, V]) Name() string      { return t.name }
func (t *MapTable[S, K, V]) Table() *ast.Table { return t.table }

// Create creates the table unless it exists.
func (t *MapTable[S, K, V]) Create(ctx context.Context, eng *engine.Engine) error {
	_, err := eng.CreateTable(ctx, t.entries, t.table, true)
	return err
}

// Property returns the map property of subject.
func (t *MapTable[S, K, V]) Property(eng *engine.Engine, subject S) *MapProperty[S, K, V] {
	return &MapProperty[S, K, V]{eng: eng, table: t, subject: subject, entries: map[K]V{}}
}

// MapObserver is notified of an added or removed entry.
type MapObserver[S any, K comparable, V any] func(subject S, key K, value V, added bool)

type mapChange[K comparable, V any] struct {
	key   K
	value V
	added bool
}

// MapProperty is the map of one subject.
type MapProperty[S any, K comparable, V any] struct {
	eng     *engine.Engine
	table   *MapTable[S, K, V]
	subject S

	mu        sync.Mutex
	state     State
	entries   map[K]V
	observers observers[MapObserver[S, K, V]]
}

func (p *MapProperty[S, K, V]) Subject() S { return p.subject }

func (p *MapProperty[S, K, V]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Observe registers fn and returns a function removing it.
func (p *MapProperty[S, K, V]) Observe(fn MapObserver[S, K, V]) (cancel func()) {
	return p.observers.add(fn)
}

// load replaces the cached entries with the stored ones. The caller holds
// p.mu.
func (p *MapProperty[S, K, V]) load(ctx context.Context) error {
	f := p.eng.From(p.table.entries, p.table.table).Match(p.table.subject, p.subject, subjectField)
	found, err := engine.SelectAll[MapEntry[S, K, V]](ctx, f)
	if err != nil {
		return fmt.Errorf("load %s: %w", p.table.name, err)
	}
	entries := make(map[K]V, len(found))
	for _, e := range found {
		entries[e.Key] = e.Value
	}
	p.entries = entries
	p.state = Loaded
	return nil
}

func (p *MapProperty[S, K, V]) ensure(ctx context.Context) error {
	if p.state == Loaded {
		return nil
	}
	return p.load(ctx)
}

// Get returns a copy of the map, loading it on first access.
func (p *MapProperty[S, K, V]) Get(ctx context.Context) (map[K]V, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensure(ctx); err != nil {
		return nil, err
	}
	return maps.Clone(p.entries), nil
}

// Value returns the value stored under key.
func (p *MapProperty[S, K, V]) Value(ctx context.Context, key K) (V, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensure(ctx); err != nil {
		var zero V
		return zero, false, err
	}
	v, ok := p.entries[key]
	return v, ok, nil
}

// Add stores value under key. It reports false and changes nothing when the
// key is already present.
func (p *MapProperty[S, K, V]) Add(ctx context.Context, key K, value V) (bool, error) {
	p.mu.Lock()
	if err := p.ensure(ctx); err != nil {
		p.mu.Unlock()
		return false, err
	}
	if _, ok := p.entries[key]; ok {
		p.mu.Unlock()
		return false, nil
	}

	entry := MapEntry[S, K, V]{Subject: p.subject, Key: key, Value: value}
	if _, err := p.eng.Insert(ctx, p.table.entries, p.table.table, entry); err != nil {
		p.mu.Unlock()
		return false, fmt.Errorf("add to %s: %w", p.table.name, err)
	}
	p.entries[key] = value
	p.mu.Unlock()

	p.notify([]mapChange[K, V]{{key: key, value: value, added: true}})
	return true, nil
}

// Remove deletes the entry under key. It reports false when there is none.
func (p *MapProperty[S, K, V]) Remove(ctx context.Context, key K) (bool, error) {
	p.mu.Lock()
	if err := p.ensure(ctx); err != nil {
		p.mu.Unlock()
		return false, err
	}
	value, ok := p.entries[key]
	if !ok {
		p.mu.Unlock()
		return false, nil
	}

	entry := MapEntry[S, K, V]{Subject: p.subject, Key: key, Value: value}
	if _, err := p.eng.Delete(ctx, p.table.entries, p.table.table, entry); err != nil {
		p.mu.Unlock()
		return false, fmt.Errorf("remove from %s: %w", p.table.name, err)
	}
	delete(p.entries, key)
	p.mu.Unlock()

	p.notify([]mapChange[K, V]{{key: key, value: value}})
	return true, nil
}

// Reset drops the cached map. With observers registered the map is reloaded
// instead and every difference is reported: removals first, then additions.
// A changed value counts as both.
func (p *MapProperty[S, K, V]) Reset(ctx context.Context) error {
	p.mu.Lock()
	if p.state == Unloaded {
		p.mu.Unlock()
		return nil
	}
	if p.observers.empty() {
		p.state = Unloaded
		p.entries = map[K]V{}
		p.mu.Unlock()
		return nil
	}

	old := p.entries
	if err := p.load(ctx); err != nil {
		p.state = Unloaded
		p.mu.Unlock()
		return err
	}
	current := p.entries
	p.mu.Unlock()

	var changes []mapChange[K, V]
	for k, v := range old {
		if nv, ok := current[k]; !ok || !equal(v, nv) {
			changes = append(changes, mapChange[K, V]{key: k, value: v})
		}
	}
	for k, v := range current {
		if ov, ok := old[k]; !ok || !equal(ov, v) {
			changes = append(changes, mapChange[K, V]{key: k, value: v, added: true})
		}
	}
	p.notify(changes)
	return nil
}

func (p *MapProperty[S, K, V]) notify(changes []mapChange[K, V]) {
	if len(changes) == 0 {
		return
	}
	fns := p.observers.snapshot()
	for _, c := range changes {
		for _, fn := range fns {
			fn(p.subject, c.key, c.value, c.added)
		}
	}
}
