package property

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/convert"
	"github.com/Konsultn-Engineering/tabular/engine"
	"github.com/Konsultn-Engineering/tabular/errs"
)

// SetEntry is one row of a set property table.
type SetEntry[S any, V comparable] struct {
	Subject S
	Value   V
}

// SetTable describes where a set property of subjects of type S is stored.
// The subject's and the value's columns form the primary key of the table.
type SetTable[S any, V comparable] struct {
	name    string
	table   *ast.Table
	subject convert.Converter
	entries *convert.Struct[SetEntry[S, V]]
}

// SetTableConfig configures a SetTable.
type SetTableConfig[S any, V comparable] struct {
	// Extract derives the context handed to the value converter on recovery.
	Extract func(subject S) any
}

// NewSetTable declares the table of the set property name.
func NewSetTable[S any, V comparable](name string, subject, val convert.Converter, cfg SetTableConfig[S, V]) (*SetTable[S, V], error) {
	if subject == nil || val == nil {
		return nil, errs.Structural("property "+name, "missing converter")
	}

	entries, err := convert.NewStruct(subject.TypeName()+"."+name,
		func(v []any, _ any) (SetEntry[S, V], error) {
			var e SetEntry[S, V]
			var ok bool
			if e.Subject, ok = as[S](v[0]); !ok {
				return e, fmt.Errorf("subject: unexpected %T", v[0])
			}
			if e.Value, ok = as[V](v[1]); !ok {
				return e, fmt.Errorf("value: unexpected %T", v[1])
			}
			return e, nil
		},
		convert.Field(subjectField, subject, func(e SetEntry[S, V]) any { return e.Subject }, convert.Annotate("primary")),
		convert.Field("value", val, func(e SetEntry[S, V]) any { return e.Value },
			convert.Annotate("primary"),
			convert.Provide(func(recovered []any, _ any) any {
				if cfg.Extract == nil {
					return nil
				}
				s, _ := as[S](recovered[0])
				return cfg.Extract(s)
			})),
	)
	if err != nil {
		return nil, err
	}
	return &SetTable[S, V]{
		name:    name,
		table:   tableFor(subject.TypeName(), name),
		subject: subject,
		entries: entries,
	}, nil
}

func (t *SetTable[S, V]) Name() string      { return t.name }
func (t *SetTable[S, V]) Table() *ast.Table { return t.table }

// Create creates the table unless it exists.
func (t *SetTable[S, V]) Create(ctx context.Context, eng *engine.Engine) error {
	_, err := eng.CreateTable(ctx, t.entries, t.table, true)
	return err
}

// Property returns the set property of subject.
func (t *SetTable[S, V]) Property(eng *engine.Engine, subject S) *SetProperty[S, V] {
	return &SetProperty[S, V]{eng: eng, table: t, subject: subject, members: map[V]struct{}{}}
}

// SetObserver is notified of an added or removed value.
type SetObserver[S any, V comparable] func(subject S, value V, added bool)

type setChange[V comparable] struct {
	value V
	added bool
}

// SetProperty is the set of one subject. Values keep the order in which they
// were loaded or added.
type SetProperty[S any, V comparable] struct {
	eng     *engine.Engine
	table   *SetTable[S, V]
	subject S

	mu        sync.Mutex
	state     State
	values    []V
	members   map[V]struct{}
	observers observers[SetObserver[S, V]]
}

func (p *SetProperty[S, V]) Subject() S { return p.subject }

func (p *SetProperty[S, V]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Observe registers fn and returns a function removing it.
func (p *SetProperty[S, V]) Observe(fn SetObserver[S, V]) (cancel func()) {
	return p.observers.add(fn)
}

// load replaces the cached values with the stored ones. The caller holds
// p.mu.
func (p *SetProperty[S, V]) load(ctx context.Context) error {
	f := p.eng.From(p.table.entries, p.table.table).Match(p.table.subject, p.subject, subjectField)
	found, err := engine.SelectAll[SetEntry[S, V]](ctx, f)
	if err != nil {
		return fmt.Errorf("load %s: %w", p.table.name, err)
	}
	values := make([]V, 0, len(found))
	members := make(map[V]struct{}, len(found))
	for _, e := range found {
		values = append(values, e.Value)
		members[e.Value] = struct{}{}
	}
	p.values, p.members = values, members
	p.state = Loaded
	return nil
}

func (p *SetProperty[S, V]) ensure(ctx context.Context) error {
	if p.state == Loaded {
		return nil
	}
	return p.load(ctx)
}

// Get returns a copy of the values, loading them on first access.
func (p *SetProperty[S, V]) Get(ctx context.Context) ([]V, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensure(ctx); err != nil {
		return nil, err
	}
	return slices.Clone(p.values), nil
}

// Contains reports whether value is in the set.
func (p *SetProperty[S, V]) Contains(ctx context.Context, value V) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensure(ctx); err != nil {
		return false, err
	}
	_, ok := p.members[value]
	return ok, nil
}

// Add stores value. It reports false and changes nothing when the value is
// already present.
func (p *SetProperty[S, V]) Add(ctx context.Context, value V) (bool, error) {
	p.mu.Lock()
	if err := p.ensure(ctx); err != nil {
		p.mu.Unlock()
		return false, err
	}
	if _, ok := p.members[value]; ok {
		p.mu.Unlock()
		return false, nil
	}

	entry := SetEntry[S, V]{Subject: p.subject, Value: value}
	if _, err := p.eng.Insert(ctx, p.table.entries, p.table.table, entry); err != nil {
		p.mu.Unlock()
		return false, fmt.Errorf("add to %s: %w", p.table.name, err)
	}
	p.values = append(p.values, value)
	p.members[value] = struct{}{}
	p.mu.Unlock()

	p.notify([]setChange[V]{{value: value, added: true}})
	return true, nil
}

// Remove deletes value. It reports false when the value is not present.
func (p *SetProperty[S, V]) Remove(ctx context.Context, value V) (bool, error) {
	p.mu.Lock()
	if err := p.ensure(ctx); err != nil {
		p.mu.Unlock()
		return false, err
	}
	if _, ok := p.members[value]; !ok {
		p.mu.Unlock()
		return false, nil
	}

	entry := SetEntry[S, V]{Subject: p.subject, Value: value}
	if _, err := p.eng.Delete(ctx, p.table.entries, p.table.table, entry); err != nil {
		p.mu.Unlock()
		return false, fmt.Errorf("remove from %s: %w", p.table.name, err)
	}
	p.values = slices.DeleteFunc(p.values, func(v V) bool { return v == value })
	delete(p.members, value)
	p.mu.Unlock()

	p.notify([]setChange[V]{{value: value}})
	return true, nil
}

// Reset drops the cached values. With observers registered the set is
// reloaded instead and every difference is reported: additions first, then
// removals.
func (p *SetProperty[S, V]) Reset(ctx context.Context) error {
	p.mu.Lock()
	if p.state == Unloaded {
		p.mu.Unlock()
		return nil
	}
	if p.observers.empty() {
		p.state = Unloaded
		p.values, p.members = nil, map[V]struct{}{}
		p.mu.Unlock()
		return nil
	}

	oldValues, oldMembers := p.values, p.members
	if err := p.load(ctx); err != nil {
		p.state = Unloaded
		p.mu.Unlock()
		return err
	}
	values, members := p.values, p.members
	p.mu.Unlock()

	var changes []setChange[V]
	for _, v := range values {
		if _, ok := oldMembers[v]; !ok {
			changes = append(changes, setChange[V]{value: v, added: true})
		}
	}
	for _, v := range oldValues {
		if _, ok := members[v]; !ok {
			changes = append(changes, setChange[V]{value: v})
		}
	}
	p.notify(changes)
	return nil
}

func (p *SetProperty[S, V]) notify(changes []setChange[V]) {
	if len(changes) == 0 {
		return
	}
	fns := p.observers.snapshot()
	for _, c := range changes {
		for _, fn := range fns {
			fn(p.subject, c.value, c.added)
		}
	}
}
