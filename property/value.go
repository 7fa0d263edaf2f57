package property

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/convert"
	"github.com/Konsultn-Engineering/tabular/engine"
	"github.com/Konsultn-Engineering/tabular/errs"
)

// ValueEntry is one row of a value property table.
type ValueEntry[S, V any] struct {
	Subject S
	Time    time.Time
	Value   V
}

// ValueTable describes where a value property of subjects of type S is
// stored. The subject's columns form the primary key of the table.
type ValueTable[S, V any] struct {
	name    string
	table   *ast.Table
	subject convert.Converter
	entries *convert.Struct[ValueEntry[S, V]]
	def     V
	now     func() time.Time
}

// ValueTableConfig configures a ValueTable.
type ValueTableConfig[S, V any] struct {
	// Default is the value of subjects without a stored entry.
	Default V
	// Nullable allows storing a nil value.
	Nullable bool
	// Extract derives the context handed to the value converter on recovery.
	Extract func(subject S) any
	// Now stamps the time of every change. Defaults to time.Now.
	Now func() time.Time
}

// NewValueTable declares the table of the value property name, holding
// subjects converted by subject and values converted by val.
func NewValueTable[S, V any](name string, subject, val convert.Converter, cfg ValueTableConfig[S, V]) (*ValueTable[S, V], error) {
	if subject == nil || val == nil {
		return nil, errs.Structural("property "+name, "missing converter")
	}
	valueOpts := []convert.FieldOption{
		convert.Provide(func(recovered []any, _ any) any {
			if cfg.Extract == nil {
				return nil
			}
			s, _ := as[S](recovered[0])
			return cfg.Extract(s)
		}),
	}
	if cfg.Nullable {
		valueOpts = append(valueOpts, convert.Annotate("nullable"))
	}

	typeName := subject.TypeName() + "." + name
	entries, err := convert.NewStruct(typeName,
		func(v []any, _ any) (ValueEntry[S, V], error) {
			var e ValueEntry[S, V]
			var ok bool
			if e.Subject, ok = as[S](v[0]); !ok {
				return e, fmt.Errorf("subject: unexpected %T", v[0])
			}
			if e.Time, ok = v[1].(time.Time); !ok {
				return e, fmt.Errorf("time: unexpected %T", v[1])
			}
			if e.Value, ok = as[V](v[2]); !ok {
				return e, fmt.Errorf("value: unexpected %T", v[2])
			}
			return e, nil
		},
		convert.Field(subjectField, subject, func(e ValueEntry[S, V]) any { return e.Subject }, convert.Annotate("primary")),
		convert.Field("time", convert.Time, func(e ValueEntry[S, V]) any { return e.Time }),
		convert.Field("value", val, func(e ValueEntry[S, V]) any { return e.Value }, valueOpts...),
	)
	if err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &ValueTable[S, V]{
		name:    name,
		table:   tableFor(subject.TypeName(), name),
		subject: subject,
		entries: entries,
		def:     cfg.Default,
		now:     now,
	}, nil
}

func (t *ValueTable[S, V]) Name() string                               { return t.name }
func (t *ValueTable[S, V]) Table() *ast.Table                          { return t.table }
func (t *ValueTable[S, V]) Entries() *convert.Struct[ValueEntry[S, V]] { return t.entries }

// Create creates the table unless it exists.
func (t *ValueTable[S, V]) Create(ctx context.Context, eng *engine.Engine) error {
	_, err := eng.CreateTable(ctx, t.entries, t.table, true)
	return err
}

// Property returns the property of subject. Properties are not shared: each
// call yields a separate cache.
func (t *ValueTable[S, V]) Property(eng *engine.Engine, subject S) *ValueProperty[S, V] {
	return &ValueProperty[S, V]{eng: eng, table: t, subject: subject}
}

// ValueObserver is notified of a changed value.
type ValueObserver[S, V any] func(subject S, old, new V)

// ValueProperty is the value of one subject.
type ValueProperty[S, V any] struct {
	eng     *engine.Engine
	table   *ValueTable[S, V]
	subject S

	mu        sync.Mutex
	state     State
	value     V
	time      time.Time
	observers observers[ValueObserver[S, V]]
}

func (p *ValueProperty[S, V]) Subject() S { return p.subject }

func (p *ValueProperty[S, V]) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Observe registers fn and returns a function removing it.
func (p *ValueProperty[S, V]) Observe(fn ValueObserver[S, V]) (cancel func()) {
	return p.observers.add(fn)
}

// load reads the stored entry. The caller holds p.mu.
func (p *ValueProperty[S, V]) load(ctx context.Context) error {
	f := p.eng.From(p.table.entries, p.table.table).Match(p.table.subject, p.subject, subjectField)
	entry, ok, err := engine.SelectOne[ValueEntry[S, V]](ctx, f)
	if err != nil {
		return fmt.Errorf("load %s: %w", p.table.name, err)
	}
	if ok {
		p.value, p.time = entry.Value, entry.Time
	} else {
		p.value, p.time = p.table.def, time.Time{}
	}
	p.state = Loaded
	return nil
}

func (p *ValueProperty[S, V]) ensure(ctx context.Context) error {
	if p.state == Loaded {
		return nil
	}
	return p.load(ctx)
}

// Get returns the value, loading it on first access.
func (p *ValueProperty[S, V]) Get(ctx context.Context) (V, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensure(ctx); err != nil {
		var zero V
		return zero, err
	}
	return p.value, nil
}

// Time returns when the value was last set. It is zero for a subject
// without a stored entry.
func (p *ValueProperty[S, V]) Time(ctx context.Context) (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensure(ctx); err != nil {
		return time.Time{}, err
	}
	return p.time, nil
}

// Set stores v and returns the previous value. Setting the current value
// changes nothing.
func (p *ValueProperty[S, V]) Set(ctx context.Context, v V) (old V, err error) {
	p.mu.Lock()
	if err := p.ensure(ctx); err != nil {
		p.mu.Unlock()
		return old, err
	}
	old = p.value
	if equal(old, v) {
		p.mu.Unlock()
		return old, nil
	}

	entry := ValueEntry[S, V]{Subject: p.subject, Time: p.table.now().Round(0), Value: v}
	err = p.eng.Transaction(ctx, func(s *engine.Session) error {
		n, err := s.Update(ctx, p.table.entries, p.table.table, entry)
		if err != nil || n > 0 {
			return err
		}
		_, err = s.Insert(ctx, p.table.entries, p.table.table, entry)
		return err
	})
	if err != nil {
		p.mu.Unlock()
		return old, fmt.Errorf("set %s: %w", p.table.name, err)
	}
	p.value, p.time = v, entry.Time
	p.mu.Unlock()

	p.notify(old, v)
	return old, nil
}

// Reset drops the cached value. With observers registered the value is
// reloaded instead and a change is reported to them.
func (p *ValueProperty[S, V]) Reset(ctx context.Context) error {
	p.mu.Lock()
	if p.state == Unloaded {
		p.mu.Unlock()
		return nil
	}
	if p.observers.empty() {
		p.state = Unloaded
		p.mu.Unlock()
		return nil
	}

	old := p.value
	if err := p.load(ctx); err != nil {
		p.state = Unloaded
		p.mu.Unlock()
		return err
	}
	current := p.value
	p.mu.Unlock()

	if !equal(old, current) {
		p.notify(old, current)
	}
	return nil
}

func (p *ValueProperty[S, V]) notify(old, new V) {
	for _, fn := range p.observers.snapshot() {
		fn(p.subject, old, new)
	}
}
