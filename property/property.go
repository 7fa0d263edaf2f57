// Package property keeps values attached to a subject in their own table and
// caches them in memory.
//
// A ValueProperty stores one value per subject together with the time it was
// set. A MapProperty stores a map per subject, one row per key. Both load
// lazily on first access, write through to the database and notify their
// observers once the property's lock has been released, so an observer may
// read or modify the property it observes.
package property

import (
	"reflect"
	"slices"
	"sync"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/schema"
)

// State tells whether a property holds the stored content in memory.
type State int

const (
	Unloaded State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "unloaded"
}

// subjectField is the field holding the subject in every property table.
const subjectField = "subject"

// tableFor names the table of property name on subjects of subjectType.
func tableFor(subjectType, name string) *ast.Table {
	return ast.Tbl(schema.ColumnName(subjectType) + "_" + schema.ColumnName(name))
}

// observers is a list of callbacks that can be cancelled individually.
type observers[F any] struct {
	mu      sync.Mutex
	next    int
	entries []observer[F]
}

type observer[F any] struct {
	id int
	fn F
}

func (o *observers[F]) add(fn F) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.next
	o.next++
	o.entries = append(o.entries, observer[F]{id: id, fn: fn})

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.entries = slices.DeleteFunc(o.entries, func(e observer[F]) bool { return e.id == id })
	}
}

func (o *observers[F]) snapshot() []F {
	o.mu.Lock()
	defer o.mu.Unlock()
	fns := make([]F, len(o.entries))
	for i, e := range o.entries {
		fns[i] = e.fn
	}
	return fns
}

func (o *observers[F]) empty() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries) == 0
}

// as returns a recovered field value as V. Nil yields the zero value; a
// value of V's element type is boxed when V is a pointer.
func as[V any](raw any) (V, bool) {
	var zero V
	if raw == nil {
		return zero, true
	}
	if v, ok := raw.(V); ok {
		return v, true
	}
	t := reflect.TypeOf(&zero).Elem()
	if t.Kind() == reflect.Pointer && reflect.TypeOf(raw) == t.Elem() {
		p := reflect.New(t.Elem())
		p.Elem().Set(reflect.ValueOf(raw))
		return p.Interface().(V), true
	}
	return zero, false
}

func equal(a, b any) bool { return reflect.DeepEqual(a, b) }
