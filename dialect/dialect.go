// Package dialect renders statement trees to SQL text.
//
// A Dialect maps every node kind to a Transcriber. Lookups that miss fall
// back to the parent dialect, so a concrete dialect only registers the node
// kinds it prints differently. Transcribers always receive the dialect the
// rendering started from, which keeps overrides effective for nested nodes.
//
// Dialects are assembled once and frozen on first use; registering into a
// frozen dialect panics.
package dialect

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Konsultn-Engineering/tabular/ast"
	"github.com/Konsultn-Engineering/tabular/errs"
	"github.com/Konsultn-Engineering/tabular/value"
)

// Transcriber writes node n to w. When parameterizable is false, literals
// must be inlined instead of bound.
type Transcriber func(d *Dialect, w *Writer, n ast.Node, parameterizable bool) error

type Dialect struct {
	name         string
	parent       *Dialect
	transcribers map[ast.NodeType]Transcriber
	frozen       atomic.Bool
}

// New returns an empty dialect that defers to parent for every node kind it
// does not register. A nil parent makes a root dialect.
func New(name string, parent *Dialect) *Dialect {
	return &Dialect{
		name:         name,
		parent:       parent,
		transcribers: make(map[ast.NodeType]Transcriber),
	}
}

func (d *Dialect) Name() string     { return d.name }
func (d *Dialect) Parent() *Dialect { return d.parent }
func (d *Dialect) String() string   { return d.name }
func (d *Dialect) Frozen() bool     { return d.frozen.Load() }

// Register installs t for node kind nt and returns d for chaining.
func (d *Dialect) Register(nt ast.NodeType, t Transcriber) *Dialect {
	if d.frozen.Load() {
		panic(fmt.Sprintf("dialect %s: register %s after freeze", d.name, nt))
	}
	if t == nil {
		panic(fmt.Sprintf("dialect %s: nil transcriber for %s", d.name, nt))
	}
	d.transcribers[nt] = t
	return d
}

// Freeze forbids further registration on d and its ancestors.
func (d *Dialect) Freeze() *Dialect {
	for cur := d; cur != nil; cur = cur.parent {
		cur.frozen.Store(true)
	}
	return d
}

// Lookup resolves the transcriber for nt along the parent chain.
func (d *Dialect) Lookup(nt ast.NodeType) (Transcriber, bool) {
	for cur := d; cur != nil; cur = cur.parent {
		if t, ok := cur.transcribers[nt]; ok {
			return t, true
		}
	}
	return nil, false
}

// Missing lists the node kinds d cannot render.
func (d *Dialect) Missing() []ast.NodeType {
	var out []ast.NodeType
	for _, nt := range ast.NodeTypes() {
		if _, ok := d.Lookup(nt); !ok {
			out = append(out, nt)
		}
	}
	return out
}

// Transcribe writes n using d. Every parameter node written this way is
// counted so Render can verify it against the bound values.
func (d *Dialect) Transcribe(w *Writer, n ast.Node, parameterizable bool) error {
	if n == nil {
		return errs.Internal("", "dialect %s: nil node", d.name)
	}
	nt := n.Type()
	t, ok := d.Lookup(nt)
	if !ok {
		return errs.Internal(nt.String(), "no transcriber registered in dialect %s", d.name)
	}
	if nt == ast.NodeParameter {
		w.placeholders++
	}
	return t(d, w, n, parameterizable)
}

// Statement is rendered SQL text with the values bound to its placeholders,
// in placeholder order.
type Statement struct {
	SQL          string
	Args         []value.Value
	Placeholders int
}

// Any returns the bound values as driver arguments.
func (s *Statement) Any() []any { return value.Args(s.Args) }

var writerPool = sync.Pool{
	New: func() any { return &Writer{args: make([]value.Value, 0, 8)} },
}

// Render transcribes n with literals bound as parameters. Rendering freezes d.
func (d *Dialect) Render(n ast.Node) (*Statement, error) {
	return d.render(n, true)
}

// RenderInline transcribes n with every literal inlined.
func (d *Dialect) RenderInline(n ast.Node) (*Statement, error) {
	return d.render(n, false)
}

func (d *Dialect) render(n ast.Node, parameterizable bool) (*Statement, error) {
	d.Freeze()

	w := writerPool.Get().(*Writer)
	w.reset()
	defer writerPool.Put(w)

	if err := d.Transcribe(w, n, parameterizable); err != nil {
		return nil, err
	}
	if w.placeholders != len(w.args) {
		kind := ""
		if n != nil {
			kind = n.Type().String()
		}
		return nil, errs.Internal(kind, "%d placeholders rendered for %d bound values", w.placeholders, len(w.args))
	}

	var args []value.Value
	if len(w.args) > 0 {
		args = make([]value.Value, len(w.args))
		copy(args, w.args)
	}
	return &Statement{SQL: w.sb.String(), Args: args, Placeholders: w.placeholders}, nil
}

var (
	registryMu sync.RWMutex
	registry   = map[string]*Dialect{}
)

// Add publishes d under its name for Get. It freezes d.
func Add(d *Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.name] = d.Freeze()
}

// Get returns the dialect registered under name.
func Get(name string) (*Dialect, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("dialect: unknown dialect %q", name)
	}
	return d, nil
}

// Names lists the registered dialects in lexical order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func init() {
	Add(Base)
	Add(SQLite)
	Add(Postgres)
	Add(MySQL)
	Add(TiDB)
}
