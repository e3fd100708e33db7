package cql

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/lgbarn/cql-go/internal/errors"
)

// Registry owns every user-declared name for one query compilation.
// It is not safe for concurrent use; concurrent compilations each need
// their own registry.
//
// While a function body is being collected the registry is read-only:
// declarations and type locks are checked against the current state but
// never applied, because the body is parsed again at each call site.
type Registry struct {
	defs       map[string]Definition
	order      []string
	collecting int
	logger     *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		defs:   make(map[string]Definition),
		logger: logger,
	}
}

// Declare creates name with the given kind, or returns the existing
// definition when it already has that kind. While collecting a body, a new
// name yields a detached definition that is not stored.
func (r *Registry) Declare(name string, kind DefinitionKind) (Definition, error) {
	if !kind.IsConcrete() {
		return nil, fmt.Errorf("declare %q: kind %s is not concrete: %w", name, kind, errors.ErrDefinition)
	}
	if def, ok := r.defs[name]; ok {
		if def.Kind() != kind {
			return nil, &errors.DefinitionError{
				Name: name, Field: "kind", Old: def.Kind().String(), New: kind.String(),
			}
		}
		return def, nil
	}

	def := newDefinition(name, kind)
	if r.Collecting() {
		return def, nil
	}
	r.defs[name] = def
	r.order = append(r.order, name)
	r.logger.Debug("declared", "name", name, "kind", kind)
	return def, nil
}

// Lookup returns the definition for name, or nil.
func (r *Registry) Lookup(name string) Definition {
	return r.defs[name]
}

// Function returns name if it is declared as a function.
func (r *Registry) Function(name string) (*Function, bool) {
	f, ok := r.defs[name].(*Function)
	return f, ok
}

// Variable returns name if it is declared as a variable.
func (r *Registry) Variable(name string) (*Variable, bool) {
	v, ok := r.defs[name].(*Variable)
	return v, ok
}

// Dictionary returns name if it is declared as a dictionary.
func (r *Registry) Dictionary(name string) (*Dictionary, bool) {
	d, ok := r.defs[name].(*Dictionary)
	return d, ok
}

// Unbind removes name. It reports whether anything was removed and does
// nothing while a body is being collected.
func (r *Registry) Unbind(name string) bool {
	if r.Collecting() {
		return false
	}
	if _, ok := r.defs[name]; !ok {
		return false
	}
	delete(r.defs, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Debug("unbound", "name", name)
	return true
}

// Names returns declared names in declaration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Definitions returns the declared definitions in declaration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.defs[name])
	}
	return defs
}

// Len returns the number of declared names.
func (r *Registry) Len() int {
	return len(r.defs)
}

// BeginBodyCollection enters body-collection mode. Calls nest.
func (r *Registry) BeginBodyCollection() {
	r.collecting++
}

// EndBodyCollection leaves one level of body-collection mode.
func (r *Registry) EndBodyCollection() {
	if r.collecting > 0 {
		r.collecting--
	}
}

// Collecting reports whether a function body is being collected.
func (r *Registry) Collecting() bool {
	return r.collecting > 0
}

// LockFilterType fixes the value type of a variable or dictionary.
func (r *Registry) LockFilterType(def TypedDefinition, t FilterType) error {
	var cur *FilterType
	switch d := def.(type) {
	case *Variable:
		cur = &d.filterType
	case *Dictionary:
		cur = &d.filterType
	default:
		return unsupported(def, "filter type")
	}
	return apply(r, def.Name(), "filter type", cur, t, FilterAny, legalValueType(t))
}

// LockVariableType fixes the kind of value a variable holds.
func (r *Registry) LockVariableType(v *Variable, t VariableType) error {
	return apply(r, v.name, "variable type", &v.variableType, t, VarAny, t.IsConcrete())
}

// LockPersistence fixes how a variable or dictionary persists. Quiet is
// only accepted together with Persistent.
func (r *Registry) LockPersistence(def TypedDefinition, p PersistenceType) error {
	var cur *PersistenceType
	switch d := def.(type) {
	case *Variable:
		cur = &d.persistence
	case *Dictionary:
		cur = &d.persistence
	default:
		return unsupported(def, "persistence")
	}
	if p == Quiet {
		return &errors.DefinitionError{
			Name: def.Name(), Field: "persistence", Old: cur.String(), New: p.String(),
			Detail: "quiet requires persistent",
		}
	}
	return apply(r, def.Name(), "persistence", cur, p, PersistAny, p.IsLegal())
}

// LockKeyType fixes the key type of a dictionary.
func (r *Registry) LockKeyType(d *Dictionary, t FilterType) error {
	return apply(r, d.name, "key type", &d.keyType, t, FilterAny, legalValueType(t))
}

func apply[T flagType](r *Registry, name, field string, cur *T, next, wildcard T, legal bool) error {
	changed, err := lock(name, field, cur, next, wildcard, legal, !r.Collecting())
	if err != nil {
		return err
	}
	if changed && !r.Collecting() {
		r.logger.Debug("type locked", "name", name, "field", field, "type", next.String())
	}
	return nil
}

// IsVariableType reports whether def can hold a value of type t. A variable
// whose type is still unknown matches every type.
func (r *Registry) IsVariableType(def Definition, t VariableType) bool {
	v, ok := def.(*Variable)
	if !ok {
		return false
	}
	return v.variableType == t || v.variableType == VarAny
}

// Finalize resolves what the query left open: variables with unknown
// persistence become local, and any variable or dictionary whose value
// type was never fixed is an error.
func (r *Registry) Finalize() error {
	for _, def := range r.Definitions() {
		td, ok := def.(TypedDefinition)
		if !ok {
			continue
		}
		if v, ok := def.(*Variable); ok && v.persistence == PersistAny {
			v.persistence = Local
		}
		if td.FilterType() == FilterAny {
			return fmt.Errorf("%s %q: type never determined: %w", def.Kind(), def.Name(), errors.ErrUnresolvedType)
		}
	}
	return nil
}

func unsupported(def Definition, field string) error {
	return fmt.Errorf("%s %q has no %s: %w", def.Kind(), def.Name(), field, errors.ErrDefinition)
}
