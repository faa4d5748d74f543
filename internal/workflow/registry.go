package workflow

import (
	"context"
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// LandingHandler runs whenever the engine lands a course on a node that
// declares it. Handlers mutate the document through the host application's
// own persistence; a returned error aborts the move and rolls back the
// enclosing transaction unchanged.
type LandingHandler func(ctx context.Context, doc Document, user User) error

// Condition guards one multiplexer outbound. The engine evaluates a
// multiplexer's outbound conditions in ascending priority order and follows
// the first that returns true.
type Condition func(ctx context.Context, doc Document, user User) (bool, error)

// Joiner decides what a SPLIT does when one of its branches terminates. It
// receives the status of every branch and the code of the branch that just
// terminated. Returning an action name advances the parent course along the
// outbound carrying that name and joins any still-running siblings; returning
// the empty string keeps the SPLIT waiting.
type Joiner func(ctx context.Context, doc Document, statuses BranchStatuses, last string) (string, error)

// Registry maps callable names to their implementations. Spec installation
// verifies that every landing handler, condition, and joiner a workflow
// references is registered here. Registration is expected to occur at program
// initialization time (single-threaded), so no mutex is needed.
type Registry struct {
	handlers   map[string]LandingHandler
	conditions map[string]Condition
	joiners    map[string]Joiner
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:   make(map[string]LandingHandler),
		conditions: make(map[string]Condition),
		joiners:    make(map[string]Joiner),
	}
}

// register guards the shared registration invariants. Violations are
// programming errors that should be caught at startup, hence the panics.
func register[T any](kind, name string, fn T, isNil bool, m map[string]T) {
	if isNil {
		panic(fmt.Sprintf("workflow: Register%s called with nil callable", kind))
	}
	if name == "" {
		panic(fmt.Sprintf("workflow: Register%s called with empty name", kind))
	}
	if _, exists := m[name]; exists {
		panic(fmt.Sprintf("workflow: %s %q is already registered", kind, name))
	}
	m[name] = fn
}

// RegisterHandler adds a landing handler under name. It panics on a nil
// handler, an empty name, or a duplicate name.
func (r *Registry) RegisterHandler(name string, fn LandingHandler) {
	register("Handler", name, fn, fn == nil, r.handlers)
}

// RegisterCondition adds a condition under name. Panic conditions as for
// RegisterHandler.
func (r *Registry) RegisterCondition(name string, fn Condition) {
	register("Condition", name, fn, fn == nil, r.conditions)
}

// RegisterJoiner adds a joiner under name. Panic conditions as for
// RegisterHandler.
func (r *Registry) RegisterJoiner(name string, fn Joiner) {
	register("Joiner", name, fn, fn == nil, r.joiners)
}

// RegisterExprCondition compiles src with expr-lang and registers the result
// as a condition under name. The expression must evaluate to a bool; the
// environment exposes the document's attributes as "doc", the document type
// and id as "type" and "id", and the acting user as "user". A compile error
// is returned rather than panicking so spec authors get a diagnosable
// failure.
func (r *Registry) RegisterExprCondition(name, src string) error {
	program, err := expr.Compile(src, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return fmt.Errorf("compiling condition %q: %w", name, err)
	}
	r.RegisterCondition(name, exprCondition(program))
	return nil
}

// exprCondition wraps a compiled expr program as a Condition.
func exprCondition(program *vm.Program) Condition {
	return func(_ context.Context, doc Document, user User) (bool, error) {
		env := map[string]any{
			"doc":  doc.Attributes(),
			"type": doc.DocumentType(),
			"id":   doc.DocumentID(),
			"user": string(user),
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return false, fmt.Errorf("evaluating condition: %w", err)
		}
		b, ok := out.(bool)
		if !ok {
			return false, fmt.Errorf("condition evaluated to %T, want bool", out)
		}
		return b, nil
	}
}

// Handler returns the landing handler registered under name.
func (r *Registry) Handler(name string) (LandingHandler, error) {
	fn, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("landing handler %q: %w", name, ErrNotFound)
	}
	return fn, nil
}

// Condition returns the condition registered under name.
func (r *Registry) Condition(name string) (Condition, error) {
	fn, ok := r.conditions[name]
	if !ok {
		return nil, fmt.Errorf("condition %q: %w", name, ErrNotFound)
	}
	return fn, nil
}

// Joiner returns the joiner registered under name.
func (r *Registry) Joiner(name string) (Joiner, error) {
	fn, ok := r.joiners[name]
	if !ok {
		return nil, fmt.Errorf("joiner %q: %w", name, ErrNotFound)
	}
	return fn, nil
}

// HasHandler reports whether a landing handler is registered under name.
func (r *Registry) HasHandler(name string) bool { _, ok := r.handlers[name]; return ok }

// HasCondition reports whether a condition is registered under name.
func (r *Registry) HasCondition(name string) bool { _, ok := r.conditions[name]; return ok }

// HasJoiner reports whether a joiner is registered under name.
func (r *Registry) HasJoiner(name string) bool { _, ok := r.joiners[name]; return ok }

// Names returns the sorted names of all registered callables, prefixed by
// kind ("handler:", "condition:", "joiner:"). Useful for diagnostics.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers)+len(r.conditions)+len(r.joiners))
	for n := range r.handlers {
		names = append(names, "handler:"+n)
	}
	for n := range r.conditions {
		names = append(names, "condition:"+n)
	}
	for n := range r.joiners {
		names = append(names, "joiner:"+n)
	}
	sort.Strings(names)
	return names
}
