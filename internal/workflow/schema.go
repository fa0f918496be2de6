package workflow

import "fmt"

// Policy is the rule by which a step's output for a field combines with the
// existing state.
type Policy string

const (
	// PolicyAppend accumulates list items in arrival order.
	PolicyAppend Policy = "append"
	// PolicyReplace keeps the last written value.
	PolicyReplace Policy = "replace"
)

// Set carries an optional replace-on-write value inside an update.
// The zero Set leaves the field untouched; Assign(v) writes v, including a nil v.
type Set[T any] struct {
	value T
	ok    bool
}

// Assign returns a Set that writes v.
func Assign[T any](v T) Set[T] {
	return Set[T]{value: v, ok: true}
}

// Get returns the carried value and whether one was assigned.
func (s Set[T]) Get() (T, bool) {
	return s.value, s.ok
}

// IsSet reports whether a value was assigned.
func (s Set[T]) IsSet() bool {
	return s.ok
}

// Field declares the merge policy of one state field. Build fields with
// Append or Replace.
type Field[S, U any] struct {
	name    string
	policy  Policy
	present func(u *U) bool
	merge   func(dst *S, u *U)
	delta   func(before, after *S, out *U)
}

// Name returns the field name.
func (f Field[S, U]) Name() string { return f.name }

// Policy returns the field's merge policy.
func (f Field[S, U]) Policy() Policy { return f.policy }

// Append declares a list field whose update items are appended to the state.
// field and update return pointers into the state and update values.
func Append[S, U, E any](name string, field func(*S) *[]E, update func(*U) *[]E) Field[S, U] {
	return Field[S, U]{
		name:   name,
		policy: PolicyAppend,
		present: func(u *U) bool {
			return len(*update(u)) > 0
		},
		merge: func(dst *S, u *U) {
			items := *update(u)
			if len(items) == 0 {
				return
			}
			cur := field(dst)
			next := make([]E, 0, len(*cur)+len(items))
			next = append(next, *cur...)
			next = append(next, items...)
			*cur = next
		},
		delta: func(before, after *S, out *U) {
			b, a := *field(before), *field(after)
			if len(a) <= len(b) {
				return
			}
			added := make([]E, len(a)-len(b))
			copy(added, a[len(b):])
			*update(out) = added
		},
	}
}

// Replace declares a field whose assigned update value overwrites the state.
func Replace[S, U, V any](name string, field func(*S) *V, update func(*U) *Set[V]) Field[S, U] {
	return Field[S, U]{
		name:   name,
		policy: PolicyReplace,
		present: func(u *U) bool {
			return update(u).IsSet()
		},
		merge: func(dst *S, u *U) {
			if v, ok := update(u).Get(); ok {
				*field(dst) = v
			}
		},
		delta: func(_, after *S, out *U) {
			*update(out) = Assign(*field(after))
		},
	}
}

// Schema is the single declaration of how every state field merges.
type Schema[S, U any] struct {
	fields []Field[S, U]
}

// NewSchema builds a schema. Field names must be unique.
func NewSchema[S, U any](fields ...Field[S, U]) (*Schema[S, U], error) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.name == "" {
			return nil, fmt.Errorf("workflow schema: field name is required")
		}
		if seen[f.name] {
			return nil, fmt.Errorf("workflow schema: duplicate field %q", f.name)
		}
		seen[f.name] = true
	}
	return &Schema[S, U]{fields: fields}, nil
}

// MustSchema is NewSchema that panics on error, for package-level declarations.
func MustSchema[S, U any](fields ...Field[S, U]) *Schema[S, U] {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Merge folds update into state and returns the new state. The input state's
// lists are never written to.
func (s *Schema[S, U]) Merge(state S, update U) S {
	for _, f := range s.fields {
		f.merge(&state, &update)
	}
	return state
}

// Delta expresses after as an update over before: appended items for append
// fields and the final value for replace fields. Merging the delta into before
// yields after as long as append fields only grew.
func (s *Schema[S, U]) Delta(before, after S) U {
	var out U
	for _, f := range s.fields {
		f.delta(&before, &after, &out)
	}
	return out
}

// Written returns the names of the fields an update writes.
func (s *Schema[S, U]) Written(update U) []string {
	var names []string
	for _, f := range s.fields {
		if f.present(&update) {
			names = append(names, f.name)
		}
	}
	return names
}

// Policies returns each field's policy by name.
func (s *Schema[S, U]) Policies() map[string]Policy {
	out := make(map[string]Policy, len(s.fields))
	for _, f := range s.fields {
		out[f.name] = f.policy
	}
	return out
}
