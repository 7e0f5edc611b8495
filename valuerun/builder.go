package valuerun

// Builder assembles a ValueRuns from a stack of nested value scopes, the way
// an inline-markup parser opens and closes styled spans. Push enters a scope
// at the given limit, Pop leaves it; the base value fills whatever no scope
// covers.
type Builder[T any] struct {
	runs  ValueRuns[T]
	stack []T
}

// NewBuilder creates a Builder whose outermost scope holds baseValue.
func NewBuilder[T any](baseValue T) Builder[T] {
	return Builder[T]{stack: []T{baseValue}}
}

// Push closes the current scope's run at limit and enters a scope holding
// value.
func (b *Builder[T]) Push(limit int32, value T) {
	b.runs.Add(limit, b.stack[len(b.stack)-1])
	b.stack = append(b.stack, value)
}

// Pop closes the current scope at limit and returns to the enclosing scope.
// A run is only emitted if the scope covered at least one index since the
// last emitted limit.
func (b *Builder[T]) Pop(limit int32) {
	if b.runs.Empty() || b.runs.Limit() < limit {
		b.runs.Add(limit, b.stack[len(b.stack)-1])
	}

	b.stack = b.stack[:len(b.stack)-1]
}

// Runs returns the accumulated runs. The builder must not be reused after.
func (b *Builder[T]) Runs() ValueRuns[T] {
	return b.runs
}

// BaseValue returns the outermost scope's value.
func (b *Builder[T]) BaseValue() T {
	return b.stack[0]
}

// CurrentValue returns the innermost scope's value.
func (b *Builder[T]) CurrentValue() T {
	return b.stack[len(b.stack)-1]
}
