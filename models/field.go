package models

// Field carries a single updatable column value together with a marker of
// whether the caller wants the column changed at all. A partial update is a
// struct of Field values: columns left at the zero value are not mentioned
// in the generated UPDATE statement, so "set to the zero value" and "leave
// alone" remain distinguishable.
//
// The zero value of Field is "unchanged"; an all-zero update struct is a
// valid update that only bumps updated_at.
type Field[T any] struct {
	value T
	set   bool
}

// Set returns a Field that instructs the update builder to write v into the
// corresponding column.
func Set[T any](v T) Field[T] {
	return Field[T]{value: v, set: true}
}

// Unchanged returns a Field that leaves the corresponding column untouched.
// Equivalent to the zero value; provided for explicitness at call sites.
func Unchanged[T any]() Field[T] {
	return Field[T]{}
}

// IsSet reports whether the field was tagged for change.
func (f Field[T]) IsSet() bool {
	return f.set
}

// Value returns the tagged value. Only meaningful when IsSet is true.
func (f Field[T]) Value() T {
	return f.value
}
