package uniform_arena

// ArenaOption is a functional option used to configure an Arena during construction.
type ArenaOption func(*arena)

// WithAlignment raises the allocation alignment above the device's dynamic offset alignment.
// Values below the device alignment are ignored.
//
// Parameters:
//   - alignment: the alignment in bytes, a power of two
//
// Returns:
//   - ArenaOption: a function that sets the alignment
func WithAlignment(alignment uint32) ArenaOption {
	return func(a *arena) {
		a.alignment = max(a.alignment, alignment)
	}
}

// WithLabel sets the debug label of the arena buffer.
//
// Parameters:
//   - label: the debug label
//
// Returns:
//   - ArenaOption: a function that sets the label
func WithLabel(label string) ArenaOption {
	return func(a *arena) {
		a.label = label
	}
}
