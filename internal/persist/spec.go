package persist

// Spec is an immutable pair of SQL text and positional bind arguments,
// constructed once per logical operation and handed to the executor.
//
// Arguments are bound in order starting at the first placeholder. An absent
// argument list binds nothing; a present but empty one is rejected at
// execution time.
type Spec struct {
	text string
	args []any
}

// NewSpec returns a Spec for the given SQL text.
func NewSpec(text string) Spec {
	return Spec{text: text}
}

// WithArgs returns a copy of the Spec carrying its own copy of the given
// positional arguments. The argument list becomes present even when empty,
// so a zero-argument call fails validation.
func (s Spec) WithArgs(args ...any) Spec {
	c := s
	c.args = append(make([]any, 0, len(args)), args...)
	return c
}

// Text returns the SQL text.
func (s Spec) Text() string {
	return s.text
}

// Args returns the positional arguments, or nil when none were set.
func (s Spec) Args() []any {
	return s.args
}

// hasArgs reports whether the spec carries at least one bind argument.
func (s Spec) hasArgs() bool {
	return len(s.args) > 0
}

// validate checks the construction invariants before execution.
func (s Spec) validate() error {
	if s.text == "" {
		return newError("the statement text has not been initialized")
	}
	if s.args != nil && len(s.args) == 0 {
		return newError("the argument list must have at least one argument")
	}
	return nil
}

// Statement builds a Spec at the call site. It mirrors the builder-callback
// call shape of Unit.Persist; most callers pass a closure.
type Statement func() Spec
