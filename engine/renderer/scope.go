package renderer

// Releaser is anything that owns GPU objects and can give them back.
type Releaser interface {
	Release()
}

// ReleaseFunc adapts a plain function to Releaser.
type ReleaseFunc func()

func (f ReleaseFunc) Release() { f() }

// Scope is a node of the ownership tree. Everything owned by a scope is
// released in reverse order of registration, so objects die before the
// objects they were created from.
type Scope struct {
	owned    []Releaser
	released bool
}

// Own registers r and returns it for chaining.
func (s *Scope) Own(r Releaser) Releaser {
	s.owned = append(s.owned, r)
	return r
}

// Defer registers a release function.
func (s *Scope) Defer(fn func()) {
	s.owned = append(s.owned, ReleaseFunc(fn))
}

// Len returns the number of owned releasers.
func (s *Scope) Len() int {
	return len(s.owned)
}

// Release releases everything owned, last registered first. Calling it more
// than once is a no-op until something new is owned.
func (s *Scope) Release() {
	if s.released && len(s.owned) == 0 {
		return
	}
	for i := len(s.owned) - 1; i >= 0; i-- {
		s.owned[i].Release()
	}
	s.owned = nil
	s.released = true
}
