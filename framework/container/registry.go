package container

import (
	"fmt"
	"sync"
)

// Factory produces a value for a useFactory registration.
type Factory func() (any, error)

// Dependency is the registration record kept per token. Exactly one of
// UseClass, UseFactory and UseValue is set.
type Dependency struct {
	Token      Token
	Scope      Scope
	UseClass   *Class
	UseFactory Factory
	UseValue   any
}

// RegisterOptions controls what happens when a token is registered twice.
type RegisterOptions struct {
	// Overwrite replaces the existing record.
	Overwrite bool
	// IgnoreIfExists keeps the existing record and succeeds silently.
	IgnoreIfExists bool
}

// Registry maps each token to one Dependency. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	deps  map[Token]*Dependency
	order []Token
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{deps: make(map[Token]*Dependency)}
}

// Register stores dep under dep.Token according to opts. It reports whether
// the record was written.
func (r *Registry) Register(dep Dependency, opts RegisterOptions) (bool, error) {
	if !IsValidToken(dep.Token) {
		return false, newError(CodeInvalidToken, nil,
			fmt.Sprintf("token must be a non-empty string or a class, got %s", TokenName(dep.Token)))
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.deps[dep.Token]; exists {
		if !opts.Overwrite {
			if opts.IgnoreIfExists {
				return false, nil
			}
			return false, newError(CodeTokenAlreadyRegistered, dep.Token,
				fmt.Sprintf("dependency %q already registered", TokenName(dep.Token)))
		}
	} else {
		r.order = append(r.order, dep.Token)
	}
	r.deps[dep.Token] = &dep
	return true, nil
}

// Get returns a copy of the record for token.
func (r *Registry) Get(token Token) (*Dependency, bool) {
	if !hashable(token) {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	dep, ok := r.deps[token]
	if !ok {
		return nil, false
	}
	cp := *dep
	return &cp, true
}

// Has reports whether token is registered.
func (r *Registry) Has(token Token) bool {
	if !hashable(token) {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.deps[token]
	return ok
}

// Remove deletes the record for token and reports whether one existed.
func (r *Registry) Remove(token Token) bool {
	if !hashable(token) {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deps[token]; !ok {
		return false
	}
	delete(r.deps, token)
	for i, t := range r.order {
		if t == token {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Tokens lists registered tokens in registration order.
func (r *Registry) Tokens() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Token, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tokens.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.deps)
}

// Clear removes every record.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deps = make(map[Token]*Dependency)
	r.order = nil
}

// hashable guards map lookups against unhashable keys such as slices,
// which would otherwise panic.
func hashable(token Token) bool {
	switch token.(type) {
	case string, *Class:
		return true
	}
	return false
}
