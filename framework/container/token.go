package container

import (
	"fmt"
	"strings"
)

// Token identifies a dependency: a non-empty string (compared by value) or a
// *Class (compared by identity).
type Token = any

// Scope is the lifecycle policy of a registration.
type Scope string

const (
	// Request builds a new value on every resolution. It is the default.
	Request Scope = "REQUEST"
	// Singleton builds the value once, on first resolution, and keeps it for
	// the lifetime of the container.
	Singleton Scope = "SINGLETON"
)

// ParseScope accepts REQUEST or SINGLETON in any case. An empty string parses
// as Request.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToUpper(strings.TrimSpace(s))) {
	case "", Request:
		return Request, nil
	case Singleton:
		return Singleton, nil
	}
	return "", fmt.Errorf("container: unknown scope %q", s)
}

func (s Scope) String() string { return string(s) }

// IsValidToken reports whether t can identify a dependency.
func IsValidToken(t Token) bool {
	switch v := t.(type) {
	case string:
		return v != ""
	case *Class:
		return v != nil
	}
	return false
}

// TokenName renders a token for messages: strings as-is, classes by name.
func TokenName(t Token) string {
	switch v := t.(type) {
	case string:
		return v
	case *Class:
		if v == nil {
			return "<nil class>"
		}
		return v.Name()
	}
	return fmt.Sprintf("%T(%v)", t, t)
}
