package container

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/km-arc/go-inject/framework/metadata"
)

// Metadata keys written by Declarations.
const (
	KeyConstructorParams = "inject:params-constructor"
	KeyMethodParams      = "inject:params-method"
	KeyProperties        = "inject:properties"
	KeyInjectable        = "injectable:dependency"
)

// InjectableOptions customises how a class registers itself when passed bare
// to Register.
type InjectableOptions struct {
	// Token defaults to the class itself.
	Token Token
	// Scope defaults to the container's default scope.
	Scope Scope
}

// Declarations writes injection points into a metadata store. It is the
// programmatic stand-in for annotating a class: call it from init() or other
// setup code before anything is resolved.
//
//	func init() {
//	    container.InjectParam(UserServiceClass, 0, "db")
//	    container.InjectProperty(UserServiceClass, "Logger", "logger")
//	    container.InjectMethodParam(UserServiceClass, "Handle", 1, "clock")
//	}
type Declarations struct {
	mu    sync.Mutex
	store *metadata.Store[Class]
}

// NewDeclarations creates declarations backed by a fresh store whose lineage
// follows Class.Parent.
func NewDeclarations() *Declarations {
	return &Declarations{
		store: metadata.NewStore(metadata.Lineage((*Class).Parent)),
	}
}

// DefaultDeclarations backs the package-level declaration helpers and is used
// by containers created without WithDeclarations.
var DefaultDeclarations = NewDeclarations()

// Store exposes the underlying metadata store for custom keys.
func (d *Declarations) Store() *metadata.Store[Class] { return d.store }

// ── Writers ──────────────────────────────────────────────────────────────────

// InjectParam declares that constructor parameter index of class receives token.
func (d *Declarations) InjectParam(class *Class, index int, token Token) {
	mustDeclare(class, index, token)
	d.mu.Lock()
	defer d.mu.Unlock()

	v, _ := d.store.GetOwnClassMetadata(class, KeyConstructorParams)
	d.store.SetClassMetadata(class, KeyConstructorParams, withIndex(v, index, token))
}

// InjectMethodParam declares that parameter index of method receives token
// when the method is called through Container.Invoke.
func (d *Declarations) InjectMethodParam(class *Class, method string, index int, token Token) {
	mustDeclare(class, index, token)
	d.mu.Lock()
	defer d.mu.Unlock()

	v, _ := d.store.GetOwnMethodMetadata(class, method, KeyMethodParams)
	d.store.SetMethodMetadata(class, method, KeyMethodParams, withIndex(v, index, token))
}

// InjectProperty declares that exported field of the constructed value
// receives token after construction.
func (d *Declarations) InjectProperty(class *Class, field string, token Token) {
	mustDeclare(class, 0, token)
	if field == "" {
		panic("container: empty property name")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	props := map[string]Token{}
	if v, ok := d.store.GetOwnClassMetadata(class, KeyProperties); ok {
		props = maps.Clone(v.(map[string]Token))
	}
	props[field] = token
	d.store.SetClassMetadata(class, KeyProperties, props)
}

// Injectable marks class as self-registering with the given options.
func (d *Declarations) Injectable(class *Class, opts InjectableOptions) {
	if class == nil {
		panic("container: nil class")
	}
	if opts.Token == class {
		// InjectableOf restores it; a record must not reference its own class.
		opts.Token = nil
	}
	d.store.SetClassMetadata(class, KeyInjectable, opts)
}

// ── Readers ──────────────────────────────────────────────────────────────────

// ConstructorTokens returns the sparse constructor tokens of class; nil
// entries are undeclared positions. Inherited from parents when class declares
// none of its own.
func (d *Declarations) ConstructorTokens(class *Class) []Token {
	v, _ := d.store.GetClassMetadata(class, KeyConstructorParams)
	return tokenSlice(v)
}

// MethodTokens returns the sparse declared tokens of one method.
func (d *Declarations) MethodTokens(class *Class, method string) []Token {
	v, _ := d.store.GetMethodMetadata(class, method, KeyMethodParams)
	return tokenSlice(v)
}

// PropertyTokens returns field → token for class, including fields declared
// on parents. Child declarations win.
func (d *Declarations) PropertyTokens(class *Class) map[string]Token {
	out := map[string]Token{}
	var chain []*Class
	for c := class; c != nil && !slices.Contains(chain, c); c = d.store.Parent(c) {
		chain = append(chain, c)
	}
	for _, c := range slices.Backward(chain) {
		if v, ok := d.store.GetOwnClassMetadata(c, KeyProperties); ok {
			maps.Copy(out, v.(map[string]Token))
		}
	}
	return out
}

// InjectableOf returns the options recorded by Injectable.
func (d *Declarations) InjectableOf(class *Class) (InjectableOptions, bool) {
	v, ok := d.store.GetClassMetadata(class, KeyInjectable)
	if !ok {
		return InjectableOptions{}, false
	}
	opts := v.(InjectableOptions)
	if opts.Token == nil {
		opts.Token = class
	}
	return opts, true
}

// ── Package-level helpers on DefaultDeclarations ─────────────────────────────

func InjectParam(class *Class, index int, token Token) {
	DefaultDeclarations.InjectParam(class, index, token)
}

func InjectMethodParam(class *Class, method string, index int, token Token) {
	DefaultDeclarations.InjectMethodParam(class, method, index, token)
}

func InjectProperty(class *Class, field string, token Token) {
	DefaultDeclarations.InjectProperty(class, field, token)
}

func Injectable(class *Class, opts InjectableOptions) {
	DefaultDeclarations.Injectable(class, opts)
}

func mustDeclare(class *Class, index int, token Token) {
	if class == nil {
		panic("container: nil class")
	}
	if index < 0 {
		panic(fmt.Sprintf("container: negative parameter index %d on %s", index, class.Name()))
	}
	if !IsValidToken(token) {
		panic(fmt.Sprintf("container: invalid token %s on %s", TokenName(token), class.Name()))
	}
}

func withIndex(existing any, index int, token Token) []Token {
	tokens := slices.Clone(tokenSlice(existing))
	if index >= len(tokens) {
		tokens = append(tokens, make([]Token, index+1-len(tokens))...)
	}
	tokens[index] = token
	return tokens
}

func tokenSlice(v any) []Token {
	tokens, _ := v.([]Token)
	return tokens
}
