package container

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// frame is one step of a resolution chain. Token and class resolutions are
// tracked separately: a class registered under itself is resolved once as a
// token and once as a class without being a cycle.
type frame struct {
	class bool
	token Token
}

// resolution tracks the in-progress chain of one top-level Resolve or Invoke.
type resolution struct {
	stack []frame
}

func (r *resolution) enter(f frame) error {
	if slices.Contains(r.stack, f) {
		path := make([]string, 0, len(r.stack)+1)
		for _, s := range r.stack {
			if !s.class {
				path = append(path, TokenName(s.token))
			}
		}
		path = append(path, TokenName(f.token))
		e := newError(CodeCyclicDependency, f.token,
			fmt.Sprintf("cyclic dependency on %q", TokenName(f.token)))
		e.Path = path
		return e
	}
	r.stack = append(r.stack, f)
	return nil
}

func (r *resolution) leave() { r.stack = r.stack[:len(r.stack)-1] }

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve returns the value for a registered token, or constructs a class.
//
// A registered token is resolved through its record: singletons are served
// from the cache once built. An unregistered *Class is constructed directly:
// declared constructor tokens are resolved into their parameter positions,
// undeclared positions get the zero value, then declared properties are set.
func (c *Container) Resolve(token Token) (any, error) {
	return c.resolve(&resolution{}, token)
}

func (c *Container) resolve(res *resolution, token Token) (any, error) {
	if c.registry.Has(token) {
		return c.resolveToken(res, token)
	}
	switch t := token.(type) {
	case *Class:
		if t != nil {
			return c.resolveClass(res, t)
		}
	case string:
		if t != "" {
			return nil, newError(CodeTokenNotRegistered, t,
				fmt.Sprintf("dependency %q not registered in the container", t))
		}
	}
	return nil, newError(CodeClassConstructorInvalid, nil,
		fmt.Sprintf("a class was expected, but a %T was received", token))
}

func (c *Container) resolveToken(res *resolution, token Token) (any, error) {
	// Read before the record: Reset clears the registry first.
	gen := c.currentGeneration()
	dep, ok := c.registry.Get(token)
	if !ok {
		return nil, newError(CodeTokenNotRegistered, token,
			fmt.Sprintf("dependency %q not registered in the container", TokenName(token)))
	}

	if dep.Scope == Singleton {
		if v, ok := c.cached(token); ok {
			return v, nil
		}
	}

	if err := res.enter(frame{token: token}); err != nil {
		return nil, err
	}
	defer res.leave()

	if dep.Scope != Singleton {
		return c.compute(res, dep)
	}

	// The flight group is shared by all goroutines, while res only sees this
	// one. Two goroutines entering the same singleton cycle from opposite ends
	// wait on each other here instead of reporting CyclicDependency.
	v, err, _ := c.flight.Do(flightKey(token), func() (any, error) {
		if v, ok := c.cached(token); ok {
			return v, nil
		}
		v, err := c.compute(res, dep)
		if err != nil {
			return nil, err
		}
		c.cache(token, v, gen)
		return v, nil
	})
	return v, err
}

func (c *Container) compute(res *resolution, dep *Dependency) (any, error) {
	switch {
	case dep.UseValue != nil:
		return dep.UseValue, nil
	case dep.UseFactory != nil:
		return dep.UseFactory()
	case dep.UseClass != nil:
		return c.resolveClass(res, dep.UseClass)
	}
	return nil, newError(CodeCreationMethodMissing, dep.Token,
		fmt.Sprintf("dependency %q has no creation method", TokenName(dep.Token)))
}

func (c *Container) resolveClass(res *resolution, class *Class) (any, error) {
	if err := res.enter(frame{class: true, token: class}); err != nil {
		return nil, err
	}
	defer res.leave()

	tokens := c.decl.ConstructorTokens(class)
	if n := class.NumIn(); !class.ctorType.IsVariadic() && len(tokens) > n {
		return nil, newError(CodeInvalidInjectionTarget, class,
			fmt.Sprintf("%s declares constructor parameter %d, but its constructor takes %d", class.Name(), len(tokens)-1, n))
	}

	args := make([]any, len(tokens))
	for i, t := range tokens {
		if t == nil {
			continue
		}
		v, err := c.resolve(res, t)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	instance, err := class.construct(args)
	if err != nil {
		return nil, err
	}

	props := c.decl.PropertyTokens(class)
	for _, field := range slices.Sorted(maps.Keys(props)) {
		v, err := c.resolve(res, props[field])
		if err != nil {
			return nil, err
		}
		if err := setField(instance, field, v); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

// setField assigns v to the exported field of the struct instance points to.
func setField(instance any, field string, v any) error {
	rv := reflect.ValueOf(instance)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return newError(CodeInvalidInjectionTarget, nil,
				fmt.Sprintf("cannot inject %q into a nil %s", field, rv.Type()))
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return newError(CodeInvalidInjectionTarget, nil,
			fmt.Sprintf("cannot inject %q into non-struct %s", field, rv.Type()))
	}

	sf, ok := rv.Type().FieldByName(field)
	if !ok {
		return newError(CodeInvalidInjectionTarget, nil,
			fmt.Sprintf("%s has no field %q", rv.Type(), field))
	}
	fv, err := rv.FieldByIndexErr(sf.Index)
	if err != nil || !fv.CanSet() {
		return newError(CodeInvalidInjectionTarget, nil,
			fmt.Sprintf("field %s.%s is not settable", rv.Type(), field))
	}

	val, err := assignable(v, fv.Type())
	if err != nil {
		return newError(CodeInvalidInjectionTarget, nil,
			fmt.Sprintf("field %s.%s: %v", rv.Type(), field, err))
	}
	fv.Set(val)
	return nil
}

func flightKey(token Token) string {
	if s, ok := token.(string); ok {
		return "token:" + s
	}
	return fmt.Sprintf("class:%p", token)
}
