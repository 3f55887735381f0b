package container

import (
	"fmt"
	"reflect"
	"runtime"
	"sync"
	"weak"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Class is the container's notion of a class definition: a constructor plus
// an optional statically known parent. Classes are compared by identity, so
// declare each one once, usually as a package-level variable.
//
//	var UserServiceClass = container.MustClass(NewUserService)
type Class struct {
	name     string
	ctor     reflect.Value
	ctorType reflect.Type
	typ      reflect.Type
	fallible bool
	parent   *Class
}

// ClassOption configures NewClass.
type ClassOption func(*Class)

// WithName overrides the display name derived from the constructed type.
func WithName(name string) ClassOption {
	return func(c *Class) { c.name = name }
}

// Extends records parent as the class this one inherits declarations from.
// Typically the child type embeds the parent type.
func Extends(parent *Class) ClassOption {
	return func(c *Class) { c.parent = parent }
}

// classes maps constructed types to their classes so Invoke can find the
// declarations of an arbitrary instance. The last class declared for a type
// wins. Entries are weak and disappear with their class.
var classes sync.Map // reflect.Type → weak.Pointer[Class]

// index records c as the class of instances of type t.
func (c *Class) index(t reflect.Type) {
	wp := weak.Make(c)
	if prev, loaded := classes.Swap(t, wp); loaded && prev.(weak.Pointer[Class]) == wp {
		return
	}
	runtime.AddCleanup(c, func(wp weak.Pointer[Class]) { classes.CompareAndDelete(t, wp) }, wp)
}

// NewClass builds a Class from a constructor of the form
//
//	func(params...) T
//	func(params...) (T, error)
//
// Constructor parameters are filled by position from the class's declared
// constructor tokens; undeclared positions receive the zero value.
func NewClass(ctor any, opts ...ClassOption) (*Class, error) {
	if ctor == nil {
		return nil, newError(CodeClassConstructorInvalid, nil, "constructor is nil")
	}
	v := reflect.ValueOf(ctor)
	t := v.Type()
	if t.Kind() != reflect.Func || v.IsNil() {
		return nil, newError(CodeClassConstructorInvalid, nil,
			fmt.Sprintf("a constructor function was expected, but a %q was received", t))
	}

	c := &Class{ctor: v, ctorType: t}
	switch {
	case t.NumOut() == 1 && t.Out(0) != errorType:
	case t.NumOut() == 2 && t.Out(1) == errorType && t.Out(0) != errorType:
		c.fallible = true
	default:
		return nil, newError(CodeClassConstructorInvalid, nil,
			fmt.Sprintf("constructor %s must return T or (T, error)", t))
	}
	c.typ = t.Out(0)
	c.name = typeName(c.typ)

	for _, opt := range opts {
		opt(c)
	}
	if c.parent == c {
		c.parent = nil
	}
	c.index(c.typ)
	return c, nil
}

// MustClass is NewClass that panics on error. Meant for package-level
// declarations.
func MustClass(ctor any, opts ...ClassOption) *Class {
	c, err := NewClass(ctor, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// ClassOf returns the class declared for the dynamic type of instance.
func ClassOf(instance any) (*Class, bool) {
	if instance == nil {
		return nil, false
	}
	wp, ok := classes.Load(reflect.TypeOf(instance))
	if !ok {
		return nil, false
	}
	c := wp.(weak.Pointer[Class]).Value()
	return c, c != nil
}

func (c *Class) Name() string { return c.name }

// Type is the type produced by the constructor.
func (c *Class) Type() reflect.Type { return c.typ }

// Parent returns the class passed to Extends, or nil.
func (c *Class) Parent() *Class { return c.parent }

// NumIn is the constructor's declared parameter count.
func (c *Class) NumIn() int { return c.ctorType.NumIn() }

func (c *Class) String() string { return "class " + c.name }

// construct calls the constructor with args. Missing trailing parameters are
// zero-filled; a nil argument becomes the parameter's zero value.
func (c *Class) construct(args []any) (any, error) {
	in, err := callArgs(c.ctorType, args, c.name)
	if err != nil {
		return nil, err
	}
	out := c.ctor.Call(in)
	if c.fallible {
		if e, _ := out[1].Interface().(error); e != nil {
			return nil, e
		}
	}
	v := out[0].Interface()
	if c.typ.Kind() == reflect.Interface && v != nil {
		// Invoke looks instances up by their dynamic type.
		c.indexDynamic(reflect.TypeOf(v))
	}
	return v, nil
}

func (c *Class) indexDynamic(t reflect.Type) {
	if wp, ok := classes.Load(t); ok && wp.(weak.Pointer[Class]).Value() == c {
		return
	}
	c.index(t)
}

// callArgs converts positional args into reflect values for a call of fn.
// Non-variadic functions get exactly NumIn values; variadic ones receive their
// fixed parameters plus any extra args.
func callArgs(fn reflect.Type, args []any, owner string) ([]reflect.Value, error) {
	n := fn.NumIn()
	variadic := fn.IsVariadic()
	if !variadic && len(args) > n {
		return nil, newError(CodeInvalidInjectionTarget, nil,
			fmt.Sprintf("%s accepts %d parameters, %d were supplied", owner, n, len(args)))
	}

	size := n
	if variadic {
		size = max(n-1, len(args))
	}
	in := make([]reflect.Value, size)
	for i := range size {
		pt := paramType(fn, i)
		var arg any
		if i < len(args) {
			arg = args[i]
		}
		v, err := assignable(arg, pt)
		if err != nil {
			return nil, newError(CodeInvalidInjectionTarget, nil,
				fmt.Sprintf("%s parameter %d: %v", owner, i, err))
		}
		in[i] = v
	}
	return in, nil
}

func paramType(fn reflect.Type, i int) reflect.Type {
	if fn.IsVariadic() && i >= fn.NumIn()-1 {
		return fn.In(fn.NumIn() - 1).Elem()
	}
	return fn.In(i)
}

// assignable returns v as a value of type t. nil maps to the zero value.
func assignable(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", rv.Type(), t)
	}
	return rv, nil
}

func typeName(t reflect.Type) string {
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Name() != "" {
		return base.Name()
	}
	return t.String()
}
