package container

import (
	"fmt"
	"reflect"
)

// Invoke calls the named method of instance. Parameters with a declared
// token (see InjectMethodParam) receive the resolved dependency, overriding
// any explicit argument at the same position; other positions take args[i]
// (nil becomes the zero value) or the zero value when args is shorter.
//
// A trailing error result is returned as the error. Of the remaining results,
// none yields nil, one yields that value, and several yield a []any.
//
//	out, err := c.Invoke(ctrl, "Show", w, r)
func (c *Container) Invoke(instance any, method string, args ...any) (any, error) {
	if instance == nil {
		return nil, newError(CodeInvalidInjectionTarget, nil, "cannot invoke a method on nil")
	}
	m := reflect.ValueOf(instance).MethodByName(method)
	if !m.IsValid() {
		return nil, newError(CodeInvalidInjectionTarget, nil,
			fmt.Sprintf("%T has no method %q", instance, method))
	}

	var tokens []Token
	if class, ok := ClassOf(instance); ok {
		tokens = c.decl.MethodTokens(class, method)
	}

	res := &resolution{}
	values := make([]any, max(len(tokens), len(args)))
	for i := range values {
		if i < len(tokens) && tokens[i] != nil {
			v, err := c.resolve(res, tokens[i])
			if err != nil {
				return nil, err
			}
			values[i] = v
			continue
		}
		if i < len(args) {
			values[i] = args[i]
		}
	}

	in, err := callArgs(m.Type(), values, fmt.Sprintf("%T.%s", instance, method))
	if err != nil {
		return nil, err
	}
	return results(m.Call(in))
}

func results(out []reflect.Value) (any, error) {
	if n := len(out); n > 0 && out[n-1].Type() == errorType {
		err, _ := out[n-1].Interface().(error)
		out = out[:n-1]
		if err != nil {
			return nil, err
		}
	}
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	}
	vals := make([]any, len(out))
	for i, v := range out {
		vals[i] = v.Interface()
	}
	return vals, nil
}
