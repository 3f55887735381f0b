package container_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-inject/framework/container"
)

// ── Class ─────────────────────────────────────────────────────────────────────

func TestNewClass(t *testing.T) {
	class, err := container.NewClass(newPair)
	require.NoError(t, err)

	assert.Equal(t, "Pair", class.Name())
	assert.Equal(t, 2, class.NumIn())
	assert.Equal(t, "class Pair", class.String())
	assert.Nil(t, class.Parent())

	named := container.MustClass(newPair, container.WithName("pair"))
	assert.Equal(t, "pair", named.Name())
}

func TestNewClass_Invalid(t *testing.T) {
	for name, ctor := range map[string]any{
		"nil":          nil,
		"not a func":   42,
		"nil func":     (func() *Pair)(nil),
		"no result":    func() {},
		"only error":   func() error { return nil },
		"two values":   func() (int, int) { return 0, 0 },
		"three values": func() (int, int, error) { return 0, 0, nil },
	} {
		t.Run(name, func(t *testing.T) {
			_, err := container.NewClass(ctor)
			assert.ErrorIs(t, err, container.ErrClassConstructorInvalid)
		})
	}

	assert.Panics(t, func() { container.MustClass("nope") })
}

func TestClassOf(t *testing.T) {
	type widget struct{ n int }
	class := container.MustClass(func() *widget { return &widget{} })

	got, ok := container.ClassOf(&widget{})
	require.True(t, ok)
	assert.Same(t, class, got)

	_, ok = container.ClassOf(widget{})
	assert.False(t, ok, "the value type is distinct from the pointer type")

	_, ok = container.ClassOf(nil)
	assert.False(t, ok)
}

func TestExtends(t *testing.T) {
	parent := container.MustClass(newPair)
	child := container.MustClass(newPair, container.Extends(parent))

	assert.Same(t, parent, child.Parent())
	assert.Nil(t, container.MustClass(newPair, container.Extends(nil)).Parent())
}

// ── Declarations ──────────────────────────────────────────────────────────────

func TestDeclarations_ConstructorTokens(t *testing.T) {
	d := container.NewDeclarations()
	class := container.MustClass(newPair)

	assert.Empty(t, d.ConstructorTokens(class))

	d.InjectParam(class, 1, "b")
	assert.Equal(t, []container.Token{nil, "b"}, d.ConstructorTokens(class))

	d.InjectParam(class, 0, "a")
	assert.Equal(t, []container.Token{"a", "b"}, d.ConstructorTokens(class))

	d.InjectParam(class, 1, "c")
	assert.Equal(t, []container.Token{"a", "c"}, d.ConstructorTokens(class), "redeclaring an index replaces it")
}

func TestDeclarations_ConstructorTokensInherited(t *testing.T) {
	d := container.NewDeclarations()
	parent := container.MustClass(newPair)
	child := container.MustClass(newPair, container.Extends(parent))
	d.InjectParam(parent, 0, "p")

	assert.Equal(t, []container.Token{"p"}, d.ConstructorTokens(child))

	d.InjectParam(child, 1, "c")
	assert.Equal(t, []container.Token{nil, "c"}, d.ConstructorTokens(child), "own declarations shadow the parent's")
	assert.Equal(t, []container.Token{"p"}, d.ConstructorTokens(parent))
}

func TestDeclarations_MethodTokens(t *testing.T) {
	d := container.NewDeclarations()
	class := container.MustClass(newPair)
	d.InjectMethodParam(class, "Handle", 2, "clock")

	assert.Equal(t, []container.Token{nil, nil, "clock"}, d.MethodTokens(class, "Handle"))
	assert.Empty(t, d.MethodTokens(class, "Other"))
}

func TestDeclarations_PropertyTokensMergeParents(t *testing.T) {
	d := container.NewDeclarations()
	grand := container.MustClass(newPair)
	parent := container.MustClass(newPair, container.Extends(grand))
	child := container.MustClass(newPair, container.Extends(parent))

	d.InjectProperty(grand, "Logger", "logger")
	d.InjectProperty(grand, "DB", "db")
	d.InjectProperty(parent, "DB", "replica")
	d.InjectProperty(child, "Cache", "cache")

	assert.Equal(t, map[string]container.Token{
		"Logger": "logger",
		"DB":     "replica",
		"Cache":  "cache",
	}, d.PropertyTokens(child))
	assert.Equal(t, map[string]container.Token{"Logger": "logger", "DB": "db"}, d.PropertyTokens(grand))
}

func TestDeclarations_Injectable(t *testing.T) {
	d := container.NewDeclarations()
	class := container.MustClass(newPair)

	_, ok := d.InjectableOf(class)
	assert.False(t, ok)

	d.Injectable(class, container.InjectableOptions{})
	opts, ok := d.InjectableOf(class)
	require.True(t, ok)
	assert.Same(t, class, opts.Token)
	assert.Empty(t, opts.Scope)
}

func TestDeclarations_DoNotKeepClassesAlive(t *testing.T) {
	type orphan struct{ n int }
	d := container.NewDeclarations()

	func() {
		class := container.MustClass(func(a any) *orphan { return &orphan{} })
		d.InjectParam(class, 0, "a")
		d.InjectProperty(class, "N", "n")
		d.InjectMethodParam(class, "Handle", 0, "a")
		d.Injectable(class, container.InjectableOptions{Token: class, Scope: container.Singleton})
		require.Equal(t, 1, d.Store().Len())
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		_, indexed := container.ClassOf(&orphan{})
		return d.Store().Len() == 0 && !indexed
	}, 5*time.Second, 10*time.Millisecond)
}

func TestDeclarations_Panics(t *testing.T) {
	d := container.NewDeclarations()
	class := container.MustClass(newPair)

	assert.Panics(t, func() { d.InjectParam(nil, 0, "x") })
	assert.Panics(t, func() { d.InjectParam(class, -1, "x") })
	assert.Panics(t, func() { d.InjectParam(class, 0, "") })
	assert.Panics(t, func() { d.InjectProperty(class, "", "x") })
	assert.Panics(t, func() { d.Injectable(nil, container.InjectableOptions{}) })
}

func TestDeclarations_Isolated(t *testing.T) {
	a := container.NewDeclarations()
	b := container.NewDeclarations()
	class := container.MustClass(newPair)

	a.InjectParam(class, 0, "x")
	assert.Empty(t, b.ConstructorTokens(class))
	assert.True(t, a.Store().Has(class))
}

func TestDefaultDeclarations(t *testing.T) {
	type svc struct{ Name string }
	class := container.MustClass(func() *svc { return &svc{} })
	container.InjectProperty(class, "Name", "name")

	c := container.New()
	require.NoError(t, c.Register(container.Entry{Token: "name", UseValue: "default"}))

	v, err := container.Resolve[*svc](c, class)
	require.NoError(t, err)
	assert.Equal(t, "default", v.Name)
}
