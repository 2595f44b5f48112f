package environment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thorn/internal/environment"
	"thorn/internal/value"
)

func TestGetWalksParentChain(t *testing.T) {
	root := environment.New(nil)
	root.Define("x", value.Number(1), false)

	child := environment.New(root)
	v, ok := child.Get("x")
	require.True(t, ok)
	assert.Equal(t, value.Number(1), v)

	_, ok = child.Get("missing")
	assert.False(t, ok)
}

func TestDefineShadowsInChildScope(t *testing.T) {
	root := environment.New(nil)
	root.Define("x", value.Number(1), false)

	child := environment.New(root)
	child.Define("x", value.Number(2), false)

	v, _ := child.Get("x")
	assert.Equal(t, value.Number(2), v)

	v, _ = root.Get("x")
	assert.Equal(t, value.Number(1), v, "shadowing in the child must not mutate the parent binding")
}

func TestAssignMutatesInnermostExistingBinding(t *testing.T) {
	root := environment.New(nil)
	root.Define("x", value.Number(1), false)
	child := environment.New(root)

	found, immutable := child.Assign("x", value.Number(99))
	assert.True(t, found)
	assert.False(t, immutable)

	v, _ := root.Get("x")
	assert.Equal(t, value.Number(99), v, "assign through a child must reach up to the binding's real scope")
}

func TestAssignToImmutableReportsImmutable(t *testing.T) {
	root := environment.New(nil)
	root.Define("x", value.Number(1), true)

	found, immutable := root.Assign("x", value.Number(2))
	assert.True(t, found)
	assert.True(t, immutable)

	v, _ := root.Get("x")
	assert.Equal(t, value.Number(1), v, "immutable binding must not change")
}

func TestDefineOrAssignDeclaresFreshWhenUnbound(t *testing.T) {
	root := environment.New(nil)
	child := environment.New(root)

	child.DefineOrAssign("y", value.Number(5))

	_, okInChild := child.Get("y")
	assert.True(t, okInChild)
	_, okDirectlyInRoot := root.Get("y")
	assert.False(t, okDirectlyInRoot, "DefineOrAssign should not leak into an unrelated outer scope when unbound")
}

func TestDefineOrAssignMutatesExistingOuterBinding(t *testing.T) {
	root := environment.New(nil)
	root.Define("counter", value.Number(0), false)
	child := environment.New(root)

	child.DefineOrAssign("counter", value.Number(1))

	v, _ := root.Get("counter")
	assert.Equal(t, value.Number(1), v, "closures over a mutable outer local must observe the mutation")
}

func TestRedefiningCallableMergesIntoFunctionGroup(t *testing.T) {
	root := environment.New(nil)
	fnA := &environment.NativeFunction{FnName: "f", Arity: 1, Fn: nil}
	fnB := &environment.NativeFunction{FnName: "f", Arity: 2, Fn: nil}

	root.Define("f", fnA, false)
	root.Define("f", fnB, false)

	v, ok := root.Get("f")
	require.True(t, ok)
	group, ok := v.(*environment.FunctionGroup)
	require.True(t, ok, "two callables sharing a name must merge into a FunctionGroup, not shadow")
	assert.Len(t, group.Overloads, 2)
}

func TestRedefiningNonCallableShadowsNormally(t *testing.T) {
	root := environment.New(nil)
	root.Define("x", value.Number(1), false)
	root.Define("x", value.Number(2), false)

	v, _ := root.Get("x")
	assert.Equal(t, value.Number(2), v)
}

func TestExportsOnlyIncludesMarkedNames(t *testing.T) {
	mod := environment.New(nil)
	mod.Define("a", value.Number(1), false)
	mod.Define("b", value.Number(2), false)
	mod.MarkExported("a")

	exports := mod.Exports()
	assert.Contains(t, exports, "a")
	assert.NotContains(t, exports, "b")
}

func TestInstanceFieldFallsThroughToBoundMethod(t *testing.T) {
	class := &environment.Class{
		Name:    "Point",
		Methods: map[string]*environment.Closure{"describe": {}},
	}
	inst := environment.NewInstance(class)
	inst.SetField("x", value.Number(1))

	v, ok := inst.GetField("x")
	require.True(t, ok)
	assert.Equal(t, value.Number(1), v)

	v, ok = inst.GetField("describe")
	require.True(t, ok)
	_, isBound := v.(*environment.BoundMethod)
	assert.True(t, isBound, "a method name not shadowed by a field must resolve to a bound method")

	_, ok = inst.GetField("nonexistent")
	assert.False(t, ok)
}

func TestAncestorWalksFixedDepth(t *testing.T) {
	root := environment.New(nil)
	mid := environment.New(root)
	leaf := environment.New(mid)

	assert.Same(t, mid, leaf.Ancestor(1))
	assert.Same(t, root, leaf.Ancestor(2))
}
