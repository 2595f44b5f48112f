package value_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"thorn/internal/value"
)

func TestTruthy(t *testing.T) {
	assert.False(t, value.Truthy(value.Null{}))
	assert.False(t, value.Truthy(value.Bool(false)))
	assert.True(t, value.Truthy(value.Bool(true)))
	assert.True(t, value.Truthy(value.Number(0)))
	assert.True(t, value.Truthy(value.String("")))
	assert.True(t, value.Truthy(value.NewList(nil)))
}

func TestNumberEqualityIsNaNSensitive(t *testing.T) {
	nan := value.Number(math.NaN())
	assert.False(t, value.Equals(nan, nan), "NaN must not equal itself")
	assert.True(t, value.Equals(value.Number(1), value.Number(1)))
	assert.False(t, value.Equals(value.Number(1), value.Number(2)))
}

func TestStructuralEqualityForContainers(t *testing.T) {
	a := value.NewList([]value.Value{value.Number(1), value.String("x")})
	b := value.NewList([]value.Value{value.Number(1), value.String("x")})
	assert.True(t, value.Equals(a, b), "lists with equal elements are structurally equal")

	c := value.NewList([]value.Value{value.Number(1), value.String("y")})
	assert.False(t, value.Equals(a, c))
}

func TestDictInsertionOrderPreservedAcrossOverwrite(t *testing.T) {
	d := value.NewDict()
	d.Set(value.String("a"), value.Number(1))
	d.Set(value.String("b"), value.Number(2))
	d.Set(value.String("a"), value.Number(99)) // overwrite, must not move position

	keys := d.Keys()
	if assert.Len(t, keys, 2) {
		assert.Equal(t, value.String("a"), keys[0])
		assert.Equal(t, value.String("b"), keys[1])
	}
	v, ok := d.Get(value.String("a"))
	assert.True(t, ok)
	assert.Equal(t, value.Number(99), v)
}

func TestDictMissingKeyReadsAsNull(t *testing.T) {
	d := value.NewDict()
	v, ok := d.Get(value.String("missing"))
	assert.False(t, ok)
	assert.Equal(t, value.Null{}, v)
}

func TestDictKeyEquivalenceDoesNotConflateStringAndNumber(t *testing.T) {
	d := value.NewDict()
	d.Set(value.String("1"), value.String("as-string"))
	d.Set(value.Number(1), value.String("as-number"))
	assert.Equal(t, 2, d.Size())
}

func TestResultRoundTrip(t *testing.T) {
	ok := value.Ok(value.Number(42))
	assert.True(t, ok.IsOk())
	assert.Equal(t, value.Number(42), ok.UnwrapOr(value.Number(-1)))

	errv := value.ErrorVal(value.String("boom"))
	assert.False(t, errv.IsOk())
	assert.Equal(t, value.Number(-1), errv.UnwrapOr(value.Number(-1)))
}

func TestLessThanOnlyDefinedForLikeKinds(t *testing.T) {
	lt, ok := value.LessThan(value.Number(1), value.Number(2))
	assert.True(t, ok)
	assert.True(t, lt)

	lt, ok = value.LessThan(value.String("a"), value.String("b"))
	assert.True(t, ok)
	assert.True(t, lt)

	_, ok = value.LessThan(value.Number(1), value.String("b"))
	assert.False(t, ok, "mixed-kind comparison is undefined")
}

func TestNormalizeIndexHandlesNegativeAndOutOfRange(t *testing.T) {
	idx, ok := value.NormalizeIndex(-1, 5)
	assert.True(t, ok)
	assert.Equal(t, 4, idx)

	_, ok = value.NormalizeIndex(5, 5)
	assert.False(t, ok)

	_, ok = value.NormalizeIndex(-6, 5)
	assert.False(t, ok)
}

func TestNormalizeSliceClampsAndDefaults(t *testing.T) {
	s, e := value.NormalizeSlice(nil, nil, 10)
	assert.Equal(t, 0, s)
	assert.Equal(t, 10, e)

	start, end := -3, 100
	s, e = value.NormalizeSlice(&start, &end, 10)
	assert.Equal(t, 7, s)
	assert.Equal(t, 10, e)

	start, end = 8, 2
	s, e = value.NormalizeSlice(&start, &end, 10)
	assert.Equal(t, 8, s, "end before start clamps to start, never goes negative-width")
	assert.Equal(t, 8, e)
}

func TestKindStringMatchesSurfaceTypeNames(t *testing.T) {
	assert.Equal(t, "Array", value.KindList.String())
	assert.Equal(t, "Dict", value.KindDict.String())
	assert.Equal(t, "number", value.KindNumber.String())
}
