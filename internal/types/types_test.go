package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinLookup(t *testing.T) {
	for _, name := range []string{"i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64", "f32", "f64", "bool", "str", "char", "void"} {
		typ, ok := Builtin(name)
		require.True(t, ok, name)
		assert.Equal(t, name, typ.String())
	}
	_, ok := Builtin("int")
	assert.False(t, ok)
}

func TestStructEquality(t *testing.T) {
	a := &Struct{Name: "Point", Fields: []Field{{Name: "x", Type: I32}}}
	b := &Struct{Name: "Point"}
	c := &Struct{Name: "Vec"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(I32))
}

func TestSizeOf(t *testing.T) {
	assert.Equal(t, 4, SizeOf(I32))
	assert.Equal(t, 8, SizeOf(F64))
	assert.Equal(t, 1, SizeOf(BoolType))
	assert.Equal(t, -1, SizeOf(StrType))
	assert.Equal(t, -1, SizeOf(VoidType))

	point := &Struct{Name: "Point", Fields: []Field{{Name: "x", Type: I32}, {Name: "y", Type: I32}}}
	assert.Equal(t, 8, SizeOf(point))

	withStr := &Struct{Name: "Named", Fields: []Field{{Name: "name", Type: StrType}}}
	assert.Equal(t, -1, SizeOf(withStr))

	arr := &Array{Elem: I64, Size: 4}
	assert.Equal(t, 32, SizeOf(arr))
}

func TestIsCopy(t *testing.T) {
	assert.True(t, IsCopy(I32))
	assert.True(t, IsCopy(F64))
	assert.True(t, IsCopy(BoolType))
	assert.True(t, IsCopy(CharType))
	assert.False(t, IsCopy(StrType))

	small := &Struct{Name: "Point", Fields: []Field{{Name: "x", Type: I32}, {Name: "y", Type: I32}}}
	assert.True(t, IsCopy(small))

	// Three i64 fields exceed the copy bound.
	big := &Struct{Name: "Triple", Fields: []Field{
		{Name: "a", Type: I64}, {Name: "b", Type: I64}, {Name: "c", Type: I64},
	}}
	assert.False(t, IsCopy(big))

	withStr := &Struct{Name: "Named", Fields: []Field{{Name: "name", Type: StrType}}}
	assert.False(t, IsCopy(withStr))

	arr := &Array{Elem: I32, Size: 2}
	assert.False(t, IsCopy(arr))
}

func TestWidens(t *testing.T) {
	assert.True(t, Widens(I32, I64))
	assert.True(t, Widens(I32, I32))
	assert.False(t, Widens(I64, I32))
	assert.False(t, Widens(I32, U64))
	assert.False(t, Widens(I32, F64))
	assert.True(t, Widens(F32, F64))
	assert.False(t, Widens(F64, F32))
	assert.False(t, Widens(BoolType, I32))
}

func TestFits(t *testing.T) {
	assert.True(t, Fits(127, I8))
	assert.True(t, Fits(-128, I8))
	assert.False(t, Fits(128, I8))
	assert.False(t, Fits(-129, I8))

	assert.True(t, Fits(255, U8))
	assert.False(t, Fits(256, U8))
	assert.False(t, Fits(-1, U8))

	assert.True(t, Fits(1<<40, I64))
	assert.True(t, Fits(1<<40, U64))
	assert.False(t, Fits(1<<40, I32))
	assert.True(t, Fits(1<<31, U32))
	assert.False(t, Fits(1<<32, U32))
}

func TestEnvScoping(t *testing.T) {
	env := NewEnv()
	require.True(t, env.Define(&Binding{Name: "x", Type: I32}))
	assert.False(t, env.Define(&Binding{Name: "x", Type: I64}), "same-scope redefinition")

	env.Push()
	assert.Equal(t, 2, env.Depth())
	require.True(t, env.Define(&Binding{Name: "x", Type: StrType}), "shadowing is allowed")

	b, ok := env.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, StrType, b.Type)

	_, ok = env.LookupLocal("y")
	assert.False(t, ok)

	env.Pop()
	b, ok = env.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, I32, b.Type, "outer binding visible again after pop")

	assert.Panics(t, func() { env.Pop() })
}
