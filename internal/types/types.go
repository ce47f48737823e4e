// Package types defines the Sable type representation and the scoped
// type environment used during checking. Types compare structurally;
// there is no nominal subtyping.
package types

import (
	"fmt"
	"strings"
)

// Type is the closed set of Sable types. Concrete implementations are
// Void, Int, Float, Bool, Str, Char, Struct and Array.
type Type interface {
	String() string
	Equal(other Type) bool
}

// Void is the absence of a value; only legal as a return type.
type Void struct{}

func (Void) String() string        { return "void" }
func (Void) Equal(other Type) bool { _, ok := other.(Void); return ok }

// Int is a fixed-width integer type.
type Int struct {
	Width  int // 8, 16, 32 or 64
	Signed bool
}

func (t Int) String() string {
	if t.Signed {
		return fmt.Sprintf("i%d", t.Width)
	}
	return fmt.Sprintf("u%d", t.Width)
}

func (t Int) Equal(other Type) bool {
	o, ok := other.(Int)
	return ok && o.Width == t.Width && o.Signed == t.Signed
}

// Float is a fixed-width floating point type.
type Float struct {
	Width int // 32 or 64
}

func (t Float) String() string        { return fmt.Sprintf("f%d", t.Width) }
func (t Float) Equal(other Type) bool { o, ok := other.(Float); return ok && o.Width == t.Width }

// Bool is the boolean type.
type Bool struct{}

func (Bool) String() string        { return "bool" }
func (Bool) Equal(other Type) bool { _, ok := other.(Bool); return ok }

// Str is the string type.
type Str struct{}

func (Str) String() string        { return "str" }
func (Str) Equal(other Type) bool { _, ok := other.(Str); return ok }

// Char is a single Unicode scalar.
type Char struct{}

func (Char) String() string        { return "char" }
func (Char) Equal(other Type) bool { _, ok := other.(Char); return ok }

// Field is one declared struct field.
type Field struct {
	Name string
	Type Type
}

// Struct is a user-declared aggregate. Parsed type annotations carry only
// the name; the checker resolves Fields from the declaration. Two struct
// types are equal when their names match (field sets are unique per name).
type Struct struct {
	Name   string
	Fields []Field
}

func (t *Struct) String() string { return t.Name }

func (t *Struct) Equal(other Type) bool {
	o, ok := other.(*Struct)
	return ok && o.Name == t.Name
}

// FieldIndex returns the declaration index of the named field, or -1.
func (t *Struct) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// Array is a fixed-size homogeneous aggregate.
type Array struct {
	Elem Type
	Size int
}

func (t *Array) String() string { return fmt.Sprintf("[%s; %d]", t.Elem, t.Size) }

func (t *Array) Equal(other Type) bool {
	o, ok := other.(*Array)
	return ok && o.Size == t.Size && o.Elem.Equal(t.Elem)
}

// Predeclared singletons for the primitive types.
var (
	VoidType = Void{}
	I8       = Int{Width: 8, Signed: true}
	I16      = Int{Width: 16, Signed: true}
	I32      = Int{Width: 32, Signed: true}
	I64      = Int{Width: 64, Signed: true}
	U8       = Int{Width: 8, Signed: false}
	U16      = Int{Width: 16, Signed: false}
	U32      = Int{Width: 32, Signed: false}
	U64      = Int{Width: 64, Signed: false}
	F32      = Float{Width: 32}
	F64      = Float{Width: 64}
	BoolType = Bool{}
	StrType  = Str{}
	CharType = Char{}
)

// builtins maps spellings of the built-in types to their singletons.
var builtins = map[string]Type{
	"void": VoidType,
	"i8":   I8, "i16": I16, "i32": I32, "i64": I64,
	"u8": U8, "u16": U16, "u32": U32, "u64": U64,
	"f32": F32, "f64": F64,
	"bool": BoolType,
	"str":  StrType,
	"char": CharType,
}

// Builtin returns the built-in type with the given spelling, if any.
func Builtin(name string) (Type, bool) {
	t, ok := builtins[name]
	return t, ok
}

// IsNumeric reports whether t is an integer or floating type.
func IsNumeric(t Type) bool {
	switch t.(type) {
	case Int, Float:
		return true
	}
	return false
}

// IsPrimitive reports whether t is exempt from move tracking on its own:
// integers, floats, bool and char copy implicitly. Strings and aggregates
// do not.
func IsPrimitive(t Type) bool {
	switch t.(type) {
	case Int, Float, Bool, Char:
		return true
	}
	return false
}

// SizeOf returns the packed size of t in bytes, or -1 when the size is
// not statically meaningful here (void, str).
func SizeOf(t Type) int {
	switch tt := t.(type) {
	case Int:
		return tt.Width / 8
	case Float:
		return tt.Width / 8
	case Bool, Char:
		return 1
	case *Struct:
		total := 0
		for _, f := range tt.Fields {
			s := SizeOf(f.Type)
			if s < 0 {
				return -1
			}
			total += s
		}
		return total
	case *Array:
		s := SizeOf(tt.Elem)
		if s < 0 {
			return -1
		}
		return s * tt.Size
	}
	return -1
}

// maxCopySize is the packed-size bound under which an all-primitive
// struct copies instead of moving.
const maxCopySize = 16

// IsCopy reports whether bindings of type t bypass move tracking
// entirely: primitives always, and small fixed-size aggregates whose
// fields are all primitive.
func IsCopy(t Type) bool {
	if IsPrimitive(t) {
		return true
	}
	if st, ok := t.(*Struct); ok {
		for _, f := range st.Fields {
			if !IsPrimitive(f.Type) {
				return false
			}
		}
		size := SizeOf(st)
		return size >= 0 && size <= maxCopySize
	}
	return false
}

// Widens reports whether a literal of type from may adopt type to in an
// annotated-destination context: widening within the same numeric family
// only. It never applies between two already-typed expressions.
func Widens(from, to Type) bool {
	switch f := from.(type) {
	case Int:
		t, ok := to.(Int)
		return ok && t.Signed == f.Signed && t.Width >= f.Width
	case Float:
		t, ok := to.(Float)
		return ok && t.Width >= f.Width
	}
	return false
}

// Fits reports whether the integer value v is representable in t.
func Fits(v int64, t Int) bool {
	if t.Signed {
		if t.Width == 64 {
			return true
		}
		bound := int64(1) << (t.Width - 1)
		return v >= -bound && v < bound
	}
	if v < 0 {
		return false
	}
	return t.Width == 64 || uint64(v) < uint64(1)<<t.Width
}

// FormatList renders a type list for diagnostics.
func FormatList(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
