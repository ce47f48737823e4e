package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sable-lang/sable/internal/ast"
	"github.com/sable-lang/sable/internal/diag"
	"github.com/sable-lang/sable/internal/lexer"
	"github.com/sable-lang/sable/internal/parser"
	"github.com/sable-lang/sable/internal/types"
)

func check(t *testing.T, src string) (*ast.Program, *Info, error) {
	t.Helper()
	tokens, err := lexer.New(src).Tokenize()
	require.NoError(t, err)
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)
	info, err := Check(prog)
	return prog, info, err
}

func firstTypeError(t *testing.T, err error) *diag.TypeError {
	t.Helper()
	require.Error(t, err)
	var typeErr *diag.TypeError
	require.ErrorAs(t, err, &typeErr)
	return typeErr
}

func TestCheckSimpleFunction(t *testing.T) {
	prog, info, err := check(t, "fn main() -> i32 {\n    let x = 5\n    return x\n}")
	require.NoError(t, err)
	require.Contains(t, info.Funcs, "main")
	assert.Equal(t, types.I32, info.Funcs["main"].Ret)

	// Literal defaulting: unsuffixed integers are i32.
	decl := prog.Stmts[0].(*ast.FuncDecl).Body.Stmts[0].(*ast.VarDecl)
	assert.Equal(t, types.I32, decl.ResolvedType)
	assert.Equal(t, types.I32, decl.Init.Type())
}

func TestLiteralAdoptsAnnotatedType(t *testing.T) {
	prog, _, err := check(t, "fn main() -> i32 {\n    let x: i64 = 5\n    let f: f32 = 1.5\n    return 0\n}")
	require.NoError(t, err)
	body := prog.Stmts[0].(*ast.FuncDecl).Body.Stmts
	assert.Equal(t, types.I64, body[0].(*ast.VarDecl).ResolvedType)
	assert.Equal(t, types.F32, body[1].(*ast.VarDecl).ResolvedType)
}

func TestSuffixedLiteral(t *testing.T) {
	prog, _, err := check(t, "fn main() -> i32 {\n    let x = 7u8\n    return 0\n}")
	require.NoError(t, err)
	decl := prog.Stmts[0].(*ast.FuncDecl).Body.Stmts[0].(*ast.VarDecl)
	assert.Equal(t, types.U8, decl.ResolvedType)
}

func TestInitializerTypeMismatch(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    let x: i32 = 1.5\n    return 0\n}")
	assert.Equal(t, diag.TypeMismatch, firstTypeError(t, err).Kind)
}

func TestUndefinedIdentifier(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    return y\n}")
	assert.Equal(t, diag.UndefinedIdentifier, firstTypeError(t, err).Kind)
}

func TestUndefinedFunction(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    frob()\n    return 0\n}")
	assert.Equal(t, diag.UndefinedFunction, firstTypeError(t, err).Kind)
}

func TestMissingMain(t *testing.T) {
	_, _, err := check(t, "fn helper() -> i32 {\n    return 0\n}")
	assert.Equal(t, diag.UndefinedFunction, firstTypeError(t, err).Kind)
}

func TestImmutableAssignment(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    let x = 1\n    x = 2\n    return x\n}")
	assert.Equal(t, diag.ImmutableAssignment, firstTypeError(t, err).Kind)
}

func TestMutableAssignment(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    let mut x = 1\n    x = 2\n    return x\n}")
	assert.NoError(t, err)
}

func TestChainedAssignmentTypes(t *testing.T) {
	prog, _, err := check(t, "fn main() -> i32 {\n    let mut a = 0\n    let mut b = 0\n    a = b = 3\n    return a\n}")
	require.NoError(t, err)

	body := prog.Stmts[0].(*ast.FuncDecl).Body.Stmts
	inner := body[2].(*ast.AssignStmt).Value.(*ast.AssignExpr)
	assert.Equal(t, types.I32, inner.Type())
	assert.Equal(t, types.I32, inner.Value.Type())
}

func TestChainedAssignmentImmutableInner(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    let mut a = 0\n    let b = 0\n    a = b = 3\n    return a\n}")
	assert.Equal(t, diag.ImmutableAssignment, firstTypeError(t, err).Kind)
}

func TestLiteralMustFitAnnotatedWidth(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"i8 overflow", "fn main() -> i32 {\n    let x: i8 = 300\n    return 0\n}"},
		{"u8 overflow", "fn main() -> i32 {\n    let x: u8 = 256\n    return 0\n}"},
		{"u16 suffix overflow", "fn main() -> i32 {\n    let x = 70000u16\n    return 0\n}"},
		{"i32 default overflow", "fn main() -> i32 {\n    let x = 5000000000\n    return 0\n}"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := check(t, tc.src)
			assert.Equal(t, diag.TypeMismatch, firstTypeError(t, err).Kind)
		})
	}
}

func TestLiteralAtWidthBoundary(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    let a: i8 = 127\n    let b: i8 = -128\n    let c: u8 = 255\n    let d: u64 = 9000000000000000000\n    return 0\n}")
	assert.NoError(t, err)
}

func TestArityMismatch(t *testing.T) {
	_, _, err := check(t, `fn add(a: i32, b: i32) -> i32 {
    return a + b
}

fn main() -> i32 {
    return add(1)
}`)
	assert.Equal(t, diag.ArityMismatch, firstTypeError(t, err).Kind)
}

func TestArgumentTypeMismatch(t *testing.T) {
	_, _, err := check(t, `fn id(s: str) -> str {
    return s
}

fn main() -> i32 {
    id(5)
    return 0
}`)
	assert.Equal(t, diag.TypeMismatch, firstTypeError(t, err).Kind)
}

func TestDuplicateDeclaration(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    let x = 1\n    let x = 2\n    return x\n}")
	assert.Equal(t, diag.DuplicateDeclaration, firstTypeError(t, err).Kind)
}

func TestShadowingInNestedScope(t *testing.T) {
	_, _, err := check(t, `fn main() -> i32 {
    let x = 1
    if true {
        let x = 2
        println(x)
    }
    return x
}`)
	assert.NoError(t, err)
}

func TestConditionMustBeBool(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    if 1 {\n        return 1\n    }\n    return 0\n}")
	assert.Equal(t, diag.TypeMismatch, firstTypeError(t, err).Kind)
}

func TestBoolMatchExhaustiveness(t *testing.T) {
	src := `fn main() -> i32 {
    let b = true
    match b {
        true => println(1)
    }
    return 0
}`
	_, _, err := check(t, src)
	assert.Equal(t, diag.NonExhaustiveMatch, firstTypeError(t, err).Kind)

	_, _, err = check(t, `fn main() -> i32 {
    let b = true
    match b {
        true => println(1)
        false => println(0)
    }
    return 0
}`)
	assert.NoError(t, err)
}

func TestIntMatchRequiresWildcard(t *testing.T) {
	_, _, err := check(t, `fn main() -> i32 {
    match 3 {
        1 => println(1)
        2 => println(2)
    }
    return 0
}`)
	assert.Equal(t, diag.NonExhaustiveMatch, firstTypeError(t, err).Kind)
}

func TestMatchPatternTypeMismatch(t *testing.T) {
	_, _, err := check(t, `fn main() -> i32 {
    match 3 {
        "x" => println(1)
        _ => println(0)
    }
    return 0
}`)
	assert.Equal(t, diag.TypeMismatch, firstTypeError(t, err).Kind)
}

func TestMixedArithmeticRejected(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    let x: i64 = 1\n    let y = x + 2.5\n    return 0\n}")
	assert.Equal(t, diag.TypeMismatch, firstTypeError(t, err).Kind)
}

func TestLiteralAdoptsLeftOperand(t *testing.T) {
	// The untyped right literal adopts i64 from the left operand.
	_, _, err := check(t, "fn main() -> i32 {\n    let x: i64 = 1\n    let y = x + 2\n    return 0\n}")
	assert.NoError(t, err)
}

func TestStructChecking(t *testing.T) {
	src := `struct Point {
    x: i32,
    y: i32,
}

fn main() -> i32 {
    let p = Point { x: 1, y: 2 }
    return p.x
}`
	prog, info, err := check(t, src)
	require.NoError(t, err)
	require.Contains(t, info.Structs, "Point")

	decl := prog.Stmts[1].(*ast.FuncDecl).Body.Stmts[0].(*ast.VarDecl)
	st, ok := decl.ResolvedType.(*types.Struct)
	require.True(t, ok)
	assert.Equal(t, "Point", st.Name)
}

func TestStructLiteralMissingField(t *testing.T) {
	_, _, err := check(t, `struct Point {
    x: i32,
    y: i32,
}

fn main() -> i32 {
    let p = Point { x: 1 }
    return 0
}`)
	assert.Equal(t, diag.TypeMismatch, firstTypeError(t, err).Kind)
}

func TestUnknownField(t *testing.T) {
	_, _, err := check(t, `struct Point {
    x: i32,
}

fn main() -> i32 {
    let p = Point { x: 1 }
    return p.z
}`)
	assert.Equal(t, diag.UndefinedIdentifier, firstTypeError(t, err).Kind)
}

func TestUndefinedType(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    let p: Vec = 1\n    return 0\n}")
	assert.Equal(t, diag.UndefinedType, firstTypeError(t, err).Kind)
}

func TestStructEqualityRejected(t *testing.T) {
	_, _, err := check(t, `struct Point {
    x: i32,
}

fn eq(a: Point, b: Point) -> bool {
    return a == b
}

fn main() -> i32 {
    return 0
}`)
	assert.Equal(t, diag.InvalidOperand, firstTypeError(t, err).Kind)
}

func TestPrintBuiltins(t *testing.T) {
	_, _, err := check(t, `fn main() -> i32 {
    print("x")
    println(1)
    println(1.5)
    println(true)
    println('c')
    return 0
}`)
	assert.NoError(t, err)
}

func TestPrintArity(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    println(1, 2)\n    return 0\n}")
	assert.Equal(t, diag.ArityMismatch, firstTypeError(t, err).Kind)
}

func TestMutableBorrowOfImmutable(t *testing.T) {
	_, _, err := check(t, "fn main() -> i32 {\n    let s = \"x\"\n    let m = &mut s\n    return 0\n}")
	assert.Equal(t, diag.InvalidOperand, firstTypeError(t, err).Kind)
}

func TestVoidReturnRules(t *testing.T) {
	_, _, err := check(t, "fn log() {\n    return 1\n}\n\nfn main() -> i32 {\n    return 0\n}")
	assert.Equal(t, diag.TypeMismatch, firstTypeError(t, err).Kind)

	_, _, err = check(t, "fn main() -> i32 {\n    return\n}")
	assert.Equal(t, diag.TypeMismatch, firstTypeError(t, err).Kind)
}
