package codegen

import (
	"strings"
	"testing"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sable-lang/sable/internal/checker"
	"github.com/sable-lang/sable/internal/lexer"
	"github.com/sable-lang/sable/internal/ownership"
	"github.com/sable-lang/sable/internal/parser"
)

func emit(t *testing.T, src string) string {
	t.Helper()
	tokens, err := lexer.New(src).Tokenize()
	require.NoError(t, err)
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)
	info, err := checker.Check(prog)
	require.NoError(t, err)
	require.NoError(t, ownership.Track(prog))
	text, err := EmitText(prog, info, "test.sb")
	require.NoError(t, err)
	return text
}

// assertSameText fails with a readable diff when two renderings differ.
func assertSameText(t *testing.T, a, b string) {
	t.Helper()
	if a == b {
		return
	}
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	t.Fatalf("renderings differ:\n%s", dmp.DiffPrettyText(diffs))
}

func TestMainReturnsLocal(t *testing.T) {
	text := emit(t, "fn main() -> i32 {\n    let x = 5\n    return x\n}")

	assert.Contains(t, text, "define i32 @main() {")
	assert.Contains(t, text, "%t1 = alloca i32")
	assert.Contains(t, text, "store i32 5, i32* %t1")
	assert.Contains(t, text, "%t2 = load i32, i32* %t1")
	assert.Contains(t, text, "ret i32 %t2")
}

func TestGenerateIsIdempotent(t *testing.T) {
	src := `struct Point {
    x: i32,
    y: i32,
}

fn main() -> i32 {
    let p = Point { x: 1, y: 2 }
    let mut i = 0
    while i < 3 {
        println(i)
        i = i + 1
    }
    match p.x {
        1 => println("one")
        _ => println("other")
    }
    return p.y
}`
	tokens, err := lexer.New(src).Tokenize()
	require.NoError(t, err)
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)
	info, err := checker.Check(prog)
	require.NoError(t, err)

	first, err := EmitText(prog, info, "test.sb")
	require.NoError(t, err)
	second, err := EmitText(prog, info, "test.sb")
	require.NoError(t, err)
	assertSameText(t, first, second)
}

func TestChainedAssignmentStoresBoth(t *testing.T) {
	text := emit(t, "fn main() -> i32 {\n    let mut a = 0\n    let mut b = 0\n    a = b = 3\n    return a\n}")

	// The inner store hits b's slot, the outer store reuses the value.
	assert.Contains(t, text, "store i32 3, i32* %t2")
	assert.Contains(t, text, "store i32 3, i32* %t1")
}

func TestWideCharKeepsLowByte(t *testing.T) {
	text := emit(t, "fn main() -> i32 {\n    let c = '€'\n    return 0\n}")

	// U+20AC is 8364; only the low byte 172 fits the i8 slot.
	assert.Contains(t, text, "store i8 172, i8* %t1")
	assert.NotContains(t, text, "8364")
}

func TestIfLowering(t *testing.T) {
	text := emit(t, `fn main() -> i32 {
    let c = true
    if c {
        println(1)
    } else {
        println(2)
    }
    return 0
}`)
	assert.Contains(t, text, "br i1 %t2, label %then.1, label %else.1")
	assert.Contains(t, text, "then.1:")
	assert.Contains(t, text, "else.1:")
	assert.Contains(t, text, "end.1:")
}

func TestIfWithoutElseBranchesToEnd(t *testing.T) {
	text := emit(t, `fn main() -> i32 {
    let c = true
    if c {
        println(1)
    }
    return 0
}`)
	assert.Contains(t, text, "label %then.1, label %end.1")
	assert.NotContains(t, text, "else.1")
}

func TestWhileLowering(t *testing.T) {
	text := emit(t, `fn main() -> i32 {
    let mut i = 0
    while i < 10 {
        i = i + 1
    }
    return i
}`)
	assert.Contains(t, text, "cond.1:")
	assert.Contains(t, text, "body.1:")
	assert.Contains(t, text, "end.1:")
	assert.Contains(t, text, "icmp slt i32")
	// The body loops back to the condition check.
	assert.Contains(t, text, "br label %cond.1")
}

func TestMatchLowersToCompareCascade(t *testing.T) {
	text := emit(t, `fn main() -> i32 {
    let mut r = 0
    match 2 {
        1 => { r = 1 }
        2 => { r = 2 }
        _ => { r = 0 }
    }
    return r
}`)
	assert.Equal(t, 2, strings.Count(text, "icmp eq i32"), "one compare per literal arm")
	assert.Contains(t, text, "arm.1.0:")
	assert.Contains(t, text, "arm.1.1:")
	assert.Contains(t, text, "arm.1.2:")
	assert.Equal(t, 3, strings.Count(text, "br label %match.end.1"), "every arm joins the end block")
}

func TestStringMatchUsesStrcmp(t *testing.T) {
	text := emit(t, `fn main() -> i32 {
    let s = "b"
    match s {
        "a" => println(1)
        _ => println(0)
    }
    return 0
}`)
	assert.Contains(t, text, "declare i32 @strcmp(i8*, i8*)")
	assert.Contains(t, text, "call i32 @strcmp(i8*")
}

func TestStringConstantsDeduplicate(t *testing.T) {
	text := emit(t, `fn main() -> i32 {
    print("hi")
    print("hi")
    return 0
}`)
	assert.Equal(t, 1, strings.Count(text, `c"hi\00"`))
	assert.Equal(t, 2, strings.Count(text, "], [3 x i8]* @.str.0, i64 0, i64 0"))
}

func TestPrintlnStringUsesPuts(t *testing.T) {
	text := emit(t, "fn main() -> i32 {\n    println(\"hi\")\n    return 0\n}")
	assert.Contains(t, text, "declare i32 @puts(i8*)")
	assert.Contains(t, text, "call i32 @puts(i8*")
	assert.NotContains(t, text, "printf")
}

func TestPrintlnIntUsesPrintf(t *testing.T) {
	text := emit(t, "fn main() -> i32 {\n    println(42)\n    return 0\n}")
	assert.Contains(t, text, "declare i32 @printf(i8*, ...)")
	assert.Contains(t, text, `c"%d\0A\00"`)
	assert.Contains(t, text, "call i32 (i8*, ...) @printf(i8*")
}

func TestPrintlnBoolWidens(t *testing.T) {
	text := emit(t, "fn main() -> i32 {\n    println(true)\n    return 0\n}")
	assert.Contains(t, text, "zext i1")
}

func TestStructCodegen(t *testing.T) {
	text := emit(t, `struct Point {
    x: i32,
    y: i32,
}

fn main() -> i32 {
    let p = Point { x: 1, y: 2 }
    return p.x
}`)
	assert.Contains(t, text, "%Point = type { i32, i32 }")
	assert.Contains(t, text, "alloca %Point")
	assert.Contains(t, text, "getelementptr inbounds %Point, %Point* ")
	assert.Contains(t, text, "load %Point, %Point*")
}

func TestFunctionCall(t *testing.T) {
	text := emit(t, `fn add(a: i32, b: i32) -> i32 {
    return a + b
}

fn main() -> i32 {
    return add(1, 2)
}`)
	assert.Contains(t, text, "define i32 @add(i32 %a, i32 %b) {")
	assert.Contains(t, text, "call i32 @add(i32 1, i32 2)")
	// Parameters spill to slots at entry.
	assert.Contains(t, text, "store i32 %a, i32* %t1")
}

func TestUnsignedOpsSelectUnsignedInstructions(t *testing.T) {
	text := emit(t, `fn main() -> i32 {
    let a: u32 = 10
    let b: u32 = 3
    let q = a / b
    let r = a % b
    let c = a < b
    return 0
}`)
	assert.Contains(t, text, "udiv i32")
	assert.Contains(t, text, "urem i32")
	assert.Contains(t, text, "icmp ult i32")
}

func TestFloatOps(t *testing.T) {
	text := emit(t, `fn main() -> i32 {
    let a = 1.5
    let b = a + 2.5
    let c = a < b
    return 0
}`)
	assert.Contains(t, text, "fadd double")
	assert.Contains(t, text, "fcmp olt double")
}

func TestVoidFunctionFallsOffEnd(t *testing.T) {
	text := emit(t, `fn log() {
    println("x")
}

fn main() -> i32 {
    log()
    return 0
}`)
	assert.Contains(t, text, "define void @log() {")
	assert.Contains(t, text, "ret void")
	assert.Contains(t, text, "call void @log()")
}

func TestMoveAndBorrowAreTransparent(t *testing.T) {
	text := emit(t, `fn main() -> i32 {
    let s = "x"
    let t = <- s
    println(t)
    return 0
}`)
	// Ownership operators leave no trace in the IR.
	assert.Contains(t, text, "call i32 @puts(i8*")
}
