package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sable-lang/sable/internal/checker"
	"github.com/sable-lang/sable/internal/diag"
	"github.com/sable-lang/sable/internal/lexer"
	"github.com/sable-lang/sable/internal/parser"
)

func track(t *testing.T, src string) error {
	t.Helper()
	tokens, err := lexer.New(src).Tokenize()
	require.NoError(t, err)
	prog, err := parser.Parse(tokens)
	require.NoError(t, err)
	_, err = checker.Check(prog)
	require.NoError(t, err, "program must type-check before tracking")
	return Track(prog)
}

func firstOwnershipError(t *testing.T, err error) *diag.OwnershipError {
	t.Helper()
	require.Error(t, err)
	var ownErr *diag.OwnershipError
	require.ErrorAs(t, err, &ownErr)
	return ownErr
}

func TestUseAfterMove(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let s = "hello"
    let t = <- s
    println(t)
    println(s)
    return 0
}`)
	e := firstOwnershipError(t, err)
	assert.Equal(t, diag.UseAfterMove, e.Kind)
	assert.Contains(t, e.Error(), "s was moved")
}

func TestDoubleMove(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let s = "x"
    let a = <- s
    let b = <- s
    return 0
}`)
	assert.Equal(t, diag.UseAfterMove, firstOwnershipError(t, err).Kind)
}

func TestCopyTypesExemptFromMoves(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let x = 5
    let y = <- x
    return x
}`)
	assert.NoError(t, err, "moving a copy type is inert")
}

func TestSmallPrimitiveStructIsCopy(t *testing.T) {
	err := track(t, `struct Point {
    x: i32,
    y: i32,
}

fn main() -> i32 {
    let p = Point { x: 1, y: 2 }
    let q = <- p
    return p.x
}`)
	assert.NoError(t, err)
}

func TestStructWithStrFieldMoves(t *testing.T) {
	err := track(t, `struct Named {
    name: str,
}

fn main() -> i32 {
    let n = Named { name: "x" }
    let m = <- n
    println(n.name)
    return 0
}`)
	assert.Equal(t, diag.UseAfterMove, firstOwnershipError(t, err).Kind)
}

func TestReassignmentReinitializes(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let mut s = "a"
    let t = <- s
    s = "b"
    println(s)
    return 0
}`)
	assert.NoError(t, err)
}

func TestChainedAssignmentReinitializes(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let mut s = "a"
    let mut u = "b"
    let v = <- s
    u = s = "c"
    println(s)
    println(u)
    return 0
}`)
	assert.NoError(t, err)
}

func TestSharedBorrowsCoexist(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let s = "x"
    let a = &s
    let b = &s
    println(s)
    return 0
}`)
	assert.NoError(t, err)
}

func TestMutableBorrowExcludesShared(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let mut s = "x"
    let a = &s
    let b = &mut s
    return 0
}`)
	assert.Equal(t, diag.ConflictingBorrow, firstOwnershipError(t, err).Kind)
}

func TestTwoMutableBorrowsConflict(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let mut s = "x"
    let a = &mut s
    let b = &mut s
    return 0
}`)
	assert.Equal(t, diag.ConflictingBorrow, firstOwnershipError(t, err).Kind)
}

func TestMoveWhileBorrowed(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let s = "x"
    let r = &s
    let m = <- s
    return 0
}`)
	assert.Equal(t, diag.ConflictingBorrow, firstOwnershipError(t, err).Kind)
}

func TestBorrowExpiresWithScope(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let mut s = "x"
    if true {
        let r = &s
        println(s)
    }
    let m = &mut s
    return 0
}`)
	assert.NoError(t, err, "borrows end at scope exit")
}

func TestReturnBorrowRejected(t *testing.T) {
	err := track(t, `fn pick(s: str) -> str {
    return &s
}

fn main() -> i32 {
    return 0
}`)
	e := firstOwnershipError(t, err)
	assert.Equal(t, diag.ConflictingBorrow, e.Kind)
	assert.Contains(t, e.Error(), "outlive")
}

func TestMoveInBranchPoisonsMerge(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let s = "x"
    let c = true
    if c {
        let t = <- s
        println(t)
    }
    println(s)
    return 0
}`)
	assert.Equal(t, diag.UseAfterMove, firstOwnershipError(t, err).Kind)
}

func TestMoveInAllBranchesStillPoisons(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let s = "x"
    let c = true
    if c {
        let a = <- s
        println(a)
    } else {
        println(s)
    }
    println(s)
    return 0
}`)
	assert.Equal(t, diag.UseAfterMove, firstOwnershipError(t, err).Kind)
}

func TestMoveInLoopBody(t *testing.T) {
	err := track(t, `fn main() -> i32 {
    let s = "x"
    let mut i = 0
    while i < 3 {
        let t = <- s
        println(t)
        i = i + 1
    }
    return 0
}`)
	assert.Equal(t, diag.UseAfterMove, firstOwnershipError(t, err).Kind)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "owned", Owned.String())
	assert.Equal(t, "moved", Moved.String())
	assert.Equal(t, "borrowed", BorrowedShared.String())
	assert.Equal(t, "mutably borrowed", BorrowedMutable.String())
}
