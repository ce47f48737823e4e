// Package ownership implements the Sable move and borrow tracker. It
// runs over the typed AST after checking, simulating each function body
// with a scope stack of binding states. Copy types (primitives and small
// all-primitive structs) bypass tracking entirely.
package ownership

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/sable-lang/sable/internal/ast"
	"github.com/sable-lang/sable/internal/diag"
	"github.com/sable-lang/sable/internal/position"
	"github.com/sable-lang/sable/internal/types"
)

// State is the ownership state of one binding.
type State int

const (
	// Owned means the binding holds its value and may be read, moved
	// or borrowed.
	Owned State = iota
	// Moved means the value has been transferred out; any use is an
	// error until the binding is reassigned.
	Moved
	// BorrowedShared means one or more shared borrows are live.
	BorrowedShared
	// BorrowedMutable means an exclusive borrow is live.
	BorrowedMutable
)

func (s State) String() string {
	switch s {
	case Owned:
		return "owned"
	case Moved:
		return "moved"
	case BorrowedShared:
		return "borrowed"
	case BorrowedMutable:
		return "mutably borrowed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// binding is the tracker's view of one declared name.
type binding struct {
	name    string
	state   State
	shared  int // live shared borrow count
	copy    bool
	movedAt position.Position
}

// release undoes one borrow when its scope ends.
type release struct {
	b       *binding
	mutable bool
}

// Tracker walks one program. Each program gets a fresh instance.
type Tracker struct {
	scopes   []map[string]*binding
	releases [][]release
	errs     *multierror.Error
}

// Track verifies the move and borrow rules over a checked program. The
// AST must carry type annotations; Track panics on an unchecked tree
// only in the sense that untyped bindings are treated as non-copy.
func Track(prog *ast.Program) error {
	t := &Tracker{}
	for _, s := range prog.Stmts {
		fn, ok := s.(*ast.FuncDecl)
		if !ok {
			continue
		}
		t.trackFunc(fn)
	}
	return t.errs.ErrorOrNil()
}

func (t *Tracker) errorf(kind diag.OwnershipErrorKind, pos position.Position, format string, args ...any) {
	t.errs = multierror.Append(t.errs, &diag.OwnershipError{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
		Pos:  pos,
	})
}

func (t *Tracker) push() {
	t.scopes = append(t.scopes, map[string]*binding{})
	t.releases = append(t.releases, nil)
}

// pop leaves a scope, expiring every borrow taken inside it.
func (t *Tracker) pop() {
	for _, r := range t.releases[len(t.releases)-1] {
		if r.mutable {
			if r.b.state == BorrowedMutable {
				r.b.state = Owned
			}
		} else {
			r.b.shared--
			if r.b.shared == 0 && r.b.state == BorrowedShared {
				r.b.state = Owned
			}
		}
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
	t.releases = t.releases[:len(t.releases)-1]
}

func (t *Tracker) define(name string, typ types.Type) {
	b := &binding{name: name, state: Owned}
	if typ != nil && types.IsCopy(typ) {
		b.copy = true
	}
	t.scopes[len(t.scopes)-1][name] = b
}

func (t *Tracker) lookup(name string) (*binding, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if b, ok := t.scopes[i][name]; ok {
			return b, true
		}
	}
	return nil, false
}

func (t *Tracker) trackFunc(fn *ast.FuncDecl) {
	t.push()
	for _, p := range fn.Params {
		t.define(p.Name, p.DeclType)
	}
	t.trackBlock(fn.Body, false)
	t.pop()
}

func (t *Tracker) trackBlock(b *ast.BlockStmt, ownScope bool) {
	if b == nil {
		return
	}
	if ownScope {
		t.push()
		defer t.pop()
	}
	for _, s := range b.Stmts {
		t.trackStmt(s)
	}
}

func (t *Tracker) trackStmt(s ast.Statement) {
	switch st := s.(type) {
	case *ast.VarDecl:
		t.trackExpr(st.Init)
		t.define(st.Name, st.ResolvedType)
	case *ast.AssignStmt:
		t.trackExpr(st.Value)
		t.reassign(st.Target, st.OpPos)
	case *ast.IfStmt:
		t.trackExpr(st.Cond)
		snap := t.snapshot()
		t.trackBlock(st.Then, true)
		after := []map[*binding]State{t.snapshot()}
		if st.Else != nil {
			t.restore(snap)
			t.trackStmt(st.Else)
			after = append(after, t.snapshot())
		} else {
			after = append(after, snap)
		}
		t.merge(snap, after)
	case *ast.WhileStmt:
		t.trackExpr(st.Cond)
		snap := t.snapshot()
		t.trackBlock(st.Body, true)
		t.checkLoopMoves(snap)
		t.merge(snap, []map[*binding]State{snap, t.snapshot()})
	case *ast.ForStmt:
		t.push()
		if st.Init != nil {
			t.trackStmt(st.Init)
		}
		if st.Cond != nil {
			t.trackExpr(st.Cond)
		}
		snap := t.snapshot()
		t.trackBlock(st.Body, true)
		if st.Step != nil {
			t.trackStmt(st.Step)
		}
		t.checkLoopMoves(snap)
		t.merge(snap, []map[*binding]State{snap, t.snapshot()})
		t.pop()
	case *ast.MatchStmt:
		t.trackExpr(st.Scrutinee)
		snap := t.snapshot()
		var after []map[*binding]State
		for _, arm := range st.Arms {
			t.restore(snap)
			t.trackBlock(arm.Body, true)
			after = append(after, t.snapshot())
		}
		t.merge(snap, after)
	case *ast.ReturnStmt:
		if _, isBorrow := st.Value.(*ast.BorrowExpr); isBorrow {
			t.errorf(diag.ConflictingBorrow, st.ReturnPos, "cannot return a borrow: it would outlive its scope")
			return
		}
		t.trackExpr(st.Value)
	case *ast.ExprStmt:
		t.trackExpr(st.X)
	case *ast.BlockStmt:
		t.trackBlock(st, true)
	}
}

func (t *Tracker) reassign(target ast.Expression, opPos position.Position) {
	id, ok := rootIdent(target)
	if !ok {
		return
	}
	b, found := t.lookup(id.Name)
	if !found {
		return
	}
	switch b.state {
	case BorrowedShared, BorrowedMutable:
		t.errorf(diag.ConflictingBorrow, opPos, "cannot assign to %s while it is %s", b.name, b.state)
	case Moved:
		// Reassignment re-initializes the binding.
		b.state = Owned
	}
}

func rootIdent(e ast.Expression) (*ast.Ident, bool) {
	for {
		switch x := e.(type) {
		case *ast.Ident:
			return x, true
		case *ast.FieldExpr:
			e = x.X
		default:
			return nil, false
		}
	}
}

// trackExpr walks an expression, checking every binding use against its
// current state.
func (t *Tracker) trackExpr(e ast.Expression) {
	switch x := e.(type) {
	case nil:
		return
	case *ast.Ident:
		t.use(x)
	case *ast.AssignExpr:
		t.trackExpr(x.Value)
		t.reassign(x.Target, x.OpPos)
	case *ast.BinaryExpr:
		t.trackExpr(x.L)
		t.trackExpr(x.R)
	case *ast.UnaryExpr:
		t.trackExpr(x.X)
	case *ast.CallExpr:
		for _, arg := range x.Args {
			t.trackExpr(arg)
		}
	case *ast.FieldExpr:
		t.trackExpr(x.X)
	case *ast.StructLit:
		for _, f := range x.Fields {
			t.trackExpr(f.Value)
		}
	case *ast.MoveExpr:
		t.move(x)
	case *ast.BorrowExpr:
		t.borrow(x)
	}
}

// use checks a plain read of a binding.
func (t *Tracker) use(id *ast.Ident) {
	b, ok := t.lookup(id.Name)
	if !ok || b.copy {
		return
	}
	if b.state == Moved {
		t.errorf(diag.UseAfterMove, id.NamePos, "%s was moved at %s", b.name, b.movedAt)
	}
}

// move transfers ownership out of the operand. Copy types are exempt:
// the operand is read and the move is inert.
func (t *Tracker) move(m *ast.MoveExpr) {
	id, ok := m.X.(*ast.Ident)
	if !ok {
		t.trackExpr(m.X)
		return
	}
	b, found := t.lookup(id.Name)
	if !found || b.copy {
		return
	}
	switch b.state {
	case Moved:
		t.errorf(diag.UseAfterMove, m.OpPos, "%s was already moved at %s", b.name, b.movedAt)
	case BorrowedShared, BorrowedMutable:
		t.errorf(diag.ConflictingBorrow, m.OpPos, "cannot move %s while it is %s", b.name, b.state)
	case Owned:
		b.state = Moved
		b.movedAt = m.OpPos
	}
}

// borrow takes a shared or exclusive borrow for the rest of the current
// scope.
func (t *Tracker) borrow(bx *ast.BorrowExpr) {
	id, ok := bx.X.(*ast.Ident)
	if !ok {
		t.trackExpr(bx.X)
		return
	}
	b, found := t.lookup(id.Name)
	if !found {
		return
	}
	if b.state == Moved {
		t.errorf(diag.UseAfterMove, bx.OpPos, "cannot borrow %s: it was moved at %s", b.name, b.movedAt)
		return
	}
	if bx.Mutable {
		if b.state == BorrowedShared || b.state == BorrowedMutable {
			t.errorf(diag.ConflictingBorrow, bx.OpPos, "cannot borrow %s as mutable while it is %s", b.name, b.state)
			return
		}
		b.state = BorrowedMutable
		t.addRelease(release{b: b, mutable: true})
		return
	}
	if b.state == BorrowedMutable {
		t.errorf(diag.ConflictingBorrow, bx.OpPos, "cannot borrow %s while it is %s", b.name, b.state)
		return
	}
	b.shared++
	b.state = BorrowedShared
	t.addRelease(release{b: b})
}

func (t *Tracker) addRelease(r release) {
	t.releases[len(t.releases)-1] = append(t.releases[len(t.releases)-1], r)
}

// snapshot captures the state of every visible binding, used to analyze
// branches independently.
func (t *Tracker) snapshot() map[*binding]State {
	snap := map[*binding]State{}
	for _, scope := range t.scopes {
		for _, b := range scope {
			snap[b] = b.state
		}
	}
	return snap
}

func (t *Tracker) restore(snap map[*binding]State) {
	for b, s := range snap {
		b.state = s
	}
}

// checkLoopMoves rejects a loop body that moves a binding declared
// outside the loop: the next iteration would read a moved value.
func (t *Tracker) checkLoopMoves(before map[*binding]State) {
	for b, s := range before {
		if s != Moved && b.state == Moved {
			t.errorf(diag.UseAfterMove, b.movedAt, "%s is moved in a previous loop iteration", b.name)
		}
	}
}

// merge joins branch outcomes conservatively: a binding moved on any
// path is moved afterwards.
func (t *Tracker) merge(base map[*binding]State, branches []map[*binding]State) {
	for b, s := range base {
		out := s
		for _, br := range branches {
			if bs, ok := br[b]; ok && bs == Moved {
				out = Moved
			}
		}
		b.state = out
	}
}
