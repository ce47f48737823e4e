// Package checker implements the Sable type checker. Checking runs in
// two phases: struct shapes and function signatures are collected first
// so declaration order never matters, then every function body is
// checked against a scoped environment. Expressions are annotated in
// place for the ownership tracker and the code generator.
package checker

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/sable-lang/sable/internal/ast"
	"github.com/sable-lang/sable/internal/diag"
	"github.com/sable-lang/sable/internal/lexer"
	"github.com/sable-lang/sable/internal/position"
	"github.com/sable-lang/sable/internal/types"
)

// FuncSig is a resolved function signature.
type FuncSig struct {
	Name   string
	Params []types.Type
	Ret    types.Type
	Pos    position.Position
}

// Info carries the resolved declaration tables out of a successful
// check, for consumption by the code generator.
type Info struct {
	Structs map[string]*types.Struct
	Funcs   map[string]*FuncSig
}

// Checker checks one program. Each program gets a fresh instance.
type Checker struct {
	structs map[string]*types.Struct
	funcs   map[string]*FuncSig
	env     *types.Env
	current *FuncSig
	errs    *multierror.Error
}

// Check type-checks the program, annotating expression nodes with their
// types. On success it returns the declaration tables; on failure every
// error found is returned together.
func Check(prog *ast.Program) (*Info, error) {
	c := &Checker{
		structs: map[string]*types.Struct{},
		funcs:   map[string]*FuncSig{},
	}
	c.collect(prog)
	for _, s := range prog.Stmts {
		if fn, ok := s.(*ast.FuncDecl); ok {
			c.checkFunc(fn)
		}
	}
	if _, ok := c.funcs["main"]; !ok {
		c.errorf(diag.UndefinedFunction, position.Position{}, "program has no main function")
	}
	if err := c.errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &Info{Structs: c.structs, Funcs: c.funcs}, nil
}

func (c *Checker) errorf(kind diag.TypeErrorKind, pos position.Position, format string, args ...any) {
	c.errs = multierror.Append(c.errs, &diag.TypeError{
		Kind: kind,
		Msg:  fmt.Sprintf(format, args...),
		Pos:  pos,
	})
}

// collect registers struct shapes and function signatures before any
// body is checked.
func (c *Checker) collect(prog *ast.Program) {
	for _, s := range prog.Stmts {
		sd, ok := s.(*ast.StructDecl)
		if !ok {
			continue
		}
		if _, dup := c.structs[sd.Name]; dup {
			c.errorf(diag.DuplicateDeclaration, sd.NamePos, "struct %s declared twice", sd.Name)
			continue
		}
		c.structs[sd.Name] = &types.Struct{Name: sd.Name}
	}

	// Field types may reference other structs, so shapes resolve in a
	// second pass over the same declarations.
	for _, s := range prog.Stmts {
		sd, ok := s.(*ast.StructDecl)
		if !ok {
			continue
		}
		st := c.structs[sd.Name]
		if st == nil || st.Fields != nil {
			continue
		}
		for _, f := range sd.Fields {
			ft := c.resolveType(f.DeclType, f.NamePos)
			if ft == nil {
				continue
			}
			if st.FieldIndex(f.Name) >= 0 {
				c.errorf(diag.DuplicateDeclaration, f.NamePos, "field %s declared twice in struct %s", f.Name, sd.Name)
				continue
			}
			st.Fields = append(st.Fields, types.Field{Name: f.Name, Type: ft})
		}
	}

	for _, s := range prog.Stmts {
		fd, ok := s.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if _, dup := c.funcs[fd.Name]; dup {
			c.errorf(diag.DuplicateDeclaration, fd.NamePos, "function %s declared twice", fd.Name)
			continue
		}
		sig := &FuncSig{Name: fd.Name, Ret: c.resolveType(fd.Ret, fd.NamePos), Pos: fd.NamePos}
		for _, p := range fd.Params {
			sig.Params = append(sig.Params, c.resolveType(p.DeclType, p.NamePos))
		}
		c.funcs[fd.Name] = sig
	}
}

// resolveType replaces parsed struct-name placeholders with the declared
// shape. It returns nil after reporting an undefined type.
func (c *Checker) resolveType(t types.Type, pos position.Position) types.Type {
	switch tt := t.(type) {
	case nil:
		return nil
	case *types.Struct:
		st, ok := c.structs[tt.Name]
		if !ok {
			c.errorf(diag.UndefinedType, pos, "type %s is not declared", tt.Name)
			return nil
		}
		return st
	case *types.Array:
		elem := c.resolveType(tt.Elem, pos)
		if elem == nil {
			return nil
		}
		return &types.Array{Elem: elem, Size: tt.Size}
	}
	return t
}

func (c *Checker) checkFunc(fd *ast.FuncDecl) {
	sig := c.funcs[fd.Name]
	if sig == nil {
		return
	}
	c.current = sig
	c.env = types.NewEnv()
	for i, p := range fd.Params {
		t := sig.Params[i]
		if t == nil {
			continue
		}
		fd.Params[i].DeclType = t // resolved shape for later stages
		if _, isVoid := t.(types.Void); isVoid {
			c.errorf(diag.TypeMismatch, p.NamePos, "parameter %s has type void", p.Name)
			continue
		}
		if !c.env.Define(&types.Binding{Name: p.Name, Type: t, Mutable: false, Pos: p.NamePos}) {
			c.errorf(diag.DuplicateDeclaration, p.NamePos, "parameter %s declared twice", p.Name)
		}
	}
	c.checkBlock(fd.Body, false)
	c.current = nil
	c.env = nil
}

// checkBlock checks a statement block; ownScope opens a fresh scope for
// the block itself (function bodies reuse the parameter scope).
func (c *Checker) checkBlock(b *ast.BlockStmt, ownScope bool) {
	if b == nil {
		return
	}
	if ownScope {
		c.env.Push()
		defer c.env.Pop()
	}
	for _, s := range b.Stmts {
		c.checkStmt(s)
	}
}

func (c *Checker) checkStmt(s ast.Statement) {
	switch st := s.(type) {
	case *ast.VarDecl:
		c.checkVarDecl(st)
	case *ast.AssignStmt:
		c.checkAssign(st)
	case *ast.IfStmt:
		c.checkCond(st.Cond)
		c.checkBlock(st.Then, true)
		if st.Else != nil {
			c.checkStmt(st.Else)
		}
	case *ast.WhileStmt:
		c.checkCond(st.Cond)
		c.checkBlock(st.Body, true)
	case *ast.ForStmt:
		c.env.Push()
		if st.Init != nil {
			c.checkStmt(st.Init)
		}
		if st.Cond != nil {
			c.checkCond(st.Cond)
		}
		if st.Step != nil {
			c.checkStmt(st.Step)
		}
		c.checkBlock(st.Body, true)
		c.env.Pop()
	case *ast.MatchStmt:
		c.checkMatch(st)
	case *ast.ReturnStmt:
		c.checkReturn(st)
	case *ast.ExprStmt:
		c.checkExpr(st.X, nil)
	case *ast.BlockStmt:
		c.checkBlock(st, true)
	}
}

func (c *Checker) checkCond(e ast.Expression) {
	t := c.checkExpr(e, types.BoolType)
	if t != nil && !t.Equal(types.BoolType) {
		c.errorf(diag.TypeMismatch, e.Pos(), "condition has type %s, want bool", t)
	}
}

func (c *Checker) checkVarDecl(d *ast.VarDecl) {
	var want types.Type
	if d.DeclType != nil {
		want = c.resolveType(d.DeclType, d.NamePos)
		if want == nil {
			return
		}
		if _, isVoid := want.(types.Void); isVoid {
			c.errorf(diag.TypeMismatch, d.NamePos, "binding %s has type void", d.Name)
			return
		}
	}
	got := c.checkExpr(d.Init, want)
	if got == nil {
		return
	}
	if want != nil && !got.Equal(want) {
		c.errorf(diag.TypeMismatch, d.Init.Pos(), "cannot initialize %s binding %s with %s", want, d.Name, got)
		return
	}
	resolved := got
	if want != nil {
		resolved = want
	}
	d.ResolvedType = resolved
	if !c.env.Define(&types.Binding{Name: d.Name, Type: resolved, Mutable: d.Mutable, Pos: d.NamePos}) {
		c.errorf(diag.DuplicateDeclaration, d.NamePos, "%s is already declared in this scope", d.Name)
	}
}

func (c *Checker) checkAssign(a *ast.AssignStmt) {
	c.checkAssignment(a.Target, a.Value, a.OpPos)
}

// checkAssignment validates one assignment, statement or expression
// form, and returns the target's type.
func (c *Checker) checkAssignment(target, value ast.Expression, opPos position.Position) types.Type {
	want := c.assignTargetType(target, opPos)
	got := c.checkExpr(value, want)
	if got == nil || want == nil {
		return want
	}
	if !got.Equal(want) {
		c.errorf(diag.TypeMismatch, value.Pos(), "cannot assign %s to %s target", got, want)
	}
	return want
}

// assignTargetType resolves an assignment target, enforcing mutability
// of the root binding.
func (c *Checker) assignTargetType(target ast.Expression, opPos position.Position) types.Type {
	switch t := target.(type) {
	case *ast.Ident:
		b, ok := c.env.Lookup(t.Name)
		if !ok {
			c.errorf(diag.UndefinedIdentifier, t.NamePos, "%s is not declared", t.Name)
			return nil
		}
		if !b.Mutable {
			c.errorf(diag.ImmutableAssignment, opPos, "%s is not declared mut", t.Name)
		}
		t.SetType(b.Type)
		return b.Type
	case *ast.FieldExpr:
		ft := c.checkExpr(t, nil)
		if ft == nil {
			return nil
		}
		if base, ok := rootIdent(t); ok {
			if b, found := c.env.Lookup(base.Name); found && !b.Mutable {
				c.errorf(diag.ImmutableAssignment, opPos, "%s is not declared mut", base.Name)
			}
		}
		return ft
	default:
		c.errorf(diag.InvalidOperand, target.Pos(), "assignment target must be a binding or a field")
		return nil
	}
}

// rootIdent walks a field-access chain down to its base identifier.
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

// checkMatch checks arm patterns against the scrutinee type and enforces
// exhaustiveness: a bool scrutinee is exhaustive when both values are
// covered, every other type requires a wildcard arm.
func (c *Checker) checkMatch(m *ast.MatchStmt) {
	st := c.checkExpr(m.Scrutinee, nil)
	sawWildcard := false
	sawTrue, sawFalse := false, false
	for _, arm := range m.Arms {
		if arm.Pattern == nil {
			if sawWildcard {
				c.errorf(diag.DuplicateDeclaration, arm.ArmPos, "duplicate wildcard arm")
			}
			sawWildcard = true
		} else {
			switch arm.Pattern.(type) {
			case *ast.IntLit, *ast.FloatLit, *ast.BoolLit, *ast.StrLit, *ast.CharLit:
			default:
				c.errorf(diag.InvalidOperand, arm.Pattern.Pos(), "match pattern must be a literal or _")
			}
			pt := c.checkExpr(arm.Pattern, st)
			if pt != nil && st != nil && !pt.Equal(st) {
				c.errorf(diag.TypeMismatch, arm.Pattern.Pos(), "pattern has type %s, scrutinee has type %s", pt, st)
			}
			if bl, ok := arm.Pattern.(*ast.BoolLit); ok {
				if bl.Value {
					sawTrue = true
				} else {
					sawFalse = true
				}
			}
		}
		c.checkBlock(arm.Body, true)
	}
	if st == nil {
		return
	}
	if _, isBool := st.(types.Bool); isBool {
		if !sawWildcard && !(sawTrue && sawFalse) {
			c.errorf(diag.NonExhaustiveMatch, m.MatchPos, "bool match must cover true and false or use _")
		}
		return
	}
	if !sawWildcard {
		c.errorf(diag.NonExhaustiveMatch, m.MatchPos, "match over %s requires a _ arm", st)
	}
}

func (c *Checker) checkReturn(r *ast.ReturnStmt) {
	ret := c.current.Ret
	if ret == nil {
		return
	}
	_, isVoid := ret.(types.Void)
	if r.Value == nil {
		if !isVoid {
			c.errorf(diag.TypeMismatch, r.ReturnPos, "function %s must return %s", c.current.Name, ret)
		}
		return
	}
	if isVoid {
		c.errorf(diag.TypeMismatch, r.Value.Pos(), "function %s returns no value", c.current.Name)
		return
	}
	got := c.checkExpr(r.Value, ret)
	if got != nil && !got.Equal(ret) {
		c.errorf(diag.TypeMismatch, r.Value.Pos(), "cannot return %s from function returning %s", got, ret)
	}
}

// checkExpr types an expression. want is the destination type, if the
// context supplies one; unsuffixed numeric literals adopt it when it
// fits their family, otherwise defaulting to i32 or f64.
func (c *Checker) checkExpr(e ast.Expression, want types.Type) types.Type {
	if e == nil {
		return nil
	}
	t := c.typeOf(e, want)
	if t != nil {
		e.SetType(t)
	}
	return t
}

func (c *Checker) typeOf(e ast.Expression, want types.Type) types.Type {
	switch x := e.(type) {
	case *ast.IntLit:
		return c.intLitType(x, want)
	case *ast.FloatLit:
		return c.floatLitType(x, want)
	case *ast.BoolLit:
		return types.BoolType
	case *ast.StrLit:
		return types.StrType
	case *ast.CharLit:
		return types.CharType
	case *ast.Ident:
		b, ok := c.env.Lookup(x.Name)
		if !ok {
			c.errorf(diag.UndefinedIdentifier, x.NamePos, "%s is not declared", x.Name)
			return nil
		}
		return b.Type
	case *ast.AssignExpr:
		return c.checkAssignment(x.Target, x.Value, x.OpPos)
	case *ast.BinaryExpr:
		return c.binaryType(x)
	case *ast.UnaryExpr:
		return c.unaryType(x, want)
	case *ast.CallExpr:
		return c.callType(x)
	case *ast.FieldExpr:
		return c.fieldType(x)
	case *ast.StructLit:
		return c.structLitType(x)
	case *ast.MoveExpr:
		if _, ok := x.X.(*ast.Ident); !ok {
			c.errorf(diag.InvalidOperand, x.OpPos, "move operand must be a binding")
		}
		return c.checkExpr(x.X, want)
	case *ast.BorrowExpr:
		id, ok := x.X.(*ast.Ident)
		if !ok {
			c.errorf(diag.InvalidOperand, x.OpPos, "borrow operand must be a binding")
			return c.checkExpr(x.X, nil)
		}
		t := c.checkExpr(x.X, nil)
		if x.Mutable {
			if b, found := c.env.Lookup(id.Name); found && !b.Mutable {
				c.errorf(diag.InvalidOperand, x.OpPos, "cannot borrow %s as mutable: not declared mut", id.Name)
			}
		}
		return t
	}
	return nil
}

func (c *Checker) intLitType(x *ast.IntLit, want types.Type) types.Type {
	if x.Suffix != "" {
		t, _ := types.Builtin(x.Suffix)
		if it, ok := t.(types.Int); ok && !litFits(x.Value, it) {
			c.errorf(diag.TypeMismatch, x.LitPos, "literal %s does not fit in %s", x.Text, it)
			return nil
		}
		return t
	}
	if want != nil {
		if it, ok := want.(types.Int); ok {
			if !litFits(x.Value, it) {
				c.errorf(diag.TypeMismatch, x.LitPos, "literal %s does not fit in %s", x.Text, it)
				return nil
			}
			return want
		}
	}
	if !litFits(x.Value, types.I32) {
		c.errorf(diag.TypeMismatch, x.LitPos, "literal %s does not fit in i32", x.Text)
		return nil
	}
	return types.I32
}

// litFits checks the literal's magnitude against the destination width.
// The negated value is accepted too: the literal under a unary minus is
// checked before the sign applies, and the type's minimum must stay
// reachable.
func litFits(v int64, t types.Int) bool {
	return types.Fits(v, t) || types.Fits(-v, t)
}

func (c *Checker) floatLitType(x *ast.FloatLit, want types.Type) types.Type {
	if x.Suffix != "" {
		t, _ := types.Builtin(x.Suffix)
		return t
	}
	if want != nil {
		if _, ok := want.(types.Float); ok {
			return want
		}
	}
	return types.F64
}

func (c *Checker) binaryType(x *ast.BinaryExpr) types.Type {
	switch x.Op {
	case lexer.TokenAnd, lexer.TokenOr:
		l := c.checkExpr(x.L, types.BoolType)
		r := c.checkExpr(x.R, types.BoolType)
		for _, side := range []types.Type{l, r} {
			if side != nil && !side.Equal(types.BoolType) {
				c.errorf(diag.InvalidOperand, x.OpPos, "logical operand has type %s, want bool", side)
			}
		}
		return types.BoolType

	case lexer.TokenEq, lexer.TokenNe, lexer.TokenLt, lexer.TokenLe, lexer.TokenGt, lexer.TokenGe:
		l := c.checkExpr(x.L, nil)
		r := c.checkExpr(x.R, l)
		if l == nil || r == nil {
			return types.BoolType
		}
		if !l.Equal(r) {
			c.errorf(diag.TypeMismatch, x.OpPos, "cannot compare %s with %s", l, r)
			return types.BoolType
		}
		if x.Op == lexer.TokenEq || x.Op == lexer.TokenNe {
			if !equatable(l) {
				c.errorf(diag.InvalidOperand, x.OpPos, "equality is not defined for %s", l)
			}
			return types.BoolType
		}
		if !types.IsNumeric(l) {
			if _, isChar := l.(types.Char); !isChar {
				c.errorf(diag.InvalidOperand, x.OpPos, "ordering is not defined for %s", l)
			}
		}
		return types.BoolType

	default: // + - * / %
		l := c.checkExpr(x.L, nil)
		r := c.checkExpr(x.R, l)
		if l == nil || r == nil {
			return nil
		}
		if !types.IsNumeric(l) {
			c.errorf(diag.InvalidOperand, x.L.Pos(), "arithmetic operand has type %s", l)
			return nil
		}
		if !l.Equal(r) {
			c.errorf(diag.TypeMismatch, x.OpPos, "mismatched operands %s and %s", l, r)
			return nil
		}
		if x.Op == lexer.TokenMod {
			if _, ok := l.(types.Int); !ok {
				c.errorf(diag.InvalidOperand, x.OpPos, "%% requires integer operands, got %s", l)
				return nil
			}
		}
		return l
	}
}

func (c *Checker) unaryType(x *ast.UnaryExpr, want types.Type) types.Type {
	switch x.Op {
	case lexer.TokenMinus:
		t := c.checkExpr(x.X, want)
		if t == nil {
			return nil
		}
		if !types.IsNumeric(t) {
			c.errorf(diag.InvalidOperand, x.OpPos, "cannot negate %s", t)
			return nil
		}
		if it, ok := t.(types.Int); ok && !it.Signed {
			c.errorf(diag.InvalidOperand, x.OpPos, "cannot negate unsigned %s", t)
			return nil
		}
		return t
	case lexer.TokenNot:
		t := c.checkExpr(x.X, types.BoolType)
		if t != nil && !t.Equal(types.BoolType) {
			c.errorf(diag.InvalidOperand, x.OpPos, "cannot apply ! to %s", t)
		}
		return types.BoolType
	}
	return nil
}

// builtinPrint reports whether name is one of the built-in output
// functions, which accept a single printable argument.
func builtinPrint(name string) bool { return name == "print" || name == "println" }

func (c *Checker) callType(x *ast.CallExpr) types.Type {
	id, ok := x.Callee.(*ast.Ident)
	if !ok {
		c.errorf(diag.InvalidOperand, x.Callee.Pos(), "call target must be a function name")
		return nil
	}

	if builtinPrint(id.Name) {
		if len(x.Args) != 1 {
			c.errorf(diag.ArityMismatch, x.LParen, "%s takes 1 argument, got %d", id.Name, len(x.Args))
			return types.VoidType
		}
		t := c.checkExpr(x.Args[0], nil)
		if t != nil && !printable(t) {
			c.errorf(diag.TypeMismatch, x.Args[0].Pos(), "%s cannot print %s", id.Name, t)
		}
		id.SetType(types.VoidType)
		return types.VoidType
	}

	sig, ok := c.funcs[id.Name]
	if !ok {
		c.errorf(diag.UndefinedFunction, id.NamePos, "%s is not declared", id.Name)
		return nil
	}
	if len(x.Args) != len(sig.Params) {
		c.errorf(diag.ArityMismatch, x.LParen, "%s takes %d arguments, got %d", id.Name, len(sig.Params), len(x.Args))
		return sig.Ret
	}
	for i, arg := range x.Args {
		want := sig.Params[i]
		got := c.checkExpr(arg, want)
		if got != nil && want != nil && !got.Equal(want) {
			c.errorf(diag.TypeMismatch, arg.Pos(), "argument %d of %s has type %s, want %s", i+1, id.Name, got, want)
		}
	}
	id.SetType(sig.Ret)
	return sig.Ret
}

// equatable reports whether == and != are defined for t: primitives
// and strings, which compare by content.
func equatable(t types.Type) bool {
	switch t.(type) {
	case types.Int, types.Float, types.Bool, types.Char, types.Str:
		return true
	}
	return false
}

// printable reports whether print/println accept a value of type t.
func printable(t types.Type) bool {
	switch t.(type) {
	case types.Int, types.Float, types.Bool, types.Char, types.Str:
		return true
	}
	return false
}

func (c *Checker) fieldType(x *ast.FieldExpr) types.Type {
	base := c.checkExpr(x.X, nil)
	if base == nil {
		return nil
	}
	st, ok := base.(*types.Struct)
	if !ok {
		c.errorf(diag.TypeMismatch, x.DotPos, "%s has no fields", base)
		return nil
	}
	i := st.FieldIndex(x.Field)
	if i < 0 {
		c.errorf(diag.UndefinedIdentifier, x.DotPos, "struct %s has no field %s", st.Name, x.Field)
		return nil
	}
	return st.Fields[i].Type
}

func (c *Checker) structLitType(x *ast.StructLit) types.Type {
	st, ok := c.structs[x.Name]
	if !ok {
		c.errorf(diag.UndefinedType, x.NamePos, "type %s is not declared", x.Name)
		return nil
	}
	seen := map[string]bool{}
	for _, f := range x.Fields {
		i := st.FieldIndex(f.Name)
		if i < 0 {
			c.errorf(diag.UndefinedIdentifier, f.NamePos, "struct %s has no field %s", st.Name, f.Name)
			c.checkExpr(f.Value, nil)
			continue
		}
		if seen[f.Name] {
			c.errorf(diag.DuplicateDeclaration, f.NamePos, "field %s initialized twice", f.Name)
			continue
		}
		seen[f.Name] = true
		want := st.Fields[i].Type
		got := c.checkExpr(f.Value, want)
		if got != nil && !got.Equal(want) {
			c.errorf(diag.TypeMismatch, f.Value.Pos(), "field %s has type %s, want %s", f.Name, got, want)
		}
	}
	for _, f := range st.Fields {
		if !seen[f.Name] {
			c.errorf(diag.TypeMismatch, x.NamePos, "missing field %s in %s literal", f.Name, st.Name)
		}
	}
	return st
}
