// Package ast defines the Sable abstract syntax tree: closed
// tagged-variant statement and expression sets produced by the parser,
// annotated in place by the type checker, and consumed by the ownership
// tracker and the code generator. Nodes are owned exclusively by their
// parent; the tree is discarded after code generation.
package ast

import (
	"github.com/sable-lang/sable/internal/lexer"
	"github.com/sable-lang/sable/internal/position"
	"github.com/sable-lang/sable/internal/types"
)

// Node is implemented by every AST node.
type Node interface {
	Pos() position.Position
}

// Statement is the closed statement variant set.
type Statement interface {
	Node
	stmtNode()
}

// Expression is the closed expression variant set. Expressions carry the
// type assigned by the checker; Type returns nil before checking.
type Expression interface {
	Node
	exprNode()
	Type() types.Type
	SetType(types.Type)
}

// typed carries the checker's type annotation, embedded in every
// expression node.
type typed struct {
	typ types.Type
}

func (t *typed) Type() types.Type      { return t.typ }
func (t *typed) SetType(tt types.Type) { t.typ = tt }

// Program is the root of the AST: an ordered sequence of top-level
// statements.
type Program struct {
	Stmts []Statement
}

// Pos returns the position of the first statement, if any.
func (p *Program) Pos() position.Position {
	if len(p.Stmts) > 0 {
		return p.Stmts[0].Pos()
	}
	return position.Position{}
}

// Param is one declared function parameter.
type Param struct {
	Name     string
	DeclType types.Type
	NamePos  position.Position
}

// FuncDecl declares a function with an ordered parameter list, a return
// type and a body block.
type FuncDecl struct {
	Name    string
	Params  []Param
	Ret     types.Type
	Body    *BlockStmt
	NamePos position.Position
}

func (s *FuncDecl) Pos() position.Position { return s.NamePos }
func (*FuncDecl) stmtNode()                {}

// StructField is one declared struct field.
type StructField struct {
	Name     string
	DeclType types.Type
	NamePos  position.Position
}

// StructDecl declares a struct shape.
type StructDecl struct {
	Name    string
	Fields  []StructField
	NamePos position.Position
}

func (s *StructDecl) Pos() position.Position { return s.NamePos }
func (*StructDecl) stmtNode()                {}

// VarDecl declares a binding. DeclType is nil when the type is inferred
// from the initializer; ResolvedType is filled by the checker either way.
type VarDecl struct {
	Name         string
	Mutable      bool
	DeclType     types.Type
	Init         Expression
	ResolvedType types.Type
	NamePos      position.Position
}

func (s *VarDecl) Pos() position.Position { return s.NamePos }
func (*VarDecl) stmtNode()                {}

// AssignStmt assigns to an identifier or field-access target.
type AssignStmt struct {
	Target Expression
	Value  Expression
	OpPos  position.Position
}

func (s *AssignStmt) Pos() position.Position { return s.OpPos }
func (*AssignStmt) stmtNode()                {}

// IfStmt is a conditional. Else is nil, another *IfStmt (else-if chain)
// or a *BlockStmt.
type IfStmt struct {
	Cond  Expression
	Then  *BlockStmt
	Else  Statement
	IfPos position.Position
}

func (s *IfStmt) Pos() position.Position { return s.IfPos }
func (*IfStmt) stmtNode()                {}

// WhileStmt is a pre-tested loop.
type WhileStmt struct {
	Cond     Expression
	Body     *BlockStmt
	WhilePos position.Position
}

func (s *WhileStmt) Pos() position.Position { return s.WhilePos }
func (*WhileStmt) stmtNode()                {}

// ForStmt is the C-style loop. Init may declare a binding scoped to the
// loop; Init, Cond and Step may each be nil.
type ForStmt struct {
	Init   Statement
	Cond   Expression
	Step   Statement
	Body   *BlockStmt
	ForPos position.Position
}

func (s *ForStmt) Pos() position.Position { return s.ForPos }
func (*ForStmt) stmtNode()                {}

// MatchArm is one arm of a match statement. Pattern is nil for the
// wildcard arm.
type MatchArm struct {
	Pattern Expression
	Body    *BlockStmt
	ArmPos  position.Position
}

// MatchStmt matches a scrutinee against an ordered arm list.
type MatchStmt struct {
	Scrutinee Expression
	Arms      []MatchArm
	MatchPos  position.Position
}

func (s *MatchStmt) Pos() position.Position { return s.MatchPos }
func (*MatchStmt) stmtNode()                {}

// ReturnStmt returns from the enclosing function; Value is nil for a
// bare return.
type ReturnStmt struct {
	Value     Expression
	ReturnPos position.Position
}

func (s *ReturnStmt) Pos() position.Position { return s.ReturnPos }
func (*ReturnStmt) stmtNode()                {}

// ExprStmt evaluates an expression for its effects.
type ExprStmt struct {
	X Expression
}

func (s *ExprStmt) Pos() position.Position { return s.X.Pos() }
func (*ExprStmt) stmtNode()                {}

// BlockStmt is a brace-delimited statement sequence opening a scope.
type BlockStmt struct {
	Stmts    []Statement
	BracePos position.Position
}

func (s *BlockStmt) Pos() position.Position { return s.BracePos }
func (*BlockStmt) stmtNode()                {}

// BinaryExpr applies an infix operator.
type BinaryExpr struct {
	typed
	Op    lexer.TokenType
	L, R  Expression
	OpPos position.Position
}

func (e *BinaryExpr) Pos() position.Position { return e.L.Pos() }
func (*BinaryExpr) exprNode()                {}

// UnaryExpr applies a prefix operator (negation or logical not).
type UnaryExpr struct {
	typed
	Op    lexer.TokenType
	X     Expression
	OpPos position.Position
}

func (e *UnaryExpr) Pos() position.Position { return e.OpPos }
func (*UnaryExpr) exprNode()                {}

// IntLit is an integer literal. Suffix is empty for unsuffixed literals,
// which default to i32 absent destination context.
type IntLit struct {
	typed
	Value  int64
	Text   string
	Suffix string
	LitPos position.Position
}

func (e *IntLit) Pos() position.Position { return e.LitPos }
func (*IntLit) exprNode()                {}

// FloatLit is a floating literal; defaults to f64 absent context.
type FloatLit struct {
	typed
	Value  float64
	Suffix string
	LitPos position.Position
}

func (e *FloatLit) Pos() position.Position { return e.LitPos }
func (*FloatLit) exprNode()                {}

// BoolLit is true or false.
type BoolLit struct {
	typed
	Value  bool
	LitPos position.Position
}

func (e *BoolLit) Pos() position.Position { return e.LitPos }
func (*BoolLit) exprNode()                {}

// StrLit is a string literal holding its decoded value.
type StrLit struct {
	typed
	Value  string
	LitPos position.Position
}

func (e *StrLit) Pos() position.Position { return e.LitPos }
func (*StrLit) exprNode()                {}

// CharLit is a character literal holding one Unicode scalar.
type CharLit struct {
	typed
	Value  rune
	LitPos position.Position
}

func (e *CharLit) Pos() position.Position { return e.LitPos }
func (*CharLit) exprNode()                {}

// Ident is a reference to a named binding.
type Ident struct {
	typed
	Name    string
	NamePos position.Position
}

func (e *Ident) Pos() position.Position { return e.NamePos }
func (*Ident) exprNode()                {}

// CallExpr calls a named function with an argument list. Arguments nest
// to arbitrary depth.
type CallExpr struct {
	typed
	Callee Expression
	Args   []Expression
	LParen position.Position
}

func (e *CallExpr) Pos() position.Position { return e.Callee.Pos() }
func (*CallExpr) exprNode()                {}

// FieldExpr accesses a struct field.
type FieldExpr struct {
	typed
	X      Expression
	Field  string
	DotPos position.Position
}

func (e *FieldExpr) Pos() position.Position { return e.X.Pos() }
func (*FieldExpr) exprNode()                {}

// AssignExpr assigns Value to an identifier or field-access Target and
// yields the stored value. Assignment binds loosest of all operators and
// associates to the right, so `a = b = 3` nests in Value.
type AssignExpr struct {
	typed
	Target Expression
	Value  Expression
	OpPos  position.Position
}

func (e *AssignExpr) Pos() position.Position { return e.Target.Pos() }
func (*AssignExpr) exprNode()                {}

// FieldInit is one field initializer in a struct literal.
type FieldInit struct {
	Name    string
	Value   Expression
	NamePos position.Position
}

// StructLit constructs a struct value; the checker requires exactly the
// declared field set.
type StructLit struct {
	typed
	Name    string
	Fields  []FieldInit
	NamePos position.Position
}

func (e *StructLit) Pos() position.Position { return e.NamePos }
func (*StructLit) exprNode()                {}

// MoveExpr is the explicit ownership transfer operator `<-`.
type MoveExpr struct {
	typed
	X     Expression
	OpPos position.Position
}

func (e *MoveExpr) Pos() position.Position { return e.OpPos }
func (*MoveExpr) exprNode()                {}

// BorrowExpr is a shared (`&x`) or exclusive (`&mut x`) borrow.
type BorrowExpr struct {
	typed
	X       Expression
	Mutable bool
	OpPos   position.Position
}

func (e *BorrowExpr) Pos() position.Position { return e.OpPos }
func (*BorrowExpr) exprNode()                {}
