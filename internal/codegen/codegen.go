// Package codegen lowers the typed Sable AST to the structured IR. Every
// local gets a stack slot allocated in the entry block; expression
// results flow through fresh %tN registers. Lowering is purely
// syntax-directed with no optimization, so output is deterministic and
// generating twice from the same tree yields identical text.
package codegen

import (
	"fmt"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/sable-lang/sable/internal/ast"
	"github.com/sable-lang/sable/internal/checker"
	"github.com/sable-lang/sable/internal/ir"
	"github.com/sable-lang/sable/internal/lexer"
	"github.com/sable-lang/sable/internal/types"
)

// slot is one addressable local: its stack register and its type.
type slot struct {
	reg string
	typ types.Type
}

// Generator lowers one program. Each program gets a fresh instance.
type Generator struct {
	info *checker.Info
	mod  *ir.Module

	fn      *ir.Function
	blk     *ir.Block
	allocas []ir.Insn
	tmp     int
	label   int
	vars    []map[string]slot

	strs      map[string]string // literal data -> global name
	strCount  int
	usePrintf bool
	usePuts   bool
	useStrcmp bool
}

// Generate lowers a checked program to an IR module. sourceFile is
// recorded in the module header only.
func Generate(prog *ast.Program, info *checker.Info, sourceFile string) (*ir.Module, error) {
	g := &Generator{
		info: info,
		mod:  &ir.Module{SourceFile: sourceFile},
		strs: map[string]string{},
	}

	names := make([]string, 0, len(info.Structs))
	for name := range info.Structs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := info.Structs[name]
		td := ir.TypeDef{Name: name}
		for _, f := range st.Fields {
			td.Fields = append(td.Fields, llvmType(f.Type))
		}
		g.mod.TypeDefs = append(g.mod.TypeDefs, td)
	}

	for _, s := range prog.Stmts {
		fn, ok := s.(*ast.FuncDecl)
		if !ok {
			continue
		}
		if err := g.genFunc(fn); err != nil {
			return nil, err
		}
	}

	if g.usePrintf {
		g.mod.Externs = append(g.mod.Externs, ir.Extern{Name: "printf", Ret: "i32", Params: []string{"i8*"}, Variadic: true})
	}
	if g.usePuts {
		g.mod.Externs = append(g.mod.Externs, ir.Extern{Name: "puts", Ret: "i32", Params: []string{"i8*"}})
	}
	if g.useStrcmp {
		g.mod.Externs = append(g.mod.Externs, ir.Extern{Name: "strcmp", Ret: "i32", Params: []string{"i8*", "i8*"}})
	}
	return g.mod, nil
}

// EmitText lowers and serializes in one step.
func EmitText(prog *ast.Program, info *checker.Info, sourceFile string) (string, error) {
	m, err := Generate(prog, info, sourceFile)
	if err != nil {
		return "", err
	}
	return m.String(), nil
}

// llvmType maps a Sable type to its IR spelling.
func llvmType(t types.Type) string {
	switch tt := t.(type) {
	case types.Void:
		return "void"
	case types.Int:
		return fmt.Sprintf("i%d", tt.Width)
	case types.Float:
		if tt.Width == 32 {
			return "float"
		}
		return "double"
	case types.Bool:
		return "i1"
	case types.Char:
		return "i8"
	case types.Str:
		return "i8*"
	case *types.Struct:
		return "%" + tt.Name
	case *types.Array:
		return fmt.Sprintf("[%d x %s]", tt.Size, llvmType(tt.Elem))
	}
	return "void"
}

func (g *Generator) newTmp() string {
	g.tmp++
	return fmt.Sprintf("%%t%d", g.tmp)
}

func (g *Generator) newLabel(prefix string) string {
	g.label++
	return fmt.Sprintf("%s.%d", prefix, g.label)
}

// strConst interns a string constant, reusing the global for repeated
// data.
func (g *Generator) strConst(data string) ir.Global {
	if name, ok := g.strs[data]; ok {
		return ir.Global{Name: name, Data: data}
	}
	name := fmt.Sprintf(".str.%d", g.strCount)
	g.strCount++
	g.strs[data] = name
	glob := ir.Global{Name: name, Data: data}
	g.mod.Globals = append(g.mod.Globals, glob)
	return glob
}

func (g *Generator) pushScope() { g.vars = append(g.vars, map[string]slot{}) }
func (g *Generator) popScope()  { g.vars = g.vars[:len(g.vars)-1] }

func (g *Generator) defineVar(name string, s slot) {
	g.vars[len(g.vars)-1][name] = s
}

func (g *Generator) lookupVar(name string) (slot, bool) {
	for i := len(g.vars) - 1; i >= 0; i-- {
		if s, ok := g.vars[i][name]; ok {
			return s, true
		}
	}
	return slot{}, false
}

// startBlock opens a new basic block and makes it current.
func (g *Generator) startBlock(label string) *ir.Block {
	b := &ir.Block{Label: label}
	g.fn.Blocks = append(g.fn.Blocks, b)
	g.blk = b
	return b
}

// alloca reserves an entry-block stack slot.
func (g *Generator) alloca(t types.Type) string {
	reg := g.newTmp()
	g.allocas = append(g.allocas, ir.Alloca{Dst: reg, Type: llvmType(t)})
	return reg
}

func (g *Generator) genFunc(fd *ast.FuncDecl) error {
	sig := g.info.Funcs[fd.Name]
	if sig == nil {
		return errors.Errorf("codegen: no signature for %s", fd.Name)
	}
	g.fn = &ir.Function{Name: fd.Name, Ret: llvmType(sig.Ret)}
	g.allocas = nil
	g.tmp = 0
	g.label = 0
	g.vars = nil
	g.pushScope()

	for i, p := range fd.Params {
		g.fn.Params = append(g.fn.Params, ir.Param{Name: p.Name, Type: llvmType(sig.Params[i])})
	}
	entry := g.startBlock("entry")

	// Params spill to slots so they are addressable like any local.
	for i, p := range fd.Params {
		t := sig.Params[i]
		reg := g.alloca(t)
		g.blk.Add(ir.Store{Type: llvmType(t), Val: "%" + p.Name, Dst: reg})
		g.defineVar(p.Name, slot{reg: reg, typ: t})
	}

	if err := g.genBlock(fd.Body, false); err != nil {
		return err
	}

	// Fall off the end: synthesize the implicit return.
	if !g.blk.Terminated() {
		g.blk.Add(g.zeroReturn(sig.Ret))
	}

	entry.Insns = append(g.allocas, entry.Insns...)
	g.mod.Funcs = append(g.mod.Funcs, g.fn)
	g.popScope()
	return nil
}

func (g *Generator) zeroReturn(ret types.Type) ir.Insn {
	switch tt := ret.(type) {
	case types.Void:
		return ir.Ret{}
	case types.Float:
		return ir.Ret{Type: llvmType(tt), Val: floatConst(0, tt)}
	default:
		return ir.Ret{Type: llvmType(ret), Val: "0"}
	}
}

func (g *Generator) genBlock(b *ast.BlockStmt, ownScope bool) error {
	if ownScope {
		g.pushScope()
		defer g.popScope()
	}
	for _, s := range b.Stmts {
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) genStmt(s ast.Statement) error {
	switch st := s.(type) {
	case *ast.VarDecl:
		val, err := g.genExpr(st.Init)
		if err != nil {
			return err
		}
		reg := g.alloca(st.ResolvedType)
		g.blk.Add(ir.Store{Type: llvmType(st.ResolvedType), Val: val, Dst: reg})
		g.defineVar(st.Name, slot{reg: reg, typ: st.ResolvedType})
		return nil

	case *ast.AssignStmt:
		val, err := g.genExpr(st.Value)
		if err != nil {
			return err
		}
		addr, t, err := g.genAddr(st.Target)
		if err != nil {
			return err
		}
		g.blk.Add(ir.Store{Type: llvmType(t), Val: val, Dst: addr})
		return nil

	case *ast.IfStmt:
		return g.genIf(st)
	case *ast.WhileStmt:
		return g.genWhile(st)
	case *ast.ForStmt:
		return g.genFor(st)
	case *ast.MatchStmt:
		return g.genMatch(st)

	case *ast.ReturnStmt:
		if st.Value == nil {
			g.blk.Add(ir.Ret{})
			return nil
		}
		val, err := g.genExpr(st.Value)
		if err != nil {
			return err
		}
		g.blk.Add(ir.Ret{Type: llvmType(st.Value.Type()), Val: val})
		return nil

	case *ast.ExprStmt:
		_, err := g.genExpr(st.X)
		return err

	case *ast.BlockStmt:
		return g.genBlock(st, true)
	}
	return nil
}

func (g *Generator) genIf(st *ast.IfStmt) error {
	cond, err := g.genExpr(st.Cond)
	if err != nil {
		return err
	}
	n := g.label + 1
	g.label = n
	thenL := fmt.Sprintf("then.%d", n)
	endL := fmt.Sprintf("end.%d", n)
	elseL := endL
	if st.Else != nil {
		elseL = fmt.Sprintf("else.%d", n)
	}
	g.blk.Add(ir.CondBr{Cond: cond, True: thenL, False: elseL})

	g.startBlock(thenL)
	if err := g.genBlock(st.Then, true); err != nil {
		return err
	}
	g.blk.Add(ir.Br{Label: endL})

	if st.Else != nil {
		g.startBlock(elseL)
		if err := g.genStmt(st.Else); err != nil {
			return err
		}
		g.blk.Add(ir.Br{Label: endL})
	}

	g.startBlock(endL)
	return nil
}

func (g *Generator) genWhile(st *ast.WhileStmt) error {
	n := g.label + 1
	g.label = n
	condL := fmt.Sprintf("cond.%d", n)
	bodyL := fmt.Sprintf("body.%d", n)
	endL := fmt.Sprintf("end.%d", n)

	g.blk.Add(ir.Br{Label: condL})
	g.startBlock(condL)
	cond, err := g.genExpr(st.Cond)
	if err != nil {
		return err
	}
	g.blk.Add(ir.CondBr{Cond: cond, True: bodyL, False: endL})

	g.startBlock(bodyL)
	if err := g.genBlock(st.Body, true); err != nil {
		return err
	}
	g.blk.Add(ir.Br{Label: condL})

	g.startBlock(endL)
	return nil
}

func (g *Generator) genFor(st *ast.ForStmt) error {
	g.pushScope()
	defer g.popScope()

	if st.Init != nil {
		if err := g.genStmt(st.Init); err != nil {
			return err
		}
	}

	n := g.label + 1
	g.label = n
	condL := fmt.Sprintf("cond.%d", n)
	bodyL := fmt.Sprintf("body.%d", n)
	endL := fmt.Sprintf("end.%d", n)

	g.blk.Add(ir.Br{Label: condL})
	g.startBlock(condL)
	if st.Cond != nil {
		cond, err := g.genExpr(st.Cond)
		if err != nil {
			return err
		}
		g.blk.Add(ir.CondBr{Cond: cond, True: bodyL, False: endL})
	} else {
		g.blk.Add(ir.Br{Label: bodyL})
	}

	g.startBlock(bodyL)
	if err := g.genBlock(st.Body, true); err != nil {
		return err
	}
	if st.Step != nil {
		if err := g.genStmt(st.Step); err != nil {
			return err
		}
	}
	g.blk.Add(ir.Br{Label: condL})

	g.startBlock(endL)
	return nil
}

// genMatch lowers a match to an equality-compare cascade: each literal
// arm tests in declaration order, the wildcard arm (or the end block)
// catches the rest.
func (g *Generator) genMatch(st *ast.MatchStmt) error {
	scrut, err := g.genExpr(st.Scrutinee)
	if err != nil {
		return err
	}
	st0 := st.Scrutinee.Type()

	n := g.label + 1
	g.label = n
	endL := fmt.Sprintf("match.end.%d", n)

	type loweredArm struct {
		arm   ast.MatchArm
		label string
	}
	arms := make([]loweredArm, len(st.Arms))
	for i, arm := range st.Arms {
		arms[i] = loweredArm{arm: arm, label: fmt.Sprintf("arm.%d.%d", n, i)}
	}

	// Comparison chain. The wildcard arm terminates the chain; without
	// one, a failed last test falls through to the end block.
	for i, la := range arms {
		if la.arm.Pattern == nil {
			g.blk.Add(ir.Br{Label: la.label})
			break
		}
		pat, err := g.genExpr(la.arm.Pattern)
		if err != nil {
			return err
		}
		eq, err := g.equality(scrut, pat, st0)
		if err != nil {
			return err
		}
		next := endL
		if i+1 < len(arms) {
			next = fmt.Sprintf("test.%d.%d", n, i+1)
		}
		g.blk.Add(ir.CondBr{Cond: eq, True: la.label, False: next})
		if i+1 < len(arms) {
			g.startBlock(next)
		}
	}
	if !g.blk.Terminated() {
		g.blk.Add(ir.Br{Label: endL})
	}

	for _, la := range arms {
		g.startBlock(la.label)
		if err := g.genBlock(la.arm.Body, true); err != nil {
			return err
		}
		g.blk.Add(ir.Br{Label: endL})
	}

	g.startBlock(endL)
	return nil
}

// equality produces an i1 for scrutinee == pattern. Strings compare by
// content through strcmp.
func (g *Generator) equality(l, r string, t types.Type) (string, error) {
	dst := g.newTmp()
	switch tt := t.(type) {
	case types.Float:
		g.blk.Add(ir.Cmp{Dst: dst, Float: true, Pred: "oeq", Type: llvmType(tt), L: l, R: r})
		return dst, nil
	case types.Str:
		g.useStrcmp = true
		cmp := g.newTmp()
		g.blk.Add(ir.Call{Dst: cmp, Ret: "i32", Callee: "strcmp", Args: []ir.Arg{{Type: "i8*", Val: l}, {Type: "i8*", Val: r}}})
		g.blk.Add(ir.Cmp{Dst: dst, Pred: "eq", Type: "i32", L: cmp, R: "0"})
		return dst, nil
	default:
		g.blk.Add(ir.Cmp{Dst: dst, Pred: "eq", Type: llvmType(t), L: l, R: r})
		return dst, nil
	}
}

// genAddr produces the address of an assignable place.
func (g *Generator) genAddr(e ast.Expression) (string, types.Type, error) {
	switch x := e.(type) {
	case *ast.Ident:
		s, ok := g.lookupVar(x.Name)
		if !ok {
			return "", nil, errors.Errorf("codegen: no slot for %s", x.Name)
		}
		return s.reg, s.typ, nil
	case *ast.FieldExpr:
		base, baseT, err := g.genAddr(x.X)
		if err != nil {
			return "", nil, err
		}
		st, ok := baseT.(*types.Struct)
		if !ok {
			return "", nil, errors.Errorf("codegen: field access on %s", baseT)
		}
		i := st.FieldIndex(x.Field)
		dst := g.newTmp()
		g.blk.Add(ir.FieldGEP{Dst: dst, Type: llvmType(st), Base: base, Index: i})
		return dst, st.Fields[i].Type, nil
	}
	return "", nil, errors.Errorf("codegen: expression is not addressable")
}

func (g *Generator) genExpr(e ast.Expression) (string, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		return fmt.Sprintf("%d", x.Value), nil
	case *ast.FloatLit:
		ft, _ := x.Type().(types.Float)
		return floatConst(x.Value, ft), nil
	case *ast.BoolLit:
		if x.Value {
			return "1", nil
		}
		return "0", nil
	case *ast.CharLit:
		// Chars are i8 at runtime; wider scalars keep the low byte.
		return fmt.Sprintf("%d", byte(x.Value)), nil
	case *ast.StrLit:
		glob := g.strConst(x.Value)
		dst := g.newTmp()
		g.blk.Add(ir.StrPtr{Dst: dst, Len: glob.Len(), Global: glob.Name})
		return dst, nil

	case *ast.Ident:
		s, ok := g.lookupVar(x.Name)
		if !ok {
			return "", errors.Errorf("codegen: no slot for %s", x.Name)
		}
		dst := g.newTmp()
		g.blk.Add(ir.Load{Dst: dst, Type: llvmType(s.typ), Src: s.reg})
		return dst, nil

	case *ast.AssignExpr:
		val, err := g.genExpr(x.Value)
		if err != nil {
			return "", err
		}
		addr, t, err := g.genAddr(x.Target)
		if err != nil {
			return "", err
		}
		g.blk.Add(ir.Store{Type: llvmType(t), Val: val, Dst: addr})
		return val, nil

	case *ast.BinaryExpr:
		return g.genBinary(x)
	case *ast.UnaryExpr:
		return g.genUnary(x)
	case *ast.CallExpr:
		return g.genCall(x)

	case *ast.FieldExpr:
		addr, t, err := g.genAddr(x)
		if err != nil {
			return "", err
		}
		dst := g.newTmp()
		g.blk.Add(ir.Load{Dst: dst, Type: llvmType(t), Src: addr})
		return dst, nil

	case *ast.StructLit:
		return g.genStructLit(x)

	case *ast.MoveExpr:
		// Ownership is a compile-time discipline only.
		return g.genExpr(x.X)
	case *ast.BorrowExpr:
		return g.genExpr(x.X)
	}
	return "", errors.Errorf("codegen: unsupported expression %T", e)
}

// floatConst renders a float constant in hexadecimal form, which is
// exact for both widths.
func floatConst(v float64, t types.Float) string {
	if t.Width == 32 {
		v = float64(float32(v))
	}
	return fmt.Sprintf("0x%016X", math.Float64bits(v))
}

func (g *Generator) genBinary(x *ast.BinaryExpr) (string, error) {
	l, err := g.genExpr(x.L)
	if err != nil {
		return "", err
	}
	r, err := g.genExpr(x.R)
	if err != nil {
		return "", err
	}
	t := x.L.Type()
	dst := g.newTmp()

	switch x.Op {
	case lexer.TokenAnd:
		g.blk.Add(ir.BinOp{Dst: dst, Op: "and", Type: "i1", L: l, R: r})
		return dst, nil
	case lexer.TokenOr:
		g.blk.Add(ir.BinOp{Dst: dst, Op: "or", Type: "i1", L: l, R: r})
		return dst, nil

	case lexer.TokenEq, lexer.TokenNe:
		eq, err := g.equality(l, r, t)
		if err != nil {
			return "", err
		}
		if x.Op == lexer.TokenEq {
			return eq, nil
		}
		g.blk.Add(ir.BinOp{Dst: dst, Op: "xor", Type: "i1", L: eq, R: "1"})
		return dst, nil

	case lexer.TokenLt, lexer.TokenLe, lexer.TokenGt, lexer.TokenGe:
		if ft, ok := t.(types.Float); ok {
			pred := map[lexer.TokenType]string{
				lexer.TokenLt: "olt", lexer.TokenLe: "ole",
				lexer.TokenGt: "ogt", lexer.TokenGe: "oge",
			}[x.Op]
			g.blk.Add(ir.Cmp{Dst: dst, Float: true, Pred: pred, Type: llvmType(ft), L: l, R: r})
			return dst, nil
		}
		signed := true
		if it, ok := t.(types.Int); ok {
			signed = it.Signed
		}
		pred := intPred(x.Op, signed)
		g.blk.Add(ir.Cmp{Dst: dst, Pred: pred, Type: llvmType(t), L: l, R: r})
		return dst, nil
	}

	// Arithmetic.
	op, err := arithOp(x.Op, t)
	if err != nil {
		return "", err
	}
	g.blk.Add(ir.BinOp{Dst: dst, Op: op, Type: llvmType(t), L: l, R: r})
	return dst, nil
}

func intPred(op lexer.TokenType, signed bool) string {
	if signed {
		return map[lexer.TokenType]string{
			lexer.TokenLt: "slt", lexer.TokenLe: "sle",
			lexer.TokenGt: "sgt", lexer.TokenGe: "sge",
		}[op]
	}
	return map[lexer.TokenType]string{
		lexer.TokenLt: "ult", lexer.TokenLe: "ule",
		lexer.TokenGt: "ugt", lexer.TokenGe: "uge",
	}[op]
}

func arithOp(op lexer.TokenType, t types.Type) (string, error) {
	if _, ok := t.(types.Float); ok {
		switch op {
		case lexer.TokenPlus:
			return "fadd", nil
		case lexer.TokenMinus:
			return "fsub", nil
		case lexer.TokenMul:
			return "fmul", nil
		case lexer.TokenDiv:
			return "fdiv", nil
		}
		return "", errors.Errorf("codegen: no float op for %s", op)
	}
	signed := true
	if it, ok := t.(types.Int); ok {
		signed = it.Signed
	}
	switch op {
	case lexer.TokenPlus:
		return "add", nil
	case lexer.TokenMinus:
		return "sub", nil
	case lexer.TokenMul:
		return "mul", nil
	case lexer.TokenDiv:
		if signed {
			return "sdiv", nil
		}
		return "udiv", nil
	case lexer.TokenMod:
		if signed {
			return "srem", nil
		}
		return "urem", nil
	}
	return "", errors.Errorf("codegen: no integer op for %s", op)
}

func (g *Generator) genUnary(x *ast.UnaryExpr) (string, error) {
	val, err := g.genExpr(x.X)
	if err != nil {
		return "", err
	}
	dst := g.newTmp()
	t := x.X.Type()
	switch x.Op {
	case lexer.TokenMinus:
		if ft, ok := t.(types.Float); ok {
			g.blk.Add(ir.BinOp{Dst: dst, Op: "fsub", Type: llvmType(ft), L: floatConst(0, ft), R: val})
			return dst, nil
		}
		g.blk.Add(ir.BinOp{Dst: dst, Op: "sub", Type: llvmType(t), L: "0", R: val})
		return dst, nil
	case lexer.TokenNot:
		g.blk.Add(ir.BinOp{Dst: dst, Op: "xor", Type: "i1", L: val, R: "1"})
		return dst, nil
	}
	return "", errors.Errorf("codegen: unsupported unary operator %s", x.Op)
}

func (g *Generator) genCall(x *ast.CallExpr) (string, error) {
	id := x.Callee.(*ast.Ident)
	if id.Name == "print" || id.Name == "println" {
		return "", g.genPrint(id.Name, x.Args[0])
	}

	sig := g.info.Funcs[id.Name]
	if sig == nil {
		return "", errors.Errorf("codegen: no signature for %s", id.Name)
	}
	var args []ir.Arg
	for i, a := range x.Args {
		v, err := g.genExpr(a)
		if err != nil {
			return "", err
		}
		args = append(args, ir.Arg{Type: llvmType(sig.Params[i]), Val: v})
	}
	if _, isVoid := sig.Ret.(types.Void); isVoid {
		g.blk.Add(ir.Call{Ret: "void", Callee: id.Name, Args: args})
		return "", nil
	}
	dst := g.newTmp()
	g.blk.Add(ir.Call{Dst: dst, Ret: llvmType(sig.Ret), Callee: id.Name, Args: args})
	return dst, nil
}

// genPrint lowers the output builtins. println on a string uses puts,
// which appends the newline itself; everything else goes through printf
// with a per-type format string. Narrow integers widen to the C vararg
// promotion width.
func (g *Generator) genPrint(name string, arg ast.Expression) error {
	val, err := g.genExpr(arg)
	if err != nil {
		return err
	}
	t := arg.Type()
	newline := name == "println"

	if _, isStr := t.(types.Str); isStr && newline {
		g.usePuts = true
		g.blk.Add(ir.Call{Dst: g.newTmp(), Ret: "i32", Callee: "puts", Args: []ir.Arg{{Type: "i8*", Val: val}}})
		return nil
	}

	var format, argType string
	switch tt := t.(type) {
	case types.Int:
		switch {
		case tt.Width == 64 && tt.Signed:
			format, argType = "%lld", "i64"
		case tt.Width == 64:
			format, argType = "%llu", "i64"
		case !tt.Signed && tt.Width == 32:
			format, argType = "%u", "i32"
		default:
			format, argType = "%d", "i32"
			if tt.Width < 32 {
				widened := g.newTmp()
				op := "zext"
				if tt.Signed {
					op = "sext"
				}
				g.blk.Add(ir.Conv{Dst: widened, Op: op, From: llvmType(tt), Val: val, To: "i32"})
				val = widened
			}
		}
	case types.Float:
		format, argType = "%f", "double"
		if tt.Width == 32 {
			widened := g.newTmp()
			g.blk.Add(ir.Conv{Dst: widened, Op: "fpext", From: "float", Val: val, To: "double"})
			val = widened
		}
	case types.Bool:
		format, argType = "%d", "i32"
		widened := g.newTmp()
		g.blk.Add(ir.Conv{Dst: widened, Op: "zext", From: "i1", Val: val, To: "i32"})
		val = widened
	case types.Char:
		format, argType = "%c", "i32"
		widened := g.newTmp()
		g.blk.Add(ir.Conv{Dst: widened, Op: "zext", From: "i8", Val: val, To: "i32"})
		val = widened
	case types.Str:
		format, argType = "%s", "i8*"
	default:
		return errors.Errorf("codegen: cannot print %s", t)
	}
	if newline {
		format += "\n"
	}

	g.usePrintf = true
	glob := g.strConst(format)
	fmtPtr := g.newTmp()
	g.blk.Add(ir.StrPtr{Dst: fmtPtr, Len: glob.Len(), Global: glob.Name})
	g.blk.Add(ir.Call{
		Dst:    g.newTmp(),
		Ret:    "i32",
		FnType: "(i8*, ...)",
		Callee: "printf",
		Args:   []ir.Arg{{Type: "i8*", Val: fmtPtr}, {Type: argType, Val: val}},
	})
	return nil
}

// genStructLit builds the aggregate in a scratch slot field by field,
// then loads it whole.
func (g *Generator) genStructLit(x *ast.StructLit) (string, error) {
	st, ok := x.Type().(*types.Struct)
	if !ok {
		return "", errors.Errorf("codegen: struct literal %s has no resolved type", x.Name)
	}
	tmp := g.alloca(st)

	// Field initializers evaluate in declaration order regardless of
	// the literal's spelling.
	byName := map[string]ast.Expression{}
	for _, f := range x.Fields {
		byName[f.Name] = f.Value
	}
	for i, f := range st.Fields {
		init, ok := byName[f.Name]
		if !ok {
			return "", errors.Errorf("codegen: missing field %s in %s literal", f.Name, st.Name)
		}
		val, err := g.genExpr(init)
		if err != nil {
			return "", err
		}
		addr := g.newTmp()
		g.blk.Add(ir.FieldGEP{Dst: addr, Type: llvmType(st), Base: tmp, Index: i})
		g.blk.Add(ir.Store{Type: llvmType(f.Type), Val: val, Dst: addr})
	}

	dst := g.newTmp()
	g.blk.Add(ir.Load{Dst: dst, Type: llvmType(st), Src: tmp})
	return dst, nil
}
