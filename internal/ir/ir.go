// Package ir defines the structured intermediate representation emitted
// by the code generator: a module of functions made of labeled basic
// blocks holding typed instructions. The in-memory form is built first
// and serialized to LLVM textual IR in one deterministic pass, so the
// same module always renders to identical text.
package ir

import (
	"fmt"
	"strings"
)

// Insn is one instruction inside a basic block.
type Insn interface {
	String() string
}

// Module is one compilation unit's worth of IR.
type Module struct {
	SourceFile string
	TypeDefs   []TypeDef
	Globals    []Global
	Externs    []Extern
	Funcs      []*Function
}

// TypeDef is a named aggregate type definition.
type TypeDef struct {
	Name   string // without the leading '%'
	Fields []string
}

func (t TypeDef) String() string {
	return fmt.Sprintf("%%%s = type { %s }", t.Name, strings.Join(t.Fields, ", "))
}

// Global is a private constant byte array, used for string literals and
// format strings. Data holds the raw bytes without the NUL terminator;
// Len includes it.
type Global struct {
	Name string // without the leading '@'
	Data string
}

// Len returns the array length including the NUL terminator.
func (g Global) Len() int { return len(g.Data) + 1 }

func (g Global) String() string {
	return fmt.Sprintf("@%s = private unnamed_addr constant [%d x i8] c\"%s\\00\"",
		g.Name, g.Len(), escape(g.Data))
}

// escape renders string data for a c"..." constant. Printable ASCII
// passes through; everything else becomes a two-digit hex escape.
func escape(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c <= 0x7e && c != '"' && c != '\\' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "\\%02X", c)
	}
	return b.String()
}

// Extern is a declared external function.
type Extern struct {
	Name     string
	Ret      string
	Params   []string
	Variadic bool
}

func (e Extern) String() string {
	params := strings.Join(e.Params, ", ")
	if e.Variadic {
		if params != "" {
			params += ", "
		}
		params += "..."
	}
	return fmt.Sprintf("declare %s @%s(%s)", e.Ret, e.Name, params)
}

// Param is one formal parameter of a defined function.
type Param struct {
	Name string // without the leading '%'
	Type string
}

// Function is one defined function: an ordered list of basic blocks, the
// first of which is the entry block.
type Function struct {
	Name   string
	Ret    string
	Params []Param
	Blocks []*Block
}

// Block is a labeled basic block. The terminator is the last
// instruction; the builder never appends past one.
type Block struct {
	Label string
	Insns []Insn
}

// Terminated reports whether the block already ends in a terminator.
func (b *Block) Terminated() bool {
	if len(b.Insns) == 0 {
		return false
	}
	switch b.Insns[len(b.Insns)-1].(type) {
	case Br, CondBr, Ret:
		return true
	}
	return false
}

// Add appends an instruction unless the block is already terminated;
// instructions after a terminator are unreachable and dropped.
func (b *Block) Add(in Insn) {
	if b.Terminated() {
		return
	}
	b.Insns = append(b.Insns, in)
}

// Alloca reserves one stack slot. Every local gets its slot in the entry
// block.
type Alloca struct {
	Dst  string
	Type string
}

func (i Alloca) String() string { return fmt.Sprintf("%s = alloca %s", i.Dst, i.Type) }

// Load reads a slot into a fresh register.
type Load struct {
	Dst  string
	Type string
	Src  string
}

func (i Load) String() string {
	return fmt.Sprintf("%s = load %s, %s* %s", i.Dst, i.Type, i.Type, i.Src)
}

// Store writes a value into a slot.
type Store struct {
	Type string
	Val  string
	Dst  string
}

func (i Store) String() string {
	return fmt.Sprintf("store %s %s, %s* %s", i.Type, i.Val, i.Type, i.Dst)
}

// BinOp is a two-operand arithmetic or logical instruction.
type BinOp struct {
	Dst  string
	Op   string // add, sub, mul, sdiv, udiv, srem, urem, fadd, ...
	Type string
	L, R string
}

func (i BinOp) String() string {
	return fmt.Sprintf("%s = %s %s %s, %s", i.Dst, i.Op, i.Type, i.L, i.R)
}

// Cmp is an integer or float comparison producing an i1.
type Cmp struct {
	Dst   string
	Float bool
	Pred  string // eq, ne, slt, ... or oeq, olt, ...
	Type  string
	L, R  string
}

func (i Cmp) String() string {
	op := "icmp"
	if i.Float {
		op = "fcmp"
	}
	return fmt.Sprintf("%s = %s %s %s %s, %s", i.Dst, op, i.Pred, i.Type, i.L, i.R)
}

// Conv is a width or representation conversion (zext, sext, trunc,
// fpext, sitofp, ...).
type Conv struct {
	Dst  string
	Op   string
	From string
	Val  string
	To   string
}

func (i Conv) String() string {
	return fmt.Sprintf("%s = %s %s %s to %s", i.Dst, i.Op, i.From, i.Val, i.To)
}

// Arg is one call argument.
type Arg struct {
	Type string
	Val  string
}

// Call invokes a function. Dst is empty for void calls; FnType carries
// the full callee type for variadic callees and is empty otherwise.
type Call struct {
	Dst    string
	Ret    string
	FnType string
	Callee string
	Args   []Arg
}

func (i Call) String() string {
	parts := make([]string, len(i.Args))
	for n, a := range i.Args {
		parts[n] = a.Type + " " + a.Val
	}
	sig := i.Ret
	if i.FnType != "" {
		sig = i.Ret + " " + i.FnType
	}
	call := fmt.Sprintf("call %s @%s(%s)", sig, i.Callee, strings.Join(parts, ", "))
	if i.Dst == "" {
		return call
	}
	return i.Dst + " = " + call
}

// StrPtr takes the i8* address of a global byte array.
type StrPtr struct {
	Dst    string
	Len    int
	Global string // without the leading '@'
}

func (i StrPtr) String() string {
	return fmt.Sprintf("%s = getelementptr inbounds [%d x i8], [%d x i8]* @%s, i64 0, i64 0",
		i.Dst, i.Len, i.Len, i.Global)
}

// FieldGEP addresses one field of a struct slot.
type FieldGEP struct {
	Dst   string
	Type  string // struct type, e.g. %Point
	Base  string
	Index int
}

func (i FieldGEP) String() string {
	return fmt.Sprintf("%s = getelementptr inbounds %s, %s* %s, i32 0, i32 %d",
		i.Dst, i.Type, i.Type, i.Base, i.Index)
}

// Br is an unconditional branch.
type Br struct {
	Label string
}

func (i Br) String() string { return fmt.Sprintf("br label %%%s", i.Label) }

// CondBr branches on an i1.
type CondBr struct {
	Cond  string
	True  string
	False string
}

func (i CondBr) String() string {
	return fmt.Sprintf("br i1 %s, label %%%s, label %%%s", i.Cond, i.True, i.False)
}

// Ret returns from the function; Val is empty for void.
type Ret struct {
	Type string
	Val  string
}

func (i Ret) String() string {
	if i.Val == "" {
		return "ret void"
	}
	return fmt.Sprintf("ret %s %s", i.Type, i.Val)
}

// String serializes the module to LLVM textual IR. Sections render in a
// fixed order and every list renders in insertion order, so generation
// is idempotent for the same input.
func (m *Module) String() string {
	var b strings.Builder
	if m.SourceFile != "" {
		fmt.Fprintf(&b, "; ModuleID = '%s'\n", m.SourceFile)
		fmt.Fprintf(&b, "source_filename = %q\n\n", m.SourceFile)
	}
	for _, td := range m.TypeDefs {
		b.WriteString(td.String())
		b.WriteByte('\n')
	}
	if len(m.TypeDefs) > 0 {
		b.WriteByte('\n')
	}
	for _, g := range m.Globals {
		b.WriteString(g.String())
		b.WriteByte('\n')
	}
	if len(m.Globals) > 0 {
		b.WriteByte('\n')
	}
	for _, e := range m.Externs {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	if len(m.Externs) > 0 {
		b.WriteByte('\n')
	}
	for fi, f := range m.Funcs {
		if fi > 0 {
			b.WriteByte('\n')
		}
		writeFunc(&b, f)
	}
	return b.String()
}

func writeFunc(b *strings.Builder, f *Function) {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s %%%s", p.Type, p.Name)
	}
	fmt.Fprintf(b, "define %s @%s(%s) {\n", f.Ret, f.Name, strings.Join(params, ", "))
	for bi, blk := range f.Blocks {
		if bi > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(b, "%s:\n", blk.Label)
		for _, in := range blk.Insns {
			b.WriteString("  ")
			b.WriteString(in.String())
			b.WriteByte('\n')
		}
	}
	b.WriteString("}\n")
}
