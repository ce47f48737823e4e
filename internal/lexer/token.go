package lexer

import (
	"fmt"

	"github.com/sable-lang/sable/internal/position"
)

// TokenType represents the type of a token.
type TokenType int

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(tt))
}

// Token types for the Sable language.
const (
	// Special tokens.
	TokenEOF TokenType = iota

	// Literals and identifiers.
	TokenIdentifier
	TokenInteger
	TokenFloat
	TokenString
	TokenChar

	// Keywords.
	TokenLet
	TokenMut
	TokenFn
	TokenReturn
	TokenIf
	TokenElse
	TokenFor
	TokenWhile
	TokenMatch
	TokenStruct
	TokenConst
	TokenUse
	TokenAs
	TokenPub
	TokenTrue
	TokenFalse

	// Type keywords.
	TokenTypeI8
	TokenTypeI16
	TokenTypeI32
	TokenTypeI64
	TokenTypeU8
	TokenTypeU16
	TokenTypeU32
	TokenTypeU64
	TokenTypeF32
	TokenTypeF64
	TokenTypeBool
	TokenTypeStr
	TokenTypeChar
	TokenTypeVoid

	// Operators.
	TokenPlus
	TokenMinus
	TokenMul
	TokenDiv
	TokenMod
	TokenAssign
	TokenEq
	TokenNe
	TokenLt
	TokenLe
	TokenGt
	TokenGe
	TokenAnd
	TokenOr
	TokenNot
	TokenArrow     // ->
	TokenFatArrow  // =>
	TokenMoveArrow // <-
	TokenAmpersand // &

	// Delimiters.
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenSemicolon
	TokenComma
	TokenDot
	TokenColon
	TokenDoubleColon
)

// Token represents a lexical token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Pos     position.Position
}

// String returns a string representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("{Type: %s, Literal: %q, Line: %d, Column: %d}",
		t.Type, t.Literal, t.Pos.Line, t.Pos.Column)
}

// tokenNames provides string representations for token types.
var tokenNames = map[TokenType]string{
	TokenEOF: "EOF",

	TokenIdentifier: "IDENTIFIER",
	TokenInteger:    "INTEGER",
	TokenFloat:      "FLOAT",
	TokenString:     "STRING",
	TokenChar:       "CHAR",

	TokenLet:    "LET",
	TokenMut:    "MUT",
	TokenFn:     "FN",
	TokenReturn: "RETURN",
	TokenIf:     "IF",
	TokenElse:   "ELSE",
	TokenFor:    "FOR",
	TokenWhile:  "WHILE",
	TokenMatch:  "MATCH",
	TokenStruct: "STRUCT",
	TokenConst:  "CONST",
	TokenUse:    "USE",
	TokenAs:     "AS",
	TokenPub:    "PUB",
	TokenTrue:   "TRUE",
	TokenFalse:  "FALSE",

	TokenTypeI8:   "I8",
	TokenTypeI16:  "I16",
	TokenTypeI32:  "I32",
	TokenTypeI64:  "I64",
	TokenTypeU8:   "U8",
	TokenTypeU16:  "U16",
	TokenTypeU32:  "U32",
	TokenTypeU64:  "U64",
	TokenTypeF32:  "F32",
	TokenTypeF64:  "F64",
	TokenTypeBool: "BOOL",
	TokenTypeStr:  "STR",
	TokenTypeChar: "CHAR_TYPE",
	TokenTypeVoid: "VOID",

	TokenPlus:      "PLUS",
	TokenMinus:     "MINUS",
	TokenMul:       "MUL",
	TokenDiv:       "DIV",
	TokenMod:       "MOD",
	TokenAssign:    "ASSIGN",
	TokenEq:        "EQ",
	TokenNe:        "NE",
	TokenLt:        "LT",
	TokenLe:        "LE",
	TokenGt:        "GT",
	TokenGe:        "GE",
	TokenAnd:       "AND",
	TokenOr:        "OR",
	TokenNot:       "NOT",
	TokenArrow:     "ARROW",
	TokenFatArrow:  "FAT_ARROW",
	TokenMoveArrow: "MOVE_ARROW",
	TokenAmpersand: "AMPERSAND",

	TokenLParen:      "LPAREN",
	TokenRParen:      "RPAREN",
	TokenLBrace:      "LBRACE",
	TokenRBrace:      "RBRACE",
	TokenLBracket:    "LBRACKET",
	TokenRBracket:    "RBRACKET",
	TokenSemicolon:   "SEMICOLON",
	TokenComma:       "COMMA",
	TokenDot:         "DOT",
	TokenColon:       "COLON",
	TokenDoubleColon: "DOUBLE_COLON",
}

// keywords maps identifier spellings to keyword token types. The table is
// built once at package load; the lexer itself holds no shared state.
var keywords = map[string]TokenType{
	"let":    TokenLet,
	"mut":    TokenMut,
	"fn":     TokenFn,
	"return": TokenReturn,
	"if":     TokenIf,
	"else":   TokenElse,
	"for":    TokenFor,
	"while":  TokenWhile,
	"match":  TokenMatch,
	"struct": TokenStruct,
	"const":  TokenConst,
	"use":    TokenUse,
	"as":     TokenAs,
	"pub":    TokenPub,
	"true":   TokenTrue,
	"false":  TokenFalse,

	"i8":   TokenTypeI8,
	"i16":  TokenTypeI16,
	"i32":  TokenTypeI32,
	"i64":  TokenTypeI64,
	"u8":   TokenTypeU8,
	"u16":  TokenTypeU16,
	"u32":  TokenTypeU32,
	"u64":  TokenTypeU64,
	"f32":  TokenTypeF32,
	"f64":  TokenTypeF64,
	"bool": TokenTypeBool,
	"str":  TokenTypeStr,
	"char": TokenTypeChar,
	"void": TokenTypeVoid,
}

// IsTypeKeyword reports whether tt names a built-in type.
func (tt TokenType) IsTypeKeyword() bool {
	return tt >= TokenTypeI8 && tt <= TokenTypeVoid
}
