// Package lexer implements the Sable lexical analyzer: a single forward
// scan over UTF-8 source text producing positioned tokens with maximal
// munch for identifiers, numbers and multi-character operators.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sable-lang/sable/internal/diag"
	"github.com/sable-lang/sable/internal/position"
)

// Lexer scans one source text. Each compilation owns its own instance;
// the only process-wide state is the immutable keyword table.
type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           byte // current char under examination
	line         int  // current line number
	column       int  // current column number

	filename string // source filename for error reporting
}

// New creates a new lexer instance for the given source text.
func New(input string) *Lexer {
	return NewWithFilename(input, "")
}

// NewWithFilename creates a new lexer instance with a filename used in
// reported positions.
func NewWithFilename(input, filename string) *Lexer {
	l := &Lexer{
		input:    input,
		line:     1,
		column:   0,
		filename: filename,
	}
	l.readChar()
	return l
}

// Tokenize scans the whole input and returns the token stream, always
// terminated by an EOF token so consumers never index past the end.
// The first malformed construct aborts the scan with a LexError.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// readChar reads the next character and advances position.
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0 // NUL represents end of input
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++

	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

// peekChar returns the next character without advancing position.
func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// pos returns the position of the character currently under examination.
func (l *Lexer) pos() position.Position {
	return position.Position{
		Filename: l.filename,
		Line:     l.line,
		Column:   l.column,
		Offset:   l.position,
	}
}

func (l *Lexer) errorf(kind diag.LexErrorKind, pos position.Position, format string, args ...any) error {
	return &diag.LexError{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// nextToken scans and returns the next token.
func (l *Lexer) nextToken() (Token, error) {
	if err := l.skipSpaceAndComments(); err != nil {
		return Token{}, err
	}

	pos := l.pos()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Pos: pos}, nil
	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(pos), nil
	case isDigit(l.ch):
		return l.readNumber(pos)
	case l.ch == '"':
		return l.readString(pos)
	case l.ch == '\'':
		return l.readCharLiteral(pos)
	}

	// Operators and delimiters: greedy two-character lookahead first.
	type pair struct {
		second byte
		t      TokenType
	}
	two := map[byte]pair{
		'-': {'>', TokenArrow},
		'=': {'=', TokenEq},
		'!': {'=', TokenNe},
		'&': {'&', TokenAnd},
		'|': {'|', TokenOr},
		':': {':', TokenDoubleColon},
	}
	if p, ok := two[l.ch]; ok && l.peekChar() == p.second {
		lit := string(l.ch) + string(p.second)
		l.readChar()
		l.readChar()
		return Token{Type: p.t, Literal: lit, Pos: pos}, nil
	}
	// '<' and '=' have two distinct two-character continuations each.
	if l.ch == '<' && l.peekChar() == '=' {
		l.readChar()
		l.readChar()
		return Token{Type: TokenLe, Literal: "<=", Pos: pos}, nil
	}
	if l.ch == '<' && l.peekChar() == '-' {
		l.readChar()
		l.readChar()
		return Token{Type: TokenMoveArrow, Literal: "<-", Pos: pos}, nil
	}
	if l.ch == '>' && l.peekChar() == '=' {
		l.readChar()
		l.readChar()
		return Token{Type: TokenGe, Literal: ">=", Pos: pos}, nil
	}
	if l.ch == '=' && l.peekChar() == '>' {
		l.readChar()
		l.readChar()
		return Token{Type: TokenFatArrow, Literal: "=>", Pos: pos}, nil
	}

	single := map[byte]TokenType{
		'+': TokenPlus,
		'-': TokenMinus,
		'*': TokenMul,
		'/': TokenDiv,
		'%': TokenMod,
		'=': TokenAssign,
		'<': TokenLt,
		'>': TokenGt,
		'!': TokenNot,
		'&': TokenAmpersand,
		'(': TokenLParen,
		')': TokenRParen,
		'{': TokenLBrace,
		'}': TokenRBrace,
		'[': TokenLBracket,
		']': TokenRBracket,
		';': TokenSemicolon,
		',': TokenComma,
		'.': TokenDot,
		':': TokenColon,
	}
	if t, ok := single[l.ch]; ok {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos}, nil
	}

	ch := l.ch
	if ch >= 0x80 {
		r, _ := utf8.DecodeRuneInString(l.input[l.position:])
		return Token{}, l.errorf(diag.InvalidCharacter, pos, "unexpected character %q", r)
	}
	return Token{}, l.errorf(diag.InvalidCharacter, pos, "unexpected character %q", rune(ch))
}

// skipSpaceAndComments discards whitespace, line comments and non-nested
// block comments. The first '*/' closes a block comment.
func (l *Lexer) skipSpaceAndComments() error {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			start := l.pos()
			l.readChar() // consume '/'
			l.readChar() // consume '*'
			for {
				if l.ch == 0 {
					return l.errorf(diag.UnterminatedComment, start, "block comment not closed before end of input")
				}
				if l.ch == '*' && l.peekChar() == '/' {
					l.readChar()
					l.readChar()
					break
				}
				l.readChar()
			}
		default:
			return nil
		}
	}
}

// readIdentifier scans an identifier or keyword with maximal munch; the
// keyword table is consulted only after the full identifier is read.
func (l *Lexer) readIdentifier(pos position.Position) Token {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	lit := l.input[start:l.position]
	if t, ok := keywords[lit]; ok {
		return Token{Type: t, Literal: lit, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: lit, Pos: pos}
}

// readNumber scans integer and float literals. Integers support decimal,
// 0x/0o/0b prefixes and '_' separators; a '.' followed by a digit promotes
// the literal to a float. An optional width suffix (i8..u64, f32/f64) is
// scanned into the literal text.
func (l *Lexer) readNumber(pos position.Position) (Token, error) {
	start := l.position
	isFloat := false

	digits := isDigit
	if l.ch == '0' {
		switch l.peekChar() {
		case 'x', 'X':
			l.readChar()
			l.readChar()
			digits = isHexDigit
		case 'o', 'O':
			l.readChar()
			l.readChar()
			digits = isOctalDigit
		case 'b', 'B':
			l.readChar()
			l.readChar()
			digits = isBinaryDigit
		}
	}

	for digits(l.ch) || l.ch == '_' {
		l.readChar()
	}

	// A '.' with a following digit promotes to float; prefixed literals
	// never carry a fractional part.
	if l.ch == '.' && isDigit(l.peekChar()) {
		if !isDecimal(l.input[start:l.position]) {
			return Token{}, l.errorf(diag.MalformedNumber, pos, "fractional part on prefixed integer literal %q", l.input[start:l.position])
		}
		isFloat = true
		l.readChar() // consume '.'
		for isDigit(l.ch) || l.ch == '_' {
			l.readChar()
		}
	}

	// Optional width suffix.
	if isLetter(l.ch) {
		suffixStart := l.position
		for isLetter(l.ch) || isDigit(l.ch) {
			l.readChar()
		}
		suffix := l.input[suffixStart:l.position]
		switch suffix {
		case "i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64":
			if isFloat {
				return Token{}, l.errorf(diag.MalformedNumber, pos, "integer suffix %q on float literal", suffix)
			}
		case "f32", "f64":
			isFloat = true
		default:
			return Token{}, l.errorf(diag.MalformedNumber, pos, "invalid numeric suffix %q", suffix)
		}
	}

	lit := strings.ReplaceAll(l.input[start:l.position], "_", "")
	if isFloat {
		return Token{Type: TokenFloat, Literal: lit, Pos: pos}, nil
	}
	return Token{Type: TokenInteger, Literal: lit, Pos: pos}, nil
}

// readString scans a string literal, decoding escape sequences. The token
// literal holds the decoded value without the surrounding quotes.
func (l *Lexer) readString(pos position.Position) (Token, error) {
	l.readChar() // consume opening quote
	var b strings.Builder
	for {
		switch l.ch {
		case 0:
			return Token{}, l.errorf(diag.UnterminatedString, pos, "string literal not closed before end of input")
		case '"':
			l.readChar()
			return Token{Type: TokenString, Literal: b.String(), Pos: pos}, nil
		case '\\':
			l.readChar()
			dec, err := l.decodeEscape(pos)
			if err != nil {
				return Token{}, err
			}
			b.WriteByte(dec)
		default:
			b.WriteByte(l.ch)
			l.readChar()
		}
	}
}

// readCharLiteral scans a character literal holding one Unicode scalar.
func (l *Lexer) readCharLiteral(pos position.Position) (Token, error) {
	l.readChar() // consume opening quote
	var value rune
	switch {
	case l.ch == 0 || l.ch == '\'':
		return Token{}, l.errorf(diag.UnterminatedChar, pos, "empty or unterminated character literal")
	case l.ch == '\\':
		l.readChar()
		dec, err := l.decodeEscape(pos)
		if err != nil {
			return Token{}, err
		}
		value = rune(dec)
	case l.ch >= 0x80:
		r, size := utf8.DecodeRuneInString(l.input[l.position:])
		value = r
		for i := 0; i < size; i++ {
			l.readChar()
		}
	default:
		value = rune(l.ch)
		l.readChar()
	}
	if l.ch != '\'' {
		return Token{}, l.errorf(diag.UnterminatedChar, pos, "character literal not closed")
	}
	l.readChar()
	return Token{Type: TokenChar, Literal: string(value), Pos: pos}, nil
}

// decodeEscape decodes the character after a backslash.
func (l *Lexer) decodeEscape(pos position.Position) (byte, error) {
	var dec byte
	switch l.ch {
	case 'n':
		dec = '\n'
	case 't':
		dec = '\t'
	case 'r':
		dec = '\r'
	case '0':
		dec = 0
	case '\\':
		dec = '\\'
	case '"':
		dec = '"'
	case '\'':
		dec = '\''
	case 0:
		return 0, l.errorf(diag.UnterminatedString, pos, "escape sequence not closed before end of input")
	default:
		return 0, l.errorf(diag.InvalidCharacter, l.pos(), "unknown escape sequence \\%c", l.ch)
	}
	l.readChar()
	return dec, nil
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z'
}

func isDigit(ch byte) bool { return '0' <= ch && ch <= '9' }

func isHexDigit(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}

func isOctalDigit(ch byte) bool { return '0' <= ch && ch <= '7' }

func isBinaryDigit(ch byte) bool { return ch == '0' || ch == '1' }

func isDecimal(lit string) bool {
	for _, r := range lit {
		if !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
