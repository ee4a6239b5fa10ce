package lexer

import (
	"github.com/xirelogy/go-lox/internal/token"
)

// Lexer converts source text into a stream of tokens, one token per call.
// Once the input is exhausted every call returns an EOF token.
type Lexer struct {
	input   string
	pos     int  // current position in bytes
	readPos int  // next read position
	ch      byte // current char
	line    int
	column  int
}

// New creates a lexer for the provided source text.
func New(input string) *Lexer {
	l := &Lexer{input: input}
	l.Reset()
	return l
}

// Reset rewinds the lexer to the start of its input.
func (l *Lexer) Reset() {
	l.pos = 0
	l.readPos = 0
	l.ch = 0
	l.line = 1
	l.column = 0
	l.readChar()
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() token.Token {
	l.skipWhitespace()

	if l.atEnd() {
		return l.makeToken(token.EOF, "")
	}

	start := l.position()
	ch := l.ch
	l.readChar()

	switch ch {
	case '(':
		return l.emit(token.LParen, start)
	case ')':
		return l.emit(token.RParen, start)
	case '{':
		return l.emit(token.LBrace, start)
	case '}':
		return l.emit(token.RBrace, start)
	case ',':
		return l.emit(token.Comma, start)
	case '.':
		return l.emit(token.Dot, start)
	case '-':
		return l.emit(token.Minus, start)
	case '+':
		return l.emit(token.Plus, start)
	case ';':
		return l.emit(token.Semicolon, start)
	case '/':
		return l.emit(token.Slash, start)
	case '*':
		return l.emit(token.Star, start)
	case '!':
		return l.emit(l.pick('=', token.BangEqual, token.Bang), start)
	case '=':
		return l.emit(l.pick('=', token.Equal, token.Assign), start)
	case '<':
		return l.emit(l.pick('=', token.LessEqual, token.Less), start)
	case '>':
		return l.emit(l.pick('=', token.GreaterEqual, token.Greater), start)
	case '"':
		return l.readString(start)
	}

	if isLetter(ch) {
		return l.readIdentifier(start)
	}
	if isDigit(ch) {
		return l.readNumber(start)
	}
	return l.errorToken(start, "Unexpected character.")
}

// pick consumes the current char when it matches want and returns the
// two-character type, otherwise the single-character one.
func (l *Lexer) pick(want byte, two, one token.Type) token.Type {
	if l.atEnd() || l.ch != want {
		return one
	}
	l.readChar()
	return two
}

func (l *Lexer) position() token.Position {
	return token.Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.column,
	}
}

func (l *Lexer) makeToken(t token.Type, lit string) token.Token {
	return token.Token{
		Type:    t,
		Literal: lit,
		Pos:     l.position(),
	}
}

// emit builds a token whose lexeme spans from start to the current position.
func (l *Lexer) emit(t token.Type, start token.Position) token.Token {
	return token.Token{
		Type:    t,
		Literal: l.input[start.Offset:l.pos],
		Pos:     start,
	}
}

func (l *Lexer) errorToken(start token.Position, msg string) token.Token {
	return token.Token{
		Type:    token.Error,
		Literal: msg,
		Pos:     start,
	}
}

func (l *Lexer) skipWhitespace() {
	for !l.atEnd() {
		switch l.ch {
		case ' ', '\t', '\r', '\n':
			l.readChar()
		case '/':
			if l.peekChar() != '/' {
				return
			}
			l.skipLineComment()
		default:
			return
		}
	}
}

func (l *Lexer) skipLineComment() {
	for !l.atEnd() && l.ch != '\n' {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier(start token.Position) token.Token {
	for !l.atEnd() && (isLetter(l.ch) || isDigit(l.ch)) {
		l.readChar()
	}
	tok := l.emit(token.Ident, start)
	tok.Type = token.LookupIdent(tok.Literal)
	return tok
}

func (l *Lexer) readNumber(start token.Position) token.Token {
	for !l.atEnd() && isDigit(l.ch) {
		l.readChar()
	}
	if !l.atEnd() && l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar() // consume '.'
		for !l.atEnd() && isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.emit(token.Number, start)
}

// readString scans a string literal; the opening quote is already consumed.
// The lexeme keeps both quotes. Strings may span lines.
func (l *Lexer) readString(start token.Position) token.Token {
	for !l.atEnd() && l.ch != '"' {
		l.readChar()
	}
	if l.atEnd() {
		return l.errorToken(start, "Unterminated string.")
	}
	l.readChar() // closing quote
	return l.emit(token.String, start)
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) atEnd() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) readChar() {
	if l.pos < len(l.input) && l.readPos > 0 && l.ch == '\n' {
		l.line++
		l.column = 0
	}
	if l.readPos >= len(l.input) {
		l.pos = len(l.input)
		l.readPos = len(l.input) + 1
		l.ch = 0
		return
	}

	l.ch = l.input[l.readPos]
	l.pos = l.readPos
	l.readPos++
	l.column++
}
