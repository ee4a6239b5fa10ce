package token

// Type identifies the category of a token.
type Type string

// Token carries the lexical item along with its source position.
// For Error tokens Literal holds the diagnostic message instead of a lexeme.
type Token struct {
	Type    Type
	Literal string
	Pos     Position
}

// Position describes a byte offset and 1-based line/column.
type Position struct {
	Offset int
	Line   int
	Column int
}

const (
	Error Type = "ERROR"
	EOF   Type = "EOF"

	// single-character tokens
	LParen    Type = "LPAREN"
	RParen    Type = "RPAREN"
	LBrace    Type = "LBRACE"
	RBrace    Type = "RBRACE"
	Comma     Type = "COMMA"
	Dot       Type = "DOT"
	Minus     Type = "MINUS"
	Plus      Type = "PLUS"
	Semicolon Type = "SEMICOLON"
	Slash     Type = "SLASH"
	Star      Type = "STAR"

	// one or two character tokens
	Bang         Type = "BANG"         // !
	BangEqual    Type = "BANGEQUAL"    // !=
	Assign       Type = "ASSIGN"       // =
	Equal        Type = "EQUAL"        // ==
	Greater      Type = "GREATER"      // >
	GreaterEqual Type = "GREATEREQUAL" // >=
	Less         Type = "LESS"         // <
	LessEqual    Type = "LESSEQUAL"    // <=

	// literals
	Ident  Type = "IDENT"
	String Type = "STRING"
	Number Type = "NUMBER"

	// keywords
	And    Type = "AND"
	Class  Type = "CLASS"
	Else   Type = "ELSE"
	False  Type = "FALSE"
	For    Type = "FOR"
	Fun    Type = "FUN"
	If     Type = "IF"
	Nil    Type = "NIL"
	Or     Type = "OR"
	Print  Type = "PRINT"
	Return Type = "RETURN"
	Super  Type = "SUPER"
	This   Type = "THIS"
	True   Type = "TRUE"
	Var    Type = "VAR"
	While  Type = "WHILE"
)

// LookupIdent returns the keyword token type or Ident.
// It branches on the leading bytes instead of consulting a map; the scanner
// calls it for every identifier.
func LookupIdent(ident string) Type {
	if len(ident) < 2 {
		return Ident
	}
	switch ident[0] {
	case 'a':
		return checkKeyword(ident, 1, "nd", And)
	case 'c':
		return checkKeyword(ident, 1, "lass", Class)
	case 'e':
		return checkKeyword(ident, 1, "lse", Else)
	case 'f':
		switch ident[1] {
		case 'a':
			return checkKeyword(ident, 2, "lse", False)
		case 'o':
			return checkKeyword(ident, 2, "r", For)
		case 'u':
			return checkKeyword(ident, 2, "n", Fun)
		}
	case 'i':
		return checkKeyword(ident, 1, "f", If)
	case 'n':
		return checkKeyword(ident, 1, "il", Nil)
	case 'o':
		return checkKeyword(ident, 1, "r", Or)
	case 'p':
		return checkKeyword(ident, 1, "rint", Print)
	case 'r':
		return checkKeyword(ident, 1, "eturn", Return)
	case 's':
		return checkKeyword(ident, 1, "uper", Super)
	case 't':
		switch ident[1] {
		case 'h':
			return checkKeyword(ident, 2, "is", This)
		case 'r':
			return checkKeyword(ident, 2, "ue", True)
		}
	case 'v':
		return checkKeyword(ident, 1, "ar", Var)
	case 'w':
		return checkKeyword(ident, 1, "hile", While)
	}
	return Ident
}

func checkKeyword(ident string, start int, rest string, t Type) Type {
	if len(ident) == start+len(rest) && ident[start:] == rest {
		return t
	}
	return Ident
}

// StartsStatement reports whether t begins a declaration or statement.
// The compiler resynchronizes on these after a syntax error.
func StartsStatement(t Type) bool {
	switch t {
	case Class, Fun, Var, For, If, While, Print, Return:
		return true
	default:
		return false
	}
}
