// Package lexer tokenizes transform programs. The language is a small
// statement/expression grammar: assignments, indexing, method calls,
// arithmetic, comparisons, and literals. `#` starts a line comment; newlines
// and semicolons terminate statements.
package lexer

import "strings"

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF
	NEWLINE

	IDENT
	INT
	FLOAT
	STRING

	ASSIGN  // =
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	BANG    // !

	EQ    // ==
	NOTEQ // !=
	LT    // <
	GT    // >
	LE    // <=
	GE    // >=

	AND // and
	OR  // or

	COMMA     // ,
	COLON     // :
	DOT       // .
	SEMICOLON // ;
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	LBRACE    // {
	RBRACE    // }

	TRUE
	FALSE
	NULL
)

var tokenNames = map[TokenType]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF", NEWLINE: "NEWLINE",
	IDENT: "IDENT", INT: "INT", FLOAT: "FLOAT", STRING: "STRING",
	ASSIGN: "=", PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	BANG: "!", EQ: "==", NOTEQ: "!=", LT: "<", GT: ">", LE: "<=", GE: ">=",
	AND: "and", OR: "or",
	COMMA: ",", COLON: ":", DOT: ".", SEMICOLON: ";",
	LPAREN: "(", RPAREN: ")", LBRACKET: "[", RBRACKET: "]", LBRACE: "{", RBRACE: "}",
	TRUE: "true", FALSE: "false", NULL: "null",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

// Token carries its source position for error messages.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

var keywords = map[string]TokenType{
	"and":   AND,
	"or":    OR,
	"true":  TRUE,
	"false": FALSE,
	"null":  NULL,
}

type Lexer struct {
	input   string
	pos     int // current position
	readPos int // next position
	ch      byte
	line    int
	col     int
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// Next returns the next token. Comments are skipped; the newline ending a
// comment line is still emitted so statements stay separated.
func (l *Lexer) Next() Token {
	l.skipSpace()
	if l.ch == '#' {
		for l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
		l.skipSpace()
	}

	tok := Token{Line: l.line, Column: l.col}
	switch l.ch {
	case 0:
		tok.Type = EOF
		return tok
	case '\n':
		tok.Type, tok.Literal = NEWLINE, "\n"
	case '=':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = EQ, "=="
		} else {
			tok.Type, tok.Literal = ASSIGN, "="
		}
	case '!':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = NOTEQ, "!="
		} else {
			tok.Type, tok.Literal = BANG, "!"
		}
	case '<':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = LE, "<="
		} else {
			tok.Type, tok.Literal = LT, "<"
		}
	case '>':
		if l.peekChar() == '=' {
			l.readChar()
			tok.Type, tok.Literal = GE, ">="
		} else {
			tok.Type, tok.Literal = GT, ">"
		}
	case '+':
		tok.Type, tok.Literal = PLUS, "+"
	case '-':
		tok.Type, tok.Literal = MINUS, "-"
	case '*':
		tok.Type, tok.Literal = STAR, "*"
	case '/':
		tok.Type, tok.Literal = SLASH, "/"
	case '%':
		tok.Type, tok.Literal = PERCENT, "%"
	case ',':
		tok.Type, tok.Literal = COMMA, ","
	case ':':
		tok.Type, tok.Literal = COLON, ":"
	case ';':
		tok.Type, tok.Literal = SEMICOLON, ";"
	case '.':
		tok.Type, tok.Literal = DOT, "."
	case '(':
		tok.Type, tok.Literal = LPAREN, "("
	case ')':
		tok.Type, tok.Literal = RPAREN, ")"
	case '[':
		tok.Type, tok.Literal = LBRACKET, "["
	case ']':
		tok.Type, tok.Literal = RBRACKET, "]"
	case '{':
		tok.Type, tok.Literal = LBRACE, "{"
	case '}':
		tok.Type, tok.Literal = RBRACE, "}"
	case '"', '\'':
		tok.Type = STRING
		tok.Literal = l.readString(l.ch)
		return tok
	default:
		switch {
		case isLetter(l.ch):
			tok.Literal = l.readIdentifier()
			if kw, ok := keywords[tok.Literal]; ok {
				tok.Type = kw
			} else {
				tok.Type = IDENT
			}
			return tok
		case isDigit(l.ch):
			tok.Type, tok.Literal = l.readNumber()
			return tok
		default:
			tok.Type, tok.Literal = ILLEGAL, string(l.ch)
		}
	}
	l.readChar()
	return tok
}

func (l *Lexer) skipSpace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() (TokenType, string) {
	start := l.pos
	typ := INT
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		typ = FLOAT
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return typ, l.input[start:l.pos]
}

// readString consumes a quoted string with \\ \n \t and quote escapes. Both
// double and single quotes delimit strings; generated code tends to use
// either freely.
func (l *Lexer) readString(quote byte) string {
	var sb strings.Builder
	l.readChar()
	for l.ch != quote && l.ch != 0 && l.ch != '\n' {
		if l.ch == '\\' {
			switch l.peekChar() {
			case 'n':
				sb.WriteByte('\n')
				l.readChar()
			case 't':
				sb.WriteByte('\t')
				l.readChar()
			case '\\', quote:
				sb.WriteByte(l.peekChar())
				l.readChar()
			default:
				sb.WriteByte(l.ch)
			}
		} else {
			sb.WriteByte(l.ch)
		}
		l.readChar()
	}
	l.readChar() // closing quote
	return sb.String()
}

func isLetter(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}
