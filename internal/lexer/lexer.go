package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/funvibe/jot/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
}

func New(input string) *Lexer {
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
		l.ch = r
		l.position = l.readPosition
		l.readPosition += w
		l.column++
		return
	}

	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// NextToken returns the next token, including COMMENT tokens.
func (l *Lexer) NextToken() token.Token {
	var tok token.Token

	l.skipWhitespace()

	line, col := l.line, l.column

	switch l.ch {
	case '=':
		tok = l.twoCharToken('=', token.EQ, token.ASSIGN)
	case '!':
		tok = l.twoCharToken('=', token.NOT_EQ, token.BANG)
	case '<':
		tok = l.twoCharToken('=', token.LTE, token.LT)
	case '>':
		tok = l.twoCharToken('=', token.GTE, token.GT)
	case '+':
		if l.peekChar() == '+' {
			l.readChar()
			tok = token.Token{Type: token.INCREMENT, Lexeme: "++", Literal: "++"}
		} else {
			tok = l.twoCharToken('=', token.PLUS_ASSIGN, token.PLUS)
		}
	case '-':
		if l.peekChar() == '-' {
			l.readChar()
			tok = token.Token{Type: token.DECREMENT, Lexeme: "--", Literal: "--"}
		} else {
			tok = l.twoCharToken('=', token.MINUS_ASSIGN, token.MINUS)
		}
	case '*':
		tok = l.twoCharToken('=', token.ASTERISK_ASSIGN, token.ASTERISK)
	case '%':
		tok = l.twoCharToken('=', token.PERCENT_ASSIGN, token.PERCENT)
	case '/':
		switch l.peekChar() {
		case '/':
			tok = l.readLineComment()
		case '*':
			tok = l.readBlockComment()
		default:
			tok = l.twoCharToken('=', token.SLASH_ASSIGN, token.SLASH)
		}
	case '&':
		if l.peekChar() == '&' {
			l.readChar()
			tok = token.Token{Type: token.AND, Lexeme: "&&", Literal: "&&"}
		} else {
			tok = newToken(token.ILLEGAL, l.ch)
		}
	case '|':
		if l.peekChar() == '|' {
			l.readChar()
			tok = token.Token{Type: token.OR, Lexeme: "||", Literal: "||"}
		} else {
			tok = newToken(token.ILLEGAL, l.ch)
		}
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			tok = token.Token{Type: token.COLON_COLON, Lexeme: "::", Literal: "::"}
		} else {
			tok = newToken(token.ILLEGAL, l.ch)
		}
	case '.':
		tok = newToken(token.DOT, l.ch)
	case ',':
		tok = newToken(token.COMMA, l.ch)
	case ';':
		tok = newToken(token.SEMICOLON, l.ch)
	case '(':
		tok = newToken(token.LPAREN, l.ch)
	case ')':
		tok = newToken(token.RPAREN, l.ch)
	case '{':
		tok = newToken(token.LBRACE, l.ch)
	case '}':
		tok = newToken(token.RBRACE, l.ch)
	case '[':
		tok = newToken(token.LBRACKET, l.ch)
	case ']':
		tok = newToken(token.RBRACKET, l.ch)
	case '"':
		tok = l.readString()
	case 0:
		tok = token.Token{Type: token.EOF, Lexeme: "", Literal: ""}
	default:
		if isLetter(l.ch) {
			ident := l.readIdentifier()
			tok = token.Token{Type: token.LookupIdent(ident), Lexeme: ident, Literal: ident, Line: line, Column: col}
			return tok
		} else if isDigit(l.ch) {
			return l.readNumber(line, col)
		}
		tok = newToken(token.ILLEGAL, l.ch)
	}

	tok.Line, tok.Column = line, col
	l.readChar()
	return tok
}

// Tokenize splits input into significant tokens (ending with EOF) and comments.
func Tokenize(input string) (tokens []token.Token, comments []token.Token) {
	l := New(input)
	for {
		tok := l.NextToken()
		if tok.Type == token.COMMENT {
			comments = append(comments, tok)
			continue
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, comments
		}
	}
}

func (l *Lexer) twoCharToken(second rune, matched, single token.TokenType) token.Token {
	if l.peekChar() == second {
		first := l.ch
		l.readChar()
		lit := string(first) + string(l.ch)
		return token.Token{Type: matched, Lexeme: lit, Literal: lit}
	}
	return newToken(single, l.ch)
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

// readLineComment leaves l.ch on the last comment character.
func (l *Lexer) readLineComment() token.Token {
	start := l.position
	for l.peekChar() != '\n' && l.peekChar() != 0 {
		l.readChar()
	}
	text := strings.TrimRight(l.input[start:l.readPosition], "\r")
	return token.Token{Type: token.COMMENT, Lexeme: text, Literal: text}
}

func (l *Lexer) readBlockComment() token.Token {
	start := l.position
	l.readChar() // *
	for {
		l.readChar()
		if l.ch == 0 {
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:], Literal: "unterminated comment"}
		}
		if l.ch == '*' && l.peekChar() == '/' {
			l.readChar()
			text := l.input[start:l.readPosition]
			return token.Token{Type: token.COMMENT, Lexeme: text, Literal: text}
		}
	}
}

// readString leaves l.ch on the closing quote.
func (l *Lexer) readString() token.Token {
	start := l.position
	var sb strings.Builder
	for {
		l.readChar()
		switch l.ch {
		case '"':
			return token.Token{Type: token.STRING, Lexeme: l.input[start:l.readPosition], Literal: sb.String()}
		case 0, '\n':
			return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:l.position], Literal: "unterminated string literal"}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '0':
				sb.WriteRune(0)
			case '"', '\\', '\'':
				sb.WriteRune(l.ch)
			default:
				return token.Token{Type: token.ILLEGAL, Lexeme: l.input[start:l.readPosition], Literal: "invalid escape sequence"}
			}
		default:
			sb.WriteRune(l.ch)
		}
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[position:l.position]
}

func (l *Lexer) readNumber(line, col int) token.Token {
	position := l.position
	for isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	lexeme := l.input[position:l.position]
	value, err := strconv.ParseInt(strings.ReplaceAll(lexeme, "_", ""), 10, 64)
	if err != nil {
		return token.Token{Type: token.ILLEGAL, Lexeme: lexeme, Literal: "invalid integer literal", Line: line, Column: col}
	}
	return token.Token{Type: token.INT, Lexeme: lexeme, Literal: value, Line: line, Column: col}
}

func isLetter(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_' || ch == '$'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

func newToken(tokenType token.TokenType, ch rune) token.Token {
	return token.Token{Type: tokenType, Lexeme: string(ch), Literal: string(ch)}
}
