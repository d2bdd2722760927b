package filter

import "strings"

type TokenType int

const (
	Column TokenType = iota
	Operator
	Word
	And
	EOF
	Unknown
)

type Token struct {
	Type  TokenType
	Value string
}

func (token Token) String() string {
	switch token.Type {
	case Column:
		return "Column(" + token.Value + ")"
	case Operator:
		return "Operator(" + token.Value + ")"
	case Word:
		return "Word(" + token.Value + ")"
	case And:
		return "And"
	case EOF:
		return "EOF"
	default:
		return "Unknown(" + token.Value + ")"
	}
}

type Lexer struct {
	text         string
	position     int
	readPosition int
	ch           byte
}

func NewLexer(text string) *Lexer {
	lexer := &Lexer{text: text}
	lexer.readChar()
	return lexer
}

func (lexer *Lexer) readChar() {
	if lexer.readPosition >= len(lexer.text) {
		lexer.ch = 0
	} else {
		lexer.ch = lexer.text[lexer.readPosition]
	}
	lexer.position = lexer.readPosition
	lexer.readPosition++
}

func (lexer *Lexer) NextToken() Token {
	lexer.skipWhitespace()

	switch {
	case lexer.ch == 0:
		return Token{Type: EOF}
	case lexer.ch == '&':
		lexer.readChar()
		return Token{Type: And, Value: "&"}
	case lexer.ch == '`':
		name, ok := lexer.readQuoted()
		if !ok {
			return Token{Type: Unknown, Value: "`" + name}
		}
		return Token{Type: Column, Value: name}
	case isOperator(lexer.ch):
		return Token{Type: Operator, Value: lexer.readOperator()}
	default:
		return Token{Type: Word, Value: lexer.readWord()}
	}
}

func (lexer *Lexer) PeekToken() Token {
	savedPosition := lexer.position
	savedReadPosition := lexer.readPosition
	savedCh := lexer.ch

	token := lexer.NextToken()

	lexer.position = savedPosition
	lexer.readPosition = savedReadPosition
	lexer.ch = savedCh

	return token
}

// ReadValue consumes raw text up to the next clause separator and returns
// it trimmed.
func (lexer *Lexer) ReadValue() string {
	lexer.skipWhitespace()
	position := lexer.position
	for lexer.ch != '&' && lexer.ch != 0 {
		lexer.readChar()
	}
	end := lexer.position
	if end > len(lexer.text) {
		end = len(lexer.text)
	}
	return strings.TrimSpace(lexer.text[position:end])
}

func (lexer *Lexer) skipWhitespace() {
	for isSpace(lexer.ch) {
		lexer.readChar()
	}
}

// readQuoted reads a backtick quoted name. The second result is false when
// the closing backtick is missing.
func (lexer *Lexer) readQuoted() (string, bool) {
	lexer.readChar() // skip opening backtick
	position := lexer.position
	for lexer.ch != '`' && lexer.ch != 0 {
		lexer.readChar()
	}
	if lexer.ch == 0 {
		return lexer.text[position:], false
	}
	name := lexer.text[position:lexer.position]
	lexer.readChar() // skip closing backtick
	return name, true
}

func (lexer *Lexer) readOperator() string {
	position := lexer.position
	for isOperator(lexer.ch) {
		lexer.readChar()
	}
	return lexer.text[position:lexer.position]
}

func (lexer *Lexer) readWord() string {
	position := lexer.position
	for lexer.ch != 0 && !isSpace(lexer.ch) && lexer.ch != '&' && lexer.ch != '`' {
		lexer.readChar()
	}
	return lexer.text[position:lexer.position]
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isOperator(ch byte) bool {
	return ch == '=' || ch == '!' || ch == '<' || ch == '>'
}
