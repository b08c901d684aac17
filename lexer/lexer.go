// Package lexer tokenizes pipeline query strings.
package lexer

import (
	"fmt"
	"unicode"
)

// TokenType represents the type of a lexical token.
type TokenType int

const (
	// Structural
	TokenPipe   TokenType = iota // |
	TokenEquals                  // =
	TokenDot                     // .
	TokenSlash                   // /
	TokenMinus                   // -

	// Keywords
	TokenTrue  // true
	TokenFalse // false
	TokenNull  // null

	// Literals
	TokenInt    // integer literal
	TokenFloat  // float literal
	TokenString // "string literal"

	// Identifiers
	TokenIdent // op name, lookup key, order key

	// End
	TokenEOF
)

var tokenNames = map[TokenType]string{
	TokenPipe: "|", TokenEquals: "=", TokenDot: ".", TokenSlash: "/", TokenMinus: "-",
	TokenTrue: "true", TokenFalse: "false", TokenNull: "null",
	TokenInt: "INT", TokenFloat: "FLOAT", TokenString: "STRING",
	TokenIdent: "IDENT", TokenEOF: "EOF",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

// Token represents a single lexical token.
type Token struct {
	Type TokenType
	Val  string
	Pos  int // byte offset in original input
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Type, t.Val, t.Pos)
}

var keywords = map[string]TokenType{
	"true":  TokenTrue,
	"false": TokenFalse,
	"null":  TokenNull,
}

// Lex tokenizes the input string into a slice of Tokens.
func Lex(input string) ([]Token, error) {
	var tokens []Token
	runes := []rune(input)
	i := 0

	for i < len(runes) {
		ch := runes[i]

		// Skip whitespace
		if unicode.IsSpace(ch) {
			i++
			continue
		}

		pos := i
		switch ch {
		case '|':
			tokens = append(tokens, Token{TokenPipe, "|", pos})
			i++
			continue
		case '=':
			tokens = append(tokens, Token{TokenEquals, "=", pos})
			i++
			continue
		case '.':
			tokens = append(tokens, Token{TokenDot, ".", pos})
			i++
			continue
		case '/':
			// Check for // comment
			if i+1 < len(runes) && runes[i+1] == '/' {
				for i < len(runes) && runes[i] != '\n' {
					i++
				}
				continue
			}
			tokens = append(tokens, Token{TokenSlash, "/", pos})
			i++
			continue
		case '-':
			// Negative number after '=' or at an argument position,
			// otherwise the descending-order prefix.
			if i+1 < len(runes) && unicode.IsDigit(runes[i+1]) && isNegativeContext(tokens) {
				tok, newI, err := lexNumber(runes, i)
				if err != nil {
					return nil, err
				}
				tokens = append(tokens, tok)
				i = newI
				continue
			}
			tokens = append(tokens, Token{TokenMinus, "-", pos})
			i++
			continue
		}

		// String literal
		if ch == '"' {
			tok, newI, err := lexString(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = newI
			continue
		}

		// Number
		if unicode.IsDigit(ch) {
			tok, newI, err := lexNumber(runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, tok)
			i = newI
			continue
		}

		// Identifier or keyword
		if isIdentStart(ch) {
			tok, newI := lexIdent(runes, i)
			tokens = append(tokens, tok)
			i = newI
			continue
		}

		return nil, fmt.Errorf("unexpected character %q at position %d", ch, pos)
	}

	tokens = append(tokens, Token{TokenEOF, "", len(runes)})
	return tokens, nil
}

func isNegativeContext(tokens []Token) bool {
	if len(tokens) == 0 {
		return true
	}
	switch tokens[len(tokens)-1].Type {
	case TokenEquals, TokenPipe, TokenIdent, TokenInt:
		return true
	}
	return false
}

func lexString(runes []rune, start int) (Token, int, error) {
	i := start + 1 // skip opening quote
	var sb []rune
	for i < len(runes) {
		if runes[i] == '\\' && i+1 < len(runes) {
			switch runes[i+1] {
			case '"':
				sb = append(sb, '"')
			case '\\':
				sb = append(sb, '\\')
			case 'n':
				sb = append(sb, '\n')
			case 't':
				sb = append(sb, '\t')
			default:
				sb = append(sb, '\\', runes[i+1])
			}
			i += 2
			continue
		}
		if runes[i] == '"' {
			return Token{TokenString, string(sb), start}, i + 1, nil
		}
		sb = append(sb, runes[i])
		i++
	}
	return Token{}, 0, fmt.Errorf("unterminated string starting at position %d", start)
}

func lexNumber(runes []rune, start int) (Token, int, error) {
	i := start
	isFloat := false

	if i < len(runes) && runes[i] == '-' {
		i++
	}

	for i < len(runes) && unicode.IsDigit(runes[i]) {
		i++
	}

	if i < len(runes) && runes[i] == '.' {
		// Check it's not a file extension like "people.csv"
		if i+1 < len(runes) && unicode.IsDigit(runes[i+1]) {
			isFloat = true
			i++
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
		}
	}

	val := string(runes[start:i])
	if isFloat {
		return Token{TokenFloat, val, start}, i, nil
	}
	return Token{TokenInt, val, start}, i, nil
}

func lexIdent(runes []rune, start int) (Token, int) {
	i := start
	for i < len(runes) && isIdentPart(runes[i]) {
		i++
	}
	val := string(runes[start:i])

	if tt, ok := keywords[val]; ok {
		return Token{tt, val, start}, i
	}
	return Token{TokenIdent, val, start}, i
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}

func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}
