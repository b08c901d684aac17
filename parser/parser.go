// Package parser turns pipeline query strings into an AST.
package parser

import (
	"fmt"
	"strconv"

	"github.com/objquery/oq/ast"
	"github.com/objquery/oq/lexer"
)

// Parser converts a token stream into an AST.
type Parser struct {
	tokens []lexer.Token
	pos    int
}

// Parse parses a full pipeline string into a Query AST.
func Parse(input string) (*ast.Query, error) {
	tokens, err := lexer.Lex(input)
	if err != nil {
		return nil, fmt.Errorf("lex error: %w", err)
	}
	p := &Parser{tokens: tokens, pos: 0}
	return p.parseQuery()
}

func (p *Parser) peek() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.TokenEOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() lexer.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, fmt.Errorf("expected %s, got %s (%q) at position %d", tt, tok.Type, tok.Val, tok.Pos)
	}
	return tok, nil
}

func (p *Parser) parseQuery() (*ast.Query, error) {
	source, err := p.parseSource()
	if err != nil {
		return nil, err
	}

	var ops []ast.Op
	for p.peek().Type == lexer.TokenPipe {
		p.advance() // consume |
		op, err := p.parseOp()
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	if p.peek().Type != lexer.TokenEOF {
		return nil, fmt.Errorf("unexpected token %s (%q) at position %d", p.peek().Type, p.peek().Val, p.peek().Pos)
	}

	return &ast.Query{Source: source, Ops: ops}, nil
}

func (p *Parser) parseSource() (*ast.SourceOp, error) {
	// Filename can be like "path/to/people.csv" which tokenizes as
	// IDENT SLASH IDENT SLASH IDENT DOT IDENT
	// Or a quoted string: "my file.csv"
	tok := p.advance()
	if tok.Type == lexer.TokenString {
		return &ast.SourceOp{Filename: tok.Val}, nil
	}
	if tok.Type != lexer.TokenIdent {
		return nil, fmt.Errorf("expected filename, got %s (%q) at position %d", tok.Type, tok.Val, tok.Pos)
	}

	filename := tok.Val

	// Consume subsequent /ident and .ident sequences to form the path
	for p.peek().Type == lexer.TokenDot || p.peek().Type == lexer.TokenSlash {
		sep := p.advance()
		next := p.advance()
		if next.Type != lexer.TokenIdent && next.Type != lexer.TokenInt {
			return nil, fmt.Errorf("expected path component after %q, got %s at position %d", sep.Val, next.Type, next.Pos)
		}
		filename += sep.Val + next.Val
	}

	return &ast.SourceOp{Filename: filename}, nil
}

func (p *Parser) parseOp() (ast.Op, error) {
	tok := p.peek()
	if tok.Type != lexer.TokenIdent {
		return nil, fmt.Errorf("expected operation name, got %s (%q) at position %d", tok.Type, tok.Val, tok.Pos)
	}

	switch tok.Val {
	case "filter":
		return p.parseFilter()
	case "exclude":
		return p.parseExclude()
	case "order_by":
		return p.parseOrderBy()
	case "reverse":
		p.advance()
		return &ast.ReverseOp{}, nil
	case "slice":
		return p.parseSlice()
	case "at":
		return p.parseAt()
	case "head":
		return p.parseHead()
	case "tail":
		return p.parseTail()
	case "count":
		p.advance()
		return &ast.CountOp{}, nil
	default:
		return nil, fmt.Errorf("unknown operation %q at position %d", tok.Val, tok.Pos)
	}
}

func (p *Parser) parseFilter() (ast.Op, error) {
	p.advance() // consume "filter"
	lookups, err := p.parseLookups()
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return &ast.FilterOp{Lookups: lookups}, nil
}

func (p *Parser) parseExclude() (ast.Op, error) {
	p.advance() // consume "exclude"
	lookups, err := p.parseLookups()
	if err != nil {
		return nil, fmt.Errorf("exclude: %w", err)
	}
	if len(lookups) == 0 {
		return nil, fmt.Errorf("exclude: expected at least one lookup")
	}
	return &ast.ExcludeOp{Lookups: lookups}, nil
}

func (p *Parser) parseOrderBy() (ast.Op, error) {
	p.advance() // consume "order_by"
	var keys []string
	for {
		switch p.peek().Type {
		case lexer.TokenMinus:
			p.advance()
			tok, err := p.expect(lexer.TokenIdent)
			if err != nil {
				return nil, fmt.Errorf("order_by: expected key after '-': %w", err)
			}
			keys = append(keys, "-"+tok.Val)
			continue
		case lexer.TokenIdent:
			keys = append(keys, p.advance().Val)
			continue
		}
		break
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("order_by: expected at least one key")
	}
	return &ast.OrderByOp{Keys: keys}, nil
}

// parseSlice parses "slice start [stop [step]]". An omitted stop leaves the
// slice open-ended.
func (p *Parser) parseSlice() (ast.Op, error) {
	p.advance() // consume "slice"
	start, err := p.parseInt()
	if err != nil {
		return nil, fmt.Errorf("slice: %w", err)
	}
	op := &ast.SliceOp{Start: start, OpenStop: true, Step: 1}

	if p.peek().Type == lexer.TokenInt {
		stop, err := p.parseInt()
		if err != nil {
			return nil, fmt.Errorf("slice: %w", err)
		}
		op.Stop = stop
		op.OpenStop = false
	}
	if p.peek().Type == lexer.TokenInt {
		step, err := p.parseInt()
		if err != nil {
			return nil, fmt.Errorf("slice: %w", err)
		}
		if step == 0 {
			return nil, fmt.Errorf("slice: step cannot be zero")
		}
		op.Step = step
	}
	return op, nil
}

func (p *Parser) parseAt() (ast.Op, error) {
	p.advance() // consume "at"
	i, err := p.parseInt()
	if err != nil {
		return nil, fmt.Errorf("at: %w", err)
	}
	return &ast.AtOp{Index: i}, nil
}

func (p *Parser) parseHead() (ast.Op, error) {
	p.advance() // consume "head"
	n, err := p.parseInt()
	if err != nil {
		return nil, fmt.Errorf("head: %w", err)
	}
	if n < 0 {
		return nil, fmt.Errorf("head: expected non-negative count, got %d", n)
	}
	return &ast.HeadOp{N: n}, nil
}

func (p *Parser) parseTail() (ast.Op, error) {
	p.advance() // consume "tail"
	n, err := p.parseInt()
	if err != nil {
		return nil, fmt.Errorf("tail: %w", err)
	}
	if n < 0 {
		return nil, fmt.Errorf("tail: expected non-negative count, got %d", n)
	}
	return &ast.TailOp{N: n}, nil
}

// --- Helpers ---

func (p *Parser) parseInt() (int, error) {
	tok := p.advance()
	if tok.Type != lexer.TokenInt {
		return 0, fmt.Errorf("expected integer, got %s (%q) at position %d", tok.Type, tok.Val, tok.Pos)
	}
	n, err := strconv.Atoi(tok.Val)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", tok.Val, err)
	}
	return n, nil
}

// parseLookups parses space-separated "key=literal" pairs until something
// that is not a lookup.
func (p *Parser) parseLookups() ([]ast.Lookup, error) {
	var lookups []ast.Lookup
	for p.peek().Type == lexer.TokenIdent {
		// The next pipeline op also starts with an ident; only "key ="
		// continues the lookup list.
		if p.pos+1 >= len(p.tokens) || p.tokens[p.pos+1].Type != lexer.TokenEquals {
			break
		}
		keyTok := p.advance()
		p.advance() // consume =
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, fmt.Errorf("lookup %q: %w", keyTok.Val, err)
		}
		lookups = append(lookups, ast.Lookup{Key: keyTok.Val, Value: lit})
	}
	return lookups, nil
}

func (p *Parser) parseLiteral() (ast.Literal, error) {
	tok := p.advance()
	switch tok.Type {
	case lexer.TokenInt:
		v, err := strconv.ParseInt(tok.Val, 10, 64)
		if err != nil {
			return ast.Literal{}, fmt.Errorf("invalid integer %q: %w", tok.Val, err)
		}
		return ast.Literal{Kind: "int", Int: v}, nil
	case lexer.TokenFloat:
		v, err := strconv.ParseFloat(tok.Val, 64)
		if err != nil {
			return ast.Literal{}, fmt.Errorf("invalid float %q: %w", tok.Val, err)
		}
		return ast.Literal{Kind: "float", Float: v}, nil
	case lexer.TokenString:
		return ast.Literal{Kind: "string", Str: tok.Val}, nil
	case lexer.TokenTrue:
		return ast.Literal{Kind: "bool", Bool: true}, nil
	case lexer.TokenFalse:
		return ast.Literal{Kind: "bool", Bool: false}, nil
	case lexer.TokenNull:
		return ast.Literal{Kind: "null"}, nil
	default:
		return ast.Literal{}, fmt.Errorf("expected literal value, got %s (%q) at position %d", tok.Type, tok.Val, tok.Pos)
	}
}
