package lexer

import (
	"testing"
)

func TestLexBasic(t *testing.T) {
	tokens, err := Lex(`people.csv | at 2`)
	if err != nil {
		t.Fatal(err)
	}
	expected := []TokenType{TokenIdent, TokenDot, TokenIdent, TokenPipe, TokenIdent, TokenInt, TokenEOF}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(tokens))
	}
	for i, tt := range expected {
		if tokens[i].Type != tt {
			t.Errorf("token %d: expected %s, got %s (%q)", i, tt, tokens[i].Type, tokens[i].Val)
		}
	}
}

func TestLexFilter(t *testing.T) {
	tokens, err := Lex(`filter age__gte=20 city="NY"`)
	if err != nil {
		t.Fatal(err)
	}
	expected := []TokenType{
		TokenIdent, TokenIdent, TokenEquals, TokenInt,
		TokenIdent, TokenEquals, TokenString, TokenEOF,
	}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(tokens))
	}
	for i, tt := range expected {
		if tokens[i].Type != tt {
			t.Errorf("token %d: expected %s, got %s (%q)", i, tt, tokens[i].Type, tokens[i].Val)
		}
	}
	// Lookup keys keep their double underscores
	if tokens[1].Val != "age__gte" {
		t.Errorf("lookup key: expected 'age__gte', got %q", tokens[1].Val)
	}
	// Check string value
	if tokens[6].Val != "NY" {
		t.Errorf("string token value: expected 'NY', got %q", tokens[6].Val)
	}
}

func TestLexFloats(t *testing.T) {
	tokens, err := Lex("3.14")
	if err != nil {
		t.Fatal(err)
	}
	if tokens[0].Type != TokenFloat {
		t.Errorf("expected FLOAT, got %s", tokens[0].Type)
	}
	if tokens[0].Val != "3.14" {
		t.Errorf("expected '3.14', got %q", tokens[0].Val)
	}
}

func TestLexNegativeNumber(t *testing.T) {
	tokens, err := Lex("slice -3")
	if err != nil {
		t.Fatal(err)
	}
	expected := []TokenType{TokenIdent, TokenInt, TokenEOF}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(tokens))
	}
	if tokens[1].Val != "-3" {
		t.Errorf("expected '-3', got %q", tokens[1].Val)
	}
}

func TestLexOrderPrefix(t *testing.T) {
	// A minus before an identifier is the descending marker, not a sign.
	tokens, err := Lex("order_by -age name")
	if err != nil {
		t.Fatal(err)
	}
	expected := []TokenType{TokenIdent, TokenMinus, TokenIdent, TokenIdent, TokenEOF}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(tokens))
	}
	for i, tt := range expected {
		if tokens[i].Type != tt {
			t.Errorf("token %d: expected %s, got %s (%q)", i, tt, tokens[i].Type, tokens[i].Val)
		}
	}
}

func TestLexKeywords(t *testing.T) {
	tokens, err := Lex("active=true retired=false note=null")
	if err != nil {
		t.Fatal(err)
	}
	expected := []TokenType{
		TokenIdent, TokenEquals, TokenTrue,
		TokenIdent, TokenEquals, TokenFalse,
		TokenIdent, TokenEquals, TokenNull,
		TokenEOF,
	}
	for i, tt := range expected {
		if tokens[i].Type != tt {
			t.Errorf("token %d: expected %s, got %s (%q)", i, tt, tokens[i].Type, tokens[i].Val)
		}
	}
}

func TestLexFilePath(t *testing.T) {
	tokens, err := Lex("data/people.jsonl")
	if err != nil {
		t.Fatal(err)
	}
	expected := []TokenType{TokenIdent, TokenSlash, TokenIdent, TokenDot, TokenIdent, TokenEOF}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(tokens))
	}
}

func TestLexStringEscapes(t *testing.T) {
	tokens, err := Lex(`"a\"b\\c\nd"`)
	if err != nil {
		t.Fatal(err)
	}
	if tokens[0].Val != "a\"b\\c\nd" {
		t.Errorf("unexpected unescaped value %q", tokens[0].Val)
	}
}

func TestLexComment(t *testing.T) {
	tokens, err := Lex("people.csv // trailing comment\n| count")
	if err != nil {
		t.Fatal(err)
	}
	expected := []TokenType{TokenIdent, TokenDot, TokenIdent, TokenPipe, TokenIdent, TokenEOF}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d", len(expected), len(tokens))
	}
}

func TestLexUnterminatedString(t *testing.T) {
	if _, err := Lex(`"oops`); err == nil {
		t.Error("expected error for unterminated string")
	}
}

func TestLexUnexpectedChar(t *testing.T) {
	if _, err := Lex("people.csv | filter age > 1"); err == nil {
		t.Error("expected error for unsupported character")
	}
}
