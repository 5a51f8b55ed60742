package lexer

import (
	"reflect"
	"testing"

	"bbasic/internal/value"
)

func kinds(t *testing.T, toks []Token) []TokenKind {
	t.Helper()
	out := make([]TokenKind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestTokenizeNumberInt(t *testing.T) {
	toks, err := Tokenize("42")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	want := []TokenKind{TokNumber, TokEOF}
	if got := kinds(t, toks); !reflect.DeepEqual(got, want) {
		t.Errorf("kinds = %v, want %v", got, want)
	}
	if got := toks[0].Num.AsInt(); got != 42 {
		t.Errorf("Num.AsInt() = %d, want 42", got)
	}
}

func TestTokenizeNumberFloat(t *testing.T) {
	toks, err := Tokenize("3.14")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if got := toks[0].Num.Kind(); got != value.Float {
		t.Errorf("Num.Kind() = %v, want Float", got)
	}
}

func TestTokenizeString(t *testing.T) {
	toks, err := Tokenize(`"hello world"`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != TokString {
		t.Errorf("Kind = %v, want TokString", toks[0].Kind)
	}
	if toks[0].Str != "hello world" {
		t.Errorf("Str = %q, want %q", toks[0].Str, "hello world")
	}
}

func TestTokenizeEscapedQuote(t *testing.T) {
	toks, err := Tokenize(`"say ""hi"""`)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if want := `say "hi"`; toks[0].Str != want {
		t.Errorf("Str = %q, want %q", toks[0].Str, want)
	}
}

func TestTokenizeUnterminatedString(t *testing.T) {
	if _, err := Tokenize(`"oops`); err == nil {
		t.Error("Tokenize(unterminated string) err = nil, want error")
	}
}

func TestTokenizeKeywordUppercased(t *testing.T) {
	toks, err := Tokenize("print")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != TokIdent {
		t.Errorf("Kind = %v, want TokIdent", toks[0].Kind)
	}
	if toks[0].Text != "PRINT" {
		t.Errorf("Text = %q, want %q", toks[0].Text, "PRINT")
	}
}

func TestTokenizeVariableSuffixes(t *testing.T) {
	toks, err := Tokenize("A% B$ C")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Text != "A%" {
		t.Errorf("toks[0].Text = %q, want %q", toks[0].Text, "A%")
	}
	if toks[1].Text != "B$" {
		t.Errorf("toks[1].Text = %q, want %q", toks[1].Text, "B$")
	}
	if toks[2].Text != "C" {
		t.Errorf("toks[2].Text = %q, want %q", toks[2].Text, "C")
	}
}

func TestTokenizeProcSplitsName(t *testing.T) {
	toks, err := Tokenize("PROCgreet")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != TokProc {
		t.Errorf("toks[0].Kind = %v, want TokProc", toks[0].Kind)
	}
	if toks[0].Text != "PROC" {
		t.Errorf("toks[0].Text = %q, want %q", toks[0].Text, "PROC")
	}
	if toks[1].Kind != TokIdent {
		t.Errorf("toks[1].Kind = %v, want TokIdent", toks[1].Kind)
	}
	if toks[1].Text != "GREET" {
		t.Errorf("toks[1].Text = %q, want %q", toks[1].Text, "GREET")
	}
}

func TestTokenizeFnSplitsName(t *testing.T) {
	toks, err := Tokenize("FNsquare(4)")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[0].Kind != TokFn {
		t.Errorf("toks[0].Kind = %v, want TokFn", toks[0].Kind)
	}
	if toks[1].Kind != TokIdent {
		t.Errorf("toks[1].Kind = %v, want TokIdent", toks[1].Kind)
	}
	if toks[1].Text != "SQUARE" {
		t.Errorf("toks[1].Text = %q, want %q", toks[1].Text, "SQUARE")
	}
	if toks[2].Kind != TokPunct {
		t.Errorf("toks[2].Kind = %v, want TokPunct", toks[2].Kind)
	}
}

func TestTokenizeBareProcKeyword(t *testing.T) {
	toks, err := Tokenize("ENDPROC")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	// ENDPROC is one keyword, not END + PROC, since it doesn't start with PROC.
	if toks[0].Kind != TokIdent {
		t.Errorf("Kind = %v, want TokIdent", toks[0].Kind)
	}
	if toks[0].Text != "ENDPROC" {
		t.Errorf("Text = %q, want %q", toks[0].Text, "ENDPROC")
	}
}

func TestTokenizeTwoCharOperators(t *testing.T) {
	toks, err := Tokenize("A<>B A<=B A>=B")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if toks[1].Text != "<>" {
		t.Errorf("toks[1].Text = %q, want %q", toks[1].Text, "<>")
	}
	if toks[4].Text != "<=" {
		t.Errorf("toks[4].Text = %q, want %q", toks[4].Text, "<=")
	}
	if toks[7].Text != ">=" {
		t.Errorf("toks[7].Text = %q, want %q", toks[7].Text, ">=")
	}
}

func TestTokenizeUnexpectedCharacter(t *testing.T) {
	if _, err := Tokenize("A ~ B"); err == nil {
		t.Error("Tokenize(unexpected character) err = nil, want error")
	}
}
