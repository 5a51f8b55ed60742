package parser

import (
	"strings"
	"testing"

	"bbasic/internal/ast"
)

func TestParseProgramSortsByLineNumber(t *testing.T) {
	lines, err := ParseProgram("20 PRINT \"B\"\n10 PRINT \"A\"\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if lines[0].Number != 10 {
		t.Errorf("lines[0].Number = %d, want 10", lines[0].Number)
	}
	if lines[1].Number != 20 {
		t.Errorf("lines[1].Number = %d, want 20", lines[1].Number)
	}
}

func TestParseProgramRejectsDuplicateLineNumber(t *testing.T) {
	if _, err := ParseProgram("10 PRINT 1\n10 PRINT 2\n"); err == nil {
		t.Error("ParseProgram(duplicate line) err = nil, want error")
	}
}

func TestParseProgramSkipsBlankLines(t *testing.T) {
	lines, err := ParseProgram("10 PRINT 1\n\n20 PRINT 2\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if len(lines) != 2 {
		t.Errorf("len(lines) = %d, want 2", len(lines))
	}
}

func TestParseAssignment(t *testing.T) {
	lines, err := ParseProgram("10 X% = 5\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	stmt, ok := lines[0].Head.(*ast.AssignStmt)
	if !ok {
		t.Fatalf("Head = %T, want *ast.AssignStmt", lines[0].Head)
	}
	if stmt.Target.Name != "X%" {
		t.Errorf("Target.Name = %q, want %q", stmt.Target.Name, "X%")
	}
	if stmt.Target.Kind != ast.TargetVar {
		t.Errorf("Target.Kind = %v, want ast.TargetVar", stmt.Target.Kind)
	}
}

func TestParseMultiStatementLineChains(t *testing.T) {
	lines, err := ParseProgram("10 X%=1:Y%=2:PRINT X%\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	first := lines[0].Head
	if _, ok := first.(*ast.AssignStmt); !ok {
		t.Fatalf("first = %T, want *ast.AssignStmt", first)
	}
	second := first.GetNext()
	if _, ok := second.(*ast.AssignStmt); !ok {
		t.Fatalf("second = %T, want *ast.AssignStmt", second)
	}
	third := second.GetNext()
	if _, ok := third.(*ast.PrintStmt); !ok {
		t.Fatalf("third = %T, want *ast.PrintStmt", third)
	}
	if third.GetNext() != nil {
		t.Error("third.GetNext() != nil, want nil")
	}
}

func TestParseIfThenInline(t *testing.T) {
	lines, err := ParseProgram("10 IF X%=1 THEN PRINT \"one\"\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	ifs, ok := lines[0].Head.(*ast.IfStmt)
	if !ok {
		t.Fatalf("Head = %T, want *ast.IfStmt", lines[0].Head)
	}
	if ifs.Cond == nil {
		t.Error("Cond = nil, want non-nil")
	}
	if _, ok := ifs.Then.(*ast.PrintStmt); !ok {
		t.Errorf("Then = %T, want *ast.PrintStmt", ifs.Then)
	}
	if ifs.Else != nil {
		t.Error("Else != nil, want nil")
	}
}

func TestParseIfThenElse(t *testing.T) {
	lines, err := ParseProgram("10 IF X%=1 THEN PRINT \"a\" ELSE PRINT \"b\"\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	ifs := lines[0].Head.(*ast.IfStmt)
	if ifs.Else == nil {
		t.Error("Else = nil, want non-nil")
	}
}

func TestParseForNext(t *testing.T) {
	lines, err := ParseProgram("10 FOR I%=1 TO 10 STEP 2\n20 NEXT I%\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	fs := lines[0].Head.(*ast.ForStmt)
	if fs.Var != "I%" {
		t.Errorf("Var = %q, want %q", fs.Var, "I%")
	}
	if fs.Step == nil {
		t.Error("Step = nil, want non-nil")
	}

	ns := lines[1].Head.(*ast.NextStmt)
	if ns.Var != "I%" {
		t.Errorf("NextStmt.Var = %q, want %q", ns.Var, "I%")
	}
}

func TestParseForDefaultStep(t *testing.T) {
	lines, err := ParseProgram("10 FOR I%=1 TO 10\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	fs := lines[0].Head.(*ast.ForStmt)
	if fs.Step != nil {
		t.Error("Step != nil, want nil")
	}
}

func TestParseDataStatement(t *testing.T) {
	lines, err := ParseProgram("10 DATA 1, 2, \"three\"\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	ds := lines[0].Head.(*ast.DataStmt)
	if len(ds.Values) != 3 {
		t.Fatalf("len(Values) = %d, want 3", len(ds.Values))
	}
	if got := ds.Values[2].AsStringBorrowed(); got != "three" {
		t.Errorf("Values[2] = %q, want %q", got, "three")
	}
}

func TestParseDefProcAndEndProc(t *testing.T) {
	lines, err := ParseProgram("10 DEF PROCgreet(n$)\n20 PRINT n$\n30 ENDPROC\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	def := lines[0].Head.(*ast.DefProcStmt)
	if def.Name != "GREET" {
		t.Errorf("Name = %q, want %q", def.Name, "GREET")
	}
	want := []string{"N$"}
	if len(def.Params) != len(want) || def.Params[0] != want[0] {
		t.Errorf("Params = %v, want %v", def.Params, want)
	}
}

func TestParseProcCall(t *testing.T) {
	lines, err := ParseProgram("10 PROCgreet(\"hi\")\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	call := lines[0].Head.(*ast.ProcCallStmt)
	if call.Name != "GREET" {
		t.Errorf("Name = %q, want %q", call.Name, "GREET")
	}
}

func TestParseRepeatUntil(t *testing.T) {
	lines, err := ParseProgram("10 REPEAT\n20 UNTIL X%=1\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if _, ok := lines[0].Head.(*ast.RepeatStmt); !ok {
		t.Errorf("lines[0].Head = %T, want *ast.RepeatStmt", lines[0].Head)
	}
	if _, ok := lines[1].Head.(*ast.UntilStmt); !ok {
		t.Errorf("lines[1].Head = %T, want *ast.UntilStmt", lines[1].Head)
	}
}

func TestParseGotoAndGosub(t *testing.T) {
	lines, err := ParseProgram("10 GOTO 100\n20 GOSUB 200\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if _, ok := lines[0].Head.(*ast.GotoStmt); !ok {
		t.Errorf("lines[0].Head = %T, want *ast.GotoStmt", lines[0].Head)
	}
	if _, ok := lines[1].Head.(*ast.GosubStmt); !ok {
		t.Errorf("lines[1].Head = %T, want *ast.GosubStmt", lines[1].Head)
	}
}

func TestParseLocalRejectsNothingAtParseTime(t *testing.T) {
	lines, err := ParseProgram("10 LOCAL X%, Y\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	ls := lines[0].Head.(*ast.LocalStmt)
	want := []string{"X%", "Y"}
	if len(ls.Names) != len(want) || ls.Names[0] != want[0] || ls.Names[1] != want[1] {
		t.Errorf("Names = %v, want %v", ls.Names, want)
	}
}

func TestParseSyntaxErrorPropagatesLineNumber(t *testing.T) {
	_, err := ParseProgram("10 X% = \n")
	if err == nil {
		t.Fatal("ParseProgram(syntax error) err = nil, want error")
	}
	if !strings.Contains(err.Error(), "line 10") {
		t.Errorf("ParseProgram(syntax error) err = %q, want it to name line 10", err)
	}
}
