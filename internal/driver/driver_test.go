package driver

import (
	"bytes"
	"testing"

	"bbasic/internal/runtime"
	"bbasic/internal/symtab"
)

// run builds and executes src, capturing whatever it writes to stdout.
// It mirrors Execute's build/run sequence but swaps in a buffer so the
// scenarios in spec.md §8 can assert on exact output.
func run(t *testing.T, src string) string {
	t.Helper()
	sym := symtab.NewTable()
	prog, err := Build(src, sym)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var interrupt int32
	rt := runtime.New(sym, prog.Lines, prog.DataL, prog.Data, &interrupt)
	var buf bytes.Buffer
	rt.Stdout = &buf

	if _, err = rt.Run(prog.Entry); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return buf.String()
}

// mustBuild parses src and returns the table/program pair for tests that
// need to run the program themselves, typically to inspect a failure.
func mustBuild(t *testing.T, src string) (*symtab.Table, *Program) {
	t.Helper()
	sym := symtab.NewTable()
	prog, err := Build(src, sym)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return sym, prog
}

// mustRunErr executes prog and returns the error Run produced, failing the
// test immediately if it succeeded instead.
func mustRunErr(t *testing.T, sym *symtab.Table, prog *Program) error {
	t.Helper()
	var interrupt int32
	rt := runtime.New(sym, prog.Lines, prog.DataL, prog.Data, &interrupt)
	var buf bytes.Buffer
	rt.Stdout = &buf

	_, err := rt.Run(prog.Entry)
	if err == nil {
		t.Fatal("Run err = nil, want error")
	}
	return err
}

func TestScenarioHelloWorld(t *testing.T) {
	out := run(t, "10 PRINT \"HELLO\"\n")
	if out != "HELLO\n" {
		t.Errorf("out = %q, want %q", out, "HELLO\n")
	}
}

func TestScenarioForNextSum(t *testing.T) {
	src := "10 T=0\n20 FOR I=1 TO 10\n30 T=T+I\n40 NEXT\n50 PRINT T\n"
	out := run(t, src)
	if want := "        55\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestScenarioRecursionAndFnReturn(t *testing.T) {
	src := "10 DEF FNF(N) = IF N<2 THEN 1 ELSE N*FNF(N-1)\n20 PRINT FNF(6)\n"
	out := run(t, src)
	if want := "       720\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestScenarioOnErrorTrap(t *testing.T) {
	src := "10 ON ERROR GOTO 40\n20 X=1/0\n30 END\n40 PRINT ERR;\" at \";ERL\n"
	out := run(t, src)
	if want := "        18 at         20\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestScenarioRepeatUntilWithLocal(t *testing.T) {
	src := "10 DEF PROC P(N)\n20 LOCAL I\n30 I=0\n40 REPEAT I=I+1 : PRINT I : UNTIL I=N\n50 ENDPROC\n60 PROC P(3)\n"
	out := run(t, src)
	if want := "         1\n         2\n         3\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestScenarioBinaryRoundTrip(t *testing.T) {
	t.Chdir(t.TempDir())
	src := "10 X=OPENOUT(\"t.dat\")\n20 PRINT#X,42,\"hi\",3.5\n30 CLOSE#X\n" +
		"40 Y=OPENIN(\"t.dat\")\n50 INPUT#Y,A%,A$,B\n60 CLOSE#Y\n70 PRINT A%;A$;B\n"
	out := run(t, src)
	// Field-width padding (from the default @%) applies to numeric items
	// regardless of the ';' separator between them; only the string item
	// is written unpadded.
	if want := "        42hi       3.5\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestBuildRejectsDuplicateLineNumber(t *testing.T) {
	sym := symtab.NewTable()
	if _, err := Build("10 PRINT 1\n10 PRINT 2\n", sym); err == nil {
		t.Error("Build(duplicate line) err = nil, want error")
	}
}

func TestBuildEmptyProgram(t *testing.T) {
	sym := symtab.NewTable()
	prog, err := Build("", sym)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if prog.Entry != nil {
		t.Errorf("Entry = %v, want nil", prog.Entry)
	}
}

func TestBuildGotoAcrossLines(t *testing.T) {
	src := "10 GOTO 30\n20 PRINT \"skipped\"\n30 PRINT \"reached\"\n"
	out := run(t, src)
	if want := "reached\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestBuildIfFallthroughContinuesAfterBranchingStatement(t *testing.T) {
	src := "10 IF 1=1 THEN PRINT \"yes\"\n20 PRINT \"next\"\n"
	out := run(t, src)
	if want := "yes\nnext\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}
