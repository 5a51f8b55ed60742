package driver

import "testing"

func TestInstrEmptyNeedleMatchesAtOne(t *testing.T) {
	out := run(t, "10 PRINT INSTR(\"abc\",\"\")\n")
	if want := "         1\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestMidPastEndReturnsEmpty(t *testing.T) {
	out := run(t, "10 PRINT MID$(\"abc\",5,9)\n")
	if want := "\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestLeftBeyondLengthReturnsWholeString(t *testing.T) {
	out := run(t, "10 PRINT LEFT$(\"abc\",10)\n")
	if want := "abc\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestAscEmptyStringIsNegativeOne(t *testing.T) {
	out := run(t, "10 PRINT ASC(\"\")\n")
	if want := "        -1\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestRndOneThenZeroRepeats(t *testing.T) {
	out := run(t, "10 A=RND(1)\n20 B=RND(0)\n30 IF A=B THEN PRINT \"MATCH\"\n")
	if want := "MATCH\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestRndNegativeReturnsArgument(t *testing.T) {
	out := run(t, "10 PRINT RND(-5)\n")
	if want := "        -5\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestAbsSgnInt(t *testing.T) {
	out := run(t, "10 PRINT ABS(-3);SGN(-7);SGN(0);INT(3.9)\n")
	if want := "         3        -1         0         3\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestDivAndModIdentity(t *testing.T) {
	src := "10 A=17\n20 B=5\n30 PRINT (A DIV B)*B+(A MOD B)\n"
	out := run(t, src)
	if want := "        17\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestArrayDimAndIndexing(t *testing.T) {
	src := "10 DIM V(3)\n20 V(2)=42\n30 PRINT V(2)\n"
	out := run(t, src)
	if want := "        42\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestForWithZeroStepAborts(t *testing.T) {
	sym, prog := mustBuild(t, "10 FOR I=1 TO 5 STEP 0\n20 NEXT\n")
	mustRunErr(t, sym, prog)
}

func TestArraySubscriptOutOfRangeFails(t *testing.T) {
	sym, prog := mustBuild(t, "10 DIM V(3)\n20 V(9)=1\n")
	mustRunErr(t, sym, prog)
}

func TestNextPopsInnerForsUntilMatch(t *testing.T) {
	src := "10 FOR I=1 TO 2\n20 FOR J=1 TO 2\n30 NEXT I\n40 PRINT I\n"
	out := run(t, src)
	if want := "         3\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}

func TestChannelErrorOnReservedFD(t *testing.T) {
	sym, prog := mustBuild(t, "10 PRINT EXT#(0)\n")
	mustRunErr(t, sym, prog)
}

func TestLocalVariableRestoredAfterProc(t *testing.T) {
	src := "10 X=1\n20 DEF PROC P\n30 LOCAL X\n40 X=99\n50 ENDPROC\n60 PROC P\n70 PRINT X\n"
	out := run(t, src)
	if want := "         1\n"; out != want {
		t.Errorf("out = %q, want %q", out, want)
	}
}
