// Package runtime is the tree-walking evaluator: the StmtVisitor/
// ExprVisitor pair that walks the AST the parser built, plus the
// mutable state spec.md §9 calls for packaging as a single owning
// Runtime value (symbol table, control stacks, error/format registers,
// open files, DATA cursor, interrupt flag, trace state).
package runtime

import (
	"bufio"
	"io"
	"math/rand"
	"os"
	"strings"
	"time"

	"bbasic/internal/ast"
	"bbasic/internal/bbcerr"
	"bbasic/internal/files"
	"bbasic/internal/format"
	"bbasic/internal/program"
	"bbasic/internal/symtab"
	"bbasic/internal/terminal"
	"bbasic/internal/value"
)

// Runtime owns every piece of global mutable state the dispatcher and
// evaluator touch. One value per running program (spec.md §9).
type Runtime struct {
	Sym   *symtab.Table
	Err   *bbcerr.Register
	Fmt   *format.Register
	Files *files.Registry
	Term  *terminal.Reader
	Lines *program.LineMap
	DataL *program.DataMap
	Data  *program.DataChain

	Stdout io.Writer
	Stderr io.Writer
	Stdin  *bufio.Reader

	Debug bool

	gosubStack  []ast.Stmt
	forStack    []forFrame
	repeatStack []*ast.RepeatStmt
	procStack   []ast.Stmt
	fnDepth     int

	runtimeStack []value.Value

	trap ast.Stmt

	traceOn        bool
	traceThreshold int32
	tracedLines    map[int]bool

	timeOffset int64
	timeDatum  time.Time

	rnd      *rand.Rand
	lastRnd1 float64

	countSinceNewline int
	inputTokens       []string

	// Interrupt is touched only by the driver's SIGINT handler and read
	// here between statements; spec.md §5 calls for exactly one shared
	// atomic value.
	Interrupt *int32

	curLine int
}

// New builds a Runtime ready to execute a driver-built statement
// stream. sym is supplied by the driver, which registers DEF PROC/FN
// symbols into it before the Runtime is built, so the format register's
// @%-backed slot and the procedure table are the same table the
// evaluator looks up against. lineMap/dataMap/dataChain and interrupt
// are likewise driver-owned.
func New(sym *symtab.Table, lineMap *program.LineMap, dataMap *program.DataMap, chain *program.DataChain, interrupt *int32) *Runtime {
	rt := &Runtime{
		Sym:         sym,
		Err:         bbcerr.NewRegister(),
		Fmt:         format.NewRegister(sym.ResidentSlot(0)),
		Files:       files.NewRegistry(),
		Term:        terminal.NewReader(),
		Lines:       lineMap,
		DataL:       dataMap,
		Data:        chain,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Stdin:       bufio.NewReader(os.Stdin),
		tracedLines: make(map[int]bool),
		timeDatum:   time.Now(),
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(os.Getpid()))),
		Interrupt:   interrupt,
	}
	return rt
}

func (rt *Runtime) pushReturn(v value.Value) {
	rt.runtimeStack = append(rt.runtimeStack, v)
}

func (rt *Runtime) popReturn() value.Value {
	if len(rt.runtimeStack) == 0 {
		return value.Value{}
	}
	v := rt.runtimeStack[len(rt.runtimeStack)-1]
	rt.runtimeStack = rt.runtimeStack[:len(rt.runtimeStack)-1]
	return v
}

func (rt *Runtime) reseed() {
	rt.rnd = rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(os.Getpid())<<1))
}

// Eval walks one expression node.
func (rt *Runtime) Eval(e ast.Expr) (value.Value, error) { return e.Accept(rt) }

// Exec walks one statement node.
func (rt *Runtime) Exec(s ast.Stmt) (ast.Status, error) { return s.Accept(rt) }

func (rt *Runtime) fail(code bbcerr.Code) (ast.Status, error) {
	rt.Err.Set(code, rt.curLine)
	return ast.Status{}, bbcerr.New(code, rt.curLine)
}

func (rt *Runtime) failExpr(code bbcerr.Code) (value.Value, error) {
	rt.Err.Set(code, rt.curLine)
	return value.Value{}, bbcerr.New(code, rt.curLine)
}

func (rt *Runtime) writeOut(s string) {
	io.WriteString(rt.Stdout, s)
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		rt.countSinceNewline = len(s) - idx - 1
	} else {
		rt.countSinceNewline += len(s)
	}
}

// Run executes the statement stream starting at entry. It is the
// top-level driver loop as well as the one FN calls recurse into.
func (rt *Runtime) Run(entry ast.Stmt) (ast.Status, error) {
	pc := entry
	for pc != nil {
		rt.curLine = pc.LineNumber()

		if rt.traceOn && int32(rt.curLine) <= rt.traceThreshold && !rt.tracedLines[rt.curLine] {
			io.WriteString(rt.Stderr, "["+itoa(rt.curLine)+"] ")
			rt.tracedLines[rt.curLine] = true
		}

		if rt.Interrupt != nil && loadInterrupt(rt.Interrupt) {
			rt.Err.Set(bbcerr.Escape, rt.curLine)
			if rt.trap != nil {
				rt.Err.Clear()
				pc = rt.trap
				continue
			}
			return ast.Status{}, bbcerr.New(bbcerr.Escape, rt.curLine)
		}

		next := pc.GetNext()
		status, err := pc.Accept(rt)
		if err != nil {
			switch e := err.(type) {
			case *bbcerr.Fatal:
				return ast.Status{}, e
			case *bbcerr.Error:
				if rt.trap != nil {
					rt.Err.Clear()
					pc = rt.trap
					continue
				}
				return ast.Status{}, e
			default:
				return ast.Status{}, err
			}
		}

		switch status.Kind {
		case ast.StatusExit:
			return status, nil
		case ast.StatusJump:
			pc = status.Jump
		default:
			pc = next
		}
	}
	return ast.OK, nil
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
