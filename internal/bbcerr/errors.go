// Package bbcerr implements the BBC BASIC error register: the current
// and last-reported (code, line) pairs and the Acorn-style error codes
// themselves. The ON ERROR trap is held by the runtime, not here.
package bbcerr

import (
	"fmt"

	"github.com/kr/pretty"
	pkgerrors "github.com/pkg/errors"
)

// Code is a BBC BASIC error number. 0 is reserved for "no error" at the
// user-visible (ERR) level; internally a sentinel distinct from both is
// used so a deliberately-cleared error cannot be confused with none ever
// having occurred.
type Code int

const (
	NoError         Code = 0
	TypeMismatch    Code = 6
	StringTooLong   Code = 19
	Subscript       Code = 15
	BadDIM          Code = 10
	TooBig          Code = 20
	NegativeRoot    Code = 21
	LogRange        Code = 22
	DivisionByZero  Code = 18
	Escape          Code = 17
	NoSuchLine      Code = 41
	NoSuchVariable  Code = 26
	NoSuchFNProc    Code = 29
	NoFOR           Code = 32
	NoTO            Code = 33
	NoGOSUB         Code = 38
	NoREPEAT        Code = 39
	CantMatchFOR    Code = 34
	OutOfDATA       Code = 42
	BadProgram      Code = 8
	Arguments       Code = 31
	NotLOCAL        Code = 36
	Channel         Code = 46
	EOF             Code = 54
	ONRange         Code = 51
	FORVariable     Code = 37
	Syntax          Code = 16
	NoFN            Code = 30
	NoPROC          Code = 35

	sentinelNone Code = -1
)

var messages = map[Code]string{
	TypeMismatch:   "Type mismatch",
	StringTooLong:  "String too long",
	Subscript:      "Subscript",
	BadDIM:         "Bad DIM",
	TooBig:         "Too big",
	NegativeRoot:   "-ve root",
	LogRange:       "Log range",
	DivisionByZero: "Division by zero",
	Escape:         "Escape",
	NoSuchLine:     "No such line",
	NoSuchVariable: "No such variable",
	NoSuchFNProc:   "No such FN/PROC",
	NoFOR:          "No FOR",
	NoTO:           "No TO",
	NoGOSUB:        "No GOSUB",
	NoREPEAT:       "No REPEAT",
	CantMatchFOR:   "Can't match FOR",
	OutOfDATA:      "Out of DATA",
	BadProgram:     "Bad program",
	Arguments:      "Arguments",
	NotLOCAL:       "Not LOCAL",
	Channel:        "Channel",
	EOF:            "Eof",
	ONRange:        "ON range",
	FORVariable:    "FOR variable",
	Syntax:         "Syntax error",
	NoFN:           "No such FN",
	NoPROC:         "No such PROC",
}

func (c Code) Message() string {
	if m, ok := messages[c]; ok {
		return m
	}
	return "Error"
}

// Error is a recoverable, user-reachable runtime error: a code plus the
// source line it occurred on.
type Error struct {
	Code Code
	Line int
}

func New(code Code, line int) *Error { return &Error{Code: code, Line: line} }

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s at line %d", e.Code.Message(), e.Line)
	}
	return e.Code.Message()
}

// Fatal wraps an internal invariant violation (corrupt line map, unknown
// symbol kind, allocation failure) that is never caught by ON ERROR and
// always aborts the process. Carrying a stack via pkg/errors makes
// -d/--debug crash reports actionable instead of a bare message.
type Fatal struct {
	cause error
}

func NewFatal(format string, args ...any) *Fatal {
	return &Fatal{cause: pkgerrors.Errorf(format, args...)}
}

func WrapFatal(err error, context string) *Fatal {
	return &Fatal{cause: pkgerrors.Wrap(err, context)}
}

func (f *Fatal) Error() string { return f.cause.Error() }

// DebugDump renders a %#v-ish structured dump for -d/--debug output.
func (f *Fatal) DebugDump() string {
	return fmt.Sprintf("%# v", pretty.Formatter(f.cause))
}

// Register holds the current and last-reported error slots. Setting an
// error updates both; clearing updates only the current slot, which is
// what lets ERR/ERL keep reporting inside an ON ERROR handler.
type Register struct {
	currentCode Code
	currentLine int
	lastCode    Code
	lastLine    int
	everSet     bool
}

func NewRegister() *Register {
	return &Register{currentCode: sentinelNone, lastCode: sentinelNone}
}

// Set records a new error, updating both the current and last-reported
// slots.
func (r *Register) Set(code Code, line int) {
	r.currentCode = code
	r.currentLine = line
	r.lastCode = code
	r.lastLine = line
	r.everSet = true
}

// Clear resets only the current slot; ERR/ERL still see the last value.
func (r *Register) Clear() {
	r.currentCode = sentinelNone
	r.currentLine = 0
}

// Current reports whether an error is currently set, and if so its code
// and line.
func (r *Register) Current() (Code, int, bool) {
	if r.currentCode == sentinelNone {
		return NoError, 0, false
	}
	return r.currentCode, r.currentLine, true
}

// ERR returns the last-reported code, 0 if none has ever been reported.
func (r *Register) ERR() int {
	if r.lastCode == sentinelNone {
		return 0
	}
	return int(r.lastCode)
}

// ERL returns the last-reported line, 0 if none.
func (r *Register) ERL() int {
	if r.lastCode == sentinelNone {
		return 0
	}
	return r.lastLine
}

// Report renders REPORT's textual output: the last-reported error, or
// the Acorn-style banner when nothing has ever been reported.
func (r *Register) Report() string {
	if !r.everSet {
		return "BBC BASIC II"
	}
	if r.lastLine > 0 {
		return fmt.Sprintf("%s at line %d", r.lastCode.Message(), r.lastLine)
	}
	return r.lastCode.Message()
}
