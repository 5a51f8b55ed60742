package runtime

import (
	"math"
	"strconv"
	"strings"
	"time"

	"bbasic/internal/ast"
	"bbasic/internal/bbcerr"
	"bbasic/internal/value"
)

// piConst matches the literal constant BBC BASIC II's DEG/RAD use rather
// than math.Pi, per spec.md §4.2.
const piConst = 3.14159265359

func (rt *Runtime) evalArgs(args []ast.Expr) ([]value.Value, error) {
	out := make([]value.Value, len(args))
	for i, a := range args {
		v, err := rt.Eval(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (rt *Runtime) callBuiltin(name string, argExprs []ast.Expr) (value.Value, error) {
	switch name {
	case "RND":
		return rt.builtinRND(argExprs)
	case "GET":
		return rt.builtinGET()
	case "GET$":
		return rt.builtinGETDollar()
	case "INKEY":
		return rt.builtinINKEY(argExprs)
	case "INKEY$":
		return rt.builtinINKEYDollar(argExprs)
	case "OPENIN", "OPENOUT", "OPENUP":
		return rt.builtinOpen(name, argExprs)
	case "PTR#":
		return rt.builtinPtrHash(argExprs)
	case "EXT#":
		return rt.builtinExtHash(argExprs)
	case "EOF#":
		return rt.builtinEofHash(argExprs)
	case "BGET#":
		return rt.builtinBGetHash(argExprs)
	}

	args, err := rt.evalArgs(argExprs)
	if err != nil {
		return value.Value{}, err
	}

	switch name {
	case "ABS":
		v := args[0]
		if !v.IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		if v.Kind() == value.Int {
			n := v.AsInt()
			if n < 0 {
				n = -n
			}
			return value.NewInt(n), nil
		}
		return value.NewFloat(math.Abs(v.AsFloat())), nil
	case "SGN":
		v := args[0]
		if !v.IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		f := v.AsFloat()
		switch {
		case f > 0:
			return value.NewInt(1), nil
		case f < 0:
			return value.NewInt(-1), nil
		default:
			return value.NewInt(0), nil
		}
	case "INT":
		v := args[0]
		if !v.IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		if v.Kind() == value.Int {
			return v, nil
		}
		return value.NewInt(float64ToInt32Floor(v.AsFloat())), nil
	case "ACS":
		return rt.trig1(args, func(x float64) (float64, bool) {
			if x < -1 || x > 1 {
				return 0, false
			}
			return math.Acos(x), true
		})
	case "ASN":
		return rt.trig1(args, func(x float64) (float64, bool) {
			if x < -1 || x > 1 {
				return 0, false
			}
			return math.Asin(x), true
		})
	case "ATN":
		return rt.trig1(args, func(x float64) (float64, bool) { return math.Atan(x), true })
	case "COS":
		return rt.trig1(args, func(x float64) (float64, bool) { return math.Cos(x), true })
	case "SIN":
		return rt.trig1(args, func(x float64) (float64, bool) { return math.Sin(x), true })
	case "TAN":
		return rt.trig1(args, func(x float64) (float64, bool) {
			t := math.Tan(x)
			return t, !math.IsInf(t, 0)
		})
	case "EXP":
		return rt.trig1(args, func(x float64) (float64, bool) {
			e := math.Exp(x)
			return e, !math.IsInf(e, 0)
		})
	case "SQR":
		return rt.trig1(args, func(x float64) (float64, bool) {
			if x < 0 {
				return 0, false
			}
			return math.Sqrt(x), true
		})
	case "LN":
		return rt.logFn(args, math.Log)
	case "LOG":
		return rt.logFn(args, math.Log10)
	case "DEG":
		v := args[0]
		if !v.IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		return value.NewFloat(v.AsFloat() * 180 / piConst), nil
	case "RAD":
		v := args[0]
		if !v.IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		return value.NewFloat(v.AsFloat() * piConst / 180), nil
	case "ASC":
		v := args[0]
		if !v.IsString() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		s := v.AsStringBorrowed()
		if len(s) == 0 {
			return value.NewInt(-1), nil
		}
		return value.NewInt(int32(s[0])), nil
	case "CHR$":
		v := args[0]
		if !v.IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		return value.NewString(string([]byte{byte(v.AsInt() & 0xFF)})), nil
	case "LEN":
		v := args[0]
		if !v.IsString() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		return value.NewInt(int32(len(v.AsStringBorrowed()))), nil
	case "STR$":
		v := args[0]
		if !v.IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		return value.NewString(rt.Fmt.StringifyForSTR(v)), nil
	case "VAL":
		v := args[0]
		if !v.IsString() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		return parseLeadingNumber(v.AsStringBorrowed()), nil
	case "STRING$":
		n, s := args[0], args[1]
		if !n.IsNumeric() || !s.IsString() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		count := int(n.AsInt())
		if count < 0 {
			count = 0
		}
		if count > 255 {
			count = 255
		}
		return value.NewString(strings.Repeat(s.AsStringBorrowed(), count)), nil
	case "SPC":
		n := args[0]
		if !n.IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		count := int(n.AsInt()) % 256
		if count < 0 {
			count = 0
		}
		return value.NewString(strings.Repeat(" ", count)), nil
	case "LEFT$":
		return rt.builtinLeft(args)
	case "RIGHT$":
		return rt.builtinRight(args)
	case "MID$":
		return rt.builtinMid(args)
	case "INSTR":
		return rt.builtinInstr(args)
	}
	return rt.failExpr(bbcerr.Syntax)
}

func (rt *Runtime) trig1(args []value.Value, f func(float64) (float64, bool)) (value.Value, error) {
	v := args[0]
	if !v.IsNumeric() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}
	r, ok := f(v.AsFloat())
	if !ok {
		return rt.failExpr(bbcerr.NegativeRoot)
	}
	return value.NewFloat(r), nil
}

func (rt *Runtime) logFn(args []value.Value, f func(float64) float64) (value.Value, error) {
	v := args[0]
	if !v.IsNumeric() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}
	x := v.AsFloat()
	if x <= 0 {
		return rt.failExpr(bbcerr.LogRange)
	}
	return value.NewFloat(f(x)), nil
}

func float64ToInt32Floor(f float64) int32 {
	fl := math.Floor(f)
	if fl >= math.MaxInt32 {
		return math.MaxInt32
	}
	if fl <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(fl)
}

func parseLeadingNumber(s string) value.Value {
	s = strings.TrimLeft(s, " \t")
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	start := i
	sawDigit := false
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
		sawDigit = true
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
			sawDigit = true
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') && sawDigit {
		save := i
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		expStart := i
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i == expStart {
			i = save
		}
	}
	_ = start
	if !sawDigit {
		return value.NewInt(0)
	}
	f, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return value.NewInt(0)
	}
	if f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
		return value.NewInt(int32(f))
	}
	return value.NewFloat(f)
}

func (rt *Runtime) builtinLeft(args []value.Value) (value.Value, error) {
	s := args[0]
	if !s.IsString() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}
	str := s.AsStringBorrowed()
	n := len(str)
	if len(args) > 1 {
		if !args[1].IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		n = int(args[1].AsInt())
	} else if n > 0 {
		n = n - 1
	}
	if n < 0 {
		n = 0
	}
	if n > len(str) {
		n = len(str)
	}
	return value.NewString(str[:n]), nil
}

func (rt *Runtime) builtinRight(args []value.Value) (value.Value, error) {
	s := args[0]
	if !s.IsString() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}
	str := s.AsStringBorrowed()
	n := 1
	if len(args) > 1 {
		if !args[1].IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		n = int(args[1].AsInt())
	}
	if n < 0 {
		n = 0
	}
	if n > len(str) {
		n = len(str)
	}
	return value.NewString(str[len(str)-n:]), nil
}

func (rt *Runtime) builtinMid(args []value.Value) (value.Value, error) {
	s := args[0]
	if !s.IsString() || !args[1].IsNumeric() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}
	str := s.AsStringBorrowed()
	start := int(args[1].AsInt()) - 1
	if start < 0 {
		start = 0
	}
	if start > len(str) {
		start = len(str)
	}
	length := len(str) - start
	if len(args) > 2 {
		if !args[2].IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		length = int(args[2].AsInt())
		if length < 0 {
			length = 0
		}
		if start+length > len(str) {
			length = len(str) - start
		}
	}
	return value.NewString(str[start : start+length]), nil
}

func (rt *Runtime) builtinInstr(args []value.Value) (value.Value, error) {
	if !args[0].IsString() || !args[1].IsString() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}
	haystack := args[0].AsStringBorrowed()
	needle := args[1].AsStringBorrowed()
	start := 0
	if len(args) > 2 {
		if !args[2].IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		start = int(args[2].AsInt()) - 1
		if start < 0 {
			start = 0
		}
	}
	if start > len(haystack) {
		return value.NewInt(0), nil
	}
	idx := strings.Index(haystack[start:], needle)
	if idx < 0 {
		return value.NewInt(0), nil
	}
	return value.NewInt(int32(start + idx + 1)), nil
}

func (rt *Runtime) builtinRND(argExprs []ast.Expr) (value.Value, error) {
	if len(argExprs) == 0 {
		return value.NewInt(int32(rt.rnd.Uint32())), nil
	}
	nv, err := rt.Eval(argExprs[0])
	if err != nil {
		return value.Value{}, err
	}
	if !nv.IsNumeric() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}
	n := nv.AsInt()
	switch {
	case n == 0:
		return value.NewFloat(rt.lastRnd1), nil
	case n == 1:
		f := rt.rnd.Float64()
		rt.lastRnd1 = f
		return value.NewFloat(f), nil
	case n > 1:
		return value.NewInt(rt.rnd.Int31n(n) + 1), nil
	default:
		rt.reseed()
		return value.NewInt(n), nil
	}
}

// builtinGET/GETDollar/INKEY fail silently on EOF/timeout (spec.md §4.2):
// no BBC error is raised, a sentinel value is returned instead.
func (rt *Runtime) builtinGET() (value.Value, error) {
	k, err := rt.Term.GetKey()
	if err != nil {
		return value.NewInt(-1), nil
	}
	return value.NewInt(int32(k)), nil
}

func (rt *Runtime) builtinGETDollar() (value.Value, error) {
	k, err := rt.Term.GetKey()
	if err != nil {
		return value.NewString(""), nil
	}
	return value.NewString(string([]byte{byte(k)})), nil
}

func (rt *Runtime) builtinINKEY(argExprs []ast.Expr) (value.Value, error) {
	nv, err := rt.Eval(argExprs[0])
	if err != nil {
		return value.Value{}, err
	}
	if !nv.IsNumeric() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}
	n := nv.AsInt()
	if n < 0 {
		if rt.Term.ScanKey(int(-n)) {
			return value.NewInt(-1), nil
		}
		return value.NewInt(0), nil
	}
	k, ok := rt.Term.InkeyWait(time.Duration(n) * 10 * time.Millisecond)
	if !ok {
		return value.NewInt(-1), nil
	}
	return value.NewInt(int32(k)), nil
}

func (rt *Runtime) builtinINKEYDollar(argExprs []ast.Expr) (value.Value, error) {
	nv, err := rt.Eval(argExprs[0])
	if err != nil {
		return value.Value{}, err
	}
	if !nv.IsNumeric() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}
	n := nv.AsInt()
	if n < 0 {
		return value.NewString(""), nil
	}
	k, ok := rt.Term.InkeyWait(time.Duration(n) * 10 * time.Millisecond)
	if !ok {
		return value.NewString(""), nil
	}
	return value.NewString(string([]byte{byte(k)})), nil
}

func (rt *Runtime) builtinOpen(name string, argExprs []ast.Expr) (value.Value, error) {
	pv, err := rt.Eval(argExprs[0])
	if err != nil {
		return value.Value{}, err
	}
	if !pv.IsString() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}
	path := pv.AsStringBorrowed()
	var fd int
	switch name {
	case "OPENIN":
		fd = rt.Files.OpenIn(path)
	case "OPENOUT":
		fd = rt.Files.OpenOut(path)
	default:
		fd = rt.Files.OpenUp(path)
	}
	return value.NewInt(int32(fd)), nil
}

func (rt *Runtime) builtinPtrHash(argExprs []ast.Expr) (value.Value, error) {
	fdv, err := rt.Eval(argExprs[0])
	if err != nil {
		return value.Value{}, err
	}
	ptr, ok := rt.Files.Ptr(int(fdv.AsInt()))
	if !ok {
		return rt.failExpr(bbcerr.Channel)
	}
	return value.NewInt(int32(ptr)), nil
}

func (rt *Runtime) builtinExtHash(argExprs []ast.Expr) (value.Value, error) {
	fdv, err := rt.Eval(argExprs[0])
	if err != nil {
		return value.Value{}, err
	}
	ext, ok := rt.Files.Ext(int(fdv.AsInt()))
	if !ok {
		return rt.failExpr(bbcerr.Channel)
	}
	return value.NewInt(int32(ext)), nil
}

func (rt *Runtime) builtinEofHash(argExprs []ast.Expr) (value.Value, error) {
	fdv, err := rt.Eval(argExprs[0])
	if err != nil {
		return value.Value{}, err
	}
	eof, ok := rt.Files.Eof(int(fdv.AsInt()))
	if !ok {
		return rt.failExpr(bbcerr.Channel)
	}
	return value.Truthy(eof), nil
}

func (rt *Runtime) builtinBGetHash(argExprs []ast.Expr) (value.Value, error) {
	fdv, err := rt.Eval(argExprs[0])
	if err != nil {
		return value.Value{}, err
	}
	b, ok := rt.Files.BGet(int(fdv.AsInt()))
	if !ok {
		return rt.failExpr(bbcerr.EOF)
	}
	return value.NewInt(int32(b)), nil
}
