package runtime

import (
	"math"
	"time"

	"bbasic/internal/ast"
	"bbasic/internal/bbcerr"
	"bbasic/internal/symtab"
	"bbasic/internal/value"
)

func (rt *Runtime) VisitConst(e *ast.ConstExpr) (value.Value, error) { return e.Value, nil }

func (rt *Runtime) VisitVar(e *ast.VarExpr) (value.Value, error) {
	switch e.Name {
	case "ERR":
		return value.NewInt(int32(rt.Err.ERR())), nil
	case "ERL":
		return value.NewInt(int32(rt.Err.ERL())), nil
	case "TIME":
		return value.NewInt(int32(rt.currentTime())), nil
	case "COUNT":
		return value.NewInt(int32(rt.countSinceNewline)), nil
	}

	nk, slot := symtab.ClassifyName(e.Name)
	if nk == symtab.NameResident {
		return value.NewInt(rt.Sym.GetResident(slot)), nil
	}

	sym := rt.Sym.Lookup(e.Name)
	if sym == nil {
		return rt.failExpr(bbcerr.NoSuchVariable)
	}
	return sym.Value, nil
}

func (rt *Runtime) currentTime() int64 {
	elapsed := time.Since(rt.timeDatum).Nanoseconds() / 10_000_000
	return rt.timeOffset + elapsed
}

func (rt *Runtime) VisitArrayRef(e *ast.ArrayRefExpr) (value.Value, error) {
	sym := rt.Sym.Lookup(e.Name)
	if sym == nil || sym.Kind != symtab.KindArray {
		return rt.failExpr(bbcerr.NoSuchVariable)
	}
	subs, err := rt.evalSubscripts(e.Subscripts)
	if err != nil {
		return value.Value{}, err
	}
	idx, ok := sym.Array.FlatIndex(subs)
	if !ok {
		return rt.failExpr(bbcerr.Subscript)
	}
	return sym.Array.Elems[idx], nil
}

func (rt *Runtime) evalSubscripts(head ast.Expr) ([]int32, error) {
	exprs := ast.ExprList(head)
	out := make([]int32, len(exprs))
	for i, x := range exprs {
		v, err := rt.Eval(x)
		if err != nil {
			return nil, err
		}
		if !v.IsNumeric() {
			return nil, bbcerr.New(bbcerr.TypeMismatch, rt.curLine)
		}
		out[i] = v.AsInt()
	}
	return out, nil
}

func (rt *Runtime) VisitUnary(e *ast.UnaryExpr) (value.Value, error) {
	v, err := rt.Eval(e.Operand)
	if err != nil {
		return value.Value{}, err
	}
	if !v.IsNumeric() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}
	switch e.Op {
	case "-":
		if v.Kind() == value.Int {
			return value.NewInt(-v.AsInt()), nil
		}
		return value.NewFloat(-v.AsFloat()), nil
	case "NOT":
		return value.NewInt(^v.AsInt()), nil
	}
	return rt.failExpr(bbcerr.Syntax)
}

func (rt *Runtime) VisitBinary(e *ast.BinaryExpr) (value.Value, error) {
	l, err := rt.Eval(e.Left)
	if err != nil {
		return value.Value{}, err
	}
	r, err := rt.Eval(e.Right)
	if err != nil {
		return value.Value{}, err
	}

	switch e.Op {
	case "=", "<>", "<", ">", "<=", ">=":
		return rt.compare(e.Op, l, r)
	case "AND", "OR", "EOR":
		if !l.IsNumeric() || !r.IsNumeric() {
			return rt.failExpr(bbcerr.TypeMismatch)
		}
		a, b := l.AsInt(), r.AsInt()
		switch e.Op {
		case "AND":
			return value.NewInt(a & b), nil
		case "OR":
			return value.NewInt(a | b), nil
		default:
			return value.NewInt(a ^ b), nil
		}
	}

	if e.Op == "+" && l.IsString() && r.IsString() {
		return value.NewString(l.AsStringBorrowed() + r.AsStringBorrowed()), nil
	}
	if !l.IsNumeric() || !r.IsNumeric() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}

	switch e.Op {
	case "+":
		return rt.arith(l, r, func(a, b int32) int32 { return a + b }, func(a, b float64) float64 { return a + b }), nil
	case "-":
		return rt.arith(l, r, func(a, b int32) int32 { return a - b }, func(a, b float64) float64 { return a - b }), nil
	case "*":
		return rt.arith(l, r, func(a, b int32) int32 { return a * b }, func(a, b float64) float64 { return a * b }), nil
	case "/":
		if r.AsFloat() == 0 {
			return rt.failExpr(bbcerr.DivisionByZero)
		}
		if l.Kind() == value.Int && r.Kind() == value.Int {
			a, b := l.AsInt(), r.AsInt()
			if a%b == 0 {
				return value.NewInt(a / b), nil
			}
		}
		return value.NewFloat(l.AsFloat() / r.AsFloat()), nil
	case "DIV":
		b := r.AsInt()
		if b == 0 {
			return rt.failExpr(bbcerr.DivisionByZero)
		}
		return value.NewInt(l.AsInt() / b), nil
	case "MOD":
		b := r.AsInt()
		if b == 0 {
			return rt.failExpr(bbcerr.DivisionByZero)
		}
		return value.NewInt(l.AsInt() % b), nil
	case "^":
		return value.NewFloat(math.Pow(l.AsFloat(), r.AsFloat())), nil
	}
	return rt.failExpr(bbcerr.Syntax)
}

func (rt *Runtime) arith(l, r value.Value, intOp func(a, b int32) int32, floatOp func(a, b float64) float64) value.Value {
	if l.Kind() == value.Int && r.Kind() == value.Int {
		return value.NewInt(intOp(l.AsInt(), r.AsInt()))
	}
	return value.NewFloat(floatOp(l.AsFloat(), r.AsFloat()))
}

func (rt *Runtime) compare(op string, l, r value.Value) (value.Value, error) {
	if l.IsString() != r.IsString() {
		return rt.failExpr(bbcerr.TypeMismatch)
	}
	var cmp int
	if l.IsString() {
		a, b := l.AsStringBorrowed(), r.AsStringBorrowed()
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	} else {
		a, b := l.AsFloat(), r.AsFloat()
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	}
	var result bool
	switch op {
	case "=":
		result = cmp == 0
	case "<>":
		result = cmp != 0
	case "<":
		result = cmp < 0
	case ">":
		result = cmp > 0
	case "<=":
		result = cmp <= 0
	case ">=":
		result = cmp >= 0
	}
	return value.Truthy(result), nil
}

func (rt *Runtime) VisitBuiltinCall(e *ast.BuiltinCallExpr) (value.Value, error) {
	return rt.callBuiltin(e.Name, ast.ExprList(e.Args))
}

func (rt *Runtime) VisitFnCall(e *ast.FnCallExpr) (value.Value, error) {
	sym := rt.Sym.LookupProc(e.Name)
	if sym == nil || sym.Kind != symtab.KindProc {
		return rt.failExpr(bbcerr.NoFN)
	}
	def, ok := sym.Proc.(*ProcDef)
	if !ok || !def.IsFn {
		return rt.failExpr(bbcerr.NoFN)
	}
	args := ast.ExprList(e.Args)
	if len(args) != len(def.Params) {
		return rt.failExpr(bbcerr.Arguments)
	}
	argVals := make([]value.Value, len(args))
	for i, a := range args {
		v, err := rt.Eval(a)
		if err != nil {
			return value.Value{}, err
		}
		argVals[i] = v
	}

	rt.Sym.PushFrame()
	for i, p := range def.Params {
		nk, _ := symtab.ClassifyName(p)
		rt.Sym.DefineLocal(p, symKindOf(nk), argVals[i])
	}
	savedTrap := rt.trap
	status, err := rt.Run(def.Body)
	rt.trap = savedTrap
	rt.Sym.PopFrame()
	if err != nil {
		return value.Value{}, err
	}
	if status.Kind != ast.StatusExit {
		return rt.failExpr(bbcerr.NoFN)
	}
	return rt.popReturn(), nil
}

func symKindOf(nk symtab.NameKind) symtab.Kind {
	switch nk {
	case symtab.NameString:
		return symtab.KindString
	case symtab.NameInteger, symtab.NameResident:
		return symtab.KindInteger
	default:
		return symtab.KindFloat
	}
}

