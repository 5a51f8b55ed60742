package runtime

import (
	"math"
	"strconv"
	"strings"

	"bbasic/internal/ast"
	"bbasic/internal/bbcerr"
	"bbasic/internal/symtab"
	"bbasic/internal/value"
)

type forFrame struct {
	stmt *ast.ForStmt
	to   value.Value
	step value.Value
}

func coerceForKind(nk symtab.NameKind, v value.Value) (value.Value, bool) {
	switch nk {
	case symtab.NameString:
		if !v.IsString() {
			return value.Value{}, false
		}
		return v, true
	case symtab.NameInteger, symtab.NameResident:
		if !v.IsNumeric() {
			return value.Value{}, false
		}
		return value.NewInt(v.AsInt()), true
	default:
		if !v.IsNumeric() {
			return value.Value{}, false
		}
		return value.NewFloat(v.AsFloat()), true
	}
}

func zeroFor(nk symtab.NameKind) value.Value {
	switch nk {
	case symtab.NameString:
		return value.NewString("")
	case symtab.NameFloat:
		return value.NewFloat(0)
	default:
		return value.NewInt(0)
	}
}

func (rt *Runtime) assignScalar(name string, v value.Value) error {
	nk, slot := symtab.ClassifyName(name)
	if nk == symtab.NameResident {
		if !v.IsNumeric() {
			return bbcerr.New(bbcerr.TypeMismatch, rt.curLine)
		}
		rt.Sym.SetResident(slot, v.AsInt())
		return nil
	}
	cv, ok := coerceForKind(nk, v)
	if !ok {
		return bbcerr.New(bbcerr.TypeMismatch, rt.curLine)
	}
	rt.Sym.Assign(name, symKindOf(nk), cv)
	return nil
}

func (rt *Runtime) readScalar(name string) (value.Value, bool) {
	nk, slot := symtab.ClassifyName(name)
	if nk == symtab.NameResident {
		return value.NewInt(rt.Sym.GetResident(slot)), true
	}
	sym := rt.Sym.Lookup(name)
	if sym == nil {
		return value.Value{}, false
	}
	return sym.Value, true
}

func (rt *Runtime) assignArrayElem(name string, subs []int32, v value.Value) error {
	sym := rt.Sym.Lookup(name)
	if sym == nil || sym.Kind != symtab.KindArray {
		return bbcerr.New(bbcerr.NoSuchVariable, rt.curLine)
	}
	idx, ok := sym.Array.FlatIndex(subs)
	if !ok {
		return bbcerr.New(bbcerr.Subscript, rt.curLine)
	}
	cv, ok := coerceForKind(sym.Array.ElemKind, v)
	if !ok {
		return bbcerr.New(bbcerr.TypeMismatch, rt.curLine)
	}
	sym.Array.Elems[idx] = cv
	return nil
}

func (rt *Runtime) assignTarget(tgt ast.AssignTarget, v value.Value) error {
	switch tgt.Kind {
	case ast.TargetVar:
		return rt.assignScalar(tgt.Name, v)
	case ast.TargetArray:
		subs, err := rt.evalSubscripts(tgt.Subscripts)
		if err != nil {
			return err
		}
		return rt.assignArrayElem(tgt.Name, subs, v)
	case ast.TargetPtrHash:
		fdv, err := rt.Eval(tgt.FD)
		if err != nil {
			return err
		}
		if !v.IsNumeric() {
			return bbcerr.New(bbcerr.TypeMismatch, rt.curLine)
		}
		if err := rt.Files.SeekPtr(int(fdv.AsInt()), int64(v.AsInt())); err != nil {
			return bbcerr.New(bbcerr.Channel, rt.curLine)
		}
		return nil
	}
	return bbcerr.New(bbcerr.Syntax, rt.curLine)
}

// assignReadValue assigns v into whatever scalar/array reference target
// points at — used by INPUT, which parses its item list as ordinary
// expressions rather than AssignTargets.
func (rt *Runtime) assignReadValue(target ast.Expr, v value.Value) error {
	switch t := target.(type) {
	case *ast.VarExpr:
		return rt.assignScalar(t.Name, v)
	case *ast.ArrayRefExpr:
		subs, err := rt.evalSubscripts(t.Subscripts)
		if err != nil {
			return err
		}
		return rt.assignArrayElem(t.Name, subs, v)
	}
	return bbcerr.New(bbcerr.Syntax, rt.curLine)
}

func (rt *Runtime) exprIsStringKind(target ast.Expr) bool {
	switch t := target.(type) {
	case *ast.VarExpr:
		nk, _ := symtab.ClassifyName(t.Name)
		return nk == symtab.NameString
	case *ast.ArrayRefExpr:
		sym := rt.Sym.Lookup(t.Name)
		return sym != nil && sym.Kind == symtab.KindArray && sym.Array.ElemKind == symtab.NameString
	}
	return false
}

func (rt *Runtime) VisitAssign(s *ast.AssignStmt) (ast.Status, error) {
	v, err := rt.Eval(s.Value)
	if err != nil {
		return ast.Status{}, err
	}
	if err := rt.assignTarget(s.Target, v); err != nil {
		return ast.Status{}, err
	}
	return ast.OK, nil
}

func endsInSemicolon(items []ast.PrintItem) bool {
	if len(items) == 0 {
		return false
	}
	return items[len(items)-1].Kind == ast.ItemSemicolon
}

func (rt *Runtime) padToColumn() {
	w := rt.Fmt.Options().Width
	if w <= 0 {
		w = 1
	}
	rem := rt.countSinceNewline % w
	pad := w - rem
	rt.writeOut(strings.Repeat(" ", pad))
}

// VisitPrint implements PRINT's item list. Field-width padding (driven by
// @%) always applies to numeric items regardless of the separator that
// precedes them; SEMICOLON's only effect is suppressing the trailing
// newline when it is the final item, COMMA pads to the next field
// boundary, and APOSTROPHE forces an immediate newline.
func (rt *Runtime) VisitPrint(s *ast.PrintStmt) (ast.Status, error) {
	for _, item := range s.Items {
		switch item.Kind {
		case ast.ItemApostrophe:
			rt.writeOut("\n")
		case ast.ItemComma:
			rt.padToColumn()
		case ast.ItemSemicolon:
		case ast.ItemExpr:
			v, err := rt.Eval(item.Expr)
			if err != nil {
				return ast.Status{}, err
			}
			rt.writeOut(rt.Fmt.StringifyForPrint(v))
		}
	}
	if !endsInSemicolon(s.Items) {
		rt.writeOut("\n")
	}
	return ast.OK, nil
}

func (rt *Runtime) nextInputToken() (string, error) {
	for len(rt.inputTokens) == 0 {
		line, err := rt.Stdin.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		line = strings.TrimRight(line, "\r\n")
		for _, p := range strings.Split(line, ",") {
			rt.inputTokens = append(rt.inputTokens, strings.TrimSpace(p))
		}
	}
	tok := rt.inputTokens[0]
	rt.inputTokens = rt.inputTokens[1:]
	return tok, nil
}

func parseNumericToken(tok string) value.Value {
	if i, err := strconv.ParseInt(tok, 10, 32); err == nil {
		return value.NewInt(int32(i))
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return value.NewFloat(f)
	}
	return value.NewInt(0)
}

func (rt *Runtime) readOneInput(target ast.Expr) error {
	tok, err := rt.nextInputToken()
	if err != nil {
		return bbcerr.NewFatal("input: %v", err)
	}
	var v value.Value
	if rt.exprIsStringKind(target) {
		v = value.NewString(tok)
	} else {
		v = parseNumericToken(tok)
	}
	return rt.assignReadValue(target, v)
}

func (rt *Runtime) VisitInput(s *ast.InputStmt) (ast.Status, error) {
	if s.Line {
		return rt.runInputLine(s)
	}
	for _, item := range s.Items {
		if item.Kind != ast.ItemExpr {
			continue
		}
		if ce, ok := item.Expr.(*ast.ConstExpr); ok && ce.Value.IsString() {
			rt.writeOut(rt.Fmt.StringifyForPrint(ce.Value))
			continue
		}
		if err := rt.readOneInput(item.Expr); err != nil {
			return ast.Status{}, err
		}
	}
	return ast.OK, nil
}

func (rt *Runtime) runInputLine(s *ast.InputStmt) (ast.Status, error) {
	var target ast.Expr
	for _, item := range s.Items {
		if item.Kind != ast.ItemExpr {
			continue
		}
		if ce, ok := item.Expr.(*ast.ConstExpr); ok && ce.Value.IsString() {
			rt.writeOut(rt.Fmt.StringifyForPrint(ce.Value))
			continue
		}
		target = item.Expr
	}
	line, err := rt.Stdin.ReadString('\n')
	if err != nil && line == "" {
		return ast.Status{}, bbcerr.NewFatal("input line: %v", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if target != nil {
		if err := rt.assignReadValue(target, value.NewString(line)); err != nil {
			return ast.Status{}, err
		}
	}
	return ast.OK, nil
}

func (rt *Runtime) VisitIf(s *ast.IfStmt) (ast.Status, error) {
	v, err := rt.Eval(s.Cond)
	if err != nil {
		return ast.Status{}, err
	}
	if !v.IsNumeric() {
		return rt.fail(bbcerr.TypeMismatch)
	}
	if !v.IsZero() {
		if s.Then == nil {
			return ast.OK, nil
		}
		return ast.JumpTo(s.Then), nil
	}
	if s.Else == nil {
		return ast.OK, nil
	}
	return ast.JumpTo(s.Else), nil
}

func (rt *Runtime) VisitFor(s *ast.ForStmt) (ast.Status, error) {
	fromV, err := rt.Eval(s.From)
	if err != nil {
		return ast.Status{}, err
	}
	toV, err := rt.Eval(s.To)
	if err != nil {
		return ast.Status{}, err
	}
	stepV := value.NewInt(1)
	if s.Step != nil {
		stepV, err = rt.Eval(s.Step)
		if err != nil {
			return ast.Status{}, err
		}
	}
	if !fromV.IsNumeric() || !toV.IsNumeric() || !stepV.IsNumeric() {
		return rt.fail(bbcerr.TypeMismatch)
	}
	if stepV.AsFloat() == 0 {
		return ast.Status{}, bbcerr.NewFatal("loop increment is zero")
	}
	if err := rt.assignScalar(s.Var, fromV); err != nil {
		return ast.Status{}, err
	}
	rt.forStack = append(rt.forStack, forFrame{stmt: s, to: toV, step: stepV})
	return ast.OK, nil
}

func (rt *Runtime) VisitNext(s *ast.NextStmt) (ast.Status, error) {
	if len(rt.forStack) == 0 {
		return rt.fail(bbcerr.NoFOR)
	}
	idx := len(rt.forStack) - 1
	if s.Var != "" {
		found := -1
		for i := idx; i >= 0; i-- {
			if rt.forStack[i].stmt.Var == s.Var {
				found = i
				break
			}
		}
		if found == -1 {
			return rt.fail(bbcerr.CantMatchFOR)
		}
		idx = found
		rt.forStack = rt.forStack[:idx+1]
	}
	frame := rt.forStack[idx]
	cur, ok := rt.readScalar(frame.stmt.Var)
	if !ok {
		return rt.fail(bbcerr.FORVariable)
	}
	next := rt.arith(cur, frame.step, func(a, b int32) int32 { return a + b }, func(a, b float64) float64 { return a + b })
	if err := rt.assignScalar(frame.stmt.Var, next); err != nil {
		return ast.Status{}, err
	}

	ascending := frame.step.AsFloat() >= 0
	done := (ascending && next.AsFloat() > frame.to.AsFloat()) || (!ascending && next.AsFloat() < frame.to.AsFloat())
	if done {
		rt.forStack = rt.forStack[:idx]
		return ast.OK, nil
	}
	return ast.JumpTo(frame.stmt.GetNext()), nil
}

func (rt *Runtime) VisitRepeat(s *ast.RepeatStmt) (ast.Status, error) {
	rt.repeatStack = append(rt.repeatStack, s)
	return ast.OK, nil
}

func (rt *Runtime) VisitUntil(s *ast.UntilStmt) (ast.Status, error) {
	if len(rt.repeatStack) == 0 {
		return rt.fail(bbcerr.NoREPEAT)
	}
	v, err := rt.Eval(s.Cond)
	if err != nil {
		return ast.Status{}, err
	}
	if !v.IsNumeric() {
		return rt.fail(bbcerr.TypeMismatch)
	}
	top := rt.repeatStack[len(rt.repeatStack)-1]
	if v.IsZero() {
		return ast.JumpTo(top.GetNext()), nil
	}
	rt.repeatStack = rt.repeatStack[:len(rt.repeatStack)-1]
	return ast.OK, nil
}

func (rt *Runtime) VisitGoto(s *ast.GotoStmt) (ast.Status, error) {
	v, err := rt.Eval(s.Line)
	if err != nil {
		return ast.Status{}, err
	}
	target, ok := rt.Lines.Get(int(v.AsInt()))
	if !ok {
		return rt.fail(bbcerr.NoSuchLine)
	}
	return ast.JumpTo(target), nil
}

func (rt *Runtime) VisitGosub(s *ast.GosubStmt) (ast.Status, error) {
	v, err := rt.Eval(s.Line)
	if err != nil {
		return ast.Status{}, err
	}
	target, ok := rt.Lines.Get(int(v.AsInt()))
	if !ok {
		return rt.fail(bbcerr.NoSuchLine)
	}
	rt.gosubStack = append(rt.gosubStack, s.GetNext())
	return ast.JumpTo(target), nil
}

func (rt *Runtime) VisitOnGoto(s *ast.OnGotoStmt) (ast.Status, error) {
	sel, err := rt.Eval(s.Selector)
	if err != nil {
		return ast.Status{}, err
	}
	if !sel.IsNumeric() {
		return rt.fail(bbcerr.TypeMismatch)
	}
	n := int(sel.AsInt())
	if n >= 1 && n <= len(s.Targets) {
		v, err := rt.Eval(s.Targets[n-1])
		if err != nil {
			return ast.Status{}, err
		}
		target, ok := rt.Lines.Get(int(v.AsInt()))
		if !ok {
			return rt.fail(bbcerr.NoSuchLine)
		}
		return ast.JumpTo(target), nil
	}
	if s.Else != nil {
		return ast.JumpTo(s.Else), nil
	}
	return rt.fail(bbcerr.ONRange)
}

func (rt *Runtime) VisitOnGosub(s *ast.OnGosubStmt) (ast.Status, error) {
	sel, err := rt.Eval(s.Selector)
	if err != nil {
		return ast.Status{}, err
	}
	if !sel.IsNumeric() {
		return rt.fail(bbcerr.TypeMismatch)
	}
	n := int(sel.AsInt())
	if n >= 1 && n <= len(s.Targets) {
		v, err := rt.Eval(s.Targets[n-1])
		if err != nil {
			return ast.Status{}, err
		}
		target, ok := rt.Lines.Get(int(v.AsInt()))
		if !ok {
			return rt.fail(bbcerr.NoSuchLine)
		}
		rt.gosubStack = append(rt.gosubStack, s.GetNext())
		return ast.JumpTo(target), nil
	}
	if s.Else != nil {
		return ast.JumpTo(s.Else), nil
	}
	return rt.fail(bbcerr.ONRange)
}

func (rt *Runtime) VisitReturn(s *ast.ReturnStmt) (ast.Status, error) {
	if len(rt.gosubStack) == 0 {
		return rt.fail(bbcerr.NoGOSUB)
	}
	ret := rt.gosubStack[len(rt.gosubStack)-1]
	rt.gosubStack = rt.gosubStack[:len(rt.gosubStack)-1]
	return ast.JumpTo(ret), nil
}

// VisitDefProc/VisitDefFn: the driver has already rewired these nodes'
// Next to AfterBody, so falling into one linearly just steps over it.
func (rt *Runtime) VisitDefProc(s *ast.DefProcStmt) (ast.Status, error) { return ast.OK, nil }
func (rt *Runtime) VisitDefFn(s *ast.DefFnStmt) (ast.Status, error)    { return ast.OK, nil }

func (rt *Runtime) VisitEndProc(s *ast.EndProcStmt) (ast.Status, error) {
	if len(rt.procStack) == 0 {
		return rt.fail(bbcerr.NoPROC)
	}
	ret := rt.procStack[len(rt.procStack)-1]
	rt.procStack = rt.procStack[:len(rt.procStack)-1]
	rt.Sym.PopFrame()
	return ast.JumpTo(ret), nil
}

func (rt *Runtime) VisitFnReturn(s *ast.FnReturnStmt) (ast.Status, error) {
	v, err := rt.Eval(s.Value)
	if err != nil {
		return ast.Status{}, err
	}
	rt.pushReturn(v)
	return ast.Exit, nil
}

func (rt *Runtime) VisitProcCall(s *ast.ProcCallStmt) (ast.Status, error) {
	sym := rt.Sym.LookupProc(s.Name)
	if sym == nil || sym.Kind != symtab.KindProc {
		return rt.fail(bbcerr.NoPROC)
	}
	def, ok := sym.Proc.(*ProcDef)
	if !ok || def.IsFn {
		return rt.fail(bbcerr.NoPROC)
	}
	args := ast.ExprList(s.Args)
	if len(args) != len(def.Params) {
		return rt.fail(bbcerr.Arguments)
	}
	argVals := make([]value.Value, len(args))
	for i, a := range args {
		v, err := rt.Eval(a)
		if err != nil {
			return ast.Status{}, err
		}
		argVals[i] = v
	}
	rt.Sym.PushFrame()
	for i, p := range def.Params {
		nk, _ := symtab.ClassifyName(p)
		rt.Sym.DefineLocal(p, symKindOf(nk), argVals[i])
	}
	rt.procStack = append(rt.procStack, s.GetNext())
	return ast.JumpTo(def.Body), nil
}

func (rt *Runtime) VisitLocal(s *ast.LocalStmt) (ast.Status, error) {
	for _, name := range s.Names {
		nk, _ := symtab.ClassifyName(name)
		if nk == symtab.NameResident {
			return rt.fail(bbcerr.NotLOCAL)
		}
		rt.Sym.DefineLocal(name, symKindOf(nk), zeroFor(nk))
	}
	return ast.OK, nil
}

func (rt *Runtime) VisitRead(s *ast.ReadStmt) (ast.Status, error) {
	for _, tgt := range s.Targets {
		v, ok := rt.Data.Next()
		if !ok {
			return rt.fail(bbcerr.OutOfDATA)
		}
		if err := rt.assignTarget(tgt, v); err != nil {
			return ast.Status{}, err
		}
	}
	return ast.OK, nil
}

func (rt *Runtime) VisitRestore(s *ast.RestoreStmt) (ast.Status, error) {
	if s.Line == nil {
		rt.Data.Reset(0)
		return ast.OK, nil
	}
	v, err := rt.Eval(s.Line)
	if err != nil {
		return ast.Status{}, err
	}
	idx, ok := rt.DataL.Get(int(v.AsInt()))
	if !ok {
		return rt.fail(bbcerr.NoSuchLine)
	}
	rt.Data.Reset(idx)
	return ast.OK, nil
}

func (rt *Runtime) VisitData(s *ast.DataStmt) (ast.Status, error) { return ast.OK, nil }

func (rt *Runtime) VisitDim(s *ast.DimStmt) (ast.Status, error) {
	dims := make([]int32, len(s.Dims))
	for i, e := range s.Dims {
		v, err := rt.Eval(e)
		if err != nil {
			return ast.Status{}, err
		}
		if !v.IsNumeric() {
			return rt.fail(bbcerr.TypeMismatch)
		}
		dims[i] = v.AsInt()
	}
	elemKind, _ := symtab.ClassifyName(s.Name)
	if elemKind == symtab.NameResident {
		elemKind = symtab.NameInteger
	}
	arr := symtab.NewArray(dims, elemKind)
	if !rt.Sym.DefineArray(s.Name, arr) {
		return rt.fail(bbcerr.BadDIM)
	}
	return ast.OK, nil
}

func (rt *Runtime) VisitOnError(s *ast.OnErrorStmt) (ast.Status, error) {
	if s.Off {
		rt.trap = nil
		return ast.OK, nil
	}
	rt.trap = s.Trap
	return ast.OK, nil
}

func (rt *Runtime) VisitTrace(s *ast.TraceStmt) (ast.Status, error) {
	rt.traceOn = s.On
	if !s.On {
		return ast.OK, nil
	}
	if s.Threshold != nil {
		v, err := rt.Eval(s.Threshold)
		if err != nil {
			return ast.Status{}, err
		}
		rt.traceThreshold = v.AsInt()
	} else {
		rt.traceThreshold = math.MaxInt32
	}
	return ast.OK, nil
}

func (rt *Runtime) VisitEnd(s *ast.EndStmt) (ast.Status, error) { return ast.Exit, nil }

func (rt *Runtime) VisitPrintHash(s *ast.PrintHashStmt) (ast.Status, error) {
	fdv, err := rt.Eval(s.FD)
	if err != nil {
		return ast.Status{}, err
	}
	fd := int(fdv.AsInt())
	if rt.Files.IsReserved(fd) {
		return rt.fail(bbcerr.Channel)
	}
	for _, e := range s.Items {
		v, err := rt.Eval(e)
		if err != nil {
			return ast.Status{}, err
		}
		if !rt.Files.PutValue(fd, v) {
			return rt.fail(bbcerr.Channel)
		}
	}
	return ast.OK, nil
}

func (rt *Runtime) VisitInputHash(s *ast.InputHashStmt) (ast.Status, error) {
	fdv, err := rt.Eval(s.FD)
	if err != nil {
		return ast.Status{}, err
	}
	fd := int(fdv.AsInt())
	if rt.Files.IsReserved(fd) {
		return rt.fail(bbcerr.Channel)
	}
	for _, tgt := range s.Targets {
		v, ok := rt.Files.GetValue(fd)
		if !ok {
			return rt.fail(bbcerr.EOF)
		}
		if err := rt.assignTarget(tgt, v); err != nil {
			return ast.Status{}, err
		}
	}
	return ast.OK, nil
}

func (rt *Runtime) VisitBput(s *ast.BputStmt) (ast.Status, error) {
	fdv, err := rt.Eval(s.FD)
	if err != nil {
		return ast.Status{}, err
	}
	fd := int(fdv.AsInt())
	if rt.Files.IsReserved(fd) {
		return rt.fail(bbcerr.Channel)
	}
	v, err := rt.Eval(s.Value)
	if err != nil {
		return ast.Status{}, err
	}
	if !v.IsNumeric() {
		return rt.fail(bbcerr.TypeMismatch)
	}
	if !rt.Files.BPut(fd, byte(v.AsInt()&0xFF)) {
		return rt.fail(bbcerr.Channel)
	}
	return ast.OK, nil
}

func (rt *Runtime) VisitClose(s *ast.CloseStmt) (ast.Status, error) {
	fdv, err := rt.Eval(s.FD)
	if err != nil {
		return ast.Status{}, err
	}
	rt.Files.Close(int(fdv.AsInt()))
	return ast.OK, nil
}

func (rt *Runtime) VisitNop(s *ast.NopStmt) (ast.Status, error) { return ast.OK, nil }

func (rt *Runtime) VisitScreenNoOp(s *ast.ScreenNoOpStmt) (ast.Status, error) {
	for _, e := range s.Args {
		if _, err := rt.Eval(e); err != nil {
			return ast.Status{}, err
		}
	}
	return ast.OK, nil
}
