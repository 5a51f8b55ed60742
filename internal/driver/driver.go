// Package driver links a parsed BBC BASIC II line list into one
// next-linked statement stream and builds the indexes (line map, DATA
// chain, procedure/function table) the runtime needs to execute it
// (spec.md §4.5, §9's "Global mutable state").
package driver

import (
	"bbasic/internal/ast"
	"bbasic/internal/bbcerr"
	"bbasic/internal/parser"
	"bbasic/internal/program"
	"bbasic/internal/runtime"
	"bbasic/internal/symtab"
	"bbasic/internal/value"
)

// Program is a fully linked, ready-to-run statement stream plus the
// indexes the runtime consults for GOTO/GOSUB/RESTORE.
type Program struct {
	Entry ast.Stmt
	Lines *program.LineMap
	DataL *program.DataMap
	Data  *program.DataChain
}

// Build parses src and performs every build-time linking pass: DATA
// harvesting, cross-line flattening, branch-chain splicing, and
// DEF PROC/FN body resolution. A parse failure is a build-time error
// (spec.md §6: "on failure it exits non-zero before the runtime
// engages"), returned as-is rather than wrapped as a BASIC error code,
// since no line/ERR register exists yet to report it through.
func Build(src string, sym *symtab.Table) (*Program, error) {
	lines, err := parser.ParseProgram(src)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return &Program{
			Lines: program.NewLineMap(),
			DataL: program.NewDataMap(),
			Data:  program.NewDataChain(nil),
		}, nil
	}

	lineMap := program.NewLineMap()
	dataMap := program.NewDataMap()
	var dataVals []value.Value

	for _, l := range lines {
		lineMap.Put(l.Number, l.Head)
		harvestData(l, dataMap, &dataVals)
	}

	for i := 0; i < len(lines)-1; i++ {
		lines[i].Tail.SetNext(lines[i+1].Head)
	}
	entry := lines[0].Head

	spliceBranches(entry, nil, make(map[ast.Stmt]bool))

	if err := resolveDefs(entry, sym); err != nil {
		return nil, err
	}

	return &Program{
		Entry: entry,
		Lines: lineMap,
		DataL: dataMap,
		Data:  program.NewDataChain(dataVals),
	}, nil
}

// harvestData walks one line's own (still line-local, pre-flatten)
// statement chain collecting every DataStmt's values, before the
// cross-line Next links are installed — walking via GetNext after
// flattening would run straight past the end of the line into whatever
// follows it in the file.
func harvestData(l *parser.Line, dataMap *program.DataMap, dataVals *[]value.Value) {
	first := true
	for s := l.Head; s != nil; s = s.GetNext() {
		ds, ok := s.(*ast.DataStmt)
		if !ok {
			continue
		}
		if first {
			dataMap.Put(l.Number, len(*dataVals))
			first = false
		}
		*dataVals = append(*dataVals, ds.Values...)
	}
}

// spliceBranches walks the fully-flattened main chain once, recursing
// into every IfStmt/OnGotoStmt/OnGosubStmt/OnErrorStmt's nested
// Then/Else/Trap subchain so that falling off the end of one continues
// at whatever statement follows the branching statement itself, instead
// of dead-ending at nil (spec.md §4.4's fallthrough semantics).
func spliceBranches(head ast.Stmt, cont ast.Stmt, visited map[ast.Stmt]bool) {
	for s := head; s != nil; {
		if visited[s] {
			return
		}
		visited[s] = true

		next := s.GetNext()
		nestedCont := cont
		if next != nil {
			nestedCont = next
		}

		switch n := s.(type) {
		case *ast.IfStmt:
			spliceBranches(n.Then, nestedCont, visited)
			spliceBranches(n.Else, nestedCont, visited)
		case *ast.OnGotoStmt:
			spliceBranches(n.Else, nestedCont, visited)
		case *ast.OnGosubStmt:
			spliceBranches(n.Else, nestedCont, visited)
		case *ast.OnErrorStmt:
			spliceBranches(n.Trap, nestedCont, visited)
		}

		if next == nil {
			s.SetNext(cont)
			return
		}
		s = next
	}
}

// resolveDefs finds every DEF PROC/DEF FN in the flattened main chain,
// locates its body's terminator (ENDPROC or the "=" FnReturnStmt),
// registers a *runtime.ProcDef in sym, and rewires the DEF statement's
// own Next to AfterBody so linear fallthrough steps over the body
// (spec.md §4.3's procedure/function table).
func resolveDefs(entry ast.Stmt, sym *symtab.Table) error {
	for s := entry; s != nil; s = s.GetNext() {
		switch n := s.(type) {
		case *ast.DefProcStmt:
			body := n.GetNext()
			end := findEndProc(body)
			if end == nil {
				return bbcerr.NewFatal("DEF PROC %s: no matching ENDPROC", n.Name)
			}
			after := end.GetNext()
			sym.DefineGlobalProc(n.Name, &runtime.ProcDef{
				Params: n.Params, Body: body, AfterBody: after, IsFn: false,
			})
			n.SetNext(after)
		case *ast.DefFnStmt:
			if n.Body != nil {
				after := n.GetNext()
				sym.DefineGlobalProc(n.Name, &runtime.ProcDef{
					Params: n.Params, Body: n.Body, AfterBody: after, IsFn: true,
				})
				continue
			}
			body := n.GetNext()
			ret := findFnReturn(body)
			if ret == nil {
				return bbcerr.NewFatal("DEF FN%s: no \"=\" return statement", n.Name)
			}
			after := ret.GetNext()
			sym.DefineGlobalProc(n.Name, &runtime.ProcDef{
				Params: n.Params, Body: body, AfterBody: after, IsFn: true,
			})
			n.SetNext(after)
		}
	}
	return nil
}

func findEndProc(s ast.Stmt) *ast.EndProcStmt {
	for ; s != nil; s = s.GetNext() {
		if e, ok := s.(*ast.EndProcStmt); ok {
			return e
		}
	}
	return nil
}

func findFnReturn(s ast.Stmt) *ast.FnReturnStmt {
	for ; s != nil; s = s.GetNext() {
		if e, ok := s.(*ast.FnReturnStmt); ok {
			return e
		}
	}
	return nil
}
