package runtime

import "bbasic/internal/ast"

// ProcDef is what a DEF PROC/DEF FN symbol's Proc field carries (spec.md
// §4.3). The driver resolves Body/AfterBody once at build time and
// registers one ProcDef per definition via symtab.DefineGlobalProc.
type ProcDef struct {
	Params    []string
	Body      ast.Stmt
	AfterBody ast.Stmt
	IsFn      bool
}
