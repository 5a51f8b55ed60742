// Package ast defines the expression and statement node shapes the
// lexer/parser builds and the runtime evaluator walks. Expr and Stmt use
// the visitor shape the teacher's own AST uses, generalized to BBC
// BASIC II's node set (spec.md §3).
package ast

import "bbasic/internal/value"

// Expr is one node of an expression tree. Argument lists chain through
// Next so a call's arguments are Expr.Next-linked, per spec.md §3.
type Expr interface {
	Accept(v ExprVisitor) (value.Value, error)
	// GetNext/SetNext thread an expression chain (argument lists).
	GetNext() Expr
	SetNext(e Expr)
}

type exprBase struct {
	next Expr
}

func (b *exprBase) GetNext() Expr  { return b.next }
func (b *exprBase) SetNext(e Expr) { b.next = e }

// ConstExpr is a literal constant.
type ConstExpr struct {
	exprBase
	Value value.Value
}

func (e *ConstExpr) Accept(v ExprVisitor) (value.Value, error) { return v.VisitConst(e) }

// VarExpr references a scalar variable (or pseudo-variable) by name.
type VarExpr struct {
	exprBase
	Name string
}

func (e *VarExpr) Accept(v ExprVisitor) (value.Value, error) { return v.VisitVar(e) }

// ArrayRefExpr reads one element of an array; Subscripts is an
// Expr-chain of index expressions.
type ArrayRefExpr struct {
	exprBase
	Name       string
	Subscripts Expr
}

func (e *ArrayRefExpr) Accept(v ExprVisitor) (value.Value, error) { return v.VisitArrayRef(e) }

// UnaryExpr is a prefix operator: '-' or NOT.
type UnaryExpr struct {
	exprBase
	Op      string
	Operand Expr
}

func (e *UnaryExpr) Accept(v ExprVisitor) (value.Value, error) { return v.VisitUnary(e) }

// BinaryExpr is an infix operator.
type BinaryExpr struct {
	exprBase
	Op          string
	Left, Right Expr
}

func (e *BinaryExpr) Accept(v ExprVisitor) (value.Value, error) { return v.VisitBinary(e) }

// BuiltinCallExpr invokes one of the 40 built-in functions; Args chains
// the argument expressions.
type BuiltinCallExpr struct {
	exprBase
	Name string
	Args Expr
}

func (e *BuiltinCallExpr) Accept(v ExprVisitor) (value.Value, error) { return v.VisitBuiltinCall(e) }

// FnCallExpr invokes a user DEF FN; Args chains the argument expressions.
type FnCallExpr struct {
	exprBase
	Name string
	Args Expr
}

func (e *FnCallExpr) Accept(v ExprVisitor) (value.Value, error) { return v.VisitFnCall(e) }

// ExprVisitor is implemented by the runtime evaluator (spec.md §4.2).
type ExprVisitor interface {
	VisitConst(*ConstExpr) (value.Value, error)
	VisitVar(*VarExpr) (value.Value, error)
	VisitArrayRef(*ArrayRefExpr) (value.Value, error)
	VisitUnary(*UnaryExpr) (value.Value, error)
	VisitBinary(*BinaryExpr) (value.Value, error)
	VisitBuiltinCall(*BuiltinCallExpr) (value.Value, error)
	VisitFnCall(*FnCallExpr) (value.Value, error)
}

// ExprList converts an Expr chain (via Next) into a slice, nil-safe.
func ExprList(head Expr) []Expr {
	var out []Expr
	for e := head; e != nil; e = e.GetNext() {
		out = append(out, e)
	}
	return out
}

// ChainExprs links a slice of expressions into a Next-chain and returns
// its head (nil if empty).
func ChainExprs(exprs []Expr) Expr {
	for i := 0; i < len(exprs)-1; i++ {
		exprs[i].SetNext(exprs[i+1])
	}
	if len(exprs) == 0 {
		return nil
	}
	return exprs[0]
}
