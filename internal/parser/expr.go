package parser

import (
	"fmt"

	"bbasic/internal/ast"
	"bbasic/internal/lexer"
	"bbasic/internal/value"
)

func stringValue(s string) value.Value { return value.NewString(s) }

// builtinFuncs is the set of built-in function names that take a
// parenthesized argument list (spec.md §4.2's contract table, minus the
// "#"-suffixed channel functions and the ERR/ERL/TIME/COUNT pseudo-vars,
// which are parsed as plain variable references and special-cased by the
// runtime's variable lookup).
var builtinFuncs = map[string]bool{
	"ABS": true, "SGN": true, "INT": true,
	"ACS": true, "ASN": true, "ATN": true, "COS": true, "SIN": true, "TAN": true,
	"EXP": true, "SQR": true, "LN": true, "LOG": true, "DEG": true, "RAD": true,
	"RND": true, "ASC": true, "CHR$": true, "LEN": true, "STR$": true, "VAL": true,
	"STRING$": true, "SPC": true, "LEFT$": true, "RIGHT$": true, "MID$": true,
	"INSTR": true, "GET": true, "GET$": true, "INKEY": true, "INKEY$": true,
	"OPENIN": true, "OPENOUT": true, "OPENUP": true,
}

var hashFuncs = map[string]bool{"PTR": true, "EXT": true, "EOF": true, "BGET": true}

func (p *parser) parseExpr() (ast.Expr, error) { return p.parseOr() }

func (p *parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isIdent("OR") || p.isIdent("EOR") {
		op := p.advance().Text
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseCompare()
	if err != nil {
		return nil, err
	}
	for p.isIdent("AND") {
		p.advance()
		right, err := p.parseCompare()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

var compareOps = map[string]bool{"=": true, "<>": true, "<": true, ">": true, "<=": true, ">=": true}

func (p *parser) parseCompare() (ast.Expr, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.TokPunct && compareOps[p.cur().Text] {
		op := p.advance().Text
		right, err := p.parseAddSub()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAddSub() (ast.Expr, error) {
	left, err := p.parseMulDiv()
	if err != nil {
		return nil, err
	}
	for p.isPunct("+") || p.isPunct("-") {
		op := p.advance().Text
		right, err := p.parseMulDiv()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMulDiv() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("*") || p.isPunct("/") || p.isIdent("DIV") || p.isIdent("MOD") {
		op := p.advance().Text
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (ast.Expr, error) {
	if p.isPunct("-") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "-", Operand: operand}, nil
	}
	if p.isIdent("NOT") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: "NOT", Operand: operand}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (ast.Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.isPunct("^") {
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Op: "^", Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseExprList() ([]ast.Expr, error) {
	var args []ast.Expr
	if p.isPunct(")") {
		return args, nil
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.isPunct(",") {
			p.advance()
			continue
		}
		break
	}
	return args, nil
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()

	switch t.Kind {
	case lexer.TokNumber:
		p.advance()
		return &ast.ConstExpr{Value: t.Num}, nil
	case lexer.TokString:
		p.advance()
		return &ast.ConstExpr{Value: stringValue(t.Str)}, nil
	case lexer.TokFn:
		p.advance()
		if p.cur().Kind != lexer.TokIdent {
			return nil, fmt.Errorf("expected FN name")
		}
		name := p.advance().Text
		var args []ast.Expr
		if p.isPunct("(") {
			p.advance()
			var err error
			args, err = p.parseExprList()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
		return &ast.FnCallExpr{Name: name, Args: ast.ChainExprs(args)}, nil
	}

	if p.isPunct("(") {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	}

	if t.Kind != lexer.TokIdent {
		return nil, fmt.Errorf("unexpected token %q in expression", t.Text)
	}

	if hashFuncs[t.Text] {
		save := p.pos
		p.advance()
		if p.isPunct("#") {
			p.advance()
			if err := p.expectPunct("("); err != nil {
				return nil, err
			}
			args, err := p.parseExprList()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return &ast.BuiltinCallExpr{Name: t.Text + "#", Args: ast.ChainExprs(args)}, nil
		}
		p.pos = save
	}

	if builtinFuncs[t.Text] {
		p.advance()
		var args []ast.Expr
		if p.isPunct("(") {
			p.advance()
			var err error
			args, err = p.parseExprList()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
		return &ast.BuiltinCallExpr{Name: t.Text, Args: ast.ChainExprs(args)}, nil
	}

	name := p.advance().Text
	if p.isPunct("(") {
		p.advance()
		subs, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return &ast.ArrayRefExpr{Name: name, Subscripts: ast.ChainExprs(subs)}, nil
	}
	return &ast.VarExpr{Name: name}, nil
}
