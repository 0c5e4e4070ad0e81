// ==============================================================================================
// FILE: internal/parser/parser.go
// ==============================================================================================
// PACKAGE: parser
// PURPOSE: Recursive-descent parser with precedence-climbing expressions. Converts a Lexer's
//          token stream into an *ast.Module through a curToken/peekToken cursor with single
//          lookahead. The expression grammar is a fixed ladder of precedence levels rather
//          than a prefix/infix function table, since the surface language's operator set is
//          small and closed.
// ==============================================================================================

package parser

import (
	"fmt"
	"strconv"

	"pyrinas/internal/ast"
	"pyrinas/internal/lexer"
	"pyrinas/internal/token"
)

// Parser holds the state of the parsing process. The first error encountered
// is sticky: once set, further parse calls still run (to keep the recursive
// descent simple) but ParseModule reports failure and discards the tree.
type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	err string
}

// New initializes a Parser over l, priming curToken/peekToken.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(k token.Kind) bool  { return p.curToken.Kind == k }
func (p *Parser) peekTokenIs(k token.Kind) bool { return p.peekToken.Kind == k }

func (p *Parser) fail(format string, args ...interface{}) {
	if p.err == "" {
		p.err = fmt.Sprintf(format, args...)
	}
}

func (p *Parser) hasError() bool { return p.err != "" }

// expect requires the current token to have kind k, consumes it, and
// records a parse error (without consuming) if it does not.
func (p *Parser) expect(k token.Kind, message string) bool {
	if p.curTokenIs(k) {
		p.nextToken()
		return true
	}
	p.fail(message)
	return false
}

func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

// ParseModule parses the entire token stream into a Module. On the first
// parse error it returns (nil, error): a null tree, never a partial one.
func (p *Parser) ParseModule() (*ast.Module, error) {
	var body []ast.Stmt

	p.skipNewlines()
	for !p.curTokenIs(token.EOF) && !p.hasError() {
		if p.curTokenIs(token.ERROR) {
			p.fail(p.curToken.Lexeme)
			break
		}
		stmt := p.parseStatement()
		if p.hasError() {
			break
		}
		if stmt != nil {
			body = append(body, stmt)
		}
		p.skipNewlines()
	}

	if p.hasError() {
		return nil, fmt.Errorf("%s", p.err)
	}
	return &ast.Module{Body: body}, nil
}

// ----------------------------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------------------------

func (p *Parser) parseStatement() ast.Stmt {
	switch p.curToken.Kind {
	case token.DEF:
		return p.parseFunctionDef()
	case token.CLASS:
		return p.parseClassDef()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.FOR:
		return p.parseFor()
	case token.RETURN:
		return p.parseReturn()
	case token.BREAK:
		line := p.curToken.Line
		p.nextToken()
		return &ast.Break{LineNo: line}
	case token.CONTINUE:
		line := p.curToken.Line
		p.nextToken()
		return &ast.Continue{LineNo: line}
	case token.PASS:
		line := p.curToken.Line
		p.nextToken()
		return &ast.Pass{LineNo: line}
	case token.ELIF, token.MATCH, token.CASE, token.IMPORT, token.FROM, token.AS:
		p.fail("Unexpected token in expression")
		return nil
	default:
		return p.parseExprOrAssignStatement()
	}
}

// parseBlock requires ':' to already be consumed. It skips NEWLINEs, expects
// exactly one INDENT, accumulates statements until a DEDENT, and consumes
// the DEDENT.
func (p *Parser) parseBlock() []ast.Stmt {
	p.skipNewlines()
	if !p.expect(token.INDENT, "Expected indented block after ':'") {
		return nil
	}

	var body []ast.Stmt
	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) && !p.hasError() {
		if p.curTokenIs(token.ERROR) {
			p.fail(p.curToken.Lexeme)
			return body
		}
		stmt := p.parseStatement()
		if p.hasError() {
			return body
		}
		if stmt != nil {
			body = append(body, stmt)
		}
		p.skipNewlines()
	}

	p.expect(token.DEDENT, "Expected dedent after block")
	return body
}

func (p *Parser) parseFunctionDef() ast.Stmt {
	line := p.curToken.Line
	p.nextToken() // consume 'def'

	if !p.curTokenIs(token.IDENTIFIER) {
		p.fail("Expected function name")
		return nil
	}
	name := p.curToken.Lexeme
	p.nextToken()

	if !p.expect(token.LPAREN, "Expected '(' after function name") {
		return nil
	}
	args := p.parseArguments()
	if p.hasError() {
		return nil
	}
	if !p.expect(token.RPAREN, "Expected ')' after parameters") {
		return nil
	}

	var returns ast.Expr
	if p.curTokenIs(token.ARROW) {
		p.nextToken()
		returns = p.parseTypeAnnotation()
		if p.hasError() {
			return nil
		}
	}

	if !p.expect(token.COLON, "Expected ':' after function signature") {
		return nil
	}

	body := p.parseBlock()
	if p.hasError() {
		return nil
	}

	return &ast.FunctionDef{LineNo: line, Name: name, Args: args, Returns: returns, Body: body}
}

func (p *Parser) parseArguments() *ast.Arguments {
	args := &ast.Arguments{}
	if p.curTokenIs(token.RPAREN) {
		return args
	}
	for {
		if !p.curTokenIs(token.IDENTIFIER) {
			p.fail("Expected parameter name")
			return args
		}
		arg := &ast.Arg{LineNo: p.curToken.Line, Name: p.curToken.Lexeme}
		p.nextToken()

		if p.curTokenIs(token.COLON) {
			p.nextToken()
			arg.Annotation = p.parseTypeAnnotation()
			if p.hasError() {
				return args
			}
		}
		args.Args = append(args.Args, arg)

		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	return args
}

func (p *Parser) parseClassDef() ast.Stmt {
	line := p.curToken.Line
	p.nextToken() // consume 'class'

	if !p.curTokenIs(token.IDENTIFIER) {
		p.fail("Expected class name")
		return nil
	}
	name := p.curToken.Lexeme
	p.nextToken()

	var bases []ast.Expr
	if p.curTokenIs(token.LPAREN) {
		p.nextToken()
		if !p.curTokenIs(token.RPAREN) {
			for {
				base := p.parseExpression()
				if p.hasError() {
					return nil
				}
				bases = append(bases, base)
				if !p.curTokenIs(token.COMMA) {
					break
				}
				p.nextToken()
			}
		}
		if !p.expect(token.RPAREN, "Expected ')' after base classes") {
			return nil
		}
	}

	if !p.expect(token.COLON, "Expected ':' after class name") {
		return nil
	}

	body := p.parseBlock()
	if p.hasError() {
		return nil
	}

	return &ast.ClassDef{LineNo: line, Name: name, Bases: bases, Body: body}
}

func (p *Parser) parseIf() ast.Stmt {
	line := p.curToken.Line
	p.nextToken() // consume 'if'

	test := p.parseExpression()
	if p.hasError() {
		return nil
	}
	if !p.expect(token.COLON, "Expected ':' after if condition") {
		return nil
	}
	body := p.parseBlock()
	if p.hasError() {
		return nil
	}

	var orelse []ast.Stmt
	if p.curTokenIs(token.ELSE) {
		p.nextToken()
		if !p.expect(token.COLON, "Expected ':' after 'else'") {
			return nil
		}
		orelse = p.parseBlock()
		if p.hasError() {
			return nil
		}
	}

	return &ast.If{LineNo: line, Test: test, Body: body, Orelse: orelse}
}

func (p *Parser) parseWhile() ast.Stmt {
	line := p.curToken.Line
	p.nextToken() // consume 'while'

	test := p.parseExpression()
	if p.hasError() {
		return nil
	}
	if !p.expect(token.COLON, "Expected ':' after while condition") {
		return nil
	}
	body := p.parseBlock()
	if p.hasError() {
		return nil
	}
	return &ast.While{LineNo: line, Test: test, Body: body}
}

func (p *Parser) parseFor() ast.Stmt {
	line := p.curToken.Line
	p.nextToken() // consume 'for'

	target := p.parseExpression()
	if p.hasError() {
		return nil
	}
	if !p.expect(token.IN, "Expected 'in' after for variable") {
		return nil
	}
	iter := p.parseExpression()
	if p.hasError() {
		return nil
	}
	if !p.expect(token.COLON, "Expected ':' after for clause") {
		return nil
	}
	body := p.parseBlock()
	if p.hasError() {
		return nil
	}
	return &ast.For{LineNo: line, Target: target, Iter: iter, Body: body}
}

func (p *Parser) parseReturn() ast.Stmt {
	line := p.curToken.Line
	p.nextToken() // consume 'return'

	var value ast.Expr
	if !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.EOF) && !p.curTokenIs(token.DEDENT) {
		value = p.parseExpression()
		if p.hasError() {
			return nil
		}
	}
	return &ast.Return{LineNo: line, Value: value}
}

// parseExprOrAssignStatement handles expression-led statements: after
// parsing the head expression, a trailing ':' makes it an AnnAssign, a
// trailing '=' makes it an Assign, otherwise it's a bare ExprStmt.
func (p *Parser) parseExprOrAssignStatement() ast.Stmt {
	line := p.curToken.Line
	head := p.parseExpression()
	if p.hasError() {
		return nil
	}

	if p.curTokenIs(token.COLON) {
		p.nextToken()
		annotation := p.parseTypeAnnotation()
		if p.hasError() {
			return nil
		}
		var value ast.Expr
		if p.curTokenIs(token.ASSIGN) {
			p.nextToken()
			value = p.parseExpression()
			if p.hasError() {
				return nil
			}
		}
		return &ast.AnnAssign{LineNo: line, Target: head, Annotation: annotation, Value: value}
	}

	if p.curTokenIs(token.ASSIGN) {
		p.nextToken()
		value := p.parseExpression()
		if p.hasError() {
			return nil
		}
		return &ast.Assign{LineNo: line, Targets: []ast.Expr{head}, Value: value}
	}

	return &ast.ExprStmt{LineNo: line, Value: head}
}

// ----------------------------------------------------------------------------------------------
// Type annotations
// ----------------------------------------------------------------------------------------------

// parseTypeAnnotation accepts (a) an identifier, (b) an identifier followed
// by `[ident]` or `[ident, NUMBER]`, or (c) a string literal treated as a
// deferred type name. A failure here is a hard parse error.
func (p *Parser) parseTypeAnnotation() ast.Expr {
	if p.curTokenIs(token.STRING) {
		lit := &ast.Constant{LineNo: p.curToken.Line, Kind: ast.ConstStr, Str: p.curToken.Lexeme}
		p.nextToken()
		return lit
	}

	if !p.curTokenIs(token.IDENTIFIER) {
		p.fail("Expected type annotation")
		return nil
	}
	name := &ast.Name{LineNo: p.curToken.Line, Id: p.curToken.Lexeme, Ctx: ast.Load}
	p.nextToken()

	if !p.curTokenIs(token.LBRACKET) {
		return name
	}
	p.nextToken() // consume '['

	if !p.curTokenIs(token.IDENTIFIER) {
		p.fail("Expected type argument")
		return nil
	}
	inner := &ast.Name{LineNo: p.curToken.Line, Id: p.curToken.Lexeme, Ctx: ast.Load}
	p.nextToken()

	var slice ast.Expr = inner
	if p.curTokenIs(token.COMMA) {
		p.nextToken()
		if !p.curTokenIs(token.NUMBER) {
			p.fail("Expected size after ','")
			return nil
		}
		n, err := strconv.ParseInt(p.curToken.Lexeme, 10, 64)
		if err != nil {
			p.fail("Expected size after ','")
			return nil
		}
		size := &ast.Constant{LineNo: p.curToken.Line, Kind: ast.ConstInt, Int: n}
		p.nextToken()
		slice = &ast.Subscript{LineNo: inner.LineNo, Value: inner, Slice: size}
	}

	if !p.expect(token.RBRACKET, "Expected ']' in type annotation") {
		return nil
	}

	return &ast.Subscript{LineNo: name.LineNo, Value: name, Slice: slice}
}

// ----------------------------------------------------------------------------------------------
// Expressions — precedence ladder, lowest to highest: or, and, not, comparison, additive,
// multiplicative, unary, primary (with postfix call/attribute/subscript chains).
// ----------------------------------------------------------------------------------------------

func (p *Parser) parseExpression() ast.Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for !p.hasError() && p.curTokenIs(token.OR) {
		p.nextToken()
		right := p.parseAnd()
		left = &ast.BoolOp{LineNo: left.Line(), Op: ast.BoolOr, Values: []ast.Expr{left, right}}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseNot()
	for !p.hasError() && p.curTokenIs(token.AND) {
		p.nextToken()
		right := p.parseNot()
		left = &ast.BoolOp{LineNo: left.Line(), Op: ast.BoolAnd, Values: []ast.Expr{left, right}}
	}
	return left
}

func (p *Parser) parseNot() ast.Expr {
	if p.curTokenIs(token.NOT) {
		line := p.curToken.Line
		p.nextToken()
		operand := p.parseNot()
		return &ast.UnaryOp{LineNo: line, Op: ast.Not, Operand: operand}
	}
	return p.parseComparison()
}

var cmpOps = map[token.Kind]ast.CmpOp{
	token.EQ: ast.CmpEq,
	token.NE: ast.CmpNotEq,
	token.LT: ast.CmpLt,
	token.LE: ast.CmpLtE,
	token.GT: ast.CmpGt,
	token.GE: ast.CmpGtE,
}

// parseComparison parses a chain `a op b op c ...` as a single Compare node;
// the single-operator case is the common one.
func (p *Parser) parseComparison() ast.Expr {
	left := p.parseAdditive()
	if p.hasError() {
		return left
	}

	op, isCmp := cmpOps[p.curToken.Kind]
	if !isCmp {
		return left
	}

	cmp := &ast.Compare{LineNo: left.Line(), Left: left}
	for {
		op, isCmp = cmpOps[p.curToken.Kind]
		if !isCmp {
			break
		}
		p.nextToken()
		right := p.parseAdditive()
		if p.hasError() {
			return cmp
		}
		cmp.Ops = append(cmp.Ops, op)
		cmp.Comparators = append(cmp.Comparators, right)
	}
	return cmp
}

func (p *Parser) parseAdditive() ast.Expr {
	left := p.parseMultiplicative()
	for !p.hasError() && (p.curTokenIs(token.PLUS) || p.curTokenIs(token.MINUS)) {
		op := ast.Add
		if p.curTokenIs(token.MINUS) {
			op = ast.Sub
		}
		line := p.curToken.Line
		p.nextToken()
		right := p.parseMultiplicative()
		left = &ast.BinOp{LineNo: line, Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Expr {
	left := p.parseUnary()
	for !p.hasError() {
		var op ast.BinOpKind
		switch p.curToken.Kind {
		case token.STAR:
			op = ast.Mul
		case token.SLASH:
			op = ast.Div
		case token.PERCENT:
			op = ast.Mod
		case token.FLOORDIV:
			op = ast.FloorDiv
		default:
			return left
		}
		line := p.curToken.Line
		p.nextToken()
		right := p.parseUnary()
		left = &ast.BinOp{LineNo: line, Left: left, Op: op, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.curToken.Kind {
	case token.MINUS:
		line := p.curToken.Line
		p.nextToken()
		return &ast.UnaryOp{LineNo: line, Op: ast.USub, Operand: p.parseUnary()}
	case token.PLUS:
		line := p.curToken.Line
		p.nextToken()
		return &ast.UnaryOp{LineNo: line, Op: ast.UAdd, Operand: p.parseUnary()}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expr {
	line := p.curToken.Line
	var node ast.Expr

	switch p.curToken.Kind {
	case token.ERROR:
		p.fail(p.curToken.Lexeme)
		return nil
	case token.NUMBER:
		node = parseNumberLiteral(line, p.curToken.Lexeme)
		p.nextToken()
	case token.STRING:
		node = &ast.Constant{LineNo: line, Kind: ast.ConstStr, Str: p.curToken.Lexeme}
		p.nextToken()
	case token.TRUE:
		node = &ast.Constant{LineNo: line, Kind: ast.ConstBool, Bool: true}
		p.nextToken()
	case token.FALSE:
		node = &ast.Constant{LineNo: line, Kind: ast.ConstBool, Bool: false}
		p.nextToken()
	case token.NONE:
		node = &ast.Constant{LineNo: line, Kind: ast.ConstNone}
		p.nextToken()
	case token.IDENTIFIER:
		node = &ast.Name{LineNo: line, Id: p.curToken.Lexeme, Ctx: ast.Load}
		p.nextToken()
	case token.LPAREN:
		p.nextToken()
		node = p.parseExpression()
		if p.hasError() {
			return nil
		}
		if !p.expect(token.RPAREN, "Expected ')' after expression") {
			return nil
		}
	default:
		p.fail("Unexpected token in expression")
		return nil
	}

	for !p.hasError() {
		switch p.curToken.Kind {
		case token.LPAREN:
			node = p.parseCall(node)
		case token.DOT:
			node = p.parseAttribute(node)
		case token.LBRACKET:
			node = p.parseSubscript(node)
		default:
			return node
		}
	}
	return node
}

func parseNumberLiteral(line int, lexeme string) ast.Expr {
	if containsDot(lexeme) {
		f, _ := strconv.ParseFloat(lexeme, 64)
		return &ast.Constant{LineNo: line, Kind: ast.ConstFloat, Float: f}
	}
	n, _ := strconv.ParseInt(lexeme, 10, 64)
	return &ast.Constant{LineNo: line, Kind: ast.ConstInt, Int: n}
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

func (p *Parser) parseCall(fn ast.Expr) ast.Expr {
	line := p.curToken.Line
	p.nextToken() // consume '('

	var args []ast.Expr
	if !p.curTokenIs(token.RPAREN) {
		for {
			arg := p.parseExpression()
			if p.hasError() {
				return fn
			}
			args = append(args, arg)
			if !p.curTokenIs(token.COMMA) {
				break
			}
			p.nextToken()
		}
	}
	if !p.expect(token.RPAREN, "Expected ')' after arguments") {
		return fn
	}
	return &ast.Call{LineNo: line, Func: fn, Args: args}
}

func (p *Parser) parseAttribute(value ast.Expr) ast.Expr {
	p.nextToken() // consume '.'
	if !p.curTokenIs(token.IDENTIFIER) {
		p.fail("Expected attribute name after '.'")
		return value
	}
	attr := &ast.Attribute{LineNo: value.Line(), Value: value, Attr: p.curToken.Lexeme, Ctx: ast.Load}
	p.nextToken()
	return attr
}

func (p *Parser) parseSubscript(value ast.Expr) ast.Expr {
	p.nextToken() // consume '['
	slice := p.parseExpression()
	if p.hasError() {
		return value
	}
	if !p.expect(token.RBRACKET, "Expected ']' after subscript") {
		return value
	}
	return &ast.Subscript{LineNo: value.Line(), Value: value, Slice: slice, Ctx: ast.Load}
}
