// Package parser builds a syntax tree from script source using Pratt
// (top-down operator precedence) parsing.
//
// Statements are separated by newlines or semicolons. Newlines inside
// brackets are ignored, so generated code may format list, map and call
// arguments across lines. Only the first syntax error is reported;
// everything after it is usually cascading noise.
package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shpitdev/reshape/pkg/script/ast"
	"github.com/shpitdev/reshape/pkg/script/lexer"
)

// Operator precedence levels, lowest first.
const (
	_ int = iota
	LOWEST
	LOGICOR     // or
	LOGICAND    // and
	EQUALS      // == !=
	LESSGREATER // < > <= >=
	SUM         // + -
	PRODUCT     // * / %
	PREFIX      // -x !x
	INDEX       // x[i]
	CALL        // f(x) x.m()
)

var precedences = map[lexer.TokenType]int{
	lexer.OR:       LOGICOR,
	lexer.AND:      LOGICAND,
	lexer.EQ:       EQUALS,
	lexer.NOTEQ:    EQUALS,
	lexer.LT:       LESSGREATER,
	lexer.GT:       LESSGREATER,
	lexer.LE:       LESSGREATER,
	lexer.GE:       LESSGREATER,
	lexer.PLUS:     SUM,
	lexer.MINUS:    SUM,
	lexer.STAR:     PRODUCT,
	lexer.SLASH:    PRODUCT,
	lexer.PERCENT:  PRODUCT,
	lexer.LBRACKET: INDEX,
	lexer.DOT:      CALL,
	lexer.LPAREN:   CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

// Parser consumes tokens from a lexer and produces an *ast.Program.
type Parser struct {
	l *lexer.Lexer

	errs []string

	curToken  lexer.Token
	peekToken lexer.Token

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

// New returns a parser reading from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = map[lexer.TokenType]prefixParseFn{
		lexer.IDENT:    p.parseIdentifier,
		lexer.INT:      p.parseIntegerLiteral,
		lexer.FLOAT:    p.parseFloatLiteral,
		lexer.STRING:   p.parseStringLiteral,
		lexer.TRUE:     p.parseBooleanLiteral,
		lexer.FALSE:    p.parseBooleanLiteral,
		lexer.NULL:     p.parseNullLiteral,
		lexer.BANG:     p.parsePrefixExpression,
		lexer.MINUS:    p.parsePrefixExpression,
		lexer.LPAREN:   p.parseGroupedExpression,
		lexer.LBRACKET: p.parseListLiteral,
		lexer.LBRACE:   p.parseMapLiteral,
	}

	p.infixParseFns = map[lexer.TokenType]infixParseFn{
		lexer.PLUS:     p.parseInfixExpression,
		lexer.MINUS:    p.parseInfixExpression,
		lexer.STAR:     p.parseInfixExpression,
		lexer.SLASH:    p.parseInfixExpression,
		lexer.PERCENT:  p.parseInfixExpression,
		lexer.EQ:       p.parseInfixExpression,
		lexer.NOTEQ:    p.parseInfixExpression,
		lexer.LT:       p.parseInfixExpression,
		lexer.GT:       p.parseInfixExpression,
		lexer.LE:       p.parseInfixExpression,
		lexer.GE:       p.parseInfixExpression,
		lexer.AND:      p.parseInfixExpression,
		lexer.OR:       p.parseInfixExpression,
		lexer.LBRACKET: p.parseIndexExpression,
		lexer.LPAREN:   p.parseCallExpression,
		lexer.DOT:      p.parseMethodCallExpression,
	}

	// Prime curToken and peekToken.
	p.nextToken()
	p.nextToken()
	return p
}

// Parse is a convenience wrapper: it parses src and returns the program,
// or the first syntax error.
func Parse(src string) (*ast.Program, error) {
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, errors.New(errs[0])
	}
	return prog, nil
}

// Errors returns the recorded syntax errors. At most one is kept.
func (p *Parser) Errors() []string {
	return p.errs
}

// addError records a syntax error. Only the first is kept.
func (p *Parser) addError(line, column int, format string, args ...any) {
	if len(p.errs) > 0 {
		return
	}
	msg := fmt.Sprintf(format, args...)
	p.errs = append(p.errs, fmt.Sprintf("line %d, column %d: %s", line, column, msg))
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.Next()
}

// ParseProgram parses until EOF and returns the program. Statements must
// be separated by newlines or semicolons.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{Statements: []ast.Statement{}}

	for !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.NEWLINE) || p.curTokenIs(lexer.SEMICOLON) {
			p.nextToken()
			continue
		}
		stmt := p.parseStatement()
		if len(p.errs) > 0 {
			break
		}
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
		p.nextToken()
		if !p.curTokenIs(lexer.NEWLINE) && !p.curTokenIs(lexer.SEMICOLON) && !p.curTokenIs(lexer.EOF) {
			p.addError(p.curToken.Line, p.curToken.Column,
				"unexpected %q after statement", p.curToken.Literal)
			break
		}
	}
	return program
}

func (p *Parser) parseStatement() ast.Statement {
	if p.curTokenIs(lexer.IDENT) && p.peekTokenIs(lexer.ASSIGN) {
		return p.parseAssignStatement()
	}
	return p.parseExpressionStatement()
}

func (p *Parser) parseAssignStatement() ast.Statement {
	stmt := &ast.AssignStatement{
		Token: p.curToken,
		Name:  &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal},
	}
	p.nextToken() // the '='
	p.nextToken()
	stmt.Value = p.parseExpression(LOWEST)
	return stmt
}

// parseExpressionStatement parses a bare expression. If the expression
// turns out to be an index target followed by '=', it becomes an index
// assignment instead, which is how `df["col"] = expr` parses.
func (p *Parser) parseExpressionStatement() ast.Statement {
	startToken := p.curToken
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}

	if p.peekTokenIs(lexer.ASSIGN) {
		target, ok := expr.(*ast.IndexExpression)
		if !ok {
			p.addError(p.peekToken.Line, p.peekToken.Column,
				"cannot assign to %s", expr.String())
			return nil
		}
		p.nextToken() // the '='
		stmt := &ast.IndexAssignStatement{Token: p.curToken, Target: target}
		p.nextToken()
		stmt.Value = p.parseExpression(LOWEST)
		return stmt
	}

	return &ast.ExpressionStatement{Token: startToken, Expression: expr}
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError()
		return nil
	}
	left := prefix()

	for !p.peekTokenIs(lexer.NEWLINE) && !p.peekTokenIs(lexer.SEMICOLON) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}
	value, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.addError(p.curToken.Line, p.curToken.Column,
			"could not parse %q as integer", p.curToken.Literal)
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	lit := &ast.FloatLiteral{Token: p.curToken}
	value, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.addError(p.curToken.Line, p.curToken.Column,
			"could not parse %q as number", p.curToken.Literal)
		return nil
	}
	lit.Value = value
	return lit
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	return &ast.BooleanLiteral{Token: p.curToken, Value: p.curTokenIs(lexer.TRUE)}
}

func (p *Parser) parseNullLiteral() ast.Expression {
	return &ast.NullLiteral{Token: p.curToken}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	expr := &ast.PrefixExpression{Token: p.curToken, Operator: p.curToken.Literal}
	p.nextToken()
	expr.Right = p.parseExpression(PREFIX)
	return expr
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expr := &ast.InfixExpression{
		Token:    p.curToken,
		Left:     left,
		Operator: p.curToken.Literal,
	}
	precedence := p.curPrecedence()
	p.nextToken()
	// A line may break after a binary operator.
	for p.curTokenIs(lexer.NEWLINE) {
		p.nextToken()
	}
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	for p.curTokenIs(lexer.NEWLINE) {
		p.nextToken()
	}
	expr := p.parseExpression(LOWEST)
	p.skipPeekNewlines()
	if !p.expectPeek(lexer.RPAREN) {
		return nil
	}
	return expr
}

func (p *Parser) parseListLiteral() ast.Expression {
	lit := &ast.ListLiteral{Token: p.curToken}
	lit.Elements = p.parseExpressionList(lexer.RBRACKET)
	return lit
}

func (p *Parser) parseMapLiteral() ast.Expression {
	lit := &ast.MapLiteral{Token: p.curToken}

	p.skipPeekNewlines()
	if p.peekTokenIs(lexer.RBRACE) {
		p.nextToken()
		return lit
	}

	for {
		p.nextToken()
		key := p.parseExpression(LOWEST)
		if key == nil {
			return nil
		}
		if !p.expectPeek(lexer.COLON) {
			return nil
		}
		p.nextToken()
		value := p.parseExpression(LOWEST)
		if value == nil {
			return nil
		}
		lit.Keys = append(lit.Keys, key)
		lit.Values = append(lit.Values, value)

		p.skipPeekNewlines()
		if !p.peekTokenIs(lexer.COMMA) {
			break
		}
		p.nextToken() // the ','
		p.skipPeekNewlines()
		if p.peekTokenIs(lexer.RBRACE) { // trailing comma
			break
		}
	}

	if !p.expectPeek(lexer.RBRACE) {
		return nil
	}
	return lit
}

func (p *Parser) parseIndexExpression(left ast.Expression) ast.Expression {
	expr := &ast.IndexExpression{Token: p.curToken, Left: left}
	p.nextToken()
	expr.Index = p.parseExpression(LOWEST)
	if !p.expectPeek(lexer.RBRACKET) {
		return nil
	}
	return expr
}

// parseCallExpression handles `fn(args)`. Only identifiers are callable;
// the callable set is the builtin functions bound at execution time.
func (p *Parser) parseCallExpression(fn ast.Expression) ast.Expression {
	ident, ok := fn.(*ast.Identifier)
	if !ok {
		p.addError(p.curToken.Line, p.curToken.Column,
			"%s is not callable", fn.String())
		return nil
	}
	expr := &ast.CallExpression{Token: p.curToken, Function: ident}
	expr.Arguments = p.parseExpressionList(lexer.RPAREN)
	return expr
}

// parseMethodCallExpression handles `receiver.method(args)`. A bare
// `receiver.field` without parentheses is a syntax error.
func (p *Parser) parseMethodCallExpression(receiver ast.Expression) ast.Expression {
	expr := &ast.MethodCallExpression{Token: p.curToken, Receiver: receiver}
	if !p.expectPeek(lexer.IDENT) {
		return nil
	}
	expr.Method = p.curToken.Literal
	if !p.expectPeek(lexer.LPAREN) {
		return nil
	}
	expr.Arguments = p.parseExpressionList(lexer.RPAREN)
	return expr
}

// parseExpressionList parses comma-separated expressions up to end.
// Newlines between elements are skipped and a trailing comma is allowed.
func (p *Parser) parseExpressionList(end lexer.TokenType) []ast.Expression {
	list := []ast.Expression{}

	p.skipPeekNewlines()
	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	first := p.parseExpression(LOWEST)
	if first == nil {
		return nil
	}
	list = append(list, first)

	p.skipPeekNewlines()
	for p.peekTokenIs(lexer.COMMA) {
		p.nextToken() // the ','
		p.skipPeekNewlines()
		if p.peekTokenIs(end) { // trailing comma
			break
		}
		p.nextToken()
		elem := p.parseExpression(LOWEST)
		if elem == nil {
			return nil
		}
		list = append(list, elem)
		p.skipPeekNewlines()
	}

	if !p.expectPeek(end) {
		return nil
	}
	return list
}

func (p *Parser) skipPeekNewlines() {
	for p.peekTokenIs(lexer.NEWLINE) {
		p.nextToken()
	}
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t lexer.TokenType) {
	got := p.peekToken.Literal
	if got == "" {
		got = p.peekToken.Type.String()
	}
	p.addError(p.peekToken.Line, p.peekToken.Column, "expected %s, got %q", t, got)
}

func (p *Parser) noPrefixParseFnError() {
	got := p.curToken.Literal
	if got == "" {
		got = p.curToken.Type.String()
	}
	p.addError(p.curToken.Line, p.curToken.Column, "unexpected %q", got)
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}
