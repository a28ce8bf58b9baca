// Package ast defines the syntax tree produced by the script parser.
//
// The tree is deliberately small: the language has no loops, no function
// definitions and no imports, so every program is a flat list of
// statements. String() on each node renders canonical source, which keeps
// parser tests and error messages readable.
package ast

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/shpitdev/reshape/pkg/script/lexer"
)

// Node is any node in the syntax tree.
type Node interface {
	TokenLiteral() string
	String() string
}

// Statement nodes appear at the top level of a program.
type Statement interface {
	Node
	statementNode()
}

// Expression nodes produce a value.
type Expression interface {
	Node
	expressionNode()
}

// Program is the root node: a sequence of statements separated by
// newlines or semicolons.
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer
	for _, s := range p.Statements {
		out.WriteString(s.String())
		out.WriteString("\n")
	}
	return out.String()
}

// AssignStatement represents `name = expr`.
type AssignStatement struct {
	Token lexer.Token // the identifier token
	Name  *Identifier
	Value Expression
}

func (as *AssignStatement) statementNode()       {}
func (as *AssignStatement) TokenLiteral() string { return as.Token.Literal }
func (as *AssignStatement) String() string {
	var out bytes.Buffer
	out.WriteString(as.Name.String())
	out.WriteString(" = ")
	if as.Value != nil {
		out.WriteString(as.Value.String())
	}
	return out.String()
}

// IndexAssignStatement represents `target[index] = expr`, e.g. setting a
// table column or a map key.
type IndexAssignStatement struct {
	Token  lexer.Token // the '=' token
	Target *IndexExpression
	Value  Expression
}

func (ias *IndexAssignStatement) statementNode()       {}
func (ias *IndexAssignStatement) TokenLiteral() string { return ias.Token.Literal }
func (ias *IndexAssignStatement) String() string {
	var out bytes.Buffer
	out.WriteString(ias.Target.String())
	out.WriteString(" = ")
	if ias.Value != nil {
		out.WriteString(ias.Value.String())
	}
	return out.String()
}

// ExpressionStatement is a bare expression at statement position.
type ExpressionStatement struct {
	Token      lexer.Token // first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String()
	}
	return ""
}

// Identifier is a variable reference.
type Identifier struct {
	Token lexer.Token
	Value string
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Literal }
func (i *Identifier) String() string       { return i.Value }

// IntegerLiteral is a whole-number literal.
type IntegerLiteral struct {
	Token lexer.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()      {}
func (il *IntegerLiteral) TokenLiteral() string { return il.Token.Literal }
func (il *IntegerLiteral) String() string       { return il.Token.Literal }

// FloatLiteral is a decimal literal.
type FloatLiteral struct {
	Token lexer.Token
	Value float64
}

func (fl *FloatLiteral) expressionNode()      {}
func (fl *FloatLiteral) TokenLiteral() string { return fl.Token.Literal }
func (fl *FloatLiteral) String() string       { return fl.Token.Literal }

// StringLiteral is a quoted string; Value holds the unescaped text.
type StringLiteral struct {
	Token lexer.Token
	Value string
}

func (sl *StringLiteral) expressionNode()      {}
func (sl *StringLiteral) TokenLiteral() string { return sl.Token.Literal }
func (sl *StringLiteral) String() string       { return strconv.Quote(sl.Value) }

// BooleanLiteral is `true` or `false`.
type BooleanLiteral struct {
	Token lexer.Token
	Value bool
}

func (bl *BooleanLiteral) expressionNode()      {}
func (bl *BooleanLiteral) TokenLiteral() string { return bl.Token.Literal }
func (bl *BooleanLiteral) String() string       { return bl.Token.Literal }

// NullLiteral is the `null` keyword.
type NullLiteral struct {
	Token lexer.Token
}

func (nl *NullLiteral) expressionNode()      {}
func (nl *NullLiteral) TokenLiteral() string { return nl.Token.Literal }
func (nl *NullLiteral) String() string       { return "null" }

// ListLiteral is `[e1, e2, ...]`.
type ListLiteral struct {
	Token    lexer.Token // the '[' token
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()      {}
func (ll *ListLiteral) TokenLiteral() string { return ll.Token.Literal }
func (ll *ListLiteral) String() string {
	var out bytes.Buffer
	elems := make([]string, 0, len(ll.Elements))
	for _, e := range ll.Elements {
		elems = append(elems, e.String())
	}
	out.WriteString("[")
	out.WriteString(strings.Join(elems, ", "))
	out.WriteString("]")
	return out.String()
}

// MapLiteral is `{k1: v1, k2: v2, ...}`. Keys and Values are parallel
// slices so source order survives into evaluation.
type MapLiteral struct {
	Token  lexer.Token // the '{' token
	Keys   []Expression
	Values []Expression
}

func (ml *MapLiteral) expressionNode()      {}
func (ml *MapLiteral) TokenLiteral() string { return ml.Token.Literal }
func (ml *MapLiteral) String() string {
	var out bytes.Buffer
	pairs := make([]string, 0, len(ml.Keys))
	for i, k := range ml.Keys {
		pairs = append(pairs, k.String()+": "+ml.Values[i].String())
	}
	out.WriteString("{")
	out.WriteString(strings.Join(pairs, ", "))
	out.WriteString("}")
	return out.String()
}

// PrefixExpression is `-expr` or `!expr`.
type PrefixExpression struct {
	Token    lexer.Token // the prefix token
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Literal }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

// InfixExpression is `left op right` for arithmetic, comparison and
// boolean operators.
type InfixExpression struct {
	Token    lexer.Token // the operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// IndexExpression is `left[index]`.
type IndexExpression struct {
	Token lexer.Token // the '[' token
	Left  Expression
	Index Expression
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Literal }
func (ie *IndexExpression) String() string {
	return "(" + ie.Left.String() + "[" + ie.Index.String() + "])"
}

// CallExpression is a free-function call `fn(args...)`; only builtins are
// callable this way.
type CallExpression struct {
	Token     lexer.Token // the '(' token
	Function  *Identifier
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Literal }
func (ce *CallExpression) String() string {
	args := make([]string, 0, len(ce.Arguments))
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}
	return ce.Function.String() + "(" + strings.Join(args, ", ") + ")"
}

// MethodCallExpression is `receiver.method(args...)`. Parentheses are
// mandatory; a bare `receiver.field` is a parse error.
type MethodCallExpression struct {
	Token     lexer.Token // the '.' token
	Receiver  Expression
	Method    string
	Arguments []Expression
}

func (mc *MethodCallExpression) expressionNode()      {}
func (mc *MethodCallExpression) TokenLiteral() string { return mc.Token.Literal }
func (mc *MethodCallExpression) String() string {
	args := make([]string, 0, len(mc.Arguments))
	for _, a := range mc.Arguments {
		args = append(args, a.String())
	}
	return mc.Receiver.String() + "." + mc.Method + "(" + strings.Join(args, ", ") + ")"
}
