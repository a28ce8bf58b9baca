package parser

import (
	"strings"
	"testing"

	"github.com/shpitdev/reshape/pkg/script/ast"
	"github.com/shpitdev/reshape/pkg/script/lexer"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse %q: %v", src, errs)
	}
	return prog
}

func TestAssignStatement(t *testing.T) {
	t.Parallel()

	prog := parseProgram(t, "age = 42")
	if len(prog.Statements) != 1 {
		t.Fatalf("statements = %d, want 1", len(prog.Statements))
	}
	stmt, ok := prog.Statements[0].(*ast.AssignStatement)
	if !ok {
		t.Fatalf("statement is %T, want *ast.AssignStatement", prog.Statements[0])
	}
	if stmt.Name.Value != "age" {
		t.Fatalf("name = %q, want %q", stmt.Name.Value, "age")
	}
	lit, ok := stmt.Value.(*ast.IntegerLiteral)
	if !ok {
		t.Fatalf("value is %T, want *ast.IntegerLiteral", stmt.Value)
	}
	if lit.Value != 42 {
		t.Fatalf("value = %d, want 42", lit.Value)
	}
}

func TestIndexAssignStatement(t *testing.T) {
	t.Parallel()

	prog := parseProgram(t, `df["Age"] = 0`)
	stmt, ok := prog.Statements[0].(*ast.IndexAssignStatement)
	if !ok {
		t.Fatalf("statement is %T, want *ast.IndexAssignStatement", prog.Statements[0])
	}
	if got := stmt.Target.String(); got != `(df["Age"])` {
		t.Fatalf("target = %q", got)
	}
	if lit, ok := stmt.Value.(*ast.IntegerLiteral); !ok || lit.Value != 0 {
		t.Fatalf("value = %#v, want integer 0", stmt.Value)
	}
}

func TestOperatorPrecedence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input string
		want  string
	}{
		{"-a * b", "((-a) * b)"},
		{"!ok == false", "((!ok) == false)"},
		{"a + b * c", "(a + (b * c))"},
		{"a * b + c", "((a * b) + c)"},
		{"a + b - c", "((a + b) - c)"},
		{"a % b * c", "((a % b) * c)"},
		{"(a + b) * c", "((a + b) * c)"},
		{"a > 1 and b < 2 or c == 3", "(((a > 1) and (b < 2)) or (c == 3))"},
		{"a >= 1 or b <= 2", "((a >= 1) or (b <= 2))"},
		{"a + b[0]", "(a + (b[0]))"},
		{"df.rowCount() + 1", "(df.rowCount() + 1)"},
		{"len(xs) * 2", "(len(xs) * 2)"},
		{"a != b == c", "((a != b) == c)"},
	}

	for _, tc := range cases {
		prog := parseProgram(t, tc.input)
		if len(prog.Statements) != 1 {
			t.Fatalf("%q: statements = %d, want 1", tc.input, len(prog.Statements))
		}
		got := prog.Statements[0].String()
		if got != tc.want {
			t.Fatalf("%q: parsed as %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestMethodCallChain(t *testing.T) {
	t.Parallel()

	prog := parseProgram(t, `df.dropNulls("Age").rowCount()`)
	stmt := prog.Statements[0].(*ast.ExpressionStatement)
	outer, ok := stmt.Expression.(*ast.MethodCallExpression)
	if !ok {
		t.Fatalf("expression is %T, want *ast.MethodCallExpression", stmt.Expression)
	}
	if outer.Method != "rowCount" || len(outer.Arguments) != 0 {
		t.Fatalf("outer call = %s(%d args)", outer.Method, len(outer.Arguments))
	}
	inner, ok := outer.Receiver.(*ast.MethodCallExpression)
	if !ok {
		t.Fatalf("receiver is %T, want *ast.MethodCallExpression", outer.Receiver)
	}
	if inner.Method != "dropNulls" || len(inner.Arguments) != 1 {
		t.Fatalf("inner call = %s(%d args)", inner.Method, len(inner.Arguments))
	}
	if arg, ok := inner.Arguments[0].(*ast.StringLiteral); !ok || arg.Value != "Age" {
		t.Fatalf("inner arg = %#v, want string \"Age\"", inner.Arguments[0])
	}
}

func TestCallExpression(t *testing.T) {
	t.Parallel()

	prog := parseProgram(t, "round(3.25, 1)")
	stmt := prog.Statements[0].(*ast.ExpressionStatement)
	call, ok := stmt.Expression.(*ast.CallExpression)
	if !ok {
		t.Fatalf("expression is %T, want *ast.CallExpression", stmt.Expression)
	}
	if call.Function.Value != "round" {
		t.Fatalf("function = %q, want round", call.Function.Value)
	}
	if len(call.Arguments) != 2 {
		t.Fatalf("arguments = %d, want 2", len(call.Arguments))
	}
}

func TestListAndMapLiterals(t *testing.T) {
	t.Parallel()

	prog := parseProgram(t, `x = [1, "two", 3.5, null]`)
	list := prog.Statements[0].(*ast.AssignStatement).Value.(*ast.ListLiteral)
	if len(list.Elements) != 4 {
		t.Fatalf("elements = %d, want 4", len(list.Elements))
	}

	prog = parseProgram(t, `m = {"a": 1, "b": [2, 3]}`)
	mp := prog.Statements[0].(*ast.AssignStatement).Value.(*ast.MapLiteral)
	if len(mp.Keys) != 2 || len(mp.Values) != 2 {
		t.Fatalf("pairs = %d/%d, want 2/2", len(mp.Keys), len(mp.Values))
	}
	if key, ok := mp.Keys[0].(*ast.StringLiteral); !ok || key.Value != "a" {
		t.Fatalf("first key = %#v, want \"a\"", mp.Keys[0])
	}
}

func TestMultiLineLiterals(t *testing.T) {
	t.Parallel()

	src := `result = {
	"model": model.name(),
	"features": [
		"Salary",
		"Age",
	],
}`
	prog := parseProgram(t, src)
	if len(prog.Statements) != 1 {
		t.Fatalf("statements = %d, want 1", len(prog.Statements))
	}
	mp := prog.Statements[0].(*ast.AssignStatement).Value.(*ast.MapLiteral)
	if len(mp.Keys) != 2 {
		t.Fatalf("pairs = %d, want 2", len(mp.Keys))
	}
	list := mp.Values[1].(*ast.ListLiteral)
	if len(list.Elements) != 2 {
		t.Fatalf("list elements = %d, want 2", len(list.Elements))
	}
}

func TestMultiLineCallArguments(t *testing.T) {
	t.Parallel()

	src := "df = df.filter(\n\t\"Age\",\n\t\">\",\n\t30\n)"
	prog := parseProgram(t, src)
	call := prog.Statements[0].(*ast.AssignStatement).Value.(*ast.MethodCallExpression)
	if call.Method != "filter" || len(call.Arguments) != 3 {
		t.Fatalf("call = %s(%d args), want filter(3 args)", call.Method, len(call.Arguments))
	}
}

func TestStatementSeparators(t *testing.T) {
	t.Parallel()

	src := "a = 1; b = 2\n\n# comment line\nc = 3"
	prog := parseProgram(t, src)
	if len(prog.Statements) != 3 {
		t.Fatalf("statements = %d, want 3", len(prog.Statements))
	}
}

func TestEmptyProgram(t *testing.T) {
	t.Parallel()

	for _, src := range []string{"", "\n\n", "# only a comment\n", "  \t "} {
		prog := parseProgram(t, src)
		if len(prog.Statements) != 0 {
			t.Fatalf("%q: statements = %d, want 0", src, len(prog.Statements))
		}
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input   string
		wantSub string
	}{
		// Method calls require parentheses; only names and index targets
		// are assignable; statements need a separator between them.
		{"x = = 5", `unexpected "="`},
		{"df.rowCount\n", "expected"},
		{"1 = 2", "cannot assign"},
		{"df.rowCount() = 5", "cannot assign"},
		{"x = 1 2", `unexpected "2"`},
		{"x = [1, 2", "expected"},
		{"m = {\"a\" 1}", "expected"},
		{"x = @", `unexpected "@"`},
		{"x = (1 + 2", "expected"},
	}

	for _, tc := range cases {
		p := New(lexer.New(tc.input))
		p.ParseProgram()
		errs := p.Errors()
		if len(errs) == 0 {
			t.Fatalf("%q: expected a parse error", tc.input)
		}
		if len(errs) != 1 {
			t.Fatalf("%q: got %d errors, want 1: %v", tc.input, len(errs), errs)
		}
		if !strings.Contains(errs[0], tc.wantSub) {
			t.Fatalf("%q: error %q does not mention %q", tc.input, errs[0], tc.wantSub)
		}
	}
}

func TestErrorsIncludePosition(t *testing.T) {
	t.Parallel()

	p := New(lexer.New("ok = true\nx = = 1"))
	p.ParseProgram()
	errs := p.Errors()
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want exactly one", errs)
	}
	if !strings.HasPrefix(errs[0], "line 2") {
		t.Fatalf("error %q should point at line 2", errs[0])
	}
}

func TestParseHelper(t *testing.T) {
	t.Parallel()

	prog, err := Parse("x = 1 + 2")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Statements) != 1 {
		t.Fatalf("statements = %d, want 1", len(prog.Statements))
	}

	if _, err := Parse("x = ="); err == nil {
		t.Fatal("Parse should fail on invalid input")
	}
}
