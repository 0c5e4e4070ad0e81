// ==============================================================================================
// FILE: internal/parser/parser_test.go
// PURPOSE: Exercises the statement/expression grammar and the concrete scenarios from the
//          language's worked examples.
// ==============================================================================================
package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyrinas/internal/ast"
	"pyrinas/internal/lexer"
)

func parse(t *testing.T, input string) *ast.Module {
	t.Helper()
	p := New(lexer.New(input))
	mod, err := p.ParseModule()
	require.NoError(t, err)
	require.NotNil(t, mod)
	return mod
}

func parseErr(t *testing.T, input string) error {
	t.Helper()
	p := New(lexer.New(input))
	mod, err := p.ParseModule()
	require.Error(t, err)
	require.Nil(t, mod)
	return err
}

func TestMinimalProgram(t *testing.T) {
	mod := parse(t, "def main():\n    print(1)\n")
	require.Len(t, mod.Body, 1)
	fn, ok := mod.Body[0].(*ast.FunctionDef)
	require.True(t, ok)
	assert.Equal(t, "main", fn.Name)
	require.Len(t, fn.Body, 1)
	exprStmt, ok := fn.Body[0].(*ast.ExprStmt)
	require.True(t, ok)
	call, ok := exprStmt.Value.(*ast.Call)
	require.True(t, ok)
	assert.Equal(t, "print", call.Func.(*ast.Name).Id)
	assert.Len(t, call.Args, 1)
}

func TestAnnAssignWithValue(t *testing.T) {
	mod := parse(t, "def main():\n    x: int = 1\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	ann, ok := fn.Body[0].(*ast.AnnAssign)
	require.True(t, ok)
	assert.Equal(t, "x", ann.Target.(*ast.Name).Id)
	assert.Equal(t, "int", ann.Annotation.(*ast.Name).Id)
	assert.NotNil(t, ann.Value)
}

func TestAnnAssignWithoutValue(t *testing.T) {
	mod := parse(t, "class Point:\n    x: int\n    y: int\ndef main():\n    pass\n")
	cd := mod.Body[0].(*ast.ClassDef)
	require.Len(t, cd.Body, 2)
	f1 := cd.Body[0].(*ast.AnnAssign)
	assert.Nil(t, f1.Value)
}

func TestPlainAssign(t *testing.T) {
	mod := parse(t, "def main():\n    x = 1\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	assign, ok := fn.Body[0].(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "x", assign.Targets[0].(*ast.Name).Id)
}

func TestIfElse(t *testing.T) {
	mod := parse(t, "def main():\n    if 1 == 1:\n        pass\n    else:\n        pass\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	ifStmt, ok := fn.Body[0].(*ast.If)
	require.True(t, ok)
	assert.Len(t, ifStmt.Body, 1)
	assert.Len(t, ifStmt.Orelse, 1)
}

func TestWhileAndFor(t *testing.T) {
	mod := parse(t, "def main():\n    while 1 == 1:\n        pass\n    for i in range(3):\n        pass\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	require.Len(t, fn.Body, 2)
	_, isWhile := fn.Body[0].(*ast.While)
	assert.True(t, isWhile)
	forStmt, isFor := fn.Body[1].(*ast.For)
	require.True(t, isFor)
	assert.Equal(t, "i", forStmt.Target.(*ast.Name).Id)
}

func TestBreakContinueReturn(t *testing.T) {
	mod := parse(t, "def f() -> int:\n    while 1 == 1:\n        break\n        continue\n    return 1\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	require.Equal(t, "int", fn.Returns.(*ast.Name).Id)
	whileStmt := fn.Body[0].(*ast.While)
	_, isBreak := whileStmt.Body[0].(*ast.Break)
	assert.True(t, isBreak)
	_, isContinue := whileStmt.Body[1].(*ast.Continue)
	assert.True(t, isContinue)
	ret, ok := fn.Body[1].(*ast.Return)
	require.True(t, ok)
	assert.NotNil(t, ret.Value)
}

func TestBareReturn(t *testing.T) {
	mod := parse(t, "def f():\n    return\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	ret := fn.Body[0].(*ast.Return)
	assert.Nil(t, ret.Value)
}

func TestStructAndFieldAccess(t *testing.T) {
	mod := parse(t, "class Point:\n    x: int\n    y: int\ndef main():\n    p: Point\n    print(p.x)\n")
	require.Len(t, mod.Body, 2)
	fn := mod.Body[1].(*ast.FunctionDef)
	ann := fn.Body[0].(*ast.AnnAssign)
	assert.Equal(t, "Point", ann.Annotation.(*ast.Name).Id)
	exprStmt := fn.Body[1].(*ast.ExprStmt)
	call := exprStmt.Value.(*ast.Call)
	attr := call.Args[0].(*ast.Attribute)
	assert.Equal(t, "x", attr.Attr)
	assert.Equal(t, "p", attr.Value.(*ast.Name).Id)
}

func TestEnumClassDef(t *testing.T) {
	mod := parse(t, "class Color(Enum):\n    RED = 0\n    GREEN = 1\ndef main():\n    pass\n")
	cd := mod.Body[0].(*ast.ClassDef)
	require.Len(t, cd.Bases, 1)
	assert.Equal(t, "Enum", cd.Bases[0].(*ast.Name).Id)
	require.Len(t, cd.Body, 2)
	member := cd.Body[0].(*ast.Assign)
	assert.Equal(t, "RED", member.Targets[0].(*ast.Name).Id)
}

func TestArrayAndPointerTypeAnnotations(t *testing.T) {
	mod := parse(t, "def f(a: ptr[int], b: array[int, 5]):\n    pass\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	ptrSub := fn.Args.Args[0].Annotation.(*ast.Subscript)
	assert.Equal(t, "ptr", ptrSub.Value.(*ast.Name).Id)
	assert.Equal(t, "int", ptrSub.Slice.(*ast.Name).Id)

	arrSub := fn.Args.Args[1].Annotation.(*ast.Subscript)
	assert.Equal(t, "array", arrSub.Value.(*ast.Name).Id)
	nested := arrSub.Slice.(*ast.Subscript)
	assert.Equal(t, "int", nested.Value.(*ast.Name).Id)
	assert.Equal(t, int64(5), nested.Slice.(*ast.Constant).Int)
}

func TestStringLiteralTypeAnnotation(t *testing.T) {
	mod := parse(t, "def f(a: \"Forward\"):\n    pass\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	lit := fn.Args.Args[0].Annotation.(*ast.Constant)
	assert.Equal(t, ast.ConstStr, lit.Kind)
	assert.Equal(t, "Forward", lit.Str)
}

func TestExpressionPrecedence(t *testing.T) {
	mod := parse(t, "def main():\n    x = 1 + 2 * 3\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	assign := fn.Body[0].(*ast.Assign)
	bo := assign.Value.(*ast.BinOp)
	assert.Equal(t, ast.Add, bo.Op)
	_, rightIsMul := bo.Right.(*ast.BinOp)
	assert.True(t, rightIsMul)
	assert.Equal(t, "(1 + (2 * 3))", bo.String())
}

func TestComparisonChain(t *testing.T) {
	mod := parse(t, "def main():\n    x = 1 < 2 <= 3\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	assign := fn.Body[0].(*ast.Assign)
	cmp := assign.Value.(*ast.Compare)
	require.Len(t, cmp.Ops, 2)
	assert.Equal(t, ast.CmpLt, cmp.Ops[0])
	assert.Equal(t, ast.CmpLtE, cmp.Ops[1])
}

func TestBoolAndNotPrecedence(t *testing.T) {
	mod := parse(t, "def main():\n    x = 1 == 1 and not 2 == 3 or 4 == 4\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	assign := fn.Body[0].(*ast.Assign)
	top := assign.Value.(*ast.BoolOp)
	assert.Equal(t, ast.BoolOr, top.Op)
	_, leftIsAnd := top.Values[0].(*ast.BoolOp)
	assert.True(t, leftIsAnd)
}

func TestUnaryMinusAndParens(t *testing.T) {
	mod := parse(t, "def main():\n    x = -(1 + 2)\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	assign := fn.Body[0].(*ast.Assign)
	u := assign.Value.(*ast.UnaryOp)
	assert.Equal(t, ast.USub, u.Op)
	_, isBinOp := u.Operand.(*ast.BinOp)
	assert.True(t, isBinOp)
}

func TestPostfixChain(t *testing.T) {
	mod := parse(t, "def main():\n    x = a.b[0](1)\n")
	fn := mod.Body[0].(*ast.FunctionDef)
	assign := fn.Body[0].(*ast.Assign)
	call := assign.Value.(*ast.Call)
	sub := call.Func.(*ast.Subscript)
	attr := sub.Value.(*ast.Attribute)
	assert.Equal(t, "b", attr.Attr)
	assert.Equal(t, "a", attr.Value.(*ast.Name).Id)
}

func TestIndentationErrorSurfacesAsParseError(t *testing.T) {
	input := "def main():\n    if 1 == 1:\n       print(1)\n      print(2)\n"
	err := parseErr(t, input)
	assert.Contains(t, err.Error(), "IndentationError")
}

func TestUnexpectedCharacterSurfacesAsParseError(t *testing.T) {
	err := parseErr(t, "def main():\n    x = 1 $ 2\n")
	assert.Contains(t, err.Error(), "Unexpected character")
}

func TestMissingColonIsParseError(t *testing.T) {
	err := parseErr(t, "def main()\n    pass\n")
	assert.Contains(t, err.Error(), "Expected ':'")
}

func TestMissingIndentedBlockIsParseError(t *testing.T) {
	err := parseErr(t, "def main():\npass\n")
	assert.Contains(t, err.Error(), "Expected indented block")
}

func TestReservedElifIsParseError(t *testing.T) {
	err := parseErr(t, "def main():\n    if 1 == 1:\n        pass\n    elif 2 == 2:\n        pass\n")
	assert.Error(t, err)
}

func TestUndeclaredReservedKeywordsAreParseErrors(t *testing.T) {
	for _, src := range []string{
		"import x\n",
		"from x import y\n",
		"match x:\n    case 1:\n        pass\n",
	} {
		err := parseErr(t, src)
		assert.Error(t, err, "expected reserved keyword %q to be a parse error", src)
	}
}
