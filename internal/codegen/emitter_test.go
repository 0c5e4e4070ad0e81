// ==============================================================================================
// FILE: internal/codegen/emitter_test.go
// PURPOSE: Exercises C emission against the worked scenarios and the codegen-preserves-main
//          invariant.
// ==============================================================================================
package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyrinas/internal/lexer"
	"pyrinas/internal/parser"
	"pyrinas/internal/sema"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	p := parser.New(lexer.New(src))
	mod, err := p.ParseModule()
	require.NoError(t, err)

	a := sema.New("input.pyr")
	require.NoError(t, a.Analyze(mod))

	out, err := New(a.Global()).Generate(mod)
	require.NoError(t, err)
	return out
}

func TestMinimalProgramEmitsPrintf(t *testing.T) {
	out := generate(t, "def main():\n    print(1)\n")
	assert.Contains(t, out, "int main() {")
	assert.Contains(t, out, `printf("%d\n", 1);`)
}

func TestStructAndFieldAccessEmission(t *testing.T) {
	src := "class Point:\n    x: int\n    y: int\ndef main():\n    p: Point\n    print(p.x)\n"
	out := generate(t, src)
	assert.Contains(t, out, "struct Point {")
	assert.Contains(t, out, "int x;")
	assert.Contains(t, out, "int y;")
	assert.Contains(t, out, `printf("%d\n", p.x);`)
}

func TestEnumEmission(t *testing.T) {
	src := "class Color(Enum):\n    RED = 0\n    GREEN = 1\ndef main():\n    pass\n"
	out := generate(t, src)
	assert.Contains(t, out, "enum Color {")
	assert.Contains(t, out, "Color_RED = 0")
	assert.Contains(t, out, "Color_GREEN = 1")
}

func TestCodegenPreservesMain(t *testing.T) {
	out := generate(t, "def helper() -> int:\n    return 1\ndef main():\n    x: int = helper()\n")
	assert.Equal(t, 1, strings.Count(out, "int main()"))
	assert.Contains(t, out, "int helper() {")
}

func TestFloatAndStringPrintSpecialization(t *testing.T) {
	out := generate(t, "def main():\n    x: float = 1.5\n    y: str = \"hi\"\n    print(x)\n    print(y)\n")
	assert.Contains(t, out, `printf("%f\n", x);`)
	assert.Contains(t, out, `printf("%s\n", y);`)
}

func TestBoolPrintUsesIntFormat(t *testing.T) {
	out := generate(t, "def main():\n    x: bool = True\n    print(x)\n")
	assert.Contains(t, out, `printf("%d\n", x);`)
	assert.Contains(t, out, "int x = 1;")
}

func TestIfElseEmission(t *testing.T) {
	out := generate(t, "def main():\n    x: int = 1\n    if x == 1:\n        print(1)\n    else:\n        print(2)\n")
	assert.Contains(t, out, "if (x == 1) {")
	assert.Contains(t, out, "else {")
}

func TestWhileLoopEmission(t *testing.T) {
	out := generate(t, "def main():\n    x: int = 0\n    while x < 3:\n        x = x + 1\n")
	assert.Contains(t, out, "while (x < 3) {")
}

func TestForRangeLoopEmission(t *testing.T) {
	out := generate(t, "def main():\n    for i in range(3):\n        print(i)\n")
	assert.Contains(t, out, "for (int i = 0; i < 3; i++) {")
}

func TestPointerAndArrayParamTypeMapping(t *testing.T) {
	out := generate(t, "def f(a: ptr[int], b: array[int, 5]):\n    pass\ndef main():\n    pass\n")
	assert.Contains(t, out, "void f(int* a, int* b) {")
}

func TestResultReturnTypeMapsToRuntimeUnion(t *testing.T) {
	out := generate(t, "def parse(s: str) -> \"Result[int, str]\":\n    pass\ndef main():\n    pass\n")
	assert.Contains(t, out, "Result parse(char* s) {")
}

func TestUnaryAndBoolOpEmission(t *testing.T) {
	out := generate(t, "def main():\n    x: bool = True\n    y: bool = not x and False\n")
	assert.Contains(t, out, "!(x)")
	assert.Contains(t, out, "&&")
}
