// ==============================================================================================
// FILE: main_benchmark_test.go
// ==============================================================================================
// PURPOSE: System-wide benchmarks.
//          Measures the performance of the compiler front end (lexing + parsing + analysis +
//          C emission) under heavy load conditions. The host cc link step is excluded: its
//          cost belongs to the external toolchain, not this pipeline.
// ==============================================================================================

package main

import (
	"fmt"
	"strings"
	"testing"

	"pyrinas/internal/codegen"
	"pyrinas/internal/lexer"
	"pyrinas/internal/parser"
	"pyrinas/internal/sema"
)

// frontend runs the pipeline up to C source text for a single input.
func frontend(b *testing.B, src string) {
	b.Helper()
	p := parser.New(lexer.New(src))
	mod, err := p.ParseModule()
	if err != nil {
		b.Fatalf("parse failed: %s", err)
	}
	a := sema.New("bench.pyr")
	if err := a.Analyze(mod); err != nil {
		b.Fatalf("analyze failed: %s", err)
	}
	if _, err := codegen.New(a.Global()).Generate(mod); err != nil {
		b.Fatalf("codegen failed: %s", err)
	}
}

// BenchmarkSystem_HeavyLoop measures compilation speed of iterative logic.
func BenchmarkSystem_HeavyLoop(b *testing.B) {
	input := "def main():\n" +
		"    total: int = 0\n" +
		"    counter: int = 0\n" +
		"    while counter < 1000:\n" +
		"        total = total + counter\n" +
		"        counter = counter + 1\n" +
		"    print(total)\n"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		frontend(b, input)
	}
}

// BenchmarkSystem_ManyFunctions measures declaration-pass and symbol-table
// overhead for a module with a wide top level.
func BenchmarkSystem_ManyFunctions(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 100; i++ {
		fmt.Fprintf(&sb, "def fn%d(x: int) -> int:\n    return x + %d\n", i, i)
	}
	sb.WriteString("def main():\n    print(fn0(1))\n")
	input := sb.String()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		frontend(b, input)
	}
}

// BenchmarkSystem_DeepNesting measures indent-stack churn and block-grammar
// recursion for deeply nested conditionals.
func BenchmarkSystem_DeepNesting(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("def main():\n")
	for depth := 0; depth < 20; depth++ {
		sb.WriteString(strings.Repeat("    ", depth+1))
		sb.WriteString("if 1 == 1:\n")
	}
	sb.WriteString(strings.Repeat("    ", 21))
	sb.WriteString("print(1)\n")
	input := sb.String()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		frontend(b, input)
	}
}
