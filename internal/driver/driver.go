// ==============================================================================================
// FILE: internal/driver/driver.go
// ==============================================================================================
// PACKAGE: driver
// PURPOSE: Orchestrates the full pipeline for a single source file: lex -> parse -> analyze ->
//          emit -> host cc. Each stage fully consumes its predecessor's output; the first
//          error at any stage aborts the run.
// ==============================================================================================

package driver

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"pyrinas/internal/codegen"
	"pyrinas/internal/lexer"
	"pyrinas/internal/parser"
	"pyrinas/internal/runtime"
	"pyrinas/internal/sema"
	"pyrinas/internal/token"
)

// Options configures a single compile invocation.
type Options struct {
	Input  string // source file path
	Output string // executable path; "a.out" when empty
	CC     string // host C compiler binary; $CC, then "cc", when empty
}

// Compile runs the full pipeline for one source file. It returns the path to
// the generated C file (useful for debug dumps/tests) and the first error
// encountered at any stage.
func Compile(opts Options) (cFilePath string, err error) {
	src, err := os.ReadFile(opts.Input)
	if err != nil {
		return "", err
	}
	source := string(src)

	if os.Getenv("PYRINAS_DEBUG_TOKENS") != "" {
		dumpTokens(source)
	}

	p := parser.New(lexer.New(source))
	mod, err := p.ParseModule()
	if err != nil {
		return "", err
	}

	if os.Getenv("PYRINAS_DEBUG_AST") != "" {
		fmt.Print(mod.String())
	}

	analyzer := sema.New(opts.Input)
	if err := analyzer.Analyze(mod); err != nil {
		return "", err
	}

	cSource, err := codegen.New(analyzer.Global()).Generate(mod)
	if err != nil {
		return "", err
	}

	if os.Getenv("PYRINAS_DEBUG_CODEGEN") != "" {
		fmt.Print(cSource)
	}

	cFilePath = cFileName(opts.Input)
	if err := os.WriteFile(cFilePath, []byte(cSource), 0o644); err != nil {
		return "", err
	}

	runtimeDir, err := os.MkdirTemp("", "pyrinas-runtime-*")
	if err != nil {
		return cFilePath, err
	}
	defer os.RemoveAll(runtimeDir)

	if _, err := runtime.Materialize(runtimeDir); err != nil {
		return cFilePath, err
	}

	if err := link(opts, cFilePath, runtimeDir); err != nil {
		return cFilePath, err
	}

	return cFilePath, nil
}

// cFileName derives the sibling .c path: <basename-without-ext>.c, or
// <input>.c if the input carries no extension.
func cFileName(input string) string {
	ext := filepath.Ext(input)
	if ext == "" {
		return input + ".c"
	}
	return strings.TrimSuffix(input, ext) + ".c"
}

func link(opts Options, cFilePath, runtimeDir string) error {
	cc := opts.CC
	if cc == "" {
		cc = os.Getenv("CC")
	}
	if cc == "" {
		cc = "cc"
	}
	output := opts.Output
	if output == "" {
		output = "a.out"
	}

	runtimeSource := filepath.Join(runtimeDir, "pyrinas.c")
	cmd := exec.Command(cc, "-I", runtimeDir, "-o", output, cFilePath, runtimeSource, "-lm")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("C compilation failed: %w", err)
	}
	return nil
}

func dumpTokens(source string) {
	l := lexer.New(source)
	for {
		tok := l.NextToken()
		fmt.Printf("%-10s %-20q line=%d col=%d\n", tok.Kind, tok.Lexeme, tok.Line, tok.Column)
		if tok.Kind == token.EOF {
			return
		}
	}
}
