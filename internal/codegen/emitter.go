// ==============================================================================================
// FILE: internal/codegen/emitter.go
// ==============================================================================================
// PACKAGE: codegen
// PURPOSE: Lowers an analyzed AST into a single C translation unit, assembled from four
//          concatenated output sections (includes, struct/enum definitions, function
//          definitions, main body). Section selection is an explicit bufferKind parameter
//          threaded through every emission call rather than a mutable output cursor, so
//          nothing in this package carries shared mutable state.
// ==============================================================================================

package codegen

import (
	"bytes"
	"fmt"

	"pyrinas/internal/ast"
	"pyrinas/internal/sema"
)

// bufferKind selects which of the emitter's four sections a call writes to.
type bufferKind int

const (
	includesBuf bufferKind = iota
	structDefsBuf
	funcDefsBuf
	mainBuf
)

const includeHeader = "#include \"pyrinas.h\"\n"

// Emitter lowers a Module, annotated by an Analyzer's global scope, to C source text.
type Emitter struct {
	global *sema.Scope

	includes   bytes.Buffer
	structDefs bytes.Buffer
	funcDefs   bytes.Buffer
	main       bytes.Buffer

	indentLevel int
}

// New creates an Emitter over the global scope populated by a prior Analyze call.
func New(global *sema.Scope) *Emitter {
	e := &Emitter{global: global}
	e.includes.WriteString(includeHeader)
	return e
}

func (e *Emitter) buf(sel bufferKind) *bytes.Buffer {
	switch sel {
	case includesBuf:
		return &e.includes
	case structDefsBuf:
		return &e.structDefs
	case funcDefsBuf:
		return &e.funcDefs
	default:
		return &e.main
	}
}

func (e *Emitter) writeIndent(sel bufferKind) {
	buf := e.buf(sel)
	for i := 0; i < e.indentLevel; i++ {
		buf.WriteString("    ")
	}
}

// Generate walks the module and returns the finished C source, or an error if a
// symbol the emitter expects (declared during analysis) cannot be found.
func (e *Emitter) Generate(mod *ast.Module) (string, error) {
	for _, sym := range e.global.Globals() {
		switch sym.Kind {
		case sema.Struct:
			e.emitStructDef(sym)
		case sema.Enum:
			e.emitEnumDef(sym)
		}
	}

	for _, stmt := range mod.Body {
		fn, ok := stmt.(*ast.FunctionDef)
		if !ok {
			continue
		}
		if fn.Name == "main" {
			if err := e.emitMain(fn); err != nil {
				return "", err
			}
		} else if err := e.emitFunctionDef(fn); err != nil {
			return "", err
		}
	}

	var out bytes.Buffer
	out.Write(e.includes.Bytes())
	out.WriteString("\n")
	if e.structDefs.Len() > 0 {
		out.Write(e.structDefs.Bytes())
		out.WriteString("\n")
	}
	if e.funcDefs.Len() > 0 {
		out.Write(e.funcDefs.Bytes())
		out.WriteString("\n")
	}
	out.Write(e.main.Bytes())
	return out.String(), nil
}

func (e *Emitter) emitStructDef(sym *sema.Symbol) {
	e.structDefs.WriteString("struct ")
	e.structDefs.WriteString(sym.Name)
	e.structDefs.WriteString(" {\n")
	for _, f := range sym.Fields {
		fmt.Fprintf(&e.structDefs, "    %s %s;\n", cType(f.Type), f.Name)
	}
	e.structDefs.WriteString("};\n\n")
}

func (e *Emitter) emitEnumDef(sym *sema.Symbol) {
	e.structDefs.WriteString("enum ")
	e.structDefs.WriteString(sym.Name)
	e.structDefs.WriteString(" {\n")
	for i, m := range sym.EnumMembers {
		fmt.Fprintf(&e.structDefs, "    %s_%s = %d", sym.Name, m.Name, m.Value)
		if i < len(sym.EnumMembers)-1 {
			e.structDefs.WriteString(",")
		}
		e.structDefs.WriteString("\n")
	}
	e.structDefs.WriteString("};\n\n")
}

func (e *Emitter) emitMain(fn *ast.FunctionDef) error {
	e.main.WriteString("int main() {\n")
	e.indentLevel = 1
	for _, stmt := range fn.Body {
		if err := e.emitStatement(stmt, mainBuf); err != nil {
			return err
		}
	}
	e.indentLevel = 0
	e.main.WriteString("}\n")
	return nil
}

func (e *Emitter) emitFunctionDef(fn *ast.FunctionDef) error {
	sym, ok := e.global.LookupCurrent(fn.Name)
	if !ok {
		return fmt.Errorf("codegen: undeclared function %q", fn.Name)
	}

	fmt.Fprintf(&e.funcDefs, "%s %s(", cType(sym.ReturnType), fn.Name)
	for i, arg := range fn.Args.Args {
		if i > 0 {
			e.funcDefs.WriteString(", ")
		}
		ty, _ := sema.FromAnnotation(arg.Annotation)
		fmt.Fprintf(&e.funcDefs, "%s %s", cType(ty), arg.Name)
	}
	e.funcDefs.WriteString(") {\n")

	e.indentLevel = 1
	for _, stmt := range fn.Body {
		if err := e.emitStatement(stmt, funcDefsBuf); err != nil {
			return err
		}
	}
	e.indentLevel = 0
	e.funcDefs.WriteString("}\n\n")
	return nil
}

func (e *Emitter) emitStatement(stmt ast.Stmt, sel bufferKind) error {
	switch s := stmt.(type) {
	case *ast.AnnAssign:
		return e.emitAnnAssign(s, sel)
	case *ast.Assign:
		return e.emitAssign(s, sel)
	case *ast.Return:
		return e.emitReturn(s, sel)
	case *ast.ExprStmt:
		return e.emitExprStmt(s, sel)
	case *ast.Break:
		e.writeIndent(sel)
		e.buf(sel).WriteString("break;\n")
		return nil
	case *ast.Continue:
		e.writeIndent(sel)
		e.buf(sel).WriteString("continue;\n")
		return nil
	case *ast.Pass:
		return nil
	case *ast.If:
		return e.emitIf(s, sel)
	case *ast.While:
		return e.emitWhile(s, sel)
	case *ast.For:
		return e.emitFor(s, sel)
	default:
		return fmt.Errorf("codegen: unsupported statement type %T", stmt)
	}
}

func (e *Emitter) emitAnnAssign(s *ast.AnnAssign, sel bufferKind) error {
	name := s.Target.(*ast.Name).Id
	ty, _ := sema.FromAnnotation(s.Annotation)

	e.writeIndent(sel)
	buf := e.buf(sel)
	fmt.Fprintf(buf, "%s %s", cType(ty), name)
	if s.Value != nil {
		buf.WriteString(" = ")
		if err := e.emitExpr(s.Value, sel); err != nil {
			return err
		}
	}
	buf.WriteString(";\n")
	return nil
}

func (e *Emitter) emitAssign(s *ast.Assign, sel bufferKind) error {
	e.writeIndent(sel)
	buf := e.buf(sel)
	if len(s.Targets) > 0 {
		if err := e.emitExpr(s.Targets[0], sel); err != nil {
			return err
		}
	}
	buf.WriteString(" = ")
	if err := e.emitExpr(s.Value, sel); err != nil {
		return err
	}
	buf.WriteString(";\n")
	return nil
}

func (e *Emitter) emitReturn(s *ast.Return, sel bufferKind) error {
	e.writeIndent(sel)
	buf := e.buf(sel)
	buf.WriteString("return")
	if s.Value != nil {
		buf.WriteString(" ")
		if err := e.emitExpr(s.Value, sel); err != nil {
			return err
		}
	}
	buf.WriteString(";\n")
	return nil
}

func (e *Emitter) emitExprStmt(s *ast.ExprStmt, sel bufferKind) error {
	e.writeIndent(sel)
	if err := e.emitExpr(s.Value, sel); err != nil {
		return err
	}
	e.buf(sel).WriteString(";\n")
	return nil
}

func (e *Emitter) emitBlock(body []ast.Stmt, sel bufferKind) error {
	e.indentLevel++
	for _, stmt := range body {
		if err := e.emitStatement(stmt, sel); err != nil {
			return err
		}
	}
	e.indentLevel--
	return nil
}

func (e *Emitter) emitIf(s *ast.If, sel bufferKind) error {
	e.writeIndent(sel)
	buf := e.buf(sel)
	buf.WriteString("if (")
	if err := e.emitExpr(s.Test, sel); err != nil {
		return err
	}
	buf.WriteString(") {\n")
	if err := e.emitBlock(s.Body, sel); err != nil {
		return err
	}
	e.writeIndent(sel)
	buf.WriteString("}\n")

	if len(s.Orelse) > 0 {
		e.writeIndent(sel)
		buf.WriteString("else {\n")
		if err := e.emitBlock(s.Orelse, sel); err != nil {
			return err
		}
		e.writeIndent(sel)
		buf.WriteString("}\n")
	}
	return nil
}

func (e *Emitter) emitWhile(s *ast.While, sel bufferKind) error {
	e.writeIndent(sel)
	buf := e.buf(sel)
	buf.WriteString("while (")
	if err := e.emitExpr(s.Test, sel); err != nil {
		return err
	}
	buf.WriteString(") {\n")
	if err := e.emitBlock(s.Body, sel); err != nil {
		return err
	}
	e.writeIndent(sel)
	buf.WriteString("}\n")
	return nil
}

// emitFor lowers `for target in range(n): body` to a C counting loop; range() is
// the only iterable the analyzer accepts, so that is the only shape reachable here.
func (e *Emitter) emitFor(s *ast.For, sel bufferKind) error {
	call, ok := s.Iter.(*ast.Call)
	if !ok {
		return fmt.Errorf("codegen: for-loop iterable must be a range() call")
	}
	name := s.Target.(*ast.Name).Id

	e.writeIndent(sel)
	buf := e.buf(sel)
	fmt.Fprintf(buf, "for (int %s = 0; %s < ", name, name)
	if len(call.Args) > 0 {
		if err := e.emitExpr(call.Args[0], sel); err != nil {
			return err
		}
	}
	fmt.Fprintf(buf, "; %s++) {\n", name)
	if err := e.emitBlock(s.Body, sel); err != nil {
		return err
	}
	e.writeIndent(sel)
	buf.WriteString("}\n")
	return nil
}

func (e *Emitter) emitExpr(expr ast.Expr, sel bufferKind) error {
	buf := e.buf(sel)
	switch ex := expr.(type) {
	case *ast.Name:
		buf.WriteString(ex.Id)
		return nil
	case *ast.Constant:
		return e.emitConstant(ex, sel)
	case *ast.BinOp:
		return e.emitBinOp(ex, sel)
	case *ast.UnaryOp:
		return e.emitUnaryOp(ex, sel)
	case *ast.Compare:
		return e.emitCompare(ex, sel)
	case *ast.BoolOp:
		return e.emitBoolOp(ex, sel)
	case *ast.Call:
		return e.emitCall(ex, sel)
	case *ast.Attribute:
		return e.emitAttribute(ex, sel)
	case *ast.Subscript:
		return e.emitSubscript(ex, sel)
	default:
		return fmt.Errorf("codegen: unsupported expression type %T", expr)
	}
}

func (e *Emitter) emitConstant(c *ast.Constant, sel bufferKind) error {
	buf := e.buf(sel)
	switch c.Kind {
	case ast.ConstInt:
		fmt.Fprintf(buf, "%d", c.Int)
	case ast.ConstFloat:
		fmt.Fprintf(buf, "%f", c.Float)
	case ast.ConstStr:
		buf.WriteString("\"")
		buf.WriteString(c.Str)
		buf.WriteString("\"")
	case ast.ConstBool:
		if c.Bool {
			buf.WriteString("1")
		} else {
			buf.WriteString("0")
		}
	case ast.ConstNone:
		buf.WriteString("NULL")
	}
	return nil
}

var binOpSym = map[ast.BinOpKind]string{
	ast.Add:      " + ",
	ast.Sub:      " - ",
	ast.Mul:      " * ",
	ast.Div:      " / ",
	ast.Mod:      " % ",
	ast.FloorDiv: " / ",
}

func (e *Emitter) emitBinOp(b *ast.BinOp, sel bufferKind) error {
	buf := e.buf(sel)
	buf.WriteString("(")
	if err := e.emitExpr(b.Left, sel); err != nil {
		return err
	}
	buf.WriteString(binOpSym[b.Op])
	if err := e.emitExpr(b.Right, sel); err != nil {
		return err
	}
	buf.WriteString(")")
	return nil
}

func (e *Emitter) emitUnaryOp(u *ast.UnaryOp, sel bufferKind) error {
	buf := e.buf(sel)
	switch u.Op {
	case ast.Not:
		buf.WriteString("!(")
	case ast.USub:
		buf.WriteString("-(")
	case ast.UAdd:
		buf.WriteString("+(")
	}
	if err := e.emitExpr(u.Operand, sel); err != nil {
		return err
	}
	buf.WriteString(")")
	return nil
}

var cmpOpSym = map[ast.CmpOp]string{
	ast.CmpEq:    "==",
	ast.CmpNotEq: "!=",
	ast.CmpLt:    "<",
	ast.CmpLtE:   "<=",
	ast.CmpGt:    ">",
	ast.CmpGtE:   ">=",
}

func (e *Emitter) emitCompare(c *ast.Compare, sel bufferKind) error {
	buf := e.buf(sel)
	if err := e.emitExpr(c.Left, sel); err != nil {
		return err
	}
	for i, op := range c.Ops {
		fmt.Fprintf(buf, " %s ", cmpOpSym[op])
		if err := e.emitExpr(c.Comparators[i], sel); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) emitBoolOp(b *ast.BoolOp, sel bufferKind) error {
	buf := e.buf(sel)
	sym := " && "
	if b.Op == ast.BoolOr {
		sym = " || "
	}
	buf.WriteString("(")
	for i, v := range b.Values {
		if i > 0 {
			buf.WriteString(sym)
		}
		if err := e.emitExpr(v, sel); err != nil {
			return err
		}
	}
	buf.WriteString(")")
	return nil
}

func (e *Emitter) emitCall(c *ast.Call, sel bufferKind) error {
	buf := e.buf(sel)
	if name, ok := c.Func.(*ast.Name); ok && name.Id == "print" {
		return e.emitPrint(c, sel)
	}
	if err := e.emitExpr(c.Func, sel); err != nil {
		return err
	}
	buf.WriteString("(")
	for i, arg := range c.Args {
		if i > 0 {
			buf.WriteString(", ")
		}
		if err := e.emitExpr(arg, sel); err != nil {
			return err
		}
	}
	buf.WriteString(")")
	return nil
}

func (e *Emitter) emitPrint(c *ast.Call, sel bufferKind) error {
	buf := e.buf(sel)
	buf.WriteString("printf(")
	if len(c.Args) > 0 {
		arg := c.Args[0]
		buf.WriteString(fmt.Sprintf("%q", printFormat(printArgType(e.global, arg))+"\n"))
		buf.WriteString(", ")
		if err := e.emitExpr(arg, sel); err != nil {
			return err
		}
	}
	buf.WriteString(")")
	return nil
}

// printFormat chooses the printf conversion for a statically-typed argument.
func printFormat(ty *sema.Ty) string {
	if ty == nil {
		return "%d"
	}
	switch ty.Kind {
	case sema.Float:
		return "%f"
	case sema.Str:
		return "%s"
	default:
		return "%d"
	}
}

// printArgType resolves the static type of a print() argument: a constant's
// literal kind, a variable's declared type, or a struct field's declared type
// for an attribute access. Anything else yields nil, which formats as %d.
func printArgType(global *sema.Scope, arg ast.Expr) *sema.Ty {
	switch a := arg.(type) {
	case *ast.Constant:
		switch a.Kind {
		case ast.ConstInt:
			return sema.Primitive(sema.Int)
		case ast.ConstFloat:
			return sema.Primitive(sema.Float)
		case ast.ConstStr:
			return sema.Primitive(sema.Str)
		case ast.ConstBool:
			return sema.Primitive(sema.Bool)
		}
		return nil
	case *ast.Name:
		if sym, ok := global.Lookup(a.Id); ok {
			return sym.ValueType
		}
		return nil
	case *ast.Attribute:
		varName, ok := a.Value.(*ast.Name)
		if !ok {
			return nil
		}
		varSym, ok := global.Lookup(varName.Id)
		if !ok || varSym.ValueType == nil {
			return nil
		}
		structSym, ok := global.Lookup(varSym.ValueType.Name)
		if !ok {
			return nil
		}
		for _, f := range structSym.Fields {
			if f.Name == a.Attr {
				return f.Type
			}
		}
		return nil
	default:
		return nil
	}
}

func (e *Emitter) emitAttribute(a *ast.Attribute, sel bufferKind) error {
	if err := e.emitExpr(a.Value, sel); err != nil {
		return err
	}
	fmt.Fprintf(e.buf(sel), ".%s", a.Attr)
	return nil
}

func (e *Emitter) emitSubscript(s *ast.Subscript, sel bufferKind) error {
	if err := e.emitExpr(s.Value, sel); err != nil {
		return err
	}
	buf := e.buf(sel)
	buf.WriteString("[")
	if err := e.emitExpr(s.Slice, sel); err != nil {
		return err
	}
	buf.WriteString("]")
	return nil
}

// cType maps a surface Ty to its emitted C spelling, per the compiler's
// type mapping table. A nil Ty (bare function with no return annotation) maps
// to void.
func cType(t *sema.Ty) string {
	if t == nil {
		return "void"
	}
	switch t.Kind {
	case sema.Int:
		return "int"
	case sema.Float:
		return "float"
	case sema.Bool:
		return "int"
	case sema.Str:
		return "char*"
	case sema.Void:
		return "void"
	case sema.Ptr:
		return cType(t.Elem) + "*"
	case sema.Array:
		return cType(t.Elem) + "*"
	case sema.Result:
		return "Result" // the runtime header typedefs the tagged union
	default:
		return "struct " + t.Name
	}
}
