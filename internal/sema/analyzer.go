// ==============================================================================================
// FILE: internal/sema/analyzer.go
// ==============================================================================================
// PACKAGE: sema
// PURPOSE: Two-pass semantic analysis. Pass 1 registers every top-level function and class
//          signature so mutual recursion and forward references resolve; pass 2 walks each
//          function body with a pushed/popped scope, type-checking statements and expressions.
// ==============================================================================================

package sema

import (
	"fmt"
	"strings"

	"pyrinas/internal/ast"
)

// Analyzer holds the symbol table and the small amount of context state
// (current function return type, loop depth) that pass 2 threads through
// nested statements.
type Analyzer struct {
	global      *Scope
	scope       *Scope
	currentFile string

	currentReturnType *Ty
	loopDepth         int

	err string
}

// New creates an Analyzer. currentFile is used only to decide whether a
// missing `main` function is permitted (library modules under /modules/ or
// named *_utils.pyr).
func New(currentFile string) *Analyzer {
	global := NewScope()
	return &Analyzer{global: global, scope: global, currentFile: currentFile}
}

func (a *Analyzer) fail(format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	if a.err == "" {
		a.err = msg
	}
	return fmt.Errorf("%s", msg)
}

// Global returns the analyzer's global scope, populated by Analyze. The
// emitter consults it for struct/enum/function symbols.
func (a *Analyzer) Global() *Scope {
	return a.global
}

// Analyze runs both passes over mod and returns the first error
// encountered, or nil on success.
func (a *Analyzer) Analyze(mod *ast.Module) error {
	if err := a.declarePass(mod); err != nil {
		return err
	}
	if err := a.checkMainExists(); err != nil {
		return err
	}
	return a.bodyPass(mod)
}

// ----------------------------------------------------------------------------------------------
// Pass 1 — declarations
// ----------------------------------------------------------------------------------------------

func (a *Analyzer) declarePass(mod *ast.Module) error {
	for _, stmt := range mod.Body {
		switch n := stmt.(type) {
		case *ast.FunctionDef:
			if err := a.declareFunction(n); err != nil {
				return err
			}
		case *ast.ClassDef:
			if err := a.declareClass(n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *Analyzer) declareFunction(fn *ast.FunctionDef) error {
	if _, exists := a.global.LookupCurrent(fn.Name); exists {
		return a.fail("Function already defined")
	}

	sym := &Symbol{Name: fn.Name, Kind: Function}
	if fn.Returns != nil {
		rt, ok := FromAnnotation(fn.Returns)
		if !ok {
			return a.fail("Parameter must have type annotation")
		}
		sym.ReturnType = rt
	}

	for _, arg := range fn.Args.Args {
		pt, ok := FromAnnotation(arg.Annotation)
		if !ok {
			return a.fail("Parameter must have type annotation")
		}
		sym.ParamTypes = append(sym.ParamTypes, pt)
	}

	a.global.Insert(sym)
	return nil
}

// declareClass classifies a ClassDef as Enum, Struct, or Interface per the
// rules in the body/base inspection below, then registers it in the global
// scope.
func (a *Analyzer) declareClass(cd *ast.ClassDef) error {
	if _, exists := a.global.LookupCurrent(cd.Name); exists {
		return a.fail("Class already defined")
	}

	isEnum := false
	for _, base := range cd.Bases {
		if name, ok := base.(*ast.Name); ok && name.Id == "Enum" {
			isEnum = true
			break
		}
	}

	if isEnum {
		sym, err := a.buildEnumSymbol(cd)
		if err != nil {
			return err
		}
		a.global.Insert(sym)
		return nil
	}

	hasFields := false
	hasMethodImpl := false
	for _, stmt := range cd.Body {
		switch s := stmt.(type) {
		case *ast.AnnAssign:
			hasFields = true
		case *ast.FunctionDef:
			if len(s.Body) > 1 {
				hasMethodImpl = true
			} else if len(s.Body) == 1 {
				if _, isPass := s.Body[0].(*ast.Pass); !isPass {
					hasMethodImpl = true
				}
			}
		}
	}

	var sym *Symbol
	var err error
	if hasFields || hasMethodImpl {
		sym, err = a.buildStructSymbol(cd)
	} else {
		sym, err = a.buildInterfaceSymbol(cd)
	}
	if err != nil {
		return err
	}
	a.global.Insert(sym)
	return nil
}

func (a *Analyzer) buildEnumSymbol(cd *ast.ClassDef) (*Symbol, error) {
	sym := &Symbol{Name: cd.Name, Kind: Enum}
	for _, stmt := range cd.Body {
		switch s := stmt.(type) {
		case *ast.Pass:
			continue
		case *ast.Assign:
			if len(s.Targets) != 1 {
				return nil, a.fail("Invalid enum member assignment")
			}
			name, ok := s.Targets[0].(*ast.Name)
			if !ok {
				return nil, a.fail("Invalid enum member assignment")
			}
			c, ok := s.Value.(*ast.Constant)
			if !ok || c.Kind != ast.ConstInt {
				return nil, a.fail("Enum member must have integer value")
			}
			sym.EnumMembers = append(sym.EnumMembers, EnumMember{Name: name.Id, Value: c.Int})
		default:
			return nil, a.fail("Enum can only contain member assignments")
		}
	}
	return sym, nil
}

func (a *Analyzer) buildStructSymbol(cd *ast.ClassDef) (*Symbol, error) {
	sym := &Symbol{Name: cd.Name, Kind: Struct}
	for _, stmt := range cd.Body {
		ann, ok := stmt.(*ast.AnnAssign)
		if !ok {
			continue
		}
		name, ok := ann.Target.(*ast.Name)
		if !ok {
			continue
		}
		ft, ok := FromAnnotation(ann.Annotation)
		if !ok {
			return nil, a.fail("Field must have type annotation")
		}
		sym.Fields = append(sym.Fields, Field{Name: name.Id, Type: ft})
	}
	for _, stmt := range cd.Body {
		fn, ok := stmt.(*ast.FunctionDef)
		if !ok {
			continue
		}
		sym.Methods = append(sym.Methods, methodSignature(fn))
	}
	return sym, nil
}

func (a *Analyzer) buildInterfaceSymbol(cd *ast.ClassDef) (*Symbol, error) {
	sym := &Symbol{Name: cd.Name, Kind: Interface}
	for _, stmt := range cd.Body {
		fn, ok := stmt.(*ast.FunctionDef)
		if !ok {
			continue
		}
		sym.Methods = append(sym.Methods, methodSignature(fn))
	}
	return sym, nil
}

// methodSignature records a method's parameter/return types, skipping the
// first parameter ("self").
func methodSignature(fn *ast.FunctionDef) Method {
	m := Method{Name: fn.Name}
	if fn.Returns != nil {
		if rt, ok := FromAnnotation(fn.Returns); ok {
			m.ReturnType = rt
		}
	}
	for i, arg := range fn.Args.Args {
		if i == 0 {
			continue // self
		}
		if pt, ok := FromAnnotation(arg.Annotation); ok {
			m.ParamTypes = append(m.ParamTypes, pt)
		}
	}
	return m
}

func (a *Analyzer) checkMainExists() error {
	sym, ok := a.global.LookupCurrent("main")
	if ok && sym.Kind == Function {
		return nil
	}
	if strings.Contains(a.currentFile, "/modules/") || strings.HasSuffix(a.currentFile, "_utils.pyr") {
		return nil
	}
	return a.fail("main function not found")
}

// ----------------------------------------------------------------------------------------------
// Pass 2 — bodies
// ----------------------------------------------------------------------------------------------

func (a *Analyzer) bodyPass(mod *ast.Module) error {
	for _, stmt := range mod.Body {
		if fn, ok := stmt.(*ast.FunctionDef); ok {
			if err := a.analyzeFunctionBody(fn); err != nil {
				return err
			}
			continue
		}
		if _, isClass := stmt.(*ast.ClassDef); isClass {
			continue
		}
		if err := a.analyzeStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeFunctionBody(fn *ast.FunctionDef) error {
	sym, _ := a.global.LookupCurrent(fn.Name)

	savedReturn := a.currentReturnType
	a.currentReturnType = sym.ReturnType

	savedScope := a.scope
	a.scope = NewEnclosedScope(a.global)

	for i, arg := range fn.Args.Args {
		a.scope.Insert(&Symbol{Name: arg.Name, Kind: Variable, ValueType: sym.ParamTypes[i]})
	}

	var err error
	for _, stmt := range fn.Body {
		if err = a.analyzeStmt(stmt); err != nil {
			break
		}
	}

	a.scope = savedScope
	a.currentReturnType = savedReturn
	return err
}

func (a *Analyzer) analyzeStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.AnnAssign:
		return a.analyzeAnnAssign(s)
	case *ast.Assign:
		return a.analyzeAssign(s)
	case *ast.If:
		return a.analyzeIf(s)
	case *ast.While:
		return a.analyzeWhile(s)
	case *ast.For:
		return a.analyzeFor(s)
	case *ast.Return:
		return a.analyzeReturn(s)
	case *ast.Break:
		if a.loopDepth == 0 {
			return a.fail("break/continue outside loop")
		}
		return nil
	case *ast.Continue:
		if a.loopDepth == 0 {
			return a.fail("break/continue outside loop")
		}
		return nil
	case *ast.Pass:
		return nil
	case *ast.ExprStmt:
		_, err := a.analyzeExpr(s.Value)
		return err
	default:
		return a.fail("Unsupported statement type")
	}
}

func (a *Analyzer) analyzeAnnAssign(s *ast.AnnAssign) error {
	name, ok := s.Target.(*ast.Name)
	if !ok {
		return a.fail("Invalid assignment target")
	}

	declared, ok := FromAnnotation(s.Annotation)
	if !ok {
		return a.fail("Variable must have type annotation")
	}

	if _, exists := a.scope.LookupCurrent(name.Id); exists {
		return a.fail("Variable already declared in this scope")
	}

	if s.Value != nil {
		valueType, err := a.analyzeExpr(s.Value)
		if err != nil {
			return err
		}
		if !Compatible(declared, valueType) {
			return a.fail("Type mismatch in assignment")
		}
	}

	a.scope.Insert(&Symbol{Name: name.Id, Kind: Variable, ValueType: declared})
	return nil
}

func (a *Analyzer) analyzeAssign(s *ast.Assign) error {
	valueType, err := a.analyzeExpr(s.Value)
	if err != nil {
		return err
	}

	if len(s.Targets) == 0 {
		return nil
	}
	switch target := s.Targets[0].(type) {
	case *ast.Name:
		sym, ok := a.scope.Lookup(target.Id)
		if !ok {
			return a.fail("Variable not declared")
		}
		if sym.ValueType != nil && valueType != nil && !Compatible(sym.ValueType, valueType) {
			return a.fail("Type mismatch in assignment")
		}
	case *ast.Subscript:
		if _, err := a.analyzeExpr(target); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeIf(s *ast.If) error {
	if _, err := a.analyzeExpr(s.Test); err != nil {
		return err
	}
	for _, stmt := range s.Body {
		if err := a.analyzeStmt(stmt); err != nil {
			return err
		}
	}
	for _, stmt := range s.Orelse {
		if err := a.analyzeStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeWhile(s *ast.While) error {
	if _, err := a.analyzeExpr(s.Test); err != nil {
		return err
	}
	a.loopDepth++
	defer func() { a.loopDepth-- }()
	for _, stmt := range s.Body {
		if err := a.analyzeStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeFor(s *ast.For) error {
	if _, err := a.analyzeExpr(s.Iter); err != nil {
		return err
	}
	isRange := false
	if call, ok := s.Iter.(*ast.Call); ok {
		if fn, ok := call.Func.(*ast.Name); ok && fn.Id == "range" {
			isRange = true
		}
	}
	if !isRange {
		return a.fail("for loop iterable must be range()")
	}
	if name, ok := s.Target.(*ast.Name); ok {
		if _, exists := a.scope.LookupCurrent(name.Id); !exists {
			a.scope.Insert(&Symbol{Name: name.Id, Kind: Variable, ValueType: Primitive(Int)})
		}
	}
	a.loopDepth++
	defer func() { a.loopDepth-- }()
	for _, stmt := range s.Body {
		if err := a.analyzeStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) analyzeReturn(s *ast.Return) error {
	if s.Value == nil {
		return nil
	}
	_, err := a.analyzeExpr(s.Value)
	return err
}

// ----------------------------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------------------------

func (a *Analyzer) analyzeExpr(expr ast.Expr) (*Ty, error) {
	switch e := expr.(type) {
	case *ast.Name:
		sym, ok := a.scope.Lookup(e.Id)
		if !ok {
			return nil, a.fail("Variable not declared")
		}
		return sym.ValueType, nil
	case *ast.Constant:
		return constantType(e), nil
	case *ast.BinOp:
		return a.analyzeBinOp(e)
	case *ast.UnaryOp:
		return a.analyzeUnaryOp(e)
	case *ast.Compare:
		return a.analyzeCompare(e)
	case *ast.BoolOp:
		return a.analyzeBoolOp(e)
	case *ast.Call:
		return a.analyzeCall(e)
	case *ast.Attribute:
		return a.analyzeAttribute(e)
	case *ast.Subscript:
		return a.analyzeSubscript(e)
	default:
		return nil, a.fail("Unsupported expression type")
	}
}

func constantType(c *ast.Constant) *Ty {
	switch c.Kind {
	case ast.ConstInt:
		return Primitive(Int)
	case ast.ConstFloat:
		return Primitive(Float)
	case ast.ConstStr:
		return Primitive(Str)
	case ast.ConstBool:
		return Primitive(Bool)
	default:
		return Primitive(None)
	}
}

func (a *Analyzer) analyzeBinOp(e *ast.BinOp) (*Ty, error) {
	left, err := a.analyzeExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := a.analyzeExpr(e.Right)
	if err != nil {
		return nil, err
	}
	if (left != nil && left.Kind == Float) || (right != nil && right.Kind == Float) {
		return Primitive(Float), nil
	}
	if left != nil && left.Kind == Int && right != nil && right.Kind == Int {
		return Primitive(Int), nil
	}
	return Primitive(Int), nil // fallback for non-numeric operands
}

// analyzeUnaryOp: the operand's type passes through unchanged.
func (a *Analyzer) analyzeUnaryOp(e *ast.UnaryOp) (*Ty, error) {
	operand, err := a.analyzeExpr(e.Operand)
	if err != nil {
		return nil, err
	}
	return operand, nil
}

func (a *Analyzer) analyzeCompare(e *ast.Compare) (*Ty, error) {
	left, err := a.analyzeExpr(e.Left)
	if err != nil {
		return nil, err
	}
	for _, comparator := range e.Comparators {
		right, err := a.analyzeExpr(comparator)
		if err != nil {
			return nil, err
		}
		if left != nil && right != nil && !Compatible(left, right) && !Compatible(right, left) {
			if !IsNumeric(left) || !IsNumeric(right) {
				return nil, a.fail("Cannot compare incompatible types")
			}
		}
	}
	return Primitive(Bool), nil
}

// analyzeBoolOp requires every operand to be bool-compatible; the result
// is bool.
func (a *Analyzer) analyzeBoolOp(e *ast.BoolOp) (*Ty, error) {
	for _, v := range e.Values {
		t, err := a.analyzeExpr(v)
		if err != nil {
			return nil, err
		}
		if t != nil && !Compatible(Primitive(Bool), t) {
			return nil, a.fail("Cannot compare incompatible types")
		}
	}
	return Primitive(Bool), nil
}

func (a *Analyzer) analyzeCall(e *ast.Call) (*Ty, error) {
	name, ok := e.Func.(*ast.Name)
	if !ok {
		return nil, a.fail("Unsupported function call type")
	}

	switch name.Id {
	case "print":
		if len(e.Args) != 1 {
			return nil, a.fail("print() expects exactly one argument")
		}
		if _, err := a.analyzeExpr(e.Args[0]); err != nil {
			return nil, err
		}
		return nil, nil
	case "range":
		if len(e.Args) != 1 {
			return nil, a.fail("range() expects exactly one argument")
		}
		argType, err := a.analyzeExpr(e.Args[0])
		if err != nil {
			return nil, err
		}
		if argType != nil && argType.Kind != Int {
			return nil, a.fail("range() expects integer argument")
		}
		return UserType("range_object"), nil
	}

	sym, ok := a.global.LookupCurrent(name.Id)
	if !ok || sym.Kind != Function {
		return nil, a.fail("Function not defined")
	}
	if len(e.Args) != len(sym.ParamTypes) {
		return nil, a.fail("Function argument count mismatch")
	}
	for i, argExpr := range e.Args {
		argType, err := a.analyzeExpr(argExpr)
		if err != nil {
			return nil, err
		}
		if argType != nil && !Compatible(sym.ParamTypes[i], argType) {
			return nil, a.fail("Function argument type mismatch")
		}
	}
	return sym.ReturnType, nil
}

func (a *Analyzer) analyzeAttribute(e *ast.Attribute) (*Ty, error) {
	objType, err := a.analyzeExpr(e.Value)
	if err != nil {
		return nil, err
	}
	if objType == nil || objType.Kind != User {
		return nil, a.fail("Cannot access attribute on non-struct type")
	}
	structSym, ok := a.global.LookupCurrent(objType.Name)
	if !ok || structSym.Kind != Struct {
		return nil, a.fail("Cannot access attribute on non-struct type")
	}
	for _, f := range structSym.Fields {
		if f.Name == e.Attr {
			return f.Type, nil
		}
	}
	return nil, a.fail("Struct field not found")
}

// analyzeSubscript: indexing array[T, N] or ptr[T] yields T.
func (a *Analyzer) analyzeSubscript(e *ast.Subscript) (*Ty, error) {
	valueType, err := a.analyzeExpr(e.Value)
	if err != nil {
		return nil, err
	}
	if _, err := a.analyzeExpr(e.Slice); err != nil {
		return nil, err
	}
	if valueType == nil || (valueType.Kind != Array && valueType.Kind != Ptr) {
		return nil, a.fail("Cannot subscript non-array/pointer type")
	}
	return valueType.Elem, nil
}
