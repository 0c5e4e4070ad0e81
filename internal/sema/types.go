// ==============================================================================================
// FILE: internal/sema/types.go
// ==============================================================================================
// PACKAGE: sema
// PURPOSE: A typed intermediate representation for surface-level type annotations: a small
//          closed sum type instead of raw type strings re-probed at every use site. Ty values
//          are only ever formatted back to strings for diagnostics or C emission;
//          comparisons and compatibility checks operate on the structured form directly.
// ==============================================================================================

package sema

import (
	"fmt"
	"strconv"
	"strings"

	"pyrinas/internal/ast"
)

// Kind enumerates the closed set of type shapes a surface annotation can
// denote.
type Kind int

const (
	Int Kind = iota
	Float
	Bool
	Str
	Void
	None
	Ptr
	Array
	Result
	User
)

// Ty is the typed replacement for a raw type-string. Ptr and the success
// half of Result carry an Elem; Array additionally carries a Size; Result
// additionally carries an Err type; User carries a Name for struct/enum/
// interface/forward-declared types.
type Ty struct {
	Kind Kind
	Elem *Ty
	Err  *Ty
	Size int64
	Name string
}

func Primitive(k Kind) *Ty { return &Ty{Kind: k} }

func UserType(name string) *Ty { return &Ty{Kind: User, Name: name} }

// String renders a Ty back to its canonical surface spelling, the same
// vocabulary the language's type annotations use.
func (t *Ty) String() string {
	if t == nil {
		return "None"
	}
	switch t.Kind {
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Str:
		return "str"
	case Void:
		return "void"
	case None:
		return "None"
	case Ptr:
		return fmt.Sprintf("ptr[%s]", t.Elem.String())
	case Array:
		return fmt.Sprintf("array[%s, %d]", t.Elem.String(), t.Size)
	case Result:
		return fmt.Sprintf("Result[%s, %s]", t.Elem.String(), t.Err.String())
	default:
		return t.Name
	}
}

// Equal reports structural equality between two Ty values.
func (t *Ty) Equal(o *Ty) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case Ptr:
		return t.Elem.Equal(o.Elem)
	case Array:
		return t.Size == o.Size && t.Elem.Equal(o.Elem)
	case Result:
		return t.Elem.Equal(o.Elem) && t.Err.Equal(o.Err)
	case User:
		return t.Name == o.Name
	default:
		return true
	}
}

// primitiveNames maps the closed set of built-in type spellings to their Ty
// kind; anything else is a user-declared struct/enum/interface name.
var primitiveNames = map[string]Kind{
	"int":   Int,
	"float": Float,
	"bool":  Bool,
	"str":   Str,
	"void":  Void,
	"None":  None,
}

// FromAnnotation parses the AST expression produced by the parser's type
// annotation sub-grammar into a Ty. It accepts a bare name, a subscript of
// the form name[elem] or name[elem, SIZE] (only "ptr" and "array" bases are
// mapped to structured types; any other base is kept as an opaque user type
// name — the second subscript slot is a NUMBER, not a type, so a two-type
// spelling like Result[int, str] can only be
// written as a string-literal annotation), or a string literal, whose
// contents are parsed through ParseTypeString. Returns (nil, false) if
// annotation is nil or not a recognized shape.
func FromAnnotation(annotation ast.Expr) (*Ty, bool) {
	if annotation == nil {
		return nil, false
	}

	switch n := annotation.(type) {
	case *ast.Name:
		if k, ok := primitiveNames[n.Id]; ok {
			return &Ty{Kind: k}, true
		}
		return UserType(n.Id), true

	case *ast.Constant:
		if n.Kind == ast.ConstStr {
			return ParseTypeString(n.Str)
		}
		return nil, false

	case *ast.Subscript:
		base, ok := n.Value.(*ast.Name)
		if !ok {
			return nil, false
		}
		elemExpr, size, hasSize := unpackAnnotationSlice(n.Slice)

		switch base.Id {
		case "ptr":
			elem, ok := FromAnnotation(elemExpr)
			if !ok {
				return nil, false
			}
			return &Ty{Kind: Ptr, Elem: elem}, true
		case "array":
			elem, ok := FromAnnotation(elemExpr)
			if !ok || !hasSize {
				return nil, false
			}
			return &Ty{Kind: Array, Elem: elem, Size: size}, true
		default:
			return UserType(annotation.String()), true
		}
	}

	return nil, false
}

// unpackAnnotationSlice decodes the shape the parser builds for a
// subscript-style annotation: a bare element-type Name (no size), or a
// nested Subscript{Value: elementName, Slice: sizeConstant}.
func unpackAnnotationSlice(slice ast.Expr) (elem ast.Expr, size int64, hasSize bool) {
	if nested, ok := slice.(*ast.Subscript); ok {
		if c, ok := nested.Slice.(*ast.Constant); ok && c.Kind == ast.ConstInt {
			return nested.Value, c.Int, true
		}
	}
	return slice, 0, false
}

// ParseTypeString parses the canonical surface spelling of a type into a
// Ty. String-literal annotations carry their type as raw text, so the
// bracketed grammars (ptr[T], array[T, N], Result[T, E]) have to be
// recognized here as well as in the parser's annotation sub-grammar; this
// is the one place that recognition happens, instead of substring probes
// scattered across the analyzer and emitter. Whitespace around the
// bracketed arguments is tolerated. Anything unrecognized is an opaque
// user-declared type name.
func ParseTypeString(s string) (*Ty, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if k, ok := primitiveNames[s]; ok {
		return &Ty{Kind: k}, true
	}

	base, args, bracketed := splitBracketed(s)
	if !bracketed {
		return UserType(s), true
	}

	switch base {
	case "ptr":
		if len(args) != 1 {
			return nil, false
		}
		elem, ok := ParseTypeString(args[0])
		if !ok {
			return nil, false
		}
		return &Ty{Kind: Ptr, Elem: elem}, true
	case "array":
		if len(args) != 2 {
			return nil, false
		}
		elem, ok := ParseTypeString(args[0])
		if !ok {
			return nil, false
		}
		size, err := strconv.ParseInt(strings.TrimSpace(args[1]), 10, 64)
		if err != nil || size <= 0 {
			return nil, false
		}
		return &Ty{Kind: Array, Elem: elem, Size: size}, true
	case "Result":
		if len(args) != 2 {
			return nil, false
		}
		okTy, ok1 := ParseTypeString(args[0])
		errTy, ok2 := ParseTypeString(args[1])
		if !ok1 || !ok2 {
			return nil, false
		}
		return &Ty{Kind: Result, Elem: okTy, Err: errTy}, true
	default:
		return UserType(s), true
	}
}

// splitBracketed decomposes "base[a, b]" into its base name and top-level
// comma-separated arguments. The comma split respects bracket nesting so
// "Result[ptr[int], str]" keeps its first argument whole.
func splitBracketed(s string) (base string, args []string, ok bool) {
	open := strings.IndexByte(s, '[')
	if open <= 0 || s[len(s)-1] != ']' {
		return "", nil, false
	}
	base = s[:open]
	inner := s[open+1 : len(s)-1]

	depth := 0
	start := 0
	for i := 0; i < len(inner); i++ {
		switch inner[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				args = append(args, inner[start:i])
				start = i + 1
			}
		}
	}
	args = append(args, inner[start:])
	return base, args, true
}

// Compatible implements types_compatible: exact structural match, bool
// accepting int, or a generic ptr[void] satisfying any pointer type.
func Compatible(a, b *Ty) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Equal(b) {
		return true
	}
	if a.Kind == Bool && b.Kind == Int {
		return true
	}
	if a.Kind == Ptr && b.Kind == Ptr && b.Elem != nil && b.Elem.Kind == Void {
		return true
	}
	return false
}

func IsNumeric(t *Ty) bool {
	return t != nil && (t.Kind == Int || t.Kind == Float)
}
