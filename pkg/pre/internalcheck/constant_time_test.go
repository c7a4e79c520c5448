package internalcheck

import (
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

func TestNoDirectByteComparison(t *testing.T) {
	pkgs := loadPre(t, packages.NeedSyntax|packages.NeedTypes|packages.NeedTypesInfo|packages.NeedFiles|packages.NeedName)

	var findings []string

	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			fset := pkg.Fset
			typesInfo := pkg.TypesInfo

			ast.Inspect(file, func(n ast.Node) bool {
				be, ok := n.(*ast.BinaryExpr)
				if !ok {
					return true
				}

				if be.Op != token.EQL && be.Op != token.NEQ {
					return true
				}

				left := typesInfo.TypeOf(be.X)
				right := typesInfo.TypeOf(be.Y)

				if isBytes(left) && isBytes(right) {
					pos := fset.Position(be.Pos())
					findings = append(findings, fmt.Sprintf("%s: avoid == on byte slices or arrays; use crypto/subtle", pos))
				}

				return true
			})
		}
	}

	if len(findings) > 0 {
		t.Fatalf("constant-time policy violation:\n%s", strings.Join(findings, "\n"))
	}
}

// isBytes matches []byte, [N]byte and named types over them, such as
// hrac.HRAC.
func isBytes(typ types.Type) bool {
	if typ == nil {
		return false
	}

	switch tt := typ.(type) {
	case *types.Slice:
		return isByte(tt.Elem())
	case *types.Pointer:
		return isBytes(tt.Elem())
	case *types.Named:
		return isBytes(tt.Underlying())
	case *types.Array:
		return isByte(tt.Elem())
	default:
		return false
	}
}

func isByte(t types.Type) bool {
	basic, ok := t.(*types.Basic)
	return ok && basic.Kind() == types.Byte
}

func TestIsBytes(t *testing.T) {
	byteSlice := types.NewSlice(types.Typ[types.Byte])
	named := types.NewNamed(types.NewTypeName(token.NoPos, nil, "HRAC", nil), types.NewArray(types.Typ[types.Byte], 32), nil)
	for _, tc := range []struct {
		typ  types.Type
		want bool
	}{
		{byteSlice, true},
		{types.NewPointer(byteSlice), true},
		{named, true},
		{types.NewSlice(types.Typ[types.Int]), false},
		{types.Typ[types.String], false},
		{types.Typ[types.UntypedNil], false},
	} {
		if got := isBytes(tc.typ); got != tc.want {
			t.Errorf("isBytes(%s) = %v, want %v", tc.typ, got, tc.want)
		}
	}
}
