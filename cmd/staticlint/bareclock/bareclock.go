// Package bareclock defines an analyzer that reports direct time.Now calls
// in the metrics and reporting packages, where time must come from the
// injected Clock so tests stay deterministic.
package bareclock

import (
	"fmt"
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer is the bareclock analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "bareclock",
	Doc:      "reports direct time.Now calls in clock-injected packages",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

var clockedPackages = map[string]bool{
	"metrics":   true,
	"reporting": true,
}

func run(pass *analysis.Pass) (any, error) {
	if pass.Pkg == nil || !clockedPackages[pass.Pkg.Name()] {
		return nil, nil
	}

	insp, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, fmt.Errorf("failed to assert type: expected *inspector.Inspector")
	}

	insp.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return
		}
		if !isTimeNowCall(pass, call) {
			return
		}
		file := filepath.Base(pass.Fset.Position(call.Pos()).Filename)
		if file == "clock.go" || strings.HasSuffix(file, "_test.go") {
			return
		}
		pass.Reportf(call.Pos(), "use the injected Clock instead of time.Now")
	})

	return nil, nil
}

func isTimeNowCall(pass *analysis.Pass, call *ast.CallExpr) bool {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel == nil {
		return false
	}
	if pass.TypesInfo == nil || pass.TypesInfo.Uses == nil {
		return false
	}
	fn, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
	if !ok || fn.Pkg() == nil {
		return false
	}
	return fn.Pkg().Path() == "time" && fn.Name() == "Now"
}
