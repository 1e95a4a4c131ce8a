package analyzer

import (
	"go/ast"
	"go/types"
	"path"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const (
	analyzerName = "forbiddencalls"
	analyzerDoc  = "reports panic anywhere, log.Fatal*, log.Panic* or os.Exit outside the main function, " +
		"and typed collaborator errors that are built and then dropped"

	apperrorPkg = "apperror"
)

// Analyzer keeps process termination in main: library packages return errors.
var Analyzer = &analysis.Analyzer{
	Name:     analyzerName,
	Doc:      analyzerDoc,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

// apperrorConstructors wrap a collaborator failure; the result has to reach
// an error policy or a return.
var apperrorConstructors = map[string]bool{
	"New":   true,
	"Auth":  true,
	"Fetch": true,
	"Write": true,
}

var terminatingLogCalls = map[string]bool{
	"Fatal":   true,
	"Fatalf":  true,
	"Fatalln": true,
	"Panic":   true,
	"Panicf":  true,
	"Panicln": true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.CallExpr)(nil),
		(*ast.ExprStmt)(nil),
		(*ast.AssignStmt)(nil),
	}

	insp.Preorder(nodeFilter, func(node ast.Node) {
		switch n := node.(type) {
		case *ast.CallExpr:
			checkCall(pass, n)
		case *ast.ExprStmt:
			if call, ok := n.X.(*ast.CallExpr); ok {
				checkDiscardedError(pass, call)
			}
		case *ast.AssignStmt:
			if len(n.Rhs) == 1 && allBlank(n.Lhs) {
				if call, ok := n.Rhs[0].(*ast.CallExpr); ok {
					checkDiscardedError(pass, call)
				}
			}
		}
	})

	return nil, nil
}

func checkCall(pass *analysis.Pass, callExpr *ast.CallExpr) {
	switch fn := callExpr.Fun.(type) {
	case *ast.Ident:
		if fn.Name == "panic" {
			pass.Reportf(callExpr.Pos(), "panic is forbidden")
		}
	case *ast.SelectorExpr:
		checkSelectorExpr(pass, fn, callExpr)
	}
}

// checkDiscardedError reports apperror constructors whose result is thrown
// away, which silently loses the failure kind.
func checkDiscardedError(pass *analysis.Pass, callExpr *ast.CallExpr) {
	sel, ok := callExpr.Fun.(*ast.SelectorExpr)
	if !ok {
		return
	}
	pkgPath, ok := importedPath(pass, sel)
	if !ok || path.Base(pkgPath) != apperrorPkg {
		return
	}
	if apperrorConstructors[sel.Sel.Name] {
		pass.Reportf(callExpr.Pos(), "result of apperror.%s is discarded", sel.Sel.Name)
	}
}

func allBlank(exprs []ast.Expr) bool {
	for _, e := range exprs {
		if ident, ok := e.(*ast.Ident); !ok || ident.Name != "_" {
			return false
		}
	}
	return true
}

// importedPath resolves pkg.Func selectors to the import path of pkg.
func importedPath(pass *analysis.Pass, sel *ast.SelectorExpr) (string, bool) {
	ident, ok := sel.X.(*ast.Ident)
	if !ok || pass.TypesInfo == nil {
		return "", false
	}
	pkgName, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)
	if !ok {
		return "", false
	}
	return pkgName.Imported().Path(), true
}

func checkSelectorExpr(pass *analysis.Pass, selectorExpr *ast.SelectorExpr, callExpr *ast.CallExpr) {
	if pkgPath, ok := importedPath(pass, selectorExpr); ok {
		fn := selectorExpr.Sel.Name

		switch {
		case pkgPath == "log" && terminatingLogCalls[fn]:
			if !isInMainFunction(pass, callExpr) {
				pass.Reportf(callExpr.Pos(), "log.%s is forbidden outside main function", fn)
			}
		case pkgPath == "os" && fn == "Exit":
			if !isInMainFunction(pass, callExpr) {
				pass.Reportf(callExpr.Pos(), "os.Exit is forbidden outside main function")
			}
		}
	}
}

func isInMainFunction(pass *analysis.Pass, node ast.Node) bool {
	for _, f := range pass.Files {
		for _, decl := range f.Decls {
			if funcDecl, ok := decl.(*ast.FuncDecl); ok {
				if funcDecl.Name.Name == "main" && isNodeInsideFunc(node, funcDecl) {
					return true
				}
			}
		}
	}
	return false
}

func isNodeInsideFunc(target ast.Node, funcDecl *ast.FuncDecl) bool {
	found := false
	ast.Inspect(funcDecl.Body, func(n ast.Node) bool {
		if n == target {
			found = true
			return false
		}
		return true
	})
	return found
}
