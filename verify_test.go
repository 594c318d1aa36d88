// Package dremio_simplejson_test holds repository-wide structure checks that
// no single package test can see: unreachable packages, interfaces backed
// only by no-op types, and go.mod requirements nothing imports.
//
// Run: go test -run 'TestNoDeadPackages|TestNoopOnlyInterfaces|TestDirectRequirementsImported' .
package dremio_simplejson_test

import (
	"bufio"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modulePath = "github.com/txn2/dremio-simplejson"

// sourceFile is a parsed Go file of this module.
type sourceFile struct {
	dir     string // slash-separated, relative to the module root
	pkgName string
	test    bool
	syntax  *ast.File
}

func (f sourceFile) imports() []string {
	paths := make([]string, 0, len(f.syntax.Imports))
	for _, spec := range f.syntax.Imports {
		if p, err := strconv.Unquote(spec.Path.Value); err == nil {
			paths = append(paths, p)
		}
	}
	return paths
}

// parseModule parses every Go file below the module root, skipping
// underscore, dot and testdata directories the go tool also ignores.
func parseModule(t *testing.T) []sourceFile {
	t.Helper()

	fset := token.NewFileSet()
	var files []sourceFile
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != "." && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") {
			return nil
		}
		syntax, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			return err
		}
		files = append(files, sourceFile{
			dir:     filepath.ToSlash(filepath.Dir(path)),
			pkgName: syntax.Name.Name,
			test:    strings.HasSuffix(name, "_test.go"),
			syntax:  syntax,
		})
		return nil
	})
	require.NoError(t, err)
	require.NotEmpty(t, files)
	return files
}

// TestNoDeadPackages checks that every library package under pkg/ and
// internal/ is imported by non-test code in some other package. A package
// only its own tests reach never runs in the bridge.
func TestNoDeadPackages(t *testing.T) {
	files := parseModule(t)

	reached := map[string]bool{}
	for _, f := range files {
		if f.test {
			continue
		}
		if strings.HasPrefix(f.dir, "pkg/") || strings.HasPrefix(f.dir, "internal/") {
			if _, seen := reached[f.dir]; !seen {
				reached[f.dir] = false
			}
		}
	}
	require.NotEmpty(t, reached)

	for _, f := range files {
		if f.test {
			continue
		}
		for _, imp := range f.imports() {
			dir, ok := strings.CutPrefix(imp, modulePath+"/")
			if !ok || dir == f.dir {
				continue
			}
			if _, tracked := reached[dir]; tracked {
				reached[dir] = true
			}
		}
	}

	for dir, ok := range reached {
		assert.True(t, ok,
			"package %s/%s is never imported by non-test code; wire it into the bridge or delete it",
			modulePath, dir)
	}
}

// TestNoopOnlyInterfaces checks that an interface with a no-op
// implementation, asserted as `var _ I = (*T)(nil)`, also has a real one.
// Otherwise the feature behind it compiles and passes tests while doing
// nothing.
func TestNoopOnlyInterfaces(t *testing.T) {
	files := parseModule(t)

	impls := map[string][]string{}
	for _, f := range files {
		if f.test {
			continue
		}
		for _, decl := range f.syntax.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.VAR {
				continue
			}
			for _, spec := range gen.Specs {
				vs, ok := spec.(*ast.ValueSpec)
				if !ok || vs.Type == nil {
					continue
				}
				iface := qualifiedName(vs.Type, f.pkgName)
				for i, name := range vs.Names {
					if name.Name != "_" || i >= len(vs.Values) || iface == "" {
						continue
					}
					if impl := concreteName(vs.Values[i]); impl != "" {
						impls[iface] = append(impls[iface], impl)
					}
				}
			}
		}
	}
	require.NotEmpty(t, impls, "expected interface compliance assertions")

	for iface, types := range impls {
		var noop, realImpls int
		for _, typ := range types {
			if strings.Contains(strings.ToLower(typ), "noop") {
				noop++
			} else {
				realImpls++
			}
		}
		if noop > 0 {
			assert.Positive(t, realImpls,
				"interface %s is only implemented by no-op types %v; implement the real behavior or drop the feature",
				iface, types)
		}
	}
}

// qualifiedName renders an interface type expression as pkg.Name.
func qualifiedName(expr ast.Expr, pkgName string) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return pkgName + "." + e.Name
	case *ast.SelectorExpr:
		if x, ok := e.X.(*ast.Ident); ok {
			return x.Name + "." + e.Sel.Name
		}
	}
	return ""
}

// concreteName extracts T from (*T)(nil), T{} or &T{}.
func concreteName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.CallExpr:
		if paren, ok := e.Fun.(*ast.ParenExpr); ok {
			if star, ok := paren.X.(*ast.StarExpr); ok {
				return typeName(star.X)
			}
		}
	case *ast.UnaryExpr:
		return concreteName(e.X)
	case *ast.CompositeLit:
		return typeName(e.Type)
	}
	return ""
}

func typeName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.SelectorExpr:
		return e.Sel.Name
	}
	return ""
}

// TestDirectRequirementsImported checks that every direct requirement in
// go.mod is imported by at least one file, tests included.
func TestDirectRequirementsImported(t *testing.T) {
	direct := directRequirements(t, "go.mod")
	require.NotEmpty(t, direct)

	var imports []string
	for _, f := range parseModule(t) {
		imports = append(imports, f.imports()...)
	}

	for _, mod := range direct {
		used := false
		for _, imp := range imports {
			if imp == mod || strings.HasPrefix(imp, mod+"/") {
				used = true
				break
			}
		}
		assert.True(t, used, "go.mod requires %s but nothing imports it", mod)
	}
}

// directRequirements returns the module paths required without an
// "// indirect" marker.
func directRequirements(t *testing.T, path string) []string {
	t.Helper()

	f, err := os.Open(path) //nolint:gosec // fixed path within the module
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var mods []string
	inBlock := false
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "require (":
			inBlock = true
			continue
		case inBlock && line == ")":
			inBlock = false
			continue
		case strings.HasPrefix(line, "require "):
			line = strings.TrimPrefix(line, "require ")
		case !inBlock:
			continue
		}
		if line == "" || strings.Contains(line, "// indirect") {
			continue
		}
		if fields := strings.Fields(line); len(fields) >= 2 {
			mods = append(mods, fields[0])
		}
	}
	require.NoError(t, sc.Err())
	return mods
}
