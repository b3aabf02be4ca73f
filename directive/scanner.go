package directive

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/autoconfig/mapping"
)

// Scanner finds struct types annotated with //prop: directives in Go source and
// turns them into mapping classes.
type Scanner struct {
	registry     *mapping.Registry
	fileSet      *token.FileSet
	logger       *slog.Logger
	includeTests bool
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithLogger sets the scanner logger.
func WithLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTests includes _test.go files in directory scans.
func WithTests() ScannerOption {
	return func(s *Scanner) { s.includeTests = true }
}

// NewScanner creates a scanner that instantiates annotations registered in reg.
func NewScanner(reg *mapping.Registry, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		registry: reg,
		fileSet:  token.NewFileSet(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// declaration is a struct type found in source, before ancestry is resolved.
type declaration struct {
	name        string
	pos         token.Position
	annotations []any
	embedded    []string
}

// Classes is the result of a scan, keyed by type name.
type Classes map[string]*mapping.Class

// Names returns the class names in sorted order.
func (c Classes) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ScanDir scans the .go files of a single directory. Struct types without directives
// are kept so they can serve as supertypes. Files are parsed concurrently; results
// keep directory order.
func (s *Scanner) ScanDir(dir string) (Classes, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") {
			continue
		}
		if !s.includeTests && strings.HasSuffix(name, "_test.go") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}

	perFile := make([][]declaration, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			file, err := parser.ParseFile(s.fileSet, path, nil, parser.ParseComments)
			if err != nil {
				return fmt.Errorf("parse %s: %w", path, err)
			}
			found, err := s.extract(file)
			if err != nil {
				return err
			}
			perFile[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	classes, err := link(slices.Concat(perFile...))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	s.logger.Debug("directory scanned", "dir", dir, "files", len(paths), "types", len(classes))
	return classes, nil
}

// ParseSource scans source text as if it were a file named filename.
func (s *Scanner) ParseSource(filename, src string) (Classes, error) {
	file, err := parser.ParseFile(s.fileSet, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	decls, err := s.extract(file)
	if err != nil {
		return nil, err
	}
	return link(decls)
}

func (s *Scanner) extract(file *ast.File) ([]declaration, error) {
	var (
		decls []declaration
		errs  []error
	)
	for _, d := range file.Decls {
		gen, ok := d.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts := spec.(*ast.TypeSpec)
			st, ok := ts.Type.(*ast.StructType)
			if !ok || ts.TypeParams != nil {
				continue
			}

			doc := ts.Doc
			if doc == nil && len(gen.Specs) == 1 {
				doc = gen.Doc
			}

			decl := declaration{
				name:     ts.Name.Name,
				pos:      s.fileSet.Position(ts.Pos()),
				embedded: embeddedNames(st),
			}
			annotations, err := s.annotations(doc)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: type %s: %w", decl.pos, decl.name, err))
				continue
			}
			decl.annotations = annotations
			decls = append(decls, decl)
		}
	}
	return decls, errors.Join(errs...)
}

func (s *Scanner) annotations(doc *ast.CommentGroup) ([]any, error) {
	if doc == nil {
		return nil, nil
	}
	var out []any
	for _, c := range doc.List {
		if !IsDirective(c.Text) {
			continue
		}
		pos := s.fileSet.Position(c.Slash)
		d, err := parse(pos.Filename, c.Text)
		if err != nil {
			return nil, err
		}
		d.Pos.Line = pos.Line
		d.Pos.Column += pos.Column - 1

		a, err := Instantiate(s.registry, d)
		if err != nil {
			return nil, err
		}
		s.logger.Debug("directive instantiated", "annotation", d.Name, "at", pos.String())
		out = append(out, a)
	}
	return out, nil
}

// embeddedNames lists the embedded fields that name a type of the same package.
func embeddedNames(st *ast.StructType) []string {
	var names []string
	for _, field := range st.Fields.List {
		if len(field.Names) != 0 {
			continue
		}
		typ := field.Type
		if star, ok := typ.(*ast.StarExpr); ok {
			typ = star.X
		}
		if ident, ok := typ.(*ast.Ident); ok {
			names = append(names, ident.Name)
		}
	}
	return names
}

// link resolves supertypes: the first embedded name that is a scanned struct.
func link(decls []declaration) (Classes, error) {
	classes := make(Classes, len(decls))
	for _, d := range decls {
		if _, dup := classes[d.name]; dup {
			return nil, fmt.Errorf("%s: type %s declared twice", d.pos, d.name)
		}
		classes[d.name] = mapping.NewClass(d.name, nil, d.annotations...)
	}

	for _, d := range decls {
		for _, name := range d.embedded {
			if super, ok := classes[name]; ok && name != d.name {
				classes[d.name].Super = super
				break
			}
		}
	}

	for _, d := range decls {
		if err := checkCycle(classes[d.name]); err != nil {
			return nil, err
		}
	}
	return classes, nil
}

func checkCycle(c *mapping.Class) error {
	seen := make(map[*mapping.Class]bool)
	for cur := c; cur != nil; cur = cur.Super {
		if seen[cur] {
			return fmt.Errorf("type %s: embedding cycle", c.Name)
		}
		seen[cur] = true
	}
	return nil
}
