package directive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Marker starts every directive comment.
const Marker = "//prop:"

var (
	ErrSyntax  = errors.New("directive syntax error")
	ErrUnknown = errors.New("unknown annotation")
)

// Directive is one parsed //prop: comment.
type Directive struct {
	Name string
	// Args holds string, int64, float64, bool or []any values.
	Args map[string]any
	// Keys lists the argument names in source order.
	Keys []string
	Pos  lexer.Position
}

func (d Directive) String() string {
	if len(d.Keys) == 0 {
		return Marker + d.Name
	}
	parts := make([]string, 0, len(d.Keys))
	for _, k := range d.Keys {
		parts = append(parts, k+"="+formatValue(d.Args[k]))
	}
	return fmt.Sprintf("%s%s(%s)", Marker, d.Name, strings.Join(parts, ", "))
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, formatValue(item))
		}
		return "[" + strings.Join(items, ", ") + "]"
	default:
		return fmt.Sprint(val)
	}
}

type directiveAST struct {
	Pos    lexer.Position
	Marker string    `parser:"@Marker"`
	Name   string    `parser:"@Ident"`
	Args   []*argAST `parser:"( '(' ( @@ ( ',' @@ )* )? ')' )?"`
}

type argAST struct {
	Pos   lexer.Position
	Key   string    `parser:"@Ident '='"`
	Value *valueAST `parser:"@@"`
}

type valueAST struct {
	String *string  `parser:"  @String"`
	Float  *float64 `parser:"| @Float"`
	Int    *int64   `parser:"| @Int"`
	Bool   *boolean `parser:"| @('true' | 'false')"`
	List   *listAST `parser:"| @@"`
	Ident  *string  `parser:"| @Ident"`
}

type listAST struct {
	Open  bool        `parser:"@'['"`
	Items []*valueAST `parser:"( @@ ( ',' @@ )* )? ']'"`
}

type boolean bool

func (b *boolean) Capture(values []string) error {
	*b = values[0] == "true"
	return nil
}

func (v *valueAST) value() any {
	switch {
	case v.String != nil:
		return *v.String
	case v.Float != nil:
		return *v.Float
	case v.Int != nil:
		return *v.Int
	case v.Bool != nil:
		return bool(*v.Bool)
	case v.List != nil:
		items := make([]any, 0, len(v.List.Items))
		for _, item := range v.List.Items {
			items = append(items, item.value())
		}
		return items
	case v.Ident != nil:
		return *v.Ident
	}
	return nil
}

var directiveParser = participle.MustBuild[directiveAST](
	participle.Lexer(lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Marker", Pattern: `//prop:`},
		{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
		{Name: "Float", Pattern: `[-+]?[0-9]+\.[0-9]+`},
		{Name: "Int", Pattern: `[-+]?[0-9]+`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.-]*`},
		{Name: "Punct", Pattern: `[(),=\[\]]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})),
	participle.Unquote("String"),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// IsDirective reports whether a comment line is a directive.
func IsDirective(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), Marker)
}

// Parse parses a single directive comment such as
//
//	//prop:AutoConfigureCache(provider="redis", regions=[eu, us], ttl=30)
func Parse(line string) (Directive, error) {
	return parse("", line)
}

func parse(filename, line string) (Directive, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, Marker) {
		return Directive{}, fmt.Errorf("%w: missing %s prefix", ErrSyntax, Marker)
	}

	ast, err := directiveParser.ParseString(filename, line)
	if err != nil {
		return Directive{}, fmt.Errorf("%w: %w", ErrSyntax, err)
	}

	d := Directive{
		Name: ast.Name,
		Args: make(map[string]any, len(ast.Args)),
		Pos:  ast.Pos,
	}
	for _, arg := range ast.Args {
		if _, dup := d.Args[arg.Key]; dup {
			return Directive{}, fmt.Errorf("%w: %s: argument %q repeated", ErrSyntax, arg.Pos, arg.Key)
		}
		d.Args[arg.Key] = arg.Value.value()
		d.Keys = append(d.Keys, arg.Key)
	}
	return d, nil
}
