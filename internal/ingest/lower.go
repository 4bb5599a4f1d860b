package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// Source is code handed to a tree-sitter grammar. Line and Offset place the
// code's first byte in the file it came from.
type Source struct {
	Path   string
	Code   []byte
	Lang   Language
	Line   int // 0-based
	Offset int
}

// ParseSource parses src with tree-sitter and lowers the concrete syntax tree
// to ESTree-shaped values: maps carrying "type", "start", "end" and "loc",
// with ESTree field names for the constructs the matchers read. Other node
// kinds keep their grammar field names under a PascalCase type.
//
// When the code has syntax errors the recovered tree is still returned,
// together with a *SyntaxError.
func ParseSource(ctx context.Context, src Source) (map[string]any, error) {
	lang := src.Lang.grammar()
	if lang == nil {
		return nil, fmt.Errorf("%s: no grammar for %q", src.Path, src.Lang)
	}
	parser := sitter.NewParser()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src.Code)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Path, err)
	}
	root := tree.RootNode()
	if root == nil {
		return nil, fmt.Errorf("parse %s: empty syntax tree", src.Path)
	}

	l := &lowerer{src: src}
	return l.program(root), checkSyntax(root, src)
}

type lowerer struct {
	src Source
}

func (l *lowerer) text(n *sitter.Node) string {
	return n.Content(l.src.Code)
}

func (l *lowerer) record(kind string, n *sitter.Node) map[string]any {
	return map[string]any{
		"type":  kind,
		"start": int(n.StartByte()) + l.src.Offset,
		"end":   int(n.EndByte()) + l.src.Offset,
		"loc": map[string]any{
			"start": l.point(n.StartPoint()),
			"end":   l.point(n.EndPoint()),
		},
	}
}

func (l *lowerer) point(p sitter.Point) map[string]any {
	return map[string]any{
		"line":   int(p.Row) + l.src.Line + 1,
		"column": int(p.Column),
	}
}

func (l *lowerer) program(n *sitter.Node) map[string]any {
	rec := l.record("Program", n)
	rec["sourceType"] = "module"
	body := []any{}
	for _, c := range namedChildren(n) {
		if c.Type() == "hash_bang_line" {
			continue
		}
		body = append(body, l.lower(c))
	}
	rec["body"] = body
	return rec
}

func (l *lowerer) lower(n *sitter.Node) any {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "parenthesized_expression":
		return l.lower(firstNamed(n))
	case "else_clause":
		return l.lower(firstNamed(n))
	case "program":
		return l.program(n)

	case "identifier", "property_identifier", "shorthand_property_identifier",
		"shorthand_property_identifier_pattern", "statement_identifier",
		"type_identifier", "undefined":
		rec := l.record("Identifier", n)
		rec["name"] = l.text(n)
		return rec
	case "private_property_identifier":
		rec := l.record("PrivateIdentifier", n)
		rec["name"] = strings.TrimPrefix(l.text(n), "#")
		return rec
	case "this":
		return l.record("ThisExpression", n)
	case "super":
		return l.record("Super", n)
	case "string", "number", "true", "false", "null", "regex":
		return l.literal(n)
	case "template_string":
		return l.template(n)

	case "function_declaration", "generator_function_declaration":
		return l.function("FunctionDeclaration", n)
	case "function", "function_expression", "generator_function":
		return l.function("FunctionExpression", n)
	case "arrow_function":
		return l.arrow(n)
	case "lexical_declaration", "variable_declaration":
		return l.declaration(n)
	case "variable_declarator":
		rec := l.record("VariableDeclarator", n)
		rec["id"] = l.lower(n.ChildByFieldName("name"))
		rec["init"] = l.lower(n.ChildByFieldName("value"))
		return rec

	case "object":
		rec := l.record("ObjectExpression", n)
		props := []any{}
		for _, c := range namedChildren(n) {
			props = append(props, l.property(c))
		}
		rec["properties"] = props
		return rec
	case "pair":
		return l.property(n)
	case "method_definition":
		p := n.Parent()
		return l.method(n, p != nil && p.Type() == "class_body")
	case "class_declaration":
		return l.class("ClassDeclaration", n)
	case "abstract_class_declaration":
		rec := l.class("ClassDeclaration", n)
		rec["abstract"] = true
		return rec
	case "class":
		return l.class("ClassExpression", n)

	case "call_expression":
		return l.call(n)
	case "new_expression":
		rec := l.record("NewExpression", n)
		rec["callee"] = l.lower(n.ChildByFieldName("constructor"))
		rec["arguments"] = l.items(n.ChildByFieldName("arguments"))
		return rec
	case "member_expression":
		rec := l.record("MemberExpression", n)
		rec["object"] = l.lower(n.ChildByFieldName("object"))
		rec["property"] = l.lower(n.ChildByFieldName("property"))
		rec["computed"] = false
		rec["optional"] = optional(n)
		return rec
	case "subscript_expression":
		rec := l.record("MemberExpression", n)
		rec["object"] = l.lower(n.ChildByFieldName("object"))
		rec["property"] = l.lower(n.ChildByFieldName("index"))
		rec["computed"] = true
		rec["optional"] = optional(n)
		return rec

	case "statement_block":
		rec := l.record("BlockStatement", n)
		rec["body"] = l.items(n)
		return rec
	case "expression_statement":
		rec := l.record("ExpressionStatement", n)
		rec["expression"] = l.lower(firstNamed(n))
		return rec
	case "return_statement":
		rec := l.record("ReturnStatement", n)
		rec["argument"] = l.lower(firstNamed(n))
		return rec
	case "if_statement":
		rec := l.record("IfStatement", n)
		rec["test"] = l.lower(n.ChildByFieldName("condition"))
		rec["consequent"] = l.lower(n.ChildByFieldName("consequence"))
		rec["alternate"] = l.lower(n.ChildByFieldName("alternative"))
		return rec
	case "export_statement":
		return l.export(n)

	case "await_expression":
		rec := l.record("AwaitExpression", n)
		rec["argument"] = l.lower(firstNamed(n))
		return rec
	case "yield_expression":
		rec := l.record("YieldExpression", n)
		rec["argument"] = l.lower(firstNamed(n))
		rec["delegate"] = hasToken(n, "*")
		return rec
	case "spread_element":
		rec := l.record("SpreadElement", n)
		rec["argument"] = l.lower(firstNamed(n))
		return rec
	case "array":
		rec := l.record("ArrayExpression", n)
		rec["elements"] = l.items(n)
		return rec
	case "assignment_expression":
		rec := l.record("AssignmentExpression", n)
		rec["operator"] = "="
		rec["left"] = l.lower(n.ChildByFieldName("left"))
		rec["right"] = l.lower(n.ChildByFieldName("right"))
		return rec
	case "augmented_assignment_expression":
		rec := l.record("AssignmentExpression", n)
		rec["operator"] = operator(n)
		rec["left"] = l.lower(n.ChildByFieldName("left"))
		rec["right"] = l.lower(n.ChildByFieldName("right"))
		return rec
	case "binary_expression":
		op := operator(n)
		kind := "BinaryExpression"
		if op == "&&" || op == "||" || op == "??" {
			kind = "LogicalExpression"
		}
		rec := l.record(kind, n)
		rec["operator"] = op
		rec["left"] = l.lower(n.ChildByFieldName("left"))
		rec["right"] = l.lower(n.ChildByFieldName("right"))
		return rec
	case "unary_expression":
		rec := l.record("UnaryExpression", n)
		rec["operator"] = operator(n)
		rec["prefix"] = true
		rec["argument"] = l.lower(n.ChildByFieldName("argument"))
		return rec
	case "ternary_expression":
		rec := l.record("ConditionalExpression", n)
		rec["test"] = l.lower(n.ChildByFieldName("condition"))
		rec["consequent"] = l.lower(n.ChildByFieldName("consequence"))
		rec["alternate"] = l.lower(n.ChildByFieldName("alternative"))
		return rec
	}
	return l.generic(n)
}

func (l *lowerer) literal(n *sitter.Node) map[string]any {
	rec := l.record("Literal", n)
	raw := l.text(n)
	rec["raw"] = raw
	switch n.Type() {
	case "string":
		if len(raw) >= 2 {
			rec["value"] = unescape(raw[1 : len(raw)-1])
		} else {
			rec["value"] = raw
		}
	case "number":
		clean := strings.ReplaceAll(raw, "_", "")
		if i, err := strconv.ParseInt(clean, 0, 64); err == nil {
			rec["value"] = i
		} else if f, err := strconv.ParseFloat(clean, 64); err == nil {
			rec["value"] = f
		} else {
			rec["value"] = raw
		}
	case "true":
		rec["value"] = true
	case "false":
		rec["value"] = false
	case "null":
		rec["value"] = nil
	case "regex":
		rec["value"] = nil
		regex := map[string]any{"pattern": "", "flags": ""}
		if p := n.ChildByFieldName("pattern"); p != nil {
			regex["pattern"] = l.text(p)
		}
		if f := n.ChildByFieldName("flags"); f != nil {
			regex["flags"] = l.text(f)
		}
		rec["regex"] = regex
	}
	return rec
}

func (l *lowerer) template(n *sitter.Node) map[string]any {
	rec := l.record("TemplateLiteral", n)
	exprs := []any{}
	for _, c := range namedChildren(n) {
		if c.Type() == "template_substitution" {
			exprs = append(exprs, l.lower(firstNamed(c)))
		}
	}
	rec["expressions"] = exprs
	return rec
}

func (l *lowerer) function(kind string, n *sitter.Node) map[string]any {
	rec := l.record(kind, n)
	rec["id"] = l.lower(n.ChildByFieldName("name"))
	rec["params"] = l.items(n.ChildByFieldName("parameters"))
	rec["body"] = l.lower(n.ChildByFieldName("body"))
	rec["async"] = hasToken(n, "async")
	rec["generator"] = hasToken(n, "*") || strings.HasPrefix(n.Type(), "generator_")
	rec["expression"] = false
	return rec
}

func (l *lowerer) arrow(n *sitter.Node) map[string]any {
	rec := l.record("ArrowFunctionExpression", n)
	rec["id"] = nil
	if p := n.ChildByFieldName("parameter"); p != nil {
		rec["params"] = []any{l.lower(p)}
	} else {
		rec["params"] = l.items(n.ChildByFieldName("parameters"))
	}
	body := n.ChildByFieldName("body")
	rec["body"] = l.lower(body)
	rec["expression"] = body != nil && body.Type() != "statement_block"
	rec["async"] = hasToken(n, "async")
	rec["generator"] = false
	return rec
}

func (l *lowerer) declaration(n *sitter.Node) map[string]any {
	rec := l.record("VariableDeclaration", n)
	kind := "var"
	if n.Type() == "lexical_declaration" {
		if k := n.ChildByFieldName("kind"); k != nil {
			kind = k.Type()
		} else if first := n.Child(0); first != nil {
			kind = first.Type()
		}
	}
	decls := []any{}
	for _, c := range namedChildren(n) {
		if c.Type() == "variable_declarator" {
			decls = append(decls, l.lower(c))
		}
	}
	rec["kind"] = kind
	rec["declarations"] = decls
	return rec
}

// property lowers one member of an object literal.
func (l *lowerer) property(n *sitter.Node) any {
	switch n.Type() {
	case "pair":
		key, computed := l.key(n.ChildByFieldName("key"))
		rec := l.record("Property", n)
		rec["key"] = key
		rec["value"] = l.lower(n.ChildByFieldName("value"))
		rec["kind"] = "init"
		rec["method"] = false
		rec["shorthand"] = false
		rec["computed"] = computed
		return rec
	case "shorthand_property_identifier":
		rec := l.record("Property", n)
		rec["key"] = l.lower(n)
		rec["value"] = l.lower(n)
		rec["kind"] = "init"
		rec["method"] = false
		rec["shorthand"] = true
		rec["computed"] = false
		return rec
	case "method_definition":
		return l.method(n, false)
	}
	return l.lower(n)
}

func (l *lowerer) key(n *sitter.Node) (any, bool) {
	if n != nil && n.Type() == "computed_property_name" {
		return l.lower(firstNamed(n)), true
	}
	return l.lower(n), false
}

// method lowers a method_definition to a Property in object literals and to
// a MethodDefinition in class bodies.
func (l *lowerer) method(n *sitter.Node, inClass bool) map[string]any {
	key, computed := l.key(n.ChildByFieldName("name"))

	fn := l.record("FunctionExpression", n)
	fn["id"] = nil
	fn["params"] = l.items(n.ChildByFieldName("parameters"))
	fn["body"] = l.lower(n.ChildByFieldName("body"))
	fn["async"] = hasToken(n, "async")
	fn["generator"] = hasToken(n, "*")
	fn["expression"] = false

	accessor := ""
	switch {
	case hasToken(n, "get"):
		accessor = "get"
	case hasToken(n, "set"):
		accessor = "set"
	}

	if inClass {
		rec := l.record("MethodDefinition", n)
		kind := "method"
		if accessor != "" {
			kind = accessor
		} else if name := n.ChildByFieldName("name"); !computed && name != nil && l.text(name) == "constructor" {
			kind = "constructor"
		}
		rec["key"] = key
		rec["value"] = fn
		rec["kind"] = kind
		rec["static"] = hasToken(n, "static")
		rec["computed"] = computed
		return rec
	}

	rec := l.record("Property", n)
	rec["key"] = key
	rec["value"] = fn
	rec["kind"] = "init"
	rec["method"] = accessor == ""
	if accessor != "" {
		rec["kind"] = accessor
	}
	rec["shorthand"] = false
	rec["computed"] = computed
	return rec
}

func (l *lowerer) class(kind string, n *sitter.Node) map[string]any {
	rec := l.record(kind, n)
	rec["id"] = l.lower(n.ChildByFieldName("name"))
	rec["superClass"] = nil
	for _, c := range namedChildren(n) {
		if c.Type() == "class_heritage" {
			rec["superClass"] = l.heritage(c)
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		rec["body"] = nil
		return rec
	}
	cb := l.record("ClassBody", body)
	members := []any{}
	for _, c := range namedChildren(body) {
		switch c.Type() {
		case "method_definition":
			members = append(members, l.method(c, true))
		case "field_definition", "public_field_definition":
			members = append(members, l.field(c))
		default:
			members = append(members, l.lower(c))
		}
	}
	cb["body"] = members
	rec["body"] = cb
	return rec
}

func (l *lowerer) heritage(n *sitter.Node) any {
	h := firstNamed(n)
	if h != nil && h.Type() == "extends_clause" {
		if v := h.ChildByFieldName("value"); v != nil {
			return l.lower(v)
		}
		h = firstNamed(h)
	}
	return l.lower(h)
}

func (l *lowerer) field(n *sitter.Node) map[string]any {
	name := n.ChildByFieldName("property")
	if name == nil {
		name = n.ChildByFieldName("name")
	}
	key, computed := l.key(name)
	rec := l.record("PropertyDefinition", n)
	rec["key"] = key
	rec["value"] = l.lower(n.ChildByFieldName("value"))
	rec["static"] = hasToken(n, "static")
	rec["computed"] = computed
	return rec
}

func (l *lowerer) call(n *sitter.Node) map[string]any {
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if args != nil && args.Type() == "template_string" {
		rec := l.record("TaggedTemplateExpression", n)
		rec["tag"] = l.lower(fn)
		rec["quasi"] = l.lower(args)
		return rec
	}
	rec := l.record("CallExpression", n)
	rec["callee"] = l.lower(fn)
	rec["arguments"] = l.items(args)
	rec["optional"] = optional(n)
	return rec
}

func (l *lowerer) export(n *sitter.Node) map[string]any {
	decl := n.ChildByFieldName("declaration")
	if hasToken(n, "default") {
		rec := l.record("ExportDefaultDeclaration", n)
		if decl == nil {
			decl = n.ChildByFieldName("value")
		}
		rec["declaration"] = l.lower(decl)
		return rec
	}

	rec := l.record("ExportNamedDeclaration", n)
	rec["declaration"] = l.lower(decl)
	rec["source"] = l.lower(n.ChildByFieldName("source"))
	specs := []any{}
	for _, c := range namedChildren(n) {
		if c.Type() == "export_clause" {
			for _, s := range namedChildren(c) {
				specs = append(specs, l.lower(s))
			}
		}
	}
	rec["specifiers"] = specs
	return rec
}

// generic keeps a node kind with no ESTree counterpart. Field-named children
// are stored under their field name, the rest in order under "children".
func (l *lowerer) generic(n *sitter.Node) map[string]any {
	rec := l.record(pascal(n.Type()), n)
	var children []any
	named := 0
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		field := n.FieldNameForChild(i)
		if !c.IsNamed() {
			if field != "" {
				rec[fieldKey(field)] = c.Type()
			}
			continue
		}
		named++
		v := l.lower(c)
		if field == "" {
			children = append(children, v)
			continue
		}
		key := fieldKey(field)
		switch prev := rec[key].(type) {
		case nil:
			rec[key] = v
		case []any:
			rec[key] = append(prev, v)
		default:
			rec[key] = []any{prev, v}
		}
	}
	if children != nil {
		rec["children"] = children
	}
	if named == 0 {
		rec["raw"] = l.text(n)
	}
	return rec
}

// items lowers the named children of a list-like node; a nil node gives an
// empty list.
func (l *lowerer) items(n *sitter.Node) []any {
	out := []any{}
	if n == nil {
		return out
	}
	for _, c := range namedChildren(n) {
		out = append(out, l.lower(c))
	}
	return out
}

var reservedFields = map[string]string{
	"type":     "typeAnnotation",
	"start":    "startNode",
	"end":      "endNode",
	"loc":      "locNode",
	"raw":      "rawNode",
	"children": "childNodes",
}

func fieldKey(field string) string {
	if k, ok := reservedFields[field]; ok {
		return k
	}
	return field
}

func pascal(kind string) string {
	parts := strings.Split(kind, "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, "")
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func firstNamed(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c != nil && c.Type() != "comment" {
			return c
		}
	}
	return nil
}

// hasToken reports whether n has an anonymous child token tok, e.g. "async"
// or "static".
func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && !c.IsNamed() && c.Type() == tok {
			return true
		}
	}
	return false
}

func optional(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c != nil && (c.Type() == "?." || c.Type() == "optional_chain") {
			return true
		}
	}
	return false
}

func operator(n *sitter.Node) string {
	if op := n.ChildByFieldName("operator"); op != nil {
		return op.Type()
	}
	return ""
}
