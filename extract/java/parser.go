// Package java builds class descriptors from Java source files using
// tree-sitter. Files are parsed independently into unresolved declarations;
// a second pass resolves simple type names across all parsed files.
package java

import (
	"context"
	"fmt"
	"os"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"

	"github.com/c360studio/hexguard/classgraph"
)

// typeRef is a type as written in source, before resolution.
type typeRef struct {
	name      string
	args      []typeRef
	dims      int
	primitive bool
	typeVar   bool
}

// annotation is an annotation as written: its name and the source text of its
// arguments, if any.
type annotation struct {
	name string
	args string
}

// rawField is one declared variable of a field declaration.
type rawField struct {
	static      bool
	final       bool
	initialized bool
	nonNull     bool
}

type rawMethod struct {
	name   string
	vis    classgraph.Visibility
	static bool
	ret    typeRef
	params []typeRef
}

// rawType is one declared type of a file.
type rawType struct {
	simple string
	// binary is the name relative to the package, nested types joined by '$'.
	binary      string
	shape       classgraph.Shape
	vis         classgraph.Visibility
	static      bool
	annotations []annotation
	superclass  *typeRef
	interfaces  []typeRef
	ctors       []classgraph.Constructor
	compactCtor bool
	components  int
	fields      []rawField
	methods     []rawMethod
	refs        []typeRef
	// weakRefs are capitalised identifiers used as call receivers; they are
	// kept only if they resolve to a known or imported type.
	weakRefs   []string
	typeParams map[string]struct{}
}

// File is the unresolved content of one source file.
type File struct {
	Path    string
	Package string

	imports   map[string]string
	wildcards []string
	types     []*rawType
}

// Parser parses Java source. A Parser is not safe for concurrent use.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a Java parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Parser{parser: p}
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	p.parser.Close()
}

// ParseFile reads and parses one file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return p.Parse(ctx, path, content)
}

// Parse parses content; path is recorded for diagnostics only.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (*File, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	f := &File{Path: path, imports: make(map[string]string)}
	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			f.Package = packageName(child, content)
		case "import_declaration":
			f.addImport(child, content)
		default:
			if isTypeDeclaration(child.Type()) {
				f.parseType(child, content, nil)
			}
		}
	}
	return f, nil
}

func isTypeDeclaration(nodeType string) bool {
	switch nodeType {
	case "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration":
		return true
	}
	return false
}

func packageName(node *sitter.Node, src []byte) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "scoped_identifier" || child.Type() == "identifier" {
			return child.Content(src)
		}
	}
	return ""
}

// addImport records single-type and on-demand imports. Static imports name
// members, not types, and are ignored.
func (f *File) addImport(node *sitter.Node, src []byte) {
	var name string
	static, wildcard := false, false
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "static":
			static = true
		case "asterisk":
			wildcard = true
		case "scoped_identifier", "identifier":
			name = child.Content(src)
		}
	}
	if static || name == "" {
		return
	}
	if wildcard {
		f.wildcards = append(f.wildcards, name)
		return
	}
	f.imports[simpleOf(name)] = name
}

func simpleOf(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}

func shapeOf(nodeType string) classgraph.Shape {
	switch nodeType {
	case "interface_declaration", "annotation_type_declaration":
		return classgraph.ShapeInterface
	case "enum_declaration":
		return classgraph.ShapeEnum
	case "record_declaration":
		return classgraph.ShapeRecord
	}
	return classgraph.ShapeClass
}

func (f *File) parseType(node *sitter.Node, src []byte, outer *rawType) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	t := &rawType{
		simple:     nameNode.Content(src),
		shape:      shapeOf(node.Type()),
		typeParams: make(map[string]struct{}),
	}
	t.binary = t.simple
	if outer != nil {
		t.binary = outer.binary + "$" + t.simple
		for tp := range outer.typeParams {
			t.typeParams[tp] = struct{}{}
		}
	}
	f.types = append(f.types, t)

	mods := readModifiers(node, src)
	defaultVis := classgraph.VisibilityPackage
	if outer != nil && outer.shape == classgraph.ShapeInterface {
		defaultVis = classgraph.VisibilityPublic
	}
	t.vis = mods.visibility(defaultVis)
	t.static = mods.has("static") ||
		(outer != nil && (t.shape != classgraph.ShapeClass || outer.shape == classgraph.ShapeInterface))
	t.annotations = mods.annotations
	for _, a := range mods.annotations {
		t.refs = append(t.refs, typeRef{name: a.name})
	}

	addTypeParams(node.ChildByFieldName("type_parameters"), src, t.typeParams)

	if sc := childOfType(node, "superclass"); sc != nil && sc.NamedChildCount() > 0 {
		ref := parseTypeRef(sc.NamedChild(0), src, t.typeParams)
		t.superclass = &ref
		t.refs = append(t.refs, ref)
	}
	for _, kind := range []string{"super_interfaces", "extends_interfaces"} {
		if list := childOfType(node, kind); list != nil {
			for _, n := range typeListMembers(list) {
				ref := parseTypeRef(n, src, t.typeParams)
				t.interfaces = append(t.interfaces, ref)
				t.refs = append(t.refs, ref)
			}
		}
	}

	if t.shape == classgraph.ShapeRecord {
		if params := node.ChildByFieldName("parameters"); params != nil {
			for _, ref := range parseParameters(params, src, t.typeParams) {
				t.components++
				t.refs = append(t.refs, ref)
			}
		}
	}

	if body := node.ChildByFieldName("body"); body != nil {
		f.parseBody(body, src, t)
	}
}

func (f *File) parseBody(body *sitter.Node, src []byte, t *rawType) {
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "method_declaration", "annotation_type_element_declaration":
			t.parseMethod(member, src)
		case "constructor_declaration":
			t.parseConstructor(member, src)
		case "compact_constructor_declaration":
			t.compactCtor = true
			walkRefs(member, src, t, t.typeParams)
		case "field_declaration":
			t.parseField(member, src)
			walkRefs(member, src, t, t.typeParams)
		case "constant_declaration":
			walkRefs(member, src, t, t.typeParams)
		case "enum_body_declarations":
			f.parseBody(member, src, t)
		case "enum_constant", "static_initializer", "block":
			walkRefs(member, src, t, t.typeParams)
		default:
			if isTypeDeclaration(member.Type()) {
				f.parseType(member, src, t)
			}
		}
	}
}

func (t *rawType) parseMethod(node *sitter.Node, src []byte) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	scope := t.typeParams
	if tps := node.ChildByFieldName("type_parameters"); tps != nil {
		scope = make(map[string]struct{}, len(t.typeParams))
		for k := range t.typeParams {
			scope[k] = struct{}{}
		}
		addTypeParams(tps, src, scope)
	}

	mods := readModifiers(node, src)
	defaultVis := classgraph.VisibilityPackage
	if t.shape == classgraph.ShapeInterface {
		defaultVis = classgraph.VisibilityPublic
	}
	m := rawMethod{
		name:   nameNode.Content(src),
		vis:    mods.visibility(defaultVis),
		static: mods.has("static"),
	}
	if rt := node.ChildByFieldName("type"); rt != nil {
		m.ret = parseTypeRef(rt, src, scope)
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		m.params = parseParameters(params, src, scope)
	}
	t.methods = append(t.methods, m)

	for _, a := range mods.annotations {
		t.refs = append(t.refs, typeRef{name: a.name})
	}
	t.refs = append(t.refs, m.ret)
	t.refs = append(t.refs, m.params...)
	if body := node.ChildByFieldName("body"); body != nil {
		walkRefs(body, src, t, scope)
	}
}

func (t *rawType) parseConstructor(node *sitter.Node, src []byte) {
	mods := readModifiers(node, src)
	defaultVis := classgraph.VisibilityPackage
	if t.shape == classgraph.ShapeEnum {
		defaultVis = classgraph.VisibilityPrivate
	}
	var params []typeRef
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = parseParameters(p, src, t.typeParams)
	}
	t.ctors = append(t.ctors, classgraph.Constructor{Params: len(params), Visibility: mods.visibility(defaultVis)})

	for _, a := range mods.annotations {
		t.refs = append(t.refs, typeRef{name: a.name})
	}
	t.refs = append(t.refs, params...)
	if body := node.ChildByFieldName("body"); body != nil {
		walkRefs(body, src, t, t.typeParams)
	}
}

// parseField records the variables of a field declaration. Interface fields
// are implicitly static.
func (t *rawType) parseField(node *sitter.Node, src []byte) {
	mods := readModifiers(node, src)
	nonNull := false
	for _, a := range mods.annotations {
		if simpleOf(a.name) == "NonNull" {
			nonNull = true
		}
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		decl := node.NamedChild(i)
		if decl.Type() != "variable_declarator" {
			continue
		}
		t.fields = append(t.fields, rawField{
			static:      mods.has("static") || t.shape == classgraph.ShapeInterface,
			final:       mods.has("final"),
			initialized: decl.ChildByFieldName("value") != nil,
			nonNull:     nonNull,
		})
	}
}

func parseParameters(params *sitter.Node, src []byte, scope map[string]struct{}) []typeRef {
	var out []typeRef
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "formal_parameter":
			if tn := p.ChildByFieldName("type"); tn != nil {
				out = append(out, parseTypeRef(tn, src, scope))
			}
		case "spread_parameter":
			for j := 0; j < int(p.NamedChildCount()); j++ {
				c := p.NamedChild(j)
				if c.Type() != "modifiers" && c.Type() != "variable_declarator" {
					ref := parseTypeRef(c, src, scope)
					ref.dims++
					out = append(out, ref)
					break
				}
			}
		}
	}
	return out
}

// parseTypeRef converts a type node. Generic arguments are kept; wildcards
// are replaced by their bound, or Object when unbounded.
func parseTypeRef(n *sitter.Node, src []byte, scope map[string]struct{}) typeRef {
	switch n.Type() {
	case "type_identifier":
		name := n.Content(src)
		_, isVar := scope[name]
		return typeRef{name: name, typeVar: isVar}
	case "scoped_type_identifier":
		return typeRef{name: strings.Join(strings.Fields(n.Content(src)), "")}
	case "generic_type":
		if n.NamedChildCount() == 0 {
			return typeRef{name: n.Content(src)}
		}
		ref := parseTypeRef(n.NamedChild(0), src, scope)
		if args := childOfType(n, "type_arguments"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				ref.args = append(ref.args, parseTypeArgument(args.NamedChild(i), src, scope))
			}
		}
		return ref
	case "array_type":
		elem := n.ChildByFieldName("element")
		if elem == nil {
			return typeRef{name: n.Content(src)}
		}
		ref := parseTypeRef(elem, src, scope)
		if dims := n.ChildByFieldName("dimensions"); dims != nil {
			ref.dims += strings.Count(dims.Content(src), "[")
		} else {
			ref.dims++
		}
		return ref
	case "integral_type", "floating_point_type", "boolean_type", "void_type":
		return typeRef{name: n.Content(src), primitive: true}
	case "annotated_type":
		if c := n.NamedChildCount(); c > 0 {
			return parseTypeRef(n.NamedChild(int(c)-1), src, scope)
		}
	}
	return typeRef{name: n.Content(src)}
}

func parseTypeArgument(n *sitter.Node, src []byte, scope map[string]struct{}) typeRef {
	if n.Type() != "wildcard" {
		return parseTypeRef(n, src, scope)
	}
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		c := n.NamedChild(i)
		if c.Type() != "annotation" && c.Type() != "marker_annotation" && c.Type() != "super" {
			return parseTypeRef(c, src, scope)
		}
	}
	return typeRef{name: "Object"}
}

// walkRefs collects every type mentioned below n.
func walkRefs(n *sitter.Node, src []byte, t *rawType, scope map[string]struct{}) {
	switch n.Type() {
	case "type_identifier", "scoped_type_identifier", "integral_type",
		"floating_point_type", "boolean_type", "void_type":
		t.refs = append(t.refs, parseTypeRef(n, src, scope))
		return
	case "marker_annotation", "annotation":
		if name := n.ChildByFieldName("name"); name != nil {
			t.refs = append(t.refs, typeRef{name: name.Content(src)})
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			walkRefs(args, src, t, scope)
		}
		return
	case "method_invocation", "field_access":
		if obj := n.ChildByFieldName("object"); obj != nil && obj.Type() == "identifier" {
			if name := obj.Content(src); name != "" && isUpper(name[0]) {
				t.weakRefs = append(t.weakRefs, name)
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walkRefs(n.NamedChild(i), src, t, scope)
	}
}

func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }

type modifiers struct {
	keywords    map[string]bool
	annotations []annotation
}

func (m modifiers) has(kw string) bool { return m.keywords[kw] }

func (m modifiers) visibility(def classgraph.Visibility) classgraph.Visibility {
	switch {
	case m.keywords["public"]:
		return classgraph.VisibilityPublic
	case m.keywords["protected"]:
		return classgraph.VisibilityProtected
	case m.keywords["private"]:
		return classgraph.VisibilityPrivate
	}
	return def
}

func readModifiers(node *sitter.Node, src []byte) modifiers {
	m := modifiers{keywords: make(map[string]bool)}
	mods := childOfType(node, "modifiers")
	if mods == nil {
		return m
	}
	for i := 0; i < int(mods.ChildCount()); i++ {
		c := mods.Child(i)
		switch c.Type() {
		case "marker_annotation", "annotation":
			if name := c.ChildByFieldName("name"); name != nil {
				a := annotation{name: name.Content(src)}
				if args := c.ChildByFieldName("arguments"); args != nil {
					a.args = args.Content(src)
				}
				m.annotations = append(m.annotations, a)
			}
		default:
			m.keywords[strings.TrimSpace(c.Content(src))] = true
		}
	}
	return m
}

func addTypeParams(tps *sitter.Node, src []byte, into map[string]struct{}) {
	if tps == nil {
		return
	}
	for i := 0; i < int(tps.NamedChildCount()); i++ {
		tp := tps.NamedChild(i)
		if tp.Type() != "type_parameter" {
			continue
		}
		for j := 0; j < int(tp.NamedChildCount()); j++ {
			c := tp.NamedChild(j)
			if c.Type() == "type_identifier" || c.Type() == "identifier" {
				into[c.Content(src)] = struct{}{}
				break
			}
		}
	}
}

func childOfType(n *sitter.Node, nodeType string) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c.Type() == nodeType {
			return c
		}
	}
	return nil
}

// typeListMembers returns the types of a super_interfaces or
// extends_interfaces node, unwrapping the type_list.
func typeListMembers(n *sitter.Node) []*sitter.Node {
	if list := childOfType(n, "type_list"); list != nil {
		n = list
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}
