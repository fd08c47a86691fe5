// Package extract implements the Function Extractor: it walks a
// TypeScript/TSX AST produced by Tree-sitter and emits one model.Record
// for every function-like construct in a file (declarations, methods,
// constructors, accessors, arrow/variable-bound functions, interface
// method signatures, nested locals, and default-exported anonymous
// functions).
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/funcqc/funcqc/pkg/model"
)

// ParseError is returned when a file's content cannot be parsed at all
// (the Tree-sitter parser itself errors, as opposed to the AST merely
// containing recoverable syntax-error nodes). Callers are expected to
// skip the file, record a warning, and continue the walk.
type ParseError struct {
	FilePath string
	Cause    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.FilePath, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// Extractor owns a pair of per-language Tree-sitter parser pools (plain
// TypeScript and TSX) so concurrent callers in the pipeline's worker
// pool never share a single *sitter.Parser.
type Extractor struct {
	tsPool  sync.Pool
	tsxPool sync.Pool
	once    sync.Once
}

// New creates an Extractor. Parser pools are initialized lazily on
// first use.
func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) initPools() {
	e.once.Do(func() {
		e.tsPool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(typescript.GetLanguage())
			return p
		}
		e.tsxPool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(tsx.GetLanguage())
			return p
		}
	})
}

// ExtractFile parses content and returns every Function Record found
// in it. filePath is used only for location metadata and is not read
// again. The dialect (plain TypeScript vs TSX) is chosen by the
// caller's extension check via isTSX.
func (e *Extractor) ExtractFile(ctx context.Context, filePath string, content []byte, isTSX bool) ([]model.Record, error) {
	e.initPools()

	pool := &e.tsPool
	if isTSX {
		pool = &e.tsxPool
	}

	parserObj := pool.Get()
	parser, ok := parserObj.(*sitter.Parser)
	if !ok {
		return nil, &ParseError{FilePath: filePath, Cause: fmt.Errorf("invalid parser type in pool")}
	}
	defer pool.Put(parser)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, &ParseError{FilePath: filePath, Cause: err}
	}
	defer tree.Close()

	w := &walker{
		filePath: filePath,
		content:  content,
	}
	w.walk(tree.RootNode(), nil)
	return w.records, nil
}

// walker carries the state threaded through a single file's recursive
// descent: the running context path (enclosing namespace/class/function
// names) and a count of anonymous callbacks emitted. Positional tags
// are built from line and column, not from this count.
type walker struct {
	filePath    string
	content     []byte
	records     []model.Record
	anonCounter int
}

func (w *walker) walk(node *sitter.Node, contextPath []string) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "function_declaration":
		w.emitDeclaration(node, contextPath)
		w.descendInto(node, w.bodyOf(node), contextPath)
		return

	case "function_signature":
		w.emitSignatureOnly(node, contextPath, model.KindDeclaration)
		return

	case "method_signature":
		w.emitSignatureOnly(node, contextPath, model.KindMethod)
		return

	case "method_definition":
		inner := w.emitMethod(node, contextPath)
		w.descendInto(node, w.bodyOf(node), inner)
		return

	case "variable_declarator":
		if w.emitVariableBoundFunction(node, contextPath) {
			valueNode := node.ChildByFieldName("value")
			name := w.textOf(node.ChildByFieldName("name"))
			w.descendInto(node, w.bodyOf(valueNode), append(append([]string{}, contextPath...), name))
			return
		}

	case "arrow_function":
		if parent := node.Parent(); parent == nil || parent.Type() != "variable_declarator" {
			w.emitAnonymousArrow(node, contextPath)
			w.descendInto(node, w.bodyOf(node), append(append([]string{}, contextPath...), fmt.Sprintf("anon@%d:%d", node.StartPoint().Row+1, node.StartPoint().Column+1)))
			return
		}

	case "class_declaration":
		name := w.textOf(node.ChildByFieldName("name"))
		inner := append(append([]string{}, contextPath...), name)
		for i := 0; i < int(node.ChildCount()); i++ {
			w.walk(node.Child(i), inner)
		}
		return

	case "interface_declaration":
		name := w.textOf(node.ChildByFieldName("name"))
		inner := append(append([]string{}, contextPath...), name)
		for i := 0; i < int(node.ChildCount()); i++ {
			w.walk(node.Child(i), inner)
		}
		return

	case "module", "internal_module":
		name := w.textOf(node.ChildByFieldName("name"))
		inner := contextPath
		if name != "" {
			inner = append(append([]string{}, contextPath...), name)
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			w.walk(node.Child(i), inner)
		}
		return

	case "export_statement":
		if w.emitDefaultExportedAnonymousFunction(node, contextPath) {
			return
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		w.walk(node.Child(i), contextPath)
	}
}

// descendInto recurses into a function's body with an updated context
// path, so locals nested inside it receive correct nesting/displayName.
func (w *walker) descendInto(owner, body *sitter.Node, innerPath []string) {
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		w.walk(body.Child(i), innerPath)
	}
}

func (w *walker) bodyOf(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if b := node.ChildByFieldName("body"); b != nil {
		return b
	}
	return nil
}

func (w *walker) textOf(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(w.content[node.StartByte():node.EndByte()])
}

// emitDefaultExportedAnonymousFunction handles `export default function() {...}`
// and `export default () => {...}` with no bound name. Returns true when it
// consumed the export_statement itself (so the generic recursion is skipped
// and the body is still walked for nested locals).
func (w *walker) emitDefaultExportedAnonymousFunction(node *sitter.Node, contextPath []string) bool {
	isDefault := false
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == "default" {
			isDefault = true
		}
	}
	if !isDefault {
		return false
	}

	var fn *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() == "function_declaration" || c.Type() == "arrow_function" || c.Type() == "function_expression" {
			fn = c
			break
		}
	}
	if fn == nil {
		return false
	}
	if nameNode := fn.ChildByFieldName("name"); nameNode != nil {
		// Named default export; let the generic function_declaration case handle it.
		return false
	}

	rec := w.baseRecord(fn, "default", contextPath, model.KindDeclaration)
	rec.Exported = true
	w.fillSignature(&rec, fn)
	w.records = append(w.records, rec)

	inner := append(append([]string{}, contextPath...), "default")
	w.descendInto(fn, w.bodyOf(fn), inner)
	return true
}

func (w *walker) emitDeclaration(node *sitter.Node, contextPath []string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.textOf(nameNode)

	rec := w.baseRecord(node, name, contextPath, model.KindDeclaration)
	rec.Exported = hasExportedAncestor(node)
	w.fillSignature(&rec, node)
	w.records = append(w.records, rec)
}

func (w *walker) emitSignatureOnly(node *sitter.Node, contextPath []string, kind model.FunctionKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := w.textOf(nameNode)

	rec := w.baseRecord(node, name, contextPath, kind)
	w.fillSignature(&rec, node)
	// Declaration-only signatures carry no body: metrics stay at their zero
	// value and are left for the Metric Calculator to skip.
	w.records = append(w.records, rec)
}

// emitMethod handles method_definition (methods, constructors,
// getters, setters). Returns the context path to recurse into the
// method body with.
func (w *walker) emitMethod(node *sitter.Node, contextPath []string) []string {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return contextPath
	}
	name := w.textOf(nameNode)

	rec := w.baseRecord(node, name, contextPath, model.KindMethod)
	rec.Method = true
	rec.Constructor = name == "constructor"

	for i := 0; i < int(node.ChildCount()); i++ {
		switch node.Child(i).Type() {
		case "static":
			rec.Static = true
		case "get", "set":
			rec.Accessor = true
		case "accessibility_modifier":
			switch w.textOf(node.Child(i)) {
			case "private":
				rec.AccessModifier = model.AccessPrivate
			case "protected":
				rec.AccessModifier = model.AccessProtected
			case "public":
				rec.AccessModifier = model.AccessPublic
			}
		case "async":
			rec.Async = true
		}
	}
	if rec.AccessModifier == "" {
		rec.AccessModifier = model.AccessPublic
	}

	w.fillSignature(&rec, node)
	w.records = append(w.records, rec)

	return append(append([]string{}, contextPath...), name)
}

// emitVariableBoundFunction handles `const f = function(){}` /
// `const f = () => {}` / `const f = async () => {}`. Returns true when
// it emitted a record (and thus the caller should recurse into the
// value's body itself, since this case pre-empts the generic recursion).
func (w *walker) emitVariableBoundFunction(node *sitter.Node, contextPath []string) bool {
	nameNode := node.ChildByFieldName("name")
	valueNode := node.ChildByFieldName("value")
	if nameNode == nil || valueNode == nil {
		return false
	}
	switch valueNode.Type() {
	case "arrow_function", "function_expression", "function":
	default:
		return false
	}
	name := w.textOf(nameNode)

	rec := w.baseRecord(valueNode, name, contextPath, model.KindArrow)
	rec.Arrow = valueNode.Type() == "arrow_function"
	rec.Exported = hasExportedAncestor(node)
	w.fillSignature(&rec, valueNode)
	w.records = append(w.records, rec)
	return true
}

func (w *walker) emitAnonymousArrow(node *sitter.Node, contextPath []string) {
	w.anonCounter++
	tag := fmt.Sprintf("anon@%d:%d", node.StartPoint().Row+1, node.StartPoint().Column+1)

	rec := w.baseRecord(node, tag, contextPath, model.KindLocal)
	rec.Arrow = true
	w.fillSignature(&rec, node)
	w.records = append(w.records, rec)
}

// baseRecord populates the fields common to every construct: location,
// context path, display name, nesting level, and AST hash/source text.
// It does not set Kind-specific flags; callers fill those in.
func (w *walker) baseRecord(node *sitter.Node, name string, contextPath []string, kind model.FunctionKind) model.Record {
	startLine := int(node.StartPoint().Row) + 1
	endLine := int(node.EndPoint().Row) + 1
	startCol := int(node.StartPoint().Column) + 1
	endCol := int(node.EndPoint().Column) + 1

	sourceCode := string(w.content[node.StartByte():node.EndByte()])

	displayName := name
	if len(contextPath) > 0 {
		displayName = strings.Join(contextPath, ".") + "." + name
	}

	rec := model.Record{
		Name:         name,
		DisplayName:  displayName,
		FilePath:     w.filePath,
		StartLine:    startLine,
		EndLine:      endLine,
		StartColumn:  startCol,
		EndColumn:    endCol,
		ContextPath:  append([]string{}, contextPath...),
		Kind:         kind,
		NestingLevel: len(contextPath),
		SourceCode:   sourceCode,
		ASTHash:      astHash(sourceCode),
		JSDoc:        leadingJSDoc(node, w.content),
	}
	if async := hasChildOfType(node, "async"); async {
		rec.Async = true
	}
	if hasChildOfType(node, "*") {
		rec.Generator = true
	}
	return rec
}

// fillSignature extracts signature text, return type, and parameters
// from a function-shaped node (function_declaration, function_signature,
// method_signature, method_definition, arrow_function, function_expression).
func (w *walker) fillSignature(rec *model.Record, node *sitter.Node) {
	paramsNode := node.ChildByFieldName("parameters")
	returnNode := node.ChildByFieldName("return_type")

	var sig strings.Builder
	sig.WriteString(rec.Name)
	if paramsNode != nil {
		sig.WriteString(w.textOf(paramsNode))
	} else if node.Type() == "arrow_function" {
		// Single untyped parameter arrows: `x => x + 1`.
		if p := node.ChildByFieldName("parameter"); p != nil {
			sig.WriteString("(")
			sig.WriteString(w.textOf(p))
			sig.WriteString(")")
		}
	}
	if returnNode != nil {
		rec.ReturnType = strings.TrimPrefix(w.textOf(returnNode), ":")
		rec.ReturnType = strings.TrimSpace(rec.ReturnType)
		sig.WriteString(": ")
		sig.WriteString(rec.ReturnType)
	}
	rec.Signature = sig.String()

	if paramsNode != nil {
		rec.Parameters = w.extractParameters(paramsNode)
	}
}

func (w *walker) extractParameters(paramsNode *sitter.Node) []model.Parameter {
	var params []model.Parameter
	pos := 0
	for i := 0; i < int(paramsNode.ChildCount()); i++ {
		child := paramsNode.Child(i)
		switch child.Type() {
		case "required_parameter", "optional_parameter", "rest_parameter":
			p := model.Parameter{Position: pos}
			p.Optional = child.Type() == "optional_parameter"
			p.Rest = child.Type() == "rest_parameter"

			patternNode := child.ChildByFieldName("pattern")
			if patternNode == nil {
				patternNode = child.ChildByFieldName("name")
			}
			p.Name = w.textOf(patternNode)

			if typeNode := child.ChildByFieldName("type"); typeNode != nil {
				p.Type = strings.TrimSpace(strings.TrimPrefix(w.textOf(typeNode), ":"))
				p.TypeSimple = simplifyType(p.Type)
			}
			if valueNode := child.ChildByFieldName("value"); valueNode != nil {
				p.DefaultValue = w.textOf(valueNode)
			}
			if p.Name != "" {
				params = append(params, p)
				pos++
			}
		}
	}
	return params
}

// simplifyType strips generic arguments and union/intersection noise
// down to the leading type token, used for coarse filtering/grouping.
func simplifyType(t string) string {
	t = strings.TrimSpace(t)
	if i := strings.IndexAny(t, "<|&["); i > 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

func hasChildOfType(node *sitter.Node, typ string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		if node.Child(i).Type() == typ {
			return true
		}
	}
	return false
}

// hasExportedAncestor reports whether node's parent is an
// export_statement (`export function f(){}`), or its parent is a
// variable/lexical declaration whose parent is one
// (`export const f = ...`).
func hasExportedAncestor(node *sitter.Node) bool {
	parent := node.Parent()
	if parent == nil {
		return false
	}
	if parent.Type() == "export_statement" {
		return true
	}
	if parent.Type() == "variable_declaration" || parent.Type() == "lexical_declaration" {
		grandparent := parent.Parent()
		return grandparent != nil && grandparent.Type() == "export_statement"
	}
	return false
}

// leadingJSDoc returns the comment node text immediately preceding
// node, if it is a JSDoc-style block comment (`/** ... */`).
func leadingJSDoc(node *sitter.Node, content []byte) string {
	prev := node.PrevSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	text := string(content[prev.StartByte():prev.EndByte()])
	if strings.HasPrefix(text, "/**") {
		return text
	}
	return ""
}

// commentPattern matches block and line comments. The block branch
// needs no lookahead (which Go's regexp does not support): inside the
// comment each step consumes either a non-'*' character or a run of
// '*' followed by a character other than '*' or '/'. Go's regexp
// engine runs in linear time, so comment-like input cannot cause
// catastrophic backtracking.
var commentPattern = regexp.MustCompile(`/\*(?:[^*]|\*+[^*/])*\*+/|//[^\n]*`)

var whitespacePattern = regexp.MustCompile(`\s+`)

// astHash computes the AST hash: strip comments, collapse whitespace,
// trim, then SHA-256. Used for both the content identity and
// similarity signals during lineage detection.
func astHash(source string) string {
	stripped := commentPattern.ReplaceAllString(source, "")
	collapsed := whitespacePattern.ReplaceAllString(stripped, " ")
	collapsed = strings.TrimSpace(collapsed)
	sum := sha256.Sum256([]byte(collapsed))
	return hex.EncodeToString(sum[:])
}
