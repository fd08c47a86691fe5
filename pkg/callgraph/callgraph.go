// Package callgraph implements the Call-Graph Builder: it walks call
// sites in every Function Record's body, classifies each one, and
// resolves it to a callee Function Record via local scope lookup or
// the Export Table Cache, emitting Call Edges with a confidence score.
package callgraph

import (
	"context"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/funcqc/funcqc/pkg/model"
)

// FileSet is the input to a Builder run: every analyzed file's
// content, and the Function Records extracted from it.
type FileSet struct {
	ProjectRoot string
	Files       map[string][]byte       // absolute/normalized file path -> source
	Records     map[string][]*model.Record // file path -> that file's records
}

// ExportTable maps a module path to its exported names, built lazily
// on first need and reused for the remainder of the snapshot build.
// Guarantees each module is scanned for exports at most once.
type ExportTable struct {
	mu    sync.Mutex
	cache map[string]map[string]*model.Record
}

// NewExportTable creates an empty cache.
func NewExportTable() *ExportTable {
	return &ExportTable{cache: make(map[string]map[string]*model.Record)}
}

// Lookup resolves name within modulePath's export table, building the
// table from fs.Records[modulePath] on first access to that module.
func (t *ExportTable) Lookup(modulePath, name string, fs *FileSet) (*model.Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	exports, ok := t.cache[modulePath]
	if !ok {
		exports = make(map[string]*model.Record)
		for _, rec := range fs.Records[modulePath] {
			if rec.Exported {
				exports[rec.Name] = rec
			}
		}
		t.cache[modulePath] = exports
	}
	rec, ok := exports[name]
	return rec, ok
}

// Builder owns the tree-sitter parser pool used to walk call sites and
// the Export Table Cache shared across the whole snapshot build.
type Builder struct {
	pool   sync.Pool
	once   sync.Once
	Export *ExportTable
}

// New creates a Builder with a fresh Export Table Cache.
func New() *Builder {
	return &Builder{Export: NewExportTable()}
}

func (b *Builder) initPool() {
	b.once.Do(func() {
		b.pool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(typescript.GetLanguage())
			return p
		}
	})
}

// Build walks every file in fs and returns all Call Edges observable
// at the AST level across the whole set.
func (b *Builder) Build(ctx context.Context, fs *FileSet) ([]model.CallEdge, error) {
	b.initPool()

	type job struct {
		path    string
		content []byte
	}
	var jobs []job
	for path, content := range fs.Files {
		jobs = append(jobs, job{path, content})
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > 8 {
		numWorkers = 8
	}
	if numWorkers > len(jobs) {
		numWorkers = len(jobs)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	jobCh := make(chan job, len(jobs))
	for _, j := range jobs {
		jobCh <- j
	}
	close(jobCh)

	resultCh := make(chan []model.CallEdge, len(jobs))
	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parserObj := b.pool.Get()
			parser, ok := parserObj.(*sitter.Parser)
			if !ok {
				return
			}
			defer b.pool.Put(parser)

			for j := range jobCh {
				edges := b.walkFile(ctx, parser, j.path, j.content, fs)
				if len(edges) > 0 {
					resultCh <- edges
				}
			}
		}()
	}
	wg.Wait()
	close(resultCh)

	var all []model.CallEdge
	for edges := range resultCh {
		all = append(all, edges...)
	}
	return all, nil
}

func (b *Builder) walkFile(ctx context.Context, parser *sitter.Parser, path string, content []byte, fs *FileSet) []model.CallEdge {
	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	imports := parseImports(tree.RootNode(), content)
	records := fs.Records[path]

	var edges []model.CallEdge
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		if node.Type() == "call_expression" {
			if edge := b.resolveCallSite(node, content, path, imports, records, fs); edge != nil {
				edges = append(edges, *edge)
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(tree.RootNode())
	return edges
}

// importSpec is one `import ... from '...'` binding.
type importSpec struct {
	localName  string
	modulePath string
}

func parseImports(root *sitter.Node, content []byte) []importSpec {
	var specs []importSpec
	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node.Type() == "import_statement" {
			sourceNode := node.ChildByFieldName("source")
			if sourceNode != nil {
				modulePath := strings.Trim(nodeText(sourceNode, content), `"'`)
				for i := 0; i < int(node.ChildCount()); i++ {
					collectImportClause(node.Child(i), content, modulePath, &specs)
				}
			}
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(root)
	return specs
}

func collectImportClause(node *sitter.Node, content []byte, modulePath string, specs *[]importSpec) {
	switch node.Type() {
	case "identifier":
		*specs = append(*specs, importSpec{localName: nodeText(node, content), modulePath: modulePath})
	case "namespace_import":
		*specs = append(*specs, importSpec{localName: nodeText(node, content), modulePath: modulePath})
	case "named_imports":
		for i := 0; i < int(node.ChildCount()); i++ {
			spec := node.Child(i)
			if spec.Type() != "import_specifier" {
				continue
			}
			name := spec.ChildByFieldName("name")
			alias := spec.ChildByFieldName("alias")
			local := nodeText(name, content)
			if alias != nil {
				local = nodeText(alias, content)
			}
			*specs = append(*specs, importSpec{localName: local, modulePath: modulePath})
		}
	default:
		for i := 0; i < int(node.ChildCount()); i++ {
			collectImportClause(node.Child(i), content, modulePath, specs)
		}
	}
}

func nodeText(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	return string(content[node.StartByte():node.EndByte()])
}

// resolveCallSite classifies one call_expression and attempts to
// resolve its callee, per the resolution protocol: local scope, then
// cross-file via the Export Table Cache, else recorded unresolved.
func (b *Builder) resolveCallSite(node *sitter.Node, content []byte, path string, imports []importSpec, records []*model.Record, fs *FileSet) *model.CallEdge {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return nil
	}

	caller := findEnclosingRecord(node, records)
	if caller == nil {
		return nil
	}

	calleeName, className, dynamic := calleeExpression(fnNode, content)
	if calleeName == "" {
		return nil
	}

	edge := &model.CallEdge{
		CallerPhysicalID: caller.PhysicalID,
		CalleeName:       calleeName,
		CalleeClassName:  className,
		CallerClassName:  callerClassName(caller),
		Line:             int(node.StartPoint().Row) + 1,
		Column:           int(node.StartPoint().Column) + 1,
		Async:            isAsyncContext(node, content),
	}

	switch {
	case dynamic:
		edge.CallType = model.CallDynamic
		edge.Confidence = 0.2
		return edge
	case isConditionalContext(node):
		edge.CallType = model.CallConditional
	case edge.Async:
		edge.CallType = model.CallAsync
	default:
		edge.CallType = model.CallDirect
	}

	// 1. Same-file local resolution: declared name or class member.
	for _, rec := range records {
		if rec == caller {
			continue
		}
		if rec.Name == calleeName || (className != "" && lastSegment(rec.ContextPath) == className && rec.Name == calleeName) {
			edge.CalleePhysicalID = rec.PhysicalID
			edge.CalleeSignature = rec.Signature
			edge.Confidence = confidenceFor(className != "", true)
			return edge
		}
	}

	// 2. Cross-file resolution via the Export Table Cache.
	for _, imp := range imports {
		if imp.localName != calleeName && imp.localName != className {
			continue
		}
		modulePath := resolveModulePath(path, imp.modulePath, fs.ProjectRoot, fs.Files)
		if modulePath == "" {
			edge.CallType = model.CallExternal
			edge.Confidence = 0.0
			return edge
		}
		if rec, ok := b.Export.Lookup(modulePath, calleeName, fs); ok {
			edge.CalleePhysicalID = rec.PhysicalID
			edge.CalleeSignature = rec.Signature
			edge.Confidence = 0.9
			return edge
		}
		edge.CallType = model.CallExternal
		edge.Confidence = 0.1
		return edge
	}

	// 3. Best-effort: an exported function of the same name anywhere
	// in the analyzed set, not otherwise reachable by scope or import.
	for otherPath, recs := range fs.Records {
		if otherPath == path {
			continue
		}
		for _, rec := range recs {
			if rec.Exported && rec.Name == calleeName {
				edge.CalleePhysicalID = rec.PhysicalID
				edge.CalleeSignature = rec.Signature
				edge.Confidence = 0.5
				return edge
			}
		}
	}

	// No local, import, or cross-file export resolved the callee. A
	// bare identifier at this point names something not visible to any
	// resolution path the builder knows (a closure-captured variable,
	// a higher-order function parameter, a global) — the callee is
	// effectively dynamic, not a direct call the caller graph can chase.
	if fnNode.Type() == "identifier" {
		edge.CallType = model.CallDynamic
	}
	edge.Confidence = 0.0
	return edge
}

func confidenceFor(viaClassMember, local bool) float64 {
	if viaClassMember {
		return 0.7
	}
	if local {
		return 1.0
	}
	return 0.5
}

// calleeExpression extracts the callee name, its receiver class name
// (if any, via the textual type-name pattern), and whether the
// expression is a dynamic/computed access the resolver cannot chase.
func calleeExpression(fnNode *sitter.Node, content []byte) (name, className string, dynamic bool) {
	switch fnNode.Type() {
	case "identifier":
		return nodeText(fnNode, content), "", false
	case "member_expression":
		prop := fnNode.ChildByFieldName("property")
		obj := fnNode.ChildByFieldName("object")
		name = nodeText(prop, content)
		if obj != nil && obj.Type() == "identifier" {
			className = classNameFromType(nodeText(obj, content))
		}
		return name, className, false
	case "subscript_expression":
		return "", "", true
	default:
		return nodeText(fnNode, content), "", true
	}
}

// classNamePattern matches the class-name tail of a printed type per
// the symbol-resolution-safety rule: a capitalized identifier at the
// end of the text, never a bare lowercase variable name.
var classNamePattern = regexp.MustCompile(`(?:^|\.|\s)([A-Z][A-Za-z0-9_]*)\s*$`)

func classNameFromType(text string) string {
	m := classNamePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func lastSegment(path []string) string {
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

func callerClassName(rec *model.Record) string {
	if rec.Method {
		return lastSegment(rec.ContextPath)
	}
	return ""
}

// findEnclosingRecord returns the innermost record whose source range
// contains node, i.e. the one with the latest start line still ≤
// node's line and whose end line is ≥ it.
func findEnclosingRecord(node *sitter.Node, records []*model.Record) *model.Record {
	line := int(node.StartPoint().Row) + 1
	var best *model.Record
	for _, rec := range records {
		if rec.StartLine <= line && line <= rec.EndLine {
			if best == nil || rec.StartLine > best.StartLine {
				best = rec
			}
		}
	}
	return best
}

// isAsyncContext reports whether node sits inside an await_expression,
// or the call itself is chained off a `.then`/`.catch`/`.finally`
// member access (the Promise-chain async shape).
func isAsyncContext(node *sitter.Node, content []byte) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		if p.Type() == "await_expression" {
			return true
		}
	}
	if fnNode := node.ChildByFieldName("function"); fnNode != nil && fnNode.Type() == "member_expression" {
		if prop := fnNode.ChildByFieldName("property"); prop != nil {
			switch nodeText(prop, content) {
			case "then", "catch", "finally":
				return true
			}
		}
	}
	return false
}

// isConditionalContext reports whether node is reachable only through
// a branch guarded by a dynamic predicate (if/ternary/&&/||).
func isConditionalContext(node *sitter.Node) bool {
	for p := node.Parent(); p != nil; p = p.Parent() {
		switch p.Type() {
		case "if_statement", "ternary_expression":
			return true
		case "binary_expression":
			if op := p.ChildByFieldName("operator"); op != nil && (op.Type() == "&&" || op.Type() == "||") {
				return true
			}
		case "program", "function_declaration", "function_expression", "function", "method_definition", "arrow_function":
			return false
		}
	}
	return false
}

// resolveModulePath normalizes an import specifier against the
// caller's directory (relative), the project root (path aliases), or
// leaves it absolute, then probes the known file set for a match with
// each of the standard extensions in order.
func resolveModulePath(callerPath, specifier, projectRoot string, files map[string][]byte) string {
	var base string
	switch {
	case strings.HasPrefix(specifier, "."):
		base = filepath.Join(filepath.Dir(callerPath), specifier)
	case strings.HasPrefix(specifier, "@/") || strings.HasPrefix(specifier, "#/"):
		base = filepath.Join(projectRoot, specifier[2:])
	case strings.HasPrefix(specifier, "/"):
		base = specifier
	default:
		return "" // bare specifier: external package, not resolved
	}

	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx", ".mts", ".cts"} {
		if _, ok := files[base+ext]; ok {
			return base + ext
		}
	}
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx"} {
		candidate := filepath.Join(base, "index"+ext)
		if _, ok := files[candidate]; ok {
			return candidate
		}
	}
	if _, ok := files[base]; ok {
		return base
	}
	return ""
}
