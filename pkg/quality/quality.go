// Package quality implements the Metric Calculator: a pure function
// from a function's AST subtree and source text to its Quality
// Metrics tuple (size, complexity, structure, documentation, and
// Halstead-family measures).
package quality

import (
	"context"
	"math"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/funcqc/funcqc/pkg/model"
)

// Calculator re-parses each function's already-extracted source text
// in isolation to obtain a fresh AST subtree, so it never depends on
// tree-sitter nodes surviving past the Function Extractor's tree.Close.
type Calculator struct {
	pool sync.Pool
	once sync.Once
}

// New creates a Calculator. Its parser pool is initialized lazily.
func New() *Calculator {
	return &Calculator{}
}

func (c *Calculator) initPool() {
	c.once.Do(func() {
		c.pool.New = func() any {
			p := sitter.NewParser()
			p.SetLanguage(typescript.GetLanguage())
			return p
		}
	})
}

// loopTypes are the decision-point kinds that also count toward
// LoopCount (a subset of the full decision-point list: if/case/catch/
// ternary/&&/||/?? are decisions but not loops).
var loopTypes = map[string]bool{
	"for_statement":    true,
	"for_in_statement": true,
	"while_statement":  true,
	"do_statement":     true,
}

func isFunctionNode(t string) bool {
	switch t {
	case "function_declaration", "method_definition", "function_signature",
		"method_signature", "arrow_function", "function_expression", "function":
		return true
	}
	return false
}

// Compute parses name's source in isolation and returns its Quality
// Metrics. name is used only to detect direct recursive self-calls for
// the cognitive-complexity recursion bonus; pass "" if unknown.
func (c *Calculator) Compute(source, name string) model.QualityMetrics {
	m := model.QualityMetrics{CyclomaticComplexity: 1}

	c.initPool()
	parserObj := c.pool.Get()
	parser, ok := parserObj.(*sitter.Parser)
	if !ok {
		return m
	}
	defer c.pool.Put(parser)

	tree, root, content := parseFunctionSubtree(parser, source)
	if tree != nil {
		defer tree.Close()
	}
	bodyText := source
	if root != nil {
		w := &analyzer{content: content, name: name}
		w.walkBody(root, 0)
		m.CyclomaticComplexity = 1 + w.decisions
		m.CognitiveComplexity = w.cognitive
		m.MaxNestingLevel = w.maxDepth
		m.ReturnStatementCount = w.returns
		m.BranchCount = w.decisions
		m.LoopCount = w.loops
		m.TryCatchCount = w.tryCatch
		m.AsyncAwaitCount = w.asyncAwait
		m.CallbackCount = w.callbacks

		if body := functionBodyNode(root); body != nil {
			bodyText = string(content[body.StartByte():body.EndByte()])
		}
	}
	content = []byte(source)

	m.TotalLines = len(strings.Split(source, "\n"))
	m.CommentLines, m.LinesOfCode = countLines(strings.Split(bodyText, "\n"))
	if m.CommentLines > 0 {
		m.CodeToCommentRatio = float64(m.LinesOfCode) / float64(m.CommentLines)
	}

	n1, n2, bigN1, bigN2 := halsteadCounts(content)
	vocabulary := n1 + n2
	length := bigN1 + bigN2
	if vocabulary > 0 {
		m.HalsteadVolume = float64(length) * math.Log2(float64(vocabulary))
	}
	if n2 > 0 {
		m.HalsteadDifficulty = (float64(n1) / 2) * (float64(bigN2) / float64(n2))
	}
	m.MaintainabilityIndex = maintainabilityIndex(m.HalsteadVolume, m.CyclomaticComplexity, m.LinesOfCode)

	return m
}

// parseFunctionSubtree parses source in isolation and returns the
// function-like node to analyze, plus the exact byte buffer it spans
// over. A bare function/arrow fragment parses directly; a class
// member (method, constructor, accessor) is only valid TypeScript
// inside a class body, so it is retried wrapped in a throwaway class
// shell when the direct parse yields no function node.
func parseFunctionSubtree(parser *sitter.Parser, source string) (*sitter.Tree, *sitter.Node, []byte) {
	content := []byte(source)
	if tree, err := parser.ParseCtx(context.Background(), nil, content); err == nil && tree != nil {
		if node := findFunctionNode(tree.RootNode()); node != nil {
			return tree, node, content
		}
		tree.Close()
	}

	wrapped := []byte("class __subtree__ {\n" + source + "\n}")
	if tree, err := parser.ParseCtx(context.Background(), nil, wrapped); err == nil && tree != nil {
		if node := findFunctionNode(tree.RootNode()); node != nil {
			return tree, node, wrapped
		}
		tree.Close()
	}

	return nil, nil, content
}

// findFunctionNode returns the first function-like node found by a
// depth-first, pre-order descent from root: re-parsing an isolated function
// fragment generally yields `program -> <construct>`, but a defensive
// search handles wrapper nodes from less common constructs.
func findFunctionNode(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	if isFunctionNode(node.Type()) {
		return node
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		if found := findFunctionNode(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

// functionBodyNode returns the "body" field of a function-like node, so
// LOC/comment counting can be scoped to the statements between the
// braces rather than the signature and (for class members) modifiers
// that precede them. Arrow functions with a bare expression body (no
// braces, e.g. `x => x + 1`) still report that field: the expression
// itself is then the only line counted, which is the closest analogue
// to "between body braces" when there are none. Signature-only nodes
// (overloads, ambient declarations) have no body field and return nil,
// leaving the caller's full-text fallback in place.
func functionBodyNode(fn *sitter.Node) *sitter.Node {
	return fn.ChildByFieldName("body")
}

// analyzer accumulates per-function structural counts over a single
// re-parsed subtree.
type analyzer struct {
	content []byte
	name    string

	decisions  int
	cognitive  int
	maxDepth   int
	returns    int
	loops      int
	tryCatch   int
	asyncAwait int
	callbacks  int
}

// walkBody walks node's children (not node itself, so the function's
// own header/name is never miscounted as a decision point), stopping
// at nested function boundaries so their complexity is attributed to
// their own Function Record instead of this one.
func (a *analyzer) walkBody(node *sitter.Node, depth int) {
	for i := 0; i < int(node.ChildCount()); i++ {
		a.walk(node.Child(i), depth)
	}
}

func (a *analyzer) walk(node *sitter.Node, depth int) {
	if node == nil {
		return
	}
	nodeType := node.Type()

	if isFunctionNode(nodeType) && node.Parent() != nil {
		a.countCallback(node)
		return // nested function: its own metrics are computed separately
	}

	switch nodeType {
	case "return_statement":
		a.returns++
	case "try_statement":
		a.tryCatch++
	case "catch_clause":
		a.tryCatch++
		a.decisions++
		a.cognitive += 1 + depth
		if depth+1 > a.maxDepth {
			a.maxDepth = depth + 1
		}
		a.walkBody(node, depth+1)
		return
	case "await_expression":
		a.asyncAwait++
	case "switch_case":
		a.decisions++
		a.cognitive += 1 + depth
	case "if_statement", "for_statement", "for_in_statement", "while_statement", "do_statement", "ternary_expression":
		a.decisions++
		if loopTypes[nodeType] {
			a.loops++
		}
		a.cognitive += 1 + depth
		if depth+1 > a.maxDepth {
			a.maxDepth = depth + 1
		}
		a.walkBody(node, depth+1)
		return
	case "binary_expression":
		op := operatorText(node, a.content)
		if op == "&&" || op == "||" || op == "??" {
			a.decisions++
			a.cognitive++
		}
	case "call_expression":
		if a.name != "" && calleeName(node, a.content) == a.name {
			a.cognitive++
		}
	}

	a.walkBody(node, depth)
}

// countCallback attributes CallbackCount when a nested function-like
// node is passed directly as a call argument (the common callback
// shape: `arr.forEach(x => ...)`, `setTimeout(function(){...})`).
func (a *analyzer) countCallback(node *sitter.Node) {
	parent := node.Parent()
	if parent != nil && parent.Type() == "arguments" {
		a.callbacks++
	}
}

func operatorText(node *sitter.Node, content []byte) string {
	if op := node.ChildByFieldName("operator"); op != nil {
		return string(content[op.StartByte():op.EndByte()])
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if !child.IsNamed() {
			text := string(content[child.StartByte():child.EndByte()])
			if text == "&&" || text == "||" || text == "??" {
				return text
			}
		}
	}
	return ""
}

func calleeName(node *sitter.Node, content []byte) string {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	if fn.Type() == "identifier" {
		return string(content[fn.StartByte():fn.EndByte()])
	}
	return ""
}

// countLines classifies each line as comment-only or code, tracking
// block-comment state across lines. Blank lines count as neither.
func countLines(lines []string) (commentLines, codeLines int) {
	inBlock := false
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if inBlock {
			commentLines++
			if strings.Contains(line, "*/") {
				inBlock = false
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "//"):
			commentLines++
		case strings.HasPrefix(line, "/*"):
			commentLines++
			if !strings.Contains(line, "*/") {
				inBlock = true
			}
		default:
			codeLines++
		}
	}
	return commentLines, codeLines
}

// halsteadCounts derives the Halstead operator/operand multisets by
// classifying every leaf token in content: unnamed (anonymous) leaves
// are operators, named leaves (identifiers, literals) are operands.
func halsteadCounts(content []byte) (n1, n2, bigN1, bigN2 int) {
	operators := map[string]int{}
	operands := map[string]int{}

	parser := sitter.NewParser()
	parser.SetLanguage(typescript.GetLanguage())
	defer parser.Close()

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil || tree == nil {
		return 0, 0, 0, 0
	}
	defer tree.Close()

	var walk func(node *sitter.Node)
	walk = func(node *sitter.Node) {
		if node.ChildCount() == 0 {
			text := string(content[node.StartByte():node.EndByte()])
			if text == "" {
				return
			}
			if node.IsNamed() {
				operands[text]++
				bigN2++
			} else {
				operators[text]++
				bigN1++
			}
			return
		}
		for i := 0; i < int(node.ChildCount()); i++ {
			walk(node.Child(i))
		}
	}
	walk(tree.RootNode())

	return len(operators), len(operands), bigN1, bigN2
}

// maintainabilityIndex implements 171 − 5.2·ln(V) − 0.23·CC − 16.2·ln(LOC),
// clamped to [0, 171] then scaled to [0, 100].
func maintainabilityIndex(volume float64, cyclomatic, loc int) float64 {
	v := math.Max(volume, 1)
	l := math.Max(float64(loc), 1)
	mi := 171 - 5.2*math.Log(v) - 0.23*float64(cyclomatic) - 16.2*math.Log(l)
	mi = math.Max(0, math.Min(171, mi))
	return mi / 171 * 100
}
