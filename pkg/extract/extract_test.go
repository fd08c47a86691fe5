package extract

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funcqc/funcqc/pkg/model"
)

func names(t *testing.T, src string) []string {
	t.Helper()
	e := New()
	recs, err := e.ExtractFile(context.Background(), "sample.ts", []byte(src), false)
	require.NoError(t, err)
	var out []string
	for _, r := range recs {
		out = append(out, r.DisplayName)
	}
	sort.Strings(out)
	return out
}

func TestExtractFile_FunctionDeclaration(t *testing.T) {
	src := `export function add(a: number, b: number): number {
  return a + b;
}`
	e := New()
	recs, err := e.ExtractFile(context.Background(), "sample.ts", []byte(src), false)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	rec := recs[0]
	require.Equal(t, "add", rec.Name)
	require.Equal(t, "add", rec.DisplayName)
	require.True(t, rec.Exported)
	require.Equal(t, "number", rec.ReturnType)
	require.Len(t, rec.Parameters, 2)
	require.Equal(t, "a", rec.Parameters[0].Name)
	require.Equal(t, "number", rec.Parameters[0].TypeSimple)
	require.NotEmpty(t, rec.ASTHash)
}

func TestExtractFile_ArrowBoundToConst(t *testing.T) {
	src := `const double = (x: number): number => x * 2;`
	recs := mustExtract(t, src)
	require.Len(t, recs, 1)
	require.Equal(t, "double", recs[0].Name)
	require.True(t, recs[0].Arrow)
}

func TestExtractFile_ClassMethodsAndConstructor(t *testing.T) {
	src := `class Widget {
  private count: number;

  constructor(initial: number) {
    this.count = initial;
  }

  get value(): number {
    return this.count;
  }

  static create(): Widget {
    return new Widget(0);
  }
}`
	got := names(t, src)
	require.Contains(t, got, "Widget.constructor")
	require.Contains(t, got, "Widget.value")
	require.Contains(t, got, "Widget.create")
}

func TestExtractFile_InterfaceMethodSignatureHasNoBody(t *testing.T) {
	src := `interface Service {
  run(input: string): Promise<void>;
}`
	recs := mustExtract(t, src)
	require.Len(t, recs, 1)
	require.Equal(t, "Service.run", recs[0].DisplayName)
	require.Equal(t, 0, recs[0].Metrics.CyclomaticComplexity)
}

func TestExtractFile_NestedLocalFunction(t *testing.T) {
	src := `function outer() {
  function inner() {
    return 1;
  }
  return inner();
}`
	got := names(t, src)
	require.Contains(t, got, "outer")
	require.Contains(t, got, "outer.inner")
}

func TestExtractFile_DefaultExportedAnonymousFunction(t *testing.T) {
	src := `export default function (req: Request) {
  return req;
}`
	recs := mustExtract(t, src)
	require.Len(t, recs, 1)
	require.Equal(t, "default", recs[0].Name)
	require.True(t, recs[0].Exported)
}

func TestExtractFile_AnonymousCallbackPositionalTag(t *testing.T) {
	src := `items.forEach((item) => {
  console.log(item);
});`
	recs := mustExtract(t, src)
	require.Len(t, recs, 1)
	require.Contains(t, recs[0].Name, "anon@1:")
}

func TestExtractFile_JSDocCaptured(t *testing.T) {
	src := `/**
 * Adds two numbers.
 */
function add(a: number, b: number): number {
  return a + b;
}`
	recs := mustExtract(t, src)
	require.Len(t, recs, 1)
	require.Contains(t, recs[0].JSDoc, "Adds two numbers")
}

func TestExtractFile_ASTHashIgnoresComments(t *testing.T) {
	a := mustExtract(t, "function f() {\n  // a comment\n  return 1;\n}")
	b := mustExtract(t, "function f() {\n  return 1;\n}")
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	require.Equal(t, a[0].ASTHash, b[0].ASTHash)
}

func mustExtract(t *testing.T, src string) []model.Record {
	t.Helper()
	e := New()
	recs, err := e.ExtractFile(context.Background(), "sample.ts", []byte(src), false)
	require.NoError(t, err)
	return recs
}
