package callgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/funcqc/funcqc/pkg/model"
)

func rec(name string, exported bool, start, end int) *model.Record {
	return &model.Record{
		PhysicalID: name + "-id",
		Name:       name,
		Exported:   exported,
		StartLine:  start,
		EndLine:    end,
		Kind:       model.KindDeclaration,
	}
}

func TestBuild_LocalDirectCall(t *testing.T) {
	src := `function helper() {
  return 1;
}

function caller() {
  return helper();
}`
	fs := &FileSet{
		ProjectRoot: "/proj",
		Files:       map[string][]byte{"/proj/a.ts": []byte(src)},
		Records: map[string][]*model.Record{
			"/proj/a.ts": {
				rec("helper", false, 1, 3),
				rec("caller", false, 5, 7),
			},
		},
	}

	b := New()
	edges, err := b.Build(context.Background(), fs)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, "caller-id", edges[0].CallerPhysicalID)
	require.Equal(t, "helper-id", edges[0].CalleePhysicalID)
	require.Equal(t, model.CallDirect, edges[0].CallType)
	require.Equal(t, 1.0, edges[0].Confidence)
}

func TestBuild_CrossFileExportedCall(t *testing.T) {
	libSrc := `export function add(a: number, b: number): number {
  return a + b;
}`
	mainSrc := `import { add } from './lib';

function run() {
  return add(1, 2);
}`
	fs := &FileSet{
		ProjectRoot: "/proj",
		Files: map[string][]byte{
			"/proj/lib.ts":  []byte(libSrc),
			"/proj/main.ts": []byte(mainSrc),
		},
		Records: map[string][]*model.Record{
			"/proj/lib.ts":  {rec("add", true, 1, 3)},
			"/proj/main.ts": {rec("run", false, 3, 5)},
		},
	}

	b := New()
	edges, err := b.Build(context.Background(), fs)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, "add-id", edges[0].CalleePhysicalID)
	require.InDelta(t, 0.9, edges[0].Confidence, 0.001)
}

func TestBuild_UnresolvedExternalCall(t *testing.T) {
	src := `import { doThing } from 'some-package';

function run() {
  return doThing();
}`
	fs := &FileSet{
		ProjectRoot: "/proj",
		Files:       map[string][]byte{"/proj/main.ts": []byte(src)},
		Records: map[string][]*model.Record{
			"/proj/main.ts": {rec("run", false, 3, 5)},
		},
	}

	b := New()
	edges, err := b.Build(context.Background(), fs)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, model.CallExternal, edges[0].CallType)
	require.Empty(t, edges[0].CalleePhysicalID)
}

func TestBuild_ConditionalCall(t *testing.T) {
	src := `function helper() { return 1; }

function caller(flag: boolean) {
  if (flag) {
    return helper();
  }
  return 0;
}`
	fs := &FileSet{
		Files: map[string][]byte{"/proj/a.ts": []byte(src)},
		Records: map[string][]*model.Record{
			"/proj/a.ts": {
				rec("helper", false, 1, 1),
				rec("caller", false, 3, 8),
			},
		},
	}

	b := New()
	edges, err := b.Build(context.Background(), fs)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, model.CallConditional, edges[0].CallType)
}

func TestBuild_UnresolvedIdentifierClassifiedDynamic(t *testing.T) {
	src := `function run(callback: () => void) {
  return callback();
}`
	fs := &FileSet{
		ProjectRoot: "/proj",
		Files:       map[string][]byte{"/proj/a.ts": []byte(src)},
		Records: map[string][]*model.Record{
			"/proj/a.ts": {rec("run", false, 1, 3)},
		},
	}

	b := New()
	edges, err := b.Build(context.Background(), fs)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	require.Equal(t, model.CallDynamic, edges[0].CallType)
	require.Equal(t, 0.0, edges[0].Confidence)
	require.Empty(t, edges[0].CalleePhysicalID)
}

func TestExportTable_BuildsEachModuleOnce(t *testing.T) {
	fs := &FileSet{
		Records: map[string][]*model.Record{
			"/proj/lib.ts": {rec("add", true, 1, 3)},
		},
	}
	table := NewExportTable()
	rec1, ok1 := table.Lookup("/proj/lib.ts", "add", fs)
	require.True(t, ok1)

	// Mutate the backing records after first build; cache must not refresh.
	fs.Records["/proj/lib.ts"] = append(fs.Records["/proj/lib.ts"], rec("subtract", true, 5, 7))
	_, ok2 := table.Lookup("/proj/lib.ts", "subtract", fs)
	require.False(t, ok2, "export table must build a module's entries at most once")
	require.Equal(t, "add-id", rec1.PhysicalID)
}
