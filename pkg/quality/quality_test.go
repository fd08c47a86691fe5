package quality

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompute_SimpleFunctionBaselineComplexity(t *testing.T) {
	c := New()
	m := c.Compute(`function add(a, b) {
  return a + b;
}`, "add")

	require.Equal(t, 1, m.CyclomaticComplexity)
	require.Equal(t, 1, m.ReturnStatementCount)
	require.GreaterOrEqual(t, m.MaintainabilityIndex, 0.0)
	require.LessOrEqual(t, m.MaintainabilityIndex, 100.0)
}

func TestCompute_BranchesIncreaseCyclomaticComplexity(t *testing.T) {
	c := New()
	m := c.Compute(`function classify(x) {
  if (x > 0) {
    return "positive";
  } else if (x < 0) {
    return "negative";
  }
  return "zero";
}`, "classify")

	require.GreaterOrEqual(t, m.CyclomaticComplexity, 3)
	require.Equal(t, 3, m.ReturnStatementCount)
}

func TestCompute_LogicalOperatorsCountAsDecisions(t *testing.T) {
	c := New()
	plain := c.Compute(`function f(a, b) { return a; }`, "f")
	withAnd := c.Compute(`function f(a, b) { return a && b; }`, "f")

	require.Greater(t, withAnd.CyclomaticComplexity, plain.CyclomaticComplexity)
}

func TestCompute_NestedFunctionComplexityNotAttributedToOuter(t *testing.T) {
	c := New()
	m := c.Compute(`function outer() {
  function inner() {
    if (true) { return 1; }
    if (true) { return 2; }
    if (true) { return 3; }
  }
  return inner();
}`, "outer")

	require.Equal(t, 1, m.CyclomaticComplexity, "nested function's branches must not inflate outer's complexity")
}

func TestCompute_LoopsCountedSeparately(t *testing.T) {
	c := New()
	m := c.Compute(`function sumAll(items) {
  let total = 0;
  for (const item of items) {
    total += item;
  }
  return total;
}`, "sumAll")

	require.Equal(t, 1, m.LoopCount)
}

func TestCompute_TryCatchCounted(t *testing.T) {
	c := New()
	m := c.Compute(`function risky() {
  try {
    doThing();
  } catch (e) {
    handle(e);
  }
}`, "risky")

	require.GreaterOrEqual(t, m.TryCatchCount, 1)
}

func TestCompute_CommentLinesAndRatio(t *testing.T) {
	c := New()
	m := c.Compute(`function documented() {
  // step one
  // step two
  return 1;
}`, "documented")

	require.Equal(t, 2, m.CommentLines)
	require.Greater(t, m.CodeToCommentRatio, 0.0)
}

func TestCompute_MaintainabilityIndexBounded(t *testing.T) {
	c := New()
	m := c.Compute(`function tiny() { return 1; }`, "tiny")
	require.GreaterOrEqual(t, m.MaintainabilityIndex, 0.0)
	require.LessOrEqual(t, m.MaintainabilityIndex, 100.0)
}
