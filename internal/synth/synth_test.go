package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pyrun/internal/buffer"
	"pyrun/internal/config"
	"pyrun/internal/pycheck"
	"pyrun/internal/types"
)

var emptyCtx = types.ExtractedContext{Imports: []string{}, Globals: []string{}}

func header(lines ...string) []string {
	return append([]string{"", "", "# --- selection ---"}, lines...)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want types.Classification
	}{
		{"def foo():\n    return 42", types.Classification{Kind: types.KindFunctionDef, Name: "foo"}},
		{"async def fetch():\n    return 1", types.Classification{Kind: types.KindFunctionDef, Name: "fetch", Async: true}},
		{"@cache\ndef memo():\n    return 1", types.Classification{Kind: types.KindFunctionDef, Name: "memo"}},
		{"\n\nclass A:\n    pass", types.Classification{Kind: types.KindClassDef}},
		{"@dataclass\nclass P:\n    x: int", types.Classification{Kind: types.KindClassDef}},
		{"    a = 1\n\n    b = 2", types.Classification{Kind: types.KindIndentedFragment}},
		{"x + 1", types.Classification{Kind: types.KindExpression}},
		{"compute(\n    1,\n    2,\n)", types.Classification{Kind: types.KindExpression}},
		{"a == b", types.Classification{Kind: types.KindExpression}},
		{"x = 1", types.Classification{Kind: types.KindStatement}},
		{"for i in range(3):\n    i", types.Classification{Kind: types.KindStatement}},
		{"a if b else c", types.Classification{Kind: types.KindStatement}},
		{"print(x)", types.Classification{Kind: types.KindStatement}},
		{"return x", types.Classification{Kind: types.KindStatement}},
		{"import os", types.Classification{Kind: types.KindStatement}},
		{"# just a note", types.Classification{Kind: types.KindStatement}},
		{"a\nb", types.Classification{Kind: types.KindStatement}},
		{"a; b", types.Classification{Kind: types.KindStatement}},
		{`"a; b"`, types.Classification{Kind: types.KindExpression}},
		{`fmt("x=%d", n)`, types.Classification{Kind: types.KindExpression}},
		{"total  # print(total)", types.Classification{Kind: types.KindExpression}},
	}

	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %+v, want %+v", tt.text, got, tt.want)
		}
	}
}

func TestIsAllIndented(t *testing.T) {
	assert.True(t, IsAllIndented("    a\n\n\tb"))
	assert.False(t, IsAllIndented("    a\nb"))
	assert.False(t, IsAllIndented("\n  \n"))
}

func TestSynthesize(t *testing.T) {
	cfg := config.DefaultScriptConfig()

	tests := []struct {
		name      string
		selection string
		ctx       types.ExtractedContext
		want      []string
	}{
		{
			name:      "expression prints its value",
			selection: "x + 1",
			ctx:       emptyCtx,
			want:      header("x + 1", `print("Result:", x + 1)`),
		},
		{
			name:      "expression with trailing comment",
			selection: "total  # running sum",
			ctx:       emptyCtx,
			want:      header("total  # running sum", `print("Result:", total)`),
		},
		{
			name:      "multi-line expression is parenthesized",
			selection: "compute(\n    1,\n)",
			ctx:       emptyCtx,
			want: header(
				"compute(",
				"    1,",
				")",
				`print("Result:", (compute(`,
				"    1,",
				")))",
			),
		},
		{
			name:      "function gets a guarded call",
			selection: "def foo():\n    return 42",
			ctx:       emptyCtx,
			want: header(
				"def foo():",
				"    return 42",
				"",
				`if __name__ == "__main__":`,
				`    print("Running foo()")`,
				"    _pyrun_result = foo()",
				"    if _pyrun_result is not None:",
				"        print(_pyrun_result)",
			),
		},
		{
			name:      "function already called is left alone",
			selection: "def foo():\n    return 42\n\nfoo()",
			ctx:       emptyCtx,
			want:      header("def foo():", "    return 42", "", "foo()"),
		},
		{
			name:      "async function runs through asyncio",
			selection: "async def tick():\n    return 1",
			ctx:       emptyCtx,
			want: header(
				"async def tick():",
				"    return 1",
				"",
				`if __name__ == "__main__":`,
				"    import asyncio",
				`    print("Running tick()")`,
				"    _pyrun_result = asyncio.run(tick())",
				"    if _pyrun_result is not None:",
				"        print(_pyrun_result)",
			),
		},
		{
			name:      "class is emitted verbatim",
			selection: "class A:\n    x = 1\n",
			ctx:       emptyCtx,
			want:      header("class A:", "    x = 1"),
		},
		{
			name:      "indented fragment is wrapped",
			selection: "    a = 1\n\n    print(a)",
			ctx:       emptyCtx,
			want: header(
				"def _pyrun_selection():",
				"        a = 1",
				"",
				"        print(a)",
				"_pyrun_selection()",
			),
		},
		{
			name:      "statement gets completion marker",
			selection: "y = x * 2",
			ctx:       emptyCtx,
			want:      header("y = x * 2", `print("Done.")`),
		},
		{
			name:      "statement with print is left alone",
			selection: "for i in range(2):\n    print(i)",
			ctx:       emptyCtx,
			want:      header("for i in range(2):", "    print(i)"),
		},
		{
			name:      "print in a trailing comment is not a call",
			selection: "x = 1  # print(x)",
			ctx:       emptyCtx,
			want:      header("x = 1  # print(x)", `print("Done.")`),
		},
		{
			name:      "print in a string is not a call",
			selection: `msg = "print(me)"`,
			ctx:       emptyCtx,
			want:      header(`msg = "print(me)"`, `print("Done.")`),
		},
		{
			name:      "call in a string does not suppress the guard",
			selection: "def foo():\n    return \"foo()\"",
			ctx:       emptyCtx,
			want: header(
				"def foo():",
				`    return "foo()"`,
				"",
				`if __name__ == "__main__":`,
				`    print("Running foo()")`,
				"    _pyrun_result = foo()",
				"    if _pyrun_result is not None:",
				"        print(_pyrun_result)",
			),
		},
		{
			name:      "comment selection is left alone",
			selection: "# scratch\nz = 1",
			ctx:       emptyCtx,
			want:      header("# scratch", "z = 1"),
		},
		{
			name:      "context comes first",
			selection: "x + 1",
			ctx:       types.ExtractedContext{Imports: []string{"import os"}, Globals: []string{"x = 41"}},
			want: []string{
				"import os",
				"",
				"x = 41",
				"",
				"# --- selection ---",
				"x + 1",
				`print("Result:", x + 1)`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Synthesize(tt.selection, tt.ctx, cfg)
			require.NoError(t, err)
			assert.Equal(t, types.ScriptSelection, got.Kind)
			if diff := cmp.Diff(tt.want, got.Lines); diff != "" {
				t.Errorf("Synthesize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSynthesizeEmptySelection(t *testing.T) {
	for _, sel := range []string{"", "   ", "\n\n", " \t\n  "} {
		got, err := Synthesize(sel, emptyCtx, config.DefaultScriptConfig())
		require.Error(t, err)
		assert.True(t, errors.Is(err, types.ErrInput), "want input error, got %v", err)
		assert.Equal(t, "selection is empty", err.Error())
		assert.Empty(t, got.Lines)
	}
}

func TestSynthesizeSingleGuard(t *testing.T) {
	got, err := Synthesize("def foo():\n    return 42", emptyCtx, config.DefaultScriptConfig())
	require.NoError(t, err)

	text := got.Text()
	assert.Equal(t, 1, strings.Count(text, `if __name__ == "__main__":`))
	assert.Equal(t, 1, strings.Count(text, "= foo()"))
	assert.Contains(t, text, "if _pyrun_result is not None:")
}

func TestSynthesizeCustomNames(t *testing.T) {
	cfg := config.DefaultScriptConfig()
	cfg.WrapperName = "_snippet"
	cfg.IndentUnit = "\t"
	cfg.ResultLabel = "=>"
	cfg.SelectionMarker = "picked"

	got, err := Synthesize("\tvalue()", emptyCtx, cfg)
	require.NoError(t, err)
	want := []string{"", "", "# picked", "def _snippet():", "\t\tvalue()", "_snippet()"}
	if diff := cmp.Diff(want, got.Lines); diff != "" {
		t.Errorf("custom names mismatch (-want +got):\n%s", diff)
	}

	got, err = Synthesize(`"a" + "b"`, emptyCtx, cfg)
	require.NoError(t, err)
	assert.Equal(t, `print("=>", "a" + "b")`, got.Lines[len(got.Lines)-1])
}

const sampleBuffer = `import os
from math import sqrt

SCALE = 2
NAMES = [
    "a",
    "b",
]

class Point:
    x = 0

    def norm(self):
        return sqrt(self.x)

def area(r):
    total = 3.14 * r * r
    return total * SCALE

radius = 3
area(radius)
`

func TestSynthesizeSelectionScript(t *testing.T) {
	lines := strings.Split(sampleBuffer, "\n")
	cfg := config.DefaultScriptConfig()

	rng := types.SelectionRange{StartLine: 16, StartColumn: 1, EndLine: 18, EndColumn: buffer.EndOfLine}
	got, err := SynthesizeSelectionScript(lines, rng, cfg)
	require.NoError(t, err)

	want := []string{
		"import os",
		"from math import sqrt",
		"",
		"SCALE = 2",
		"NAMES = [",
		`    "a",`,
		`    "b",`,
		"]",
		"radius = 3",
		"",
		"# --- selection ---",
		"def area(r):",
		"    total = 3.14 * r * r",
		"    return total * SCALE",
		"",
		`if __name__ == "__main__":`,
		`    print("Running area()")`,
		"    _pyrun_result = area()",
		"    if _pyrun_result is not None:",
		"        print(_pyrun_result)",
	}
	if diff := cmp.Diff(want, got.Lines); diff != "" {
		t.Errorf("SynthesizeSelectionScript mismatch (-want +got):\n%s", diff)
	}
}

func TestSynthesizeSelectionScriptBlankRange(t *testing.T) {
	lines := strings.Split(sampleBuffer, "\n")
	rng := types.SelectionRange{StartLine: 3, StartColumn: 1, EndLine: 3, EndColumn: buffer.EndOfLine}

	got, err := SynthesizeSelectionScript(lines, rng, config.DefaultScriptConfig())
	assert.ErrorIs(t, err, types.ErrInput)
	assert.Empty(t, got.Lines)
}

// Every synthesized script must parse as Python.
func TestSynthesizedScriptsParse(t *testing.T) {
	lines := strings.Split(sampleBuffer, "\n")
	cfg := config.DefaultScriptConfig()

	ranges := map[string]types.SelectionRange{
		"function":          {StartLine: 16, StartColumn: 1, EndLine: 18, EndColumn: buffer.EndOfLine},
		"class":             {StartLine: 10, StartColumn: 1, EndLine: 14, EndColumn: buffer.EndOfLine},
		"method body":       {StartLine: 13, StartColumn: 1, EndLine: 14, EndColumn: buffer.EndOfLine},
		"expression":        {StartLine: 17, StartColumn: 13, EndLine: 17, EndColumn: buffer.EndOfLine},
		"call expression":   {StartLine: 21, StartColumn: 1, EndLine: 21, EndColumn: buffer.EndOfLine},
		"statement":         {StartLine: 20, StartColumn: 1, EndLine: 20, EndColumn: buffer.EndOfLine},
		"multi-line global": {StartLine: 5, StartColumn: 1, EndLine: 8, EndColumn: buffer.EndOfLine},
		"bracket contents":  {StartLine: 5, StartColumn: 9, EndLine: 8, EndColumn: 1},
	}

	for name, rng := range ranges {
		t.Run(name, func(t *testing.T) {
			script, err := SynthesizeSelectionScript(lines, rng, cfg)
			require.NoError(t, err)

			issues, err := pycheck.Check(context.Background(), []byte(script.Text()))
			require.NoError(t, err)
			assert.Empty(t, issues, "script does not parse:\n%s", script.Text())
		})
	}
}
