package capsule_analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSource = `package demo

import (
	"fmt"
	"strings"
)

func Greet(name string) string {
	return fmt.Sprintf("hello %s", strings.TrimSpace(name))
}

func helper() {}
`

func TestStaticAnalyzer_GoSource(t *testing.T) {
	analyzer := NewStaticAnalyzer()

	report, err := analyzer.Analyze("demo.go", []byte(goSource))
	require.NoError(t, err)
	assert.Equal(t, "go", report.Language)

	names := make(map[string]bool)
	for _, symbol := range report.APISymbols {
		names[symbol.Name] = symbol.Exported
	}
	require.Contains(t, names, "Greet")
	require.Contains(t, names, "helper")
	assert.True(t, names["Greet"])
	assert.False(t, names["helper"])

	modules := make([]string, 0, len(report.Dependencies))
	for _, dep := range report.Dependencies {
		modules = append(modules, dep.Module)
	}
	assert.Equal(t, []string{"fmt", "strings"}, modules)
}

func TestStaticAnalyzer_EvidenceBacksSymbols(t *testing.T) {
	analyzer := NewStaticAnalyzer()

	report, err := analyzer.Analyze("demo.go", []byte(goSource))
	require.NoError(t, err)

	for _, symbol := range report.APISymbols {
		require.NotEmpty(t, symbol.Evidence, "symbol %s has no evidence", symbol.Name)
		ev, ok := report.EvidenceIndex[symbol.Evidence]
		require.True(t, ok, "evidence id %s not in index", symbol.Evidence)
		assert.Equal(t, "demo.go", ev.File)
		assert.Greater(t, ev.StartLine, 0)
		assert.NotEmpty(t, ev.SnippetHash)
	}

	for _, fact := range report.StructuralFacts {
		for _, id := range fact.Evidence {
			_, ok := report.EvidenceIndex[id]
			assert.True(t, ok, "fact cites unknown evidence %s", id)
		}
	}
}

// Identical content must produce identical reports, including evidence ids.
func TestStaticAnalyzer_Deterministic(t *testing.T) {
	analyzer := NewStaticAnalyzer()

	first, err := analyzer.Analyze("demo.go", []byte(goSource))
	require.NoError(t, err)
	second, err := analyzer.Analyze("demo.go", []byte(goSource))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStaticAnalyzer_JavascriptExports(t *testing.T) {
	analyzer := NewStaticAnalyzer()
	source := `import fs from "fs";

export function publicApi() {}

function internal() {}
`

	report, err := analyzer.Analyze("lib.js", []byte(source))
	require.NoError(t, err)
	assert.Equal(t, "javascript", report.Language)

	exported := make(map[string]bool)
	for _, symbol := range report.APISymbols {
		exported[symbol.Name] = symbol.Exported
	}
	require.Contains(t, exported, "publicApi")
	require.Contains(t, exported, "internal")
	assert.True(t, exported["publicApi"])
	assert.False(t, exported["internal"])

	require.Len(t, report.Dependencies, 1)
	assert.Equal(t, "fs", report.Dependencies[0].Module)
}

func TestStaticAnalyzer_PythonVisibility(t *testing.T) {
	analyzer := NewStaticAnalyzer()
	source := "import os\n\ndef public_api():\n    pass\n\ndef _internal():\n    pass\n"

	report, err := analyzer.Analyze("mod.py", []byte(source))
	require.NoError(t, err)

	exported := make(map[string]bool)
	for _, symbol := range report.APISymbols {
		exported[symbol.Name] = symbol.Exported
	}
	assert.True(t, exported["public_api"])
	assert.False(t, exported["_internal"])
}

// Unknown languages fall back to the generic definition regex.
func TestStaticAnalyzer_PlainTextFallback(t *testing.T) {
	analyzer := NewStaticAnalyzer()
	source := "fn compute() {\n}\n\nfn render() {\n}\n"

	report, err := analyzer.Analyze("main.rs", []byte(source))
	require.NoError(t, err)

	var names []string
	for _, symbol := range report.APISymbols {
		names = append(names, symbol.Name)
	}
	assert.Equal(t, []string{"compute", "render"}, names)
}

func TestStaticAnalyzer_EmptyContent(t *testing.T) {
	analyzer := NewStaticAnalyzer()

	report, err := analyzer.Analyze("empty.go", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, report.APISymbols)
	assert.NotEmpty(t, report.StructuralFacts)
}

func TestStaticAnalyzer_InboundSample(t *testing.T) {
	analyzer := NewStaticAnalyzer()

	dir := t.TempDir()
	target := filepath.Join(dir, "lib.go")
	require.NoError(t, os.WriteFile(target, []byte("package p\n\nfunc Shared() {}\n"), 0644))
	caller := filepath.Join(dir, "caller.go")
	require.NoError(t, os.WriteFile(caller, []byte("package p\n\nfunc use() { Shared(); Shared() }\n"), 0644))
	unrelated := filepath.Join(dir, "other.go")
	require.NoError(t, os.WriteFile(unrelated, []byte("package p\n"), 0644))

	sample := analyzer.SampleInboundRefs(target, []string{"Shared"})

	require.Len(t, sample, 1)
	assert.Equal(t, caller, sample[0].File)
	assert.Equal(t, 2, sample[0].Count)
}
