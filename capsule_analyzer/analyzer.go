package capsule_analyzer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/capscan/capscan/capsule_analyzer/contracts"
	"github.com/capscan/capscan/capsule_analyzer/models"
	"github.com/capscan/capscan/embed_data"
	"github.com/capscan/capscan/utils"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Bounds on the inbound reference sample so deep dependency scans stay cheap.
const (
	inboundMaxFiles = 50
	inboundMaxRefs  = 8
)

// StaticAnalyzer extracts structural facts, symbols and dependencies from a
// single file content using Tree-sitter queries per language.
type StaticAnalyzer struct{}

// NewStaticAnalyzer initializes a new StaticAnalyzer.
func NewStaticAnalyzer() contracts.IStaticAnalyzer {
	return &StaticAnalyzer{}
}

// capture is one raw query hit before sorting and evidence assignment.
type capture struct {
	tag   string
	name  string
	start int
	end   int
	hash  string
}

// Analyze extracts the structural report from content. Output ordering is
// deterministic: captures are sorted by line then name, and evidence ids are
// assigned after sorting, so identical content always yields an identical
// report.
func (analyzer *StaticAnalyzer) Analyze(path string, content []byte) (*models.StructuralReport, error) {
	language := utils.GetSupportedLanguage(path)

	lang, query := treeSitterLanguage(language)
	if lang == nil {
		return analyzer.analyzePlainText(path, language, content), nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree := parser.Parse(nil, content)
	if tree == nil {
		return nil, fmt.Errorf("parser produced no tree for %q", path)
	}

	queries := make(map[string]string)
	if err := json.Unmarshal(query, &queries); err != nil {
		return nil, fmt.Errorf("failed to parse query set for %s: %w", language, err)
	}

	var captures []capture
	for tag, queryStr := range queries {
		q, err := sitter.NewQuery([]byte(queryStr), lang)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s query for %s: %w", tag, language, err)
		}

		cursor := sitter.NewQueryCursor()
		cursor.Exec(q, tree.RootNode())
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			for _, cap := range match.Captures {
				node := cap.Node
				captures = append(captures, capture{
					tag:   tag,
					name:  node.Content(content),
					start: int(node.StartPoint().Row) + 1,
					end:   int(node.EndPoint().Row) + 1,
					hash:  HashSnippet([]byte(node.Content(content))),
				})
			}
		}
	}

	return analyzer.assemble(path, language, content, captures), nil
}

// assemble turns raw captures into the sorted, evidence-indexed report.
func (analyzer *StaticAnalyzer) assemble(path, language string, content []byte, captures []capture) *models.StructuralReport {
	sort.Slice(captures, func(i, j int) bool {
		if captures[i].start != captures[j].start {
			return captures[i].start < captures[j].start
		}
		if captures[i].name != captures[j].name {
			return captures[i].name < captures[j].name
		}
		return captures[i].tag < captures[j].tag
	})

	report := &models.StructuralReport{
		Language:      language,
		EvidenceIndex: make(map[string]models.Evidence),
	}

	exportedByQuery := make(map[string]bool)
	for _, c := range captures {
		if c.tag == "export" {
			exportedByQuery[c.name] = true
		}
	}

	nextEvidence := 0
	addEvidence := func(c capture) string {
		nextEvidence++
		id := fmt.Sprintf("e%d", nextEvidence)
		report.EvidenceIndex[id] = models.Evidence{
			File:        path,
			StartLine:   c.start,
			EndLine:     c.end,
			SnippetHash: c.hash,
		}
		return id
	}

	depCounts := make(map[string]int)
	depEvidence := make(map[string]string)
	var functionEvidence, exportEvidence []string

	for _, c := range captures {
		switch c.tag {
		case "dependency":
			module := strings.Trim(c.name, `"'`)
			depCounts[module]++
			if _, seen := depEvidence[module]; !seen {
				depEvidence[module] = addEvidence(c)
			}
		case "export":
			// Folded into the exported flag of the matching symbol.
		default:
			id := addEvidence(c)
			symbol := models.APISymbol{
				Name:     c.name,
				Kind:     c.tag,
				Exported: isExported(language, c.name, exportedByQuery),
				Evidence: id,
			}
			report.APISymbols = append(report.APISymbols, symbol)
			if c.tag == "function" || c.tag == "method" {
				functionEvidence = append(functionEvidence, id)
			}
			if symbol.Exported {
				exportEvidence = append(exportEvidence, id)
			}
		}
	}

	modules := make([]string, 0, len(depCounts))
	for module := range depCounts {
		modules = append(modules, module)
	}
	sort.Strings(modules)
	for _, module := range modules {
		report.Dependencies = append(report.Dependencies, models.DependencyRef{
			Module:   module,
			Count:    depCounts[module],
			Evidence: depEvidence[module],
		})
	}

	exportedCount := len(exportEvidence)
	functionCount := len(functionEvidence)

	if exportedCount > 0 {
		report.StructuralFacts = append(report.StructuralFacts, models.StructuralFact{
			Text:     fmt.Sprintf("exports %d symbol(s)", exportedCount),
			Evidence: exportEvidence,
		})
	}
	if functionCount > 0 {
		report.StructuralFacts = append(report.StructuralFacts, models.StructuralFact{
			Text:     fmt.Sprintf("contains %d function(s)", functionCount),
			Evidence: functionEvidence,
		})
	}
	if len(report.Dependencies) > 0 {
		report.StructuralFacts = append(report.StructuralFacts, models.StructuralFact{
			Text: fmt.Sprintf("imports %d module(s)", len(report.Dependencies)),
		})
	}
	report.StructuralFacts = append(report.StructuralFacts, models.StructuralFact{
		Text: fmt.Sprintf("spans %d line(s)", countLines(content)),
	})

	return report
}

// isExported applies per-language visibility conventions. Languages with an
// explicit export keyword rely on the export query captures.
func isExported(language, name string, exportedByQuery map[string]bool) bool {
	switch language {
	case "go", "csharp", "java":
		return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
	case "python":
		return !strings.HasPrefix(name, "_")
	case "javascript", "typescript":
		return exportedByQuery[name]
	}
	return false
}

var plainTextSymbolRegex = regexp.MustCompile(`(?m)^\s*(?:function|def|func|fn|sub|proc)\s+(\w+)`)

// analyzePlainText is the fallback for languages without a Tree-sitter
// grammar. A generic definition regex catches the common cases; everything
// else degrades to line-count facts.
func (analyzer *StaticAnalyzer) analyzePlainText(path, language string, content []byte) *models.StructuralReport {
	report := &models.StructuralReport{
		Language:      language,
		EvidenceIndex: make(map[string]models.Evidence),
	}

	lines := strings.Split(string(content), "\n")
	nextEvidence := 0
	for i, line := range lines {
		matches := plainTextSymbolRegex.FindStringSubmatch(line)
		if matches == nil {
			continue
		}
		nextEvidence++
		id := fmt.Sprintf("e%d", nextEvidence)
		report.EvidenceIndex[id] = models.Evidence{
			File:        path,
			StartLine:   i + 1,
			EndLine:     i + 1,
			SnippetHash: HashSnippet([]byte(line)),
		}
		report.APISymbols = append(report.APISymbols, models.APISymbol{
			Name:     matches[1],
			Kind:     "function",
			Evidence: id,
		})
	}

	if len(report.APISymbols) > 0 {
		evidence := make([]string, 0, len(report.APISymbols))
		for _, s := range report.APISymbols {
			evidence = append(evidence, s.Evidence)
		}
		report.StructuralFacts = append(report.StructuralFacts, models.StructuralFact{
			Text:     fmt.Sprintf("contains %d function(s)", len(report.APISymbols)),
			Evidence: evidence,
		})
	}
	report.StructuralFacts = append(report.StructuralFacts, models.StructuralFact{
		Text: fmt.Sprintf("spans %d line(s)", countLines(content)),
	})

	return report
}

// SampleInboundRefs scans files in the same directory for occurrences of the
// given symbols. The scan is bounded and best effort; it exists to give the
// enrichment phase usage context, not to build a call graph.
func (analyzer *StaticAnalyzer) SampleInboundRefs(path string, symbols []string) []models.InboundRef {
	if len(symbols) == 0 {
		return nil
	}

	dir := filepath.Dir(path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var sample []models.InboundRef
	scanned := 0
	for _, entry := range entries {
		if entry.IsDir() || scanned >= inboundMaxFiles || len(sample) >= inboundMaxRefs {
			continue
		}
		candidate := filepath.Join(dir, entry.Name())
		if candidate == path {
			continue
		}
		if utils.GetSupportedLanguage(candidate) == "" {
			continue
		}
		scanned++

		content, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		text := string(content)

		count := 0
		for _, symbol := range symbols {
			count += strings.Count(text, symbol)
		}
		if count > 0 {
			sample = append(sample, models.InboundRef{File: candidate, Count: count})
		}
	}

	sort.Slice(sample, func(i, j int) bool { return sample[i].File < sample[j].File })
	return sample
}

// treeSitterLanguage maps a detected language to its grammar and query set.
func treeSitterLanguage(language string) (*sitter.Language, []byte) {
	switch language {
	case "go":
		return golang.GetLanguage(), embed_data.GoQuery
	case "javascript":
		return javascript.GetLanguage(), embed_data.JavascriptQuery
	case "typescript":
		return typescript.GetLanguage(), embed_data.TypescriptQuery
	case "python":
		return python.GetLanguage(), embed_data.PythonQuery
	case "java":
		return java.GetLanguage(), embed_data.JavaQuery
	case "csharp":
		return csharp.GetLanguage(), embed_data.CSharpQuery
	}
	return nil, nil
}

func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	return strings.Count(string(content), "\n") + 1
}
