package utils

import (
	"path/filepath"
	"strings"
)

// GetSupportedLanguage maps a file path to a language name by extension.
// Unknown extensions return "" and fall through to plain text handling.
func GetSupportedLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".go":
		return "go"
	case ".js", ".mjs", ".cjs", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".py":
		return "python"
	case ".java":
		return "java"
	case ".cs":
		return "csharp"
	}
	return ""
}

// IsAnalyzableFile reports whether a file should be picked up by a
// directory scan. Everything textual qualifies; the analyzer falls back to
// plain text handling for unknown languages.
func IsAnalyzableFile(path string) bool {
	if GetSupportedLanguage(path) != "" {
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".rb", ".rs", ".c", ".h", ".cpp", ".hpp", ".php", ".swift", ".kt", ".scala", ".sh":
		return true
	}
	return false
}
