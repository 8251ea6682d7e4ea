package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSupportedLanguage(t *testing.T) {
	cases := map[string]string{
		"main.go":          "go",
		"app/index.jsx":    "javascript",
		"src/server.ts":    "typescript",
		"scripts/job.py":   "python",
		"Service.java":     "java",
		"Program.cs":       "csharp",
		"README.md":        "",
		"Makefile":         "",
		"archive.tar.go":   "go",
		"UPPERCASE.GO":     "go",
	}

	for path, want := range cases {
		assert.Equal(t, want, GetSupportedLanguage(path), path)
	}
}

func TestIsAnalyzableFile(t *testing.T) {
	assert.True(t, IsAnalyzableFile("main.go"))
	assert.True(t, IsAnalyzableFile("lib.rs"))
	assert.True(t, IsAnalyzableFile("deploy.sh"))
	assert.False(t, IsAnalyzableFile("logo.png"))
	assert.False(t, IsAnalyzableFile("notes.txt"))
}
