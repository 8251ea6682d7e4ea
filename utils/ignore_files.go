package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GetIgnorePatterns reads and returns the patterns from the .capscan-ignore
// file in the given directory. A missing file yields an empty pattern list.
func GetIgnorePatterns(cwd string) ([]string, error) {
	ignorePath := filepath.Join(cwd, ".capscan-ignore")

	content, err := os.ReadFile(ignorePath)
	if os.IsNotExist(err) {
		return []string{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read .capscan-ignore: %w", err)
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}

// IsDefaultIgnored reports whether a path falls under the built-in skip
// list: VCS metadata, build output, editor state and binary media.
func IsDefaultIgnored(path string) bool {
	ignorePatterns := []string{
		"capscan-config.yml",
		".git",
		".svn",
		".idea",
		".vscode",
		".capscan",
		"bin",
		"obj",
		"dist",
		"out",
		"node_modules",
		"vendor",
		"*.exe",
		"*.dll",
		"*.log",
		"*.lock",
		"*.min.js",
		".jpg",
		".jpeg",
		".png",
		".gif",
		".mp3",
		".mp4",
		".zip",
		".tar",
		".gz",
	}

	parts := strings.Split(path, string(filepath.Separator))
	for _, part := range parts {
		part = strings.ToLower(part)
		for _, pattern := range ignorePatterns {
			if strings.HasPrefix(pattern, "*") {
				suffix := strings.TrimPrefix(pattern, "*")
				if strings.HasSuffix(part, suffix) {
					return true
				}
			} else {
				if strings.HasPrefix(part, pattern) || strings.HasSuffix(part, pattern) {
					return true
				}
			}
		}
	}
	return false
}

// IsIgnored checks if a file path matches any of the user-provided patterns.
func IsIgnored(path string, patterns []string) bool {
	for _, pattern := range patterns {
		match, _ := filepath.Match(pattern, path)
		if match {
			return true
		}
		// Patterns like "dir/" ignore entire directories.
		if strings.HasSuffix(pattern, "/") && strings.HasPrefix(path, pattern) {
			return true
		}
	}
	return false
}
