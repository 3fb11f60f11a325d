package filter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

var (
	// ErrSourceNotFound indicates that the source directory does not exist or is not a directory.
	ErrSourceNotFound = errors.New("source directory not found")

	// ErrInvalidPattern indicates an include or ignore pattern that is not a valid glob.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// DefaultInclude matches track files at the top level of the source directory.
var DefaultInclude = []string{"*.gpx", "*.GPX"}

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery finds candidate track files below a source directory.
type FileDiscovery struct {
	rootDir         string
	includePatterns []compiledPattern
	ignorePatterns  []compiledPattern
}

// NewFileDiscovery compiles include and ignore patterns for rootDir. Patterns are
// matched against slash-separated paths relative to rootDir.
func NewFileDiscovery(rootDir string, include, ignore []string) (*FileDiscovery, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}

	fd := &FileDiscovery{rootDir: rootDir}

	var err error
	if fd.includePatterns, err = compilePatterns(include); err != nil {
		return nil, err
	}
	if fd.ignorePatterns, err = compilePatterns(ignore); err != nil {
		return nil, err
	}

	return fd, nil
}

func compilePatterns(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
		}
		compiled = append(compiled, compiledPattern{pattern: pattern, glob: g})
	}
	return compiled, nil
}

// RootDir returns the directory discovery starts from.
func (fd *FileDiscovery) RootDir() string {
	return fd.rootDir
}

// DiscoverFiles walks the source directory and returns the matching files in
// lexical order.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	info, err := os.Stat(fd.rootDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, fd.rootDir)
	}

	files := []string{}
	err = filepath.WalkDir(fd.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && fd.shouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		if fd.matchRelative(relPath) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", fd.rootDir, err)
	}

	sort.Strings(files)
	return files, nil
}

// Matches reports whether path, absolute or relative to the working directory,
// is a file discovery would return.
func (fd *FileDiscovery) Matches(path string) bool {
	relPath, err := filepath.Rel(fd.rootDir, path)
	if err != nil || relPath == "." || strings.HasPrefix(relPath, "..") {
		return false
	}
	return fd.matchRelative(filepath.ToSlash(relPath))
}

func (fd *FileDiscovery) matchRelative(relPath string) bool {
	if fd.shouldIgnore(relPath) {
		return false
	}
	for dir := pathDir(relPath); dir != ""; dir = pathDir(dir) {
		if fd.shouldIgnore(dir) {
			return false
		}
	}
	return matchesAnyPattern(relPath, fd.includePatterns)
}

// ShouldIgnore reports whether a slash-separated relative path matches an ignore pattern.
func (fd *FileDiscovery) ShouldIgnore(relPath string) bool {
	return fd.shouldIgnore(relPath)
}

func (fd *FileDiscovery) shouldIgnore(relPath string) bool {
	if matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// "archive" should match pattern "archive/**"
	return matchesAnyPattern(relPath+"/**", fd.ignorePatterns)
}

func pathDir(relPath string) string {
	i := strings.LastIndex(relPath, "/")
	if i < 0 {
		return ""
	}
	return relPath[:i]
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// A root-level path also matches "**/" patterns with the prefix removed, so
	// "**/*.gpx" covers both "a.gpx" and "2024/a.gpx".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if !strings.HasPrefix(cp.pattern, "**/") {
				continue
			}
			simplified, err := glob.Compile(strings.TrimPrefix(cp.pattern, "**/"), '/')
			if err == nil && simplified.Match(path) {
				return true
			}
		}
	}

	return false
}
