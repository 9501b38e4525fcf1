// Package walk provides the shared directory walker used by all file-based
// scanners. Type and size filtering happens here once, so the rule scanners
// and the AI analyzer do not traverse the tree independently.
package walk

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// Code-like extensions considered for content scanning
var codeExtensions = map[string]bool{
	".php":   true,
	".js":    true,
	".ts":    true,
	".jsx":   true,
	".tsx":   true,
	".py":    true,
	".rb":    true,
	".sh":    true,
	".sql":   true,
	".twig":  true,
	".blade": true,
	".vue":   true,
	".html":  true,
	".htm":   true,
	".css":   true,
	".json":  true,
	".yaml":  true,
	".yml":   true,
	".xml":   true,
	".env":   true,
	".ini":   true,
	".txt":   true,
}

// Extensions that hold executable source code, the subset worth sending to
// the AI analyzer
var sourceExtensions = map[string]bool{
	".php": true,
	".js":  true,
	".ts":  true,
	".jsx": true,
	".tsx": true,
	".py":  true,
	".rb":  true,
	".sh":  true,
	".vue": true,
}

// Options controls which files the walker visits
type Options struct {
	// MaxFileSize skips files larger than this many bytes (0 means no limit)
	MaxFileSize int64

	// SourceOnly restricts the walk to executable source files
	SourceOnly bool

	// Names restricts the walk to exact base names (e.g. manifest files).
	// When set, extension filtering is skipped.
	Names []string
}

// File describes one file the walker visited
type File struct {
	// Path is the absolute path on disk
	Path string

	// Rel is the path relative to the walk root, using forward slashes
	Rel string

	// Size is the file size in bytes
	Size int64
}

// Files walks root and calls fn for every regular file passing the filters.
// Returning an error from fn aborts the walk.
func Files(root string, opts Options, fn func(f File) error) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable subtree: skip it rather than failing the walk
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			return nil
		}

		if len(opts.Names) > 0 {
			if !containsName(opts.Names, filepath.Base(path)) {
				return nil
			}
		} else {
			ext := strings.ToLower(filepath.Ext(path))
			if opts.SourceOnly {
				if !sourceExtensions[ext] {
					return nil
				}
			} else if !codeExtensions[ext] {
				return nil
			}
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		return fn(File{
			Path: path,
			Rel:  filepath.ToSlash(rel),
			Size: info.Size(),
		})
	})
}

// IsBinary reports whether the given content sample looks like binary data.
// A NUL byte in the first kilobyte is treated as binary.
func IsBinary(sample []byte) bool {
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	return bytes.IndexByte(sample, 0) >= 0
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
