// Package extract safely unpacks untrusted package archives
package extract

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Common errors
var (
	// ErrExtractionFailed indicates the archive was unreadable or every
	// entry was rejected. This is the only fatal error class in the
	// pipeline.
	ErrExtractionFailed = errors.New("archive extraction failed")

	// ErrPathTraversal indicates an entry tried to escape the work directory
	ErrPathTraversal = errors.New("path traversal attempt detected")

	// ErrUnsupportedFormat indicates the archive format is not recognized
	ErrUnsupportedFormat = errors.New("unsupported archive format")
)

// Extractor unpacks archives into unique per-scan work directories. The
// extractor creates the directory; ownership of its deletion belongs to the
// scan pipeline, which removes it unconditionally when the result is
// finalized.
type Extractor struct {
	workRoot    string
	maxFileSize int64
	maxFiles    int
	logger      *logrus.Logger
}

// Option configures an Extractor
type Option func(*Extractor)

// WithMaxFileSize caps the size of any single extracted file
func WithMaxFileSize(size int64) Option {
	return func(e *Extractor) {
		e.maxFileSize = size
	}
}

// WithMaxFiles caps the number of entries extracted from one archive
func WithMaxFiles(n int) Option {
	return func(e *Extractor) {
		e.maxFiles = n
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an extractor rooted at workRoot. An empty workRoot falls back
// to the system temp directory.
func New(workRoot string, options ...Option) *Extractor {
	if workRoot == "" {
		workRoot = os.TempDir()
	}
	e := &Extractor{
		workRoot:    workRoot,
		maxFileSize: 50 * 1024 * 1024,
		maxFiles:    5000,
		logger:      logrus.New(),
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// Extract unpacks the archive at archivePath into a freshly created unique
// directory and returns its path. Entries whose resolved path would escape
// the directory are dropped and logged; if no entry survives, the whole
// extraction fails with ErrExtractionFailed.
func (e *Extractor) Extract(archivePath string) (string, error) {
	destDir := filepath.Join(e.workRoot, "scan-"+uuid.NewString())
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("%w: cannot create work directory: %v", ErrExtractionFailed, err)
	}

	var extracted int
	var err error
	switch {
	case strings.HasSuffix(archivePath, ".zip"):
		extracted, err = e.extractZip(archivePath, destDir)
	case strings.HasSuffix(archivePath, ".tar"),
		strings.HasSuffix(archivePath, ".tar.gz"),
		strings.HasSuffix(archivePath, ".tgz"):
		extracted, err = e.extractTar(archivePath, destDir)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(archivePath))
	}

	if err != nil {
		os.RemoveAll(destDir)
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	if extracted == 0 {
		os.RemoveAll(destDir)
		return "", fmt.Errorf("%w: no valid entries in archive", ErrExtractionFailed)
	}

	e.logger.WithFields(logrus.Fields{
		"archive": archivePath,
		"dest":    destDir,
		"files":   extracted,
	}).Debug("Archive extracted")

	return destDir, nil
}

// safeJoin resolves an archive entry name inside destDir, rejecting any
// entry whose cleaned path would escape it (zip-slip guard)
func safeJoin(destDir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, name)
	}
	full := filepath.Join(destDir, cleaned)
	if !strings.HasPrefix(full, filepath.Clean(destDir)+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrPathTraversal, name)
	}
	return full, nil
}

func (e *Extractor) extractZip(archivePath, destDir string) (int, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("cannot open zip archive: %w", err)
	}
	defer reader.Close()

	var extracted int
	for _, entry := range reader.File {
		if extracted >= e.maxFiles {
			e.logger.WithField("archive", archivePath).Warn("Archive entry limit reached, remaining entries skipped")
			break
		}

		fullPath, err := safeJoin(destDir, entry.Name)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"entry":   entry.Name,
				"archive": archivePath,
			}).Warn("Dropped archive entry with unsafe path")
			continue
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(fullPath, 0755); err != nil {
				return extracted, fmt.Errorf("cannot create directory %s: %w", entry.Name, err)
			}
			continue
		}

		if int64(entry.UncompressedSize64) > e.maxFileSize {
			e.logger.WithField("entry", entry.Name).Warn("Dropped oversized archive entry")
			continue
		}

		src, err := entry.Open()
		if err != nil {
			return extracted, fmt.Errorf("cannot open entry %s: %w", entry.Name, err)
		}
		if err := writeFile(fullPath, src, e.maxFileSize); err != nil {
			src.Close()
			return extracted, fmt.Errorf("cannot write entry %s: %w", entry.Name, err)
		}
		src.Close()
		extracted++
	}

	return extracted, nil
}

func (e *Extractor) extractTar(archivePath, destDir string) (int, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("cannot open archive: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(archivePath, ".gz") || strings.HasSuffix(archivePath, ".tgz") {
		gzipReader, err := gzip.NewReader(file)
		if err != nil {
			return 0, fmt.Errorf("cannot open gzip stream: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	tarReader := tar.NewReader(reader)
	var extracted int
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return extracted, fmt.Errorf("corrupt tar stream: %w", err)
		}

		if extracted >= e.maxFiles {
			e.logger.WithField("archive", archivePath).Warn("Archive entry limit reached, remaining entries skipped")
			break
		}

		fullPath, err := safeJoin(destDir, header.Name)
		if err != nil {
			e.logger.WithFields(logrus.Fields{
				"entry":   header.Name,
				"archive": archivePath,
			}).Warn("Dropped archive entry with unsafe path")
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(fullPath, 0755); err != nil {
				return extracted, fmt.Errorf("cannot create directory %s: %w", header.Name, err)
			}
		case tar.TypeReg:
			if header.Size > e.maxFileSize {
				e.logger.WithField("entry", header.Name).Warn("Dropped oversized archive entry")
				continue
			}
			if err := writeFile(fullPath, tarReader, e.maxFileSize); err != nil {
				return extracted, fmt.Errorf("cannot write entry %s: %w", header.Name, err)
			}
			extracted++
		case tar.TypeSymlink:
			// Symlinks in untrusted archives are a traversal vector; an
			// extracted package has no legitimate use for them
			e.logger.WithField("entry", header.Name).Warn("Dropped symlink archive entry")
		}
	}

	return extracted, nil
}

func writeFile(path string, src io.Reader, limit int64) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer dst.Close()

	// LimitReader guards against decompression bombs lying about their size
	_, err = io.Copy(dst, io.LimitReader(src, limit+1))
	return err
}
