// Package ingest loads text documents, splits them into overlapping chunks
// and writes them to the knowledge store in one guarded pipeline run.
package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrNoDocuments is returned when the data directory contains no loadable
// files. Running the pipeline against an empty directory is almost always a
// setup mistake, so it is an error rather than a silent no-op.
var ErrNoDocuments = errors.New("ingest: no documents found in data directory")

// loadableExtensions are the file types the loader accepts.
var loadableExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Document is one loaded source file.
type Document struct {
	// Source is the file path relative to the data directory, using
	// forward slashes on all platforms.
	Source string

	// Content is the full file text.
	Content string

	// Size is the file size in bytes.
	Size int64
}

// Load reads all .txt and .md files under dataDir, recursing into
// subdirectories. Hidden files and directories are skipped. The directory is
// opened through os.Root so symlinks cannot escape it.
func Load(dataDir string) ([]Document, error) {
	root, err := os.OpenRoot(dataDir)
	if err != nil {
		return nil, fmt.Errorf("ingest: opening data directory %q: %w", dataDir, err)
	}
	defer root.Close()

	fsys := root.FS()

	var docs []Document
	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if isHidden(d.Name()) && path != "." {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !loadableExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}
		if !utf8.Valid(data) {
			return fmt.Errorf("file %q is not valid UTF-8", path)
		}

		docs = append(docs, Document{
			Source:  filepath.ToSlash(path),
			Content: string(data),
			Size:    int64(len(data)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: walking data directory %q: %w", dataDir, err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoDocuments, dataDir)
	}
	return docs, nil
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
