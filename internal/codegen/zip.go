package codegen

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ZipDir packs a directory tree into an in-memory ZIP archive. Paths inside
// the archive are relative to dir and use forward slashes.
func ZipDir(dir string) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		entry, err := w.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(entry, f)
		return err
	})
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("zip %s: %w", dir, err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize zip: %w", err)
	}
	return buf.Bytes(), nil
}
