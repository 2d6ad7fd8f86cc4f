// Package archive bundles generated certificates into a zip archive.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
)

// File is one archive entry.
type File struct {
	Name    string
	Content []byte
}

// Error wraps a failure while writing the archive.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("archive entry %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("archive: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Build writes the files into a zip archive, preserving input order.
func Build(files []File) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, file := range files {
		entry, err := w.Create(file.Name)
		if err != nil {
			return nil, &Error{Name: file.Name, Err: err}
		}
		if _, err := entry.Write(file.Content); err != nil {
			return nil, &Error{Name: file.Name, Err: err}
		}
	}

	if err := w.Close(); err != nil {
		return nil, &Error{Err: err}
	}

	return buf.Bytes(), nil
}
