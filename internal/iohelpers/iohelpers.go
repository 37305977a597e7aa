// Package iohelpers resolves the "-" conventional stdin/stdout placeholder
// used throughout the CLI surface (spec.md §6) into concrete io.Reader/
// io.Writer values, opening real files otherwise.
package iohelpers

import (
	"fmt"
	"io"
	"os"
)

const stdioPlaceholder = "-"

// OpenInput resolves path into a readable stream. "-" (or an empty string)
// means stdin. The caller is responsible for closing the returned io.Closer
// unless it is stdin.
func OpenInput(path string) (io.ReadCloser, error) {
	if path == "" || path == stdioPlaceholder {
		return os.Stdin, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening input %q: %w", path, err)
	}
	return f, nil
}

// OpenOutput resolves path into a writable stream. "-" or an empty string
// means stdout. The caller is responsible for closing the returned
// io.Closer unless it is stdout.
func OpenOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == stdioPlaceholder {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening output %q: %w", path, err)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
