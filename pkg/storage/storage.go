// Package storage provides file storage for uploaded statement documents.
package storage

import (
	"context"
	"io"
)

// StoredFile contains metadata about a stored file
type StoredFile struct {
	Name        string // generated unique name the file is stored under
	Size        int64
	ContentType string
}

// Storage defines the interface for document file storage
type Storage interface {
	// Save stores a file under a generated unique name and returns its metadata
	Save(ctx context.Context, originalName string, contentType string, r io.Reader) (*StoredFile, error)

	// Open returns a reader for a stored file
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes a stored file
	Delete(ctx context.Context, name string) error
}
