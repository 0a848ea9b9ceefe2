package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Blob is a single persisted document. Load returns nil when nothing was saved yet.
type Blob interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type FileBlob struct {
	path string
}

func NewFileBlob(path string) *FileBlob {
	return &FileBlob{path: path}
}

func (b *FileBlob) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// Save replaces the file atomically: readers see either the old or the new content.
func (b *FileBlob) Save(_ context.Context, data []byte) error {

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing %s: %w", tmp.Name(), err)
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), b.path)
}

type DocumentBlob struct {
	documents *Documents
	id        string
}

func NewDocumentBlob(documents *Documents, id string) *DocumentBlob {
	return &DocumentBlob{documents: documents, id: id}
}

func (b *DocumentBlob) Load(ctx context.Context) ([]byte, error) {
	return b.documents.Load(ctx, b.id)
}

func (b *DocumentBlob) Save(ctx context.Context, data []byte) error {
	return b.documents.Save(ctx, b.id, data)
}
