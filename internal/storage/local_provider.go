package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// LocalProvider stores objects under a directory on disk. Suitable for
// development and tests; production deployments use the S3 provider.
type LocalProvider struct {
	dir string
}

var _ ObjectStore = (*LocalProvider)(nil)

func NewLocalProvider(dir string) *LocalProvider {
	return &LocalProvider{dir: dir}
}

func (p *LocalProvider) PutObject(ctx context.Context, key string, data io.Reader) error {
	path := filepath.Join(p.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}

	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, data); err != nil {
		return err
	}

	return nil
}

func (p *LocalProvider) GetObject(ctx context.Context, key string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.dir, filepath.FromSlash(key)))
}
