package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/SupernovaIndustries/supernova-management-software-sub006/internal/domain/supplierimport"
)

// ErrBlobNotFound файл с таким ключом отсутствует
var ErrBlobNotFound = errors.New("blob not found")

var keyPattern = regexp.MustCompile(`^[0-9a-f-]{36}(\.[a-z0-9]{1,8})?$`)

// FileStore хранит загрузки в каталоге как <uuid><ext>
type FileStore struct {
	baseDir string
	maxSize int64
}

// NewFileStore создает хранилище и каталог при необходимости
func NewFileStore(baseDir string, maxSize int64) (*FileStore, error) {
	if baseDir == "" {
		baseDir = "uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir %s: %w", baseDir, err)
	}
	return &FileStore{baseDir: baseDir, maxSize: maxSize}, nil
}

// Save записывает поток во временный файл и атомарно переименовывает его
func (s *FileStore) Save(ctx context.Context, name string, r io.Reader) (supplierimport.SourceFile, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) > 9 {
		ext = ""
	}
	key := uuid.NewString() + ext
	path := filepath.Join(s.baseDir, key)

	tmp, err := os.CreateTemp(s.baseDir, ".upload-*")
	if err != nil {
		return supplierimport.SourceFile{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	n, err := io.Copy(tmp, &contextReader{ctx: ctx, r: src})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return supplierimport.SourceFile{}, fmt.Errorf("failed to write upload: %w", err)
	}
	if s.maxSize > 0 && n > s.maxSize {
		return supplierimport.SourceFile{}, fmt.Errorf("upload exceeds %d bytes", s.maxSize)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return supplierimport.SourceFile{}, fmt.Errorf("failed to store upload: %w", err)
	}
	return supplierimport.SourceFile{Key: key, Name: filepath.Base(name)}, nil
}

// Open открывает сохраненный файл
func (s *FileStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", key, err)
	}
	return f, nil
}

// Delete удаляет файл. Отсутствующий файл не считается ошибкой.
func (s *FileStore) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// path не допускает выхода за пределы каталога
func (s *FileStore) path(key string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: invalid key %q", ErrBlobNotFound, key)
	}
	return filepath.Join(s.baseDir, key), nil
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
