package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage implements Storage interface for local filesystem
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(cfg Config) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		cfg.BasePath = "./uploads"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "/files"
	}

	// Create base directory if it doesn't exist
	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: cfg.BasePath,
		baseURL:  cfg.BaseURL,
	}, nil
}

// BasePath - корень, который роутер раздает по /files
func (s *LocalStorage) BasePath() string {
	return s.basePath
}

func (s *LocalStorage) fullPath(p string) (string, error) {
	key, err := cleanKey(p)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.basePath, filepath.FromSlash(key)), nil
}

// Save stores a file locally
func (s *LocalStorage) Save(ctx context.Context, path string, reader io.Reader, contentType string) error {
	fullPath, err := s.fullPath(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Пишем во временный файл, чтобы читатели не видели частичный JPEG
	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to move file: %w", err)
	}
	return nil
}

// Get retrieves a file from local storage
func (s *LocalStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath, err := s.fullPath(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Delete removes a file from local storage
func (s *LocalStorage) Delete(ctx context.Context, path string) error {
	fullPath, err := s.fullPath(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists checks if a file exists in local storage
func (s *LocalStorage) Exists(ctx context.Context, path string) (bool, error) {
	fullPath, err := s.fullPath(path)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetURL returns a public URL for the file
func (s *LocalStorage) GetURL(ctx context.Context, path string) (string, error) {
	key, err := cleanKey(path)
	if err != nil {
		return "", err
	}
	return joinURL(s.baseURL, key), nil
}
