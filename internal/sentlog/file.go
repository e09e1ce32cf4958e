package sentlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore keeps the sent-record as a JSON array of strings
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore creates a store backed by the JSON file at path
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the file. A missing or undecodable file yields an empty list.
func (s *FileStore) Load(ctx context.Context) ([]string, error) {
	addresses, err := s.read()
	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			s.logger.Debug("no sent record yet", "path", s.path)
			return []string{}, nil
		case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
			s.logger.Warn("sent record is corrupt, starting empty", "path", s.path, "error", err)
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read sent record: %w", err)
	}
	return addresses, nil
}

// Persist merges addresses into the current file content and rewrites it atomically
func (s *FileStore) Persist(ctx context.Context, addresses []string) error {
	current, err := s.Load(ctx)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(merge(current, addresses), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sent record: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create sent record directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write sent record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write sent record: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace sent record: %w", err)
	}

	return nil
}

// Close is a no-op for the file store
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var addresses []string
	if err := json.Unmarshal(data, &addresses); err != nil {
		return nil, err
	}
	if addresses == nil {
		addresses = []string{}
	}
	return addresses, nil
}
