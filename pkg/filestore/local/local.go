package local

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

type Store struct {
	root  string
	debug bool
}

// New returns a store that keeps files in the root directory, creating it
// if needed.
func New(root string, debug bool) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("local: root directory is empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("local: couldn't create directory %q: %w", root, err)
	}
	return &Store{root: root, debug: debug}, nil
}

func (s *Store) Upload(ctx context.Context, path, name string) error {
	dst, err := s.path(name)
	if err != nil {
		return err
	}
	if err := copyFile(path, dst); err != nil {
		return fmt.Errorf("local: couldn't copy file %q to %q: %w", path, dst, err)
	}
	if s.debug {
		log.Printf("local: stored %s\n", dst)
	}
	return nil
}

func (s *Store) Download(ctx context.Context, path, name string) error {
	src, err := s.path(name)
	if err != nil {
		return err
	}
	if err := copyFile(src, path); err != nil {
		return fmt.Errorf("local: couldn't copy file %q to %q: %w", src, path, err)
	}
	return nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("local: invalid file name %q", name)
	}
	return filepath.Join(s.root, name), nil
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcFileInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	// Create or truncate the destination with the permissions of the source
	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcFileInfo.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(dstFile, srcFile); err != nil {
		_ = dstFile.Close()
		return err
	}
	return dstFile.Close()
}
