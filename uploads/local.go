package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes images under a directory served at URLPrefix.
type LocalStorage struct {
	root      string
	urlPrefix string
	maxBytes  int64
}

// NewLocalStorage creates a LocalStorage rooted at root. Saved images are
// addressed as urlPrefix + "/" + folder + "/" + name.
func NewLocalStorage(root, urlPrefix string, maxBytes int64) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStorage{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/"), maxBytes: maxBytes}, nil
}

// Root is the directory to serve statically.
func (s *LocalStorage) Root() string {
	return s.root
}

func (s *LocalStorage) Save(ctx context.Context, folder string, header *multipart.FileHeader) (string, error) {
	img, err := openImage(header, folder, s.maxBytes)
	if err != nil {
		return "", err
	}
	defer img.file.Close()

	dstPath := filepath.Join(s.root, filepath.FromSlash(img.objectName))
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return "", fmt.Errorf("create upload folder: %w", err)
	}
	out, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	// Enforce the limit while copying; header.Size is client supplied.
	var src io.Reader = img.file
	if s.maxBytes > 0 {
		src = &io.LimitedReader{R: img.file, N: s.maxBytes + 1}
	}
	written, err := io.Copy(out, src)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if s.maxBytes > 0 && written > s.maxBytes {
		_ = os.Remove(dstPath)
		return "", ErrTooLarge
	}
	return s.urlPrefix + "/" + img.objectName, nil
}

func (s *LocalStorage) Remove(ctx context.Context, ref string) error {
	rel := strings.TrimPrefix(ref, s.urlPrefix+"/")
	if rel == ref || rel == "" || strings.Contains(rel, "..") {
		return fmt.Errorf("not a local upload reference: %q", ref)
	}
	if err := os.Remove(filepath.Join(s.root, filepath.FromSlash(rel))); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove upload: %w", err)
	}
	return nil
}
