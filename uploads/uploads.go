// Package uploads stores user-submitted images on local disk or in MinIO.
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Folders used for the two kinds of upload.
const (
	FolderProfilePics = "profilePics"
	FolderBlogImages  = "blogImages"
)

var (
	// ErrNotImage is returned when the uploaded bytes are not an image.
	ErrNotImage = errors.New("uploaded file is not an image")
	// ErrTooLarge is returned when the upload exceeds the configured size.
	ErrTooLarge = errors.New("uploaded file is too large")
)

// Storage saves uploaded images and returns the reference clients use to fetch them.
type Storage interface {
	Save(ctx context.Context, folder string, header *multipart.FileHeader) (string, error)
	// Remove deletes a previously saved image by the reference Save returned.
	Remove(ctx context.Context, ref string) error
}

// image is an opened, sniffed upload ready to be copied.
type image struct {
	file        multipart.File
	objectName  string
	contentType string
	size        int64
}

// openImage opens header, checks its size and sniffs the content type from
// the first bytes rather than trusting the client's filename or header.
func openImage(header *multipart.FileHeader, folder string, maxBytes int64) (*image, error) {
	if maxBytes > 0 && header.Size > maxBytes {
		return nil, ErrTooLarge
	}
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	mt, err := mimetype.DetectReader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("sniff upload: %w", err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		_ = f.Close()
		return nil, ErrNotImage
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rewind upload: %w", err)
	}
	return &image{
		file:        f,
		objectName:  folder + "/" + uuid.NewString() + mt.Extension(),
		contentType: mt.String(),
		size:        header.Size,
	}, nil
}
