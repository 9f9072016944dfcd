// Package store persists users and blogs. Two backends implement the same
// interfaces: MySQL through gorm, and one JSON file per record on disk.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/utils"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when a user with the same email already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidRecord is returned when a record fails validation before it is written.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrCorruptRecord is returned when a record read back from storage is malformed.
	ErrCorruptRecord = errors.New("corrupt record")
)

// UserStore is the credential store.
type UserStore interface {
	// CreateUser hashes password and persists a new user.
	CreateUser(ctx context.Context, fullName, email, password, profilePicture string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uint) (*models.User, error)
	// FindByIDs returns the users that exist among ids; unknown ids are skipped.
	FindByIDs(ctx context.Context, ids []uint) ([]models.User, error)
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Liked     bool
	LikeCount int
}

// BlogStore persists blogs with their likes and comments.
// ToggleLike, AddComment and Delete are serialized per blog.
type BlogStore interface {
	Create(ctx context.Context, blog *models.Blog) (uint, error)
	Get(ctx context.Context, id uint) (*models.Blog, error)
	ListAll(ctx context.Context) ([]models.Blog, error)
	ListTrending(ctx context.Context, minLikes int) ([]models.Blog, error)
	ToggleLike(ctx context.Context, blogID, userID uint) (LikeResult, error)
	AddComment(ctx context.Context, blogID uint, comment *models.Comment) (*models.Comment, error)
	ListComments(ctx context.Context, blogID uint) ([]models.Comment, error)
	Delete(ctx context.Context, id uint) error
}

// bcrypt ignores input past 72 bytes.
const maxPasswordBytes = 72

var validate = validator.New()

func validateRecord(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newUser builds a validated user record with a bcrypt hash of password.
func newUser(fullName, email, password, profilePicture string) (*models.User, error) {
	if password == "" || len(password) > maxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be 1-%d bytes", ErrInvalidRecord, maxPasswordBytes)
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		FullName:       strings.TrimSpace(fullName),
		Email:          NormalizeEmail(email),
		PasswordHash:   hash,
		ProfilePicture: profilePicture,
	}
	if err := validateRecord(user); err != nil {
		return nil, err
	}
	return user, nil
}
