package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cppla/blogapi/models"
)

// userRecord is the on-disk shape of a user file.
type userRecord struct {
	ID             uint      `json:"id"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"passwordHash"`
	ProfilePicture string    `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (r userRecord) toModel() models.User {
	return models.User{
		ID:             r.ID,
		FullName:       r.FullName,
		Email:          r.Email,
		PasswordHash:   r.PasswordHash,
		ProfilePicture: r.ProfilePicture,
		CreatedAt:      r.CreatedAt,
	}
}

// FileUserStore keeps one JSON file per user under dir. There is no email
// index: uniqueness is checked by scanning all users while holding a
// store-wide lock, which only protects writers inside this process.
type FileUserStore struct {
	dir string
	mu  sync.Mutex
	seq sequence
}

// NewFileUserStore opens (creating if needed) a user directory.
func NewFileUserStore(dir string) (*FileUserStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create user dir: %w", err)
	}
	s := &FileUserStore{dir: dir}
	ids, err := listRecordIDs(dir)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.seq.observe(id)
	}
	return s, nil
}

func (s *FileUserStore) CreateUser(ctx context.Context, fullName, email, password, profilePicture string) (*models.User, error) {
	user, err := newUser(fullName, email, password, profilePicture)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.scanByEmail(ctx, user.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	user.ID = s.seq.next()
	user.CreatedAt = time.Now()
	rec := userRecord{
		ID:             user.ID,
		FullName:       user.FullName,
		Email:          user.Email,
		PasswordHash:   user.PasswordHash,
		ProfilePicture: user.ProfilePicture,
		CreatedAt:      user.CreatedAt,
	}
	if err := writeRecord(s.dir, user.ID, rec); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *FileUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.scanByEmail(ctx, NormalizeEmail(email))
}

func (s *FileUserStore) scanByEmail(ctx context.Context, email string) (*models.User, error) {
	ids, err := listRecordIDs(s.dir)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		user, err := s.load(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if user.Email == email {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileUserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	return s.load(id)
}

func (s *FileUserStore) FindByIDs(ctx context.Context, ids []uint) ([]models.User, error) {
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.load(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *FileUserStore) load(id uint) (*models.User, error) {
	var rec userRecord
	if err := readRecord(s.dir, id, &rec); err != nil {
		return nil, err
	}
	if rec.ID != id {
		return nil, fmt.Errorf("%w: %s holds id %d", ErrCorruptRecord, filepath.Base(recordPath(s.dir, id)), rec.ID)
	}
	user := rec.toModel()
	if err := validateRecord(&user); err != nil {
		return nil, fmt.Errorf("%w: user %d: %v", ErrCorruptRecord, id, err)
	}
	return &user, nil
}
