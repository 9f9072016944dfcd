package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/cppla/blogapi/models"
)

// blogRecord is the on-disk shape of a blog file. Comments are nested.
type blogRecord struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Content     string          `json:"content"`
	Category    string          `json:"category"`
	AuthorID    uint            `json:"authorId"`
	Image       string          `json:"image"`
	DatePosted  time.Time       `json:"datePosted"`
	ReadTime    int             `json:"readTime"`
	Likes       []uint          `json:"likes"`
	Comments    []commentRecord `json:"comments"`
}

type commentRecord struct {
	ID         uint      `json:"id"`
	AuthorID   uint      `json:"authorId"`
	Text       string    `json:"text"`
	DatePosted time.Time `json:"datePosted"`
}

func newBlogRecord(b *models.Blog) blogRecord {
	return blogRecord{
		ID:          b.ID,
		Title:       b.Title,
		Description: b.Description,
		Content:     b.Content,
		Category:    b.Category,
		AuthorID:    b.AuthorID,
		Image:       b.Image,
		DatePosted:  b.DatePosted,
		ReadTime:    b.ReadTime,
		Likes:       []uint{},
		Comments:    []commentRecord{},
	}
}

func (r blogRecord) toModel() models.Blog {
	b := models.Blog{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Content:     r.Content,
		Category:    r.Category,
		AuthorID:    r.AuthorID,
		Image:       r.Image,
		DatePosted:  r.DatePosted,
		ReadTime:    r.ReadTime,
		Likes:       append([]uint{}, r.Likes...),
		Comments:    make([]models.Comment, 0, len(r.Comments)),
	}
	for _, c := range r.Comments {
		b.Comments = append(b.Comments, c.toModel(r.ID))
	}
	return b
}

func (c commentRecord) toModel(blogID uint) models.Comment {
	return models.Comment{
		ID:         c.ID,
		BlogID:     blogID,
		AuthorID:   c.AuthorID,
		Text:       c.Text,
		DatePosted: c.DatePosted,
	}
}

// FileBlogStore keeps one JSON file per blog under dir. Every
// read-modify-write on a blog holds that blog's lock from a keyedMutex, so
// concurrent likes and comments inside this process are never lost. Separate
// processes sharing dir are not coordinated.
type FileBlogStore struct {
	dir     string
	locks   *keyedMutex
	blogSeq sequence
	commSeq sequence
}

// NewFileBlogStore opens (creating if needed) a blog directory.
func NewFileBlogStore(dir string) (*FileBlogStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blog dir: %w", err)
	}
	s := &FileBlogStore{dir: dir, locks: newKeyedMutex()}
	ids, err := listRecordIDs(dir)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.blogSeq.observe(id)
		rec, err := s.load(id)
		if err != nil {
			return nil, err
		}
		for _, c := range rec.Comments {
			s.commSeq.observe(c.ID)
		}
	}
	return s, nil
}

func (s *FileBlogStore) Create(ctx context.Context, blog *models.Blog) (uint, error) {
	if blog.DatePosted.IsZero() {
		blog.DatePosted = time.Now()
	}
	if err := validateRecord(blog); err != nil {
		return 0, err
	}
	blog.ID = s.blogSeq.next()
	rec := newBlogRecord(blog)
	if err := writeRecord(s.dir, blog.ID, rec); err != nil {
		return 0, err
	}
	blog.Likes = []uint{}
	blog.Comments = []models.Comment{}
	return blog.ID, nil
}

func (s *FileBlogStore) Get(ctx context.Context, id uint) (*models.Blog, error) {
	rec, err := s.load(id)
	if err != nil {
		return nil, err
	}
	blog := rec.toModel()
	return &blog, nil
}

func (s *FileBlogStore) ListAll(ctx context.Context) ([]models.Blog, error) {
	return s.list(ctx, func(blogRecord) bool { return true })
}

func (s *FileBlogStore) ListTrending(ctx context.Context, minLikes int) ([]models.Blog, error) {
	return s.list(ctx, func(r blogRecord) bool { return len(r.Likes) >= minLikes })
}

func (s *FileBlogStore) ToggleLike(ctx context.Context, blogID, userID uint) (LikeResult, error) {
	unlock := s.locks.Lock(blogID)
	defer unlock()

	rec, err := s.load(blogID)
	if err != nil {
		return LikeResult{}, err
	}

	var res LikeResult
	kept := rec.Likes[:0]
	for _, id := range rec.Likes {
		if id != userID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(rec.Likes) {
		kept = append(kept, userID)
		res.Liked = true
	}
	rec.Likes = kept
	res.LikeCount = len(rec.Likes)

	if err := writeRecord(s.dir, blogID, rec); err != nil {
		return LikeResult{}, err
	}
	return res, nil
}

func (s *FileBlogStore) AddComment(ctx context.Context, blogID uint, comment *models.Comment) (*models.Comment, error) {
	comment.BlogID = blogID
	if comment.DatePosted.IsZero() {
		comment.DatePosted = time.Now()
	}
	if err := validateRecord(comment); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(blogID)
	defer unlock()

	rec, err := s.load(blogID)
	if err != nil {
		return nil, err
	}
	comment.ID = s.commSeq.next()
	rec.Comments = append(rec.Comments, commentRecord{
		ID:         comment.ID,
		AuthorID:   comment.AuthorID,
		Text:       comment.Text,
		DatePosted: comment.DatePosted,
	})
	if err := writeRecord(s.dir, blogID, rec); err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *FileBlogStore) ListComments(ctx context.Context, blogID uint) ([]models.Comment, error) {
	rec, err := s.load(blogID)
	if err != nil {
		return nil, err
	}
	return rec.toModel().Comments, nil
}

func (s *FileBlogStore) Delete(ctx context.Context, id uint) error {
	unlock := s.locks.Lock(id)
	defer unlock()
	return removeRecord(s.dir, id)
}

func (s *FileBlogStore) list(ctx context.Context, keep func(blogRecord) bool) ([]models.Blog, error) {
	ids, err := listRecordIDs(s.dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	blogs := make([]models.Blog, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := s.load(id)
		if errors.Is(err, ErrNotFound) {
			// deleted between listing and reading
			continue
		}
		if err != nil {
			return nil, err
		}
		if keep(*rec) {
			blogs = append(blogs, rec.toModel())
		}
	}
	return blogs, nil
}

// load reads and validates a blog file.
func (s *FileBlogStore) load(id uint) (*blogRecord, error) {
	var rec blogRecord
	if err := readRecord(s.dir, id, &rec); err != nil {
		return nil, err
	}
	if rec.ID != id {
		return nil, fmt.Errorf("%w: blog file %d holds id %d", ErrCorruptRecord, id, rec.ID)
	}
	blog := rec.toModel()
	if err := validateRecord(&blog); err != nil {
		return nil, fmt.Errorf("%w: blog %d: %v", ErrCorruptRecord, id, err)
	}
	seen := make(map[uint]struct{}, len(rec.Likes))
	for _, uid := range rec.Likes {
		if _, dup := seen[uid]; dup || uid == 0 {
			return nil, fmt.Errorf("%w: blog %d has invalid like set", ErrCorruptRecord, id)
		}
		seen[uid] = struct{}{}
	}
	for _, c := range blog.Comments {
		if c.ID == 0 {
			return nil, fmt.Errorf("%w: blog %d has comment without id", ErrCorruptRecord, id)
		}
		if err := validateRecord(&c); err != nil {
			return nil, fmt.Errorf("%w: blog %d comment %d: %v", ErrCorruptRecord, id, c.ID, err)
		}
	}
	if rec.Likes == nil {
		rec.Likes = []uint{}
	}
	return &rec, nil
}
