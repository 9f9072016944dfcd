package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/blogapi/models"
)

// GormBlogStore keeps blogs, comments and likes in relational tables.
// Mutations lock the blog row with SELECT ... FOR UPDATE so concurrent
// toggles and comments on one blog are applied one at a time.
type GormBlogStore struct {
	db *gorm.DB
}

// NewGormBlogStore creates a GormBlogStore.
func NewGormBlogStore(db *gorm.DB) *GormBlogStore {
	return &GormBlogStore{db: db}
}

func (s *GormBlogStore) Create(ctx context.Context, blog *models.Blog) (uint, error) {
	if blog.DatePosted.IsZero() {
		blog.DatePosted = time.Now()
	}
	if err := validateRecord(blog); err != nil {
		return 0, err
	}
	blog.Likes = nil
	blog.Comments = nil
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(blog).Error; err != nil {
		return 0, fmt.Errorf("create blog: %w", err)
	}
	blog.Likes = []uint{}
	blog.Comments = []models.Comment{}
	return blog.ID, nil
}

func (s *GormBlogStore) Get(ctx context.Context, id uint) (*models.Blog, error) {
	var blog models.Blog
	if err := s.withRelations(ctx).First(&blog, id).Error; err != nil {
		return nil, notFoundOr(err, "get blog")
	}
	fillLikes(&blog)
	return &blog, nil
}

func (s *GormBlogStore) ListAll(ctx context.Context) ([]models.Blog, error) {
	var blogs []models.Blog
	if err := s.withRelations(ctx).Order("id ASC").Find(&blogs).Error; err != nil {
		return nil, fmt.Errorf("list blogs: %w", err)
	}
	for i := range blogs {
		fillLikes(&blogs[i])
	}
	return blogs, nil
}

func (s *GormBlogStore) ListTrending(ctx context.Context, minLikes int) ([]models.Blog, error) {
	var blogs []models.Blog
	q := s.withRelations(ctx).Order("id ASC")
	if minLikes > 0 {
		liked := s.db.Model(&models.Like{}).
			Select("blog_id").
			Group("blog_id").
			Having("COUNT(*) >= ?", minLikes)
		q = q.Where("id IN (?)", liked)
	}
	if err := q.Find(&blogs).Error; err != nil {
		return nil, fmt.Errorf("list trending blogs: %w", err)
	}
	for i := range blogs {
		fillLikes(&blogs[i])
	}
	return blogs, nil
}

func (s *GormBlogStore) ToggleLike(ctx context.Context, blogID, userID uint) (LikeResult, error) {
	var res LikeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockBlog(tx, blogID); err != nil {
			return err
		}
		del := tx.Where("blog_id = ? AND user_id = ?", blogID, userID).Delete(&models.Like{})
		if del.Error != nil {
			return fmt.Errorf("remove like: %w", del.Error)
		}
		if del.RowsAffected == 0 {
			if err := tx.Create(&models.Like{BlogID: blogID, UserID: userID}).Error; err != nil {
				return fmt.Errorf("add like: %w", err)
			}
			res.Liked = true
		}
		var count int64
		if err := tx.Model(&models.Like{}).Where("blog_id = ?", blogID).Count(&count).Error; err != nil {
			return fmt.Errorf("count likes: %w", err)
		}
		res.LikeCount = int(count)
		return nil
	})
	return res, err
}

func (s *GormBlogStore) AddComment(ctx context.Context, blogID uint, comment *models.Comment) (*models.Comment, error) {
	comment.BlogID = blogID
	if comment.DatePosted.IsZero() {
		comment.DatePosted = time.Now()
	}
	if err := validateRecord(comment); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockBlog(tx, blogID); err != nil {
			return err
		}
		if err := tx.Create(comment).Error; err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *GormBlogStore) ListComments(ctx context.Context, blogID uint) ([]models.Comment, error) {
	db := s.db.WithContext(ctx)
	var exists int64
	if err := db.Model(&models.Blog{}).Where("id = ?", blogID).Count(&exists).Error; err != nil {
		return nil, fmt.Errorf("check blog: %w", err)
	}
	if exists == 0 {
		return nil, ErrNotFound
	}
	comments := []models.Comment{}
	if err := db.Where("blog_id = ?", blogID).Order("date_posted ASC, id ASC").Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// Delete removes likes and comments before the blog row so the blog_id
// foreign keys never point at a missing blog.
func (s *GormBlogStore) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockBlog(tx, id); err != nil {
			return err
		}
		if err := tx.Where("blog_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return fmt.Errorf("delete likes: %w", err)
		}
		if err := tx.Where("blog_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		res := tx.Delete(&models.Blog{}, id)
		if res.Error != nil {
			return fmt.Errorf("delete blog: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormBlogStore) withRelations(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("LikeRows").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("date_posted ASC, id ASC")
		})
}

func lockBlog(tx *gorm.DB, id uint) error {
	var blog models.Blog
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&blog, id).Error
	if err != nil {
		return notFoundOr(err, "lock blog")
	}
	return nil
}

func fillLikes(blog *models.Blog) {
	blog.Likes = make([]uint, 0, len(blog.LikeRows))
	for _, l := range blog.LikeRows {
		blog.Likes = append(blog.Likes, l.UserID)
	}
	blog.LikeRows = nil
	if blog.Comments == nil {
		blog.Comments = []models.Comment{}
	}
}
