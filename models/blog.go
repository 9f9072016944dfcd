package models

import "time"

// Blog is a published post. Likes is the set of user ids that liked it.
type Blog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255" json:"title" validate:"max=255"`
	Description string    `gorm:"type:text" json:"description"`
	Content     string    `gorm:"type:text;not null" json:"content" validate:"required"`
	Category    string    `gorm:"size:64;index" json:"category" validate:"max=64"`
	AuthorID    uint      `gorm:"index;not null" json:"authorId" validate:"required"`
	Image       string    `gorm:"size:1024;not null" json:"image" validate:"required,max=1024"`
	DatePosted  time.Time `gorm:"index" json:"datePosted"`
	ReadTime    int       `gorm:"not null" json:"readTime" validate:"gte=1"`
	Likes       []uint    `gorm:"-" json:"likes"`
	Comments    []Comment `gorm:"foreignKey:BlogID" json:"comments"`
	LikeRows    []Like    `gorm:"foreignKey:BlogID" json:"-" validate:"-"`
}

// HasLike reports whether userID is in the like set.
func (b *Blog) HasLike(userID uint) bool {
	for _, id := range b.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// Like records one user's like on a blog. The composite key keeps the set property.
type Like struct {
	BlogID    uint      `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint      `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time
}

// TableName keeps the join table name explicit.
func (Like) TableName() string {
	return "blog_likes"
}
