package models

import "time"

// Comment represents a reply to a blog. Comments are append-only.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BlogID     uint      `gorm:"index;not null" json:"blogId" validate:"required"`
	AuthorID   uint      `gorm:"index;not null" json:"authorId" validate:"required"`
	Text       string    `gorm:"type:text;not null" json:"text" validate:"required"`
	DatePosted time.Time `json:"datePosted"`
}
