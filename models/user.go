package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a blog author or reader. Passwords are stored as bcrypt hashes only.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	FullName       string    `gorm:"size:128;not null" json:"fullName" validate:"required,max=128"`
	Email          string    `gorm:"size:255;not null;uniqueIndex" json:"email" validate:"required,email,max=255"`
	PasswordHash   string    `gorm:"size:255;not null" json:"-" validate:"required"`
	ProfilePicture string    `gorm:"size:512" json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	return nil
}
