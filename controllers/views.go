package controllers

import (
	"context"
	"time"

	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/store"
	"github.com/cppla/blogapi/utils"
)

// UserView is a user as returned to clients; it never carries the password hash.
type UserView struct {
	ID             uint      `json:"id"`
	FullName       string    `json:"fullName"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
}

func newUserView(u models.User) UserView {
	return UserView{
		ID:             u.ID,
		FullName:       u.FullName,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

// AuthorView is the public part of a user shown next to blogs and comments.
type AuthorView struct {
	ID             uint   `json:"id"`
	FullName       string `json:"fullName"`
	ProfilePicture string `json:"profilePicture"`
}

func newAuthorView(u models.User) *AuthorView {
	return &AuthorView{ID: u.ID, FullName: u.FullName, ProfilePicture: u.ProfilePicture}
}

type CommentView struct {
	models.Comment
	Author *AuthorView `json:"author"`
}

type BlogView struct {
	models.Blog
	Author    *AuthorView   `json:"author"`
	LikeCount int           `json:"likeCount"`
	Comments  []CommentView `json:"comments"`
}

// authorIndex maps user id to author view. Deleted users are absent.
type authorIndex map[uint]*AuthorView

func loadAuthors(ctx context.Context, users store.UserStore, ids []uint) (authorIndex, error) {
	idx := authorIndex{}
	ids = utils.UniqueUint(ids)
	if len(ids) == 0 {
		return idx, nil
	}
	found, err := users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range found {
		idx[u.ID] = newAuthorView(u)
	}
	return idx, nil
}

func (idx authorIndex) comment(c models.Comment) CommentView {
	return CommentView{Comment: c, Author: idx[c.AuthorID]}
}

func (idx authorIndex) comments(cs []models.Comment) []CommentView {
	out := make([]CommentView, 0, len(cs))
	for _, c := range cs {
		out = append(out, idx.comment(c))
	}
	return out
}

func (idx authorIndex) blog(b models.Blog) BlogView {
	if b.Likes == nil {
		b.Likes = []uint{}
	}
	return BlogView{
		Blog:      b,
		Author:    idx[b.AuthorID],
		LikeCount: len(b.Likes),
		Comments:  idx.comments(b.Comments),
	}
}

// decorateBlogs resolves every blog and comment author in one lookup.
func decorateBlogs(ctx context.Context, users store.UserStore, blogs []models.Blog) ([]BlogView, error) {
	var ids []uint
	for _, b := range blogs {
		ids = append(ids, b.AuthorID)
		for _, c := range b.Comments {
			ids = append(ids, c.AuthorID)
		}
	}
	idx, err := loadAuthors(ctx, users, ids)
	if err != nil {
		return nil, err
	}
	out := make([]BlogView, 0, len(blogs))
	for _, b := range blogs {
		out = append(out, idx.blog(b))
	}
	return out, nil
}
