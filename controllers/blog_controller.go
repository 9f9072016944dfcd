package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/models"
	"github.com/cppla/blogapi/store"
	"github.com/cppla/blogapi/uploads"
	"github.com/cppla/blogapi/utils"
)

const (
	blogCachePrefix      = "cache:blogs:"
	blogCacheKeyAll      = blogCachePrefix + "all"
	blogCacheKeyTrending = blogCachePrefix + "trending"
)

// BlogOptions holds behaviour switches for BlogController.
type BlogOptions struct {
	TrendingMinLikes       int
	EnforceDeleteOwnership bool
}

// BlogController manages blogs, likes and comments.
type BlogController struct {
	blogs   store.BlogStore
	users   store.UserStore
	uploads uploads.Storage
	cache   *utils.Cache
	opts    BlogOptions
}

// NewBlogController creates a new BlogController instance. cache may be nil.
func NewBlogController(blogs store.BlogStore, users store.UserStore, storage uploads.Storage, cache *utils.Cache, opts BlogOptions) *BlogController {
	return &BlogController{blogs: blogs, users: users, uploads: storage, cache: cache, opts: opts}
}

// CreateBlog publishes a blog from a multipart form with a required image.
func (b *BlogController) CreateBlog(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	content := utils.SanitizeHTML(ctx.PostForm("content"))
	image, err := ctx.FormFile("blogImage")
	if content == "" || err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "Content and image are required")
		return
	}

	ref, ok := saveUpload(ctx, b.uploads, uploads.FolderBlogImages, image)
	if !ok {
		return
	}

	blog := &models.Blog{
		Title:       utils.SanitizeText(ctx.PostForm("title")),
		Description: utils.SanitizeHTML(ctx.PostForm("description")),
		Content:     content,
		Category:    utils.SanitizeText(ctx.PostForm("category")),
		AuthorID:    user.ID,
		Image:       ref,
		DatePosted:  time.Now(),
		ReadTime:    utils.ReadTime(utils.PlainText(content)),
	}

	if _, err := b.blogs.Create(ctx.Request.Context(), blog); err != nil {
		removeUpload(ctx, b.uploads, ref)
		if errors.Is(err, store.ErrInvalidRecord) {
			utils.Error(ctx, http.StatusBadRequest, 40021, "Invalid blog details")
			return
		}
		utils.Logger.Error("create blog failed", zap.Uint("user_id", user.ID), zap.Error(err))
		utils.ServerError(ctx, 50020, "Error creating blog", err)
		return
	}
	b.cache.InvalidateByPrefix(ctx.Request.Context(), blogCachePrefix)

	idx := authorIndex{user.ID: newAuthorView(user)}
	utils.Respond(ctx, http.StatusCreated, gin.H{
		"message": "Blog created successfully",
		"blog":    idx.blog(*blog),
	})
}

// ListBlogs returns every blog in store order.
func (b *BlogController) ListBlogs(ctx *gin.Context) {
	b.respondList(ctx, blogCacheKeyAll, "Error fetching blogs", b.blogs.ListAll)
}

// ListTrending returns blogs with at least the configured number of likes.
func (b *BlogController) ListTrending(ctx *gin.Context) {
	b.respondList(ctx, blogCacheKeyTrending, "Error fetching trending blogs", func(c context.Context) ([]models.Blog, error) {
		return b.blogs.ListTrending(c, b.opts.TrendingMinLikes)
	})
}

// ToggleLike likes the blog for the current user, or removes an existing like.
func (b *BlogController) ToggleLike(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	blogID, ok := blogIDParam(ctx)
	if !ok {
		return
	}

	res, err := b.blogs.ToggleLike(ctx.Request.Context(), blogID, user.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			blogNotFound(ctx)
			return
		}
		utils.Logger.Error("toggle like failed", zap.Uint("blog_id", blogID), zap.Error(err))
		utils.ServerError(ctx, 50021, "Error liking blog", err)
		return
	}
	b.cache.InvalidateByPrefix(ctx.Request.Context(), blogCachePrefix)

	message := "Blog unliked successfully"
	if res.Liked {
		message = "Blog liked successfully"
	}
	utils.Success(ctx, gin.H{
		"message":      message,
		"likes":        res.LikeCount,
		"userHasLiked": res.Liked,
	})
}

// AddComment appends a comment by the current user.
func (b *BlogController) AddComment(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	blogID, ok := blogIDParam(ctx)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" form:"text"`
	}
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}
	text := utils.SanitizeText(req.Text)
	if text == "" {
		utils.Error(ctx, http.StatusBadRequest, 40023, "Comment text is required")
		return
	}

	comment, err := b.blogs.AddComment(ctx.Request.Context(), blogID, &models.Comment{
		AuthorID:   user.ID,
		Text:       text,
		DatePosted: time.Now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			blogNotFound(ctx)
			return
		}
		utils.Logger.Error("add comment failed", zap.Uint("blog_id", blogID), zap.Error(err))
		utils.ServerError(ctx, 50022, "Error adding comment", err)
		return
	}
	b.cache.InvalidateByPrefix(ctx.Request.Context(), blogCachePrefix)

	idx := authorIndex{user.ID: newAuthorView(user)}
	utils.Success(ctx, gin.H{
		"message": "Comment added successfully",
		"comment": idx.comment(*comment),
	})
}

// ListComments returns a blog's comments oldest first.
func (b *BlogController) ListComments(ctx *gin.Context) {
	blogID, ok := blogIDParam(ctx)
	if !ok {
		return
	}

	comments, err := b.blogs.ListComments(ctx.Request.Context(), blogID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			blogNotFound(ctx)
			return
		}
		utils.Logger.Error("list comments failed", zap.Uint("blog_id", blogID), zap.Error(err))
		utils.ServerError(ctx, 50023, "Error fetching comments", err)
		return
	}

	ids := make([]uint, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.AuthorID)
	}
	idx, err := loadAuthors(ctx.Request.Context(), b.users, ids)
	if err != nil {
		utils.Logger.Error("load comment authors failed", zap.Uint("blog_id", blogID), zap.Error(err))
		utils.ServerError(ctx, 50023, "Error fetching comments", err)
		return
	}
	utils.Success(ctx, idx.comments(comments))
}

// DeleteBlog removes a blog with its likes and comments, then its image.
func (b *BlogController) DeleteBlog(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	blogID, ok := blogIDParam(ctx)
	if !ok {
		return
	}

	blog, err := b.blogs.Get(ctx.Request.Context(), blogID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			blogNotFound(ctx)
			return
		}
		utils.Logger.Error("load blog failed", zap.Uint("blog_id", blogID), zap.Error(err))
		utils.ServerError(ctx, 50024, "Error deleting blog", err)
		return
	}
	if b.opts.EnforceDeleteOwnership && blog.AuthorID != user.ID {
		utils.Error(ctx, http.StatusForbidden, 40301, "Only the author can delete this blog")
		return
	}

	if err := b.blogs.Delete(ctx.Request.Context(), blogID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			blogNotFound(ctx)
			return
		}
		utils.Logger.Error("delete blog failed", zap.Uint("blog_id", blogID), zap.Error(err))
		utils.ServerError(ctx, 50024, "Error deleting blog", err)
		return
	}
	b.cache.InvalidateByPrefix(ctx.Request.Context(), blogCachePrefix)
	removeUpload(ctx, b.uploads, blog.Image)

	utils.Logger.Info("blog deleted", zap.Uint("blog_id", blogID), zap.Uint("user_id", user.ID))
	utils.Success(ctx, gin.H{"message": "Blog deleted successfully"})
}

func (b *BlogController) respondList(ctx *gin.Context, cacheKey, failMessage string, list func(context.Context) ([]models.Blog, error)) {
	if cached, ok := b.cache.GetBytes(ctx.Request.Context(), cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", cached)
		return
	}
	gen := b.cache.Generation(ctx.Request.Context(), blogCachePrefix)

	blogs, err := list(ctx.Request.Context())
	if err == nil {
		var views []BlogView
		views, err = decorateBlogs(ctx.Request.Context(), b.users, blogs)
		if err == nil {
			b.cache.SetJSONAt(ctx.Request.Context(), blogCachePrefix, gen, cacheKey, views)
			utils.Success(ctx, views)
			return
		}
	}
	utils.Logger.Error("list blogs failed", zap.String("key", cacheKey), zap.Error(err))
	utils.ServerError(ctx, 50025, failMessage, err)
}

// blogIDParam parses :id. Anything that is not a positive integer cannot name
// a blog, so it is reported as not found.
func blogIDParam(ctx *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param("id")), 10, 0)
	if err != nil || id == 0 {
		blogNotFound(ctx)
		return 0, false
	}
	return uint(id), true
}

func blogNotFound(ctx *gin.Context) {
	utils.Error(ctx, http.StatusNotFound, 40401, "Blog not found")
}
