package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/blogapi/config"
	"github.com/cppla/blogapi/store"
	"github.com/cppla/blogapi/uploads"
	"github.com/cppla/blogapi/utils"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)

type testApp struct {
	router    *gin.Engine
	uploadDir string
}

func newTestApp(t *testing.T, mutate func(*config.AppConfig)) *testApp {
	t.Helper()
	dir := t.TempDir()
	cfg := config.AppConfig{
		GinMode:            "test",
		GinPath:            filepath.Join(dir, "logs", "gin.log"),
		LogLevel:           "error",
		RateLimitPerMinute: 10000,
		AllowedOrigins:     []string{"*"},
		TrendingMinLikes:   1,
		MaxUploadMB:        1,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	users, err := store.NewFileUserStore(filepath.Join(dir, "data", "users"))
	require.NoError(t, err)
	blogs, err := store.NewFileBlogStore(filepath.Join(dir, "data", "blogs"))
	require.NoError(t, err)
	uploadDir := filepath.Join(dir, "uploads")
	storage, err := uploads.NewLocalStorage(uploadDir, UploadURLPrefix, 1<<20)
	require.NoError(t, err)
	tokens, err := utils.NewTokenService("test-secret", time.Hour)
	require.NoError(t, err)

	r := SetupRouter(cfg, Deps{
		Users:     users,
		Blogs:     blogs,
		Tokens:    tokens,
		Uploads:   storage,
		Cache:     utils.NewCache(nil, 0),
		Blacklist: utils.NewTokenBlacklist(nil),
	})
	return &testApp{router: r, uploadDir: uploadDir}
}

type formFile struct {
	field, name string
	data        []byte
}

func (a *testApp) multipart(t *testing.T, path, token string, fields map[string]string, files ...formFile) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) do(t *testing.T, method, path, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (a *testApp) signup(t *testing.T, name, email, password string) uint {
	t.Helper()
	w := a.multipart(t, "/api/auth/signup", "", map[string]string{
		"fullname": name,
		"email":    email,
		"password": password,
	}, formFile{"profilePic", "me.png", pngBytes})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Message string `json:"message"`
		UserID  uint   `json:"userId"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "User registered successfully", resp.Message)
	return resp.UserID
}

func (a *testApp) login(t *testing.T, email, password string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (a *testApp) createBlog(t *testing.T, token, content string) map[string]interface{} {
	t.Helper()
	w := a.multipart(t, "/api/blogs/create", token, map[string]string{
		"title":       "My post",
		"description": "About things",
		"content":     content,
		"category":    "tech",
	}, formFile{"blogImage", "cover.png", pngBytes})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Message string                 `json:"message"`
		Blog    map[string]interface{} `json:"blog"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "Blog created successfully", resp.Message)
	return resp.Blog
}

func blogPath(id interface{}, suffix string) string {
	return "/api/blogs/" + strconv.Itoa(int(id.(float64))) + suffix
}

func TestSignupAndLogin(t *testing.T) {
	app := newTestApp(t, nil)

	userID := app.signup(t, "Ada Lovelace", "ada@example.com", "s3cret")
	assert.Equal(t, uint(1), userID)

	w := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), "$2a$")

	var resp struct {
		Token string                 `json:"token"`
		User  map[string]interface{} `json:"user"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "Ada Lovelace", resp.User["fullName"])
	assert.Equal(t, "ada@example.com", resp.User["email"])

	me := app.do(t, http.MethodGet, "/api/auth/me", resp.Token, nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), `"id":1`)
}

func TestLoginFailuresLookIdentical(t *testing.T) {
	app := newTestApp(t, nil)
	app.signup(t, "Ada", "ada@example.com", "s3cret")

	wrongPassword := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com", "password": "nope"})
	unknownEmail := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "eve@example.com", "password": "nope"})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
	assert.JSONEq(t, `{"code":40106,"message":"Invalid email or password"}`, wrongPassword.Body.String())

	missing := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ada@example.com"})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestSignupValidation(t *testing.T) {
	app := newTestApp(t, nil)
	fields := map[string]string{"fullname": "Ada", "email": "ada@example.com", "password": "pw"}

	w := app.multipart(t, "/api/auth/signup", "", fields)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Profile picture is required")

	w = app.multipart(t, "/api/auth/signup", "", map[string]string{"fullname": "Ada"}, formFile{"profilePic", "me.png", pngBytes})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.multipart(t, "/api/auth/signup", "", fields, formFile{"profilePic", "me.png", []byte("plain text, not an image")})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	app.signup(t, "Ada", "ada@example.com", "pw")
	w = app.multipart(t, "/api/auth/signup", "", fields, formFile{"profilePic", "me.png", pngBytes})
	assert.Equal(t, http.StatusConflict, w.Code)

	// only the first signup's picture is kept
	entries, err := os.ReadDir(filepath.Join(app.uploadDir, uploads.FolderProfilePics))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLogoutRevokesToken(t *testing.T) {
	app := newTestApp(t, nil)
	app.signup(t, "Ada", "ada@example.com", "pw")
	token := app.login(t, "ada@example.com", "pw")

	w := app.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateBlog(t *testing.T) {
	app := newTestApp(t, nil)
	app.signup(t, "Ada", "ada@example.com", "pw")
	token := app.login(t, "ada@example.com", "pw")

	w := app.multipart(t, "/api/blogs/create", "", map[string]string{"content": "x"}, formFile{"blogImage", "c.png", pngBytes})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.multipart(t, "/api/blogs/create", token, map[string]string{"content": "no image"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Content and image are required")

	w = app.multipart(t, "/api/blogs/create", token, map[string]string{"content": "   "}, formFile{"blogImage", "c.png", pngBytes})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	blog := app.createBlog(t, token, strings.Repeat("word ", 400))
	assert.Equal(t, float64(2), blog["readTime"])
	assert.Equal(t, float64(1), blog["authorId"])
	assert.Equal(t, float64(0), blog["likeCount"])
	assert.Equal(t, []interface{}{}, blog["likes"])
	author, ok := blog["author"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Ada", author["fullName"])

	image, _ := blog["image"].(string)
	assert.True(t, strings.HasPrefix(image, "/uploads/blogImages/"))

	served := app.do(t, http.MethodGet, image, "", nil)
	assert.Equal(t, http.StatusOK, served.Code)

	short := app.createBlog(t, token, "hello")
	assert.Equal(t, float64(1), short["readTime"])

	// words separated only by tags still count one by one
	marked := app.createBlog(t, token, strings.Repeat("<p>word</p>", 201))
	assert.Equal(t, float64(2), marked["readTime"])
	assert.Equal(t, strings.Repeat("<p>word</p>", 201), marked["content"])
}

func TestPlainTextFieldsAreNotEscaped(t *testing.T) {
	app := newTestApp(t, nil)
	app.signup(t, "Miles O'Brien", "miles@example.com", "pw")
	token := app.login(t, "miles@example.com", "pw")

	w := app.multipart(t, "/api/blogs/create", token, map[string]string{
		"title":    `Fish & "Chips"`,
		"content":  "hello",
		"category": "food & drink",
	}, formFile{"blogImage", "cover.png", pngBytes})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Blog map[string]interface{} `json:"blog"`
	}
	decode(t, w, &created)
	assert.Equal(t, `Fish & "Chips"`, created.Blog["title"])
	assert.Equal(t, "food & drink", created.Blog["category"])
	author, ok := created.Blog["author"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Miles O'Brien", author["fullName"])

	w = app.do(t, http.MethodPost, blogPath(created.Blog["id"], "/comment"), token, map[string]string{"text": "Tom & Jerry's <b>pick</b>"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var added struct {
		Comment map[string]interface{} `json:"comment"`
	}
	decode(t, w, &added)
	assert.Equal(t, "Tom & Jerry's pick", added.Comment["text"])
}

func TestLikeToggle(t *testing.T) {
	app := newTestApp(t, nil)
	app.signup(t, "Ada", "ada@example.com", "pw")
	token := app.login(t, "ada@example.com", "pw")
	blog := app.createBlog(t, token, "hello world")

	w := app.do(t, http.MethodPost, blogPath(blog["id"], "/like"), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp map[string]interface{}
	decode(t, w, &resp)
	assert.Equal(t, float64(1), resp["likes"])
	assert.Equal(t, true, resp["userHasLiked"])

	w = app.do(t, http.MethodPost, blogPath(blog["id"], "/like"), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &resp)
	assert.Equal(t, float64(0), resp["likes"])
	assert.Equal(t, false, resp["userHasLiked"])

	w = app.do(t, http.MethodPost, "/api/blogs/999/like", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = app.do(t, http.MethodPost, "/api/blogs/abc/like", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrending(t *testing.T) {
	app := newTestApp(t, nil)
	app.signup(t, "Ada", "ada@example.com", "pw")
	token := app.login(t, "ada@example.com", "pw")
	hot := app.createBlog(t, token, "hot post")
	app.createBlog(t, token, "cold post")

	w := app.do(t, http.MethodPost, blogPath(hot["id"], "/like"), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/api/blogs/trending", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trending []map[string]interface{}
	decode(t, w, &trending)
	require.Len(t, trending, 1)
	assert.Equal(t, hot["id"], trending[0]["id"])
	assert.Equal(t, float64(1), trending[0]["likeCount"])
}

func TestComments(t *testing.T) {
	app := newTestApp(t, nil)
	app.signup(t, "Ada", "ada@example.com", "pw")
	token := app.login(t, "ada@example.com", "pw")
	blog := app.createBlog(t, token, "hello world")

	w := app.do(t, http.MethodPost, blogPath(blog["id"], "/comment"), token, map[string]string{"text": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, blogPath(blog["id"], "/comment"), token, map[string]string{"text": "Great read"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var added struct {
		Message string                 `json:"message"`
		Comment map[string]interface{} `json:"comment"`
	}
	decode(t, w, &added)
	assert.Equal(t, "Comment added successfully", added.Message)
	assert.Equal(t, "Great read", added.Comment["text"])

	w = app.do(t, http.MethodGet, blogPath(blog["id"], "/comments"), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var comments []map[string]interface{}
	decode(t, w, &comments)
	require.Len(t, comments, 1)
	author, ok := comments[0]["author"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Ada", author["fullName"])

	w = app.do(t, http.MethodGet, "/api/blogs/999/comments", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = app.do(t, http.MethodPost, "/api/blogs/999/comment", token, map[string]string{"text": "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteBlog(t *testing.T) {
	app := newTestApp(t, nil)
	app.signup(t, "Ada", "ada@example.com", "pw")
	app.signup(t, "Bob", "bob@example.com", "pw")
	ada := app.login(t, "ada@example.com", "pw")
	bob := app.login(t, "bob@example.com", "pw")
	blog := app.createBlog(t, ada, "hello world")

	w := app.do(t, http.MethodDelete, "/api/blogs/999", ada, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// without ownership enforcement any signed-in user may delete
	w = app.do(t, http.MethodDelete, blogPath(blog["id"], ""), bob, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Blog deleted successfully")

	w = app.do(t, http.MethodGet, "/api/blogs/all", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []map[string]interface{}
	decode(t, w, &all)
	assert.Empty(t, all)

	entries, err := os.ReadDir(filepath.Join(app.uploadDir, uploads.FolderBlogImages))
	require.NoError(t, err)
	assert.Empty(t, entries)

	w = app.do(t, http.MethodDelete, blogPath(blog["id"], ""), ada, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteBlogOwnershipEnforced(t *testing.T) {
	app := newTestApp(t, func(c *config.AppConfig) { c.EnforceDeleteOwnership = true })
	app.signup(t, "Ada", "ada@example.com", "pw")
	app.signup(t, "Bob", "bob@example.com", "pw")
	ada := app.login(t, "ada@example.com", "pw")
	bob := app.login(t, "bob@example.com", "pw")
	blog := app.createBlog(t, ada, "hello world")

	w := app.do(t, http.MethodDelete, blogPath(blog["id"], ""), bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodDelete, blogPath(blog["id"], ""), ada, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
