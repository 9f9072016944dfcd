package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/blogapi/middleware"
	"github.com/cppla/blogapi/store"
	"github.com/cppla/blogapi/uploads"
	"github.com/cppla/blogapi/utils"
)

const invalidCredentialsMessage = "Invalid email or password"

// AuthController handles signup, login and session endpoints.
type AuthController struct {
	users     store.UserStore
	tokens    *utils.TokenService
	uploads   uploads.Storage
	blacklist *utils.TokenBlacklist
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(users store.UserStore, tokens *utils.TokenService, storage uploads.Storage, blacklist *utils.TokenBlacklist) *AuthController {
	return &AuthController{users: users, tokens: tokens, uploads: storage, blacklist: blacklist}
}

// Signup registers a user from a multipart form with a required profile picture.
func (a *AuthController) Signup(ctx *gin.Context) {
	picture, err := ctx.FormFile("profilePic")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "Profile picture is required")
		return
	}

	fullName := strings.TrimSpace(ctx.PostForm("fullname"))
	email := strings.TrimSpace(ctx.PostForm("email"))
	password := ctx.PostForm("password")
	if fullName == "" || email == "" || password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40002, "Full name, email and password are required")
		return
	}
	fullName = utils.SanitizeText(fullName)
	if fullName == "" {
		utils.Error(ctx, http.StatusBadRequest, 40002, "Full name, email and password are required")
		return
	}

	ref, ok := saveUpload(ctx, a.uploads, uploads.FolderProfilePics, picture)
	if !ok {
		return
	}

	user, err := a.users.CreateUser(ctx.Request.Context(), fullName, email, password, ref)
	if err != nil {
		removeUpload(ctx, a.uploads, ref)
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			utils.Error(ctx, http.StatusConflict, 40901, "Email already registered")
		case errors.Is(err, store.ErrInvalidRecord):
			utils.Error(ctx, http.StatusBadRequest, 40003, "Invalid signup details")
		default:
			utils.Logger.Error("signup failed", zap.Error(err))
			utils.ServerError(ctx, 50001, "Error signing up user", err)
		}
		return
	}

	utils.Logger.Info("user registered", zap.Uint("user_id", user.ID))
	utils.Respond(ctx, http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"userId":  user.ID,
	})
}

// Login authenticates with email and password and returns a token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email" form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := ctx.ShouldBind(&req); err != nil || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, 40004, "Email and password are required")
		return
	}

	user, err := a.users.FindByEmail(ctx.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.CheckPassword(utils.DummyPasswordHash(), req.Password)
			utils.Error(ctx, http.StatusUnauthorized, 40106, invalidCredentialsMessage)
			return
		}
		utils.Logger.Error("login lookup failed", zap.Error(err))
		utils.ServerError(ctx, 50002, "Error during login", err)
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, invalidCredentialsMessage)
		return
	}

	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		utils.Logger.Error("issue token failed", zap.Uint("user_id", user.ID), zap.Error(err))
		utils.ServerError(ctx, 50003, "Error during login", err)
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  newUserView(*user),
	})
}

// Logout revokes the bearer token until it would have expired.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	expiresAt := ctx.GetTime(middleware.ContextTokenExpiryKey)
	if token == "" {
		utils.Error(ctx, http.StatusUnauthorized, 40107, "invalid authorization header")
		return
	}

	if err := a.blacklist.Revoke(ctx.Request.Context(), token, expiresAt); err != nil {
		utils.Logger.Error("revoke token failed", zap.Error(err))
		utils.ServerError(ctx, 50004, "failed to logout", err)
		return
	}
	utils.Success(ctx, gin.H{"message": "Logged out successfully"})
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	utils.Success(ctx, newUserView(user))
}
