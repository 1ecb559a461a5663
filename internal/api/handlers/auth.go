package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/internal/service"
	jwtutil "github.com/rl-arena/trivia-arena-backend/pkg/jwt"
	"github.com/rl-arena/trivia-arena-backend/pkg/logger"
)

type AuthHandler struct {
	userService *service.UserService
	jwtManager  *jwtutil.JWTManager
}

func NewAuthHandler(userService *service.UserService, jwtManager *jwtutil.JWTManager) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtManager:  jwtManager,
	}
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"fullName"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  gin.H  `json:"user"`
}

// Login 로그인
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	// 사용자 인증
	user, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
	logger.Info("User logged in", "userId", user.ID)
}

// Register 회원가입
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Username, req.Email, req.Password, req.FullName)
	if err != nil {
		respondError(c, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
	logger.Info("User registered", "userId", user.ID, "username", user.Username)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	// JWT 토큰 생성
	token, err := h.jwtManager.Generate(user.ID, user.Username, user.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(status, AuthResponse{
		Token: token,
		User:  userBody(user),
	})
}

func userBody(user *models.User) gin.H {
	return gin.H{
		"id":        user.ID,
		"username":  user.Username,
		"email":     user.Email,
		"fullName":  user.FullName,
		"avatarUrl": user.AvatarURL,
		"createdAt": user.CreatedAt,
	}
}
