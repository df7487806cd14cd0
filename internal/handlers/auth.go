package handlers

import (
  "net/http"

  "github.com/gin-gonic/gin"

  "github.com/yungbote/launchcopy-backend/internal/platform/logger"
  "github.com/yungbote/launchcopy-backend/internal/services"
  "github.com/yungbote/launchcopy-backend/internal/types"
)

type AuthHandler struct {
  log         *logger.Logger
  authService services.AuthService
}

func NewAuthHandler(baseLog *logger.Logger, authService services.AuthService) *AuthHandler {
  return &AuthHandler{
    log:         baseLog.With("handler", "AuthHandler"),
    authService: authService,
  }
}

type registerRequest struct {
  Email     string `json:"email" binding:"required"`
  Password  string `json:"password" binding:"required"`
  FirstName string `json:"first_name"`
  LastName  string `json:"last_name"`
}

func (h *AuthHandler) Register(c *gin.Context) {
  var req registerRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  user := &types.User{
    Email:     req.Email,
    Password:  req.Password,
    FirstName: req.FirstName,
    LastName:  req.LastName,
  }
  if err := h.authService.RegisterUser(c.Request.Context(), user); err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, gin.H{"user": user})
}

type loginRequest struct {
  Email    string `json:"email" binding:"required"`
  Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
  var req loginRequest
  if err := c.ShouldBindJSON(&req); err != nil {
    RespondError(c, http.StatusBadRequest, "bad_request", err)
    return
  }
  accessToken, refreshToken, err := h.authService.LoginUser(c.Request.Context(), req.Email, req.Password)
  if err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, gin.H{
    "access_token":  accessToken,
    "refresh_token": refreshToken,
    "expires_in":    int(h.authService.GetAccessTTL().Seconds()),
  })
}

func (h *AuthHandler) Logout(c *gin.Context) {
  if err := h.authService.LogoutUser(c.Request.Context()); err != nil {
    RespondAPIError(c, err)
    return
  }
  RespondOK(c, gin.H{"status": "logged out"})
}
