package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"attachd/models"
	"attachd/utils"
)

// UserService is the registration surface the controller drives.
type UserService interface {
	Save(ctx context.Context, user *models.User) (*models.User, error)
}

// UserController exposes user registration.
type UserController struct {
	svc UserService
}

// NewUserController creates a new UserController instance.
func NewUserController(svc UserService) *UserController {
	return &UserController{svc: svc}
}

// Register creates a user, or updates a known username's email.
func (u *UserController) Register(ctx *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	user := &models.User{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
	}
	saved, err := u.svc.Save(ctx.Request.Context(), user)
	if err != nil {
		writeError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": saved})
}
