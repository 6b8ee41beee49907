package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forps/taskboard/internal/config"
	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/internal/utils"
	"github.com/forps/taskboard/pkg/response"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuthService struct {
	db        *gorm.DB
	jwtConfig *config.JWTConfig
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{db: db, jwtConfig: jwtCfg}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResult struct {
	Token    string       `json:"token"`
	ExpireAt time.Time    `json:"expire_at"`
	User     *models.User `json:"user"`
}

// Register creates the account and its personal workspace with an owner
// membership, all in one transaction. A taken email is a conflict.
func (s *AuthService) Register(req *RegisterRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	s.db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil, response.NewConflict("email already registered")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        email,
		Name:         req.Name,
		PasswordHash: hash,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		// Full UUID hex keeps the generated slug collision-free.
		workspace := models.Workspace{
			Name: fmt.Sprintf("%s's workspace", user.Name),
			Slug: "ws-" + strings.ReplaceAll(user.ID.String(), "-", ""),
		}
		if err := tx.Create(&workspace).Error; err != nil {
			return err
		}

		member := models.WorkspaceMember{
			WorkspaceID: workspace.ID,
			UserID:      user.ID,
			Role:        models.RoleOwner,
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}

	return s.issue(&user)
}

// Login verifies credentials and issues a token. Unknown email and wrong
// password are indistinguishable to the caller.
func (s *AuthService) Login(req *LoginRequest) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	err := s.db.First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid email or password")
		}
		return nil, err
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		return nil, response.NewUnauthorized("invalid email or password")
	}

	return s.issue(&user)
}

// Me returns the account behind a verified token subject.
func (s *AuthService) Me(userID uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := utils.GenerateToken(user.ID, user.Email, s.jwtConfig.ExpireHour)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		Token:    token,
		ExpireAt: time.Now().Add(time.Duration(s.jwtConfig.ExpireHour) * time.Hour),
		User:     user,
	}, nil
}
