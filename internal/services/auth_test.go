package services

import (
	"testing"

	"github.com/forps/taskboard/internal/config"
	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/internal/utils"
	"github.com/forps/taskboard/pkg/response"
)

func TestRegister_CreatesPersonalWorkspace(t *testing.T) {
	db := setupTestDB(t)
	utils.SetJWTSecret("test-secret")
	svc := NewAuthService(db, &config.JWTConfig{Secret: "test-secret", ExpireHour: 24})

	result, err := svc.Register(&RegisterRequest{
		Email:    "Ana@Example.com",
		Name:     "Ana",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if result.Token == "" {
		t.Error("token should be issued on registration")
	}
	if result.User.Email != "ana@example.com" {
		t.Errorf("email should be normalized, got %q", result.User.Email)
	}

	// One workspace exists, with the new account as its owner.
	var workspaces []models.Workspace
	db.Find(&workspaces)
	if len(workspaces) != 1 {
		t.Fatalf("workspaces = %d, want 1", len(workspaces))
	}

	var member models.WorkspaceMember
	if err := db.Where("workspace_id = ? AND user_id = ?", workspaces[0].ID, result.User.ID).
		First(&member).Error; err != nil {
		t.Fatalf("owner membership missing: %v", err)
	}
	if member.Role != models.RoleOwner {
		t.Errorf("role = %q, want owner", member.Role)
	}
}

func TestRegister_DuplicateEmailConflict(t *testing.T) {
	db := setupTestDB(t)
	utils.SetJWTSecret("test-secret")
	svc := NewAuthService(db, &config.JWTConfig{Secret: "test-secret", ExpireHour: 24})

	req := &RegisterRequest{Email: "ana@example.com", Name: "Ana", Password: "correct horse"}
	if _, err := svc.Register(req); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(req)
	if !response.IsKind(err, 409) {
		t.Errorf("duplicate email should conflict, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	utils.SetJWTSecret("test-secret")
	svc := NewAuthService(db, &config.JWTConfig{Secret: "test-secret", ExpireHour: 24})

	if _, err := svc.Register(&RegisterRequest{
		Email: "ana@example.com", Name: "Ana", Password: "correct horse",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(&LoginRequest{Email: "ana@example.com", Password: "correct horse"}); err != nil {
		t.Fatalf("login with right password: %v", err)
	}

	if _, err := svc.Login(&LoginRequest{Email: "ana@example.com", Password: "wrong"}); !response.IsKind(err, 401) {
		t.Errorf("wrong password should be unauthorized, got %v", err)
	}

	if _, err := svc.Login(&LoginRequest{Email: "ghost@example.com", Password: "x"}); !response.IsKind(err, 401) {
		t.Errorf("unknown email should be unauthorized, got %v", err)
	}
}
