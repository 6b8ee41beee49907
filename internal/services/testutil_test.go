package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/forps/taskboard/internal/models"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a fresh in-memory database and migrates the full schema.
// Each test gets its own named memory DB so parallel tests never share state.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Workspace{},
		&models.WorkspaceMember{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.Comment{},
		&models.TaskEvent{},
		&models.ShareLink{},
		&models.SystemLog{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        strings.ToLower(name) + "@example.com",
		Name:         name,
		PasswordHash: "x",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return user
}

func createTestWorkspace(t *testing.T, db *gorm.DB, owner *models.User, slug string) *models.Workspace {
	t.Helper()

	ws := &models.Workspace{Name: slug, Slug: slug}
	if err := db.Create(ws).Error; err != nil {
		t.Fatalf("create workspace %s: %v", slug, err)
	}
	member := &models.WorkspaceMember{WorkspaceID: ws.ID, UserID: owner.ID, Role: models.RoleOwner}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("create workspace owner membership: %v", err)
	}
	return ws
}

func createTestProject(t *testing.T, db *gorm.DB, ws *models.Workspace, owner *models.User, name string) *models.Project {
	t.Helper()

	p := &models.Project{WorkspaceID: ws.ID, Name: name}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create project %s: %v", name, err)
	}
	member := &models.ProjectMember{ProjectID: p.ID, UserID: owner.ID, Role: models.RoleOwner}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("create project owner membership: %v", err)
	}
	return p
}

func addWorkspaceMember(t *testing.T, db *gorm.DB, ws *models.Workspace, user *models.User, role models.Role) {
	t.Helper()

	m := &models.WorkspaceMember{WorkspaceID: ws.ID, UserID: user.ID, Role: role}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("add workspace member: %v", err)
	}
}

func addProjectMember(t *testing.T, db *gorm.DB, p *models.Project, user *models.User, role models.Role) {
	t.Helper()

	m := &models.ProjectMember{ProjectID: p.ID, UserID: user.ID, Role: role}
	if err := db.Create(m).Error; err != nil {
		t.Fatalf("add project member: %v", err)
	}
}

func tableCount(db *gorm.DB, model interface{}) int64 {
	var count int64
	db.Model(model).Count(&count)
	return count
}

func taskEvents(t *testing.T, db *gorm.DB, taskID uuid.UUID) []models.TaskEvent {
	t.Helper()

	var events []models.TaskEvent
	if err := db.Where("task_id = ?", taskID).Order("created_at").Find(&events).Error; err != nil {
		t.Fatalf("list task events: %v", err)
	}
	return events
}
