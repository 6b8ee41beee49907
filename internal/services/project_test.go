package services

import (
	"testing"

	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/pkg/response"
)

func TestProjectCreate_OwnerMembershipInSameTransaction(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	ws := createTestWorkspace(t, db, owner, "acme")
	svc := NewProjectService(db)

	p, err := svc.Create(ws.ID, owner.ID, &CreateProjectRequest{Name: "site"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.MyRole != models.RoleOwner {
		t.Errorf("creator role = %q, want owner", p.MyRole)
	}

	var member models.ProjectMember
	if err := db.Where("project_id = ? AND user_id = ?", p.ID, owner.ID).First(&member).Error; err != nil {
		t.Fatalf("owner membership row missing: %v", err)
	}
}

func TestProjectCreate_ViewerDenied(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	viewer := createTestUser(t, db, "Viewer")
	ws := createTestWorkspace(t, db, owner, "acme")
	addWorkspaceMember(t, db, ws, viewer, models.RoleViewer)
	svc := NewProjectService(db)

	_, err := svc.Create(ws.ID, viewer.ID, &CreateProjectRequest{Name: "nope"})
	if !response.IsKind(err, 403) {
		t.Errorf("viewer creating project should be denied, got %v", err)
	}
}

func TestProjectAddMember_Upsert(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	guest := createTestUser(t, db, "Guest")
	ws := createTestWorkspace(t, db, owner, "acme")
	p := createTestProject(t, db, ws, owner, "site")
	svc := NewProjectService(db)

	if _, err := svc.AddMember(p.ID, owner.ID, &InviteMemberRequest{Email: guest.Email, Role: models.RoleViewer}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	m, err := svc.AddMember(p.ID, owner.ID, &InviteMemberRequest{Email: guest.Email, Role: models.RoleEditor})
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if m.Role != models.RoleEditor {
		t.Errorf("role after re-add = %q, want editor", m.Role)
	}

	var count int64
	db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", p.ID, guest.ID).Count(&count)
	if count != 1 {
		t.Errorf("membership rows = %d, want 1", count)
	}
}

func TestProjectRemoveMember_SelfRemovalRejected(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	ws := createTestWorkspace(t, db, owner, "acme")
	p := createTestProject(t, db, ws, owner, "site")
	svc := NewProjectService(db)

	if err := svc.RemoveMember(p.ID, owner.ID, owner.ID); !response.IsKind(err, 400) {
		t.Errorf("self-removal should be rejected, got %v", err)
	}
}

func TestProjectDelete_RemovesChildrenIncludingEvents(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	ws := createTestWorkspace(t, db, owner, "acme")
	p := createTestProject(t, db, ws, owner, "site")

	taskSvc := NewTaskService(db)
	task, _ := taskSvc.Create(p.ID, owner.ID, &CreateTaskRequest{Title: "x"})
	NewCommentService(db).Create(task.ID, owner.ID, &CreateCommentRequest{Content: "note"})
	NewShareLinkService(db).Create(p.ID, owner.ID, &CreateShareLinkRequest{})

	svc := NewProjectService(db)
	if err := svc.Delete(p.ID, owner.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for name, count := range map[string]int64{
		"projects":        tableCount(db, &models.Project{}),
		"project_members": tableCount(db, &models.ProjectMember{}),
		"tasks":           tableCount(db, &models.Task{}),
		"comments":        tableCount(db, &models.Comment{}),
		"task_events":     tableCount(db, &models.TaskEvent{}),
		"share_links":     tableCount(db, &models.ShareLink{}),
	} {
		if count != 0 {
			t.Errorf("%s rows after project delete = %d, want 0", name, count)
		}
	}

	// The owning workspace survives.
	if tableCount(db, &models.Workspace{}) != 1 {
		t.Error("workspace should survive project deletion")
	}
}

func TestProjectListForWorkspace_TaskCountAndRole(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	editor := createTestUser(t, db, "Editor")
	ws := createTestWorkspace(t, db, owner, "acme")
	addWorkspaceMember(t, db, ws, editor, models.RoleEditor)
	p := createTestProject(t, db, ws, owner, "site")

	taskSvc := NewTaskService(db)
	taskSvc.Create(p.ID, owner.ID, &CreateTaskRequest{Title: "a"})
	taskSvc.Create(p.ID, owner.ID, &CreateTaskRequest{Title: "b"})

	svc := NewProjectService(db)
	list, err := svc.ListForWorkspace(ws.ID, editor.ID)
	if err != nil {
		t.Fatalf("ListForWorkspace: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("projects = %d, want 1", len(list))
	}
	if list[0].TaskCount != 2 {
		t.Errorf("task_count = %d, want 2", list[0].TaskCount)
	}
	if list[0].MyRole != models.RoleEditor {
		t.Errorf("my_role = %q, want editor (workspace fallback)", list[0].MyRole)
	}
	if list[0].WebhookURL != nil {
		t.Error("webhook URL should be hidden from non-owners")
	}
}
