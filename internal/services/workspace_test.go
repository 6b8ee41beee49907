package services

import (
	"testing"

	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/pkg/response"
	"github.com/google/uuid"
)

func TestWorkspaceCreate_OwnerMembershipInSameTransaction(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Alice")
	svc := NewWorkspaceService(db)

	ws, err := svc.Create(user.ID, &CreateWorkspaceRequest{Name: "Acme", Slug: "Acme"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ws.Slug != "acme" {
		t.Errorf("slug should be lowercased, got %q", ws.Slug)
	}
	if ws.MyRole != models.RoleOwner {
		t.Errorf("creator role = %q, want owner", ws.MyRole)
	}
	if ws.MemberCount != 1 {
		t.Errorf("member count = %d, want 1", ws.MemberCount)
	}

	var member models.WorkspaceMember
	if err := db.Where("workspace_id = ? AND user_id = ?", ws.ID, user.ID).First(&member).Error; err != nil {
		t.Fatalf("owner membership row missing: %v", err)
	}
	if member.Role != models.RoleOwner {
		t.Errorf("membership role = %q, want owner", member.Role)
	}
}

func TestWorkspaceCreate_DuplicateSlugConflict(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Alice")
	svc := NewWorkspaceService(db)

	if _, err := svc.Create(user.ID, &CreateWorkspaceRequest{Name: "A", Slug: "acme"}); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := svc.Create(user.ID, &CreateWorkspaceRequest{Name: "B", Slug: "ACME"})
	if !response.IsKind(err, 409) {
		t.Errorf("duplicate slug should conflict, got %v", err)
	}
}

func TestWorkspaceInviteMember_UpsertNoDuplicates(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	guest := createTestUser(t, db, "Guest")
	ws := createTestWorkspace(t, db, owner, "acme")
	svc := NewWorkspaceService(db)

	m, err := svc.InviteMember(ws.ID, owner.ID, &InviteMemberRequest{Email: guest.Email, Role: models.RoleViewer})
	if err != nil {
		t.Fatalf("first invite: %v", err)
	}
	if m.Role != models.RoleViewer {
		t.Errorf("role = %q, want viewer", m.Role)
	}

	// Second invite for the same pair overwrites the role in place.
	m, err = svc.InviteMember(ws.ID, owner.ID, &InviteMemberRequest{Email: guest.Email, Role: models.RoleEditor})
	if err != nil {
		t.Fatalf("second invite: %v", err)
	}
	if m.Role != models.RoleEditor {
		t.Errorf("role after re-invite = %q, want editor", m.Role)
	}

	var count int64
	db.Model(&models.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", ws.ID, guest.ID).Count(&count)
	if count != 1 {
		t.Errorf("membership rows = %d, want 1", count)
	}
}

func TestWorkspaceInviteMember_UnknownEmail(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	ws := createTestWorkspace(t, db, owner, "acme")
	svc := NewWorkspaceService(db)

	_, err := svc.InviteMember(ws.ID, owner.ID, &InviteMemberRequest{Email: "nobody@example.com", Role: models.RoleViewer})
	if !response.IsKind(err, 404) {
		t.Errorf("unknown email should be not found, got %v", err)
	}
}

func TestWorkspaceInviteMember_RequiresOwner(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	editor := createTestUser(t, db, "Editor")
	guest := createTestUser(t, db, "Guest")
	ws := createTestWorkspace(t, db, owner, "acme")
	addWorkspaceMember(t, db, ws, editor, models.RoleEditor)
	svc := NewWorkspaceService(db)

	_, err := svc.InviteMember(ws.ID, editor.ID, &InviteMemberRequest{Email: guest.Email, Role: models.RoleViewer})
	if !response.IsKind(err, 403) {
		t.Errorf("editor inviting should be denied, got %v", err)
	}
}

func TestWorkspaceRemoveMember_SelfRemovalRejected(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	ws := createTestWorkspace(t, db, owner, "acme")
	svc := NewWorkspaceService(db)

	err := svc.RemoveMember(ws.ID, owner.ID, owner.ID)
	if !response.IsKind(err, 400) {
		t.Errorf("self-removal should be rejected as invalid state, got %v", err)
	}

	var count int64
	db.Model(&models.WorkspaceMember{}).Where("workspace_id = ?", ws.ID).Count(&count)
	if count != 1 {
		t.Errorf("membership should survive rejected self-removal, rows = %d", count)
	}
}

func TestWorkspaceRemoveMember_UnknownTarget(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	ws := createTestWorkspace(t, db, owner, "acme")
	svc := NewWorkspaceService(db)

	err := svc.RemoveMember(ws.ID, owner.ID, uuid.New())
	if !response.IsKind(err, 404) {
		t.Errorf("removing a non-member should be not found, got %v", err)
	}
}

func TestWorkspaceListForUser_ComputedFields(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	viewer := createTestUser(t, db, "Viewer")
	ws := createTestWorkspace(t, db, owner, "acme")
	addWorkspaceMember(t, db, ws, viewer, models.RoleViewer)
	svc := NewWorkspaceService(db)

	list, err := svc.ListForUser(viewer.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("workspaces = %d, want 1", len(list))
	}
	if list[0].MyRole != models.RoleViewer {
		t.Errorf("my_role = %q, want viewer", list[0].MyRole)
	}
	if list[0].MemberCount != 2 {
		t.Errorf("member_count = %d, want 2", list[0].MemberCount)
	}
}

func TestWorkspaceWebhookURL_HiddenFromNonOwners(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	viewer := createTestUser(t, db, "Viewer")
	ws := createTestWorkspace(t, db, owner, "acme")
	addWorkspaceMember(t, db, ws, viewer, models.RoleViewer)

	url := "https://hooks.example.com/abc"
	db.Model(&models.Workspace{}).Where("id = ?", ws.ID).Update("webhook_url", url)

	svc := NewWorkspaceService(db)

	asOwner, err := svc.Get(ws.ID, owner.ID)
	if err != nil {
		t.Fatalf("Get as owner: %v", err)
	}
	if asOwner.WebhookURL == nil || *asOwner.WebhookURL != url {
		t.Error("owner should see the webhook URL")
	}

	asViewer, err := svc.Get(ws.ID, viewer.ID)
	if err != nil {
		t.Fatalf("Get as viewer: %v", err)
	}
	if asViewer.WebhookURL != nil {
		t.Error("viewer should not see the webhook URL")
	}
}

func TestWorkspaceDelete_RemovesWholeTree(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	ws := createTestWorkspace(t, db, owner, "acme")
	p := createTestProject(t, db, ws, owner, "site")
	task := &models.Task{ProjectID: p.ID, Title: "t"}
	if err := db.Create(task).Error; err != nil {
		t.Fatalf("create task: %v", err)
	}

	svc := NewWorkspaceService(db)
	if err := svc.Delete(ws.ID, owner.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for name, count := range map[string]int64{
		"workspaces":        tableCount(db, &models.Workspace{}),
		"workspace_members": tableCount(db, &models.WorkspaceMember{}),
		"projects":          tableCount(db, &models.Project{}),
		"project_members":   tableCount(db, &models.ProjectMember{}),
		"tasks":             tableCount(db, &models.Task{}),
	} {
		if count != 0 {
			t.Errorf("%s rows after workspace delete = %d, want 0", name, count)
		}
	}
}

func TestWorkspaceDelete_RequiresOwner(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	editor := createTestUser(t, db, "Editor")
	ws := createTestWorkspace(t, db, owner, "acme")
	addWorkspaceMember(t, db, ws, editor, models.RoleEditor)

	svc := NewWorkspaceService(db)
	if err := svc.Delete(ws.ID, editor.ID); !response.IsKind(err, 403) {
		t.Errorf("editor deleting workspace should be denied, got %v", err)
	}
}
