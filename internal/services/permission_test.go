package services

import (
	"testing"

	"github.com/forps/taskboard/internal/models"
	"github.com/google/uuid"
)

func TestCanEdit(t *testing.T) {
	cases := []struct {
		role models.Role
		want bool
	}{
		{models.RoleViewer, false},
		{models.RoleEditor, true},
		{models.RoleOwner, true},
		{"", false},
	}
	for _, tc := range cases {
		if got := CanEdit(tc.role); got != tc.want {
			t.Errorf("CanEdit(%q) = %v, want %v", tc.role, got, tc.want)
		}
	}
}

func TestCanManage(t *testing.T) {
	cases := []struct {
		role models.Role
		want bool
	}{
		{models.RoleViewer, false},
		{models.RoleEditor, false},
		{models.RoleOwner, true},
		{"", false},
	}
	for _, tc := range cases {
		if got := CanManage(tc.role); got != tc.want {
			t.Errorf("CanManage(%q) = %v, want %v", tc.role, got, tc.want)
		}
	}
}

func TestEffectiveRole_WorkspaceFallback(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	editor := createTestUser(t, db, "Editor")
	ws := createTestWorkspace(t, db, owner, "acme")
	addWorkspaceMember(t, db, ws, editor, models.RoleEditor)
	p := createTestProject(t, db, ws, owner, "site")

	svc := NewPermissionService(db)

	role, err := svc.EffectiveRole(p.ID, editor.ID)
	if err != nil {
		t.Fatalf("EffectiveRole: %v", err)
	}
	if role != models.RoleEditor {
		t.Errorf("workspace member without project membership: role = %q, want editor", role)
	}
}

func TestEffectiveRole_ProjectRoleOverridesWorkspace(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	user := createTestUser(t, db, "Deb")
	ws := createTestWorkspace(t, db, owner, "acme")
	p := createTestProject(t, db, ws, owner, "site")

	// Workspace grants owner, project grants only viewer. The project
	// membership governs, even though it is the lower role.
	addWorkspaceMember(t, db, ws, user, models.RoleOwner)
	addProjectMember(t, db, p, user, models.RoleViewer)

	svc := NewPermissionService(db)
	role, err := svc.EffectiveRole(p.ID, user.ID)
	if err != nil {
		t.Fatalf("EffectiveRole: %v", err)
	}
	if role != models.RoleViewer {
		t.Errorf("project role should win: role = %q, want viewer", role)
	}
}

func TestEffectiveRole_NoMembershipAnywhere(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	outsider := createTestUser(t, db, "Outsider")
	ws := createTestWorkspace(t, db, owner, "acme")
	p := createTestProject(t, db, ws, owner, "site")

	svc := NewPermissionService(db)
	role, err := svc.EffectiveRole(p.ID, outsider.ID)
	if err != nil {
		t.Fatalf("EffectiveRole: %v", err)
	}
	if role != "" {
		t.Errorf("outsider should resolve to absent role, got %q", role)
	}
}

func TestEffectiveRole_UnknownProject(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Alice")

	svc := NewPermissionService(db)
	role, err := svc.EffectiveRole(uuid.New(), user.ID)
	if err != nil {
		t.Fatalf("EffectiveRole on unknown project: %v", err)
	}
	if role != "" {
		t.Errorf("unknown project should resolve to absent role, got %q", role)
	}
}

func TestEffectiveRole_ReadsFresh(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	user := createTestUser(t, db, "Bob")
	ws := createTestWorkspace(t, db, owner, "acme")
	p := createTestProject(t, db, ws, owner, "site")
	addWorkspaceMember(t, db, ws, user, models.RoleEditor)

	svc := NewPermissionService(db)
	if role, _ := svc.EffectiveRole(p.ID, user.ID); role != models.RoleEditor {
		t.Fatalf("before revocation: role = %q, want editor", role)
	}

	// Revoke and resolve again: no caching, the change is visible at once.
	db.Where("workspace_id = ? AND user_id = ?", ws.ID, user.ID).
		Delete(&models.WorkspaceMember{})

	if role, _ := svc.EffectiveRole(p.ID, user.ID); role != "" {
		t.Errorf("after revocation: role = %q, want absent", role)
	}
}

func TestRoleRank(t *testing.T) {
	if models.RoleViewer.Rank() >= models.RoleEditor.Rank() {
		t.Error("viewer should rank below editor")
	}
	if models.RoleEditor.Rank() >= models.RoleOwner.Rank() {
		t.Error("editor should rank below owner")
	}
}
