package services

import (
	"testing"
	"time"

	"github.com/forps/taskboard/internal/models"
	"github.com/forps/taskboard/pkg/response"
)

func TestShareLinkCreate_OwnerOnlyAndExpiry(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	editor := createTestUser(t, db, "Editor")
	ws := createTestWorkspace(t, db, owner, "acme")
	addWorkspaceMember(t, db, ws, editor, models.RoleEditor)
	p := createTestProject(t, db, ws, owner, "site")
	svc := NewShareLinkService(db)

	if _, err := svc.Create(p.ID, editor.ID, &CreateShareLinkRequest{}); !response.IsKind(err, 403) {
		t.Errorf("editor creating share link should be denied, got %v", err)
	}

	link, err := svc.Create(p.ID, owner.ID, &CreateShareLinkRequest{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if link.Token == "" {
		t.Error("token should be set")
	}
	if link.Scope != models.ScopeProjectRead {
		t.Errorf("default scope = %q, want project_read", link.Scope)
	}
	if !link.IsActive {
		t.Error("new links start active")
	}

	ttl := time.Until(link.ExpiresAt)
	if ttl < 29*24*time.Hour || ttl > 31*24*time.Hour {
		t.Errorf("expiry should be ~30 days out, got %v", ttl)
	}
}

func TestShareLinkTokensAreUnique(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	ws := createTestWorkspace(t, db, owner, "acme")
	p := createTestProject(t, db, ws, owner, "site")
	svc := NewShareLinkService(db)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		link, err := svc.Create(p.ID, owner.ID, &CreateShareLinkRequest{})
		if err != nil {
			t.Fatalf("Create #%d: %v", i, err)
		}
		if seen[link.Token] {
			t.Fatalf("duplicate token on attempt %d", i)
		}
		seen[link.Token] = true
	}
}

func TestShareLinkResolve(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	ws := createTestWorkspace(t, db, owner, "acme")
	p := createTestProject(t, db, ws, owner, "site")
	taskSvc := NewTaskService(db)
	taskSvc.Create(p.ID, owner.ID, &CreateTaskRequest{Title: "visible"})

	svc := NewShareLinkService(db)
	link, _ := svc.Create(p.ID, owner.ID, &CreateShareLinkRequest{})

	shared, err := svc.Resolve(link.Token)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if shared.ProjectName != "site" {
		t.Errorf("project name = %q", shared.ProjectName)
	}
	if len(shared.Tasks) != 1 || shared.Tasks[0].Title != "visible" {
		t.Errorf("shared tasks = %d", len(shared.Tasks))
	}
}

func TestShareLinkResolve_RevokedAndExpired(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	ws := createTestWorkspace(t, db, owner, "acme")
	p := createTestProject(t, db, ws, owner, "site")
	svc := NewShareLinkService(db)

	revoked, _ := svc.Create(p.ID, owner.ID, &CreateShareLinkRequest{})
	if err := svc.Revoke(revoked.ID, owner.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := svc.Resolve(revoked.Token); !response.IsKind(err, 404) {
		t.Errorf("revoked token should not resolve, got %v", err)
	}

	expired, _ := svc.Create(p.ID, owner.ID, &CreateShareLinkRequest{})
	db.Model(&models.ShareLink{}).Where("id = ?", expired.ID).
		Update("expires_at", time.Now().UTC().Add(-time.Hour))
	if _, err := svc.Resolve(expired.Token); !response.IsKind(err, 404) {
		t.Errorf("expired token should not resolve, got %v", err)
	}

	if _, err := svc.Resolve("no-such-token"); !response.IsKind(err, 404) {
		t.Errorf("unknown token should not resolve, got %v", err)
	}
}

func TestShareLinkToggleAndDelete(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	editor := createTestUser(t, db, "Editor")
	ws := createTestWorkspace(t, db, owner, "acme")
	addWorkspaceMember(t, db, ws, editor, models.RoleEditor)
	p := createTestProject(t, db, ws, owner, "site")
	svc := NewShareLinkService(db)

	link, _ := svc.Create(p.ID, owner.ID, &CreateShareLinkRequest{})

	if _, err := svc.SetActive(link.ID, editor.ID, false); !response.IsKind(err, 403) {
		t.Errorf("editor toggling share link should be denied, got %v", err)
	}

	if _, err := svc.SetActive(link.ID, owner.ID, false); err != nil {
		t.Fatalf("SetActive(false): %v", err)
	}
	if _, err := svc.Resolve(link.Token); !response.IsKind(err, 404) {
		t.Errorf("deactivated token should not resolve, got %v", err)
	}

	// re-enabling brings the token back
	if _, err := svc.SetActive(link.ID, owner.ID, true); err != nil {
		t.Fatalf("SetActive(true): %v", err)
	}
	if _, err := svc.Resolve(link.Token); err != nil {
		t.Errorf("re-enabled token should resolve, got %v", err)
	}

	if err := svc.Delete(link.ID, editor.ID); !response.IsKind(err, 403) {
		t.Errorf("editor deleting share link should be denied, got %v", err)
	}
	if err := svc.Delete(link.ID, owner.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(link.ID, owner.ID); !response.IsKind(err, 404) {
		t.Errorf("deleting a deleted link should be 404, got %v", err)
	}
	if _, err := svc.Resolve(link.Token); !response.IsKind(err, 404) {
		t.Errorf("deleted token should not resolve, got %v", err)
	}
}

func TestShareLinkList_OwnerOnly(t *testing.T) {
	db := setupTestDB(t)
	owner := createTestUser(t, db, "Owner")
	viewer := createTestUser(t, db, "Viewer")
	ws := createTestWorkspace(t, db, owner, "acme")
	addWorkspaceMember(t, db, ws, viewer, models.RoleViewer)
	p := createTestProject(t, db, ws, owner, "site")
	svc := NewShareLinkService(db)

	svc.Create(p.ID, owner.ID, &CreateShareLinkRequest{})

	if _, err := svc.List(p.ID, viewer.ID); !response.IsKind(err, 403) {
		t.Errorf("viewer listing share links should be denied, got %v", err)
	}

	links, err := svc.List(p.ID, owner.ID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(links) != 1 {
		t.Errorf("links = %d, want 1", len(links))
	}
}
