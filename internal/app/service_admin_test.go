package app

import (
	"context"
	"errors"
	"testing"

	"casedesk/api/internal/rbac"
	"casedesk/api/internal/store"
)

func TestListUsersIsAdminOnly(t *testing.T) {
	fs := newFakeStore()
	admin := fs.addUser(store.User{Email: "admin@example.com", FullName: "Admin", IsAdmin: true, IsEnabled: true})
	member := fs.addUser(store.User{Email: "member@example.com", FullName: "Member", IsEnabled: true})
	svc := newTestService(t, fs)

	_, err := svc.ListUsers(context.Background(), sessionFor(member))
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}

	users, err := svc.ListUsers(context.Background(), sessionFor(admin))
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	for _, u := range users {
		if u.Permissions == nil {
			t.Fatalf("permissions for %s should never be nil", u.Email)
		}
	}
}

func TestSetUserAccess(t *testing.T) {
	fs := newFakeStore()
	admin := fs.addUser(store.User{Email: "admin@example.com", FullName: "Admin", IsAdmin: true, IsEnabled: true})
	member := fs.addUser(store.User{Email: "member@example.com", FullName: "Member", IsEnabled: true})
	svc := newTestService(t, fs)
	ctx := context.Background()

	if err := svc.SetUserAccess(ctx, sessionFor(admin), member.ID, false); err != nil {
		t.Fatalf("SetUserAccess() error = %v", err)
	}
	updated, _ := fs.GetUserByID(ctx, member.ID)
	if updated.IsEnabled {
		t.Fatal("expected account to be disabled")
	}

	// Non-admins need the matching grant.
	err := svc.SetUserAccess(ctx, sessionFor(member), admin.ID, false)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}

	err = svc.SetUserAccess(ctx, sessionFor(admin), admin.ID, false)
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR for self-change, got %v", err)
	}

	err = svc.SetUserAccess(ctx, sessionFor(admin), "usr-missing", true)
	if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestGrantAndRevokePermissions(t *testing.T) {
	fs := newFakeStore()
	admin := fs.addUser(store.User{Email: "admin@example.com", FullName: "Admin", IsAdmin: true, IsEnabled: true})
	member := fs.addUser(store.User{Email: "member@example.com", FullName: "Member", IsEnabled: true})
	svc := newTestService(t, fs)
	ctx := context.Background()

	if err := svc.GrantUserPermission(ctx, sessionFor(admin), member.ID, rbac.PermExportReports); err != nil {
		t.Fatalf("GrantUserPermission() error = %v", err)
	}
	perms, _ := fs.ListPermissions(ctx, member.ID)
	if len(perms) != 1 || perms[0] != string(rbac.PermExportReports) {
		t.Fatalf("perms = %v", perms)
	}

	err := svc.GrantUserPermission(ctx, sessionFor(admin), member.ID, rbac.Permission("launch_rockets"))
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR for unknown permission, got %v", err)
	}

	err = svc.GrantUserPermission(ctx, sessionFor(member), member.ID, rbac.PermAddDispute)
	if !errors.As(err, &domainErr) || domainErr.Code != "FORBIDDEN" {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}

	if err := svc.RevokeUserPermission(ctx, sessionFor(admin), member.ID, rbac.PermExportReports); err != nil {
		t.Fatalf("RevokeUserPermission() error = %v", err)
	}
	perms, _ = fs.ListPermissions(ctx, member.ID)
	if len(perms) != 0 {
		t.Fatalf("perms after revoke = %v", perms)
	}
}
