package rbac

import "testing"

func TestAllowed(t *testing.T) {
	cases := []struct {
		name    string
		isAdmin bool
		grants  []Permission
		perm    Permission
		allow   bool
	}{
		{name: "admin bypasses grants", isAdmin: true, perm: PermDeleteUsers, allow: true},
		{name: "granted upload", grants: []Permission{PermUploadLitigation}, perm: PermUploadLitigation, allow: true},
		{name: "missing grant", grants: []Permission{PermAddDispute}, perm: PermDeleteDispute, allow: false},
		{name: "no grants", perm: PermExportReports, allow: false},
		{name: "multiple grants", grants: []Permission{PermAddDispute, PermExportReports}, perm: PermExportReports, allow: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allowed(tc.isAdmin, tc.grants, tc.perm); got != tc.allow {
				t.Fatalf("Allowed(%v, %v, %q) = %v, want %v", tc.isAdmin, tc.grants, tc.perm, got, tc.allow)
			}
		})
	}
}

func TestValid(t *testing.T) {
	for _, p := range All() {
		if !Valid(p) {
			t.Fatalf("Valid(%q) = false, want true", p)
		}
	}
	if Valid("drop_tables") {
		t.Fatal("Valid accepted an unknown permission")
	}
}
