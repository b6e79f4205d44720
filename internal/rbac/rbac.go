// Package rbac defines the fixed permission keys managed from the admin panel.
package rbac

type Permission string

const (
	PermAddDispute       Permission = "add_dispute"
	PermDeleteDispute    Permission = "delete_dispute"
	PermUploadLitigation Permission = "upload_excel_litigation"
	PermAddUsers         Permission = "add_users"
	PermDeleteUsers      Permission = "delete_users"
	PermExportReports    Permission = "export_reports"
)

var known = map[Permission]struct{}{
	PermAddDispute:       {},
	PermDeleteDispute:    {},
	PermUploadLitigation: {},
	PermAddUsers:         {},
	PermDeleteUsers:      {},
	PermExportReports:    {},
}

// All lists every permission key in the order the admin matrix shows them.
func All() []Permission {
	return []Permission{
		PermAddDispute,
		PermDeleteDispute,
		PermUploadLitigation,
		PermAddUsers,
		PermDeleteUsers,
		PermExportReports,
	}
}

// Valid reports whether p is one of the managed permission keys.
func Valid(p Permission) bool {
	_, ok := known[p]
	return ok
}

// Allowed reports whether a user may perform the action guarded by p.
// Administrators hold every permission implicitly.
func Allowed(isAdmin bool, grants []Permission, p Permission) bool {
	if isAdmin {
		return true
	}
	for _, grant := range grants {
		if grant == p {
			return true
		}
	}
	return false
}
