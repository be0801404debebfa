package authz

import "sort"

// CatalogVersion identifies the permission catalog as a whole. Individual
// entries are immutable once defined; additions bump the version.
const CatalogVersion = "2026.1"

// Atomic capability identifiers. The catalog is closed: roles may only be
// granted permissions listed here.
const (
	PermManageUsers = "manage_users"
	PermViewUsers   = "view_users"

	PermManageRoles     = "manage_roles"
	PermViewRoles       = "view_roles"
	PermViewPermissions = "view_permissions"

	PermManageGrades  = "manage_grades"
	PermViewGrades    = "view_grades"
	PermViewOwnGrades = "view_own_grades"

	PermManageAttendance  = "manage_attendance"
	PermViewAttendance    = "view_attendance"
	PermViewOwnAttendance = "view_own_attendance"

	PermManageFees = "manage_fees"
	PermViewFees   = "view_fees"
	PermViewOwnFees = "view_own_fees"

	PermManageExams = "manage_exams"
	PermViewExams   = "view_exams"

	PermManageTimetable = "manage_timetable"
	PermViewTimetable   = "view_timetable"

	PermSendMessages = "send_messages"
	PermViewMessages = "view_messages"

	PermGenerateReports = "generate_reports"
)

// catalogCategories groups the catalog for the management surface.
var catalogCategories = map[string][]string{
	"users":      {PermManageUsers, PermViewUsers},
	"roles":      {PermManageRoles, PermViewRoles, PermViewPermissions},
	"grades":     {PermManageGrades, PermViewGrades, PermViewOwnGrades},
	"attendance": {PermManageAttendance, PermViewAttendance, PermViewOwnAttendance},
	"fees":       {PermManageFees, PermViewFees, PermViewOwnFees},
	"exams":      {PermManageExams, PermViewExams},
	"timetable":  {PermManageTimetable, PermViewTimetable},
	"messaging":  {PermSendMessages, PermViewMessages},
	"reports":    {PermGenerateReports},
}

var catalogSet = buildCatalogSet()

func buildCatalogSet() map[string]struct{} {
	set := make(map[string]struct{})
	for _, perms := range catalogCategories {
		for _, p := range perms {
			set[p] = struct{}{}
		}
	}
	return set
}

// KnownPermission reports whether perm belongs to the catalog.
func KnownPermission(perm string) bool {
	_, ok := catalogSet[perm]
	return ok
}

// Catalog returns every permission in the catalog, sorted.
func Catalog() []string {
	out := make([]string, 0, len(catalogSet))
	for p := range catalogSet {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// CatalogByCategory returns the catalog grouped by category, with
// permissions sorted inside each group.
func CatalogByCategory() map[string][]string {
	out := make(map[string][]string, len(catalogCategories))
	for cat, perms := range catalogCategories {
		group := make([]string, len(perms))
		copy(group, perms)
		sort.Strings(group)
		out[cat] = group
	}
	return out
}

// UnknownPermissions returns the subset of perms outside the catalog.
func UnknownPermissions(perms []string) []string {
	var unknown []string
	for _, p := range perms {
		if !KnownPermission(p) {
			unknown = append(unknown, p)
		}
	}
	return unknown
}
