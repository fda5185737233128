package validation

import "strings"

// Operation names gated by the capability table.
type Operation string

const (
	OpCreate           Operation = "create"
	OpUpdate           Operation = "update"
	OpMajorEdit        Operation = "major_edit"
	OpPublish          Operation = "publish"
	OpArchive          Operation = "archive"
	OpDeactivate       Operation = "deactivate"
	OpDelete           Operation = "delete"
	OpRollback         Operation = "rollback"
	OpVisibilityChange Operation = "visibility_change"
	OpMapOutcome       Operation = "map_outcome"
	OpAttachRubric     Operation = "attach_rubric"
	OpAssignEvaluator  Operation = "assign_evaluator"
	OpDecideExtension  Operation = "decide_extension"
)

// Actor roles known to the capability table.
const (
	RoleAdmin           = "admin"
	RoleProgramDirector = "program_director"
	RoleSubjectInCharge = "subject_in_charge"
	RoleFaculty         = "faculty"
	RoleEvaluator       = "evaluator"
	RoleStudent         = "student"
)

// capabilities maps each operation to the roles allowed to perform it.
// Consulted once per entry point instead of ad hoc role lists per handler.
var capabilities = map[Operation]map[string]struct{}{
	OpCreate:           roleSet(RoleAdmin, RoleProgramDirector, RoleSubjectInCharge, RoleFaculty),
	OpUpdate:           roleSet(RoleAdmin, RoleProgramDirector, RoleSubjectInCharge, RoleFaculty),
	OpMajorEdit:        roleSet(RoleAdmin, RoleProgramDirector, RoleSubjectInCharge),
	OpPublish:          roleSet(RoleAdmin, RoleProgramDirector, RoleSubjectInCharge),
	OpArchive:          roleSet(RoleAdmin, RoleProgramDirector, RoleSubjectInCharge),
	OpDeactivate:       roleSet(RoleAdmin, RoleProgramDirector),
	OpDelete:           roleSet(RoleAdmin, RoleProgramDirector),
	OpRollback:         roleSet(RoleAdmin, RoleProgramDirector),
	OpVisibilityChange: roleSet(RoleAdmin, RoleProgramDirector, RoleSubjectInCharge, RoleFaculty),
	OpMapOutcome:       roleSet(RoleAdmin, RoleProgramDirector, RoleSubjectInCharge, RoleFaculty),
	OpAttachRubric:     roleSet(RoleAdmin, RoleProgramDirector, RoleSubjectInCharge, RoleFaculty),
	OpAssignEvaluator:  roleSet(RoleAdmin, RoleProgramDirector, RoleSubjectInCharge),
	OpDecideExtension:  roleSet(RoleAdmin, RoleProgramDirector, RoleSubjectInCharge),
}

func roleSet(roles ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return set
}

// Can reports whether the given role may perform the operation.
func Can(op Operation, role string) bool {
	allowed, ok := capabilities[op]
	if !ok {
		return false
	}
	_, ok = allowed[strings.ToLower(strings.TrimSpace(role))]
	return ok
}

// Authorize returns a PermissionDenied violation when the role lacks the
// operation, or nil when allowed.
func Authorize(op Operation, role string) Violations {
	if Can(op, role) {
		return nil
	}
	return Violations{{
		Code:    CodePermissionDenied,
		Field:   "role",
		Message: "role " + role + " lacks authority for operation " + string(op),
	}}
}
