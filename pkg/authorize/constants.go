package authorize

import (
	"fmt"
	"regexp"
)

type Action string
type Resource string
type Role string
type Domain string

// ----------------------------
// Actions
// ----------------------------

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"

	// ActionManage covers every other action on the resource.
	ActionManage Action = "manage"
)

const (
	WildcardAction Action = "*"
)

var KnownActions = map[Action]struct{}{
	ActionCreate: {}, ActionRead: {}, ActionUpdate: {}, ActionDelete: {}, ActionList: {},
	ActionManage: {},
}

// ----------------------------
// Resources
// ----------------------------

const (
	WildcardResource Resource = "*"

	ResourceUser Resource = "user"

	// Scheduling
	ResourceAvailability Resource = "availability" // public calendar of a professional
	ResourceSchedule     Resource = "schedule"     // a professional's own slot grid
	ResourceSession      Resource = "session"

	ResourceNotification  Resource = "notification"
	ResourcePayment       Resource = "payment"
	ResourceQuestionnaire Resource = "questionnaire"

	ResourceRBAC Resource = "rbac"
)

var KnownResources = map[Resource]struct{}{
	ResourceUser:         {},
	ResourceAvailability: {}, ResourceSchedule: {}, ResourceSession: {},
	ResourceNotification: {}, ResourcePayment: {}, ResourceQuestionnaire: {},
	ResourceRBAC: {},
}

// ----------------------------
// Roles
// ----------------------------
//
// These are the policy subjects users are grouped into, one per platform role.

const (
	WildcardRole Role = "*"

	RoleClient       Role = "role:client"
	RoleCounselor    Role = "role:counselor"
	RolePsychiatrist Role = "role:psychiatrist"
	RoleAdmin        Role = "role:admin"
	RoleManagement   Role = "role:management"
)

var KnownRoles = map[Role]struct{}{
	RoleClient:       {},
	RoleCounselor:    {},
	RolePsychiatrist: {},
	RoleAdmin:        {},
	RoleManagement:   {},
}

// Persian display names
var RoleDisplayNamesFA = map[Role]string{
	RoleClient:       "مراجع",
	RoleCounselor:    "مشاور",
	RolePsychiatrist: "روانپزشک",
	RoleAdmin:        "ادمین",
	RoleManagement:   "مدیریت",
}

// PlatformRole maps a stored user role ("client", "counselor", ...) to its
// RBAC role. ok is false for unknown values.
func PlatformRole(userRole string) (Role, bool) {
	r := Role("role:" + userRole)
	_, ok := KnownRoles[r]
	return r, ok
}

// ----------------------------
// Domains
// ----------------------------

const (
	DomainSys Domain = "sys"
)

const (
	DomainPrefixUser Domain = "user:"
)

const (
	WildcardDomain Domain = "*"
)

var (
	reUUID = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)
)

func UserDomain(userID string) Domain {
	return Domain(fmt.Sprintf("%s%s", DomainPrefixUser, userID))
}

// IsValidDomain checks whether d is a recognised domain string.
func IsValidDomain(d Domain) bool {
	if d == DomainSys || d == WildcardDomain {
		return true
	}

	s := string(d)
	if len(s) > len(DomainPrefixUser) && s[:len(DomainPrefixUser)] == string(DomainPrefixUser) {
		return reUUID.MatchString(s[len(DomainPrefixUser):])
	}
	return false
}

// ----------------------------
// Casbin tuple helpers
// ----------------------------

type PolicyEffect string

const (
	EffectAllow PolicyEffect = "allow"
	EffectDeny  PolicyEffect = "deny"
)

// GroupSubject is the g.sub in Casbin: a concrete principal id (user_id).
type GroupSubject string

// Grouping rows: g, user_id, role, domain
type GroupingPolicy struct {
	Subject GroupSubject
	Role    Role
	Domain  Domain
}

// Permission rows: p, role, domain, resource, action, eft
type PermissionPolicy struct {
	Subject Role
	Domain  Domain
	Object  Resource
	Action  Action
	Effect  PolicyEffect
}
