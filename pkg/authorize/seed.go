package authorize

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultPolicies is the baseline permission set of every platform role.
func DefaultPolicies() []PermissionPolicy {
	client := []PermissionPolicy{
		{RoleClient, DomainSys, ResourceUser, ActionRead, EffectAllow},
		{RoleClient, DomainSys, ResourceAvailability, ActionRead, EffectAllow},
		{RoleClient, DomainSys, ResourceSession, ActionCreate, EffectAllow},
		{RoleClient, DomainSys, ResourceSession, ActionRead, EffectAllow},
		{RoleClient, DomainSys, ResourceSession, ActionList, EffectAllow},
		{RoleClient, DomainSys, ResourceSession, ActionDelete, EffectAllow},
		{RoleClient, DomainSys, ResourceNotification, ActionManage, EffectAllow},
		{RoleClient, DomainSys, ResourcePayment, ActionManage, EffectAllow},
		{RoleClient, DomainSys, ResourceQuestionnaire, ActionManage, EffectAllow},
	}

	var professional []PermissionPolicy
	for _, role := range []Role{RoleCounselor, RolePsychiatrist} {
		professional = append(professional,
			PermissionPolicy{role, DomainSys, ResourceUser, ActionRead, EffectAllow},
			PermissionPolicy{role, DomainSys, ResourceAvailability, ActionRead, EffectAllow},
			PermissionPolicy{role, DomainSys, ResourceSchedule, ActionManage, EffectAllow},
			PermissionPolicy{role, DomainSys, ResourceSession, ActionRead, EffectAllow},
			PermissionPolicy{role, DomainSys, ResourceSession, ActionList, EffectAllow},
			PermissionPolicy{role, DomainSys, ResourceSession, ActionUpdate, EffectAllow},
			PermissionPolicy{role, DomainSys, ResourceSession, ActionDelete, EffectAllow},
			PermissionPolicy{role, DomainSys, ResourceNotification, ActionManage, EffectAllow},
			PermissionPolicy{role, DomainSys, ResourcePayment, ActionManage, EffectAllow},
		)
	}

	staff := []PermissionPolicy{
		{RoleAdmin, DomainSys, WildcardResource, WildcardAction, EffectAllow},
		{RoleManagement, DomainSys, WildcardResource, WildcardAction, EffectAllow},
		// Staff do not book for themselves.
		{RoleAdmin, DomainSys, ResourceSession, ActionCreate, EffectDeny},
		{RoleManagement, DomainSys, ResourceSession, ActionCreate, EffectDeny},
	}

	return append(append(client, professional...), staff...)
}

// SeedDefaultPolicies writes DefaultPolicies; existing rows are left alone.
func SeedDefaultPolicies(ctx context.Context, auth IAuthorization) error {
	logger := slog.Default()

	all := DefaultPolicies()
	for _, p := range all {
		added, err := auth.AddPermission(ctx, p.Subject, p.Domain, p.Object, p.Action, p.Effect)
		if err != nil {
			logger.Error("failed to add policy", "policy", p, "error", err)
			return err
		}
		if added {
			logger.Debug("added policy", "role", p.Subject, "domain", p.Domain, "resource", p.Object, "action", p.Action)
		}
	}

	logger.Info("seeded default RBAC policies", "count", len(all))
	return nil
}

// AssignPlatformRole groups the user under the RBAC role matching their
// stored role. Call this when creating a user.
func AssignPlatformRole(ctx context.Context, auth IAuthorization, userID, userRole string) error {
	role, ok := PlatformRole(userRole)
	if !ok {
		return fmt.Errorf("%w: unknown user role %q", ErrInvalidArgs, userRole)
	}
	_, err := auth.AddRoleForUserInDomain(ctx, GroupSubject(userID), role, DomainSys)
	return err
}

// RemovePlatformRole drops the user's grouping for userRole.
func RemovePlatformRole(ctx context.Context, auth IAuthorization, userID, userRole string) error {
	role, ok := PlatformRole(userRole)
	if !ok {
		return fmt.Errorf("%w: unknown user role %q", ErrInvalidArgs, userRole)
	}
	_, err := auth.RemoveRoleForUserInDomain(ctx, GroupSubject(userID), role, DomainSys)
	return err
}
