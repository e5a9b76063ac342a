// Package authorizetest builds file-backed enforcers for tests in other
// packages.
package authorizetest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	casbin "github.com/casbin/casbin/v2"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/Alijeyrad/counsel_backend/pkg/authorize"
)

// New returns an authorization with the default policies seeded.
func New(t testing.TB) authorize.IAuthorization {
	t.Helper()

	policyPath := filepath.Join(t.TempDir(), "policy.csv")
	if err := os.WriteFile(policyPath, nil, 0o644); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	m, err := authorize.NewModel()
	if err != nil {
		t.Fatalf("parse model: %v", err)
	}
	e, err := casbin.NewDistributedEnforcer(m, fileadapter.NewAdapter(policyPath))
	if err != nil {
		t.Fatalf("create enforcer: %v", err)
	}
	e.EnableAutoSave(false)

	auth, err := authorize.NewAuthorization(e)
	if err != nil {
		t.Fatalf("wrap enforcer: %v", err)
	}
	if err := authorize.SeedDefaultPolicies(context.Background(), auth); err != nil {
		t.Fatalf("seed policies: %v", err)
	}
	return auth
}
