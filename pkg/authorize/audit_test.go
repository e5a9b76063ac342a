package authorize

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/Alijeyrad/counsel_backend/pkg/reqctx"
)

func TestAuditedAuthorizationLogsDecisions(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	auth := NewAuditedAuthorization(seededAuth(t), logger)
	ctx := reqctx.WithRequestMeta(context.Background(), reqctx.RequestMeta{RequestID: "rid-1", ClientIP: "10.0.0.7"})

	if err := AssignPlatformRole(ctx, auth, "client-9", "client"); err != nil {
		t.Fatalf("AssignPlatformRole: %v", err)
	}
	if err := auth.MustEnforce(ctx, "client-9", DomainSys, ResourceSchedule, ActionUpdate); err != ErrForbidden {
		t.Fatalf("Expected ErrForbidden, got %v", err)
	}

	out := buf.String()
	for _, want := range []string{"authz_role_change", "authz_decision", "allowed=false", "level=WARN", "request_id=rid-1", "client_ip=10.0.0.7"} {
		if !strings.Contains(out, want) {
			t.Errorf("audit log missing %q:\n%s", want, out)
		}
	}
}
