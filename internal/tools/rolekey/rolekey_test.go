package rolekey

import (
	"strings"
	"testing"

	"github.com/quorumsec/aegis/internal/governance/auth"
)

func TestRunMintsVerifiableToken(t *testing.T) {
	var out strings.Builder
	err := Run(&out, Options{Role: "manager_1", Secret: "shared-secret"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	line := strings.TrimSpace(out.String())
	const prefix = "export AEGIS_ROLE_TOKEN="
	if !strings.HasPrefix(line, prefix) {
		t.Fatalf("output = %q", line)
	}
	token := strings.TrimPrefix(line, prefix)

	claims, err := auth.VerifyRoleToken(token, auth.RoleTokenConfig{Secret: []byte("shared-secret")})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Role != "manager_1" {
		t.Fatalf("role = %q", claims.Role)
	}
}

func TestRunRequiresSecret(t *testing.T) {
	var out strings.Builder
	if err := Run(&out, Options{Role: "manager_0"}); err == nil {
		t.Fatal("expected error without secret")
	}
}
