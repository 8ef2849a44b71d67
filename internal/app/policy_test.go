package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy([]byte(`
review_queue_page_size: 25
reject_target_state: draft
trusted_roles: [trusted]
reviewer_roles: [Reviewer, admin]
moderation_timeout_seconds: 12
busy_ttl_seconds: 5
`))
	if err != nil {
		t.Fatalf("ParsePolicy: %v", err)
	}
	if p.ReviewQueuePageSize != 25 || p.RejectTargetState != publishing.StateDraft {
		t.Fatalf("policy: %+v", p)
	}
	if len(p.TrustedRoles) != 1 || p.TrustedRoles[0] != publishing.RoleTrusted {
		t.Fatalf("trusted roles: %v", p.TrustedRoles)
	}
	if len(p.ReviewerRoles) != 2 || p.ReviewerRoles[0] != publishing.RoleReviewer {
		t.Fatalf("reviewer roles: %v", p.ReviewerRoles)
	}
	if len(p.AdminRoles) != 1 || p.AdminRoles[0] != publishing.RoleAdmin {
		t.Fatalf("admin roles should default: %v", p.AdminRoles)
	}
	if p.ModerationTimeout != 12*time.Second {
		t.Fatalf("moderation timeout: want=12s got=%s", p.ModerationTimeout)
	}
	if p.BusyTTL < p.ModerationTimeout {
		t.Fatalf("busy ttl %s shorter than moderation timeout %s", p.BusyTTL, p.ModerationTimeout)
	}
}

func TestParsePolicyRejectsBadValues(t *testing.T) {
	cases := []string{
		"reject_target_state: published",
		"admin_roles: [root]",
		"review_queue_page_size: [1",
	}
	for _, raw := range cases {
		if _, err := ParsePolicy([]byte(raw)); err == nil {
			t.Fatalf("%q: expected error", raw)
		}
	}
}

func TestLoadPolicy(t *testing.T) {
	def, err := LoadPolicy("")
	if err != nil || def.ReviewQueuePageSize != 50 {
		t.Fatalf("default policy: %+v err=%v", def, err)
	}
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte("review_queue_page_size: 10\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadPolicy(path)
	if err != nil || p.ReviewQueuePageSize != 10 {
		t.Fatalf("file policy: %+v err=%v", p, err)
	}
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
