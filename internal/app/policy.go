package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/services"
)

type policyFile struct {
	ReviewQueuePageSize      int      `yaml:"review_queue_page_size"`
	RejectTargetState        string   `yaml:"reject_target_state"`
	TrustedRoles             []string `yaml:"trusted_roles"`
	ReviewerRoles            []string `yaml:"reviewer_roles"`
	AdminRoles               []string `yaml:"admin_roles"`
	ModerationTimeoutSeconds int      `yaml:"moderation_timeout_seconds"`
	BusyTTLSeconds           int      `yaml:"busy_ttl_seconds"`
}

// LoadPolicy reads the publish policy YAML at path. An empty path yields the defaults.
func LoadPolicy(path string) (services.PublishPolicy, error) {
	if strings.TrimSpace(path) == "" {
		return services.DefaultPublishPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return services.PublishPolicy{}, fmt.Errorf("read publish policy: %w", err)
	}
	return ParsePolicy(data)
}

func ParsePolicy(data []byte) (services.PublishPolicy, error) {
	var raw policyFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return services.PublishPolicy{}, fmt.Errorf("parse publish policy: %w", err)
	}
	p := services.PublishPolicy{
		ReviewQueuePageSize: raw.ReviewQueuePageSize,
		ModerationTimeout:   time.Duration(raw.ModerationTimeoutSeconds) * time.Second,
		BusyTTL:             time.Duration(raw.BusyTTLSeconds) * time.Second,
	}
	if s := strings.TrimSpace(raw.RejectTargetState); s != "" {
		state, ok := publishing.ParsePublishState(s)
		if !ok || (state != publishing.StateDraft && state != publishing.StateRejected) {
			return services.PublishPolicy{}, fmt.Errorf("reject_target_state must be draft or rejected, got %q", s)
		}
		p.RejectTargetState = state
	}
	var err error
	if p.TrustedRoles, err = parseRoles("trusted_roles", raw.TrustedRoles); err != nil {
		return services.PublishPolicy{}, err
	}
	if p.ReviewerRoles, err = parseRoles("reviewer_roles", raw.ReviewerRoles); err != nil {
		return services.PublishPolicy{}, err
	}
	if p.AdminRoles, err = parseRoles("admin_roles", raw.AdminRoles); err != nil {
		return services.PublishPolicy{}, err
	}
	return p.WithDefaults(), nil
}

func parseRoles(field string, in []string) ([]publishing.Role, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]publishing.Role, 0, len(in))
	for _, r := range in {
		role := publishing.Role(strings.ToLower(strings.TrimSpace(r)))
		switch role {
		case publishing.RoleAuthor, publishing.RoleTrusted, publishing.RoleReviewer, publishing.RoleAdmin:
			out = append(out, role)
		default:
			return nil, fmt.Errorf("%s: unknown role %q", field, r)
		}
	}
	return out, nil
}
