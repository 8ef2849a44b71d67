package services

import (
	"time"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

// PublishPolicy holds the product knobs of the publish pipeline.
type PublishPolicy struct {
	ReviewQueuePageSize int
	// RejectTargetState is where a rejected draft lands: draft or rejected.
	RejectTargetState publishing.PublishState
	TrustedRoles      []publishing.Role
	ReviewerRoles     []publishing.Role
	AdminRoles        []publishing.Role
	ModerationTimeout time.Duration
	BusyTTL           time.Duration
}

func DefaultPublishPolicy() PublishPolicy {
	return PublishPolicy{
		ReviewQueuePageSize: 50,
		RejectTargetState:   publishing.StateRejected,
		TrustedRoles:        []publishing.Role{publishing.RoleTrusted, publishing.RoleAdmin},
		ReviewerRoles:       []publishing.Role{publishing.RoleReviewer, publishing.RoleAdmin},
		AdminRoles:          []publishing.Role{publishing.RoleAdmin},
		ModerationTimeout:   30 * time.Second,
		BusyTTL:             2 * time.Minute,
	}
}

// WithDefaults fills zero fields from DefaultPublishPolicy.
func (p PublishPolicy) WithDefaults() PublishPolicy {
	def := DefaultPublishPolicy()
	if p.ReviewQueuePageSize <= 0 {
		p.ReviewQueuePageSize = def.ReviewQueuePageSize
	}
	if p.RejectTargetState != publishing.StateDraft && p.RejectTargetState != publishing.StateRejected {
		p.RejectTargetState = def.RejectTargetState
	}
	if len(p.TrustedRoles) == 0 {
		p.TrustedRoles = def.TrustedRoles
	}
	if len(p.ReviewerRoles) == 0 {
		p.ReviewerRoles = def.ReviewerRoles
	}
	if len(p.AdminRoles) == 0 {
		p.AdminRoles = def.AdminRoles
	}
	if p.ModerationTimeout <= 0 {
		p.ModerationTimeout = def.ModerationTimeout
	}
	if p.BusyTTL <= 0 {
		p.BusyTTL = def.BusyTTL
	}
	// The busy marker must outlive the moderation call it guards.
	if p.BusyTTL < p.ModerationTimeout {
		p.BusyTTL = p.ModerationTimeout + 10*time.Second
	}
	return p
}
