package services

import (
	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

// Authorizer answers role and ownership questions against the publish policy.
type Authorizer struct {
	policy PublishPolicy
}

func NewAuthorizer(policy PublishPolicy) Authorizer {
	return Authorizer{policy: policy.WithDefaults()}
}

func (a Authorizer) IsAdmin(actor publishing.Actor) bool {
	return actor.Authenticated() && actor.HasRole(a.policy.AdminRoles)
}

func (a Authorizer) IsReviewer(actor publishing.Actor) bool {
	return actor.Authenticated() && (actor.HasRole(a.policy.ReviewerRoles) || a.IsAdmin(actor))
}

func (a Authorizer) IsTrusted(actor publishing.Actor) bool {
	return actor.Authenticated() && (actor.HasRole(a.policy.TrustedRoles) || a.IsAdmin(actor))
}

func (a Authorizer) RequireAuthenticated(op string, actor publishing.Actor) error {
	if !actor.Authenticated() {
		return domainagg.NewError(domainagg.CodeAuthorization, op, "authentication required", nil)
	}
	return nil
}

func (a Authorizer) RequireOwner(op string, actor publishing.Actor, d *publishing.LessonDraft) error {
	if err := a.RequireAuthenticated(op, actor); err != nil {
		return err
	}
	if !actor.Owns(d) {
		return domainagg.NewError(domainagg.CodeAuthorization, op, "only the owner may do this", nil)
	}
	return nil
}

func (a Authorizer) RequireOwnerOrAdmin(op string, actor publishing.Actor, d *publishing.LessonDraft) error {
	if err := a.RequireAuthenticated(op, actor); err != nil {
		return err
	}
	if !actor.Owns(d) && !a.IsAdmin(actor) {
		return domainagg.NewError(domainagg.CodeAuthorization, op, "not the owner of this draft", nil)
	}
	return nil
}

// RequireReader allows the owner, reviewers and admins.
func (a Authorizer) RequireReader(op string, actor publishing.Actor, d *publishing.LessonDraft) error {
	if err := a.RequireAuthenticated(op, actor); err != nil {
		return err
	}
	if !actor.Owns(d) && !a.IsReviewer(actor) {
		return domainagg.NewError(domainagg.CodeAuthorization, op, "not allowed to read this draft", nil)
	}
	return nil
}

func (a Authorizer) RequireReviewer(op string, actor publishing.Actor) error {
	if err := a.RequireAuthenticated(op, actor); err != nil {
		return err
	}
	if !a.IsReviewer(actor) {
		return domainagg.NewError(domainagg.CodeAuthorization, op, "reviewer role required", nil)
	}
	return nil
}

func (a Authorizer) RequireAdmin(op string, actor publishing.Actor) error {
	if err := a.RequireAuthenticated(op, actor); err != nil {
		return err
	}
	if !a.IsAdmin(actor) {
		return domainagg.NewError(domainagg.CodeAuthorization, op, "admin role required", nil)
	}
	return nil
}

// RequireTrustedPublisher allows trusted owners and admins to skip the review queue.
func (a Authorizer) RequireTrustedPublisher(op string, actor publishing.Actor, d *publishing.LessonDraft) error {
	if err := a.RequireOwnerOrAdmin(op, actor, d); err != nil {
		return err
	}
	if !a.IsTrusted(actor) {
		return domainagg.NewError(domainagg.CodeAuthorization, op, "trusted role required to publish directly", nil)
	}
	return nil
}
