package publishing

import "strings"

type PublishState string

const (
	StateDraft     PublishState = "draft"
	StateUnlisted  PublishState = "unlisted"
	StatePending   PublishState = "pending"
	StatePublished PublishState = "published"
	StateRejected  PublishState = "rejected"
)

func ParsePublishState(raw string) (PublishState, bool) {
	s := PublishState(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StateDraft, StateUnlisted, StatePending, StatePublished, StateRejected:
		return s, true
	default:
		return "", false
	}
}

type ModerationStatus string

const (
	ModerationPass    ModerationStatus = "pass"
	ModerationReview  ModerationStatus = "review"
	ModerationBlocked ModerationStatus = "blocked"
	ModerationUnknown ModerationStatus = "unknown"
)

// ParseModerationStatus maps anything unrecognized to ModerationUnknown.
func ParseModerationStatus(raw string) ModerationStatus {
	s := ModerationStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case ModerationPass, ModerationReview, ModerationBlocked:
		return s
	default:
		return ModerationUnknown
	}
}

type Visibility string

const (
	VisibilityPublic   Visibility = "public"
	VisibilityUnlisted Visibility = "unlisted"
)

func ParseVisibility(raw string) (Visibility, bool) {
	v := Visibility(strings.ToLower(strings.TrimSpace(raw)))
	switch v {
	case VisibilityPublic, VisibilityUnlisted:
		return v, true
	case "":
		return VisibilityPublic, true
	default:
		return "", false
	}
}

// Source states from which an owner may submit for review.
var SubmittableStates = []PublishState{StateDraft, StateUnlisted, StateRejected}

// Source and target states of the owner's manual, non-reviewed choice.
var (
	ManualSourceStates = []PublishState{StateDraft, StateUnlisted, StateRejected}
	ManualTargetStates = []PublishState{StateDraft, StateUnlisted}
)

// DirectPublishStates lists states a trusted actor may publish from.
var DirectPublishStates = []PublishState{StateDraft, StateUnlisted, StatePending, StatePublished, StateRejected}

func StateIn(s PublishState, allowed []PublishState) bool {
	for _, a := range allowed {
		if s == a {
			return true
		}
	}
	return false
}

func StateStrings(states []PublishState) []string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		out = append(out, string(s))
	}
	return out
}
