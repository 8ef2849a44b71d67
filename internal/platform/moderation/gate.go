package moderation

import (
	"context"
	"encoding/json"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

// Input is the content a gate judges.
type Input struct {
	Title    string          `json:"title"`
	BodyText string          `json:"bodyText"`
	TaskList json.RawMessage `json:"taskList,omitempty"`
}

// Verdict is a gate decision. Reasons keep the order the gate returned.
type Verdict struct {
	Status    publishing.ModerationStatus
	RiskScore float64
	Reasons   []string
	Notes     string
}

// Gate is the synchronous content-risk classifier consulted on submission.
// An error means no verdict was produced (transport, timeout, bad payload).
type Gate interface {
	Check(ctx context.Context, in Input) (Verdict, error)
}

// StaticGate returns the same verdict for every input.
type StaticGate struct {
	Verdict Verdict
}

func NewStaticGate(status publishing.ModerationStatus) *StaticGate {
	return &StaticGate{Verdict: Verdict{Status: status, Reasons: []string{}}}
}

func (g *StaticGate) Check(ctx context.Context, _ Input) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return Verdict{}, err
	}
	v := g.Verdict
	v.Reasons = append([]string{}, g.Verdict.Reasons...)
	return v, nil
}
