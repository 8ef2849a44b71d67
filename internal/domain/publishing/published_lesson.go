package publishing

import (
	"encoding/json"
	"time"
)

// PublishedLesson is the public, denormalized snapshot of a draft.
// JSON tags are the canonical document shape written to every replica backend.
type PublishedLesson struct {
	ID            string          `json:"id"`
	SourceDraftID string          `json:"sourceDraftId"`
	OwnerID       string          `json:"ownerId"`
	Title         string          `json:"title"`
	BodyText      string          `json:"bodyText"`
	TaskList      json.RawMessage `json:"taskList,omitempty"`
	TextType      string          `json:"textType,omitempty"`
	Topics        []string        `json:"topics"`
	RiskScore     float64         `json:"riskScore"`
	Visibility    Visibility      `json:"visibility"`
	IsActive      bool            `json:"isActive"`
	PublishedAt   time.Time       `json:"publishedAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	ReviewedBy    string          `json:"reviewedBy,omitempty"`
	ReviewedAt    *time.Time      `json:"reviewedAt,omitempty"`
}

// Listed reports whether the replica belongs in the public catalog.
func (p *PublishedLesson) Listed() bool {
	return p != nil && p.IsActive && p.Visibility != VisibilityUnlisted
}
