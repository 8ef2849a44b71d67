package replica

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/normalization"
)

// Encode renders the canonical replica document.
func Encode(p *publishing.PublishedLesson) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("replica encode: nil lesson")
	}
	doc := *p
	if doc.Topics == nil {
		doc.Topics = []string{}
	}
	return json.Marshal(&doc)
}

// Decode reads a replica document written by any past writer. Field-name
// variants of textType and topics are folded into the canonical fields here
// so nothing above the store sees them.
func Decode(raw []byte) (*publishing.PublishedLesson, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("replica decode: empty document")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("replica decode: %w", err)
	}
	// Topic and text type variants are folded below; strip them so a legacy
	// string shape does not fail the struct decode.
	strict := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		switch k {
		case "topics", "Topics", "topic", "Topic", "texttype", "text_type", "TextType":
			continue
		}
		strict[k] = v
	}
	clean, err := json.Marshal(strict)
	if err != nil {
		return nil, fmt.Errorf("replica decode: %w", err)
	}
	var out publishing.PublishedLesson
	if err := json.Unmarshal(clean, &out); err != nil {
		return nil, fmt.Errorf("replica decode: %w", err)
	}
	out.TextType = normalization.TextType(fields)
	out.Topics = normalization.Topics(fields)
	if out.SourceDraftID == "" {
		if legacy := stringField(fields, "source_draft_id", "draftId"); legacy != "" {
			out.SourceDraftID = legacy
		}
	}
	if out.ID == "" {
		out.ID = out.SourceDraftID
	}
	if v, ok := publishing.ParseVisibility(string(out.Visibility)); ok {
		out.Visibility = v
	} else {
		out.Visibility = publishing.VisibilityPublic
	}
	return &out, nil
}

func stringField(fields map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// applyActive flips the tombstone on a decoded copy.
func applyActive(p *publishing.PublishedLesson, active bool, at time.Time) {
	p.IsActive = active
	p.UpdatedAt = at
}
