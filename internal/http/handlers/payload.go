package handlers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	domainagg "github.com/yungbote/neurobridge-publish/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
	"github.com/yungbote/neurobridge-publish/internal/normalization"
	"github.com/yungbote/neurobridge-publish/internal/services"
)

var (
	errInvalidState     = fmt.Errorf("state must be one of draft, unlisted")
	errBadOffset        = fmt.Errorf("offset must be a non-negative integer")
	errBadVisibility    = fmt.Errorf("visibility must be public or unlisted")
	errMissingReplicaID = fmt.Errorf("id is required")
)

// draftFields is a raw draft payload. Decoding into a map keeps field
// presence (for PATCH) and lets legacy key spellings through to normalization.
type draftFields map[string]json.RawMessage

func (f draftFields) has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := f[k]; ok {
			return true
		}
	}
	return false
}

func (f draftFields) str(keys ...string) (*string, error) {
	for _, k := range keys {
		raw, ok := f[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%s must be a string", k)
		}
		return &s, nil
	}
	return nil, nil
}

func (f draftFields) visibility() (*publishing.Visibility, error) {
	raw, err := f.str("visibilityPreference", "visibility_preference", "visibility")
	if err != nil || raw == nil {
		return nil, err
	}
	v, ok := publishing.ParseVisibility(*raw)
	if !ok {
		return nil, errBadVisibility
	}
	return &v, nil
}

func (f draftFields) taskList() datatypes.JSON {
	for _, k := range []string{"taskList", "task_list", "tasklist"} {
		if raw, ok := f[k]; ok {
			if strings.TrimSpace(string(raw)) == "null" {
				return datatypes.JSON("[]")
			}
			return datatypes.JSON(raw)
		}
	}
	return nil
}

func (f draftFields) content() (services.DraftContent, error) {
	var out services.DraftContent
	title, err := f.str("title")
	if err != nil {
		return out, err
	}
	body, err := f.str("bodyText", "body_text")
	if err != nil {
		return out, err
	}
	vis, err := f.visibility()
	if err != nil {
		return out, err
	}
	if title != nil {
		out.Title = *title
	}
	if body != nil {
		out.BodyText = *body
	}
	if vis != nil {
		out.VisibilityPreference = *vis
	}
	out.TaskList = json.RawMessage(f.taskList())
	out.TextType = normalization.TextType(f)
	out.Topics = normalization.Topics(f)
	return out, nil
}

func (f draftFields) patch() (domainagg.ContentPatch, error) {
	var p domainagg.ContentPatch
	var err error
	if p.Title, err = f.str("title"); err != nil {
		return p, err
	}
	if p.BodyText, err = f.str("bodyText", "body_text"); err != nil {
		return p, err
	}
	if p.VisibilityPreference, err = f.visibility(); err != nil {
		return p, err
	}
	p.TaskList = f.taskList()
	if f.has("textType", "texttype", "text_type", "TextType") {
		tt := normalization.TextType(f)
		p.TextType = &tt
	}
	if f.has("topics", "Topics", "topic", "Topic") {
		p.Topics = normalization.Topics(f)
	}
	owner, err := f.str("ownerId", "owner_id")
	if err != nil {
		return p, err
	}
	if owner != nil {
		id, err := uuid.Parse(strings.TrimSpace(*owner))
		if err != nil {
			return p, fmt.Errorf("ownerId must be a uuid")
		}
		p.OwnerID = &id
	}
	return p, nil
}
