package handlers

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-publish/internal/domain/publishing"
)

func decodeFields(t *testing.T, raw string) draftFields {
	t.Helper()
	var f draftFields
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return f
}

func TestDraftContentAcceptsLegacyKeys(t *testing.T) {
	f := decodeFields(t, `{"title":"Rivers","body_text":"Water flows.","texttype":"article","Topics":"hydrology,Hydrology, maps","visibility":"unlisted"}`)
	got, err := f.content()
	if err != nil {
		t.Fatalf("content: %v", err)
	}
	if got.Title != "Rivers" || got.BodyText != "Water flows." || got.TextType != "article" {
		t.Fatalf("content: %+v", got)
	}
	if len(got.Topics) != 2 || got.Topics[0] != "hydrology" || got.Topics[1] != "maps" {
		t.Fatalf("topics: got=%v", got.Topics)
	}
	if got.VisibilityPreference != publishing.VisibilityUnlisted {
		t.Fatalf("visibility: want=unlisted got=%s", got.VisibilityPreference)
	}
}

func TestDraftPatchKeepsPresence(t *testing.T) {
	p, err := decodeFields(t, `{"bodyText":"only body"}`).patch()
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if p.Title != nil || p.TextType != nil || p.Topics != nil || p.BodyText == nil || *p.BodyText != "only body" {
		t.Fatalf("patch: %+v", p)
	}

	p, err = decodeFields(t, `{"topics":[],"text_type":""}`).patch()
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if p.Topics == nil || len(p.Topics) != 0 || p.TextType == nil || *p.TextType != "" {
		t.Fatalf("clearing patch: %+v", p)
	}

	owner := uuid.New()
	p, err = decodeFields(t, `{"ownerId":"`+owner.String()+`"}`).patch()
	if err != nil || p.OwnerID == nil || *p.OwnerID != owner {
		t.Fatalf("owner patch: %+v err=%v", p, err)
	}
}

func TestDraftPayloadRejectsBadTypes(t *testing.T) {
	cases := []string{
		`{"title":42}`,
		`{"visibility":"secret"}`,
		`{"ownerId":"nope"}`,
	}
	for _, raw := range cases {
		if _, err := decodeFields(t, raw).patch(); err == nil {
			t.Fatalf("%s: expected error", raw)
		}
	}
}
