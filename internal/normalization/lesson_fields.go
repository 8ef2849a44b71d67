package normalization

import (
	"encoding/json"
	"strings"
)

// Legacy documents carry the text type under several casings and the topic
// list either as an array, a single string, or a singular "topic" key. These
// helpers fold every accepted shape into the canonical textType + topics form.

var textTypeKeys = []string{"textType", "texttype", "text_type", "TextType"}

var topicKeys = []string{"topics", "Topics", "topic", "Topic"}

// TextType returns the first non-blank text type found under any accepted key.
func TextType(fields map[string]json.RawMessage) string {
	for _, k := range textTypeKeys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// Topics returns the topic list from the first key that yields any topics.
func Topics(fields map[string]json.RawMessage) []string {
	for _, k := range topicKeys {
		raw, ok := fields[k]
		if !ok {
			continue
		}
		if out := TopicsFromJSON(raw); len(out) > 0 {
			return out
		}
	}
	return []string{}
}

// TopicsFromJSON accepts an array of strings or a single (comma separated) string.
func TopicsFromJSON(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return CleanTopics(list)
	}
	var mixed []any
	if err := json.Unmarshal(raw, &mixed); err == nil {
		list = list[:0]
		for _, v := range mixed {
			if s, ok := v.(string); ok {
				list = append(list, s)
			}
		}
		return CleanTopics(list)
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return CleanTopics(strings.Split(single, ","))
	}
	return []string{}
}

// CleanTopics trims, drops blanks and removes case-insensitive duplicates,
// keeping first-seen order and spelling.
func CleanTopics(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := ParseInputString(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}
