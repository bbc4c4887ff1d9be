package domain

import (
	"strings"
	"time"
)

// Reference points at an earlier CAP message by sender and identifier.
// Sent is carried as-is and never used for lookup.
type Reference struct {
	Sender     string
	Identifier string
	Sent       string
}

// ParseReferences splits a CAP references value into its triplets. Groups with
// fewer than two comma-separated parts are dropped.
func ParseReferences(raw string) []Reference {
	var refs []Reference
	for _, group := range strings.Fields(raw) {
		parts := strings.Split(group, ",")
		if len(parts) < 2 {
			continue
		}
		ref := Reference{
			Sender:     strings.TrimSpace(parts[0]),
			Identifier: strings.TrimSpace(parts[1]),
		}
		if len(parts) > 2 {
			ref.Sent = strings.TrimSpace(strings.Join(parts[2:], ","))
		}
		if ref.Identifier == "" {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

// timestampLayouts covers CAP (RFC 3339) and RSS/Atom feed dates.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses s using the first matching known layout.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
