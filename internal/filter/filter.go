// Package filter evaluates query constraints over display alerts.
package filter

import (
	"slices"
	"strings"
	"time"

	"github.com/joshmcarthur/cap-alerts/internal/domain"
)

// Spec is one set of query constraints. Empty fields impose no constraint.
// A Spec is treated as a value: callers build a new one instead of mutating.
type Spec struct {
	Start        *time.Time
	End          *time.Time
	Categories   []string
	Severities   []string
	Urgencies    []string
	Statuses     []string
	MessageTypes []string
	SearchText   string
}

// IsEmpty reports whether s constrains nothing.
func (s Spec) IsEmpty() bool {
	return s.Start == nil && s.End == nil &&
		len(s.Categories) == 0 && len(s.Severities) == 0 && len(s.Urgencies) == 0 &&
		len(s.Statuses) == 0 && len(s.MessageTypes) == 0 &&
		strings.TrimSpace(s.SearchText) == ""
}

// Apply returns the alerts matching every constraint in spec, most recent
// first. The input slice is not modified.
func Apply(alerts []domain.DisplayAlert, spec Spec) []domain.DisplayAlert {
	search := strings.ToLower(strings.TrimSpace(spec.SearchText))

	out := make([]domain.DisplayAlert, 0, len(alerts))
	for _, a := range alerts {
		if matches(a, spec, search) {
			out = append(out, a)
		}
	}

	slices.SortStableFunc(out, func(a, b domain.DisplayAlert) int {
		return b.Sent.Compare(a.Sent)
	})
	return out
}

func matches(a domain.DisplayAlert, spec Spec, search string) bool {
	if spec.Start != nil && a.Sent.Before(*spec.Start) {
		return false
	}
	if spec.End != nil && a.Sent.After(*spec.End) {
		return false
	}
	if !member(spec.Categories, a.Category) ||
		!member(spec.Severities, a.Severity) ||
		!member(spec.Urgencies, a.Urgency) ||
		!member(spec.Statuses, a.Status) ||
		!member(spec.MessageTypes, a.MsgType) {
		return false
	}
	if search != "" && !containsText(a, search) {
		return false
	}
	return true
}

func member(set []string, v string) bool {
	return len(set) == 0 || slices.Contains(set, v)
}

func containsText(a domain.DisplayAlert, needle string) bool {
	for _, field := range []string{a.Title, a.Description, a.Event, a.AreaDesc, a.SenderName} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Lookup returns the display alert with the given id.
func Lookup(alerts []domain.DisplayAlert, id string) (domain.DisplayAlert, bool) {
	for _, a := range alerts {
		if a.ID == id {
			return a, true
		}
	}
	return domain.DisplayAlert{}, false
}
