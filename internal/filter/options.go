package filter

import (
	"slices"
	"time"

	"github.com/joshmcarthur/cap-alerts/internal/domain"
)

// Options lists the filter choices present in a collection.
type Options struct {
	Categories   []string   `json:"categories"`
	Severities   []string   `json:"severities"`
	Urgencies    []string   `json:"urgencies"`
	Statuses     []string   `json:"statuses"`
	MessageTypes []string   `json:"messageTypes"`
	Earliest     *time.Time `json:"earliest,omitempty"`
	Latest       *time.Time `json:"latest,omitempty"`
}

// AvailableOptions computes the sorted unique classification values and the
// sent-time range of alerts. Only values actually present are returned.
func AvailableOptions(alerts []domain.DisplayAlert) Options {
	var opts Options
	if len(alerts) == 0 {
		return opts
	}

	categories := make(map[string]struct{})
	severities := make(map[string]struct{})
	urgencies := make(map[string]struct{})
	statuses := make(map[string]struct{})
	msgTypes := make(map[string]struct{})

	earliest, latest := alerts[0].Sent, alerts[0].Sent
	for _, a := range alerts {
		categories[a.Category] = struct{}{}
		severities[a.Severity] = struct{}{}
		urgencies[a.Urgency] = struct{}{}
		statuses[a.Status] = struct{}{}
		msgTypes[a.MsgType] = struct{}{}
		if a.Sent.Before(earliest) {
			earliest = a.Sent
		}
		if a.Sent.After(latest) {
			latest = a.Sent
		}
	}

	opts.Categories = sortedKeys(categories)
	opts.Severities = sortedKeys(severities)
	opts.Urgencies = sortedKeys(urgencies)
	opts.Statuses = sortedKeys(statuses)
	opts.MessageTypes = sortedKeys(msgTypes)
	opts.Earliest = &earliest
	opts.Latest = &latest
	return opts
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		if k != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys
}
