// Package timeline reconciles CAP update and cancel chains into one display
// record per logical alert.
package timeline

import (
	"slices"

	"github.com/joshmcarthur/cap-alerts/internal/domain"
)

// Group links alerts that reference one another into chains and projects each
// chain onto its latest message. Every input alert appears in exactly one
// output timeline. Output order follows the first appearance of each chain in
// alerts. References to identifiers outside alerts are ignored.
func Group(alerts []domain.Alert) []domain.DisplayAlert {
	if len(alerts) == 0 {
		return nil
	}

	// Alerts sharing an id share a node.
	nodeOf := make(map[string]int, len(alerts))
	for _, a := range alerts {
		if _, ok := nodeOf[a.ID]; !ok {
			nodeOf[a.ID] = len(nodeOf)
		}
	}

	ds := newDisjointSet(len(nodeOf))
	for _, a := range alerts {
		if a.References == "" {
			continue
		}
		self := nodeOf[a.ID]
		for _, ref := range domain.ParseReferences(a.References) {
			if other, ok := nodeOf[ref.Identifier]; ok {
				ds.union(self, other)
			}
		}
	}

	var order []int
	buckets := make(map[int][]domain.Alert)
	for _, a := range alerts {
		root := ds.find(nodeOf[a.ID])
		if _, seen := buckets[root]; !seen {
			order = append(order, root)
		}
		buckets[root] = append(buckets[root], a)
	}

	out := make([]domain.DisplayAlert, 0, len(order))
	for _, root := range order {
		out = append(out, project(buckets[root]))
	}
	return out
}

// project builds the display record for one chain. members is in ingestion
// order; the stable sort keeps that order for equal sent times.
func project(members []domain.Alert) domain.DisplayAlert {
	sorted := slices.Clone(members)
	slices.SortStableFunc(sorted, func(a, b domain.Alert) int {
		return a.Sent.Compare(b.Sent)
	})

	rep := sorted[len(sorted)-1]
	if !rep.HasGeometry {
		for i := len(sorted) - 2; i >= 0; i-- {
			if sorted[i].HasGeometry {
				rep.Polygon = slices.Clone(sorted[i].Polygon)
				rep.HasGeometry = true
				break
			}
		}
	}

	return domain.DisplayAlert{
		Alert:         rep,
		Timeline:      sorted,
		IsGroupHeader: true,
		GroupSize:     len(sorted),
	}
}
