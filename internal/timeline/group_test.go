package timeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshmcarthur/cap-alerts/internal/domain"
)

var t0 = time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)

var square = domain.Polygon{{Lat: -41, Lng: 174}, {Lat: -41, Lng: 175}, {Lat: -42, Lng: 175}, {Lat: -41, Lng: 174}}

func alertAt(id string, offset time.Duration, refs string) domain.Alert {
	return domain.Alert{ID: id, Identifier: id, Sent: t0.Add(offset), References: refs}
}

func withGeometry(a domain.Alert) domain.Alert {
	a.Polygon = square
	a.HasGeometry = true
	return a
}

func ids(alerts []domain.Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.ID
	}
	return out
}

func TestGroup_ChainWithGeometryInheritance(t *testing.T) {
	a1 := withGeometry(alertAt("A1", 0, ""))
	a1.MsgType = domain.MsgTypeAlert
	a2 := alertAt("A2", time.Hour, "sender,A1,2024-01-15T10:00:00Z")
	a2.MsgType = domain.MsgTypeUpdate
	a3 := alertAt("A3", 2*time.Hour, "sender,A2,2024-01-15T11:00:00Z")
	a3.MsgType = domain.MsgTypeCancel
	a3.IsCancelled = true

	groups := Group([]domain.Alert{a3, a1, a2})

	require.Len(t, groups, 1)
	g := groups[0]
	assert.Equal(t, "A3", g.ID)
	assert.Equal(t, domain.MsgTypeCancel, g.MsgType)
	assert.True(t, g.IsCancelled)
	assert.True(t, g.HasGeometry)
	assert.Equal(t, square, g.Polygon)
	assert.True(t, g.IsGroupHeader)
	assert.Equal(t, 3, g.GroupSize)
	assert.Equal(t, []string{"A1", "A2", "A3"}, ids(g.Timeline))

	// timeline members keep their own geometry
	assert.False(t, g.Timeline[2].HasGeometry)
}

func TestGroup_SingletonsAndDanglingReferences(t *testing.T) {
	a := alertAt("A", 0, "")
	b := alertAt("B", time.Minute, "sender,OUTSIDE,2024-01-01T00:00:00Z")

	groups := Group([]domain.Alert{a, b})

	require.Len(t, groups, 2)
	for _, g := range groups {
		assert.Equal(t, 1, g.GroupSize)
		require.Len(t, g.Timeline, 1)
		assert.Equal(t, g.ID, g.Timeline[0].ID)
	}
	assert.Equal(t, "A", groups[0].ID)
	assert.Equal(t, "B", groups[1].ID)
}

func TestGroup_SelfAndCyclicReferences(t *testing.T) {
	self := alertAt("S", 0, "sender,S,2024-01-15T10:00:00Z")
	x := alertAt("X", time.Minute, "sender,Y,t")
	y := alertAt("Y", 2*time.Minute, "sender,X,t")

	groups := Group([]domain.Alert{self, x, y})

	require.Len(t, groups, 2)
	assert.Equal(t, 1, groups[0].GroupSize)
	assert.Equal(t, 2, groups[1].GroupSize)
	assert.Equal(t, "Y", groups[1].ID)
}

func TestGroup_Transitive(t *testing.T) {
	c := alertAt("C", 0, "")
	b := alertAt("B", time.Minute, "s,C,t")
	a := alertAt("A", 2*time.Minute, "s,B,t")
	other := alertAt("D", 3*time.Minute, "")

	groups := Group([]domain.Alert{a, other, c, b})

	require.Len(t, groups, 2)
	assert.Equal(t, []string{"C", "B", "A"}, ids(groups[0].Timeline))
	assert.Equal(t, "D", groups[1].ID)
}

func TestGroup_MultipleReferencesMergeBranches(t *testing.T) {
	a := alertAt("A", 0, "")
	b := alertAt("B", time.Minute, "")
	merged := alertAt("M", 2*time.Minute, "s,A,t s,B,t")

	groups := Group([]domain.Alert{a, b, merged})

	require.Len(t, groups, 1)
	assert.Equal(t, 3, groups[0].GroupSize)
	assert.Equal(t, "M", groups[0].ID)
}

func TestGroup_TiesKeepIngestionOrder(t *testing.T) {
	first := alertAt("T1", 0, "")
	second := alertAt("T2", 0, "s,T1,t")

	for range 5 {
		groups := Group([]domain.Alert{first, second})
		require.Len(t, groups, 1)
		assert.Equal(t, []string{"T1", "T2"}, ids(groups[0].Timeline))
		assert.Equal(t, "T2", groups[0].ID)
	}
}

func TestGroup_NearestPriorGeometryWins(t *testing.T) {
	older := withGeometry(alertAt("O", 0, ""))
	newer := alertAt("N", time.Minute, "s,O,t")
	newer.Polygon = domain.Polygon{{Lat: -40, Lng: 170}, {Lat: -40, Lng: 171}, {Lat: -41, Lng: 171}, {Lat: -40, Lng: 170}}
	newer.HasGeometry = true
	cancel := alertAt("C", 2*time.Minute, "s,N,t")

	groups := Group([]domain.Alert{older, newer, cancel})

	require.Len(t, groups, 1)
	assert.Equal(t, newer.Polygon, groups[0].Polygon)
}

func TestGroup_NoGeometryAnywhere(t *testing.T) {
	groups := Group([]domain.Alert{alertAt("A", 0, ""), alertAt("B", time.Minute, "s,A,t")})

	require.Len(t, groups, 1)
	assert.False(t, groups[0].HasGeometry)
	assert.Nil(t, groups[0].Polygon)
}

func TestGroup_PartitionConsistent(t *testing.T) {
	var alerts []domain.Alert
	for i := range 50 {
		refs := ""
		if i%3 != 0 {
			refs = fmt.Sprintf("s,N%d,t", i-1)
		}
		alerts = append(alerts, alertAt(fmt.Sprintf("N%d", i), time.Duration(i)*time.Minute, refs))
	}

	groups := Group(alerts)

	total := 0
	seen := make(map[string]int)
	for _, g := range groups {
		total += g.GroupSize
		assert.Len(t, g.Timeline, g.GroupSize)
		for _, m := range g.Timeline {
			seen[m.ID]++
		}
	}
	assert.Equal(t, len(alerts), total)
	assert.Len(t, seen, len(alerts))
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
	assert.Len(t, groups, 17)
}

func TestGroup_Empty(t *testing.T) {
	assert.Nil(t, Group(nil))
}

func TestDisjointSet_DeepChainIsIterative(t *testing.T) {
	const n = 200000
	ds := newDisjointSet(n)
	for i := 1; i < n; i++ {
		ds.parent[i] = i - 1
	}

	assert.Equal(t, 0, ds.find(n-1))
	assert.Equal(t, 0, ds.parent[n-1])
	ds.union(5, 5)
	assert.Equal(t, 0, ds.find(5))
}
