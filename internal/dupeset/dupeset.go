// Package dupeset derives duplicate groups from scored edges at read time.
// Grouping is a presentation-layer view over stored edges, not engine
// state: nothing here is persisted.
package dupeset

import (
	"sort"

	"github.com/dupehound/dupehound/internal/models"
)

// UnionFind is a standard disjoint-set over PR heads with path compression
// and union by rank.
type UnionFind struct {
	parent map[models.PRHead]models.PRHead
	rank   map[models.PRHead]int
}

// NewUnionFind creates an empty structure.
func NewUnionFind() *UnionFind {
	return &UnionFind{
		parent: make(map[models.PRHead]models.PRHead),
		rank:   make(map[models.PRHead]int),
	}
}

// Find returns the representative of x's set, adding x if unseen.
func (u *UnionFind) Find(x models.PRHead) models.PRHead {
	if _, ok := u.parent[x]; !ok {
		u.parent[x] = x
		return x
	}
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

// Union merges the sets containing a and b.
func (u *UnionFind) Union(a, b models.PRHead) {
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}

// Groups connects edges at or above minScore into duplicate sets. Edges
// without evidence never contribute: an unsupported link must not glue two
// groups together. Singletons are dropped; members and groups come out
// sorted so the view is order-independent of its input.
func Groups(edges []*models.ScoredEdge, minScore float64) []models.DuplicateGroup {
	uf := NewUnionFind()

	for _, e := range edges {
		if e.FinalScore < minScore || e.Evidence.Empty() {
			continue
		}
		a := models.PRHead{Number: e.PRNumber, HeadSHA: e.HeadSHA}
		b := models.PRHead{Number: e.OtherPR, HeadSHA: e.OtherSHA}
		uf.Union(a, b)
	}

	members := make(map[models.PRHead][]models.PRHead)
	for head := range uf.parent {
		root := uf.Find(head)
		members[root] = append(members[root], head)
	}

	var groups []models.DuplicateGroup
	for _, set := range members {
		if len(set) < 2 {
			continue
		}
		sort.Slice(set, func(i, j int) bool { return set[i].Number < set[j].Number })
		groups = append(groups, models.DuplicateGroup{Members: set})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Members[0].Number < groups[j].Members[0].Number
	})

	return groups
}
