package labelcheck

import (
	"sort"
	"strconv"
)

// Axes selects which labels of an example form the rows (groups) and the
// columns (members) of a cross-tabulation.
type Axes struct {
	GroupName  string
	MemberName string
	Group      func(Example) []Label
	Member     func(Example) []Label
}

// ClusterAxes counts assigned labels within each cluster.
var ClusterAxes = Axes{
	GroupName:  "cluster",
	MemberName: "assigned",
	Group:      func(e Example) []Label { return e.ClusterLabels },
	Member:     func(e Example) []Label { return e.AssignedLabels },
}

// AssignedAxes counts cluster labels within each assigned label.
var AssignedAxes = Axes{
	GroupName:  "assigned",
	MemberName: "cluster",
	Group:      func(e Example) []Label { return e.AssignedLabels },
	Member:     func(e Example) []Label { return e.ClusterLabels },
}

// Table is a dense group × member count table over the observed keys.
type Table struct {
	groups  []string
	members []string
	counts  map[string]Counts
}

// BuildTable cross-tabulates examples along axes. Every (group, member)
// pair of an example contributes one count, so an example with several
// labels on either axis counts once per combination. The noise cluster is
// an ordinary group.
func BuildTable(examples []Example, axes Axes) *Table {
	groupSet := make(map[string]struct{})
	memberSet := make(map[string]struct{})
	for _, ex := range examples {
		for _, g := range axes.Group(ex) {
			groupSet[g.ID] = struct{}{}
		}
		for _, m := range axes.Member(ex) {
			memberSet[m.ID] = struct{}{}
		}
	}
	t := &Table{
		groups:  sortedIDs(groupSet),
		members: sortedIDs(memberSet),
		counts:  make(map[string]Counts, len(groupSet)),
	}
	for _, g := range t.groups {
		row := make(Counts, len(t.members))
		for _, m := range t.members {
			row[m] = 0
		}
		t.counts[g] = row
	}
	for _, ex := range examples {
		members := axes.Member(ex)
		for _, g := range axes.Group(ex) {
			row := t.counts[g.ID]
			for _, m := range members {
				row[m.ID]++
			}
		}
	}
	return t
}

// Groups returns the row keys in table order.
func (t *Table) Groups() []string {
	return append([]string(nil), t.groups...)
}

// Members returns the column keys in table order.
func (t *Table) Members() []string {
	return append([]string(nil), t.members...)
}

// Row returns a copy of the counts for group. An unknown group yields nil.
func (t *Table) Row(group string) Counts {
	row, ok := t.counts[group]
	if !ok {
		return nil
	}
	out := make(Counts, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

// Count returns the count for (group, member), 0 when either is unknown.
func (t *Table) Count(group, member string) int {
	return t.counts[group].Get(member)
}

// Equal reports whether both tables have the same keys and counts.
func (t *Table) Equal(other *Table) bool {
	if t == nil || other == nil {
		return t == other
	}
	if !equalStrings(t.groups, other.groups) || !equalStrings(t.members, other.members) {
		return false
	}
	for _, g := range t.groups {
		for _, m := range t.members {
			if t.Count(g, m) != other.Count(g, m) {
				return false
			}
		}
	}
	return true
}

func sortedIDs(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i], out[j]) })
	return out
}

// lessID orders integer ids numerically ahead of all other ids, which are
// ordered lexically. Distinct spellings of one integer ("1", "01", "+1")
// fall back to lexical order so the result is a strict total order.
func lessID(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		if ai != bi {
			return ai < bi
		}
		return a < b
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
