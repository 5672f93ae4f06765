package ck

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// AssembleHierarchy links every class to the registry classes it inherits from.
// Bases with no record in the registry are ignored. Calling it twice is harmless.
func AssembleHierarchy(reg *Registry) {
	for _, name := range reg.Names() {
		rec := reg.classes[name]
		for _, base := range rec.BaseClasses {
			if parent, ok := reg.classes[base]; ok {
				parent.Children.Add(rec.Name)
			}
		}
	}
}

// methodOwners indexes method names to the sorted classes declaring them.
func methodOwners(reg *Registry) map[string][]string {
	idx := make(map[string][]string)
	for _, name := range reg.Names() {
		seen := make(map[string]bool)
		for _, m := range reg.classes[name].Methods {
			if seen[m] {
				continue
			}
			seen[m] = true
			idx[m] = append(idx[m], name)
		}
	}
	return idx
}

// LinkCallers fills CalledBy: a class calling a method name declared by another class
// is recorded as a caller of that class.
func LinkCallers(reg *Registry) {
	owners := methodOwners(reg)
	for _, name := range reg.Names() {
		for call := range reg.classes[name].Calls {
			for _, owner := range owners[call] {
				if owner != name {
					reg.classes[owner].CalledBy.Add(name)
				}
			}
		}
	}
}

// InheritanceCycles returns groups of classes whose declared bases form a cycle,
// including classes that list themselves as a base. Each group is sorted and the
// groups are ordered by their first member.
func InheritanceCycles(reg *Registry) [][]string {
	names := reg.Names()
	ids := make(map[string]int64, len(names))
	g := simple.NewDirectedGraph()
	for i, name := range names {
		ids[name] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}

	var cycles [][]string
	for _, name := range names {
		for _, base := range reg.classes[name].BaseClasses {
			to, ok := ids[base]
			if !ok {
				continue
			}
			if base == name {
				cycles = append(cycles, []string{name})
				continue
			}
			g.SetEdge(g.NewEdge(simple.Node(ids[name]), simple.Node(to)))
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		cycles = append(cycles, componentNames(scc, names))
	}

	sort.Slice(cycles, func(i, j int) bool {
		return lessNames(cycles[i], cycles[j])
	})
	return dedupeCycles(cycles)
}

func componentNames(nodes []graph.Node, names []string) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, names[n.ID()])
	}
	sort.Strings(out)
	return out
}

func lessNames(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// dedupeCycles drops a self-loop entry repeated by duplicate base declarations.
func dedupeCycles(cycles [][]string) [][]string {
	out := cycles[:0]
	for i, c := range cycles {
		if i > 0 && len(c) == 1 && len(cycles[i-1]) == 1 && c[0] == cycles[i-1][0] {
			continue
		}
		out = append(out, c)
	}
	return out
}
