package ck

import (
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
)

// Calculate computes the metric record of every class in an assembled registry.
// It only reads the registry.
func Calculate(reg *Registry) map[string]MetricRecord {
	owners := methodOwners(reg)
	out := make(map[string]MetricRecord, reg.Len())
	for _, name := range reg.Names() {
		rec := reg.classes[name]
		out[name] = MetricRecord{
			WMC:  len(rec.Methods),
			DIT:  depth(reg, name, make(map[string]bool)),
			NOC:  rec.Children.Len(),
			RFC:  len(rec.Methods) + rec.Calls.Len(),
			CBO:  coupling(rec, owners),
			LCOM: float64(lackOfCohesion(rec)),
		}
	}
	return out
}

// depth is the longest base chain above name. The visited set covers the current
// path only, so diamonds count through every branch while cycles terminate.
func depth(reg *Registry, name string, visited map[string]bool) int {
	if visited[name] {
		return 0
	}
	rec, ok := reg.classes[name]
	if !ok {
		return 0
	}

	visited[name] = true
	defer delete(visited, name)

	resolved := false
	maxDepth := 0
	for _, base := range rec.BaseClasses {
		if _, ok := reg.classes[base]; !ok {
			continue
		}
		resolved = true
		if d := depth(reg, base, visited); d > maxDepth {
			maxDepth = d
		}
	}
	if !resolved {
		return 0
	}
	return maxDepth + 1
}

// coupling counts distinct call names that match a method of some other class.
func coupling(rec *ClassRecord, owners map[string][]string) int {
	cbo := 0
	for call := range rec.Calls {
		for _, owner := range owners[call] {
			if owner != rec.Name {
				cbo++
				break
			}
		}
	}
	return cbo
}

// CouplingPartners returns, for each call name of the class that matches a method of
// another class, the first such class in lexical order.
func CouplingPartners(reg *Registry, name string) map[string]string {
	rec, ok := reg.classes[name]
	if !ok {
		return nil
	}
	owners := methodOwners(reg)
	partners := make(map[string]string)
	for _, call := range rec.Calls.Sorted() {
		for _, owner := range owners[call] {
			if owner != name {
				partners[call] = owner
				break
			}
		}
	}
	return partners
}

// lackOfCohesion counts method pairs with disjoint inferred attribute sets.
// A method is credited with every class attribute when some call name contains the
// method name; otherwise its set is empty. Two empty sets are disjoint.
func lackOfCohesion(rec *ClassRecord) int {
	n := len(rec.Methods)
	if n < 2 {
		return 0
	}

	all := roaring.New()
	for i := range rec.Attributes.Sorted() {
		all.Add(uint32(i))
	}

	// Every set is either the whole attribute set or empty, so a pair is disjoint
	// unless both methods are mentioned and the class has attributes. Bitmaps keep
	// per-method attribute sets possible without changing the pair loop.
	sets := make([]*roaring.Bitmap, n)
	for i, m := range rec.Methods {
		if callMentions(rec.Calls, m) {
			sets[i] = all
		} else {
			sets[i] = roaring.New()
		}
	}

	disjoint := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if !sets[i].Intersects(sets[j]) {
				disjoint++
			}
		}
	}
	return disjoint
}

func callMentions(calls Set, method string) bool {
	for call := range calls {
		if strings.Contains(call, method) {
			return true
		}
	}
	return false
}
