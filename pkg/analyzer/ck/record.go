package ck

import "sort"

// Set is an unordered collection of names.
type Set map[string]struct{}

// NewSet returns a set holding the given names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name into the set.
func (s Set) Add(name string) {
	s[name] = struct{}{}
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Len returns the number of names in the set.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the names in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Union adds every name of other into s.
func (s Set) Union(other Set) {
	for n := range other {
		s[n] = struct{}{}
	}
}

// ClassRecord is the structural model of one class.
type ClassRecord struct {
	Name string `json:"name"`

	// Methods in declaration order. A redefined method is listed once.
	Methods []string `json:"methods"`

	// Attributes are member names seen on attribute access inside method bodies.
	Attributes Set `json:"attributes"`

	// BaseClasses are the simple-identifier bases in declaration order.
	BaseClasses []string `json:"base_classes"`

	// Children are registry classes that list this class as a base.
	Children Set `json:"children"`

	// Calls are callee names seen inside method bodies.
	Calls Set `json:"calls"`

	// CalledBy are other classes whose calls name one of this class's methods.
	CalledBy Set `json:"called_by"`

	// Files that declared the class.
	Files []string `json:"files"`
}

// NewClassRecord returns an empty record for name.
func NewClassRecord(name string) *ClassRecord {
	return &ClassRecord{
		Name:       name,
		Methods:    []string{},
		Attributes: Set{},
		Children:   Set{},
		Calls:      Set{},
		CalledBy:   Set{},
	}
}

// HasMethod reports whether the class declares a method called name.
func (c *ClassRecord) HasMethod(name string) bool {
	for _, m := range c.Methods {
		if m == name {
			return true
		}
	}
	return false
}

func (c *ClassRecord) addFile(path string) {
	for _, f := range c.Files {
		if f == path {
			return
		}
	}
	c.Files = append(c.Files, path)
}

// absorb folds a later definition of the same class into c.
// A method name counts once per class, as it does within one class body, so only
// unseen methods are appended. Sets are unioned and a non-empty base list replaces
// the current one.
func (c *ClassRecord) absorb(other *ClassRecord) {
	for _, m := range other.Methods {
		if !c.HasMethod(m) {
			c.Methods = append(c.Methods, m)
		}
	}
	c.Attributes.Union(other.Attributes)
	c.Calls.Union(other.Calls)
	c.Children.Union(other.Children)
	c.CalledBy.Union(other.CalledBy)
	if len(other.BaseClasses) > 0 {
		c.BaseClasses = append([]string(nil), other.BaseClasses...)
	}
	for _, f := range other.Files {
		c.addFile(f)
	}
}

// Registry maps class names to their records for one analysis run.
// It is not safe for concurrent mutation.
type Registry struct {
	classes map[string]*ClassRecord
	// duplicates maps a class name to every file that declared it, when more than one did.
	duplicates map[string][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		classes:    make(map[string]*ClassRecord),
		duplicates: make(map[string][]string),
	}
}

// Get returns the record for name, if present.
func (r *Registry) Get(name string) (*ClassRecord, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// GetOrCreate returns the record for name, creating an empty one when absent.
func (r *Registry) GetOrCreate(name string) *ClassRecord {
	if c, ok := r.classes[name]; ok {
		return c
	}
	c := NewClassRecord(name)
	r.classes[name] = c
	return c
}

// Len returns the number of classes.
func (r *Registry) Len() int {
	return len(r.classes)
}

// Names returns all class names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.classes))
	for n := range r.classes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Merge folds other into r. Classes already present are combined with absorb,
// and the name is remembered as declared in more than one file.
func (r *Registry) Merge(other *Registry) {
	for _, name := range other.Names() {
		incoming := other.classes[name]
		existing, ok := r.classes[name]
		if !ok {
			r.classes[name] = incoming
			continue
		}
		existing.absorb(incoming)
		if len(existing.Files) > 1 {
			r.duplicates[name] = append([]string(nil), existing.Files...)
		}
	}
}

// Duplicates returns class names declared in more than one file, with their files.
func (r *Registry) Duplicates() map[string][]string {
	out := make(map[string][]string, len(r.duplicates))
	for name, files := range r.duplicates {
		out[name] = append([]string(nil), files...)
	}
	return out
}

// MetricRecord holds the six C&K metrics for one class.
type MetricRecord struct {
	WMC  int     `json:"wmc" yaml:"wmc" toon:"wmc"`
	DIT  int     `json:"dit" yaml:"dit" toon:"dit"`
	NOC  int     `json:"noc" yaml:"noc" toon:"noc"`
	RFC  int     `json:"rfc" yaml:"rfc" toon:"rfc"`
	CBO  int     `json:"cbo" yaml:"cbo" toon:"cbo"`
	LCOM float64 `json:"lcom" yaml:"lcom" toon:"lcom"`
}
