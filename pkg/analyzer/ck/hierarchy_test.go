package ck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// registryOf builds a registry of method-less classes from name -> bases.
func registryOf(bases map[string][]string) *Registry {
	reg := NewRegistry()
	for name, bs := range bases {
		rec := reg.GetOrCreate(name)
		rec.BaseClasses = bs
	}
	return reg
}

func TestAssembleHierarchy(t *testing.T) {
	reg := registryOf(map[string][]string{
		"Base":   nil,
		"Left":   {"Base"},
		"Right":  {"Base", "object"},
		"Bottom": {"Left", "Right", "external.Thing"},
	})

	AssembleHierarchy(reg)

	assert.Equal(t, []string{"Left", "Right"}, mustGet(t, reg, "Base").Children.Sorted())
	assert.Equal(t, []string{"Bottom"}, mustGet(t, reg, "Left").Children.Sorted())
	assert.Equal(t, []string{"Bottom"}, mustGet(t, reg, "Right").Children.Sorted())
	assert.Zero(t, mustGet(t, reg, "Bottom").Children.Len())

	_, created := reg.Get("object")
	assert.False(t, created, "unresolved bases create no record")
	assert.Equal(t, 4, reg.Len())
}

func TestAssembleHierarchy_Reciprocal(t *testing.T) {
	reg := registryOf(map[string][]string{
		"A": {"B", "C", "Missing"},
		"B": {"C"},
		"C": nil,
		"D": {"A", "B"},
	})
	AssembleHierarchy(reg)

	for _, name := range reg.Names() {
		rec := mustGet(t, reg, name)
		for _, base := range rec.BaseClasses {
			if parent, ok := reg.Get(base); ok {
				assert.True(t, parent.Children.Has(name), "%s missing from children of %s", name, base)
			}
		}
	}
}

func TestAssembleHierarchy_Idempotent(t *testing.T) {
	reg := registryOf(map[string][]string{
		"Base":  nil,
		"Child": {"Base"},
		"Twice": {"Base", "Base"},
	})

	AssembleHierarchy(reg)
	first := mustGet(t, reg, "Base").Children.Sorted()
	AssembleHierarchy(reg)

	assert.Equal(t, first, mustGet(t, reg, "Base").Children.Sorted())
	assert.Equal(t, []string{"Child", "Twice"}, first)
}

func TestLinkCallers(t *testing.T) {
	reg := NewRegistry()
	client := reg.GetOrCreate("Client")
	client.Methods = []string{"run"}
	client.Calls = NewSet("send", "run", "print")
	transport := reg.GetOrCreate("Transport")
	transport.Methods = []string{"send"}
	mock := reg.GetOrCreate("Mock")
	mock.Methods = []string{"send", "run"}

	LinkCallers(reg)

	assert.Equal(t, []string{"Client"}, transport.CalledBy.Sorted())
	assert.Equal(t, []string{"Client"}, mock.CalledBy.Sorted())
	assert.Zero(t, client.CalledBy.Len(), "calls to own methods are not recorded")
}

func TestInheritanceCycles(t *testing.T) {
	tests := []struct {
		name  string
		bases map[string][]string
		want  [][]string
	}{
		{
			name:  "acyclic",
			bases: map[string][]string{"A": {"B"}, "B": nil},
			want:  nil,
		},
		{
			name:  "pair",
			bases: map[string][]string{"A": {"B"}, "B": {"A"}, "C": {"A"}},
			want:  [][]string{{"A", "B"}},
		},
		{
			name:  "self",
			bases: map[string][]string{"S": {"S", "S"}},
			want:  [][]string{{"S"}},
		},
		{
			name: "several",
			bases: map[string][]string{
				"X": {"Y"}, "Y": {"Z"}, "Z": {"X"},
				"P": {"Q"}, "Q": {"P"},
				"Loop": {"Loop"},
			},
			want: [][]string{{"Loop"}, {"P", "Q"}, {"X", "Y", "Z"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InheritanceCycles(registryOf(tt.bases))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
