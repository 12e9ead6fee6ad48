package structure

import (
	"strings"

	"github.com/philipparndt/gomol/pkg/geometry"
)

// Atom is one atom record of a model
type Atom struct {
	Serial   int
	Name     string
	ResName  string
	Chain    string
	ResSeq   int
	Element  string
	Hetero   bool // HETATM record
	Position geometry.Vector3
}

// IsWater reports whether the atom belongs to a water residue
func (a Atom) IsWater() bool {
	switch a.ResName {
	case "HOH", "WAT", "DOD", "H2O":
		return true
	}
	return false
}

// IsPolymer reports whether the atom is part of a polymer chain
func (a Atom) IsPolymer() bool {
	return !a.Hetero
}

// IsBackbone reports whether the atom is a trace atom (CA for proteins, P for nucleic acids)
func (a Atom) IsBackbone() bool {
	return a.IsPolymer() && (a.Name == "CA" || a.Name == "P")
}

// Label returns a short human readable atom label like "A DA5 1 O5'"
func (a Atom) Label() string {
	var b strings.Builder
	if a.Chain != "" {
		b.WriteString(a.Chain)
		b.WriteString(" ")
	}
	b.WriteString(a.ResName)
	b.WriteString(" ")
	b.WriteString(itoa(a.ResSeq))
	b.WriteString(" ")
	b.WriteString(a.Name)
	return b.String()
}

// Model is one frame of a structure
type Model struct {
	Atoms []Atom
}

// BoundingBox calculates the bounding box of all atoms of the model
func (m Model) BoundingBox() geometry.BoundingBox {
	bbox := geometry.NewBoundingBox()
	for _, atom := range m.Atoms {
		bbox.Extend(atom.Position)
	}
	return bbox
}

// Structure is a parsed structure file: one or more models sharing topology
type Structure struct {
	Name   string
	Models []Model
}

// NewStructure creates an empty structure
func NewStructure(name string) *Structure {
	return &Structure{Name: name, Models: make([]Model, 0, 1)}
}

// FrameCount returns the number of models
func (s *Structure) FrameCount() int {
	return len(s.Models)
}

// AtomCount returns the number of atoms of the first model
func (s *Structure) AtomCount() int {
	if len(s.Models) == 0 {
		return 0
	}
	return len(s.Models[0].Atoms)
}

// Chains returns the chain identifiers of the first model in order of appearance
func (s *Structure) Chains() []string {
	if len(s.Models) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var chains []string
	for _, atom := range s.Models[0].Atoms {
		if !seen[atom.Chain] {
			seen[atom.Chain] = true
			chains = append(chains, atom.Chain)
		}
	}
	return chains
}
