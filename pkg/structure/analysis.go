package structure

import (
	"fmt"
	"sort"

	"github.com/philipparndt/gomol/pkg/geometry"
)

// Stats summarises the first model of a structure
type Stats struct {
	Name        string
	Models      int
	Atoms       int
	PolymerAtom int
	HeteroAtoms int
	Waters      int
	Chains      []string
	Residues    int
	Elements    []ElementCount
	BoundingBox geometry.BoundingBox
	Dimensions  geometry.Vector3
	Centroid    geometry.Vector3
}

// ElementCount is the number of atoms of one chemical element
type ElementCount struct {
	Symbol string
	Count  int
}

// Analyze computes statistics for the first model of the structure
func Analyze(s *Structure) Stats {
	stats := Stats{
		Name:        s.Name,
		Models:      s.FrameCount(),
		Chains:      s.Chains(),
		BoundingBox: geometry.NewBoundingBox(),
	}
	if len(s.Models) == 0 {
		return stats
	}

	model := s.Models[0]
	elements := make(map[string]int)
	positions := make([]geometry.Vector3, 0, len(model.Atoms))
	residues := make(map[string]bool)

	for _, atom := range model.Atoms {
		stats.Atoms++
		switch {
		case atom.IsWater():
			stats.Waters++
		case atom.Hetero:
			stats.HeteroAtoms++
		default:
			stats.PolymerAtom++
		}
		elements[atom.Element]++
		residues[fmt.Sprintf("%s/%d/%s", atom.Chain, atom.ResSeq, atom.ResName)] = true
		stats.BoundingBox.Extend(atom.Position)
		positions = append(positions, atom.Position)
	}

	stats.Residues = len(residues)
	stats.Dimensions = stats.BoundingBox.Size()
	stats.Centroid = geometry.Centroid(positions)

	for symbol, count := range elements {
		stats.Elements = append(stats.Elements, ElementCount{Symbol: symbol, Count: count})
	}
	sort.Slice(stats.Elements, func(i, j int) bool {
		if stats.Elements[i].Count != stats.Elements[j].Count {
			return stats.Elements[i].Count > stats.Elements[j].Count
		}
		return stats.Elements[i].Symbol < stats.Elements[j].Symbol
	})

	return stats
}

// FormatVector formats a vector for display
func FormatVector(v geometry.Vector3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
