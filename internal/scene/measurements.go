package scene

import (
	"context"
	"fmt"
	"strings"

	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/pkg/geometry"
	"github.com/philipparndt/gomol/pkg/loci"
)

type record = engine.Measurement

// AddMeasurement implements engine.Measurements. Each Loci must name one atom
// of a loaded structure; values are taken in the current frame.
func (s *Engine) AddMeasurement(ctx context.Context, kind engine.MeasurementKind, atoms ...loci.Loci) (engine.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return engine.Measurement{}, err
	}
	if required := kind.Required(); required == 0 || len(atoms) != required {
		return engine.Measurement{}, fmt.Errorf("%s needs %d atoms, got %d", kind, kind.Required(), len(atoms))
	}

	s.mu.Lock()
	points := make([]geometry.Vector3, len(atoms))
	labels := make([]string, len(atoms))
	for i, l := range atoms {
		e, atom, err := s.resolveLocked(l)
		if err != nil {
			s.mu.Unlock()
			return engine.Measurement{}, err
		}
		points[i] = e.position(atom)
		labels[i] = e.atom(atom).Label()
	}

	m := engine.Measurement{
		ID:        s.id("measurement"),
		Kind:      kind,
		Structure: rootID(atoms[0].Structure),
		Atoms:     labels,
	}
	switch kind {
	case engine.Distance:
		m.Value, m.Unit = points[0].Distance(points[1]), "Å"
	case engine.Angle:
		m.Value, m.Unit = geometry.Angle(points[0], points[1], points[2]), "°"
	case engine.Dihedral:
		m.Value, m.Unit = geometry.Dihedral(points[0], points[1], points[2], points[3]), "°"
	}
	s.measures = append(s.measures, m)
	s.mu.Unlock()

	s.changed()
	return m, nil
}

// ClearMeasurements implements engine.Measurements
func (s *Engine) ClearMeasurements(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.measures = nil
	s.mu.Unlock()

	s.changed()
	return nil
}

// Measurements returns the measurements in the scene in creation order
func (s *Engine) Measurements() []engine.Measurement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.Measurement, len(s.measures))
	copy(out, s.measures)
	return out
}

func rootID(id loci.StructureID) loci.StructureID {
	return loci.StructureID(strings.TrimSuffix(string(id), instanceSuffix))
}

func (s *Engine) resolveLocked(l loci.Loci) (*entry, int, error) {
	e := s.entry(rootID(l.Structure))
	if e == nil {
		return nil, 0, fmt.Errorf("%s: %w", l.Structure, ErrUnknownStructure)
	}
	if l.Size() != 1 {
		return nil, 0, fmt.Errorf("expected one atom, got %d", l.Size())
	}
	unit, local, _ := l.First()
	if int(unit) < 0 || int(unit) >= len(e.units) {
		return nil, 0, fmt.Errorf("unit %d out of range", unit)
	}
	atoms := e.units[unit].atoms
	if local < 0 || local >= len(atoms) {
		return nil, 0, fmt.Errorf("atom %d out of range in unit %d", local, unit)
	}
	return e, atoms[local], nil
}
