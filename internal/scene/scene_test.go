package scene

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/pkg/loci"
)

func load(t *testing.T, s *Engine, name string, format engine.Format) engine.StructureRef {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "pkg", "structure", "testdata", name))
	require.NoError(t, err)

	ctx := context.Background()
	traj, err := s.ParseTrajectory(ctx, engine.RawData{Bytes: data, Label: name}, format)
	require.NoError(t, err)
	require.NoError(t, s.ApplyDefaultPreset(ctx, traj))

	current := s.Current()
	require.NotEmpty(t, current)
	return current[len(current)-1]
}

func TestDefaultPreset(t *testing.T) {
	s := New(nil)
	ref := load(t, s, "dipeptide.pdb", engine.FormatPDB)

	components := s.ListFor(ref)
	require.Len(t, components, 2)
	assert.Equal(t, engine.ScopePolymer, components[0].Scope)
	assert.Equal(t, engine.ScopeLigand, components[1].Scope)
	assert.Equal(t, []Rep{
		{Kind: engine.Cartoon, Theme: engine.ChainID},
		{Kind: engine.BallAndStick, Theme: engine.ChainID},
	}, s.Representations(ref.ID))

	info, ok := s.TrajectoryInfo(ref)
	require.True(t, ok)
	assert.Equal(t, engine.TrajectoryInfo{Index: 0, Size: 1}, info)

	rendered := s.RenderedAtoms()
	assert.Len(t, rendered, 7, "water is not drawn")
}

func TestPresetWithoutPolymer(t *testing.T) {
	s := New(nil)
	data := []byte("HETATM    1  C1  LIG A   1       0.000   0.000   0.000  1.00  0.00           C\n")
	traj, err := s.ParseTrajectory(context.Background(), engine.RawData{Bytes: data}, engine.FormatPDB)
	require.NoError(t, err)
	require.NoError(t, s.ApplyDefaultPreset(context.Background(), traj))

	ref := s.Current()[0]
	components := s.ListFor(ref)
	require.Len(t, components, 1)
	assert.Equal(t, engine.ScopeAll, components[0].Scope)

	_, ok, err := s.FindOrCreate(context.Background(), ref, engine.ScopePolymer)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseRejectsBinary(t *testing.T) {
	_, err := New(nil).ParseTrajectory(context.Background(), engine.RawData{Bytes: []byte{0x83}, Binary: true}, engine.FormatMMCIF)
	assert.ErrorContains(t, err, "binary")
}

func TestPresetUnknownTrajectory(t *testing.T) {
	err := New(nil).ApplyDefaultPreset(context.Background(), engine.Trajectory{Ref: "nope"})
	assert.ErrorIs(t, err, ErrUnknownStructure)
}

func TestCameraFramesStructure(t *testing.T) {
	s := New(nil)
	ref := load(t, s, "small.cif", engine.FormatMMCIF)
	data, ok := s.Structure(ref.ID)
	require.True(t, ok)

	cam := s.Snapshot()
	assert.Equal(t, data.Models[0].BoundingBox().Center(), cam.Target)
	assert.Greater(t, cam.Position.Distance(cam.Target), data.Models[0].BoundingBox().Radius())
}

func TestClickAtomGranularity(t *testing.T) {
	s := New(nil)
	ref := load(t, s, "dipeptide.pdb", engine.FormatPDB)

	var events []engine.PickEvent
	var sizes []int
	sub := s.SubscribeClicks(func(ev engine.PickEvent) {
		events = append(events, ev)
		sizes = append(sizes, ev.Loci.Size())
	})
	defer sub.Unsubscribe()

	require.NoError(t, s.ClickAtom(ref.ID, 1))
	s.SetGranularity(engine.GranularityElement)
	require.NoError(t, s.ClickAtom(ref.ID, 5))
	s.ClickEmpty()
	s.ClickOther()

	require.Len(t, events, 4)
	assert.Equal(t, []int{4, 1, 0, 0}, sizes)
	assert.Equal(t, engine.PickElement, events[0].Kind)
	assert.Equal(t, engine.PickNone, events[2].Kind)
	assert.Equal(t, engine.PickOther, events[3].Kind)
	assert.Equal(t, ref.ID+instanceSuffix, events[1].Loci.Structure)

	_, idx, ok := events[1].Loci.First()
	assert.False(t, ok && idx == 5, "pick loci must not outlive dispatch")

	assert.Error(t, s.ClickAtom(ref.ID, 99))
	assert.ErrorIs(t, s.ClickAtom("missing", 0), ErrUnknownStructure)
}

func TestRemapInstanceToRoot(t *testing.T) {
	s := New(nil)
	ref := load(t, s, "dipeptide.pdb", engine.FormatPDB)
	s.SetGranularity(engine.GranularityElement)

	var captured loci.Loci
	sub := s.SubscribeClicks(func(ev engine.PickEvent) {
		captured = s.Remap(ev.Loci, ref).Clone()
	})
	defer sub.Unsubscribe()

	require.NoError(t, s.ClickAtom(ref.ID, 6))
	assert.True(t, loci.AreEqual(captured, loci.Single(ref.ID, 1, 0)))

	other := engine.StructureRef{ID: "other"}
	assert.True(t, s.Remap(captured, other).IsEmpty())
}

func TestMeasurements(t *testing.T) {
	s := New(nil)
	ref := load(t, s, "dipeptide.pdb", engine.FormatPDB)
	ctx := context.Background()

	n := loci.Single(ref.ID, 0, 0)
	ca := loci.Single(ref.ID+instanceSuffix, 0, 1)
	c := loci.Single(ref.ID, 0, 2)

	d, err := s.AddMeasurement(ctx, engine.Distance, n, ca)
	require.NoError(t, err)
	assert.InDelta(t, 1.458, d.Value, 1e-6)
	assert.Equal(t, "Å", d.Unit)
	assert.Equal(t, ref.ID, d.Structure)
	assert.Equal(t, []string{"A ALA 1 N", "A ALA 1 CA"}, d.Atoms)

	a, err := s.AddMeasurement(ctx, engine.Angle, n, ca, c)
	require.NoError(t, err)
	assert.InDelta(t, 111.2, a.Value, 0.1)

	_, err = s.AddMeasurement(ctx, engine.Distance, n)
	assert.Error(t, err)
	_, err = s.AddMeasurement(ctx, engine.Distance, n, loci.Single(ref.ID, 7, 0))
	assert.Error(t, err)

	assert.Len(t, s.Measurements(), 2)
	require.NoError(t, s.RemoveStructures(ctx, []engine.StructureRef{ref}))
	assert.Empty(t, s.Measurements())
	assert.Empty(t, s.Current())
}

func TestRepresentationLifecycle(t *testing.T) {
	s := New(nil)
	ref := load(t, s, "dipeptide.pdb", engine.FormatPDB)
	ctx := context.Background()
	polymer, ligand := s.ListFor(ref)[0], s.ListFor(ref)[1]

	all, ok, err := s.FindOrCreate(ctx, ref, engine.ScopeAll)
	require.NoError(t, err)
	require.True(t, ok)

	again, ok, err := s.FindOrCreate(ctx, ref, engine.ScopeAll)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, all, again)

	before := s.Snapshot()
	require.NoError(t, s.AddRepresentation(ctx, ligand, engine.GaussianSurface, engine.ElementSymbol))
	assert.NotEqual(t, before.Target, s.Snapshot().Target, "adding a representation re-frames the camera")
	s.Restore(before)
	assert.Equal(t, before, s.Snapshot())

	require.NoError(t, s.UpdateTheme(ctx, []engine.ComponentRef{ligand}, engine.Rainbow))
	assert.Equal(t, []Rep{
		{Kind: engine.Cartoon, Theme: engine.ChainID},
		{Kind: engine.BallAndStick, Theme: engine.Rainbow},
		{Kind: engine.GaussianSurface, Theme: engine.Rainbow},
	}, s.Representations(ref.ID))

	require.NoError(t, s.RemoveComponents(ctx, polymer))
	assert.Equal(t, []engine.ComponentRef{ligand, all}, s.ListFor(ref))

	require.NoError(t, s.RemoveRepresentations(ctx, ligand))
	require.NoError(t, s.AddRepresentation(ctx, all, engine.BallAndStick, engine.ElementSymbol))
	assert.Equal(t, []Rep{{Kind: engine.BallAndStick, Theme: engine.ElementSymbol}}, s.Representations(ref.ID))

	assert.ErrorIs(t, s.AddRepresentation(ctx, engine.ComponentRef{ID: "x", Structure: ref.ID}, engine.Cartoon, engine.ChainID), ErrUnknownComponent)
	assert.ErrorIs(t, s.RemoveRepresentations(ctx, polymer), ErrUnknownComponent)
}

func TestAnimationLoop(t *testing.T) {
	s := New(nil)
	ref := load(t, s, "traj.pdb", engine.FormatPDB)
	ctx := context.Background()

	changes := make(chan struct{}, 64)
	cancel := s.OnChange(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer cancel()

	cfg := engine.AnimationConfig{Target: engine.AnimModelIndex, TargetFPS: 50, Mode: engine.LoopModeLoop, Direction: engine.DirectionFwd}
	require.NoError(t, s.PlayLoop(ctx, cfg))
	assert.ErrorIs(t, s.PlayLoop(ctx, cfg), ErrAnimationActive)

	require.Eventually(t, func() bool { return s.Frame(ref.ID) == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return s.Frame(ref.ID) == 0 }, time.Second, time.Millisecond)

	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.Playing())
	require.NoError(t, s.Stop(ctx))
	assert.NotEmpty(t, changes)
}

func TestAnimationOnceStopsAtEnd(t *testing.T) {
	s := New(nil)
	ref := load(t, s, "traj.pdb", engine.FormatPDB)

	cfg := engine.AnimationConfig{Target: engine.AnimModelIndex, TargetFPS: 200, Mode: engine.LoopModeOnce, Direction: engine.DirectionFwd}
	require.NoError(t, s.PlayLoop(context.Background(), cfg))
	require.Eventually(t, func() bool { return !s.Playing() }, time.Second, time.Millisecond)
	assert.Equal(t, 2, s.Frame(ref.ID))

	info, ok := s.TrajectoryInfo(ref)
	require.True(t, ok)
	assert.Equal(t, 3, info.Size)

	assert.Error(t, s.PlayLoop(context.Background(), engine.AnimationConfig{Target: "camera-spin"}))
}
