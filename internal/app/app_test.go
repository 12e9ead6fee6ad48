package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/gomol/internal/config"
	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/internal/notify"
)

func testdata(name string) string {
	return filepath.Join("..", "..", "pkg", "structure", "testdata", name)
}

func newApp(t *testing.T, cfg config.Config) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, nil, Options{Offline: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func collect(a *App) func() []string {
	ch := make(chan string, 64)
	a.Notifications.Subscribe(func(m notify.Message) { ch <- m.Text })
	return func() []string {
		var out []string
		for {
			select {
			case s := <-ch:
				out = append(out, s)
			default:
				return out
			}
		}
	}
}

func TestMeasureDistanceEndToEnd(t *testing.T) {
	cfg := config.Default()
	cfg.JournalPath = filepath.Join(t.TempDir(), "journal.db")
	a := newApp(t, cfg)
	messages := collect(a)
	ctx := context.Background()

	require.NoError(t, a.Open(ctx, testdata("dipeptide.pdb")))
	ref := a.Scene.Current()[0]

	require.NoError(t, a.Viewer.ArmMeasurement(engine.Distance))
	assert.Equal(t, engine.GranularityElement, a.Scene.Granularity())

	n, ok := a.Scene.AtomIndexBySerial(ref.ID, 1)
	require.True(t, ok)
	ca, ok := a.Scene.AtomIndexBySerial(ref.ID, 2)
	require.True(t, ok)

	require.NoError(t, a.Scene.ClickAtom(ref.ID, n))
	require.NoError(t, a.Scene.ClickAtom(ref.ID, n))
	require.NoError(t, a.Scene.ClickAtom(ref.ID, ca))

	assert.Equal(t, []string{"Loaded File", "Click 2 atoms", "Selected 1/2", "Measured distance"}, messages())
	assert.Equal(t, engine.GranularityResidue, a.Scene.Granularity())

	measurements := a.Scene.Measurements()
	require.Len(t, measurements, 1)
	assert.InDelta(t, 1.458, measurements[0].Value, 1e-6)

	entries, err := a.Journal.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "dipeptide.pdb", filepath.Base(entries[0].Source))
	assert.Equal(t, []string{"A ALA 1 N", "A ALA 1 CA"}, entries[0].Atoms)
}

func TestResidueClickWarnsOutsideElementMode(t *testing.T) {
	a := newApp(t, config.Default())
	ctx := context.Background()
	require.NoError(t, a.Open(ctx, testdata("dipeptide.pdb")))
	ref := a.Scene.Current()[0]

	require.NoError(t, a.Viewer.ArmMeasurement(engine.Angle))
	a.Scene.SetGranularity(engine.GranularityResidue)
	messages := collect(a)

	require.NoError(t, a.Scene.ClickAtom(ref.ID, 0))
	assert.Equal(t, []string{"Please click exactly one atom"}, messages())
	assert.Empty(t, a.Viewer.MeasurementState().Collected)
}

func TestRepresentationSwitchKeepsCamera(t *testing.T) {
	a := newApp(t, config.Default())
	ctx := context.Background()
	require.NoError(t, a.Open(ctx, testdata("dipeptide.pdb")))
	ref := a.Scene.Current()[0]
	before := a.Scene.Snapshot()

	for _, kind := range engine.RepresentationKinds {
		require.NoError(t, a.Viewer.SetRepresentation(ctx, kind))
		reps := a.Scene.Representations(ref.ID)
		require.Len(t, reps, 1, kind)
		assert.Equal(t, kind, reps[0].Kind)
	}
	assert.Equal(t, before, a.Scene.Snapshot())

	require.NoError(t, a.Viewer.SetColor(ctx, engine.Hydrophobicity))
	assert.Equal(t, engine.Hydrophobicity, a.Scene.Representations(ref.ID)[0].Theme)
}

func TestTrajectoryPlayback(t *testing.T) {
	a := newApp(t, config.Default())
	ctx := context.Background()
	require.NoError(t, a.Open(ctx, testdata("traj.pdb")))
	assert.Equal(t, 3, a.Viewer.FrameCount())

	require.NoError(t, a.Viewer.Play(ctx))
	require.NoError(t, a.Viewer.Play(ctx))
	assert.True(t, a.Viewer.IsPlaying())
	assert.True(t, a.Scene.Playing())

	require.NoError(t, a.Viewer.Pause(ctx))
	assert.False(t, a.Viewer.IsPlaying())
	assert.False(t, a.Scene.Playing())
}

func TestOpenMissingRemoteFails(t *testing.T) {
	cfg := config.Default()
	cfg.RemoteURLTemplate = "file:///nonexistent/{id}.cif"
	a := newApp(t, cfg)

	err := a.Open(context.Background(), "1ABC")
	require.Error(t, err)
	assert.Empty(t, a.Scene.Current())
	assert.Error(t, a.Open(context.Background(), "  "))
}

func TestOpenAndWatchReloads(t *testing.T) {
	cfg := config.Default()
	cfg.WatchDebounce = 20 * time.Millisecond
	a := newApp(t, cfg)

	data, err := os.ReadFile(testdata("traj.pdb"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "traj.pdb")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	loaded := make(chan struct{}, 8)
	a.Notifications.Subscribe(func(m notify.Message) {
		if m.Text == "Loaded File" {
			loaded <- struct{}{}
		}
	})

	require.NoError(t, a.OpenAndWatch(context.Background(), path))
	<-loaded

	single := strings.SplitN(string(data), "ENDMDL", 2)[0] + "ENDMDL\nEND\n"
	require.NoError(t, os.WriteFile(path, []byte(single), 0o644))

	select {
	case <-loaded:
	case <-time.After(3 * time.Second):
		t.Fatal("file change did not trigger a reload")
	}
	require.Eventually(t, func() bool { return a.Viewer.FrameCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	NewLogger(&buf, false).Debug("hidden")
	NewLogger(&buf, false).Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	NewLogger(&buf, true).Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}
