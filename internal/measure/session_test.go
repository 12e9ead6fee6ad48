package measure

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/gomol/internal/capture"
	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/internal/engine/enginetest"
	"github.com/philipparndt/gomol/internal/notify"
	"github.com/philipparndt/gomol/pkg/loci"
)

type fixture struct {
	fake     *enginetest.Fake
	recorder *notify.Recorder
	session  *Session
	commits  []engine.Measurement
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{fake: enginetest.New(), recorder: &notify.Recorder{}}
	f.fake.AddStructure("s")
	f.session = NewSession(context.Background(), Deps{
		Picker:        f.fake,
		Interactivity: f.fake,
		Measurements:  f.fake,
		Capturer:      capture.New(f.fake, f.fake, nil),
		Notifier:      f.recorder,
		OnCommit:      func(m engine.Measurement) { f.commits = append(f.commits, m) },
	})
	t.Cleanup(f.session.Close)
	return f
}

func atom(index int) engine.PickEvent {
	return engine.PickEvent{Kind: engine.PickElement, Loci: loci.Single("s", 0, index)}
}

func TestArmSubscribesOnceAndForcesElementGranularity(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.session.Arm(engine.Distance))
	require.NoError(t, f.session.Arm(engine.Angle))

	assert.Equal(t, 1, f.fake.Subscribers())
	assert.Equal(t, engine.GranularityElement, f.fake.Granularity())
	state := f.session.State()
	assert.Equal(t, engine.Angle, state.Mode)
	assert.Equal(t, 3, state.Required)
	assert.Equal(t, []string{"Click 2 atoms", "Click 3 atoms"}, f.recorder.Texts())
}

func TestArmRejectsUnknownKind(t *testing.T) {
	f := newFixture(t)
	err := f.session.Arm("volume")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.True(t, f.session.State().IsIdle())
	assert.Zero(t, f.fake.Subscribers())
}

func TestDistanceCommitsAfterTwoClicks(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Arm(engine.Distance))
	f.recorder.Reset()

	f.fake.Click(atom(1))
	assert.Equal(t, []string{"Selected 1/2"}, f.recorder.Texts())
	assert.Len(t, f.session.State().Collected, 1)

	f.fake.Click(atom(2))
	commits := f.fake.Commits()
	require.Len(t, commits, 1)
	assert.Equal(t, engine.Distance, commits[0].Kind)
	require.Len(t, commits[0].Atoms, 2)
	assert.True(t, loci.AreEqual(commits[0].Atoms[0], loci.Single("s", 0, 1)))
	assert.True(t, loci.AreEqual(commits[0].Atoms[1], loci.Single("s", 0, 2)))

	last, ok := f.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Success, last.Level)
	assert.Equal(t, "Measured distance", last.Text)
	assert.Len(t, f.commits, 1)

	assert.True(t, f.session.State().IsIdle())
	assert.Zero(t, f.fake.Subscribers())
	assert.Equal(t, engine.GranularityResidue, f.fake.Granularity())
}

func TestDuplicateClickIsAbsorbed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Arm(engine.Distance))
	f.recorder.Reset()

	f.fake.Click(atom(1))
	err := f.session.HandlePick(context.Background(), atom(1))
	assert.ErrorIs(t, err, capture.ErrDuplicate)

	assert.Equal(t, []string{"Selected 1/2"}, f.recorder.Texts())
	assert.Len(t, f.session.State().Collected, 1)
	assert.Empty(t, f.fake.Commits())
}

func TestNonConsecutiveRepeatIsAccepted(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Arm(engine.Angle))

	f.fake.Click(atom(1))
	f.fake.Click(atom(2))
	f.fake.Click(atom(1))

	commits := f.fake.Commits()
	require.Len(t, commits, 1)
	assert.Len(t, commits[0].Atoms, 3)
}

func TestAngleKeepsClickOrder(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Arm(engine.Angle))

	for _, i := range []int{7, 3, 5} {
		f.fake.Click(atom(i))
	}

	commits := f.fake.Commits()
	require.Len(t, commits, 1)
	var order []int
	for _, l := range commits[0].Atoms {
		_, idx, ok := l.First()
		require.True(t, ok)
		order = append(order, idx)
	}
	assert.Equal(t, []int{7, 3, 5}, order)
}

func TestDihedralNeedsFourAtoms(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Arm(engine.Dihedral))
	f.recorder.Reset()

	for i := 1; i <= 3; i++ {
		f.fake.Click(atom(i))
	}
	assert.Empty(t, f.fake.Commits())
	assert.Equal(t, []string{"Selected 1/4", "Selected 2/4", "Selected 3/4"}, f.recorder.Texts())

	f.fake.Click(atom(4))
	assert.Len(t, f.fake.Commits(), 1)
}

func TestMultiAtomClickWarns(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Arm(engine.Distance))
	f.recorder.Reset()

	f.fake.Click(engine.PickEvent{
		Kind: engine.PickElement,
		Loci: loci.New("s", loci.Element{Unit: 0, Indices: []int{1, 2, 3}}),
	})

	last, ok := f.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Warning, last.Level)
	assert.Equal(t, "Please click exactly one atom", last.Text)
	assert.Empty(t, f.session.State().Collected)
	assert.Equal(t, engine.Distance, f.session.State().Mode)
}

func TestIgnoredClicksLeaveStateUntouched(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Arm(engine.Distance))
	f.recorder.Reset()

	f.fake.Click(engine.PickEvent{Kind: engine.PickNone})
	err := f.session.HandlePick(context.Background(), engine.PickEvent{Kind: engine.PickOther})
	assert.ErrorIs(t, err, capture.ErrNotElement)

	assert.Empty(t, f.recorder.Texts())
	assert.Empty(t, f.session.State().Collected)
}

func TestReArmDiscardsCollected(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Arm(engine.Distance))
	f.fake.Click(atom(1))

	require.NoError(t, f.session.Arm(engine.Dihedral))
	assert.Empty(t, f.session.State().Collected)
	assert.Empty(t, f.fake.Commits())
	assert.Equal(t, 1, f.fake.Subscribers())
}

func TestCancelReturnsToIdle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Arm(engine.Angle))
	f.fake.Click(atom(1))

	f.session.Cancel()
	assert.True(t, f.session.State().IsIdle())
	assert.Zero(t, f.fake.Subscribers())
	assert.Equal(t, engine.GranularityResidue, f.fake.Granularity())

	f.fake.Click(atom(2))
	f.fake.Click(atom(3))
	assert.Empty(t, f.fake.Commits())
}

func TestCommitFailureResetsAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.fake.CommitErr = errors.New("scene busy")
	require.NoError(t, f.session.Arm(engine.Distance))

	require.NoError(t, f.session.HandlePick(context.Background(), atom(1)))
	err := f.session.HandlePick(context.Background(), atom(2))
	assert.ErrorIs(t, err, ErrCommitFailed)

	last, ok := f.recorder.Last()
	require.True(t, ok)
	assert.Equal(t, notify.Error, last.Level)
	assert.True(t, f.session.State().IsIdle())
	assert.Empty(t, f.commits)
}

func TestGranularityPreferenceRestored(t *testing.T) {
	f := newFixture(t)
	f.session.SetGranularityPreference(engine.GranularityElement)
	assert.Equal(t, engine.GranularityElement, f.fake.Granularity())

	f.session.SetGranularityPreference(engine.GranularityResidue)
	require.NoError(t, f.session.Arm(engine.Distance))
	assert.Equal(t, engine.GranularityElement, f.fake.Granularity())

	f.session.Cancel()
	assert.Equal(t, engine.GranularityResidue, f.fake.Granularity())
}

func TestStateReturnsCopies(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Arm(engine.Angle))
	f.fake.Click(atom(4))

	state := f.session.State()
	state.Collected[0].Elements[0].Indices[0] = 42

	_, idx, _ := f.session.State().Collected[0].First()
	assert.Equal(t, 4, idx)
}

func TestClearMeasurements(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.session.Arm(engine.Distance))
	f.fake.Click(atom(1))
	f.fake.Click(atom(2))
	require.Len(t, f.fake.Commits(), 1)

	require.NoError(t, f.session.ClearMeasurements(context.Background()))
	assert.Empty(t, f.fake.Commits())
}
