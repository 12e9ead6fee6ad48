package repr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/internal/engine/enginetest"
	"github.com/philipparndt/gomol/pkg/geometry"
)

func newController(fake *enginetest.Fake) *Controller {
	return New(Deps{
		Structures:      fake,
		Components:      fake,
		Representations: fake,
		Camera:          fake,
	})
}

func loaded(t *testing.T) *enginetest.Fake {
	t.Helper()
	fake := enginetest.New()
	fake.AddStructure("s")
	fake.AddComponent("s", engine.ScopePolymer, enginetest.Rep{Kind: engine.Cartoon, Theme: engine.ChainID})
	fake.AutoFrame = true
	return fake
}

func TestScopeFor(t *testing.T) {
	assert.Equal(t, engine.ScopeAll, ScopeFor(engine.BallAndStick))
	assert.Equal(t, engine.ScopePolymer, ScopeFor(engine.Cartoon))
	assert.Equal(t, engine.ScopePolymer, ScopeFor(engine.MolecularSurface))
	assert.Equal(t, engine.ScopePolymer, ScopeFor(engine.GaussianSurface))
}

func TestSetRepresentationNoStructures(t *testing.T) {
	fake := enginetest.New()
	require.NoError(t, newController(fake).SetRepresentation(context.Background(), engine.Cartoon))
	assert.Empty(t, fake.Calls())
}

func TestSwitchToBallAndStickLeavesOneRepresentation(t *testing.T) {
	fake := loaded(t)
	c := newController(fake)

	require.NoError(t, c.SetRepresentation(context.Background(), engine.BallAndStick))

	assert.Equal(t, []enginetest.Rep{{Kind: engine.BallAndStick, Theme: engine.ChainID}}, fake.Reps("s"))
	components := fake.ListFor(engine.StructureRef{ID: "s"})
	require.Len(t, components, 1)
	assert.Equal(t, engine.ScopeAll, components[0].Scope)
	assert.Equal(t, engine.BallAndStick, c.Kind())
}

func TestSwitchBackReusesBoundComponent(t *testing.T) {
	fake := loaded(t)
	c := newController(fake)
	ctx := context.Background()

	require.NoError(t, c.SetRepresentation(ctx, engine.BallAndStick))
	require.NoError(t, c.SetRepresentation(ctx, engine.Cartoon))
	require.NoError(t, c.SetRepresentation(ctx, engine.MolecularSurface))

	assert.Equal(t, []enginetest.Rep{{Kind: engine.MolecularSurface, Theme: engine.ChainID}}, fake.Reps("s"))
	assert.Len(t, fake.ListFor(engine.StructureRef{ID: "s"}), 1)
}

func TestCameraIsPreserved(t *testing.T) {
	fake := loaded(t)
	before := engine.CameraState{
		Position: geometry.NewVector3(3, 4, 5),
		Target:   geometry.NewVector3(1, 1, 1),
		Up:       geometry.NewVector3(0, 1, 0),
		FOV:      0.5,
	}
	fake.SetCamera(before)

	require.NoError(t, newController(fake).SetRepresentation(context.Background(), engine.GaussianSurface))
	assert.Equal(t, before, fake.Camera())
}

func TestOperationOrder(t *testing.T) {
	fake := loaded(t)
	fake.ResetCalls()

	require.NoError(t, newController(fake).SetRepresentation(context.Background(), engine.BallAndStick))

	assert.Equal(t, []string{
		"components.findOrCreate all",
		"components.remove c1",
		"camera.snapshot",
		"representations.add c2 ball-and-stick chain-id",
		"camera.restore",
	}, fake.Calls())
}

func TestPolymerFallsBackToAll(t *testing.T) {
	fake := enginetest.New()
	fake.AddStructure("lig")
	fake.EmptyScopes = map[engine.Scope]bool{engine.ScopePolymer: true}

	require.NoError(t, newController(fake).SetRepresentation(context.Background(), engine.Cartoon))

	components := fake.ListFor(engine.StructureRef{ID: "lig"})
	require.Len(t, components, 1)
	assert.Equal(t, engine.ScopeAll, components[0].Scope)
	assert.Equal(t, []enginetest.Rep{{Kind: engine.Cartoon, Theme: engine.ChainID}}, fake.Reps("lig"))
}

func TestComponentCreationFailureLeavesSceneUntouched(t *testing.T) {
	fake := loaded(t)
	fake.FindOrCreateErr = map[engine.Scope]error{
		engine.ScopePolymer: errors.New("no polymer"),
		engine.ScopeAll:     errors.New("no atoms"),
	}
	fake.ResetCalls()

	err := newController(fake).SetRepresentation(context.Background(), engine.Cartoon)
	assert.ErrorIs(t, err, ErrComponentCreationFailed)
	assert.Equal(t, []string{
		"components.findOrCreate polymer",
		"components.findOrCreate all",
	}, fake.Calls())
	assert.Equal(t, []enginetest.Rep{{Kind: engine.Cartoon, Theme: engine.ChainID}}, fake.Reps("s"))
}

func TestBallAndStickDoesNotFallBack(t *testing.T) {
	fake := loaded(t)
	fake.EmptyScopes = map[engine.Scope]bool{engine.ScopeAll: true}
	fake.ResetCalls()

	err := newController(fake).SetRepresentation(context.Background(), engine.BallAndStick)
	assert.ErrorIs(t, err, ErrComponentCreationFailed)
	assert.Equal(t, []string{"components.findOrCreate all"}, fake.Calls())
}

func TestSetColorUpdatesAndIsRemembered(t *testing.T) {
	fake := loaded(t)
	c := newController(fake)
	ctx := context.Background()

	require.NoError(t, c.SetColor(ctx, engine.Rainbow))
	assert.Equal(t, []enginetest.Rep{{Kind: engine.Cartoon, Theme: engine.Rainbow}}, fake.Reps("s"))

	require.NoError(t, c.SetRepresentation(ctx, engine.BallAndStick))
	assert.Equal(t, []enginetest.Rep{{Kind: engine.BallAndStick, Theme: engine.Rainbow}}, fake.Reps("s"))
	assert.Equal(t, engine.Rainbow, c.Theme())
}

func TestSetColorWithoutStructures(t *testing.T) {
	fake := enginetest.New()
	c := newController(fake)
	require.NoError(t, c.SetColor(context.Background(), engine.ElementSymbol))
	assert.Empty(t, fake.Calls())
	assert.Equal(t, engine.ElementSymbol, c.Theme())
}
