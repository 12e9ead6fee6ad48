// Package repr switches the visual representation of the loaded structure
// while keeping exactly one representation on screen and the camera still.
package repr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/philipparndt/gomol/internal/engine"
)

// ErrComponentCreationFailed is returned when no component could be found or
// created for the requested scope, even after the fallback to all atoms.
var ErrComponentCreationFailed = errors.New("component creation failed")

// ScopeFor maps a representation kind to the component scope it is drawn on
func ScopeFor(kind engine.RepresentationKind) engine.Scope {
	if kind == engine.BallAndStick {
		return engine.ScopeAll
	}
	return engine.ScopePolymer
}

// Deps are the engine ports the controller drives
type Deps struct {
	Structures      engine.Structures
	Components      engine.Components
	Representations engine.Representations
	Camera          engine.Camera
	Logger          *slog.Logger
}

// Controller applies representation and color changes to the first loaded
// structure
type Controller struct {
	deps Deps

	mu    sync.Mutex
	theme engine.ColorTheme
	kind  engine.RepresentationKind
}

// New creates a controller with the chain-id color theme
func New(deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{deps: deps, theme: engine.ChainID}
}

// Theme returns the color theme applied to new representations
func (c *Controller) Theme() engine.ColorTheme {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.theme
}

// Kind returns the last representation applied, empty before the first switch
func (c *Controller) Kind() engine.RepresentationKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kind
}

// SetRepresentation replaces whatever is drawn for the first structure with
// a single representation of the given kind. It is a no-op when nothing is
// loaded.
func (c *Controller) SetRepresentation(ctx context.Context, kind engine.RepresentationKind) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	structures := c.deps.Structures.Current()
	if len(structures) == 0 {
		return nil
	}
	structure := structures[0]

	// Snapshot before find-or-create so a freshly created component is not
	// mistaken for a stale one.
	stale := c.deps.Components.ListFor(structure)

	target, err := c.findOrCreate(ctx, structure, ScopeFor(kind))
	if err != nil {
		return err
	}

	for _, comp := range stale {
		if comp.ID == target.ID {
			if err := c.deps.Representations.RemoveRepresentations(ctx, comp); err != nil {
				return fmt.Errorf("clear representations of %s: %w", comp.ID, err)
			}
			continue
		}
		if err := c.deps.Components.RemoveComponents(ctx, comp); err != nil {
			return fmt.Errorf("remove component %s: %w", comp.ID, err)
		}
	}

	camera := c.deps.Camera.Snapshot()
	err = c.deps.Representations.AddRepresentation(ctx, target, kind, c.theme)
	c.deps.Camera.Restore(camera)
	if err != nil {
		return fmt.Errorf("add %s representation: %w", kind, err)
	}

	c.kind = kind
	c.deps.Logger.Debug("representation set", "structure", structure.ID, "kind", kind, "component", target.ID)
	return nil
}

func (c *Controller) findOrCreate(ctx context.Context, structure engine.StructureRef, scope engine.Scope) (engine.ComponentRef, error) {
	comp, ok, err := c.deps.Components.FindOrCreate(ctx, structure, scope)
	if err == nil && ok {
		return comp, nil
	}
	if scope != engine.ScopePolymer {
		return engine.ComponentRef{}, componentError(scope, err)
	}

	c.deps.Logger.Debug("no polymer component, falling back to all atoms", "structure", structure.ID, "error", err)
	comp, ok, err = c.deps.Components.FindOrCreate(ctx, structure, engine.ScopeAll)
	if err == nil && ok {
		return comp, nil
	}
	return engine.ComponentRef{}, componentError(engine.ScopeAll, err)
}

func componentError(scope engine.Scope, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrComponentCreationFailed, scope, err)
	}
	return fmt.Errorf("%w: %s selects nothing", ErrComponentCreationFailed, scope)
}

// SetColor recolors every representation of the first structure. The theme
// is remembered for later representation switches even when nothing is
// loaded.
func (c *Controller) SetColor(ctx context.Context, theme engine.ColorTheme) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.theme = theme
	structures := c.deps.Structures.Current()
	if len(structures) == 0 {
		return nil
	}
	components := c.deps.Components.ListFor(structures[0])
	if len(components) == 0 {
		return nil
	}
	if err := c.deps.Representations.UpdateTheme(ctx, components, theme); err != nil {
		return fmt.Errorf("apply %s theme: %w", theme, err)
	}
	return nil
}
