// Package playback plays multi-model structures as a looping animation
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/philipparndt/gomol/internal/engine"
)

// DefaultFPS is the playback rate used when none is configured
const DefaultFPS = 30

// ErrNotATrajectory is returned by Play when the structure has a single frame
var ErrNotATrajectory = errors.New("structure has no trajectory")

// Controller starts and stops the model-index animation
type Controller struct {
	animation  engine.Animation
	structures engine.Structures
	fps        int
	logger     *slog.Logger

	mu      sync.Mutex
	playing bool
}

// New creates a controller. fps <= 0 selects DefaultFPS.
func New(animation engine.Animation, structures engine.Structures, fps int, logger *slog.Logger) *Controller {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{animation: animation, structures: structures, fps: fps, logger: logger}
}

// FrameCount returns the trajectory size of the first structure's first
// model, or 0 when nothing is loaded or the model carries no trajectory info
func (c *Controller) FrameCount() int {
	current := c.structures.Current()
	if len(current) == 0 {
		return 0
	}
	info, ok := c.structures.TrajectoryInfo(current[0])
	if !ok {
		return 0
	}
	return info.Size
}

// Play stops any running animation and starts a forward loop over the model
// index. Single-frame structures are refused after the stop.
func (c *Controller) Play(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.animation.Stop(ctx); err != nil {
		return fmt.Errorf("stop animation: %w", err)
	}
	c.playing = false

	if frames := c.FrameCount(); frames <= 1 {
		return fmt.Errorf("%w: %d frame(s)", ErrNotATrajectory, frames)
	}

	err := c.animation.PlayLoop(ctx, engine.AnimationConfig{
		Target:    engine.AnimModelIndex,
		TargetFPS: c.fps,
		Mode:      engine.LoopModeLoop,
		Direction: engine.DirectionFwd,
	})
	if err != nil {
		return fmt.Errorf("play animation: %w", err)
	}
	c.playing = true
	c.logger.Debug("playback started", "fps", c.fps)
	return nil
}

// Pause stops the animation
func (c *Controller) Pause(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.animation.Stop(ctx); err != nil {
		return fmt.Errorf("stop animation: %w", err)
	}
	c.playing = false
	return nil
}

// Reset marks playback stopped without touching the engine, for use after
// the structure it was playing has been removed
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playing = false
}

// IsPlaying reports whether a loop was started and not stopped since
func (c *Controller) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}
