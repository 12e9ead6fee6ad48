package scene

import (
	"context"
	"fmt"
	"time"

	"github.com/philipparndt/gomol/internal/engine"
)

type animation struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// PlayLoop implements engine.Animation. The loop advances the model index of
// every loaded structure on its own goroutine until stopped.
func (s *Engine) PlayLoop(ctx context.Context, cfg engine.AnimationConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cfg.Target != engine.AnimModelIndex {
		return fmt.Errorf("unsupported animation target %q", cfg.Target)
	}
	fps := cfg.TargetFPS
	if fps <= 0 {
		fps = 30
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anim != nil {
		return ErrAnimationActive
	}

	// The loop outlives the request that started it.
	loopCtx, cancel := context.WithCancel(context.Background())
	a := &animation{cancel: cancel, done: make(chan struct{})}
	s.anim = a
	go s.run(loopCtx, a, time.Second/time.Duration(fps), cfg)

	s.logger.Debug("animation started", "fps", fps, "mode", cfg.Mode, "direction", cfg.Direction)
	return nil
}

// Stop implements engine.Animation. It waits for the loop goroutine to exit.
func (s *Engine) Stop(ctx context.Context) error {
	s.mu.Lock()
	a := s.anim
	s.anim = nil
	s.mu.Unlock()

	if a == nil {
		return nil
	}
	a.cancel()
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Playing reports whether an animation loop is running
func (s *Engine) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anim != nil
}

func (s *Engine) run(ctx context.Context, a *animation, interval time.Duration, cfg engine.AnimationConfig) {
	defer close(a.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !s.advance(a, cfg) {
			return
		}
		s.changed()
	}
}

// advance moves every structure one frame. It reports false once a
// play-once animation has reached its last frame.
func (s *Engine) advance(a *animation, cfg engine.AnimationConfig) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anim != a {
		return false
	}

	step := 1
	if cfg.Direction == engine.DirectionBwd {
		step = -1
	}
	more := false
	for _, e := range s.entries {
		frames := e.data.FrameCount()
		if frames <= 1 {
			continue
		}
		next := e.frame + step
		if cfg.Mode == engine.LoopModeOnce {
			if next < 0 || next >= frames {
				continue
			}
		} else {
			next = (next + frames) % frames
		}
		e.frame = next
		more = true
	}
	if !more {
		s.anim = nil
		a.cancel()
	}
	return more
}
