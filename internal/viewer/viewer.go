// Package viewer is the boundary between a front-end and the controllers.
// Every operation is serialised on the scene lock, reports failures as
// notifications and returned errors, and never lets an engine panic escape.
// Loads release the lock while bytes are fetched.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/philipparndt/gomol/internal/capture"
	"github.com/philipparndt/gomol/internal/config"
	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/internal/journal"
	"github.com/philipparndt/gomol/internal/loader"
	"github.com/philipparndt/gomol/internal/measure"
	"github.com/philipparndt/gomol/internal/notify"
	"github.com/philipparndt/gomol/internal/playback"
	"github.com/philipparndt/gomol/internal/rcsb"
	"github.com/philipparndt/gomol/internal/repr"
	"github.com/philipparndt/gomol/pkg/watcher"
)

// ErrPanic wraps a panic recovered from the engine
var ErrPanic = errors.New("engine panic")

// MetadataSource looks up entry metadata, falling back on failure
type MetadataSource interface {
	Lookup(ctx context.Context, id string) rcsb.Metadata
}

// Journal records committed measurements
type Journal interface {
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
}

// Deps are the collaborators of a Viewer. Metadata and Journal are optional.
type Deps struct {
	Engine   engine.Engine
	Data     engine.Data
	Metadata MetadataSource
	Journal  Journal
	Notifier notify.Notifier
	Logger   *slog.Logger
	Config   config.Config
}

// Viewer is the viewer context shared by every controller
type Viewer struct {
	deps     Deps
	logger   *slog.Logger
	notifier notify.Notifier
	ctx      context.Context
	cancel   context.CancelFunc

	session  *measure.Session
	repr     *repr.Controller
	playback *playback.Controller
	loader   *loader.Pipeline

	mu      sync.Mutex
	loadMu  sync.Mutex
	watcher *watcher.FileWatcher
	frames  int

	stateMu  sync.Mutex
	source   string
	metadata *rcsb.Metadata
}

// New builds a viewer and its controllers
func New(ctx context.Context, deps Deps) (*Viewer, error) {
	if deps.Engine == nil || deps.Data == nil {
		return nil, errors.New("viewer needs an engine and a data source")
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if err := deps.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	v := &Viewer{
		deps:     deps,
		logger:   deps.Logger,
		notifier: deps.Notifier,
		ctx:      ctx,
		cancel:   cancel,
	}
	eng := deps.Engine

	v.session = measure.NewSession(ctx, measure.Deps{
		Picker:        eng,
		Interactivity: eng,
		Measurements:  eng,
		Capturer:      capture.New(eng, eng, deps.Logger.With("component", "capture")),
		Notifier:      deps.Notifier,
		Logger:        deps.Logger.With("component", "measure"),
		OnCommit:      v.recordMeasurement,
	})
	v.repr = repr.New(repr.Deps{
		Structures:      eng,
		Components:      eng,
		Representations: eng,
		Camera:          eng,
		Logger:          deps.Logger.With("component", "repr"),
	})
	v.playback = playback.New(eng, eng, deps.Config.TargetFPS, deps.Logger.With("component", "playback"))
	v.loader = loader.New(eng, deps.Data, loader.Options{
		URLTemplate: deps.Config.RemoteURLTemplate,
		Logger:      deps.Logger.With("component", "loader"),
		SceneLock:   &v.mu,
	})

	// Remembers the configured theme; nothing is loaded yet.
	if err := v.repr.SetColor(ctx, deps.Config.DefaultColor); err != nil {
		cancel()
		return nil, err
	}
	return v, nil
}

// guard recovers engine panics into an error notification
func (v *Viewer) guard(op string, err *error) {
	if r := recover(); r != nil {
		v.logger.Error("recovered panic", "op", op, "panic", r)
		v.notifier.Notify(notify.Error, fmt.Sprintf("%s failed", op))
		*err = fmt.Errorf("%s: %w: %v", op, ErrPanic, r)
	}
}

// ArmMeasurement starts collecting atoms for a measurement
func (v *Viewer) ArmMeasurement(kind engine.MeasurementKind) (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.guard("measure", &err)

	if err := v.session.Arm(kind); err != nil {
		v.notifier.Notify(notify.Error, fmt.Sprintf("Unknown measurement %q", kind))
		return err
	}
	return nil
}

// CancelMeasurement abandons the current measurement
func (v *Viewer) CancelMeasurement() (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.guard("cancel", &err)

	v.session.Cancel()
	return nil
}

// MeasurementState returns a snapshot of the measurement session
func (v *Viewer) MeasurementState() measure.State {
	return v.session.State()
}

// ClearMeasurements removes every measurement from the scene
func (v *Viewer) ClearMeasurements(ctx context.Context) (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.guard("clear measurements", &err)

	if err := v.session.ClearMeasurements(ctx); err != nil {
		v.notifier.Notify(notify.Error, "Failed to clear measurements")
		return err
	}
	return nil
}

// SetGranularityPreference sets the picking granularity used outside of
// measurements
func (v *Viewer) SetGranularityPreference(g engine.Granularity) (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.guard("granularity", &err)

	v.session.SetGranularityPreference(g)
	return nil
}

// SetRepresentation switches the visual style
func (v *Viewer) SetRepresentation(ctx context.Context, kind engine.RepresentationKind) (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.guard("representation", &err)

	if err := v.repr.SetRepresentation(ctx, kind); err != nil {
		v.logger.Error("representation switch failed", "kind", kind, "error", err)
		v.notifier.Notify(notify.Error, fmt.Sprintf("Failed to show %s", kind))
		return err
	}
	return nil
}

// SetColor applies a color theme
func (v *Viewer) SetColor(ctx context.Context, theme engine.ColorTheme) (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.guard("color", &err)

	if err := v.repr.SetColor(ctx, theme); err != nil {
		v.notifier.Notify(notify.Error, fmt.Sprintf("Failed to apply %s colors", theme))
		return err
	}
	return nil
}

// Play starts trajectory playback
func (v *Viewer) Play(ctx context.Context) (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.guard("play", &err)

	if err := v.playback.Play(ctx); err != nil {
		if errors.Is(err, playback.ErrNotATrajectory) {
			v.notifier.Notify(notify.Warning, "Structure has a single frame")
		} else {
			v.notifier.Notify(notify.Error, "Failed to play trajectory")
		}
		return err
	}
	return nil
}

// Pause stops trajectory playback
func (v *Viewer) Pause(ctx context.Context) (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.guard("pause", &err)

	if err := v.playback.Pause(ctx); err != nil {
		v.notifier.Notify(notify.Error, "Failed to pause trajectory")
		return err
	}
	return nil
}

// FrameCount returns the frame count read after the last successful load
func (v *Viewer) FrameCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

// IsPlaying reports whether a trajectory is playing
func (v *Viewer) IsPlaying() bool {
	return v.playback.IsPlaying()
}

// Source returns the identifier or path of the loaded structure
func (v *Viewer) Source() string {
	v.stateMu.Lock()
	defer v.stateMu.Unlock()
	return v.source
}

// Metadata returns the metadata of the loaded remote structure
func (v *Viewer) Metadata() (rcsb.Metadata, bool) {
	v.stateMu.Lock()
	defer v.stateMu.Unlock()
	if v.metadata == nil {
		return rcsb.Metadata{}, false
	}
	return *v.metadata, true
}

// LoadRemote replaces the structure with the one named by id. Entry
// metadata is looked up concurrently with the download and the lookup is
// cancelled when the load fails.
func (v *Viewer) LoadRemote(ctx context.Context, id string) (err error) {
	id = strings.TrimSpace(id)
	var meta *rcsb.Metadata
	err = v.load(ctx, "load", func(ctx context.Context) error {
		lookupCtx, cancelLookup := context.WithCancel(ctx)
		defer cancelLookup()

		g, gctx := errgroup.WithContext(lookupCtx)
		if v.deps.Metadata != nil && !strings.Contains(id, "://") {
			g.Go(func() error {
				m := v.lookupMetadata(gctx, id)
				meta = &m
				return nil
			})
		}

		_, err := v.loader.LoadRemote(ctx, id)
		if err != nil {
			cancelLookup()
		}
		if werr := g.Wait(); err == nil {
			err = werr
		}
		return err
	})
	if err != nil {
		return err
	}

	v.setLoaded(id, meta)
	v.notifier.Notify(notify.Success, "Loaded "+strings.ToUpper(id))
	return nil
}

// lookupMetadata runs outside guard's goroutine; a panicking source yields
// the fallback
func (v *Viewer) lookupMetadata(ctx context.Context, id string) (m rcsb.Metadata) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("recovered panic", "op", "metadata", "panic", r)
			m = rcsb.Fallback(id)
		}
	}()
	return v.deps.Metadata.Lookup(ctx, id)
}

// LoadLocal replaces the structure with the file at path
func (v *Viewer) LoadLocal(ctx context.Context, path string) (err error) {
	err = v.load(ctx, "load", func(ctx context.Context) error {
		_, err := v.loader.LoadLocal(ctx, path)
		return err
	})
	if err != nil {
		return err
	}

	v.setLoaded(path, nil)
	v.notifier.Notify(notify.Success, "Loaded File")
	return nil
}

// load runs a pipeline without holding the facade lock; the pipeline takes
// it around each scene mutation so a slow fetch blocks only this load.
func (v *Viewer) load(ctx context.Context, op string, run func(context.Context) error) (err error) {
	if !v.loadMu.TryLock() {
		v.notifier.Notify(notify.Warning, "A structure is already loading")
		return loader.ErrLoadInProgress
	}
	defer v.loadMu.Unlock()
	defer v.guard(op, &err)

	v.locked(func() {
		// Collected atoms and the running loop belong to the old structure.
		v.session.Cancel()
		if err := v.playback.Pause(ctx); err != nil {
			v.logger.Warn("failed to stop playback before load", "error", err)
			v.playback.Reset()
		}
		v.frames = 0
		v.setLoaded("", nil)
	})

	if err := run(ctx); err != nil {
		v.notifier.Notify(notify.Error, "Failed to load.")
		return err
	}

	v.locked(func() {
		v.frames = v.playback.FrameCount()
		if kind := v.deps.Config.DefaultRepresentation; kind != "" && kind != engine.Cartoon {
			if err := v.repr.SetRepresentation(ctx, kind); err != nil {
				v.logger.Warn("default representation not applied", "kind", kind, "error", err)
			}
		}
		if theme := v.repr.Theme(); theme != engine.ChainID {
			if err := v.repr.SetColor(ctx, theme); err != nil {
				v.logger.Warn("color theme not applied", "theme", theme, "error", err)
			}
		}
	})
	return nil
}

func (v *Viewer) locked(fn func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn()
}

func (v *Viewer) setLoaded(source string, meta *rcsb.Metadata) {
	v.stateMu.Lock()
	defer v.stateMu.Unlock()
	v.source = source
	v.metadata = meta
}

// Watch reloads the local file at path whenever it changes on disk
func (v *Viewer) Watch(path string) (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.guard("watch", &err)

	if v.watcher == nil {
		fw, err := watcher.NewFileWatcher(v.deps.Config.WatchDebounce, v.logger.With("component", "watcher"))
		if err != nil {
			return err
		}
		fw.Start()
		v.watcher = fw
	}
	return v.watcher.Watch([]string{path}, func(changed string) {
		v.logger.Info("structure file changed, reloading", "path", changed)
		if err := v.LoadLocal(v.ctx, changed); err != nil {
			v.logger.Warn("reload failed", "path", changed, "error", err)
		}
	})
}

// Unwatch stops reloading path
func (v *Viewer) Unwatch(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.watcher == nil {
		return nil
	}
	return v.watcher.Unwatch(path)
}

func (v *Viewer) recordMeasurement(m engine.Measurement) {
	if v.deps.Journal == nil {
		return
	}
	source := v.Source()
	if source == "" {
		source = string(m.Structure)
	}
	if !strings.Contains(source, "://") && filepath.IsAbs(source) {
		source = filepath.Base(source)
	}
	if _, err := v.deps.Journal.Record(v.ctx, journal.FromMeasurement(source, m)); err != nil {
		v.logger.Warn("failed to record measurement", "error", err)
	}
}

// Close stops playback and file watching and releases the pick stream
func (v *Viewer) Close() (err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	defer v.guard("close", &err)

	v.session.Close()
	var errs []error
	if err := v.playback.Pause(context.Background()); err != nil {
		errs = append(errs, err)
	}
	if v.watcher != nil {
		errs = append(errs, v.watcher.Close())
		v.watcher = nil
	}
	v.cancel()
	return errors.Join(errs...)
}
