// Package loader replaces the loaded structure with a new one fetched from a
// remote source or read from disk.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/philipparndt/gomol/internal/engine"
)

// DefaultURLTemplate resolves PDB identifiers against the RCSB file server
const DefaultURLTemplate = "https://files.rcsb.org/download/{id}.cif"

var (
	// ErrLoadFailed matches every *LoadError
	ErrLoadFailed = errors.New("load failed")

	// ErrLoadInProgress is returned when a load is requested while another
	// one is still running
	ErrLoadInProgress = errors.New("load already in progress")
)

// Step names a stage of the pipeline
type Step string

const (
	StepResolve Step = "resolve"
	StepClear   Step = "clear"
	StepFetch   Step = "fetch"
	StepRead    Step = "read"
	StepParse   Step = "parse"
	StepPreset  Step = "preset"
)

// LoadError reports the step at which a load failed
type LoadError struct {
	Step   Step
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Source, e.Step, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is makes every LoadError match ErrLoadFailed
func (e *LoadError) Is(target error) bool { return target == ErrLoadFailed }

// Request describes where the bytes come from and how to parse them
type Request struct {
	Source string
	Format engine.Format
	Binary bool
	Remote bool
	Label  string
}

// Pipeline runs loads one at a time
type Pipeline struct {
	structures  engine.Structures
	data        engine.Data
	urlTemplate string
	logger      *slog.Logger
	scene       sync.Locker

	mu sync.Mutex
}

// Options configure a Pipeline
type Options struct {
	// URLTemplate builds remote URLs; "{id}" is replaced by the lower-cased
	// identifier
	URLTemplate string
	Logger      *slog.Logger
	// SceneLock is held while the pipeline mutates the scene; it is released
	// while bytes are fetched or read
	SceneLock sync.Locker
}

type nopLocker struct{}

func (nopLocker) Lock()   {}
func (nopLocker) Unlock() {}

// New creates a pipeline
func New(structures engine.Structures, data engine.Data, opts Options) *Pipeline {
	if opts.URLTemplate == "" {
		opts.URLTemplate = DefaultURLTemplate
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.SceneLock == nil {
		opts.SceneLock = nopLocker{}
	}
	return &Pipeline{
		structures:  structures,
		data:        data,
		urlTemplate: opts.URLTemplate,
		logger:      opts.Logger,
		scene:       opts.SceneLock,
	}
}

var identifier = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ResolveRemote turns an identifier or URL into a request. URLs are used as
// given, identifiers are substituted into the URL template.
func (p *Pipeline) ResolveRemote(id string) (Request, error) {
	id = strings.TrimSpace(id)
	if strings.Contains(id, "://") {
		format, binary := FormatForPath(id)
		return Request{Source: id, Format: format, Binary: binary, Remote: true, Label: id}, nil
	}
	if !identifier.MatchString(id) {
		return Request{}, fmt.Errorf("invalid structure identifier %q", id)
	}
	url := strings.ReplaceAll(p.urlTemplate, "{id}", strings.ToLower(id))
	format, binary := FormatForPath(url)
	return Request{Source: url, Format: format, Binary: binary, Remote: true, Label: strings.ToUpper(id)}, nil
}

// FormatForPath infers the structure format from a file name or URL
func FormatForPath(path string) (engine.Format, bool) {
	if i := strings.IndexAny(path, "?#"); i >= 0 && strings.Contains(path, "://") {
		path = path[:i]
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bcif":
		return engine.FormatMMCIF, true
	case ".pdb", ".ent":
		return engine.FormatPDB, false
	}
	return engine.FormatMMCIF, false
}

// LoadRemote replaces the loaded structure with the one named by id
func (p *Pipeline) LoadRemote(ctx context.Context, id string) (engine.Trajectory, error) {
	req, err := p.ResolveRemote(id)
	if err != nil {
		return engine.Trajectory{}, &LoadError{Step: StepResolve, Source: id, Err: err}
	}
	return p.Load(ctx, req)
}

// LoadLocal replaces the loaded structure with the one stored at path
func (p *Pipeline) LoadLocal(ctx context.Context, path string) (engine.Trajectory, error) {
	format, binary := FormatForPath(path)
	return p.Load(ctx, Request{Source: path, Format: format, Binary: binary, Label: filepath.Base(path)})
}

// Load runs the pipeline for an explicit request
func (p *Pipeline) Load(ctx context.Context, req Request) (engine.Trajectory, error) {
	if !p.mu.TryLock() {
		return engine.Trajectory{}, ErrLoadInProgress
	}
	defer p.mu.Unlock()

	fail := func(step Step, err error) (engine.Trajectory, error) {
		p.logger.Warn("load failed", "source", req.Source, "step", step, "error", err)
		return engine.Trajectory{}, &LoadError{Step: step, Source: req.Source, Err: err}
	}

	if err := p.locked(func() error { return p.clear(ctx) }); err != nil {
		return fail(StepClear, err)
	}

	var (
		data []byte
		err  error
	)
	if req.Remote {
		data, err = p.data.FetchRemote(ctx, req.Source, req.Binary)
		if err != nil {
			return fail(StepFetch, err)
		}
	} else {
		data, err = p.data.ReadLocal(ctx, req.Source, req.Binary)
		if err != nil {
			return fail(StepRead, err)
		}
	}
	p.logger.Debug("structure data received", "source", req.Source, "bytes", len(data), "format", req.Format)

	var (
		traj engine.Trajectory
		step Step
	)
	err = p.locked(func() error {
		step = StepParse
		traj, err = p.structures.ParseTrajectory(ctx, engine.RawData{Bytes: data, Binary: req.Binary, Label: req.Label}, req.Format)
		if err != nil {
			p.discardPartial(ctx)
			return err
		}
		step = StepPreset
		if err := p.structures.ApplyDefaultPreset(ctx, traj); err != nil {
			p.discardPartial(ctx)
			return err
		}
		return nil
	})
	if err != nil {
		return fail(step, err)
	}

	p.logger.Info("structure loaded", "source", req.Source, "label", req.Label, "frames", traj.FrameCount)
	return traj, nil
}

// locked runs fn with the scene lock held; the lock is released on panic too
func (p *Pipeline) locked(fn func() error) error {
	p.scene.Lock()
	defer p.scene.Unlock()
	return fn()
}

func (p *Pipeline) clear(ctx context.Context) error {
	current := p.structures.Current()
	if len(current) == 0 {
		return nil
	}
	return p.structures.RemoveStructures(ctx, current)
}

// discardPartial removes whatever a failed parse or preset left behind
func (p *Pipeline) discardPartial(ctx context.Context) {
	if err := p.clear(ctx); err != nil {
		p.logger.Warn("failed to discard partial structure", "error", err)
	}
}
