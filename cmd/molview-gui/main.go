package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/philipparndt/gomol/internal/app"
	"github.com/philipparndt/gomol/internal/config"
	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/internal/notify"
	"github.com/philipparndt/gomol/internal/scene"
	"github.com/philipparndt/gomol/pkg/viewer"
)

// Window is the desktop front-end around an app.App
type Window struct {
	ctx    context.Context
	core   *app.App
	window fyne.Window
	view   *viewer.MoleculeView

	statusLabel       *widget.Label
	metadataLabel     *widget.Label
	framesLabel       *widget.Label
	measurementsLabel *widget.Label
	sourceEntry       *widget.Entry

	mu         sync.Mutex
	rendered   []scene.RenderedAtom
	lastCamera engine.CameraState
	watched    string
}

func main() {
	cfg, err := config.FromEnv(config.Default())
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	logger := app.NewLogger(os.Stderr, os.Getenv("GOMOL_DEBUG") != "")
	core, err := app.New(ctx, cfg, logger, app.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer core.Close()

	a := fyneapp.New()
	w := &Window{
		ctx:    ctx,
		core:   core,
		window: a.NewWindow("gomol - Molecular Structure Viewer"),
	}
	w.setupUI()

	initial := cfg.DefaultStructure
	if len(os.Args) > 1 {
		initial = os.Args[1]
	}
	w.sourceEntry.SetText(initial)
	w.open(initial)

	w.window.Resize(fyne.NewSize(1200, 800))
	w.window.ShowAndRun()
}

func (w *Window) setupUI() {
	w.statusLabel = widget.NewLabel("Ready")
	w.metadataLabel = widget.NewLabel("")
	w.metadataLabel.Wrapping = fyne.TextWrapWord
	w.framesLabel = widget.NewLabel("Frames: -")
	w.measurementsLabel = widget.NewLabel("No measurements")
	w.measurementsLabel.Wrapping = fyne.TextWrapWord

	w.view = viewer.NewMoleculeView()
	w.view.SetOnAtomTap(w.atomTapped)
	w.view.SetOnEmptyTap(func() { go w.core.Scene.ClickEmpty() })

	w.core.Notifications.Subscribe(func(m notify.Message) {
		fyne.Do(func() { w.statusLabel.SetText(m.Text) })
	})
	w.core.Scene.OnChange(func() { fyne.Do(w.refresh) })

	// Source controls
	w.sourceEntry = widget.NewEntry()
	w.sourceEntry.SetPlaceHolder("PDB ID, URL or s3://bucket/key")
	w.sourceEntry.OnSubmitted = w.open
	loadButton := widget.NewButton("Load", func() { w.open(w.sourceEntry.Text) })
	openButton := widget.NewButton("Open File", w.showFileDialog)

	// Display controls
	reprSelect := widget.NewSelect(names(engine.RepresentationKinds), func(s string) {
		go func() { _ = w.core.Viewer.SetRepresentation(w.ctx, engine.RepresentationKind(s)) }()
	})
	reprSelect.Selected = string(w.core.Config.DefaultRepresentation)
	colorSelect := widget.NewSelect(names(engine.ColorThemes), func(s string) {
		go func() { _ = w.core.Viewer.SetColor(w.ctx, engine.ColorTheme(s)) }()
	})
	colorSelect.Selected = string(w.core.Config.DefaultColor)

	// Measurement controls
	arm := func(kind engine.MeasurementKind) func() {
		return func() { _ = w.core.Viewer.ArmMeasurement(kind) }
	}
	measureButtons := container.NewGridWithColumns(3,
		widget.NewButton("Distance", arm(engine.Distance)),
		widget.NewButton("Angle", arm(engine.Angle)),
		widget.NewButton("Dihedral", arm(engine.Dihedral)),
	)
	cancelButton := widget.NewButton("Cancel", func() { _ = w.core.Viewer.CancelMeasurement() })
	clearButton := widget.NewButton("Clear Measurements", func() {
		go func() { _ = w.core.Viewer.ClearMeasurements(w.ctx) }()
	})

	// Playback controls
	playButton := widget.NewButton("Play", func() {
		go func() { _ = w.core.Viewer.Play(w.ctx) }()
	})
	pauseButton := widget.NewButton("Pause", func() {
		go func() { _ = w.core.Viewer.Pause(w.ctx) }()
	})

	instructions := widget.NewLabel(
		"Instructions:\n" +
			"• Drag to rotate the view\n" +
			"• Scroll to zoom in/out\n" +
			"• Choose a measurement, then click atoms",
	)
	instructions.Wrapping = fyne.TextWrapWord

	infoPanel := container.NewVBox(
		widget.NewLabel("Structure:"),
		w.sourceEntry,
		container.NewGridWithColumns(2, loadButton, openButton),
		w.metadataLabel,
		widget.NewSeparator(),
		widget.NewLabel("Representation:"),
		reprSelect,
		widget.NewLabel("Color:"),
		colorSelect,
		widget.NewSeparator(),
		widget.NewLabel("Measure:"),
		measureButtons,
		container.NewGridWithColumns(2, cancelButton, clearButton),
		w.measurementsLabel,
		widget.NewSeparator(),
		widget.NewLabel("Trajectory:"),
		w.framesLabel,
		container.NewGridWithColumns(2, playButton, pauseButton),
		widget.NewSeparator(),
		instructions,
	)

	infoScroll := container.NewVScroll(infoPanel)
	infoScroll.SetMinSize(fyne.NewSize(300, 0))

	content := container.NewBorder(
		nil,           // top
		w.statusLabel, // bottom
		nil,           // left
		infoScroll,    // right
		w.view,        // center
	)
	w.window.SetContent(content)
}

func names[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

func (w *Window) showFileDialog() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w.window)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		path := reader.URI().Path()
		w.sourceEntry.SetText(path)
		w.open(path)
	}, w.window)
}

// open loads arg in the background; local files are watched for changes
func (w *Window) open(arg string) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return
	}
	go func() {
		w.mu.Lock()
		previous := w.watched
		w.watched = ""
		w.mu.Unlock()
		if previous != "" {
			_ = w.core.Viewer.Unwatch(previous)
		}

		var err error
		if app.IsLocal(arg) {
			err = w.core.OpenAndWatch(w.ctx, arg)
			if err == nil {
				w.mu.Lock()
				w.watched = arg
				w.mu.Unlock()
			}
		} else {
			err = w.core.Open(w.ctx, arg)
		}
		fyne.Do(func() { w.loaded(err) })
	}()
}

func (w *Window) loaded(err error) {
	w.framesLabel.SetText(fmt.Sprintf("Frames: %d", w.core.Viewer.FrameCount()))
	if err != nil {
		w.metadataLabel.SetText("")
		return
	}
	if meta, ok := w.core.Viewer.Metadata(); ok {
		text := meta.Title
		if meta.Resolution != "" {
			text += "\nResolution: " + meta.Resolution
		}
		if meta.Organism != "" {
			text += "\nOrganism: " + meta.Organism
		}
		w.metadataLabel.SetText(text)
	} else {
		w.metadataLabel.SetText(w.core.Viewer.Source())
	}
	w.refresh()
}

// refresh copies the scene into the view; it runs on the UI goroutine
func (w *Window) refresh() {
	rendered := w.core.Scene.RenderedAtoms()
	atoms := make([]viewer.Atom, len(rendered))
	for i, r := range rendered {
		atoms[i] = viewer.Atom{
			Position: r.Position,
			Element:  r.Element,
			Chain:    r.Chain,
			ResName:  r.ResName,
			ResSeq:   r.ResSeq,
			Trace:    r.Trace,
			Kind:     string(r.Kind),
			Theme:    string(r.Theme),
		}
	}

	cam := w.core.Scene.Snapshot()
	w.mu.Lock()
	w.rendered = rendered
	cameraMoved := cam != w.lastCamera
	w.lastCamera = cam
	w.mu.Unlock()

	if cameraMoved {
		w.view.SetCamera(viewer.NewCameraLookAt(cam.Position, cam.Target, cam.Up, cam.FOV))
	}
	w.view.SetAtoms(atoms)

	measurements := w.core.Scene.Measurements()
	if len(measurements) == 0 {
		w.measurementsLabel.SetText("No measurements")
		return
	}
	lines := make([]string, len(measurements))
	for i, m := range measurements {
		lines[i] = fmt.Sprintf("%s %.2f %s: %s", m.Kind, m.Value, m.Unit, strings.Join(m.Atoms, " / "))
	}
	w.measurementsLabel.SetText(strings.Join(lines, "\n"))
}

func (w *Window) atomTapped(index int) {
	w.mu.Lock()
	if index < 0 || index >= len(w.rendered) {
		w.mu.Unlock()
		return
	}
	atom := w.rendered[index]
	w.mu.Unlock()

	go func() { _ = w.core.Scene.ClickAtom(atom.Structure, atom.Index) }()
}
