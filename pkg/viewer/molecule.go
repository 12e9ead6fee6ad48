package viewer

import (
	"image/color"
	"math"
	"sort"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/philipparndt/gomol/pkg/geometry"
)

// Representation kinds drawn by MoleculeView
const (
	KindCartoon          = "cartoon"
	KindBallAndStick     = "ball-and-stick"
	KindMolecularSurface = "molecular-surface"
	KindGaussianSurface  = "gaussian-surface"
)

// pickRadius is the maximum screen distance in pixels for a tap to hit an atom
const pickRadius = 20

// Atom is a single drawable atom
type Atom struct {
	Position geometry.Vector3
	Element  string
	Chain    string
	ResName  string
	ResSeq   int
	// Trace marks backbone atoms connected by the cartoon trace
	Trace bool
	Kind  string
	Theme string
}

// MoleculeView renders atoms as depth-sorted discs with a backbone trace
type MoleculeView struct {
	widget.BaseWidget

	mu       sync.Mutex
	atoms    []Atom
	colors   []color.RGBA
	camera   *Camera
	selected map[int]bool

	objects    []fyne.CanvasObject
	dragStart  *fyne.Position
	isDragging bool
	width      float64
	height     float64

	onAtomTap      func(index int)
	onEmptyTap     func()
	onCameraChange func(c Camera)
}

// NewMoleculeView creates an empty molecule view
func NewMoleculeView() *MoleculeView {
	v := &MoleculeView{
		camera:   NewCamera(geometry.NewBoundingBox()),
		selected: make(map[int]bool),
		width:    400,
		height:   400,
	}
	v.ExtendBaseWidget(v)
	return v
}

// SetOnAtomTap sets the callback for a tap near an atom; index refers to the
// slice passed to SetAtoms
func (v *MoleculeView) SetOnAtomTap(fn func(index int)) { v.onAtomTap = fn }

// SetOnEmptyTap sets the callback for a tap that hits no atom
func (v *MoleculeView) SetOnEmptyTap(fn func()) { v.onEmptyTap = fn }

// SetOnCameraChange sets the callback invoked after the user rotates or zooms
func (v *MoleculeView) SetOnCameraChange(fn func(c Camera)) { v.onCameraChange = fn }

// SetAtoms replaces the drawn atoms and clears the selection markers
func (v *MoleculeView) SetAtoms(atoms []Atom) {
	v.mu.Lock()
	v.atoms = append([]Atom(nil), atoms...)
	v.colors = colorize(v.atoms)
	v.selected = make(map[int]bool)
	v.mu.Unlock()
	v.Refresh()
}

// SetCamera replaces the view camera
func (v *MoleculeView) SetCamera(c *Camera) {
	v.mu.Lock()
	v.camera = c
	v.mu.Unlock()
	v.Refresh()
}

// Camera returns a copy of the view camera
func (v *MoleculeView) Camera() Camera {
	v.mu.Lock()
	defer v.mu.Unlock()
	return *v.camera
}

// SetSelected marks atoms with a highlight ring
func (v *MoleculeView) SetSelected(indices []int) {
	v.mu.Lock()
	v.selected = make(map[int]bool, len(indices))
	for _, i := range indices {
		v.selected[i] = true
	}
	v.mu.Unlock()
	v.Refresh()
}

// colorize assigns a color per atom; rainbow positions are relative to the
// residue range of each chain
func colorize(atoms []Atom) []color.RGBA {
	type span struct{ lo, hi int }
	ranges := make(map[string]span)
	for _, a := range atoms {
		r, ok := ranges[a.Chain]
		if !ok {
			r = span{a.ResSeq, a.ResSeq}
		}
		r.lo = min(r.lo, a.ResSeq)
		r.hi = max(r.hi, a.ResSeq)
		ranges[a.Chain] = r
	}
	out := make([]color.RGBA, len(atoms))
	for i, a := range atoms {
		pos := 0.0
		if r := ranges[a.Chain]; r.hi > r.lo {
			pos = float64(a.ResSeq-r.lo) / float64(r.hi-r.lo)
		}
		out[i] = ColorFor(a.Theme, a, pos)
	}
	return out
}

// radius returns the world radius of an atom disc, or 0 when not drawn
func radius(a Atom) float64 {
	switch a.Kind {
	case KindMolecularSurface, KindGaussianSurface:
		return 1.6
	case KindBallAndStick:
		return 0.35
	case KindCartoon:
		if a.Trace {
			return 0.15
		}
		return 0
	default:
		return 0.3
	}
}

type projected struct {
	index int
	x, y  float64
	depth float64
}

// render rebuilds the canvas objects for the current size
func (v *MoleculeView) render() {
	v.mu.Lock()
	defer v.mu.Unlock()

	w, h := v.width, v.height
	points := make([]projected, 0, len(v.atoms))
	for i, a := range v.atoms {
		x, y, z := v.camera.Project(a.Position, w, h)
		points = append(points, projected{index: i, x: x, y: y, depth: z})
	}

	objects := make([]fyne.CanvasObject, 0, len(points)*2)

	// Backbone trace between consecutive trace atoms of the same chain
	prev := -1
	for i, a := range v.atoms {
		if a.Kind != KindCartoon || !a.Trace {
			continue
		}
		if prev >= 0 && v.atoms[prev].Chain == a.Chain && v.atoms[prev].Position.Distance(a.Position) < 4.5 {
			line := canvas.NewLine(v.colors[i])
			line.StrokeWidth = 3
			line.Position1 = fyne.NewPos(float32(points[prev].x), float32(points[prev].y))
			line.Position2 = fyne.NewPos(float32(points[i].x), float32(points[i].y))
			objects = append(objects, line)
		}
		prev = i
	}

	// Painter's algorithm: farthest first
	sorted := append([]projected(nil), points...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].depth > sorted[j].depth })
	for _, p := range sorted {
		a := v.atoms[p.index]
		r := radius(a)
		if r == 0 && !v.selected[p.index] {
			continue
		}
		size := float32(math.Max(2, 2*r*v.camera.PixelScale(p.depth, h)))
		disc := canvas.NewCircle(shade(v.colors[p.index], p.depth, v.camera.Distance))
		if v.selected[p.index] {
			size = float32(math.Max(float64(size), 10))
			disc.StrokeColor = color.RGBA{R: 0xff, G: 0xd7, B: 0x00, A: 0xff}
			disc.StrokeWidth = 2
		}
		disc.Resize(fyne.NewSize(size, size))
		disc.Move(fyne.NewPos(float32(p.x)-size/2, float32(p.y)-size/2))
		objects = append(objects, disc)
	}

	v.objects = objects
}

// shade darkens colors that lie behind the camera target
func shade(c color.RGBA, depth, distance float64) color.RGBA {
	if distance <= 0 {
		return c
	}
	f := math.Max(0.45, math.Min(1, 1.3-0.3*depth/distance))
	return color.RGBA{R: uint8(float64(c.R) * f), G: uint8(float64(c.G) * f), B: uint8(float64(c.B) * f), A: c.A}
}

// nearestAtom returns the index of the drawn atom closest to a screen point
// and its distance in pixels
func (v *MoleculeView) nearestAtom(screenX, screenY float64) (int, float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	nearest := -1
	minDist := math.MaxFloat64
	for i, a := range v.atoms {
		if radius(a) == 0 {
			continue
		}
		x, y, z := v.camera.Project(a.Position, v.width, v.height)
		if z <= 0.01 {
			continue
		}
		d := math.Hypot(x-screenX, y-screenY)
		if d < minDist {
			minDist = d
			nearest = i
		}
	}
	return nearest, minDist
}

// Tapped handles tap events for atom picking
func (v *MoleculeView) Tapped(event *fyne.PointEvent) {
	if v.isDragging {
		return
	}
	index, dist := v.nearestAtom(float64(event.Position.X), float64(event.Position.Y))
	if index >= 0 && dist < pickRadius {
		if v.onAtomTap != nil {
			v.onAtomTap(index)
		}
		return
	}
	if v.onEmptyTap != nil {
		v.onEmptyTap()
	}
}

// Dragged handles mouse drag events for rotation
func (v *MoleculeView) Dragged(event *fyne.DragEvent) {
	if v.dragStart != nil {
		deltaX := event.Position.X - v.dragStart.X
		deltaY := event.Position.Y - v.dragStart.Y

		v.mu.Lock()
		v.camera.Rotate(float64(-deltaY)*0.01, float64(deltaX)*0.01)
		v.mu.Unlock()
		v.cameraChanged()
	}
	pos := event.Position
	v.dragStart = &pos
	v.isDragging = true
}

// DragEnd handles the end of a drag event
func (v *MoleculeView) DragEnd() {
	v.dragStart = nil
	v.isDragging = false
}

// Scrolled handles scroll events for zooming
func (v *MoleculeView) Scrolled(event *fyne.ScrollEvent) {
	v.mu.Lock()
	v.camera.Zoom(-float64(event.Scrolled.DY) * 0.001)
	v.mu.Unlock()
	v.cameraChanged()
}

func (v *MoleculeView) cameraChanged() {
	if v.onCameraChange != nil {
		v.onCameraChange(v.Camera())
	}
	v.Refresh()
}

// CreateRenderer creates the renderer for the widget
func (v *MoleculeView) CreateRenderer() fyne.WidgetRenderer {
	return &moleculeRenderer{view: v}
}

type moleculeRenderer struct {
	view *MoleculeView
}

func (m *moleculeRenderer) Layout(size fyne.Size) {
	m.view.mu.Lock()
	m.view.width = float64(size.Width)
	m.view.height = float64(size.Height)
	m.view.mu.Unlock()
	m.view.render()
}

func (m *moleculeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 400)
}

func (m *moleculeRenderer) Refresh() {
	m.view.render()
	canvas.Refresh(m.view)
}

func (m *moleculeRenderer) Objects() []fyne.CanvasObject {
	m.view.mu.Lock()
	defer m.view.mu.Unlock()
	return m.view.objects
}

func (m *moleculeRenderer) Destroy() {}
