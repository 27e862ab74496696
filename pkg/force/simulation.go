// Package force relaxes node positions with a velocity-Verlet style
// physical simulation: link springs, many-body repulsion, centring and
// collision, driven by a decaying temperature (alpha).
package force

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/ha1tch/kgview/pkg/geometry"
	"github.com/ha1tch/kgview/pkg/graph"
)

var (
	// ErrNotDragging is returned when a drag operation has no active gesture.
	ErrNotDragging = errors.New("no drag in progress")
	// ErrAlreadyDragging is returned when a second gesture starts before the first ends.
	ErrAlreadyDragging = errors.New("drag already in progress")
)

// Params tunes the forces and the cooling schedule.
type Params struct {
	LinkDistance float64 // target spring length D
	LinkStrength float64 // S_link; 0 selects 1/min(degree) per link

	Charge            float64 // many-body strength, negative repels
	ChargeDistanceMin float64 // clamp avoiding singularities
	ChargeDistanceMax float64 // pairs further apart are ignored

	CenterStrength  float64 // pull toward the viewport centre
	CollideRadius   float64 // minimum separation radius per node
	CollideStrength float64

	AlphaMin        float64 // settle threshold
	AlphaDecay      float64 // per-tick cooling rate
	VelocityDecay   float64 // friction, fraction of velocity lost per tick
	DragAlphaTarget float64 // temperature held while a node is dragged
	MaxTicks        int     // tick budget per run; 0 disables

	Seed int64 // seeds jiggle for coincident nodes
}

// DefaultParams returns standard parameters.
func DefaultParams() Params {
	return Params{
		LinkDistance:      150,
		LinkStrength:      0,
		Charge:            -400,
		ChargeDistanceMin: 1,
		ChargeDistanceMax: 2000,
		CenterStrength:    0.05,
		CollideRadius:     50,
		CollideStrength:   0.7,
		AlphaMin:          0.001,
		AlphaDecay:        1 - math.Pow(0.001, 1.0/300),
		VelocityDecay:     0.4,
		DragAlphaTarget:   0.3,
		MaxTicks:          600,
		Seed:              1,
	}
}

// Body is the mutable layout state of one node. While Fixed is set the
// integrator holds the body at (FX, FY).
type Body struct {
	ID     string
	X, Y   float64
	VX, VY float64
	Fixed  bool
	FX, FY float64
}

// Pos returns the body's position.
func (b *Body) Pos() geometry.Point { return geometry.Point{X: b.X, Y: b.Y} }

type spring struct {
	source, target int
	strength       float64
	bias           float64
}

// Simulation owns every body for one snapshot.
type Simulation struct {
	params  Params
	bodies  []Body
	index   map[string]int
	springs []spring
	center  geometry.Point
	rng     *rand.Rand

	alpha       float64
	alphaTarget float64
	ticks       int
	settled     bool
	drag        int
}

// New creates an empty simulation.
func New(p Params) *Simulation {
	return &Simulation{
		params:  p,
		index:   make(map[string]int),
		rng:     rand.New(rand.NewSource(p.Seed)),
		settled: true,
		drag:    -1,
	}
}

// Params returns the simulation parameters.
func (s *Simulation) Params() Params { return s.params }

// Load discards all prior state and seeds bodies for snap around center.
func (s *Simulation) Load(snap *graph.Snapshot, center geometry.Point) {
	s.bodies = make([]Body, len(snap.Nodes))
	s.index = make(map[string]int, len(snap.Nodes))
	s.springs = s.springs[:0]
	s.center = center
	s.rng = rand.New(rand.NewSource(s.params.Seed))
	s.drag = -1

	// Phyllotaxis seeding: deterministic and evenly spread.
	initialAngle := math.Pi * (3 - math.Sqrt(5))
	for i, n := range snap.Nodes {
		r := 10 * math.Sqrt(0.5+float64(i))
		a := float64(i) * initialAngle
		s.bodies[i] = Body{
			ID: n.ID,
			X:  center.X + r*math.Cos(a),
			Y:  center.Y + r*math.Sin(a),
		}
		s.index[n.ID] = i
	}

	degree := make([]int, len(s.bodies))
	for _, e := range snap.Edges {
		if e.IsSelfLoop() {
			continue
		}
		degree[s.index[e.Source]]++
		degree[s.index[e.Target]]++
	}
	for _, e := range snap.Edges {
		if e.IsSelfLoop() {
			continue
		}
		si, ti := s.index[e.Source], s.index[e.Target]
		strength := s.params.LinkStrength
		if strength <= 0 {
			strength = 1 / float64(min(degree[si], degree[ti]))
		}
		s.springs = append(s.springs, spring{
			source:   si,
			target:   ti,
			strength: strength,
			bias:     float64(degree[si]) / float64(degree[si]+degree[ti]),
		})
	}

	s.alpha = 1
	s.alphaTarget = 0
	s.ticks = 0
	s.settled = len(s.bodies) == 0
}

// SetCenter moves the centring target without restarting.
func (s *Simulation) SetCenter(c geometry.Point) { s.center = c }

// Bodies returns the live body slice. Callers may read it between ticks.
func (s *Simulation) Bodies() []Body { return s.bodies }

// Body returns the body for a node id.
func (s *Simulation) Body(id string) (*Body, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.bodies[i], true
}

// Position returns a node's current position.
func (s *Simulation) Position(id string) (geometry.Point, bool) {
	b, ok := s.Body(id)
	if !ok {
		return geometry.Point{}, false
	}
	return b.Pos(), true
}

// Positions returns a copy of every body position in snapshot order.
func (s *Simulation) Positions() []geometry.Point {
	pts := make([]geometry.Point, len(s.bodies))
	for i := range s.bodies {
		pts[i] = s.bodies[i].Pos()
	}
	return pts
}

func (s *Simulation) Alpha() float64 { return s.alpha }
func (s *Simulation) Ticks() int      { return s.ticks }
func (s *Simulation) Settled() bool   { return s.settled }

// Reheat raises the temperature to at least alpha and restarts the tick budget.
func (s *Simulation) Reheat(alpha float64) {
	if len(s.bodies) == 0 {
		return
	}
	if alpha > s.alpha {
		s.alpha = alpha
	}
	s.ticks = 0
	s.settled = false
}

// Place moves a body and clears its velocity. A pinned body stays at p
// until Unpin.
func (s *Simulation) Place(id string, p geometry.Point, pin bool) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("place %q: %w", id, graph.ErrUnknownNode)
	}
	b := &s.bodies[i]
	b.X, b.Y, b.VX, b.VY = p.X, p.Y, 0, 0
	if pin {
		b.Fixed, b.FX, b.FY = true, p.X, p.Y
	}
	return nil
}

// Unpin releases a body pinned by Place.
func (s *Simulation) Unpin(id string) error {
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("unpin %q: %w", id, graph.ErrUnknownNode)
	}
	if i == s.drag {
		return ErrAlreadyDragging
	}
	s.bodies[i].Fixed = false
	return nil
}

// Tick advances the simulation one step. It returns false once settled.
func (s *Simulation) Tick() bool {
	if s.settled {
		return false
	}

	s.alpha += (s.alphaTarget - s.alpha) * s.params.AlphaDecay

	s.applySprings()
	s.applyCharge()
	s.applyCenter()
	s.applyCollide()

	keep := 1 - s.params.VelocityDecay
	for i := range s.bodies {
		b := &s.bodies[i]
		if b.Fixed {
			b.X, b.Y = b.FX, b.FY
			b.VX, b.VY = 0, 0
			continue
		}
		b.VX *= keep
		b.VY *= keep
		b.X += b.VX
		b.Y += b.VY
	}
	s.ticks++

	if s.drag < 0 {
		cold := s.alpha < s.params.AlphaMin && s.alphaTarget < s.params.AlphaMin
		exhausted := s.params.MaxTicks > 0 && s.ticks >= s.params.MaxTicks
		if cold || exhausted {
			s.settled = true
		}
	}
	return !s.settled
}

// Run ticks until settled or n ticks have elapsed, returning the ticks taken.
func (s *Simulation) Run(n int) int {
	start := s.ticks
	for i := 0; i < n && s.Tick(); i++ {
	}
	return s.ticks - start
}

// StartDrag pins a node at its current position and heats the simulation
// so neighbours respond.
func (s *Simulation) StartDrag(id string) error {
	if s.drag >= 0 {
		return ErrAlreadyDragging
	}
	i, ok := s.index[id]
	if !ok {
		return fmt.Errorf("start drag %q: %w", id, graph.ErrUnknownNode)
	}
	b := &s.bodies[i]
	b.Fixed, b.FX, b.FY = true, b.X, b.Y
	s.drag = i
	s.alphaTarget = s.params.DragAlphaTarget
	s.Reheat(s.params.DragAlphaTarget)
	return nil
}

// DragTo moves the pinned node.
func (s *Simulation) DragTo(p geometry.Point) error {
	if s.drag < 0 {
		return ErrNotDragging
	}
	b := &s.bodies[s.drag]
	b.FX, b.FY = p.X, p.Y
	b.X, b.Y = p.X, p.Y
	return nil
}

// EndDrag releases the pin. The simulation keeps cooling from its current
// temperature.
func (s *Simulation) EndDrag() error {
	if s.drag < 0 {
		return ErrNotDragging
	}
	b := &s.bodies[s.drag]
	b.Fixed = false
	s.drag = -1
	s.alphaTarget = 0
	return nil
}

// Dragging returns the id of the node being dragged.
func (s *Simulation) Dragging() (string, bool) {
	if s.drag < 0 {
		return "", false
	}
	return s.bodies[s.drag].ID, true
}

func (s *Simulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}
