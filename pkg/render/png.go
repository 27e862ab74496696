package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ha1tch/kgview/pkg/geometry"
)

// PNGOptions configures PNG rendering.
type PNGOptions struct {
	Supersample int // render scale before downsampling
	NodeLabels  bool
	EdgeLabels  bool
	Legend      bool
}

// DefaultPNGOptions returns sensible defaults for PNG rendering.
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{Supersample: 4, NodeLabels: true, EdgeLabels: true, Legend: true}
}

// canvas holds rasterisation state at supersampled resolution.
type canvas struct {
	img   *image.RGBA
	scale float64 // supersample factor
	view  Viewport
	bg    colorful.Color
	fonts *FontMeasurer
}

// WritePNG rasterises a frame. It renders at Supersample times the frame
// size and downsamples with Catmull-Rom for smooth edges.
func WritePNG(w io.Writer, f Frame, opts PNGOptions) error {
	ss := opts.Supersample
	if ss < 1 {
		ss = 1
	}
	width, height := int(f.Width), int(f.Height)
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	fonts, err := NewFontMeasurer()
	if err != nil {
		return err
	}

	large := image.NewRGBA(image.Rect(0, 0, width*ss, height*ss))
	c := &canvas{
		img:   large,
		scale: float64(ss),
		view:  f.View,
		bg:    mustHex(f.Params.Background),
		fonts: fonts,
	}
	draw.Draw(large, large.Bounds(), image.NewUniform(c.bg), image.Point{}, draw.Src)

	for _, e := range f.Edges {
		c.strokePath(e.Path, c.fade(e.Style.Stroke, e.Style.Opacity), e.Style.StrokeWidth)
		if !e.SelfLoop {
			c.arrowhead(e.Path, c.fade(e.Style.Stroke, e.Style.Opacity), f.Params.NodeRadius)
		}
	}
	if opts.EdgeLabels {
		for _, e := range f.Edges {
			if e.Label == "" {
				continue
			}
			c.fillRect(e.Box, c.fade(colorful.Color{R: 1, G: 1, B: 1}, e.Style.Opacity))
			c.text(e.Anchor, e.Label, f.Params.LabelSize*f.View.K, c.fade(mustHex("#333333"), e.Style.Opacity), true)
		}
	}
	for _, n := range f.Nodes {
		fill := c.fade(n.Style.Fill, n.Style.Opacity)
		ring := c.fade(n.Style.Stroke, n.Style.Opacity)
		c.disc(n.Pos, n.Radius, fill, ring, n.Style.StrokeWidth)
		if opts.NodeLabels && n.Label != "" {
			at := geometry.Point{X: n.Pos.X + n.Radius + 4, Y: n.Pos.Y}
			c.text(at, n.Label, f.Params.NodeLabelSize*f.View.K, c.fade(mustHex("#333333"), n.Style.Opacity), false)
		}
	}
	if opts.Legend {
		saved := c.view
		c.view = Identity()
		for i, l := range f.Legend {
			y := 20 + float64(i)*18
			c.disc(geometry.Point{X: 16, Y: y}, 6, l.Color, l.Color, 0)
			c.text(geometry.Point{X: 28, Y: y}, l.Type, 12, mustHex("#333333"), false)
		}
		c.view = saved
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(out, out.Bounds(), large, large.Bounds(), draw.Over, nil)
	return png.Encode(w, out)
}

func (c *canvas) fade(col colorful.Color, opacity float64) color.Color {
	return Fade(col, c.bg, opacity)
}

// screen maps world to supersampled pixels.
func (c *canvas) screen(p geometry.Point) geometry.Point {
	return c.view.Apply(p).Scale(c.scale)
}

func (c *canvas) plot(x, y float64, col color.Color) {
	c.img.Set(int(x), int(y), col)
}

// line draws a thick segment in pixel space.
func (c *canvas) line(a, b geometry.Point, col color.Color, width float64) {
	d := b.Sub(a)
	steps := math.Max(math.Abs(d.X), math.Abs(d.Y))
	if steps < 1 {
		steps = 1
	}
	half := math.Max(width/2, 0.5)
	dist := d.Len()
	px, py := 0.0, 0.0
	if dist >= 1 {
		px, py = -d.Y/dist, d.X/dist
	}
	for i := 0.0; i <= steps; i++ {
		t := i / steps
		x := a.X + d.X*t
		y := a.Y + d.Y*t
		if dist < 1 {
			for ty := -half; ty <= half; ty++ {
				for tx := -half; tx <= half; tx++ {
					c.plot(x+tx, y+ty, col)
				}
			}
			continue
		}
		for off := -half; off <= half; off += 0.5 {
			c.plot(x+px*off, y+py*off, col)
		}
	}
}

func (c *canvas) strokePath(p geometry.Path, col color.Color, width float64) {
	w := width * c.view.K * c.scale
	pts := p.Sample(64)
	for i := 1; i < len(pts); i++ {
		c.line(c.screen(pts[i-1]), c.screen(pts[i]), col, w)
	}
}

// arrowhead draws a filled head where the path meets the target node rim.
func (c *canvas) arrowhead(p geometry.Path, col color.Color, radius float64) {
	pts := p.Sample(64)
	if len(pts) < 2 {
		return
	}
	// Walk back from the end until outside the target disc.
	end := pts[len(pts)-1]
	tip, prev := end, end
	for i := len(pts) - 2; i >= 0; i-- {
		if pts[i].Dist(end) >= radius {
			tip, prev = pts[i+1], pts[i]
			break
		}
	}
	a, b := c.screen(prev), c.screen(tip)
	d := b.Sub(a)
	dist := d.Len()
	if dist < 1e-9 {
		return
	}
	n := d.Scale(1 / dist)
	size := 6 * c.view.K * c.scale
	w1 := geometry.Point{X: b.X - n.X*size + n.Y*size/2, Y: b.Y - n.Y*size - n.X*size/2}
	w2 := geometry.Point{X: b.X - n.X*size - n.Y*size/2, Y: b.Y - n.Y*size + n.X*size/2}
	for t := 0.0; t <= 1.0; t += 0.05 {
		c.line(b, geometry.Lerp(w1, w2, t), col, 1)
	}
}

func (c *canvas) disc(center geometry.Point, r float64, fill, ring color.Color, ringWidth float64) {
	s := c.screen(center)
	rr := r * c.view.K * c.scale
	ring2 := ringWidth * c.view.K * c.scale
	for dy := -rr; dy <= rr; dy++ {
		for dx := -rr; dx <= rr; dx++ {
			d := math.Hypot(dx, dy)
			switch {
			case d > rr:
			case d > rr-ring2:
				c.plot(s.X+dx, s.Y+dy, ring)
			default:
				c.plot(s.X+dx, s.Y+dy, fill)
			}
		}
	}
}

func (c *canvas) fillRect(r geometry.Rect, col color.Color) {
	tl := c.screen(r.Min())
	br := c.screen(geometry.Point{X: r.X + r.W/2, Y: r.Y + r.H/2})
	rect := image.Rect(int(tl.X), int(tl.Y), int(math.Ceil(br.X)), int(math.Ceil(br.Y)))
	draw.Draw(c.img, rect, image.NewUniform(col), image.Point{}, draw.Src)
}

// text draws a label at screen size points. Centred labels are centred on
// at; others start at at.
func (c *canvas) text(at geometry.Point, s string, size float64, col color.Color, centred bool) {
	if size*c.scale < 1 {
		return
	}
	face, err := c.fonts.Face(size * c.scale)
	if err != nil {
		return
	}
	p := c.screen(at)
	width := font.MeasureString(face, s).Ceil()
	ascent := face.Metrics().Ascent.Ceil()
	x := int(p.X)
	if centred {
		x -= width / 2
	}
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(int(p.Y) + int(float64(ascent)*0.35))},
	}
	d.DrawString(s)
}
