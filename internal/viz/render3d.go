package viz

import (
	"math"

	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/vec"
)

// Camera looks at the sphere from outside along +z after applying its
// rotation. Projection is orthographic: the sphere fills the shorter
// screen side at Zoom 1.
type Camera struct {
	RotX, RotY float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{RotX: -0.4, Zoom: 1}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// Rotate applies the camera rotation, first about y then about x.
func (c *Camera) Rotate(p vec.Vec3) vec.Vec3 {
	cy, sy := math.Cos(c.RotY), math.Sin(c.RotY)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cx, sx := math.Cos(c.RotX), math.Sin(c.RotX)
	p.Y, p.Z = p.Y*cx-p.Z*sx, p.Y*sx+p.Z*cx
	return p
}

// Project maps a point on a sphere of the given radius to sub-pixel
// coordinates on a sw x sh screen. front reports whether the point faces
// the viewer.
func (c *Camera) Project(p vec.Vec3, radius float64, sw, sh int) (x, y int, front bool) {
	r := c.Rotate(p)
	scale := c.Zoom * float64(min(sw, sh)) / (2.2 * radius)
	x = int(math.Round(r.X*scale)) + sw/2
	y = int(math.Round(-r.Y*scale)) + sh/2
	return x, y, r.Z >= 0
}

// DrawGlobe outlines the sphere's limb plus the equator's visible half.
func DrawGlobe(c *Canvas, cam *Camera, radius float64) {
	sw, sh := c.Dots()
	scale := cam.Zoom * float64(min(sw, sh)) / (2.2 * radius)
	const segments = 96
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / segments
		c.Set(int(math.Round(radius*scale*math.Cos(a)))+sw/2, int(math.Round(radius*scale*math.Sin(a)))+sh/2)

		eq := vec.New(radius*math.Cos(a), 0, radius*math.Sin(a))
		if x, y, front := cam.Project(eq, radius, sw, sh); front && i%3 == 0 {
			c.Set(x, y)
		}
	}
}

// DrawFlock plots every front-facing particle with a short heading tick.
// Back-facing particles are skipped unless showBack is set.
func DrawFlock(c *Canvas, cam *Camera, flock []bird.Particle, radius float64, showBack bool) int {
	sw, sh := c.Dots()
	drawn := 0
	for _, p := range flock {
		x, y, front := cam.Project(p.Position, radius, sw, sh)
		if !front && !showBack {
			continue
		}
		c.Set(x, y)
		drawn++
		if !front {
			continue
		}
		tip := p.Position.Add(p.Velocity.Normalize().Scale(0.06 * radius))
		tx, ty, _ := cam.Project(tip, radius, sw, sh)
		c.DrawLine(x, y, tx, ty)
	}
	return drawn
}
