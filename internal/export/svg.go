// Package export renders flock snapshots and time series as SVG.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/flocksim/internal/sim"
	"github.com/san-kum/flocksim/internal/viz"
)

const (
	background = "#0a0a0a"
	frontColor = "#00ccff"
	backColor  = "#224455"
)

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

// SnapshotSVG draws the flock as seen through cam on a size x size image.
// Particles on the far hemisphere are drawn first and dimmed; near ones get
// a heading line.
func SnapshotSVG(s sim.Snapshot, radius float64, cam *viz.Camera, size int) string {
	if cam == nil {
		cam = viz.NewCamera()
	}
	var sb strings.Builder
	header(&sb, size, size)

	limb := cam.Zoom * float64(size) / 2.2
	fmt.Fprintf(&sb, `<circle cx="%d" cy="%d" r="%.1f" fill="none" stroke="#444466"/>
`, size/2, size/2, limb)

	dot := math.Max(1, float64(size)/400)
	var front strings.Builder
	sb.WriteString(`<g fill="` + backColor + `">` + "\n")
	for _, p := range s.Particles {
		x, y, facing := cam.Project(p.Position, radius, size, size)
		if !facing {
			fmt.Fprintf(&sb, `<circle cx="%d" cy="%d" r="%.1f"/>`+"\n", x, y, dot)
			continue
		}
		tip := p.Position.Add(p.Velocity.Normalize().Scale(0.05 * radius))
		tx, ty, _ := cam.Project(tip, radius, size, size)
		fmt.Fprintf(&front, `<circle cx="%d" cy="%d" r="%.1f"/><line x1="%d" y1="%d" x2="%d" y2="%d"/>`+"\n",
			x, y, dot*1.5, x, y, tx, ty)
	}
	sb.WriteString("</g>\n")
	fmt.Fprintf(&sb, `<g fill="%s" stroke="%s" stroke-width="%.1f">`+"\n", frontColor, frontColor, dot/2)
	sb.WriteString(front.String())
	sb.WriteString("</g>\n")

	fmt.Fprintf(&sb, `<text x="8" y="18" fill="#888899" font-family="monospace" font-size="12">step %d  t=%.2f  n=%d</text>
`, s.Step, s.Time, len(s.Particles))
	sb.WriteString("</svg>")
	return sb.String()
}

// CanvasToSVG converts a braille canvas to SVG, one circle per dot.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	sw, sh := canvas.Dots()

	var sb strings.Builder
	header(&sb, int(float64(sw)*scale), int(float64(sh)*scale))
	sb.WriteString(`<g fill="#00ff00">` + "\n")
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, scale*0.4)
			}
		}
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// SeriesSVG plots ys against xs as a polyline scaled to fill the image
// with 10% padding.
func SeriesSVG(xs, ys []float64, width, height int, strokeColor string) string {
	n := min(len(xs), len(ys))
	if n < 2 {
		return ""
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 0; i < n; i++ {
		minX, maxX = math.Min(minX, xs[i]), math.Max(maxX, xs[i])
		minY, maxY = math.Min(minY, ys[i]), math.Max(maxY, ys[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	header(&sb, width, height)
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i := 0; i < n; i++ {
		x := (xs[i] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[i]-minY)/rangeY*float64(height)
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

// Write writes svg to w.
func Write(w io.Writer, svg string) error {
	_, err := io.WriteString(w, svg)
	return err
}
