package viz

import (
	"image"
	"image/color"
	"image/gif"
	"os"
)

const (
	charW = 8
	charH = 16
)

// canvasImage rasterises the braille dots of c, one dotW x dotH block per
// dot.
func canvasImage(c *Canvas) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, c.Width*charW, c.Height*charH),
		color.Palette{color.Black, color.White})
	dotW, dotH := charW/2, charH/4
	sw, sh := c.Dots()
	for y := 0; y < sh; y++ {
		for x := 0; x < sw; x++ {
			if !c.IsSet(x, y) {
				continue
			}
			for py := 0; py < dotH; py++ {
				for px := 0; px < dotW; px++ {
					img.SetColorIndex(x*dotW+px, y*dotH+py, 1)
				}
			}
		}
	}
	return img
}

func saveGIF(path string, frames []*image.Paletted) error {
	if len(frames) == 0 {
		return nil
	}
	anim := gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, 3)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gif.EncodeAll(f, &anim)
}
