//go:build gui

package gui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"fyne.io/fyne/v2"
)

// trayIcon draws a small three-lamp traffic light.
func trayIcon() fyne.Resource {
	const size = 22
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	lamps := []struct {
		cy float64
		c  color.RGBA
	}{
		{4.5, color.RGBA{230, 0, 0, 255}},
		{11, color.RGBA{255, 170, 0, 255}},
		{17.5, color.RGBA{0, 200, 40, 255}},
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x >= 5 && x < 17 {
				img.Set(x, y, color.RGBA{40, 40, 40, 255})
			}
			for _, l := range lamps {
				dx := float64(x) - 11 + 0.5
				dy := float64(y) - l.cy + 0.5
				if math.Sqrt(dx*dx+dy*dy) < 3 {
					img.Set(x, y, l.c)
				}
			}
		}
	}

	var buf bytes.Buffer
	png.Encode(&buf, img)
	return fyne.NewStaticResource("tray.png", buf.Bytes())
}
