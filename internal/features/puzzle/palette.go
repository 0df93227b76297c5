package puzzle

import (
	"fmt"
	"math"
)

// Palette возвращает n различимых цветов в hex: оттенки HSV равномерно по кругу от offset (0..1).
func Palette(n int, offset float64) []string {
	colors := make([]string, 0, n)
	for i := 0; i < n; i++ {
		hue := math.Mod(offset+float64(i)/float64(n), 1)
		r, g, b := hsvToRGB(hue, 0.75, 0.9)
		colors = append(colors, fmt.Sprintf("#%02x%02x%02x", r, g, b))
	}
	return colors
}

func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - f*s)
	t := v * (1 - (1-f)*s)

	var r, g, b float64
	switch int(i) % 6 {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default:
		r, g, b = v, p, q
	}
	return uint8(math.Round(r * 255)), uint8(math.Round(g * 255)), uint8(math.Round(b * 255))
}
