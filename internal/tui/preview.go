package tui

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var previewStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("0")).
	Background(lipgloss.Color("15"))

// Preview renders a QR PNG with half-block characters. box is the number of
// pixels per module; each text row covers two module rows.
func Preview(data []byte, box int) (string, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode png: %w", err)
	}
	return renderModules(img, max(box, 1)), nil
}

func renderModules(img image.Image, step int) string {
	b := img.Bounds()
	dark := func(x, y int) bool {
		if !(image.Point{X: x, Y: y}).In(b) {
			return false
		}
		r, g, bl, _ := img.At(x, y).RGBA()
		return (r+g+bl)/3 < 0x8000
	}

	var lines []string
	for y := b.Min.Y + step/2; y < b.Max.Y; y += 2 * step {
		var line strings.Builder
		for x := b.Min.X + step/2; x < b.Max.X; x += step {
			top, bottom := dark(x, y), dark(x, y+step)
			switch {
			case top && bottom:
				line.WriteRune('█')
			case top:
				line.WriteRune('▀')
			case bottom:
				line.WriteRune('▄')
			default:
				line.WriteRune(' ')
			}
		}
		lines = append(lines, previewStyle.Render(line.String()))
	}
	return strings.Join(lines, "\n")
}
