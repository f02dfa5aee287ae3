package browser

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// overlayInfo carries everything the overlay renderer composites onto an
// element screenshot.
type overlayInfo struct {
	BoxX, BoxY           float64
	BoxWidth, BoxHeight  float64
	Label, URL, Stake    string
	Timestamp            time.Time
}

var (
	overlayBoxColor   = color.RGBA{R: 0xE7, G: 0x4C, B: 0x3C, A: 0xFF} // outline
	overlayPanelColor = color.RGBA{A: 0xB4}                            // translucent black
	overlayTextColor  = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

const (
	overlayBoxThickness = 3
	overlayPanelPadding = 8
	overlayLineHeight   = 15
	overlayWrapWidth    = 64 // characters per wrapped URL segment
)

// renderOverlay decodes a PNG screenshot, draws the element's bounding-box
// outline and a semi-transparent metadata panel, and re-encodes the result.
func renderOverlay(screenshot []byte, info overlayInfo) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(screenshot))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	bounds := src.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	box := image.Rect(
		int(info.BoxX), int(info.BoxY),
		int(info.BoxX+info.BoxWidth), int(info.BoxY+info.BoxHeight),
	).Intersect(bounds)
	if !box.Empty() {
		drawBoxOutline(canvas, box)
	}

	lines := overlayLines(info)
	drawPanel(canvas, bounds, lines)

	var out bytes.Buffer
	if err := png.Encode(&out, canvas); err != nil {
		return nil, fmt.Errorf("failed to encode annotated screenshot: %w", err)
	}
	return out.Bytes(), nil
}

// overlayLines renders the metadata panel content: timestamp, URL word-
// wrapped into fixed-width segments, stake key, element label.
func overlayLines(info overlayInfo) []string {
	lines := []string{info.Timestamp.Format("2006-01-02 15:04:05.000")}
	lines = append(lines, wrapFixed(info.URL, overlayWrapWidth)...)
	lines = append(lines, "stake: "+info.Stake)
	if info.Label != "" {
		lines = append(lines, "element: "+info.Label)
	}
	return lines
}

// wrapFixed splits s into fixed-width segments.
func wrapFixed(s string, width int) []string {
	if s == "" {
		return nil
	}
	runes := []rune(s)
	var segments []string
	for len(runes) > width {
		segments = append(segments, string(runes[:width]))
		runes = runes[width:]
	}
	return append(segments, string(runes))
}

func drawBoxOutline(canvas *image.RGBA, box image.Rectangle) {
	src := &image.Uniform{overlayBoxColor}
	t := overlayBoxThickness
	// top, bottom, left, right bars
	draw.Draw(canvas, image.Rect(box.Min.X, box.Min.Y, box.Max.X, box.Min.Y+t), src, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(box.Min.X, box.Max.Y-t, box.Max.X, box.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(box.Min.X, box.Min.Y, box.Min.X+t, box.Max.Y), src, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(box.Max.X-t, box.Min.Y, box.Max.X, box.Max.Y), src, image.Point{}, draw.Src)
}

// drawPanel composites the translucent metadata panel into the top-left
// corner and draws each line of text over it.
func drawPanel(canvas *image.RGBA, bounds image.Rectangle, lines []string) {
	if len(lines) == 0 {
		return
	}

	face := basicfont.Face7x13
	maxChars := 0
	for _, line := range lines {
		if len(line) > maxChars {
			maxChars = len(line)
		}
	}
	panelWidth := maxChars*face.Advance + 2*overlayPanelPadding
	panelHeight := len(lines)*overlayLineHeight + 2*overlayPanelPadding

	panel := image.Rect(
		bounds.Min.X, bounds.Min.Y,
		bounds.Min.X+panelWidth, bounds.Min.Y+panelHeight,
	).Intersect(bounds)
	draw.Draw(canvas, panel, &image.Uniform{overlayPanelColor}, image.Point{}, draw.Over)

	drawer := &font.Drawer{
		Dst:  canvas,
		Src:  &image.Uniform{overlayTextColor},
		Face: face,
	}
	for i, line := range lines {
		drawer.Dot = fixed.P(
			bounds.Min.X+overlayPanelPadding,
			bounds.Min.Y+overlayPanelPadding+(i+1)*overlayLineHeight-4,
		)
		drawer.DrawString(line)
	}
}
