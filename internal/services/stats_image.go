package services

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
)

var (
	fontOnce      sync.Once
	parsedGoFont  *opentype.Font
	parsedGoError error
)

var (
	cardBackground = color.RGBA{0xFD, 0xF8, 0xF0, 0xFF}
	cardInk        = color.RGBA{0x2D, 0x2D, 0x2D, 0xFF}
	cardMuted      = color.RGBA{0x6B, 0x6B, 0x6B, 0xFF}
	cardAccent     = color.RGBA{0xE8, 0x5D, 0x3F, 0xFF}
	tileBackground = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
)

type statTile struct {
	label string
	value int
}

// RenderStatsPNG draws the shareable "wrapped" summary card.
func RenderStatsPNG(stats models.Stats, heading string) ([]byte, error) {
	const (
		width      = 1200
		height     = 630
		padding    = 48
		tileHeight = 120
		tileGap    = 24
		border     = 2
	)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: cardBackground}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, width, 12), &image.Uniform{C: cardAccent}, image.Point{}, draw.Src)

	titleFace, err := newFontFace(40)
	if err != nil {
		return nil, err
	}
	defer func() { _ = titleFace.Close() }()

	valueFace, err := newFontFace(44)
	if err != nil {
		return nil, err
	}
	defer func() { _ = valueFace.Close() }()

	bodyFace, err := newFontFace(20)
	if err != nil {
		return nil, err
	}
	defer func() { _ = bodyFace.Close() }()

	if strings.TrimSpace(heading) == "" {
		heading = "Daily Doodle Wrapped"
	}
	drawText(img, titleFace, padding, 80, heading, cardInk)

	tiles := []statTile{
		{"drawings", stats.TotalDrawings},
		{"reactions", stats.TotalReactions},
		{"themes", stats.TotalThemes},
	}
	if stats.Mine != nil {
		tiles = append(tiles,
			statTile{"my drawings", stats.Mine.Drawings},
			statTile{"reactions received", stats.Mine.ReactionsReceived},
		)
	}

	tileTop := 120
	tileWidth := (width - padding*2 - tileGap*(len(tiles)-1)) / len(tiles)
	for i, tile := range tiles {
		left := padding + i*(tileWidth+tileGap)
		rect := image.Rect(left, tileTop, left+tileWidth, tileTop+tileHeight)
		draw.Draw(img, rect, &image.Uniform{C: tileBackground}, image.Point{}, draw.Src)
		drawBorder(img, rect, border, cardInk)

		valueRect := image.Rect(rect.Min.X, rect.Min.Y+8, rect.Max.X, rect.Min.Y+72)
		drawWrappedText(img, valueFace, valueRect, []string{strconv.Itoa(tile.value)}, cardAccent)
		labelRect := image.Rect(rect.Min.X+8, rect.Min.Y+72, rect.Max.X-8, rect.Max.Y-8)
		drawWrappedText(img, bodyFace, labelRect, clampLines(bodyFace, wrapText(bodyFace, tile.label, labelRect.Dx()), 1, labelRect.Dx()), cardMuted)
	}

	listTop := tileTop + tileHeight + 56
	drawText(img, bodyFace, padding, listTop, "Most loved drawings", cardInk)
	if len(stats.TopDrawings) == 0 {
		drawText(img, bodyFace, padding, listTop+40, "No reactions yet.", cardMuted)
	}
	for i, d := range stats.TopDrawings {
		line := fmt.Sprintf("%d. %s", i+1, d.Title)
		if d.Author != nil {
			line += " by " + d.Author.DisplayName()
		}
		line += fmt.Sprintf(" (%d)", d.ReactionCount)
		lines := clampLines(bodyFace, wrapText(bodyFace, line, width-padding*2), 1, width-padding*2)
		drawText(img, bodyFace, padding, listTop+40*(i+1), lines[0], cardMuted)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func newFontFace(size float64) (*opentype.Face, error) {
	fontOnce.Do(func() {
		parsedGoFont, parsedGoError = opentype.Parse(goregular.TTF)
	})
	if parsedGoError != nil {
		return nil, fmt.Errorf("parse font: %w", parsedGoError)
	}
	face, err := opentype.NewFace(parsedGoFont, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("load font face: %w", err)
	}
	otFace, ok := face.(*opentype.Face)
	if !ok {
		return nil, fmt.Errorf("load font face: unexpected type")
	}
	return otFace, nil
}

func drawText(img draw.Image, face font.Face, x, y int, text string, clr color.Color) {
	d := &font.Drawer{Dst: img, Src: image.NewUniform(clr), Face: face, Dot: fixed.P(x, y)}
	d.DrawString(text)
}

func drawBorder(img draw.Image, rect image.Rectangle, width int, clr color.Color) {
	b := image.NewUniform(clr)
	for _, edge := range []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+width),
		image.Rect(rect.Min.X, rect.Max.Y-width, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+width, rect.Max.Y),
		image.Rect(rect.Max.X-width, rect.Min.Y, rect.Max.X, rect.Max.Y),
	} {
		draw.Draw(img, edge, b, image.Point{}, draw.Src)
	}
}

// wrapText breaks text on spaces so each line fits maxWidth where possible.
func wrapText(face font.Face, text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}
	d := &font.Drawer{Face: face}
	lines := []string{}
	current := words[0]
	for _, word := range words[1:] {
		if next := current + " " + word; d.MeasureString(next).Ceil() <= maxWidth {
			current = next
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}

// clampLines keeps at most maxLines, ending the last kept line with an ellipsis.
func clampLines(face font.Face, lines []string, maxLines int, maxWidth int) []string {
	if len(lines) <= maxLines {
		return lines
	}
	lines = lines[:maxLines]
	const ellipsis = "..."
	d := &font.Drawer{Face: face}
	runes := []rune(lines[maxLines-1])
	for len(runes) > 0 && d.MeasureString(string(runes)+ellipsis).Ceil() > maxWidth {
		runes = runes[:len(runes)-1]
	}
	lines[maxLines-1] = strings.TrimSpace(string(runes)) + ellipsis
	return lines
}

func drawWrappedText(img draw.Image, face font.Face, rect image.Rectangle, lines []string, clr color.Color) {
	if len(lines) == 0 {
		return
	}
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	startY := rect.Min.Y + (rect.Dy()-lineHeight*len(lines))/2 + metrics.Ascent.Ceil()
	for i, line := range lines {
		x := rect.Min.X + (rect.Dx()-font.MeasureString(face, line).Ceil())/2
		drawText(img, face, x, startY+i*lineHeight, line, clr)
	}
}
