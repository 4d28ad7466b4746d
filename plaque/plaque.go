// Package plaque renders the name plate attached to gallery posts.
package plaque

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/BlobEmoji/Artemis/model"
)

const (
	fontSize   = 20
	margin     = 100
	lineHeight = 50
)

var (
	MainBackground      = color.RGBA{R: 242, G: 178, B: 82, A: 255}
	SecondaryBackground = color.RGBA{R: 227, G: 167, B: 77, A: 255}
	Text                = color.RGBA{R: 243, G: 242, B: 247, A: 255}
)

// Renderer draws plaques. Font faces keep glyph caches and are not safe for
// concurrent use, so rendering is serialized.
type Renderer struct {
	mu      sync.Mutex
	regular font.Face
	bold    font.Face
}

// NewRenderer parses the embedded Go fonts.
func NewRenderer() (*Renderer, error) {
	regular, err := newFace(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("load regular font: %w", err)
	}
	bold, err := newFace(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("load bold font: %w", err)
	}
	return &Renderer{regular: regular, bold: bold}, nil
}

func newFace(ttf []byte) (font.Face, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// Render draws lines centred on a two-tone background. Lines whose index is
// listed in emphasized are drawn in bold.
func (r *Renderer) Render(lines []string, emphasized ...int) image.Image {
	r.mu.Lock()
	defer r.mu.Unlock()

	bold := make(map[int]bool, len(emphasized))
	for _, i := range emphasized {
		bold[i] = true
	}
	faceFor := func(i int) font.Face {
		if bold[i] {
			return r.bold
		}
		return r.regular
	}

	var widest fixed.Int26_6
	for i, line := range lines {
		if adv := font.MeasureString(faceFor(i), line); adv > widest {
			widest = adv
		}
	}
	width := widest.Ceil() + margin
	height := lineHeight * max(len(lines), 1)

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			// upper-left triangle of the main diagonal
			if x*height+y*width < width*height {
				img.SetRGBA(x, y, MainBackground)
			} else {
				img.SetRGBA(x, y, SecondaryBackground)
			}
		}
	}

	src := image.NewUniform(Text)
	for i, line := range lines {
		face := faceFor(i)
		d := &font.Drawer{Dst: img, Src: src, Face: face}
		adv := d.MeasureString(line)
		baseline := (i+1)*height/(len(lines)+1) + face.Metrics().CapHeight.Ceil()/2
		d.Dot = fixed.Point26_6{X: (fixed.I(width) - adv) / 2, Y: fixed.I(baseline)}
		d.DrawString(line)
	}
	return img
}

// Attachment renders the plaque and encodes it as name.png.
func (r *Renderer) Attachment(name string, lines []string, emphasized ...int) (*model.Attachment, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.Render(lines, emphasized...)); err != nil {
		return nil, fmt.Errorf("encode plaque: %w", err)
	}
	return &model.Attachment{
		Name:        name + ".png",
		ContentType: "image/png",
		Data:        buf.Bytes(),
	}, nil
}
