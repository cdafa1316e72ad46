package report

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"retrodetect/pkg/retrodetect"
)

const (
	overlayWidth  = 800
	summaryHeight = 40
	stripScale    = 4

	// Scores are mapped onto a red to green hue over this range.
	scoreLow  = -20.0
	scoreHigh = 10.0
)

// RenderOverlay draws frame as a contrast stretched grey image, scaled to
// 800 pixels wide, with a circle and index label on every candidate.
// Candidates below threshold are drawn in grey.
func RenderOverlay(frame *retrodetect.Frame, cands []*retrodetect.Candidate, threshold float64) (*image.RGBA, error) {
	if !frame.Valid() {
		return nil, fmt.Errorf("no frame to render")
	}

	gray := stretch(frame.Pix, frame.Width, frame.Height)
	scale := float64(overlayWidth) / float64(frame.Width)
	imgH := int(math.Round(float64(frame.Height) * scale))
	if imgH < 1 {
		imgH = 1
	}
	scaled := imaging.Resize(gray, overlayWidth, imgH, imaging.Linear)

	img := image.NewRGBA(image.Rect(0, 0, overlayWidth, imgH+summaryHeight))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	copyInto(img, scaled)

	face := basicfont.Face7x13
	radius := int(math.Max(6, float64(retrodetect.DeleteSize)*scale))
	kept := 0
	for i, c := range cands {
		cx := int(float64(c.X) * scale)
		cy := int(float64(c.Y) * scale)
		col := color.RGBA{128, 128, 128, 255}
		if c.Score >= threshold && !math.IsNaN(c.Score) {
			col = ScoreColor(c.Score)
			kept++
		}
		drawCircle(img, cx, cy, radius, col)
		drawCircle(img, cx, cy, radius+1, col)
		drawText(img, face, fmt.Sprintf("%d", i), cx+radius+2, cy+4, col)
	}

	summary := fmt.Sprintf("%d candidates, %d at or above %.1f", len(cands), kept, threshold)
	drawText(img, face, summary, 10, imgH+summaryHeight/2+4, color.RGBA{220, 220, 220, 255})
	return img, nil
}

// RenderPatchStrip lays out every candidate's image patch side by side,
// enlarged, with its index and score below it.
func RenderPatchStrip(cands []*retrodetect.Candidate) (*image.NRGBA, error) {
	if len(cands) == 0 {
		return nil, fmt.Errorf("no candidates")
	}
	side := 2 * retrodetect.SaveSize * stripScale
	labelH := 16
	strip := imaging.New(side*len(cands), side+labelH, color.Black)

	face := basicfont.Face7x13
	for i, c := range cands {
		if c.ImagePatch == nil {
			continue
		}
		p := c.ImagePatch
		tile := imaging.Resize(stretch(p.Pix, p.Size, p.Size), side, side, imaging.NearestNeighbor)
		strip = imaging.Paste(strip, tile, image.Pt(i*side, 0))
	}

	labelled := image.NewRGBA(strip.Bounds())
	copyInto(labelled, strip)
	for i, c := range cands {
		label := fmt.Sprintf("%d: %.1f", i, c.Score)
		drawText(labelled, face, label, i*side+4, side+labelH-4, color.RGBA{220, 220, 220, 255})
	}
	return imaging.Clone(labelled), nil
}

// SaveOverlay writes img as a JPEG, creating the directory if needed.
func SaveOverlay(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create overlay directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create overlay file: %w", err)
	}
	defer f.Close()
	return jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
}

// SaveImage writes img in the format given by the extension of path.
func SaveImage(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create image directory: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}

// OverlayBytes encodes img as JPEG.
func OverlayBytes(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ScoreColor maps a score to a hue from red (low) to green (high).
func ScoreColor(score float64) color.RGBA {
	t := (score - scoreLow) / (scoreHigh - scoreLow)
	t = math.Max(0, math.Min(1, t))
	r, g, b := colorful.Hsv(120*t, 0.9, 1).Clamped().RGB255()
	return color.RGBA{r, g, b, 255}
}

// stretch maps pix linearly onto 0..255 between its minimum and maximum.
func stretch(pix []float32, w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	if len(pix) == 0 {
		return img
	}
	lo, hi := pix[0], pix[0]
	for _, v := range pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	if span <= 0 {
		return img
	}
	for i, v := range pix {
		img.Pix[i] = uint8(255 * (v - lo) / span)
	}
	return img
}

func copyInto(dst *image.RGBA, src image.Image) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.Set(x, y, src.At(b.Min.X+x, b.Min.Y+y))
		}
	}
}

// drawText draws a string at (x, y) using the given font face.
func drawText(img *image.RGBA, face font.Face, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawCircle draws a circle outline using the midpoint algorithm.
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	x := radius
	y := 0
	err := 0

	for x >= y {
		img.Set(cx+x, cy+y, c)
		img.Set(cx+y, cy+x, c)
		img.Set(cx-y, cy+x, c)
		img.Set(cx-x, cy+y, c)
		img.Set(cx-x, cy-y, c)
		img.Set(cx-y, cy-x, c)
		img.Set(cx+y, cy-x, c)
		img.Set(cx+x, cy-y, c)

		y++
		err += 1 + 2*y
		if 2*(err-x)+1 > 0 {
			x--
			err += 1 - 2*x
		}
	}
}
