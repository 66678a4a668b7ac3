package processing

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/couchcryptid/goes-imagery/internal/domain"
)

// Brightness-temperature display range in Kelvin. Colder cloud tops map
// to brighter pixels, matching conventional IR enhancement.
const (
	btDisplayMin = 180.0
	btDisplayMax = 330.0
)

// Render produces a finished image from a calibrated scene. The
// processing level trades fidelity for cost: quicklook halves the
// resolution, thumbnail quarters it, full resolution is 1:1.
func Render(cal *Calibrated, spec domain.ChannelSpec, level domain.ProcessingLevel) (image.Image, error) {
	step := 1
	switch level {
	case domain.LevelQuicklook:
		step = 2
	case domain.LevelThumbnail:
		step = 4
	case domain.LevelFullResolution, "":
	default:
		return nil, &domain.ConfigurationError{Reason: fmt.Sprintf("unknown processing level %q", level)}
	}

	outW := (cal.Width + step - 1) / step
	outH := (cal.Height + step - 1) / step

	if spec.Flags.WaterVapor {
		return renderWaterVapor(cal, step, outW, outH), nil
	}
	return renderGray(cal, step, outW, outH), nil
}

func renderGray(cal *Calibrated, step, outW, outH int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, outW, outH))
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			v := cal.Values[(y*step)*cal.Width+x*step]
			img.SetGray(x, y, color.Gray{Y: pixelValue(v, cal.Kind)})
		}
	}
	return img
}

// renderWaterVapor biases the blue channel so moisture imagery reads in
// the conventional blue-to-white ramp.
func renderWaterVapor(cal *Calibrated, step, outW, outH int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			g := pixelValue(cal.Values[(y*step)*cal.Width+x*step], cal.Kind)
			b := uint8(255)
			if int(g)+64 < 255 {
				b = g + 64
			}
			img.SetRGBA(x, y, color.RGBA{R: g / 2, G: g, B: b, A: 255})
		}
	}
	return img
}

// pixelValue maps a calibrated value to display brightness. Reflectance
// gets a gamma stretch; brightness temperature is inverted over the
// display range.
func pixelValue(v float64, kind CalibrationKind) uint8 {
	switch kind {
	case KindReflectance:
		return uint8(clamp01(math.Sqrt(v)) * 255)
	case KindBrightnessTemp:
		return uint8(clamp01((btDisplayMax-v)/(btDisplayMax-btDisplayMin)) * 255)
	default:
		return 0
	}
}

// Panel is one labeled image in a comparison composite.
type Panel struct {
	Label string
	Image image.Image
}

// Composite builds a side-by-side comparison strip, e.g. standard vs
// enhanced vs externally sourced sample. Panels are normalized to the
// shortest panel height by integer decimation.
func Composite(panels ...Panel) image.Image {
	if len(panels) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}

	height := panels[0].Image.Bounds().Dy()
	for _, p := range panels[1:] {
		if h := p.Image.Bounds().Dy(); h < height {
			height = h
		}
	}

	totalWidth := 0
	scaled := make([]image.Image, len(panels))
	for i, p := range panels {
		scaled[i] = decimateToHeight(p.Image, height)
		totalWidth += scaled[i].Bounds().Dx()
	}

	out := image.NewRGBA(image.Rect(0, 0, totalWidth, height))
	x := 0
	for _, img := range scaled {
		r := image.Rect(x, 0, x+img.Bounds().Dx(), height)
		draw.Draw(out, r, img, img.Bounds().Min, draw.Src)
		x += img.Bounds().Dx()
	}
	return out
}

func decimateToHeight(img image.Image, height int) image.Image {
	b := img.Bounds()
	if b.Dy() <= height {
		return img
	}
	step := (b.Dy() + height - 1) / height
	outW := (b.Dx() + step - 1) / step
	out := image.NewRGBA(image.Rect(0, 0, outW, height))
	for y := 0; y < height; y++ {
		for x := 0; x < outW; x++ {
			sx := b.Min.X + x*step
			sy := b.Min.Y + y*step
			if sx >= b.Max.X {
				sx = b.Max.X - 1
			}
			if sy >= b.Max.Y {
				sy = b.Max.Y - 1
			}
			out.Set(x, y, img.At(sx, sy))
		}
	}
	return out
}

// WriteImage encodes img as PNG at path, creating parent directories.
func WriteImage(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

// WriteBytes stores an already-rendered product (e.g. a CDN JPEG) at
// path, creating parent directories.
func WriteBytes(path string, payload []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
