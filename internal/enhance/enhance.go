// Package enhance provides the named image-transform operations applied by
// the preprocessing and enhancement pipeline stages.
//
// Each operation maps one image to one image. An operation that cannot
// produce output returns nil, which callers treat as identity: a failed
// filter degrades gracefully instead of aborting the pipeline.
package enhance

import (
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Op is one named image transform. Fn returns nil when the transform
// produced no output; the caller passes the unmodified input forward.
type Op struct {
	Name string
	Fn   func(image.Image) image.Image
}

// PreprocessOps returns the ordered transforms applied before detection:
// a grayscale-leaning desaturation that suppresses color noise without
// discarding tone, then a contrast/brightness lift that makes page edges
// stand out against the background.
func PreprocessOps() []Op {
	return []Op{
		{Name: "desaturate", Fn: Desaturate},
		{Name: "contrast_brightness", Fn: ContrastBrightness},
	}
}

// EnhanceOps returns the ordered transforms applied after correction:
// edge sharpening, denoising, and color-tone correction.
func EnhanceOps() []Op {
	return []Op{
		{Name: "sharpen", Fn: Sharpen},
		{Name: "denoise", Fn: Denoise},
		{Name: "tone_correct", Fn: ToneCorrect},
	}
}

// Desaturate pulls saturation most of the way toward grayscale while
// keeping a hint of color for the later tone pass.
func Desaturate(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	return adjust.Saturation(img, -0.7)
}

// ContrastBrightness applies a mild contrast and brightness lift suited to
// unevenly lit document photographs.
func ContrastBrightness(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	out := imaging.AdjustContrast(img, 15)
	return imaging.AdjustBrightness(out, 5)
}

// Sharpen applies an unsharp mask tuned for printed text edges.
func Sharpen(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	return effect.UnsharpMask(img, 1.2, 0.5)
}

// Denoise removes sensor noise. When a GPU backend has been registered it
// is used; otherwise a light Gaussian blur on the CPU. A failing GPU
// backend falls back to the CPU path transparently.
func Denoise(img image.Image) image.Image {
	if img == nil {
		return nil
	}
	if backend := gpuBackend(); backend != nil {
		if out, err := backend.Denoise(img); err == nil && out != nil {
			return out
		}
	}
	return blur.Gaussian(img, 0.8)
}

// ToneCorrect removes the overall color cast from an image using a
// gray-world estimate in Lab space: the mean a/b chroma of the image is
// taken as the cast and subtracted from every pixel, neutralizing the
// yellow tint of indoor lighting on white paper.
func ToneCorrect(img image.Image) image.Image {
	if img == nil {
		return nil
	}

	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	// Estimate the cast on a sparse grid; sampling every pixel of a camera
	// frame would dominate the filter's cost.
	step := w / 64
	if step < 1 {
		step = 1
	}

	var sumA, sumB float64
	var n int
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			_, a, b := c.Lab()
			sumA += a
			sumB += b
			n++
		}
	}
	if n == 0 {
		return nil
	}

	castA := sumA / float64(n)
	castB := sumB / float64(n)

	out := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				out.Set(x, y, img.At(x, y))
				continue
			}
			l, a, b := c.Lab()
			out.Set(x, y, colorful.Lab(l, a-castA, b-castB).Clamped())
		}
	}
	return out
}

// Apply runs an ordered sequence of operations, treating a nil result from
// any operation as identity for that step.
func Apply(img image.Image, ops []Op) image.Image {
	current := img
	for _, op := range ops {
		if out := op.Fn(current); out != nil {
			current = out
		}
	}
	return current
}
