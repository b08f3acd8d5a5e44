// Package vision holds the pixel operations shared by the local detectors:
// grayscale, blur, edges, thresholds, color masks and region statistics.
package vision

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

var (
	sobelX = [9]float64{-1, 0, 1, -2, 0, 2, -1, 0, 1}
	sobelY = [9]float64{-1, -2, -1, 0, 0, 0, 1, 2, 1}
)

// Downscale shrinks img to maxWidth when it is wider and returns the factor
// that maps the result's coordinates back to img.
func Downscale(img image.Image, maxWidth int) (image.Image, float64) {
	w := img.Bounds().Dx()
	if maxWidth <= 0 || w <= maxWidth {
		return img, 1
	}
	small := imaging.Resize(img, maxWidth, 0, imaging.Box)
	return small, float64(w) / float64(small.Bounds().Dx())
}

// ScaleRect maps a rectangle by factor s, keeping it at least 1px wide.
func ScaleRect(r image.Rectangle, s float64) image.Rectangle {
	if s == 1 {
		return r
	}
	out := image.Rect(
		int(math.Floor(float64(r.Min.X)*s)),
		int(math.Floor(float64(r.Min.Y)*s)),
		int(math.Ceil(float64(r.Max.X)*s)),
		int(math.Ceil(float64(r.Max.Y)*s)),
	)
	if out.Dx() < 1 {
		out.Max.X = out.Min.X + 1
	}
	if out.Dy() < 1 {
		out.Max.Y = out.Min.Y + 1
	}
	return out
}

// Gray converts img to an 8-bit luminance image with origin at (0,0).
func Gray(img image.Image) *image.Gray {
	return toGray(imaging.Grayscale(img))
}

func toGray(n *image.NRGBA) *image.Gray {
	b := n.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		row := n.Pix[y*n.Stride:]
		for x := 0; x < b.Dx(); x++ {
			g.Pix[y*g.Stride+x] = row[x*4]
		}
	}
	return g
}

// Edges returns pixels whose blurred Sobel gradient magnitude is at least
// threshold (0-255).
func Edges(img image.Image, threshold uint8) *Mask {
	gray := imaging.Grayscale(img)
	blurred := imaging.Blur(gray, 1.0)

	gx := imaging.Convolve3x3(blurred, sobelX, &imaging.ConvolveOptions{Abs: true})
	gy := imaging.Convolve3x3(blurred, sobelY, &imaging.ConvolveOptions{Abs: true})

	b := gx.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := y*gx.Stride + x*4
			mag := int(gx.Pix[i]) + int(gy.Pix[i])
			if mag > 255 {
				mag = 255
			}
			m.Bits[y*m.W+x] = uint8(mag) >= threshold
		}
	}
	return m
}

// Threshold marks pixels brighter than t, or darker-or-equal when inverse.
func Threshold(g *image.Gray, t uint8, inverse bool) *Mask {
	b := g.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := g.Pix[y*g.Stride+x]
			m.Bits[y*m.W+x] = (v > t) != inverse
		}
	}
	return m
}

// Otsu picks the threshold that maximises between-class variance.
func Otsu(g *image.Gray) uint8 {
	var hist [256]int
	b := g.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 127
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			hist[g.Pix[y*g.Stride+x]]++
		}
	}

	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}

	var sumB, best float64
	var wB int
	var t uint8
	for i := 0; i < 256; i++ {
		wB += hist[i]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i * hist[i])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			t = uint8(i)
		}
	}
	return t
}

// HSV is a color in OpenCV ranges: H in [0,180), S and V in [0,255].
type HSV struct {
	H, S, V float64
}

func ToHSV(c color.Color) HSV {
	r16, g16, b16, _ := c.RGBA()
	r, g, b := float64(r16>>8)/255, float64(g16>>8)/255, float64(b16>>8)/255

	maxC := math.Max(r, math.Max(g, b))
	minC := math.Min(r, math.Min(g, b))
	delta := maxC - minC

	var h float64
	switch {
	case delta == 0:
		h = 0
	case maxC == r:
		h = 60 * math.Mod((g-b)/delta, 6)
	case maxC == g:
		h = 60 * ((b-r)/delta + 2)
	default:
		h = 60 * ((r-g)/delta + 4)
	}
	if h < 0 {
		h += 360
	}

	var s float64
	if maxC > 0 {
		s = delta / maxC
	}
	return HSV{H: h / 2, S: s * 255, V: maxC * 255}
}

// InRange marks pixels whose HSV value lies within [lo, hi] on every axis.
func InRange(img image.Image, lo, hi HSV) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := ToHSV(img.At(b.Min.X+x, b.Min.Y+y))
			if c.H >= lo.H && c.H <= hi.H && c.S >= lo.S && c.S <= hi.S && c.V >= lo.V && c.V <= hi.V {
				m.Bits[y*m.W+x] = true
			}
		}
	}
	return m
}

// Stats returns the standard deviation and the number of distinct gray
// levels inside r.
func Stats(g *image.Gray, r image.Rectangle) (stddev float64, distinct int) {
	r = r.Intersect(g.Bounds())
	n := r.Dx() * r.Dy()
	if n == 0 {
		return 0, 0
	}

	var seen [256]bool
	var sum, sumSq float64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			v := g.Pix[y*g.Stride+x]
			if !seen[v] {
				seen[v] = true
				distinct++
			}
			f := float64(v)
			sum += f
			sumSq += f * f
		}
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance), distinct
}

func Area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// Aspect is width over height.
func Aspect(r image.Rectangle) float64 {
	if r.Dy() == 0 {
		return 0
	}
	return float64(r.Dx()) / float64(r.Dy())
}
