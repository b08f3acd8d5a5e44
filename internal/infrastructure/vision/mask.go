package vision

import (
	"image"
)

// Mask is a binary image. Coordinates are zero-based and row-major.
type Mask struct {
	W, H int
	Bits []bool
}

func NewMask(w, h int) *Mask {
	return &Mask{W: w, H: h, Bits: make([]bool, w*h)}
}

func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.Bits[y*m.W+x]
}

func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.W || y >= m.H {
		return
	}
	m.Bits[y*m.W+x] = v
}

func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Sub copies the part of m inside r. Regions found in the copy must be
// shifted by r.Min to get back to m's coordinates.
func (m *Mask) Sub(r image.Rectangle) *Mask {
	r = r.Intersect(image.Rect(0, 0, m.W, m.H))
	out := NewMask(r.Dx(), r.Dy())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		copy(out.Bits[(y-r.Min.Y)*out.W:(y-r.Min.Y+1)*out.W], m.Bits[y*m.W+r.Min.X:y*m.W+r.Max.X])
	}
	return out
}

// Dilate sets every pixel whose kw x kh neighbourhood contains a set pixel.
func Dilate(m *Mask, kw, kh int) *Mask {
	return morph(m, kw, kh, true)
}

// Erode keeps pixels whose whole kw x kh neighbourhood is set.
func Erode(m *Mask, kw, kh int) *Mask {
	return morph(m, kw, kh, false)
}

// Close fills small gaps: dilation followed by erosion.
func Close(m *Mask, kw, kh int) *Mask {
	return Erode(Dilate(m, kw, kh), kw, kh)
}

// morph runs a separable rectangular min/max filter.
func morph(m *Mask, kw, kh int, dilate bool) *Mask {
	if kw < 1 {
		kw = 1
	}
	if kh < 1 {
		kh = 1
	}
	ax, ay := kw/2, kh/2

	tmp := NewMask(m.W, m.H)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			tmp.Bits[y*m.W+x] = window(m, x-ax, x-ax+kw, y, y+1, dilate)
		}
	}

	out := NewMask(m.W, m.H)
	for y := 0; y < m.H; y++ {
		for x := 0; x < m.W; x++ {
			out.Bits[y*m.W+x] = window(tmp, x, x+1, y-ay, y-ay+kh, dilate)
		}
	}
	return out
}

// window reports any-set (dilate) or all-set (erode) over [x0,x1)x[y0,y1).
// Out-of-bounds pixels are ignored.
func window(m *Mask, x0, x1, y0, y1 int, dilate bool) bool {
	for y := max(y0, 0); y < min(y1, m.H); y++ {
		for x := max(x0, 0); x < min(x1, m.W); x++ {
			set := m.Bits[y*m.W+x]
			if dilate && set {
				return true
			}
			if !dilate && !set {
				return false
			}
		}
	}
	return !dilate
}

// Regions returns the bounding boxes of 8-connected components of m,
// in scan order of their first pixel.
func Regions(m *Mask) []image.Rectangle {
	labels := make([]bool, len(m.Bits))
	var rects []image.Rectangle
	queue := make([]int, 0, 256)

	for start, set := range m.Bits {
		if !set || labels[start] {
			continue
		}
		labels[start] = true
		queue = append(queue[:0], start)
		sx, sy := start%m.W, start/m.W
		r := image.Rect(sx, sy, sx+1, sy+1)

		for len(queue) > 0 {
			p := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			px, py := p%m.W, p/m.W

			if px < r.Min.X {
				r.Min.X = px
			}
			if px+1 > r.Max.X {
				r.Max.X = px + 1
			}
			if py < r.Min.Y {
				r.Min.Y = py
			}
			if py+1 > r.Max.Y {
				r.Max.Y = py + 1
			}

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := px+dx, py+dy
					if nx < 0 || ny < 0 || nx >= m.W || ny >= m.H {
						continue
					}
					n := ny*m.W + nx
					if m.Bits[n] && !labels[n] {
						labels[n] = true
						queue = append(queue, n)
					}
				}
			}
		}
		rects = append(rects, r)
	}
	return rects
}

// RegionsIn finds regions inside r and returns them in m's coordinates.
func RegionsIn(m *Mask, r image.Rectangle) []image.Rectangle {
	sub := m.Sub(r)
	r = r.Intersect(image.Rect(0, 0, m.W, m.H))
	found := Regions(sub)
	for i := range found {
		found[i] = found[i].Add(r.Min)
	}
	return found
}
